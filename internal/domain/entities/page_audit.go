package entities

import (
	"math"
	"sort"
	"time"
)

// PageType classifies the audited page.
type PageType string

const (
	PageTypeHomepage PageType = "homepage"
	PageTypeMenu     PageType = "menu"
	PageTypeAbout    PageType = "about"
	PageTypeFAQ      PageType = "faq"
	PageTypeEvents   PageType = "events"
	PageTypeOther    PageType = "other"
)

// IsValid checks if the page type is one of the defined constants.
func (p PageType) IsValid() bool {
	switch p {
	case PageTypeHomepage, PageTypeMenu, PageTypeAbout, PageTypeFAQ, PageTypeEvents, PageTypeOther:
		return true
	}
	return false
}

// AuditDimension names a page audit sub-score.
type AuditDimension string

const (
	DimensionAnswerFirst        AuditDimension = "answer_first"
	DimensionSchemaCompleteness AuditDimension = "schema_completeness"
	DimensionFAQSchema          AuditDimension = "faq_schema"
	DimensionKeywordDensity     AuditDimension = "keyword_density"
	DimensionEntityClarity      AuditDimension = "entity_clarity"
)

// Overall score weights.
const (
	WeightAnswerFirst        = 0.35
	WeightSchemaCompleteness = 0.25
	WeightFAQSchema          = 0.20
	WeightKeywordDensity     = 0.10
	WeightEntityClarity      = 0.10
)

// Answer-first score sources.
const (
	ScoreSourceHeuristic  = "heuristic"
	ScoreSourceGenerative = "generative"
)

// Recommendation is one prioritized fix with its estimated score gain.
type Recommendation struct {
	Dimension    string `json:"dimension"`
	Issue        string `json:"issue"`
	Fix          string `json:"fix"`
	ImpactPoints int    `json:"impact_points"`
}

// PageAuditResult is the outcome of one audit of one (business, URL) pair.
type PageAuditResult struct {
	ID                      string           `json:"id"`
	URL                     string           `json:"url"`
	PageType                PageType         `json:"page_type"`
	AnswerFirstScore        int              `json:"answer_first_score"`
	SchemaCompletenessScore int              `json:"schema_completeness_score"`
	FAQSchemaScore          int              `json:"faq_schema_score"`
	KeywordDensityScore     int              `json:"keyword_density_score"`
	EntityClarityScore      int              `json:"entity_clarity_score"`
	OverallScore            int              `json:"overall_score"`
	HasFAQSchema            bool             `json:"has_faq_schema"`
	AnswerFirstSource       string           `json:"answer_first_source"`
	Recommendations         []Recommendation `json:"recommendations"`
	AuditedAt               time.Time        `json:"audited_at"`
}

// ComputeOverall returns the weighted overall page score.
func ComputeOverall(answerFirst, schema, faq, keyword, entity int) int {
	sum := WeightAnswerFirst*float64(answerFirst) +
		WeightSchemaCompleteness*float64(schema) +
		WeightFAQSchema*float64(faq) +
		WeightKeywordDensity*float64(keyword) +
		WeightEntityClarity*float64(entity)
	return ClampScore(int(math.Round(sum)))
}

// ClampScore bounds a score to 0..100.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// SortRecommendations orders by impact descending, keeping insertion order on ties.
func SortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ImpactPoints > recs[j].ImpactPoints
	})
}
