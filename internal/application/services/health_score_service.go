package services

import (
	"fmt"
	"math"

	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	apperrors "github.com/zatekoja/visibilityscore/pkg/errors"
)

const (
	accuracyPenaltyPerClaim = 15
	accuracyFloor           = 40
)

// HealthScoreService combines visibility, accuracy, structure and freshness
// into one weighted score. It performs no I/O.
type HealthScoreService struct{}

func NewHealthScoreService() *HealthScoreService {
	return &HealthScoreService{}
}

// ComputeHealthScore scores input. A nil VisibilityScore or PageAudit counts
// as 0 for its dimension.
func (s *HealthScoreService) ComputeHealthScore(input entities.HealthScoreInput) (*entities.HealthScoreResult, error) {
	if err := validateHealthInput(input); err != nil {
		return nil, err
	}

	visibility := 0
	if input.VisibilityScore != nil {
		visibility = entities.ClampScore(int(math.Round(100 * *input.VisibilityScore)))
	}
	accuracy := accuracyScore(input.OpenClaimCount)
	structure := 0
	if input.PageAudit != nil {
		structure = entities.ClampScore(input.PageAudit.OverallScore)
	}
	freshness := entities.ClampScore(int(math.Round(100 * input.AuditFreshnessRatio)))

	breakdown := []entities.DimensionScore{
		{Dimension: entities.HealthVisibility, Label: "Visibility", Score: visibility, Weight: entities.WeightVisibility},
		{Dimension: entities.HealthAccuracy, Label: "Accuracy", Score: accuracy, Weight: entities.WeightAccuracy},
		{Dimension: entities.HealthStructure, Label: "Structure", Score: structure, Weight: entities.WeightStructure},
		{Dimension: entities.HealthFreshness, Label: "Freshness", Score: freshness, Weight: entities.WeightFreshness},
	}

	var total float64
	for _, d := range breakdown {
		total += d.Weight * float64(d.Score)
	}
	score := entities.ClampScore(int(math.Round(total)))

	recs := healthRecommendations(input, visibility, accuracy, freshness)
	entities.SortRecommendations(recs)

	result := &entities.HealthScoreResult{
		Score:           score,
		Grade:           entities.GradeFor(score),
		Breakdown:       breakdown,
		Recommendations: recs,
	}
	if len(recs) > 0 {
		top := recs[0]
		result.TopRecommendation = &top
	}
	return result, nil
}

func accuracyScore(openClaims int) int {
	if openClaims >= (100-accuracyFloor)/accuracyPenaltyPerClaim {
		return accuracyFloor
	}
	score := 100 - accuracyPenaltyPerClaim*openClaims
	if score < accuracyFloor {
		return accuracyFloor
	}
	return score
}

func healthRecommendations(input entities.HealthScoreInput, visibility, accuracy, freshness int) []entities.Recommendation {
	recs := []entities.Recommendation{}
	add := func(dim entities.HealthDimension, weight float64, missing int, issue, fix string) {
		impact := int(math.Round(weight * float64(missing)))
		if missing <= 0 || impact <= 0 {
			return
		}
		recs = append(recs, entities.Recommendation{Dimension: string(dim), Issue: issue, Fix: fix, ImpactPoints: impact})
	}

	if input.VisibilityScore == nil {
		add(entities.HealthVisibility, entities.WeightVisibility, 100,
			"No share-of-voice measurement on record",
			"Probe your top local search queries across the AI engines")
	} else {
		add(entities.HealthVisibility, entities.WeightVisibility, 100-visibility,
			fmt.Sprintf("Cited in %d%% of AI engine answers", visibility),
			"Strengthen directory listings and on-page facts that AI engines draw from")
	}

	if input.OpenClaimCount > 0 {
		noun := "hallucinations"
		if input.OpenClaimCount == 1 {
			noun = "hallucination"
		}
		add(entities.HealthAccuracy, entities.WeightAccuracy, 100-accuracy,
			fmt.Sprintf("%d open %s about your business", input.OpenClaimCount, noun),
			fmt.Sprintf("Close %d open %s by correcting the source listings", input.OpenClaimCount, noun))
	}

	if input.PageAudit == nil {
		add(entities.HealthStructure, entities.WeightStructure, 100,
			"No page audit on record",
			"Run a page audit on your homepage")
	} else {
		// Page audit impacts are overall-page points; rescale them to composite points.
		for _, r := range input.PageAudit.Recommendations {
			impact := int(math.Round(entities.WeightStructure * float64(r.ImpactPoints)))
			if impact < 1 {
				impact = 1
			}
			r.ImpactPoints = impact
			recs = append(recs, r)
		}
	}

	add(entities.HealthFreshness, entities.WeightFreshness, 100-freshness,
		fmt.Sprintf("Only %d%% of scheduled audits ran", freshness),
		"Keep the audit schedule running so scores reflect the current site")

	return recs
}

func validateHealthInput(input entities.HealthScoreInput) error {
	if v := input.VisibilityScore; v != nil && (math.IsNaN(*v) || *v < 0 || *v > 1) {
		return apperrors.NewValidationError(fmt.Sprintf("visibility score must be within [0,1], got %v", *v))
	}
	if input.OpenClaimCount < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("open claim count must not be negative, got %d", input.OpenClaimCount))
	}
	if r := input.AuditFreshnessRatio; math.IsNaN(r) || r < 0 || r > 1 {
		return apperrors.NewValidationError(fmt.Sprintf("audit freshness ratio must be within [0,1], got %v", r))
	}
	if input.PageAudit != nil && (input.PageAudit.OverallScore < 0 || input.PageAudit.OverallScore > 100) {
		return apperrors.NewValidationError(fmt.Sprintf("page audit overall score must be within [0,100], got %d", input.PageAudit.OverallScore))
	}
	return nil
}
