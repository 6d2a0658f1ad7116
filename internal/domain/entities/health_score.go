package entities

// HealthDimension names a composite health score dimension.
type HealthDimension string

const (
	HealthVisibility HealthDimension = "visibility"
	HealthAccuracy   HealthDimension = "accuracy"
	HealthStructure  HealthDimension = "structure"
	HealthFreshness  HealthDimension = "freshness"
)

// Composite weights.
const (
	WeightVisibility = 0.30
	WeightAccuracy   = 0.25
	WeightStructure  = 0.25
	WeightFreshness  = 0.20
)

// HealthScoreInput holds the already-fetched signals. VisibilityScore is a
// share-of-voice fraction in [0,1].
type HealthScoreInput struct {
	VisibilityScore     *float64         `json:"visibility_score"`
	PageAudit           *PageAuditResult `json:"page_audit"`
	OpenClaimCount      int              `json:"open_claim_count"`
	AuditFreshnessRatio float64          `json:"audit_freshness_ratio"`
}

// DimensionScore is one row of the breakdown.
type DimensionScore struct {
	Dimension HealthDimension `json:"dimension"`
	Label     string          `json:"label"`
	Score     int             `json:"score"`
	Weight    float64         `json:"weight"`
}

// HealthScoreResult is the composite score with its breakdown.
type HealthScoreResult struct {
	Score             int              `json:"score"`
	Grade             string           `json:"grade"`
	Breakdown         []DimensionScore `json:"breakdown"`
	TopRecommendation *Recommendation  `json:"top_recommendation"`
	Recommendations   []Recommendation `json:"recommendations"`
}

// GradeFor maps a composite score to its letter band.
func GradeFor(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}
