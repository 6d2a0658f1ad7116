package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrectionStatus_Transitions(t *testing.T) {
	tests := []struct {
		from  CorrectionStatus
		to    CorrectionStatus
		legal bool
	}{
		{CorrectionOpen, CorrectionVerifying, true},
		{CorrectionVerifying, CorrectionFixed, true},
		{CorrectionVerifying, CorrectionRecurring, true},
		{CorrectionOpen, CorrectionFixed, false},
		{CorrectionFixed, CorrectionVerifying, false},
		{CorrectionRecurring, CorrectionFixed, false},
		{CorrectionVerifying, CorrectionOpen, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.legal, tt.from.CanTransition(tt.to))
			next, err := tt.from.Transition(tt.to)
			if tt.legal {
				require.NoError(t, err)
				assert.Equal(t, tt.to, next)
			} else {
				assert.Error(t, err)
				assert.Equal(t, tt.from, next)
			}
		})
	}
}

func TestCorrectionStatus_Terminal(t *testing.T) {
	assert.True(t, CorrectionFixed.IsTerminal())
	assert.True(t, CorrectionRecurring.IsTerminal())
	assert.False(t, CorrectionVerifying.IsTerminal())
	assert.False(t, CorrectionStatus("closed").IsValid())
}

func TestComputeOverall(t *testing.T) {
	assert.Equal(t, 100, ComputeOverall(100, 100, 100, 100, 100))
	assert.Equal(t, 0, ComputeOverall(0, 0, 0, 0, 0))
	// 0.35*50 + 0.25*30 + 0.20*0 + 0.10*25 + 0.10*75 = 35
	assert.Equal(t, 35, ComputeOverall(50, 30, 0, 25, 75))
	// 0.35*45 = 15.75
	assert.Equal(t, 16, ComputeOverall(45, 0, 0, 0, 0))
}

func TestSortRecommendations_StableOnTies(t *testing.T) {
	recs := []Recommendation{
		{Issue: "a", ImpactPoints: 5},
		{Issue: "b", ImpactPoints: 10},
		{Issue: "c", ImpactPoints: 5},
		{Issue: "d", ImpactPoints: 10},
	}
	SortRecommendations(recs)

	var order []string
	for _, r := range recs {
		order = append(order, r.Issue)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, order)
}

func TestGradeFor(t *testing.T) {
	cases := map[int]string{100: "A", 90: "A", 89: "B", 75: "B", 74: "C", 60: "C", 59: "D", 40: "D", 39: "F", 0: "F"}
	for score, grade := range cases {
		assert.Equal(t, grade, GradeFor(score), "score %d", score)
	}
}

func TestBusinessContext_Helpers(t *testing.T) {
	b := BusinessContext{Name: "Charcoal N Chill", City: "Alpharetta", State: "GA", Categories: []string{" ", "hookah bar"}}
	assert.Equal(t, "hookah bar", b.PrimaryCategory())
	assert.Equal(t, "Alpharetta, GA", b.Location())
	assert.False(t, b.HasAmenity("outdoor_seating"))
	assert.True(t, PageTypeFAQ.IsValid())
	assert.False(t, PageType("blog").IsValid())
}
