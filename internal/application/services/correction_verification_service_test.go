package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	apperrors "github.com/zatekoja/visibilityscore/pkg/errors"
)

const day = 24 * time.Hour

func verifyingClaim(id, query, claimText string, age time.Duration) entities.HallucinationClaim {
	since := testNow.Add(-age)
	return entities.HallucinationClaim{
		ID:               id,
		QueryText:        query,
		Engine:           entities.EngineChatGPT,
		ClaimText:        claimText,
		ExpectedTruth:    "Open until 2am every night",
		CorrectionStatus: entities.CorrectionVerifying,
		VerifyingSince:   &since,
	}
}

func newVerifier(asker EngineAsker) *CorrectionVerificationService {
	return NewCorrectionVerificationService(asker, fixedClock{now: testNow}, 0)
}

func TestCheckCorrectionStatus_Containment(t *testing.T) {
	tests := []struct {
		name      string
		claimText string
		response  string
		still     bool
	}{
		{
			name:      "verbatim repeat",
			claimText: "Charcoal N Chill closes at 10pm",
			response:  "Charcoal N Chill closes at 10pm on weekdays.",
			still:     true,
		},
		{
			name:      "punctuation and filler variants",
			claimText: "Charcoal & Chill closes at 10pm",
			response:  "Heads up: charcoal and chill CLOSES AT 10PM.",
			still:     true,
		},
		{
			name:      "paraphrase keeps the content words",
			claimText: "does not serve alcohol",
			response:  "Unfortunately, it does not currently serve any alcohol.",
			still:     true,
		},
		{
			name:      "corrected answer",
			claimText: "Charcoal N Chill closes at 10pm",
			response:  "Charcoal N Chill is open until 2am.",
			still:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := new(MockEngineAsker)
			asker.On("Ask", mock.Anything, entities.EngineChatGPT, "when does charcoal n chill close").
				Return(&EngineAnswer{Text: tt.response}, nil)
			claim := verifyingClaim("c1", "when does charcoal n chill close", tt.claimText, 15*day)

			check, err := newVerifier(asker).CheckCorrectionStatus(context.Background(), claim)

			require.NoError(t, err)
			assert.Equal(t, tt.still, check.StillHallucinating)
			if tt.still {
				assert.Equal(t, entities.OutcomeStillHallucinating, check.Outcome)
			} else {
				assert.Equal(t, entities.OutcomeFixed, check.Outcome)
			}
			assert.Equal(t, "c1", check.ClaimID)
			assert.Equal(t, testNow, check.CheckedAt)
			assert.Equal(t, tt.response, check.ResponseText)
			asker.AssertExpectations(t)
		})
	}
}

func TestCheckCorrectionStatus_Cooldown(t *testing.T) {
	asker := new(MockEngineAsker)
	claim := verifyingClaim("c1", "when does charcoal n chill close", "closes at 10pm", 13*day)

	check, err := newVerifier(asker).CheckCorrectionStatus(context.Background(), claim)

	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeCoolingDown, check.Outcome)
	assert.False(t, check.StillHallucinating)
	require.NotNil(t, check.EligibleAt)
	assert.Equal(t, claim.VerifyingSince.Add(14*day), *check.EligibleAt)
	asker.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckCorrectionStatus_EligibleExactlyAtCooldown(t *testing.T) {
	asker := new(MockEngineAsker)
	asker.On("Ask", mock.Anything, entities.EngineChatGPT, mock.Anything).Return(&EngineAnswer{Text: "Open until 2am."}, nil)
	claim := verifyingClaim("c1", "when does charcoal n chill close", "closes at 10pm", 14*day)

	check, err := newVerifier(asker).CheckCorrectionStatus(context.Background(), claim)

	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeFixed, check.Outcome)
}

func TestCheckCorrectionStatus_ProbeFailure(t *testing.T) {
	asker := new(MockEngineAsker)
	asker.On("Ask", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.NewEngineError("chatgpt", errors.New("status 429")))
	claim := verifyingClaim("c1", "when does charcoal n chill close", "closes at 10pm", 20*day)

	check, err := newVerifier(asker).CheckCorrectionStatus(context.Background(), claim)

	assert.Nil(t, check)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProbe))
}

func TestCheckCorrectionStatus_ValidationErrors(t *testing.T) {
	base := verifyingClaim("c1", "when does charcoal n chill close", "closes at 10pm", 20*day)

	tests := []struct {
		name   string
		mutate func(c *entities.HallucinationClaim)
	}{
		{"missing query", func(c *entities.HallucinationClaim) { c.QueryText = " " }},
		{"missing claim text", func(c *entities.HallucinationClaim) { c.ClaimText = "" }},
		{"unknown engine", func(c *entities.HallucinationClaim) { c.Engine = "bard" }},
		{"not verifying", func(c *entities.HallucinationClaim) { c.CorrectionStatus = entities.CorrectionOpen }},
		{"already fixed", func(c *entities.HallucinationClaim) { c.CorrectionStatus = entities.CorrectionFixed }},
		{"no verifying timestamp", func(c *entities.HallucinationClaim) { c.VerifyingSince = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := new(MockEngineAsker)
			claim := base
			tt.mutate(&claim)

			_, err := newVerifier(asker).CheckCorrectionStatus(context.Background(), claim)

			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
			asker.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestApplyCheck(t *testing.T) {
	svc := newVerifier(new(MockEngineAsker))
	claim := verifyingClaim("c1", "q", "closes at 10pm", 20*day)

	recurring, err := svc.ApplyCheck(claim, entities.CorrectionCheck{Outcome: entities.OutcomeStillHallucinating, StillHallucinating: true}, testNow)
	require.NoError(t, err)
	assert.Equal(t, entities.CorrectionRecurring, recurring.CorrectionStatus)
	require.NotNil(t, recurring.FollowUpCheckedAt)
	assert.Equal(t, testNow, *recurring.FollowUpCheckedAt)
	assert.Nil(t, recurring.ResolvedAt)

	fixed, err := svc.ApplyCheck(claim, entities.CorrectionCheck{Outcome: entities.OutcomeFixed}, testNow)
	require.NoError(t, err)
	assert.Equal(t, entities.CorrectionFixed, fixed.CorrectionStatus)
	require.NotNil(t, fixed.ResolvedAt)
	assert.Equal(t, testNow, *fixed.ResolvedAt)

	unchanged, err := svc.ApplyCheck(claim, entities.CorrectionCheck{Outcome: entities.OutcomeCoolingDown}, testNow)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCooldown))
	assert.Equal(t, claim, unchanged)

	_, err = svc.ApplyCheck(fixed, entities.CorrectionCheck{Outcome: entities.OutcomeStillHallucinating, StillHallucinating: true}, testNow)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	assert.Equal(t, entities.CorrectionVerifying, claim.CorrectionStatus)
}

func TestCheckCorrectionStatus_CooldownRestartsAfterFollowUpCheck(t *testing.T) {
	claim := verifyingClaim("c1", "late night hookah alpharetta", "Charcoal N Chill closes at 10pm", 30*day)
	lastChecked := testNow.Add(-time.Hour)
	claim.FollowUpCheckedAt = &lastChecked

	asker := new(MockEngineAsker)
	check, err := newVerifier(asker).CheckCorrectionStatus(context.Background(), claim)

	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeCoolingDown, check.Outcome)
	require.NotNil(t, check.EligibleAt)
	assert.Equal(t, lastChecked.Add(DefaultCorrectionCooldown), *check.EligibleAt)
	asker.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckCorrectionStatus_StaleFollowUpCheckDoesNotBlock(t *testing.T) {
	claim := verifyingClaim("c1", "late night hookah alpharetta", "Charcoal N Chill closes at 10pm", 15*day)
	olderCheck := testNow.Add(-40 * day)
	claim.FollowUpCheckedAt = &olderCheck

	asker := new(MockEngineAsker)
	asker.On("Ask", mock.Anything, entities.EngineChatGPT, "late night hookah alpharetta").
		Return(&EngineAnswer{Text: "Charcoal N Chill is open until 2am every night."}, nil)

	check, err := newVerifier(asker).CheckCorrectionStatus(context.Background(), claim)

	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeFixed, check.Outcome)
	asker.AssertExpectations(t)
}
