package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/internal/domain/providers"
	"github.com/zatekoja/visibilityscore/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/visibilityscore/pkg/errors"
	"github.com/zatekoja/visibilityscore/pkg/textmatch"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultCorrectionCooldown is how long a claim stays in verifying before it
// may be re-probed.
const DefaultCorrectionCooldown = 14 * 24 * time.Hour

const (
	claimCoverageThreshold = 0.8
	claimMinContentTokens  = 3
)

// EngineAsker sends one query to one engine.
type EngineAsker interface {
	Ask(ctx context.Context, engine entities.EngineID, query string) (*EngineAnswer, error)
}

// CorrectionVerificationService re-probes a false claim and reports whether
// the engine still repeats it.
type CorrectionVerificationService struct {
	asker    EngineAsker
	clock    providers.Clock
	cooldown time.Duration
}

func NewCorrectionVerificationService(asker EngineAsker, clock providers.Clock, cooldown time.Duration) *CorrectionVerificationService {
	if clock == nil {
		clock = providers.SystemClock{}
	}
	if cooldown <= 0 {
		cooldown = DefaultCorrectionCooldown
	}
	return &CorrectionVerificationService{
		asker:    asker,
		clock:    clock,
		cooldown: cooldown,
	}
}

// Cooldown returns the configured verification cooldown.
func (s *CorrectionVerificationService) Cooldown() time.Duration {
	return s.cooldown
}

// CheckCorrectionStatus re-issues the claim's query through the engine that
// produced it. The cooldown runs from the later of VerifyingSince and the last
// follow-up check; a claim inside it is not probed and gets the cooling_down
// outcome. A failed re-probe returns a PROBE error.
func (s *CorrectionVerificationService) CheckCorrectionStatus(ctx context.Context, claim entities.HallucinationClaim) (*entities.CorrectionCheck, error) {
	if err := validateClaim(claim); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	eligibleAt := cooldownStart(claim).Add(s.cooldown)
	if now.Before(eligibleAt) {
		observability.RecordCorrectionCheck(ctx, string(claim.Engine), string(entities.OutcomeCoolingDown))
		return &entities.CorrectionCheck{
			ClaimID:    claim.ID,
			Outcome:    entities.OutcomeCoolingDown,
			CheckedAt:  now,
			EligibleAt: &eligibleAt,
		}, nil
	}

	ctx, span := observability.StartSpan(ctx, "correction_verification.check")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("claim.id", claim.ID),
		attribute.String("claim.engine", string(claim.Engine)),
	)

	answer, err := s.asker.Ask(ctx, claim.Engine, claim.QueryText)
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordCorrectionCheck(ctx, string(claim.Engine), "probe_failed")
		return nil, apperrors.NewProbeError(fmt.Sprintf("re-probe of claim %s failed", claim.ID), err)
	}

	still := claimStillPresent(claim.ClaimText, answer.Text)
	outcome := entities.OutcomeFixed
	if still {
		outcome = entities.OutcomeStillHallucinating
	}
	observability.SetSpanAttributes(span, attribute.Bool("claim.still_hallucinating", still))
	observability.RecordCorrectionCheck(ctx, string(claim.Engine), string(outcome))

	return &entities.CorrectionCheck{
		ClaimID:            claim.ID,
		Outcome:            outcome,
		StillHallucinating: still,
		ResponseText:       answer.Text,
		CheckedAt:          now,
	}, nil
}

func cooldownStart(claim entities.HallucinationClaim) time.Time {
	start := *claim.VerifyingSince
	if claim.FollowUpCheckedAt != nil && claim.FollowUpCheckedAt.After(start) {
		start = *claim.FollowUpCheckedAt
	}
	return start
}

// ApplyCheck returns the claim after the check's transition. A cooling_down
// check leaves the claim unchanged and returns a COOLDOWN error.
func (s *CorrectionVerificationService) ApplyCheck(claim entities.HallucinationClaim, check entities.CorrectionCheck, now time.Time) (entities.HallucinationClaim, error) {
	if check.Outcome == entities.OutcomeCoolingDown {
		return claim, apperrors.NewCooldownError(fmt.Sprintf("claim %s is cooling down", claim.ID))
	}

	next := entities.CorrectionFixed
	if check.StillHallucinating {
		next = entities.CorrectionRecurring
	}
	status, err := claim.CorrectionStatus.Transition(next)
	if err != nil {
		return claim, apperrors.NewValidationError(err.Error())
	}

	checkedAt := now
	claim.CorrectionStatus = status
	claim.FollowUpCheckedAt = &checkedAt
	if status == entities.CorrectionFixed {
		resolvedAt := now
		claim.ResolvedAt = &resolvedAt
	}
	return claim, nil
}

func validateClaim(claim entities.HallucinationClaim) error {
	if strings.TrimSpace(claim.QueryText) == "" {
		return apperrors.NewValidationError("claim query is required")
	}
	if strings.TrimSpace(claim.ClaimText) == "" {
		return apperrors.NewValidationError("claim text is required")
	}
	if _, ok := StrategyFor(claim.Engine); !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported engine %q", claim.Engine))
	}
	if claim.CorrectionStatus != entities.CorrectionVerifying {
		return apperrors.NewValidationError(fmt.Sprintf("claim must be verifying, got %q", claim.CorrectionStatus))
	}
	if claim.VerifyingSince == nil {
		return apperrors.NewValidationError("claim has no verifying_since timestamp")
	}
	return nil
}

// claimStillPresent reports whether response still carries the claim, either
// verbatim after normalization or through most of its content words.
func claimStillPresent(claimText, response string) bool {
	if textmatch.MentionedIn(claimText, response) {
		return true
	}
	coverage, tokens := textmatch.Coverage(claimText, response)
	return tokens >= claimMinContentTokens && coverage >= claimCoverageThreshold
}
