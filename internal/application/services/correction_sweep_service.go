package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/internal/domain/providers"
	"github.com/zatekoja/visibilityscore/internal/domain/repositories"
	"github.com/zatekoja/visibilityscore/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/visibilityscore/pkg/errors"
)

const DefaultSweepBatchSize = 50

type SweepSummary struct {
	Processed   int `json:"processed"`
	Fixed       int `json:"fixed"`
	Recurring   int `json:"recurring"`
	Failed      int `json:"failed"`
	CoolingDown int `json:"cooling_down"`
}

// CorrectionSweepService re-verifies every claim whose cooldown has elapsed.
type CorrectionSweepService struct {
	repo        repositories.ClaimRepository
	verifier    *CorrectionVerificationService
	clock       providers.Clock
	batchSize   int
	workerCount int
}

func NewCorrectionSweepService(
	repo repositories.ClaimRepository,
	verifier *CorrectionVerificationService,
	clock providers.Clock,
	batchSize int,
	workers int,
) *CorrectionSweepService {
	if clock == nil {
		clock = providers.SystemClock{}
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	if workers <= 0 {
		workers = 1
	}
	return &CorrectionSweepService{
		repo:        repo,
		verifier:    verifier,
		clock:       clock,
		batchSize:   batchSize,
		workerCount: workers,
	}
}

type sweepOutcome int

const (
	sweepFailed sweepOutcome = iota
	sweepFixed
	sweepRecurring
	sweepCoolingDown
)

// Run processes one batch of due claims. A failing claim never stops the
// batch; only a failed selection query returns an error.
func (s *CorrectionSweepService) Run(ctx context.Context) (*SweepSummary, error) {
	logger := observability.ComponentLogger(ctx, "correction_sweep")
	cutoff := s.clock.Now().Add(-s.verifier.Cooldown())

	claims, err := s.repo.ListDueForVerification(ctx, cutoff, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims due for verification: %w", err)
	}
	logger.Info().Int("claims", len(claims)).Time("cutoff", cutoff).Msg("starting correction sweep")

	var processed, fixed, recurring, failed, coolingDown int64
	claimChan := make(chan *entities.HallucinationClaim, s.batchSize)
	var wg sync.WaitGroup

	for i := 0; i < s.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for claim := range claimChan {
				outcome := s.processClaim(ctx, claim)
				atomic.AddInt64(&processed, 1)
				switch outcome {
				case sweepFixed:
					atomic.AddInt64(&fixed, 1)
				case sweepRecurring:
					atomic.AddInt64(&recurring, 1)
				case sweepCoolingDown:
					atomic.AddInt64(&coolingDown, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	var runErr error
feed:
	for _, claim := range claims {
		select {
		case claimChan <- claim:
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		}
	}
	close(claimChan)
	wg.Wait()

	summary := &SweepSummary{
		Processed:   int(processed),
		Fixed:       int(fixed),
		Recurring:   int(recurring),
		Failed:      int(failed),
		CoolingDown: int(coolingDown),
	}
	logger.Info().
		Int("processed", summary.Processed).
		Int("fixed", summary.Fixed).
		Int("recurring", summary.Recurring).
		Int("failed", summary.Failed).
		Int("cooling_down", summary.CoolingDown).
		Msg("correction sweep finished")

	if runErr != nil {
		return summary, runErr
	}
	return summary, nil
}

func (s *CorrectionSweepService) processClaim(ctx context.Context, claim *entities.HallucinationClaim) sweepOutcome {
	logger := observability.ComponentLogger(ctx, "correction_sweep").With().Str("claim_id", claim.ID).Logger()

	check, err := s.verifier.CheckCorrectionStatus(ctx, *claim)
	if err != nil {
		logger.Warn().Err(err).Msg("correction check failed, marking claim as checked")
		// The status stays verifying; only the check time advances.
		if markErr := s.repo.MarkChecked(ctx, claim.ID, s.clock.Now()); markErr != nil {
			logger.Error().Err(markErr).Msg("failed to mark claim as checked")
		}
		return sweepFailed
	}

	updated, err := s.verifier.ApplyCheck(*claim, *check, check.CheckedAt)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeCooldown) {
			return sweepCoolingDown
		}
		logger.Error().Err(err).Msg("failed to apply correction check")
		return sweepFailed
	}

	if err := s.repo.SaveTransition(ctx, &updated); err != nil {
		logger.Error().Err(err).Str("status", string(updated.CorrectionStatus)).Msg("failed to save claim transition")
		return sweepFailed
	}

	if updated.CorrectionStatus == entities.CorrectionRecurring {
		return sweepRecurring
	}
	return sweepFixed
}
