package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/visibilityscore/internal/domain/entities"
)

// ClaimRepository defines the claim operations the correction sweep needs
type ClaimRepository interface {
	// ListDueForVerification returns verifying claims whose verifying_since is at or before cutoff
	ListDueForVerification(ctx context.Context, cutoff time.Time, limit int) ([]*entities.HallucinationClaim, error)

	// MarkChecked advances follow_up_checked_at without touching correction_status
	MarkChecked(ctx context.Context, id string, checkedAt time.Time) error

	// SaveTransition persists a status transition together with its timestamps
	SaveTransition(ctx context.Context, claim *entities.HallucinationClaim) error
}
