package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/internal/domain/repositories"
	apperrors "github.com/zatekoja/visibilityscore/pkg/errors"
)

const claimsTable = "hallucination_claims"

var claimColumns = []interface{}{
	"id", "query_text", "engine", "claim_text", "expected_truth",
	"correction_status", "verifying_since", "follow_up_checked_at", "resolved_at",
}

// ClaimAdapter implements ClaimRepository over the hallucination_claims table.
// Only the correction columns are ever written.
type ClaimAdapter struct {
	conn *sql.DB
	db   *goqu.Database
}

// NewClaimAdapter creates a new claim adapter
func NewClaimAdapter(conn *sql.DB) repositories.ClaimRepository {
	return &ClaimAdapter{
		conn: conn,
		db:   goqu.New("postgres", conn),
	}
}

// ListDueForVerification selects verifying claims past the cooldown cutoff that
// have not been checked since the cutoff either.
func (a *ClaimAdapter) ListDueForVerification(ctx context.Context, cutoff time.Time, limit int) ([]*entities.HallucinationClaim, error) {
	ds := a.db.Select(claimColumns...).
		From(claimsTable).
		Where(
			goqu.C("correction_status").Eq(string(entities.CorrectionVerifying)),
			goqu.C("verifying_since").Lte(cutoff),
			goqu.Or(
				goqu.C("follow_up_checked_at").IsNull(),
				goqu.C("follow_up_checked_at").Lte(cutoff),
			),
		).
		Order(goqu.I("verifying_since").Asc()).
		Prepared(true)

	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build claim selection query", err)
	}

	rows, err := a.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list claims due for verification", err)
	}
	defer rows.Close()

	var claims []*entities.HallucinationClaim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan claim", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate claims", err)
	}

	return claims, nil
}

// MarkChecked advances follow_up_checked_at and leaves correction_status alone
func (a *ClaimAdapter) MarkChecked(ctx context.Context, id string, checkedAt time.Time) error {
	query, args, err := a.db.Update(claimsTable).
		Set(goqu.Record{"follow_up_checked_at": checkedAt}).
		Where(goqu.Ex{
			"id":                id,
			"correction_status": string(entities.CorrectionVerifying),
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build mark-checked query", err)
	}

	return a.execOne(ctx, id, query, args)
}

// SaveTransition writes a verifying -> fixed|recurring transition. The update
// only applies while the row is still verifying.
func (a *ClaimAdapter) SaveTransition(ctx context.Context, claim *entities.HallucinationClaim) error {
	if claim == nil {
		return apperrors.NewValidationError("claim is required")
	}
	if !entities.CorrectionVerifying.CanTransition(claim.CorrectionStatus) {
		return apperrors.NewValidationError(fmt.Sprintf("cannot persist transition to %s", claim.CorrectionStatus))
	}

	record := goqu.Record{
		"correction_status":    string(claim.CorrectionStatus),
		"follow_up_checked_at": nullTime(claim.FollowUpCheckedAt),
		"resolved_at":          nullTime(claim.ResolvedAt),
	}

	query, args, err := a.db.Update(claimsTable).
		Set(record).
		Where(goqu.Ex{
			"id":                claim.ID,
			"correction_status": string(entities.CorrectionVerifying),
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build transition query", err)
	}

	return a.execOne(ctx, claim.ID, query, args)
}

func (a *ClaimAdapter) execOne(ctx context.Context, id, query string, args []interface{}) error {
	result, err := a.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update claim", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("verifying claim with id %s not found", id))
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClaim(row rowScanner) (*entities.HallucinationClaim, error) {
	var (
		claim                                     entities.HallucinationClaim
		engine, status                            string
		expected                                  sql.NullString
		verifyingSince, followUpChecked, resolved sql.NullTime
	)

	if err := row.Scan(
		&claim.ID,
		&claim.QueryText,
		&engine,
		&claim.ClaimText,
		&expected,
		&status,
		&verifyingSince,
		&followUpChecked,
		&resolved,
	); err != nil {
		return nil, err
	}

	claim.Engine = entities.EngineID(engine)
	claim.CorrectionStatus = entities.CorrectionStatus(status)
	claim.ExpectedTruth = expected.String
	claim.VerifyingSince = timePtr(verifyingSince)
	claim.FollowUpCheckedAt = timePtr(followUpChecked)
	claim.ResolvedAt = timePtr(resolved)

	return &claim, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
