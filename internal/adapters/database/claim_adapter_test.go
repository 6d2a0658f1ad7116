package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/visibilityscore/internal/adapters/database"
	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/internal/domain/repositories"
	apperrors "github.com/zatekoja/visibilityscore/pkg/errors"
)

var claimRowColumns = []string{
	"id", "query_text", "engine", "claim_text", "expected_truth",
	"correction_status", "verifying_since", "follow_up_checked_at", "resolved_at",
}

func setupClaimAdapter(t *testing.T) (repositories.ClaimRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewClaimAdapter(db), mock
}

func TestClaimAdapter_ListDueForVerification(t *testing.T) {
	adapter, mock := setupClaimAdapter(t)
	cutoff := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	since := cutoff.Add(-48 * time.Hour)
	checked := cutoff.Add(-24 * time.Hour)

	rows := sqlmock.NewRows(claimRowColumns).
		AddRow("c1", "is charcoal n chill open late", "chatgpt", "closes at 9pm", "open until 2am", "verifying", since, nil, nil).
		AddRow("c2", "does charcoal n chill serve food", "gemini", "does not serve food", nil, "verifying", since, checked, nil)

	mock.ExpectQuery(`SELECT "id", "query_text", "engine", "claim_text", "expected_truth", "correction_status", "verifying_since", "follow_up_checked_at", "resolved_at" FROM "hallucination_claims" WHERE .*"correction_status" = \$1.*"verifying_since" <= \$2.*"follow_up_checked_at" IS NULL.*ORDER BY "verifying_since" ASC LIMIT`).
		WillReturnRows(rows)

	claims, err := adapter.ListDueForVerification(context.Background(), cutoff, 50)

	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, entities.EngineChatGPT, claims[0].Engine)
	assert.Equal(t, entities.CorrectionVerifying, claims[0].CorrectionStatus)
	assert.Equal(t, "open until 2am", claims[0].ExpectedTruth)
	require.NotNil(t, claims[0].VerifyingSince)
	assert.True(t, since.Equal(*claims[0].VerifyingSince))
	assert.Nil(t, claims[0].FollowUpCheckedAt)
	assert.Empty(t, claims[1].ExpectedTruth)
	require.NotNil(t, claims[1].FollowUpCheckedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimAdapter_ListDueForVerification_QueryError(t *testing.T) {
	adapter, mock := setupClaimAdapter(t)
	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("connection reset"))

	_, err := adapter.ListDueForVerification(context.Background(), time.Now(), 10)

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimAdapter_MarkChecked(t *testing.T) {
	adapter, mock := setupClaimAdapter(t)
	at := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE "hallucination_claims" SET "follow_up_checked_at"=\$1 WHERE`).
		WithArgs(at, "verifying", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.MarkChecked(context.Background(), "c1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimAdapter_MarkChecked_NotVerifying(t *testing.T) {
	adapter, mock := setupClaimAdapter(t)

	mock.ExpectExec(`UPDATE "hallucination_claims"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := adapter.MarkChecked(context.Background(), "c9", time.Now())

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimAdapter_SaveTransition(t *testing.T) {
	adapter, mock := setupClaimAdapter(t)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE "hallucination_claims" SET "correction_status"=\$1,"follow_up_checked_at"=\$2,"resolved_at"=\$3 WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := adapter.SaveTransition(context.Background(), &entities.HallucinationClaim{
		ID:                "c1",
		CorrectionStatus:  entities.CorrectionFixed,
		FollowUpCheckedAt: &now,
		ResolvedAt:        &now,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimAdapter_SaveTransition_RejectsIllegalStatus(t *testing.T) {
	adapter, mock := setupClaimAdapter(t)

	for _, status := range []entities.CorrectionStatus{entities.CorrectionOpen, entities.CorrectionVerifying} {
		err := adapter.SaveTransition(context.Background(), &entities.HallucinationClaim{ID: "c1", CorrectionStatus: status})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), string(status))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
