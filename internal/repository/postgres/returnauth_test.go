package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/returns-service/internal/domain"
	"github.com/utafrali/returns-service/pkg/database"
	apperrors "github.com/utafrali/returns-service/pkg/errors"
)

// --- Test Helpers ---

func newTestReturnRepo(t *testing.T) (*ReturnAuthorizationRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewReturnAuthorizationRepository(mock)
	return repo, mock
}

var raColumns = []string{"id", "number", "order_id", "reason", "amount", "state", "created_at", "updated_at"}

var unitColumns = []string{"return_authorization_id", "inventory_unit_id", "line_item_id", "variant_id", "amount"}

func sampleRA() *domain.ReturnAuthorization {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	return &domain.ReturnAuthorization{
		ID:      "ra-1",
		Number:  "RA1111111111",
		OrderID: "ord-1",
		Reason:  "Defective Item",
		Amount:  3743,
		State:   domain.RAStateAuthorized,
		Units: []domain.ReturnUnit{
			{InventoryUnitID: "u-1", LineItemID: "li-1", VariantID: "var-1", Amount: 1000},
			{InventoryUnitID: "u-2", LineItemID: "li-2", VariantID: "var-2", Amount: 2743},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// --- Create Tests ---

func TestReturnAuthorizationRepository_Create_Success(t *testing.T) {
	repo, mock := newTestReturnRepo(t)

	ra := sampleRA()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO return_authorizations").
		WithArgs(ra.ID, ra.Number, ra.OrderID, ra.Reason, ra.Amount, ra.State, ra.CreatedAt, ra.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for _, u := range ra.Units {
		mock.ExpectExec("INSERT INTO return_authorization_units").
			WithArgs(ra.ID, u.InventoryUnitID, u.LineItemID, u.VariantID, u.Amount).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	err := repo.Create(context.Background(), ra)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnAuthorizationRepository_Create_UnitInsertFails(t *testing.T) {
	repo, mock := newTestReturnRepo(t)

	ra := sampleRA()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO return_authorizations").
		WithArgs(ra.ID, ra.Number, ra.OrderID, ra.Reason, ra.Amount, ra.State, ra.CreatedAt, ra.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO return_authorization_units").
		WithArgs(ra.ID, "u-1", "li-1", "var-1", int64(1000)).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), ra)

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- GetByNumber Tests ---

func TestReturnAuthorizationRepository_GetByNumber_Success(t *testing.T) {
	repo, mock := newTestReturnRepo(t)

	ra := sampleRA()

	mock.ExpectQuery("SELECT (.+) FROM return_authorizations").
		WithArgs(ra.Number).
		WillReturnRows(pgxmock.NewRows(raColumns).
			AddRow(ra.ID, ra.Number, ra.OrderID, ra.Reason, ra.Amount, ra.State, ra.CreatedAt, ra.UpdatedAt))
	mock.ExpectQuery("SELECT (.+) FROM return_authorization_units").
		WithArgs([]string{ra.ID}).
		WillReturnRows(pgxmock.NewRows(unitColumns).
			AddRow(ra.ID, "u-1", "li-1", "var-1", int64(1000)).
			AddRow(ra.ID, "u-2", "li-2", "var-2", int64(2743)))

	got, err := repo.GetByNumber(context.Background(), ra.Number)

	require.NoError(t, err)
	assert.Equal(t, ra.ID, got.ID)
	assert.Equal(t, ra.Amount, got.Amount)
	require.Len(t, got.Units, 2)
	assert.Equal(t, "u-1", got.Units[0].InventoryUnitID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnAuthorizationRepository_GetByNumber_NotFound(t *testing.T) {
	repo, mock := newTestReturnRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM return_authorizations").
		WithArgs("RA0000000000").
		WillReturnRows(pgxmock.NewRows(raColumns))

	_, err := repo.GetByNumber(context.Background(), "RA0000000000")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- ListByOrder Tests ---

func TestReturnAuthorizationRepository_ListByOrder_Success(t *testing.T) {
	repo, mock := newTestReturnRepo(t)

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM return_authorizations").
		WithArgs("ord-1").
		WillReturnRows(pgxmock.NewRows(raColumns).
			AddRow("ra-1", "RA1111111111", "ord-1", "Disliked", int64(914), domain.RAStateAuthorized, now, now).
			AddRow("ra-2", "RA2222222222", "ord-1", "Changed Mind", int64(2743), domain.RAStateCanceled, now, now))
	mock.ExpectQuery("SELECT (.+) FROM return_authorization_units").
		WithArgs([]string{"ra-1", "ra-2"}).
		WillReturnRows(pgxmock.NewRows(unitColumns).
			AddRow("ra-1", "u-1", "li-1", "var-1", int64(914)).
			AddRow("ra-2", "u-2", "li-2", "var-2", int64(2743)))

	ras, err := repo.ListByOrder(context.Background(), "ord-1")

	require.NoError(t, err)
	require.Len(t, ras, 2)
	require.Len(t, ras[0].Units, 1)
	assert.Equal(t, "u-1", ras[0].Units[0].InventoryUnitID)
	require.Len(t, ras[1].Units, 1)
	assert.Equal(t, "u-2", ras[1].Units[0].InventoryUnitID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnAuthorizationRepository_ListByOrder_Empty(t *testing.T) {
	repo, mock := newTestReturnRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM return_authorizations").
		WithArgs("ord-9").
		WillReturnRows(pgxmock.NewRows(raColumns))

	ras, err := repo.ListByOrder(context.Background(), "ord-9")

	require.NoError(t, err)
	assert.Empty(t, ras)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- ListAuthorizedAndExpired Tests ---

func TestReturnAuthorizationRepository_ListAuthorizedAndExpired_Success(t *testing.T) {
	repo, mock := newTestReturnRepo(t)

	cutoff := time.Date(2024, 5, 16, 12, 0, 0, 0, time.UTC)
	created := cutoff.Add(-10 * 24 * time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM return_authorizations").
		WithArgs(cutoff, 20, 0).
		WillReturnRows(pgxmock.NewRows(append(raColumns, "total_count")).
			AddRow("ra-1", "RA1111111111", "ord-1", "Disliked", int64(914), domain.RAStateAuthorized, created, created, 42))
	mock.ExpectQuery("SELECT (.+) FROM return_authorization_units").
		WithArgs([]string{"ra-1"}).
		WillReturnRows(pgxmock.NewRows(unitColumns).
			AddRow("ra-1", "u-1", "li-1", "var-1", int64(914)))

	ras, total, err := repo.ListAuthorizedAndExpired(context.Background(), cutoff, 20, 0)

	require.NoError(t, err)
	assert.Equal(t, 42, total)
	require.Len(t, ras, 1)
	assert.Equal(t, domain.RAStateAuthorized, ras[0].State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnAuthorizationRepository_ListAuthorizedAndExpired_DefaultsLimit(t *testing.T) {
	repo, mock := newTestReturnRepo(t)

	cutoff := time.Date(2024, 5, 16, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM return_authorizations").
		WithArgs(cutoff, 20, 0).
		WillReturnRows(pgxmock.NewRows(append(raColumns, "total_count")))

	ras, total, err := repo.ListAuthorizedAndExpired(context.Background(), cutoff, 0, -5)

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, ras)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- UpdateState Tests ---

func TestReturnAuthorizationRepository_UpdateState_Success(t *testing.T) {
	repo, mock := newTestReturnRepo(t)

	mock.ExpectExec("UPDATE return_authorizations").
		WithArgs(domain.RAStateReceived, pgxmock.AnyArg(), "ra-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateState(context.Background(), "ra-1", domain.RAStateReceived)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnAuthorizationRepository_UpdateState_NotFound(t *testing.T) {
	repo, mock := newTestReturnRepo(t)

	mock.ExpectExec("UPDATE return_authorizations").
		WithArgs(domain.RAStateCanceled, pgxmock.AnyArg(), "ra-9").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateState(context.Background(), "ra-9", domain.RAStateCanceled)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
