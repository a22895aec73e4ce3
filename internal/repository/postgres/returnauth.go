package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/returns-service/internal/domain"
	"github.com/utafrali/returns-service/pkg/database"
	apperrors "github.com/utafrali/returns-service/pkg/errors"
)

// ReturnAuthorizationRepository implements
// repository.ReturnAuthorizationRepository using PostgreSQL.
type ReturnAuthorizationRepository struct {
	pool database.DBTX
}

// NewReturnAuthorizationRepository creates a new PostgreSQL-backed return
// authorization repository.
func NewReturnAuthorizationRepository(pool database.DBTX) *ReturnAuthorizationRepository {
	return &ReturnAuthorizationRepository{pool: pool}
}

// Create inserts a return authorization and its covered units atomically
// within a transaction.
func (r *ReturnAuthorizationRepository) Create(ctx context.Context, ra *domain.ReturnAuthorization) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateReturnAuthorization", "INSERT INTO return_authorizations")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	raQuery := `
		INSERT INTO return_authorizations (id, number, order_id, reason, amount, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = tx.Exec(ctx, raQuery,
		ra.ID,
		ra.Number,
		ra.OrderID,
		ra.Reason,
		ra.Amount,
		ra.State,
		ra.CreatedAt,
		ra.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert return authorization: %w", err)
	}

	unitQuery := `
		INSERT INTO return_authorization_units (return_authorization_id, inventory_unit_id, line_item_id, variant_id, amount)
		VALUES ($1, $2, $3, $4, $5)`

	for _, u := range ra.Units {
		_, err = tx.Exec(ctx, unitQuery,
			ra.ID,
			u.InventoryUnitID,
			u.LineItemID,
			u.VariantID,
			u.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert return authorization unit: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByNumber retrieves a return authorization by its RMA number,
// including its covered units.
func (r *ReturnAuthorizationRepository) GetByNumber(ctx context.Context, number string) (*domain.ReturnAuthorization, error) {
	query := `
		SELECT id, number, order_id, reason, amount, state, created_at, updated_at
		FROM return_authorizations
		WHERE number = $1`

	var ra domain.ReturnAuthorization
	err := r.pool.QueryRow(ctx, query, number).Scan(
		&ra.ID,
		&ra.Number,
		&ra.OrderID,
		&ra.Reason,
		&ra.Amount,
		&ra.State,
		&ra.CreatedAt,
		&ra.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan return authorization: %w", err)
	}

	units, err := r.loadUnits(ctx, []string{ra.ID})
	if err != nil {
		return nil, err
	}
	ra.Units = units[ra.ID]

	return &ra, nil
}

// ListByOrder returns all return authorizations for the given order,
// oldest first, including their covered units.
func (r *ReturnAuthorizationRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.ReturnAuthorization, error) {
	query := `
		SELECT id, number, order_id, reason, amount, state, created_at, updated_at
		FROM return_authorizations
		WHERE order_id = $1
		ORDER BY created_at`

	return r.list(ctx, query, orderID)
}

// ListAuthorizedAndExpired returns authorizations in exactly the
// authorized state created strictly before the cutoff, with the total
// match count. Same-age records in other states never match.
func (r *ReturnAuthorizationRepository) ListAuthorizedAndExpired(ctx context.Context, cutoff time.Time, limit, offset int) ([]domain.ReturnAuthorization, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	// Use count(*) OVER() for total count in a single query.
	query := `
		SELECT id, number, order_id, reason, amount, state, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM return_authorizations
		WHERE state = 'authorized' AND created_at < $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, cutoff, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query expired return authorizations: %w", err)
	}
	defer rows.Close()

	var totalCount int
	ras := make([]domain.ReturnAuthorization, 0)
	for rows.Next() {
		var ra domain.ReturnAuthorization
		if err := rows.Scan(
			&ra.ID,
			&ra.Number,
			&ra.OrderID,
			&ra.Reason,
			&ra.Amount,
			&ra.State,
			&ra.CreatedAt,
			&ra.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan expired return authorization row: %w", err)
		}
		ras = append(ras, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate expired return authorization rows: %w", err)
	}

	if err := r.attachUnits(ctx, ras); err != nil {
		return nil, 0, err
	}

	return ras, totalCount, nil
}

// UpdateState changes the state of a return authorization.
func (r *ReturnAuthorizationRepository) UpdateState(ctx context.Context, id string, state string) (err error) {
	query := `
		UPDATE return_authorizations
		SET state = $1, updated_at = $2
		WHERE id = $3`

	ctx, end := database.TraceQuery(ctx, "UpdateReturnAuthorizationState", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, state, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update return authorization state: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("return authorization", id)
	}
	return nil
}

func (r *ReturnAuthorizationRepository) list(ctx context.Context, query string, arg any) ([]domain.ReturnAuthorization, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query return authorizations: %w", err)
	}
	defer rows.Close()

	ras := make([]domain.ReturnAuthorization, 0)
	for rows.Next() {
		var ra domain.ReturnAuthorization
		if err := rows.Scan(
			&ra.ID,
			&ra.Number,
			&ra.OrderID,
			&ra.Reason,
			&ra.Amount,
			&ra.State,
			&ra.CreatedAt,
			&ra.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan return authorization row: %w", err)
		}
		ras = append(ras, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate return authorization rows: %w", err)
	}

	if err := r.attachUnits(ctx, ras); err != nil {
		return nil, err
	}

	return ras, nil
}

// attachUnits batch-loads the covered units for the given authorizations
// to avoid per-row queries.
func (r *ReturnAuthorizationRepository) attachUnits(ctx context.Context, ras []domain.ReturnAuthorization) error {
	if len(ras) == 0 {
		return nil
	}

	ids := make([]string, len(ras))
	for i := range ras {
		ids[i] = ras[i].ID
	}
	unitsByRA, err := r.loadUnits(ctx, ids)
	if err != nil {
		return err
	}
	for i := range ras {
		ras[i].Units = unitsByRA[ras[i].ID]
	}
	return nil
}

// loadUnits retrieves the covered units for the given authorization IDs,
// grouped by authorization.
func (r *ReturnAuthorizationRepository) loadUnits(ctx context.Context, raIDs []string) (map[string][]domain.ReturnUnit, error) {
	query := `
		SELECT return_authorization_id, inventory_unit_id, line_item_id, variant_id, amount
		FROM return_authorization_units
		WHERE return_authorization_id = ANY($1)
		ORDER BY inventory_unit_id`

	rows, err := r.pool.Query(ctx, query, raIDs)
	if err != nil {
		return nil, fmt.Errorf("query return authorization units: %w", err)
	}
	defer rows.Close()

	units := make(map[string][]domain.ReturnUnit, len(raIDs))
	for rows.Next() {
		var (
			raID string
			u    domain.ReturnUnit
		)
		if err := rows.Scan(&raID, &u.InventoryUnitID, &u.LineItemID, &u.VariantID, &u.Amount); err != nil {
			return nil, fmt.Errorf("scan return authorization unit: %w", err)
		}
		units[raID] = append(units[raID], u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate return authorization unit rows: %w", err)
	}

	return units, nil
}
