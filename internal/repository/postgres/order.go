package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/returns-service/internal/domain"
	"github.com/utafrali/returns-service/pkg/database"
	apperrors "github.com/utafrali/returns-service/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
// It reads the order schema owned by the order service.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order reader.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByNumber loads the full order aggregate by its order number.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.getBy(ctx, "number = $1", number)
}

// GetByID loads the full order aggregate by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *OrderRepository) getBy(ctx context.Context, where string, arg any) (_ *domain.Order, err error) {
	query := fmt.Sprintf(`
		SELECT id, number, user_id, email, token, currency, completed_at
		FROM orders
		WHERE %s`, where)

	ctx, end := database.TraceQuery(ctx, "GetOrder", query)
	defer func() { end(err) }()

	var o domain.Order
	err = r.pool.QueryRow(ctx, query, arg).Scan(
		&o.ID,
		&o.Number,
		&o.UserID,
		&o.Email,
		&o.Token,
		&o.Currency,
		&o.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := r.loadLineItems(ctx, &o); err != nil {
		return nil, err
	}
	if err := r.loadUnits(ctx, &o); err != nil {
		return nil, err
	}
	if err := r.loadAdjustments(ctx, &o); err != nil {
		return nil, err
	}

	return &o, nil
}

// loadLineItems retrieves the order's line items in a stable order. The
// ordering matters: proration distributes remainder cents to the last unit.
func (r *OrderRepository) loadLineItems(ctx context.Context, o *domain.Order) error {
	query := `
		SELECT id, order_id, variant_id, name, sku, price, quantity
		FROM line_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, o.ID)
	if err != nil {
		return fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(
			&li.ID,
			&li.OrderID,
			&li.VariantID,
			&li.Name,
			&li.SKU,
			&li.Price,
			&li.Quantity,
		); err != nil {
			return fmt.Errorf("scan line item: %w", err)
		}
		o.LineItems = append(o.LineItems, li)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate line item rows: %w", err)
	}
	return nil
}

// loadUnits retrieves the order's inventory units and attaches them to
// their line items, preserving a stable per-line ordering.
func (r *OrderRepository) loadUnits(ctx context.Context, o *domain.Order) error {
	query := `
		SELECT id, order_id, line_item_id, variant_id, state
		FROM inventory_units
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, o.ID)
	if err != nil {
		return fmt.Errorf("query inventory units: %w", err)
	}
	defer rows.Close()

	byLineItem := make(map[string][]domain.InventoryUnit)
	for rows.Next() {
		var u domain.InventoryUnit
		if err := rows.Scan(
			&u.ID,
			&u.OrderID,
			&u.LineItemID,
			&u.VariantID,
			&u.State,
		); err != nil {
			return fmt.Errorf("scan inventory unit: %w", err)
		}
		byLineItem[u.LineItemID] = append(byLineItem[u.LineItemID], u)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate inventory unit rows: %w", err)
	}

	for i := range o.LineItems {
		o.LineItems[i].Units = byLineItem[o.LineItems[i].ID]
	}
	return nil
}

// loadAdjustments retrieves both order-level and line-level adjustments.
// A NULL line_item_id marks an order-level adjustment.
func (r *OrderRepository) loadAdjustments(ctx context.Context, o *domain.Order) error {
	query := `
		SELECT id, line_item_id, label, amount
		FROM adjustments
		WHERE order_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, o.ID)
	if err != nil {
		return fmt.Errorf("query adjustments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			adj        domain.Adjustment
			lineItemID *string
		)
		if err := rows.Scan(&adj.ID, &lineItemID, &adj.Label, &adj.Amount); err != nil {
			return fmt.Errorf("scan adjustment: %w", err)
		}

		if lineItemID == nil {
			o.Adjustments = append(o.Adjustments, adj)
			continue
		}
		if li := o.LineItemByID(*lineItemID); li != nil {
			li.Adjustments = append(li.Adjustments, adj)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate adjustment rows: %w", err)
	}
	return nil
}
