package repository

import (
	"context"
	"time"

	"github.com/utafrali/returns-service/internal/domain"
)

// OrderRepository is read-only access to the order aggregate. The order
// service owns the write side of this schema; return requests only ever
// read it.
type OrderRepository interface {
	// GetByNumber loads the full order aggregate (line items, inventory
	// units, adjustments) by its customer-facing order number.
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)

	// GetByID loads the full order aggregate by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// ReturnAuthorizationRepository persists return authorizations.
type ReturnAuthorizationRepository interface {
	// Create inserts a return authorization and its covered units atomically.
	Create(ctx context.Context, ra *domain.ReturnAuthorization) error

	// GetByNumber retrieves a return authorization by its RMA number.
	GetByNumber(ctx context.Context, number string) (*domain.ReturnAuthorization, error)

	// ListByOrder returns all return authorizations for the given order.
	ListByOrder(ctx context.Context, orderID string) ([]domain.ReturnAuthorization, error)

	// ListAuthorizedAndExpired returns authorizations whose state is exactly
	// "authorized" and whose creation time is strictly before the cutoff,
	// along with the total count of matches.
	ListAuthorizedAndExpired(ctx context.Context, cutoff time.Time, limit, offset int) ([]domain.ReturnAuthorization, int, error)

	// UpdateState changes the state of a return authorization.
	UpdateState(ctx context.Context, id string, state string) error
}
