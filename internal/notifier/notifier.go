package notifier

import (
	"context"

	"github.com/utafrali/returns-service/internal/domain"
)

// Notifier dispatches the customer-facing "return authorized"
// notification. Fire-and-forget from this service's perspective: delivery
// retries, templating, and channel selection belong to the notification
// service.
type Notifier interface {
	NotifyAuthorized(ctx context.Context, ra *domain.ReturnAuthorization, order *domain.Order) error
}
