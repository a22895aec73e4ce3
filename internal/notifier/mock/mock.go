package mock

import (
	"context"
	"log/slog"

	"github.com/utafrali/returns-service/internal/domain"
)

// MockNotifier is a notifier implementation that logs the notification and
// always succeeds. Used when Kafka is disabled (local development).
type MockNotifier struct {
	logger *slog.Logger
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier(logger *slog.Logger) *MockNotifier {
	return &MockNotifier{logger: logger}
}

// NotifyAuthorized logs the would-be notification.
func (m *MockNotifier) NotifyAuthorized(ctx context.Context, ra *domain.ReturnAuthorization, order *domain.Order) error {
	m.logger.InfoContext(ctx, "mock notifier: return authorized notification",
		slog.String("return_authorization_id", ra.ID),
		slog.String("return_authorization_number", ra.Number),
		slog.String("order_number", order.Number),
		slog.String("email", order.Email),
		slog.Int64("amount", ra.Amount),
	)
	return nil
}
