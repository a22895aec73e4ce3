package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/returns-service/internal/domain"
	pkgkafka "github.com/utafrali/returns-service/pkg/kafka"
)

// TopicReturnAuthorized is consumed by the notification service, which
// renders and delivers the customer email.
const TopicReturnAuthorized = "ecommerce.returns.authorization.authorized"

// AuthorizedData is the payload the notification service consumes.
type AuthorizedData struct {
	ReturnAuthorizationID     string `json:"return_authorization_id"`
	ReturnAuthorizationNumber string `json:"return_authorization_number"`
	OrderID                   string `json:"order_id"`
	OrderNumber               string `json:"order_number"`
	Email                     string `json:"email"`
	Reason                    string `json:"reason"`
	Amount                    int64  `json:"amount"`
	Currency                  string `json:"currency"`
}

// KafkaNotifier publishes authorized-return notifications to Kafka.
type KafkaNotifier struct {
	producer *pkgkafka.Producer
	logger   *slog.Logger
}

// NewKafkaNotifier creates a Kafka-backed notifier.
func NewKafkaNotifier(producer *pkgkafka.Producer, logger *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, logger: logger}
}

// NotifyAuthorized publishes the authorized-return notification event.
func (n *KafkaNotifier) NotifyAuthorized(ctx context.Context, ra *domain.ReturnAuthorization, order *domain.Order) error {
	data := AuthorizedData{
		ReturnAuthorizationID:     ra.ID,
		ReturnAuthorizationNumber: ra.Number,
		OrderID:                   order.ID,
		OrderNumber:               order.Number,
		Email:                     order.Email,
		Reason:                    ra.Reason,
		Amount:                    ra.Amount,
		Currency:                  order.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicReturnAuthorized, ra.ID, "return_authorization", "returns-service", data)
	if err != nil {
		return fmt.Errorf("create return authorized notification event: %w", err)
	}

	if err := n.producer.Publish(ctx, TopicReturnAuthorized, event); err != nil {
		return fmt.Errorf("publish return authorized notification: %w", err)
	}

	n.logger.DebugContext(ctx, "published return authorized notification",
		slog.String("return_authorization_id", ra.ID),
		slog.String("order_id", order.ID),
	)

	return nil
}
