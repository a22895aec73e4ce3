package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/returns-service/internal/domain"
	pkgkafka "github.com/utafrali/returns-service/pkg/kafka"
)

// Kafka topic constants for returns domain events.
const (
	TopicReturnRequestCreated       = "ecommerce.returns.request.created"
	TopicReturnAuthorizationExpired = "ecommerce.returns.authorization.expired"
)

// Aggregate type constant.
const AggregateTypeReturnAuthorization = "return_authorization"

// Source identifier for events originating from this service.
const SourceReturnsService = "returns-service"

// RequestCreatedData is the payload for a returns.request.created event
// (full authorization snapshot).
type RequestCreatedData struct {
	ID          string              `json:"id"`
	Number      string              `json:"number"`
	OrderID     string              `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	Reason      string              `json:"reason"`
	Amount      int64               `json:"amount"`
	State       string              `json:"state"`
	Units       []domain.ReturnUnit `json:"units"`
}

// AuthorizationExpiredData is the payload for a
// returns.authorization.expired event.
type AuthorizationExpiredData struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	OrderID   string `json:"order_id"`
	AgeInDays int    `json:"age_in_days"`
}

// Producer publishes returns domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the returns service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishRequestCreated publishes a returns.request.created event with the
// full authorization snapshot.
func (p *Producer) PublishRequestCreated(ctx context.Context, ra *domain.ReturnAuthorization, orderNumber string) error {
	data := RequestCreatedData{
		ID:          ra.ID,
		Number:      ra.Number,
		OrderID:     ra.OrderID,
		OrderNumber: orderNumber,
		Reason:      ra.Reason,
		Amount:      ra.Amount,
		State:       ra.State,
		Units:       ra.Units,
	}

	event, err := pkgkafka.NewEvent(TopicReturnRequestCreated, ra.ID, AggregateTypeReturnAuthorization, SourceReturnsService, data)
	if err != nil {
		return fmt.Errorf("create returns.request.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReturnRequestCreated, event); err != nil {
		return fmt.Errorf("publish returns.request.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published returns.request.created event",
		slog.String("return_authorization_id", ra.ID),
		slog.String("order_id", ra.OrderID),
	)

	return nil
}

// PublishAuthorizationExpired publishes a returns.authorization.expired
// event for downstream expiry handling.
func (p *Producer) PublishAuthorizationExpired(ctx context.Context, ra *domain.ReturnAuthorization, ageInDays int) error {
	data := AuthorizationExpiredData{
		ID:        ra.ID,
		Number:    ra.Number,
		OrderID:   ra.OrderID,
		AgeInDays: ageInDays,
	}

	event, err := pkgkafka.NewEvent(TopicReturnAuthorizationExpired, ra.ID, AggregateTypeReturnAuthorization, SourceReturnsService, data)
	if err != nil {
		return fmt.Errorf("create returns.authorization.expired event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReturnAuthorizationExpired, event); err != nil {
		return fmt.Errorf("publish returns.authorization.expired event: %w", err)
	}

	p.logger.DebugContext(ctx, "published returns.authorization.expired event",
		slog.String("return_authorization_id", ra.ID),
		slog.Int("age_in_days", ageInDays),
	)

	return nil
}
