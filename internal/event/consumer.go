package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/returns-service/pkg/kafka"
)

// Kafka topics consumed by the returns service.
const (
	TopicReturnReceived = "ecommerce.warehouse.return.received"
	TopicOrderCanceled  = "ecommerce.order.canceled"
)

// ReturnsService defines the interface required by the event consumer.
type ReturnsService interface {
	MarkReceived(ctx context.Context, raNumber string) error
	CancelForOrder(ctx context.Context, orderID string) error
}

// ReturnReceivedData is the expected payload of a warehouse
// return.received event.
type ReturnReceivedData struct {
	ReturnAuthorizationNumber string `json:"return_authorization_number"`
}

// OrderCanceledData is the expected payload of an order.canceled event.
type OrderCanceledData struct {
	OrderID string `json:"order_id"`
}

// Consumer processes incoming Kafka events for the returns service.
type Consumer struct {
	logger  *slog.Logger
	service ReturnsService
}

// NewConsumer creates a new event consumer for the returns service.
func NewConsumer(service ReturnsService, logger *slog.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// HandleReturnReceived processes warehouse return.received events by
// transitioning the authorization to received.
func (c *Consumer) HandleReturnReceived(ctx context.Context, event *pkgkafka.Event) error {
	var data ReturnReceivedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal return.received data: %w", err)
	}

	c.logger.InfoContext(ctx, "processing return.received event",
		slog.String("return_authorization_number", data.ReturnAuthorizationNumber),
	)

	if err := c.service.MarkReceived(ctx, data.ReturnAuthorizationNumber); err != nil {
		return fmt.Errorf("mark return authorization %s received: %w", data.ReturnAuthorizationNumber, err)
	}

	return nil
}

// HandleOrderCanceled processes order.canceled events by canceling the
// order's open return authorizations.
func (c *Consumer) HandleOrderCanceled(ctx context.Context, event *pkgkafka.Event) error {
	var data OrderCanceledData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal order.canceled data: %w", err)
	}

	c.logger.InfoContext(ctx, "processing order.canceled event",
		slog.String("order_id", data.OrderID),
	)

	if err := c.service.CancelForOrder(ctx, data.OrderID); err != nil {
		return fmt.Errorf("cancel return authorizations for order %s: %w", data.OrderID, err)
	}

	return nil
}
