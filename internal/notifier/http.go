package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/utafrali/returns-service/internal/domain"
	"github.com/utafrali/returns-service/pkg/httpclient"
)

// HTTPNotifier delivers authorized-return notifications by calling the
// notification service's REST API directly. Used in deployments without a
// message broker between the two services. Calls go through a circuit
// breaker so a struggling notification service cannot stall returns.
type HTTPNotifier struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// NewHTTPNotifier creates a notifier that posts to the notification
// service at the given base URL.
func NewHTTPNotifier(baseURL string, logger *slog.Logger) *HTTPNotifier {
	client := httpclient.New(httpclient.DefaultConfig())
	cb := httpclient.NewCircuitBreakerClient(client, httpclient.DefaultCircuitBreakerConfig("notification"), logger)

	return &HTTPNotifier{
		client:  cb,
		baseURL: baseURL,
		logger:  logger,
	}
}

// notificationRequest mirrors the notification service's send endpoint.
type notificationRequest struct {
	Type      string         `json:"type"`
	Channel   string         `json:"channel"`
	Recipient string         `json:"recipient"`
	Data      AuthorizedData `json:"data"`
}

// NotifyAuthorized posts the authorized-return notification to the
// notification service.
func (n *HTTPNotifier) NotifyAuthorized(ctx context.Context, ra *domain.ReturnAuthorization, order *domain.Order) error {
	req := notificationRequest{
		Type:      "return_authorized",
		Channel:   "email",
		Recipient: order.Email,
		Data: AuthorizedData{
			ReturnAuthorizationID:     ra.ID,
			ReturnAuthorizationNumber: ra.Number,
			OrderID:                   order.ID,
			OrderNumber:               order.Number,
			Email:                     order.Email,
			Reason:                    ra.Reason,
			Amount:                    ra.Amount,
			Currency:                  order.Currency,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal notification request: %w", err)
	}

	resp, err := n.client.Post(ctx, n.baseURL+"/api/v1/notifications", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send return authorized notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return httpclient.ParseResponseError(resp, "notification")
	}

	n.logger.DebugContext(ctx, "sent return authorized notification",
		slog.String("return_authorization_id", ra.ID),
		slog.String("order_id", order.ID),
	)

	return nil
}
