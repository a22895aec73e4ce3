package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/returns-service/internal/domain"
	"github.com/utafrali/returns-service/internal/event"
	"github.com/utafrali/returns-service/internal/notifier"
	"github.com/utafrali/returns-service/internal/repository"
	"github.com/utafrali/returns-service/internal/settings"
	apperrors "github.com/utafrali/returns-service/pkg/errors"
	"github.com/utafrali/returns-service/pkg/pagination"
)

// ReturnsService implements the return request workflow: search, request
// form, submission, and label pages, plus the admin settings surface.
type ReturnsService struct {
	orders   repository.OrderRepository
	returns  repository.ReturnAuthorizationRepository
	settings settings.Store
	notifier notifier.Notifier
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewReturnsService creates a new returns service.
func NewReturnsService(
	orders repository.OrderRepository,
	returns repository.ReturnAuthorizationRepository,
	store settings.Store,
	n notifier.Notifier,
	producer *event.Producer,
	logger *slog.Logger,
) *ReturnsService {
	return &ReturnsService{
		orders:   orders,
		returns:  returns,
		settings: store,
		notifier: n,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Tests use this to pin "now".
func (s *ReturnsService) WithClock(now func() time.Time) *ReturnsService {
	s.now = now
	return s
}

// Search finds the order for a return request by order number and email.
// Both must match; a miss and an email mismatch produce the same generic
// error so the response never reveals whether the order number exists.
func (s *ReturnsService) Search(ctx context.Context, number, email string) (*domain.Order, error) {
	number = strings.TrimSpace(number)
	email = strings.TrimSpace(email)
	if number == "" {
		return nil, apperrors.InvalidInput("order_number is required")
	}
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}

	order, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errNoMatchingOrder()
		}
		return nil, fmt.Errorf("search order by number: %w", err)
	}

	if order.Email != email {
		return nil, errNoMatchingOrder()
	}

	return order, nil
}

// errNoMatchingOrder is deliberately identical for "no such order" and
// "email mismatch".
func errNoMatchingOrder() *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "NOT_FOUND",
		Message: "no order matches that order number and email",
		Status:  http.StatusNotFound,
		Err:     apperrors.ErrNotFound,
	}
}

// ReturnableUnit is one shipped inventory unit still available to request,
// with its discount-adjusted amount.
type ReturnableUnit struct {
	InventoryUnitID string `json:"inventory_unit_id"`
	Amount          int64  `json:"amount"`
}

// ReturnableLineItem groups the still-returnable units of one line item.
type ReturnableLineItem struct {
	LineItemID string           `json:"line_item_id"`
	VariantID  string           `json:"variant_id"`
	Name       string           `json:"name"`
	SKU        string           `json:"sku"`
	Price      int64            `json:"price"`
	Units      []ReturnableUnit `json:"units"`
}

// AuthorizedUnit is a unit already covered by a prior return
// authorization, flagged distinctly from the units still available.
type AuthorizedUnit struct {
	InventoryUnitID           string `json:"inventory_unit_id"`
	VariantID                 string `json:"variant_id"`
	ReturnAuthorizationNumber string `json:"return_authorization_number"`
}

// ReturnForm is the payload backing the new-request form.
type ReturnForm struct {
	OrderNumber       string               `json:"order_number"`
	OrderToken        string               `json:"-"` // for building label links, never serialized
	IntroText         string               `json:"intro_text"`
	Reasons           []string             `json:"reasons"`
	Returnable        []ReturnableLineItem `json:"returnable"`
	AlreadyAuthorized []AuthorizedUnit     `json:"already_authorized,omitempty"`
}

// NewRequest authorizes the caller and checks eligibility, then assembles
// the request form: selectable reasons, still-returnable units grouped by
// line item with prorated amounts, and units already covered by prior
// authorizations on the same order.
func (s *ReturnsService) NewRequest(ctx context.Context, orderNumber string, caller domain.Caller) (*ReturnForm, error) {
	order, cfg, err := s.authorizeEligible(ctx, orderNumber, caller)
	if err != nil {
		return nil, err
	}

	prior, err := s.returns.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list prior return authorizations: %w", err)
	}
	covered := coveredUnits(prior)

	amounts := domain.UnitAmounts(order)

	form := &ReturnForm{
		OrderNumber: order.Number,
		OrderToken:  order.Token,
		IntroText:   cfg.IntroText,
		Reasons:     cfg.Reasons,
		Returnable:  make([]ReturnableLineItem, 0, len(order.LineItems)),
	}

	for _, li := range order.LineItems {
		group := ReturnableLineItem{
			LineItemID: li.ID,
			VariantID:  li.VariantID,
			Name:       li.Name,
			SKU:        li.SKU,
			Price:      li.Price,
		}
		for _, u := range li.Units {
			if u.State != domain.UnitStateShipped {
				continue
			}
			if raNumber, ok := covered[u.ID]; ok {
				form.AlreadyAuthorized = append(form.AlreadyAuthorized, AuthorizedUnit{
					InventoryUnitID:           u.ID,
					VariantID:                 u.VariantID,
					ReturnAuthorizationNumber: raNumber,
				})
				continue
			}
			group.Units = append(group.Units, ReturnableUnit{
				InventoryUnitID: u.ID,
				Amount:          amounts[u.ID],
			})
		}
		if len(group.Units) > 0 {
			form.Returnable = append(form.Returnable, group)
		}
	}

	return form, nil
}

// CreateInput holds the parameters for submitting a return request.
// Quantities maps variant ID to the number of units to return.
type CreateInput struct {
	Reason      string
	ReasonOther string
	Quantities  map[string]int
}

// Create validates and persists a return request. The authorization covers
// exactly the selected units, its amount comes from discount proration,
// and the pending-to-authorized transition drives the one-time
// notification effect.
func (s *ReturnsService) Create(ctx context.Context, orderNumber string, caller domain.Caller, input CreateInput) (*domain.ReturnAuthorization, string, error) {
	order, cfg, err := s.authorizeEligible(ctx, orderNumber, caller)
	if err != nil {
		return nil, "", err
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, "", apperrors.InvalidInput("reason is required")
	}
	if !cfg.HasReason(reason) {
		return nil, "", apperrors.InvalidInput(fmt.Sprintf("%q is not a selectable return reason", reason))
	}
	reason = domain.NormalizeReason(reason, strings.TrimSpace(input.ReasonOther))

	prior, err := s.returns.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, "", fmt.Errorf("list prior return authorizations: %w", err)
	}
	covered := coveredUnits(prior)

	selected, err := selectUnits(order, covered, input.Quantities)
	if err != nil {
		return nil, "", err
	}
	if len(selected) == 0 {
		return nil, "", apperrors.InvalidInput("select at least one unit to return")
	}

	amounts := domain.UnitAmounts(order)
	now := s.now()

	ra := &domain.ReturnAuthorization{
		ID:        uuid.New().String(),
		Number:    newRMANumber(),
		OrderID:   order.ID,
		Reason:    reason,
		State:     domain.RAStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, u := range selected {
		amount := amounts[u.ID]
		ra.Units = append(ra.Units, domain.ReturnUnit{
			InventoryUnitID: u.ID,
			LineItemID:      u.LineItemID,
			VariantID:       u.VariantID,
			Amount:          amount,
		})
		ra.Amount += amount
	}

	effects, err := ra.TransitionTo(domain.RAStateAuthorized)
	if err != nil {
		return nil, "", fmt.Errorf("authorize return request: %w", err)
	}

	if err := s.returns.Create(ctx, ra); err != nil {
		return nil, "", fmt.Errorf("create return authorization: %w", err)
	}

	// Execute the transition's effects exactly once. A notification
	// failure is fatal to the request; it is not retried here.
	for _, effect := range effects {
		if effect == domain.EffectNotifyAuthorized {
			if err := s.notifier.NotifyAuthorized(ctx, ra, order); err != nil {
				return nil, "", fmt.Errorf("notify return authorized: %w", err)
			}
		}
	}

	if s.producer != nil {
		if err := s.producer.PublishRequestCreated(ctx, ra, order.Number); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish returns.request.created event",
				slog.String("return_authorization_id", ra.ID),
				slog.String("error", err.Error()),
			)
			// Do not fail the operation if event publishing fails.
		}
	}

	s.logger.InfoContext(ctx, "return request created",
		slog.String("return_authorization_id", ra.ID),
		slog.String("order_id", order.ID),
		slog.Int("units", len(ra.Units)),
		slog.Int64("amount", ra.Amount),
	)

	return ra, cfg.SuccessText, nil
}

// LabelsView is the payload backing a return authorization's label pages.
type LabelsView struct {
	ReturnAuthorizationNumber string              `json:"return_authorization_number"`
	OrderNumber               string              `json:"order_number"`
	State                     string              `json:"state"`
	Amount                    int64               `json:"amount"`
	Units                     []domain.ReturnUnit `json:"units"`
	CreatedAt                 time.Time           `json:"created_at"`
}

// Labels returns the label content for a return authorization. Access is
// checked against the owning order (its owner or its token, never any
// token on the authorization itself), and an unknown RMA number is
// indistinguishable from a denied one.
func (s *ReturnsService) Labels(ctx context.Context, raNumber string, caller domain.Caller) (*LabelsView, error) {
	ra, err := s.returns.GetByNumber(ctx, raNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrAccessDenied
		}
		return nil, fmt.Errorf("get return authorization: %w", err)
	}

	order, err := s.orders.GetByID(ctx, ra.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order for labels: %w", err)
	}

	if !domain.Authorize(order, caller) {
		return nil, domain.ErrAccessDenied
	}

	return &LabelsView{
		ReturnAuthorizationNumber: ra.Number,
		OrderNumber:               order.Number,
		State:                     ra.State,
		Amount:                    ra.Amount,
		Units:                     ra.Units,
		CreatedAt:                 ra.CreatedAt,
	}, nil
}

// Settings returns the current returns settings.
func (s *ReturnsService) Settings(ctx context.Context) (settings.Settings, error) {
	return s.settings.Get(ctx)
}

// UpdateSettings overrides the returns settings.
func (s *ReturnsService) UpdateSettings(ctx context.Context, cfg settings.Settings) error {
	if err := s.settings.Update(ctx, cfg); err != nil {
		return fmt.Errorf("update returns settings: %w", err)
	}
	s.logger.InfoContext(ctx, "returns settings updated",
		slog.Int("max_order_age_in_days", cfg.MaxOrderAgeInDays),
		slog.Int("max_authorized_age_in_days", cfg.MaxAuthorizedAgeInDays),
	)
	return nil
}

// ListExpired returns a page of authorizations that are authorized and
// past the configured maximum authorized age, with the total match count.
func (s *ReturnsService) ListExpired(ctx context.Context, params pagination.Params) ([]domain.ReturnAuthorization, int, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load returns settings: %w", err)
	}

	cutoff := s.now().Add(-time.Duration(cfg.MaxAuthorizedAgeInDays) * 24 * time.Hour)
	ras, total, err := s.returns.ListAuthorizedAndExpired(ctx, cutoff, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list expired return authorizations: %w", err)
	}
	return ras, total, nil
}

// MarkReceived transitions a return authorization to received when the
// warehouse reports the package back. Only authorized requests can be
// received; anything else is rejected by the state machine.
func (s *ReturnsService) MarkReceived(ctx context.Context, raNumber string) error {
	ra, err := s.returns.GetByNumber(ctx, raNumber)
	if err != nil {
		return fmt.Errorf("get return authorization %s: %w", raNumber, err)
	}

	if _, err := ra.TransitionTo(domain.RAStateReceived); err != nil {
		return fmt.Errorf("receive return authorization %s: %w", raNumber, err)
	}

	if err := s.returns.UpdateState(ctx, ra.ID, domain.RAStateReceived); err != nil {
		return fmt.Errorf("persist received state: %w", err)
	}

	s.logger.InfoContext(ctx, "return authorization received",
		slog.String("return_authorization_id", ra.ID),
		slog.String("number", ra.Number),
	)
	return nil
}

// CancelForOrder cancels every still-open return authorization of an order.
// Invoked when the order itself is canceled upstream. Authorizations already
// received or canceled are left untouched.
func (s *ReturnsService) CancelForOrder(ctx context.Context, orderID string) error {
	ras, err := s.returns.ListByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list return authorizations for order %s: %w", orderID, err)
	}

	for i := range ras {
		ra := &ras[i]
		if _, err := ra.TransitionTo(domain.RAStateCanceled); err != nil {
			continue
		}
		if err := s.returns.UpdateState(ctx, ra.ID, domain.RAStateCanceled); err != nil {
			return fmt.Errorf("cancel return authorization %s: %w", ra.Number, err)
		}
		s.logger.InfoContext(ctx, "return authorization canceled with order",
			slog.String("return_authorization_id", ra.ID),
			slog.String("order_id", orderID),
		)
	}
	return nil
}

// authorizeEligible loads the order, checks caller access, and evaluates
// the eligibility policy against the current settings. An unknown order
// number is treated as access denied so the response never confirms
// whether the order exists.
func (s *ReturnsService) authorizeEligible(ctx context.Context, orderNumber string, caller domain.Caller) (*domain.Order, settings.Settings, error) {
	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, settings.Settings{}, domain.ErrAccessDenied
		}
		return nil, settings.Settings{}, fmt.Errorf("get order by number: %w", err)
	}

	if !domain.Authorize(order, caller) {
		return nil, settings.Settings{}, domain.ErrAccessDenied
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, settings.Settings{}, fmt.Errorf("load returns settings: %w", err)
	}

	if err := domain.CanRequestReturn(order, s.now(), cfg); err != nil {
		return nil, settings.Settings{}, err
	}

	return order, cfg, nil
}

// coveredUnits maps inventory unit IDs already covered by a non-canceled
// return authorization to that authorization's number.
func coveredUnits(ras []domain.ReturnAuthorization) map[string]string {
	covered := make(map[string]string)
	for _, ra := range ras {
		if ra.State == domain.RAStateCanceled {
			continue
		}
		for _, u := range ra.Units {
			covered[u.InventoryUnitID] = ra.Number
		}
	}
	return covered
}

// selectUnits picks, per variant, the requested count of shipped units not
// yet covered by another authorization, in the order's stable unit order.
func selectUnits(order *domain.Order, covered map[string]string, quantities map[string]int) ([]domain.InventoryUnit, error) {
	available := make(map[string][]domain.InventoryUnit)
	for _, u := range order.ShippedUnits() {
		if _, taken := covered[u.ID]; taken {
			continue
		}
		available[u.VariantID] = append(available[u.VariantID], u)
	}

	var selected []domain.InventoryUnit
	for _, li := range order.LineItems {
		qty, ok := quantities[li.VariantID]
		if !ok || qty <= 0 {
			continue
		}
		units := available[li.VariantID]
		if qty > len(units) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("only %d units of %s are returnable", len(units), li.VariantID))
		}
		selected = append(selected, units[:qty]...)
		delete(available, li.VariantID)
	}

	return selected, nil
}

// newRMANumber generates a customer-facing RMA number.
func newRMANumber() string {
	id := uuid.New().String()
	return "RA" + strings.ToUpper(strings.ReplaceAll(id, "-", ""))[:10]
}
