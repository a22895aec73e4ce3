package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/returns-service/internal/domain"
	"github.com/utafrali/returns-service/internal/service"
	apperrors "github.com/utafrali/returns-service/pkg/errors"
	"github.com/utafrali/returns-service/pkg/httputil"
	"github.com/utafrali/returns-service/pkg/middleware"
	"github.com/utafrali/returns-service/pkg/validator"
)

// SearchPath is the public entry point every access denial redirects to.
// Denials never explain themselves, so the redirect is the whole response.
const SearchPath = "/api/v1/returns/search"

// ReturnsHandler handles HTTP requests for the return request lifecycle.
type ReturnsHandler struct {
	service *service.ReturnsService
	logger  *slog.Logger
}

// NewReturnsHandler creates a new returns HTTP handler.
func NewReturnsHandler(svc *service.ReturnsService, logger *slog.Logger) *ReturnsHandler {
	return &ReturnsHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SearchRequest is the JSON request body for the order search.
type SearchRequest struct {
	OrderNumber string `json:"order_number" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
}

// CreateReturnRequest is the JSON request body for submitting a return
// request. Quantities maps variant ID to the number of units to return.
type CreateReturnRequest struct {
	Reason      string         `json:"reason" validate:"required"`
	ReasonOther string         `json:"reason_other"`
	Quantities  map[string]int `json:"quantities" validate:"required"`
}

// --- Response DTOs ---

// AuthorizedUnitResponse augments an already-authorized unit with the link
// to its authorization's label pages, built from the order token.
type AuthorizedUnitResponse struct {
	InventoryUnitID           string `json:"inventory_unit_id"`
	VariantID                 string `json:"variant_id"`
	ReturnAuthorizationNumber string `json:"return_authorization_number"`
	LabelsURL                 string `json:"labels_url"`
}

// NewFormResponse is the payload for the new-request form.
type NewFormResponse struct {
	OrderNumber       string                       `json:"order_number"`
	IntroText         string                       `json:"intro_text"`
	Reasons           []string                     `json:"reasons"`
	Returnable        []service.ReturnableLineItem `json:"returnable"`
	AlreadyAuthorized []AuthorizedUnitResponse     `json:"already_authorized,omitempty"`
}

// CreateResponse is the payload for a successful submission.
type CreateResponse struct {
	Message             string                     `json:"message"`
	ReturnAuthorization *domain.ReturnAuthorization `json:"return_authorization"`
}

// --- Handlers ---

// Search handles POST /api/v1/returns/search. A match redirects to the
// new-request form with the order token in the query string, so the
// follow-up request passes the order access check without a login. Any
// miss gets one generic error, whichever field was wrong.
func (h *ReturnsHandler) Search(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.Search(r.Context(), req.OrderNumber, req.Email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	http.Redirect(w, r, newRequestPath(order.Number, order.Token), http.StatusSeeOther)
}

// NewRequest handles GET /api/v1/orders/{number}/return-request/new.
func (h *ReturnsHandler) NewRequest(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	form, err := h.service.NewRequest(r.Context(), number, callerFromRequest(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}

	resp := NewFormResponse{
		OrderNumber: form.OrderNumber,
		IntroText:   form.IntroText,
		Reasons:     form.Reasons,
		Returnable:  form.Returnable,
	}
	for _, u := range form.AlreadyAuthorized {
		resp.AlreadyAuthorized = append(resp.AlreadyAuthorized, AuthorizedUnitResponse{
			InventoryUnitID:           u.InventoryUnitID,
			VariantID:                 u.VariantID,
			ReturnAuthorizationNumber: u.ReturnAuthorizationNumber,
			LabelsURL:                 labelsPath(u.ReturnAuthorizationNumber, form.OrderToken),
		})
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: resp})
}

// CreateReturn handles POST /api/v1/orders/{number}/return-request.
func (h *ReturnsHandler) CreateReturn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	number := chi.URLParam(r, "number")

	var req CreateReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		// Echo the submitted values so the client can re-present the form.
		var valErr *validator.ValidationError
		if errors.As(err, &valErr) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Data: req,
				Error: &httputil.ErrorResponse{
					Code:    "VALIDATION_ERROR",
					Message: "request validation failed",
					Fields:  valErr.Fields(),
				},
			})
			return
		}
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.CreateInput{
		Reason:      req.Reason,
		ReasonOther: req.ReasonOther,
		Quantities:  req.Quantities,
	}

	ra, message, err := h.service.Create(r.Context(), number, callerFromRequest(r), input)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			// Same echo treatment for service-level validation failures.
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Data:  req,
				Error: &httputil.ErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()},
			})
			return
		}
		h.writeWorkflowError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: CreateResponse{
		Message:             message,
		ReturnAuthorization: ra,
	}})
}

// Labels handles GET /api/v1/return-authorizations/{number}/labels. A
// missing token and a mismatched token fail identically.
func (h *ReturnsHandler) Labels(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	view, err := h.service.Labels(r.Context(), number, callerFromRequest(r))
	if err != nil {
		h.writeWorkflowError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// writeWorkflowError maps the expected workflow outcomes: access denials
// redirect to the search entry point without detail, policy failures carry
// their message, everything else falls through to the standard mapping.
func (h *ReturnsHandler) writeWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	var pastWindow *domain.PastWindowError

	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		http.Redirect(w, r, SearchPath, http.StatusSeeOther)
	case errors.Is(err, domain.ErrNotYetShipped):
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:    "NOT_YET_SHIPPED",
				Message: "none of the items in this order have shipped yet",
			},
		})
	case errors.As(err, &pastWindow):
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:    "PAST_RETURN_WINDOW",
				Message: pastWindow.Message,
			},
		})
	default:
		httputil.WriteError(w, r, err, h.logger)
	}
}

// callerFromRequest assembles the caller identity: the optional
// authenticated user plus the optional order token query parameter.
func callerFromRequest(r *http.Request) domain.Caller {
	return domain.Caller{
		UserID: middleware.UserIDFromContext(r.Context()),
		Token:  r.URL.Query().Get("token"),
	}
}

func newRequestPath(orderNumber, token string) string {
	return "/api/v1/orders/" + url.PathEscape(orderNumber) + "/return-request/new?token=" + url.QueryEscape(token)
}

func labelsPath(raNumber, token string) string {
	return "/api/v1/return-authorizations/" + url.PathEscape(raNumber) + "/labels?token=" + url.QueryEscape(token)
}
