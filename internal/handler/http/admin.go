package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/utafrali/returns-service/internal/service"
	"github.com/utafrali/returns-service/pkg/httputil"
	"github.com/utafrali/returns-service/pkg/pagination"
	"github.com/utafrali/returns-service/pkg/validator"
)

// AdminHandler exposes the operator surface: the mutable returns settings
// and the list of authorizations that aged out without being received.
type AdminHandler struct {
	service *service.ReturnsService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.ReturnsService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: svc,
		logger:  logger,
	}
}

// GetSettings handles GET /api/v1/admin/returns/settings.
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Settings(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cfg})
}

// UpdateSettings handles PUT /api/v1/admin/returns/settings. The new
// settings take effect for requests already in flight; no restart needed.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	cfg, err := h.service.Settings(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Decode over the current snapshot so a partial body overrides only
	// the submitted fields.
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(cfg); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.UpdateSettings(r.Context(), cfg); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cfg})
}

// ListExpired handles GET /api/v1/admin/return-authorizations/expired.
// Supports page and per_page query parameters.
func (h *AdminHandler) ListExpired(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	ras, total, err := h.service.ListExpired(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(ras, total, params.Page, params.PerPage))
}
