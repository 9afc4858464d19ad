package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/internal/pricing"
	"github.com/M2labo/mm-lp-page/internal/service"
	"github.com/M2labo/mm-lp-page/internal/views"
	"github.com/M2labo/mm-lp-page/internal/widget"
	"github.com/go-chi/chi/v5"
)

type Views interface {
	Mount() (*views.View, error)
	Get(id string) (*views.View, error)
	Unmount(id string) error
}

type CheckoutHandler struct {
	views   Views
	timeout time.Duration
	bodyMax int64
	log     *slog.Logger
}

func NewCheckoutHandler(v Views, timeout time.Duration, bodyMax int64, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{views: v, timeout: timeout, bodyMax: bodyMax, log: log}
}

type PayRequestDTO struct {
	Selection d.Selection   `json:"selection"`
	Buyer     service.Buyer `json:"buyer"`
}

type PayResponseDTO struct {
	ViewID  string          `json:"view_id"`
	Status  string          `json:"status"`
	Payment json.RawMessage `json:"payment"`
}

// POST /api/v1/checkout/views
func (h *CheckoutHandler) CreateView(w http.ResponseWriter, r *http.Request) {
	v, err := h.views.Mount()
	if err != nil {
		h.handleViewError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/checkout/views/"+v.ID)
	respondJSON(w, http.StatusCreated, v.Snapshot())
}

// GET /api/v1/checkout/views/{id}
func (h *CheckoutHandler) GetView(w http.ResponseWriter, r *http.Request) {
	v, err := h.views.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.handleViewError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v.Snapshot())
}

// DELETE /api/v1/checkout/views/{id}
func (h *CheckoutHandler) DeleteView(w http.ResponseWriter, r *http.Request) {
	if err := h.views.Unmount(chi.URLParam(r, "id")); err != nil {
		h.handleViewError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/checkout/views/{id}/pay
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	v, err := h.views.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.handleViewError(w, r, err)
		return
	}

	var req PayRequestDTO
	if !decodeValidated(w, r, h.bodyMax, payLoader, func(b []byte) error { return json.Unmarshal(b, &req) }) {
		return
	}

	res, err := v.Session.Submit(ctx, req.Selection, req.Buyer)
	if err != nil {
		h.handlePayError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, PayResponseDTO{
		ViewID:  v.ID,
		Status:  "COMPLETED",
		Payment: res.Payload,
	})
}

func (h *CheckoutHandler) handleViewError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, views.ErrViewNotFound):
		respondError(w, http.StatusNotFound, "view_not_found", "checkout view not found")
	case errors.Is(err, views.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, "shutting_down", "service is shutting down")
	default:
		h.log.ErrorContext(r.Context(), "checkout view", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (h *CheckoutHandler) handlePayError(w http.ResponseWriter, err error) {
	var pe *service.PaymentError
	switch {
	case errors.Is(err, pricing.ErrInvalidSelection):
		respondErrorDetails(w, http.StatusBadRequest, "invalid_selection", "selection does not match the catalog", err.Error())
	case errors.Is(err, widget.ErrNotReady):
		respondError(w, http.StatusConflict, "widget_not_ready", "card form is not ready")
	case errors.Is(err, service.ErrSubmissionInFlight):
		respondError(w, http.StatusConflict, "submission_in_flight", "a payment is already being processed")
	case errors.Is(err, service.ErrAlreadySubmitted):
		respondError(w, http.StatusConflict, "already_submitted", "this checkout has already been paid")
	case errors.As(err, &pe):
		respondPaymentError(w, pe)
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func respondPaymentError(w http.ResponseWriter, pe *service.PaymentError) {
	switch pe.Kind {
	case service.TokenizationFailed:
		respondErrorDetails(w, http.StatusUnprocessableEntity, "tokenization_failed", pe.Message, pe.Status)
	case service.ChargeRejected:
		respondError(w, http.StatusPaymentRequired, "charge_rejected", pe.Message)
	default:
		respondError(w, http.StatusBadGateway, "network_failure", pe.Message)
	}
}
