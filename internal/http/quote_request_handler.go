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
	r "github.com/M2labo/mm-lp-page/internal/repository"
	"github.com/go-chi/chi/v5"
)

type QuoteRequestHandler struct {
	repo     r.QuoteRequestRepository
	catalog  *d.Catalog
	currency string
	timeout  time.Duration
	bodyMax  int64
	log      *slog.Logger
}

// NewQuoteRequestHandler accepts a nil repo; the endpoints then answer 503.
func NewQuoteRequestHandler(repo r.QuoteRequestRepository, catalog *d.Catalog, currency string, timeout time.Duration, bodyMax int64, log *slog.Logger) *QuoteRequestHandler {
	return &QuoteRequestHandler{repo: repo, catalog: catalog, currency: currency, timeout: timeout, bodyMax: bodyMax, log: log}
}

type QuoteRequestDTO struct {
	Company    string      `json:"company"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	PostalCode string      `json:"postal_code"`
	Message    string      `json:"message"`
	Selection  d.Selection `json:"selection"`
}

// POST /api/v1/quote-requests
func (h *QuoteRequestHandler) Create(w http.ResponseWriter, req *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "not_configured", "quote requests are not enabled")
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), h.timeout)
	defer cancel()

	var dto QuoteRequestDTO
	if !decodeValidated(w, req, h.bodyMax, quoteRequestLoader, func(b []byte) error { return json.Unmarshal(b, &dto) }) {
		return
	}
	if err := pricing.ValidateSelection(dto.Selection, h.catalog); err != nil {
		respondSelectionError(w, err)
		return
	}
	total, err := pricing.ComputeTotal(dto.Selection, h.catalog)
	if err != nil {
		respondSelectionError(w, err)
		return
	}

	qr := &d.QuoteRequest{
		Company:    dto.Company,
		Email:      dto.Email,
		Phone:      dto.Phone,
		PostalCode: dto.PostalCode,
		Message:    dto.Message,
		Selection:  dto.Selection,
		Total:      total,
		Currency:   h.currency,
	}
	if err := h.repo.CreateQuoteRequest(ctx, qr); err != nil {
		h.log.ErrorContext(ctx, "store quote request", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, qr)
}

// GET /api/v1/quote-requests/{id}
func (h *QuoteRequestHandler) Get(w http.ResponseWriter, req *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "not_configured", "quote requests are not enabled")
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), h.timeout)
	defer cancel()

	qr, err := h.repo.GetQuoteRequest(ctx, chi.URLParam(req, "id"))
	if errors.Is(err, r.ErrQuoteRequestNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "quote request not found")
		return
	}
	if err != nil {
		h.log.ErrorContext(ctx, "load quote request", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, qr)
}

// GET /api/v1/quote-requests?email=
func (h *QuoteRequestHandler) List(w http.ResponseWriter, req *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "not_configured", "quote requests are not enabled")
		return
	}
	email := req.URL.Query().Get("email")
	if email == "" {
		respondError(w, http.StatusBadRequest, "missing_email", "email is required")
		return
	}
	ctx, cancel := context.WithTimeout(req.Context(), h.timeout)
	defer cancel()

	reqs, err := h.repo.ListQuoteRequestsByEmail(ctx, email)
	if err != nil {
		h.log.ErrorContext(ctx, "list quote requests", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if reqs == nil {
		reqs = []*d.QuoteRequest{}
	}
	respondJSON(w, http.StatusOK, reqs)
}
