package http

import (
	"encoding/json"
	"errors"
	"net/http"

	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/internal/pricing"
)

type CatalogHandler struct {
	catalog  *d.Catalog
	currency string
	bodyMax  int64
}

func NewCatalogHandler(catalog *d.Catalog, currency string, bodyMax int64) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, currency: currency, bodyMax: bodyMax}
}

type CatalogResponseDTO struct {
	Currency string    `json:"currency"`
	Base     int64     `json:"base"`
	Works    []d.Item  `json:"works"`
	Options  []d.Item  `json:"options"`
	Colors   []d.Color `json:"colors"`
}

type QuoteResponseDTO struct {
	Currency string         `json:"currency"`
	Total    int64          `json:"total"`
	Lines    []pricing.Line `json:"lines"`
}

// GET /api/v1/catalog
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CatalogResponseDTO{
		Currency: h.currency,
		Base:     h.catalog.Base(),
		Works:    h.catalog.Works(),
		Options:  h.catalog.Options(),
		Colors:   h.catalog.Colors(),
	})
}

// POST /api/v1/quote
func (h *CatalogHandler) Quote(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, h.bodyMax)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read body")
		return
	}
	var sel d.Selection
	if err := json.Unmarshal(body, &sel); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := pricing.ValidateSelection(sel, h.catalog); err != nil {
		respondSelectionError(w, err)
		return
	}

	lines, total, err := pricing.Breakdown(sel, h.catalog)
	if err != nil {
		respondSelectionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, QuoteResponseDTO{Currency: h.currency, Total: total, Lines: lines})
}

func respondSelectionError(w http.ResponseWriter, err error) {
	if errors.Is(err, pricing.ErrInvalidSelection) {
		respondErrorDetails(w, http.StatusBadRequest, "invalid_selection", "selection does not match the catalog", err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
