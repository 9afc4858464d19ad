package sandbox

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/google/uuid"
)

// DeclinedNonce is the source id the sandbox always declines.
const DeclinedNonce = "cnon:card-nonce-declined"

// Decider returns a decline reason, or "" to approve.
type Decider interface {
	Decide(req d.ChargeRequest) string
}

type ApproveAll struct{}

func (ApproveAll) Decide(d.ChargeRequest) string { return "" }

type RandomDecline struct{}

func (RandomDecline) Decide(d.ChargeRequest) string {
	return calcDecline(rand.Intn(101))
}

var declineReasons = []string{"CARD_DECLINED", "INSUFFICIENT_FUNDS", "CVV_FAILURE", "EXPIRED_CARD", "GENERIC_DECLINE"}

func calcDecline(randomInt int) string {
	if randomInt < 95 {
		return ""
	}
	reason := randomInt - 95
	if reason >= len(declineReasons) {
		return "unknown reason"
	}
	return declineReasons[reason]
}

type ChargeHandler struct {
	decider  Decider
	currency string
	log      *slog.Logger
}

func NewChargeHandler(decider Decider, currency string, log *slog.Logger) *ChargeHandler {
	if decider == nil {
		decider = ApproveAll{}
	}
	return &ChargeHandler{decider: decider, currency: currency, log: log}
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type payment struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	AmountMoney money     `json:"amountMoney"`
	SourceType  string    `json:"sourceType"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *ChargeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req d.ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SourceID) == "" || req.Amount <= 0 {
		writeMessage(w, http.StatusBadRequest, "sourceId and a positive amount are required")
		return
	}

	reason := h.decider.Decide(req)
	if req.SourceID == DeclinedNonce {
		reason = "CARD_DECLINED"
	}
	if reason != "" {
		h.log.Info("sandbox charge declined", slog.String("reason", reason), slog.Int64("amount", req.Amount))
		writeMessage(w, http.StatusPaymentRequired, "Payment failed: "+reason)
		return
	}

	p := payment{
		ID:          "TXN-" + uuid.NewString(),
		Status:      "COMPLETED",
		AmountMoney: money{Amount: req.Amount, Currency: h.currency},
		SourceType:  "CARD",
		Verified:    req.VerificationToken != nil,
		CreatedAt:   time.Now().UTC(),
	}
	h.log.Info("sandbox charge completed", slog.String("payment_id", p.ID), slog.Int64("amount", req.Amount))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]payment{"payment": p})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
