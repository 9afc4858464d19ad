package domain

import (
	"encoding/json"
	"time"
)

type PurchaseStatus string

const (
	PurchaseStatusPaid PurchaseStatus = "PAID"
)

// Purchase is the ledger record of a successfully charged configuration.
type Purchase struct {
	ID             string          `json:"id"`
	ViewID         string          `json:"view_id"`
	Selection      Selection       `json:"selection"`
	Amount         int64           `json:"amount"`
	Currency       string          `json:"currency"`
	Email          string          `json:"email,omitempty"`
	Verified       bool            `json:"verified"`
	PaymentPayload json.RawMessage `json:"payment"`
	Status         PurchaseStatus  `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

// QuoteRequest is a "request a quote" submission from the configurator form.
type QuoteRequest struct {
	ID         string    `json:"id" bson:"_id"`
	Company    string    `json:"company" bson:"company"`
	Email      string    `json:"email" bson:"email"`
	Phone      string    `json:"phone,omitempty" bson:"phone,omitempty"`
	PostalCode string    `json:"postal_code,omitempty" bson:"postal_code,omitempty"`
	Message    string    `json:"message,omitempty" bson:"message,omitempty"`
	Selection  Selection `json:"selection" bson:"selection"`
	Total      int64     `json:"total" bson:"total"`
	Currency   string    `json:"currency" bson:"currency"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
