package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	d "github.com/M2labo/mm-lp-page/internal/domain"
)

var (
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrDuplicatePurchase    = errors.New("purchase for this checkout view already exists")
	ErrQuoteRequestNotFound = errors.New("quote request not found")
)

const EventPurchaseCompleted = "PurchaseCompleted"

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OutboxEvent struct {
	ID          int
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// PurchaseRepository is the purchase ledger and its outbox.
type PurchaseRepository interface {
	// RecordPurchase stores the purchase and its PurchaseCompleted event atomically.
	RecordPurchase(ctx context.Context, purchase *d.Purchase) error
	GetPurchase(ctx context.Context, id string) (*d.Purchase, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
	RunMigrations(*Credentials) error
	Close() error
}

type QuoteRequestRepository interface {
	CreateQuoteRequest(ctx context.Context, req *d.QuoteRequest) error
	GetQuoteRequest(ctx context.Context, id string) (*d.QuoteRequest, error)
	ListQuoteRequestsByEmail(ctx context.Context, email string) ([]*d.QuoteRequest, error)
}
