package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

type purchaseCompleted struct {
	PurchaseID  string      `json:"purchase_id"`
	ViewID      string      `json:"view_id"`
	Selection   d.Selection `json:"selection"`
	Amount      int64       `json:"amount"`
	Currency    string      `json:"currency"`
	Email       string      `json:"email,omitempty"`
	Verified    bool        `json:"verified"`
	CompletedAt time.Time   `json:"completed_at"`
}

func (r *Repository) RecordPurchase(ctx context.Context, p *d.Purchase) error {
	selectionJSON, err := json.Marshal(p.Selection)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}
	payment := p.PaymentPayload
	if len(payment) == 0 {
		payment = json.RawMessage(`{}`)
	}
	event, err := json.Marshal(purchaseCompleted{
		PurchaseID:  p.ID,
		ViewID:      p.ViewID,
		Selection:   p.Selection,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Email:       p.Email,
		Verified:    p.Verified,
		CompletedAt: p.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO purchases (id, view_id, selection, amount, currency, email, verified, payment, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.ViewID, selectionJSON, p.Amount, p.Currency, p.Email, p.Verified, []byte(payment), p.Status, p.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicatePurchase
		}
		return fmt.Errorf("insert purchase: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		p.ID, EventPurchaseCompleted, event)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purchase: %w", err)
	}
	return nil
}

func (r *Repository) GetPurchase(ctx context.Context, id string) (*d.Purchase, error) {
	query := `SELECT id, view_id, selection, amount, currency, email, verified, payment, status, created_at
	          FROM purchases WHERE id = $1`

	var p d.Purchase
	var selectionJSON, paymentJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.ViewID,
		&selectionJSON,
		&p.Amount,
		&p.Currency,
		&p.Email,
		&p.Verified,
		&paymentJSON,
		&p.Status,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPurchaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query purchase by id: %w", err)
	}

	if err := json.Unmarshal(selectionJSON, &p.Selection); err != nil {
		return nil, fmt.Errorf("unmarshal selection: %w", err)
	}
	p.PaymentPayload = json.RawMessage(paymentJSON)
	return &p, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM outbox WHERE processed_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("outbox event %d not found or already processed", id)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
