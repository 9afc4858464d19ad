package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newTestPurchase() *d.Purchase {
	return &d.Purchase{
		ID:     uuid.NewString(),
		ViewID: uuid.NewString(),
		Selection: d.Selection{
			Color:   "leaf",
			Work:    "mowing",
			Options: map[d.OptionKey]bool{"camera": true, "support": true},
		},
		Amount:         1340000,
		Currency:       "JPY",
		Email:          "buyer@example.com",
		Verified:       true,
		PaymentPayload: json.RawMessage(`{"payment":{"id":"TXN-1","status":"COMPLETED"}}`),
		Status:         d.PurchaseStatusPaid,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestRecordPurchase_WritesPurchaseAndOutbox(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	p := newTestPurchase()
	require.NoError(t, repo.RecordPurchase(ctx, p))

	got, err := repo.GetPurchase(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ViewID, got.ViewID)
	assert.Equal(t, p.Selection, got.Selection)
	assert.Equal(t, int64(1340000), got.Amount)
	assert.Equal(t, d.PurchaseStatusPaid, got.Status)
	assert.True(t, got.Verified)
	assert.JSONEq(t, string(p.PaymentPayload), string(got.PaymentPayload))
	assert.True(t, p.CreatedAt.Equal(got.CreatedAt))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, p.ID, events[0].AggregateID)
	assert.Equal(t, EventPurchaseCompleted, events[0].EventType)

	var payload purchaseCompleted
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, p.ID, payload.PurchaseID)
	assert.Equal(t, int64(1340000), payload.Amount)
	assert.Equal(t, "JPY", payload.Currency)
}

func TestRecordPurchase_DuplicateView(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	p := newTestPurchase()
	require.NoError(t, repo.RecordPurchase(ctx, p))

	dup := newTestPurchase()
	dup.ViewID = p.ViewID
	assert.ErrorIs(t, repo.RecordPurchase(ctx, dup), ErrDuplicatePurchase)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1, "rolled back purchase must not leave an outbox event")
}

func TestGetPurchase_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetPurchase(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrPurchaseNotFound)
}

func TestMarkEventAsProcessed(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordPurchase(ctx, newTestPurchase()))
	}

	events, err := repo.GetUnprocessedEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Less(t, events[0].ID, events[1].ID)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	assert.Error(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	remaining, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
	assert.Equal(t, events[1].ID, remaining[0].ID)
}
