package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const quoteRequestsCollection = "quote_requests"

type MongoQuoteRepository struct {
	collection *mongo.Collection
}

func NewQuoteRequestRepository(db *mongo.Database) *MongoQuoteRepository {
	return &MongoQuoteRepository{collection: db.Collection(quoteRequestsCollection)}
}

func (m *MongoQuoteRepository) CreateIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoQuoteRepository) CreateQuoteRequest(ctx context.Context, req *d.QuoteRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if _, err := m.collection.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("failed to insert quote request: %w", err)
	}
	return nil
}

func (m *MongoQuoteRepository) GetQuoteRequest(ctx context.Context, id string) (*d.QuoteRequest, error) {
	var req d.QuoteRequest
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrQuoteRequestNotFound
		}
		return nil, fmt.Errorf("failed to get quote request: %w", err)
	}
	return &req, nil
}

func (m *MongoQuoteRepository) ListQuoteRequestsByEmail(ctx context.Context, email string) ([]*d.QuoteRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find quote requests: %w", err)
	}
	defer cursor.Close(ctx)

	var reqs []*d.QuoteRequest
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, fmt.Errorf("failed to decode quote requests: %w", err)
	}
	return reqs, nil
}
