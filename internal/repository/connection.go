package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/M2labo/mm-lp-page/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// quoteStoreOptions turns the mongo section into driver options. Unset pool and timeout
// fields keep the driver defaults.
func quoteStoreOptions(cfg config.MongoConfig) (*options.ClientOptions, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo.uri must be set")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo.database must be set")
	}
	opts := options.Client().ApplyURI(cfg.URI).SetAppName("storefront")
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(uint64(cfg.MinPoolSize))
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quote request store options: %w", err)
	}
	return opts, nil
}

// ConnectMongoDB opens the quote request database and waits for one successful ping,
// bounded by the server selection timeout. The caller disconnects through db.Client().
func ConnectMongoDB(ctx context.Context, cfg config.MongoConfig) (*mongo.Database, error) {
	opts, err := quoteStoreOptions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to quote request store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping quote request store %s: %w", cfg.Database, err)
	}
	return client.Database(cfg.Database), nil
}
