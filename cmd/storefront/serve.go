package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/M2labo/mm-lp-page/internal/auth"
	"github.com/M2labo/mm-lp-page/internal/bg"
	"github.com/M2labo/mm-lp-page/internal/charge"
	"github.com/M2labo/mm-lp-page/internal/config"
	d "github.com/M2labo/mm-lp-page/internal/domain"
	"github.com/M2labo/mm-lp-page/internal/guard"
	h "github.com/M2labo/mm-lp-page/internal/http"
	"github.com/M2labo/mm-lp-page/internal/poller"
	"github.com/M2labo/mm-lp-page/internal/publisher"
	r "github.com/M2labo/mm-lp-page/internal/repository"
	"github.com/M2labo/mm-lp-page/internal/sandbox"
	"github.com/M2labo/mm-lp-page/internal/service"
	"github.com/M2labo/mm-lp-page/internal/views"
	"github.com/M2labo/mm-lp-page/internal/widget"
	"github.com/M2labo/mm-lp-page/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

// closer runs the shutdown steps in reverse registration order.
type closer []func(ctx context.Context)

func (c *closer) add(fn func(ctx context.Context)) {
	*c = append(*c, fn)
}

func (c closer) run(ctx context.Context) {
	for i := len(c) - 1; i >= 0; i-- {
		c[i](ctx)
	}
}

func serve(cfg config.Config) error {
	log := logger.New("storefront", cfg.Log.Level, os.Stdout)
	slog.SetDefault(log)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	var (
		wg       sync.WaitGroup
		shutdown closer
		tracked  = &bg.Tracked{}
	)
	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startCancel()

	// Session store
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(startCtx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	shutdown.add(func(context.Context) { _ = rdb.Close() })

	store := auth.NewRedisStore(rdb, cfg.Auth.SessionTTL, cfg.Auth.PendingTTL)
	verifier := auth.NewHMACVerifier(cfg.Auth.TokenSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.Leeway)
	identities := auth.NewIdentities(store, verifier)
	provider := auth.NewProvider(auth.ProviderConfig{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		AuthURL:      cfg.Auth.AuthURL,
		TokenURL:     cfg.Auth.TokenURL,
		RedirectURL:  cfg.Auth.RedirectURL,
		Scopes:       cfg.Auth.Scopes,
	}, store, store, tracked, log.With(slog.String("component", "auth")))

	// Purchase ledger and its outbox relay
	var recorder service.PurchaseRecorder
	if cfg.Database.Enabled() {
		creds := credentials(cfg.Database)
		repo, err := r.NewRepository(creds)
		if err != nil {
			shutdown.run(context.Background())
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		shutdown.add(func(context.Context) { _ = repo.Close() })
		if err := repo.RunMigrations(creds); err != nil {
			shutdown.run(context.Background())
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database migrations completed")
		recorder = repo

		if len(cfg.Kafka.Brokers) > 0 {
			outbox := publisher.NewOutboxPoller(repo, log.With(slog.String("component", "outbox")), cfg.Kafka.Brokers...)
			pollerCtx, pollerCancel := context.WithCancel(context.Background())
			wg.Add(1)
			go func() {
				defer wg.Done()
				outbox.Run(pollerCtx)
			}()
			shutdown.add(func(ctx context.Context) {
				pollerCancel()
				waitGroup(ctx, &wg, log, "outbox poller")
				_ = outbox.Close()
			})
		}
	}

	// Quote requests
	var quotes r.QuoteRequestRepository
	if cfg.Mongo.URI != "" {
		db, err := r.ConnectMongoDB(startCtx, cfg.Mongo)
		if err != nil {
			shutdown.run(context.Background())
			return err
		}
		shutdown.add(func(ctx context.Context) { disconnect(ctx, db, log) })
		mongoRepo := r.NewQuoteRequestRepository(db)
		if err := mongoRepo.CreateIndexes(startCtx); err != nil {
			shutdown.run(context.Background())
			return err
		}
		quotes = mongoRepo
	}

	// Card surface and charges
	sdk := sandbox.NewSDK(cfg.Sandbox.SDKLoadDelay, sandbox.RandomStatus{})
	chargeBase := cfg.Payments.ChargeBaseURL
	if chargeBase == "" {
		chargeBase = "http://localhost:" + cfg.HTTP.Port
	}
	charges := charge.NewClient(charge.Options{
		BaseURL: chargeBase,
		Path:    cfg.Payments.ChargePath,
		Timeout: cfg.Payments.ChargeTimeout,
		Logger:  log.With(slog.String("component", "charge")),
	})
	catalog := d.DefaultCatalog()

	registry := views.NewRegistry(views.Options{
		Widget: widget.Config{
			AppID:        cfg.Payments.AppID,
			LocationID:   cfg.Payments.LocationID,
			PollInterval: cfg.Payments.SDKPollInterval,
			SDKTimeout:   cfg.Payments.SDKTimeout,
		},
		Probe:           sdk.Probe(),
		Runner:          tracked,
		Catalog:         catalog,
		Charges:         charges,
		Recorder:        recorder,
		Currency:        cfg.Payments.Currency,
		TTL:             cfg.Views.TTL,
		CleanupInterval: cfg.Views.CleanupInterval,
		Logger:          log.With(slog.String("component", "views")),
	})
	shutdown.add(func(context.Context) { _ = registry.Close() })

	limiter := h.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 5*time.Minute)
	shutdown.add(func(context.Context) { limiter.Close() })

	cookie := h.SessionCookie{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure, TTL: cfg.Auth.SessionTTL}
	routerCfg := h.RouterConfig{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Cookie:         cookie,
		PayLimiter:     limiter,
	}
	if cfg.Sandbox.Enabled {
		routerCfg.Sandbox = sandboxRoutes(cfg, log)
		log.Warn("sandbox payments and login are enabled")
	}

	bodyMax := cfg.HTTP.MaxRequestBodySize
	router := h.NewRouter(routerCfg, h.Handlers{
		Catalog:       h.NewCatalogHandler(catalog, cfg.Payments.Currency, bodyMax),
		Checkout:      h.NewCheckoutHandler(registry, cfg.Payments.ChargeTimeout+5*time.Second, bodyMax, log),
		QuoteRequests: h.NewQuoteRequestHandler(quotes, catalog, cfg.Payments.Currency, 5*time.Second, bodyMax, log),
		Auth: h.NewAuthHandler(provider,
			poller.NewReadinessPoller(identities, cfg.Auth.ReadinessBudget, cfg.Auth.ReadinessInterval, log),
			cookie, 5*time.Second, log),
		Guard: guard.New(identities, log),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("storefront starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case <-quit:
	case runErr = <-serverErr:
		log.Error("server error", slog.Any("error", runErr))
	}

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", slog.Any("error", err))
	}
	shutdown.run(ctx)
	waitTracked(ctx, tracked, log)

	log.Info("server exited")
	return runErr
}

func sandboxRoutes(cfg config.Config, log *slog.Logger) *h.SandboxRoutes {
	var decider sandbox.Decider = sandbox.ApproveAll{}
	if cfg.Sandbox.RandomDeclines {
		decider = sandbox.RandomDecline{}
	}
	idp := sandbox.NewIdentityProvider(sandbox.IdentityOptions{
		Secret:   cfg.Auth.TokenSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		ClientID: cfg.Auth.ClientID,
		Logger:   log.With(slog.String("component", "sandbox-idp")),
	})
	return &h.SandboxRoutes{
		Charge:    sandbox.NewChargeHandler(decider, cfg.Payments.Currency, log.With(slog.String("component", "sandbox-charge"))),
		Authorize: idp.Authorize,
		Token:     idp.Token,
	}
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup, log *slog.Logger, name string) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info(name + " stopped cleanly")
	case <-ctx.Done():
		log.Warn(name + " didn't stop in time")
	}
}

// waitTracked lets in-flight widget initializations and code exchanges finish.
func waitTracked(ctx context.Context, tracked *bg.Tracked, log *slog.Logger) {
	done := make(chan struct{})
	go func() {
		tracked.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("background work didn't finish in time")
	}
}

func disconnect(ctx context.Context, db *mongo.Database, log *slog.Logger) {
	if err := db.Client().Disconnect(ctx); err != nil {
		log.Warn("mongo disconnect", slog.Any("error", err))
	}
}
