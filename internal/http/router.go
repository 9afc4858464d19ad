// Package http is the storefront's HTTP surface: catalog and quote endpoints, checkout
// views, the login flow and the sandbox stand-ins for local runs.
package http

import (
	"net/http"
	"time"

	"github.com/M2labo/mm-lp-page/internal/charge"
	"github.com/M2labo/mm-lp-page/internal/guard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SandboxRoutes are mounted only when the sandbox is enabled.
type SandboxRoutes struct {
	Charge    http.Handler
	Authorize http.HandlerFunc
	Token     http.HandlerFunc
}

type RouterConfig struct {
	RequestTimeout time.Duration
	Cookie         SessionCookie
	PayLimiter     *RateLimiter
	Sandbox        *SandboxRoutes
}

type Handlers struct {
	Catalog       *CatalogHandler
	Checkout      *CheckoutHandler
	QuoteRequests *QuoteRequestHandler
	Auth          *AuthHandler
	Guard         *guard.RouteGuard
}

func NewRouter(cfg RouterConfig, hs Handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", hs.Catalog.GetCatalog)
		r.Post("/quote", hs.Catalog.Quote)

		r.Route("/checkout/views", func(r chi.Router) {
			r.Post("/", hs.Checkout.CreateView)
			r.Get("/{id}", hs.Checkout.GetView)
			r.Delete("/{id}", hs.Checkout.DeleteView)
			r.With(limit(cfg.PayLimiter)).Post("/{id}/pay", hs.Checkout.Pay)
		})

		r.Route("/quote-requests", func(r chi.Router) {
			r.Use(limit(cfg.PayLimiter))
			r.Post("/", hs.QuoteRequests.Create)
			r.Get("/", hs.QuoteRequests.List)
			r.Get("/{id}", hs.QuoteRequests.Get)
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", hs.Auth.Login)
		r.Get("/callback", hs.Auth.Callback)
		r.Post("/logout", hs.Auth.Logout)
	})

	r.With(hs.Guard.Middleware(cfg.Cookie.ID)).Get("/mypage", hs.Auth.MyPage)

	if sb := cfg.Sandbox; sb != nil {
		if sb.Charge != nil {
			r.Method(http.MethodPost, charge.DefaultPath, sb.Charge)
		}
		if sb.Authorize != nil && sb.Token != nil {
			r.Get("/sandbox/oauth2/authorize", sb.Authorize)
			r.Post("/sandbox/oauth2/token", sb.Token)
		}
	}

	return r
}

func limit(l *RateLimiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return l.Middleware
}
