package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"reseller-billing/internal/config"
	"reseller-billing/internal/domain/model"
	uc "reseller-billing/internal/domain/ports/usecase"
	"reseller-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Limiter is a per-key fixed-window limiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Deps are the use cases the HTTP surface calls into.
type Deps struct {
	Accounts      usecase.AccountUseCase
	Invoices      usecase.InvoiceUseCase
	Entitlements  usecase.EntitlementUseCase
	Notifications usecase.NotificationUseCase
	Stats         usecase.StatsUseCase
	Plans         *usecase.PlanUseCase
	Expiry        uc.ExpiryRunner
	Limiter       Limiter // nil disables invoice rate limiting
	Verifier      *TokenVerifier
}

type Server struct {
	cfg    *config.Config
	deps   Deps
	log    *zerolog.Logger
	srv    *http.Server
	now    func() time.Time
	router chi.Router
}

func NewServer(cfg *config.Config, deps Deps, logger *zerolog.Logger) *Server {
	compLog := logger.With().Str("component", "api").Logger()
	s := &Server{cfg: cfg, deps: deps, log: &compLog, now: time.Now}
	s.router = s.routes()
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		TraceID(),
		Recover(s.log),
		RequestLog(s.log),
		Timeout(s.cfg.HTTP.RequestTimeout),
		cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.HTTP.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", s.listPlans)
		r.Get("/plans/{tier}", s.getPlan)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.deps.Verifier, s.deps.Accounts, s.log))

			r.Get("/me", s.getMe)
			r.Get("/me/entitlements", s.getMyEntitlements)
			r.Get("/me/entitlements/{feature}", s.checkFeature)
			r.Get("/me/limits", s.checkItemLimit)
			r.Get("/me/history", s.getMyHistory)

			r.Post("/invoices", s.createInvoice)
			r.Get("/invoices", s.listMyInvoices)
			r.Get("/invoices/{id}", s.getInvoice)
			r.Post("/invoices/{id}/evidence", s.attachEvidence)

			r.Get("/notifications", s.listNotifications)
			r.Post("/notifications/{id}/read", s.markNotificationRead)
			r.With(RequirePermission(model.ActionManageInventory)).Post("/stock-alerts", s.stockAlert)

			r.Route("/admin", func(r chi.Router) {
				r.With(RequirePermission(model.ActionVerifyPayments)).Get("/invoices", s.adminListInvoices)
				r.With(RequirePermission(model.ActionVerifyPayments)).Post("/invoices/{id}/verify", s.adminVerifyInvoice)
				r.With(RequirePermission(model.ActionVerifyPayments)).Post("/invoices/{id}/expire", s.adminExpireInvoice)
				r.With(RequirePermission(model.ActionManageSubscriptions)).Put("/invoices/{id}/status", s.adminForceStatus)
				r.With(RequirePermission(model.ActionManageSubscriptions)).Delete("/invoices/{id}", s.adminDeleteInvoice)

				r.With(RequirePermission(model.ActionManageUsers)).Get("/accounts/{id}", s.adminGetAccount)
				r.With(RequirePermission(model.ActionManageSubscriptions)).Put("/accounts/{id}/tier", s.adminSetTier)
				r.With(RequirePermission(model.ActionManageUsers)).Put("/accounts/{id}/role", s.adminSetRole)
				r.With(RequirePermission(model.ActionManageUsers)).Get("/accounts/{id}/history", s.adminTierHistory)

				r.With(RequirePermission(model.ActionViewSystemLogs)).Get("/stats", s.adminStats)
				r.With(RequirePermission(model.ActionManageSubscriptions)).Post("/jobs/expiry", s.adminRunExpiry)
				r.With(RequirePermission(model.ActionManageSubscriptions)).Post("/jobs/invoice-sweep", s.adminRunSweep)
			})
		})
	})
	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server starting")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
