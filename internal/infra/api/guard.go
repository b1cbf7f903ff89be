package api

import (
	"context"
	"net/http"
	"time"

	"reseller-billing/internal/domain/model"
	"reseller-billing/internal/infra/logging"
	"reseller-billing/internal/infra/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TraceID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := r.Header.Get("X-Request-ID")
			if tid == "" {
				tid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", tid)
			ctx := logging.WithTraceID(r.Context(), tid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequestLog(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			metrics.ObserveHTTP(route, r.Method, ww.status, time.Since(start).Seconds())

			l := logging.With(r.Context(), logger)
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.status).
				Dur("duration", time.Since(start)).
				Msg("http_request")
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func Recover(logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l := logging.With(r.Context(), logger)
					l.Error().Interface("panic", rec).Msg("panic recovered")
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ---- authentication ----

type ctxKey int

const (
	ctxActor ctxKey = iota
	ctxAccount
)

// AccountResolver loads (or creates on first sign-in) the account behind a token.
type AccountResolver interface {
	Register(ctx context.Context, id, email, displayName string) (*model.Account, error)
}

// Authenticate verifies the bearer token and puts the caller's Actor in the context.
func Authenticate(v *TokenVerifier, accounts AccountResolver, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.ParseFromRequest(r)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			acc, err := accounts.Register(r.Context(), claims.Subject, claims.Email, claims.Name)
			if err != nil {
				l := logging.With(r.Context(), logger)
				l.Error().Err(err).Str("subject", claims.Subject).Msg("resolve account failed")
				writeError(w, r, logger, err)
				return
			}
			ctx := logging.WithAccountID(r.Context(), acc.ID)
			ctx = context.WithValue(ctx, ctxActor, model.Actor{AccountID: acc.ID, Role: acc.Role})
			ctx = context.WithValue(ctx, ctxAccount, acc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects callers whose role is not on the action's allow-list.
func RequirePermission(action model.Action) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorFrom(r.Context())
			if !ok || !actor.Can(action) {
				metrics.IncAdminAction(string(action), "unauthorized")
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			metrics.IncAdminAction(string(action), "authorized")
			next.ServeHTTP(w, r)
		})
	}
}

func actorFrom(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(ctxActor).(model.Actor)
	return a, ok
}

func accountFrom(ctx context.Context) *model.Account {
	a, _ := ctx.Value(ctxAccount).(*model.Account)
	return a
}
