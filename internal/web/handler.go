// Package web is the relay's HTTP surface: the OAuth round trip, the
// authenticated user/bot API, the Attendee webhook receiver, and the two
// static pages.
package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/attendee-labs/managed-zoom-oauth-example/internal/attendee"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/config"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/journal"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/session"
	"github.com/attendee-labs/managed-zoom-oauth-example/internal/store"
)

type Deps struct {
	Config   config.Config
	Store    *store.Store
	Sessions *session.Manager
	Attendee *attendee.Client
	Journal  *journal.Journal // optional; if nil, events are only logged
	Logger   *slog.Logger     // optional; defaults to slog.Default()
}

// NewHandler builds the relay's router.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/", handleHome(deps))
	r.Get("/zoom_oauth", handleOAuthStart(deps))
	r.Get("/zoom_oauth_callback", handleOAuthCallback(deps))
	r.Get("/dashboard", handleDashboard(deps))
	r.Get("/logout", handleLogout(deps))

	r.Get("/api/user", handleAPIUser(deps))
	r.Post("/api/launch-bot", handleLaunchBot(deps))
	r.Get("/api/events", handleEvents(deps))

	r.Post("/attendee-webhook", handleWebhook(deps))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}

// requestLogger logs one line per request once the response is written.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// appendEvent journals an event; journal failures are logged and swallowed,
// they must never fail the request that produced them.
func appendEvent(deps Deps, e journal.Event) {
	if deps.Journal == nil {
		return
	}
	if err := deps.Journal.Append(e); err != nil {
		deps.Logger.Error("appending journal event", "kind", e.Kind, "user_id", e.UserID, "error", err)
	}
}
