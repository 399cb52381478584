// Package adminhttp is PayMCP's operational side-channel: a small
// go-chi router exposing liveness and basic usage stats for the state
// store, guarded by go-chi/cors for local dashboard use. This is not
// the tool-call wire protocol — the core has none — it is the same
// class of side-channel surface the teacher exposes alongside its
// payment API.
package adminhttp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/paymcp/paymcp-go/paylog"
	"github.com/paymcp/paymcp-go/store"
)

// MemoryStoreStats adapts a MemoryStore into a StatsProvider, the
// form /stats exposes it in.
type MemoryStoreStats struct{ Store *store.MemoryStore }

// Stats implements StatsProvider.
func (m MemoryStoreStats) Stats() StoreStats {
	return StoreStats{Backend: "memory", LiveEntries: m.Store.Len()}
}

// StoreStats is the subset of store-health information exposed over
// /stats. A concrete store.Store backend adapts its own internals
// (e.g. MemoryStore.Len) into this shape.
type StoreStats struct {
	Backend     string `json:"backend"`
	LiveEntries int    `json:"live_entries"`
}

// StatsProvider is implemented by anything that can report StoreStats
// on demand, e.g. a thin wrapper around a store.MemoryStore.
type StatsProvider interface {
	Stats() StoreStats
}

// Options configures the admin router.
type Options struct {
	Stats StatsProvider
	// AllowedOrigins configures go-chi/cors; defaults to "*" for local
	// dashboard use, matching the teacher's development CORS policy.
	AllowedOrigins []string
	StartedAt      time.Time
}

// NewRouter builds the admin HTTP surface: GET /health and GET
// /stats, wrapped in panic recovery and request logging the way the
// teacher's middleware stack does it.
func NewRouter(opts Options) http.Handler {
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = time.Now()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler(opts))
	r.Get("/stats", statsHandler(opts))

	return r
}

func healthHandler(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"uptime_sec": int(time.Since(opts.StartedAt).Seconds()),
		})
	}
}

func statsHandler(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if opts.Stats == nil {
			writeJSON(w, http.StatusOK, StoreStats{Backend: "unknown"})
			return
		}
		writeJSON(w, http.StatusOK, opts.Stats.Stats())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// requestLogger logs each request's method, path, status, and
// duration through paylog, grounded on the teacher's logging
// middleware.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		paylog.Info("admin request", paylog.LogContext{
			Fields: map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
			},
		})
	})
}
