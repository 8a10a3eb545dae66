package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BuildFunc returns a middleware configured from the current stored settings
type BuildFunc func(ctx context.Context) (func(http.Handler) http.Handler, error)

// Reloader serves requests through a middleware that is periodically rebuilt from the database,
// so settings changed with the configure CLI apply without a restart.
type Reloader struct {
	name     string
	build    BuildFunc
	log      *zap.Logger
	interval time.Duration

	mu      sync.RWMutex
	current func(http.Handler) http.Handler
}

// NewReloader creates a reloader. A non-positive interval disables periodic reloads.
func NewReloader(name string, build BuildFunc, log *zap.Logger, interval time.Duration) *Reloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reloader{name: name, build: build, log: log, interval: interval}
}

// Middleware loads the settings once and returns a middleware that always applies the
// most recently built configuration. mux invokes the returned function per request.
func (r *Reloader) Middleware() func(http.Handler) http.Handler {
	r.Reload(context.Background())
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			mw := r.current
			r.mu.RUnlock()
			if mw == nil {
				next.ServeHTTP(w, req)
				return
			}
			mw(next).ServeHTTP(w, req)
		})
	}
}

// Start runs the reload loop until ctx is cancelled. Call after Middleware() is applied.
func (r *Reloader) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reload(ctx)
		}
	}
}

// Reload rebuilds the middleware. On failure the previous one stays in place.
func (r *Reloader) Reload(ctx context.Context) {
	mw, err := r.build(ctx)
	if err != nil {
		r.log.Error("middleware_reload_failed",
			zap.String("middleware", r.name),
			zap.Error(err),
		)
		return
	}

	r.mu.Lock()
	r.current = mw
	r.mu.Unlock()
}
