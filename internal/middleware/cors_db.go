package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benvon/civiz/internal/models"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// CorsConfigStore reads the stored CORS settings
type CorsConfigStore interface {
	Get(ctx context.Context) (*models.CorsConfig, error)
}

// CORSReloader applies rs/cors with origins loaded from the database and
// reloaded periodically.
type CORSReloader struct {
	repo     CorsConfigStore
	fallback string // FRONTEND_URL
	log      *zap.Logger
	interval time.Duration
	mu       sync.RWMutex
	current  *cors.Cors
}

// NewCORSReloader creates the reloader. Until the first Load it applies the
// fallback origin.
func NewCORSReloader(repo CorsConfigStore, frontendURLFallback string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	r := &CORSReloader{
		repo:     repo,
		fallback: strings.TrimSpace(frontendURLFallback),
		log:      log,
		interval: reloadInterval,
	}
	r.current = cors.New(r.options(nil))
	return r
}

// Middleware wraps next with the currently loaded CORS policy. It holds no
// per-route state, so it may be applied to any number of routers.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			c := r.current
			r.mu.RUnlock()
			c.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start loads the config and reloads it every interval until ctx is cancelled
func (r *CORSReloader) Start(ctx context.Context) {
	r.Load(ctx)
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
			r.Load(ctx)
		}
	}
}

// Load reads the stored config, falling back to FRONTEND_URL
func (r *CORSReloader) Load(ctx context.Context) {
	cfg, err := r.repo.Get(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_cors_config_using_fallback", zap.Error(err))
		cfg = nil
	}
	c := cors.New(r.options(cfg))
	r.mu.Lock()
	r.current = c
	r.mu.Unlock()
}

func (r *CORSReloader) options(cfg *models.CorsConfig) cors.Options {
	origins := models.ParseOrigins(r.fallback)
	allowCreds := true
	maxAge := 86400
	if cfg != nil {
		origins = cfg.Origins()
		allowCreds = cfg.AllowCredentials
		maxAge = cfg.MaxAge
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: allowCreds,
		MaxAge:           maxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
	}
}
