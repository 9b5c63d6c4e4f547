package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/request"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"go.uber.org/zap"
)

// DefaultAPIRate is the general API request rate per client IP
const DefaultAPIRate = "5-S"

// RatelimitConfigStore reads and seeds the stored rate limit settings
type RatelimitConfigStore interface {
	Get(ctx context.Context) (*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// RateLimitReloader applies the general API rate with ulule/limiter and
// periodically reloads the rate from the database. It can also push the
// stored anonymous generation limit to a callback.
type RateLimitReloader struct {
	store       limiter.Store
	repo        RatelimitConfigStore
	defaultRate string
	onAnonLimit func(int)
	log         *zap.Logger
	interval    time.Duration
	mu          sync.RWMutex
	current     *stdlibmw.Middleware
}

// NewRateLimitReloader creates the reloader over a limiter store (redis or
// memory). Until the first Load it applies defaultRate.
func NewRateLimitReloader(store limiter.Store, repo RatelimitConfigStore, defaultRate string, log *zap.Logger, reloadInterval time.Duration) *RateLimitReloader {
	if defaultRate == "" {
		defaultRate = DefaultAPIRate
	}
	r := &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
	if rate, err := limiter.NewRateFromFormatted(defaultRate); err == nil {
		r.current = r.build(rate)
	} else {
		log.Error("failed_to_parse_default_rate_limit", zap.String("rate_str", defaultRate), zap.Error(err))
	}
	return r
}

// OnAnonymousLimit registers fn to receive stored anonymous limits above zero
func (r *RateLimitReloader) OnAnonymousLimit(fn func(int)) {
	r.onAnonLimit = fn
}

// Middleware wraps next with the currently loaded rate. It holds no
// per-route state, so it may be applied to any number of routers.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.mu.RLock()
			m := r.current
			r.mu.RUnlock()
			if m == nil {
				next.ServeHTTP(w, req)
				return
			}
			m.Handler(next).ServeHTTP(w, req)
		})
	}
}

// Start loads the config and reloads it every interval until ctx is cancelled
func (r *RateLimitReloader) Start(ctx context.Context) {
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

// Load reads the stored rate, seeding the default when none is stored
func (r *RateLimitReloader) Load(ctx context.Context) {
	rateStr := r.defaultRate
	cfg, err := r.repo.Get(ctx)
	switch {
	case err != nil:
		r.log.Warn("failed_to_load_ratelimit_config_from_db_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
	case cfg != nil && cfg.Rate != "":
		rateStr = cfg.Rate
		if cfg.AnonymousLimit > 0 && r.onAnonLimit != nil {
			r.onAnonLimit(cfg.AnonymousLimit)
		}
	default:
		if err := r.repo.Set(ctx, &models.RatelimitConfig{Rate: r.defaultRate}); err != nil {
			r.log.Error("failed_to_save_default_ratelimit_config",
				zap.Error(err),
				zap.String("default_rate", r.defaultRate),
			)
		}
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_using_default",
			zap.Error(err),
			zap.String("rate_str", rateStr),
		)
		rate, err = limiter.NewRateFromFormatted(r.defaultRate)
		if err != nil {
			r.log.Error("failed_to_parse_default_rate_limit", zap.Error(err))
			return
		}
	}

	m := r.build(rate)
	r.mu.Lock()
	r.current = m
	r.mu.Unlock()
}

func (r *RateLimitReloader) build(rate limiter.Rate) *stdlibmw.Middleware {
	instance := limiter.New(r.store, rate)
	return stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(func(req *http.Request) string {
		return "api:" + request.ClientIP(req)
	}))
}
