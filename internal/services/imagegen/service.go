// Package imagegen illustrates visions. Generation failures never reach the
// caller: the service answers with the category's fallback image instead.
package imagegen

import (
	"context"
	"errors"
	"time"

	"github.com/benvon/civiz/internal/categories"
	"github.com/benvon/civiz/internal/logger"
	"github.com/benvon/civiz/internal/metrics"
	"github.com/benvon/civiz/internal/telemetry"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FallbackModel labels results that use a fallback image
const FallbackModel = "fallback"

// Result is the image chosen for a vision
type Result struct {
	ImageURL      string `json:"image_url"`
	Prompt        string `json:"prompt"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
	Model         string `json:"model"`
	Fallback      bool   `json:"fallback"`
}

// BreakerConfig controls when the service stops calling a failing provider
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used in production
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Service generates vision images with fallback
type Service struct {
	generator Generator
	registry  *categories.Registry
	breaker   *gobreaker.CircuitBreaker
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLogger sets the logger. A nil logger keeps the no-op default.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Collector) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTimeout bounds each generation call
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithBreaker replaces the default breaker settings
func WithBreaker(cfg BreakerConfig) ServiceOption {
	return func(s *Service) {
		s.breaker = newBreaker(cfg, s)
	}
}

// NewService creates a service. A nil generator is allowed and makes every
// result a fallback.
func NewService(generator Generator, registry *categories.Registry, opts ...ServiceOption) *Service {
	s := &Service{
		generator: generator,
		registry:  registry,
		timeout:   DefaultTimeout,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = newBreaker(DefaultBreakerConfig(), s)
	}
	return s
}

func newBreaker(cfg BreakerConfig, s *Service) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "image-generation",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			s.logger.Warn("circuit_breaker_state_changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// a refused prompt says nothing about provider health
			return err == nil || IsContentPolicyError(err)
		},
	})
}

// Generate illustrates text for category. It always returns a usable image.
func (s *Service) Generate(ctx context.Context, text string, category categories.Category) Result {
	prompt := BuildPrompt(text, category.Prompt)
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "imagegen.generate",
		attribute.String("category_id", category.ID),
		attribute.String("breaker_state", s.BreakerState()),
	)
	defer span.End()

	img, err := s.call(ctx, prompt)
	span.SetAttributes(attribute.Bool("fallback", err != nil))
	if err == nil {
		s.metrics.ImageGenerated(false, time.Since(start))
		return Result{
			ImageURL:      img.URL,
			Prompt:        prompt,
			RevisedPrompt: img.RevisedPrompt,
			Model:         img.Model,
		}
	}

	s.metrics.ImageGenerated(true, time.Since(start))
	if !errors.Is(err, ErrNoGenerator) {
		telemetry.RecordError(span, err)
		s.logger.Warn("image_generation_failed",
			zap.String("category_id", category.ID),
			zap.String("reason", reason(err)),
			zap.String("prompt_preview", logger.Preview(prompt)),
			zap.Error(err),
		)
	}
	return Result{
		ImageURL: s.FallbackURL(category.ID),
		Prompt:   prompt,
		Model:    FallbackModel,
		Fallback: true,
	}
}

func (s *Service) call(ctx context.Context, prompt string) (*Image, error) {
	if s.generator == nil {
		return nil, ErrNoGenerator
	}
	out, err := s.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.generator.GenerateImage(callCtx, prompt)
	})
	if err != nil {
		return nil, err
	}
	img, ok := out.(*Image)
	if !ok || img == nil || img.URL == "" {
		return nil, ErrNoImage
	}
	return img, nil
}

// FallbackURL is the deterministic image for a category. Unknown ids use the
// default category's image.
func (s *Service) FallbackURL(categoryID string) string {
	return s.registry.CategoryOrDefault(categoryID).FallbackImageURL
}

// BreakerState reports the circuit breaker state, for health checks
func (s *Service) BreakerState() string {
	return s.breaker.State().String()
}
