package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/civiz/internal/categories"
	"github.com/benvon/civiz/internal/conversion"
	"github.com/benvon/civiz/internal/metrics"
	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/ratelimit"
	"github.com/benvon/civiz/internal/request"
	"github.com/benvon/civiz/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	lastFreeVisionMessage = "Last free vision! Sign up for unlimited generations."
	rateLimitedMessage    = "You've created amazing visions! Sign up to continue unlimited civic visioning."
)

// QuotaChecker spends one anonymous generation for a key
type QuotaChecker interface {
	Check(ctx context.Context, key string) (ratelimit.Result, error)
}

// AnonymousHandler serves vision generation for callers without an account.
// Results are watermarked and not stored; the guest keeps them locally.
type AnonymousHandler struct {
	quota    QuotaChecker
	registry *categories.Registry
	images   ImageGenerator
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewAnonymousHandler creates a new anonymous vision handler. m may be nil.
func NewAnonymousHandler(
	quota QuotaChecker,
	registry *categories.Registry,
	images ImageGenerator,
	m *metrics.Collector,
	log *zap.Logger,
) *AnonymousHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnonymousHandler{quota: quota, registry: registry, images: images, metrics: m, logger: log}
}

// RegisterRoutes registers the anonymous route on the /visions router
func (h *AnonymousHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/anonymous", h.CreateAnonymousVision).Methods("POST")
}

// AnonymousVisionResponse is a watermarked guest vision and the caller's quota
type AnonymousVisionResponse struct {
	Vision    models.Vision       `json:"vision"`
	Category  categories.Category `json:"category"`
	Remaining int                 `json:"remaining"`
	ResetTime time.Time           `json:"reset_time"`
	Message   string              `json:"message"`
}

// RateLimitedResponse is returned when the caller's free generations are spent
type RateLimitedResponse struct {
	Allowed    bool                    `json:"allowed"`
	Remaining  int                     `json:"remaining"`
	ResetTime  time.Time               `json:"reset_time"`
	Conversion conversion.Presentation `json:"conversion"`
}

// CreateAnonymousVision generates a vision against the per-IP daily quota
func (h *AnonymousHandler) CreateAnonymousVision(w http.ResponseWriter, r *http.Request) {
	var req validation.VisionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	text, err := validation.VisionText(req.Text)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	cat, ok := resolveCategory(h.registry, req.CategoryID, text)
	if !ok {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Unknown category")
		return
	}

	ctx := r.Context()
	ip := request.ClientIP(r)
	quota, err := h.quota.Check(ctx, ratelimit.KeyForIP(ip))
	if err != nil {
		// Fail closed.
		h.logger.Error("anonymous_quota_check_failed", zap.String("ip", ip), zap.Error(err))
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Unable to check generation quota")
		return
	}

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining))
	if !quota.Allowed {
		h.metrics.RateLimited()
		h.logger.Info("anonymous_rate_limited", zap.String("ip", ip), zap.Time("reset_time", quota.ResetTime))
		respondRateLimited(w, quota)
		return
	}

	img := h.images.Generate(ctx, text, cat)
	v := models.Vision{
		ID:           uuid.New(),
		Text:         text,
		ImageURL:     img.ImageURL,
		Prompt:       img.Prompt,
		CategoryID:   cat.ID,
		HasWatermark: true,
		IsAnonymous:  true,
		CreatedAt:    time.Now().UTC(),
	}

	h.metrics.VisionCreated("anonymous")
	h.logger.Info("anonymous_vision_created",
		zap.String("vision_id", v.ID.String()),
		zap.String("category_id", cat.ID),
		zap.Int("remaining", quota.Remaining),
	)

	respondJSON(w, http.StatusCreated, AnonymousVisionResponse{
		Vision:    v,
		Category:  cat,
		Remaining: quota.Remaining,
		ResetTime: quota.ResetTime,
		Message:   quotaMessage(quota.Remaining),
	})
}

func quotaMessage(remaining int) string {
	if remaining == 0 {
		return lastFreeVisionMessage
	}
	return fmt.Sprintf("%d free generations remaining today.", remaining)
}

// respondRateLimited writes a 429 carrying the sign-up bundle. Running out
// of free generations is an expected outcome, so there is no error type.
func respondRateLimited(w http.ResponseWriter, quota ratelimit.Result) {
	reset := quota.ResetTime.UTC()
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", reset.Format(time.RFC3339))
	writeResponse(w, http.StatusTooManyRequests, Response{
		Data: RateLimitedResponse{
			Allowed:    false,
			Remaining:  0,
			ResetTime:  reset,
			Conversion: conversion.DecideTrigger(conversion.TriggerRateLimit),
		},
		Message: rateLimitedMessage,
	})
}
