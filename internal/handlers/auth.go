package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/benvon/civiz/internal/database"
	"github.com/benvon/civiz/internal/guest"
	"github.com/benvon/civiz/internal/metrics"
	"github.com/benvon/civiz/internal/middleware"
	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/services/oidc"
	"github.com/benvon/civiz/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// MaxMigratedVisions caps how many guest visions one migration may carry
const MaxMigratedVisions = 100

// LoginProvider exposes the configured OIDC provider to clients
type LoginProvider interface {
	GetConfig(ctx context.Context) (*models.OIDCConfig, error)
	GetLoginConfig(ctx context.Context) (*oidc.LoginConfig, error)
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	provider LoginProvider
	users    database.UserRepositoryInterface
	accounts guest.AccountStore
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler. m may be nil.
func NewAuthHandler(
	provider LoginProvider,
	users database.UserRepositoryInterface,
	accounts guest.AccountStore,
	m *metrics.Collector,
	log *zap.Logger,
) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{provider: provider, users: users, accounts: accounts, metrics: m, logger: log}
}

// RegisterPublicRoutes registers the login routes, which need no token.
// The router should already have the /auth prefix.
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods("GET")
	r.HandleFunc("/oidc/token", h.ExchangeToken).Methods("POST")
}

// RegisterRoutes registers the authenticated auth routes
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
	r.HandleFunc("/migrate-guest", h.MigrateGuest).Methods("POST")
}

// TokenRequest is an authorization code to exchange
type TokenRequest struct {
	Code string `json:"code" validate:"required,max=2048"`
}

// GetOIDCLogin returns OIDC configuration for clients
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	loginConfig, err := h.provider.GetLoginConfig(r.Context())
	if err != nil {
		h.logger.Error("failed_to_get_login_config", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get OIDC configuration")
		return
	}

	respondJSON(w, http.StatusOK, loginConfig)
}

// ExchangeToken trades an authorization code for tokens
func (h *AuthHandler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()
	config, err := h.provider.GetConfig(ctx)
	if err != nil {
		h.logger.Error("failed_to_get_oidc_config", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get OIDC configuration")
		return
	}
	login, err := h.provider.GetLoginConfig(ctx)
	if err != nil {
		h.logger.Error("failed_to_get_login_config", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get OIDC configuration")
		return
	}

	tokens, err := oidc.NewClient(config, login).ExchangeCode(ctx, req.Code)
	if err != nil {
		h.logger.Info("authorization_code_exchange_failed", zap.Error(err))
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Authorization code was rejected")
		return
	}
	respondJSON(w, http.StatusOK, tokens)
}

// GetMe returns the caller with their points and activity counts
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	profile, err := h.users.GetProfile(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "User not found")
			return
		}
		h.logger.Error("failed_to_get_profile", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// MigrateGuest moves a guest's visions and points into the caller's
// account. Each call migrates once; clients decide whether to call again.
func (h *AuthHandler) MigrateGuest(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var snap guest.Snapshot
	if !decodeAndValidate(w, r, &snap) {
		return
	}
	if len(snap.Visions) > MaxMigratedVisions {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Too many guest visions")
		return
	}
	if err := snap.CheckPoints(); err != nil {
		h.logger.Warn("guest_points_rejected", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Guest points do not match guest visions")
		return
	}

	snap, rejected := cleanSnapshot(snap)

	migrator := &guest.AccountMigrator{Accounts: h.accounts, AccountID: user.ID, Logger: h.logger}
	result, err := migrator.MigrateGuest(r.Context(), snap)
	h.metrics.GuestMigrated(err, result.MigratedCount)
	if err != nil {
		h.logger.Error("guest_migration_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		if errors.Is(err, guest.ErrAccountNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Account not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to migrate guest data")
		return
	}

	result.FailedCount += rejected
	respondJSON(w, http.StatusOK, result)
}

// cleanSnapshot sanitizes guest vision text and drops visions whose text is
// unusable, reporting how many were dropped.
func cleanSnapshot(snap guest.Snapshot) (guest.Snapshot, int) {
	kept := make([]models.Vision, 0, len(snap.Visions))
	for _, v := range snap.Visions {
		text, err := validation.VisionText(v.Text)
		if err != nil {
			continue
		}
		v.Text = text
		kept = append(kept, v)
	}
	rejected := len(snap.Visions) - len(kept)
	snap.Visions = kept
	return snap, rejected
}
