package handlers

import (
	"errors"
	"net/http"

	"github.com/benvon/civiz/internal/categories"
	"github.com/benvon/civiz/internal/database"
	"github.com/benvon/civiz/internal/middleware"
	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/points"
	"github.com/benvon/civiz/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// FundingHandler records funding pledges to budget categories
type FundingHandler struct {
	users    database.UserRepositoryInterface
	registry *categories.Registry
	logger   *zap.Logger
}

// NewFundingHandler creates a new funding handler
func NewFundingHandler(users database.UserRepositoryInterface, registry *categories.Registry, log *zap.Logger) *FundingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &FundingHandler{users: users, registry: registry, logger: log}
}

// RegisterRoutes registers funding routes
// The router should already have the /funding prefix
func (h *FundingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Fund).Methods("POST")
}

// FundingResponse is the caller's balance after a pledge
type FundingResponse struct {
	CategoryID    string               `json:"category_id"`
	Amount        int                  `json:"amount"`
	PointsAwarded int                  `json:"points_awarded"`
	Account       models.PointsAccount `json:"account"`
}

// Fund credits funding points for a pledge to a category
func (h *FundingHandler) Fund(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req validation.FundingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if _, ok := h.registry.Lookup(req.CategoryID); !ok {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Unknown category")
		return
	}

	account, err := h.users.CreditFunding(r.Context(), user.ID, req.Amount)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "User not found")
			return
		}
		h.logger.Error("failed_to_credit_funding",
			zap.String("user_id", user.ID.String()),
			zap.String("category_id", req.CategoryID),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to record funding")
		return
	}

	h.logger.Info("funding_recorded",
		zap.String("user_id", user.ID.String()),
		zap.String("category_id", req.CategoryID),
		zap.Int("amount", req.Amount),
	)
	respondJSON(w, http.StatusOK, FundingResponse{
		CategoryID:    req.CategoryID,
		Amount:        req.Amount,
		PointsAwarded: points.OnFunding(req.Amount),
		Account:       account,
	})
}
