package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/benvon/civiz/internal/categories"
	"github.com/benvon/civiz/internal/database"
	"github.com/benvon/civiz/internal/logger"
	"github.com/benvon/civiz/internal/metrics"
	"github.com/benvon/civiz/internal/middleware"
	"github.com/benvon/civiz/internal/models"
	"github.com/benvon/civiz/internal/services/imagegen"
	"github.com/benvon/civiz/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ImageGenerator illustrates a vision. It never fails; failures come back
// as a fallback image.
type ImageGenerator interface {
	Generate(ctx context.Context, text string, category categories.Category) imagegen.Result
}

// VisionHandler handles vision-related requests
type VisionHandler struct {
	visions  database.VisionRepositoryInterface
	registry *categories.Registry
	images   ImageGenerator
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewVisionHandler creates a new vision handler. m may be nil.
func NewVisionHandler(
	visions database.VisionRepositoryInterface,
	registry *categories.Registry,
	images ImageGenerator,
	m *metrics.Collector,
	log *zap.Logger,
) *VisionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &VisionHandler{visions: visions, registry: registry, images: images, metrics: m, logger: log}
}

// RegisterRoutes registers vision routes on the given router
// The router should already have the /visions prefix and optional auth
func (h *VisionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListCommunity).Methods("GET")
	r.HandleFunc("", h.CreateVision).Methods("POST")
	r.HandleFunc("/mine", h.ListMine).Methods("GET")
	r.HandleFunc("/{id}", h.GetVision).Methods("GET")
	r.HandleFunc("/{id}/like", h.ToggleLike).Methods("POST")
}

// VisionItem is a vision as listed to a viewer
type VisionItem struct {
	*models.Vision
	LikedByMe bool `json:"liked_by_me"`
}

// ListVisionsResponse represents the paginated community feed
type ListVisionsResponse struct {
	Visions    []VisionItem `json:"visions"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	Total      int          `json:"total"`
	TotalPages int          `json:"total_pages"`
}

// CreateVisionResponse is a stored vision with the owner's new balance
type CreateVisionResponse struct {
	Vision        *models.Vision       `json:"vision"`
	Account       models.PointsAccount `json:"account"`
	Category      categories.Category  `json:"category"`
	ImageFallback bool                 `json:"image_fallback"`
}

// ListCommunity lists every account vision ranked by points, likes, then recency
func (h *VisionHandler) ListCommunity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, pageSize := pagination(r)

	visions, total, err := h.visions.ListCommunity(ctx, page, pageSize)
	if err != nil {
		h.logger.Error("failed_to_list_visions", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve visions")
		return
	}

	items, err := h.items(ctx, middleware.UserFromContext(r), visions)
	if err != nil {
		h.logger.Error("failed_to_load_likes", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve visions")
		return
	}

	respondJSON(w, http.StatusOK, ListVisionsResponse{
		Visions:    items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages(total, pageSize),
	})
}

// ListMine lists the caller's own visions, newest first
func (h *VisionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Sign in to see your visions")
		return
	}

	ctx := r.Context()
	visions, err := h.visions.ListByOwner(ctx, user.ID)
	if err != nil {
		h.logger.Error("failed_to_list_user_visions", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve visions")
		return
	}

	items, err := h.items(ctx, user, visions)
	if err != nil {
		h.logger.Error("failed_to_load_likes", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve visions")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// GetVision returns one vision
func (h *VisionHandler) GetVision(w http.ResponseWriter, r *http.Request) {
	id, ok := visionID(w, r)
	if !ok {
		return
	}

	v, err := h.visions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrVisionNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Vision not found")
			return
		}
		h.logger.Error("failed_to_get_vision", zap.String("vision_id", id.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve vision")
		return
	}

	items, err := h.items(r.Context(), middleware.UserFromContext(r), []*models.Vision{v})
	if err != nil {
		h.logger.Error("failed_to_load_likes", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve vision")
		return
	}
	respondJSON(w, http.StatusOK, items[0])
}

// CreateVision categorizes, illustrates and stores a vision for the caller,
// crediting submission points in the same transaction.
func (h *VisionHandler) CreateVision(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Sign in to save visions")
		return
	}

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
	img := h.images.Generate(ctx, text, cat)

	owner := user.ID
	v := &models.Vision{
		ID:         uuid.New(),
		Text:       text,
		ImageURL:   img.ImageURL,
		Prompt:     img.Prompt,
		CategoryID: cat.ID,
		OwnerID:    &owner,
		CreatedAt:  time.Now().UTC(),
	}

	account, err := h.visions.CreateWithSubmission(ctx, v)
	if err != nil {
		h.logger.Error("failed_to_create_vision",
			zap.String("user_id", user.ID.String()),
			zap.String("text_preview", logger.Preview(text)),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save vision")
		return
	}

	h.metrics.VisionCreated("account")
	h.logger.Info("vision_created",
		zap.String("vision_id", v.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("category_id", cat.ID),
		zap.Bool("image_fallback", img.Fallback),
	)

	respondJSON(w, http.StatusCreated, CreateVisionResponse{
		Vision:        v,
		Account:       account,
		Category:      cat,
		ImageFallback: img.Fallback,
	})
}

// ToggleLike likes a vision, or removes the caller's existing like
func (h *VisionHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Sign in to like visions")
		return
	}
	id, ok := visionID(w, r)
	if !ok {
		return
	}

	result, err := h.visions.ToggleLike(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, database.ErrVisionNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Vision not found")
			return
		}
		h.logger.Error("failed_to_toggle_like",
			zap.String("vision_id", id.String()),
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update like")
		return
	}

	h.metrics.LikeToggled(result.Liked)
	respondJSON(w, http.StatusOK, result)
}

// resolveCategory looks up an explicit category id, or categorizes text when
// none was given. Unmatched text gets the default category; only an unknown
// explicit id reports false.
func resolveCategory(registry *categories.Registry, id, text string) (categories.Category, bool) {
	if id != "" {
		return registry.Lookup(id)
	}
	if cat, ok := registry.Categorize(text); ok {
		return cat, true
	}
	return registry.Default(), true
}

func (h *VisionHandler) items(ctx context.Context, viewer *models.User, visions []*models.Vision) ([]VisionItem, error) {
	items := make([]VisionItem, len(visions))
	for i, v := range visions {
		items[i] = VisionItem{Vision: v}
	}
	if viewer == nil || len(visions) == 0 {
		return items, nil
	}

	ids := make([]uuid.UUID, len(visions))
	for i, v := range visions {
		ids[i] = v.ID
	}
	liked, err := h.visions.LikedBy(ctx, viewer.ID, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].LikedByMe = liked[items[i].ID]
	}
	return items, nil
}

func visionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid vision ID")
		return uuid.Nil, false
	}
	return id, true
}
