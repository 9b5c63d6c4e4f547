package handlers

import (
	"net/http"

	"github.com/benvon/civiz/internal/categories"
	"github.com/benvon/civiz/internal/validation"
	"github.com/gorilla/mux"
)

// CategoryHandler serves the budget category registry
type CategoryHandler struct {
	registry *categories.Registry
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(registry *categories.Registry) *CategoryHandler {
	return &CategoryHandler{registry: registry}
}

// RegisterRoutes registers category routes on the given router
// The router should already have the /categories prefix
func (h *CategoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListCategories).Methods("GET")
	r.HandleFunc("/budget", h.GetBudget).Methods("GET")
	r.HandleFunc("/categorize", h.Categorize).Methods("POST")
	r.HandleFunc("/{id}", h.GetCategory).Methods("GET")
}

// CategorizeResponse is the category chosen for a piece of text
type CategorizeResponse struct {
	Category categories.Category `json:"category"`
	// Matched is false when no keyword matched and the default was used
	Matched bool `json:"matched"`
}

// BudgetResponse summarizes the city budget across all categories
type BudgetResponse struct {
	TotalBudget      float64 `json:"total_budget"`
	RemainingFunding float64 `json:"remaining_funding"`
	Categories       int     `json:"categories"`
}

// ListCategories returns every category in registry order
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.All())
}

// GetCategory returns one category by id
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cat, ok := h.registry.Lookup(id)
	if !ok {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Category not found")
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

// Categorize matches text against the registry
func (h *CategoryHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req validation.CategorizeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cat, ok := h.registry.Categorize(req.Text)
	if !ok {
		cat = h.registry.Default()
	}
	respondJSON(w, http.StatusOK, CategorizeResponse{Category: cat, Matched: ok})
}

// GetBudget returns the total city budget
func (h *CategoryHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	all := h.registry.All()
	resp := BudgetResponse{
		TotalBudget: h.registry.TotalBudget(),
		Categories:  len(all),
	}
	for _, c := range all {
		resp.RemainingFunding += c.RemainingFunding
	}
	respondJSON(w, http.StatusOK, resp)
}
