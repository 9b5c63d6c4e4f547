package handlers

import (
	"net/http"

	"github.com/benvon/civiz/internal/conversion"
	"github.com/gorilla/mux"
)

// ConversionHandler serves the sign-up prompt for an interaction
type ConversionHandler struct{}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler() *ConversionHandler {
	return &ConversionHandler{}
}

// RegisterRoutes registers conversion routes
// The router should already have the /conversion prefix
func (h *ConversionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTriggers).Methods("GET")
	r.HandleFunc("/{trigger}", h.GetPresentation).Methods("GET")
}

// ListTriggers returns every bundle in display order
func (h *ConversionHandler) ListTriggers(w http.ResponseWriter, r *http.Request) {
	out := make([]conversion.Presentation, 0, len(conversion.Triggers))
	for _, t := range conversion.Triggers {
		out = append(out, conversion.DecideTrigger(t))
	}
	respondJSON(w, http.StatusOK, out)
}

// GetPresentation returns the bundle for a trigger. Unknown triggers get the
// default bundle rather than a 404.
func (h *ConversionHandler) GetPresentation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	respondJSON(w, http.StatusOK, conversion.Decide(conversion.Context{
		Trigger:      conversion.Trigger(mux.Vars(r)["trigger"]),
		VisionID:     q.Get("vision_id"),
		ThumbnailURL: q.Get("thumbnail_url"),
	}))
}
