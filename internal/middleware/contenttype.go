package middleware

import (
	"net/http"
	"strings"
)

// ContentType requires a JSON Content-Type on write requests that carry a
// body. Bodiless POSTs such as a like toggle pass through.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPatch, http.MethodPut:
		default:
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength == 0 && r.Header.Get("Transfer-Encoding") == "" {
			next.ServeHTTP(w, r)
			return
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			_ = writeErrorJSON(w, r, http.StatusBadRequest, "Bad Request", "Content-Type header is required")
			return
		}
		if !strings.HasPrefix(strings.ToLower(contentType), "application/json") {
			_ = writeErrorJSON(w, r, http.StatusUnsupportedMediaType, "Unsupported Media Type", "Content-Type must be application/json")
			return
		}

		next.ServeHTTP(w, r)
	})
}
