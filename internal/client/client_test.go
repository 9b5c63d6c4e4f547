package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benvon/civiz/internal/conversion"
	"github.com/benvon/civiz/internal/guest"
	"github.com/benvon/civiz/internal/models"
	"github.com/google/uuid"
)

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"data":    data,
		"message": message,
	})
}

func TestNormalizeBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "http://localhost:8080/", want: "http://localhost:8080"},
		{in: "  https://civiz.example  ", want: "https://civiz.example"},
		{in: "", wantErr: true},
		{in: "localhost:8080", wantErr: true},
		{in: "ftp://civiz.example", wantErr: true},
		{in: "https://", wantErr: true},
		{in: "/api", wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeBaseURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeBaseURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateAnonymousVision(t *testing.T) {
	t.Parallel()

	reset := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/visions/anonymous" || r.Header.Get("Authorization") != "" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		calls++
		if calls == 1 {
			writeEnvelope(w, http.StatusCreated, true, map[string]any{
				"vision":    models.Vision{ID: uuid.New(), Text: "trees", IsAnonymous: true, HasWatermark: true},
				"remaining": 0,
				"message":   "Last free vision! Sign up for unlimited generations.",
			}, "")
			return
		}
		writeEnvelope(w, http.StatusTooManyRequests, false, map[string]any{
			"reset_time": reset,
			"conversion": conversion.DecideTrigger(conversion.TriggerRateLimit),
		}, "Sign up to continue")
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.CreateAnonymousVision(t.Context(), "trees", "")
	if err != nil {
		t.Fatalf("CreateAnonymousVision() error = %v", err)
	}
	if !got.Vision.IsAnonymous || got.Remaining != 0 || got.Message == "" {
		t.Errorf("CreateAnonymousVision() = %+v", got)
	}

	_, err = c.CreateAnonymousVision(t.Context(), "trees", "")
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("error = %v, want *RateLimitedError", err)
	}
	if !limited.ResetTime.Equal(reset) {
		t.Errorf("ResetTime = %v, want %v", limited.ResetTime, reset)
	}
	if limited.Conversion.Trigger != conversion.TriggerRateLimit {
		t.Errorf("Conversion.Trigger = %q, want %q", limited.Conversion.Trigger, conversion.TriggerRateLimit)
	}
}

func TestAPIErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":"Unauthorized","message":"Invalid or expired token"}`))
			return
		}
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	anon, _ := New(srv.URL, "bad")
	_, err := anon.ToggleLike(t.Context(), uuid.NewString())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Code != "Unauthorized" {
		t.Errorf("APIError = %+v, want 401 Unauthorized", apiErr)
	}

	authed, _ := New(srv.URL, "tok")
	_, err = authed.Me(t.Context())
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway || apiErr.Message != "upstream exploded" {
		t.Errorf("error = %v, want 502 with plain text message", err)
	}
}

func TestMigrateGuest(t *testing.T) {
	t.Parallel()

	var received guest.Snapshot
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/migrate-guest" || r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeEnvelope(w, http.StatusOK, true, guest.MigrationResult{MigratedCount: len(received.Visions), PointsAdded: 6}, "")
	}))
	defer srv.Close()

	storage := guest.NewMemoryStorage()
	store := guest.NewStore(storage)
	for _, text := range []string{"trees", "bike lanes"} {
		if _, _, err := store.RecordVision(models.Vision{Text: text}); err != nil {
			t.Fatal(err)
		}
	}

	guestOnly, _ := New(srv.URL, "")
	if _, err := store.Migrate(t.Context(), guestOnly); err == nil {
		t.Fatal("Migrate() without a token error = nil, want error")
	}
	if storage.Len() == 0 {
		t.Fatal("failed migration cleared guest data")
	}

	c, _ := New(srv.URL, "tok")
	result, err := store.Migrate(t.Context(), c)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if result.MigratedCount != 2 || len(received.Visions) != 2 {
		t.Errorf("MigratedCount = %d, sent %d, want 2", result.MigratedCount, len(received.Visions))
	}
	if storage.Len() != 0 {
		t.Errorf("storage has %d keys after migration, want 0", storage.Len())
	}
}
