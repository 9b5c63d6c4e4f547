package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/civiz/internal/models"
	"github.com/google/uuid"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded first hop", headers: map[string]string{"X-Forwarded-For": " 198.51.100.2 , 10.0.0.1 "}, want: "198.51.100.2"},
		{name: "forwarded wins over real ip", headers: map[string]string{"X-Forwarded-For": "198.51.100.2", "X-Real-IP": "198.51.100.3"}, want: "198.51.100.2"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.3"}, want: "198.51.100.3"},
		{name: "garbage forwarded falls through", headers: map[string]string{"X-Forwarded-For": "fresh-quota-please", "X-Real-IP": "198.51.100.3"}, want: "198.51.100.3"},
		{name: "garbage headers use remote", headers: map[string]string{"X-Forwarded-For": "x", "X-Real-IP": "y"}, remote: "192.0.2.10:5555", want: "192.0.2.10"},
		{name: "mapped ipv4", headers: map[string]string{"X-Forwarded-For": "::ffff:198.51.100.2"}, want: "198.51.100.2"},
		{name: "ipv6 remote", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "remote without port", remote: "192.0.2.10", want: "192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/api/v1/visions/anonymous", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserFromContext(t *testing.T) {
	t.Parallel()

	u := &models.User{ID: uuid.New(), Email: "resident@example.com"}

	tests := []struct {
		name string
		ctx  context.Context
		want *models.User
	}{
		{name: "attached", ctx: WithUser(context.Background(), u), want: u},
		{name: "missing", ctx: context.Background()},
		{name: "wrong type", ctx: context.WithValue(context.Background(), UserContextKey(), "not a user")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tt.ctx)
			if got := UserFromContext(r); got != tt.want {
				t.Errorf("UserFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}
