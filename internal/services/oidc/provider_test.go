package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benvon/civiz/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type fakeStore struct {
	configs map[string]*models.OIDCConfig
}

func (f *fakeStore) GetByProvider(_ context.Context, provider string) (*models.OIDCConfig, error) {
	c, ok := f.configs[provider]
	if !ok {
		return nil, errors.New("not found")
	}
	return c, nil
}

type testIssuer struct {
	srv *httptest.Server
	key jwk.Key
}

func newTestIssuer(t *testing.T) *testIssuer {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	key, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("jwk.FromRaw() error = %v", err)
	}
	_ = key.Set(jwk.KeyIDKey, "test-key")
	_ = key.Set(jwk.AlgorithmKey, jwa.RS256)

	pub, err := jwk.PublicKeyOf(key)
	if err != nil {
		t.Fatalf("PublicKeyOf() error = %v", err)
	}
	_ = pub.Set(jwk.KeyIDKey, "test-key")
	_ = pub.Set(jwk.AlgorithmKey, jwa.RS256)
	set := jwk.NewSet()
	_ = set.AddKey(pub)

	ti := &testIssuer{key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("/jwks.json", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(set)
	})
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"authorization_endpoint": ti.srv.URL + "/authorize",
			"token_endpoint":         ti.srv.URL + "/token",
		})
	})
	ti.srv = httptest.NewServer(mux)
	t.Cleanup(ti.srv.Close)
	return ti
}

func (ti *testIssuer) sign(t *testing.T, issuer, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.New()
	_ = tok.Set(jwt.IssuerKey, issuer)
	_ = tok.Set(jwt.SubjectKey, sub)
	_ = tok.Set(jwt.IssuedAtKey, time.Now().Add(-time.Minute))
	_ = tok.Set(jwt.ExpirationKey, exp)
	_ = tok.Set("email", "ada@example.com")
	_ = tok.Set("name", "Ada")
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, ti.key))
	if err != nil {
		t.Fatalf("jwt.Sign() error = %v", err)
	}
	return string(signed)
}

func (ti *testIssuer) provider() *Provider {
	jwksURL := ti.srv.URL + "/jwks.json"
	return NewProvider(&fakeStore{configs: map[string]*models.OIDCConfig{
		"cognito": {
			Provider:    "cognito",
			Issuer:      ti.srv.URL,
			ClientID:    "client",
			RedirectURI: "http://localhost/cb",
			JWKSUrl:     &jwksURL,
		},
	}}, "", nil)
}

func TestProviderVerifyToken(t *testing.T) {
	t.Parallel()

	ti := newTestIssuer(t)
	p := ti.provider()
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: ti.sign(t, ti.srv.URL, "user-1", future)},
		{name: "wrong issuer", token: ti.sign(t, "https://evil.example.com", "user-1", future), wantErr: true},
		{name: "expired", token: ti.sign(t, ti.srv.URL, "user-1", time.Now().Add(-time.Hour)), wantErr: true},
		{name: "missing subject", token: ti.sign(t, ti.srv.URL, "", future), wantErr: true},
		{name: "garbage", token: "not-a-token", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, err := p.VerifyToken(context.Background(), tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if claims.Sub != "user-1" || claims.Email != "ada@example.com" || claims.Name != "Ada" {
				t.Errorf("VerifyToken() claims = %+v", claims)
			}
		})
	}
}

func TestProviderUnknownName(t *testing.T) {
	t.Parallel()

	p := NewProvider(&fakeStore{}, "okta", nil)
	if p.Name() != "okta" {
		t.Errorf("Name() = %q, want okta", p.Name())
	}
	if _, err := p.VerifyToken(context.Background(), "x"); err == nil {
		t.Error("VerifyToken() with unknown provider error = nil")
	}
}

func TestProviderGetLoginConfig(t *testing.T) {
	t.Parallel()

	ti := newTestIssuer(t)
	lc, err := ti.provider().GetLoginConfig(context.Background())
	if err != nil {
		t.Fatalf("GetLoginConfig() error = %v", err)
	}
	if lc.AuthorizationEndpoint != ti.srv.URL+"/authorize" || lc.TokenEndpoint != ti.srv.URL+"/token" {
		t.Errorf("GetLoginConfig() = %+v", lc)
	}
	if lc.Scope != "openid email profile" {
		t.Errorf("Scope = %q", lc.Scope)
	}
}

func TestProviderLoginConfigFallbacks(t *testing.T) {
	t.Parallel()

	domain := "login.example.com"
	tests := []struct {
		name      string
		config    *models.OIDCConfig
		wantAuth  string
		wantToken string
	}{
		{
			name:      "issuer derived",
			config:    &models.OIDCConfig{Issuer: "http://127.0.0.1:1/"},
			wantAuth:  "http://127.0.0.1:1/oauth2/authorize",
			wantToken: "http://127.0.0.1:1/oauth2/token",
		},
		{
			name:      "cognito domain",
			config:    &models.OIDCConfig{Issuer: "http://127.0.0.1:1/cognito-idp.us-west-2", Domain: &domain},
			wantAuth:  "https://login.example.com/oauth2/authorize",
			wantToken: "https://login.example.com/oauth2/token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewProvider(&fakeStore{configs: map[string]*models.OIDCConfig{"cognito": tt.config}}, "", nil)
			lc, err := p.GetLoginConfig(context.Background())
			if err != nil {
				t.Fatalf("GetLoginConfig() error = %v", err)
			}
			if lc.AuthorizationEndpoint != tt.wantAuth || lc.TokenEndpoint != tt.wantToken {
				t.Errorf("GetLoginConfig() = %+v", lc)
			}
		})
	}
}
