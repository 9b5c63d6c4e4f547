// Package oidc verifies account tokens against the configured identity
// provider and exposes the settings clients need to log in.
package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/civiz/internal/models"
)

// DefaultProviderName is the provider used when none is configured
const DefaultProviderName = "cognito"

// ConfigStore looks up stored provider settings
type ConfigStore interface {
	GetByProvider(ctx context.Context, provider string) (*models.OIDCConfig, error)
}

// Provider resolves settings for one named identity provider
type Provider struct {
	store      ConfigStore
	name       string
	jwks       *JWKSManager
	httpClient *http.Client
}

// NewProvider creates a provider. An empty name selects DefaultProviderName.
func NewProvider(store ConfigStore, name string, jwks *JWKSManager) *Provider {
	if name == "" {
		name = DefaultProviderName
	}
	if jwks == nil {
		jwks = NewJWKSManager()
	}
	return &Provider{
		store:      store,
		name:       name,
		jwks:       jwks,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return p.name
}

// GetConfig retrieves the provider's stored settings
func (p *Provider) GetConfig(ctx context.Context) (*models.OIDCConfig, error) {
	config, err := p.store.GetByProvider(ctx, p.name)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC config: %w", err)
	}
	return config, nil
}

// VerifyToken checks a bearer token and returns its claims
func (p *Provider) VerifyToken(ctx context.Context, token string) (*models.JWTClaims, error) {
	config, err := p.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewVerifier(p.jwks, config.Issuer).Verify(ctx, token, config.KeySetURL())
}

// GetLoginConfig returns the endpoints a client needs to start a login.
// The discovery document is preferred; endpoints are derived from the issuer
// when it cannot be fetched.
func (p *Provider) GetLoginConfig(ctx context.Context) (*LoginConfig, error) {
	config, err := p.GetConfig(ctx)
	if err != nil {
		return nil, err
	}

	authEndpoint, tokenEndpoint := p.discover(ctx, config.Issuer)
	if authEndpoint == "" {
		authEndpoint = joinIssuer(config.Issuer, "oauth2/authorize")
	}
	if tokenEndpoint == "" {
		tokenEndpoint = joinIssuer(config.Issuer, "oauth2/token")
	}

	// Cognito serves its OAuth2 endpoints from the hosted domain, not the issuer
	if config.Domain != nil && *config.Domain != "" && strings.Contains(config.Issuer, "cognito-idp.") {
		base := *config.Domain
		if !strings.HasPrefix(base, "https://") {
			base = "https://" + base
		}
		base = strings.TrimSuffix(base, "/")
		authEndpoint = base + "/oauth2/authorize"
		tokenEndpoint = base + "/oauth2/token"
	}

	return &LoginConfig{
		AuthorizationEndpoint: authEndpoint,
		TokenEndpoint:         tokenEndpoint,
		ClientID:              config.ClientID,
		RedirectURI:           config.RedirectURI,
		Scope:                 strings.Join(Scopes, " "),
	}, nil
}

func (p *Provider) discover(ctx context.Context, issuer string) (auth, token string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinIssuer(issuer, ".well-known/openid-configuration"), nil)
	if err != nil {
		return "", ""
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", ""
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", ""
	}
	var doc struct {
		AuthorizationEndpoint string `json:"authorization_endpoint"`
		TokenEndpoint         string `json:"token_endpoint"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", ""
	}
	return doc.AuthorizationEndpoint, doc.TokenEndpoint
}

func joinIssuer(issuer, path string) string {
	return strings.TrimSuffix(issuer, "/") + "/" + path
}

// Scopes requested at login
var Scopes = []string{"openid", "email", "profile"}

// LoginConfig contains the settings a client needs to log in
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}
