package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

const (
	// DefaultJWKSTTL is how long a fetched key set is reused
	DefaultJWKSTTL = time.Hour

	// MinJWKSRefreshInterval throttles forced refetches triggered by unknown key ids
	MinJWKSRefreshInterval = time.Minute

	maxJWKSBytes = 1 << 20
)

type jwksEntry struct {
	keys    jwk.Set
	fetched time.Time
}

// JWKSManager fetches key sets and caches them per URL. When a refetch fails
// the previous key set keeps being served, so a flaky identity provider does
// not log everyone out.
type JWKSManager struct {
	mu      sync.Mutex
	entries map[string]jwksEntry
	ttl     time.Duration
	client  *http.Client
	now     func() time.Time
}

// NewJWKSManager creates a new JWKS manager
func NewJWKSManager() *JWKSManager {
	return &JWKSManager{
		entries: make(map[string]jwksEntry),
		ttl:     DefaultJWKSTTL,
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

// GetJWKS returns the key set at jwksURL, fetching it when the cached copy
// is missing or older than the TTL
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.Lock()
	entry, ok := m.entries[jwksURL]
	m.mu.Unlock()

	if ok && m.now().Sub(entry.fetched) < m.ttl {
		return entry.keys, nil
	}
	return m.refetch(ctx, jwksURL, entry, ok)
}

// Refresh refetches the key set after a token named a key the cached set
// lacks. Refetches are throttled per URL; a throttled call returns the cache.
func (m *JWKSManager) Refresh(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.Lock()
	entry, ok := m.entries[jwksURL]
	m.mu.Unlock()

	if ok && m.now().Sub(entry.fetched) < MinJWKSRefreshInterval {
		return entry.keys, nil
	}
	return m.refetch(ctx, jwksURL, entry, ok)
}

func (m *JWKSManager) refetch(ctx context.Context, jwksURL string, stale jwksEntry, haveStale bool) (jwk.Set, error) {
	keys, err := m.fetchJWKS(ctx, jwksURL)
	if err != nil {
		if haveStale {
			return stale.keys, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	m.mu.Lock()
	m.entries[jwksURL] = jwksEntry{keys: keys, fetched: m.now()}
	m.mu.Unlock()
	return keys, nil
}

func (m *JWKSManager) fetchJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}
	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return keys, nil
}
