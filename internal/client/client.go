// Package client talks to the civiz HTTP API on behalf of the guest CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/civiz/internal/conversion"
	"github.com/benvon/civiz/internal/guest"
	"github.com/benvon/civiz/internal/models"
)

// DefaultTimeout covers image generation, which can take tens of seconds
const DefaultTimeout = 90 * time.Second

// APIError represents a non-2xx response from the API
type APIError struct {
	Status  int
	Code    string
	Message string
	data    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Code != "" && e.Message != "" {
		return fmt.Sprintf("civiz api error: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("civiz api error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("civiz api error (%d)", e.Status)
}

// RateLimitedError is returned when the anonymous quota for this address is spent
type RateLimitedError struct {
	Message    string                  `json:"-"`
	ResetTime  time.Time               `json:"reset_time"`
	Conversion conversion.Presentation `json:"conversion"`
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("free generations used up until %s", e.ResetTime.Local().Format(time.Kitchen))
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// Client talks to the civiz API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New constructs a client. token may be empty for guest use.
func New(baseURL, token string) (*Client, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    normalized,
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// NormalizeBaseURL trims the API URL and ensures it is an absolute http(s) URL
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", errors.New("api url cannot be empty")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api url must include scheme (https://)")
	}
	if parsed.Host == "" {
		return "", errors.New("api url must include a host")
	}
	return strings.TrimRight(value, "/"), nil
}

// Authenticated reports whether requests carry a bearer token
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// AnonymousVision is a watermarked vision made without an account
type AnonymousVision struct {
	Vision    models.Vision `json:"vision"`
	Remaining int           `json:"remaining"`
	ResetTime time.Time     `json:"reset_time"`
	Message   string        `json:"message"`
}

// CreatedVision is a vision stored under the caller's account
type CreatedVision struct {
	Vision        models.Vision        `json:"vision"`
	Account       models.PointsAccount `json:"account"`
	ImageFallback bool                 `json:"image_fallback"`
}

// VisionPage is one page of the community feed
type VisionPage struct {
	Visions []struct {
		models.Vision
		LikedByMe bool `json:"liked_by_me"`
	} `json:"visions"`
	Page       int `json:"page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type visionRequest struct {
	Text       string `json:"text"`
	CategoryID string `json:"category_id,omitempty"`
}

// CreateAnonymousVision generates a vision against this address's free
// quota. A spent quota is returned as *RateLimitedError.
func (c *Client) CreateAnonymousVision(ctx context.Context, text, categoryID string) (AnonymousVision, error) {
	var resp AnonymousVision
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/visions/anonymous", nil, visionRequest{Text: text, CategoryID: categoryID}, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests {
		limited := &RateLimitedError{Message: apiErr.Message}
		if len(apiErr.data) > 0 {
			_ = json.Unmarshal(apiErr.data, limited)
		}
		if limited.Conversion.Trigger == "" {
			limited.Conversion = conversion.DecideTrigger(conversion.TriggerRateLimit)
		}
		return AnonymousVision{}, limited
	}
	if err != nil {
		return AnonymousVision{}, err
	}
	return resp, nil
}

// CreateVision stores a vision under the signed-in account
func (c *Client) CreateVision(ctx context.Context, text, categoryID string) (CreatedVision, error) {
	var resp CreatedVision
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/visions", nil, visionRequest{Text: text, CategoryID: categoryID}, &resp); err != nil {
		return CreatedVision{}, err
	}
	return resp, nil
}

// Community fetches a page of the community feed
func (c *Client) Community(ctx context.Context, page, pageSize int) (VisionPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	var resp VisionPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/visions", query, nil, &resp); err != nil {
		return VisionPage{}, err
	}
	return resp, nil
}

// ToggleLike likes or unlikes a vision for the signed-in account
func (c *Client) ToggleLike(ctx context.Context, visionID string) (models.LikeResult, error) {
	var resp models.LikeResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/visions/"+url.PathEscape(visionID)+"/like", nil, nil, &resp); err != nil {
		return models.LikeResult{}, err
	}
	return resp, nil
}

// Me returns the signed-in account
func (c *Client) Me(ctx context.Context) (models.UserProfile, error) {
	var resp models.UserProfile
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/auth/me", nil, nil, &resp); err != nil {
		return models.UserProfile{}, err
	}
	return resp, nil
}

// MigrateGuest sends a guest snapshot to the signed-in account. It
// satisfies guest.Migrator, so a guest.Store can migrate through it.
func (c *Client) MigrateGuest(ctx context.Context, snap guest.Snapshot) (guest.MigrationResult, error) {
	if !c.Authenticated() {
		return guest.MigrationResult{}, errors.New("sign in before migrating guest data")
	}
	var resp guest.MigrationResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/migrate-guest", nil, snap, &resp); err != nil {
		return guest.MigrationResult{}, err
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody any, respBody any) error {
	endpoint, err := c.buildURL(path, query)
	if err != nil {
		return err
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	decodeErr := json.Unmarshal(respData, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = env.Error
			apiErr.Message = env.Message
			apiErr.data = env.Data
		} else {
			apiErr.Message = strings.TrimSpace(string(respData))
		}
		return apiErr
	}

	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if respBody == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, respBody)
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	endpoint := base.ResolveReference(ref)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}
	return endpoint.String(), nil
}

var _ guest.Migrator = (*Client)(nil)
