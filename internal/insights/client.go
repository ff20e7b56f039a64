// Package insights is the HTTP client of the player insights backend.
package insights

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fortuna/draftlens/internal/logger"
)

const (
	DefaultTimeout = 15 * time.Second
	userAgent      = "draftlens/1.0"
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("insights: status %d", e.Status)
	}
	return fmt.Sprintf("insights: status %d: %s", e.Status, e.Message)
}

// Unauthorized reports whether the session token was rejected.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Client talks to the insights backend.
type Client struct {
	client *resty.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &Client{client: client}
}

// SetToken sets the session bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) request(ctx context.Context) *resty.Request {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	req := c.client.R().SetContext(ctx).SetError(&APIError{})
	if token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// Rank ranks the given players.
func (c *Client) Rank(ctx context.Context, in RankRequest) (*RankResponse, error) {
	var out RankResponse
	res, err := c.request(ctx).SetBody(in).SetResult(&out).Post("/v1/rankings")
	if err := check(res, err, "rank"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recommend returns the recommended next pick.
func (c *Client) Recommend(ctx context.Context, in PickRequest) (*Recommendation, error) {
	var out Recommendation
	res, err := c.request(ctx).SetBody(in).SetResult(&out).Post("/v1/recommendations")
	if err := check(res, err, "recommend"); err != nil {
		return nil, err
	}
	return &out, nil
}

// Player returns the insight for one player.
func (c *Client) Player(ctx context.Context, name, scoring string) (*Insight, error) {
	var out Insight
	res, err := c.request(ctx).
		SetPathParam("name", name).
		SetQueryParam("scoring", scoring).
		SetResult(&out).
		Get("/v1/players/{name}")
	if err := check(res, err, "player"); err != nil {
		return nil, err
	}
	return &out, nil
}

func check(res *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s request: %w", op, err)
	}
	if !res.IsError() {
		return nil
	}

	apiErr, ok := res.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = res.StatusCode()
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(res.Body()))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200]
		}
	}

	logger.Log.Warn().Str("op", op).Int("status", apiErr.Status).Str("code", apiErr.Code).Msg("insights request failed")
	return fmt.Errorf("%s: %w", op, apiErr)
}
