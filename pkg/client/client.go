// Package client is a typed Go client for the tubemark API plus a Mirror that
// caches server state per resource and refetches it after every mutation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"tubemark-backend/internal/models"
)

// Wire types shared with the server.
type (
	User           = models.User
	AuthResult     = models.AuthResult
	TokenPair      = models.TokenPair
	Video          = models.VideoView
	Playlist       = models.Playlist
	PlaylistDetail = models.PlaylistDetail
	Note           = models.Note
	HistoryEntry   = models.HistoryEntry
	WatchStats     = models.WatchStats
	Tag            = models.Tag
	ExternalVideo  = models.ExternalVideo
	Pagination     = models.Pagination
	Event          = models.Event
)

// APIError is a failed envelope, or a non-2xx response without one.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d: %s %v", e.Status, e.Message, e.Fields)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type envelope struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data"`
	Message    string            `json:"message"`
	Error      string            `json:"error"`
	Fields     map[string]string `json:"fields"`
	Pagination *Pagination       `json:"pagination"`
}

// sessionPaths issue tokens themselves, so a 401 there is final.
var sessionPaths = map[string]bool{
	"/auth/register": true,
	"/auth/login":    true,
	"/auth/refresh":  true,
	"/auth/google":   true,
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	refreshMu    sync.Mutex
	mu           sync.Mutex
	token        string
	refreshToken string
	onTokens     func(TokenPair)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokens starts the client with an existing session.
func WithTokens(token, refreshToken string) Option {
	return func(c *Client) {
		c.token = token
		c.refreshToken = refreshToken
	}
}

// WithTokenListener is called whenever login or refresh issues new tokens.
func WithTokenListener(fn func(TokenPair)) Option {
	return func(c *Client) { c.onTokens = fn }
}

// New builds a client for baseURL, the server root without the /api prefix.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Tokens() TokenPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return TokenPair{Token: c.token, RefreshToken: c.refreshToken}
}

func (c *Client) setTokens(p TokenPair) {
	c.mu.Lock()
	c.token = p.Token
	c.refreshToken = p.RefreshToken
	fn := c.onTokens
	c.mu.Unlock()

	if fn != nil {
		fn(p)
	}
}

// do sends one API call and decodes the envelope's data into out. A 401 on an
// authenticated call triggers a single refresh and retry.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (*Pagination, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	token := c.Tokens().Token
	pagination, err := c.send(ctx, method, path, payload, token, out)
	if !IsStatus(err, http.StatusUnauthorized) || sessionPaths[path] {
		return pagination, err
	}

	if refreshErr := c.refresh(ctx, token); refreshErr != nil {
		return nil, err
	}
	return c.send(ctx, method, path, payload, c.Tokens().Token, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string, out interface{}) (*Pagination, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg, Fields: env.Fields}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return env.Pagination, nil
}

// refresh rotates the token pair unless another caller already replaced stale.
func (c *Client) refresh(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.Lock()
	if c.token != stale {
		c.mu.Unlock()
		return nil
	}
	refreshToken := c.refreshToken
	c.mu.Unlock()

	if refreshToken == "" {
		return errors.New("no refresh token")
	}

	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return err
	}
	var pair TokenPair
	if _, err := c.send(ctx, http.MethodPost, "/auth/refresh", payload, "", &pair); err != nil {
		return err
	}
	c.setTokens(pair)
	return nil
}
