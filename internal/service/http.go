package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/model"
)

const (
	snapshotPath    = "/api/v1/snapshot"
	preferencesPath = "/api/v1/preferences"
	userAgent       = "feedsync/1.0"
	maxBodyBytes    = 32 << 20
)

// SnapshotResponse is the body returned by a snapshot push.
type SnapshotResponse struct {
	UserID string `json:"user_id"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Message string `json:"message"`
}

// HTTPClient is a Client speaking JSON over HTTP with basic auth.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTPClient) { h.logger = l }
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...HTTPOption) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid service url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid service url %q: scheme must be http or https", baseURL)
	}
	c := &HTTPClient{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchSnapshot implements Client.
func (c *HTTPClient) FetchSnapshot(ctx context.Context, creds Credentials) (*model.Hierarchy, error) {
	var doc model.Document
	if err := c.do(ctx, http.MethodGet, snapshotPath, &creds, nil, &doc); err != nil {
		return nil, err
	}
	h, err := model.Import(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse remote snapshot: %w", err)
	}
	return h, nil
}

// PushSnapshot implements Client.
func (c *HTTPClient) PushSnapshot(ctx context.Context, creds Credentials, doc *model.Document) (string, error) {
	var resp SnapshotResponse
	if err := c.do(ctx, http.MethodPut, snapshotPath, &creds, doc, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

// GetPreferences implements Client.
func (c *HTTPClient) GetPreferences(ctx context.Context, creds Credentials) (map[string][]byte, error) {
	var wire map[string]string
	if err := c.do(ctx, http.MethodGet, preferencesPath, &creds, nil, &wire); err != nil {
		return nil, err
	}
	return fromWire(wire), nil
}

// PutPreferences implements Client.
func (c *HTTPClient) PutPreferences(ctx context.Context, creds Credentials, prefs map[string][]byte) error {
	return c.do(ctx, http.MethodPut, preferencesPath, &creds, toWire(prefs), nil)
}

// PingGuide implements Client.
func (c *HTTPClient) PingGuide(ctx context.Context, userID, guideTitle string) error {
	p := "/api/v1/users/" + url.PathEscape(userID) + "/guides/" + url.PathEscape(guideTitle) + "/ping"
	return c.do(ctx, http.MethodPost, p, nil, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, creds *Credentials, in, out any) error {
	if creds != nil && creds.IsZero() {
		return &Error{Message: "No service account is configured. Set service.email and service.password."}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL.String() + path
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds != nil {
		req.SetBasicAuth(creds.Email, creds.Password)
	}

	c.logger.Debug("service request", slog.String("method", method), logging.URL(path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Message: "service unreachable", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Message: "failed to read service response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Message: "malformed service response", Cause: err}
	}
	return nil
}

func responseError(status int, data []byte) error {
	var er ErrorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Message != "" {
		return &Error{Message: er.Message}
	}
	return &Error{
		Message: "unexpected service response",
		Cause:   fmt.Errorf("status %d", status),
	}
}

func toWire(prefs map[string][]byte) map[string]string {
	out := make(map[string]string, len(prefs))
	for k, v := range prefs {
		out[k] = string(v)
	}
	return out
}

func fromWire(wire map[string]string) map[string][]byte {
	out := make(map[string][]byte, len(wire))
	for k, v := range wire {
		out[k] = []byte(v)
	}
	return out
}
