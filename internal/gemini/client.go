// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gemini is a REST client for the Gemini File Search API: stores,
// documents, uploads, long-running operations, and grounded generation.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/rag-filesearch/internal/httputil"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

const (
	apiVersion    = "v1beta"
	listPageSize  = "20"
	apiKeyHeader  = "x-goog-api-key"
	maxErrorBytes = 64 << 10
)

// Client talks to the remote service. It is safe for sequential use; the
// CLI never issues concurrent requests.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	maxRetries int
	http       *http.Client
	logger     *zap.Logger
}

// New creates a client from cfg. A nil logger disables logging.
func New(cfg types.Config, logger *zap.Logger) *Client {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		http:       &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// WithHTTPClient replaces the underlying HTTP client. Tests pass the
// httptest server's client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// APIError is a non-2xx response from the service. It matches
// types.ErrRemoteRequestFailed, and types.ErrNotFound for 404s.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Status != "" {
		return fmt.Sprintf("%s %s: HTTP %d %s: %s", e.Method, e.Path, e.StatusCode, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is classifies the error for errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case types.ErrRemoteRequestFailed:
		return true
	case types.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// errorEnvelope is the Google API error body.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) endpoint(prefix, resource string, query url.Values) string {
	u := c.baseURL + prefix + "/" + apiVersion + "/" + strings.TrimLeft(resource, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doJSON sends body (if non-nil) as JSON and decodes the response into out
// (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, resource string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint("", resource, query), reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(ctx, req, out)
}

// send executes req with retry, maps failures to the error taxonomy, and
// decodes a successful body into out.
func (c *Client) send(ctx context.Context, req *http.Request, out any) error {
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("remote request", zap.String("method", req.Method), zap.String("path", req.URL.Path))

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries, c.logger)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ctxErr)
		}
		return fmt.Errorf("%w: %s %s: %w", types.ErrRemoteRequestFailed, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(req, resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decoding %s %s response: %w", types.ErrRemoteRequestFailed, req.Method, req.URL.Path, err)
	}
	return nil
}

func decodeAPIError(req *http.Request, resp *http.Response) error {
	apiErr := &APIError{
		Method:     req.Method,
		Path:       req.URL.Path,
		StatusCode: resp.StatusCode,
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	var env errorEnvelope
	if json.Unmarshal(data, &env) == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Status = env.Error.Status
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
