package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"quizmaster/internal/domain"
)

// Client talks to the quiz backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit caps outbound requests; rps <= 0 leaves calls unthrottled.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithClock is used by tests to pin sample-data timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errorBody is the error envelope the backend uses on non-2xx responses.
type errorBody struct {
	Error            string `json:"error"`
	Message          string `json:"message"`
	AlreadySubmitted bool   `json:"alreadySubmitted"`
}

func (b errorBody) text() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}

// do sends a request and returns the status code and body.
// Transport failures are returned as errors; HTTP status handling is left to callers.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("backend request", zap.String("method", method), zap.String("path", path))
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s: %w", path, err)
	}
	c.log.Debug("backend response", zap.String("path", path), zap.Int("status", resp.StatusCode))
	return resp.StatusCode, data, nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}

func apiError(op string, status int, data []byte) *domain.APIError {
	var eb errorBody
	_ = json.Unmarshal(data, &eb)
	return &domain.APIError{Op: op, Status: status, Message: eb.text()}
}

// decode unmarshals into T and tags decoding failures with the endpoint.
func decode[T any](endpoint string, data []byte) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		var decodeErr *domain.DecodeError
		if errors.As(err, &decodeErr) {
			decodeErr.Endpoint = endpoint
			return out, decodeErr
		}
		return out, &domain.DecodeError{Endpoint: endpoint, Reason: "invalid JSON payload", Err: err}
	}
	return out, nil
}

// getJSON fetches path and decodes a 2xx body into T.
func getJSON[T any](ctx context.Context, c *Client, op, path string) (T, error) {
	var zero T
	status, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return zero, err
	}
	if !ok(status) {
		return zero, apiError(op, status, data)
	}
	return decode[T](path, data)
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *domain.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
