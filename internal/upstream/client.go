// Package upstream wraps the third-party storefront API: one retrying
// HTTP client with typed failure classification, plus endpoint bindings
// for the auth and catalog operations the gateway consumes.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/locale"
)

type Config struct {
	BaseURL string
	// Timeout is the overall budget for one call, retries included.
	Timeout time.Duration
	// MaxRetries is the default number of additional attempts for
	// read-class calls.
	MaxRetries int
	RetryDelay time.Duration
	MaxDelay   time.Duration
	// MaxBodyBytes bounds how much of a response body is read.
	MaxBodyBytes int64
}

func (cfg Config) withDefaults() Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	return cfg
}

type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     *logrus.Logger
}

func NewClient(cfg Config, logger *logrus.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("upstream: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("upstream: invalid base URL: %w", err)
	}
	cfg = cfg.withDefaults()

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// Request describes one upstream call. Retries is the number of additional
// attempts after the first; bindings set it per call site. Timeout, when
// positive, replaces the client's overall budget for upload-class calls
// that need more than the default. Out, when non-nil, receives the decoded
// JSON payload.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Locale  locale.Locale
	Token   string
	Retries int
	Timeout time.Duration
	Out     interface{}
}

// Do executes the request under the overall timeout, retrying per policy,
// and returns the raw response payload. The final attempt's typed error
// is surfaced verbatim.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	budget := c.cfg.Timeout
	if req.Timeout > 0 {
		budget = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	u := c.buildURL(req.Path, req.Query)

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("upstream: failed to marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= req.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, classifyContext(ctx.Err())
			case <-time.After(c.backoff(attempt)):
			}
		}

		entry := c.logger.WithFields(logrus.Fields{
			"method":  req.Method,
			"url":     u,
			"attempt": attempt + 1,
		})
		if body != nil && c.logger.IsLevelEnabled(logrus.DebugLevel) {
			entry = entry.WithField("body", RedactSecrets(body))
		}

		start := time.Now()
		payload, err := c.attempt(ctx, req, u, body)
		entry = entry.WithField("duration_ms", time.Since(start).Milliseconds())
		if err == nil && req.Out != nil {
			if uerr := json.Unmarshal(payload, req.Out); uerr != nil {
				err = fmt.Errorf("%w: %v", ErrInvalidResponse, uerr)
			}
		}
		if err == nil {
			entry.Debug("Upstream request succeeded")
			return payload, nil
		}
		entry.WithError(err).Warn("Upstream request failed")

		lastErr = err
		if !retryable(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, classifyContext(ctx.Err())
		}
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, req Request, u string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("upstream: failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("langCode", req.Locale.LangCode())
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode, payload)
	}
	return payload, nil
}

// buildURL joins the base URL with an already-escaped path. Bindings
// escape their own path segments.
func (c *Client) buildURL(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := strings.TrimSuffix(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// backoff computes the delay before the given retry: exponential from
// RetryDelay, capped at MaxDelay.
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.cfg.RetryDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.cfg.MaxDelay) {
		delay = float64(c.cfg.MaxDelay)
	}
	return time.Duration(delay)
}

func classifyTransport(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("upstream: request aborted: %w", context.Canceled)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func classifyContext(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("upstream: request aborted: %w", context.Canceled)
	}
	return fmt.Errorf("%w: %v", ErrTimeout, err)
}

func classifyStatus(status int, body []byte) error {
	kind := ErrServer
	switch status {
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		kind = ErrTimeout
	}
	return &StatusError{Status: status, Message: diagnostic(body), kind: kind}
}

// diagnostic extracts a human-readable message from an error response
// body, falling back to the redacted raw payload.
func diagnostic(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
	}
	s := strings.TrimSpace(RedactSecrets(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
