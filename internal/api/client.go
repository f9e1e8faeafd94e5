// Package api provides an HTTP client for the TaskHub gateway.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/taskhub-cli/internal/observability"
	"github.com/taskhub/taskhub-cli/internal/output"
	"github.com/taskhub/taskhub-cli/internal/version"
)

const (
	// APIPrefix is prepended to every request path.
	APIPrefix = "/api/v1"

	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
	maxJitter         = 100 * time.Millisecond
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (s StaticToken) AccessToken(context.Context) (string, error) {
	if s == "" {
		return "", output.ErrAuth("Not authenticated")
	}
	return string(s), nil
}

// Gate decides whether a call may be sent and learns from its outcome.
type Gate interface {
	Admit() error
	Record(err error)
}

// Client is an HTTP client for the TaskHub gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	gate       Gate
	hooks      observability.Hooks
	logger     *slog.Logger
	maxRetries int
	baseDelay  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithHooks installs observability hooks.
func WithHooks(h observability.Hooks) Option {
	return func(c *Client) {
		if h != nil {
			c.hooks = h
		}
	}
}

// WithGate routes every call through g.
func WithGate(g Gate) Option {
	return func(c *Client) { c.gate = g }
}

// WithLogger installs a debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetry sets the retry budget and the first backoff delay.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 1 {
			c.maxRetries = maxRetries
		}
		c.baseDelay = baseDelay
	}
}

// NewClient creates a gateway client rooted at baseURL.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		hooks:      observability.NopHooks{},
		logger:     slog.New(slog.DiscardHandler),
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hooks returns the installed observability hooks.
func (c *Client) Hooks() observability.Hooks {
	return c.hooks
}

// SetLogger replaces the debug logger. Call it before issuing requests.
func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// BaseURL returns the gateway origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response wraps a gateway response.
type Response struct {
	Data       json.RawMessage
	StatusCode int
	Headers    http.Header
}

// request describes one logical call; retries reuse it unchanged.
type request struct {
	method         string
	path           string
	query          url.Values
	body           any
	public         bool
	idempotencyKey string
}

// RequestOption adjusts a single request.
type RequestOption func(*request)

// Query sets the URL query.
func Query(q url.Values) RequestOption {
	return func(r *request) { r.query = q }
}

// Public sends the request without a bearer token when none is available.
func Public() RequestOption {
	return func(r *request) { r.public = true }
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, opts)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body, opts)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPatch, path, body, opts)
}

// Delete performs a DELETE request. body may be nil.
func (c *Client) Delete(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, body, opts)
}

func (c *Client) do(ctx context.Context, method, path string, body any, opts []RequestOption) (*Response, error) {
	req := &request{method: method, path: path, body: body}
	for _, opt := range opts {
		opt(req)
	}
	if method != http.MethodGet {
		// One key per logical call so gateway-side dedup covers our retries.
		req.idempotencyKey = uuid.NewString()
	}

	if c.gate == nil {
		return c.attempt(ctx, req)
	}
	if err := c.gate.Admit(); err != nil {
		c.logger.Debug("request rejected by gate", "method", method, "path", path, "error", err)
		return nil, err
	}
	resp, err := c.attempt(ctx, req)
	c.gate.Record(err)
	return resp, err
}

// attempt sends req, retrying retryable failures with backoff.
func (c *Client) attempt(ctx context.Context, req *request) (*Response, error) {
	method, path := req.method, req.path
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.singleRequest(ctx, req, attempt)
		if err == nil {
			return resp, nil
		}

		// A 429 goes straight back so the gate can honor Retry-After.
		var apiErr *output.Error
		if !errors.As(err, &apiErr) || !apiErr.Retryable || apiErr.Code == output.CodeRateLimit || attempt == c.maxRetries {
			return nil, err
		}
		lastErr = err

		info := observability.RequestInfo{Method: method, URL: c.buildURL(req), Attempt: attempt + 1}
		c.hooks.OnRetry(ctx, info, attempt+1, err)

		delay := c.backoffDelay(attempt)
		c.logger.Debug("retrying request", "method", method, "path", path, "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func (c *Client) singleRequest(ctx context.Context, req *request, attempt int) (*Response, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil && !req.public {
		return nil, err
	}

	var bodyReader io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	fullURL := c.buildURL(req)
	httpReq, err := http.NewRequestWithContext(ctx, req.method, fullURL, bodyReader)
	if err != nil {
		return nil, err
	}

	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	httpReq.Header.Set("User-Agent", version.UserAgent())
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.idempotencyKey)
	}

	info := observability.RequestInfo{Method: req.method, URL: fullURL, Attempt: attempt}
	ctx = c.hooks.OnRequestStart(ctx, info)
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			c.hooks.OnRequestEnd(ctx, info, observability.RequestResult{Duration: time.Since(start), Error: ctx.Err()})
			return nil, ctx.Err()
		}
		netErr := output.ErrNetwork(err)
		c.hooks.OnRequestEnd(ctx, info, observability.RequestResult{Duration: time.Since(start), Error: netErr, Retryable: true})
		return nil, netErr
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	result := observability.RequestResult{StatusCode: resp.StatusCode, Duration: time.Since(start)}
	if readErr != nil {
		result.Error = readErr
		c.hooks.OnRequestEnd(ctx, info, result)
		return nil, output.ErrNetwork(readErr)
	}

	c.logger.Debug("gateway response", "method", req.method, "url", fullURL, "status", resp.StatusCode, "attempt", attempt)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.hooks.OnRequestEnd(ctx, info, result)
		return &Response{Data: respBody, StatusCode: resp.StatusCode, Headers: resp.Header}, nil
	}

	apiErr := errorFromResponse(resp.StatusCode, resp.Header, respBody)
	result.Error = apiErr
	result.Retryable = apiErr.Retryable
	c.hooks.OnRequestEnd(ctx, info, result)
	return nil, apiErr
}

// errorBody is the gateway's error envelope. "error" is accepted as an
// alias for "message".
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Reason  string `json:"reason"`
}

func parseErrorBody(body []byte) (msg, reason string) {
	var eb errorBody
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &eb) != nil {
		return "", ""
	}
	msg = eb.Message
	if msg == "" {
		msg = eb.Error
	}
	return msg, eb.Reason
}

// errorFromResponse maps a non-2xx status to a structured error.
func errorFromResponse(status int, header http.Header, body []byte) *output.Error {
	msg, reason := parseErrorBody(body)

	var e *output.Error
	switch {
	case status == http.StatusTooManyRequests:
		e = output.ErrRateLimit(parseRetryAfter(header.Get("Retry-After")))
	case status == http.StatusUnauthorized:
		e = output.ErrAuth(orDefault(msg, "Authentication failed"))
		e.HTTPStatus = status
	case status == http.StatusForbidden:
		e = output.ErrForbidden(orDefault(msg, "Access denied"))
	case status == http.StatusNotFound:
		e = &output.Error{Code: output.CodeNotFound, Message: orDefault(msg, "Not found"), HTTPStatus: status}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e = &output.Error{Code: output.CodeValidation, Message: orDefault(msg, output.GenericMessage), HTTPStatus: status}
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		e = output.ErrAPI(status, orDefault(msg, fmt.Sprintf("Gateway error (%d)", status)))
		e.Retryable = true
	default:
		e = output.ErrAPI(status, msg)
	}
	e.Reason = reason
	return e
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (c *Client) buildURL(req *request) string {
	path := req.path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + APIPrefix + path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	return u
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	// Exponential backoff: base * 2^(attempt-1)
	delay := c.baseDelay * time.Duration(1<<(attempt-1))
	if c.baseDelay <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int64N(int64(maxJitter))) //nolint:gosec // G404: Jitter doesn't need crypto rand
	return delay + jitter
}

// parseRetryAfter parses the Retry-After header value.
func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return seconds
	}
	return 0
}
