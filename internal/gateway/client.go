// ABOUTME: Gateway client composing request building and response decoding
// ABOUTME: Health, status, session list and the streamed response iterator

package gateway

import (
	"bufio"
	"context"
	"io"
	"iter"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	// DefaultRequestTimeout bounds unary calls. Streams are not bounded.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultSessionLimit is the limit callers use when none is configured.
	DefaultSessionLimit = 100

	// MaxSessionLimit is the largest limit sent to the gateway.
	MaxSessionLimit = 500

	maxErrorBodySize = 64 * 1024
	maxStreamLine    = 1024 * 1024
)

// StreamRequest is the input to StreamResponse.
type StreamRequest struct {
	BaseURL    string
	Token      string
	SessionKey string
	Model      string
	Input      string
}

type responsesBody struct {
	Model  string `json:"model"`
	Input  string `json:"input"`
	Stream bool   `json:"stream"`
}

// Client talks to one or more gateways over a shared connection pool.
// It is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	logger         *slog.Logger
	userAgent      string
	requestTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, e.g. with a tailnet client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent sets the client identifier header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRequestTimeout bounds unary calls. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// NewClient creates a gateway client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Transport: newTransport()},
		logger:         slog.Default(),
		userAgent:      DefaultUserAgent,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "gateway_client")
	return c
}

// newTransport bounds connection setup but not the body of a long stream.
func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Health reports whether the gateway considers itself healthy.
func (c *Client) Health(ctx context.Context, baseURL, token string) (bool, error) {
	body, err := c.get(ctx, baseURL, "/health", token)
	if err != nil {
		return false, err
	}
	return DecodeHealth(body), nil
}

// FetchStatus returns the gateway's runtime status.
func (c *Client) FetchStatus(ctx context.Context, baseURL, token string) (StatusSnapshot, error) {
	body, err := c.get(ctx, baseURL, "/status", token)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return DecodeStatus(body), nil
}

// FetchSessions lists gateway sessions. The limit is clamped to
// [1, MaxSessionLimit].
func (c *Client) FetchSessions(ctx context.Context, baseURL, token string, limit int) ([]SessionSummary, error) {
	body, err := c.get(ctx, baseURL, "/v1/sessions?limit="+strconv.Itoa(ClampSessionLimit(limit)), token)
	if err != nil {
		return nil, err
	}
	return DecodeSessions(body), nil
}

// ClampSessionLimit bounds limit to [1, MaxSessionLimit].
func ClampSessionLimit(limit int) int {
	return max(1, min(limit, MaxSessionLimit))
}

// StreamResponse posts input to /v1/responses and yields text deltas as they
// arrive. The sequence is single-pass: a second range over it yields
// ErrStreamConsumed. A non-2xx status yields one KindServer error before any
// delta. Stopping the range loop cancels the request and closes the body.
func (c *Client) StreamResponse(ctx context.Context, r StreamRequest) iter.Seq2[string, error] {
	var started atomic.Bool

	return func(yield func(string, error) bool) {
		if !started.CompareAndSwap(false, true) {
			yield("", ErrStreamConsumed)
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		req, err := BuildRequest(ctx, RequestParams{
			BaseURL:    r.BaseURL,
			Path:       "/v1/responses",
			Method:     http.MethodPost,
			Token:      r.Token,
			Body:       responsesBody{Model: r.Model, Input: r.Input, Stream: true},
			Stream:     true,
			SessionKey: r.SessionKey,
			UserAgent:  c.userAgent,
		})
		if err != nil {
			yield("", err)
			return
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			yield("", transportError(err))
			return
		}
		defer resp.Body.Close()

		if !isSuccess(resp.StatusCode) {
			msg := readErrorBody(resp.Body)
			if msg == "" {
				msg = "streaming request failed"
			}
			c.logger.Warn("stream rejected", "status", resp.StatusCode)
			yield("", serverError(resp.StatusCode, msg))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

		deltas := 0
		for scanner.Scan() {
			delta, ok := ExtractDelta(scanner.Text())
			if !ok {
				continue
			}
			deltas++
			if !yield(delta, nil) {
				c.logger.Debug("stream abandoned by consumer", "deltas", deltas)
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", transportError(err))
			return
		}

		c.logger.Debug("stream finished", "deltas", deltas)
	}
}

func (c *Client) get(ctx context.Context, baseURL, path, token string) ([]byte, error) {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	req, err := BuildRequest(ctx, RequestParams{
		BaseURL:   baseURL,
		Path:      path,
		Method:    http.MethodGet,
		Token:     token,
		UserAgent: c.userAgent,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	c.logger.Debug("gateway request",
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if !isSuccess(resp.StatusCode) {
		return nil, serverError(resp.StatusCode, readErrorBody(resp.Body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, invalidResponse(err)
	}
	return body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	return strings.TrimSpace(string(body))
}
