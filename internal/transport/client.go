// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
client.go - Remote API Transport Client

This file provides the single HTTP client through which every repository
talks to the remote API.

Request configuration:
  - Authentication: legacy x-auth-token header plus a standard
    Authorization: Bearer header on every call that has a credential
  - Request IDs: X-Request-ID (UUID) on every request
  - Timeout: one fixed client timeout (20s by default) for all requests

Resilience mechanisms:
  - Circuit breaker (sony/gobreaker/v2) counting connection failures and
    5xx responses; 4xx rejections are the server doing its job and do not
    trip the breaker
  - Client-side rate limiting (golang.org/x/time/rate)
  - Failure classification into ErrTimeout / ErrNoResponse / *APIError so
    callers can show retry-specific messages distinct from server-driven
    ones

Session invalidation side effect:
Any 401 response whose request path does not contain "/login" invokes the
OnUnauthorized hook exactly once per response; idempotence across repeated
401s is the session store's responsibility.
*/
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/tablemates/internal/logging"
	"github.com/tomtom215/tablemates/internal/metrics"
)

// maxErrorBodySize limits how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// errServerFault marks 5xx responses inside the circuit breaker so they
// count as failures without discarding the response.
var errServerFault = errors.New("server fault")

// Config configures a Client.
type Config struct {
	// BaseURL is the API root every Path is appended to.
	BaseURL string

	// Timeout bounds each request; zero means 20s.
	Timeout time.Duration

	// RateLimit and RateBurst configure the client-side limiter; a zero
	// RateLimit disables limiting.
	RateLimit float64
	RateBurst int

	// BreakerEnabled wraps round-trips in a circuit breaker.
	BreakerEnabled bool
}

// Client is the remote API transport. All repository traffic funnels
// through Do; construction happens once at the composition root.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*http.Response]

	// tokenSource supplies the current credential; empty means anonymous.
	tokenSource func() string

	// onUnauthorized is fired on a 401 from any non-login path.
	onUnauthorized func()
}

// New creates a Client from the given configuration.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	if cfg.BreakerEnabled {
		c.breaker = newBreaker("api")
	}

	return c
}

// newBreaker builds the transport circuit breaker. It opens after a 60%
// failure rate over at least 10 requests, waits 2 minutes before probing,
// and allows 3 concurrent probes in half-open state.
func newBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("Opening transport circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// SetTokenSource wires the credential provider. Must be called during
// composition, before the client is shared across goroutines.
func (c *Client) SetTokenSource(fn func() string) {
	c.tokenSource = fn
}

// SetUnauthorizedHandler wires the 401 side-effect hook. Must be called
// during composition, before the client is shared across goroutines.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.onUnauthorized = fn
}

// MultipartPayload describes a multipart/form-data request body with an
// optional single file attachment.
type MultipartPayload struct {
	Fields    map[string]string
	FileField string
	FileName  string
	File      io.Reader
}

// Request describes one API round-trip.
type Request struct {
	// Method is the HTTP method.
	Method string

	// Path is appended to the base URL, e.g. "/events/abc/join".
	Path string

	// Route is the path template used as the metrics label; defaults to
	// Path when empty. Pass "/events/:id/join", not the concrete path.
	Route string

	// Query holds optional URL query parameters.
	Query url.Values

	// Body is JSON-marshaled when non-nil. Mutually exclusive with
	// Multipart.
	Body interface{}

	// Multipart, when non-nil, sends multipart/form-data instead of JSON.
	Multipart *MultipartPayload

	// LoginPath exempts this request from the 401 invalidation hook.
	LoginPath bool

	// Out, when non-nil, receives the decoded JSON response body.
	Out interface{}
}

// Do executes one round-trip: rate limit, build, send, classify, decode.
// The returned error is nil, ErrTimeout, ErrNoResponse (possibly wrapped),
// or *APIError.
func (c *Client) Do(ctx context.Context, r Request) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := c.buildRequest(ctx, r)
	if err != nil {
		return err
	}

	route := r.Route
	if route == "" {
		route = r.Path
	}

	start := time.Now()
	resp, err := c.send(req)
	if err != nil {
		classified := c.classifyTransportError(err)
		metrics.RecordAPIRequest(r.Method, route, 0, time.Since(start))
		logging.Debug().Str("method", r.Method).Str("route", route).Err(classified).Msg("Request failed without response")
		return classified
	}
	defer resp.Body.Close()

	metrics.RecordAPIRequest(r.Method, route, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		apiErr := decodeAPIError(resp)
		if apiErr.Unauthorized() && !r.LoginPath && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		logging.Debug().Str("method", r.Method).Str("route", route).Int("status", resp.StatusCode).Str("detail", apiErr.Detail()).Msg("Request rejected")
		return apiErr
	}

	if r.Out != nil {
		if err := json.NewDecoder(resp.Body).Decode(r.Out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// buildRequest assembles the http.Request with body, auth, and headers.
func (c *Client) buildRequest(ctx context.Context, r Request) (*http.Request, error) {
	var body io.Reader = http.NoBody
	contentType := ""

	switch {
	case r.Multipart != nil:
		buf, ct, err := encodeMultipart(r.Multipart)
		if err != nil {
			return nil, err
		}
		body = buf
		contentType = ct
	case r.Body != nil:
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if len(r.Query) > 0 {
		req.URL.RawQuery = r.Query.Encode()
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	// The server accepts both a legacy custom token header and a standard
	// bearer header; send both for backward compatibility.
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("x-auth-token", token)
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return req, nil
}

// send executes the request, through the circuit breaker when enabled.
// 5xx responses count as breaker failures; 4xx do not.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.http.Do(req)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errServerFault
		}
		return resp, nil
	})
	if errors.Is(err, errServerFault) {
		// The breaker counted the failure; the response is still usable.
		return resp, nil
	}
	return resp, err
}

// classifyTransportError maps connection-level failures to the taxonomy.
func (c *Client) classifyTransportError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.APITransportFailures.WithLabelValues("no_response").Inc()
		return fmt.Errorf("%w: circuit open", ErrNoResponse)
	}

	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		metrics.APITransportFailures.WithLabelValues("timeout").Inc()
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		metrics.APITransportFailures.WithLabelValues("timeout").Inc()
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	metrics.APITransportFailures.WithLabelValues("no_response").Inc()
	return fmt.Errorf("%w: %v", ErrNoResponse, err)
}

// decodeAPIError turns an error response into an *APIError, reading at
// most maxErrorBodySize of the body.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		// Non-JSON error body; keep the status text as the detail.
		return apiErr
	}
	apiErr.Message = body.Message
	apiErr.Fields = body.Errors
	return apiErr
}

// encodeMultipart renders the payload into a buffer and returns it with
// the boundary-bearing content type. Attachments are bounded by the
// validation layer, so buffering is safe.
func encodeMultipart(p *MultipartPayload) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	// Deterministic field order keeps request encoding testable.
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.WriteField(k, p.Fields[k]); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", k, err)
		}
	}

	if p.File != nil && p.FileField != "" {
		part, err := w.CreateFormFile(p.FileField, p.FileName)
		if err != nil {
			return nil, "", fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, p.File); err != nil {
			return nil, "", fmt.Errorf("copy attachment: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}
