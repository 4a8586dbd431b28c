package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/muurk/starvectl/internal/logging"
	"github.com/muurk/starvectl/internal/session"
	"github.com/muurk/starvectl/internal/version"
)

const (
	// DefaultBaseURL is where the lab service listens by default
	DefaultBaseURL = "http://localhost:5000"

	// DefaultTimeout bounds a single request. Discovery waits up to five
	// seconds for a DHCP offer on the service side.
	DefaultTimeout = 15 * time.Second

	// DefaultRateLimit caps requests per second sent to the service
	DefaultRateLimit = 20

	// DefaultBurst is the limiter burst size
	DefaultBurst = 5

	// maxBodySize caps how much of a response body is read
	maxBodySize = 4 << 20
)

// Observer receives one call per completed request. status is 0 when the
// request never produced a response.
type Observer interface {
	ObserveRequest(op string, status int, elapsed time.Duration)
}

// Client talks to the lab service's HTTP API. Every operation makes exactly
// one attempt; failures come back as *Error values.
type Client struct {
	// BaseURL is the service root, e.g. "http://localhost:5000"
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Limiter throttles outgoing requests (nil = unlimited)
	Limiter *rate.Limiter

	// Observer is notified after every request (nil = none)
	Observer Observer
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		Limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultBurst),
	}
}

// SetTimeout sets the per-request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRateLimit replaces the request limiter. perSecond <= 0 disables it.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.Limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.Limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// ListInterfaces returns the interfaces the service can attack from
func (c *Client) ListInterfaces(ctx context.Context) ([]session.Interface, error) {
	var out []session.Interface
	if err := c.do(ctx, "interfaces", http.MethodGet, "/api/interfaces", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Discover asks the service to locate the DHCP server reachable from iface
func (c *Client) Discover(ctx context.Context, iface string) (*DiscoverResult, error) {
	var out DiscoverResult
	if err := c.do(ctx, "discover", http.MethodPost, "/api/discover", DiscoverRequest{Interface: iface}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartAttack starts the exhaustion attack against server from iface
func (c *Client) StartAttack(ctx context.Context, iface, server string) error {
	return c.do(ctx, "start", http.MethodPost, "/api/attack/start", StartRequest{Interface: iface, ServerAddress: server}, nil)
}

// StopAttack stops the running attack
func (c *Client) StopAttack(ctx context.Context) error {
	return c.do(ctx, "stop", http.MethodPost, "/api/attack/stop", nil, nil)
}

// Status fetches the authoritative attack state
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var out StatusResult
	if err := c.do(ctx, "status", http.MethodGet, "/api/attack/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Release gives one acquired address back to the DHCP server
func (c *Client) Release(ctx context.Context, req ReleaseRequest) (*ReleaseResult, error) {
	var out ReleaseResult
	if err := c.do(ctx, "release", http.MethodPost, "/api/attack/release", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReleaseAll gives every acquired address back to the DHCP server
func (c *Client) ReleaseAll(ctx context.Context, req ReleaseAllRequest) (*ReleaseAllResult, error) {
	var out ReleaseAllResult
	if err := c.do(ctx, "release-all", http.MethodPost, "/api/attack/release-all", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs a single request. body is JSON-encoded when non-nil; out is
// decoded from a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return NewTransportError(op, err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return NewValidationError(fmt.Sprintf("cannot encode %s request: %v", op, err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return NewTransportError(op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.observe(op, 0, start)
		logging.Debug("Gateway request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return NewTransportError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.observe(op, resp.StatusCode, start)
	logging.LogGatewayCall(method, path, resp.StatusCode, time.Since(start), requestID)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return NewTransportError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		// A body without an "error" field leaves the message empty and the
		// caller falls back to its own text.
		_ = json.Unmarshal(data, &eb)
		return NewGatewayError(op, resp.StatusCode, eb.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return NewDecodeError(op, err)
	}
	return nil
}

func (c *Client) observe(op string, status int, start time.Time) {
	if c.Observer != nil {
		c.Observer.ObserveRequest(op, status, time.Since(start))
	}
}
