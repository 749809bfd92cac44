// Package httpclient provides the resilient HTTP client used for all calls
// to the upstream terminology service. A single logical request runs a
// timeout-bounded, retrying attempt loop inside the circuit breaker, so a
// degraded upstream trips the breaker instead of stacking up retries.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/openrx/medsearch-api/breaker"
	"github.com/openrx/medsearch-api/logging"
	"golang.org/x/time/rate"
)

// ErrTimeout is returned when a single attempt exceeds its timeout budget.
var ErrTimeout = errors.New("request timed out")

// ErrNetwork wraps transport-level failures (DNS, connection reset, ...).
var ErrNetwork = errors.New("network error")

// StatusError is returned for upstream responses with a 4xx or 5xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %s", e.Status)
}

// ClientError reports whether the status is a 4xx. Client errors are never
// retried: the request itself is wrong and retrying cannot help.
func (e *StatusError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ServerError reports whether the status is a 5xx.
func (e *StatusError) ServerError() bool {
	return e.StatusCode >= 500
}

// Config holds the client-wide defaults. Per-request values in
// RequestConfig override them.
type Config struct {
	Timeout    time.Duration // per-attempt timeout, default 10s
	Retries    int           // retry budget after the initial attempt, default 3
	RetryDelay time.Duration // base backoff, doubled per retry, default 300ms
	// RequestsPerSecond throttles outbound calls to the public upstream.
	// Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:           10 * time.Second,
		Retries:           3,
		RetryDelay:        300 * time.Millisecond,
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

// RequestConfig describes one logical request.
type RequestConfig struct {
	URL     string
	Method  string            // default GET
	Headers map[string]string
	Timeout time.Duration // <= 0 uses the client default
	Retries int           // < 0 uses the client default
	// RetryDelay is the base backoff before retry n, growing as
	// RetryDelay * 2^(n-1). <= 0 uses the client default.
	RetryDelay time.Duration
}

// Stats aggregates client health for reporting.
type Stats struct {
	TotalRequests uint64    `json:"totalRequests"`
	Successes     uint64    `json:"successes"`
	Failures      uint64    `json:"failures"`
	AvgResponseMs float64   `json:"avgResponseMs"`
	LastSuccess   time.Time `json:"lastSuccess"`
	LastFailure   time.Time `json:"lastFailure"`
	InFlight      int       `json:"inFlight"`
}

// Client is a retrying HTTP client with cooperative cancellation.
// All methods are safe for concurrent use.
type Client struct {
	httpClient *http.Client
	brk        *breaker.Breaker
	limiter    *rate.Limiter
	cfg        Config

	mu       sync.Mutex
	inflight map[uint64]context.CancelFunc
	nextID   uint64

	total         uint64
	successes     uint64
	failures      uint64
	totalDuration time.Duration
	lastSuccess   time.Time
	lastFailure   time.Time
}

// New creates a client wrapping every request in brk. brk may be nil, in
// which case requests run unguarded (useful in tests).
func New(brk *breaker.Breaker, cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = def.Retries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		// The transport deadline comes from the per-attempt context, not
		// from http.Client.Timeout, so a generous cap is enough here.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		brk:        brk,
		limiter:    limiter,
		cfg:        cfg,
		inflight:   make(map[uint64]context.CancelFunc),
	}
}

// Request performs one logical request and returns the response body.
// The attempt loop (initial attempt plus up to Retries retries with
// exponential backoff) runs inside the circuit breaker, so a tripped
// breaker rejects the whole call with breaker.ErrOpen before any attempt.
// Cancelling ctx aborts the in-flight attempt and schedules no further
// retries.
func (c *Client) Request(ctx context.Context, cfg RequestConfig) ([]byte, error) {
	id, reqCtx, cancel := c.register(ctx)
	defer c.unregister(id)
	defer cancel()

	start := time.Now()

	var body []byte
	var err error
	if c.brk != nil {
		err = c.brk.Execute(func() error {
			body, err = c.doWithRetries(reqCtx, cfg)
			return err
		})
	} else {
		body, err = c.doWithRetries(reqCtx, cfg)
	}

	c.record(err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// doWithRetries runs the attempt loop for a single logical request.
func (c *Client) doWithRetries(ctx context.Context, cfg RequestConfig) ([]byte, error) {
	retries := cfg.Retries
	if retries < 0 {
		retries = c.cfg.Retries
	}
	baseDelay := cfg.RetryDelay
	if baseDelay <= 0 {
		baseDelay = c.cfg.RetryDelay
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			wait := baseDelay * (1 << (attempt - 1))
			logging.Debug("Retrying upstream request",
				"url", cfg.URL, "attempt", attempt, "backoff", wait.String())

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		body, err := c.doOnce(ctx, cfg)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable(ctx, err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// doOnce performs a single attempt with its own timeout.
func (c *Client) doOnce(ctx context.Context, cfg RequestConfig) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", cfg.URL, err)
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The attempt timer fired while the parent is still live.
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, cfg.URL)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Warn("Failed to close response body", "error", cerr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
	}

	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return body, nil
}

// retryable decides whether an attempt error is worth another try.
// Cancellation and 4xx responses propagate immediately; timeouts, 5xx and
// transport failures are retried within the budget.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// The parent signal fired, not the per-attempt timer.
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.ServerError()
	}

	return true
}

// register derives a cancellable child context and tracks it so the request
// can be aborted by id or via CancelAll.
func (c *Client) register(ctx context.Context) (uint64, context.Context, context.CancelFunc) {
	reqCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.inflight[id] = cancel
	c.total++
	c.mu.Unlock()

	return id, reqCtx, cancel
}

func (c *Client) unregister(id uint64) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

// Cancel aborts a single in-flight request. It reports whether the id was
// known.
func (c *Client) Cancel(id uint64) bool {
	c.mu.Lock()
	cancel, ok := c.inflight[id]
	c.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// CancelAll aborts every outstanding request.
func (c *Client) CancelAll() {
	c.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(c.inflight))
	for _, cancel := range c.inflight {
		cancels = append(cancels, cancel)
	}
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	if len(cancels) > 0 {
		logging.Info("Cancelled in-flight upstream requests", "count", len(cancels))
	}
}

func (c *Client) record(err error, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalDuration += elapsed
	if err != nil {
		c.failures++
		c.lastFailure = time.Now()
		return
	}
	c.successes++
	c.lastSuccess = time.Now()
}

// Stats returns a snapshot of the aggregate client health.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		TotalRequests: c.total,
		Successes:     c.successes,
		Failures:      c.failures,
		LastSuccess:   c.lastSuccess,
		LastFailure:   c.lastFailure,
		InFlight:      len(c.inflight),
	}
	if done := c.successes + c.failures; done > 0 {
		s.AvgResponseMs = float64(c.totalDuration.Milliseconds()) / float64(done)
	}
	return s
}
