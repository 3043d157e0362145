package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"MacroLens/internal/cache"

	"github.com/andybalholm/brotli"
	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPError carries status/body for non-2xx responses.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	// RetryAfter is the server's requested wait, 0 when absent.
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, redact(e.URL), e.StatusCode, snippet(e.Body, 300))
}

// IsStatus reports whether err is an HTTPError with the given status.
func IsStatus(err error, code int) bool {
	var herr *HTTPError
	return errors.As(err, &herr) && herr.StatusCode == code
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// redact hides credentials in URLs that end up in logs and errors.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for _, name := range []string{"apikey", "api_key", "key", "token"} {
		if q.Has(name) {
			q.Set(name, "REDACTED")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// RetryConfig controls retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// MaxRetryAfter caps a server-requested Retry-After wait.
	MaxRetryAfter time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   4,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		MaxRetryAfter: 2 * time.Minute,
	}
}

// ParseRetryAfter parses a Retry-After header (seconds or HTTP date).
// Returns 0 when the header is missing or invalid.
func ParseRetryAfter(resp *http.Response) time.Duration {
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// retryAfterBackOff prefers a server-requested wait over the policy's next
// interval for one retry.
type retryAfterBackOff struct {
	backoff.BackOff
	next time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if b.next > 0 && d != backoff.Stop {
		d = b.next
	}
	b.next = 0
	return d
}

// Options configures a Client.
type Options struct {
	Timeout           time.Duration
	ProxyURL          string
	UserAgent         string
	RequestsPerMinute int
	Retry             RetryConfig
	Cache             *cache.Cache
	Logger            *zap.Logger
}

// Client performs cached, throttled, retried GET requests against one provider.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Retry     RetryConfig

	cache   *cache.Cache
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Client with optional proxy support.
func New(opts Options) *Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if opts.ProxyURL != "" {
		if u, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryConfig()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; MacroLens/1.0)"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	c := &Client{
		HTTP:      &http.Client{Timeout: opts.Timeout, Transport: transport},
		UserAgent: opts.UserAgent,
		Retry:     opts.Retry,
		cache:     opts.Cache,
		logger:    opts.Logger,
	}
	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return c
}

// Check inspects a 2xx body before Get returns it. A non-nil error is
// returned to the caller and the body is not cached.
type Check func(body []byte) error

// Get returns the body of a successful GET, consulting the cache first.
// check runs on every body, cached or fresh; a cached body failing it is
// refetched. A nil check accepts every body.
func (c *Client) Get(ctx context.Context, rawURL string, class cache.Class, check Check) ([]byte, error) {
	key := cache.Key(rawURL)
	if c.cache != nil {
		if body, ok := c.cache.Get(key, class); ok {
			if check == nil || check(body) == nil {
				c.logger.Debug("cache hit", zap.String("url", redact(rawURL)))
				return body, nil
			}
			c.logger.Debug("cached body rejected, refetching", zap.String("url", redact(rawURL)))
		}
	}

	body, err := c.doWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(body); err != nil {
			return nil, err
		}
	}
	if c.cache != nil {
		c.cache.Set(key, class, body)
	}
	return body, nil
}

// GetJSON decodes the body into out. Numbers decode as json.Number when out
// is *any so callers keep full precision. validate runs after each decode
// and gates caching like a Check.
func (c *Client) GetJSON(ctx context.Context, rawURL string, class cache.Class, out any, validate func() error) error {
	_, err := c.Get(ctx, rawURL, class, func(body []byte) error {
		if err := DecodeJSON(body, out); err != nil {
			return err
		}
		if validate != nil {
			return validate()
		}
		return nil
	})
	return err
}

// ErrNotJSON marks a 2xx body that is not valid JSON.
var ErrNotJSON = errors.New("response is not json")

// DecodeJSON unmarshals body using json.Number for numbers.
func DecodeJSON(body []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v body=%s", ErrNotJSON, err, snippet(body, 200))
	}
	return nil
}

func (c *Client) doWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.Retry.BaseDelay
	policy.MaxInterval = c.Retry.MaxDelay
	policy.MaxElapsedTime = 0
	wait := &retryAfterBackOff{BackOff: policy}
	bo := backoff.WithContext(backoff.WithMaxRetries(wait, uint64(c.Retry.MaxAttempts-1)), ctx)

	attempt := 0
	var body []byte
	op := func() error {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		b, err := c.do(ctx, rawURL)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			var herr *HTTPError
			if errors.As(err, &herr) && herr.RetryAfter > 0 {
				wait.next = herr.RetryAfter
				if c.Retry.MaxRetryAfter > 0 && wait.next > c.Retry.MaxRetryAfter {
					wait.next = c.Retry.MaxRetryAfter
				}
			}
			return err
		}
		body = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("request failed, retrying",
			zap.String("url", redact(rawURL)),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip, zstd")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Method:     req.Method,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Body:       body,
			RetryAfter: ParseRetryAfter(resp),
		}
	}
	return body, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}
	return io.ReadAll(r)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var herr *HTTPError
	if errors.As(err, &herr) {
		switch herr.StatusCode {
		case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return herr.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "eof")
}
