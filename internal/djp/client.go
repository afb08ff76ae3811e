// Package djp calls the DJP e-Faktur validation API.
package djp

import (
	"context"
	"encoding/xml"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/samber/lo"

	"efaktur-validator/internal/shared/metrics"
	"efaktur-validator/internal/shared/telemetry"
)

const (
	maxResponseBytes = 1 << 20
	userAgent        = "efaktur-validator/1.0"
)

// Options configures a Client.
type Options struct {
	Timeout      time.Duration
	RetryMax     int
	BaseURL      string
	AllowedHosts []string
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client looks up e-Faktur validation URLs. It is safe for concurrent use.
type Client struct {
	http    *retryablehttp.Client
	timeout time.Duration
	base    *url.URL
	allowed map[string]struct{}
}

// NewClient builds a client with its own connection pool.
func NewClient(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 200 * time.Millisecond
	}
	if opts.RetryWaitMax < opts.RetryWaitMin {
		opts.RetryWaitMax = 2 * time.Second
	}

	var base *url.URL
	if raw := strings.TrimSpace(opts.BaseURL); raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" || !isHTTP(parsed.Scheme) {
			return nil, errors.Newf("invalid DJP base url %q", raw)
		}
		base = parsed
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = opts.RetryWaitMin
	rc.RetryWaitMax = opts.RetryWaitMax
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = telemetry.KeyValueLogger{Component: "djp"}
	rc.HTTPClient = &http.Client{
		Timeout:   opts.Timeout,
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
	}

	allowed := lo.SliceToMap(opts.AllowedHosts, func(h string) (string, struct{}) {
		return strings.ToLower(strings.TrimSpace(h)), struct{}{}
	})

	return &Client{http: rc, timeout: opts.Timeout, base: base, allowed: allowed}, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.HTTPClient.CloseIdleConnections()
}

// Resolve checks rawURL against the allowed hosts and applies the base URL
// override. It returns ErrUntrustedURL for anything else.
func (c *Client) Resolve(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "parse validation url"), ErrUntrustedURL)
	}
	if !isHTTP(u.Scheme) || u.Host == "" {
		return "", errors.Mark(errors.Newf("validation url scheme %q not allowed", u.Scheme), ErrUntrustedURL)
	}
	if _, ok := c.allowed[strings.ToLower(u.Hostname())]; !ok {
		return "", errors.Mark(errors.Newf("validation url host %q not allowed", u.Hostname()), ErrUntrustedURL)
	}
	u.User = nil
	if c.base != nil {
		u.Scheme = c.base.Scheme
		u.Host = c.base.Host
		u.Path = strings.TrimRight(c.base.Path, "/") + u.Path
		u.RawPath = ""
	}
	return u.String(), nil
}

// Lookup fetches and decodes the DJP validation result behind rawURL.
func (c *Client) Lookup(ctx context.Context, rawURL string) (Invoice, error) {
	target, err := c.Resolve(rawURL)
	if err != nil {
		return Invoice{}, err
	}

	start := time.Now()
	inv, err := c.fetch(ctx, target)
	metrics.ObserveUpstreamDurationMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.IncUpstreamError()
		telemetry.Warn("djp.lookup_failed", map[string]any{
			"host":        hostOf(target),
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       err.Error(),
		})
		return Invoice{}, err
	}
	return inv, nil
}

func (c *Client) fetch(ctx context.Context, target string) (Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Invoice{}, errors.Mark(errors.Wrap(err, "build djp request"), ErrUntrustedURL)
	}
	req.Header.Set("Accept", "application/xml, text/xml")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return Invoice{}, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Invoice{}, errors.Mark(errors.Newf("djp returned status %d", resp.StatusCode), ErrBadResponse)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Invoice{}, classifyTransportError(ctx, err)
	}

	var inv Invoice
	if err := xml.Unmarshal(body, &inv); err != nil {
		return Invoice{}, errors.Mark(errors.Wrap(err, "decode djp xml"), ErrBadResponse)
	}
	if inv.empty() {
		return Invoice{}, errors.Mark(errors.New("djp response has no validation data"), ErrBadResponse)
	}
	return inv, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if isTimeout(ctx, err) {
		return errors.Mark(errors.Mark(errors.Wrap(err, "djp request timed out"), ErrTimeout), ErrUnavailable)
	}
	return errors.Mark(errors.Wrap(err, "djp request failed"), ErrUnavailable)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isHTTP(scheme string) bool {
	s := strings.ToLower(scheme)
	return s == "http" || s == "https"
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
