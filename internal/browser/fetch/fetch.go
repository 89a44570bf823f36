// Package fetch loads stylesheets, fonts and images referenced by a
// document. It understands http(s), file and data URLs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/weblayout/internal/config"
)

var (
	// ErrUnsupportedScheme is returned for URLs the client cannot load.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrTooLarge is returned when a body exceeds the configured limit.
	ErrTooLarge = errors.New("response body too large")
)

// Error describes a failed fetch.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Response is a fully read resource.
type Response struct {
	URL         *url.URL
	Body        []byte
	ContentType string
}

// Fetcher loads a resource. Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) (*Response, error)
}

// Client is the default Fetcher.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
	log       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as is.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLimiter replaces the request rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

// NewClient builds a client from the fetch configuration.
func NewClient(cfg config.FetchConfig, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)

	c := &Client{
		http:      &http.Client{Timeout: cfg.Timeout, Transport: newTransport()},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		log:       log.Named("fetch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch loads u. Network requests wait for the rate limiter first.
func (c *Client) Fetch(ctx context.Context, u *url.URL) (*Response, error) {
	if u == nil {
		return nil, &Error{Err: errors.New("nil URL")}
	}
	start := time.Now()
	var (
		resp *Response
		err  error
	)
	switch u.Scheme {
	case "http", "https":
		resp, err = c.fetchHTTP(ctx, u)
	case "file":
		resp, err = c.fetchFile(u)
	case "data":
		resp, err = decodeDataURL(u)
	default:
		err = &Error{URL: u.String(), Err: fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)}
	}
	if err != nil {
		c.log.Debug("Fetch failed", zap.Stringer("url", redacted(u)), zap.Error(err))
		return nil, err
	}
	c.log.Debug("Fetched resource",
		zap.Stringer("url", redacted(u)),
		zap.String("content_type", resp.ContentType),
		zap.Int("bytes", len(resp.Body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp, nil
}

func (c *Client) fetchHTTP(ctx context.Context, u *url.URL) (*Response, error) {
	wrap := func(status int, err error) error {
		return &Error{URL: u.String(), StatusCode: status, Err: err}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, wrap(0, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, wrap(0, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, wrap(0, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		return nil, wrap(res.StatusCode, errors.New(http.StatusText(res.StatusCode)))
	}
	body, err := c.readLimited(res.Body)
	if err != nil {
		return nil, wrap(res.StatusCode, err)
	}
	ct := res.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return &Response{URL: res.Request.URL, Body: body, ContentType: ct}, nil
}

func (c *Client) fetchFile(u *url.URL) (*Response, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{URL: u.String(), Err: err}
	}
	defer f.Close()
	body, err := c.readLimited(f)
	if err != nil {
		return nil, &Error{URL: u.String(), Err: err}
	}
	return &Response{URL: u, Body: body, ContentType: contentTypeByExtension(path, body)}, nil
}

func (c *Client) readLimited(r io.Reader) ([]byte, error) {
	if c.maxBody <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, c.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, c.maxBody)
	}
	return body, nil
}

// redacted drops the payload of data URLs from log fields.
func redacted(u *url.URL) *url.URL {
	if u.Scheme != "data" {
		return u
	}
	return &url.URL{Scheme: "data", Opaque: "…"}
}
