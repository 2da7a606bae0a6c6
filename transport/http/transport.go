package httptransport

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/salahkhalfi/offlineq/types"
)

// Doer performs a request before a deadline. *fasthttp.Client satisfies it.
type Doer interface {
	DoDeadline(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error
}

// Config configures the HTTP transport.
type Config struct {
	// Timeout bounds each request when the context has no earlier deadline.
	// Default: 30 seconds
	Timeout time.Duration

	// ContentType is sent when the payload is non-empty and the request has
	// no Content-Type header.
	// Default: "application/json"
	ContentType string

	// UserAgent is sent with every request.
	// Default: "offlineq"
	UserAgent string

	// Headers are added to every request; request headers win on conflict.
	Headers map[string]string

	// Client performs the requests.
	// Default: a *fasthttp.Client with library defaults
	Client Doer
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		ContentType: "application/json",
		UserAgent:   "offlineq",
	}
}

// Option configures a Transport.
type Option func(*Config)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithContentType sets the default content type.
func WithContentType(ct string) Option {
	return func(c *Config) {
		c.ContentType = ct
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithHeaders sets headers sent with every request.
//
// Parameters:
//   - h: Header names and values
//
// Returns:
//   - Option: Configuration option
func WithHeaders(h map[string]string) Option {
	return func(c *Config) {
		c.Headers = h
	}
}

// WithClient replaces the fasthttp client.
//
// Parameters:
//   - d: The client; *fasthttp.Client or a test double
//
// Returns:
//   - Option: Configuration option
func WithClient(d Doer) Option {
	return func(c *Config) {
		c.Client = d
	}
}

// Transport sends queued operations as HTTP requests.
type Transport struct {
	baseURL string
	config  Config
}

var _ types.Transport = (*Transport)(nil)

// New creates an HTTP transport.
//
// Parameters:
//   - baseURL: Prefix for relative targets (e.g. "https://api.example.com")
//   - opts: Optional configuration options
//
// Returns:
//   - *Transport: A new transport
//   - error: Error if baseURL is not an http(s) URL
func New(baseURL string, opts ...Option) (*Transport, error) {
	if !isAbsolute(baseURL) {
		return nil, errors.New("offlineq/httptransport: base URL must start with http:// or https://")
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Client == nil {
		config.Client = &fasthttp.Client{Name: config.UserAgent}
	}

	return &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		config:  config,
	}, nil
}

// URL returns the absolute URL for target.
func (t *Transport) URL(target string) string {
	if isAbsolute(target) {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}

	return t.baseURL + target
}

// Perform sends req and waits for the response, the deadline, or ctx.
//
// Parameters:
//   - ctx: Context for cancellation and deadline
//   - req: The request to send
//
// Returns:
//   - *types.Response: The response, also returned with status >= 400
//   - error: *types.TransportError on any failure
func (t *Transport) Perform(ctx context.Context, req types.Request) (*types.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &types.TransportError{Target: req.Target, Cause: err}
	}

	hreq := fasthttp.AcquireRequest()
	hresp := fasthttp.AcquireResponse()
	t.build(hreq, req)

	deadline := time.Now().Add(t.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	done := make(chan error, 1)
	go func() {
		done <- t.config.Client.DoDeadline(hreq, hresp, deadline)
	}()

	select {
	case err := <-done:
		defer fasthttp.ReleaseRequest(hreq)
		defer fasthttp.ReleaseResponse(hresp)

		if err != nil {
			return nil, &types.TransportError{Target: req.Target, Cause: err}
		}

		return result(req.Target, hresp)

	case <-ctx.Done():
		// The request and response are released once the client lets go.
		go func() {
			<-done
			fasthttp.ReleaseRequest(hreq)
			fasthttp.ReleaseResponse(hresp)
		}()

		return nil, &types.TransportError{Target: req.Target, Cause: ctx.Err()}
	}
}

func (t *Transport) build(hreq *fasthttp.Request, req types.Request) {
	hreq.SetRequestURI(t.URL(req.Target))
	hreq.Header.SetMethod(req.Method.HTTPVerb())
	hreq.Header.SetUserAgent(t.config.UserAgent)

	for k, v := range t.config.Headers {
		hreq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		hreq.Header.Set(k, v)
	}

	if len(req.Payload) > 0 {
		if !hasHeader(req.Headers, "Content-Type") && !hasHeader(t.config.Headers, "Content-Type") {
			hreq.Header.SetContentType(t.config.ContentType)
		}
		hreq.SetBody(req.Payload)
	}
}

func result(target string, hresp *fasthttp.Response) (*types.Response, error) {
	resp := &types.Response{
		Status: hresp.StatusCode(),
		Body:   append([]byte(nil), hresp.Body()...),
		Header: make(map[string]string),
	}
	hresp.Header.VisitAll(func(k, v []byte) {
		resp.Header[string(k)] = string(v)
	})

	if resp.Status >= fasthttp.StatusBadRequest {
		return resp, &types.TransportError{Status: resp.Status, Target: target}
	}

	return resp, nil
}

func hasHeader(h map[string]string, name string) bool {
	for k := range h {
		if strings.EqualFold(k, name) {
			return true
		}
	}

	return false
}

func isAbsolute(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
