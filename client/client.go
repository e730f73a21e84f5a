package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/net/publicsuffix"

	"github.com/adamwoolhether/reqflow/client/metrics"
	"github.com/adamwoolhether/reqflow/client/transport"
)

const tracerName = "github.com/adamwoolhether/reqflow/client"

// URLInterceptor rewrites the url of every request before it is resolved.
type URLInterceptor func(url string) (string, error)

// OptionsInterceptor rewrites the per-call options before they are merged
// onto the defaults. It receives empty Options when none were given.
type OptionsInterceptor func(Options) (Options, error)

// ResponseInterceptor rewrites every received response before it settles
// the request.
type ResponseInterceptor func(*Response) (*Response, error)

// Client issues requests. Its defaults are fixed at [Build] time; only the
// interceptors can change afterwards. A Client is safe for concurrent use.
type Client struct {
	defaults        Options
	factory         transport.Factory
	logger          *slog.Logger
	tracer          trace.Tracer
	metrics         *metrics.Collector
	baseURL         *url.URL
	requestIDHeader string

	mu                  sync.RWMutex
	urlInterceptor      URLInterceptor
	optionsInterceptor  OptionsInterceptor
	responseInterceptor ResponseInterceptor
}

// Build creates a Client. Without options, requests go through a
// [transport.HTTP] backed by a copy of [http.DefaultClient].
func Build(optFns ...Option) (*Client, error) {
	var opts clientOpts
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		logger:          slog.Default(),
		metrics:         opts.metrics,
		baseURL:         opts.baseURL,
		requestIDHeader: opts.requestIDHeader,
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.defaults != nil {
		client.defaults = *opts.defaults
	}
	if opts.timeout != nil && client.defaults.Timeout == nil {
		client.defaults.Timeout = opts.timeout
	}
	if _, err := resolve(client.defaults); err != nil {
		return nil, fmt.Errorf("checking defaults: %w", err)
	}

	tp := opts.tracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	client.tracer = tp.Tracer(tracerName)

	client.factory = opts.factory
	if client.factory == nil {
		factory, err := httpFactory(opts, client.logger)
		if err != nil {
			return nil, err
		}
		client.factory = factory
	}

	return client, nil
}

// httpFactory builds the default net/http backed transport factory.
func httpFactory(opts clientOpts, logger *slog.Logger) (transport.Factory, error) {
	hc := *http.DefaultClient
	if opts.client != nil {
		hc = *opts.client
	}

	if opts.noFollowRedirects {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var rt http.RoundTripper
	switch {
	case opts.rt != nil:
		rt = opts.rt
	case hc.Transport != nil:
		rt = hc.Transport
	default:
		rt = http.DefaultTransport
	}
	if opts.userAgent != "" {
		rt = userAgent{value: opts.userAgent, base: rt}
	}
	hc.Transport = rt

	jar := opts.jar
	if jar == nil {
		jar = hc.Jar
	}
	if jar == nil {
		cj, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		jar = cj
	}

	return func() transport.Transport {
		return transport.NewHTTP(&hc, transport.WithCookieJar(jar), transport.WithLogger(logger))
	}, nil
}

// Defaults returns a copy of the global options.
func (c *Client) Defaults() Options {
	d := c.defaults
	if d.Headers != nil {
		d.Headers = mergeHeaders(nil, d.Headers)
	}

	return d
}

// InterceptURL sets the url interceptor, replacing any previous one.
// A nil fn removes it.
func (c *Client) InterceptURL(fn URLInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urlInterceptor = fn
}

// InterceptOptions sets the options interceptor, replacing any previous one.
// A nil fn removes it.
func (c *Client) InterceptOptions(fn OptionsInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.optionsInterceptor = fn
}

// InterceptResponse sets the response interceptor, replacing any previous one.
// A nil fn removes it.
func (c *Client) InterceptResponse(fn ResponseInterceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responseInterceptor = fn
}

func (c *Client) interceptors() (URLInterceptor, OptionsInterceptor, ResponseInterceptor) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.urlInterceptor, c.optionsInterceptor, c.responseInterceptor
}
