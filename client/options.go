package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/reqflow/client/metrics"
	"github.com/adamwoolhether/reqflow/client/transport"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*clientOpts) error
type clientOpts struct {
	defaults          *Options
	client            *http.Client
	rt                http.RoundTripper
	factory           transport.Factory
	timeout           *time.Duration
	userAgent         string
	noFollowRedirects bool
	logger            *slog.Logger
	tracerProvider    trace.TracerProvider
	metrics           *metrics.Collector
	baseURL           *url.URL
	jar               http.CookieJar
	requestIDHeader   string
}

// WithDefaults sets the global options every request is merged onto.
func WithDefaults(o Options) Option {
	return func(c *clientOpts) error {
		c.defaults = &o
		return nil
	}
}

// WithClient replaces the [http.Client] used by the default transport.
// The client is copied, so later changes to hc are not observed.
func WithClient(hc *http.Client) Option {
	return func(c *clientOpts) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *clientOpts) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTransportFactory replaces the request primitive entirely. The factory
// is called once per request. Options that configure the net/http stack
// have no effect when it is set.
func WithTransportFactory(f transport.Factory) Option {
	return func(c *clientOpts) error {
		if f == nil {
			return errors.New("transport factory must not be nil")
		}
		c.factory = f
		return nil
	}
}

// WithTimeout sets the default per-request timeout. A timeout set through
// [WithDefaults] or per request takes precedence.
func WithTimeout(d time.Duration) Option {
	return func(c *clientOpts) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *clientOpts) error {
		c.userAgent = header
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(c *clientOpts) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientOpts) error {
		c.logger = logger
		return nil
	}
}

// WithTracerProvider enables a span per request.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *clientOpts) error {
		if tp == nil {
			return errors.New("tracer provider must not be nil")
		}
		c.tracerProvider = tp
		return nil
	}
}

// WithMetrics records request metrics on the given collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *clientOpts) error {
		c.metrics = m
		return nil
	}
}

// WithBaseURL resolves relative request urls against base.
func WithBaseURL(base string) Option {
	return func(c *clientOpts) error {
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("parsing base url: %w", err)
		}
		if !u.IsAbs() {
			return fmt.Errorf("base url[%s] must be absolute", base)
		}
		c.baseURL = u
		return nil
	}
}

// WithCookieJar sets the jar used by requests made with credentials.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *clientOpts) error {
		if jar == nil {
			return errors.New("cookie jar must not be nil")
		}
		c.jar = jar
		return nil
	}
}

// WithRequestIDHeader sends the request id in the named header, unless the
// request already sets it.
func WithRequestIDHeader(name string) Option {
	return func(c *clientOpts) error {
		if name == "" {
			return errors.New("request id header must not be empty")
		}
		c.requestIDHeader = name
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
