package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/reqflow/client/codec"
	"github.com/adamwoolhether/reqflow/client/metrics"
	"github.com/adamwoolhether/reqflow/client/progress"
	"github.com/adamwoolhether/reqflow/client/transport"
)

// Request issues a request to rawURL and returns immediately. local may be
// nil. The returned Result settles exactly once.
//
// Cancelling ctx aborts the request, which is reported as [RequestAborted].
// Failures before the request is sent never panic; they reject the Result
// and are reported to OnError as [ClientError].
func (c *Client) Request(ctx context.Context, rawURL string, local *Options) *Result {
	id := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "reqflow.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("reqflow.request_id", id)),
	)

	urlInterceptor, optionsInterceptor, responseInterceptor := c.interceptors()

	var opts Options
	if local != nil {
		opts = *local
	}

	rq := &call{
		client:              c,
		ctx:                 ctx,
		span:                span,
		result:              newResult(id),
		logger:              c.logger.With("id", id),
		responseInterceptor: responseInterceptor,
		started:             time.Now(),
		onError:             c.defaults.Merge(opts).OnError,
	}

	err := guard(func() error {
		return rq.setup(rawURL, opts, urlInterceptor, optionsInterceptor)
	})
	if err != nil {
		rq.fail(ClientError, err)
	}
	rq.release()

	return rq.result
}

// Do issues a request and waits for it to settle.
func (c *Client) Do(ctx context.Context, rawURL string, local *Options) (*Response, error) {
	return c.Request(ctx, rawURL, local).Await()
}

// call is the state of a single request.
type call struct {
	client              *Client
	ctx                 context.Context
	span                trace.Span
	result              *Result
	logger              *slog.Logger
	responseInterceptor ResponseInterceptor
	started             time.Time
	onError             func(ErrorReport)

	cfg    RequestConfig
	method string
	url    string
	tr     transport.Transport
	sent   bool
	stop   func() bool

	mu      sync.Mutex
	ready   bool
	pending []func()
}

func (rq *call) setup(rawURL string, opts Options, urlInterceptor URLInterceptor, optionsInterceptor OptionsInterceptor) error {
	c := rq.client

	if urlInterceptor != nil {
		u, err := urlInterceptor(rawURL)
		if err != nil {
			return err
		}
		rawURL = u
	}

	if optionsInterceptor != nil {
		o, err := optionsInterceptor(opts)
		if err != nil {
			return err
		}
		opts = o
	}

	merged := c.defaults.Merge(opts)
	rq.onError = merged.OnError

	cfg, err := resolve(merged)
	if err != nil {
		return err
	}
	rq.cfg = cfg
	rq.method = cfg.Method

	target, err := c.target(rawURL, cfg.Search)
	if err != nil {
		return err
	}
	rq.url = target
	rq.span.SetAttributes(
		attribute.String("http.request.method", cfg.Method),
		attribute.String("url.full", target),
	)

	if c.requestIDHeader != "" && !cfg.Headers.Has(c.requestIDHeader) {
		cfg.Headers.Set(c.requestIDHeader, rq.result.ID())
	}

	tr := c.factory()
	if tr == nil {
		return errors.New("transport factory returned nil")
	}
	rq.tr = tr
	rq.result.setAbort(tr.Abort)

	if err := tr.Open(cfg.Method, target, cfg.Username, cfg.Password); err != nil {
		return fmt.Errorf("opening transport: %w", err)
	}
	tr.SetTimeout(cfg.Timeout)
	tr.SetWithCredentials(cfg.WithCredentials)
	tr.SetResponseType(cfg.ResponseType)

	for _, name := range cfg.Headers.Names() {
		values, _ := cfg.Headers.Get(name)
		for _, v := range values {
			if err := tr.SetRequestHeader(name, v); err != nil {
				return fmt.Errorf("setting header[%s]: %w", name, err)
			}
		}
	}

	tr.On(transport.EventLoad, rq.handle(rq.load))
	for _, et := range []transport.EventType{transport.EventError, transport.EventTimeout, transport.EventAbort} {
		tr.On(et, rq.handle(rq.failure))
	}
	if cfg.OnProgress != nil {
		for _, et := range progress.Events(cfg.Method) {
			tr.On(et, rq.handle(rq.progress))
		}
	}

	body, err := codec.EncodePayload(cfg.Payload, cfg.Headers)
	if err != nil {
		return err
	}

	rq.result.markSent()
	rq.sent = true
	c.metrics.RecordSent(cfg.Method)

	if err := tr.Send(body); err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	rq.stop = context.AfterFunc(rq.ctx, tr.Abort)

	rq.logger.Debug("request sent", "method", cfg.Method, "url", target)

	if cfg.OnSend != nil {
		cfg.OnSend()
	}

	return nil
}

// target applies the base url and appends the encoded search.
func (c *Client) target(rawURL string, search any) (string, error) {
	target := strings.TrimSpace(rawURL)

	if c.baseURL != nil {
		ref, err := url.Parse(target)
		if err != nil {
			return "", fmt.Errorf("parsing url: %w", err)
		}
		target = c.baseURL.ResolveReference(ref).String()
	}

	if search == nil {
		return target, nil
	}

	encoded, err := codec.EncodeQuery(search)
	if err != nil {
		return "", fmt.Errorf("encoding search: %w", err)
	}
	if encoded == "" {
		return target, nil
	}

	target, fragment, hasFragment := strings.Cut(target, "#")
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	target += sep + encoded
	if hasFragment {
		target += "#" + fragment
	}

	return target, nil
}

// handle adapts fn to a transport handler running through dispatch.
func (rq *call) handle(fn func(transport.Event)) transport.Handler {
	return func(ev transport.Event) {
		rq.dispatch(func() { fn(ev) })
	}
}

// dispatch runs fn, or queues it while setup has not finished.
func (rq *call) dispatch(fn func()) {
	rq.mu.Lock()
	if !rq.ready {
		rq.pending = append(rq.pending, fn)
		rq.mu.Unlock()
		return
	}
	rq.mu.Unlock()

	fn()
}

// release drains events queued during setup in order.
func (rq *call) release() {
	for {
		rq.mu.Lock()
		if len(rq.pending) == 0 {
			rq.ready = true
			rq.mu.Unlock()
			return
		}
		fns := rq.pending
		rq.pending = nil
		rq.mu.Unlock()

		for _, fn := range fns {
			fn()
		}
	}
}

func (rq *call) load(ev transport.Event) {
	var resp *Response
	err := guard(func() error {
		r, err := newResponse(ev)
		if err != nil {
			return err
		}
		if rq.responseInterceptor != nil {
			if r, err = rq.responseInterceptor(r); err != nil {
				return err
			}
			if r == nil {
				return errors.New("response interceptor returned no response")
			}
		}
		resp = r
		return nil
	})
	if err != nil {
		rq.fail(LoadError, err)
		return
	}

	outcome := metrics.OutcomeSuccess
	var rejection error
	if !resp.IsSuccess {
		outcome = metrics.OutcomeRejected
		rejection = &RejectedError{Response: resp}
	}
	won := rq.result.settle(resp, rejection)

	if onLoad := rq.cfg.OnLoad; onLoad != nil {
		if err := guard(func() error { onLoad(resp); return nil }); err != nil {
			rq.report(LoadError, err)
		}
	}

	if won {
		rq.finish(resp.Status, outcome)
	}
}

func (rq *call) failure(ev transport.Event) {
	resp, err := newResponse(ev)
	if err != nil {
		rq.logger.Warn("failed to decode failed response", "error", err)
	}
	won := rq.result.settle(resp, &RejectedError{Response: resp})

	cause := ev.Err
	if cause == nil {
		cause = fmt.Errorf("transport %s", ev.Type)
	}
	rq.report(errorKind(ev.Type), cause)

	if won {
		rq.finish(resp.Status, metrics.OutcomeFailed)
	}
}

func (rq *call) progress(ev transport.Event) {
	d := progress.Normalize(ev)
	if d.Unsubscribe {
		rq.tr.Off(ev.Type)
		return
	}
	if !d.Report {
		return
	}

	rq.client.metrics.RecordProgress(rq.method, progress.Upload(rq.method))

	onProgress := rq.cfg.OnProgress
	if err := guard(func() error { onProgress(d.Progress, rq.tr.Abort); return nil }); err != nil {
		rq.report(LoadError, err)
	}
}

// fail rejects without a response and reports the cause.
func (rq *call) fail(kind ErrorKind, cause error) {
	won := rq.result.settle(nil, ErrRejected)
	rq.report(kind, cause)

	if won {
		rq.finish(0, metrics.OutcomeFailed)
	}
}

func (rq *call) report(kind ErrorKind, cause error) {
	rq.logger.Error("request error", "kind", kind, "method", rq.method, "url", rq.url, "error", cause)
	rq.client.metrics.RecordError(string(kind), rq.method)
	rq.span.RecordError(cause, trace.WithAttributes(attribute.String("reqflow.error_kind", string(kind))))

	if rq.onError == nil {
		return
	}

	report := ErrorReport{Kind: kind, Cause: cause}
	if err := guard(func() error { rq.onError(report); return nil }); err != nil {
		rq.logger.Error("error callback failed", "kind", kind, "error", err)
	}
}

// finish runs once, after the settling handler ran its callbacks.
func (rq *call) finish(status int, outcome string) {
	if rq.stop != nil {
		rq.stop()
	}

	since := time.Since(rq.started)
	if rq.sent {
		rq.client.metrics.RecordSettled(rq.method, status, outcome, since)
	}

	rq.span.SetAttributes(
		attribute.Int("http.response.status_code", status),
		attribute.String("reqflow.outcome", outcome),
	)
	if outcome != metrics.OutcomeSuccess {
		rq.span.SetStatus(codes.Error, outcome)
	}
	rq.span.End()

	rq.logger.Info("request settled", "method", rq.method, "url", rq.url, "status", status, "outcome", outcome, "since", since)

	rq.result.publish()
}

func errorKind(et transport.EventType) ErrorKind {
	switch et {
	case transport.EventTimeout:
		return NetworkTimeout
	case transport.EventAbort:
		return RequestAborted
	}

	return NetworkError
}
