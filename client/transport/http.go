package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http/httpguts"
)

type readyState int

const (
	stateUnsent readyState = iota
	stateOpened
	stateSent
	stateDone
)

// HTTP is a Transport backed by an *http.Client. Events are emitted from a
// goroutine started by Send and are delivered to handlers one at a time.
type HTTP struct {
	client *http.Client
	jar    http.CookieJar
	logger *slog.Logger

	mu       sync.Mutex
	state    readyState
	method   string
	url      *url.URL
	username string
	password string
	timeout  time.Duration
	withCred bool
	respType ResponseType
	header   http.Header
	handlers map[EventType]Handler
	cancel   context.CancelCauseFunc
	snapshot State

	dispatchMu sync.Mutex
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithCookieJar sets the jar used when credentials are enabled.
func WithCookieJar(jar http.CookieJar) HTTPOption {
	return func(t *HTTP) {
		t.jar = jar
	}
}

// WithLogger sets the logger used for failures that cannot be reported
// through events.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(t *HTTP) {
		t.logger = logger
	}
}

// NewHTTP returns a Transport that performs the request with hc. A nil hc
// falls back to http.DefaultClient.
func NewHTTP(hc *http.Client, opts ...HTTPOption) *HTTP {
	if hc == nil {
		hc = http.DefaultClient
	}

	t := &HTTP{
		client:   hc,
		logger:   slog.Default(),
		respType: ResponseText,
		header:   make(http.Header),
		handlers: make(map[EventType]Handler),
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Open initializes the request. The url must be absolute.
func (t *HTTP) Open(method, rawURL, username, password string) error {
	if !httpguts.ValidHeaderFieldName(method) {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("url[%s] must be absolute", rawURL)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == stateSent {
		return fmt.Errorf("%w: open while sending", ErrInvalidState)
	}

	t.method = strings.ToUpper(method)
	t.url = u
	t.username = username
	t.password = password
	t.header = make(http.Header)
	t.snapshot = State{ResponseType: t.respType}
	t.state = stateOpened

	return nil
}

// SetTimeout bounds the whole request. Zero disables the timeout.
func (t *HTTP) SetTimeout(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = d
}

// SetWithCredentials enables the cookie jar for this request.
func (t *HTTP) SetWithCredentials(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.withCred = enabled
}

// SetResponseType selects how the response body is decoded.
func (t *HTTP) SetResponseType(rt ResponseType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.respType = rt
	t.snapshot.ResponseType = rt
}

// SetRequestHeader appends a request header value.
func (t *HTTP) SetRequestHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("%w: name %q", ErrInvalidHeader, name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("%w: value for %q", ErrInvalidHeader, name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateOpened {
		return fmt.Errorf("%w: set header before open", ErrInvalidState)
	}
	t.header.Add(name, value)

	return nil
}

// On registers h for events of type et, replacing any previous handler.
func (t *HTTP) On(et EventType, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[et] = h
}

// Off removes the handler for events of type et.
func (t *HTTP) Off(et EventType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers, et)
}

// Send starts the request and returns immediately.
func (t *HTTP) Send(body any) error {
	t.mu.Lock()
	if t.state != stateOpened {
		t.mu.Unlock()
		return fmt.Errorf("%w: send before open", ErrInvalidState)
	}

	if t.method == http.MethodGet || t.method == http.MethodHead {
		body = nil
	}

	reader, size, contentType, err := requestBody(body)
	if err != nil {
		t.mu.Unlock()
		return err
	}

	if contentType != "" && t.header.Get("Content-Type") == "" {
		t.header.Set("Content-Type", contentType)
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	stopTimeout := func() {}
	if t.timeout > 0 {
		ctx, stopTimeout = context.WithTimeoutCause(ctx, t.timeout, ErrTimeout)
	}

	hc := *t.client
	hc.Jar = nil
	if t.withCred {
		hc.Jar = t.jar
	}

	t.cancel = cancel
	t.state = stateSent
	t.mu.Unlock()

	go func() {
		defer func() {
			stopTimeout()
			cancel(nil)
		}()

		t.run(ctx, &hc, reader, size)
	}()

	return nil
}

// Abort cancels an in-flight request. It is a no-op before Send and after
// the request completed.
func (t *HTTP) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case stateSent:
		t.cancel(ErrAborted)
	case stateOpened:
		t.state = stateUnsent
	}
}

func (t *HTTP) run(ctx context.Context, hc *http.Client, body io.Reader, size int64) {
	t.emit(Event{Type: EventLoadStart})

	if size == 0 {
		body = nil
	}
	if body != nil {
		t.emit(Event{Type: EventUploadLoadStart, Total: size, LengthComputable: size >= 0})
		body = newProgressReader(body, size, func(loaded, total int64) {
			t.emit(Event{Type: EventUploadProgress, Loaded: loaded, Total: total, LengthComputable: total >= 0})
		})
	}

	req, err := t.newRequest(ctx, body, size)
	if err != nil {
		t.fail(ctx, err)
		return
	}

	resp, err := hc.Do(req)
	if err != nil {
		t.fail(ctx, err)
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.logger.Error("failed to close response body", "error", err)
		}
	}()

	t.mu.Lock()
	t.snapshot.Status = resp.StatusCode
	t.snapshot.StatusText = statusText(resp)
	t.snapshot.RawHeaders = rawHeaders(resp.Header)
	t.mu.Unlock()

	total := resp.ContentLength
	download := newProgressReader(resp.Body, total, func(loaded, total int64) {
		t.emit(Event{Type: EventProgress, Loaded: loaded, Total: total, LengthComputable: total >= 0})
	})

	data, err := io.ReadAll(download)
	if err != nil {
		t.fail(ctx, err)
		return
	}

	decoded, err := decodeBody(data, t.responseType(), resp.Header.Get("Content-Type"))
	if err != nil {
		t.logger.Error("failed to decode response body", "error", err, "url", t.url.Redacted())
		decoded = nil
	}

	t.mu.Lock()
	t.snapshot.Body = decoded
	t.state = stateDone
	t.mu.Unlock()

	t.emit(Event{Type: EventLoad, Loaded: download.loaded, Total: total, LengthComputable: total >= 0})
	t.emit(Event{Type: EventLoadEnd, Loaded: download.loaded, Total: total, LengthComputable: total >= 0})
}

func (t *HTTP) newRequest(ctx context.Context, body io.Reader, size int64) (*http.Request, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, t.method, t.url.String(), body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}
	if size >= 0 {
		req.ContentLength = size
	}

	req.Header = t.header.Clone()
	if t.username != "" || t.password != "" {
		req.SetBasicAuth(t.username, t.password)
	}

	return req, nil
}

// fail emits the terminal event matching the cause of err.
func (t *HTTP) fail(ctx context.Context, err error) {
	t.mu.Lock()
	t.state = stateDone
	t.snapshot.Status = 0
	t.snapshot.StatusText = ""
	t.snapshot.Body = nil
	t.mu.Unlock()

	et := EventError
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, ErrTimeout):
		et, err = EventTimeout, fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(cause, ErrAborted):
		et, err = EventAbort, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	t.emit(Event{Type: et, Err: err})
	t.emit(Event{Type: EventLoadEnd, Err: err})
}

func (t *HTTP) emit(ev Event) {
	t.dispatchMu.Lock()
	defer t.dispatchMu.Unlock()

	t.mu.Lock()
	h, ok := t.handlers[ev.Type]
	ev.Target = t.snapshot
	t.mu.Unlock()

	if ok && h != nil {
		h(ev)
	}
}

func (t *HTTP) responseType() ResponseType {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.respType
}

// statusText returns the reason phrase of the response status line.
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok {
		return text
	}

	return http.StatusText(resp.StatusCode)
}

// rawHeaders renders response headers one per line, joining repeated values.
func rawHeaders(h http.Header) string {
	var b strings.Builder
	for name, values := range h {
		b.WriteString(strings.ToLower(name))
		b.WriteString(": ")
		b.WriteString(strings.Join(values, ", "))
		b.WriteString("\r\n")
	}

	return b.String()
}
