// Package transporttest provides a scriptable in-memory Transport.
//
// A Fake records how it was configured and lets a test drive the request
// lifecycle by hand. Events are delivered synchronously on the calling
// goroutine, so once Respond, Fail, or TimeOut returns every handler has run.
package transporttest

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/adamwoolhether/reqflow/client/transport"
)

// Fake is a transport.Transport controlled by the test.
type Fake struct {
	mu sync.Mutex

	Method          string
	URL             string
	Username        string
	Password        string
	Timeout         time.Duration
	WithCredentials bool
	ResponseType    transport.ResponseType
	Header          http.Header
	Body            any

	Opened  bool
	Sent    bool
	Aborted bool

	// SendErr, when set, is returned by Send.
	SendErr error

	handlers map[transport.EventType]transport.Handler
	state    transport.State
	done     bool
}

// New returns an unopened Fake.
func New() *Fake {
	return &Fake{
		ResponseType: transport.ResponseText,
		Header:       make(http.Header),
		handlers:     make(map[transport.EventType]transport.Handler),
	}
}

// Factory records every Fake it creates.
type Factory struct {
	mu    sync.Mutex
	fakes []*Fake
}

// New satisfies transport.Factory.
func (f *Factory) New() transport.Transport {
	fake := New()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fakes = append(f.fakes, fake)

	return fake
}

// Last returns the most recently created Fake, or nil.
func (f *Factory) Last() *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.fakes) == 0 {
		return nil
	}

	return f.fakes[len(f.fakes)-1]
}

// Count returns how many transports were created.
func (f *Factory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fakes)
}

func (f *Fake) Open(method, url, username, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Method = method
	f.URL = url
	f.Username = username
	f.Password = password
	f.Opened = true

	return nil
}

func (f *Fake) SetTimeout(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Timeout = d
}

func (f *Fake) SetWithCredentials(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WithCredentials = enabled
}

func (f *Fake) SetResponseType(rt transport.ResponseType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResponseType = rt
}

func (f *Fake) SetRequestHeader(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.Opened {
		return transport.ErrInvalidState
	}
	f.Header.Add(name, value)

	return nil
}

func (f *Fake) On(et transport.EventType, h transport.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[et] = h
}

func (f *Fake) Off(et transport.EventType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, et)
}

// Subscribed reports whether a handler is registered for et.
func (f *Fake) Subscribed(et transport.EventType) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[et]
	return ok
}

func (f *Fake) Send(body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SendErr != nil {
		return f.SendErr
	}
	if !f.Opened || f.Sent {
		return transport.ErrInvalidState
	}

	f.Body = body
	f.Sent = true

	return nil
}

// Abort emits abort and loadend when the request is in flight.
func (f *Fake) Abort() {
	f.mu.Lock()
	if !f.Sent || f.done {
		f.mu.Unlock()
		return
	}
	f.Aborted = true
	f.mu.Unlock()

	f.terminate(transport.EventAbort, transport.ErrAborted)
}

// Progress emits a progress event on the download stream, or on the upload
// stream when upload is true.
func (f *Fake) Progress(upload bool, loaded, total int64, computable bool) {
	et := transport.EventProgress
	if upload {
		et = transport.EventUploadProgress
	}

	f.Emit(transport.Event{Type: et, Loaded: loaded, Total: total, LengthComputable: computable})
}

// Start emits loadstart, and upload.loadstart when a body was sent.
func (f *Fake) Start() {
	f.mu.Lock()
	hasBody := f.Body != nil
	f.mu.Unlock()

	f.Emit(transport.Event{Type: transport.EventLoadStart})
	if hasBody {
		f.Emit(transport.Event{Type: transport.EventUploadLoadStart})
	}
}

// Respond completes the request with a response, emitting progress, load,
// and loadend. The body is decoded according to the configured response type.
func (f *Fake) Respond(status int, header map[string]string, body string) {
	var raw strings.Builder
	for _, name := range slices.Sorted(maps.Keys(header)) {
		fmt.Fprintf(&raw, "%s: %s\r\n", name, header[name])
	}

	f.mu.Lock()
	f.state = transport.State{
		Status:       status,
		StatusText:   http.StatusText(status),
		ResponseType: f.ResponseType,
		Body:         decode(f.ResponseType, body),
		RawHeaders:   raw.String(),
	}
	f.done = true
	f.mu.Unlock()

	size := int64(len(body))
	f.Emit(transport.Event{Type: transport.EventProgress, Loaded: size, Total: size, LengthComputable: true})
	f.Emit(transport.Event{Type: transport.EventLoad, Loaded: size, Total: size, LengthComputable: true})
	f.Emit(transport.Event{Type: transport.EventLoadEnd, Loaded: size, Total: size, LengthComputable: true})
}

// Fail emits a network error followed by loadend.
func (f *Fake) Fail(err error) {
	f.terminate(transport.EventError, err)
}

// TimeOut emits a timeout followed by loadend.
func (f *Fake) TimeOut() {
	f.terminate(transport.EventTimeout, transport.ErrTimeout)
}

// Emit delivers ev to its handler with the current state attached.
func (f *Fake) Emit(ev transport.Event) {
	f.mu.Lock()
	h, ok := f.handlers[ev.Type]
	ev.Target = f.state
	f.mu.Unlock()

	if ok && h != nil {
		h(ev)
	}
}

func (f *Fake) terminate(et transport.EventType, err error) {
	f.mu.Lock()
	f.state = transport.State{ResponseType: f.ResponseType}
	f.done = true
	f.mu.Unlock()

	f.Emit(transport.Event{Type: et, Err: err})
	f.Emit(transport.Event{Type: transport.EventLoadEnd, Err: err})
}

func decode(rt transport.ResponseType, body string) any {
	switch rt {
	case transport.ResponseJSON:
		var v any
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return nil
		}
		return v
	case transport.ResponseArrayBuffer:
		return []byte(body)
	case transport.ResponseBlob:
		return transport.Blob{Data: []byte(body)}
	default:
		return body
	}
}
