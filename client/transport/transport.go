// Package transport defines the event-emitting request primitive driven by
// the client, along with an implementation on top of net/http.
//
// A Transport is opened, configured, and sent once. While the request is in
// flight it emits events to the handlers registered with On. Exactly one of
// load, error, timeout, or abort is emitted per send, always followed by
// loadend. Progress events may be emitted any number of times before that.
package transport

import (
	"errors"
	"strings"
	"time"
)

// ResponseType selects how the response body is decoded by the transport.
type ResponseType string

// Supported response types.
const (
	ResponseText        ResponseType = "text"
	ResponseJSON        ResponseType = "json"
	ResponseArrayBuffer ResponseType = "arraybuffer"
	ResponseBlob        ResponseType = "blob"
	ResponseDocument    ResponseType = "document"
)

// EventType names a transport event.
type EventType string

// Events emitted by a Transport. Upload events describe the request body,
// the rest describe the response.
const (
	EventLoadStart       EventType = "loadstart"
	EventProgress        EventType = "progress"
	EventUploadLoadStart EventType = "upload.loadstart"
	EventUploadProgress  EventType = "upload.progress"
	EventLoad            EventType = "load"
	EventError           EventType = "error"
	EventTimeout         EventType = "timeout"
	EventAbort           EventType = "abort"
	EventLoadEnd         EventType = "loadend"
)

// Base strips the upload prefix, so upload.progress reports as progress.
func (t EventType) Base() EventType {
	return EventType(strings.TrimPrefix(string(t), "upload."))
}

// Upload reports whether the event belongs to the upload stream.
func (t EventType) Upload() bool {
	return strings.HasPrefix(string(t), "upload.")
}

// Terminal reports whether the event settles a request.
func (t EventType) Terminal() bool {
	switch t {
	case EventLoad, EventError, EventTimeout, EventAbort:
		return true
	}

	return false
}

var (
	ErrInvalidState    = errors.New("transport: invalid state")
	ErrTimeout         = errors.New("transport: request timed out")
	ErrAborted         = errors.New("transport: request aborted")
	ErrUnsupportedBody = errors.New("transport: unsupported body type")
	ErrInvalidHeader   = errors.New("transport: invalid header")
	ErrInvalidMethod   = errors.New("transport: invalid method")
)

// State is a snapshot of the transport at the time an event fired.
type State struct {
	Status       int
	StatusText   string
	ResponseType ResponseType
	Body         any
	RawHeaders   string
}

// Event is delivered to handlers registered on a Transport.
type Event struct {
	Type   EventType
	Target State

	// Progress fields, set on progress and loadstart events.
	Loaded           int64
	Total            int64
	LengthComputable bool

	// Err carries the failure cause for error, timeout, and abort events.
	Err error
}

// Handler receives transport events. Handlers for a single transport are
// never invoked concurrently.
type Handler func(Event)

// Transport is the asynchronous request primitive. Configuration methods
// must be called after Open and before Send.
type Transport interface {
	Open(method, url, username, password string) error
	SetTimeout(d time.Duration)
	SetWithCredentials(enabled bool)
	SetResponseType(rt ResponseType)
	SetRequestHeader(name, value string) error
	On(t EventType, h Handler)
	Off(t EventType)
	Send(body any) error
	Abort()
}

// Factory creates a fresh Transport for each request.
type Factory func() Transport

// Blob is binary data tagged with a media type. It is accepted as a request
// body and produced for the blob response type.
type Blob struct {
	Type string
	Data []byte
}

// Size returns the blob length in bytes.
func (b Blob) Size() int {
	return len(b.Data)
}
