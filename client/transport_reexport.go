package client

import (
	"github.com/adamwoolhether/reqflow/client/transport"
)

// Type aliases re-exporting user-facing types from [transport].
type (
	// ResponseType selects how the response body is decoded.
	ResponseType = transport.ResponseType

	// Blob is binary data tagged with a media type.
	Blob = transport.Blob

	// FormData is an ordered multipart form body.
	FormData = transport.FormData
)

// Response types accepted by [Options.ResponseType].
const (
	ResponseText        = transport.ResponseText
	ResponseJSON        = transport.ResponseJSON
	ResponseArrayBuffer = transport.ResponseArrayBuffer
	ResponseBlob        = transport.ResponseBlob
	ResponseDocument    = transport.ResponseDocument
)

// NewFormData returns an empty multipart form.
func NewFormData() *FormData {
	return transport.NewFormData()
}
