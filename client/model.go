package client

import (
	"github.com/adamwoolhether/reqflow/client/codec"
	"github.com/adamwoolhether/reqflow/client/headers"
	"github.com/adamwoolhether/reqflow/client/transport"
)

// Response describes the outcome of one request attempt. It is built once
// from the terminal transport event.
type Response struct {
	Status     int
	IsSuccess  bool
	StatusText string

	// Format is the response type the body was decoded with.
	Format transport.ResponseType
	Body   any

	Headers *headers.Store

	// Error is set when the transport failed, with ErrorText naming the
	// event: error, timeout, or abort.
	Error     bool
	ErrorText string
}

// isSuccess reports whether status counts as a successful response.
func isSuccess(status int) bool {
	return 199 < status && status < 305
}

// newResponse builds a Response from a terminal event. Text bodies are
// decoded according to their content type. On a decoding error the response
// keeps the raw body and the error is returned alongside it.
func newResponse(ev transport.Event) (*Response, error) {
	st := ev.Target

	resp := Response{
		Status:     st.Status,
		IsSuccess:  isSuccess(st.Status),
		StatusText: st.StatusText,
		Format:     st.ResponseType,
		Body:       st.Body,
		Headers:    headers.Parse(st.RawHeaders),
	}

	switch ev.Type {
	case transport.EventError, transport.EventTimeout, transport.EventAbort:
		resp.Error = true
		resp.ErrorText = string(ev.Type)
	}

	if text, ok := resp.Body.(string); ok && (resp.Format == transport.ResponseText || resp.Format == "") {
		body, err := codec.DecodeText(text, resp.Headers)
		if err != nil {
			return &resp, err
		}
		resp.Body = body
	}

	return &resp, nil
}
