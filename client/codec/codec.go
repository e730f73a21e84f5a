// Package codec formats request payloads and response text according to the
// Content-Type header.
package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/adamwoolhether/reqflow/client/headers"
	"github.com/adamwoolhether/reqflow/client/transport"
)

const contentType = "Content-Type"

var (
	// JSONPattern matches JSON media types, including structured +json suffixes.
	JSONPattern = regexp.MustCompile(`(?i)[/+]json\b`)

	// FormPattern matches urlencoded form media types.
	FormPattern = regexp.MustCompile(`(?i)application/x-www-form-urlencoded`)
)

// EncodePayload formats payload for the transport. Binary and form containers
// are sent untouched. Otherwise JSON content types marshal the payload and
// urlencoded content types encode it as a bracket-style query. Anything else
// passes through.
func EncodePayload(payload any, h *headers.Store) (any, error) {
	if untouched(payload) {
		return payload, nil
	}

	switch {
	case h.Matches(contentType, JSONPattern):
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, payloadError(h, err)
		}
		return string(data), nil

	case h.Matches(contentType, FormPattern):
		if s, ok := payload.(string); ok {
			return s, nil
		}
		encoded, err := EncodeQuery(payload)
		if err != nil {
			return nil, payloadError(h, err)
		}
		return encoded, nil
	}

	return payload, nil
}

// DecodeText parses a text response as JSON when the content type says so,
// and returns it unchanged otherwise. A blank JSON body decodes to nil.
func DecodeText(text string, h *headers.Store) (any, error) {
	if !h.Matches(contentType, JSONPattern) {
		return text, nil
	}
	// A blank body is no content, not malformed JSON. It must not turn a
	// successful 204 with a JSON content type into a LOAD_ERROR.
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("failed to format response text according to content type %q: %w", h.First(contentType), err)
	}

	return v, nil
}

func untouched(payload any) bool {
	switch payload.(type) {
	case nil, []byte, json.RawMessage, transport.Blob, *transport.Blob, *transport.FormData, io.Reader:
		return true
	}

	return false
}

func payloadError(h *headers.Store, err error) error {
	return fmt.Errorf("failed to format payload according to content type %q: %w", h.First(contentType), err)
}
