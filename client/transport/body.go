package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// requestBody converts a send body into a reader. size is -1 when unknown.
// contentType is the type implied by the body, or "" when it implies none.
func requestBody(body any) (r io.Reader, size int64, contentType string, err error) {
	switch b := body.(type) {
	case nil:
		return nil, 0, "", nil
	case string:
		return strings.NewReader(b), int64(len(b)), "text/plain;charset=UTF-8", nil
	case []byte:
		return bytes.NewReader(b), int64(len(b)), "", nil
	case Blob:
		return bytes.NewReader(b.Data), int64(len(b.Data)), b.Type, nil
	case *Blob:
		return bytes.NewReader(b.Data), int64(len(b.Data)), b.Type, nil
	case *FormData:
		data, ct, err := b.encode()
		if err != nil {
			return nil, 0, "", fmt.Errorf("encoding form data: %w", err)
		}
		return bytes.NewReader(data), int64(len(data)), ct, nil
	case *bytes.Buffer:
		return bytes.NewReader(b.Bytes()), int64(b.Len()), "", nil
	case *bytes.Reader:
		return b, int64(b.Len()), "", nil
	case *strings.Reader:
		return b, int64(b.Len()), "", nil
	case io.Reader:
		return b, -1, "", nil
	default:
		return nil, 0, "", fmt.Errorf("%w: %T", ErrUnsupportedBody, body)
	}
}

// decodeBody converts raw response bytes according to rt. JSON bodies that
// fail to parse decode to nil.
func decodeBody(data []byte, rt ResponseType, contentType string) (any, error) {
	switch rt {
	case ResponseJSON:
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, nil
		}
		return v, nil

	case ResponseArrayBuffer:
		return data, nil

	case ResponseBlob:
		mediaType := contentType
		if mediaType == "" {
			mediaType = mimetype.Detect(data).String()
		}
		return Blob{Type: mediaType, Data: data}, nil

	case ResponseDocument:
		r, err := charset.NewReader(bytes.NewReader(data), contentType)
		if err != nil {
			return nil, fmt.Errorf("converting charset: %w", err)
		}
		doc, err := html.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("parsing document: %w", err)
		}
		return doc, nil

	default:
		return decodeText(data, contentType)
	}
}

// decodeText converts data to a UTF-8 string using the charset declared by
// contentType. Bodies without a declared charset are assumed to be UTF-8.
func decodeText(data []byte, contentType string) (string, error) {
	if _, params, err := mime.ParseMediaType(contentType); err != nil || params["charset"] == "" {
		return string(data), nil
	}

	r, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return "", fmt.Errorf("converting charset: %w", err)
	}

	text, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}

	return string(text), nil
}
