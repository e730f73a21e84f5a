package codec_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/reqflow/client/codec"
	"github.com/adamwoolhether/reqflow/client/headers"
	"github.com/adamwoolhether/reqflow/client/transport"
)

func contentType(ct string) *headers.Store {
	return new(headers.Store).Set("Content-Type", ct)
}

func TestEncodePayload(t *testing.T) {
	blob := transport.Blob{Type: "image/png", Data: []byte{1, 2}}
	form := transport.NewFormData().Append("a", "b")
	reader := strings.NewReader("raw")

	tests := map[string]struct {
		payload any
		headers *headers.Store
		want    any
	}{
		"nil": {
			payload: nil,
			headers: contentType("application/json"),
			want:    nil,
		},
		"bytesUntouched": {
			payload: []byte(`{"a":1}`),
			headers: contentType("application/json"),
			want:    []byte(`{"a":1}`),
		},
		"blobUntouched": {
			payload: blob,
			headers: contentType("application/json"),
			want:    blob,
		},
		"formDataUntouched": {
			payload: form,
			headers: contentType("application/json"),
			want:    form,
		},
		"readerUntouched": {
			payload: reader,
			headers: contentType("application/json"),
			want:    reader,
		},
		"json": {
			payload: map[string]any{"a": 1, "b": []string{"x"}},
			headers: contentType("application/json; charset=utf-8"),
			want:    `{"a":1,"b":["x"]}`,
		},
		"jsonSuffix": {
			payload: struct {
				Name string `json:"name"`
			}{Name: "gopher"},
			headers: contentType("application/problem+json"),
			want:    `{"name":"gopher"}`,
		},
		"jsonString": {
			payload: "hi",
			headers: contentType("application/json"),
			want:    `"hi"`,
		},
		"urlencoded": {
			payload: map[string]any{"b": []int{1, 2}, "a": "x y"},
			headers: contentType("application/x-www-form-urlencoded"),
			want:    "a=x+y&b%5B%5D=1&b%5B%5D=2",
		},
		"urlencodedStruct": {
			payload: struct {
				Tags []string `url:"tags"`
			}{Tags: []string{"a", "b"}},
			headers: contentType("application/x-www-form-urlencoded"),
			want:    "tags%5B%5D=a&tags%5B%5D=b",
		},
		"urlencodedValues": {
			payload: url.Values{"tags": {"a", "b"}},
			headers: contentType("application/x-www-form-urlencoded"),
			want:    "tags%5B%5D=a&tags%5B%5D=b",
		},
		"urlencodedString": {
			payload: "a=1&b=2",
			headers: contentType("application/x-www-form-urlencoded"),
			want:    "a=1&b=2",
		},
		"otherPassthrough": {
			payload: "plain",
			headers: contentType("text/plain"),
			want:    "plain",
		},
		"noContentType": {
			payload: "plain",
			headers: new(headers.Store),
			want:    "plain",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := codec.EncodePayload(tc.payload, tc.headers)
			if err != nil {
				t.Fatalf("encoding payload: %v", err)
			}

			if r, ok := tc.want.(*strings.Reader); ok {
				if got != r {
					t.Errorf("expected reader to pass through untouched")
				}
				return
			}
			if f, ok := tc.want.(*transport.FormData); ok {
				if got != f {
					t.Errorf("expected form data to pass through untouched")
				}
				return
			}

			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodePayload_Errors(t *testing.T) {
	tests := map[string]struct {
		payload any
		headers *headers.Store
		wantMsg string
	}{
		"jsonUnsupported": {
			payload: map[string]any{"fn": func() {}},
			headers: contentType("application/json"),
			wantMsg: `failed to format payload according to content type "application/json"`,
		},
		"formUnsupported": {
			payload: 42,
			headers: contentType("application/x-www-form-urlencoded"),
			wantMsg: `failed to format payload according to content type "application/x-www-form-urlencoded"`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := codec.EncodePayload(tc.payload, tc.headers)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.HasPrefix(err.Error(), tc.wantMsg) {
				t.Errorf("expected message prefix %q, got %q", tc.wantMsg, err.Error())
			}
		})
	}
}

func TestDecodeText(t *testing.T) {
	tests := map[string]struct {
		text    string
		headers *headers.Store
		want    any
		wantErr bool
	}{
		"json": {
			text:    `{"a":1}`,
			headers: contentType("application/json"),
			want:    map[string]any{"a": float64(1)},
		},
		"jsonCharset": {
			text:    `[1,2]`,
			headers: contentType("application/json;charset=UTF-8"),
			want:    []any{float64(1), float64(2)},
		},
		"jsonBlank": {
			text:    "  ",
			headers: contentType("application/json"),
			want:    nil,
		},
		"jsonInvalid": {
			text:    `{"a":`,
			headers: contentType("application/json"),
			wantErr: true,
		},
		"plain": {
			text:    `{"a":1}`,
			headers: contentType("text/plain"),
			want:    `{"a":1}`,
		},
		"noHeader": {
			text:    "",
			headers: new(headers.Store),
			want:    "",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := codec.DecodeText(tc.text, tc.headers)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), `content type "application/json"`) {
					t.Errorf("expected content type in error, got %q", err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("decoding text: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
