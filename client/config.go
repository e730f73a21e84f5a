package client

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/adamwoolhether/reqflow/client/headers"
	"github.com/adamwoolhether/reqflow/client/transport"
)

// Options configures a request, either as client-wide defaults passed to
// [WithDefaults] or per call to [Client.Request]. The zero value of every
// field means unset, so merging never clobbers a configured value with it.
type Options struct {
	// Method is one of GET, POST, PUT, PATCH, DELETE, or OPTIONS.
	Method string

	// Search is encoded as the query string. It may be url.Values, a map,
	// or a struct with `url` tags.
	Search any

	// Payload is the request body, formatted according to Content-Type.
	Payload any

	// Timeout bounds the request. A pointer to zero disables a default timeout.
	Timeout *time.Duration

	// ResponseType selects body decoding. Text decodes JSON content types.
	ResponseType transport.ResponseType

	// Headers are merged per key, the override winning. A key with no
	// values removes the header set by the defaults.
	Headers map[string][]string

	Username string
	Password string

	// WithCredentials sends and stores cookies for the request.
	WithCredentials *bool

	// OnSend fires right after the request was handed to the transport.
	OnSend func()

	// OnLoad fires for every received response, successful or not.
	OnLoad func(*Response)

	// OnError fires once per failure with its classification.
	OnError func(ErrorReport)

	// OnProgress receives progress in [0, 100] and a func aborting the request.
	OnProgress func(progress int, abort func())
}

// Ptr returns a pointer to v, for the optional fields of [Options].
func Ptr[T any](v T) *T {
	return &v
}

// Merge returns a copy of o overlaid with every set field of over. Headers
// are united per normalized name with over taking precedence.
func (o Options) Merge(over Options) Options {
	merged := o

	if over.Method != "" {
		merged.Method = over.Method
	}
	if over.Search != nil {
		merged.Search = over.Search
	}
	if over.Payload != nil {
		merged.Payload = over.Payload
	}
	if over.Timeout != nil {
		merged.Timeout = over.Timeout
	}
	if over.ResponseType != "" {
		merged.ResponseType = over.ResponseType
	}
	if over.Headers != nil {
		merged.Headers = mergeHeaders(o.Headers, over.Headers)
	}
	if over.Username != "" {
		merged.Username = over.Username
	}
	if over.Password != "" {
		merged.Password = over.Password
	}
	if over.WithCredentials != nil {
		merged.WithCredentials = over.WithCredentials
	}
	if over.OnSend != nil {
		merged.OnSend = over.OnSend
	}
	if over.OnLoad != nil {
		merged.OnLoad = over.OnLoad
	}
	if over.OnError != nil {
		merged.OnError = over.OnError
	}
	if over.OnProgress != nil {
		merged.OnProgress = over.OnProgress
	}

	return merged
}

func mergeHeaders(base, over map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(base)+len(over))
	for name, values := range base {
		merged[headers.Normalize(name)] = slices.Clone(values)
	}
	for name, values := range over {
		merged[headers.Normalize(name)] = slices.Clone(values)
	}

	return merged
}

// RequestConfig is the resolved configuration of one request. It is built
// fresh for every call and not modified once handed to the transport.
type RequestConfig struct {
	Method          string                 `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE OPTIONS"`
	Search          any                    `json:"search" validate:"-"`
	Payload         any                    `json:"-" validate:"-"`
	Timeout         time.Duration          `json:"timeout" validate:"gte=0"`
	ResponseType    transport.ResponseType `json:"responseType" validate:"required,oneof=text json arraybuffer blob document"`
	Headers         *headers.Store         `json:"-" validate:"-"`
	Username        string                 `json:"username"`
	Password        string                 `json:"password"`
	WithCredentials bool                   `json:"withCredentials"`

	OnSend     func()                           `json:"-"`
	OnLoad     func(*Response)                  `json:"-"`
	OnError    func(ErrorReport)                `json:"-"`
	OnProgress func(progress int, abort func()) `json:"-"`
}

// defaultOptions holds the values every request starts from.
func defaultOptions() Options {
	return Options{
		Method:          "GET",
		Timeout:         Ptr(time.Duration(0)),
		ResponseType:    transport.ResponseText,
		WithCredentials: Ptr(false),
	}
}

// resolve validates merged options and builds the request configuration.
func resolve(o Options) (RequestConfig, error) {
	o = defaultOptions().Merge(o)

	cfg := RequestConfig{
		Method:          strings.ToUpper(strings.TrimSpace(o.Method)),
		Search:          o.Search,
		Payload:         o.Payload,
		Timeout:         *o.Timeout,
		ResponseType:    o.ResponseType,
		Headers:         headers.New(o.Headers),
		Username:        o.Username,
		Password:        o.Password,
		WithCredentials: *o.WithCredentials,
		OnSend:          o.OnSend,
		OnLoad:          o.OnLoad,
		OnError:         o.OnError,
		OnProgress:      o.OnProgress,
	}

	if err := validateConfig(cfg); err != nil {
		return RequestConfig{}, fmt.Errorf("validating request config: %w", err)
	}

	return cfg, nil
}
