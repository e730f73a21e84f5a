// Package reqflow exposes the client builder.
package reqflow

import (
	"github.com/adamwoolhether/reqflow/client"
)

// NewClient instantiates a new *client.Client with the provided options.
// If not specified, requests go through a copy of http.DefaultClient.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}
