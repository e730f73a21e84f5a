package client_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/reqflow/client"
)

func TestOptions_Merge(t *testing.T) {
	base := client.Options{
		Method:       "GET",
		Timeout:      client.Ptr(time.Second),
		ResponseType: client.ResponseText,
		Headers: map[string][]string{
			"accept":        {"text/plain"},
			"authorization": {"Bearer a"},
		},
		Username: "base",
	}

	tests := map[string]struct {
		over    client.Options
		check   func(t *testing.T, got client.Options)
		headers map[string][]string
	}{
		"emptyKeepsBase": {
			over: client.Options{},
			headers: map[string][]string{
				"accept":        {"text/plain"},
				"authorization": {"Bearer a"},
			},
			check: func(t *testing.T, got client.Options) {
				if got.Method != "GET" || *got.Timeout != time.Second || got.Username != "base" {
					t.Errorf("expected base values, got %+v", got)
				}
			},
		},
		"overrideWins": {
			over: client.Options{
				Method:       "POST",
				Timeout:      client.Ptr(time.Duration(0)),
				ResponseType: client.ResponseJSON,
				Headers:      map[string][]string{"Accept": {"application/json"}},
			},
			headers: map[string][]string{
				"Accept":        {"application/json"},
				"Authorization": {"Bearer a"},
			},
			check: func(t *testing.T, got client.Options) {
				if got.Method != "POST" || *got.Timeout != 0 || got.ResponseType != client.ResponseJSON {
					t.Errorf("expected override values, got %+v", got)
				}
				if got.Username != "base" {
					t.Errorf("expected unset username to keep base, got %q", got.Username)
				}
			},
		},
		"emptyValuesClearHeader": {
			over: client.Options{
				Headers: map[string][]string{"AUTHORIZATION": nil},
			},
			headers: map[string][]string{
				"Accept":        {"text/plain"},
				"Authorization": nil,
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := base.Merge(tc.over)

			if diff := cmp.Diff(tc.headers, got.Headers); diff != "" {
				t.Errorf("headers mismatch (-want +got):\n%s", diff)
			}
			if tc.check != nil {
				tc.check(t, got)
			}
		})
	}
}

func TestOptions_MergeDoesNotAlias(t *testing.T) {
	base := client.Options{Headers: map[string][]string{"X-A": {"1"}}}
	over := client.Options{Headers: map[string][]string{"X-B": {"2"}}}

	merged := base.Merge(over)
	merged.Headers["X-A"][0] = "changed"
	merged.Headers["X-B"][0] = "changed"

	if base.Headers["X-A"][0] != "1" || over.Headers["X-B"][0] != "2" {
		t.Error("expected merge to copy header values")
	}
}

func TestClient_DefaultsIsCopy(t *testing.T) {
	c, err := client.Build(client.WithDefaults(client.Options{
		Headers: map[string][]string{"X-A": {"1"}},
	}))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	d := c.Defaults()
	d.Headers["X-A"][0] = "changed"

	if got := c.Defaults().Headers["X-A"][0]; got != "1" {
		t.Errorf("expected defaults to be unchanged, got %q", got)
	}
}
