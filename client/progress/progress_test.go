package progress_test

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/reqflow/client/progress"
	"github.com/adamwoolhether/reqflow/client/transport"
)

func TestNormalize(t *testing.T) {
	tests := map[string]struct {
		event transport.Event
		want  progress.Decision
	}{
		"half": {
			event: transport.Event{Type: transport.EventProgress, Loaded: 50, Total: 100, LengthComputable: true},
			want:  progress.Decision{Progress: 50, Report: true},
		},
		"floors": {
			event: transport.Event{Type: transport.EventProgress, Loaded: 2, Total: 3, LengthComputable: true},
			want:  progress.Decision{Progress: 66, Report: true},
		},
		"justBelowComplete": {
			event: transport.Event{Type: transport.EventProgress, Loaded: 999, Total: 1000, LengthComputable: true},
			want:  progress.Decision{Progress: 99, Report: true},
		},
		"completeSuppressed": {
			event: transport.Event{Type: transport.EventProgress, Loaded: 10, Total: 10, LengthComputable: true},
			want:  progress.Decision{},
		},
		"uploadCompleteSuppressed": {
			event: transport.Event{Type: transport.EventUploadProgress, Loaded: 10, Total: 10, LengthComputable: true},
			want:  progress.Decision{},
		},
		"uploadPartial": {
			event: transport.Event{Type: transport.EventUploadProgress, Loaded: 1, Total: 4, LengthComputable: true},
			want:  progress.Decision{Progress: 25, Report: true},
		},
		"notComputable": {
			event: transport.Event{Type: transport.EventProgress, Loaded: 10},
			want:  progress.Decision{Unsubscribe: true},
		},
		"loadEndSuccess": {
			event: transport.Event{Type: transport.EventLoadEnd, Target: transport.State{Status: http.StatusOK}},
			want:  progress.Decision{Progress: progress.Complete, Report: true},
		},
		"loadEndRedirectRange": {
			event: transport.Event{Type: transport.EventLoadEnd, Target: transport.State{Status: http.StatusPermanentRedirect}},
			want:  progress.Decision{Progress: progress.Complete, Report: true},
		},
		"loadEndNotFound": {
			event: transport.Event{Type: transport.EventLoadEnd, Target: transport.State{Status: http.StatusNotFound}},
			want:  progress.Decision{Report: true},
		},
		"loadEndNetworkFailure": {
			event: transport.Event{Type: transport.EventLoadEnd},
			want:  progress.Decision{Report: true},
		},
		"loadStart": {
			event: transport.Event{Type: transport.EventLoadStart},
			want:  progress.Decision{Report: true},
		},
		"uploadLoadStart": {
			event: transport.Event{Type: transport.EventUploadLoadStart, Total: 10, LengthComputable: true},
			want:  progress.Decision{Report: true},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := progress.Normalize(tc.event)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("decision mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_NeverCompleteMidStream(t *testing.T) {
	const total = 7

	for loaded := range int64(total + 1) {
		d := progress.Normalize(transport.Event{
			Type:             transport.EventProgress,
			Loaded:           loaded,
			Total:            total,
			LengthComputable: true,
		})
		if d.Report && d.Progress >= progress.Complete {
			t.Errorf("loaded %d: reported %d mid-stream", loaded, d.Progress)
		}
		if d.Progress < 0 {
			t.Errorf("loaded %d: reported negative progress %d", loaded, d.Progress)
		}
	}
}

func TestEvents(t *testing.T) {
	tests := map[string]struct {
		method string
		want   []transport.EventType
	}{
		"post": {
			method: http.MethodPost,
			want:   []transport.EventType{transport.EventUploadLoadStart, transport.EventUploadProgress, transport.EventLoadEnd},
		},
		"put": {
			method: http.MethodPut,
			want:   []transport.EventType{transport.EventUploadLoadStart, transport.EventUploadProgress, transport.EventLoadEnd},
		},
		"get": {
			method: http.MethodGet,
			want:   []transport.EventType{transport.EventLoadStart, transport.EventProgress, transport.EventLoadEnd},
		},
		"patch": {
			method: http.MethodPatch,
			want:   []transport.EventType{transport.EventLoadStart, transport.EventProgress, transport.EventLoadEnd},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, progress.Events(tc.method)); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
