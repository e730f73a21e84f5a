// Package progress turns transport progress events into a 0-100 value.
package progress

import (
	"github.com/adamwoolhether/reqflow/client/transport"
)

// Complete is the value reported once a request finished successfully.
const Complete = 100

// Decision is the outcome of normalizing one event.
type Decision struct {
	// Progress is the value to report, in [0, 100].
	Progress int

	// Report is false when the callback must not be invoked for this event.
	Report bool

	// Unsubscribe asks the caller to stop listening on the event's stream,
	// since its length cannot be known.
	Unsubscribe bool
}

// Normalize maps an event to a progress decision.
//
// Length-computable progress events report floor(loaded/total*100), except
// that exactly 100 is suppressed mid-stream. Progress events with unknown
// length unsubscribe. loadend reports 100 when the status is in (199, 309)
// and 0 otherwise. Every other event reports 0.
func Normalize(ev transport.Event) Decision {
	switch ev.Type.Base() {
	case transport.EventProgress:
		if !ev.LengthComputable || ev.Total <= 0 {
			return Decision{Unsubscribe: true}
		}

		p := int(ev.Loaded * Complete / ev.Total)
		if p >= Complete {
			return Decision{}
		}

		return Decision{Progress: max(p, 0), Report: true}

	case transport.EventLoadEnd:
		if status := ev.Target.Status; status > 199 && status < 309 {
			return Decision{Progress: Complete, Report: true}
		}

		return Decision{Report: true}
	}

	return Decision{Report: true}
}

// Events returns the transport events a progress listener subscribes to for
// method. Body-bearing methods track the upload stream, the rest track the
// download stream. loadend is always included since only it carries the
// final status.
func Events(method string) []transport.EventType {
	if Upload(method) {
		return []transport.EventType{
			transport.EventUploadLoadStart,
			transport.EventUploadProgress,
			transport.EventLoadEnd,
		}
	}

	return []transport.EventType{
		transport.EventLoadStart,
		transport.EventProgress,
		transport.EventLoadEnd,
	}
}

// Upload reports whether progress for method is tracked on the upload stream.
func Upload(method string) bool {
	return method == "POST" || method == "PUT"
}
