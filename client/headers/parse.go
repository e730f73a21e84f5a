package headers

import (
	"strings"
)

// Parse builds a Store from a raw header block such as the one returned by a
// transport. Each line is split on its first colon; comma separated values
// become a multi-value header.
func Parse(raw string) *Store {
	s := &Store{parsed: make(map[string]Value)}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s
	}

	for line := range strings.SplitSeq(raw, "\n") {
		name, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}

		value = strings.TrimSpace(value)
		if !strings.Contains(value, ",") {
			s.Set(name, value)
			continue
		}

		var values []string
		for part := range strings.SplitSeq(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
		s.Set(name, values...)
	}

	return s
}
