package transport

import (
	"io"
	"time"

	"golang.org/x/time/rate"
)

// progressInterval bounds how often progress events fire for one stream.
const progressInterval = 50 * time.Millisecond

// progressReader is an io.Reader, reporting transferred bytes at most once per
// progressInterval. The read that completes a known-length body always reports.
type progressReader struct {
	r         io.Reader
	loaded    int64
	total     int64
	emit      func(loaded, total int64)
	sometimes rate.Sometimes
}

func newProgressReader(r io.Reader, total int64, emit func(loaded, total int64)) *progressReader {
	return &progressReader{
		r:         r,
		total:     total,
		emit:      emit,
		sometimes: rate.Sometimes{First: 1, Interval: progressInterval},
	}
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n <= 0 {
		return n, err
	}

	pr.loaded += int64(n)
	if pr.total >= 0 && pr.loaded == pr.total {
		pr.emit(pr.loaded, pr.total)
		return n, err
	}

	pr.sometimes.Do(func() {
		pr.emit(pr.loaded, pr.total)
	})

	return n, err
}

// Close closes the wrapped reader when it is closable.
func (pr *progressReader) Close() error {
	if c, ok := pr.r.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
