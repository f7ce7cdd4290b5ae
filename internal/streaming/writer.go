package streaming

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"photo-gallery/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a chunk was not accepted by the client
	// within the configured write timeout.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the request context ended before the body
	// was fully written.
	ErrClientGone = errors.New("client disconnected")
)

// Config configures body writes.
type Config struct {
	// WriteTimeout bounds each chunk write. Zero disables the deadline.
	WriteTimeout time.Duration
	// ChunkSize is the size of each write. Zero writes the body at once.
	ChunkSize int
}

// DefaultConfig returns a 30s per-chunk deadline and 64KB chunks.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// Write sends data to w in chunks, extending the connection write deadline
// before each one and flushing after it. A client that stops reading fails
// the write after WriteTimeout. Writers that do not support deadlines, such
// as test recorders, are written without one.
func Write(ctx context.Context, w http.ResponseWriter, data []byte, config Config) (int64, error) {
	rc := http.NewResponseController(w)
	deadlines := config.WriteTimeout > 0
	if deadlines {
		defer func() {
			if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
				logging.Debug("failed to clear write deadline: %v", err)
			}
		}()
	}

	chunk := config.ChunkSize
	if chunk <= 0 {
		chunk = len(data)
	}

	var written int64
	for len(data) > 0 {
		if ctx.Err() != nil {
			return written, ErrClientGone
		}

		if deadlines {
			if err := rc.SetWriteDeadline(time.Now().Add(config.WriteTimeout)); errors.Is(err, http.ErrNotSupported) {
				deadlines = false
			}
		}

		n := min(chunk, len(data))
		m, err := w.Write(data[:n])
		written += int64(m)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return written, ErrWriteTimeout
			}
			if ctx.Err() != nil {
				return written, ErrClientGone
			}
			return written, err
		}
		data = data[n:]

		if len(data) > 0 {
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return written, err
			}
		}
	}
	return written, nil
}
