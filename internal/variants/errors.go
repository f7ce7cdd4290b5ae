package variants

import "errors"

var (
	// ErrInvalidArgument reports an unknown size class or a malformed source.
	// It is returned directly to the caller and never cached or swallowed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDecode reports a source that could not be fetched or parsed as an image.
	ErrDecode = errors.New("decode failed")

	// ErrEncode reports a failure to produce or store output bytes.
	ErrEncode = errors.New("encode failed")

	// ErrNotFound reports a handle that is unknown to its blob store,
	// typically because it was already revoked.
	ErrNotFound = errors.New("not found")

	// ErrSuperseded is returned to waiters of a transcode whose result was
	// discarded because the cache was cleared while it ran.
	ErrSuperseded = errors.New("superseded by cache clear")

	// ErrStopped is returned once the service has been stopped.
	ErrStopped = errors.New("variant service stopped")

	// ErrUploadsDisabled is returned by Ingest when no durable source store
	// is configured.
	ErrUploadsDisabled = errors.New("uploads are disabled")

	// ErrForbiddenSource reports a remote source whose address is not
	// allowed to be fetched.
	ErrForbiddenSource = errors.New("source address not allowed")
)

// statusFor maps a transcode error onto the status label used in metrics.
func statusFor(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	case errors.Is(err, ErrDecode):
		return "error_decode"
	case errors.Is(err, ErrEncode):
		return "error_encode"
	default:
		return "error"
	}
}
