package errors

import "errors"

// Failure classes shared by every layer. Domain packages wrap these with
// context using fmt.Errorf("%w: ...") so callers can test with errors.Is.
var (
	// ErrNotReady is returned when an operation runs before its required
	// binding or selection exists (save before an editor is bound,
	// generate before a subject is chosen).
	ErrNotReady = errors.New("not ready")

	// ErrUploadFailed is returned when an image upload is rejected or the
	// upload endpoint answers with a non-2xx status.
	ErrUploadFailed = errors.New("upload failed")

	// ErrNetworkFailed covers transport errors and non-2xx answers from
	// external collaborators other than the upload endpoint.
	ErrNetworkFailed = errors.New("network request failed")

	// ErrValidationFailed marks input rejected locally before any side effect.
	ErrValidationFailed = errors.New("validation failed")

	// ErrOutOfRange is returned by reorder/remove operations given an index
	// outside the sequence. The sequence is left untouched.
	ErrOutOfRange = errors.New("index out of range")
)
