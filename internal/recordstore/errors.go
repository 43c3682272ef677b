package recordstore

import "errors"

var (
	// ErrIO wraps file system failures. The store never retries.
	ErrIO = errors.New("recordstore: i/o error")

	// ErrCorrupt is returned when the file length is not a multiple of the record width.
	ErrCorrupt = errors.New("recordstore: corrupt store")

	// ErrVerificationFailed is returned when CleanLast finds a different trailing payload.
	ErrVerificationFailed = errors.New("recordstore: verification failed")

	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("recordstore: closed")

	// ErrInvalidPayload is returned when a payload does not have the record width.
	ErrInvalidPayload = errors.New("recordstore: invalid payload")

	// ErrOutOfRange is returned for record indexes beyond the end of the store.
	ErrOutOfRange = errors.New("recordstore: index out of range")
)
