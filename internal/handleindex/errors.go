package handleindex

import "errors"

var (
	// ErrDuplicateKey is returned by PutUnique when the key exists.
	ErrDuplicateKey = errors.New("handleindex: duplicate key")

	// ErrCapacityExceeded is returned when a new key does not fit.
	ErrCapacityExceeded = errors.New("handleindex: capacity exceeded")

	// ErrEmpty is returned by SmallestKey and LargestKey on an empty index.
	ErrEmpty = errors.New("handleindex: empty index")

	// ErrKeySize is returned for keys of the wrong length.
	ErrKeySize = errors.New("handleindex: invalid key size")

	// ErrCorrupt is returned when a dump is truncated or not in ascending order.
	ErrCorrupt = errors.New("handleindex: corrupt dump")
)
