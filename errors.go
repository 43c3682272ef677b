package termdex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/termdex/internal/column"
	"github.com/hupe1980/termdex/internal/handleindex"
	"github.com/hupe1980/termdex/internal/recordstore"
	"github.com/hupe1980/termdex/internal/resource"
)

var (
	// ErrIO indicates a failed file system operation. It is never retried.
	ErrIO = errors.New("termdex: i/o error")

	// ErrCorruptStore indicates a record file whose length is not a multiple
	// of the record width, or an unreadable index dump.
	ErrCorruptStore = errors.New("termdex: corrupt store")

	// ErrVerificationFailed indicates that a verified removal of the last
	// record found a different payload.
	ErrVerificationFailed = errors.New("termdex: verification failed")

	// ErrClosed is returned after Close by every Index method that returns
	// an error. Count, DocumentTerms, TopTerms and IsBlocked report an empty
	// index instead.
	ErrClosed = errors.New("termdex: index closed")

	// ErrDuplicateKey indicates a unique insert of an existing key.
	ErrDuplicateKey = errors.New("termdex: duplicate key")

	// ErrCapacityExceeded indicates that a fixed-capacity index is full.
	ErrCapacityExceeded = errors.New("termdex: capacity exceeded")

	// ErrEmptyIndex is returned for smallest/largest key lookups on an empty index.
	ErrEmptyIndex = errors.New("termdex: empty index")

	// ErrSchemaParse indicates a malformed column declaration.
	ErrSchemaParse = errors.New("termdex: schema parse error")

	// ErrInvalidArgument indicates an unusable argument, such as an empty term.
	ErrInvalidArgument = errors.New("termdex: invalid argument")

	// ErrBlocked is returned when adding a reference for a blocked document.
	ErrBlocked = errors.New("termdex: document blocked")
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, recordstore.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, recordstore.ErrVerificationFailed):
		return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	case errors.Is(err, recordstore.ErrCorrupt) && errors.Is(err, recordstore.ErrIO):
		// Torn tail found at open.
		return fmt.Errorf("%w: %w: %w", ErrIO, ErrCorruptStore, err)
	case errors.Is(err, recordstore.ErrCorrupt), errors.Is(err, handleindex.ErrCorrupt):
		return fmt.Errorf("%w: %w", ErrCorruptStore, err)
	case errors.Is(err, recordstore.ErrIO):
		return fmt.Errorf("%w: %w", ErrIO, err)
	case errors.Is(err, handleindex.ErrDuplicateKey):
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	case errors.Is(err, handleindex.ErrCapacityExceeded), errors.Is(err, resource.ErrMemoryLimitExceeded):
		return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	case errors.Is(err, handleindex.ErrEmpty):
		return fmt.Errorf("%w: %w", ErrEmptyIndex, err)
	case errors.Is(err, handleindex.ErrKeySize), errors.Is(err, recordstore.ErrInvalidPayload),
		errors.Is(err, recordstore.ErrOutOfRange):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, column.ErrParse):
		return fmt.Errorf("%w: %w", ErrSchemaParse, err)
	}

	return err
}
