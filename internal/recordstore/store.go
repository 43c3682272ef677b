package recordstore

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hupe1980/termdex/internal/fs"
)

// scanBatch is the number of records read per call during Scan.
const scanBatch = 4096

type options struct {
	fs     fs.FileSystem
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithFileSystem sets the file system. Defaults to fs.Default.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) { o.fs = fsys }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Store is a file of fixed-width records.
type Store struct {
	mu     sync.Mutex
	path   string
	width  int
	f      fs.File
	zero   []byte
	logger *slog.Logger
}

// Open opens or creates the record file at path.
func Open(path string, width int, optFns ...Option) (*Store, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: record width %d", ErrInvalidPayload, width)
	}

	o := options{}
	for _, fn := range optFns {
		fn(&o)
	}
	o.fs = fs.OrDefault(o.fs)
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	f, err := o.fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}

	s := &Store{
		path:   path,
		width:  width,
		f:      f,
		zero:   make([]byte, width),
		logger: o.logger,
	}

	n, err := s.sizeLocked()
	if err != nil {
		_ = f.Close()
		if errors.Is(err, ErrCorrupt) {
			// A torn tail is an I/O condition at open time; Repair fixes it.
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
		return nil, err
	}

	s.logger.Debug("record store opened", "path", path, "width", width, "records", n)
	return s, nil
}

// Path returns the file path.
func (s *Store) Path() string { return s.path }

// Width returns the record width in bytes.
func (s *Store) Width() int { return s.width }

func (s *Store) sizeLocked() (int64, error) {
	if s.f == nil {
		return 0, ErrClosed
	}
	fi, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %w", ErrIO, s.path, err)
	}
	length := fi.Size()
	if length%int64(s.width) != 0 {
		return 0, fmt.Errorf("%w: %s has %d bytes, record width %d", ErrCorrupt, s.path, length, s.width)
	}
	return length / int64(s.width), nil
}

// Size returns the number of records.
func (s *Store) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sizeLocked()
}

func (s *Store) checkPayload(b []byte) error {
	if len(b) != s.width {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPayload, len(b), s.width)
	}
	return nil
}

// Add appends payload and returns its record index.
func (s *Store) Add(payload []byte) (int64, error) {
	if err := s.checkPayload(payload); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.sizeLocked()
	if err != nil {
		return 0, err
	}
	if err := s.appendLocked(n, payload); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) appendLocked(n int64, payload []byte) error {
	off := n * int64(s.width)
	if _, err := s.f.WriteAt(payload, off); err != nil {
		// Cut a partial write back to the record boundary.
		if terr := s.f.Truncate(off); terr != nil {
			s.logger.Error("record store rollback failed", "path", s.path, "error", terr)
		}
		return fmt.Errorf("%w: append to %s: %w", ErrIO, s.path, err)
	}
	return nil
}

// Get reads record i into dst, which must hold Width bytes.
func (s *Store) Get(i int64, dst []byte) error {
	if err := s.checkPayload(dst); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.sizeLocked()
	if err != nil {
		return err
	}
	if i < 0 || i >= n {
		return fmt.Errorf("%w: get %d of %d", ErrOutOfRange, i, n)
	}
	return s.readLocked(i, dst)
}

// Read returns a copy of record i.
func (s *Store) Read(i int64) ([]byte, error) {
	b := make([]byte, s.width)
	if err := s.Get(i, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) readLocked(i int64, dst []byte) error {
	if _, err := s.f.ReadAt(dst, i*int64(s.width)); err != nil {
		return fmt.Errorf("%w: read record %d of %s: %w", ErrIO, i, s.path, err)
	}
	return nil
}

// Put overwrites record i. Writing at index Size appends.
func (s *Store) Put(i int64, payload []byte) error {
	if err := s.checkPayload(payload); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.sizeLocked()
	if err != nil {
		return err
	}
	switch {
	case i == n:
		return s.appendLocked(n, payload)
	case i < 0 || i > n:
		return fmt.Errorf("%w: put %d of %d", ErrOutOfRange, i, n)
	}
	if _, err := s.f.WriteAt(payload, i*int64(s.width)); err != nil {
		return fmt.Errorf("%w: write record %d of %s: %w", ErrIO, i, s.path, err)
	}
	return nil
}

// Clean overwrites record i with zero bytes. The store does not shrink.
func (s *Store) Clean(i int64) error {
	return s.Put(i, s.zero)
}

// IsClean reports whether payload is all zero bytes.
func IsClean(payload []byte) bool {
	for _, b := range payload {
		if b != 0 {
			return false
		}
	}
	return true
}

// CleanLast removes the last record.
//
// If expected is non-nil the last record must equal it, otherwise the store
// is left unchanged and ErrVerificationFailed is returned; an empty store
// fails verification. Without verification an empty store is a no-op.
func (s *Store) CleanLast(expected []byte) error {
	if expected != nil {
		if err := s.checkPayload(expected); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.sizeLocked()
	if err != nil {
		return err
	}
	if n == 0 {
		if expected != nil {
			return fmt.Errorf("%w: store is empty", ErrVerificationFailed)
		}
		return nil
	}

	if expected != nil {
		last := make([]byte, s.width)
		if err := s.readLocked(n-1, last); err != nil {
			return err
		}
		if !bytes.Equal(last, expected) {
			return fmt.Errorf("%w: record %d differs from expected payload", ErrVerificationFailed, n-1)
		}
	}

	return s.truncateLocked(n - 1)
}

// PopLast reads the last record into dst and removes it. It reports false
// when the store is empty.
func (s *Store) PopLast(dst []byte) (bool, error) {
	if err := s.checkPayload(dst); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.sizeLocked()
	if err != nil || n == 0 {
		return false, err
	}
	if err := s.readLocked(n-1, dst); err != nil {
		return false, err
	}
	if err := s.truncateLocked(n - 1); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) truncateLocked(records int64) error {
	if err := s.f.Truncate(records * int64(s.width)); err != nil {
		return fmt.Errorf("%w: truncate %s: %w", ErrIO, s.path, err)
	}
	return nil
}

// Clear removes all records.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrClosed
	}
	return s.truncateLocked(0)
}

// Scan calls fn for every record in order. The slice passed to fn is only
// valid during the call. fn must not call back into the store. Returning an
// error from fn stops the scan and returns that error.
func (s *Store) Scan(fn func(i int64, rec []byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.sizeLocked()
	if err != nil {
		return err
	}

	buf := make([]byte, scanBatch*s.width)
	for start := int64(0); start < n; start += scanBatch {
		count := min(int64(scanBatch), n-start)
		chunk := buf[:count*int64(s.width)]
		if _, err := s.f.ReadAt(chunk, start*int64(s.width)); err != nil {
			return fmt.Errorf("%w: scan %s at record %d: %w", ErrIO, s.path, start, err)
		}
		for j := int64(0); j < count; j++ {
			rec := chunk[j*int64(s.width) : (j+1)*int64(s.width)]
			if err := fn(start+j, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sync commits the file to stable storage.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrClosed
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", ErrIO, s.path, err)
	}
	return nil
}

// Close releases the file. Further operations return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrClosed
	}
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrIO, s.path, err)
	}
	return nil
}

// Repair cuts a fractional trailing record from the file at path and
// returns the number of bytes removed. A missing file is not an error.
func Repair(fsys fs.FileSystem, path string, width int) (int64, error) {
	fsys = fs.OrDefault(fsys)
	fi, err := fsys.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}
	cut := fi.Size() % int64(width)
	if cut == 0 {
		return 0, nil
	}
	if err := fsys.Truncate(path, fi.Size()-cut); err != nil {
		return 0, fmt.Errorf("%w: repair %s: %w", ErrIO, path, err)
	}
	return cut, nil
}
