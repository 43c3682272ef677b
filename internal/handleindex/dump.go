package handleindex

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hupe1980/termdex/codec"
	"github.com/hupe1980/termdex/internal/fs"
	"github.com/hupe1980/termdex/internal/mmap"
	"github.com/hupe1980/termdex/internal/resource"
)

const loadBatch = 4096

// dumpTo writes all rows in ascending key order.
func (t *table) dumpTo(w io.Writer) (int64, error) {
	var count int64
	for row := range t.rows(true, nil) {
		if _, err := w.Write(row); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// dump writes the table to path through the codec named by its suffix. The
// file is written under a temporary name and renamed when complete.
func (t *table) dump(ctx context.Context, path string) (int64, error) {
	start := time.Now()

	var count int64
	err := fs.WriteFile(t.fs, path, func(w io.Writer) error {
		var err error
		count, err = t.writeDump(ctx, w, codec.ForPath(path))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("handleindex: dump %s: %w", path, err)
	}

	t.logger.Debug("handle index dumped", "path", path, "entries", count, "duration", time.Since(start))
	return count, nil
}

func (t *table) writeDump(ctx context.Context, f io.Writer, c codec.Codec) (int64, error) {
	bw := bufio.NewWriterSize(resource.NewRateLimitedWriter(ctx, f, t.rc), 1<<16)
	cw, err := c.NewWriter(bw)
	if err != nil {
		return 0, err
	}
	count, err := t.dumpTo(cw)
	if cerr := cw.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = bw.Flush()
	}
	return count, err
}

// load reads a dump written by dump. Uncompressed dumps on the local file
// system are memory-mapped.
func (t *table) load(path string) (int64, error) {
	start := time.Now()
	c := codec.ForPath(path)

	var (
		count int64
		err   error
	)
	if _, local := t.fs.(fs.LocalFS); local && c.Name() == "none" {
		count, err = t.loadMapped(path)
	} else {
		count, err = t.loadStream(path, c)
	}
	if err != nil {
		return count, fmt.Errorf("handleindex: load %s: %w", path, err)
	}

	t.logger.Debug("handle index loaded", "path", path, "entries", count, "duration", time.Since(start))
	return count, nil
}

func (t *table) loadMapped(path string) (int64, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return 0, err
	}
	defer m.Close()
	_ = m.Advise(mmap.AccessSequential)

	l := t.newLoader()
	if err := l.add(m.Bytes()); err != nil {
		return l.count, err
	}
	return l.count, nil
}

func (t *table) loadStream(path string, c codec.Codec) (int64, error) {
	f, err := t.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cr, err := c.NewReader(bufio.NewReaderSize(f, 1<<16))
	if err != nil {
		return 0, err
	}
	defer cr.Close()

	return t.loadFrom(cr)
}

func (t *table) loadFrom(r io.Reader) (int64, error) {
	l := t.newLoader()
	buf := make([]byte, loadBatch*t.width)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if n%t.width != 0 {
				return l.count, fmt.Errorf("%w: trailing %d bytes", ErrCorrupt, n%t.width)
			}
			if aerr := l.add(buf[:n]); aerr != nil {
				return l.count, aerr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return l.count, nil
		}
		if err != nil {
			return l.count, err
		}
	}
}

// loader appends ascending dump rows. Into an empty table rows go straight
// to the sorted prefixes; otherwise each row is upserted.
type loader struct {
	t     *table
	fast  bool
	last  []byte
	count int64
}

func (t *table) newLoader() *loader {
	return &loader{t: t, fast: t.size.Load() == 0}
}

func (l *loader) add(data []byte) error {
	t := l.t
	if len(data)%t.width != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of row width %d", ErrCorrupt, len(data), t.width)
	}
	for off := 0; off < len(data); off += t.width {
		row := data[off : off+t.width]
		key := row[:t.keyLen]
		if l.last != nil && bytes.Compare(key, l.last) <= 0 {
			return fmt.Errorf("%w: key at row %d is not ascending", ErrCorrupt, l.count)
		}
		l.last = append(l.last[:0], key...)

		if err := l.put(row); err != nil {
			return err
		}
		l.count++
	}
	return nil
}

func (l *loader) put(row []byte) error {
	t := l.t
	p := t.part(row[:t.keyLen])
	p.mu.Lock()
	defer p.mu.Unlock()

	if l.fast && p.n == p.sorted && (p.n == 0 || bytes.Compare(p.key(t, p.n-1), row[:t.keyLen]) < 0) {
		if err := t.admit(1); err != nil {
			return err
		}
		if err := p.appendSorted(t, row); err != nil {
			t.size.Add(-1)
			return err
		}
		return nil
	}

	if i := p.find(t, row[:t.keyLen]); i >= 0 {
		copy(p.row(t, i), row)
		return nil
	}
	return t.insertLocked(p, row)
}
