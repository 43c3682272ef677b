package termdex

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/termdex/internal/fs"
	"github.com/hupe1980/termdex/internal/handleindex"
	"github.com/hupe1980/termdex/internal/recordstore"
	"github.com/hupe1980/termdex/internal/resource"
	"github.com/hupe1980/termdex/model"
)

// dumper is the dump surface shared by handle index maps and sets.
type dumper interface {
	Dump(ctx context.Context, path string) (int64, error)
	Load(path string) (int64, error)
	Size() int
	Clear()
}

type dumpJob struct {
	name string
	idx  dumper
}

// rebuildable lists the handle indexes derived from the record file.
func (ix *Index) rebuildable() []dumpJob {
	return []dumpJob{
		{PostingsFile, ix.postings},
		{TermsFile, ix.terms},
		{DocsFile, ix.docs},
		{DocTermsFile, ix.docTerms},
	}
}

func (ix *Index) exists(name string) (bool, error) {
	_, err := ix.opts.fs.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %w", ErrIO, name, err)
}

// load restores the in-memory state from the dumps, or rebuilds it from the
// record file when the dumps cannot be trusted.
func (ix *Index) load(ctx context.Context) error {
	blocked := ix.dumpPath(BlockedFile)
	if ok, err := ix.exists(blocked); err != nil {
		return err
	} else if ok {
		if _, err := ix.blocked.Load(blocked); err != nil {
			return translateError(err)
		}
	}

	reason, fresh, err := ix.rebuildReason()
	if err != nil || fresh {
		return err
	}
	if reason == "" {
		if err := ix.loadDumps(); err != nil {
			reason = err.Error()
		}
	}
	if reason == "" {
		return nil
	}

	ix.logger.Warn("rebuilding indexes", "reason", reason)
	return ix.rebuild(ctx)
}

// rebuildReason returns why the dumps cannot be used, or "" if they can.
// fresh reports an empty index without dumps.
func (ix *Index) rebuildReason() (reason string, fresh bool, err error) {
	dirty, err := ix.exists(ix.path(DirtyFile))
	if err != nil {
		return "", false, err
	}
	if dirty {
		return "unclean shutdown", false, nil
	}

	n, err := ix.store.Size()
	if err != nil {
		return "", false, translateError(err)
	}
	names := []string{ix.path(FreeFile)}
	for _, j := range ix.rebuildable() {
		names = append(names, ix.dumpPath(j.name))
	}
	for _, name := range names {
		ok, err := ix.exists(name)
		if err != nil {
			return "", false, err
		}
		if !ok {
			if n == 0 {
				return "", true, nil
			}
			return "missing " + name, false, nil
		}
	}
	return "", false, nil
}

func (ix *Index) loadDumps() error {
	for _, j := range ix.rebuildable() {
		if _, err := j.idx.Load(ix.dumpPath(j.name)); err != nil {
			return err
		}
	}
	if err := ix.loadFree(); err != nil {
		return err
	}

	n, err := ix.store.Size()
	if err != nil {
		return err
	}
	postings := int64(ix.postings.Size())
	if postings+int64(ix.free.GetCardinality()) != n || int64(ix.docTerms.Size()) != postings {
		return fmt.Errorf("dumps hold %d postings and %d free slots for %d records", postings, ix.free.GetCardinality(), n)
	}
	return nil
}

func (ix *Index) loadFree() error {
	f, err := ix.opts.fs.OpenFile(ix.path(FreeFile), os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	ix.free.Clear()
	if _, err := ix.free.ReadFrom(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("read %s: %w", FreeFile, err)
	}
	return nil
}

func (ix *Index) clearIndexes() {
	for _, j := range ix.rebuildable() {
		j.idx.Clear()
	}
	ix.free.Clear()
	ix.cache.Clear()
}

// rebuild trims cleared trailing records and rebuilds every derived index by
// a full scan of the record file. The first record of a duplicated posting
// wins; later copies are cleared.
func (ix *Index) rebuild(ctx context.Context) error {
	var (
		scanned int64
		trimmed int64
	)
	err := func() error {
		if err := ix.markDirty(); err != nil {
			return err
		}
		ix.clearIndexes()

		last := make([]byte, RecordWidth)
		for {
			n, err := ix.store.Size()
			if err != nil || n == 0 {
				return err
			}
			if err := ix.store.Get(n-1, last); err != nil {
				return err
			}
			if !recordstore.IsClean(last) {
				break
			}
			if err := ix.store.CleanLast(ix.zero); err != nil {
				return err
			}
			trimmed++
		}

		var dups []int64
		err := ix.store.Scan(func(i int64, rec []byte) error {
			scanned++
			if scanned%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if recordstore.IsClean(rec) {
				ix.free.Add(uint64(i))
				return nil
			}

			term, row := splitRecord(rec)
			doc := row.Doc()
			key := model.PostingKey(term, doc)
			if err := ix.postings.PutUnique(key[:], i); err != nil {
				if errors.Is(err, handleindex.ErrDuplicateKey) {
					dups = append(dups, i)
					return nil
				}
				return err
			}
			if _, err := ix.terms.Inc(term[:]); err != nil {
				return err
			}
			if _, err := ix.docs.Inc(doc[:]); err != nil {
				return err
			}
			_, err := ix.docTerms.Put(docTermKey(doc, term))
			return err
		})
		if err != nil {
			return err
		}
		for _, i := range dups {
			if err := ix.store.Clean(i); err != nil {
				return err
			}
			ix.free.Add(uint64(i))
		}
		if len(dups) > 0 {
			ix.logger.Warn("cleared duplicate postings", "count", len(dups))
		}
		return ix.checkpointLocked(ctx)
	}()

	err = translateError(err)
	ix.logger.LogRecovery(ctx, scanned, trimmed, err)
	return err
}

// Checkpoint syncs the record file and dumps all handle indexes, so the next
// Open does not need to rebuild them.
func (ix *Index) Checkpoint(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.checkOpen(); err != nil {
		return err
	}
	return ix.checkpointLocked(ctx)
}

func (ix *Index) checkpointLocked(ctx context.Context) error {
	start := time.Now()
	err := ix.writeCheckpoint(ctx)
	err = translateError(err)

	ix.opts.metricsCollector.RecordCheckpoint(time.Since(start), err)
	ix.logger.LogCheckpoint(ctx, int64(ix.postings.Size()), time.Since(start), err)
	return err
}

func (ix *Index) writeCheckpoint(ctx context.Context) error {
	if err := ix.store.Sync(); err != nil {
		return err
	}

	rc := ix.opts.rc
	jobs := append(ix.rebuildable(), dumpJob{BlockedFile, ix.blocked})

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		g.Go(func() error {
			if err := rc.AcquireBackground(gctx); err != nil {
				return err
			}
			defer rc.ReleaseBackground()

			_, err := j.idx.Dump(gctx, ix.dumpPath(j.name))
			return err
		})
	}
	g.Go(func() error { return ix.writeFree(gctx) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: checkpoint: %w", ErrIO, err)
	}

	if err := ix.opts.fs.Remove(ix.path(DirtyFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove dirty marker: %w", ErrIO, err)
	}
	ix.dirty = false
	return nil
}

func (ix *Index) writeFree(ctx context.Context) error {
	err := fs.WriteFile(ix.opts.fs, ix.path(FreeFile), func(w io.Writer) error {
		bw := bufio.NewWriter(resource.NewRateLimitedWriter(ctx, w, ix.opts.rc))
		if _, err := ix.free.WriteTo(bw); err != nil {
			return err
		}
		return bw.Flush()
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", FreeFile, err)
	}
	return nil
}
