package termdex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/termdex/internal/cache"
	"github.com/hupe1980/termdex/internal/handleindex"
	"github.com/hupe1980/termdex/internal/recordstore"
	"github.com/hupe1980/termdex/model"
	"github.com/hupe1980/termdex/resource"
	"github.com/hupe1980/termdex/rwi"
)

// File names inside an index directory. Handle index dumps carry the suffix
// of the configured dump codec.
const (
	RecordFile   = "postings.rec"
	PostingsFile = "postings.idx"
	TermsFile    = "terms.cnt"
	DocsFile     = "docs.cnt"
	DocTermsFile = "docterms.set"
	BlockedFile  = "blocked.set"
	FreeFile     = "free.bitmap"
	DirtyFile    = "DIRTY"
)

// RecordWidth is the width of one record: term handle followed by the
// encoded reference row.
const RecordWidth = model.HandleSize + rwi.RowSize

// TermOccurrence is one term of a document passed to AddDocument.
type TermOccurrence struct {
	Term      string
	Reference rwi.Reference
}

// TermCount is a term handle with its number of postings.
type TermCount struct {
	Term  model.Handle
	Count int64
}

// Stats is a snapshot of index state.
type Stats struct {
	Postings  int64
	Terms     int64
	Documents int64
	Blocked   int64
	Records   int64
	FreeSlots int64
	IndexMem  int64
	Cache     cache.Stats
	// Resources is the usage of the shared resource controller, zero
	// without one.
	Resources resource.Usage
}

// Index is an inverted index of term references backed by one record file.
//
// Every posting is one record (term handle ‖ reference row). The record
// ordinal is found through an in-memory handle index keyed by
// term handle ‖ document handle; per-term and per-document counters and the
// document-to-term relation live in further handle indexes. Handle indexes
// are dumped by Checkpoint and Close and rebuilt from the record file after
// an unclean shutdown.
//
// Index is safe for concurrent use. Writers are serialized; readers share.
type Index struct {
	mu     sync.RWMutex
	dir    string
	opts   options
	logger *Logger

	store    *recordstore.Store
	postings *handleindex.Map // term‖doc -> ordinal
	terms    *handleindex.Map // term -> postings
	docs     *handleindex.Map // doc -> postings
	docTerms *handleindex.Set // doc‖term
	blocked  *handleindex.Set // doc
	free     *roaring64.Bitmap

	cache cache.Cache[model.Handle, *rwi.Container]
	loads singleflight.Group

	zero   []byte
	dirty  bool
	closed bool
}

// Open opens the index in dir, creating it if needed.
//
// If the previous process did not close the index, or the dumps are missing
// or inconsistent with the record file, all handle indexes are rebuilt by a
// full scan of the record file.
func Open(dir string, optFns ...Option) (*Index, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	ix := &Index{
		dir:    dir,
		opts:   o,
		logger: o.logger.WithDir(dir),
		zero:   make([]byte, RecordWidth),
		free:   roaring64.New(),
	}

	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrIO, dir, err)
	}

	recPath := ix.path(RecordFile)
	if o.repair {
		cut, err := recordstore.Repair(o.fs, recPath, RecordWidth)
		if err != nil {
			return nil, translateError(err)
		}
		if cut > 0 {
			ix.logger.Warn("cut torn record", "bytes", cut)
		}
	}

	store, err := recordstore.Open(recPath, RecordWidth,
		recordstore.WithFileSystem(o.fs),
		recordstore.WithLogger(ix.logger.Logger),
	)
	if err != nil {
		return nil, translateError(err)
	}
	ix.store = store

	hiOpts := func(capacity int64) []handleindex.Option {
		opts := []handleindex.Option{
			handleindex.WithCapacity(capacity),
			handleindex.WithResourceController(o.rc),
			handleindex.WithFileSystem(o.fs),
			handleindex.WithLogger(ix.logger.Logger),
		}
		if o.partitions > 0 {
			opts = append(opts, handleindex.WithPartitions(o.partitions))
		}
		return opts
	}
	ix.postings = handleindex.NewMap(model.PostingKeySize, hiOpts(o.capacity)...)
	ix.docTerms = handleindex.NewSet(model.PostingKeySize, hiOpts(o.capacity)...)
	ix.terms = handleindex.NewMap(model.HandleSize, hiOpts(0)...)
	ix.docs = handleindex.NewMap(model.HandleSize, hiOpts(0)...)
	ix.blocked = handleindex.NewSet(model.HandleSize, hiOpts(0)...)

	if o.cacheShards > 1 {
		ix.cache = cache.NewShardedARC[model.Handle, *rwi.Container](o.cacheSize, o.cacheShards, func(h model.Handle) uint32 {
			return cache.BytesHash(h[:])
		})
	} else {
		ix.cache = cache.NewARC[model.Handle, *rwi.Container](o.cacheSize)
	}

	if err := ix.load(context.Background()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return ix, nil
}

func (ix *Index) path(name string) string {
	return filepath.Join(ix.dir, name)
}

// dumpPath returns the path of a handle index dump.
func (ix *Index) dumpPath(name string) string {
	return ix.path(name + ix.opts.codec.Ext())
}

// Dir returns the index directory.
func (ix *Index) Dir() string { return ix.dir }

// markDirty creates the DIRTY marker before the first mutation after a
// checkpoint.
func (ix *Index) markDirty() error {
	if ix.dirty {
		return nil
	}
	f, err := ix.opts.fs.OpenFile(ix.path(DirtyFile), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create dirty marker: %w", ErrIO, err)
	}
	err = f.Sync()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: create dirty marker: %w", ErrIO, err)
	}
	ix.dirty = true
	return nil
}

func (ix *Index) checkOpen() error {
	if ix.closed {
		return ErrClosed
	}
	return nil
}

func docTermKey(doc, term model.Handle) []byte {
	k := model.PostingKey(doc, term)
	return k[:]
}

func record(term model.Handle, row rwi.Row) []byte {
	rec := make([]byte, RecordWidth)
	copy(rec, term[:])
	copy(rec[model.HandleSize:], row[:])
	return rec
}

func splitRecord(rec []byte) (model.Handle, rwi.Row) {
	var row rwi.Row
	copy(row[:], rec[model.HandleSize:])
	return model.HandleFrom(rec[:model.HandleSize]), row
}

// undoLog collects compensating actions of a partially applied mutation.
type undoLog []func() error

func (u *undoLog) push(fn func() error) { *u = append(*u, fn) }

func (u undoLog) rollback() error {
	var errs []error
	for i := len(u) - 1; i >= 0; i-- {
		if err := u[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Add stores ref as the reference of ref.Doc for term. An existing
// reference for the same document is overwritten in place.
func (ix *Index) Add(term string, ref rwi.Reference) error {
	start := time.Now()

	ix.mu.Lock()
	err := ix.addLocked(model.HashTerm(term), ref.Row())
	ix.mu.Unlock()

	err = translateError(err)
	ix.opts.metricsCollector.RecordAdd(time.Since(start), err)
	ix.logger.LogAdd(context.Background(), term, ref.Doc.String(), err)
	return err
}

// AddDocument adds the references of one document. The document handle of
// every reference is set to doc. It returns the number of references stored
// before the first failure.
func (ix *Index) AddDocument(doc model.Handle, occs []TermOccurrence) (int, error) {
	if doc.IsZero() {
		return 0, fmt.Errorf("%w: zero document handle", ErrInvalidArgument)
	}
	start := time.Now()

	ix.mu.Lock()
	defer ix.mu.Unlock()

	for i, occ := range occs {
		ref := occ.Reference
		ref.Doc = doc
		if err := ix.addLocked(model.HashTerm(occ.Term), ref.Row()); err != nil {
			err = translateError(err)
			ix.opts.metricsCollector.RecordAdd(time.Since(start), err)
			ix.logger.LogAdd(context.Background(), occ.Term, doc.String(), err)
			return i, err
		}
	}
	ix.opts.metricsCollector.RecordAdd(time.Since(start), nil)
	return len(occs), nil
}

func (ix *Index) addLocked(term model.Handle, row rwi.Row) error {
	if err := ix.checkOpen(); err != nil {
		return err
	}
	doc := row.Doc()
	if doc.IsZero() {
		return fmt.Errorf("%w: zero document handle", ErrInvalidArgument)
	}
	if ix.blocked.Has(doc[:]) {
		return fmt.Errorf("%w: %s", ErrBlocked, doc)
	}
	if err := ix.markDirty(); err != nil {
		return err
	}
	defer ix.cache.Remove(term)

	key := model.PostingKey(term, doc)
	rec := record(term, row)
	if o, ok := ix.postings.Get(key[:]); ok {
		return ix.store.Put(o, rec)
	}

	var undo undoLog
	fail := func(err error) error {
		if rerr := undo.rollback(); rerr != nil {
			ix.logger.Error("rollback failed", "term", term.String(), "doc", doc.String(), "error", rerr)
			return errors.Join(err, rerr)
		}
		return err
	}

	slot, err := ix.place(rec, &undo)
	if err != nil {
		return fail(err)
	}
	if err := ix.postings.PutUnique(key[:], slot); err != nil {
		return fail(err)
	}
	undo.push(func() error {
		ix.postings.Remove(key[:])
		return nil
	})
	if _, err := ix.terms.Inc(term[:]); err != nil {
		return fail(err)
	}
	undo.push(func() error { return decCounter(ix.terms, term[:]) })
	if _, err := ix.docs.Inc(doc[:]); err != nil {
		return fail(err)
	}
	undo.push(func() error { return decCounter(ix.docs, doc[:]) })
	if _, err := ix.docTerms.Put(docTermKey(doc, term)); err != nil {
		return fail(err)
	}
	return nil
}

// place writes rec into the lowest free slot, or appends it.
func (ix *Index) place(rec []byte, undo *undoLog) (int64, error) {
	if !ix.free.IsEmpty() {
		slot := int64(ix.free.Minimum())
		if err := ix.store.Put(slot, rec); err != nil {
			return 0, err
		}
		ix.free.Remove(uint64(slot))
		undo.push(func() error {
			ix.free.Add(uint64(slot))
			return ix.store.Clean(slot)
		})
		return slot, nil
	}

	slot, err := ix.store.Add(rec)
	if err != nil {
		return 0, err
	}
	undo.push(func() error { return ix.store.CleanLast(rec) })
	return slot, nil
}

// decCounter decrements key and drops it when it reaches zero.
func decCounter(m *handleindex.Map, key []byte) error {
	if !m.Has(key) {
		return nil
	}
	v, err := m.Dec(key)
	if err != nil {
		return err
	}
	if v <= 0 {
		m.Remove(key)
	}
	return nil
}

// Get returns the reference of doc for term.
func (ix *Index) Get(term string, doc model.Handle) (rwi.Reference, bool, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.checkOpen(); err != nil {
		return rwi.Reference{}, false, err
	}
	key := model.PostingKey(model.HashTerm(term), doc)
	o, ok := ix.postings.Get(key[:])
	if !ok {
		return rwi.Reference{}, false, nil
	}
	rec := make([]byte, RecordWidth)
	if err := ix.store.Get(o, rec); err != nil {
		return rwi.Reference{}, false, translateError(err)
	}
	_, row := splitRecord(rec)
	return row.Reference(), true, nil
}

// References returns the posting list of term. The returned container is a
// copy owned by the caller.
func (ix *Index) References(term string) (*rwi.Container, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.checkOpen(); err != nil {
		return nil, err
	}
	c, err := ix.container(model.HashTerm(term))
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// container returns the cached posting list of term. The caller holds at
// least the read lock and must not modify the result.
func (ix *Index) container(term model.Handle) (*rwi.Container, error) {
	if c, ok := ix.cache.Get(term); ok {
		ix.opts.metricsCollector.RecordCacheLookup(true)
		return c, nil
	}
	ix.opts.metricsCollector.RecordCacheLookup(false)

	v, err, _ := ix.loads.Do(term.String(), func() (any, error) {
		c, err := ix.loadContainer(term)
		if err != nil {
			return nil, err
		}
		if prev, ok := ix.cache.InsertIfAbsent(term, c); ok {
			c = prev
		}
		return c, nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return v.(*rwi.Container), nil
}

func (ix *Index) loadContainer(term model.Handle) (*rwi.Container, error) {
	n, _ := ix.terms.Get(term[:])
	c := rwi.NewContainer(term, int(n))

	rec := make([]byte, RecordWidth)
	for key, o := range ix.postings.Rows(true, term[:]) {
		if !bytes.HasPrefix(key, term[:]) {
			break
		}
		if err := ix.store.Get(o, rec); err != nil {
			return nil, err
		}
		t, row := splitRecord(rec)
		if t != term {
			return nil, fmt.Errorf("%w: record %d holds term %s, want %s", ErrCorruptStore, o, t, term)
		}
		c.Add(row)
	}
	return c, nil
}

// Remove deletes the reference of doc for term.
func (ix *Index) Remove(term string, doc model.Handle) (bool, error) {
	start := time.Now()

	ix.mu.Lock()
	ok, err := ix.removeLocked(model.HashTerm(term), doc)
	ix.mu.Unlock()

	err = translateError(err)
	removed := 0
	if ok {
		removed = 1
	}
	ix.opts.metricsCollector.RecordRemove(removed, time.Since(start), err)
	ix.logger.LogRemove(context.Background(), doc.String(), removed, err)
	return ok, err
}

// RemoveDocument deletes every reference of doc and returns their number.
func (ix *Index) RemoveDocument(doc model.Handle) (int, error) {
	start := time.Now()

	ix.mu.Lock()
	removed, err := ix.removeDocumentLocked(doc)
	ix.mu.Unlock()

	err = translateError(err)
	ix.opts.metricsCollector.RecordRemove(removed, time.Since(start), err)
	ix.logger.LogRemove(context.Background(), doc.String(), removed, err)
	return removed, err
}

func (ix *Index) removeDocumentLocked(doc model.Handle) (int, error) {
	if err := ix.checkOpen(); err != nil {
		return 0, err
	}
	removed := 0
	for _, term := range ix.documentTermsLocked(doc) {
		ok, err := ix.removeLocked(term, doc)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

func (ix *Index) removeLocked(term, doc model.Handle) (bool, error) {
	if err := ix.checkOpen(); err != nil {
		return false, err
	}
	key := model.PostingKey(term, doc)
	o, ok := ix.postings.Get(key[:])
	if !ok {
		return false, nil
	}
	if err := ix.markDirty(); err != nil {
		return false, err
	}
	defer ix.cache.Remove(term)

	n, err := ix.store.Size()
	if err != nil {
		return false, err
	}
	if o == n-1 {
		rec := make([]byte, RecordWidth)
		if err := ix.store.Get(o, rec); err != nil {
			return false, err
		}
		if err := ix.store.CleanLast(rec); err != nil {
			return false, err
		}
		if err := ix.trimFree(); err != nil {
			return false, err
		}
	} else {
		if err := ix.store.Clean(o); err != nil {
			return false, err
		}
		ix.free.Add(uint64(o))
	}

	ix.postings.Remove(key[:])
	ix.docTerms.Remove(docTermKey(doc, term))
	if err := decCounter(ix.terms, term[:]); err != nil {
		return true, err
	}
	if err := decCounter(ix.docs, doc[:]); err != nil {
		return true, err
	}
	return true, nil
}

// trimFree truncates free slots at the end of the record file.
func (ix *Index) trimFree() error {
	for !ix.free.IsEmpty() {
		n, err := ix.store.Size()
		if err != nil {
			return err
		}
		if n == 0 || !ix.free.Contains(uint64(n-1)) {
			return nil
		}
		if err := ix.store.CleanLast(ix.zero); err != nil {
			return err
		}
		ix.free.Remove(uint64(n - 1))
	}
	return nil
}

// Count returns the number of postings of term. It returns 0 after Close.
func (ix *Index) Count(term string) int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.closed {
		return 0
	}

	h := model.HashTerm(term)
	n, _ := ix.terms.Get(h[:])
	return n
}

// DocumentTerms returns the handles of all terms referencing doc in
// ascending order, or nil after Close.
func (ix *Index) DocumentTerms(doc model.Handle) []model.Handle {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.closed {
		return nil
	}
	return ix.documentTermsLocked(doc)
}

func (ix *Index) documentTermsLocked(doc model.Handle) []model.Handle {
	var out []model.Handle
	for k := range ix.docTerms.Keys(true, doc[:]) {
		if !bytes.HasPrefix(k, doc[:]) {
			break
		}
		_, term := model.SplitPostingKey(k)
		out = append(out, term)
	}
	return out
}

// TopTerms returns the n terms with the most postings, or nil after Close.
func (ix *Index) TopTerms(n int) []TermCount {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.closed {
		return nil
	}

	keys := ix.terms.Top(n)
	out := make([]TermCount, 0, len(keys))
	for _, k := range keys {
		v, _ := ix.terms.Get(k)
		out = append(out, TermCount{Term: model.HandleFrom(k), Count: v})
	}
	return out
}

// Block rejects future references of doc and hides it from search results.
// Existing references are kept.
func (ix *Index) Block(doc model.Handle) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.checkOpen(); err != nil {
		return err
	}
	existed, err := ix.blocked.Put(doc[:])
	if err != nil || existed {
		return translateError(err)
	}
	return ix.saveBlocked()
}

// Unblock reverses Block.
func (ix *Index) Unblock(doc model.Handle) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.checkOpen(); err != nil {
		return err
	}
	if !ix.blocked.Remove(doc[:]) {
		return nil
	}
	return ix.saveBlocked()
}

// saveBlocked dumps the blocked set immediately, because it cannot be
// rebuilt from the record file.
func (ix *Index) saveBlocked() error {
	if _, err := ix.blocked.Dump(context.Background(), ix.dumpPath(BlockedFile)); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// IsBlocked reports whether doc is blocked. It returns false after Close.
func (ix *Index) IsBlocked(doc model.Handle) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return !ix.closed && ix.blocked.Has(doc[:])
}

// Stats returns a snapshot of index state.
func (ix *Index) Stats() (Stats, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.checkOpen(); err != nil {
		return Stats{}, err
	}
	n, err := ix.store.Size()
	if err != nil {
		return Stats{}, translateError(err)
	}
	return Stats{
		Postings:  int64(ix.postings.Size()),
		Terms:     int64(ix.terms.Size()),
		Documents: int64(ix.docs.Size()),
		Blocked:   int64(ix.blocked.Size()),
		Records:   n,
		FreeSlots: int64(ix.free.GetCardinality()),
		IndexMem:  ix.postings.Mem() + ix.terms.Mem() + ix.docs.Mem() + ix.docTerms.Mem() + ix.blocked.Mem(),
		Cache:     ix.cache.Stats(),
		Resources: ix.opts.rc.Usage(),
	}, nil
}

// Close writes a checkpoint and releases all resources. Further calls
// return ErrClosed.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return ErrClosed
	}
	err := ix.checkpointLocked(context.Background())
	ix.closed = true

	if cerr := ix.store.Close(); err == nil {
		err = translateError(cerr)
	}
	ix.cache.Clear()
	for _, m := range []interface{ Clear() }{ix.postings, ix.terms, ix.docs, ix.docTerms, ix.blocked} {
		m.Clear()
	}
	return err
}
