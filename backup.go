package termdex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/termdex/blobstore"
	"github.com/hupe1980/termdex/codec"
	"github.com/hupe1980/termdex/internal/fs"
	"github.com/hupe1980/termdex/internal/hash"
	"github.com/hupe1980/termdex/internal/manifest"
	"github.com/hupe1980/termdex/internal/resource"
)

// transferConcurrency bounds parallel file transfers of one backup or restore.
const transferConcurrency = 4

// BackupInfo describes a backup stored in a blob store.
type BackupInfo struct {
	ID        uint64
	CreatedAt time.Time
	Postings  int64
	Terms     int64
	Documents int64
	Files     int
	Bytes     int64
}

func backupInfo(m *manifest.Manifest) BackupInfo {
	info := BackupInfo{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Postings:  m.Postings,
		Terms:     m.Terms,
		Documents: m.Documents,
		Files:     len(m.Files),
	}
	for _, f := range m.Files {
		info.Bytes += f.Size
	}
	return info
}

// Backup writes a checkpoint and uploads the record file and all dumps to
// blobs. Writers are blocked until the upload completes. The backup becomes
// the current one only after every file was uploaded.
func (ix *Index) Backup(ctx context.Context, blobs blobstore.BlobStore) (BackupInfo, error) {
	start := time.Now()

	ix.mu.Lock()
	m, err := ix.backupLocked(ctx, blobs)
	ix.mu.Unlock()

	var info BackupInfo
	if m != nil {
		info = backupInfo(m)
	}
	ix.opts.metricsCollector.RecordBackup(info.Bytes, time.Since(start), err)
	ix.logger.LogBackup(ctx, info.ID, info.Bytes, err)
	return info, err
}

func (ix *Index) backupLocked(ctx context.Context, blobs blobstore.BlobStore) (*manifest.Manifest, error) {
	if err := ix.checkOpen(); err != nil {
		return nil, err
	}
	if err := ix.checkpointLocked(ctx); err != nil {
		return nil, err
	}

	ms := manifest.NewStore(blobs)
	id, err := ms.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: backup: %w", ErrIO, err)
	}
	m := &manifest.Manifest{
		ID:        id,
		Postings:  int64(ix.postings.Size()),
		Terms:     int64(ix.terms.Size()),
		Documents: int64(ix.docs.Size()),
		DumpCodec: ix.opts.codec.Name(),
	}

	names := []string{RecordFile, FreeFile}
	for _, j := range append(ix.rebuildable(), dumpJob{BlockedFile, ix.blocked}) {
		names = append(names, j.name+ix.opts.codec.Ext())
	}
	m.Files = make([]manifest.FileInfo, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(transferConcurrency)
	for i, name := range names {
		g.Go(func() error {
			fi, err := upload(gctx, ix.opts.fs, ix.opts.rc, ix.path(name), blobs, m.Path(name))
			if err != nil {
				return err
			}
			fi.Name = name
			m.Files[i] = fi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return m, fmt.Errorf("%w: backup: %w", ErrIO, err)
	}

	if err := ms.Save(ctx, m); err != nil {
		return m, fmt.Errorf("%w: backup: %w", ErrIO, err)
	}
	return m, nil
}

func upload(ctx context.Context, fsys fs.FileSystem, rc *resource.Controller, src string, blobs blobstore.BlobStore, dst string) (manifest.FileInfo, error) {
	f, err := fsys.OpenFile(src, os.O_RDONLY, 0)
	if err != nil {
		return manifest.FileInfo{}, err
	}
	defer f.Close()

	w, err := blobs.Create(ctx, dst)
	if err != nil {
		return manifest.FileInfo{}, err
	}

	h := hash.NewCRC32C()
	n, err := io.Copy(io.MultiWriter(w, h), resource.NewRateLimitedReader(ctx, f, rc))
	if err != nil {
		_ = blobstore.Abort(w)
	} else {
		err = w.Close()
	}
	if err != nil {
		return manifest.FileInfo{}, fmt.Errorf("upload %s: %w", dst, err)
	}
	return manifest.FileInfo{Size: n, CRC32C: h.Sum32()}, nil
}

// ListBackups returns all backups in blobs in ID order.
func ListBackups(ctx context.Context, blobs blobstore.BlobStore) ([]BackupInfo, error) {
	ms, err := manifest.NewStore(blobs).ListVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list backups: %w", ErrIO, err)
	}
	out := make([]BackupInfo, len(ms))
	for i, m := range ms {
		out[i] = backupInfo(m)
	}
	return out, nil
}

// PruneBackups deletes all but the newest keep backups and returns the
// number deleted. The current backup is never deleted.
func PruneBackups(ctx context.Context, blobs blobstore.BlobStore, keep int) (int, error) {
	store := manifest.NewStore(blobs)
	ms, err := store.ListVersions(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: prune backups: %w", ErrIO, err)
	}
	deleted := 0
	for i := 0; i < len(ms)-max(keep, 1); i++ {
		if err := store.DeleteVersion(ctx, ms[i].ID); err != nil {
			return deleted, fmt.Errorf("%w: prune backup %d: %w", ErrIO, ms[i].ID, err)
		}
		deleted++
	}
	return deleted, nil
}

// Restore downloads the current backup from blobs into dir and opens it.
// dir must not contain an index. Every file is verified against the size
// and checksum recorded in the backup manifest.
func Restore(ctx context.Context, blobs blobstore.BlobStore, dir string, optFns ...Option) (*Index, error) {
	return RestoreVersion(ctx, blobs, 0, dir, optFns...)
}

// RestoreVersion is Restore for a specific backup ID. ID 0 selects the
// current backup.
func RestoreVersion(ctx context.Context, blobs blobstore.BlobStore, id uint64, dir string, optFns ...Option) (*Index, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	logger := o.logger.WithDir(dir)

	m, err := restoreFiles(ctx, blobs, id, dir, o)
	if m != nil {
		id = m.ID
	}
	logger.LogRestore(ctx, id, dir, err)
	if err != nil {
		return nil, err
	}

	if c, ok := codec.ByName(m.DumpCodec); ok {
		optFns = append([]Option{WithDumpCodec(c)}, optFns...)
	}
	return Open(dir, optFns...)
}

func restoreFiles(ctx context.Context, blobs blobstore.BlobStore, id uint64, dir string, o options) (*manifest.Manifest, error) {
	m, err := manifest.NewStore(blobs).LoadVersion(ctx, id)
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return nil, fmt.Errorf("%w: no backup: %w", ErrInvalidArgument, err)
		}
		return nil, fmt.Errorf("%w: restore: %w", ErrIO, err)
	}

	if _, err := o.fs.Stat(filepath.Join(dir, RecordFile)); err == nil {
		return m, fmt.Errorf("%w: %s already holds an index", ErrInvalidArgument, dir)
	}
	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return m, fmt.Errorf("%w: create %s: %w", ErrIO, dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(transferConcurrency)
	for _, fi := range m.Files {
		g.Go(func() error {
			return download(gctx, blobs, m.Path(fi.Name), o.fs, o.rc, filepath.Join(dir, fi.Name), fi)
		})
	}
	if err := g.Wait(); err != nil {
		return m, err
	}
	return m, nil
}

func download(ctx context.Context, blobs blobstore.BlobStore, src string, fsys fs.FileSystem, rc *resource.Controller, dst string, want manifest.FileInfo) error {
	b, err := blobs.Open(ctx, src)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIO, src, err)
	}
	defer b.Close()

	r, err := blobstore.Stream(ctx, b)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrIO, src, err)
	}
	defer r.Close()

	h := hash.NewCRC32C()
	err = fs.WriteFile(fsys, dst, func(w io.Writer) error {
		n, err := io.Copy(io.MultiWriter(w, h), resource.NewRateLimitedReader(ctx, r, rc))
		if err != nil {
			return fmt.Errorf("%w: download %s: %w", ErrIO, src, err)
		}
		if n != want.Size || h.Sum32() != want.CRC32C {
			return fmt.Errorf("%w: %s: got %d bytes crc32c %08x, want %d bytes crc32c %08x",
				ErrCorruptStore, src, n, h.Sum32(), want.Size, want.CRC32C)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrIO) && !errors.Is(err, ErrCorruptStore) {
		return fmt.Errorf("%w: write %s: %w", ErrIO, dst, err)
	}
	return err
}
