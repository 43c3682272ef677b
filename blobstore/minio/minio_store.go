package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/termdex/blobstore"
)

const contentType = "application/octet-stream"

var errUploadAborted = errors.New("minio: upload aborted")

// Store keeps index backups in a MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
	opts   options
}

type options struct {
	prefix       string
	partSize     uint64
	storageClass string
}

// Option configures a Store.
type Option func(*options)

// WithPrefix places every blob below prefix, e.g. "node-a/".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = strings.Trim(prefix, "/") }
}

// WithPartSize sets the multipart chunk size of streaming uploads. Record
// files of large indexes exceed a single part; zero lets the client choose.
func WithPartSize(n uint64) Option {
	return func(o *options) { o.partSize = n }
}

// WithStorageClass sets the storage class of uploaded blobs.
func WithStorageClass(class string) Option {
	return func(o *options) { o.storageClass = class }
}

// NewStore returns a Store on bucket. The bucket must exist; see EnsureBucket.
func NewStore(client *minio.Client, bucket string, optFns ...Option) *Store {
	s := &Store{client: client, bucket: bucket}
	for _, fn := range optFns {
		fn(&s.opts)
	}
	return s
}

// EnsureBucket creates the bucket if it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("minio: bucket %s: %w", s.bucket, err)
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("minio: make bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *Store) key(name string) string {
	if s.opts.prefix == "" {
		return name
	}
	return path.Join(s.opts.prefix, name)
}

func (s *Store) name(key string) string {
	if s.opts.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, s.opts.prefix+"/")
}

func (s *Store) putOptions() minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType:  contentType,
		PartSize:     s.opts.partSize,
		StorageClass: s.opts.storageClass,
	}
}

func notFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.key(name), minio.StatObjectOptions{})
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
		}
		return nil, fmt.Errorf("minio: stat %s: %w", name, err)
	}
	return &object{store: s, key: info.Key, size: info.Size, etag: info.ETag}, nil
}

func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), s.putOptions())
	if err != nil {
		return fmt.Errorf("minio: put %s: %w", name, err)
	}
	return nil
}

// Create streams writes into a multipart upload. The object appears when
// Close returns nil.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	u := &upload{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, s.putOptions())
		if err != nil {
			err = fmt.Errorf("minio: upload %s: %w", name, err)
		}
		_ = pr.CloseWithError(err)
		u.done <- err
	}()
	return u, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !notFound(err) {
		return fmt.Errorf("minio: delete %s: %w", name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	full := s.key(prefix) + trailingSlash(prefix)
	if prefix == "" && s.opts.prefix != "" {
		full = s.opts.prefix + "/"
	}

	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    full,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio: list %s: %w", prefix, obj.Err)
		}
		names = append(names, s.name(obj.Key))
	}
	slices.Sort(names)
	return names, nil
}

// trailingSlash keeps the directory marker that path.Join strips.
func trailingSlash(prefix string) string {
	if strings.HasSuffix(prefix, "/") {
		return "/"
	}
	return ""
}

// object reads one version of a stored object. Range requests are pinned to
// the ETag seen by Open so a concurrent overwrite fails instead of mixing
// two versions.
type object struct {
	store *Store
	key   string
	size  int64
	etag  string
}

func (o *object) Size() int64  { return o.size }
func (o *object) Close() error { return nil }

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= o.size {
		return nil, io.EOF
	}
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, min(off+length, o.size)-1); err != nil {
		return nil, err
	}
	if o.etag != "" {
		if err := opts.SetMatchETag(o.etag); err != nil {
			return nil, err
		}
	}
	return o.store.client.GetObject(ctx, o.store.bucket, o.key, opts)
}

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r, err := o.ReadRange(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n, err := io.ReadFull(r, p[:min(int64(len(p)), o.size-off)])
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

type upload struct {
	pw   *io.PipeWriter
	done chan error
	once sync.Once
	err  error
}

func (u *upload) Write(p []byte) (int, error) { return u.pw.Write(p) }
func (u *upload) Sync() error                 { return nil }

func (u *upload) Close() error {
	u.once.Do(func() {
		if err := u.pw.Close(); err != nil {
			u.err = err
			return
		}
		u.err = <-u.done
	})
	return u.err
}

// Abort cancels the upload. No object is created.
func (u *upload) Abort() error {
	u.once.Do(func() {
		_ = u.pw.CloseWithError(errUploadAborted)
		<-u.done
		u.err = errUploadAborted
	})
	return nil
}
