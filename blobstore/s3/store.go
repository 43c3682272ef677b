package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/termdex/blobstore"
	"github.com/hupe1980/termdex/internal/hash"
)

var errUploadAborted = errors.New("s3: upload aborted")

// Client is the subset of the S3 API used by Store.
type Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ Client = (*s3.Client)(nil)

// UploadConfig configures streaming uploads of record files and dumps.
type UploadConfig struct {
	// PartSize is the multipart part size. Default: 8MB.
	PartSize int64
	// Concurrency is the number of concurrent part uploads per file. Default: 5.
	Concurrency int
	// Checksum requests CRC32C validation by S3. Default: true.
	Checksum bool
	// StorageClass of uploaded objects. Empty means the bucket default.
	StorageClass types.StorageClass
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:    8 << 20,
		Concurrency: 5,
		Checksum:    true,
	}
}

type options struct {
	prefix    string
	region    string
	endpoint  string
	pathStyle bool
	upload    UploadConfig
}

// Option configures a Store.
type Option func(*options)

// WithPrefix places every blob below prefix, e.g. "node-a/".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = strings.Trim(prefix, "/") }
}

// WithRegion sets the AWS region used by New.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithEndpoint points New at an S3-compatible endpoint and enables
// path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
		o.pathStyle = true
	}
}

// WithUploadConfig overrides the upload settings.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(o *options) { o.upload = cfg }
}

// Store keeps index backups in an S3 bucket.
type Store struct {
	client   Client
	bucket   string
	opts     options
	uploader *manager.Uploader
}

// New loads the default AWS configuration and returns a Store for bucket.
func New(ctx context.Context, bucket string, optFns ...Option) (*Store, error) {
	o := newOptions(optFns)

	var loadFns []func(*config.LoadOptions) error
	if o.region != "" {
		loadFns = append(loadFns, config.WithRegion(o.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadFns...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
		}
		so.UsePathStyle = o.pathStyle
	})
	return newStore(client, bucket, o), nil
}

// NewStore returns a Store on an existing client.
func NewStore(client Client, bucket string, optFns ...Option) *Store {
	return newStore(client, bucket, newOptions(optFns))
}

func newOptions(optFns []Option) options {
	o := options{upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

func newStore(client Client, bucket string, o options) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		opts:   o,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = o.upload.PartSize
			u.Concurrency = o.upload.Concurrency
		}),
	}
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

func notFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

// Open fetches the object metadata. Reads are ranged GETs pinned to the
// ETag returned here.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, name)
		}
		return nil, fmt.Errorf("s3: head %s: %w", name, err)
	}
	return &object{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
		etag:   aws.ToString(head.ETag),
	}, nil
}

func (s *Store) putInput(name string, body io.Reader) *s3.PutObjectInput {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        body,
		ContentType: aws.String("application/octet-stream"),
	}
	if s.opts.upload.StorageClass != "" {
		in.StorageClass = s.opts.upload.StorageClass
	}
	return in
}

// Create streams the blob through the transfer manager. The object appears
// when Close returns nil.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	u := &upload{pw: pw, done: make(chan error, 1)}

	in := s.putInput(name, pr)
	if s.opts.upload.Checksum {
		in.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	go func() {
		_, err := s.uploader.Upload(ctx, in)
		if err != nil {
			err = fmt.Errorf("s3: upload %s: %w", name, err)
		}
		_ = pr.CloseWithError(err)
		u.done <- err
	}()
	return u, nil
}

// Put uploads a small blob such as a manifest in one request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	in := s.putInput(name, bytes.NewReader(data))
	in.ContentLength = aws.Int64(int64(len(data)))
	if s.opts.upload.Checksum {
		in.ChecksumCRC32C = aws.String(checksumCRC32C(data))
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("s3: put %s: %w", name, err)
	}
	return nil
}

// checksumCRC32C renders the checksum the way S3 expects it: base64 of the
// big-endian bytes.
func checksumCRC32C(data []byte) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], hash.CRC32C(data))
	return base64.StdEncoding.EncodeToString(b[:])
}

func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil && !notFound(err) {
		return fmt.Errorf("s3: delete %s: %w", name, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	full := s.key(prefix)
	switch {
	case prefix == "" && s.opts.prefix != "":
		full = s.opts.prefix + "/"
	case strings.HasSuffix(prefix, "/"):
		full += "/"
	}

	var names []string
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(full),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			names = append(names, s.name(aws.ToString(obj.Key)))
		}
	}
	slices.Sort(names)
	return names, nil
}

type object struct {
	client Client
	bucket string
	key    string
	size   int64
	etag   string
}

func (o *object) Close() error { return nil }
func (o *object) Size() int64  { return o.size }

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= o.size {
		return nil, io.EOF
	}
	in := &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, min(off+length, o.size)-1)),
	}
	if o.etag != "" {
		in.IfMatch = aws.String(o.etag)
	}
	resp, err := o.client.GetObject(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("s3: get %s: %w", o.key, err)
	}
	return resp.Body, nil
}

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	body, err := o.ReadRange(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	n, err := io.ReadFull(body, p[:min(int64(len(p)), o.size-off)])
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// upload feeds a pipe consumed by the uploader goroutine.
type upload struct {
	pw   *io.PipeWriter
	done chan error
	once sync.Once
	err  error
}

func (u *upload) Write(p []byte) (int, error) { return u.pw.Write(p) }

// Sync is a no-op; the upload completes on Close.
func (u *upload) Sync() error { return nil }

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

// Abort fails the pending upload. The transfer manager aborts the multipart
// upload, so no object is created.
func (u *upload) Abort() error {
	u.once.Do(func() {
		_ = u.pw.CloseWithError(errUploadAborted)
		<-u.done
		u.err = errUploadAborted
	})
	return nil
}
