package handleindex

import (
	"log/slog"

	"github.com/hupe1980/termdex/internal/fs"
	"github.com/hupe1980/termdex/internal/resource"
)

// DefaultPartitions is the number of hash partitions.
const DefaultPartitions = 16

type options struct {
	partitions int
	capacity   int64
	rc         *resource.Controller
	fs         fs.FileSystem
	logger     *slog.Logger
}

// Option configures an index.
type Option func(*options)

// WithPartitions sets the number of hash partitions.
func WithPartitions(n int) Option {
	return func(o *options) { o.partitions = n }
}

// WithCapacity bounds the number of entries. Zero or less means unbounded.
func WithCapacity(n int64) Option {
	return func(o *options) { o.capacity = n }
}

// WithResourceController charges partition memory and dump IO to rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) { o.rc = rc }
}

// WithFileSystem sets the file system used by Dump and Load.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) { o.fs = fsys }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func applyOptions(optFns []Option) options {
	o := options{partitions: DefaultPartitions}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.partitions <= 0 {
		o.partitions = DefaultPartitions
	}
	o.fs = fs.OrDefault(o.fs)
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}
