package termdex

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/termdex/codec"
	"github.com/hupe1980/termdex/internal/cache"
	"github.com/hupe1980/termdex/resource"
)

// Config is the file representation of the index options.
type Config struct {
	Capacity    int64           `yaml:"capacity"`
	Partitions  int             `yaml:"partitions"`
	CacheSize   int             `yaml:"cacheSize"`
	CacheShards int             `yaml:"cacheShards"`
	DumpCodec   string          `yaml:"dumpCodec"`
	Repair      bool            `yaml:"repair"`
	Logging     LoggingConfig   `yaml:"logging"`
	Resources   ResourcesConfig `yaml:"resources"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ResourcesConfig holds the limits of a resource controller. All zero means
// no controller.
type ResourcesConfig struct {
	MemoryLimitBytes     int64 `yaml:"memoryLimitBytes"`
	MaxBackgroundWorkers int64 `yaml:"maxBackgroundWorkers"`
	IOLimitBytesPerSec   int64 `yaml:"ioLimitBytesPerSec"`
}

// DefaultConfig returns the configuration matching Open without options.
func DefaultConfig() *Config {
	return &Config{
		CacheSize:   DefaultCacheSize,
		CacheShards: cache.DefaultShards,
		DumpCodec:   codec.Default.Name(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads a YAML config file (if path is not empty) over the
// defaults and applies TERMDEX_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int64{
		"TERMDEX_CAPACITY":                     &c.Capacity,
		"TERMDEX_RESOURCES_MEMORY_LIMIT_BYTES": &c.Resources.MemoryLimitBytes,
		"TERMDEX_RESOURCES_MAX_BACKGROUND":     &c.Resources.MaxBackgroundWorkers,
		"TERMDEX_RESOURCES_IO_LIMIT_BYTES":     &c.Resources.IOLimitBytesPerSec,
	}
	for name, dst := range ints {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %s=%q", ErrInvalidArgument, name, v)
			}
			*dst = n
		}
	}

	smallInts := map[string]*int{
		"TERMDEX_PARTITIONS":   &c.Partitions,
		"TERMDEX_CACHE_SIZE":   &c.CacheSize,
		"TERMDEX_CACHE_SHARDS": &c.CacheShards,
	}
	for name, dst := range smallInts {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s=%q", ErrInvalidArgument, name, v)
			}
			*dst = n
		}
	}

	if v, ok := lookup("TERMDEX_DUMP_CODEC"); ok && v != "" {
		c.DumpCodec = v
	}
	if v, ok := lookup("TERMDEX_REPAIR"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: TERMDEX_REPAIR=%q", ErrInvalidArgument, v)
		}
		c.Repair = b
	}
	if v, ok := lookup("TERMDEX_LOGGING_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("TERMDEX_LOGGING_FORMAT"); ok && v != "" {
		c.Logging.Format = v
	}
	return nil
}

// Logger builds the logger described by the logging section.
func (c *Config) Logger() (*Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return nil, fmt.Errorf("%w: logging level %q", ErrInvalidArgument, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text":
		return NewTextLogger(level), nil
	case "json":
		return NewJSONLogger(level), nil
	case "none", "off":
		return NoopLogger(), nil
	default:
		return nil, fmt.Errorf("%w: logging format %q", ErrInvalidArgument, c.Logging.Format)
	}
}

// Options converts the configuration into Open options.
func (c *Config) Options() ([]Option, error) {
	dc, ok := codec.ByName(c.DumpCodec)
	if !ok {
		return nil, fmt.Errorf("%w: dump codec %q (known: %s)", ErrInvalidArgument, c.DumpCodec, strings.Join(codec.Names(), ", "))
	}
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithCapacity(c.Capacity),
		WithDumpCodec(dc),
		WithLogger(logger),
	}
	if c.Partitions > 0 {
		opts = append(opts, WithPartitions(c.Partitions))
	}
	if c.CacheSize > 0 {
		opts = append(opts, WithCacheSize(c.CacheSize))
	}
	if c.CacheShards > 0 {
		opts = append(opts, WithCacheShards(c.CacheShards))
	}
	if c.Repair {
		opts = append(opts, WithRepair())
	}
	if r := c.Resources; r != (ResourcesConfig{}) {
		opts = append(opts, WithResourceController(resource.NewController(resource.Config{
			MemoryLimitBytes:     r.MemoryLimitBytes,
			MaxBackgroundWorkers: r.MaxBackgroundWorkers,
			IOLimitBytesPerSec:   r.IOLimitBytesPerSec,
		})))
	}
	return opts, nil
}
