package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a memory reservation does not fit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes bounds the handle index memory of all indexes sharing
	// the controller. Zero tracks usage without a limit.
	MemoryLimitBytes int64

	// MaxBackgroundWorkers bounds concurrent dump and transfer jobs.
	// Zero means one.
	MaxBackgroundWorkers int64

	// IOLimitBytesPerSec limits dump, backup and restore throughput.
	// Zero means unlimited.
	IOLimitBytesPerSec int64
}

// Usage is a point-in-time view of a controller.
type Usage struct {
	MemoryBytes      int64
	MemoryLimitBytes int64
	// MemoryRejected counts reservations refused because of the limit.
	MemoryRejected int64
	BackgroundBusy   int64
	BackgroundSlots  int64
	// IOBytes is the number of bytes charged against the IO budget.
	IOBytes int64
}

// Controller governs the resources of one or more indexes. A nil
// *Controller is valid and imposes no limits.
type Controller struct {
	cfg Config

	mem         *semaphore.Weighted // nil without a limit
	memUsed     atomic.Int64
	memRejected atomic.Int64

	bg     *semaphore.Weighted
	bgBusy atomic.Int64

	io      *rate.Limiter // nil without a limit
	ioBytes atomic.Int64
}

// NewController returns a controller enforcing cfg.
func NewController(cfg Config) *Controller {
	if cfg.MaxBackgroundWorkers <= 0 {
		cfg.MaxBackgroundWorkers = 1
	}
	c := &Controller{
		cfg: cfg,
		bg:  semaphore.NewWeighted(cfg.MaxBackgroundWorkers),
	}
	if cfg.MemoryLimitBytes > 0 {
		c.mem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// Config returns the limits the controller was created with.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// Usage returns the current reservations and counters.
func (c *Controller) Usage() Usage {
	if c == nil {
		return Usage{}
	}
	return Usage{
		MemoryBytes:      c.memUsed.Load(),
		MemoryLimitBytes: c.cfg.MemoryLimitBytes,
		MemoryRejected:   c.memRejected.Load(),
		BackgroundBusy:   c.bgBusy.Load(),
		BackgroundSlots:  c.cfg.MaxBackgroundWorkers,
		IOBytes:          c.ioBytes.Load(),
	}
}

// AcquireMemory reserves bytes without blocking.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.mem != nil && !c.mem.TryAcquire(bytes) {
		c.memRejected.Add(1)
		return ErrMemoryLimitExceeded
	}
	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory returns a reservation made by AcquireMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.mem != nil {
		c.mem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the reserved memory in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireBackground reserves a background slot, blocking until one is free
// or ctx is done.
func (c *Controller) AcquireBackground(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.bg.Acquire(ctx, 1); err != nil {
		return err
	}
	c.bgBusy.Add(1)
	return nil
}

// ReleaseBackground returns a slot taken by AcquireBackground.
func (c *Controller) ReleaseBackground() {
	if c == nil {
		return
	}
	c.bgBusy.Add(-1)
	c.bg.Release(1)
}

// AcquireIO waits until the rate limit admits bytes. Requests larger than
// the bucket are admitted in bucket-sized steps.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.io != nil {
		burst := c.io.Burst()
		for rest := bytes; rest > 0; {
			n := min(rest, burst)
			if err := c.io.WaitN(ctx, n); err != nil {
				return err
			}
			rest -= n
		}
	}
	c.ioBytes.Add(int64(bytes))
	return nil
}
