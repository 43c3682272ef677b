// Package resource governs memory, background slots and I/O bandwidth for
// an index.
//
//   - Memory: HandleIndex partitions reserve bytes before they grow. The
//     reservation is fail-fast; a refused reservation surfaces as
//     ErrMemoryLimitExceeded and the caller decides what to do.
//   - Background slots: a weighted semaphore bounds how many dumps run in
//     parallel during a checkpoint or backup.
//   - I/O: a token bucket limits dump and backup throughput so foreground
//     queries keep their disk bandwidth.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     1 << 30,
//	    MaxBackgroundWorkers: 4,
//	    IOLimitBytesPerSec:   64 << 20,
//	})
//
//	if err := rc.AcquireBackground(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBackground()
//
//	w := resource.NewRateLimitedWriter(ctx, file, rc)
//
// All methods are safe for concurrent use and a nil *Controller is valid:
// every method becomes a no-op.
package resource
