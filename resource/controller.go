package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited is returned when a request arrives faster than the
	// configured request rate allows.
	ErrRateLimited = errors.New("resource: request rate limit exceeded")
	// ErrMemoryLimitExceeded is returned when a single reservation is larger
	// than the whole memory budget.
	ErrMemoryLimitExceeded = errors.New("resource: memory limit exceeded")
)

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for fit working memory.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxConcurrentFits is the maximum number of fits running at once.
	// If 0, defaults to 1.
	MaxConcurrentFits int64

	// RequestsPerSecond is the sustained admission rate. If 0, unlimited.
	RequestsPerSecond float64

	// Burst is the number of requests admitted at once above the sustained
	// rate. If 0, defaults to 1.
	Burst int

	// IOLimitBytesPerSec is the maximum dataset IO throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages shared limits for clustering work.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	fitSem *semaphore.Weighted

	// Admission
	reqLimiter *rate.Limiter

	// IO
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentFits <= 0 {
		cfg.MaxConcurrentFits = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	c := &Controller{
		cfg:    cfg,
		fitSem: semaphore.NewWeighted(cfg.MaxConcurrentFits),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.RequestsPerSecond > 0 {
		c.reqLimiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Allow reports whether a new request may be admitted now.
func (c *Controller) Allow() bool {
	if c == nil || c.reqLimiter == nil {
		return true
	}
	return c.reqLimiter.Allow()
}

// Admit is Allow returning ErrRateLimited on rejection.
func (c *Controller) Admit() error {
	if !c.Allow() {
		return ErrRateLimited
	}
	return nil
}

// AcquireMemory reserves memory.
// If a hard limit is configured and usage would exceed it,
// this blocks until memory is available or ctx is canceled.
// A reservation larger than the whole limit fails immediately.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if bytes > c.cfg.MemoryLimitBytes {
			return ErrMemoryLimitExceeded
		}
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory attempts to reserve memory without blocking.
// Returns true if acquired, false if limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil {
		return true
	}
	if bytes <= 0 {
		return true
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return false
		}
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireFit reserves a fit slot.
// Blocks if all slots are busy.
func (c *Controller) AcquireFit(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.fitSem.Acquire(ctx, 1)
}

// TryAcquireFit attempts to reserve a fit slot without blocking.
func (c *Controller) TryAcquireFit() bool {
	if c == nil {
		return true
	}
	return c.fitSem.TryAcquire(1)
}

// ReleaseFit releases a fit slot.
func (c *Controller) ReleaseFit() {
	if c == nil {
		return
	}
	c.fitSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	for bytes > 0 {
		n := min(bytes, c.ioLimiter.Burst())
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
