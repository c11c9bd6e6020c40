// Package resource implements the Controller for shared limits on clustering work.
//
// The Controller manages four resource types:
//
//   - Admission: token bucket on incoming requests (Allow, Admit)
//   - Concurrency: weighted semaphore on running fits (AcquireFit)
//   - Memory: reservation of fit working memory (AcquireMemory)
//   - IO: token bucket on dataset reads and result writes (AcquireIO)
//
// # Usage
//
//	rc := resource.NewController(resource.Config{
//	    MaxConcurrentFits: 4,
//	    MemoryLimitBytes:  1 << 30,
//	    RequestsPerSecond: 20,
//	})
//
//	if err := rc.Admit(); err != nil {
//	    return err // ErrRateLimited
//	}
//	if err := rc.AcquireFit(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseFit()
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
