// Package resource implements the Controller for engine-wide limits.
//
// The Controller governs three resources shared by every engine built
// against it:
//
//   - Memory: the tree and code budgets each engine reserves at
//     construction (non-blocking, fail-fast)
//   - Workers: how many engines a Pool may drive concurrently
//   - Queries: an optional admission rate for query batches (token bucket)
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Memory Limit   │  Workers (sem)  │  Query Rate Limiter     │
//	│  (fail-fast)    │                 │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireWorker  │  WaitQuery              │
//	│  ReleaseMemory  │  TryAcquire-    │  TryQuery               │
//	│  MemoryUsage    │  Worker         │                         │
//	│                 │  ReleaseWorker  │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory Management
//
// AcquireMemory is non-blocking and returns ErrMemoryLimitExceeded
// immediately when the reservation would exceed the limit:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//	eng, err := bitjit.New(idx, cfg, 1<<20, 1<<20, bitjit.WithResourceController(rc))
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
