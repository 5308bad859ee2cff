// Package lock provides the write-serialization primitive required by
// the synchronization engine's concurrency model (spec §5/§4.10): every
// batched update must run with no other batch's writes interleaved.
package lock

import "context"

// Locker serializes access to the Store's write path. Acquire blocks
// until the lock is held or ctx is done; Release is safe to call even
// if Acquire never succeeded.
type Locker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}
