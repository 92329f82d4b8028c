package catalog

// limiter.go provides the two concurrency controls the pipeline needs:
//
//   - UploadLimiter caps parallel uploads across all manufacturers with a
//     semaphore, so a burst of big catalogs cannot exhaust the database pool.
//   - manufacturerLocks serializes uploads and rollbacks per manufacturer,
//     so two concurrent uploads for the same catalog cannot interleave their
//     backups and upserts.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxConcurrentUploads is the default limit for parallel uploads.
const DefaultMaxConcurrentUploads = 5

// DefaultMaxWaitTime is how long to wait for an upload slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// UploadLimiter restricts concurrent upload processing using a semaphore.
type UploadLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewUploadLimiter creates a limiter allowing at most maxConcurrent
// simultaneous uploads. Requests that cannot acquire a slot within maxWait
// receive ErrTooManyUploads.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &UploadLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire blocks for an upload slot. The caller must Release exactly once
// after a nil return.
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyUploads
	}
}

// Release returns a previously acquired slot.
func (l *UploadLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.semaphore
}

// ActiveCount returns the number of uploads currently holding a slot.
func (l *UploadLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until every active upload has released its slot, or
// the context expires. Used during graceful shutdown.
func (l *UploadLimiter) WaitForDrain(ctx context.Context) error {
	n := cap(l.semaphore)
	for i := 0; i < n; i++ {
		select {
		case l.semaphore <- struct{}{}:
		case <-ctx.Done():
			for j := 0; j < i; j++ {
				<-l.semaphore
			}
			return ctx.Err()
		}
	}
	for i := 0; i < n; i++ {
		<-l.semaphore
	}
	return nil
}

// manufacturerLocks hands out one mutex per manufacturer id, reference
// counted so idle entries do not accumulate.
type manufacturerLocks struct {
	mu    sync.Mutex
	locks map[int64]*manufacturerLock
}

type manufacturerLock struct {
	mu   sync.Mutex
	refs int
}

func newManufacturerLocks() *manufacturerLocks {
	return &manufacturerLocks{locks: make(map[int64]*manufacturerLock)}
}

// Lock acquires the manufacturer's mutex and returns the matching unlock.
func (m *manufacturerLocks) Lock(manufacturerID int64) (unlock func()) {
	m.mu.Lock()
	entry := m.locks[manufacturerID]
	if entry == nil {
		entry = &manufacturerLock{}
		m.locks[manufacturerID] = entry
	}
	entry.refs++
	m.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		m.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(m.locks, manufacturerID)
		}
		m.mu.Unlock()
	}
}
