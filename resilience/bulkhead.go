package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum number of concurrent operations.
	// Default: 10
	MaxConcurrent int

	// MaxWait bounds how long Acquire waits for a slot when WaitForSlot
	// is false. Zero means fail immediately when full.
	MaxWait time.Duration

	// WaitForSlot queues indefinitely until a slot frees or the context
	// is cancelled, ignoring MaxWait. The execution engine uses this so
	// queueing time counts against the caller's hard deadline rather
	// than failing outright.
	WaitForSlot bool

	// Clock supplies time for bounded waits. Default: real clock.
	Clock clockwork.Clock
}

// Bulkhead limits concurrent operations.
type Bulkhead struct {
	config BulkheadConfig
	clock  clockwork.Clock
	sem    chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
	rejected  int64
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	// Apply defaults
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return &Bulkhead{
		config: config,
		clock:  config.Clock,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Acquire acquires a slot in the bulkhead.
// Returns ErrBulkheadFull if no slot becomes available in time, or the
// context error if the caller is cancelled while queued.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	// Fast path: try non-blocking acquire
	select {
	case b.sem <- struct{}{}:
		b.noteAcquired()
		return nil
	default:
		// Fall through to waiting logic
	}

	if b.config.WaitForSlot {
		select {
		case b.sem <- struct{}{}:
			b.noteAcquired()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if b.config.MaxWait <= 0 {
		b.noteRejected()
		return ErrBulkheadFull
	}

	timer := b.clock.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		b.noteAcquired()
		return nil
	case <-timer.Chan():
		b.noteRejected()
		return ErrBulkheadFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a slot in the bulkhead.
func (b *Bulkhead) Release() {
	select {
	case <-b.sem:
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	default:
		// Release without matching Acquire; nothing to do
	}
}

// Execute runs the operation within the bulkhead.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()

	return op(ctx)
}

func (b *Bulkhead) noteAcquired() {
	b.mu.Lock()
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	b.mu.Unlock()
}

func (b *Bulkhead) noteRejected() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}

// Snapshot returns current bulkhead statistics.
func (b *Bulkhead) Snapshot() BulkheadSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BulkheadSnapshot{
		Active:        b.active,
		MaxActive:     b.maxActive,
		Available:     b.config.MaxConcurrent - b.active,
		MaxConcurrent: b.config.MaxConcurrent,
		Rejected:      b.rejected,
	}
}

// BulkheadSnapshot contains bulkhead statistics.
type BulkheadSnapshot struct {
	Active        int
	MaxActive     int
	Available     int
	MaxConcurrent int
	Rejected      int64
}
