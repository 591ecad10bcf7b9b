// Package buffer accumulates operation records in memory and flushes them to
// the metric store on an interval or when a size threshold is reached.
package buffer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/spindle/internal/domain/model"
	"github.com/okian/spindle/pkg/logger"
	"github.com/okian/spindle/pkg/metrics"
)

// Default buffer configuration constants.
const (
	defaultCapacity      = 100
	defaultFlushInterval = 30 * time.Second
	finalFlushTimeout    = 5 * time.Second
)

// Writer persists a batch of records. A batch either fully lands or the
// write fails as a whole.
type Writer interface {
	InsertRecords(ctx context.Context, recs []model.OperationRecord) error
}

// Buffer is a mutex-guarded record buffer with a single-flight flusher.
// Appends from many goroutines are safe while a flush is in progress: the
// flush swaps the slice out under the lock and new records land in a fresh
// one. A failed batch is prepended back onto the current buffer so no record
// is ever silently dropped on a transient failure.
type Buffer struct {
	mu      sync.Mutex
	records []model.OperationRecord

	capacity int
	interval time.Duration
	writer   Writer

	flushing atomic.Bool

	stopCh  chan struct{}
	done    chan struct{}
	started bool

	logger logger.Logger
}

// New creates a buffer that flushes to the given writer.
func New(writer Writer, opts ...Option) *Buffer {
	b := &Buffer{
		capacity: defaultCapacity,
		interval: defaultFlushInterval,
		writer:   writer,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("buffer"),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Append adds a record. O(1); never blocks on I/O. Reaching the capacity
// threshold triggers an asynchronous flush.
func (b *Buffer) Append(ctx context.Context, rec model.OperationRecord) {
	b.mu.Lock()
	b.records = append(b.records, rec)
	n := len(b.records)
	b.mu.Unlock()

	metrics.UpdateBufferSize(n, b.capacity)

	if n >= b.capacity {
		// Detach from the caller's deadline; the flush outlives the request.
		go func(ctx context.Context) {
			_ = b.Flush(ctx)
		}(context.WithoutCancel(ctx))
	}
}

// Len returns the current number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Flush persists everything currently buffered. Only one flush runs at a
// time; a concurrent call is a no-op. On failure the whole batch is
// requeued ahead of records accumulated since the swap.
func (b *Buffer) Flush(ctx context.Context) error {
	if !b.flushing.CompareAndSwap(false, true) {
		return nil
	}
	defer b.flushing.Store(false)

	b.mu.Lock()
	batch := b.records
	b.records = make([]model.OperationRecord, 0, b.capacity)
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	if err := b.writer.InsertRecords(ctx, batch); err != nil {
		b.mu.Lock()
		b.records = append(batch, b.records...)
		n := len(b.records)
		b.mu.Unlock()

		metrics.RecordFlushFailure(len(batch))
		metrics.RecordStoreError("insert")
		metrics.UpdateBufferSize(n, b.capacity)
		b.logger.Warn(ctx, "metric flush failed, batch requeued",
			logger.Int("batch", len(batch)),
			logger.Int("buffered", n),
			logger.Error(err),
		)
		return fmt.Errorf("flush %d records: %w", len(batch), err)
	}

	metrics.RecordFlush(len(batch), float64(time.Since(start).Microseconds())/1000.0)
	metrics.UpdateBufferSize(b.Len(), b.capacity)
	b.logger.Debug(ctx, "metric flush completed", logger.Int("batch", len(batch)))
	return nil
}

// Start launches the periodic flush loop. Idempotent.
func (b *Buffer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go b.run(ctx)
}

// run drives the flush ticker until shutdown, then attempts a final flush.
func (b *Buffer) run(ctx context.Context) {
	defer close(b.done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.finalFlush()
			return
		case <-b.stopCh:
			b.finalFlush()
			return
		case <-ticker.C:
			// Errors are logged inside Flush; the batch stays requeued.
			_ = b.Flush(ctx)
		}
	}
}

// finalFlush makes a best-effort attempt to drain the buffer on shutdown.
func (b *Buffer) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()
	if err := b.Flush(ctx); err != nil {
		b.logger.Warn(ctx, "final flush failed", logger.Int("buffered", b.Len()), logger.Error(err))
	}
}

// Stop ends the flush loop and waits for the final flush attempt.
func (b *Buffer) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	select {
	case <-b.stopCh:
	default:
		close(b.stopCh)
	}
	<-b.done
}
