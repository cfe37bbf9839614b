package sink

import (
	"context"
	"sync"

	"target-csv/internal/model"
)

// BatchProcessor writes one delivered batch and reports how many records
// it wrote.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, batch any) (int, error)
}

// BatchedSink accumulates records for a processor and hands them over as a
// batch when batchSize is reached or on Flush. A batchSize of 0 never
// flushes on its own.
type BatchedSink struct {
	wrapped   BatchProcessor
	batchSize int

	mu     sync.Mutex
	buffer []model.Record

	// flushMu keeps batches of one stream in delivery order.
	flushMu sync.Mutex
}

// NewBatchedSink creates a new batched sink wrapper.
func NewBatchedSink(wrapped BatchProcessor, batchSize int) *BatchedSink {
	if batchSize < 0 {
		batchSize = 0
	}
	return &BatchedSink{
		wrapped:   wrapped,
		batchSize: batchSize,
	}
}

// Write adds a record to the batch. Flushes automatically when batch is full.
func (bs *BatchedSink) Write(ctx context.Context, record model.Record) (int, error) {
	bs.mu.Lock()
	bs.buffer = append(bs.buffer, record)
	shouldFlush := bs.batchSize > 0 && len(bs.buffer) >= bs.batchSize
	bs.mu.Unlock()

	if shouldFlush {
		return bs.Flush(ctx)
	}
	return 0, nil
}

// Pending returns the number of buffered records.
func (bs *BatchedSink) Pending() int {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return len(bs.buffer)
}

// Flush hands every buffered record to the wrapped processor. An empty
// buffer is a no-op.
func (bs *BatchedSink) Flush(ctx context.Context) (int, error) {
	bs.flushMu.Lock()
	defer bs.flushMu.Unlock()

	bs.mu.Lock()
	if len(bs.buffer) == 0 {
		bs.mu.Unlock()
		return 0, nil
	}
	batch := bs.buffer
	bs.buffer = nil
	bs.mu.Unlock()

	return bs.wrapped.ProcessBatch(ctx, batch)
}
