package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/metrics"
)

func batchOf(n int) interface{} {
	return mock.MatchedBy(func(events []*domain.AttributionEvent) bool {
		return len(events) == n
	})
}

func newTestWriter(repo *MockEventRepository, size int, timeout time.Duration) *BatchWriter {
	return NewBatchWriter(repo, BatchWriterConfig{MaxBatchSize: size, FlushTimeout: timeout}, metrics.NewNop(), zap.NewNop())
}

func TestBatchWriter_Start_BatchSizeThreshold(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockRepo.On("InsertBatch", mock.Anything, batchOf(3)).Return(3, nil)
	writer := newTestWriter(mockRepo, 3, 10*time.Second)
	var counter ackCounter

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *Envelope, 5)
	go writer.Start(ctx, in)

	in <- counter.envelope("1")
	in <- counter.envelope("2")
	in <- counter.envelope("3")

	assert.Eventually(t, func() bool { return counter.acks.Load() == 3 }, time.Second, 10*time.Millisecond)
	mockRepo.AssertExpectations(t)
}

func TestBatchWriter_Start_TimeoutFlush(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockRepo.On("InsertBatch", mock.Anything, batchOf(2)).Return(2, nil)
	writer := newTestWriter(mockRepo, 10, 50*time.Millisecond)
	var counter ackCounter

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *Envelope, 5)
	go writer.Start(ctx, in)

	in <- counter.envelope("1")
	in <- counter.envelope("2")

	assert.Eventually(t, func() bool { return counter.acks.Load() == 2 }, time.Second, 10*time.Millisecond)
	mockRepo.AssertExpectations(t)
}

func TestBatchWriter_Start_InsertFailureNacks(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockRepo.On("InsertBatch", mock.Anything, mock.Anything).Return(0, errors.New("database connection error"))
	writer := newTestWriter(mockRepo, 2, 10*time.Second)
	var counter ackCounter

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *Envelope, 5)
	go writer.Start(ctx, in)

	in <- counter.envelope("1")
	in <- counter.envelope("2")

	assert.Eventually(t, func() bool { return counter.nacks.Load() == 2 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, counter.acks.Load())
}

func TestBatchWriter_Start_PartialInsertNacks(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockRepo.On("InsertBatch", mock.Anything, batchOf(3)).Return(2, nil)
	writer := newTestWriter(mockRepo, 3, 10*time.Second)
	var counter ackCounter

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *Envelope, 5)
	go writer.Start(ctx, in)

	in <- counter.envelope("1")
	in <- counter.envelope("2")
	in <- counter.envelope("3")

	assert.Eventually(t, func() bool { return counter.nacks.Load() == 3 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, counter.acks.Load())
}

func TestBatchWriter_Start_GracefulShutdownFlushes(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockRepo.On("InsertBatch", mock.Anything, batchOf(2)).Return(2, nil)
	writer := newTestWriter(mockRepo, 10, 10*time.Second)
	var counter ackCounter

	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan *Envelope, 5)
	done := make(chan struct{})
	go func() {
		writer.Start(ctx, in)
		close(done)
	}()

	in <- counter.envelope("1")
	in <- counter.envelope("2")
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Graceful shutdown took too long")
	}

	assert.Equal(t, int32(2), counter.acks.Load())
	mockRepo.AssertExpectations(t)
}

func TestBatchWriter_Start_InputChannelClosed(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockRepo.On("InsertBatch", mock.Anything, batchOf(2)).Return(2, nil)
	writer := newTestWriter(mockRepo, 10, 10*time.Second)
	var counter ackCounter

	in := make(chan *Envelope, 5)
	done := make(chan struct{})
	go func() {
		writer.Start(context.Background(), in)
		close(done)
	}()

	in <- counter.envelope("1")
	in <- counter.envelope("2")
	close(in)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown took too long after input channel closed")
	}

	mockRepo.AssertExpectations(t)
}

func TestBatchWriter_Start_EmptyBatchNotFlushed(t *testing.T) {
	mockRepo := new(MockEventRepository)
	writer := newTestWriter(mockRepo, 10, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	in := make(chan *Envelope)
	writer.Start(ctx, in)

	mockRepo.AssertNotCalled(t, "InsertBatch", mock.Anything, mock.Anything)
}

func TestBatchWriter_Start_MultipleBatches(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockRepo.On("InsertBatch", mock.Anything, batchOf(2)).Return(2, nil).Times(2)
	writer := newTestWriter(mockRepo, 2, 10*time.Second)
	var counter ackCounter

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *Envelope, 10)
	go writer.Start(ctx, in)

	for _, id := range []string{"1", "2", "3", "4"} {
		in <- counter.envelope(id)
	}

	assert.Eventually(t, func() bool { return counter.acks.Load() == 4 }, time.Second, 10*time.Millisecond)
	mockRepo.AssertNumberOfCalls(t, "InsertBatch", 2)
}

func TestBatchWriter_RedeliveredEventWrittenOnce(t *testing.T) {
	mockRepo := new(MockEventRepository)
	mockRepo.On("InsertBatch", mock.Anything, mock.MatchedBy(func(events []*domain.AttributionEvent) bool {
		return len(events) == 2 && events[0].EventID == "1" && events[1].EventID == "2"
	})).Return(2, nil)
	writer := newTestWriter(mockRepo, 3, 10*time.Second)
	var counter ackCounter

	writer.processBatch(context.Background(), []*Envelope{
		counter.envelope("1"),
		counter.envelope("2"),
		counter.envelope("1"),
	})

	assert.Equal(t, int32(3), counter.acks.Load())
	mockRepo.AssertExpectations(t)
}
