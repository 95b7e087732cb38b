package mocks

import (
	"context"
	"sync"

	"github.com/kevin07696/billing-service/internal/domain"
	"github.com/kevin07696/billing-service/internal/domain/ports"
)

// MockQueue records every batch it receives
type MockQueue struct {
	mu sync.Mutex

	// Responses to return
	addError   error
	closeError error
	failOnCall int

	// Call tracking
	Batches    [][]domain.QueueMessage
	AddCalls   int
	CloseCalls int
}

// NewMockQueue creates a new recording queue
func NewMockQueue() *MockQueue {
	return &MockQueue{}
}

// SetAddError makes the n-th AddMessages call (1-based) fail with err
func (q *MockQueue) SetAddError(n int, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failOnCall = n
	q.addError = err
}

// SetCloseError makes Close fail with err
func (q *MockQueue) SetCloseError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closeError = err
}

// AddMessages records the batch
func (q *MockQueue) AddMessages(ctx context.Context, messages []domain.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.AddCalls++
	if q.addError != nil && q.AddCalls == q.failOnCall {
		return q.addError
	}
	batch := make([]domain.QueueMessage, len(messages))
	copy(batch, messages)
	q.Batches = append(q.Batches, batch)
	return nil
}

// Close counts calls
func (q *MockQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.CloseCalls++
	return q.closeError
}

// Messages flattens every recorded batch
func (q *MockQueue) Messages() []domain.QueueMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	var all []domain.QueueMessage
	for _, batch := range q.Batches {
		all = append(all, batch...)
	}
	return all
}

// MockQueueFactory hands out one MockQueue
type MockQueueFactory struct {
	Queue     *MockQueue
	Err       error
	Opened    []ports.QueueOptions
	OpenCalls int
}

// NewMockQueueFactory creates a factory around a fresh MockQueue
func NewMockQueueFactory() *MockQueueFactory {
	return &MockQueueFactory{Queue: NewMockQueue()}
}

// NewQueue returns the configured queue or error
func (f *MockQueueFactory) NewQueue(ctx context.Context, opts ports.QueueOptions) (ports.Queue, error) {
	f.OpenCalls++
	f.Opened = append(f.Opened, opts)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Queue, nil
}
