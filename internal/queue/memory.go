package queue

import (
	"context"
	"strconv"
	"sync"
)

// MemoryQueue is an in-process queue used in tests and when no Azure storage
// queue is configured. Messages become invisible once received and reappear
// only if explicitly requeued, which is enough for single-process use.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []Message
	inflight map[string]Message
	nextID   int
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{inflight: make(map[string]Message)}
}

func (q *MemoryQueue) Publish(_ context.Context, msg VMControlMessage) error {
	body, err := msg.Encode()
	if err != nil {
		return err
	}
	q.PublishRaw(body)
	return nil
}

func (q *MemoryQueue) PublishRaw(body []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	q.pending = append(q.pending, Message{
		MessageID:  strconv.Itoa(q.nextID),
		PopReceipt: strconv.Itoa(q.nextID),
		Body:       body,
	})
}

func (q *MemoryQueue) Receive(_ context.Context) (*Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	q.inflight[msg.MessageID] = msg
	return &msg, nil
}

func (q *MemoryQueue) Delete(_ context.Context, msg *Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, msg.MessageID)
	return nil
}

// Requeue makes an in-flight message visible again, mimicking a visibility
// timeout expiring.
func (q *MemoryQueue) Requeue(msg *Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if held, ok := q.inflight[msg.MessageID]; ok {
		delete(q.inflight, msg.MessageID)
		q.pending = append(q.pending, held)
	}
}

// RequeueInFlight expires the visibility timeout of every in-flight message.
func (q *MemoryQueue) RequeueInFlight() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, held := range q.inflight {
		delete(q.inflight, id)
		q.pending = append(q.pending, held)
	}
}

// Len reports how many messages are waiting to be received.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
