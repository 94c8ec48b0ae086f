// Package queue carries VM control jobs from the interaction gateway to the
// background worker. Delivery is at-least-once; consumers must tolerate
// duplicates, which is why every control message carries a MessageID.
package queue

import "context"

// ControlQueueName is the queue the gateway publishes VM control jobs to.
const ControlQueueName = "control-vm"

// Message is one raw queue delivery. MessageID and PopReceipt identify the
// delivery for deletion; Body is the opaque payload.
type Message struct {
	MessageID  string
	PopReceipt string
	Body       []byte
}

// Publisher enqueues control messages.
type Publisher interface {
	Publish(ctx context.Context, msg VMControlMessage) error
}

// Receiver consumes raw messages with short-poll semantics: Receive returns
// (nil, nil) when the queue is empty. A message stays visible for redelivery
// until Delete is called.
type Receiver interface {
	Receive(ctx context.Context) (*Message, error)
	Delete(ctx context.Context, msg *Message) error
}
