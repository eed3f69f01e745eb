package consumer

import (
	"context"
	"sync/atomic"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// Envelope carries one decoded event from the queue to the batch writer. An
// envelope settles once: the first Ack or Nack wins and later calls are no-ops.
type Envelope struct {
	Event *domain.AttributionEvent

	// ReceiveCount is how many times the queue has delivered the message
	ReceiveCount int

	ack     func(context.Context) error
	nack    func(context.Context) error
	settled atomic.Bool
}

// NewEnvelope wraps event with the callbacks that delete or release its message
func NewEnvelope(event *domain.AttributionEvent, ack, nack func(context.Context) error) *Envelope {
	return &Envelope{
		Event:        event,
		ReceiveCount: 1,
		ack:          ack,
		nack:         nack,
	}
}

// Ack removes the message from the queue once the event is stored
func (e *Envelope) Ack(ctx context.Context) error {
	return e.settle(ctx, e.ack)
}

// Nack hands the message back to the queue for redelivery
func (e *Envelope) Nack(ctx context.Context) error {
	return e.settle(ctx, e.nack)
}

// Settled reports whether Ack or Nack has been called
func (e *Envelope) Settled() bool {
	return e.settled.Load()
}

func (e *Envelope) settle(ctx context.Context, fn func(context.Context) error) error {
	if !e.settled.CompareAndSwap(false, true) || fn == nil {
		return nil
	}
	return fn(ctx)
}
