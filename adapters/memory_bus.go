package adapters

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/satriahrh/morsenet/domain/entities"
)

var ErrBusClosed = errors.New("message bus is closed")

// MemoryBus is an in-process MessageBus. Relays sharing one instance behave
// like relays sharing a Redis channel.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string]chan entities.RelayedMessage
	bufferSize  int
	closed      bool
}

// NewMemoryBus creates a bus whose subscribers buffer up to bufferSize messages
func NewMemoryBus(bufferSize int) *MemoryBus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &MemoryBus{
		subscribers: make(map[string]chan entities.RelayedMessage),
		bufferSize:  bufferSize,
	}
}

// Publish implements MessageBus. Slow subscribers lose messages rather than
// blocking the publisher.
func (b *MemoryBus) Publish(ctx context.Context, msg entities.RelayedMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// Subscribe implements MessageBus
func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan entities.RelayedMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	id := uuid.NewString()
	ch := make(chan entities.RelayedMessage, b.bufferSize)
	b.subscribers[id] = ch

	go func() {
		<-ctx.Done()
		b.unsubscribe(id)
	}()

	return ch, nil
}

func (b *MemoryBus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Subscribers returns the number of live subscriptions
func (b *MemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close implements MessageBus
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
	return nil
}
