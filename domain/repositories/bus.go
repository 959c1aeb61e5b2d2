package repositories

import (
	"context"

	"github.com/satriahrh/morsenet/domain/entities"
)

// MessageBus links relay instances into one broadcast domain
type MessageBus interface {
	// Publish hands a decoded message to every other relay instance
	Publish(ctx context.Context, msg entities.RelayedMessage) error
	// Subscribe streams messages published by any instance, including this one.
	// The channel is closed when ctx is done or the bus is closed.
	Subscribe(ctx context.Context) (<-chan entities.RelayedMessage, error)
	Close() error
}
