package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/satriahrh/morsenet/domain/entities"
)

const subscriberBuffer = 64

// NewClient connects to Redis and verifies the connection
func NewClient(ctx context.Context, addr string, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("Successfully connected to Redis", zap.String("addr", addr))
	return client, nil
}

// Bus is a MessageBus over one Redis pub/sub channel. Every relay publishing
// to the same channel joins one broadcast domain.
type Bus struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewBus creates a bus on channel
func NewBus(client *redis.Client, channel string, logger *zap.Logger) *Bus {
	return &Bus{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Publish implements MessageBus
func (b *Bus) Publish(ctx context.Context, msg entities.RelayedMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", b.channel, err)
	}
	return nil
}

// Subscribe implements MessageBus. The subscription is confirmed before
// returning so no message published afterwards is missed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan entities.RelayedMessage, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	out := make(chan entities.RelayedMessage, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-messages:
				if !ok {
					return
				}
				msg, err := decodeMessage(m.Payload)
				if err != nil {
					b.logger.Warn("Discarding malformed bus message",
						zap.String("channel", m.Channel),
						zap.Error(err))
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close implements MessageBus
func (b *Bus) Close() error {
	return b.client.Close()
}

func decodeMessage(payload string) (entities.RelayedMessage, error) {
	var msg entities.RelayedMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, err
	}
	if err := msg.Validate(); err != nil {
		return msg, err
	}
	return msg, nil
}
