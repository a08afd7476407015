package redis

import (
	"context"
	"fmt"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/codec"
	"github.com/goodtune/focustime/internal/config"
	"github.com/redis/go-redis/v9"
)

// Publisher sends encoded timeline snapshots on a Redis pub/sub channel.
type Publisher struct {
	client  *redis.Client
	channel string
	owned   bool
}

// NewPublisher creates a publisher on an existing client.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// OpenPublisher dials Redis and creates a publisher that owns the connection.
func OpenPublisher(cfg config.RedisConfig, channel string) (*Publisher, error) {
	client, err := Dial(cfg)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: client, channel: channel, owned: true}, nil
}

// Channel returns the channel snapshots are published on.
func (p *Publisher) Channel() string {
	return p.channel
}

// Publish implements storage.Publisher.
func (p *Publisher) Publish(ctx context.Context, timeline activity.Timeline) error {
	data, err := codec.Encode(timeline)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Close releases the connection when the publisher owns it.
func (p *Publisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.client.Close()
}
