package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisChannel carries messages over Redis Pub/Sub so notifiers in separate
// processes reach each other.
type RedisChannel struct {
	client *redis.Client
	name   string
}

func NewRedisChannel(ctx context.Context, rawURL, name string) (*RedisChannel, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisChannel{client: client, name: name}, nil
}

func (c *RedisChannel) Publish(ctx context.Context, msg []byte) error {
	return c.client.Publish(ctx, c.name, msg).Err()
}

func (c *RedisChannel) Subscribe(ctx context.Context) (<-chan []byte, error) {
	ps := c.client.Subscribe(ctx, c.name)
	// Wait for the subscription confirmation so no message published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", c.name, err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer ps.Close()
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(m.Payload):
				default:
				}
			}
		}
	}()
	return out, nil
}

// Check pings Redis for the health endpoint.
func (c *RedisChannel) Check(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisChannel) Close() error {
	return c.client.Close()
}
