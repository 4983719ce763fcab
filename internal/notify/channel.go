package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

// Channel is the fan-out transport beneath notifiers. Every subscriber,
// including the publisher's own, receives every published message.
type Channel interface {
	Publish(ctx context.Context, msg []byte) error
	// Subscribe returns a stream of raw messages that is closed once ctx is
	// done.
	Subscribe(ctx context.Context) (<-chan []byte, error)
	Close() error
}

// Open builds the channel selected by rawURL: empty or "local" for an
// in-process hub, redis:// or rediss:// for Redis Pub/Sub, nats:// for NATS.
// Failures wrap ErrBroadcastUnavailable.
func Open(ctx context.Context, rawURL, name string, logger *slog.Logger) (Channel, error) {
	if rawURL == "" || rawURL == "local" {
		return NewHub(), nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing broadcast url: %w", scoreboard.ErrBroadcastUnavailable, err)
	}

	var ch Channel
	switch u.Scheme {
	case "redis", "rediss":
		ch, err = NewRedisChannel(ctx, rawURL, name)
	case "nats", "tls":
		ch, err = NewNATSChannel(rawURL, name, logger)
	default:
		err = fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", scoreboard.ErrBroadcastUnavailable, err)
	}
	return ch, nil
}

// Hub is an in-process Channel keyed by nothing: all subscribers share one
// stream. Slow subscribers miss messages rather than block publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe(ctx context.Context) (<-chan []byte, error) {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}()
	return ch, nil
}

func (h *Hub) Publish(_ context.Context, msg []byte) error {
	h.mu.RLock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			// Drop if subscriber is slow.
		}
	}
	h.mu.RUnlock()
	return nil
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Close() error {
	h.mu.Lock()
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
	return nil
}
