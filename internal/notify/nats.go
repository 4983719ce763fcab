package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSChannel carries messages on a core NATS subject.
type NATSChannel struct {
	nc      *nats.Conn
	subject string
}

func NewNATSChannel(rawURL, subject string, logger *slog.Logger) (*NATSChannel, error) {
	nc, err := nats.Connect(rawURL,
		nats.Name("scoreboard"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return &NATSChannel{nc: nc, subject: subject}, nil
}

func (c *NATSChannel) Publish(_ context.Context, msg []byte) error {
	return c.nc.Publish(c.subject, msg)
}

func (c *NATSChannel) Subscribe(ctx context.Context) (<-chan []byte, error) {
	in := make(chan *nats.Msg, 64)
	sub, err := c.nc.ChanSubscribe(c.subject, in)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", c.subject, err)
	}
	if err := c.nc.Flush(); err != nil {
		sub.Unsubscribe()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-in:
				select {
				case out <- m.Data:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Check reports the connection state for the health endpoint.
func (c *NATSChannel) Check(_ context.Context) error {
	if !c.nc.IsConnected() {
		return errors.New("nats not connected")
	}
	return nil
}

func (c *NATSChannel) Close() error {
	c.nc.Close()
	return nil
}
