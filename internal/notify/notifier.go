package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// sentHistory bounds the ids remembered for self-suppression.
const sentHistory = 100

// Handler receives the payload and the full envelope of a message.
type Handler func(payload map[string]any, env Envelope)

type registration struct {
	handler Handler
	closed  atomic.Bool
}

// Notifier publishes trigger messages on a Channel and dispatches incoming
// ones to handlers. Messages it sent itself are dropped on receipt.
type Notifier struct {
	ch     Channel
	sender string
	logger *slog.Logger

	mu       sync.RWMutex
	byType   map[string]map[int]*registration
	wildcard map[int]*registration
	nextID   int

	sentMu sync.Mutex
	sent   []string
	sentAt int
	sentIn map[string]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a notifier on ch. A nil ch yields a notifier whose Send is a
// no-op, used when the broadcast transport is unavailable.
func New(ch Channel, logger *slog.Logger) *Notifier {
	n := &Notifier{
		ch:       ch,
		sender:   uuid.NewString(),
		logger:   logger,
		byType:   make(map[string]map[int]*registration),
		wildcard: make(map[int]*registration),
		sent:     make([]string, sentHistory),
		sentIn:   make(map[string]struct{}, sentHistory),
		done:     make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	if ch == nil {
		close(n.done)
		return n
	}

	msgs, err := ch.Subscribe(ctx)
	if err != nil {
		logger.Warn("broadcast subscribe failed, receiving disabled", "error", err)
		close(n.done)
		return n
	}
	go func() {
		defer close(n.done)
		for data := range msgs {
			n.receive(data)
		}
	}()
	return n
}

// SenderID identifies this notifier in Meta.Sender.
func (n *Notifier) SenderID() string { return n.sender }

// Enabled reports whether messages actually leave this notifier.
func (n *Notifier) Enabled() bool { return n.ch != nil }

// Send publishes a message of type typ. Payloads should stay minimal: the
// receiver re-reads state instead of trusting them.
func (n *Notifier) Send(ctx context.Context, typ string, payload map[string]any) (Envelope, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	env := Envelope{
		Type:    typ,
		Payload: payload,
		Meta: Meta{
			ID:        uuid.NewString(),
			Sender:    n.sender,
			Timestamp: time.Now().UnixMilli(),
		},
	}
	n.remember(env.Meta.ID)

	if n.ch == nil {
		return env, nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return env, fmt.Errorf("encoding %s message: %w", typ, err)
	}
	if err := n.ch.Publish(ctx, data); err != nil {
		return env, fmt.Errorf("publishing %s message: %w", typ, err)
	}
	return env, nil
}

// On registers h for messages of type typ. The returned func removes it;
// no call of h starts after it returns. It does not wait for a call already
// in progress, so h may remove itself.
func (n *Notifier) On(typ string, h Handler) (unsubscribe func()) {
	reg := &registration{handler: h}

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	if n.byType[typ] == nil {
		n.byType[typ] = make(map[int]*registration)
	}
	n.byType[typ][id] = reg
	n.mu.Unlock()

	return n.remover(reg, func() {
		delete(n.byType[typ], id)
		if len(n.byType[typ]) == 0 {
			delete(n.byType, typ)
		}
	})
}

// OnAny registers h for every message, after the type-specific handlers.
func (n *Notifier) OnAny(h Handler) (unsubscribe func()) {
	reg := &registration{handler: h}

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.wildcard[id] = reg
	n.mu.Unlock()

	return n.remover(reg, func() { delete(n.wildcard, id) })
}

func (n *Notifier) remover(reg *registration, unlink func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			reg.closed.Store(true)
			n.mu.Lock()
			unlink()
			n.mu.Unlock()
		})
	}
}

// Close stops receiving and waits for the dispatch goroutine to exit.
func (n *Notifier) Close() {
	n.cancel()
	<-n.done
}

func (n *Notifier) remember(id string) {
	n.sentMu.Lock()
	defer n.sentMu.Unlock()

	if old := n.sent[n.sentAt]; old != "" {
		delete(n.sentIn, old)
	}
	n.sent[n.sentAt] = id
	n.sentIn[id] = struct{}{}
	n.sentAt = (n.sentAt + 1) % sentHistory
}

func (n *Notifier) sentByMe(id string) bool {
	n.sentMu.Lock()
	defer n.sentMu.Unlock()
	_, ok := n.sentIn[id]
	return ok
}

func (n *Notifier) receive(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		n.logger.Warn("dropping malformed broadcast message", "error", err)
		return
	}
	if env.Type == "" {
		n.logger.Warn("dropping broadcast message without type")
		return
	}
	if n.sentByMe(env.Meta.ID) {
		return
	}
	if !Known(env.Type) {
		n.logger.Debug("received unknown broadcast message type", "type", env.Type)
	}
	if env.Payload == nil {
		env.Payload = map[string]any{}
	}
	n.Dispatch(env)
}

// Dispatch delivers env to the type handlers, then to wildcard handlers. A
// panicking handler is logged and does not stop the others.
func (n *Notifier) Dispatch(env Envelope) {
	n.mu.RLock()
	regs := make([]*registration, 0, len(n.byType[env.Type])+len(n.wildcard))
	for _, r := range n.byType[env.Type] {
		regs = append(regs, r)
	}
	for _, r := range n.wildcard {
		regs = append(regs, r)
	}
	n.mu.RUnlock()

	for _, r := range regs {
		n.call(r, env)
	}
}

func (n *Notifier) call(r *registration, env Envelope) {
	if r.closed.Load() {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			n.logger.Error("broadcast handler panicked", "type", env.Type, "panic", p)
		}
	}()
	r.handler(env.Payload, env)
}
