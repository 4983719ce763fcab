package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	var zero T
	return zero
}

func expectNone[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected message: %v", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSelfSuppression(t *testing.T) {
	hub := NewHub()
	control := New(hub, slog.Default())
	defer control.Close()
	overlay := New(hub, slog.Default())
	defer overlay.Close()

	own := make(chan Envelope, 4)
	control.On(TypeStateChanged, func(_ map[string]any, env Envelope) { own <- env })

	seen := make(chan Envelope, 4)
	overlay.On(TypeStateChanged, func(_ map[string]any, env Envelope) { seen <- env })

	sent, err := control.Send(context.Background(), TypeStateChanged, map[string]any{"path": "matchData"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	got := recv(t, seen)
	if got.Meta.ID != sent.Meta.ID || got.Meta.Sender != control.SenderID() {
		t.Errorf("overlay got %+v, want id %s from %s", got.Meta, sent.Meta.ID, control.SenderID())
	}
	if got.Payload["path"] != "matchData" {
		t.Errorf("payload = %v", got.Payload)
	}
	expectNone(t, own)
}

func TestDispatchOrderAndWildcard(t *testing.T) {
	n := New(nil, slog.Default())
	defer n.Close()

	var mu sync.Mutex
	var order []string
	n.On("THING", func(map[string]any, Envelope) {
		mu.Lock()
		order = append(order, "typed")
		mu.Unlock()
	})
	n.OnAny(func(map[string]any, Envelope) {
		mu.Lock()
		order = append(order, "any")
		mu.Unlock()
	})

	n.Dispatch(Envelope{Type: "THING"})
	n.Dispatch(Envelope{Type: "OTHER"})

	want := []string{"typed", "any", "any"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	n := New(nil, slog.Default())
	defer n.Close()

	called := 0
	n.On(TypeAdsRefresh, func(map[string]any, Envelope) { panic("boom") })
	n.On(TypeAdsRefresh, func(map[string]any, Envelope) { called++ })
	n.OnAny(func(map[string]any, Envelope) { called++ })

	n.Dispatch(Envelope{Type: TypeAdsRefresh})

	if called != 2 {
		t.Errorf("called = %d, want 2", called)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	sender := New(hub, slog.Default())
	defer sender.Close()
	listener := New(hub, slog.Default())
	defer listener.Close()

	got := make(chan string, 4)
	off := listener.On(TypeThemeChanged, func(map[string]any, Envelope) { got <- "typed" })
	offAny := listener.OnAny(func(map[string]any, Envelope) { got <- "any" })
	off()
	offAny()
	off()

	sender.Send(context.Background(), TypeThemeChanged, nil)
	expectNone(t, got)
}

func TestHandlerCanUnsubscribeItself(t *testing.T) {
	hub := NewHub()
	sender := New(hub, slog.Default())
	defer sender.Close()
	listener := New(hub, slog.Default())

	once := make(chan struct{}, 4)
	var off func()
	off = listener.On(TypeStateChanged, func(map[string]any, Envelope) {
		off()
		once <- struct{}{}
	})
	others := make(chan struct{}, 4)
	listener.OnAny(func(map[string]any, Envelope) { others <- struct{}{} })

	ctx := context.Background()
	sender.Send(ctx, TypeStateChanged, nil)
	recv(t, once)
	recv(t, others)

	sender.Send(ctx, TypeStateChanged, nil)
	recv(t, others)
	expectNone(t, once)

	closed := make(chan struct{})
	go func() {
		listener.Close()
		close(closed)
	}()
	recv(t, closed)
}

func TestUnknownTypeTolerated(t *testing.T) {
	hub := NewHub()
	sender := New(hub, slog.Default())
	defer sender.Close()
	listener := New(hub, slog.Default())
	defer listener.Close()

	got := make(chan Envelope, 1)
	listener.OnAny(func(_ map[string]any, env Envelope) { got <- env })

	if _, err := sender.Send(context.Background(), "FUTURE_FEATURE", nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	if env := recv(t, got); env.Type != "FUTURE_FEATURE" || env.Payload == nil {
		t.Errorf("got %+v", env)
	}
}

func TestMalformedMessagesDropped(t *testing.T) {
	hub := NewHub()
	listener := New(hub, slog.Default())
	defer listener.Close()

	got := make(chan Envelope, 2)
	listener.OnAny(func(_ map[string]any, env Envelope) { got <- env })

	ctx := context.Background()
	hub.Publish(ctx, []byte("not json"))
	hub.Publish(ctx, []byte(`{"payload":{}}`))
	expectNone(t, got)
}

func TestDisabledNotifierSendIsNoop(t *testing.T) {
	n := New(nil, slog.Default())
	defer n.Close()

	if n.Enabled() {
		t.Fatal("notifier without channel reports enabled")
	}
	env, err := n.Send(context.Background(), TypeStateChanged, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if env.Meta.ID == "" || env.Meta.Sender != n.SenderID() {
		t.Errorf("envelope meta not filled: %+v", env.Meta)
	}
}

func TestSentHistoryIsBounded(t *testing.T) {
	n := New(nil, slog.Default())
	defer n.Close()

	first, _ := n.Send(context.Background(), TypeStateChanged, nil)
	for i := 0; i < sentHistory; i++ {
		n.Send(context.Background(), TypeStateChanged, nil)
	}

	if n.sentByMe(first.Meta.ID) {
		t.Error("oldest id should have been evicted")
	}
	if len(n.sentIn) != sentHistory {
		t.Errorf("history holds %d ids, want %d", len(n.sentIn), sentHistory)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	ch, err := Open(ctx, "", "scoreboard", slog.Default())
	if err != nil {
		t.Fatalf("open local: %v", err)
	}
	if _, ok := ch.(*Hub); !ok {
		t.Errorf("empty url gave %T, want *Hub", ch)
	}

	_, err = Open(ctx, "ftp://example.com", "scoreboard", slog.Default())
	if !errors.Is(err, scoreboard.ErrBroadcastUnavailable) {
		t.Errorf("unsupported scheme: got %v, want ErrBroadcastUnavailable", err)
	}
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, _ := hub.Subscribe(ctx)
	if hub.Subscribers() != 1 {
		t.Fatalf("subscribers = %d", hub.Subscribers())
	}
	hub.Close()

	if _, ok := <-msgs; ok {
		t.Error("channel still open after Close")
	}
}
