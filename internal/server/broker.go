package server

import (
	"encoding/json"
	"sync"
)

const (
	topicView   = "view"
	topicAssets = "assets"
	topicRoster = "roster"
)

// Broker is an in-process pub/sub for SSE streams, keyed by topic. It keeps
// the last message of each topic so new subscribers start from a full
// snapshot.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
	last map[string][]byte
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
		last: make(map[string][]byte),
	}
}

// Subscribe returns a channel of JSON snapshots for topic and the most
// recent snapshot, if any.
func (b *Broker) Subscribe(topic string) (ch chan []byte, latest []byte) {
	ch = make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	latest = b.last[topic]
	b.mu.Unlock()
	return ch, latest
}

// Unsubscribe removes a channel from the topic's subscribers.
func (b *Broker) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
}

// Publish sends a snapshot to all subscribers of topic. A subscriber whose
// buffer is full misses this snapshot; the next one supersedes it.
func (b *Broker) Publish(topic string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.last[topic] = data
	for ch := range b.subs[topic] {
		select {
		case ch <- data:
		default:
		}
	}
	b.mu.Unlock()
}

// Latest returns the last snapshot published on topic.
func (b *Broker) Latest(topic string) []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last[topic]
}
