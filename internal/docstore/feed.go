package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"
)

// keepChanges bounds the change_log table. A peer that falls further behind
// than this resynchronizes every observer.
const keepChanges = 1000

type change struct {
	seq        int64
	collection Collection
	docID      string
}

type subscription struct {
	collection Collection
	docID      string // empty matches any document of the collection
	deliver    func(ctx context.Context)

	mu      sync.Mutex
	closed  bool
	initial bool
}

func (sub *subscription) matches(ch change) bool {
	return sub.collection == ch.collection && (sub.docID == "" || sub.docID == ch.docID)
}

// run invokes fn unless the subscription was cancelled. Holding mu during the
// call is what makes cancel synchronous.
func (sub *subscription) run(fn func()) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	fn()
}

// feed tails change_log on a single goroutine and dispatches observers. Local
// commits poke it; commits from other processes are picked up by polling.
type feed struct {
	store    *Store
	interval time.Duration

	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int

	lastSeq int64
	drains  int

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

func newFeed(ctx context.Context, s *Store, interval time.Duration) (*feed, error) {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	var last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM change_log`).Scan(&last); err != nil {
		return nil, err
	}

	fctx, cancel := context.WithCancel(context.Background())
	f := &feed{
		store:    s,
		interval: interval,
		subs:     make(map[int]*subscription),
		lastSeq:  last.Int64,
		wake:     make(chan struct{}, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go f.loop(fctx)
	return f, nil
}

func (f *feed) poke() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *feed) stop() {
	f.cancel()
	<-f.done
}

func (f *feed) loop(ctx context.Context) {
	defer close(f.done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
		case <-ticker.C:
		}
		f.drain(ctx)
	}
}

func (f *feed) drain(ctx context.Context) {
	changes, resync, err := f.readChanges(ctx)
	if err != nil {
		if ctx.Err() == nil {
			f.store.logger.Error("reading change log", "error", err)
		}
		return
	}

	f.mu.Lock()
	subs := make([]*subscription, 0, len(f.subs))
	for _, sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		due := resync
		sub.mu.Lock()
		if sub.initial {
			sub.initial = false
			due = true
		}
		sub.mu.Unlock()
		for _, ch := range changes {
			if due {
				break
			}
			due = sub.matches(ch)
		}
		if due {
			sub.deliver(ctx)
		}
	}

	f.drains++
	if len(changes) > 0 && f.drains%50 == 0 {
		f.trim(ctx)
	}
}

func (f *feed) readChanges(ctx context.Context) ([]change, bool, error) {
	rows, err := f.store.db.QueryContext(ctx,
		`SELECT seq, collection, doc_id FROM change_log WHERE seq > ? ORDER BY seq LIMIT 500`, f.lastSeq,
	)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var changes []change
	for rows.Next() {
		var ch change
		var coll string
		if err := rows.Scan(&ch.seq, &coll, &ch.docID); err != nil {
			return nil, false, err
		}
		ch.collection = Collection(coll)
		changes = append(changes, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	resync := false
	if len(changes) > 0 {
		if f.lastSeq > 0 && changes[0].seq > f.lastSeq+1 {
			resync = true
		}
		f.lastSeq = changes[len(changes)-1].seq
		if len(changes) == 500 {
			f.poke()
		}
	}
	return changes, resync, nil
}

func (f *feed) trim(ctx context.Context) {
	_, err := f.store.db.ExecContext(ctx,
		`DELETE FROM change_log WHERE seq <= ?`, f.lastSeq-keepChanges,
	)
	if err != nil && ctx.Err() == nil {
		f.store.logger.Warn("trimming change log", "error", err)
	}
}

func (f *feed) add(sub *subscription) func() {
	sub.initial = true

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	f.mu.Unlock()

	f.poke()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()

			sub.mu.Lock()
			sub.closed = true
			sub.mu.Unlock()
		})
	}
}

// Observe delivers the raw document under id right after registering and
// again after every committed change to it. A deleted or missing document
// is delivered as a nil value with ErrNotFound.
//
// Callbacks run on the feed goroutine one at a time. The returned cancel
// func is synchronous: once it returns fn is not running and will not be
// called again. Calling cancel from inside fn deadlocks.
func (s *Store) Observe(c Collection, id string, fn func(json.RawMessage, error)) (cancel func()) {
	sub := &subscription{collection: c, docID: id}
	sub.deliver = func(ctx context.Context) {
		raw, err := s.GetRaw(ctx, c, id)
		if ctx.Err() != nil {
			return
		}
		sub.run(func() { fn(raw, err) })
	}
	return s.feed.add(sub)
}

// ObserveDoc is the typed form of Observe.
func ObserveDoc[T any](s *Store, c Collection, id string, fn func(T, error)) (cancel func()) {
	return s.Observe(c, id, func(raw json.RawMessage, err error) {
		var v T
		if err == nil {
			err = json.Unmarshal(raw, &v)
		}
		fn(v, err)
	})
}

// ObserveQuery re-runs q after every change to collection c and delivers the
// full result set.
func ObserveQuery[T any](s *Store, c Collection, q Query[T], fn func([]T, error)) (cancel func()) {
	sub := &subscription{collection: c}
	sub.deliver = func(ctx context.Context) {
		result, err := Find(ctx, s, c, q)
		if ctx.Err() != nil {
			return
		}
		sub.run(func() { fn(result, err) })
	}
	return s.feed.add(sub)
}
