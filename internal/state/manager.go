// Package state is the only write path into the live MatchState document.
// Every mutation is a read-modify-write against the document store followed
// by a trigger message on the broadcast notifier.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/playperu/scoreboard/internal/docstore"
	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

// errNoChange aborts a modification that would leave the document as is.
var errNoChange = errors.New("no change")

type Manager struct {
	store    *docstore.Store
	notifier *notify.Notifier
	logger   *slog.Logger
	id       string
	ready    atomic.Bool
}

// New builds a manager for the MatchState stored under id. notifier may be
// nil, in which case writes are never announced.
func New(store *docstore.Store, notifier *notify.Notifier, logger *slog.Logger, id string) *Manager {
	return &Manager{store: store, notifier: notifier, logger: logger, id: id}
}

func (m *Manager) ID() string { return m.id }

// Option adjusts a single mutation call.
type Option func(*callOptions)

type callOptions struct {
	broadcast bool
}

// WithoutBroadcast writes without sending a trigger message.
func WithoutBroadcast() Option {
	return func(o *callOptions) { o.broadcast = false }
}

// Init loads the MatchState, seeding defaults when absent and migrating older
// layouts in place. It must complete before any other method is used.
func (m *Manager) Init(ctx context.Context) error {
	if m.id == "" {
		return fmt.Errorf("%w: empty state id", scoreboard.ErrInvalidArgument)
	}

	raw, err := m.store.GetRaw(ctx, docstore.MatchStates, m.id)
	if errors.Is(err, scoreboard.ErrNotFound) {
		if err := m.store.Put(ctx, docstore.MatchStates, m.id, scoreboard.DefaultMatchState(m.id)); err != nil {
			return fmt.Errorf("seeding match state: %w", err)
		}
		m.logger.Info("seeded default match state", "id", m.id)
		m.ready.Store(true)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading match state: %w", err)
	}

	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		m.logger.Warn("match state is not an object, rebuilding from defaults", "id", m.id, "error", err)
		doc = map[string]any{}
	}

	res := Migrate(doc, m.id)
	for _, w := range res.Warnings {
		m.logger.Warn("match state migration", "id", m.id, "error", fmt.Errorf("%w: %s", scoreboard.ErrMigrationAmbiguous, w))
	}
	if res.From > scoreboard.CurrentSchemaVersion {
		m.logger.Warn("match state written by a newer build, not rewriting", "id", m.id, "version", res.From)
	} else if res.Changed {
		if err := m.store.Put(ctx, docstore.MatchStates, m.id, res.State); err != nil {
			return fmt.Errorf("writing migrated match state: %w", err)
		}
		m.logger.Info("migrated match state", "id", m.id, "from", res.From, "to", scoreboard.CurrentSchemaVersion)
	}

	m.ready.Store(true)
	return nil
}

func (m *Manager) mustBeReady() {
	if !m.ready.Load() {
		panic("state: Manager used before Init")
	}
}

// State returns the full current document.
func (m *Manager) State(ctx context.Context) (scoreboard.MatchState, error) {
	m.mustBeReady()
	return docstore.Get[scoreboard.MatchState](ctx, m.store, docstore.MatchStates, m.id)
}

// Observe delivers the full document now and after every committed change.
func (m *Manager) Observe(fn func(scoreboard.MatchState, error)) (cancel func()) {
	m.mustBeReady()
	return docstore.ObserveDoc(m.store, docstore.MatchStates, m.id, fn)
}

// Value reads a dot-separated path such as "matchData.player1.score" from the
// JSON form of the document.
func (m *Manager) Value(ctx context.Context, path string) (any, error) {
	st, err := m.State(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := toMap(st)
	if err != nil {
		return nil, err
	}
	v, ok := lookup(doc, splitPath(path))
	if !ok {
		return nil, fmt.Errorf("%w: path %q", scoreboard.ErrNotFound, path)
	}
	return v, nil
}

// SetValue writes value at an existing dot-separated path.
func (m *Manager) SetValue(ctx context.Context, path string, value any, opts ...Option) (scoreboard.MatchState, error) {
	keys := splitPath(path)
	if len(keys) == 0 {
		return scoreboard.MatchState{}, fmt.Errorf("%w: empty path", scoreboard.ErrInvalidArgument)
	}
	return m.update(ctx, opts, msg(notify.TypeStateChanged, map[string]any{"path": path}), func(st *scoreboard.MatchState) error {
		doc, err := toMap(*st)
		if err != nil {
			return err
		}
		parent, ok := lookup(doc, keys[:len(keys)-1])
		obj, isObj := parent.(map[string]any)
		if !ok || !isObj {
			return fmt.Errorf("%w: unknown path %q", scoreboard.ErrInvalidArgument, path)
		}
		if _, exists := obj[keys[len(keys)-1]]; !exists {
			return fmt.Errorf("%w: unknown path %q", scoreboard.ErrInvalidArgument, path)
		}
		obj[keys[len(keys)-1]] = value
		return replaceFromMap(st, doc)
	})
}

// MergeState merges partial into the document: objects merge recursively,
// arrays and scalars replace.
func (m *Manager) MergeState(ctx context.Context, partial map[string]any, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypeStateChanged, map[string]any{"merge": true}), func(st *scoreboard.MatchState) error {
		doc, err := toMap(*st)
		if err != nil {
			return err
		}
		mergeMaps(doc, partial)
		return replaceFromMap(st, doc)
	})
}

// SetState replaces the whole document.
func (m *Manager) SetState(ctx context.Context, full scoreboard.MatchState, opts ...Option) (scoreboard.MatchState, error) {
	return m.update(ctx, opts, msg(notify.TypeStateChanged, map[string]any{"replace": true}), func(st *scoreboard.MatchState) error {
		doc, err := toMap(full)
		if err != nil {
			return err
		}
		next, warnings := decodeState(doc, m.id)
		if len(warnings) > 0 {
			return fmt.Errorf("%w: %s", scoreboard.ErrInvalidArgument, strings.Join(warnings, "; "))
		}
		*st = next
		return nil
	})
}

type message struct {
	types   []string
	payload map[string]any
}

func msg(typ string, payload map[string]any, legacy ...string) message {
	return message{types: append([]string{typ}, legacy...), payload: payload}
}

// update is the read-modify-write path shared by every mutation.
func (m *Manager) update(ctx context.Context, opts []Option, note message, fn func(*scoreboard.MatchState) error) (scoreboard.MatchState, error) {
	return m.updateNote(ctx, opts, func(st *scoreboard.MatchState) (message, error) {
		return note, fn(st)
	})
}

// updateNote is update for mutations whose announcement depends on the
// document as read inside the transaction.
func (m *Manager) updateNote(ctx context.Context, opts []Option, fn func(*scoreboard.MatchState) (message, error)) (scoreboard.MatchState, error) {
	m.mustBeReady()

	o := callOptions{broadcast: true}
	for _, opt := range opts {
		opt(&o)
	}

	var note message
	st, err := docstore.Modify(ctx, m.store, docstore.MatchStates, m.id, func(st *scoreboard.MatchState) error {
		n, err := fn(st)
		if err != nil {
			return err
		}
		note = n
		st.ID = m.id
		st.SchemaVersion = scoreboard.CurrentSchemaVersion
		st.UpdatedAt = scoreboard.Timestamp(time.Now())
		return nil
	})
	if errors.Is(err, errNoChange) {
		return m.State(ctx)
	}
	if err != nil {
		return st, err
	}

	if o.broadcast {
		m.announce(ctx, note)
	}
	return st, nil
}

func (m *Manager) announce(ctx context.Context, note message) {
	if m.notifier == nil {
		return
	}
	for _, typ := range note.types {
		if _, err := m.notifier.Send(ctx, typ, note.payload); err != nil {
			m.logger.Warn("broadcast failed", "type", typ, "error", err)
		}
	}
}

func toMap(st scoreboard.MatchState) (map[string]any, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// replaceFromMap decodes doc into st, rejecting values of the wrong type.
func replaceFromMap(st *scoreboard.MatchState, doc map[string]any) error {
	next, warnings := decodeState(doc, st.ID)
	if len(warnings) > 0 {
		return fmt.Errorf("%w: %s", scoreboard.ErrInvalidArgument, strings.Join(warnings, "; "))
	}
	*st = next
	return nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func lookup(doc map[string]any, keys []string) (any, bool) {
	var cur any = doc
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				mergeMaps(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}
