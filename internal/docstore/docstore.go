// Package docstore persists JSON documents in per-collection SQLite tables and
// offers live queries: observers receive a fresh snapshot after every commit,
// including commits made by other processes sharing the same database file.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/playperu/scoreboard/internal/database"
	"github.com/playperu/scoreboard/internal/migrations"
	"github.com/playperu/scoreboard/internal/scoreboard"
)

type Collection string

const (
	MatchStates Collection = "match_states"
	Assets      Collection = "assets"
	Roster      Collection = "roster"
)

type collectionSpec struct {
	table  string
	key    string // SQL expression binding the id argument
	upsert string // args: id, data, data, updatedAt
}

var collections = map[Collection]collectionSpec{
	MatchStates: {
		table: "match_states",
		key:   "?",
		upsert: `INSERT INTO match_states (id, data, updated_at)
			VALUES (?, jsonb(?), ?)
			ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
	},
	Assets: {
		table: "assets",
		key:   "?",
		upsert: `INSERT INTO assets (id, type, data, updated_at)
			VALUES (?, coalesce(json_extract(?, '$.type'), ''), jsonb(?), ?)
			ON CONFLICT(id) DO UPDATE SET type = excluded.type, data = excluded.data, updated_at = excluded.updated_at`,
	},
	Roster: {
		table: "roster",
		key:   "CAST(? AS INTEGER)",
		upsert: `INSERT INTO roster (id, data, updated_at)
			VALUES (CAST(? AS INTEGER), jsonb(?), ?)
			ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
	},
}

func collectionOf(c Collection) (collectionSpec, error) {
	cs, ok := collections[c]
	if !ok {
		return collectionSpec{}, fmt.Errorf("%w: unknown collection %q", scoreboard.ErrInvalidArgument, c)
	}
	return cs, nil
}

// Store is the document store. It owns its *sql.DB when built with Open.
type Store struct {
	db     *sql.DB
	ownsDB bool
	logger *slog.Logger
	feed   *feed
}

// Open opens the SQLite file at path, applies migrations and starts the change
// feed. Any failure is reported as ErrStoreUnavailable.
func Open(ctx context.Context, path string, logger *slog.Logger, pollInterval time.Duration) (*Store, error) {
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", scoreboard.ErrStoreUnavailable, err)
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", scoreboard.ErrStoreUnavailable, err)
	}
	s, err := New(ctx, db, logger, pollInterval)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// New wraps an already migrated database.
func New(ctx context.Context, db *sql.DB, logger *slog.Logger, pollInterval time.Duration) (*Store, error) {
	s := &Store{db: db, logger: logger}
	f, err := newFeed(ctx, s, pollInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: starting change feed: %w", scoreboard.ErrStoreUnavailable, err)
	}
	s.feed = f
	return s, nil
}

// Close stops the change feed and, when the store opened the database itself,
// closes it.
func (s *Store) Close() error {
	s.feed.stop()
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetRaw returns the JSON document stored under id.
func (s *Store) GetRaw(ctx context.Context, c Collection, id string) (json.RawMessage, error) {
	cs, err := collectionOf(c)
	if err != nil {
		return nil, err
	}
	var data string
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = %s`, cs.table, cs.key), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scoreboard.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", c, id, err)
	}
	return json.RawMessage(data), nil
}

// Get decodes the document stored under id into a T.
func Get[T any](ctx context.Context, s *Store, c Collection, id string) (T, error) {
	var v T
	raw, err := s.GetRaw(ctx, c, id)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decoding %s/%s: %w", c, id, err)
	}
	return v, nil
}

// Put replaces the document stored under id.
func (s *Store) Put(ctx context.Context, c Collection, id string, doc any) error {
	return s.put(ctx, c, id, doc, nil)
}

// PutWithBlob replaces an asset document and its binary in one transaction.
func (s *Store) PutWithBlob(ctx context.Context, id string, doc any, blob []byte) error {
	return s.put(ctx, Assets, id, doc, blob)
}

func (s *Store) put(ctx context.Context, c Collection, id string, doc any, blob []byte) error {
	if id == "" {
		return fmt.Errorf("%w: empty document id", scoreboard.ErrInvalidArgument)
	}
	cs, err := collectionOf(c)
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encoding %s/%s: %w", scoreboard.ErrWriteFailed, c, id, err)
	}
	return s.write(ctx, c, id, "put", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, cs.upsert, upsertArgs(c, id, string(data))...); err != nil {
			return err
		}
		if blob != nil {
			_, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO asset_blobs (id, blob) VALUES (?, ?)`, id, blob,
			)
			return err
		}
		return nil
	})
}

func upsertArgs(c Collection, id, data string) []any {
	now := scoreboard.Timestamp(time.Now())
	if c == Assets {
		return []any{id, data, data, now}
	}
	return []any{id, data, now}
}

// Modify loads a document, applies fn, and saves it in a transaction. The
// updated value is returned. fn returning an error aborts without writing.
func Modify[T any](ctx context.Context, s *Store, c Collection, id string, fn func(*T) error) (T, error) {
	var v T
	cs, err := collectionOf(c)
	if err != nil {
		return v, err
	}
	err = s.write(ctx, c, id, "put", func(tx *sql.Tx) error {
		var data string
		err := tx.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = %s`, cs.table, cs.key), id,
		).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			return scoreboard.ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return err
		}
		if err := fn(&v); err != nil {
			return err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, cs.upsert, upsertArgs(c, id, string(out))...)
		return err
	})
	return v, err
}

// Insert stores a new roster-style document whose id is assigned by the
// database. build receives the new id and returns the document to store.
func (s *Store) Insert(ctx context.Context, c Collection, build func(id string) any) (string, error) {
	cs, err := collectionOf(c)
	if err != nil {
		return "", err
	}
	if c != Roster {
		return "", fmt.Errorf("%w: %s does not assign ids", scoreboard.ErrInvalidArgument, c)
	}

	var id string
	err = s.writeFn(ctx, c, "insert", func(tx *sql.Tx) (string, error) {
		var n int64
		err := tx.QueryRowContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (data, updated_at) VALUES (jsonb('{}'), ?) RETURNING id`, cs.table),
			scoreboard.Timestamp(time.Now()),
		).Scan(&n)
		if err != nil {
			return "", err
		}
		id = fmt.Sprint(n)
		data, err := json.Marshal(build(id))
		if err != nil {
			return "", err
		}
		_, err = tx.ExecContext(ctx, cs.upsert, upsertArgs(c, id, string(data))...)
		return id, err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes a document; deleting an asset also drops its binary.
func (s *Store) Delete(ctx context.Context, c Collection, id string) error {
	cs, err := collectionOf(c)
	if err != nil {
		return err
	}
	return s.write(ctx, c, id, "delete", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, cs.table, cs.key), id,
		)
		if err != nil {
			return err
		}
		n, _ := result.RowsAffected()
		if n == 0 {
			return scoreboard.ErrNotFound
		}
		if c == Assets {
			_, err = tx.ExecContext(ctx, `DELETE FROM asset_blobs WHERE id = ?`, id)
		}
		return err
	})
}

// Blob returns the binary stored for an asset id.
func (s *Store) Blob(ctx context.Context, id string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM asset_blobs WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scoreboard.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", id, err)
	}
	return blob, nil
}

// Query selects documents of a collection. A nil Match keeps everything,
// a nil Less keeps storage order, Limit <= 0 means unlimited.
type Query[T any] struct {
	Match func(T) bool
	Less  func(a, b T) bool
	Limit int
}

// Find runs q against every document of c.
func Find[T any](ctx context.Context, s *Store, c Collection, q Query[T]) ([]T, error) {
	cs, err := collectionOf(c)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s ORDER BY id`, cs.table),
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", c, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			s.logger.Warn("skipping undecodable document", "collection", c, "error", err)
			continue
		}
		if q.Match == nil || q.Match(v) {
			out = append(out, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if q.Less != nil {
		sort.SliceStable(out, func(i, j int) bool { return q.Less(out[i], out[j]) })
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// write runs fn in a transaction that also appends to the change log, then
// nudges the feed so local observers see the commit right away.
func (s *Store) write(ctx context.Context, c Collection, id, op string, fn func(*sql.Tx) error) error {
	return s.writeFn(ctx, c, op, func(tx *sql.Tx) (string, error) {
		return id, fn(tx)
	})
}

func (s *Store) writeFn(ctx context.Context, c Collection, op string, fn func(*sql.Tx) (string, error)) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	id, err := fn(tx)
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return classify(err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO change_log (collection, doc_id, op, at) VALUES (?, ?, ?, ?)`,
		string(c), id, op, scoreboard.Timestamp(time.Now()),
	)
	if err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}

	s.feed.poke()
	return nil
}

// isDomainError reports errors produced by callbacks that must reach the
// caller untouched.
func isDomainError(err error) bool {
	for _, target := range []error{
		scoreboard.ErrNotFound,
		scoreboard.ErrInvalidArgument,
		scoreboard.ErrInvalidPlayer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy") || strings.Contains(msg, "database is busy") {
		return fmt.Errorf("%w: %w", scoreboard.ErrBlocked, err)
	}
	return fmt.Errorf("%w: %w", scoreboard.ErrWriteFailed, err)
}
