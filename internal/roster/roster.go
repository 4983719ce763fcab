// Package roster keeps saved player profiles that can be loaded into a seat
// of the live match.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/playperu/scoreboard/internal/docstore"
	"github.com/playperu/scoreboard/internal/notify"
	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/state"
)

// Seats is the part of the state manager used to load an entry into a match.
type Seats interface {
	LoadRosterPlayer(ctx context.Context, n int, e scoreboard.RosterEntry, opts ...state.Option) (scoreboard.MatchState, error)
}

type Service struct {
	store    *docstore.Store
	notifier *notify.Notifier
	seats    Seats
	logger   *slog.Logger
}

func New(store *docstore.Store, notifier *notify.Notifier, seats Seats, logger *slog.Logger) *Service {
	return &Service{store: store, notifier: notifier, seats: seats, logger: logger}
}

// Entry is the editable part of a roster entry.
type Entry struct {
	Name     string `json:"name"`
	Rating   string `json:"rating"`
	Country  string `json:"country"`
	PhotoURL string `json:"photoUrl"`
	Sport    string `json:"sport"`
}

func (e Entry) clean() (Entry, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return e, fmt.Errorf("%w: empty player name", scoreboard.ErrInvalidArgument)
	}
	e.Rating = strings.TrimSpace(e.Rating)
	e.Country = strings.TrimSpace(e.Country)
	e.PhotoURL = strings.TrimSpace(e.PhotoURL)
	e.Sport = strings.TrimSpace(e.Sport)
	if e.Sport == "" {
		e.Sport = scoreboard.DefaultSport
	}
	return e, nil
}

func docID(id int64) string { return strconv.FormatInt(id, 10) }

// Add stores a new entry and returns it with its assigned id.
func (s *Service) Add(ctx context.Context, e Entry) (scoreboard.RosterEntry, error) {
	entries, err := s.add(ctx, []Entry{e})
	if err != nil {
		return scoreboard.RosterEntry{}, err
	}
	s.announce(ctx, "add", entries[0].ID)
	return entries[0], nil
}

func (s *Service) add(ctx context.Context, in []Entry) ([]scoreboard.RosterEntry, error) {
	out := make([]scoreboard.RosterEntry, 0, len(in))
	for _, e := range in {
		e, err := e.clean()
		if err != nil {
			return out, err
		}
		now := scoreboard.Timestamp(time.Now())
		var rec scoreboard.RosterEntry
		_, err = s.store.Insert(ctx, docstore.Roster, func(id string) any {
			n, _ := strconv.ParseInt(id, 10, 64)
			rec = scoreboard.RosterEntry{
				ID:        n,
				Name:      e.Name,
				Rating:    e.Rating,
				Country:   e.Country,
				PhotoURL:  e.PhotoURL,
				Sport:     e.Sport,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return rec
		})
		if err != nil {
			return out, fmt.Errorf("adding %q: %w", e.Name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Update replaces the editable fields of entry id.
func (s *Service) Update(ctx context.Context, id int64, e Entry) (scoreboard.RosterEntry, error) {
	e, err := e.clean()
	if err != nil {
		return scoreboard.RosterEntry{}, err
	}
	rec, err := docstore.Modify(ctx, s.store, docstore.Roster, docID(id), func(r *scoreboard.RosterEntry) error {
		r.Name = e.Name
		r.Rating = e.Rating
		r.Country = e.Country
		r.PhotoURL = e.PhotoURL
		r.Sport = e.Sport
		r.UpdatedAt = scoreboard.Timestamp(time.Now())
		return nil
	})
	if err != nil {
		return rec, err
	}
	s.announce(ctx, "update", id)
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, docstore.Roster, docID(id)); err != nil {
		return err
	}
	s.announce(ctx, "delete", id)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (scoreboard.RosterEntry, error) {
	return docstore.Get[scoreboard.RosterEntry](ctx, s.store, docstore.Roster, docID(id))
}

// Sort orders search results.
type Sort string

const (
	SortName   Sort = "name"
	SortRating Sort = "rating"
	SortRecent Sort = "recent"
)

// SearchQuery narrows Search. Text matches name or country, case-insensitive.
type SearchQuery struct {
	Text  string
	Sport string
	Sort  Sort
	Limit int
}

func (q SearchQuery) query() docstore.Query[scoreboard.RosterEntry] {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	sport := strings.TrimSpace(q.Sport)

	dq := docstore.Query[scoreboard.RosterEntry]{
		Match: func(e scoreboard.RosterEntry) bool {
			if sport != "" && !strings.EqualFold(e.Sport, sport) {
				return false
			}
			if text == "" {
				return true
			}
			return strings.Contains(strings.ToLower(e.Name), text) ||
				strings.Contains(strings.ToLower(e.Country), text)
		},
		Limit: q.Limit,
	}
	switch q.Sort {
	case SortRating:
		dq.Less = func(a, b scoreboard.RosterEntry) bool { return ratingValue(a.Rating) > ratingValue(b.Rating) }
	case SortRecent:
		dq.Less = func(a, b scoreboard.RosterEntry) bool { return a.ID > b.ID }
	default:
		dq.Less = func(a, b scoreboard.RosterEntry) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	}
	return dq
}

// ratingValue orders unparseable ratings last.
func ratingValue(r string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
	if err != nil {
		return -1
	}
	return v
}

func (s *Service) Search(ctx context.Context, q SearchQuery) ([]scoreboard.RosterEntry, error) {
	return docstore.Find(ctx, s.store, docstore.Roster, q.query())
}

// Observe delivers the search results now and after every roster change.
func (s *Service) Observe(q SearchQuery, fn func([]scoreboard.RosterEntry, error)) (cancel func()) {
	return docstore.ObserveQuery(s.store, docstore.Roster, q.query(), fn)
}

// LoadIntoMatch copies entry id into seat n of the live match.
func (s *Service) LoadIntoMatch(ctx context.Context, id int64, n int) (scoreboard.MatchState, error) {
	if !scoreboard.ValidPlayer(n) {
		return scoreboard.MatchState{}, fmt.Errorf("player %d: %w", n, scoreboard.ErrInvalidPlayer)
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return scoreboard.MatchState{}, err
	}
	return s.seats.LoadRosterPlayer(ctx, n, e)
}

func (s *Service) announce(ctx context.Context, action string, id int64) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Send(ctx, notify.TypeRosterChanged, map[string]any{"action": action, "id": id}); err != nil {
		s.logger.Warn("broadcast failed", "type", notify.TypeRosterChanged, "error", err)
	}
}
