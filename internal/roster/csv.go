package roster

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/playperu/scoreboard/internal/scoreboard"
)

// ImportResult reports what ImportCSV stored.
type ImportResult struct {
	Imported []scoreboard.RosterEntry `json:"imported"`
	Skipped  int                      `json:"skipped"`
}

// columns maps entry fields to CSV column indexes; -1 means absent.
type columns struct {
	name, rating, country, photo, sport int
}

var positional = columns{name: 0, rating: 1, country: 2, photo: 3, sport: 4}

// headerColumns recognizes a header row by a cell mentioning "name" (or
// "player") plus one mentioning "rating" or "fargo". The first matching cell
// wins for each column.
func headerColumns(record []string) (columns, bool) {
	c := columns{name: -1, rating: -1, country: -1, photo: -1, sport: -1}
	set := func(col *int, i int) {
		if *col < 0 {
			*col = i
		}
	}
	for i, f := range record {
		cell := strings.ToLower(strings.TrimSpace(f))
		switch {
		case strings.Contains(cell, "rating"), strings.Contains(cell, "fargo"):
			set(&c.rating, i)
		case strings.Contains(cell, "name"), cell == "player":
			set(&c.name, i)
		case strings.Contains(cell, "country"):
			set(&c.country, i)
		case strings.Contains(cell, "photo"):
			set(&c.photo, i)
		case strings.Contains(cell, "sport"):
			set(&c.sport, i)
		}
	}
	return c, c.name >= 0 && c.rating >= 0
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ImportCSV reads players from r, one per line, with an optional header row.
// Lines without a name are skipped and counted.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var (
		res     ImportResult
		entries []Entry
		cols    = positional
		first   = true
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("%w: reading csv: %v", scoreboard.ErrInvalidArgument, err)
		}
		if first {
			first = false
			if hc, ok := headerColumns(record); ok {
				cols = hc
				continue
			}
		}
		e := Entry{
			Name:     field(record, cols.name),
			Rating:   field(record, cols.rating),
			Country:  field(record, cols.country),
			PhotoURL: field(record, cols.photo),
			Sport:    field(record, cols.sport),
		}
		if e.Name == "" {
			res.Skipped++
			continue
		}
		entries = append(entries, e)
	}

	imported, err := s.add(ctx, entries)
	res.Imported = imported
	if len(imported) > 0 {
		s.logger.Info("roster imported", "count", len(imported), "skipped", res.Skipped)
		s.announce(ctx, "import", imported[len(imported)-1].ID)
	}
	return res, err
}
