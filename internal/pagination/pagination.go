// Package pagination turns ordered result windows into forward-only cursor
// pages.
//
// A cursor is the id of the first row of the page it opens. Stores are asked
// for limit+1 rows starting at the cursor row; the extra row, when present,
// is not returned and its id becomes the next cursor.
package pagination

import "github.com/atvirokodosprendimai/carcrm/internal/domain"

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

type Params struct {
	Limit  int    `json:"limit"`
	Cursor *int64 `json:"cursor"`
}

type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor *int64 `json:"next_cursor"`
}

// Normalize applies fallback when no limit was given and rejects limits
// outside 1..MaxLimit.
func (p Params) Normalize(fallback int) (Params, error) {
	if p.Limit == 0 {
		p.Limit = fallback
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return Params{}, domain.InvalidInput("limit must be between 1 and %d", MaxLimit)
	}
	if p.Cursor != nil && *p.Cursor <= 0 {
		return Params{}, domain.InvalidInput("cursor must be a positive id")
	}
	return p, nil
}

// Window is the store request for a normalized Params.
func (p Params) Window() domain.Window {
	return domain.Window{Fetch: p.Limit + 1, Cursor: p.Cursor}
}

// Cut trims rows fetched with Window down to one page.
func Cut[T any](rows []T, limit int, idOf func(T) int64) Page[T] {
	if rows == nil {
		rows = []T{}
	}
	if len(rows) <= limit {
		return Page[T]{Items: rows}
	}
	next := idOf(rows[limit])
	return Page[T]{Items: rows[:limit], NextCursor: &next}
}

// Bounded clamps a plain result limit for non-paged searches.
func Bounded(limit, fallback, ceiling int) (int, error) {
	if limit == 0 {
		return fallback, nil
	}
	if limit < 1 || limit > ceiling {
		return 0, domain.InvalidInput("limit must be between 1 and %d", ceiling)
	}
	return limit, nil
}
