// Package watchlist implements the per-session ticker list: an ordered,
// duplicate-free list capped at MaxItems, mirrored to a RowStore when the
// user supplies an identity.
package watchlist

import (
	"errors"
	"slices"

	"monitorb3/internal/domain"
)

// MaxItems caps the list on Add. Lists loaded from the store may be longer.
const MaxItems = 10

var (
	ErrIdentityRequired = errors.New("identity required to persist the watchlist")
	ErrAlreadyPresent   = errors.New("ticker already in the watchlist")
	ErrCapacity         = errors.New("watchlist is full")
	ErrInvalidTicker    = errors.New("invalid ticker")
)

// List is an ordered set of tickers in insertion order. Methods never modify
// the receiver.
type List []domain.Ticker

// Contains reports whether t is in l.
func (l List) Contains(t domain.Ticker) bool { return slices.Contains(l, t) }

// Add returns l with t appended.
func (l List) Add(t domain.Ticker) (List, error) {
	if !t.Valid() {
		return l, ErrInvalidTicker
	}
	if l.Contains(t) {
		return l, ErrAlreadyPresent
	}
	if len(l) >= MaxItems {
		return l, ErrCapacity
	}
	out := make(List, len(l), len(l)+1)
	copy(out, l)
	return append(out, t), nil
}

// Remove returns l without t and the position t had, or -1.
func (l List) Remove(t domain.Ticker) (List, int) {
	pos := slices.Index(l, t)
	if pos < 0 {
		return l, -1
	}
	return slices.Delete(slices.Clone(l), pos, pos+1), pos
}

// Insert returns l with t at pos, clamped to the list bounds.
func (l List) Insert(pos int, t domain.Ticker) List {
	pos = max(0, min(pos, len(l)))
	return slices.Insert(slices.Clone(l), pos, t)
}

// FromRows collects userID's tickers in row order, keeping the first of any
// duplicate rows. The cap is not applied.
func FromRows(rows []domain.Row, userID string) List {
	var out List
	for _, r := range rows {
		if r.UserID != userID || !r.Ticker.Valid() || out.Contains(r.Ticker) {
			continue
		}
		out = append(out, r.Ticker)
	}
	return out
}

// State is the watchlist owned by one session.
type State struct {
	Items List
}

// Len returns the number of tickers.
func (s *State) Len() int { return len(s.Items) }
