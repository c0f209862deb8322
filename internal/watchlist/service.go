package watchlist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"monitorb3/internal/domain"
	"monitorb3/internal/store"
)

// StoreError is a failed read or write against the RowStore. The in-memory
// list is left at its last known-good value when one is returned.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("watchlist store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// Service applies watchlist commands to a session State and keeps the
// RowStore in step. It holds no session data itself; callers serialize
// commands on one State.
type Service struct {
	store store.RowStore
	log   *slog.Logger
}

// NewService creates a Service over rs.
func NewService(rs store.RowStore) *Service {
	return &Service{
		store: rs,
		log:   slog.Default().With("component", "watchlist", "store", rs.Name()),
	}
}

// Load replaces st.Items with userID's persisted tickers. An empty userID
// leaves st untouched without reading the store.
func (s *Service) Load(ctx context.Context, st *State, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	rows, err := s.store.ReadRows(ctx)
	if err != nil {
		s.log.Error("loading watchlist", "user", userID, "error", err)
		return &StoreError{Op: "read", Err: err}
	}
	st.Items = FromRows(rows, userID)
	s.log.Info("watchlist loaded", "user", userID, "tickers", len(st.Items))
	return nil
}

// Add appends t for userID. The row is written first and the in-memory list
// changes only once the write succeeded. If the user already has a row for t
// (another session wrote it) no second row is appended.
func (s *Service) Add(ctx context.Context, st *State, t domain.Ticker, userID string) error {
	t = domain.NormalizeTicker(string(t))
	userID = strings.TrimSpace(userID)
	if !t.Valid() {
		return ErrInvalidTicker
	}
	if userID == "" {
		return ErrIdentityRequired
	}
	next, err := st.Items.Add(t)
	if err != nil {
		return err
	}

	rows, err := s.store.ReadRows(ctx)
	if err != nil {
		s.log.Error("adding ticker", "user", userID, "ticker", t, "error", err)
		return &StoreError{Op: "read", Err: err}
	}
	if firstMatch(rows, userID, t) < 0 {
		if err := s.store.AppendRow(ctx, domain.Row{UserID: userID, Ticker: t}); err != nil {
			s.log.Error("adding ticker", "user", userID, "ticker", t, "error", err)
			return &StoreError{Op: "append", Err: err}
		}
	} else {
		s.log.Debug("row already persisted", "user", userID, "ticker", t)
	}

	st.Items = next
	return nil
}

// Remove drops t from the list and deletes the first (userID, t) row. A
// missing row is fine. If the store fails, t is put back where it was.
func (s *Service) Remove(ctx context.Context, st *State, t domain.Ticker, userID string) error {
	t = domain.NormalizeTicker(string(t))
	userID = strings.TrimSpace(userID)
	next, pos := st.Items.Remove(t)
	st.Items = next
	if userID == "" {
		return nil
	}

	restore := func() {
		if pos >= 0 {
			st.Items = st.Items.Insert(pos, t)
		}
	}

	rows, err := s.store.ReadRows(ctx)
	if err != nil {
		restore()
		s.log.Error("removing ticker", "user", userID, "ticker", t, "error", err)
		return &StoreError{Op: "read", Err: err}
	}
	idx := firstMatch(rows, userID, t)
	if idx < 0 {
		return nil
	}
	if err := s.store.DeleteRow(ctx, idx); err != nil {
		restore()
		s.log.Error("removing ticker", "user", userID, "ticker", t, "row", idx, "error", err)
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}

// Clear empties the in-memory list. Persisted rows are kept, so a later
// Load brings the tickers back; use RemoveAll to delete them too.
func (s *Service) Clear(st *State) {
	st.Items = nil
}

// RemoveAll deletes every row of userID and then empties the list. When a
// delete fails part way the list is reloaded from the store so that it shows
// what is still persisted.
func (s *Service) RemoveAll(ctx context.Context, st *State, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrIdentityRequired
	}
	rows, err := s.store.ReadRows(ctx)
	if err != nil {
		return &StoreError{Op: "read", Err: err}
	}

	// Back to front so earlier indexes stay valid.
	deleted := 0
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].UserID != userID {
			continue
		}
		if err := s.store.DeleteRow(ctx, i); err != nil {
			s.log.Error("removing all tickers", "user", userID, "deleted", deleted, "error", err)
			if lerr := s.Load(ctx, st, userID); lerr != nil {
				s.log.Warn("reloading after failed remove-all", "user", userID, "error", lerr)
			}
			return &StoreError{Op: "delete", Err: err}
		}
		deleted++
	}

	st.Items = nil
	s.log.Info("watchlist removed", "user", userID, "rows", deleted)
	return nil
}

func firstMatch(rows []domain.Row, userID string, t domain.Ticker) int {
	for i, r := range rows {
		if r.Matches(userID, t) {
			return i
		}
	}
	return -1
}
