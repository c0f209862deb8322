package watchlist

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"monitorb3/internal/domain"
	"monitorb3/internal/store"
)

const user = "ana@example.com"

// flakyStore wraps a MemoryStore and fails the selected operations.
type flakyStore struct {
	*store.MemoryStore
	failRead   bool
	failAppend bool
	failDelete bool
	deleteOK   int // deletes allowed before failDelete applies
	reads      int
}

var errBackend = errors.New("backend unavailable")

func (f *flakyStore) ReadRows(ctx context.Context) ([]domain.Row, error) {
	f.reads++
	if f.failRead {
		return nil, errBackend
	}
	return f.MemoryStore.ReadRows(ctx)
}

func (f *flakyStore) AppendRow(ctx context.Context, r domain.Row) error {
	if f.failAppend {
		return errBackend
	}
	return f.MemoryStore.AppendRow(ctx, r)
}

func (f *flakyStore) DeleteRow(ctx context.Context, i int) error {
	if f.failDelete {
		if f.deleteOK == 0 {
			return errBackend
		}
		f.deleteOK--
	}
	return f.MemoryStore.DeleteRow(ctx, i)
}

func newFixture(rows ...domain.Row) (*Service, *flakyStore, *State) {
	fs := &flakyStore{MemoryStore: store.NewMemoryStore(rows...)}
	return NewService(fs), fs, &State{}
}

func rowsOf(t *testing.T, s store.RowStore) []domain.Row {
	t.Helper()
	rows, err := s.ReadRows(context.Background())
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	return rows
}

func equalList(a, b List) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAddDistinctCapsAtMax(t *testing.T) {
	for _, n := range []int{0, 1, 5, 10, 11, 15} {
		svc, fs, st := newFixture()
		for i := 0; i < n; i++ {
			err := svc.Add(context.Background(), st, domain.Ticker(fmt.Sprintf("TCK%d", i)), user)
			if i < MaxItems && err != nil {
				t.Fatalf("n=%d: Add #%d: %v", n, i, err)
			}
			if i >= MaxItems && !errors.Is(err, ErrCapacity) {
				t.Fatalf("n=%d: Add #%d error = %v, want ErrCapacity", n, i, err)
			}
		}
		want := min(n, MaxItems)
		if st.Len() != want {
			t.Errorf("n=%d: Len() = %d, want %d", n, st.Len(), want)
		}
		if got := len(rowsOf(t, fs)); got != want {
			t.Errorf("n=%d: %d persisted rows, want %d", n, got, want)
		}
		seen := map[domain.Ticker]bool{}
		for _, tk := range st.Items {
			if seen[tk] {
				t.Errorf("n=%d: duplicate %s in %v", n, tk, st.Items)
			}
			seen[tk] = true
		}
	}
}

func TestAddEleventhLeavesListUnchanged(t *testing.T) {
	svc, fs, st := newFixture()
	ctx := context.Background()
	for i := 0; i < MaxItems; i++ {
		if err := svc.Add(ctx, st, domain.Ticker(fmt.Sprintf("TCK%d", i)), user); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	before := append(List(nil), st.Items...)
	rowsBefore := len(rowsOf(t, fs))

	err := svc.Add(ctx, st, "EXTRA3", user)
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("Add error = %v, want ErrCapacity", err)
	}
	if !equalList(st.Items, before) {
		t.Errorf("Items = %v, want %v", st.Items, before)
	}
	if got := len(rowsOf(t, fs)); got != rowsBefore {
		t.Errorf("persisted rows = %d, want %d", got, rowsBefore)
	}
}

func TestAddValidation(t *testing.T) {
	svc, fs, st := newFixture()
	ctx := context.Background()

	if err := svc.Add(ctx, st, "PETR4", "  "); !errors.Is(err, ErrIdentityRequired) {
		t.Errorf("Add without identity error = %v, want ErrIdentityRequired", err)
	}
	if st.Len() != 0 || fs.reads != 0 {
		t.Errorf("failed Add touched state (len %d) or store (%d reads)", st.Len(), fs.reads)
	}

	if err := svc.Add(ctx, st, "", user); !errors.Is(err, ErrInvalidTicker) {
		t.Errorf("Add empty ticker error = %v, want ErrInvalidTicker", err)
	}

	if err := svc.Add(ctx, st, " petr4", user); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := svc.Add(ctx, st, "PETR4", user); !errors.Is(err, ErrAlreadyPresent) {
		t.Errorf("duplicate Add error = %v, want ErrAlreadyPresent", err)
	}
	if got := len(rowsOf(t, fs)); got != 1 {
		t.Errorf("persisted rows = %d, want 1", got)
	}
}

func TestAddWriteFailureLeavesListUnchanged(t *testing.T) {
	svc, fs, st := newFixture()
	fs.failAppend = true

	err := svc.Add(context.Background(), st, "PETR4", user)
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "append" {
		t.Fatalf("Add error = %v, want append StoreError", err)
	}
	if !errors.Is(err, errBackend) {
		t.Errorf("StoreError does not wrap the backend error")
	}
	if st.Len() != 0 {
		t.Errorf("Items = %v after failed write, want empty", st.Items)
	}
}

func TestAddSkipsRowWrittenElsewhere(t *testing.T) {
	// Another session for the same user already persisted PETR4.
	svc, fs, st := newFixture(domain.Row{UserID: user, Ticker: "PETR4"})

	if err := svc.Add(context.Background(), st, "PETR4", user); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !st.Items.Contains("PETR4") {
		t.Error("PETR4 not added in memory")
	}
	if got := len(rowsOf(t, fs)); got != 1 {
		t.Errorf("persisted rows = %d, want 1 (no duplicate)", got)
	}
}

func TestAddThenRemoveRoundTrip(t *testing.T) {
	svc, fs, st := newFixture(
		domain.Row{UserID: user, Ticker: "ITUB4"},
		domain.Row{UserID: "bob@example.com", Ticker: "PETR4"},
	)
	ctx := context.Background()
	if err := svc.Load(ctx, st, user); err != nil {
		t.Fatalf("Load: %v", err)
	}
	listBefore := append(List(nil), st.Items...)
	rowsBefore := rowsOf(t, fs)

	if err := svc.Add(ctx, st, "PETR4", user); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := svc.Remove(ctx, st, "PETR4", user); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if !equalList(st.Items, listBefore) {
		t.Errorf("Items = %v, want %v", st.Items, listBefore)
	}
	rowsAfter := rowsOf(t, fs)
	if len(rowsAfter) != len(rowsBefore) {
		t.Fatalf("rows = %v, want %v", rowsAfter, rowsBefore)
	}
	for i := range rowsBefore {
		if rowsAfter[i] != rowsBefore[i] {
			t.Errorf("rows[%d] = %v, want %v", i, rowsAfter[i], rowsBefore[i])
		}
	}
}

func TestLoadIdempotent(t *testing.T) {
	svc, _, st := newFixture(
		domain.Row{UserID: user, Ticker: "VALE3"},
		domain.Row{UserID: user, Ticker: "PETR4"},
		domain.Row{UserID: "bob@example.com", Ticker: "ITUB4"},
	)
	ctx := context.Background()

	if err := svc.Load(ctx, st, user); err != nil {
		t.Fatalf("Load: %v", err)
	}
	first := append(List(nil), st.Items...)
	if err := svc.Load(ctx, st, user); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if !equalList(st.Items, first) {
		t.Errorf("second Load = %v, first = %v", st.Items, first)
	}
	if !equalList(first, List{"VALE3", "PETR4"}) {
		t.Errorf("Load = %v, want [VALE3 PETR4] in store order", first)
	}
}

func TestLoadEmptyIdentityIsNoop(t *testing.T) {
	svc, fs, st := newFixture(domain.Row{UserID: user, Ticker: "VALE3"})
	st.Items = List{"WEGE3"}

	if err := svc.Load(context.Background(), st, ""); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fs.reads != 0 {
		t.Errorf("store read %d times for empty identity", fs.reads)
	}
	if !equalList(st.Items, List{"WEGE3"}) {
		t.Errorf("Items = %v, want [WEGE3]", st.Items)
	}
}

func TestLoadKeepsOverCapacityAndDedupes(t *testing.T) {
	var rows []domain.Row
	for i := 0; i < 12; i++ {
		rows = append(rows, domain.Row{UserID: user, Ticker: domain.Ticker(fmt.Sprintf("TCK%d", i))})
	}
	rows = append(rows, domain.Row{UserID: user, Ticker: "TCK0"})
	svc, _, st := newFixture(rows...)

	if err := svc.Load(context.Background(), st, user); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Len() != 12 {
		t.Errorf("Len() = %d, want 12 (no truncation, duplicate dropped)", st.Len())
	}
	if err := svc.Add(context.Background(), st, "NEW3", user); !errors.Is(err, ErrCapacity) {
		t.Errorf("Add on over-capacity list error = %v, want ErrCapacity", err)
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	svc, fs, st := newFixture()
	st.Items = List{"WEGE3"}
	fs.failRead = true

	if err := svc.Load(context.Background(), st, user); err == nil {
		t.Fatal("Load returned nil error")
	}
	if !equalList(st.Items, List{"WEGE3"}) {
		t.Errorf("Items = %v, want [WEGE3]", st.Items)
	}
}

func TestAddAddRemoveExample(t *testing.T) {
	svc, fs, st := newFixture()
	ctx := context.Background()

	for _, tk := range []domain.Ticker{"PETR4", "VALE3"} {
		if err := svc.Add(ctx, st, tk, user); err != nil {
			t.Fatalf("Add(%s): %v", tk, err)
		}
	}
	if !equalList(st.Items, List{"PETR4", "VALE3"}) {
		t.Fatalf("Items = %v, want [PETR4 VALE3]", st.Items)
	}
	rows := rowsOf(t, fs)
	if len(rows) != 2 || rows[0] != (domain.Row{UserID: user, Ticker: "PETR4"}) || rows[1] != (domain.Row{UserID: user, Ticker: "VALE3"}) {
		t.Fatalf("rows = %v", rows)
	}

	if err := svc.Remove(ctx, st, "PETR4", user); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !equalList(st.Items, List{"VALE3"}) {
		t.Errorf("Items = %v, want [VALE3]", st.Items)
	}
	rows = rowsOf(t, fs)
	if len(rows) != 1 || rows[0] != (domain.Row{UserID: user, Ticker: "VALE3"}) {
		t.Errorf("rows = %v, want only (user, VALE3)", rows)
	}
}

func TestRemoveDeletesOnlyFirstMatch(t *testing.T) {
	svc, fs, st := newFixture(
		domain.Row{UserID: user, Ticker: "PETR4"},
		domain.Row{UserID: user, Ticker: "PETR4"},
	)
	ctx := context.Background()
	if err := svc.Remove(ctx, st, "PETR4", user); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := len(rowsOf(t, fs)); got != 1 {
		t.Errorf("rows = %d, want 1", got)
	}
}

func TestRemoveMissingRowIsFine(t *testing.T) {
	svc, fs, st := newFixture(domain.Row{UserID: "bob@example.com", Ticker: "PETR4"})
	st.Items = List{"PETR4"}

	if err := svc.Remove(context.Background(), st, "PETR4", user); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if st.Len() != 0 {
		t.Errorf("Items = %v, want empty", st.Items)
	}
	if got := len(rowsOf(t, fs)); got != 1 {
		t.Errorf("bob's row touched: %d rows left", got)
	}
}

func TestRemoveFailureRestoresPosition(t *testing.T) {
	svc, fs, st := newFixture(
		domain.Row{UserID: user, Ticker: "PETR4"},
		domain.Row{UserID: user, Ticker: "VALE3"},
		domain.Row{UserID: user, Ticker: "ITUB4"},
	)
	ctx := context.Background()
	if err := svc.Load(ctx, st, user); err != nil {
		t.Fatalf("Load: %v", err)
	}
	fs.failDelete = true

	err := svc.Remove(ctx, st, "VALE3", user)
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "delete" {
		t.Fatalf("Remove error = %v, want delete StoreError", err)
	}
	if !equalList(st.Items, List{"PETR4", "VALE3", "ITUB4"}) {
		t.Errorf("Items = %v, want original order restored", st.Items)
	}
}

func TestRemoveWithoutIdentityIsMemoryOnly(t *testing.T) {
	svc, fs, st := newFixture(domain.Row{UserID: user, Ticker: "PETR4"})
	st.Items = List{"PETR4"}

	if err := svc.Remove(context.Background(), st, "PETR4", ""); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if st.Len() != 0 || fs.reads != 0 {
		t.Errorf("Len %d, reads %d; want 0, 0", st.Len(), fs.reads)
	}
}

func TestClearKeepsPersistedRows(t *testing.T) {
	svc, fs, st := newFixture(domain.Row{UserID: user, Ticker: "PETR4"})
	ctx := context.Background()
	if err := svc.Load(ctx, st, user); err != nil {
		t.Fatalf("Load: %v", err)
	}

	svc.Clear(st)
	if st.Len() != 0 {
		t.Errorf("Items = %v after Clear", st.Items)
	}
	if got := len(rowsOf(t, fs)); got != 1 {
		t.Errorf("rows = %d after Clear, want 1", got)
	}

	// Cleared tickers come back on the next load.
	if err := svc.Load(ctx, st, user); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !equalList(st.Items, List{"PETR4"}) {
		t.Errorf("Items after reload = %v, want [PETR4]", st.Items)
	}
}

func TestRemoveAll(t *testing.T) {
	svc, fs, st := newFixture(
		domain.Row{UserID: user, Ticker: "PETR4"},
		domain.Row{UserID: "bob@example.com", Ticker: "ITUB4"},
		domain.Row{UserID: user, Ticker: "VALE3"},
	)
	ctx := context.Background()
	if err := svc.Load(ctx, st, user); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := svc.RemoveAll(ctx, st, user); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if st.Len() != 0 {
		t.Errorf("Items = %v, want empty", st.Items)
	}
	rows := rowsOf(t, fs)
	if len(rows) != 1 || rows[0].UserID != "bob@example.com" {
		t.Errorf("rows = %v, want only bob's", rows)
	}

	if err := svc.RemoveAll(ctx, st, ""); !errors.Is(err, ErrIdentityRequired) {
		t.Errorf("RemoveAll without identity error = %v, want ErrIdentityRequired", err)
	}
}

func TestRemoveAllPartialFailureReloads(t *testing.T) {
	svc, fs, st := newFixture(
		domain.Row{UserID: user, Ticker: "PETR4"},
		domain.Row{UserID: user, Ticker: "VALE3"},
	)
	ctx := context.Background()
	if err := svc.Load(ctx, st, user); err != nil {
		t.Fatalf("Load: %v", err)
	}
	fs.failDelete = true
	fs.deleteOK = 1 // VALE3 (last row) goes, PETR4 fails

	if err := svc.RemoveAll(ctx, st, user); err == nil {
		t.Fatal("RemoveAll returned nil error")
	}
	if !equalList(st.Items, List{"PETR4"}) {
		t.Errorf("Items = %v, want [PETR4] (what is still persisted)", st.Items)
	}
}

func TestListPure(t *testing.T) {
	l := List{"PETR4", "VALE3"}
	added, err := l.Add("ITUB4")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	removed, pos := added.Remove("PETR4")
	if pos != 0 {
		t.Errorf("Remove pos = %d, want 0", pos)
	}
	if !equalList(l, List{"PETR4", "VALE3"}) {
		t.Errorf("receiver modified: %v", l)
	}
	if !equalList(added, List{"PETR4", "VALE3", "ITUB4"}) {
		t.Errorf("added = %v", added)
	}
	if !equalList(removed, List{"VALE3", "ITUB4"}) {
		t.Errorf("removed = %v", removed)
	}
	if !equalList(removed.Insert(0, "PETR4"), added) {
		t.Errorf("Insert did not restore position")
	}
	if _, pos := l.Remove("WEGE3"); pos != -1 {
		t.Errorf("Remove missing pos = %d, want -1", pos)
	}
}
