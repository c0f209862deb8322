// Package dashboard turns universe rows, quotes and index series into the
// view models rendered by the HTML page. Nothing here holds state.
package dashboard

import (
	"errors"
	"fmt"

	"monitorb3/internal/domain"
	"monitorb3/internal/session"
	"monitorb3/internal/universe"
	"monitorb3/internal/watchlist"
)

// CardColumns is the number of columns in the card grid.
const CardColumns = 3

// Sheet columns shown on cards when present, after normalization.
const (
	ColumnPrice  = "PREÇO ATUAL"
	ColumnMargin = "MARGEM SEG."
)

// EmptyMessage is shown instead of the summary when the list is empty.
const EmptyMessage = "Selecione até 10 ativos na lateral."

// ---------------------------------------------------------------------------
// Summary table
// ---------------------------------------------------------------------------

// Summary is the universe subset for the watchlist, in watchlist order.
type Summary struct {
	Columns []string
	Rows    [][]string
}

// BuildSummary selects the universe rows for list. Tickers missing from the
// universe are left out.
func BuildSummary(u *universe.Universe, list []domain.Ticker) Summary {
	if u == nil {
		return Summary{}
	}
	return Summary{Columns: u.Columns, Rows: u.RowsFor(list)}
}

// ---------------------------------------------------------------------------
// Cards
// ---------------------------------------------------------------------------

// Card is one quick-view tile.
type Card struct {
	Ticker    string
	Price     string
	Change    string
	ChangePct string
	Class     string
	Source    string
	Margin    string
	Available bool
}

// BuildCard renders q. When q has no data the sheet price (if any) is shown
// instead, without a change line.
func BuildCard(q domain.PriceQuote, u *universe.Universe) Card {
	c := Card{Ticker: q.Ticker.String(), Price: NoData, Class: "flat", Source: string(q.Source)}
	if u != nil {
		if m, ok := u.Value(q.Ticker, ColumnMargin); ok && m != "" {
			c.Margin = m + "%"
		}
	}
	if !q.Available() {
		if u != nil {
			if p, ok := u.Value(q.Ticker, ColumnPrice); ok && p != "" {
				c.Price = "R$ " + p
				c.Source = "sheet"
			}
		}
		return c
	}
	c.Available = true
	c.Price = FormatBRL(q.Last)
	change := q.Change()
	c.Change = FormatChange(change)
	c.Class = TrendClass(change)
	if pct, ok := q.ChangePct(); ok {
		c.ChangePct = FormatPct(pct)
	}
	return c
}

// Columns distributes cards round-robin over n columns: card i goes to
// column i % n.
func Columns(cards []Card, n int) [][]Card {
	if n <= 0 {
		n = CardColumns
	}
	cols := make([][]Card, n)
	for i, c := range cards {
		cols[i%n] = append(cols[i%n], c)
	}
	return cols
}

// ---------------------------------------------------------------------------
// Flash messages
// ---------------------------------------------------------------------------

// FlashFor maps a watchlist command error to the message shown to the user.
// ok is false for a nil error.
func FlashFor(err error) (level session.Level, text string, ok bool) {
	var se *watchlist.StoreError
	switch {
	case err == nil:
		return "", "", false
	case errors.Is(err, watchlist.ErrAlreadyPresent):
		return session.LevelInfo, "Já está na lista.", true
	case errors.Is(err, watchlist.ErrCapacity):
		return session.LevelError, fmt.Sprintf("Limite de %d ativos atingido.", watchlist.MaxItems), true
	case errors.Is(err, watchlist.ErrIdentityRequired):
		return session.LevelWarning, "Informe seu e-mail para salvar a lista.", true
	case errors.Is(err, watchlist.ErrInvalidTicker):
		return session.LevelWarning, "Selecione um ativo.", true
	case errors.As(err, &se) && se.Op == "read":
		return session.LevelError, "Falha ao carregar a lista: " + se.Err.Error(), true
	case errors.As(err, &se):
		return session.LevelError, "Falha ao salvar: " + se.Err.Error(), true
	default:
		return session.LevelError, err.Error(), true
	}
}

// Caption is the sidebar counter, e.g. "3/10 ativos".
func Caption(n int) string {
	return fmt.Sprintf("%d/%d ativos", n, watchlist.MaxItems)
}
