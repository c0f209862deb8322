package util

import (
	"log/slog"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// B3 regular session in local time, used when no exchange calendar is
// available.
const (
	b3OpenMinute  = 10 * 60
	b3CloseMinute = 17 * 60
)

// TradingCalendar answers market-hours questions for one exchange.
type TradingCalendar struct {
	cal *calendar.Calendar
	loc *time.Location
}

// NewTradingCalendar returns the calendar for mic (e.g. "bvmf"). When the
// calendar library has no entry for mic it falls back to weekdays and the B3
// regular session in America/Sao_Paulo.
func NewTradingCalendar(mic string) *TradingCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		mic = "bvmf"
	}
	if cal := calendar.GetCalendar(mic); cal != nil {
		return &TradingCalendar{cal: cal, loc: cal.Loc}
	}

	slog.Default().Warn("no exchange calendar, using weekday fallback", "mic", mic)
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.FixedZone("BRT", -3*60*60)
	}
	return &TradingCalendar{loc: loc}
}

// Location returns the exchange time zone.
func (tc *TradingCalendar) Location() *time.Location { return tc.loc }

// IsTradingDay reports whether the exchange holds a session on t's date.
func (tc *TradingCalendar) IsTradingDay(t time.Time) bool {
	t = t.In(tc.loc)
	if tc.cal != nil {
		return tc.cal.IsBusinessDay(t)
	}
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsMarketOpen reports whether the regular session is running at t.
func (tc *TradingCalendar) IsMarketOpen(t time.Time) bool {
	t = t.In(tc.loc)
	if tc.cal != nil {
		return tc.cal.IsOpen(t)
	}
	if !tc.IsTradingDay(t) {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	return m >= b3OpenMinute && m < b3CloseMinute
}
