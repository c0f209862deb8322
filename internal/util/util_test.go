package util

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryPermanent(t *testing.T) {
	notFound := errors.New("404 not found")
	attempts := 0

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		return Permanent(notFound)
	})

	if !errors.Is(err, notFound) {
		t.Errorf("Retry error = %v, want %v", err, notFound)
	}
	if attempts != 1 {
		t.Errorf("Retry called fn %d times, want 1", attempts)
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func() error { return errors.New("boom") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry error = %v, want context.Canceled", err)
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(60, 3)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait #%d: %v", i+1, err)
		}
	}
	// The fourth call needs a refill (one per second) and must hit the deadline.
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait #4 error = %v, want context.DeadlineExceeded", err)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 5)
	if rl != nil {
		t.Fatal("NewRateLimiter(0) should return nil")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter Wait = %v, want nil", err)
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "json").Debug("loaded", "tickers", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json handler output not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "loaded" {
		t.Errorf("msg = %v, want %q", rec["msg"], "loaded")
	}

	buf.Reset()
	newLogger(&buf, "info", "text").Info("loaded", "tickers", 3)
	if !strings.Contains(buf.String(), "tickers=3") {
		t.Errorf("text handler output = %q, want it to contain tickers=3", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "warn", "text").Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTradingCalendarWeekend(t *testing.T) {
	cal := NewTradingCalendar("bvmf")
	if cal == nil {
		t.Fatal("NewTradingCalendar returned nil")
	}
	// Saturday 2025-03-15, midday in São Paulo.
	sat := time.Date(2025, 3, 15, 15, 0, 0, 0, time.UTC)
	if cal.IsTradingDay(sat) {
		t.Error("Saturday reported as trading day")
	}
	if cal.IsMarketOpen(sat) {
		t.Error("market reported open on Saturday")
	}
}

func TestTradingCalendarFallback(t *testing.T) {
	cal := NewTradingCalendar("zzzz")
	// Wednesday 2025-03-12 14:00 UTC is 11:00 in São Paulo.
	open := time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC)
	if !cal.IsMarketOpen(open) {
		t.Error("fallback calendar closed at 11:00 on a Wednesday")
	}
	// 23:00 UTC is 20:00 local, after the close.
	closed := time.Date(2025, 3, 12, 23, 0, 0, 0, time.UTC)
	if cal.IsMarketOpen(closed) {
		t.Error("fallback calendar open at 20:00")
	}
}
