package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRegistryCreatesAndReuses(t *testing.T) {
	reg := NewRegistry(10, time.Hour)

	rec := httptest.NewRecorder()
	s1, created := reg.Get(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !created {
		t.Fatal("first Get did not create a session")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != s1.ID {
		t.Fatalf("cookies = %v, want %s=%s", cookies, CookieName, s1.ID)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	s2, created := reg.Get(rec2, req)
	if created || s2 != s1 {
		t.Errorf("Get with cookie returned new session (created=%v)", created)
	}
	if len(rec2.Result().Cookies()) != 0 {
		t.Error("existing session set a cookie again")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistryUnknownCookie(t *testing.T) {
	reg := NewRegistry(10, time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "stale"})

	s, created := reg.Get(httptest.NewRecorder(), req)
	if !created || s.ID == "stale" {
		t.Errorf("stale cookie: created=%v id=%q", created, s.ID)
	}
}

func TestRegistryExpires(t *testing.T) {
	reg := NewRegistry(10, 20*time.Millisecond)
	rec := httptest.NewRecorder()
	s1, _ := reg.Get(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	time.Sleep(60 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	s2, created := reg.Get(httptest.NewRecorder(), req)
	if !created || s2.ID == s1.ID {
		t.Error("expired session was reused")
	}
}

func TestFlashIsOneShot(t *testing.T) {
	var s Session
	if s.TakeFlash() != nil {
		t.Fatal("zero session has a flash")
	}
	s.SetFlash(LevelInfo, "Já está na lista.")
	f := s.TakeFlash()
	if f == nil || f.Level != LevelInfo || f.Text != "Já está na lista." {
		t.Errorf("TakeFlash() = %+v", f)
	}
	if s.TakeFlash() != nil {
		t.Error("flash returned twice")
	}
}
