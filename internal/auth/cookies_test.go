package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
)

func TestCookieStoreValidity(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cs := NewCookieStore(filepath.Join(t.TempDir(), "auth", "cookies.json"))
	cs.now = func() time.Time { return now }

	if cs.IsValid() {
		t.Fatal("empty store reported valid")
	}

	expires := float64(now.Add(24 * time.Hour).Unix())
	cookies := []*network.Cookie{
		{Name: SessionCookie, Value: "abc", Domain: ".instagram.com", Expires: expires},
		{Name: CSRFCookie, Value: "tok", Domain: ".instagram.com", Expires: expires + 3600},
		{Name: "other", Value: "x", Domain: ".example.com"},
	}
	if err := cs.Save(cookies); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !cs.IsValid() {
		t.Fatal("fresh cookies reported invalid")
	}

	stored, err := cs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !stored.ExpiresAt.Equal(time.Unix(int64(expires), 0)) {
		t.Fatalf("ExpiresAt=%v", stored.ExpiresAt)
	}

	ig, err := cs.InstagramCookies()
	if err != nil {
		t.Fatalf("InstagramCookies: %v", err)
	}
	if len(ig) != 2 {
		t.Fatalf("len(ig)=%d", len(ig))
	}

	now = now.Add(48 * time.Hour)
	if cs.IsValid() {
		t.Fatal("expired cookies reported valid")
	}

	if err := cs.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := cs.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestCookieStoreRequiresSession(t *testing.T) {
	t.Parallel()
	cs := NewCookieStore(filepath.Join(t.TempDir(), "cookies.json"))
	if err := cs.Save([]*network.Cookie{{Name: CSRFCookie, Value: "tok", Domain: ".instagram.com"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if cs.IsValid() {
		t.Fatal("missing sessionid reported valid")
	}
}
