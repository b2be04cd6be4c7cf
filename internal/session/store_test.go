package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jameshendricken/iot-dashboard/internal/db"
)

func newStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(database.Conn, ttl)
}

func TestCreateAndGet(t *testing.T) {
	store := newStore(t, time.Hour)

	sess, err := store.Create("a@b.co", "Acme", "admin", "Ada")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("empty token")
	}

	got, err := store.Get(sess.Token)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for live session")
	}
	if got.Email != "a@b.co" || got.Organisation != "Acme" || got.Role != "admin" || got.Name != "Ada" {
		t.Errorf("session = %+v", got)
	}
	if !got.IsAdmin() {
		t.Error("admin session should report IsAdmin")
	}
}

func TestGetUnknownToken(t *testing.T) {
	store := newStore(t, time.Hour)

	got, err := store.Get("no-such-token")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != nil {
		t.Errorf("Get = %+v, want nil", got)
	}
}

func TestExpiredSessionIsGone(t *testing.T) {
	store := newStore(t, -time.Minute) // already expired at creation

	sess, err := store.Create("a@b.co", "Acme", "user", "Ada")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := store.Get(sess.Token)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != nil {
		t.Errorf("expired session returned: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	store := newStore(t, time.Hour)

	sess, err := store.Create("a@b.co", "Acme", "user", "Ada")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := store.Delete(sess.Token); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	got, err := store.Get(sess.Token)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != nil {
		t.Error("session survived Delete")
	}

	// Deleting again is a no-op, not an error.
	if err := store.Delete(sess.Token); err != nil {
		t.Errorf("second Delete error: %v", err)
	}
}

func TestPurgeExpiredAndCount(t *testing.T) {
	store := newStore(t, time.Hour)

	if _, err := store.Create("live@b.co", "Acme", "user", "Liv"); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	expired := newStoreShared(store, -time.Minute)
	if _, err := expired.Create("old@b.co", "Acme", "user", "Olaf"); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	n, err := store.PurgeExpired()
	if err != nil {
		t.Fatalf("PurgeExpired error: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d sessions, want 1", n)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

// newStoreShared returns a Store over the same database with a different TTL.
func newStoreShared(s *Store, ttl time.Duration) *Store {
	return NewStore(s.db, ttl)
}

func TestIsAdminNilSafe(t *testing.T) {
	var s *Session
	if s.IsAdmin() {
		t.Error("nil session should not be admin")
	}
}
