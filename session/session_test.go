package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"courierdeck/config"
	"courierdeck/store"
	"courierdeck/upstream"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func loginBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(upstream.LoginResult{
			Token: "tok-xyz",
			User:  upstream.User{ID: "u1", Name: "Dana", Email: "dana@example.com"},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginPersistsAcrossRestart(t *testing.T) {
	db := testDB(t)
	srv := loginBackend(t)

	m := NewManager(db)
	m.AttachClient(upstream.NewClient(srv.URL, 2*time.Second, m))
	user, err := m.Login("dana@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Name != "Dana" || m.Token() != "tok-xyz" {
		t.Fatalf("login result: %+v, token %q", user, m.Token())
	}

	// A second manager over the same store simulates a process restart.
	m2 := NewManager(db)
	if err := m2.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if m2.Token() != "tok-xyz" || !m2.LoggedIn() {
		t.Fatal("restart must restore the saved login")
	}
	if u := m2.User(); u == nil || u.Email != "dana@example.com" {
		t.Fatalf("restored user = %+v", u)
	}
}

func TestLogoutClearsEverywhere(t *testing.T) {
	db := testDB(t)
	srv := loginBackend(t)

	m := NewManager(db)
	m.AttachClient(upstream.NewClient(srv.URL, 2*time.Second, m))
	if _, err := m.Login("dana@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	m.Logout()
	if m.LoggedIn() || m.Token() != "" || m.User() != nil {
		t.Fatal("logout must drop in-memory state")
	}

	m2 := NewManager(db)
	if err := m2.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if m2.LoggedIn() {
		t.Fatal("logout must also clear the persisted login")
	}
}

func TestRestoreWithEmptyStore(t *testing.T) {
	m := NewManager(testDB(t))
	if err := m.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if m.LoggedIn() {
		t.Fatal("fresh store has no session")
	}
}

func TestTeardownBehavesLikeLogout(t *testing.T) {
	db := testDB(t)
	srv := loginBackend(t)
	m := NewManager(db)
	m.AttachClient(upstream.NewClient(srv.URL, 2*time.Second, m))
	if _, err := m.Login("dana@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	m.Teardown()
	if m.LoggedIn() {
		t.Fatal("teardown must end the session")
	}
}
