// Package session owns the deck's login with the remote backend. The token
// is persisted so a restart does not force a fresh login, and torn down the
// moment the backend rejects it.
package session

import (
	"errors"
	"log"
	"sync"

	"courierdeck/store"
	"courierdeck/upstream"
)

// ErrNotLoggedIn is returned by actions that need an upstream session.
var ErrNotLoggedIn = errors.New("session: not logged in")

// Manager holds the current upstream credentials. It satisfies
// upstream.TokenSource so the REST client always sends the live token.
type Manager struct {
	mu     sync.RWMutex
	db     *store.DB
	client *upstream.Client
	token  string
	user   *upstream.User
}

func NewManager(db *store.DB) *Manager {
	return &Manager{db: db}
}

// AttachClient wires the REST client in after construction. The client needs
// the manager as its token source, so the two are built in sequence.
func (m *Manager) AttachClient(c *upstream.Client) {
	m.mu.Lock()
	m.client = c
	m.mu.Unlock()
}

// Restore loads a previously saved login from the store, if any.
func (m *Manager) Restore() error {
	s, err := m.db.LoadUpstreamSession()
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	m.mu.Lock()
	m.token = s.Token
	m.user = &upstream.User{
		ID:    s.UserID,
		Name:  s.UserName,
		Email: s.UserEmail,
		Admin: s.IsAdmin,
	}
	m.mu.Unlock()
	log.Printf("session: restored login for %s", s.UserName)
	return nil
}

// Token implements upstream.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// LoggedIn reports whether an upstream session is active.
func (m *Manager) LoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}

// User returns a copy of the logged-in account, or nil.
func (m *Manager) User() *upstream.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Login authenticates against the backend and persists the result.
func (m *Manager) Login(email, password string) (*upstream.User, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil, errors.New("session: no upstream client")
	}
	res, err := client.Login(email, password)
	if err != nil {
		return nil, err
	}
	return m.accept(res)
}

// Register creates a backend account and logs in with it.
func (m *Manager) Register(name, email, password string) (*upstream.User, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil, errors.New("session: no upstream client")
	}
	res, err := client.Register(name, email, password)
	if err != nil {
		return nil, err
	}
	return m.accept(res)
}

func (m *Manager) accept(res *upstream.LoginResult) (*upstream.User, error) {
	m.mu.Lock()
	m.token = res.Token
	u := res.User
	m.user = &u
	m.mu.Unlock()

	err := m.db.SaveUpstreamSession(&store.UpstreamSession{
		Token:     res.Token,
		UserID:    res.User.ID,
		UserName:  res.User.Name,
		UserEmail: res.User.Email,
		IsAdmin:   res.User.Admin,
	})
	if err != nil {
		log.Printf("session: persist login: %v", err)
	}
	out := res.User
	return &out, nil
}

// Logout drops the session locally. The backend has no logout endpoint; the
// token simply stops being sent.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.token = ""
	m.user = nil
	m.mu.Unlock()
	if err := m.db.ClearUpstreamSession(); err != nil {
		log.Printf("session: clear persisted login: %v", err)
	}
}

// Teardown is Logout for the rejected-token path. Kept separate so callers
// read as "the backend kicked us" rather than "the user left".
func (m *Manager) Teardown() {
	log.Printf("session: token rejected by backend, logging out")
	m.Logout()
}
