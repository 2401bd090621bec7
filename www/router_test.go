package www

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"courierdeck/chat"
	"courierdeck/config"
	"courierdeck/engine"
	"courierdeck/session"
	"courierdeck/statcache"
	"courierdeck/store"
	"courierdeck/upstream"
)

// testServer spins up the API over an engine wired to a fake backend.
func testServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
			json.NewEncoder(w).Encode(upstream.LoginResult{
				Token: "tok-1",
				User:  upstream.User{ID: "u1", Name: "Dana"},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/orders":
			json.NewEncoder(w).Encode([]upstream.Order{})
		case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/status"):
			var body struct {
				Status string `json:"status"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			parts := strings.Split(r.URL.Path, "/")
			json.NewEncoder(w).Encode(upstream.Order{ID: parts[2], Status: body.Status})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(backend.Close)

	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sess := session.NewManager(db)
	client := upstream.NewClient(backend.URL, 2*time.Second, sess)
	sess.AttachClient(client)
	if _, err := sess.Login("dana@example.com", "pw"); err != nil {
		t.Fatalf("upstream login: %v", err)
	}

	eng := engine.New(engine.Config{
		AppConfig:  config.Defaults(),
		ConfigPath: filepath.Join(t.TempDir(), "courierdeck.yaml"),
		DB:         db,
		Upstream:   client,
		Session:    sess,
		Stats:      statcache.New(nil),
	})

	handler, stop := NewRouter(Config{Engine: eng, Responder: chat.Default()})
	t.Cleanup(stop)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, eng
}

// loggedInClient returns an http client holding a valid operator session.
func loggedInClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	jar, _ := cookiejar.New(nil)
	c := &http.Client{Jar: jar}
	resp, err := c.PostForm(srv.URL+"/login", url.Values{
		"username": {"admin"},
		"password": {"admin"},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	return c
}

func TestAPIRequiresOperatorLogin(t *testing.T) {
	srv, _ := testServer(t)
	resp, err := http.Get(srv.URL + "/api/orders")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := testServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestListOrdersWithFilter(t *testing.T) {
	srv, eng := testServer(t)
	eng.Board().ReplaceAll([]upstream.Order{
		{ID: "1", Status: upstream.StatusPending, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", Status: upstream.StatusDelivered, CreatedAt: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
	})
	c := loggedInClient(t, srv)

	resp, err := c.Get(srv.URL + "/api/orders?status=delivered")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		Orders []upstream.Order `json:"orders"`
		Counts map[string]int   `json:"counts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Orders) != 1 || body.Orders[0].ID != "2" {
		t.Fatalf("orders = %+v", body.Orders)
	}
	// Badges ignore the selected status.
	if body.Counts["all"] != 2 || body.Counts["pending"] != 1 {
		t.Fatalf("counts = %v", body.Counts)
	}
}

func TestListOrdersBadDate(t *testing.T) {
	srv, _ := testServer(t)
	c := loggedInClient(t, srv)
	resp, err := c.Get(srv.URL + "/api/orders?start=January")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUpdateOrderStatusEndpoint(t *testing.T) {
	srv, eng := testServer(t)
	eng.Board().ReplaceAll([]upstream.Order{{ID: "o1", Status: upstream.StatusPending}})
	c := loggedInClient(t, srv)

	resp, err := c.Post(srv.URL+"/api/orders/o1/status", "application/json",
		strings.NewReader(`{"status":"in_progress"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var updated upstream.Order
	json.NewDecoder(resp.Body).Decode(&updated)
	if updated.Status != upstream.StatusInProgress {
		t.Errorf("Status = %q", updated.Status)
	}

	// Same transition again: already in status, no second backend call.
	resp2, err := c.Post(srv.URL+"/api/orders/o1/status", "application/json",
		strings.NewReader(`{"status":"in_progress"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusConflict {
		t.Fatalf("repeat status = %d, want 409", resp2.StatusCode)
	}
}

func TestUpdateOrderStatusRejectsPending(t *testing.T) {
	srv, eng := testServer(t)
	eng.Board().ReplaceAll([]upstream.Order{{ID: "o1", Status: upstream.StatusDelivered}})
	c := loggedInClient(t, srv)

	resp, err := c.Post(srv.URL+"/api/orders/o1/status", "application/json",
		strings.NewReader(`{"status":"pending"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatEndpoint(t *testing.T) {
	srv, eng := testServer(t)
	eng.Board().ReplaceAll([]upstream.Order{
		{ID: "1", Status: upstream.StatusPending},
		{ID: "2", Status: upstream.StatusPending},
	})
	c := loggedInClient(t, srv)

	resp, err := c.Post(srv.URL+"/api/chat", "application/json",
		strings.NewReader(`{"message":"how many pending orders?"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if !strings.Contains(body["reply"], "2") {
		t.Fatalf("reply = %q", body["reply"])
	}
}

func TestStatusCatalog(t *testing.T) {
	srv, _ := testServer(t)
	c := loggedInClient(t, srv)

	resp, err := c.Get(srv.URL + "/api/statuses")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		Filters  []string `json:"filters"`
		Statuses []struct {
			Status string `json:"status"`
			Label  string `json:"label"`
			Color  string `json:"color"`
		} `json:"statuses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Filters) != 6 || body.Filters[0] != "all" {
		t.Fatalf("filters = %v", body.Filters)
	}
	if len(body.Statuses) != 5 {
		t.Fatalf("statuses = %+v", body.Statuses)
	}
	for _, s := range body.Statuses {
		if s.Status == "delivered" && (s.Label != "Delivered" || s.Color != "#4caf50") {
			t.Errorf("delivered = %+v", s)
		}
		if s.Status == "pending" && s.Color != "#757575" {
			t.Errorf("pending = %+v", s)
		}
	}
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	srv, _ := testServer(t)
	c := loggedInClient(t, srv)
	resp, err := c.Get(srv.URL + "/api/orders?status=shipped")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUpstreamConfigUpdateRepointsClient(t *testing.T) {
	srv, eng := testServer(t)
	c := loggedInClient(t, srv)

	// A second backend standing in for a relocated order service.
	backend2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/user/my-orders" {
			json.NewEncoder(w).Encode([]upstream.Order{{ID: "from-b2", Status: upstream.StatusPending}})
			return
		}
		http.NotFound(w, r)
	}))
	defer backend2.Close()

	payload := fmt.Sprintf(`{"BaseURL":%q,"Timeout":2000000000}`, backend2.URL)
	resp, err := c.Post(srv.URL+"/api/config/upstream", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("config update status = %d", resp.StatusCode)
	}

	// The live client now talks to the new backend.
	resp2, err := c.Get(srv.URL + "/api/my-orders")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var orders []upstream.Order
	if err := json.NewDecoder(resp2.Body).Decode(&orders); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "from-b2" {
		t.Fatalf("orders = %+v", orders)
	}

	// And the change was written to the config file.
	data, err := os.ReadFile(eng.ConfigPath())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), backend2.URL) {
		t.Error("saved config should hold the new base URL")
	}
}

func TestMessagingConfigUpdateSavesWithoutBroker(t *testing.T) {
	srv, eng := testServer(t)
	c := loggedInClient(t, srv)

	payload := `{"Backend":"mqtt","MQTT":{"Broker":"depot-broker","Port":1883,"ClientID":"deck"},"EventsTopic":"depot.events","CommandsTopic":"depot.commands","StationID":"deck"}`
	resp, err := c.Post(srv.URL+"/api/config/messaging", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Saved     bool `json:"saved"`
		Connected bool `json:"connected"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if !body.Saved || body.Connected {
		t.Fatalf("body = %+v", body)
	}
	if eng.AppConfig().Messaging.EventsTopic != "depot.events" {
		t.Errorf("messaging config not applied: %+v", eng.AppConfig().Messaging)
	}
	data, err := os.ReadFile(eng.ConfigPath())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "depot.events") {
		t.Error("saved config should hold the new topic")
	}
}

func TestSessionInfo(t *testing.T) {
	srv, _ := testServer(t)
	c := loggedInClient(t, srv)
	resp, err := c.Get(srv.URL + "/api/session")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		LoggedIn bool           `json:"logged_in"`
		User     *upstream.User `json:"user"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if !body.LoggedIn || body.User == nil || body.User.Name != "Dana" {
		t.Fatalf("session info = %+v", body)
	}
}
