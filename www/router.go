// Package www is the deck's local HTTP surface: a JSON API for the
// dashboard frontend plus an SSE endpoint that relays live order activity
// to connected browsers.
package www

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"courierdeck/chat"
	"courierdeck/engine"
	"courierdeck/feed"
)

type Handlers struct {
	engine    *engine.Engine
	feed      *feed.Feed
	responder *chat.Responder
	sessions  *sessions.CookieStore
	eventHub  *EventHub
}

type Config struct {
	Engine    *engine.Engine
	Feed      *feed.Feed
	Responder *chat.Responder
}

func NewRouter(c Config) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(c.Engine)

	h := &Handlers{
		engine:    c.Engine,
		feed:      c.Feed,
		responder: c.Responder,
		sessions:  newSessionStore(c.Engine.AppConfig().Web.SessionSecret),
		eventHub:  hub,
	}

	h.ensureDefaultAdmin(c.Engine.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Local operator login
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)

	// SSE relay for the dashboard frontend
	r.Get("/events", hub.SSEHandler)

	// Public reads
	r.Get("/api/health", h.apiHealth)
	r.Get("/api/feed/state", h.apiFeedState)

	// Everything else needs a local operator session
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		// Upstream backend session
		r.Get("/api/session", h.apiSessionInfo)
		r.Post("/api/session/login", h.apiSessionLogin)
		r.Post("/api/session/register", h.apiSessionRegister)
		r.Post("/api/session/logout", h.apiSessionLogout)

		// Deck configuration (saved + hot-reloaded)
		r.Get("/api/config", h.apiGetConfig)
		r.Post("/api/config/upstream", h.apiUpdateUpstreamConfig)
		r.Post("/api/config/messaging", h.apiUpdateMessagingConfig)

		// Order board
		r.Get("/api/statuses", h.apiStatuses)
		r.Get("/api/orders", h.apiListOrders)
		r.Get("/api/orders/counts", h.apiOrderCounts)
		r.Get("/api/orders/{id}/audit", h.apiOrderAudit)
		r.Post("/api/orders/{id}/status", h.apiUpdateOrderStatus)
		r.Get("/api/my-orders", h.apiMyOrders)

		// Catalog
		r.Get("/api/products", h.apiListProducts)

		// Dashboard aggregates (rendered backend-side, cached here)
		r.Get("/api/dashboard/stats", h.apiDashboardStats)
		r.Get("/api/dashboard/user-stats", h.apiDashboardUserStats)
		r.Get("/api/dashboard/user-stats/{id}", h.apiDashboardUserDetailedStats)

		// Chat helper
		r.Post("/api/chat", h.apiChat)
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := h.engine.DB().GetAdminUser(username)
	if err != nil || !checkPassword(user.PasswordHash, password) {
		h.jsonError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["username"] = username
	if err := session.Save(r, w); err != nil {
		log.Printf("auth: session save error: %v", err)
	}

	h.jsonOK(w, map[string]string{"username": username})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = false
	session.Values["username"] = ""
	session.Save(r, w)
	h.jsonOK(w, map[string]bool{"ok": true})
}
