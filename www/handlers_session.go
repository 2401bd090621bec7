package www

import (
	"encoding/json"
	"net/http"
)

func (h *Handlers) apiSessionInfo(w http.ResponseWriter, r *http.Request) {
	user := h.engine.Session().User()
	h.jsonOK(w, map[string]any{
		"logged_in": h.engine.Session().LoggedIn(),
		"user":      user,
	})
}

func (h *Handlers) apiSessionLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	user, err := h.engine.StartSession(body.Email, body.Password)
	if err != nil {
		h.upstreamError(w, err)
		return
	}
	// Populate the board right away; the feed will keep it current.
	if err := h.engine.RefreshOrders(); err != nil {
		// The login itself succeeded; the feed reconciles on connect.
		h.jsonOK(w, map[string]any{"user": user, "orders_loaded": false})
		return
	}
	h.jsonOK(w, map[string]any{"user": user, "orders_loaded": true})
}

func (h *Handlers) apiSessionRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}
	user, err := h.engine.Session().Register(body.Name, body.Email, body.Password)
	if err != nil {
		h.upstreamError(w, err)
		return
	}
	h.jsonOK(w, map[string]any{"user": user})
}

func (h *Handlers) apiSessionLogout(w http.ResponseWriter, r *http.Request) {
	h.engine.Session().Logout()
	h.jsonOK(w, map[string]bool{"ok": true})
}
