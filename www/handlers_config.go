package www

import (
	"encoding/json"
	"log"
	"net/http"

	"courierdeck/config"
)

func (h *Handlers) apiGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.AppConfig()
	h.jsonOK(w, map[string]any{
		"upstream":  cfg.Upstream,
		"feed":      cfg.Feed,
		"messaging": cfg.Messaging,
		"chat":      cfg.Chat,
	})
}

// apiUpdateUpstreamConfig replaces the upstream section, saves the config
// file, and re-points the live REST client.
func (h *Handlers) apiUpdateUpstreamConfig(w http.ResponseWriter, r *http.Request) {
	var body config.UpstreamConfig
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.BaseURL == "" {
		h.jsonError(w, "invalid upstream config", http.StatusBadRequest)
		return
	}

	cfg := h.engine.AppConfig()
	cfg.Lock()
	cfg.Upstream = body
	cfg.Unlock()

	if err := cfg.Save(h.engine.ConfigPath()); err != nil {
		log.Printf("config: save: %v", err)
		h.jsonError(w, "failed to save config", http.StatusInternalServerError)
		return
	}
	h.engine.ReconfigureUpstream()
	h.jsonOK(w, map[string]any{"saved": true})
}

// apiUpdateMessagingConfig replaces the messaging section, saves the config
// file, and reconnects the bus client. A broker that cannot be reached is
// reported, not fatal; the deck keeps running and the drainer retries.
func (h *Handlers) apiUpdateMessagingConfig(w http.ResponseWriter, r *http.Request) {
	var body config.MessagingConfig
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Backend == "" {
		h.jsonError(w, "invalid messaging config", http.StatusBadRequest)
		return
	}

	cfg := h.engine.AppConfig()
	cfg.Lock()
	cfg.Messaging = body
	cfg.Unlock()

	if err := cfg.Save(h.engine.ConfigPath()); err != nil {
		log.Printf("config: save: %v", err)
		h.jsonError(w, "failed to save config", http.StatusInternalServerError)
		return
	}

	connected := false
	if err := h.engine.ReconfigureMessaging(); err != nil {
		log.Printf("config: messaging reconnect: %v", err)
	} else if mc := h.engine.MsgClient(); mc != nil {
		connected = mc.IsConnected()
	}
	h.jsonOK(w, map[string]any{"saved": true, "connected": connected})
}
