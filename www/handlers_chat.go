package www

import (
	"encoding/json"
	"net/http"

	"courierdeck/board"
	"courierdeck/chat"
)

func (h *Handlers) apiChat(w http.ResponseWriter, r *http.Request) {
	if h.responder == nil {
		h.jsonError(w, "chat is disabled", http.StatusNotFound)
		return
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}

	snap := chat.Snapshot{
		TotalOrders: h.engine.Board().Len(),
		Counts:      board.CountByStatus(h.engine.Board().Snapshot(), board.Filter{}),
	}
	if u := h.engine.Session().User(); u != nil {
		snap.UserName = u.Name
	}
	if h.feed != nil {
		snap.FeedLive = h.feed.State().Live()
	}

	h.jsonOK(w, map[string]string{"reply": h.responder.Respond(body.Message, snap)})
}
