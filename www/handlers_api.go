package www

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"courierdeck/board"
	"courierdeck/catalog"
	"courierdeck/engine"
	"courierdeck/feed"
	"courierdeck/session"
	"courierdeck/upstream"
)

// boardFilter builds a view filter from query parameters. Dates are
// YYYY-MM-DD calendar days, inclusive.
func boardFilter(r *http.Request) (board.Filter, error) {
	q := r.URL.Query()
	f := board.Filter{
		Status:  q.Get("status"),
		Handler: q.Get("handler"),
	}
	if s := q.Get("start"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return f, errors.New("invalid start date, want YYYY-MM-DD")
		}
		f.Start = t
	}
	if s := q.Get("end"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return f, errors.New("invalid end date, want YYYY-MM-DD")
		}
		f.End = t
	}
	if f.Status != "" && f.Status != board.FilterAll && !board.IsKnownStatus(f.Status) {
		return f, errors.New("unknown status filter")
	}
	return f, nil
}

// apiStatuses serves the canonical status set with its display labels and
// badge colors, so every surface renders the same mapping.
func (h *Handlers) apiStatuses(w http.ResponseWriter, r *http.Request) {
	type statusInfo struct {
		Status string `json:"status"`
		Label  string `json:"label"`
		Color  string `json:"color"`
	}
	statuses := make([]statusInfo, 0, len(upstream.Statuses))
	for _, s := range upstream.Statuses {
		statuses = append(statuses, statusInfo{
			Status: s,
			Label:  board.StatusLabel(s),
			Color:  board.StatusColor(s),
		})
	}
	h.jsonOK(w, map[string]any{
		"filters":  board.FilterLabels,
		"statuses": statuses,
	})
}

func (h *Handlers) apiListOrders(w http.ResponseWriter, r *http.Request) {
	f, err := boardFilter(r)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	orders, counts := h.engine.Board().View(f)
	h.jsonOK(w, map[string]any{
		"orders": orders,
		"counts": counts,
	})
}

func (h *Handlers) apiOrderCounts(w http.ResponseWriter, r *http.Request) {
	f, err := boardFilter(r)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, counts := h.engine.Board().View(f)
	h.jsonOK(w, counts)
}

func (h *Handlers) apiUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.jsonError(w, "invalid body", http.StatusBadRequest)
		return
	}

	updated, err := h.engine.UpdateOrderStatus(orderID, body.Status, h.getUsername(r))
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidTarget):
			h.jsonError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, engine.ErrUnknownOrder):
			h.jsonError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, engine.ErrAlreadyInStatus), errors.Is(err, engine.ErrUpdateInFlight):
			h.jsonError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, session.ErrNotLoggedIn), errors.Is(err, upstream.ErrUnauthorized):
			h.jsonError(w, "upstream session expired", http.StatusUnauthorized)
		default:
			h.jsonError(w, err.Error(), http.StatusBadGateway)
		}
		return
	}
	h.jsonOK(w, updated)
}

func (h *Handlers) apiOrderAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.DB().ListEntityAudit("order", chi.URLParam(r, "id"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entries)
}

func (h *Handlers) apiMyOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	skip, _ := strconv.Atoi(q.Get("skip"))
	orders, err := h.engine.Upstream().FetchMyOrders(upstream.OrderQuery{
		Status:    q.Get("status"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		Sort:      q.Get("sort"),
		Limit:     limit,
		Skip:      skip,
	})
	if err != nil {
		h.upstreamError(w, err)
		return
	}
	h.jsonOK(w, orders)
}

func (h *Handlers) apiListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageNum, _ := strconv.Atoi(q.Get("page"))
	query := catalog.Query{
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
		Page:   pageNum,
	}.Normalize()

	page, err := h.engine.LoadCatalogPage(query)
	if err != nil {
		// Serve the held page if the backend is unreachable.
		if h.engine.Catalog().Loaded() {
			products, total, totalPages, held := h.engine.Catalog().Page()
			h.jsonOK(w, map[string]any{
				"products":   products,
				"total":      total,
				"totalPages": totalPages,
				"page":       held.Page,
				"stale":      true,
			})
			return
		}
		h.upstreamError(w, err)
		return
	}
	h.jsonOK(w, map[string]any{
		"products":   page.Products,
		"total":      page.Total,
		"totalPages": page.TotalPages,
		"page":       query.Page,
	})
}

func (h *Handlers) apiDashboardStats(w http.ResponseWriter, r *http.Request) {
	h.serveStats(w, r, "admin", h.engine.Upstream().FetchStats)
}

func (h *Handlers) apiDashboardUserStats(w http.ResponseWriter, r *http.Request) {
	h.serveStats(w, r, "user", h.engine.Upstream().FetchUserStats)
}

// serveStats fetches an aggregate report, falling back to the Redis cache
// when the backend is unreachable.
func (h *Handlers) serveStats(w http.ResponseWriter, r *http.Request, scope string, fetch func(startDate, endDate string) (*upstream.StatsReport, error)) {
	q := r.URL.Query()
	startDate, endDate := q.Get("startDate"), q.Get("endDate")

	report, err := fetch(startDate, endDate)
	if err == nil {
		h.engine.Stats().SetStats(r.Context(), scope, startDate, endDate, report)
		h.jsonOK(w, report)
		return
	}
	if errors.Is(err, upstream.ErrUnauthorized) {
		h.jsonError(w, "upstream session expired", http.StatusUnauthorized)
		return
	}
	cached, cerr := h.engine.Stats().GetStats(r.Context(), scope, startDate, endDate)
	if cerr == nil && cached != nil {
		w.Header().Set("X-Courierdeck-Stale", "true")
		h.jsonOK(w, cached)
		return
	}
	h.jsonError(w, err.Error(), http.StatusBadGateway)
}

func (h *Handlers) apiDashboardUserDetailedStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	q := r.URL.Query()
	timeframe, startDate, endDate := q.Get("timeframe"), q.Get("startDate"), q.Get("endDate")

	report, err := h.engine.Upstream().FetchUserDetailedStats(userID, timeframe, startDate, endDate)
	if err == nil {
		h.engine.Stats().SetUserStats(r.Context(), userID, timeframe, startDate, endDate, report)
		h.jsonOK(w, report)
		return
	}
	if errors.Is(err, upstream.ErrUnauthorized) {
		h.jsonError(w, "upstream session expired", http.StatusUnauthorized)
		return
	}
	cached, cerr := h.engine.Stats().GetUserStats(r.Context(), userID, timeframe, startDate, endDate)
	if cerr == nil && cached != nil {
		w.Header().Set("X-Courierdeck-Stale", "true")
		h.jsonOK(w, cached)
		return
	}
	h.jsonError(w, err.Error(), http.StatusBadGateway)
}

func (h *Handlers) apiFeedState(w http.ResponseWriter, r *http.Request) {
	if h.feed != nil {
		h.jsonOK(w, h.feed.State())
		return
	}
	if s, err := h.engine.Stats().GetFeedState(r.Context()); err == nil && s != nil {
		h.jsonOK(w, s)
		return
	}
	h.jsonOK(w, feed.State{Phase: feed.PhaseOffline})
}

func (h *Handlers) apiHealth(w http.ResponseWriter, r *http.Request) {
	phase := feed.PhaseOffline
	if h.feed != nil {
		phase = h.feed.State().Phase
	}
	h.jsonOK(w, map[string]any{
		"status":           "ok",
		"feed":             phase,
		"upstream_session": h.engine.Session().LoggedIn(),
		"orders":           h.engine.Board().Len(),
		"sse_clients":      h.eventHub.ClientCount(),
	})
}

func (h *Handlers) upstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, upstream.ErrUnauthorized) {
		h.jsonError(w, "upstream session expired", http.StatusUnauthorized)
		return
	}
	h.jsonError(w, err.Error(), http.StatusBadGateway)
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
