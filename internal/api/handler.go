package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ratewatch/ratewatch/internal/alerts"
	"github.com/ratewatch/ratewatch/internal/export"
	"github.com/ratewatch/ratewatch/internal/panel"
)

// Subscriptions is the feed-adapter contract the API needs for subscription
// control.
type Subscriptions interface {
	Subscribe(names ...string)
	Unsubscribe(names ...string)
	Subscribed() []string
	Connected() bool
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	panel  *panel.Panel
	feed   Subscriptions
	alerts *alerts.Engine
	mux    *http.ServeMux
}

// New creates a Handler wired to the given collaborators and registers all
// routes. alertEngine may be nil when alerting is not configured.
func New(p *panel.Panel, feed Subscriptions, alertEngine *alerts.Engine) http.Handler {
	h := &Handler{panel: p, feed: feed, alerts: alertEngine, mux: http.NewServeMux()}

	// {name} is matched against the escaped path, so slash-carrying channel
	// names ("/imu") stay addressable — clients URL-escape them ("%2Fimu").
	h.mux.HandleFunc("GET /api/v1/health", h.health)
	h.mux.HandleFunc("GET /api/v1/channels", h.listChannels)
	h.mux.HandleFunc("GET /api/v1/channels/{name}", h.getChannel)
	h.mux.HandleFunc("GET /api/v1/subscriptions", h.listSubscriptions)
	h.mux.HandleFunc("POST /api/v1/subscriptions", h.addSubscription)
	h.mux.HandleFunc("DELETE /api/v1/subscriptions/{name}", h.deleteSubscription)
	h.mux.HandleFunc("GET /api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("GET /api/v1/export.csv", h.exportCSV)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — tracked channel and message totals plus
// the feed connection state.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Channels:      h.panel.ChannelCount(),
		Messages:      h.panel.MessageCount(),
		FeedConnected: h.feed.Connected(),
	})
}

// listChannels returns GET /api/v1/channels — all channel summaries.
func (h *Handler) listChannels(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, BuildSummaries(h.panel))
}

// getChannel returns GET /api/v1/channels/{name} — a single channel summary.
func (h *Handler) getChannel(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	sum, ok := h.panel.Summary(name)
	if !ok {
		jsonErr(w, http.StatusNotFound, "channel not tracked")
		return
	}
	jsonResp(w, http.StatusOK, toChannelResponse(panel.ChannelSummary{Channel: name, Summary: sum}))
}

// listSubscriptions returns GET /api/v1/subscriptions — the effective set.
func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, SubscriptionsResponse{Channels: h.feed.Subscribed()})
}

// addSubscription handles POST /api/v1/subscriptions.
func (h *Handler) addSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Channels) == 0 {
		jsonErr(w, http.StatusBadRequest, "channels must not be empty")
		return
	}
	h.feed.Subscribe(req.Channels...)
	jsonResp(w, http.StatusOK, SubscriptionsResponse{Channels: h.feed.Subscribed()})
}

// deleteSubscription handles DELETE /api/v1/subscriptions/{name}. The
// channel's window and cached summary are dropped along with the delivery
// request.
func (h *Handler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	h.feed.Unsubscribe(name)
	h.panel.Forget(name)
	jsonResp(w, http.StatusOK, SubscriptionsResponse{Channels: h.feed.Subscribed()})
}

// listAlerts returns GET /api/v1/alerts — currently firing alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// exportCSV returns GET /api/v1/export.csv — the summary snapshot as a CSV
// download.
func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		`attachment; filename="ratewatch-`+time.Now().UTC().Format("20060102-150405")+`.csv"`)
	if err := export.Write(w, h.panel.Summaries()); err != nil {
		// Headers are already out; nothing sensible left to send.
		return
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
