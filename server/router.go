// server/http.go
package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frankfika/pokersight-gto/server/cards"
	"github.com/frankfika/pokersight-gto/server/relay"
	"github.com/frankfika/pokersight-gto/server/session"
	"github.com/frankfika/pokersight-gto/server/store"
)

// Router wires the HTTP surface: a small JSON API over the live session
// and the decision history, the two websocket endpoints, and metrics.
// db may be nil; history endpoints then answer 503.
func Router(sess *session.Session, db *store.DB, rh *relay.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"ok": true, "session_id": sess.ID})
	})

	r.Get("/api/state", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, sess.State())
	})

	r.Post("/api/reset", func(w http.ResponseWriter, req *http.Request) {
		sess.Reset()
		writeJSON(w, map[string]any{"ok": true})
	})

	r.Get("/api/sessions", func(w http.ResponseWriter, req *http.Request) {
		if db == nil {
			http.Error(w, "history disabled: no database configured", http.StatusServiceUnavailable)
			return
		}
		sessions, err := db.ListSessions(req.Context(), 0)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, sessions)
	})

	r.Get("/api/sessions/{id}/decisions", func(w http.ResponseWriter, req *http.Request) {
		if db == nil {
			http.Error(w, "history disabled: no database configured", http.StatusServiceUnavailable)
			return
		}
		id := chi.URLParam(req, "id")
		ok, err := db.SessionExists(req.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
		decisions, err := db.ListDecisions(req.Context(), id, 0)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, decisions)
	})

	r.Get("/api/equity", func(w http.ResponseWriter, req *http.Request) {
		hole := cards.ParseList(req.URL.Query().Get("hand"))
		board := cards.ParseList(req.URL.Query().Get("board"))
		samples, _ := strconv.Atoi(req.URL.Query().Get("samples"))
		eq := cards.Equity(hole, board, samples)
		if eq < 0 {
			http.Error(w, "need hand=<two cards> and at most five board cards", http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"equity": eq})
	})

	r.Get("/ws/feed", rh.ServeFeed)
	r.Get("/ws/capture", rh.ServeCapture)

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
