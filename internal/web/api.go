package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hailstone/internal/duel"
	"hailstone/internal/store"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
)

type duelSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Rated     bool      `json:"rated"`
	CreatedBy string    `json:"createdBy"`
}

// getDuels lists the public lobby: pending sessions anyone can join.
func (s *Server) getDuels(w http.ResponseWriter, _ *http.Request) {
	keys, err := s.conn.Keys(duel.PathPrefix)
	if err != nil {
		s.error(w, err, http.StatusInternalServerError)
		return
	}

	ret := make([]duelSummary, 0, len(keys))
	for _, key := range keys {
		var session duel.Session
		if err := s.conn.Read(key, &session); err != nil {
			if errors.Is(err, store.ErrAbsent) {
				continue // deleted between Keys and Read
			}
			s.error(w, err, http.StatusInternalServerError)
			return
		}

		if !session.Public || session.Status != duel.StatusPending || session.Player1 == nil {
			continue
		}

		ret = append(ret, duelSummary{
			ID:        session.ID,
			CreatedAt: session.CreatedAt,
			Rated:     session.Rated,
			CreatedBy: session.Player1.Name,
		})
	}

	s.response(w, http.StatusOK, ret)
}

func (s *Server) getDuel(w http.ResponseWriter, r *http.Request) {
	id := strings.ToUpper(chi.URLParam(r, "id"))

	var session duel.Session
	if err := s.conn.Read(duel.PathPrefix+id, &session); err != nil {
		if errors.Is(err, store.ErrAbsent) {
			s.error(w, err, http.StatusNotFound)
			return
		}
		s.error(w, err, http.StatusInternalServerError)
		return
	}

	s.response(w, http.StatusOK, session)
}

// getDuelLive streams raw session snapshots over a websocket until the duel
// record disappears or the client hangs up. Spectators get the same
// at-least-once, latest-wins view the participants do.
func (s *Server) getDuelLive(w http.ResponseWriter, r *http.Request) {
	if !s.liveLimiter.Allow() {
		s.error(w, errors.New("too many live watchers"), http.StatusTooManyRequests)
		return
	}

	id := strings.ToUpper(chi.URLParam(r, "id"))
	watcher, err := s.conn.Watch(duel.PathPrefix + id)
	if err != nil {
		s.error(w, err, http.StatusInternalServerError)
		return
	}
	defer watcher.Cancel()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already replied
	}
	defer ws.Close()

	// The read pump only exists to notice the client going away.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				watcher.Cancel()
				return
			}
		}
	}()

	for snapshot := range watcher.Snapshots() {
		if snapshot == nil {
			_ = ws.WriteMessage(websocket.TextMessage, []byte("null"))
			return
		}

		if err := ws.WriteMessage(websocket.TextMessage, snapshot); err != nil {
			return
		}
	}
}

func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if str := r.URL.Query().Get("limit"); str != "" {
		parsed, err := strconv.Atoi(str)
		if err != nil || parsed < 1 || parsed > 500 {
			s.error(w, errors.New("bad limit"), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	leaderboard, err := s.back.GetLeaderboard(limit)
	if err != nil {
		s.error(w, err, http.StatusInternalServerError)
		return
	}

	s.response(w, http.StatusOK, leaderboard)
}

func (s *Server) getRatingHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.back.GetRatingHistory(chi.URLParam(r, "name"))
	if err != nil {
		s.error(w, err, http.StatusNotFound)
		return
	}

	s.response(w, http.StatusOK, history)
}
