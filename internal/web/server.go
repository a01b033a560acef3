// Package web exposes the read-only JSON API: lobby listing, duel snapshots,
// a live duel feed, and the leaderboard.
package web

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"hailstone/internal/back"
	"hailstone/internal/store"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/", noContent)

	// v1 is quick'n dirty on purpose, no pagination nor any fancy stuff.
	r.Get("/v1/duels", s.getDuels)
	r.Get("/v1/duel/{id}", s.getDuel)
	r.Get("/v1/duel/{id}/live", s.getDuelLive)
	r.Get("/v1/leaderboard", s.getLeaderboard)
	r.Get("/v1/player/{name}/history", s.getRatingHistory)

	return r
}

type Server struct {
	http *http.Server
	back *back.Back
	conn store.Conn

	// One global bucket for live feeds, a watcher per request is cheap but
	// not free.
	liveLimiter *rate.Limiter
	upgrader    websocket.Upgrader
}

func NewServer(back *back.Back, conn store.Conn, addr string) *Server {
	s := &Server{
		back:        back,
		conn:        conn,
		liveLimiter: rate.NewLimiter(rate.Limit(10), 30),
		upgrader: websocket.Upgrader{
			// The feed is public and read-only, any origin may spectate.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.http = &http.Server{
		Addr:         addr,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  10 * time.Second,
		Handler:      s.setupRouter(),
	}

	return s
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Serve(wg *sync.WaitGroup, done <-chan struct{}) {
	log.Println("info: starting HTTP server")
	wg.Add(1)
	defer wg.Done()

	go func() {
		err := s.http.ListenAndServe()
		if err == http.ErrServerClosed {
			log.Println("info: HTTP server closed")
			return
		}

		log.Fatalf("webserver crashed: %s", err)
	}()

	<-done
	if err := s.http.Close(); err != nil {
		log.Printf("warning: unable to close webserver: %s", err)
	}
}

func (s *Server) response(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	response, err := json.Marshal(data)
	if err != nil {
		log.Printf("error: unable to marshal response: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(code)

	if _, err := w.Write(response); err != nil {
		log.Printf("error: unable to send response: %s", err)
	}
}

func (s *Server) error(w http.ResponseWriter, err error, code int) {
	log.Printf("error: %s", err)
	w.WriteHeader(code)
}
