package duel

import (
	"errors"
	"log"
	"sync"
	"time"

	"hailstone/internal/store"
)

// Janitor prunes pending sessions whose creator went away without the
// on-disconnect cleanup firing, eg. a client that crashed between creating
// the lobby entry and the store noticing the drop.
type Janitor struct {
	conn   store.Conn
	maxAge time.Duration
}

func NewJanitor(conn store.Conn, maxAge time.Duration) *Janitor {
	return &Janitor{conn: conn, maxAge: maxAge}
}

func (j *Janitor) Run(wg *sync.WaitGroup, done <-chan struct{}) {
	wg.Add(1)
	defer wg.Done()
	log.Print("info: starting duel janitor")

	for {
		if err := j.prune(time.Now()); err != nil {
			log.Printf("error: janitor: %s", err)
		}

		select {
		case <-time.After(1 * time.Minute):
		case <-done:
			return
		}
	}
}

func (j *Janitor) prune(now time.Time) error {
	keys, err := j.conn.Keys(PathPrefix)
	if err != nil {
		return err
	}

	for _, path := range keys {
		var session Session
		if err := j.conn.Read(path, &session); err != nil {
			if errors.Is(err, store.ErrAbsent) {
				continue // deleted between listing and read
			}
			return err
		}

		if session.Status != StatusPending {
			continue
		}
		if now.Sub(session.CreatedAt) < j.maxAge {
			continue
		}

		log.Printf("info: pruning stale pending duel %s", session.ID)
		if err := j.conn.Delete(path); err != nil && !errors.Is(err, store.ErrAbsent) {
			return err
		}
	}

	return nil
}
