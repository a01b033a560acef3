package duel

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"hailstone/internal/collatz"
	"hailstone/internal/rating"
	"hailstone/internal/store"
	"hailstone/internal/util"
)

// Identity is what the auth collaborator hands us: a stable opaque id and a
// display name.
type Identity struct {
	UID  string
	Name string
}

// RatingRecorder applies a duel outcome to this participant's persistent
// rating. Implementations must only ever touch the rating of selfUID, the
// opponent's coordinator takes care of the other side.
type RatingRecorder interface {
	RecordDuelOutcome(selfUID, opponentUID string, score float64) (rating.Rating, error)
}

// Result is what a coordinator surfaces exactly once per duel.
type Result struct {
	SessionID string
	Outcome   Outcome
	Won       bool
	Draw      bool
	Forfeited bool // the opponent dropped
	Opponent  string
	Rating    *rating.Rating // post-duel, nil when unrated or on write failure
}

// Coordinator drives one participant's side of a duel. Two coordinators
// never talk to each other, every bit of coordination goes through the
// shared session record.
type Coordinator struct {
	conn    store.Conn
	ratings RatingRecorder
	self    Identity
	rng     *rand.Rand

	mu             sync.Mutex
	sessionID      string
	slot           int // 1 creator, 2 joiner, 0 in lobby
	current        int
	steps          uint
	watcher        store.Watcher
	pendingHook    store.Hook // deletes an abandoned pending lobby
	forfeitHook    store.Hook // marks our slot forfeited on connection loss
	wroteStartAt   bool
	startAnnounced bool
	finalized      bool

	starts  chan time.Time
	results chan Result
}

func NewCoordinator(conn store.Conn, ratings RatingRecorder, self Identity) *Coordinator {
	return &Coordinator{
		conn:    conn,
		ratings: ratings,
		self:    self,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), // nolint:gosec
		starts:  make(chan time.Time, 1),
		results: make(chan Result, 1),
	}
}

// Starts yields the shared absolute instant both participants count down to.
func (c *Coordinator) Starts() <-chan time.Time {
	return c.starts
}

// Results yields at most one Result per duel.
func (c *Coordinator) Results() <-chan Result {
	return c.results
}

// Progress returns this participant's local number and step count.
func (c *Coordinator) Progress() (current int, steps uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.current, c.steps
}

func (c *Coordinator) path() string {
	return PathPrefix + c.sessionID
}

// Create opens a new pending session with this participant as player1 and
// arms a cleanup hook so an abandoned lobby entry cannot outlive its
// creator's connection.
func (c *Coordinator) Create(rated, public bool) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID != "" {
		return Session{}, util.ErrPublic("you are already in a duel")
	}

	code := NewSessionCode(c.rng, func(code string) bool {
		var throwaway Session
		return c.conn.Read(PathPrefix+code, &throwaway) == nil
	})

	start := collatz.GenerateStartNumber(c.rng)
	session := Session{
		ID:          code,
		CreatedAt:   time.Now().UTC(),
		StartNumber: start,
		Rated:       rated,
		Public:      public,
		Status:      StatusPending,
		Player1: &PlayerSlot{
			UID:           c.self.UID,
			Name:          c.self.Name,
			CurrentNumber: start,
		},
	}

	if err := c.conn.Create(session.Path(), session); err != nil {
		return Session{}, err
	}

	hook, err := c.conn.OnDisconnectDelete(session.Path())
	if err != nil {
		c.rollbackCreate(session.Path())
		return Session{}, err
	}
	c.pendingHook = hook

	c.sessionID = code
	c.slot = 1
	c.current = start
	c.steps = 0

	if err := c.watchLocked(); err != nil {
		c.resetLocked()
		c.rollbackCreate(session.Path())
		return Session{}, err
	}

	return session, nil
}

func (c *Coordinator) rollbackCreate(path string) {
	if err := c.conn.Delete(path); err != nil && !errors.Is(err, store.ErrAbsent) {
		log.Printf("error: unable to roll back duel creation: %s", err)
	}
}

// Join fills player2 of a pending session and flips it active in a single
// write. All preconditions are re-checked right before the write; a race
// with another joiner is resolved by whoever's write lands first flipping
// the status everyone else rejects on.
func (c *Coordinator) Join(code string) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID != "" {
		return Session{}, util.ErrPublic("you are already in a duel")
	}

	var session Session
	if err := c.conn.Read(PathPrefix+code, &session); err != nil {
		if errors.Is(err, store.ErrAbsent) {
			return Session{}, util.ErrPublic("there is no duel with this code")
		}
		return Session{}, err
	}

	if session.Status != StatusPending || session.Player2 != nil {
		return Session{}, util.ErrPublic("this duel already has two players")
	}
	if session.Player1 == nil {
		return Session{}, util.ErrPublic("this duel has no creator, try another code")
	}
	if session.Player1.UID == c.self.UID {
		return Session{}, util.ErrPublic("you can't duel yourself")
	}

	slot := PlayerSlot{
		UID:           c.self.UID,
		Name:          c.self.Name,
		CurrentNumber: session.StartNumber,
	}
	if err := c.conn.Update(PathPrefix+code, map[string]interface{}{
		"status":  StatusActive,
		"player2": slot,
	}); err != nil {
		return Session{}, err
	}

	session.Status = StatusActive
	session.Player2 = &slot

	c.sessionID = code
	c.slot = 2
	c.current = session.StartNumber
	c.steps = 0

	if err := c.watchLocked(); err != nil {
		c.resetLocked()
		return Session{}, err
	}

	return session, nil
}

func (c *Coordinator) watchLocked() error {
	w, err := c.conn.Watch(c.path())
	if err != nil {
		return err
	}
	c.watcher = w

	go func() {
		for snapshot := range w.Snapshots() {
			c.observe(snapshot)
		}
	}()

	return nil
}

// observe processes one session snapshot. Notifications are at-least-once
// and unordered across writers, so everything in here is guarded or
// idempotent.
func (c *Coordinator) observe(snapshot json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID == "" {
		return // already back in the lobby
	}

	if snapshot == nil {
		// The record vanished under us: cancelled lobby, or the opponent
		// cleaned up a duel we never got to finalize. Either way we must not
		// keep pretending a duel is live.
		if !c.finalized {
			log.Printf("info: duel %s is gone, returning to lobby", c.sessionID)
			c.resetLocked()
		}
		return
	}

	var session Session
	if err := json.Unmarshal(snapshot, &session); err != nil {
		log.Printf("error: unable to decode duel snapshot: %s", err)
		return
	}

	if session.Status == StatusActive {
		c.onActiveLocked(&session)
	}

	if outcome := session.Conclude(); outcome != OutcomeNone {
		c.finalizeLocked(&session, outcome)
	}
}

func (c *Coordinator) onActiveLocked(session *Session) {
	// The forfeit hook goes up exactly once, the first time we see the duel
	// active. The pending-delete hook comes down at the same time: from here
	// on an abrupt disconnect is a forfeit, not a lobby cleanup.
	if c.forfeitHook == nil {
		hook, err := c.conn.OnDisconnectUpdate(c.path(), map[string]interface{}{
			slotKey(c.slot): map[string]interface{}{
				"finished":     true,
				"disconnected": true,
				"forfeit":      true,
			},
		})
		if err != nil {
			log.Printf("error: unable to arm forfeit hook: %s", err)
		} else {
			c.forfeitHook = hook
		}

		if c.pendingHook != nil {
			c.pendingHook.Cancel()
			c.pendingHook = nil
		}
	}

	// Synchronized start: whoever first observes the active session without
	// a start time writes now+offset, once. Both sides then schedule their
	// countdown against the same absolute instant, regardless of write
	// confirmation latency.
	if session.StartAt == nil && !c.wroteStartAt {
		c.wroteStartAt = true
		at := time.Now().Add(startOffset).UTC()
		if err := c.conn.Update(c.path(), map[string]interface{}{"startAt": at}); err != nil {
			log.Printf("error: unable to write synchronized start: %s", err)
		}
	}

	if session.StartAt != nil && !c.startAnnounced {
		c.startAnnounced = true
		select {
		case c.starts <- *session.StartAt:
		default:
		}
	}
}

// finalizeLocked performs the one-time end-of-duel work. The latch goes up
// before anything slow and the watcher goes down with it, so duplicate
// notifications arriving mid-finalization are dropped, never reprocessed.
func (c *Coordinator) finalizeLocked(session *Session, outcome Outcome) {
	if c.finalized {
		return
	}
	c.finalized = true

	if c.watcher != nil {
		c.watcher.Cancel()
		c.watcher = nil
	}

	self := session.slot(c.slot)
	opponent := session.slot(opponentSlot(c.slot))

	result := Result{
		SessionID: session.ID,
		Outcome:   outcome,
		Draw:      outcome == OutcomeDraw,
		Won:       outcome == winnerOutcome(c.slot),
		Forfeited: opponent != nil && opponent.quit(),
	}
	if opponent != nil {
		result.Opponent = opponent.Name
	}

	if session.Rated && self != nil && opponent != nil {
		updated, err := c.ratings.RecordDuelOutcome(c.self.UID, opponent.UID, scoreFor(c.slot, outcome))
		if err != nil {
			log.Printf("error: unable to record duel outcome: %s", err)
		} else {
			result.Rating = &updated
		}
	}

	select {
	case c.results <- result:
	default:
		log.Printf("error: dropping unread duel result for %s", session.ID)
	}
}

func winnerOutcome(slot int) Outcome {
	if slot == 1 {
		return OutcomePlayer1
	}

	return OutcomePlayer2
}

func scoreFor(slot int, outcome Outcome) float64 {
	switch outcome {
	case winnerOutcome(slot):
		return rating.ScoreWin
	case OutcomeDraw:
		return rating.ScoreDraw
	default:
		return rating.ScoreLoss
	}
}

// SubmitAnswer validates and applies one answer for this participant. A
// malformed answer mutates nothing, the caller re-prompts. A wrong answer or
// reaching 1 marks our slot finished.
func (c *Coordinator) SubmitAnswer(submitted string) (collatz.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID == "" {
		return 0, util.ErrPublic("you are not in a duel")
	}
	if c.finalized {
		return 0, util.ErrPublic("this duel is already over")
	}

	verdict := collatz.Validate(c.current, submitted)
	switch verdict {
	case collatz.VerdictInvalid:
		return verdict, nil

	case collatz.VerdictIncorrect:
		err := c.conn.Update(c.path(), map[string]interface{}{
			slotKey(c.slot): map[string]interface{}{"finished": true},
		})
		return verdict, err
	}

	c.current = collatz.Step(c.current)
	c.steps++

	patch := map[string]interface{}{
		"currentNumber": c.current,
		"steps":         c.steps,
	}
	if c.current == 1 {
		patch["finished"] = true
	}

	err := c.conn.Update(c.path(), map[string]interface{}{slotKey(c.slot): patch})

	return verdict, err
}

// ReturnToLobby is the single graceful exit: hooks come down so leaving is
// never misreported as a forfeit, the shared record is dropped, and local
// state resets so the participant can create or join again.
func (c *Coordinator) ReturnToLobby() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID == "" {
		return
	}

	if err := c.conn.Delete(c.path()); err != nil && !errors.Is(err, store.ErrAbsent) {
		log.Printf("error: unable to delete duel record: %s", err)
	}

	c.resetLocked()
}

func (c *Coordinator) resetLocked() {
	if c.watcher != nil {
		c.watcher.Cancel()
		c.watcher = nil
	}
	if c.pendingHook != nil {
		c.pendingHook.Cancel()
		c.pendingHook = nil
	}
	if c.forfeitHook != nil {
		c.forfeitHook.Cancel()
		c.forfeitHook = nil
	}

	c.sessionID = ""
	c.slot = 0
	c.current = 0
	c.steps = 0
	c.wroteStartAt = false
	c.startAnnounced = false
	c.finalized = false
}
