// Package duel holds the shared duel session record and the per-participant
// coordinator that drives it through the shared-state store.
package duel

import "time"

const (
	// PathPrefix is where duel records live in the shared store.
	PathPrefix = "duels/"

	// How far in the future the synchronized start is scheduled once both
	// participants are in.
	startOffset = 4 * time.Second
)

type Status string

const (
	StatusPending Status = "pending" // waiting for an opponent
	StatusActive  Status = "active"  // both slots filled, duel running
)

// PlayerSlot is one participant's live progress. Each participant only ever
// mutates its own slot.
type PlayerSlot struct {
	UID           string `json:"uid"`
	Name          string `json:"name"`
	CurrentNumber int    `json:"currentNumber"`
	Steps         uint   `json:"steps"`
	Finished      bool   `json:"finished"`
	Disconnected  bool   `json:"disconnected"`
	Forfeit       bool   `json:"forfeit"`
}

func (p *PlayerSlot) quit() bool {
	return p.Forfeit || p.Disconnected
}

func (p *PlayerSlot) reachedOne() bool {
	return p.Finished && p.CurrentNumber == 1
}

// Session is the authoritative shared record of one duel. There is no
// explicit finished status: a session is terminal once a slot finishes, and
// absent once a participant cleaned it up.
type Session struct {
	ID          string      `json:"id"`
	CreatedAt   time.Time   `json:"createdAt"`
	StartNumber int         `json:"startNumber"`
	Rated       bool        `json:"rated"`
	Public      bool        `json:"public"`
	Status      Status      `json:"status"`
	StartAt     *time.Time  `json:"startAt,omitempty"`
	Player1     *PlayerSlot `json:"player1,omitempty"`
	Player2     *PlayerSlot `json:"player2,omitempty"`
}

func (s *Session) Path() string {
	return PathPrefix + s.ID
}

func (s *Session) slot(n int) *PlayerSlot {
	if n == 1 {
		return s.Player1
	}

	return s.Player2
}

func opponentSlot(n int) int {
	return 3 - n
}

func slotKey(n int) string {
	if n == 1 {
		return "player1"
	}

	return "player2"
}

type Outcome int

const (
	OutcomeNone Outcome = iota // not terminal yet
	OutcomePlayer1
	OutcomePlayer2
	OutcomeDraw
)

// Conclude determines the winner from the shared record alone, both
// coordinators run it independently and must agree.
//
// Priority order: a forfeiting/disconnected player loses outright; reaching
// 1 beats not reaching it; both at 1 is decided by fewer steps; a player who
// erred out loses to one still playing; both erred out is decided by more
// correct steps before the error. Equal steps on either comparison is a
// draw.
func (s *Session) Conclude() Outcome {
	p1, p2 := s.Player1, s.Player2
	if p1 == nil || p2 == nil {
		return OutcomeNone
	}
	if !p1.Finished && !p2.Finished {
		return OutcomeNone
	}

	switch {
	case p1.quit() && p2.quit():
		return OutcomeDraw
	case p1.quit():
		return OutcomePlayer2
	case p2.quit():
		return OutcomePlayer1
	}

	switch {
	case p1.reachedOne() && p2.reachedOne():
		switch {
		case p1.Steps < p2.Steps:
			return OutcomePlayer1
		case p2.Steps < p1.Steps:
			return OutcomePlayer2
		default:
			return OutcomeDraw
		}
	case p1.reachedOne():
		return OutcomePlayer1
	case p2.reachedOne():
		return OutcomePlayer2
	}

	// Nobody reached 1, at least one answered wrong.
	switch {
	case p1.Finished && p2.Finished:
		switch {
		case p1.Steps > p2.Steps:
			return OutcomePlayer1
		case p2.Steps > p1.Steps:
			return OutcomePlayer2
		default:
			return OutcomeDraw
		}
	case p1.Finished:
		return OutcomePlayer2
	default:
		return OutcomePlayer1
	}
}
