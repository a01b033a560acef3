package duel

import "testing"

func slotAt(number int, steps uint, finished bool) *PlayerSlot {
	return &PlayerSlot{CurrentNumber: number, Steps: steps, Finished: finished}
}

func TestConclude(t *testing.T) {
	forfeited := &PlayerSlot{CurrentNumber: 40, Steps: 3, Finished: true, Disconnected: true, Forfeit: true}

	for _, v := range []struct {
		name     string
		p1, p2   *PlayerSlot
		expected Outcome
	}{
		{"no opponent yet", slotAt(27, 0, false), nil, OutcomeNone},
		{"nobody finished", slotAt(41, 1, false), slotAt(82, 2, false), OutcomeNone},
		{"opponent disconnected mid-run", slotAt(1, 6, true), forfeited, OutcomePlayer1},
		{"disconnect loses even against an error", slotAt(9, 4, true), forfeited, OutcomePlayer1},
		{"both dropped", forfeited, forfeited, OutcomeDraw},
		{"reached one beats still playing", slotAt(1, 6, true), slotAt(10, 3, false), OutcomePlayer1},
		{"reached one beats an error", slotAt(20, 5, true), slotAt(1, 9, true), OutcomePlayer2},
		{"both at one, fewer steps wins", slotAt(1, 8, true), slotAt(1, 10, true), OutcomePlayer1},
		{"both at one, equal steps is a draw", slotAt(1, 7, true), slotAt(1, 7, true), OutcomeDraw},
		{"error loses to the survivor", slotAt(13, 4, true), slotAt(40, 4, false), OutcomePlayer2},
		{"both erred, more steps wins", slotAt(13, 5, true), slotAt(26, 3, true), OutcomePlayer1},
		{"both erred, equal steps is a draw", slotAt(13, 4, true), slotAt(26, 4, true), OutcomeDraw},
	} {
		v := v
		t.Run(v.name, func(t *testing.T) {
			s := Session{ID: "TEST42", StartNumber: 27, Status: StatusActive, Player1: v.p1, Player2: v.p2}
			if got := s.Conclude(); got != v.expected {
				t.Errorf("Conclude() = %d, expected %d", got, v.expected)
			}
		})
	}
}

func TestConcludeIsSymmetricallyDeterministic(t *testing.T) {
	// Both coordinators run Conclude on the same record, run it a few times
	// to make sure nothing depends on evaluation order or hidden state.
	s := Session{
		ID:          "TEST42",
		StartNumber: 27,
		Status:      StatusActive,
		Player1:     slotAt(1, 8, true),
		Player2:     slotAt(1, 10, true),
	}

	first := s.Conclude()
	for i := 0; i < 50; i++ {
		if got := s.Conclude(); got != first {
			t.Fatalf("Conclude() flapped from %d to %d", first, got)
		}
	}
}
