package rating

import (
	"math"
	"testing"
)

// Worked example from the Glicko-2 paper, §4, collapsed to the first of the
// three opponents. We only check coarse direction here, the full worked
// example assumes a three-game period which we deliberately don't support.
func TestUpdateMovesTowardResult(t *testing.T) {
	self := Rating{Rating: 1500, Deviation: 200, Volatility: 0.06}
	opponent := Rating{Rating: 1400, Deviation: 30, Volatility: 0.06}

	won := self.Update(opponent, ScoreWin)
	if won.Rating <= self.Rating {
		t.Errorf("rating should increase after a win, got %f", won.Rating)
	}

	lost := self.Update(opponent, ScoreLoss)
	if lost.Rating >= self.Rating {
		t.Errorf("rating should decrease after a loss, got %f", lost.Rating)
	}

	if won.Deviation >= self.Deviation {
		t.Errorf("deviation should shrink after a game, got %f", won.Deviation)
	}
}

func TestUpdateIsDeterministic(t *testing.T) {
	self := Rating{Rating: 1723.4, Deviation: 91.2, Volatility: 0.059}
	opponent := Rating{Rating: 1456.1, Deviation: 133.7, Volatility: 0.061}

	first := self.Update(opponent, ScoreWin)
	for i := 0; i < 100; i++ {
		if again := self.Update(opponent, ScoreWin); again != first {
			t.Fatalf("update #%d diverged: %+v != %+v", i, again, first)
		}
	}
}

func TestUpdateSymmetry(t *testing.T) {
	a := Default()
	b := Default()

	newA := a.Update(b, ScoreWin)
	newB := b.Update(a, ScoreLoss)

	if !(newA.Rating > a.Rating) {
		t.Errorf("winner should strictly gain rating, got %f", newA.Rating)
	}
	if !(newB.Rating < b.Rating) {
		t.Errorf("loser should strictly lose rating, got %f", newB.Rating)
	}

	// Equal starting points make the exchange symmetric around the base.
	if diff := (newA.Rating - DefaultRating) + (newB.Rating - DefaultRating); math.Abs(diff) > 1e-9 {
		t.Errorf("expected symmetric rating exchange, residual %g", diff)
	}
}

func TestDrawNeutrality(t *testing.T) {
	a := Default()
	b := Default()

	newA := a.Update(b, ScoreDraw)
	newB := b.Update(a, ScoreDraw)

	if math.Abs(newA.Rating-DefaultRating) > 1e-9 {
		t.Errorf("draw between equals should not move the rating, got %f", newA.Rating)
	}
	if math.Abs(newA.Rating-newB.Rating) > 1e-9 {
		t.Errorf("draw between equals should stay symmetric: %f != %f", newA.Rating, newB.Rating)
	}
	if newA.Deviation >= a.Deviation {
		t.Errorf("a played game should still shrink deviation, got %f", newA.Deviation)
	}
}

func TestBoundsHoldOverManyUpdates(t *testing.T) {
	self := Default()
	opponent := Rating{Rating: 2200, Deviation: 40, Volatility: 0.06}

	score := ScoreWin
	for i := 0; i < 500; i++ {
		self = self.Update(opponent, score)

		if self.Deviation > MaxDeviation {
			t.Fatalf("deviation exceeded %f at update %d: %f", MaxDeviation, i, self.Deviation)
		}
		if self.Volatility < MinVolatility {
			t.Fatalf("volatility dropped below %f at update %d: %f", MinVolatility, i, self.Volatility)
		}
		if math.IsNaN(self.Rating) || math.IsInf(self.Rating, 0) {
			t.Fatalf("rating degenerated at update %d: %f", i, self.Rating)
		}

		// Alternate wildly to stress the volatility solver.
		if score == ScoreWin {
			score = ScoreLoss
		} else {
			score = ScoreWin
		}
	}
}

func TestClass(t *testing.T) {
	for _, v := range []struct {
		deviation float64
		class     Class
	}{
		{350, ClassProvisional},
		{111, ClassProvisional},
		{110, ClassEstablishing},
		{86, ClassEstablishing},
		{85, ClassStable},
		{50, ClassStable},
	} {
		r := Rating{Rating: DefaultRating, Deviation: v.deviation, Volatility: DefaultVolatility}
		if got := r.Class(); got != v.class {
			t.Errorf("Class() with deviation %f = %d, expected %d", v.deviation, got, v.class)
		}
	}
}
