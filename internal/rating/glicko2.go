// Package rating implements the Glicko-2 rating system for immediate,
// single-opponent updates: every duel closes its own rating period so both
// participants see their new rating right after the finish.
package rating

import (
	"log"
	"math"
)

const (
	// Conversion factor between the public Glicko scale and the internal
	// Glicko-2 scale.
	scale = 173.7178

	// System constant, constrains volatility changes over time.
	tau = 0.5

	// Convergence tolerance of the volatility solver.
	epsilon = 1e-6

	// Hard cap on solver iterations, a stalled root-find must never block
	// result display.
	maxIterations = 1000
)

const (
	DefaultRating     = 1500.0
	DefaultDeviation  = 350.0
	DefaultVolatility = 0.06

	MaxDeviation  = 350.0
	MinVolatility = 0.0001
)

const (
	ScoreLoss = 0.0
	ScoreDraw = 0.5
	ScoreWin  = 1.0
)

type Rating struct {
	Rating     float64
	Deviation  float64
	Volatility float64
}

func Default() Rating {
	return Rating{
		Rating:     DefaultRating,
		Deviation:  DefaultDeviation,
		Volatility: DefaultVolatility,
	}
}

type Class int

const (
	ClassProvisional Class = iota
	ClassEstablishing
	ClassStable
)

func (c Class) String() string {
	switch c {
	case ClassProvisional:
		return "provisional"
	case ClassEstablishing:
		return "establishing"
	default:
		return "stable"
	}
}

// Class buckets a rating by how much we trust it, the thresholds match what
// the leaderboard uses to hide provisional players.
func (r Rating) Class() Class {
	switch {
	case r.Deviation > 110:
		return ClassProvisional
	case r.Deviation > 85:
		return ClassEstablishing
	default:
		return ClassStable
	}
}

// Update returns the rating of r after a single game against opponent with
// the given score (ScoreLoss, ScoreDraw, or ScoreWin). It is a pure function,
// identical inputs yield bit-identical outputs.
func (r Rating) Update(opponent Rating, score float64) Rating {
	mu := (r.Rating - DefaultRating) / scale
	phi := r.Deviation / scale
	muJ := (opponent.Rating - DefaultRating) / scale
	phiJ := opponent.Deviation / scale

	g := 1 / math.Sqrt(1+3*phiJ*phiJ/(math.Pi*math.Pi))
	e := 1 / (1 + math.Exp(-g*(mu-muJ)))
	v := 1 / (g * g * e * (1 - e))
	delta := v * g * (score - e)

	sigma := solveVolatility(delta, phi, v, r.Volatility)

	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	phiPrime := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muPrime := mu + phiPrime*phiPrime*g*(score-e)

	return Rating{
		Rating:     muPrime*scale + DefaultRating,
		Deviation:  math.Min(phiPrime*scale, MaxDeviation),
		Volatility: math.Max(sigma, MinVolatility),
	}
}

// solveVolatility finds the new volatility σ' with the Illinois variant of
// regula falsi, per step 5 of the Glicko-2 paper. If either the bracketing
// or the refinement loop hits maxIterations the previous volatility is
// returned unchanged instead of looping forever.
func solveVolatility(delta, phi, v, sigma float64) float64 {
	a := math.Log(sigma * sigma)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (delta*delta - phi*phi - v - ex)
		den := 2 * (phi*phi + v + ex) * (phi*phi + v + ex)

		return num/den - (x-a)/(tau*tau)
	}

	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		B = a - tau
		for i := 0; f(B) < 0; i++ {
			if i >= maxIterations {
				log.Printf("warning: volatility bracketing exceeded %d iterations, keeping σ=%g", maxIterations, sigma)
				return sigma
			}

			B -= tau
		}
	}

	fA, fB := f(A), f(B)
	for i := 0; math.Abs(B-A) > epsilon; i++ {
		if i >= maxIterations {
			log.Printf("warning: volatility solver exceeded %d iterations, keeping σ=%g", maxIterations, sigma)
			return sigma
		}

		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)

		if fC*fB < 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}

		B, fB = C, fC
	}

	return math.Exp(A / 2)
}
