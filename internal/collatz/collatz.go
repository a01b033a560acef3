// Package collatz computes and validates Collatz ("hailstone") sequences.
package collatz

import (
	"math/rand"
	"strconv"
	"strings"
)

// Step returns the single valid successor of n in its Collatz sequence.
func Step(n int) int {
	if n%2 == 0 {
		return n / 2
	}

	return 3*n + 1
}

// TotalSteps counts how many Step applications it takes for n to reach 1.
// Termination is the Collatz conjecture, safe for any start number we can
// actually hand out.
func TotalSteps(n int) int {
	steps := 0
	for n > 1 {
		n = Step(n)
		steps++
	}

	return steps
}

type Verdict int

const (
	VerdictCorrect Verdict = iota
	VerdictIncorrect
	VerdictInvalid // not a number at all, no penalty
)

// Validate compares a raw submitted answer against the successor of current.
// Malformed input is VerdictInvalid and must not count as a wrong answer.
func Validate(current int, submitted string) Verdict {
	answer, err := strconv.Atoi(strings.TrimSpace(submitted))
	if err != nil {
		return VerdictInvalid
	}

	if answer != Step(current) {
		return VerdictIncorrect
	}

	return VerdictCorrect
}

const (
	startNumberMin = 10
	startNumberMax = 109

	startDepthMin = 5
	startDepthMax = 20
)

// GenerateStartNumber picks a duel start number whose sequence depth lies in
// [5, 20], by rejection sampling over [10, 109]. The range is dense enough
// that the loop terminates in a handful of draws.
func GenerateStartNumber(rng *rand.Rand) int {
	for {
		n := startNumberMin + rng.Intn(startNumberMax-startNumberMin+1)
		if depth := TotalSteps(n); depth >= startDepthMin && depth <= startDepthMax {
			return n
		}
	}
}
