package duel

import (
	"math/rand"
	"strings"
	"testing"
)

func TestNewSessionCode(t *testing.T) {
	rng := rand.New(rand.NewSource(1)) // nolint:gosec

	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		code := NewSessionCode(rng, func(code string) bool { return seen[code] })
		if seen[code] {
			t.Fatalf("code %s handed out twice", code)
		}
		seen[code] = true

		if len(code) != codeLength {
			t.Fatalf("expected %d characters, got %q", codeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q, not in the alphabet", code, r)
			}
		}
	}
}

func TestNewSessionCodeFallsBackToLongerCode(t *testing.T) {
	rng := rand.New(rand.NewSource(1)) // nolint:gosec

	code := NewSessionCode(rng, func(string) bool { return true })
	if len(code) != codeLength+1 {
		t.Errorf("expected a %d character fallback code, got %q", codeLength+1, code)
	}
}
