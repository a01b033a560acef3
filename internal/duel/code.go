package duel

import "math/rand"

// Session codes are typed and read aloud by players, the alphabet leaves out
// every glyph pair people confuse (0/O, 1/I/L).
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	codeLength      = 6
	codeMaxAttempts = 32
)

// NewSessionCode draws a short code that is not currently live, per the
// given predicate. After codeMaxAttempts collisions it falls back to a
// longer code rather than spinning.
func NewSessionCode(rng *rand.Rand, taken func(code string) bool) string {
	for i := 0; i < codeMaxAttempts; i++ {
		code := randomCode(rng, codeLength)
		if !taken(code) {
			return code
		}
	}

	return randomCode(rng, codeLength+1)
}

func randomCode(rng *rand.Rand, length int) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = codeAlphabet[rng.Intn(len(codeAlphabet))]
	}

	return string(buf)
}
