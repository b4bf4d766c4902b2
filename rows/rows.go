// Package rows generates the random-digit payload returned by the server.
package rows

import (
	"math/rand/v2"
	"strings"
)

const (
	// Lines is the number of rows in a default payload.
	Lines = 10
	// Width is the number of digits per row.
	Width = 8
)

// Generate returns Lines rows of Width random decimal digits, joined by
// newlines without a trailing newline. Safe for concurrent use.
func Generate() []byte {
	return GenerateN(Lines, Width)
}

// GenerateN is Generate with an explicit shape. Non-positive arguments yield
// an empty payload.
func GenerateN(lines, width int) []byte {
	if lines <= 0 || width <= 0 {
		return []byte{}
	}
	var b strings.Builder
	b.Grow(lines*(width+1) - 1)
	for i := 0; i < lines; i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j := 0; j < width; j++ {
			b.WriteByte(byte('0' + rand.IntN(10)))
		}
	}
	return []byte(b.String())
}
