package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenOverlap_Similar(t *testing.T) {
	sim := TokenOverlap{}

	tests := []struct {
		a, b string
		want bool
	}{
		{"Nguyen Van A", "Nguyễn Văn A", true},  // diacritics only
		{"Nguyen Van A", "Nguyen Van A 2", true}, // substring
		{"Nguyen Van A", "Nguyen Thi A", true},   // 2 of 3 tokens shared
		{"Nguyen Van A", "Tran Thi B", false},
		{"Van A", "Van B", false}, // short names need full overlap
		{"Van A", "Van A", true},
		{"", "Nguyen Van A", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sim.Similar(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestTokenOverlap_ScoreOrdersCandidates(t *testing.T) {
	sim := TokenOverlap{}

	exact := sim.Score("Nguyen Van A", "Nguyễn Văn A")
	partial := sim.Score("Nguyen Van A", "Nguyen Thi A")
	unrelated := sim.Score("Nguyen Van A", "Tran Thi B")

	assert.Equal(t, 1.0, exact)
	assert.Greater(t, exact, partial)
	assert.Greater(t, partial, unrelated)
	assert.Equal(t, 0.0, unrelated)
}
