package normalize

import (
	"strings"
)

// NameSimilarity decides whether two display names plausibly refer to
// the same person. Similar is the yes/no rule; Score orders
// candidates when several pass it (1 = identical, 0 = unrelated).
type NameSimilarity interface {
	Similar(a, b string) bool
	Score(a, b string) float64
}

// TokenOverlap is the reference implementation: substring match on the
// whitespace-collapsed forms, or token-intersection of at least
// min(tokenCount)-1 when the shorter name has 3+ tokens (full overlap
// otherwise).
type TokenOverlap struct{}

func (TokenOverlap) Similar(a, b string) bool {
	na, nb := Words(a), Words(b)
	if na == "" || nb == "" {
		return false
	}

	ca := strings.ReplaceAll(na, " ", "")
	cb := strings.ReplaceAll(nb, " ", "")
	if strings.Contains(ca, cb) || strings.Contains(cb, ca) {
		return true
	}

	ta, tb := strings.Fields(na), strings.Fields(nb)
	need := len(ta)
	if len(tb) < need {
		need = len(tb)
	}
	if need >= 3 {
		need--
	}
	return intersection(ta, tb) >= need
}

func (TokenOverlap) Score(a, b string) float64 {
	na, nb := Words(a), Words(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	ca := strings.ReplaceAll(na, " ", "")
	cb := strings.ReplaceAll(nb, " ", "")
	if ca == cb {
		return 1
	}
	if strings.Contains(ca, cb) || strings.Contains(cb, ca) {
		return 0.9
	}

	ta, tb := strings.Fields(na), strings.Fields(nb)
	longer := len(ta)
	if len(tb) > longer {
		longer = len(tb)
	}
	return float64(intersection(ta, tb)) / float64(longer)
}

func intersection(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	n := 0
	for _, t := range b {
		if set[t] {
			n++
			set[t] = false
		}
	}
	return n
}
