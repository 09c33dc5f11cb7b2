package fuzzy

import "unicode"

// Scorer calculates match scores. Higher is better; any match scores at
// least 1.
type Scorer interface {
	// Score rates a match. original keeps the candidate's case, folded is
	// the normalized candidate, and matches holds the rune indices of the
	// matched query runes in folded.
	Score(query, original, folded []rune, matches []int) int
}

// Weights is a Scorer with tunable weights.
type Weights struct {
	// Base is the starting score of any match.
	Base int

	// Consecutive is added for every match directly after the previous one.
	Consecutive int

	// Boundary is added for every match that starts a word.
	Boundary int

	// Leading is added when the first rune matches.
	Leading int

	// ExactPrefix is added when the query is a prefix of the candidate.
	ExactPrefix int

	// Exact is added when the query equals the candidate.
	Exact int

	// Gap is subtracted for every unmatched rune between the first and last
	// match.
	Gap int

	// Offset is subtracted for every rune before the first match.
	Offset int

	// ShortBelow rewards candidates shorter than this many runes.
	ShortBelow int
}

// DefaultWeights returns weights tuned for identifiers.
func DefaultWeights() Weights {
	return Weights{
		Base:        100,
		Consecutive: 20,
		Boundary:    15,
		Leading:     25,
		ExactPrefix: 50,
		Exact:       100,
		Gap:         2,
		Offset:      1,
		ShortBelow:  20,
	}
}

// Score implements Scorer.
func (w Weights) Score(query, original, folded []rune, matches []int) int {
	if len(matches) == 0 {
		return 0
	}

	score := w.Base
	for i, idx := range matches {
		if i > 0 && idx == matches[i-1]+1 {
			score += w.Consecutive
		}
		if startsWord(original, idx) {
			score += w.Boundary
		}
	}

	first, last := matches[0], matches[len(matches)-1]
	if first == 0 {
		score += w.Leading
	}
	if gap := last - first + 1 - len(matches); gap > 0 {
		score -= gap * w.Gap
	}
	score -= first * w.Offset

	if n := len(folded); n < w.ShortBelow {
		score += w.ShortBelow - n
	}
	if hasPrefix(folded, query) {
		score += w.ExactPrefix
		if len(folded) == len(query) {
			score += w.Exact
		}
	}

	return max(score, 1)
}

func hasPrefix(s, prefix []rune) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if s[i] != r {
			return false
		}
	}
	return true
}

// startsWord reports whether the rune at idx begins a word: the first rune,
// a rune after a separator, a capital after a lowercase letter, or a digit
// run after a letter.
func startsWord(runes []rune, idx int) bool {
	if idx == 0 {
		return true
	}
	if idx >= len(runes) {
		return false
	}

	prev, cur := runes[idx-1], runes[idx]
	switch {
	case prev == '_' || prev == '$' || unicode.IsSpace(prev) || unicode.IsPunct(prev):
		return true
	case unicode.IsLower(prev) && unicode.IsUpper(cur):
		return true
	case unicode.IsLetter(prev) && unicode.IsDigit(cur):
		return true
	}
	return false
}
