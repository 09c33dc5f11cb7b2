package fuzzy

import (
	"slices"
	"strings"

	"github.com/dshills/scriptnav/internal/cancel"
)

// Item is a candidate.
type Item struct {
	// Text is the string matched against.
	Text string

	// Data is carried through to the result untouched.
	Data any
}

// Result is a scored match.
type Result struct {
	Item  Item
	Score int

	// Matches holds the rune indices of the matched characters.
	Matches []int
}

// Outcome is the result of a cancellable match.
type Outcome struct {
	// Results holds the ranked matches. It is nil when Cancelled is set.
	Results []Result

	// Cancelled reports that the match stopped early on request.
	Cancelled bool

	// Scanned is the number of candidates examined.
	Scanned int
}

// Options configures a Matcher.
type Options struct {
	// MinScore excludes matches scoring at or below it.
	MinScore int

	// CaseSensitive disables case folding.
	CaseSensitive bool

	// PollEvery is the number of candidates scored between cancellation
	// checks.
	PollEvery int
}

// DefaultOptions returns the default matcher options.
func DefaultOptions() Options {
	return Options{PollEvery: 256}
}

// Matcher ranks candidates against queries. It is safe for concurrent use.
type Matcher struct {
	scorer  Scorer
	options Options
}

// NewMatcher creates a matcher. A nil scorer uses DefaultWeights.
func NewMatcher(opts Options, scorer Scorer) *Matcher {
	if scorer == nil {
		scorer = DefaultWeights()
	}
	if opts.PollEvery < 1 {
		opts.PollEvery = DefaultOptions().PollEvery
	}
	return &Matcher{scorer: scorer, options: opts}
}

// Match ranks items against query, best first, and returns at most limit
// results (all when limit <= 0). The token is polled every PollEvery items;
// a nil token is never cancelled.
func (m *Matcher) Match(tok *cancel.Token, query string, items []Item, limit int) Outcome {
	query = strings.TrimSpace(m.fold(query))
	poll := tok.Poller(m.options.PollEvery)

	if query == "" {
		if tok.IsCancellationRequested() {
			return Outcome{Cancelled: true}
		}
		n := len(items)
		if limit > 0 {
			n = min(n, limit)
		}
		results := make([]Result, n)
		for i := range results {
			results[i] = Result{Item: items[i]}
		}
		return Outcome{Results: results, Scanned: n}
	}

	q := []rune(query)
	var results []Result
	scanned := 0
	for _, item := range items {
		if poll.Tick() {
			return Outcome{Cancelled: true, Scanned: scanned}
		}
		scanned++
		if score, matches := m.score(q, item.Text); score > m.options.MinScore {
			results = append(results, Result{Item: item, Score: score, Matches: matches})
		}
	}
	if tok.IsCancellationRequested() {
		return Outcome{Cancelled: true, Scanned: scanned}
	}

	slices.SortFunc(results, func(a, b Result) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return strings.Compare(a.Item.Text, b.Item.Text)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []Result{}
	}
	return Outcome{Results: results, Scanned: scanned}
}

// Score scores a single candidate, returning 0 when it does not match.
func (m *Matcher) Score(query, text string) int {
	score, _ := m.score([]rune(strings.TrimSpace(m.fold(query))), text)
	return score
}

func (m *Matcher) fold(s string) string {
	if m.options.CaseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// score greedily matches q as a subsequence of text, left to right.
func (m *Matcher) score(q []rune, text string) (int, []int) {
	if text == "" || len(q) == 0 {
		return 0, nil
	}

	original := []rune(text)
	folded := []rune(m.fold(text))
	if len(folded) != len(original) {
		// Case folding changed the rune count; match on the original.
		folded = original
	}

	matches := make([]int, 0, len(q))
	for i := 0; i < len(folded) && len(matches) < len(q); i++ {
		if folded[i] == q[len(matches)] {
			matches = append(matches, i)
		}
	}
	if len(matches) != len(q) {
		return 0, nil
	}
	return m.scorer.Score(q, original, folded, matches), matches
}
