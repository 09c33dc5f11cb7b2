package fuzzy

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scriptnav/internal/cancel"
)

func items(names ...string) []Item {
	out := make([]Item, len(names))
	for i, n := range names {
		out[i] = Item{Text: n, Data: i}
	}
	return out
}

func texts(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Item.Text
	}
	return out
}

func TestMatchSubsequence(t *testing.T) {
	m := NewMatcher(DefaultOptions(), nil)
	out := m.Match(nil, "gcr", items("getChangeRange", "gather", "GetCharRange", "reload"), 0)
	require.False(t, out.Cancelled)
	assert.ElementsMatch(t, []string{"getChangeRange", "GetCharRange"}, texts(out.Results))
	assert.Equal(t, 4, out.Scanned)
}

func TestMatchRanking(t *testing.T) {
	m := NewMatcher(DefaultOptions(), nil)
	out := m.Match(nil, "edit", items("credit_limit", "editToEnd", "edit", "reEdit"), 0)
	require.NotEmpty(t, out.Results)
	assert.Equal(t, "edit", out.Results[0].Item.Text)
	assert.Equal(t, "editToEnd", out.Results[1].Item.Text)
}

func TestMatchCaseSensitive(t *testing.T) {
	m := NewMatcher(Options{CaseSensitive: true}, nil)
	out := m.Match(nil, "Load", items("load", "Load", "reLoad"), 0)
	assert.ElementsMatch(t, []string{"Load", "reLoad"}, texts(out.Results))
}

func TestMatchLimit(t *testing.T) {
	m := NewMatcher(DefaultOptions(), nil)
	out := m.Match(nil, "a", items("a1", "a2", "a3", "a4"), 2)
	assert.Len(t, out.Results, 2)

	out = m.Match(nil, "", items("x", "y", "z"), 2)
	assert.Equal(t, []string{"x", "y"}, texts(out.Results))
}

func TestMatchNoResultsIsNotCancelled(t *testing.T) {
	m := NewMatcher(DefaultOptions(), nil)
	out := m.Match(nil, "zzz", items("abc"), 0)
	assert.False(t, out.Cancelled)
	assert.NotNil(t, out.Results)
	assert.Empty(t, out.Results)
}

func TestMatchCancelled(t *testing.T) {
	many := make([]Item, 10000)
	for i := range many {
		many[i] = Item{Text: fmt.Sprintf("symbol%d", i)}
	}

	tok := cancel.NewToken(context.Background())
	tok.Cancel()

	m := NewMatcher(Options{PollEvery: 100}, nil)
	out := m.Match(tok, "sym", many, 0)
	assert.True(t, out.Cancelled)
	assert.Nil(t, out.Results)
	assert.Equal(t, 99, out.Scanned)
}

// cancellingScorer requests cancellation after a number of scored items.
type cancellingScorer struct {
	tok   *cancel.Token
	after int
	n     int
}

func (c *cancellingScorer) Score(q, o, f []rune, m []int) int {
	c.n++
	if c.n == c.after {
		c.tok.Cancel()
	}
	return DefaultWeights().Score(q, o, f, m)
}

func TestMatchCancelledMidway(t *testing.T) {
	tok := cancel.NewToken(context.Background())
	scorer := &cancellingScorer{tok: tok, after: 150}
	m := NewMatcher(Options{PollEvery: 64}, scorer)

	names := make([]string, 1000)
	for i := range names {
		names[i] = fmt.Sprintf("item%d", i)
	}
	out := m.Match(tok, "item", items(names...), 0)
	assert.True(t, out.Cancelled)
	assert.Less(t, out.Scanned, 1000)
	assert.GreaterOrEqual(t, out.Scanned, 150)
}

func TestMatchCancelledAtEnd(t *testing.T) {
	tok := cancel.NewToken(context.Background())
	scorer := &cancellingScorer{tok: tok, after: 3}
	m := NewMatcher(Options{PollEvery: 100}, scorer)

	out := m.Match(tok, "a", items("a", "ab", "abc"), 0)
	assert.True(t, out.Cancelled)
}

func TestScoreBoundaries(t *testing.T) {
	w := DefaultWeights()
	m := NewMatcher(DefaultOptions(), w)

	camel := m.Score("cr", "changeRange")
	flat := m.Score("cr", "chargerr")
	assert.Greater(t, camel, flat)

	snake := m.Score("cr", "change_range")
	assert.Greater(t, snake, flat)

	assert.Zero(t, m.Score("xyz", "abc"))
	assert.Equal(t, 1, m.Score("az", "a"+strings.Repeat("-", 200)+"z"))
}

func TestStartsWord(t *testing.T) {
	r := []rune("getChange_range2x")
	tests := []struct {
		idx  int
		want bool
	}{
		{0, true},
		{1, false},
		{3, true},
		{10, true},
		{15, true},
		{16, false},
		{17, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, startsWord(r, tt.idx), "index %d", tt.idx)
	}
}
