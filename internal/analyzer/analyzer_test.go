package analyzer

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scriptnav/internal/engine/versioncache"
)

const sample = "function add(a, b) {\n  return a + b;\n}\nlet total = add(1, 2);\n"

func TestScanLine(t *testing.T) {
	tests := []struct {
		line string
		want []Token
	}{
		{
			line: "function foo(bar) { return bar; }\n",
			want: []Token{{"foo", 9, KindFunction}, {"bar", 13, ""}, {"bar", 27, ""}},
		},
		{
			line: "let x = 'y z' // trailing\n",
			want: []Token{{"x", 4, KindVariable}},
		},
		{
			line: "const a=1, b",
			want: []Token{{"a", 6, KindVariable}, {"b", 11, ""}},
		},
		{
			line: "function* gen() {}",
			want: []Token{{"gen", 10, KindFunction}},
		},
		{
			line: "# comment only",
			want: nil,
		},
		{
			line: `x = "unterminated`,
			want: []Token{{"x", 0, ""}},
		},
		{
			line: `s = "esc\"aped" + y2`,
			want: []Token{{"s", 0, ""}, {"y2", 18, ""}},
		},
		{
			line: "class Point extends Base {",
			want: []Token{{"Point", 6, KindClass}, {"Base", 20, ""}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, scanLine(tt.line))
		})
	}
}

func TestIdentAt(t *testing.T) {
	line := "foo(bar_1) + 9"
	tests := []struct {
		col        int
		start, end int
		ok         bool
	}{
		{0, 0, 3, true},
		{3, 0, 3, true},
		{5, 4, 9, true},
		{9, 4, 9, true},
		{11, 0, 0, false},
		{14, 0, 0, false},
	}
	for _, tt := range tests {
		s, e, ok := identAt(line, tt.col)
		assert.Equal(t, tt.ok, ok, "col %d", tt.col)
		if tt.ok {
			assert.Equal(t, tt.start, s, "col %d", tt.col)
			assert.Equal(t, tt.end, e, "col %d", tt.col)
		}
	}
}

func TestDefinition(t *testing.T) {
	a := NewLexical(nil)
	snap := versioncache.New(sample).Latest()

	offset := strings.Index(sample, "add(1")
	loc, ok, err := a.Definition("calc.js", snap, offset+1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Location{File: "calc.js", Start: 9, End: 12, Line: 1, Column: 9}, loc)

	_, ok, err = a.Definition("calc.js", snap, strings.Index(sample, "return"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = a.Definition("calc.js", snap, len(sample)+1)
	assert.ErrorIs(t, err, versioncache.ErrOffsetOutOfRange)
}

func TestDefinitionFallsBackToFirstOccurrence(t *testing.T) {
	a := NewLexical(nil)
	snap := versioncache.New("print(x)\nx = 2\n").Latest()
	loc, ok, err := a.Definition("f.py", snap, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 6, loc.Start)
	assert.Equal(t, 1, loc.Line)
}

func TestQuickInfo(t *testing.T) {
	a := NewLexical(nil)
	snap := versioncache.New(sample).Latest()

	info, ok, err := a.QuickInfo("calc.js", snap, strings.Index(sample, "add(1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Info{Name: "add", Kind: KindFunction, Occurrences: 2, LineText: "function add(a, b) {"}, info)

	info, ok, err = a.QuickInfo("calc.js", snap, strings.Index(sample, "a + b"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindName, info.Kind)
	assert.Equal(t, 2, info.Occurrences)
	assert.Equal(t, "return a + b;", info.LineText)
}

func TestCompletions(t *testing.T) {
	a := NewLexical(nil)
	text := "let total = 1;\nlet tomato = 2;\nto"
	snap := versioncache.New(text).Latest()

	got, err := a.Completions("c.js", snap, len(text))
	require.NoError(t, err)
	assert.Equal(t, []Completion{
		{Name: "tomato", Kind: KindVariable},
		{Name: "total", Kind: KindVariable},
	}, got)
}

func TestCompletionsIncludeKeywords(t *testing.T) {
	a := NewLexical(nil)
	text := "let retry = 1;\nre"
	snap := versioncache.New(text).Latest()

	got, err := a.Completions("c.js", snap, len(text))
	require.NoError(t, err)
	assert.Equal(t, []Completion{
		{Name: "retry", Kind: KindVariable},
		{Name: "return", Kind: KindKeyword},
	}, got)
}

func TestRename(t *testing.T) {
	a := NewLexical(nil)
	snap := versioncache.New(sample).Latest()

	locs, err := a.Rename("calc.js", snap, strings.Index(sample, "b)"))
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, 16, locs[0].Start)
	assert.Equal(t, 2, locs[1].Line)
	assert.Equal(t, "b", sample[locs[1].Start:locs[1].End])

	locs, err = a.Rename("calc.js", snap, strings.Index(sample, "{"))
	require.NoError(t, err)
	assert.Empty(t, locs)
}

func TestFormatOnKey(t *testing.T) {
	a := NewLexical(nil)
	text := "let a = 1;   \nb; \t\n"
	snap := versioncache.New(text).Latest()

	edits, err := a.FormatOnKey("f.js", snap, 14, "\n")
	require.NoError(t, err)
	assert.Equal(t, []TextEdit{{Start: 10, End: 13}}, edits)

	edits, err = a.FormatOnKey("f.js", snap, 16, ";")
	require.NoError(t, err)
	assert.Equal(t, []TextEdit{{Start: 16, End: 18}}, edits)

	edits, err = a.FormatOnKey("f.js", snap, 14, "x")
	require.NoError(t, err)
	assert.Empty(t, edits)

	_, err = a.FormatOnKey("f.js", snap, 0, ";")
	assert.ErrorIs(t, err, versioncache.ErrOffsetOutOfRange)
}

func TestSymbols(t *testing.T) {
	a := NewLexical(nil)
	require.NoError(t, a.Update("b.js", versioncache.New("class Beta {}\n").Latest()))
	require.NoError(t, a.Update("a.js", versioncache.New("var one = 1;\nfunction two() {}\n").Latest()))

	syms := a.Symbols()
	require.Len(t, syms, 3)
	assert.Equal(t, "one", syms[0].Name)
	assert.Equal(t, "a.js", syms[0].Location.File)
	assert.Equal(t, "two", syms[1].Name)
	assert.Equal(t, 2, syms[1].Location.Line)
	assert.Equal(t, 22, syms[1].Location.Start)
	assert.Equal(t, Symbol{Name: "Beta", Kind: KindClass, Location: Location{File: "b.js", Start: 6, End: 10, Line: 1, Column: 6}}, syms[2])

	a.Remove("b.js")
	assert.Len(t, a.Symbols(), 2)
}

func TestIncrementalUpdate(t *testing.T) {
	a := NewLexical(nil)
	c := versioncache.New(strings.Repeat("let v = w;\n", 100))
	require.NoError(t, a.Update("f.js", c.Latest()))
	assert.Equal(t, Stats{FullScans: 1, LinesScanned: 100}, a.Stats())

	s, err := c.Edit(55, 1, "renamed")
	require.NoError(t, err)
	require.NoError(t, a.Update("f.js", s))

	stats := a.Stats()
	assert.Equal(t, 1, stats.FullScans)
	assert.Equal(t, 1, stats.Incremental)
	assert.Equal(t, 101, stats.LinesScanned)

	locs, err := a.Rename("f.js", s, 55)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, 6, locs[0].Line)

	c.Reload("let z;\n")
	require.NoError(t, a.Update("f.js", c.Latest()))
	assert.Equal(t, 2, a.Stats().FullScans)
}

// TestIncrementalMatchesFullScan compares the incrementally maintained index
// with a fresh scan after every edit.
func TestIncrementalMatchesFullScan(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	fragments := []string{"let ", "x", "y1", " = ", ";", "\n", "\r\n", "\r", "function f", "(a)", " ", "'s t'", "// c"}

	c := versioncache.New("let a = b;\nfunction g(h) {}\n", versioncache.WithChangeNumberThreshold(7))
	inc := NewLexical(nil)
	require.NoError(t, inc.Update("f.js", c.Latest()))

	for i := 0; i < 300; i++ {
		n := c.Latest().GetLength()
		pos := rng.Intn(n + 1)
		d := rng.Intn(min(5, n-pos) + 1)
		var ins strings.Builder
		for k := rng.Intn(3); k > 0; k-- {
			ins.WriteString(fragments[rng.Intn(len(fragments))])
		}
		s, err := c.Edit(pos, d, ins.String())
		require.NoError(t, err)

		// Skip some versions so ranges span several edits.
		if rng.Intn(3) == 0 {
			continue
		}
		require.NoError(t, inc.Update("f.js", s))

		fresh := NewLexical(nil)
		want := make([][]Token, s.LineCount())
		for line := 1; line <= s.LineCount(); line++ {
			text, err := s.LineText(line)
			require.NoError(t, err)
			want[line-1] = scanLine(text)
		}
		require.NoError(t, fresh.Update("f.js", s))
		require.Equal(t, want, fresh.files["f.js"].lines)
		require.Equal(t, want, inc.files["f.js"].lines, "edit %d", i)
	}
	assert.Equal(t, 1, inc.Stats().FullScans)
}
