package analyzer

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/scriptnav/internal/engine/lineindex"
	"github.com/dshills/scriptnav/internal/engine/versioncache"
)

// Lexical is an Analyzer working on identifiers alone.
// It is safe for concurrent use.
type Lexical struct {
	mu     sync.Mutex
	files  map[string]*fileIndex
	logger *slog.Logger
	stats  Stats
}

// Stats counts how indexes were brought up to date.
type Stats struct {
	// FullScans counts rescans of whole files.
	FullScans int

	// Incremental counts updates that rescanned only changed lines.
	Incremental int

	// LinesScanned counts lines whose tokens were fetched during updates.
	LinesScanned int
}

// fileIndex holds the tokens of every line of one indexed snapshot.
type fileIndex struct {
	snap  *versioncache.Snapshot
	lines [][]Token
}

// lineTokens is the leaf annotation caching a line's tokens.
type lineTokens struct {
	tokens []Token
}

// NewLexical creates a lexical analyzer. A nil logger uses slog.Default.
func NewLexical(logger *slog.Logger) *Lexical {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lexical{
		files:  make(map[string]*fileIndex),
		logger: logger.With(slog.String("component", "analyzer")),
	}
}

// Stats returns the update counters.
func (a *Lexical) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Update implements Analyzer.
func (a *Lexical) Update(file string, snap *versioncache.Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sync(file, snap)
	return nil
}

// Remove implements Analyzer.
func (a *Lexical) Remove(file string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.files, file)
}

// sync brings the index of file up to snap and returns it.
func (a *Lexical) sync(file string, snap *versioncache.Snapshot) *fileIndex {
	idx := a.files[file]
	if idx == nil {
		idx = &fileIndex{}
		a.files[file] = idx
	}
	if idx.snap == snap {
		return idx
	}

	if idx.snap != nil {
		r, err := snap.GetChangeRange(idx.snap)
		if err == nil && a.applyRange(idx, snap, r) {
			return idx
		}
		if err != nil {
			a.logger.Debug("full rescan",
				slog.String("file", file),
				slog.Int("from", idx.snap.Version()),
				slog.Int("to", snap.Version()),
				slog.String("reason", err.Error()))
		}
	}

	leaves := snap.Index().Leaves()
	idx.lines = make([][]Token, len(leaves))
	for i, l := range leaves {
		idx.lines[i] = tokensOf(l)
	}
	idx.snap = snap
	a.stats.FullScans++
	a.stats.LinesScanned += len(leaves)
	return idx
}

// applyRange replaces the tokens of the lines covering r. It reports false
// when the line structure outside r does not line up, leaving idx as is.
func (a *Lexical) applyRange(idx *fileIndex, snap *versioncache.Snapshot, r versioncache.ChangeRange) bool {
	old := idx.snap
	if r.IsUnchanged() {
		idx.snap = snap
		return true
	}

	oldStart, err1 := old.PositionOf(r.Start)
	newStart, err2 := snap.PositionOf(r.Start)
	oldEnd, err3 := old.PositionOf(r.OldEnd())
	newEnd, err4 := snap.PositionOf(r.NewEnd())
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	first := min(oldStart.Line, newStart.Line)
	if old.LineCount()-oldEnd.Line != snap.LineCount()-newEnd.Line {
		return false
	}

	fresh := make([][]Token, 0, newEnd.Line-first+1)
	for line := first; line <= newEnd.Line; line++ {
		info, err := snap.Index().LineInfo(line)
		if err != nil {
			return false
		}
		fresh = append(fresh, tokensOf(info.Leaf))
	}

	lines := make([][]Token, 0, snap.LineCount())
	lines = append(lines, idx.lines[:first-1]...)
	lines = append(lines, fresh...)
	lines = append(lines, idx.lines[oldEnd.Line:]...)
	idx.lines = lines
	idx.snap = snap
	a.stats.Incremental++
	a.stats.LinesScanned += len(fresh)
	return true
}

// tokensOf returns the tokens of a leaf, scanning it on first use.
func tokensOf(l *lineindex.Leaf) []Token {
	if lt, ok := l.Annotation().(*lineTokens); ok {
		return lt.tokens
	}
	tokens := scanLine(l.Text())
	l.SetAnnotation(&lineTokens{tokens: tokens})
	return tokens
}

// occurrence is a token and the 1-based line it is on.
type occurrence struct {
	line int
	tok  Token
}

func (idx *fileIndex) occurrences(name string) []occurrence {
	var out []occurrence
	for i, tokens := range idx.lines {
		for _, t := range tokens {
			if t.Name == name {
				out = append(out, occurrence{line: i + 1, tok: t})
			}
		}
	}
	return out
}

func (idx *fileIndex) declaration(name string) (occurrence, bool) {
	for i, tokens := range idx.lines {
		for _, t := range tokens {
			if t.Name == name && t.Kind != "" {
				return occurrence{line: i + 1, tok: t}, true
			}
		}
	}
	return occurrence{}, false
}

func (idx *fileIndex) location(file string, o occurrence) Location {
	start := idx.snap.GetLineStartPositions()[o.line-1] + o.tok.Column
	return Location{
		File:   file,
		Start:  start,
		End:    start + len(o.tok.Name),
		Line:   o.line,
		Column: o.tok.Column,
	}
}

// nameAt returns the identifier at offset, or "" when there is none.
func nameAt(snap *versioncache.Snapshot, offset int) (string, error) {
	pos, err := snap.PositionOf(offset)
	if err != nil {
		return "", err
	}
	text, err := snap.LineText(pos.Line)
	if err != nil {
		return "", err
	}
	start, end, ok := identAt(text, pos.Column)
	if !ok || isKeyword(text[start:end]) {
		return "", nil
	}
	return text[start:end], nil
}

// Definition implements Analyzer. Without a declaration the first
// occurrence is returned.
func (a *Lexical) Definition(file string, snap *versioncache.Snapshot, offset int) (Location, bool, error) {
	name, err := nameAt(snap, offset)
	if err != nil || name == "" {
		return Location{}, false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.sync(file, snap)

	if o, ok := idx.declaration(name); ok {
		return idx.location(file, o), true, nil
	}
	if occ := idx.occurrences(name); len(occ) > 0 {
		return idx.location(file, occ[0]), true, nil
	}
	return Location{}, false, nil
}

// QuickInfo implements Analyzer.
func (a *Lexical) QuickInfo(file string, snap *versioncache.Snapshot, offset int) (Info, bool, error) {
	name, err := nameAt(snap, offset)
	if err != nil || name == "" {
		return Info{}, false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.sync(file, snap)

	info := Info{Name: name, Kind: KindName, Occurrences: len(idx.occurrences(name))}
	line := 0
	if o, ok := idx.declaration(name); ok {
		info.Kind = o.tok.Kind
		line = o.line
	} else {
		pos, _ := snap.PositionOf(offset)
		line = pos.Line
	}
	text, _ := snap.LineText(line)
	info.LineText = strings.TrimSpace(text)
	return info, true, nil
}

// Completions implements Analyzer. Candidates are identifiers of the file
// and keywords starting with the identifier prefix before offset.
func (a *Lexical) Completions(file string, snap *versioncache.Snapshot, offset int) ([]Completion, error) {
	pos, err := snap.PositionOf(offset)
	if err != nil {
		return nil, err
	}
	text, err := snap.LineText(pos.Line)
	if err != nil {
		return nil, err
	}
	col := min(pos.Column, len(text))
	start := col
	for start > 0 && isIdentPart(text[start-1]) {
		start--
	}
	prefix := text[start:col]
	current := ""
	if s, e, ok := identAt(text, col); ok {
		current = text[s:e]
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.sync(file, snap)

	counts := make(map[string]int)
	kinds := make(map[string]string)
	for _, tokens := range idx.lines {
		for _, t := range tokens {
			counts[t.Name]++
			if t.Kind != "" && kinds[t.Name] == "" {
				kinds[t.Name] = t.Kind
			}
		}
	}

	var out []Completion
	for name, n := range counts {
		if !strings.HasPrefix(name, prefix) || (name == current && n == 1) {
			continue
		}
		kind := kinds[name]
		if kind == "" {
			kind = KindName
		}
		out = append(out, Completion{Name: name, Kind: kind})
	}
	for _, kw := range keywordList() {
		if prefix != "" && strings.HasPrefix(kw, prefix) {
			out = append(out, Completion{Name: kw, Kind: KindKeyword})
		}
	}
	slices.SortFunc(out, func(x, y Completion) int {
		return strings.Compare(x.Name, y.Name)
	})
	return out, nil
}

func keywordList() []string {
	out := make([]string, 0, len(declarators)+len(keywords))
	for k := range declarators {
		out = append(out, k)
	}
	for k := range keywords {
		out = append(out, k)
	}
	return out
}

// Rename implements Analyzer.
func (a *Lexical) Rename(file string, snap *versioncache.Snapshot, offset int) ([]Location, error) {
	name, err := nameAt(snap, offset)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return []Location{}, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.sync(file, snap)

	occ := idx.occurrences(name)
	locs := make([]Location, len(occ))
	for i, o := range occ {
		locs[i] = idx.location(file, o)
	}
	return locs, nil
}

// FormatOnKey implements Analyzer. After "\n", ";" or "}" the trailing
// whitespace of the line holding the typed key is removed.
func (a *Lexical) FormatOnKey(file string, snap *versioncache.Snapshot, offset int, key string) ([]TextEdit, error) {
	switch key {
	case "\n", ";", "}":
	default:
		return []TextEdit{}, nil
	}
	if offset < 1 || offset > snap.GetLength() {
		return nil, versioncache.ErrOffsetOutOfRange
	}

	pos, err := snap.PositionOf(offset - 1)
	if err != nil {
		return nil, err
	}
	text, err := snap.LineText(pos.Line)
	if err != nil {
		return nil, err
	}
	lineStart := snap.GetLineStartPositions()[pos.Line-1]

	content := strings.TrimRight(text, "\r\n")
	trimmed := strings.TrimRight(content, " \t")
	if len(trimmed) == len(content) {
		return []TextEdit{}, nil
	}
	return []TextEdit{{
		Start: lineStart + len(trimmed),
		End:   lineStart + len(content),
	}}, nil
}

// Symbols implements Analyzer. Files are listed in name order.
func (a *Lexical) Symbols() []Symbol {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(a.files))
	for name := range a.files {
		names = append(names, name)
	}
	slices.Sort(names)

	var out []Symbol
	for _, file := range names {
		idx := a.files[file]
		if idx.snap == nil {
			continue
		}
		for i, tokens := range idx.lines {
			for _, t := range tokens {
				if t.Kind == "" {
					continue
				}
				o := occurrence{line: i + 1, tok: t}
				out = append(out, Symbol{Name: t.Name, Kind: t.Kind, Location: idx.location(file, o)})
			}
		}
	}
	return out
}
