package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dshills/scriptnav/internal/analyzer"
	"github.com/dshills/scriptnav/internal/engine"
	"github.com/dshills/scriptnav/internal/engine/versioncache"
	"github.com/dshills/scriptnav/internal/fuzzy"
	"github.com/dshills/scriptnav/internal/watcher"
)

// handlerFunc executes one command. It returns the response body, or
// reports that the operation was cancelled.
type handlerFunc func(s *Session, ctx context.Context, a *args) (body any, cancelled bool, err error)

var handlers = map[string]handlerFunc{
	"open":        (*Session).open,
	"opentext":    (*Session).openText,
	"close":       (*Session).close,
	"change":      (*Session).change,
	"reload":      (*Session).reload,
	"text":        (*Session).text,
	"position":    (*Session).position,
	"offset":      (*Session).offset,
	"lines":       (*Session).lines,
	"changes":     (*Session).changes,
	"definition":  (*Session).definition,
	"quickinfo":   (*Session).quickInfo,
	"completions": (*Session).completions,
	"rename":      (*Session).rename,
	"format":      (*Session).format,
	"navto":       (*Session).navTo,
	"quit":        (*Session).quit,
}

// Commands returns the names of all commands, including cancel.
func Commands() []string {
	names := make([]string, 0, len(handlers)+1)
	for name := range handlers {
		names = append(names, name)
	}
	names = append(names, "cancel")
	slices.Sort(names)
	return names
}

// Response bodies.
type (
	OpenedFile struct {
		File    string `json:"file"`
		Version int    `json:"version"`
	}
	OpenBody struct {
		Files []OpenedFile `json:"files"`
	}
	VersionBody struct {
		Version int `json:"version"`
	}
	TextBody struct {
		Text string `json:"text"`
	}
	OffsetBody struct {
		Offset int `json:"offset"`
	}
	LinesBody struct {
		Starts []int `json:"starts"`
	}
	ChangesBody struct {
		Version   int `json:"version"`
		Start     int `json:"start"`
		OldLength int `json:"oldLength"`
		NewLength int `json:"newLength"`
	}
	CompletionsBody struct {
		Entries []analyzer.Completion `json:"entries"`
	}
	RenameBody struct {
		Locations []analyzer.Location `json:"locations"`
	}
	FormatBody struct {
		Edits []analyzer.TextEdit `json:"edits"`
	}
	NavItem struct {
		Name   string `json:"name"`
		Kind   string `json:"kind"`
		File   string `json:"file"`
		Start  int    `json:"start"`
		End    int    `json:"end"`
		Line   int    `json:"line"`
		Column int    `json:"column"`
		Score  int    `json:"score"`
	}
	NavToBody struct {
		Items []NavItem `json:"items"`
	}
)

func (s *Session) document(name string) (string, *engine.Document, error) {
	name = filepath.Clean(name)
	d, ok := s.docs[name]
	if !ok {
		return name, nil, fmt.Errorf("%w: %s", ErrNoDocument, name)
	}
	return name, d, nil
}

func (s *Session) docOptions() []engine.Option {
	return []engine.Option{
		engine.WithFileSystem(s.fsys),
		engine.WithLogger(s.logger),
		engine.WithCacheOptions(s.cacheOpts...),
		engine.WithMetrics(s.metrics),
	}
}

// expand resolves a file argument to the files it names.
func (s *Session) expand(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{filepath.Clean(pattern)}, nil
	}
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		return nil, fmt.Errorf("%w: %s", doublestar.ErrBadPattern, pattern)
	}

	var (
		matches []string
		err     error
	)
	if fsys, ok := s.fsys.(fs.FS); ok {
		matches, err = doublestar.Glob(fsys, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
	} else {
		matches, err = doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	}
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}
	for i, m := range matches {
		matches[i] = filepath.Clean(filepath.FromSlash(m))
	}
	slices.Sort(matches)
	return matches, nil
}

func (s *Session) open(_ context.Context, a *args) (any, bool, error) {
	pattern := a.str("file")
	if err := a.done(); err != nil {
		return nil, false, err
	}
	names, err := s.expand(pattern)
	if err != nil {
		return nil, false, err
	}

	body := OpenBody{Files: make([]OpenedFile, 0, len(names))}
	for _, name := range names {
		snap, err := s.openFile(name)
		if err != nil {
			return nil, false, err
		}
		body.Files = append(body.Files, OpenedFile{File: name, Version: snap.Version()})
	}
	return body, false, nil
}

// openFile opens name, or reloads it from disk if it is already open.
func (s *Session) openFile(name string) (*versioncache.Snapshot, error) {
	if d, ok := s.docs[name]; ok {
		snap, err := d.ReloadFromFile("")
		if err != nil {
			return nil, err
		}
		return snap, s.analyzer.Update(name, snap)
	}

	d, err := engine.Open(name, s.docOptions()...)
	if err != nil {
		return nil, err
	}
	s.docs[name] = d
	s.track(name)
	snap := d.Latest()
	return snap, s.analyzer.Update(name, snap)
}

func (s *Session) track(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}
	s.pathsMu.Lock()
	s.paths[abs] = name
	s.pathsMu.Unlock()

	if s.files == nil {
		return
	}
	if err := s.files.Track(abs); err != nil && !errors.Is(err, watcher.ErrIgnored) {
		s.logger.Warn("cannot watch file", slog.String("file", name), slog.String("error", err.Error()))
	}
}

func (s *Session) untrack(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}
	s.pathsMu.Lock()
	_, tracked := s.paths[abs]
	delete(s.paths, abs)
	s.pathsMu.Unlock()

	if tracked && s.files != nil && s.files.IsTracked(abs) {
		if err := s.files.Untrack(abs); err != nil {
			s.logger.Warn("cannot unwatch file", slog.String("file", name), slog.String("error", err.Error()))
		}
	}
}

func (s *Session) openText(_ context.Context, a *args) (any, bool, error) {
	name := filepath.Clean(a.str("file"))
	text := a.str("text")
	if err := a.done(); err != nil {
		return nil, false, err
	}

	var snap *versioncache.Snapshot
	if d, ok := s.docs[name]; ok {
		snap = d.ReloadNoHistory(text)
	} else {
		d := engine.OpenText(name, text, s.docOptions()...)
		s.docs[name] = d
		snap = d.Latest()
	}
	if err := s.analyzer.Update(name, snap); err != nil {
		return nil, false, err
	}
	return VersionBody{Version: snap.Version()}, false, nil
}

func (s *Session) close(_ context.Context, a *args) (any, bool, error) {
	file := a.str("file")
	if err := a.done(); err != nil {
		return nil, false, err
	}
	name, _, err := s.document(file)
	if err != nil {
		return nil, false, err
	}
	delete(s.docs, name)
	s.analyzer.Remove(name)
	s.untrack(name)
	return nil, false, nil
}

func (s *Session) change(_ context.Context, a *args) (any, bool, error) {
	file := a.str("file")
	pos := a.int("pos")
	var (
		toEnd bool
		del   int
	)
	if a.err == nil && a.i < len(a.req.Args) && a.req.Args[a.i] == "end" {
		a.i++
		toEnd = true
	} else {
		del = a.int("deleteLen")
	}
	text := a.str("text")
	if err := a.done(); err != nil {
		return nil, false, err
	}
	name, d, err := s.document(file)
	if err != nil {
		return nil, false, err
	}

	var snap *versioncache.Snapshot
	if toEnd {
		snap, err = d.EditToEnd(pos, text)
	} else {
		snap, err = d.Edit(pos, del, text)
	}
	if err != nil {
		return nil, false, err
	}
	if err := s.analyzer.Update(name, snap); err != nil {
		return nil, false, err
	}
	return VersionBody{Version: snap.Version()}, false, nil
}

func (s *Session) reload(_ context.Context, a *args) (any, bool, error) {
	file := a.str("file")
	source, _ := a.optional()
	if err := a.done(); err != nil {
		return nil, false, err
	}
	name, d, err := s.document(file)
	if err != nil {
		return nil, false, err
	}
	snap, err := d.ReloadFromFile(source)
	if err != nil {
		return nil, false, err
	}
	if err := s.analyzer.Update(name, snap); err != nil {
		return nil, false, err
	}
	return VersionBody{Version: snap.Version()}, false, nil
}

func (s *Session) text(_ context.Context, a *args) (any, bool, error) {
	file := a.str("file")
	ranged := a.remaining() > 0
	var start, end int
	if ranged {
		start = a.int("start")
		end = a.int("end")
	}
	if err := a.done(); err != nil {
		return nil, false, err
	}
	_, d, err := s.document(file)
	if err != nil {
		return nil, false, err
	}
	snap := d.Latest()
	if !ranged {
		return TextBody{Text: snap.String()}, false, nil
	}
	text, err := snap.GetText(start, end)
	if err != nil {
		return nil, false, err
	}
	return TextBody{Text: text}, false, nil
}

func (s *Session) position(_ context.Context, a *args) (any, bool, error) {
	file := a.str("file")
	offset := a.int("offset")
	if err := a.done(); err != nil {
		return nil, false, err
	}
	_, d, err := s.document(file)
	if err != nil {
		return nil, false, err
	}
	pos, err := d.PositionOf(offset)
	if err != nil {
		return nil, false, err
	}
	return pos, false, nil
}

func (s *Session) offset(_ context.Context, a *args) (any, bool, error) {
	file := a.str("file")
	line := a.int("line")
	column := a.int("column")
	if err := a.done(); err != nil {
		return nil, false, err
	}
	_, d, err := s.document(file)
	if err != nil {
		return nil, false, err
	}
	off, err := d.OffsetOf(line, column)
	if err != nil {
		return nil, false, err
	}
	return OffsetBody{Offset: off}, false, nil
}

func (s *Session) lines(_ context.Context, a *args) (any, bool, error) {
	file := a.str("file")
	if err := a.done(); err != nil {
		return nil, false, err
	}
	_, d, err := s.document(file)
	if err != nil {
		return nil, false, err
	}
	return LinesBody{Starts: d.Latest().GetLineStartPositions()}, false, nil
}

func (s *Session) changes(_ context.Context, a *args) (any, bool, error) {
	file := a.str("file")
	since := a.int("sinceVersion")
	if err := a.done(); err != nil {
		return nil, false, err
	}
	_, d, err := s.document(file)
	if err != nil {
		return nil, false, err
	}
	latest := d.LatestVersion()
	r, err := d.ChangesSince(since)
	if err != nil {
		return nil, false, err
	}
	return ChangesBody{Version: latest, Start: r.Start, OldLength: r.OldLength, NewLength: r.NewLength}, false, nil
}

// query resolves the common "<file> <offset>" arguments of analyzer
// commands.
func (s *Session) query(a *args) (string, *versioncache.Snapshot, int, error) {
	file := a.str("file")
	offset := a.int("offset")
	if a.err != nil {
		return "", nil, 0, a.err
	}
	name, d, err := s.document(file)
	if err != nil {
		return "", nil, 0, err
	}
	return name, d.Latest(), offset, nil
}

func (s *Session) definition(_ context.Context, a *args) (any, bool, error) {
	name, snap, offset, err := s.query(a)
	if err == nil {
		err = a.done()
	}
	if err != nil {
		return nil, false, err
	}
	loc, found, err := s.analyzer.Definition(name, snap, offset)
	if err != nil || !found {
		return nil, false, err
	}
	return loc, false, nil
}

func (s *Session) quickInfo(_ context.Context, a *args) (any, bool, error) {
	name, snap, offset, err := s.query(a)
	if err == nil {
		err = a.done()
	}
	if err != nil {
		return nil, false, err
	}
	info, found, err := s.analyzer.QuickInfo(name, snap, offset)
	if err != nil || !found {
		return nil, false, err
	}
	return info, false, nil
}

func (s *Session) completions(_ context.Context, a *args) (any, bool, error) {
	name, snap, offset, err := s.query(a)
	if err == nil {
		err = a.done()
	}
	if err != nil {
		return nil, false, err
	}
	entries, err := s.analyzer.Completions(name, snap, offset)
	if err != nil {
		return nil, false, err
	}
	return CompletionsBody{Entries: entries}, false, nil
}

func (s *Session) rename(_ context.Context, a *args) (any, bool, error) {
	name, snap, offset, err := s.query(a)
	if err == nil {
		err = a.done()
	}
	if err != nil {
		return nil, false, err
	}
	locs, err := s.analyzer.Rename(name, snap, offset)
	if err != nil {
		return nil, false, err
	}
	return RenameBody{Locations: locs}, false, nil
}

func (s *Session) format(_ context.Context, a *args) (any, bool, error) {
	name, snap, offset, err := s.query(a)
	key := a.str("key")
	if err == nil {
		err = a.done()
	}
	if err != nil {
		return nil, false, err
	}
	edits, err := s.analyzer.FormatOnKey(name, snap, offset, key)
	if err != nil {
		return nil, false, err
	}
	return FormatBody{Edits: edits}, false, nil
}

// navTo searches the symbols of every open document. It is the session's
// long operation: starting it cancels any previous one still pending, and
// a cancel command stops it.
func (s *Session) navTo(ctx context.Context, a *args) (any, bool, error) {
	query := a.str("query")
	limit := s.maxResults
	if a.remaining() > 0 {
		limit = a.int("limit")
	}
	if err := a.done(); err != nil {
		return nil, false, err
	}

	tok := s.guard.Begin(ctx)
	defer s.guard.End(tok)

	symbols := s.analyzer.Symbols()
	if tok.IsCancellationRequested() {
		s.logger.Info("navto cancelled",
			slog.String("token", tok.ID()),
			slog.Int("scanned", 0),
			slog.Int("candidates", len(symbols)))
		return nil, true, nil
	}
	items := make([]fuzzy.Item, len(symbols))
	for i, sym := range symbols {
		items[i] = fuzzy.Item{Text: sym.Name, Data: sym}
	}

	outcome := s.matcher.Match(tok, query, items, limit)
	if outcome.Cancelled {
		s.logger.Info("navto cancelled",
			slog.String("token", tok.ID()),
			slog.Int("scanned", outcome.Scanned),
			slog.Int("candidates", len(items)))
		return nil, true, nil
	}

	body := NavToBody{Items: make([]NavItem, len(outcome.Results))}
	for i, r := range outcome.Results {
		sym := r.Item.Data.(analyzer.Symbol)
		body.Items[i] = NavItem{
			Name:   sym.Name,
			Kind:   sym.Kind,
			File:   sym.Location.File,
			Start:  sym.Location.Start,
			End:    sym.Location.End,
			Line:   sym.Location.Line,
			Column: sym.Location.Column,
			Score:  r.Score,
		}
	}
	return body, false, nil
}

func (s *Session) quit(_ context.Context, a *args) (any, bool, error) {
	if err := a.done(); err != nil {
		return nil, false, err
	}
	for name := range s.docs {
		s.untrack(name)
	}
	return nil, false, nil
}
