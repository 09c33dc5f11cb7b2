package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scriptnav/internal/analyzer"
	"github.com/dshills/scriptnav/internal/engine/versioncache"
	"github.com/dshills/scriptnav/internal/fuzzy"
	"github.com/dshills/scriptnav/internal/logging"
	"github.com/dshills/scriptnav/internal/metrics"
	"github.com/dshills/scriptnav/internal/watcher"
)

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	return New(append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func run(t *testing.T, s *Session, line string) Response {
	t.Helper()
	req, err := ParseRequest(s.nextSeq(), line)
	require.NoError(t, err, line)
	return s.Execute(context.Background(), req)
}

func ok(t *testing.T, s *Session, line string) Response {
	t.Helper()
	resp := run(t, s, line)
	require.True(t, resp.Success, "%s: %s", line, resp.Message)
	return resp
}

func TestEditScenario(t *testing.T) {
	m := metrics.New(nil)
	s := newTestSession(t, WithMetrics(m))

	resp := ok(t, s, `opentext a.ts "abc\ndef\n"`)
	assert.Equal(t, VersionBody{Version: 0}, resp.Body)

	resp = ok(t, s, `change a.ts 4 3 "xyz"`)
	assert.Equal(t, VersionBody{Version: 1}, resp.Body)

	assert.Equal(t, TextBody{Text: "abc\nxyz\n"}, ok(t, s, "text a.ts").Body)
	assert.Equal(t, TextBody{Text: "xyz"}, ok(t, s, "text a.ts 4 7").Body)
	assert.Equal(t, versioncache.Position{Line: 2, Column: 0}, ok(t, s, "position a.ts 4").Body)
	assert.Equal(t, OffsetBody{Offset: 4}, ok(t, s, "offset a.ts 2 0").Body)
	assert.Equal(t, LinesBody{Starts: []int{0, 4}}, ok(t, s, "lines a.ts").Body)
	assert.Equal(t, ChangesBody{Version: 1, Start: 4, OldLength: 3, NewLength: 3}, ok(t, s, "changes a.ts 0").Body)
	assert.Equal(t, ChangesBody{Version: 1}, ok(t, s, "changes a.ts 1").Body)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Edits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("change", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Commands.WithLabelValues("changes", "ok")))
}

func TestChangeToEnd(t *testing.T) {
	s := newTestSession(t)
	ok(t, s, `opentext a.ts "line one\nline two\n"`)
	ok(t, s, `change a.ts 5 end "1"`)
	assert.Equal(t, TextBody{Text: "line 1"}, ok(t, s, "text a.ts").Body)
}

func TestOpenTextReplacesWithoutHistory(t *testing.T) {
	s := newTestSession(t)
	ok(t, s, `opentext a.ts "one\n"`)
	ok(t, s, `change a.ts 0 0 "zero\n"`)

	resp := ok(t, s, `opentext a.ts "fresh\n"`)
	assert.Equal(t, VersionBody{Version: 2}, resp.Body)
	assert.Equal(t, TextBody{Text: "fresh\n"}, ok(t, s, "text a.ts").Body)

	resp = run(t, s, "changes a.ts 1")
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, versioncache.ErrReloadDiscontinuity.Error())
}

func TestCommandErrors(t *testing.T) {
	s := newTestSession(t)
	ok(t, s, `opentext a.ts "abc\n"`)

	tests := []struct {
		line string
		want string
	}{
		{"frobnicate a.ts", ErrUnknownCommand.Error()},
		{"text missing.ts", ErrNoDocument.Error()},
		{"position a.ts", ErrArgCount.Error()},
		{"position a.ts four", ErrBadNumber.Error()},
		{"lines a.ts extra", ErrArgCount.Error()},
		{"position a.ts 99", versioncache.ErrOffsetOutOfRange.Error()},
		{"offset a.ts 5 0", versioncache.ErrLineOutOfRange.Error()},
		{`change a.ts 2 10 ""`, versioncache.ErrRangeInvalid.Error()},
		{"text a.ts 3 1", versioncache.ErrRangeInvalid.Error()},
		{"changes a.ts 9", versioncache.ErrUnknownVersion.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			resp := run(t, s, tt.line)
			assert.False(t, resp.Success)
			assert.False(t, resp.Cancelled)
			assert.Contains(t, resp.Message, tt.want)
			assert.Nil(t, resp.Body)
		})
	}
	assert.Equal(t, TextBody{Text: "abc\n"}, ok(t, s, "text a.ts").Body)
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"src/main.js":     {Data: []byte("function greet(name) {\n  return name;\n}\nlet total = greet(1);\n")},
		"src/lib/util.js": {Data: []byte("const helper = 1;\n")},
		"README.md":       {Data: []byte("# readme\n")},
	}
}

func TestOpenGlob(t *testing.T) {
	s := newTestSession(t, WithFileSystem(testFS()))

	resp := ok(t, s, `open "src/**/*.js"`)
	assert.Equal(t, OpenBody{Files: []OpenedFile{
		{File: "src/lib/util.js", Version: 0},
		{File: "src/main.js", Version: 0},
	}}, resp.Body)

	resp = run(t, s, "open nothing/*.ts")
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, ErrNoMatch.Error())

	resp = run(t, s, "open src/missing.js")
	assert.False(t, resp.Success)
}

func TestOpenAgainReloads(t *testing.T) {
	fsys := testFS()
	s := newTestSession(t, WithFileSystem(fsys))
	ok(t, s, "open README.md")
	ok(t, s, `change README.md 0 0 "x"`)

	fsys["README.md"] = &fstest.MapFile{Data: []byte("# changed\n")}
	resp := ok(t, s, "open README.md")
	assert.Equal(t, OpenBody{Files: []OpenedFile{{File: "README.md", Version: 2}}}, resp.Body)
	assert.Equal(t, TextBody{Text: "# changed\n"}, ok(t, s, "text README.md").Body)
}

func TestReload(t *testing.T) {
	fsys := testFS()
	fsys["tmp/main.js"] = &fstest.MapFile{Data: []byte("let swapped = 1;\n")}
	s := newTestSession(t, WithFileSystem(fsys))
	ok(t, s, "open src/main.js")

	resp := ok(t, s, "reload src/main.js tmp/main.js")
	assert.Equal(t, VersionBody{Version: 1}, resp.Body)
	assert.Equal(t, TextBody{Text: "let swapped = 1;\n"}, ok(t, s, "text src/main.js").Body)

	resp = run(t, s, "reload src/main.js tmp/gone.js")
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "reload did not occur")
	assert.Equal(t, TextBody{Text: "let swapped = 1;\n"}, ok(t, s, "text src/main.js").Body)

	ok(t, s, "reload src/main.js")
	assert.Equal(t, TextBody{Text: string(fsys["src/main.js"].Data)}, ok(t, s, "text src/main.js").Body)
}

func TestClose(t *testing.T) {
	s := newTestSession(t)
	ok(t, s, `opentext a.js "let a = 1;\n"`)
	ok(t, s, "close a.js")
	_, _, err := s.document("a.js")
	assert.ErrorIs(t, err, ErrNoDocument)

	resp := run(t, s, "close a.js")
	assert.Contains(t, resp.Message, ErrNoDocument.Error())
	assert.Empty(t, ok(t, s, `navto "a"`).Body.(NavToBody).Items)
}

func TestAnalyzerCommands(t *testing.T) {
	s := newTestSession(t, WithFileSystem(testFS()))
	ok(t, s, "open src/main.js")
	text := string(testFS()["src/main.js"].Data)
	use := strings.Index(text, "greet(1)")

	resp := ok(t, s, fmt.Sprintf("definition src/main.js %d", use))
	assert.Equal(t, analyzer.Location{File: "src/main.js", Start: 9, End: 14, Line: 1, Column: 9}, resp.Body)

	resp = ok(t, s, fmt.Sprintf("quickinfo src/main.js %d", use))
	info := resp.Body.(analyzer.Info)
	assert.Equal(t, "greet", info.Name)
	assert.Equal(t, analyzer.KindFunction, info.Kind)
	assert.Equal(t, 2, info.Occurrences)

	resp = ok(t, s, fmt.Sprintf("rename src/main.js %d", use))
	assert.Len(t, resp.Body.(RenameBody).Locations, 2)

	resp = ok(t, s, fmt.Sprintf("completions src/main.js %d", use+2))
	names := map[string]bool{}
	for _, c := range resp.Body.(CompletionsBody).Entries {
		names[c.Name] = true
	}
	assert.True(t, names["greet"])
	assert.False(t, names["total"])

	resp = ok(t, s, fmt.Sprintf("definition src/main.js %d", strings.Index(text, "return")))
	assert.Nil(t, resp.Body)
}

func TestFormatCommand(t *testing.T) {
	s := newTestSession(t)
	ok(t, s, `opentext a.js "let a = 1;   \n"`)

	resp := ok(t, s, `format a.js 10 ";"`)
	assert.Equal(t, FormatBody{Edits: []analyzer.TextEdit{{Start: 10, End: 13}}}, resp.Body)

	resp = ok(t, s, `format a.js 10 "x"`)
	assert.Empty(t, resp.Body.(FormatBody).Edits)
}

func TestAnalyzerFollowsEdits(t *testing.T) {
	s := newTestSession(t)
	ok(t, s, `opentext a.js "let alpha = 1;\n"`)
	ok(t, s, `change a.js 15 0 "function beta() {}\n"`)

	resp := ok(t, s, `navto "bet"`)
	items := resp.Body.(NavToBody).Items
	require.Len(t, items, 1)
	assert.Equal(t, "beta", items[0].Name)
	assert.Equal(t, 2, items[0].Line)
	assert.Equal(t, analyzer.KindFunction, items[0].Kind)
}

func TestNavTo(t *testing.T) {
	s := newTestSession(t, WithFileSystem(testFS()), WithMaxResults(1))
	ok(t, s, `open "src/**/*.js"`)

	resp := ok(t, s, `navto "grt"`)
	items := resp.Body.(NavToBody).Items
	require.Len(t, items, 1)
	assert.Equal(t, NavItem{Name: "greet", Kind: analyzer.KindFunction, File: "src/main.js", Start: 9, End: 14, Line: 1, Column: 9, Score: items[0].Score}, items[0])
	assert.Positive(t, items[0].Score)

	resp = ok(t, s, `navto "" 10`)
	assert.Len(t, resp.Body.(NavToBody).Items, 3)

	resp = ok(t, s, `navto "zzz"`)
	assert.Empty(t, resp.Body.(NavToBody).Items)
}

type blockingAnalyzer struct {
	analyzer.Analyzer
	started chan struct{}
	release chan struct{}
}

func (b *blockingAnalyzer) Symbols() []analyzer.Symbol {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return b.Analyzer.Symbols()
}

func TestNavToCancelled(t *testing.T) {
	m := metrics.New(nil)
	stub := &blockingAnalyzer{
		Analyzer: analyzer.NewLexical(logging.Discard()),
		started:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
	s := newTestSession(t, WithAnalyzer(stub), WithMetrics(m))
	ok(t, s, `opentext a.js "let alpha = 1;\n"`)

	assert.Equal(t, "nothing to cancel", s.cancelPending(Request{Command: "cancel"}).Message)

	done := make(chan Response, 1)
	go func() {
		req, _ := ParseRequest(100, `navto "alp"`)
		done <- s.Execute(context.Background(), req)
	}()
	<-stub.started

	resp := s.cancelPending(Request{Seq: 101, Command: "cancel"})
	assert.True(t, resp.Success)
	assert.Equal(t, "cancellation requested", resp.Message)
	close(stub.release)

	resp = <-done
	assert.Equal(t, 100, resp.Seq)
	assert.False(t, resp.Success)
	assert.True(t, resp.Cancelled)
	assert.Nil(t, resp.Body)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cancellations))
	assert.Nil(t, s.guard.Pending())

	// The next search is not affected by the earlier cancellation.
	resp = ok(t, s, `navto "alp"`)
	assert.Len(t, resp.Body.(NavToBody).Items, 1)
}

// cancellingAnalyzer requests cancellation while the candidates are being
// enumerated, before any matching starts.
type cancellingAnalyzer struct {
	analyzer.Analyzer
	cancel func()
}

func (c *cancellingAnalyzer) Symbols() []analyzer.Symbol {
	c.cancel()
	return c.Analyzer.Symbols()
}

func TestNavToCancelledDuringEnumeration(t *testing.T) {
	var logs bytes.Buffer
	stub := &cancellingAnalyzer{Analyzer: analyzer.NewLexical(logging.Discard())}
	s := newTestSession(t,
		WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))),
		WithAnalyzer(stub),
		WithMatcher(fuzzy.NewMatcher(fuzzy.Options{PollEvery: 1 << 20}, nil)))
	stub.cancel = func() { s.guard.CancelPending() }
	ok(t, s, `opentext a.js "let alpha = 1;\nlet alps = alpha;\n"`)

	resp := run(t, s, `navto "alp"`)
	assert.False(t, resp.Success)
	assert.True(t, resp.Cancelled)
	assert.Nil(t, resp.Body)
	assert.Contains(t, logs.String(), `"scanned":0`)
}

type wireResponse struct {
	Seq       int             `json:"seq"`
	Command   string          `json:"command"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Cancelled bool            `json:"cancelled"`
	Body      json.RawMessage `json:"body"`
}

func decodeAll(t *testing.T, r io.Reader) []wireResponse {
	t.Helper()
	var out []wireResponse
	dec := json.NewDecoder(r)
	for {
		var resp wireResponse
		err := dec.Decode(&resp)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, resp)
	}
}

func TestServe(t *testing.T) {
	input := strings.Join([]string{
		`opentext a.ts "let x = 1;\n"`,
		`change a.ts 0 0 "// c\n"`,
		``,
		`bogus`,
		`text a.ts`,
		`quit`,
		`opentext b.ts "never read"`,
	}, "\n") + "\n"

	var out bytes.Buffer
	s := newTestSession(t)
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(input), &out))

	resps := decodeAll(t, &out)
	require.Len(t, resps, 5)
	for i, r := range resps {
		assert.Equal(t, i+1, r.Seq)
	}
	assert.JSONEq(t, `{"version":0}`, string(resps[0].Body))
	assert.JSONEq(t, `{"version":1}`, string(resps[1].Body))
	assert.Equal(t, "bogus", resps[2].Command)
	assert.False(t, resps[2].Success)
	assert.JSONEq(t, `{"text":"// c\nlet x = 1;\n"}`, string(resps[3].Body))
	assert.Equal(t, "quit", resps[4].Command)
	assert.True(t, resps[4].Success)

	_, _, err := s.document("b.ts")
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestServeWireFormat(t *testing.T) {
	var out bytes.Buffer
	s := newTestSession(t)
	require.NoError(t, s.Serve(context.Background(), strings.NewReader("text \"broken\ncancel\n"), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"seq":1`)
	assert.Contains(t, lines[0], `"success":false`)
	assert.Contains(t, lines[0], ErrBadQuote.Error())
	assert.JSONEq(t, `{"seq":2,"command":"cancel","success":true,"message":"nothing to cancel","cancelled":false}`, lines[1])
	assert.JSONEq(t, `{"seq":3,"command":"quit","success":true,"cancelled":false}`, lines[2])
}

func TestServeStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r, w := io.Pipe()
	defer w.Close()

	s := newTestSession(t)
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, r, io.Discard) }()

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

type fakeSource struct {
	events chan watcher.Event
	errors chan error
}

func (f *fakeSource) Watch(string) error { return nil }
func (f *fakeSource) Unwatch(string) error { return nil }
func (f *fakeSource) Events() <-chan watcher.Event { return f.events }
func (f *fakeSource) Errors() <-chan error { return f.errors }
func (f *fakeSource) Close() error { return nil }

func TestServeReloadsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.js")
	require.NoError(t, os.WriteFile(path, []byte("let a = 1;\n"), 0o644))

	src := &fakeSource{events: make(chan watcher.Event, 4), errors: make(chan error)}
	files, err := watcher.NewFiles(src, logging.Discard())
	require.NoError(t, err)
	s := newTestSession(t, WithWatcher(files))

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	errc := make(chan error, 1)
	go func() {
		errc <- s.Serve(context.Background(), inR, outW)
		outW.Close()
	}()
	dec := json.NewDecoder(outR)
	next := func() wireResponse {
		var resp wireResponse
		require.NoError(t, dec.Decode(&resp))
		return resp
	}

	fmt.Fprintln(inW, "open "+strconv.Quote(path))
	resp := next()
	require.True(t, resp.Success, resp.Message)
	assert.True(t, files.IsTracked(path))

	require.NoError(t, os.WriteFile(path, []byte("let a = 2;\n"), 0o644))
	src.events <- watcher.Event{Path: path, Op: watcher.OpChmod}
	src.events <- watcher.Event{Path: path, Op: watcher.OpWrite}
	resp = next()
	assert.Equal(t, "reload", resp.Command)
	require.True(t, resp.Success, resp.Message)
	assert.JSONEq(t, `{"version":1}`, string(resp.Body))

	fmt.Fprintln(inW, "text "+strconv.Quote(path))
	resp = next()
	assert.JSONEq(t, `{"text":"let a = 2;\n"}`, string(resp.Body))

	fmt.Fprintln(inW, "quit")
	assert.Equal(t, "quit", next().Command)
	require.NoError(t, <-errc)
	assert.False(t, files.IsTracked(path))
	inW.Close()
}

func TestCommands(t *testing.T) {
	names := Commands()
	assert.Contains(t, names, "navto")
	assert.Contains(t, names, "cancel")
	assert.IsNonDecreasing(t, names)
}
