package session

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/scriptnav/internal/analyzer"
	"github.com/dshills/scriptnav/internal/cancel"
	"github.com/dshills/scriptnav/internal/engine"
	"github.com/dshills/scriptnav/internal/engine/versioncache"
	"github.com/dshills/scriptnav/internal/fuzzy"
	"github.com/dshills/scriptnav/internal/metrics"
	"github.com/dshills/scriptnav/internal/watcher"
)

// Command results recorded in metrics.
const (
	resultOK        = "ok"
	resultError     = "error"
	resultCancelled = "cancelled"
)

// maxLineSize bounds a single command line.
const maxLineSize = 64 << 20

// Session holds the open documents of one client connection.
type Session struct {
	id string

	// docs is touched only by the dispatcher goroutine. paths maps the
	// absolute path of each open file to its document name and is also
	// read by the watcher bridge.
	docs    map[string]*engine.Document
	pathsMu sync.Mutex
	paths   map[string]string

	analyzer   analyzer.Analyzer
	matcher    *fuzzy.Matcher
	maxResults int
	guard      *cancel.Guard
	files      *watcher.Files
	fsys       engine.FileSystem
	cacheOpts  []versioncache.Option

	logger  *slog.Logger
	metrics *metrics.Metrics

	seq   atomic.Int64
	queue chan Request

	outMu sync.Mutex
	out   *json.Encoder
}

// New creates a session.
func New(opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		docs:       make(map[string]*engine.Document),
		paths:      make(map[string]string),
		maxResults: 50,
		fsys:       engine.OSFS{},
		logger:     slog.Default(),
		queue:      make(chan Request, 64),
		out:        json.NewEncoder(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.analyzer == nil {
		s.analyzer = analyzer.NewLexical(s.logger)
	}
	if s.matcher == nil {
		s.matcher = fuzzy.NewMatcher(fuzzy.DefaultOptions(), nil)
	}
	s.logger = s.logger.With(slog.String("component", "session"), slog.String("session", s.id))
	s.guard = cancel.NewGuard(s.logger)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Serve reads commands from r and writes responses to w until the client
// sends quit, r is exhausted, or ctx is done. Commands are executed in
// arrival order by a single dispatcher goroutine.
func (s *Session) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.outMu.Lock()
	s.out = json.NewEncoder(w)
	s.out.SetEscapeHTML(false)
	s.outMu.Unlock()

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.dispatchLoop(ctx, stop)
	})
	if s.files != nil {
		g.Go(func() error {
			return s.files.Run(ctx, func(ev watcher.Event) {
				s.onFileChanged(ctx, ev)
			})
		})
	}

	// The reader may block in Read after ctx is done, so it runs outside
	// the group and is abandoned on shutdown.
	readErr := make(chan error, 1)
	go func() {
		readErr <- s.readLoop(ctx, r)
	}()
	g.Go(func() error {
		select {
		case err := <-readErr:
			return err
		case <-ctx.Done():
			return nil
		}
	})

	s.logger.Info("session started")
	err := g.Wait()
	s.guard.CancelPending()
	s.logger.Info("session ended")
	return err
}

func (s *Session) readLoop(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		req, err := ParseRequest(s.nextSeq(), line)
		if err != nil {
			s.write(Response{Seq: req.Seq, Command: req.Command, Message: err.Error()})
			continue
		}

		switch req.Command {
		case "cancel":
			s.write(s.cancelPending(req))
			continue
		case "quit":
			s.enqueue(ctx, req)
			return nil
		}
		if !s.enqueue(ctx, req) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	s.enqueue(ctx, Request{Seq: s.nextSeq(), Command: "quit"})
	return nil
}

func (s *Session) enqueue(ctx context.Context, req Request) bool {
	select {
	case s.queue <- req:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) dispatchLoop(ctx context.Context, stop context.CancelFunc) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.queue:
			s.write(s.Execute(ctx, req))
			if req.Command == "quit" {
				stop()
				return nil
			}
		}
	}
}

func (s *Session) onFileChanged(ctx context.Context, ev watcher.Event) {
	name, ok := s.nameForPath(ev.Path)
	if !ok {
		return
	}
	s.logger.Debug("open file changed on disk", slog.String("file", name), slog.String("op", ev.Op.String()))
	s.enqueue(ctx, Request{Seq: s.nextSeq(), Command: "reload", Args: []string{name}})
}

func (s *Session) nameForPath(abs string) (string, bool) {
	s.pathsMu.Lock()
	defer s.pathsMu.Unlock()
	name, ok := s.paths[abs]
	return name, ok
}

func (s *Session) nextSeq() int {
	return int(s.seq.Add(1))
}

func (s *Session) write(resp Response) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if err := s.out.Encode(resp); err != nil {
		s.logger.Warn("write response failed", slog.Int("seq", resp.Seq), slog.String("error", err.Error()))
	}
}

// Execute runs one command and returns its response. It must not be
// called concurrently with itself; Serve calls it from one goroutine.
func (s *Session) Execute(ctx context.Context, req Request) Response {
	start := time.Now()
	resp := Response{Seq: req.Seq, Command: req.Command}

	h, ok := handlers[req.Command]
	if !ok {
		if req.Command == "cancel" {
			return s.cancelPending(req)
		}
		resp.Message = ErrUnknownCommand.Error() + ": " + req.Command
		s.metrics.ObserveCommand("unknown", resultError, time.Since(start).Seconds())
		return resp
	}

	body, cancelled, err := h(s, ctx, &args{req: req})
	result := resultOK
	switch {
	case err != nil:
		result = resultError
		resp.Message = err.Error()
		s.logger.Warn("command failed",
			slog.Int("seq", req.Seq),
			slog.String("command", req.Command),
			slog.String("error", err.Error()))
	case cancelled:
		result = resultCancelled
		resp.Cancelled = true
		resp.Message = "operation cancelled"
		s.metrics.IncCancellations()
	default:
		resp.Success = true
		resp.Body = body
	}
	s.metrics.ObserveCommand(req.Command, result, time.Since(start).Seconds())
	return resp
}

func (s *Session) cancelPending(req Request) Response {
	resp := Response{Seq: req.Seq, Command: "cancel", Success: true}
	if s.guard.CancelPending() {
		resp.Message = "cancellation requested"
	} else {
		resp.Message = "nothing to cancel"
	}
	return resp
}
