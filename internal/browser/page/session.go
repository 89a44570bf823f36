// Package page runs the style and layout pipeline of one document. A single
// owning task handles every state change; background tasks load
// stylesheets, fonts and images and report back over one inbound channel.
package page

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/fetch"
	"github.com/xkilldash9x/weblayout/internal/browser/font"
	"github.com/xkilldash9x/weblayout/internal/browser/fontload"
	"github.com/xkilldash9x/weblayout/internal/browser/images"
	"github.com/xkilldash9x/weblayout/internal/browser/layout"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
	"github.com/xkilldash9x/weblayout/internal/browser/style"
	"github.com/xkilldash9x/weblayout/internal/browser/text"
	"github.com/xkilldash9x/weblayout/internal/config"
	"github.com/xkilldash9x/weblayout/internal/observability"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("page: session closed")

// Progress marks a pipeline milestone.
type Progress uint8

const (
	ProgressInitial Progress = iota
	ProgressParsedCSS
	ProgressLayoutGenerated
	ProgressLayoutPerformed
	ProgressPainted
	ProgressReady
)

var progressNames = [...]string{
	ProgressInitial:         "initial",
	ProgressParsedCSS:       "parsed-css",
	ProgressLayoutGenerated: "layout-generated",
	ProgressLayoutPerformed: "layout-performed",
	ProgressPainted:         "painted",
	ProgressReady:           "ready",
}

func (p Progress) String() string {
	if int(p) < len(progressNames) {
		return progressNames[p]
	}
	return "unknown"
}

// Painter draws a laid out tree. It is called on the owning task.
type Painter interface {
	Paint(root *layout.Box) error
}

// Option configures a Session.
type Option func(*Session)

// WithBaseURL sets the URL relative references in the document resolve
// against.
func WithBaseURL(u *url.URL) Option {
	return func(s *Session) { s.baseURL = u }
}

// WithPainter sets the paint collaborator.
func WithPainter(p Painter) Option {
	return func(s *Session) { s.painter = p }
}

// WithProgress registers a callback for pipeline milestones. It runs on the
// owning task and must not block.
func WithProgress(fn func(Progress)) Option {
	return func(s *Session) { s.progress = fn }
}

// WithUserStylesheets adds user origin sheets.
func WithUserStylesheets(sheets ...*parser.Stylesheet) Option {
	return func(s *Session) { s.userSheets = append(s.userSheets, sheets...) }
}

// WithStyleOptions passes options to the session's style engine.
func WithStyleOptions(opts ...style.Option) Option {
	return func(s *Session) { s.styleOpts = append(s.styleOpts, opts...) }
}

// WithFetcher replaces the fetcher built from the fetch configuration.
func WithFetcher(f fetch.Fetcher) Option {
	return func(s *Session) { s.fetcher = f }
}

// WithLogger replaces the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock replaces time.Now for the dirty-state scheduler.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session owns a document and everything derived from it. Only Resize and
// Close may be called while Run or Settle is active.
type Session struct {
	id        string
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger
	cfg       *config.Config
	closeOnce sync.Once

	doc        *dom.Document
	baseURL    *url.URL
	title      string
	userSheets []*parser.Stylesheet
	styleOpts  []style.Option
	sheets     []*sheetSlot
	styles     *style.Engine
	fonts      *font.Provider
	loader     *fontload.Loader
	images     *images.Table
	fetcher    fetch.Fetcher
	painter    Painter
	progress   func(Progress)
	now        func() time.Time

	dirty   *DirtyState
	layout  *layout.Context
	root    *layout.Box
	started bool

	inbox chan message
	tasks errgroup.Group
	// queued holds tasks waiting for a free slot in tasks.
	queued []func(ctx context.Context)
	// inflight counts tasks queued or running.
	inflight atomic.Int64

	errMu sync.Mutex
	errs  error
}

// NewSession prepares doc for layout. Nothing is loaded until Run or
// Settle is called.
func NewSession(cfg *config.Config, doc *dom.Document, opts ...Option) (*Session, error) {
	if doc == nil {
		return nil, errors.New("page: nil document")
	}
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}

	sessionID := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     sessionID,
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		doc:    doc,
		inbox:  make(chan message, max(cfg.Scheduler.InboxSize, 1)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = observability.GetLogger()
	}
	base := s.logger.With(zap.String("session_id", sessionID))
	s.logger = base.Named("page")

	// 1. Style, fonts and fetching.
	styleOpts := append([]style.Option{style.WithEnvironment(style.Environment{
		DefaultFontSize: cfg.Viewport.DefaultFontSize,
		ViewportWidth:   cfg.Viewport.Width,
		ViewportHeight:  cfg.Viewport.Height,
	})}, s.styleOpts...)
	s.styles = style.NewEngine(base, styleOpts...)
	for _, sheet := range s.userSheets {
		s.styles.AddUserSheet(sheet)
	}
	s.fonts = font.NewProvider(base,
		font.WithDirectories(cfg.Fonts.FontDirectories()...),
		font.WithCacheSize(cfg.Fonts.MeasureCacheSize),
		font.WithEmojiFont(cfg.Fonts.EmojiFontPath))
	if s.fetcher == nil {
		s.fetcher = fetch.NewClient(cfg.Fetch, base)
	}
	s.tasks.SetLimit(max(cfg.Fetch.MaxConcurrent, 1))

	// 2. Loaders report back through the inbox.
	s.loader = fontload.New(base, fontload.Options{
		Provider: s.fonts,
		Fetcher:  s.fetcher,
		Spawn:    s.spawn,
		Deliver: func(ctx context.Context, c fontload.Completion) {
			s.post(ctx, fontLoaded{completion: c})
		},
	})
	s.images = images.NewTable(base, s.requestImage)

	// 3. Scheduling and layout.
	s.dirty = NewDirtyState(cfg.Scheduler.CoalesceWindow, s.now)
	s.layout = &layout.Context{
		Document:      doc,
		Styles:        s.styles,
		BaseURL:       s.baseURL,
		Viewport:      text.Size{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height},
		Fonts:         s.fonts,
		Images:        s.images,
		Breaker:       text.NewBreaker(base),
		Log:           base,
		Language:      s.defaultLanguage(),
		DefaultFamily: cfg.Fonts.DefaultFamily,
		EmojiFamily:   cfg.Fonts.EmojiFamily,
	}

	s.logger.Debug("Session created", zap.Stringer("base_url", urlOrEmpty(s.baseURL)))
	return s, nil
}

func (s *Session) defaultLanguage() language.Tag {
	if s.cfg.Fonts.Language == "" {
		return language.Und
	}
	tag, err := language.Parse(s.cfg.Fonts.Language)
	if err != nil {
		s.logger.Warn("Ignoring invalid default language", zap.String("language", s.cfg.Fonts.Language), zap.Error(err))
		return language.Und
	}
	return tag
}

// ID returns the unique ID of the session.
func (s *Session) ID() string { return s.id }

// Title returns the text of the document's first title element.
func (s *Session) Title() string { return s.title }

// Document returns the document the session lays out.
func (s *Session) Document() *dom.Document { return s.doc }

// Root returns the current layout tree, nil before the first generation.
func (s *Session) Root() *layout.Box { return s.root }

// Snapshot copies the current layout tree.
func (s *Session) Snapshot() *layout.Snapshot {
	if s.root == nil {
		return nil
	}
	return layout.Snap(s.root, s.doc)
}

// Phase returns the pending pipeline phase.
func (s *Session) Phase() Phase { return s.dirty.Phase() }

// -- Owning task --

// Run drives the session until ctx ends or the session is closed.
func (s *Session) Run(ctx context.Context) error {
	return s.loop(ctx, nil)
}

// Settle drives the session until the document is painted and no
// background load is outstanding, bounded by the configured settle timeout.
func (s *Session) Settle(ctx context.Context) error {
	if t := s.cfg.Scheduler.SettleTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	if err := s.loop(ctx, s.settled); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	s.notify(ProgressReady)
	return nil
}

func (s *Session) settled() bool {
	return s.dirty.Phase() == PhaseReady && s.inflight.Load() == 0 && len(s.inbox) == 0
}

func (s *Session) loop(ctx context.Context, done func() bool) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	s.start()

	poll := s.cfg.Scheduler.PollInterval
	if poll <= 0 {
		poll = time.Millisecond
	}
	timer := time.NewTimer(poll)
	defer timer.Stop()

	for {
		s.startQueued()
		s.flush()
		if done != nil && done() {
			return nil
		}

		timer.Reset(poll)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return ErrClosed
		case msg := <-s.inbox:
			s.handle(msg)
		case <-timer.C:
		}
	}
}

// Resize changes the viewport. It may be called from any goroutine.
func (s *Session) Resize(ctx context.Context, width, height float64) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case s.inbox <- viewportResized{size: text.Size{Width: width, Height: height}}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// Close stops background loads and waits for them. It returns the errors
// collected while the session ran.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing session", zap.Int64("inflight", s.inflight.Load()))
		s.cancel()
		s.queued = nil
		err = s.tasks.Wait()

		s.errMu.Lock()
		err = multierr.Append(err, s.errs)
		s.errs = nil
		s.errMu.Unlock()
	})
	return err
}

func (s *Session) recordError(err error) {
	s.errMu.Lock()
	s.errs = multierr.Append(s.errs, err)
	s.errMu.Unlock()
}

func (s *Session) notify(p Progress) {
	s.logger.Debug("Progress", zap.Stringer("progress", p))
	if s.progress != nil {
		s.progress(p)
	}
}

// -- Background tasks --

// spawn queues task to run in the background. It never blocks, so the
// owning task can call it from any handler.
func (s *Session) spawn(task func(ctx context.Context)) {
	s.inflight.Add(1)
	s.queued = append(s.queued, task)
}

func (s *Session) startQueued() {
	for len(s.queued) > 0 {
		task := s.queued[0]
		started := s.tasks.TryGo(func() error {
			defer s.inflight.Add(-1)
			task(s.ctx)
			return nil
		})
		if !started {
			return
		}
		s.queued[0] = nil
		s.queued = s.queued[1:]
	}
}

// post hands a result to the owning task. Results arriving after Close are
// dropped.
func (s *Session) post(ctx context.Context, m message) {
	select {
	case s.inbox <- m:
	case <-ctx.Done():
		s.logger.Debug("Dropped background result", zap.String("message", fmt.Sprintf("%T", m)), zap.Error(ctx.Err()))
	}
}

func urlOrEmpty(u *url.URL) fmt.Stringer {
	if u == nil {
		return &url.URL{}
	}
	return u
}
