// Package fontload decides which faces a document needs and loads them in
// the background, from the system or from @font-face sources.
package fontload

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/weblayout/internal/browser/fetch"
	"github.com/xkilldash9x/weblayout/internal/browser/font"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
	"github.com/xkilldash9x/weblayout/internal/browser/style"
)

// State is the loading state of one descriptor.
type State uint8

const (
	StateInitial State = iota + 1
	StateLoadingLocal
	StateInvalidLocalReference
	StateTryLoadRemote
	StateLoadingRemote
	StateInvalidRemoteReference
	StateLoaded
)

var stateNames = [...]string{
	StateInitial:                "initial",
	StateLoadingLocal:           "loading-local",
	StateInvalidLocalReference:  "invalid-local-reference",
	StateTryLoadRemote:          "try-load-remote",
	StateLoadingRemote:          "loading-remote",
	StateInvalidRemoteReference: "invalid-remote-reference",
	StateLoaded:                 "loaded",
}

func (s State) String() string {
	if s > 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "absent"
}

// basicLatin is the range a face must cover to be useful for layout.
var basicLatin = parser.UnicodeRange{Lo: 0x0000, Hi: 0x007F}

// Completion is what a background load reports back to the owning task.
type Completion struct {
	Descriptor font.Descriptor
	State      State
	// Remote is set for loads started from an @font-face rule.
	Remote bool
}

// LoadResult tells the owner which pass must run again.
type LoadResult struct {
	RerunLayout       bool
	RerunRegistration bool
}

// Options wires the loader to its environment.
type Options struct {
	Provider *font.Provider
	Fetcher  fetch.Fetcher
	// Spawn runs task in the background. It must not block.
	Spawn func(task func(ctx context.Context))
	// Deliver hands a completion to the owning task.
	Deliver func(ctx context.Context, c Completion)
}

// Loader tracks descriptor states. Its methods must only be called from
// the owning task; background loads report through Options.Deliver.
type Loader struct {
	log    *zap.Logger
	opts   Options
	states map[font.Descriptor]State
}

// New creates a loader.
func New(log *zap.Logger, opts Options) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{log: log.Named("fontload"), opts: opts, states: make(map[font.Descriptor]State)}
}

// State returns the state of desc, or zero when it was never registered.
func (l *Loader) State(desc font.Descriptor) State {
	return l.states[desc]
}

// Register walks families in order and enqueues the first one that has
// not been tried yet. current is the descriptor the box already renders
// with.
func (l *Loader) Register(families []string, weight font.Weight, fontStyle font.Style, current font.Descriptor) {
	for _, family := range families {
		desc := font.NewDescriptor(family, weight, fontStyle)
		if desc == current {
			return
		}
		switch l.states[desc] {
		case StateInitial, StateTryLoadRemote:
			return
		case StateLoadingLocal, StateLoadingRemote, StateInvalidLocalReference, StateInvalidRemoteReference:
			continue
		case StateLoaded:
			return
		default:
			l.states[desc] = StateInitial
			l.log.Debug("Font enqueued", zap.Stringer("descriptor", desc))
			return
		}
	}
}

// ProcessEnqueued starts loads for enqueued descriptors, preferring a
// matching @font-face rule over the system.
func (l *Loader) ProcessEnqueued(faces []style.FontFace) {
	descs := make([]font.Descriptor, 0, len(l.states))
	for d := range l.states {
		descs = append(descs, d)
	}
	slices.SortFunc(descs, func(a, b font.Descriptor) int {
		return cmp.Compare(a.String(), b.String())
	})

	for _, desc := range descs {
		switch l.states[desc] {
		case StateInvalidLocalReference, StateLoadingLocal:
			if _, ok := l.match(desc, faces); ok {
				l.states[desc] = StateTryLoadRemote
			}
		}
	}

	for _, desc := range descs {
		switch l.states[desc] {
		case StateInitial:
			if face, ok := l.match(desc, faces); ok {
				l.startRemote(desc, face)
			} else {
				l.startLocal(desc)
			}
		case StateTryLoadRemote:
			if face, ok := l.match(desc, faces); ok {
				l.startRemote(desc, face)
			}
		}
	}
}

// ProcessLoadState applies a completion. Results for a descriptor that has
// moved on since the load started are ignored.
func (l *Loader) ProcessLoadState(c Completion) LoadResult {
	want := StateLoadingLocal
	if c.Remote {
		want = StateLoadingRemote
	}
	if cur := l.states[c.Descriptor]; cur != want {
		l.log.Debug("Stale font load result ignored",
			zap.Stringer("descriptor", c.Descriptor),
			zap.Stringer("state", c.State),
			zap.Stringer("current", cur))
		return LoadResult{}
	}
	l.states[c.Descriptor] = c.State
	switch c.State {
	case StateLoaded:
		return LoadResult{RerunLayout: true}
	case StateInvalidLocalReference, StateInvalidRemoteReference:
		return LoadResult{RerunRegistration: true}
	}
	return LoadResult{}
}

// match returns the last rule that applies to desc, so later rules win.
func (l *Loader) match(desc font.Descriptor, faces []style.FontFace) (style.FontFace, bool) {
	var (
		found style.FontFace
		ok    bool
	)
	for _, f := range faces {
		if f.Rule == nil || !strings.EqualFold(strings.TrimSpace(f.Rule.Family), desc.Family) {
			continue
		}
		if reason := mismatch(f.Rule, desc); reason != "" {
			l.log.Debug("@font-face rule does not match",
				zap.Stringer("descriptor", desc),
				zap.String("reason", reason))
			continue
		}
		found, ok = f, true
	}
	return found, ok
}

func mismatch(r *parser.FontFaceRule, desc font.Descriptor) string {
	if r.Style != "" && font.ParseStyle(r.Style) != desc.Style {
		return "font-style " + r.Style
	}
	if r.Weight != nil && !r.Weight.Contains(int(desc.Weight)) {
		return fmt.Sprintf("font-weight %d-%d", r.Weight.Min, r.Weight.Max)
	}
	if len(r.UnicodeRanges) > 0 && !slices.ContainsFunc(r.UnicodeRanges, basicLatin.Intersects) {
		return "unicode-range outside Basic Latin"
	}
	return ""
}

func (l *Loader) startLocal(desc font.Descriptor) {
	l.states[desc] = StateLoadingLocal
	l.log.Debug("Loading system font", zap.Stringer("descriptor", desc))
	l.spawn(func(ctx context.Context) {
		state := StateLoaded
		if _, err := l.opts.Provider.LoadFromSystem(desc); err != nil {
			l.log.Debug("System font unavailable", zap.Stringer("descriptor", desc), zap.Error(err))
			state = StateInvalidLocalReference
		}
		l.deliver(ctx, Completion{Descriptor: desc, State: state})
	})
}

func (l *Loader) startRemote(desc font.Descriptor, face style.FontFace) {
	l.states[desc] = StateLoadingRemote
	l.log.Debug("Loading @font-face", zap.Stringer("descriptor", desc), zap.Int("sources", len(face.Rule.Sources)))
	sources := slices.Clone(face.Rule.Sources)
	base := face.BaseURL
	l.spawn(func(ctx context.Context) {
		state := StateInvalidRemoteReference
		if l.loadRemote(ctx, desc, sources, base) {
			state = StateLoaded
		}
		l.deliver(ctx, Completion{Descriptor: desc, State: state, Remote: true})
	})
}

// loadRemote tries each source in order and stops at the first success.
func (l *Loader) loadRemote(ctx context.Context, desc font.Descriptor, sources []parser.FontSource, base *url.URL) bool {
	for _, src := range sources {
		if ctx.Err() != nil {
			return false
		}
		if src.IsLocal() {
			face, err := l.opts.Provider.LoadFromSystem(desc.WithFamily(src.Local))
			if err != nil {
				l.log.Debug("local() source unavailable", zap.String("name", src.Local), zap.Error(err))
				continue
			}
			l.opts.Provider.Alias(desc, face)
			return true
		}
		if src.Format != "" {
			switch font.ParseFormat(src.Format) {
			case font.FormatSVG, font.FormatEmbeddedOpenType, font.FormatCollection:
				continue
			}
		}
		u, err := resolve(base, src.URL)
		if err != nil {
			l.log.Warn("Invalid font URL", zap.String("url", src.URL), zap.Error(err))
			continue
		}
		if l.opts.Fetcher == nil {
			continue
		}
		resp, err := l.opts.Fetcher.Fetch(ctx, u)
		if err != nil {
			l.log.Warn("Font download failed", zap.Stringer("url", u), zap.Error(err))
			continue
		}
		if _, err := l.opts.Provider.LoadFromBytes(desc, resp.Body, u.String()); err != nil {
			l.log.Warn("Font rejected", zap.Stringer("url", u), zap.Error(err))
			continue
		}
		return true
	}
	return false
}

func resolve(base *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("relative URL %q without a base", ref)
	}
	return u, nil
}

func (l *Loader) spawn(task func(ctx context.Context)) {
	if l.opts.Spawn == nil {
		go task(context.Background())
		return
	}
	l.opts.Spawn(task)
}

func (l *Loader) deliver(ctx context.Context, c Completion) {
	if l.opts.Deliver != nil {
		l.opts.Deliver(ctx, c)
	}
}
