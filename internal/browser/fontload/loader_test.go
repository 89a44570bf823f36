// internal/browser/fontload/loader_test.go
package fontload

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/xkilldash9x/weblayout/internal/browser/fetch"
	"github.com/xkilldash9x/weblayout/internal/browser/font"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
	"github.com/xkilldash9x/weblayout/internal/browser/style"
)

type countingFetcher struct {
	mu   sync.Mutex
	urls []string
	body map[string][]byte
}

func (f *countingFetcher) Fetch(_ context.Context, u *url.URL) (*fetch.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, u.String())
	body, ok := f.body[u.String()]
	if !ok {
		return nil, &fetch.Error{URL: u.String(), StatusCode: 404, Err: errors.New("not found")}
	}
	return &fetch.Response{URL: u, Body: body}, nil
}

// harness queues spawned tasks so tests decide when they run.
type harness struct {
	loader    *Loader
	provider  *font.Provider
	fetcher   *countingFetcher
	tasks     []func(ctx context.Context)
	completed []Completion
}

func newHarness(t *testing.T) *harness {
	h := &harness{fetcher: &countingFetcher{body: map[string][]byte{}}}
	log := zaptest.NewLogger(t)
	h.provider = font.NewProvider(log, font.WithDirectories(t.TempDir()))
	h.loader = New(log, Options{
		Provider: h.provider,
		Fetcher:  h.fetcher,
		Spawn:    func(task func(ctx context.Context)) { h.tasks = append(h.tasks, task) },
		Deliver:  func(_ context.Context, c Completion) { h.completed = append(h.completed, c) },
	})
	return h
}

// drain runs queued tasks and returns their completions.
func (h *harness) drain() []Completion {
	for len(h.tasks) > 0 {
		task := h.tasks[0]
		h.tasks = h.tasks[1:]
		task(context.Background())
	}
	out := h.completed
	h.completed = nil
	return out
}

func desc(family string) font.Descriptor {
	return font.NewDescriptor(family, font.WeightNormal, font.StyleNormal)
}

func webFace(base string, sources ...parser.FontSource) style.FontFace {
	u, _ := url.Parse(base)
	return style.FontFace{
		Rule:    &parser.FontFaceRule{Family: "Webby", Sources: sources},
		BaseURL: u,
	}
}

func TestRegisterWalksFamilies(t *testing.T) {
	h := newHarness(t)
	l := h.loader
	families := []string{"Alpha", "Beta", "serif"}

	l.Register(families, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	assert.Equal(t, StateInitial, l.State(desc("alpha")))
	assert.Zero(t, l.State(desc("beta")), "registration stops at the first enqueued family")

	l.Register(families, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	assert.Zero(t, l.State(desc("beta")), "an initial entry is pending")

	l.states[desc("alpha")] = StateLoadingLocal
	l.Register(families, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	assert.Equal(t, StateInitial, l.State(desc("beta")))

	l.states[desc("beta")] = StateInvalidRemoteReference
	l.Register(families, font.WeightNormal, font.StyleNormal, desc("serif"))
	assert.Zero(t, l.State(desc("serif")), "the current face is not registered again")

	l.Register([]string{"Gamma"}, font.WeightNormal, font.StyleNormal, desc("gamma"))
	assert.Zero(t, l.State(desc("gamma")))

	l.states[desc("delta")] = StateLoaded
	l.Register([]string{"Delta", "Epsilon"}, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	assert.Zero(t, l.State(desc("epsilon")), "a loaded family ends the walk")
}

func TestSystemLoad(t *testing.T) {
	h := newHarness(t)
	l := h.loader

	l.Register([]string{"sans-serif"}, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	l.ProcessEnqueued(nil)
	assert.Equal(t, StateLoadingLocal, l.State(desc("sans-serif")))

	done := h.drain()
	require.Len(t, done, 1)
	assert.False(t, done[0].Remote)
	assert.Equal(t, LoadResult{RerunLayout: true}, l.ProcessLoadState(done[0]))
	assert.Equal(t, StateLoaded, l.State(desc("sans-serif")))
	_, ok := h.provider.Get(desc("sans-serif"))
	assert.True(t, ok)
	assert.Empty(t, h.fetcher.urls)
}

func TestSystemLoadFailureFallsThrough(t *testing.T) {
	h := newHarness(t)
	l := h.loader
	families := []string{"No Such Family", "monospace"}

	l.Register(families, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	l.ProcessEnqueued(nil)
	done := h.drain()
	require.Len(t, done, 1)
	assert.Equal(t, StateInvalidLocalReference, done[0].State)
	assert.Equal(t, LoadResult{RerunRegistration: true}, l.ProcessLoadState(done[0]))

	l.Register(families, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	assert.Equal(t, StateInitial, l.State(desc("monospace")))
}

func TestRemoteLoadFetchesOnce(t *testing.T) {
	h := newHarness(t)
	l := h.loader
	h.fetcher.body["https://example.com/css/fonts/webby.ttf"] = goregular.TTF
	faces := []style.FontFace{webFace("https://example.com/css/site.css",
		parser.FontSource{URL: "fonts/webby.svg", Format: "svg"},
		parser.FontSource{URL: "fonts/webby.eot", Format: "embedded-opentype"},
		parser.FontSource{URL: "fonts/webby.ttf", Format: "truetype"},
	)}

	for range 2 {
		l.Register([]string{"webby", "serif"}, font.WeightNormal, font.StyleNormal, font.Descriptor{})
		l.ProcessEnqueued(faces)
	}
	assert.Equal(t, StateLoadingRemote, l.State(desc("webby")))
	assert.Equal(t, StateLoadingLocal, l.State(desc("serif")), "the next family loads while the remote load runs")

	done := h.drain()
	assert.Equal(t, []string{"https://example.com/css/fonts/webby.ttf"}, h.fetcher.urls)
	var remote Completion
	for _, c := range done {
		if c.Remote {
			remote = c
		}
	}
	assert.Equal(t, StateLoaded, remote.State)
	assert.Equal(t, LoadResult{RerunLayout: true}, l.ProcessLoadState(remote))

	face, ok := h.provider.Get(desc("webby"))
	require.True(t, ok)
	assert.Equal(t, "https://example.com/css/fonts/webby.ttf", face.Source())
}

func TestRemoteLoadTriesSourcesInOrder(t *testing.T) {
	h := newHarness(t)
	l := h.loader
	h.fetcher.body["https://cdn.example.com/b.ttf"] = goregular.TTF
	faces := []style.FontFace{webFace("https://example.com/",
		parser.FontSource{URL: "https://cdn.example.com/a.woff2"},
		parser.FontSource{URL: "https://cdn.example.com/b.ttf"},
		parser.FontSource{URL: "https://cdn.example.com/c.ttf"},
	)}

	l.Register([]string{"Webby"}, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	l.ProcessEnqueued(faces)
	done := h.drain()
	require.Len(t, done, 1)
	assert.Equal(t, StateLoaded, done[0].State)
	assert.Equal(t, []string{"https://cdn.example.com/a.woff2", "https://cdn.example.com/b.ttf"}, h.fetcher.urls)
}

func TestRemoteLoadLocalSource(t *testing.T) {
	h := newHarness(t)
	l := h.loader
	faces := []style.FontFace{webFace("https://example.com/",
		parser.FontSource{Local: "Missing Face"},
		parser.FontSource{Local: "monospace"},
	)}

	l.Register([]string{"Webby"}, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	l.ProcessEnqueued(faces)
	done := h.drain()
	require.Len(t, done, 1)
	assert.Equal(t, LoadResult{RerunLayout: true}, l.ProcessLoadState(done[0]))

	face, ok := h.provider.Get(desc("webby"))
	require.True(t, ok)
	assert.Equal(t, "go mono", face.Family())
	assert.Empty(t, h.fetcher.urls)
}

func TestRemoteLoadFailure(t *testing.T) {
	h := newHarness(t)
	l := h.loader
	h.fetcher.body["https://example.com/junk.ttf"] = []byte("not a font at all")
	faces := []style.FontFace{webFace("https://example.com/",
		parser.FontSource{URL: "junk.ttf"},
		parser.FontSource{URL: "gone.woff"},
	)}

	l.Register([]string{"Webby", "serif"}, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	l.ProcessEnqueued(faces)
	done := h.drain()
	require.Len(t, done, 1)
	assert.Equal(t, StateInvalidRemoteReference, done[0].State)
	assert.Equal(t, LoadResult{RerunRegistration: true}, l.ProcessLoadState(done[0]))
	assert.Len(t, h.fetcher.urls, 2)

	l.Register([]string{"Webby", "serif"}, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	assert.Equal(t, StateInitial, l.State(desc("serif")))
}

func TestLateFontFaceIgnoresStaleLocalResult(t *testing.T) {
	h := newHarness(t)
	l := h.loader
	h.fetcher.body["https://example.com/webby.ttf"] = goregular.TTF

	l.Register([]string{"Webby"}, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	l.ProcessEnqueued(nil)
	require.Equal(t, StateLoadingLocal, l.State(desc("webby")))

	// A stylesheet declaring the face arrives while the system lookup runs.
	l.ProcessEnqueued([]style.FontFace{webFace("https://example.com/", parser.FontSource{URL: "webby.ttf"})})
	assert.Equal(t, StateLoadingRemote, l.State(desc("webby")))

	done := h.drain()
	require.Len(t, done, 2)
	assert.False(t, done[0].Remote)
	assert.Equal(t, StateInvalidLocalReference, done[0].State)
	assert.Equal(t, LoadResult{}, l.ProcessLoadState(done[0]))
	assert.Equal(t, StateLoadingRemote, l.State(desc("webby")))

	assert.Equal(t, LoadResult{RerunLayout: true}, l.ProcessLoadState(done[1]))
	assert.Equal(t, StateLoaded, l.State(desc("webby")))
}

func TestInvalidLocalRetriesRemote(t *testing.T) {
	h := newHarness(t)
	l := h.loader
	h.fetcher.body["https://example.com/webby.ttf"] = goregular.TTF

	l.Register([]string{"Webby"}, font.WeightNormal, font.StyleNormal, font.Descriptor{})
	l.ProcessEnqueued(nil)
	done := h.drain()
	l.ProcessLoadState(done[0])
	require.Equal(t, StateInvalidLocalReference, l.State(desc("webby")))

	l.ProcessEnqueued([]style.FontFace{webFace("https://example.com/", parser.FontSource{URL: "webby.ttf"})})
	assert.Equal(t, StateLoadingRemote, l.State(desc("webby")))
	done = h.drain()
	require.Len(t, done, 1)
	assert.Equal(t, LoadResult{RerunLayout: true}, l.ProcessLoadState(done[0]))
}

func TestFontFaceMatching(t *testing.T) {
	h := newHarness(t)
	l := h.loader
	rule := func(mod func(r *parser.FontFaceRule)) []style.FontFace {
		r := &parser.FontFaceRule{Family: "Webby"}
		mod(r)
		return []style.FontFace{{Rule: r}}
	}
	tests := []struct {
		name  string
		faces []style.FontFace
		want  bool
	}{
		{"family case-insensitive", rule(func(r *parser.FontFaceRule) { r.Family = "WEBBY" }), true},
		{"other family", rule(func(r *parser.FontFaceRule) { r.Family = "Other" }), false},
		{"style matches", rule(func(r *parser.FontFaceRule) { r.Style = "normal" }), true},
		{"style differs", rule(func(r *parser.FontFaceRule) { r.Style = "italic" }), false},
		{"weight range", rule(func(r *parser.FontFaceRule) { r.Weight = &parser.WeightRange{Min: 300, Max: 500} }), true},
		{"weight outside", rule(func(r *parser.FontFaceRule) { r.Weight = &parser.WeightRange{Min: 700, Max: 900} }), false},
		{"basic latin", rule(func(r *parser.FontFaceRule) {
			r.UnicodeRanges = []parser.UnicodeRange{{Lo: 0x400, Hi: 0x4FF}, {Lo: 0x20, Hi: 0x30}}
		}), true},
		{"cyrillic only", rule(func(r *parser.FontFaceRule) {
			r.UnicodeRanges = []parser.UnicodeRange{{Lo: 0x400, Hi: 0x4FF}}
		}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := l.match(desc("webby"), tt.faces)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "try-load-remote", StateTryLoadRemote.String())
	assert.Equal(t, "absent", State(0).String())
}
