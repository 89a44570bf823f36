// internal/browser/page/pipeline.go
package page

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/font"
	"github.com/xkilldash9x/weblayout/internal/browser/fontload"
	"github.com/xkilldash9x/weblayout/internal/browser/images"
	"github.com/xkilldash9x/weblayout/internal/browser/layout"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
	"github.com/xkilldash9x/weblayout/internal/browser/text"
)

// maxImportDepth bounds @import chains, which may be cyclic.
const maxImportDepth = 8

// message is a result posted to the owning task.
type message interface {
	isMessage()
}

type stylesheetLoaded struct {
	slot  *sheetSlot
	url   *url.URL
	sheet *parser.Stylesheet
	err   error
}

type fontLoaded struct {
	completion fontload.Completion
}

type imageLoaded struct {
	url   *url.URL
	image *images.Image
	err   error
}

type viewportResized struct {
	size text.Size
}

func (stylesheetLoaded) isMessage() {}
func (fontLoaded) isMessage()       {}
func (imageLoaded) isMessage()      {}
func (viewportResized) isMessage()  {}

func (s *Session) handle(msg message) {
	switch m := msg.(type) {
	case stylesheetLoaded:
		s.stylesheetLoaded(m)
	case fontLoaded:
		res := s.loader.ProcessLoadState(m.completion)
		if res.RerunRegistration {
			s.registerFonts()
			s.loader.ProcessEnqueued(s.styles.FontFaces())
			s.dirty.Request(PhaseGenerateLayoutTree)
		}
		if res.RerunLayout {
			s.dirty.Request(PhaseLayout)
		}
	case imageLoaded:
		if s.images.Resolve(m.url, m.image, m.err) {
			s.dirty.Request(PhaseGenerateLayoutTree)
		}
	case viewportResized:
		env := s.styles.Environment()
		env.ViewportWidth, env.ViewportHeight = m.size.Width, m.size.Height
		s.styles.SetEnvironment(env)
		s.layout.Viewport = m.size
		s.logger.Debug("Viewport resized", zap.Float64("width", m.size.Width), zap.Float64("height", m.size.Height))
		s.dirty.Request(PhaseGenerateLayoutTree)
	}
}

// flush cleans the pending phase once the scheduler says it may not wait.
func (s *Session) flush() {
	if !s.dirty.MustActNow() {
		return
	}
	if s.dirty.Phase() == PhaseGenerateLayoutTree {
		s.generateLayoutTree()
		s.dirty.MarkLayoutTreeGenerated()
	}
	if s.dirty.Phase() == PhaseLayout {
		layout.Relayout(s.layout, s.root)
		s.notify(ProgressLayoutPerformed)
		s.dirty.MarkLayedOut()
	}
	if s.dirty.Phase() == PhasePaint {
		s.paint()
		s.dirty.MarkPainted()
	}
}

func (s *Session) generateLayoutTree() {
	s.root = layout.Generate(s.layout)
	s.notify(ProgressLayoutGenerated)

	s.registerFonts()
	s.loader.ProcessEnqueued(s.styles.FontFaces())
	s.notify(ProgressLayoutPerformed)
}

func (s *Session) paint() {
	if s.painter != nil {
		if err := s.painter.Paint(s.root); err != nil {
			s.logger.Error("Paint failed", zap.Error(err))
			s.recordError(fmt.Errorf("paint: %w", err))
			return
		}
	}
	s.notify(ProgressPainted)
}

// registerFonts asks the loader for every font-family list in the tree.
func (s *Session) registerFonts() {
	if s.root == nil {
		return
	}
	s.root.Walk(func(b *layout.Box) bool {
		if b.Kind != layout.KindNormal {
			return true
		}
		families := b.Style.FontFamilies()
		if len(families) == 0 {
			return true
		}
		weight := font.Weight(b.Style.FontWeight())
		slant := font.ParseStyle(b.Style.FontStyle())
		s.loader.Register(families, weight, slant, b.FontDescriptor)
		return true
	})
}

// -- Document resources --

// start reads the resources the document declares. It runs once, on the
// first call to Run or Settle.
func (s *Session) start() {
	if s.started {
		return
	}
	s.started = true
	s.notify(ProgressInitial)

	for node := range s.doc.Descendants(s.doc.Root()) {
		switch s.doc.ElementKind(node) {
		case dom.Style:
			slot := &sheetSlot{}
			s.sheets = append(s.sheets, slot)
			sheet := parser.NewParser(s.logger).Parse([]byte(s.doc.TextContent(node)), parser.OriginAuthor)
			sheet.BaseURL = s.baseURL
			s.setSheet(slot, sheet)
		case dom.Link:
			u, ok := s.stylesheetLink(node)
			if !ok {
				continue
			}
			slot := &sheetSlot{}
			s.sheets = append(s.sheets, slot)
			s.loadSheet(slot, u)
		default:
			if s.title == "" && s.doc.TagName(node) == "title" {
				s.title = strings.Join(strings.Fields(s.doc.TextContent(node)), " ")
			}
		}
	}
	s.applyAuthorSheets()
	s.notify(ProgressParsedCSS)
}

func (s *Session) stylesheetLink(node dom.NodeID) (*url.URL, bool) {
	rel, _ := s.doc.Attr(node, "rel")
	if !containsToken(rel, "stylesheet") || containsToken(rel, "alternate") {
		return nil, false
	}
	href, ok := s.doc.Attr(node, "href")
	if !ok || strings.TrimSpace(href) == "" {
		return nil, false
	}
	return s.resolve(s.baseURL, strings.TrimSpace(href))
}

func containsToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

func (s *Session) resolve(base *url.URL, ref string) (*url.URL, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		s.logger.Warn("Ignoring malformed URL", zap.String("url", ref), zap.Error(err))
		return nil, false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		s.logger.Warn("Ignoring relative URL without a base", zap.String("url", ref))
		return nil, false
	}
	return u, true
}

// sheetSlot holds the place of a stylesheet in document order while it
// loads. Imported sheets precede the sheet that imports them.
type sheetSlot struct {
	sheet   *parser.Stylesheet
	imports []*sheetSlot
	depth   int
}

func (sl *sheetSlot) flatten(out []*parser.Stylesheet) []*parser.Stylesheet {
	for _, imp := range sl.imports {
		out = imp.flatten(out)
	}
	if sl.sheet != nil {
		out = append(out, sl.sheet)
	}
	return out
}

func (s *Session) applyAuthorSheets() {
	var sheets []*parser.Stylesheet
	for _, slot := range s.sheets {
		sheets = slot.flatten(sheets)
	}
	s.styles.SetAuthorSheets(sheets)
}

func (s *Session) setSheet(slot *sheetSlot, sheet *parser.Stylesheet) {
	slot.sheet = sheet
	for _, target := range sheet.Imports {
		if slot.depth >= maxImportDepth {
			s.logger.Warn("Ignoring @import nested too deeply", zap.String("url", target))
			continue
		}
		u, ok := s.resolve(sheet.BaseURL, target)
		if !ok {
			continue
		}
		child := &sheetSlot{depth: slot.depth + 1}
		slot.imports = append(slot.imports, child)
		s.loadSheet(child, u)
	}
}

func (s *Session) loadSheet(slot *sheetSlot, u *url.URL) {
	s.spawn(func(ctx context.Context) {
		resp, err := s.fetcher.Fetch(ctx, u)
		if err != nil {
			s.post(ctx, stylesheetLoaded{slot: slot, url: u, err: err})
			return
		}
		sheet := parser.NewParser(s.logger).Parse(resp.Body, parser.OriginAuthor)
		sheet.BaseURL = u
		if resp.URL != nil {
			sheet.BaseURL = resp.URL
		}
		s.post(ctx, stylesheetLoaded{slot: slot, url: u, sheet: sheet})
	})
}

func (s *Session) stylesheetLoaded(m stylesheetLoaded) {
	if m.err != nil {
		s.logger.Warn("Stylesheet failed to load", zap.String("url", m.url.String()), zap.Error(m.err))
		return
	}
	s.logger.Debug("Stylesheet loaded", zap.String("url", m.url.String()), zap.Int("rules", len(m.sheet.Rules)))
	s.setSheet(m.slot, m.sheet)
	s.applyAuthorSheets()
	s.notify(ProgressParsedCSS)
	s.dirty.Request(PhaseGenerateLayoutTree)
}

// requestImage is called by the image table the first time layout asks
// for u.
func (s *Session) requestImage(u *url.URL) {
	s.spawn(func(ctx context.Context) {
		img, err := images.Load(ctx, s.fetcher, u)
		s.post(ctx, imageLoaded{url: u, image: img, err: err})
	})
}
