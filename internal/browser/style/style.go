// internal/browser/style/style.go
package style

import (
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
)

// -- Constants and Configuration --

// DefaultUserAgentCSS is the built-in user agent stylesheet. It only uses
// what the parser and cascade support.
const DefaultUserAgentCSS = `
html, body, div, p, h1, h2, h3, h4, h5, h6, ul, ol, form, header, footer,
section, article, aside, nav, main, address, blockquote, figure, figcaption,
fieldset, dl, dt, dd, hr, pre, center, details, summary, legend {
    display: block;
}

head, style, script, link, meta, title, template, noscript, base, area, datalist, param {
    display: none;
}

span, a, b, strong, i, em, cite, var, dfn, code, kbd, samp, tt, small, big,
sub, sup, label, abbr, acronym, q, s, u, mark, time, br, font, bdi, bdo, data,
ruby, rt, wbr, img, svg, picture, video, canvas, iframe, object, embed {
    display: inline;
}

[hidden] { display: none; }

html { color: black; font-family: serif; font-size: medium; }

body { margin: 8px; }

/* Typography */
h1 { font-size: 2em; font-weight: bold; margin: 0.67em 0; }
h2 { font-size: 1.5em; font-weight: bold; margin: 0.83em 0; }
h3 { font-size: 1.17em; font-weight: bold; margin: 1em 0; }
h4 { font-weight: bold; margin: 1.33em 0; }
h5 { font-size: 0.83em; font-weight: bold; margin: 1.67em 0; }
h6 { font-size: 0.67em; font-weight: bold; margin: 2.33em 0; }
p, blockquote, figure, dl, pre { margin: 1em 0; }
blockquote, figure { margin-left: 40px; margin-right: 40px; }
dd { margin-left: 40px; }
b, strong, th { font-weight: bold; }
i, em, cite, var, dfn, address { font-style: italic; }
pre, code, kbd, samp, tt { font-family: monospace; }
pre { white-space: pre; }
small { font-size: smaller; }
big { font-size: larger; }
center { text-align: center; }
hr { border: 1px inset gray; margin: 0.5em 0; }

/* Lists */
ul, ol { padding-left: 40px; margin: 1em 0; }
li { display: list-item; }

/* Form elements */
input, button, textarea, select {
    display: inline-block;
    margin: 2px 0;
    padding: 1px 2px;
    border-width: 1px;
    border-style: solid;
    border-color: #767676;
    font-size: 13.333px;
    line-height: normal;
}

input[type="checkbox"], input[type="radio"] {
    padding: 0;
    margin: 3px;
    border: none;
}

button, input[type="submit"], input[type="button"], input[type="reset"] {
    padding: 1px 6px;
    text-align: center;
}

input[type="hidden"] { display: none; }

a:link { color: #0000ee; }
`

var userAgentSheet = sync.OnceValue(func() *parser.Stylesheet {
	return parser.Parse([]byte(DefaultUserAgentCSS), parser.OriginUserAgent)
})

// UserAgentStylesheet returns the parsed built-in sheet. It is shared and
// must not be modified.
func UserAgentStylesheet() *parser.Stylesheet { return userAgentSheet() }

// -- Style Engine --

// Engine owns the stylesheets of a document and computes node styles from
// them. It is not safe for concurrent use.
type Engine struct {
	log           *zap.Logger
	userSheets    []*parser.Stylesheet
	authorSheets  []*parser.Stylesheet
	env           Environment
	media         parser.MediaEnv
	bySpecificity bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithEnvironment sets the viewport and default font size.
func WithEnvironment(env Environment) Option {
	return func(e *Engine) { e.SetEnvironment(env) }
}

// WithSpecificityOrdering makes the cascade order rules of the same origin by
// specificity before applying them.
func WithSpecificityOrdering() Option {
	return func(e *Engine) { e.bySpecificity = true }
}

// NewEngine creates a style engine seeded with the user agent stylesheet.
func NewEngine(log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{log: log.Named("style")}
	e.SetEnvironment(DefaultEnvironment)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetEnvironment updates the viewport used for media queries and viewport units.
func (e *Engine) SetEnvironment(env Environment) {
	if env.DefaultFontSize <= 0 {
		env.DefaultFontSize = BaseFontSize
	}
	e.env = env
	e.media = parser.MediaEnv{Type: "screen", Width: env.ViewportWidth, Height: env.ViewportHeight}
}

// Environment returns the current environment.
func (e *Engine) Environment() Environment { return e.env }

// AddUserSheet appends a stylesheet supplied by the user.
func (e *Engine) AddUserSheet(sheet *parser.Stylesheet) {
	e.userSheets = append(e.userSheets, sheet)
}

// AddAuthorSheet appends a stylesheet provided by the document.
func (e *Engine) AddAuthorSheet(sheet *parser.Stylesheet) {
	e.authorSheets = append(e.authorSheets, sheet)
	e.log.Debug("Author stylesheet added", zap.Int("author_sheets", len(e.authorSheets)))
}

// SetAuthorSheets replaces the author stylesheets. sheets must be in
// document order.
func (e *Engine) SetAuthorSheets(sheets []*parser.Stylesheet) {
	e.authorSheets = append(e.authorSheets[:0:0], sheets...)
	e.log.Debug("Author stylesheets replaced", zap.Int("author_sheets", len(e.authorSheets)))
}

// Sheets returns every stylesheet in cascade order: user agent, user, author.
func (e *Engine) Sheets() []*parser.Stylesheet {
	out := make([]*parser.Stylesheet, 0, 1+len(e.userSheets)+len(e.authorSheets))
	out = append(out, UserAgentStylesheet())
	out = append(out, e.userSheets...)
	return append(out, e.authorSheets...)
}

// FontFace is an @font-face rule together with the base URL of the sheet
// that declared it.
type FontFace struct {
	Rule    *parser.FontFaceRule
	BaseURL *url.URL
}

// FontFaces returns the @font-face rules of all sheets that apply to the
// current media, in cascade order.
func (e *Engine) FontFaces() []FontFace {
	var out []FontFace
	for _, s := range e.Sheets() {
		for _, r := range s.FontFaces(e.media) {
			out = append(out, FontFace{Rule: r, BaseURL: s.BaseURL})
		}
	}
	return out
}

// Collect gathers the rules matching node under the engine's media.
func (e *Engine) Collect(doc *dom.Document, node dom.NodeID) CollectedStyles {
	return CollectWithMedia(e.Sheets(), e.media, doc, node)
}

// Compute returns the computed property map of node given its parent's map.
func (e *Engine) Compute(doc *dom.Document, node dom.NodeID, parent PropertyMap) PropertyMap {
	collected := e.Collect(doc, node)
	var m PropertyMap
	if e.bySpecificity {
		m = collected.CascadeBySpecificity(doc)
	} else {
		m = collected.Cascade(doc)
	}
	return e.env.compute(m, parent)
}

// LengthContext returns the context for resolving lengths of an element
// whose computed map is m.
func (e *Engine) LengthContext(m PropertyMap) LengthContext {
	return LengthContext{
		FontSize:       m.FontSizeOr(e.env.DefaultFontSize),
		RootFontSize:   e.env.DefaultFontSize,
		ViewportWidth:  e.env.ViewportWidth,
		ViewportHeight: e.env.ViewportHeight,
	}
}
