// internal/browser/layout/context.go
package layout

import (
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/font"
	"github.com/xkilldash9x/weblayout/internal/browser/style"
	"github.com/xkilldash9x/weblayout/internal/browser/text"
)

// ImageSource reports decoded image sizes. Asking for an unknown URL starts
// loading it; ok stays false until the image has been decoded.
type ImageSource interface {
	NaturalSize(u *url.URL) (width, height float64, ok bool)
}

// Context is everything generation and layout read. It belongs to one
// session and is not safe for concurrent use.
type Context struct {
	Document *dom.Document
	Styles   *style.Engine
	// BaseURL resolves image URLs. It may be nil.
	BaseURL  *url.URL
	Viewport text.Size
	Fonts    *font.Provider
	Images   ImageSource
	Breaker  *text.Breaker
	Log      *zap.Logger
	// Language applies to text without a lang attribute.
	Language language.Tag
	Hinting  text.Hinting
	// DefaultFamily and EmojiFamily name the faces of the initial
	// containing block. They default to serif and emoji.
	DefaultFamily string
	EmojiFamily   string
}

func (c *Context) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c *Context) breaker() *text.Breaker {
	if c.Breaker == nil {
		c.Breaker = text.NewBreaker(c.logger())
	}
	return c.Breaker
}

func (c *Context) families() (def, emoji string) {
	def, emoji = c.DefaultFamily, c.EmojiFamily
	if def == "" {
		def = font.Serif
	}
	if emoji == "" {
		emoji = font.Emoji
	}
	return def, emoji
}

func (c *Context) resolve(ref string) (*url.URL, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		c.logger().Debug("Ignoring malformed URL", zap.String("url", ref), zap.Error(err))
		return nil, false
	}
	if c.BaseURL != nil {
		u = c.BaseURL.ResolveReference(u)
	}
	return u, true
}
