// internal/browser/font/provider.go
package font

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Provider is a registry of faces keyed by descriptor. It is safe for
// concurrent use; background font loads register faces while the layout
// task reads them.
type Provider struct {
	log       *zap.Logger
	dirs      []string
	cacheSize int
	emojiPath string

	mu      sync.RWMutex
	faces   map[Descriptor]*Face
	sources map[string]*Face

	scanOnce sync.Once
	index    []indexedFile
}

// indexedFile is a font file found in a search directory.
type indexedFile struct {
	path   string
	family string
	bold   bool
	italic bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithDirectories sets the directories searched for named families.
func WithDirectories(dirs ...string) Option {
	return func(p *Provider) { p.dirs = append(p.dirs, dirs...) }
}

// WithCacheSize sets the per-face measurement cache size.
func WithCacheSize(n int) Option {
	return func(p *Provider) { p.cacheSize = n }
}

// WithEmojiFont sets the font file used for the emoji generic family.
func WithEmojiFont(path string) Option {
	return func(p *Provider) { p.emojiPath = path }
}

// NewProvider creates an empty provider.
func NewProvider(log *zap.Logger, opts ...Option) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Provider{
		log:       log.Named("font"),
		cacheSize: DefaultCacheSize,
		faces:     make(map[Descriptor]*Face),
		sources:   make(map[string]*Face),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the face registered for desc.
func (p *Provider) Get(desc Descriptor) (*Face, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f, ok := p.faces[desc]
	return f, ok
}

// Alias registers face under desc.
func (p *Provider) Alias(desc Descriptor, face *Face) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faces[desc] = face
}

// LoadFromBytes decodes data and registers the face under desc.
func (p *Provider) LoadFromBytes(desc Descriptor, data []byte, source string) (*Face, error) {
	face, err := NewFace(data, p.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", desc, err)
	}
	face.source = source
	p.Alias(desc, face)
	p.log.Debug("Registered font face", zap.Stringer("descriptor", desc), zap.String("family", face.Family()), zap.String("source", source))
	return face, nil
}

// LoadFromSystem resolves desc without the network. Generic families map to
// the bundled Go fonts, the emoji family to the configured emoji font, and
// named families to files in the search directories.
func (p *Provider) LoadFromSystem(desc Descriptor) (*Face, error) {
	if f, ok := p.Get(desc); ok {
		return f, nil
	}

	bold := desc.Weight.IsBold()
	italic := desc.Style != StyleNormal
	var (
		face *Face
		err  error
	)
	switch desc.Family {
	case Emoji:
		if p.emojiPath == "" {
			return nil, fmt.Errorf("%w: no emoji font configured", ErrNotFound)
		}
		face, err = p.loadFile(p.emojiPath)
	case Serif, SansSerif, Cursive, Fantasy, SystemUI, Monospace:
		name, data := goFont(desc.Family == Monospace, bold, italic)
		face, err = p.loadSource("gofont:"+name, data)
	default:
		path, ok := p.find(desc.Family, bold, italic)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, desc)
		}
		face, err = p.loadFile(path)
	}
	if err != nil {
		return nil, err
	}
	p.Alias(desc, face)
	p.log.Debug("Loaded system font", zap.Stringer("descriptor", desc), zap.String("source", face.Source()))
	return face, nil
}

func goFont(mono, bold, italic bool) (string, []byte) {
	switch {
	case mono && bold && italic:
		return "gomonobolditalic", gomonobolditalic.TTF
	case mono && bold:
		return "gomonobold", gomonobold.TTF
	case mono && italic:
		return "gomonoitalic", gomonoitalic.TTF
	case mono:
		return "gomono", gomono.TTF
	case bold && italic:
		return "gobolditalic", gobolditalic.TTF
	case bold:
		return "gobold", gobold.TTF
	case italic:
		return "goitalic", goitalic.TTF
	}
	return "goregular", goregular.TTF
}

func (p *Provider) loadFile(path string) (*Face, error) {
	p.mu.RLock()
	f, ok := p.sources[path]
	p.mu.RUnlock()
	if ok {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font file: %w", err)
	}
	return p.loadSource(path, data)
}

// loadSource parses data once per source key; faces are shared between the
// descriptors that resolve to the same file.
func (p *Provider) loadSource(key string, data []byte) (*Face, error) {
	p.mu.RLock()
	f, ok := p.sources[key]
	p.mu.RUnlock()
	if ok {
		return f, nil
	}
	face, err := NewFace(data, p.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	face.source = key

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.sources[key]; ok {
		return existing, nil
	}
	p.sources[key] = face
	return face, nil
}

// find picks the file whose family matches, preferring an exact bold and
// italic match.
func (p *Provider) find(family string, bold, italic bool) (string, bool) {
	p.scanOnce.Do(p.scan)
	best, bestScore := "", -1
	for _, f := range p.index {
		if f.family != family {
			continue
		}
		score := 0
		if f.bold == bold {
			score += 2
		}
		if f.italic == italic {
			score++
		}
		if score > bestScore {
			best, bestScore = f.path, score
		}
	}
	return best, bestScore >= 0
}

func (p *Provider) scan() {
	var buf sfnt.Buffer
	for _, dir := range p.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".ttf", ".otf":
			default:
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil
			}
			f, err := opentype.Parse(data)
			if err != nil {
				p.log.Debug("Skipping unreadable font file", zap.String("path", path), zap.Error(err))
				return nil
			}
			family, err := f.Name(&buf, sfnt.NameIDFamily)
			if err != nil {
				return nil
			}
			sub, _ := f.Name(&buf, sfnt.NameIDSubfamily)
			sub = strings.ToLower(sub)
			p.index = append(p.index, indexedFile{
				path:   path,
				family: strings.ToLower(family),
				bold:   strings.Contains(sub, "bold") || strings.Contains(sub, "black") || strings.Contains(sub, "heavy"),
				italic: strings.Contains(sub, "italic") || strings.Contains(sub, "oblique"),
			})
			return nil
		})
		if err != nil {
			p.log.Warn("Font directory scan failed", zap.String("dir", dir), zap.Error(err))
		}
	}
	p.log.Debug("Indexed font directories", zap.Strings("dirs", p.dirs), zap.Int("files", len(p.index)))
}
