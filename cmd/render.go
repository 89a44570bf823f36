// File: cmd/render.go
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/weblayout/internal/browser/dom"
	"github.com/xkilldash9x/weblayout/internal/browser/fetch"
	"github.com/xkilldash9x/weblayout/internal/browser/layout"
	"github.com/xkilldash9x/weblayout/internal/browser/page"
	"github.com/xkilldash9x/weblayout/internal/browser/parser"
	"github.com/xkilldash9x/weblayout/internal/browser/style"
	"github.com/xkilldash9x/weblayout/internal/observability"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type renderOptions struct {
	width   float64
	height  float64
	userCSS []string
	format  string
	lang    string
	// bySpecificity orders same-origin rules by specificity.
	bySpecificity bool
}

// renderResult is the document written for the json and yaml formats.
type renderResult struct {
	URL      string           `json:"url" yaml:"url"`
	Title    string           `json:"title,omitempty" yaml:"title,omitempty"`
	Viewport viewportSize     `json:"viewport" yaml:"viewport"`
	Root     *layout.Snapshot `json:"root" yaml:"root"`
}

type viewportSize struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// newRenderCmd creates the `render` command.
func newRenderCmd() *cobra.Command {
	opts := &renderOptions{}
	renderCmd := &cobra.Command{
		Use:   "render <file|url>",
		Short: "Lays out a document and prints the positioned box tree",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.format {
			case formatText, formatJSON, formatYAML:
				return nil
			}
			return fmt.Errorf("unknown format %q: want text, json or yaml", opts.format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}

	renderCmd.Flags().Float64Var(&opts.width, "width", 0, "viewport width in pixels (default from config)")
	renderCmd.Flags().Float64Var(&opts.height, "height", 0, "viewport height in pixels (default from config)")
	renderCmd.Flags().StringArrayVar(&opts.userCSS, "user-css", nil, "user stylesheet file (repeatable)")
	renderCmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "output format: text, json or yaml")
	renderCmd.Flags().StringVar(&opts.lang, "lang", "", "default content language, e.g. en or ja")
	renderCmd.Flags().BoolVar(&opts.bySpecificity, "specificity-cascade", false, "order rules of one origin by specificity instead of stylesheet order")
	return renderCmd
}

func runRender(cmd *cobra.Command, target string, opts *renderOptions) error {
	ctx := cmd.Context()
	logger := observability.Component("render")

	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("width") {
		cfg.Viewport.Width = opts.width
	}
	if cmd.Flags().Changed("height") {
		cfg.Viewport.Height = opts.height
	}
	if opts.lang != "" {
		cfg.Fonts.Language = opts.lang
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 1. Load and parse the document.
	u, err := documentURL(target)
	if err != nil {
		return err
	}
	fetcher := fetch.NewClient(cfg.Fetch, logger)
	resp, err := fetcher.Fetch(ctx, u)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	doc, err := dom.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	base := u
	if resp.URL != nil {
		base = resp.URL
	}

	userSheets, err := loadUserSheets(opts.userCSS, logger)
	if err != nil {
		return err
	}

	// 2. Run the pipeline until everything has loaded.
	sessionOpts := []page.Option{
		page.WithBaseURL(base),
		page.WithFetcher(fetcher),
		page.WithUserStylesheets(userSheets...),
		page.WithLogger(logger),
	}
	if opts.bySpecificity {
		sessionOpts = append(sessionOpts, page.WithStyleOptions(style.WithSpecificityOrdering()))
	}
	session, err := page.NewSession(cfg, doc, sessionOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("Session closed with errors", zap.Error(cerr))
		}
	}()

	if err := session.Settle(ctx); err != nil {
		return err
	}
	logger.Info("Document rendered", zap.String("session_id", session.ID()), zap.String("title", session.Title()))

	result := renderResult{
		URL:      base.String(),
		Title:    session.Title(),
		Viewport: viewportSize{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height},
		Root:     session.Snapshot(),
	}
	return writeResult(cmd.OutOrStdout(), opts.format, result)
}

// documentURL accepts an absolute URL or a local path.
func documentURL(target string) (*url.URL, error) {
	if u, err := url.Parse(target); err == nil && u.IsAbs() && len(u.Scheme) > 1 {
		return u, nil
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", target, err)
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
}

func loadUserSheets(paths []string, logger *zap.Logger) ([]*parser.Stylesheet, error) {
	p := parser.NewParser(logger)
	sheets := make([]*parser.Stylesheet, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read user stylesheet: %w", err)
		}
		sheet := p.Parse(data, parser.OriginUser)
		if u, err := documentURL(path); err == nil {
			sheet.BaseURL = u
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func writeResult(w io.Writer, format string, result renderResult) error {
	switch format {
	case formatJSON:
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}

	if result.Title != "" {
		fmt.Fprintf(w, "# %s\n", strings.TrimSpace(result.Title))
	}
	if result.Root == nil {
		_, err := fmt.Fprintln(w, "(empty)")
		return err
	}
	return result.Root.Dump(w)
}
