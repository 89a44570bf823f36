// internal/browser/parser/css.go
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser turns CSS text into Stylesheets. Malformed rules and declarations
// are logged and skipped; parsing never fails.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a CSS parser. A nil logger discards diagnostics.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

var defaultParser = NewParser(nil)

// Parse parses a stylesheet with a silent parser.
func Parse(data []byte, origin Origin) *Stylesheet {
	return defaultParser.Parse(data, origin)
}

// ParseDeclarations parses a style attribute with a silent parser.
func ParseDeclarations(data []byte) []Declaration {
	return defaultParser.ParseDeclarations(data)
}

// ParseSelectorList parses a selector list with a silent parser.
func ParseSelectorList(s string) (SelectorList, error) {
	return defaultParser.ParseSelectorList(s)
}

// Parse parses a complete stylesheet. Every style rule is stamped with origin.
func (p *Parser) Parse(data []byte, origin Origin) *Stylesheet {
	sheet := &Stylesheet{Origin: origin}
	g := p.newGrammar(data, false)
	sheet.Rules = p.parseRules(g, sheet, origin, false)
	p.log.Debug("Parsed stylesheet",
		zap.Stringer("origin", origin),
		zap.Int("bytes", len(data)),
		zap.Int("rules", len(sheet.Rules)))
	return sheet
}

// parseRules consumes rules until EOF, or until the end of the enclosing
// at-rule block when nested is set.
func (p *Parser) parseRules(g *grammar, sheet *Stylesheet, origin Origin, nested bool) []Rule {
	var rules []Rule
	for {
		gt, data := g.next()
		switch gt {
		case css.ErrorGrammar:
			return rules

		case css.EndAtRuleGrammar:
			if nested {
				return rules
			}

		case css.AtRuleGrammar:
			name := string(data)
			if name == "@import" && !nested {
				if target := importTarget(g.values()); target != "" {
					sheet.Imports = append(sheet.Imports, target)
				}
				continue
			}
			p.log.Debug("Skipping @-rule", zap.String("rule", name))

		case css.BeginAtRuleGrammar:
			switch name := string(data); name {
			case "@media":
				query := parseMediaQuery(g.values())
				inner := p.parseRules(g, sheet, origin, true)
				rules = append(rules, &MediaRule{Query: query, Rules: inner})
			case "@font-face":
				if ff := p.parseFontFace(g); ff != nil {
					rules = append(rules, ff)
				}
			default:
				p.log.Debug("Skipping @-rule block", zap.String("rule", name))
				g.skipBlock()
			}

		case css.BeginRulesetGrammar:
			selectors, err := p.parseSelectorTokens(g.values())
			decls := p.parseDeclarationBlock(g)
			if err != nil {
				p.log.Debug("Dropping rule with invalid selector", zap.Error(err))
				continue
			}
			if len(decls) == 0 {
				continue
			}
			rules = append(rules, &StyleRule{Origin: origin, Selectors: selectors, Declarations: decls})
		}
	}
}

// maxErrorRun bounds consecutive parse errors before the input is abandoned.
const maxErrorRun = 256

// grammar wraps the tdewolff grammar parser. Recoverable parse errors are
// logged and skipped; ErrorGrammar from next means the input is exhausted.
type grammar struct {
	gp     *css.Parser
	log    *zap.Logger
	errRun int
}

func (p *Parser) newGrammar(data []byte, inline bool) *grammar {
	return &grammar{gp: css.NewParser(parse.NewInput(bytes.NewReader(data)), inline), log: p.log}
}

func (g *grammar) next() (css.GrammarType, []byte) {
	for {
		gt, _, data := g.gp.Next()
		if gt != css.ErrorGrammar {
			g.errRun = 0
			return gt, data
		}
		if !g.gp.HasParseError() {
			return css.ErrorGrammar, nil
		}
		g.errRun++
		if g.errRun > maxErrorRun {
			g.log.Warn("Abandoning stylesheet after repeated parse errors", zap.Error(g.gp.Err()))
			return css.ErrorGrammar, nil
		}
		g.log.Debug("CSS parse error", zap.Error(g.gp.Err()))
	}
}

func (g *grammar) values() []css.Token { return g.gp.Values() }

// skipBlock skips tokens until the matching end of an at-rule block.
func (g *grammar) skipBlock() {
	depth := 1
	for depth > 0 {
		gt, _ := g.next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

func importTarget(tokens []css.Token) string {
	for _, c := range newTokenStream(tokens).components(false) {
		switch c.Kind {
		case ComponentString, ComponentURL:
			return c.Text
		}
	}
	return ""
}

// parseDeclarationBlock reads declarations up to the end of a ruleset.
func (p *Parser) parseDeclarationBlock(g *grammar) []Declaration {
	var decls []Declaration
	for {
		gt, data := g.next()
		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return decls
		case css.DeclarationGrammar:
			decls = append(decls, p.declaration(string(data), g.values())...)
		case css.BeginRulesetGrammar, css.BeginAtRuleGrammar:
			// Nested rules are not supported.
			g.skipBlock()
		}
	}
}

// ParseDeclarations parses a declaration list such as a style attribute.
func (p *Parser) ParseDeclarations(data []byte) []Declaration {
	g := p.newGrammar(data, true)
	var decls []Declaration
	for {
		gt, name := g.next()
		switch gt {
		case css.ErrorGrammar:
			return decls
		case css.DeclarationGrammar:
			decls = append(decls, p.declaration(string(name), g.values())...)
		case css.BeginAtRuleGrammar:
			g.skipBlock()
		}
	}
}

// declaration builds the longhand declarations for one property.
func (p *Parser) declaration(name string, tokens []css.Token) []Declaration {
	tokens, important := stripImportant(tokens)
	components := newTokenStream(tokens).components(false)
	if len(components) == 0 {
		return nil
	}
	d := Declaration{
		Property:  Property(strings.ToLower(name)),
		Value:     Value{Components: components, Raw: rawText(tokens)},
		Important: important,
	}
	out := expandShorthand(d)
	if out == nil {
		p.log.Debug("Dropping invalid shorthand", zap.String("property", name), zap.String("value", d.Value.Raw))
	}
	return out
}

func stripImportant(tokens []css.Token) ([]css.Token, bool) {
	end := len(tokens)
	for end > 0 && tokens[end-1].TokenType == css.WhitespaceToken {
		end--
	}
	if end < 2 {
		return tokens, false
	}
	last := tokens[end-1]
	if last.TokenType != css.IdentToken || !strings.EqualFold(string(last.Data), "important") {
		return tokens, false
	}
	bang := end - 2
	for bang >= 0 && tokens[bang].TokenType == css.WhitespaceToken {
		bang--
	}
	if bang < 0 || tokens[bang].TokenType != css.DelimToken || string(tokens[bang].Data) != "!" {
		return tokens, false
	}
	return tokens[:bang], true
}

// -- Font faces --

func (p *Parser) parseFontFace(g *grammar) *FontFaceRule {
	ff := &FontFaceRule{}
	for {
		gt, data := g.next()
		switch gt {
		case css.ErrorGrammar, css.EndAtRuleGrammar:
			return p.validFontFace(ff)
		case css.DeclarationGrammar:
			tokens, _ := stripImportant(g.values())
			value := newTokenStream(tokens).components(false)
			switch string(data) {
			case "font-family":
				if fams := (Value{Components: value}).Families(); len(fams) == 1 {
					ff.Family = fams[0]
				}
			case "font-style":
				if len(value) > 0 && value[0].Kind == ComponentKeyword {
					ff.Style = value[0].Text
				}
			case "font-weight":
				ff.Weight = parseWeightRange(value)
			case "unicode-range":
				ff.UnicodeRanges = parseUnicodeRanges(value)
			case "src":
				ff.Sources = parseFontSources(value)
			}
		}
	}
}

func (p *Parser) validFontFace(ff *FontFaceRule) *FontFaceRule {
	if ff.Family == "" || len(ff.Sources) == 0 {
		p.log.Debug("Dropping @font-face without family or src", zap.String("family", ff.Family))
		return nil
	}
	return ff
}

func weightOf(c Component) (int, bool) {
	switch {
	case c.Kind == ComponentNumber && c.Number >= 1 && c.Number <= 1000:
		return int(c.Number), true
	case c.Kind == ComponentKeyword && c.Text == "normal":
		return 400, true
	case c.Kind == ComponentKeyword && c.Text == "bold":
		return 700, true
	}
	return 0, false
}

func parseWeightRange(cs []Component) *WeightRange {
	switch len(cs) {
	case 1:
		if w, ok := weightOf(cs[0]); ok {
			return &WeightRange{Min: w, Max: w}
		}
	case 2:
		lo, ok1 := weightOf(cs[0])
		hi, ok2 := weightOf(cs[1])
		if ok1 && ok2 {
			if lo > hi {
				lo, hi = hi, lo
			}
			return &WeightRange{Min: lo, Max: hi}
		}
	}
	return nil
}

// parseUnicodeRanges reads U+XXXX, U+XXXX-YYYY and U+4?? forms.
func parseUnicodeRanges(cs []Component) []UnicodeRange {
	var out []UnicodeRange
	for _, c := range cs {
		if c.Kind != ComponentOther {
			continue
		}
		text := strings.ToUpper(c.Text)
		if !strings.HasPrefix(text, "U+") {
			continue
		}
		text = text[2:]
		var lo, hi string
		if a, b, found := strings.Cut(text, "-"); found {
			lo, hi = a, b
		} else if strings.Contains(text, "?") {
			lo = strings.ReplaceAll(text, "?", "0")
			hi = strings.ReplaceAll(text, "?", "F")
		} else {
			lo, hi = text, text
		}
		l, err1 := strconv.ParseUint(lo, 16, 32)
		h, err2 := strconv.ParseUint(hi, 16, 32)
		if err1 != nil || err2 != nil || l > h {
			continue
		}
		out = append(out, UnicodeRange{Lo: rune(l), Hi: rune(h)})
	}
	return out
}

func parseFontSources(cs []Component) []FontSource {
	var out []FontSource
	var cur FontSource
	flush := func() {
		if cur.URL != "" || cur.Local != "" {
			out = append(out, cur)
		}
		cur = FontSource{}
	}
	for _, c := range cs {
		switch c.Kind {
		case ComponentComma:
			flush()
		case ComponentURL:
			cur.URL = c.Text
		case ComponentFunction:
			arg := ""
			if fams := (Value{Components: c.Args}).Families(); len(fams) > 0 {
				arg = fams[0]
			}
			switch c.Text {
			case "local":
				cur.Local = arg
			case "format":
				cur.Format = strings.ToLower(arg)
			}
		}
	}
	flush()
	return out
}

// -- Selectors --

var errInvalidSelector = errors.New("invalid selector")

// ParseSelectorList parses a comma-separated selector list such as "h1 > p, .a".
func (p *Parser) ParseSelectorList(s string) (SelectorList, error) {
	g := p.newGrammar([]byte(s+"{}"), false)
	for {
		gt, _ := g.next()
		switch gt {
		case css.ErrorGrammar:
			return nil, fmt.Errorf("%w: %q", errInvalidSelector, s)
		case css.BeginRulesetGrammar:
			return p.parseSelectorTokens(g.values())
		}
	}
}

func (p *Parser) parseSelectorTokens(tokens []css.Token) (SelectorList, error) {
	groups := splitTopLevel(tokens)
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: empty selector", errInvalidSelector)
	}
	list := make(SelectorList, 0, len(groups))
	for _, g := range groups {
		sel, err := parseComplexSelector(g)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", errInvalidSelector, rawText(g), err)
		}
		list = append(list, sel)
	}
	return list, nil
}

// parseComplexSelector reads one selector of a list and returns its
// simplest representation.
func parseComplexSelector(tokens []css.Token) (Selector, error) {
	tokens = trimWhitespace(tokens)
	var (
		compounds   []CompoundSelector
		combinators []Combinator
		cur         CompoundSelector
		pending     Combinator
		hasPending  bool
		explicit    bool
	)
	flush := func() {
		if len(cur) > 0 {
			compounds = append(compounds, cur)
			cur = nil
		}
	}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.TokenType == css.WhitespaceToken {
			if len(cur) > 0 {
				flush()
				pending, hasPending = CombinatorDescendant, true
			}
			continue
		}
		if comb, ok := combinatorOf(t); ok {
			flush()
			if len(compounds) == 0 || explicit {
				return nil, fmt.Errorf("unexpected combinator %q", t.Data)
			}
			pending, hasPending, explicit = comb, true, true
			continue
		}

		if len(cur) == 0 && len(compounds) > 0 {
			if !hasPending {
				return nil, errors.New("missing combinator")
			}
			combinators = append(combinators, pending)
			hasPending, explicit = false, false
		}

		simple, next, err := parseSimple(tokens, i, len(cur) == 0)
		if err != nil {
			return nil, err
		}
		cur = append(cur, simple)
		i = next
	}
	flush()
	if explicit {
		return nil, errors.New("dangling combinator")
	}
	if len(compounds) == 0 {
		return nil, errors.New("empty selector")
	}

	if len(compounds) == 1 {
		if len(compounds[0]) == 1 {
			return compounds[0][0], nil
		}
		return compounds[0], nil
	}
	cs := ComplexSelector{Topmost: compounds[0]}
	for i, comb := range combinators {
		cs.Links = append(cs.Links, Link{Combinator: comb, Compound: compounds[i+1]})
	}
	return cs, nil
}

func combinatorOf(t css.Token) (Combinator, bool) {
	if t.TokenType != css.DelimToken || len(t.Data) != 1 {
		return 0, false
	}
	switch t.Data[0] {
	case '>':
		return CombinatorChild, true
	case '+':
		return CombinatorNextSibling, true
	case '~':
		return CombinatorSubsequentSibling, true
	}
	return 0, false
}

// parseSimple reads the simple selector starting at tokens[i] and returns
// the index of its last token. Type and universal selectors must lead a compound.
func parseSimple(tokens []css.Token, i int, first bool) (SimpleSelector, int, error) {
	t := tokens[i]
	switch t.TokenType {
	case css.IdentToken:
		if !first {
			return SimpleSelector{}, i, fmt.Errorf("type selector %q must come first", t.Data)
		}
		return SimpleSelector{Kind: SimpleType, Name: strings.ToLower(string(t.Data))}, i, nil

	case css.HashToken:
		return SimpleSelector{Kind: SimpleID, Name: unescape(string(t.Data[1:]))}, i, nil

	case css.DelimToken:
		switch string(t.Data) {
		case "*":
			if !first {
				return SimpleSelector{}, i, errors.New("universal selector must come first")
			}
			return SimpleSelector{Kind: SimpleUniversal}, i, nil
		case ".":
			if i+1 < len(tokens) && tokens[i+1].TokenType == css.IdentToken {
				return SimpleSelector{Kind: SimpleClass, Name: unescape(string(tokens[i+1].Data))}, i + 1, nil
			}
			return SimpleSelector{}, i, errors.New("class selector without name")
		}

	case css.LeftBracketToken:
		end := i + 1
		for end < len(tokens) && tokens[end].TokenType != css.RightBracketToken {
			end++
		}
		if end >= len(tokens) {
			return SimpleSelector{}, i, errors.New("unterminated attribute selector")
		}
		attr, err := parseAttribute(tokens[i+1 : end])
		if err != nil {
			return SimpleSelector{}, i, err
		}
		return SimpleSelector{Kind: SimpleAttribute, Attribute: attr}, end, nil

	case css.ColonToken:
		if i+1 >= len(tokens) {
			return SimpleSelector{}, i, errors.New("dangling colon")
		}
		next := tokens[i+1]
		switch next.TokenType {
		case css.IdentToken:
			name := strings.ToLower(string(next.Data))
			pc, ok := pseudoNames[name]
			if !ok {
				return SimpleSelector{}, i, fmt.Errorf("unsupported pseudo-class :%s", name)
			}
			return SimpleSelector{Kind: SimplePseudoClass, Pseudo: pc}, i + 1, nil
		case css.ColonToken:
			return SimpleSelector{}, i, errors.New("pseudo-elements are not supported")
		case css.FunctionToken:
			return SimpleSelector{}, i, fmt.Errorf("unsupported functional pseudo-class :%s", next.Data)
		}
	}
	return SimpleSelector{}, i, fmt.Errorf("unexpected token %q", t.Data)
}

func parseAttribute(tokens []css.Token) (AttributeSelector, error) {
	tokens = trimWhitespace(tokens)
	var attr AttributeSelector
	i := 0
	next := func() (css.Token, bool) {
		for i < len(tokens) && tokens[i].TokenType == css.WhitespaceToken {
			i++
		}
		if i >= len(tokens) {
			return css.Token{}, false
		}
		t := tokens[i]
		i++
		return t, true
	}

	t, ok := next()
	if !ok || t.TokenType != css.IdentToken {
		return attr, errors.New("attribute selector without name")
	}
	attr.Name = strings.ToLower(string(t.Data))

	t, ok = next()
	if !ok {
		return attr, nil
	}
	switch t.TokenType {
	case css.IncludeMatchToken:
		attr.Operator = AttrIncludes
	case css.DashMatchToken:
		attr.Operator = AttrDashMatch
	case css.PrefixMatchToken:
		attr.Operator = AttrPrefix
	case css.SuffixMatchToken:
		attr.Operator = AttrSuffix
	case css.SubstringMatchToken:
		attr.Operator = AttrSubstring
	case css.DelimToken:
		if string(t.Data) != "=" {
			return attr, fmt.Errorf("unknown attribute operator %q", t.Data)
		}
		attr.Operator = AttrEquals
	default:
		return attr, fmt.Errorf("unexpected token %q in attribute selector", t.Data)
	}

	t, ok = next()
	if !ok {
		return attr, errors.New("attribute selector without value")
	}
	switch t.TokenType {
	case css.IdentToken:
		attr.Value = unescape(string(t.Data))
	case css.StringToken:
		attr.Value = unquote(string(t.Data))
	case css.NumberToken:
		attr.Value = string(t.Data)
	default:
		return attr, fmt.Errorf("unexpected attribute value %q", t.Data)
	}

	if t, ok = next(); ok {
		if t.TokenType != css.IdentToken {
			return attr, fmt.Errorf("unexpected token %q after attribute value", t.Data)
		}
		switch strings.ToLower(string(t.Data)) {
		case "i":
			attr.Case = CaseASCIIInsensitive
		case "s":
			attr.Case = CaseIdentical
		default:
			return attr, fmt.Errorf("unknown attribute flag %q", t.Data)
		}
	}
	if _, ok = next(); ok {
		return attr, errors.New("trailing tokens in attribute selector")
	}
	return attr, nil
}

// -- Token helpers --

// splitTopLevel splits tokens on commas outside parentheses, dropping empty groups.
func splitTopLevel(tokens []css.Token) [][]css.Token {
	var groups [][]css.Token
	depth, start := 0, 0
	add := func(g []css.Token) {
		if g = trimWhitespace(g); len(g) > 0 {
			groups = append(groups, g)
		}
	}
	for i, t := range tokens {
		switch t.TokenType {
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				add(tokens[start:i])
				start = i + 1
			}
		}
	}
	add(tokens[start:])
	return groups
}

func trimWhitespace(tokens []css.Token) []css.Token {
	for len(tokens) > 0 && tokens[0].TokenType == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].TokenType == css.WhitespaceToken {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// rawText renders tokens with whitespace runs collapsed to one space.
func rawText(tokens []css.Token) string {
	var sb strings.Builder
	space := false
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken || t.TokenType == css.CommentToken {
			space = sb.Len() > 0
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.Write(t.Data)
	}
	return sb.String()
}

// tokenStream converts declaration tokens into Components.
type tokenStream struct {
	tokens []css.Token
	pos    int
}

func newTokenStream(tokens []css.Token) *tokenStream {
	return &tokenStream{tokens: tokens}
}

// components reads until the end of input, or until the closing parenthesis
// when inFunction is set.
func (s *tokenStream) components(inFunction bool) []Component {
	var out []Component
	for s.pos < len(s.tokens) {
		t := s.tokens[s.pos]
		s.pos++
		data := string(t.Data)
		switch t.TokenType {
		case css.WhitespaceToken, css.CommentToken:
		case css.RightParenthesisToken:
			if inFunction {
				return out
			}
		case css.IdentToken:
			out = append(out, Component{Kind: ComponentKeyword, Text: strings.ToLower(unescape(data))})
		case css.NumberToken:
			if f, err := strconv.ParseFloat(data, 64); err == nil {
				out = append(out, Component{Kind: ComponentNumber, Number: f})
			}
		case css.PercentageToken:
			if f, err := strconv.ParseFloat(strings.TrimSuffix(data, "%"), 64); err == nil {
				out = append(out, Component{Kind: ComponentPercentage, Number: f})
			}
		case css.DimensionToken:
			if f, unit, ok := splitDimension(data); ok {
				out = append(out, Component{Kind: ComponentLength, Number: f, Unit: unit})
			} else {
				out = append(out, Component{Kind: ComponentOther, Text: data})
			}
		case css.HashToken:
			if c, ok := ParseHexColor(data); ok {
				out = append(out, Component{Kind: ComponentColor, Color: c, Text: strings.ToLower(data)})
			} else {
				out = append(out, Component{Kind: ComponentOther, Text: data})
			}
		case css.StringToken:
			out = append(out, Component{Kind: ComponentString, Text: unquote(data)})
		case css.URLToken:
			out = append(out, Component{Kind: ComponentURL, Text: urlTokenTarget(data)})
		case css.FunctionToken:
			name := strings.ToLower(strings.TrimSuffix(data, "("))
			args := s.components(true)
			out = append(out, functionComponent(name, args))
		case css.LeftParenthesisToken:
			out = append(out, Component{Kind: ComponentFunction, Args: s.components(true)})
		case css.CommaToken:
			out = append(out, Component{Kind: ComponentComma})
		case css.DelimToken:
			if data == "/" {
				out = append(out, Component{Kind: ComponentSlash})
			} else {
				out = append(out, Component{Kind: ComponentOther, Text: data})
			}
		default:
			out = append(out, Component{Kind: ComponentOther, Text: data})
		}
	}
	return out
}

func functionComponent(name string, args []Component) Component {
	switch name {
	case "url":
		target := ""
		if len(args) > 0 {
			target = args[0].Text
		}
		return Component{Kind: ComponentURL, Text: target}
	case "rgb", "rgba", "hsl", "hsla":
		if c, ok := colorFunction(name, args); ok {
			return Component{Kind: ComponentColor, Color: c}
		}
	}
	return Component{Kind: ComponentFunction, Text: name, Args: args}
}

// splitDimension separates "12.5px" into 12.5 and "px".
func splitDimension(s string) (float64, Unit, bool) {
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			end++
			continue
		}
		// Exponent: 1e3px.
		if (c == 'e' || c == 'E') && end+1 < len(s) && (s[end+1] >= '0' && s[end+1] <= '9') {
			end += 2
			continue
		}
		break
	}
	if end == 0 || end == len(s) {
		return 0, "", false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, "", false
	}
	return f, Unit(strings.ToLower(s[end:])), true
}

func urlTokenTarget(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "url(") {
		s = s[4:]
	}
	s = strings.TrimSuffix(s, ")")
	return unquote(strings.TrimSpace(s))
}

// unquote strips matching quotes and resolves escapes.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return unescape(s)
}

// unescape resolves CSS backslash escapes.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		if hexDigit(s[i]) < 0 {
			if s[i] != '\n' {
				sb.WriteByte(s[i])
			}
			continue
		}
		j := i
		for j < len(s) && j-i < 6 && hexDigit(s[j]) >= 0 {
			j++
		}
		cp, _ := strconv.ParseUint(s[i:j], 16, 32)
		if cp == 0 || cp > 0x10FFFF || (cp >= 0xD800 && cp <= 0xDFFF) {
			cp = 0xFFFD
		}
		sb.WriteRune(rune(cp))
		if j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n') {
			j++
		}
		i = j - 1
	}
	return sb.String()
}
