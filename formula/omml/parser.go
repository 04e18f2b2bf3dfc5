// Package omml streams Office Math Markup Language XML into the
// shared math AST. It walks a standard library encoding/xml.Decoder
// token by token rather than building a DOM, tracking open elements on
// an explicit stack of pooled frames.
package omml

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/TalentFormula/msdoc/formula/ast"
	"github.com/TalentFormula/msdoc/ooxerr"
)

// MaxDepth bounds element nesting. Equations deeper than this are
// almost certainly malformed or adversarial; rejecting them keeps the
// parser's own stack bounded instead of growing without limit.
const MaxDepth = 1000

// Parser walks one OMML document (or fragment) and produces the
// shared math AST.
type Parser struct {
	arena *ast.Arena
	pool  *framePool
	stack []*frame
}

// New returns a Parser that interns identifier text into arena.
func New(arena *ast.Arena) *Parser {
	return &Parser{arena: arena, pool: newFramePool()}
}

// Parse decodes r as OMML and returns the top-level math nodes in
// document order. An empty <m:oMath/> yields a nil slice, not an
// error.
func (p *Parser) Parse(r io.Reader) ([]ast.MathNode, error) {
	dec := xml.NewDecoder(r)
	var results []ast.MathNode

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ooxerr.Wrap(ooxerr.KindXmlError, err, "omml: malformed xml")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.handleStart(t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			node, emitted, err := p.handleEnd(t)
			if err != nil {
				return nil, err
			}
			if emitted {
				results = append(results, node...)
			}
		case xml.CharData:
			p.handleText(string(t))
		}
	}

	if len(p.stack) != 0 {
		return nil, ooxerr.New(ooxerr.KindParseError, "omml: unclosed element at end of document")
	}
	return results, nil
}

func localName(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (p *Parser) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *Parser) handleStart(se xml.StartElement) error {
	parentType := ElemUnknown
	if top := p.top(); top != nil {
		parentType = top.Type
	}

	elemType := resolveElement(se.Name.Local)
	if elemType == ElemBase {
		elemType = reclassifyBase(parentType)
	}

	// An equation array's rows are reclassified <e> elements that hold
	// ordinary content directly, unlike <m:mr> rows, which hold cells.
	eqArrRow := parentType == ElemMatrixRow && len(p.stack) > 1 &&
		p.stack[len(p.stack)-2].Type == ElemEquationArray
	if len(p.stack) > 0 && !eqArrRow && !validateNesting(parentType, elemType) {
		return ooxerr.New(ooxerr.KindParseError, "omml: element %q not valid inside its parent", se.Name.Local)
	}
	if len(p.stack)+1 > MaxDepth {
		return ooxerr.New(ooxerr.KindParseError, "omml: nesting depth exceeds %d", MaxDepth)
	}

	f := p.pool.acquire()
	f.Type = elemType
	f.Props = parseProperties(elemType, se.Attr)
	if v, ok := localName(se.Attr, "val"); ok {
		f.ValAttr = v
	}

	p.stack = append(p.stack, f)
	return nil
}

func (p *Parser) handleText(text string) {
	top := p.top()
	if top == nil {
		return
	}
	top.Text.WriteString(text)
}

// handleEnd pops the current frame, folds it into its parent (or, for
// the document root, into the returned result slice), and returns the
// frame to the pool.
func (p *Parser) handleEnd(_ xml.EndElement) ([]ast.MathNode, bool, error) {
	n := len(p.stack)
	if n == 0 {
		return nil, false, ooxerr.New(ooxerr.KindParseError, "omml: unmatched end element")
	}
	f := p.stack[n-1]
	p.stack = p.stack[:n-1]
	parent := p.top()

	nodes, isTerminal, err := p.resolveFrame(f, parent)
	if err != nil {
		p.pool.release(f)
		return nil, false, err
	}

	if parent == nil {
		if !isTerminal {
			// A plumbing role (numerator, base, limit, ...) closing at
			// the document root has nowhere to deliver its content.
			kind := f.Type
			p.pool.release(f)
			return nil, false, ooxerr.New(ooxerr.KindParseError, "omml: orphaned structural element (type %d) at document root", int(kind))
		}
		p.pool.release(f)
		return nodes, true, nil
	}
	if isTerminal {
		parent.Children = append(parent.Children, nodes...)
	}
	p.pool.release(f)
	return nil, false, nil
}

// resolveFrame folds a closing frame's accumulated state either into
// one or more constructed MathNodes (isTerminal true; appended to the
// parent's Children, or returned directly at the document root) or
// into a named slot on the parent frame (isTerminal false; the
// plumbing roles spec.md enumerates).
func (p *Parser) resolveFrame(f *frame, parent *frame) ([]ast.MathNode, bool, error) {
	switch f.Type {

	// --- transparent containers: children pass through unchanged ---
	case ElemOMath, ElemOMathPara, ElemUnknown:
		return f.Children, true, nil

	case ElemRun:
		return []ast.MathNode{buildRunNode(f, p.arena)}, true, nil

	case ElemText:
		if parent != nil {
			parent.Text.WriteString(f.Text.String())
		}
		return nil, false, nil

	// --- plumbing roles: store into the parent's named slot ---
	case ElemNumerator:
		setSlot(parent, func(pf *frame) { pf.Numerator = f.Children })
		return nil, false, nil
	case ElemDenominator:
		setSlot(parent, func(pf *frame) { pf.Denominator = f.Children })
		return nil, false, nil
	case ElemBase, ElemIntegrand:
		// Append rather than assign: a delimiter may carry several <e>
		// children (separator-delimited arguments) and they all land in
		// the same slot.
		target := f.Children
		setSlot(parent, func(pf *frame) {
			if f.Type == ElemIntegrand {
				pf.Integrand = append(pf.Integrand, target...)
			} else {
				pf.Base = append(pf.Base, target...)
			}
		})
		return nil, false, nil
	case ElemSub:
		setSlot(parent, func(pf *frame) { pf.Sub = f.Children })
		return nil, false, nil
	case ElemSup:
		setSlot(parent, func(pf *frame) { pf.Sup = f.Children })
		return nil, false, nil
	case ElemDegree:
		setSlot(parent, func(pf *frame) { pf.Degree = f.Children })
		return nil, false, nil
	case ElemLimit:
		setSlot(parent, func(pf *frame) { pf.Limit = f.Children })
		return nil, false, nil
	case ElemFunctionName:
		setSlot(parent, func(pf *frame) { pf.Name = f.Children })
		return nil, false, nil
	case ElemMatrixCell:
		setSlot(parent, func(pf *frame) { pf.Children = append(pf.Children, f.Children...) })
		return nil, false, nil
	case ElemMatrixRow:
		row := append([]ast.MathNode(nil), f.Children...)
		setSlot(parent, func(pf *frame) { pf.Rows = append(pf.Rows, row) })
		return nil, false, nil

	// --- leaf property carriers: value is a "val" attribute or text.
	// Delimiter and operator glyphs repeat across an equation, so the
	// values are interned. ---
	case ElemBeginChar:
		v := p.arena.Intern(leafValue(f))
		setSlot(parent, func(pf *frame) { pf.Props.DelimiterOpenChar = v })
		return nil, false, nil
	case ElemEndChar:
		v := p.arena.Intern(leafValue(f))
		setSlot(parent, func(pf *frame) { pf.Props.DelimiterCloseChar = v })
		return nil, false, nil
	case ElemSepChar:
		v := p.arena.Intern(leafValue(f))
		setSlot(parent, func(pf *frame) { pf.Props.DelimiterSeparator = v })
		return nil, false, nil
	case ElemChar:
		v := p.arena.Intern(leafValue(f))
		setSlot(parent, func(pf *frame) { pf.Props.Chr = v })
		return nil, false, nil
	case ElemPosition:
		v := p.arena.Intern(leafValue(f))
		setSlot(parent, func(pf *frame) { pf.Props.Position = v })
		return nil, false, nil
	case ElemStyle:
		v := p.arena.Intern(leafValue(f))
		setSlot(parent, func(pf *frame) { pf.Props.Style = v })
		return nil, false, nil
	case ElemNormalText:
		setSlot(parent, func(pf *frame) { pf.Props.NormalText = leafBool(f) })
		return nil, false, nil
	case ElemLiteral:
		setSlot(parent, func(pf *frame) { pf.Props.Literal = leafBool(f) })
		return nil, false, nil
	case ElemDegreeHide:
		setSlot(parent, func(pf *frame) { pf.Props.DegreeHide = leafBool(f) })
		return nil, false, nil

	// --- *Pr elements: merge their accumulated props onto the parent construct ---
	case ElemFractionPr, ElemDelimiterPr, ElemNaryPr, ElemAccentPr, ElemBarPr,
		ElemBoxPr, ElemBorderBoxPr, ElemPhantomPr, ElemRadicalPr, ElemGroupCharPr,
		ElemEquationArrayPr, ElemFunctionPr, ElemLimLowPr, ElemLimUppPr,
		ElemMatrixPr, ElemMatrixColumnPr, ElemPreScriptPr:
		setSlot(parent, func(pf *frame) { pf.Props = mergeProps(pf.Props, f) })
		return nil, false, nil

	// Matrix column specs describe layout only; nothing downstream
	// reads them.
	case ElemMatrixColumn:
		return nil, false, nil

	case ElemVertAlign:
		setSlot(parent, func(pf *frame) { pf.Props.VertAlign = leafValue(f) })
		return nil, false, nil
	case ElemScript:
		setSlot(parent, func(pf *frame) { pf.Props.Script = leafValue(f) })
		return nil, false, nil

	case ElemRunProperties, ElemControlProperties:
		setSlot(parent, func(pf *frame) { pf.Props = mergeProps(pf.Props, f) })
		return nil, false, nil

	// --- constructs: produce exactly one MathNode ---
	case ElemFraction:
		return []ast.MathNode{{Kind: ast.KindFrac, Numerator: f.Numerator, Denominator: f.Denominator}}, true, nil

	case ElemDelimiter:
		return []ast.MathNode{{
			Kind: ast.KindFenced, Open: fenceFromChar(f.Props.DelimiterOpenChar),
			Close: fenceFromChar(f.Props.DelimiterCloseChar), Content: f.Base,
		}}, true, nil

	case ElemNary:
		return []ast.MathNode{{
			Kind: ast.KindLargeOp, Operator: operatorFromChr(f.Props.Chr),
			Lower: f.Sub, Upper: f.Sup, Operand: f.Integrand,
		}}, true, nil

	case ElemRadical:
		return []ast.MathNode{{Kind: ast.KindRoot, Radicand: f.Base, Degree: f.Degree}}, true, nil

	case ElemAccent:
		chr := f.Props.Chr
		if chr == "" {
			chr = f.Props.AccentChar
		}
		return []ast.MathNode{{Kind: ast.KindAccent, Accent: accentFromChar(chr), Base: f.Base}}, true, nil

	case ElemSuperscript:
		return []ast.MathNode{{Kind: ast.KindPower, Base: f.Base, Sup: f.Sup}}, true, nil
	case ElemSubscript:
		return []ast.MathNode{{Kind: ast.KindSub, Base: f.Base, Sub: f.Sub}}, true, nil
	case ElemSubSup:
		return []ast.MathNode{{Kind: ast.KindSubSup, Base: f.Base, Sub: f.Sub, Sup: f.Sup}}, true, nil

	case ElemBar:
		if f.Props.Position == "bot" {
			return []ast.MathNode{{Kind: ast.KindUnder, Pos: ast.PositionBottom, Base: f.Base}}, true, nil
		}
		return []ast.MathNode{{Kind: ast.KindOver, Pos: ast.PositionTop, Base: f.Base}}, true, nil

	case ElemBox:
		return []ast.MathNode{{Kind: ast.KindBox, Content: f.Base}}, true, nil

	case ElemBorderBox:
		return []ast.MathNode{{
			Kind: ast.KindBorderBox, Content: f.Base,
			HideTop: f.Props.HideTop, HideBottom: f.Props.HideBottom,
			HideLeft: f.Props.HideLeft, HideRight: f.Props.HideRight,
			Strike: f.Props.Strike != "",
		}}, true, nil

	case ElemPhantom:
		return []ast.MathNode{{
			Kind: ast.KindPhantom, Content: f.Base,
			Transparent: f.Props.Transparent, ZeroWidth: f.Props.ZeroWidth,
		}}, true, nil

	case ElemMatrix:
		return []ast.MathNode{{Kind: ast.KindMatrix, Rows: f.Rows}}, true, nil

	case ElemGroupChar:
		pos := ast.PositionTop
		if f.Props.Position == "bot" {
			pos = ast.PositionBottom
		}
		return []ast.MathNode{{Kind: ast.KindGroupChar, Base: f.Base, Char: f.Props.Chr, Pos: pos}}, true, nil

	case ElemEquationArray:
		// Each <e> child was reclassified as a row; the array renders
		// as a one-column matrix.
		return []ast.MathNode{{Kind: ast.KindMatrix, Rows: f.Rows}}, true, nil

	case ElemLimLow:
		return []ast.MathNode{{Kind: ast.KindUnder, Base: f.Base, UnderScript: f.Limit}}, true, nil
	case ElemLimUpp:
		return []ast.MathNode{{Kind: ast.KindOver, Base: f.Base, OverScript: f.Limit}}, true, nil

	case ElemFunction:
		return []ast.MathNode{{Kind: ast.KindFunction, Name: f.Name, Arg: f.Base}}, true, nil

	case ElemPreScript:
		return []ast.MathNode{{Kind: ast.KindSubSup, Base: f.Base, Sub: f.Sub, Sup: f.Sup}}, true, nil

	default:
		// Unrecognized plumbing-shaped element: pass children through
		// rather than dropping them silently.
		return f.Children, true, nil
	}
}

func setSlot(parent *frame, apply func(*frame)) {
	if parent == nil {
		return
	}
	apply(parent)
}

func leafValue(f *frame) string {
	if f.ValAttr != "" {
		return f.ValAttr
	}
	return strings.TrimSpace(f.Text.String())
}

func leafBool(f *frame) bool {
	v := leafValue(f)
	switch v {
	case "1", "true", "on":
		return true
	case "", "0", "false", "off":
		return false
	default:
		return true
	}
}

// mergeProps folds src's own ElementProperties plus any nested leaf
// values it accumulated (via f) onto base, keeping base's existing
// non-zero fields when src leaves its own at zero.
func mergeProps(base ElementProperties, f *frame) ElementProperties {
	src := f.Props
	if src.Style != "" {
		base.Style = src.Style
	}
	if src.FractionType != "" {
		base.FractionType = src.FractionType
	}
	if src.DelimiterOpenChar != "" {
		base.DelimiterOpenChar = src.DelimiterOpenChar
	}
	if src.DelimiterCloseChar != "" {
		base.DelimiterCloseChar = src.DelimiterCloseChar
	}
	if src.DelimiterSeparator != "" {
		base.DelimiterSeparator = src.DelimiterSeparator
	}
	if src.DelimiterShape != "" {
		base.DelimiterShape = src.DelimiterShape
	}
	base.DelimiterGrow = base.DelimiterGrow || src.DelimiterGrow
	if src.Chr != "" {
		base.Chr = src.Chr
	}
	base.NaryOperatorGrow = base.NaryOperatorGrow || src.NaryOperatorGrow
	base.NaryHideSub = base.NaryHideSub || src.NaryHideSub
	base.NaryHideSup = base.NaryHideSup || src.NaryHideSup
	if src.AccentChar != "" {
		base.AccentChar = src.AccentChar
	}
	if src.Position != "" {
		base.Position = src.Position
	}
	base.HideTop = base.HideTop || src.HideTop
	base.HideBottom = base.HideBottom || src.HideBottom
	base.HideLeft = base.HideLeft || src.HideLeft
	base.HideRight = base.HideRight || src.HideRight
	if src.Strike != "" {
		base.Strike = src.Strike
	}
	if src.VertAlign != "" {
		base.VertAlign = src.VertAlign
	}
	if src.Script != "" {
		base.Script = src.Script
	}
	base.Transparent = base.Transparent || src.Transparent
	base.ZeroWidth = base.ZeroWidth || src.ZeroWidth
	base.DegreeHide = base.DegreeHide || src.DegreeHide
	base.NormalText = base.NormalText || src.NormalText
	base.Literal = base.Literal || src.Literal
	return base
}

func buildRunNode(f *frame, arena *ast.Arena) ast.MathNode {
	// Equations repeat the same short identifiers (variable names,
	// operator glyphs) many times; interning collapses the copies.
	text := arena.Intern(f.Text.String())
	if !f.Props.NormalText && f.Props.MathVariant == "" && !f.Props.Bold && !f.Props.Italic &&
		f.Props.Style == "" && len(f.Children) == 0 {
		return ast.Text(text)
	}
	return ast.MathNode{
		Kind: ast.KindRun,
		Text: text,
		RunProps: &ast.RunProperties{
			Bold:        f.Props.Bold,
			Italic:      f.Props.Italic,
			MathVariant: f.Props.MathVariant,
			NormalText:  f.Props.NormalText,
		},
		Children: f.Children,
	}
}

func fenceFromChar(c string) ast.FenceKind {
	switch c {
	case "(":
		return ast.FenceParen
	case ")":
		return ast.FenceParen
	case "[":
		return ast.FenceBracket
	case "]":
		return ast.FenceBracket
	case "{":
		return ast.FenceBrace
	case "}":
		return ast.FenceBrace
	case "|":
		return ast.FencePipe
	case "‖":
		return ast.FenceDoublePipe
	case "⟨", "<":
		return ast.FenceAngle
	case "⟩", ">":
		return ast.FenceAngle
	case "⌊":
		return ast.FenceFloor
	case "⌈":
		return ast.FenceCeiling
	default:
		return ast.FenceNone
	}
}

func operatorFromChr(c string) ast.Operator {
	switch c {
	case "∑":
		return ast.OpSum
	case "∏":
		return ast.OpProduct
	case "∐":
		return ast.OpCoproduct
	case "∫":
		return ast.OpIntegral
	case "∬":
		return ast.OpDoubleIntegral
	case "∭":
		return ast.OpTripleIntegral
	case "∮":
		return ast.OpContourIntegral
	case "∪":
		return ast.OpUnion
	case "∩":
		return ast.OpIntersection
	default:
		return ast.OpUnknown
	}
}

func accentFromChar(c string) ast.AccentKind {
	switch c {
	case "^":
		return ast.AccentHat
	case "~":
		return ast.AccentTilde
	case "¯", "-":
		return ast.AccentBar
	case ".":
		return ast.AccentDot
	case "..":
		return ast.AccentDDot
	case "ˇ":
		return ast.AccentCheck
	case "˘":
		return ast.AccentBreve
	case "→":
		return ast.AccentArrowRight
	case "←":
		return ast.AccentArrowLeft
	case "`":
		return ast.AccentGrave
	case "´":
		return ast.AccentAcute
	default:
		return ast.AccentUnknown
	}
}
