package omml

import (
	"strings"

	"github.com/TalentFormula/msdoc/formula/ast"
)

// frame is one stack entry: the state accumulated for a single open
// element between its start and end events. Named slots (Numerator,
// Base, Sub, ...) hold content routed up from plumbing-role children;
// Children holds constructed nodes from non-plumbing children, in
// document order.
type frame struct {
	Type  ElementType
	Props ElementProperties
	Text  strings.Builder
	// ValAttr is the "val"/"m:val" attribute of a scalar leaf element
	// (chr, begChr, pos, sty, ...), read eagerly on start so the end
	// hook can prefer it over accumulated text.
	ValAttr string

	Children []ast.MathNode

	Numerator   []ast.MathNode
	Denominator []ast.MathNode
	Base        []ast.MathNode
	Sub         []ast.MathNode
	Sup         []ast.MathNode
	Degree      []ast.MathNode
	Integrand   []ast.MathNode
	Limit       []ast.MathNode
	Name        []ast.MathNode
	Rows        [][]ast.MathNode
}

func (f *frame) reset() {
	f.Type = ElemUnknown
	f.Props = ElementProperties{}
	f.Text.Reset()
	f.ValAttr = ""
	// Children must not keep its backing array: slot assignments in
	// resolveFrame hand the slice to the parent frame, so reusing the
	// array here would let a recycled frame overwrite a stored slot.
	f.Children = nil
	f.Numerator = nil
	f.Denominator = nil
	f.Base = nil
	f.Sub = nil
	f.Sup = nil
	f.Degree = nil
	f.Integrand = nil
	f.Limit = nil
	f.Name = nil
	f.Rows = nil
}

// framePool is a bounded free-list that recycles frames across one
// parser run; capacity hint follows the expected average nesting
// depth of a real equation, not the MAX_DEPTH structural ceiling.
type framePool struct {
	free []*frame
}

func newFramePool() *framePool {
	return &framePool{free: make([]*frame, 0, 32)}
}

func (p *framePool) acquire() *frame {
	if n := len(p.free); n > 0 {
		f := p.free[n-1]
		p.free = p.free[:n-1]
		return f
	}
	return &frame{}
}

func (p *framePool) release(f *frame) {
	f.reset()
	if len(p.free) < 256 {
		p.free = append(p.free, f)
	}
}
