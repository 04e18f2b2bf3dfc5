package omml

import (
	"errors"
	"strings"
	"testing"

	"github.com/TalentFormula/msdoc/formula/ast"
	"github.com/TalentFormula/msdoc/ooxerr"
)

func parseString(t *testing.T, input string) ([]ast.MathNode, error) {
	t.Helper()
	p := New(ast.NewArena())
	return p.Parse(strings.NewReader(input))
}

func mustParse(t *testing.T, input string) []ast.MathNode {
	t.Helper()
	nodes, err := parseString(t, input)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}
	return nodes
}

func TestSimpleRunYieldsText(t *testing.T) {
	nodes := mustParse(t, `<m:oMath><m:r><m:t>x</m:t></m:r></m:oMath>`)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	if nodes[0].Kind != ast.KindText || nodes[0].Text != "x" {
		t.Errorf("expected Text(\"x\"), got kind=%d text=%q", nodes[0].Kind, nodes[0].Text)
	}
}

func TestFraction(t *testing.T) {
	nodes := mustParse(t, `<m:oMath><m:f><m:num><m:r><m:t>1</m:t></m:r></m:num><m:den><m:r><m:t>2</m:t></m:r></m:den></m:f></m:oMath>`)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	n := nodes[0]
	if n.Kind != ast.KindFrac {
		t.Fatalf("expected Frac, got kind=%d", n.Kind)
	}
	if len(n.Numerator) != 1 || len(n.Denominator) != 1 {
		t.Fatalf("expected 1-element numerator and denominator, got %d/%d", len(n.Numerator), len(n.Denominator))
	}
	if n.Numerator[0].Text != "1" || n.Denominator[0].Text != "2" {
		t.Errorf("wrong frac content: %q / %q", n.Numerator[0].Text, n.Denominator[0].Text)
	}
}

func TestDelimiterParens(t *testing.T) {
	nodes := mustParse(t, `<m:oMath><m:d><m:dPr><m:begChr>(</m:begChr><m:endChr>)</m:endChr></m:dPr><m:e><m:r><m:t>x</m:t></m:r></m:e></m:d></m:oMath>`)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	n := nodes[0]
	if n.Kind != ast.KindFenced {
		t.Fatalf("expected Fenced, got kind=%d", n.Kind)
	}
	if n.Open != ast.FenceParen || n.Close != ast.FenceParen {
		t.Errorf("expected paren fences, got open=%d close=%d", n.Open, n.Close)
	}
	if len(n.Content) != 1 || n.Content[0].Text != "x" {
		t.Errorf("wrong fenced content: %+v", n.Content)
	}
}

func TestNarySumWithLimits(t *testing.T) {
	nodes := mustParse(t, `<m:oMath><m:nary><m:naryPr><m:chr>∑</m:chr></m:naryPr><m:sub><m:r><m:t>1</m:t></m:r></m:sub><m:sup><m:r><m:t>n</m:t></m:r></m:sup><m:e><m:r><m:t>a</m:t></m:r></m:e></m:nary></m:oMath>`)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	n := nodes[0]
	if n.Kind != ast.KindLargeOp {
		t.Fatalf("expected LargeOp, got kind=%d", n.Kind)
	}
	if n.Operator != ast.OpSum {
		t.Errorf("expected Sum operator, got %d", n.Operator)
	}
	if len(n.Lower) == 0 || len(n.Upper) == 0 {
		t.Errorf("expected lower and upper limits present, got %d/%d", len(n.Lower), len(n.Upper))
	}
	if len(n.Operand) != 1 || n.Operand[0].Text != "a" {
		t.Errorf("wrong integrand: %+v", n.Operand)
	}
}

func TestRadicalWithDegree(t *testing.T) {
	nodes := mustParse(t, `<m:oMath><m:rad><m:deg><m:r><m:t>3</m:t></m:r></m:deg><m:e><m:r><m:t>x</m:t></m:r></m:e></m:rad></m:oMath>`)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	n := nodes[0]
	if n.Kind != ast.KindRoot {
		t.Fatalf("expected Root, got kind=%d", n.Kind)
	}
	if len(n.Degree) == 0 {
		t.Errorf("expected Degree present")
	}
	if len(n.Radicand) != 1 || n.Radicand[0].Text != "x" {
		t.Errorf("wrong radicand: %+v", n.Radicand)
	}
}

func TestAccentHat(t *testing.T) {
	nodes := mustParse(t, `<m:oMath><m:acc><m:accPr><m:chr>^</m:chr></m:accPr><m:e><m:r><m:t>x</m:t></m:r></m:e></m:acc></m:oMath>`)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	n := nodes[0]
	if n.Kind != ast.KindAccent {
		t.Fatalf("expected Accent, got kind=%d", n.Kind)
	}
	if n.Accent != ast.AccentHat {
		t.Errorf("expected Hat accent, got %d", n.Accent)
	}
}

func TestEmptyOMathYieldsNoNodes(t *testing.T) {
	nodes := mustParse(t, `<m:oMath/>`)
	if len(nodes) != 0 {
		t.Errorf("expected no nodes for empty oMath, got %d", len(nodes))
	}
}

func TestSuperscript(t *testing.T) {
	nodes := mustParse(t, `<m:oMath><m:sSup><m:e><m:r><m:t>x</m:t></m:r></m:e><m:sup><m:r><m:t>2</m:t></m:r></m:sup></m:sSup></m:oMath>`)
	if len(nodes) != 1 || nodes[0].Kind != ast.KindPower {
		t.Fatalf("expected one Power node, got %+v", nodes)
	}
	if len(nodes[0].Base) != 1 || len(nodes[0].Sup) != 1 {
		t.Errorf("wrong base/sup arity: %d/%d", len(nodes[0].Base), len(nodes[0].Sup))
	}
}

func TestDepthBound(t *testing.T) {
	// 1010 nested fractions exceed MaxDepth; the parser must reject the
	// document with a structural error instead of overflowing its own
	// stack.
	var b strings.Builder
	b.WriteString("<m:oMath>")
	const depth = 1010
	for i := 0; i < depth; i++ {
		b.WriteString("<m:f><m:num>")
	}
	b.WriteString("<m:r><m:t>x</m:t></m:r>")
	for i := 0; i < depth; i++ {
		b.WriteString("</m:num></m:f>")
	}
	b.WriteString("</m:oMath>")

	_, err := parseString(t, b.String())
	if err == nil {
		t.Fatal("expected structural error for over-deep nesting")
	}
	var oe *ooxerr.Error
	if !errors.As(err, &oe) || oe.Kind != ooxerr.KindParseError {
		t.Errorf("expected KindParseError, got %v", err)
	}
}

func TestUnknownElementChildrenFlowUp(t *testing.T) {
	nodes := mustParse(t, `<m:oMath><m:mystery><m:r><m:t>x</m:t></m:r></m:mystery></m:oMath>`)
	if len(nodes) != 1 || nodes[0].Kind != ast.KindText || nodes[0].Text != "x" {
		t.Errorf("expected the unknown wrapper's child to flow up as Text(\"x\"), got %+v", nodes)
	}
}

func TestTruncatedXMLIsXmlError(t *testing.T) {
	_, err := parseString(t, `<m:oMath><m:r><m:t>x`)
	if err == nil {
		t.Fatal("expected error for truncated input")
	}
	var oe *ooxerr.Error
	if !errors.As(err, &oe) {
		t.Fatalf("expected *ooxerr.Error, got %T", err)
	}
	if oe.Kind != ooxerr.KindXmlError && oe.Kind != ooxerr.KindParseError {
		t.Errorf("expected XmlError (or unclosed-element ParseError), got %v", oe.Kind)
	}
}

func TestOrphanedNumeratorAtRootRejected(t *testing.T) {
	_, err := parseString(t, `<m:num><m:r><m:t>1</m:t></m:r></m:num>`)
	if err == nil {
		t.Fatal("expected structural error for a stray numerator at the document root")
	}
}

func TestInvalidNestingRejected(t *testing.T) {
	// A numerator directly inside a radical is not in the nesting table.
	_, err := parseString(t, `<m:oMath><m:rad><m:num><m:r><m:t>1</m:t></m:r></m:num></m:rad></m:oMath>`)
	if err == nil {
		t.Fatal("expected nesting-validation error")
	}
}

func TestEquationArrayBecomesMatrix(t *testing.T) {
	nodes := mustParse(t, `<m:oMath><m:eqArr><m:e><m:r><m:t>a</m:t></m:r></m:e><m:e><m:r><m:t>b</m:t></m:r></m:e></m:eqArr></m:oMath>`)
	if len(nodes) != 1 || nodes[0].Kind != ast.KindMatrix {
		t.Fatalf("expected one Matrix node, got %+v", nodes)
	}
	if len(nodes[0].Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(nodes[0].Rows))
	}
}

func TestMatrix(t *testing.T) {
	nodes := mustParse(t, `<m:oMath><m:m><m:mr><m:e><m:r><m:t>a</m:t></m:r></m:e><m:e><m:r><m:t>b</m:t></m:r></m:e></m:mr><m:mr><m:e><m:r><m:t>c</m:t></m:r></m:e><m:e><m:r><m:t>d</m:t></m:r></m:e></m:mr></m:m></m:oMath>`)
	if len(nodes) != 1 || nodes[0].Kind != ast.KindMatrix {
		t.Fatalf("expected one Matrix node, got %+v", nodes)
	}
	if len(nodes[0].Rows) != 2 || len(nodes[0].Rows[0]) != 2 {
		t.Errorf("expected 2x2 matrix, got %d rows", len(nodes[0].Rows))
	}
}

func TestFramePoolReuseDoesNotAliasSlots(t *testing.T) {
	// Two sibling fractions force the pool to recycle frames; the first
	// fraction's numerator must survive the second's parse untouched.
	nodes := mustParse(t, `<m:oMath><m:f><m:num><m:r><m:t>1</m:t></m:r></m:num><m:den><m:r><m:t>2</m:t></m:r></m:den></m:f><m:f><m:num><m:r><m:t>3</m:t></m:r></m:num><m:den><m:r><m:t>4</m:t></m:r></m:den></m:f></m:oMath>`)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if nodes[0].Numerator[0].Text != "1" || nodes[1].Numerator[0].Text != "3" {
		t.Errorf("frame reuse corrupted slots: %q / %q", nodes[0].Numerator[0].Text, nodes[1].Numerator[0].Text)
	}
}
