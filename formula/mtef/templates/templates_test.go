package templates

import (
	"testing"

	"github.com/TalentFormula/msdoc/formula/ast"
)

func textArg(s string) []ast.MathNode {
	return []ast.MathNode{ast.Text(s)}
}

func TestFindStrictPair(t *testing.T) {
	d, ok := Find(11, 0)
	if !ok {
		t.Fatal("expected (11,0) fraction template")
	}
	if d.Template != `\frac{#1[M]}{#2[M]}  ` {
		t.Errorf("wrong template: %q", d.Template)
	}

	if _, ok := Find(11, 99); ok {
		t.Error("expected no match for unknown variation")
	}
	if _, ok := Find(200, 0); ok {
		t.Error("expected no match for unknown selector")
	}
}

func TestFindSelector25PrefersFirstDeclared(t *testing.T) {
	// Selector 25 carries duplicate (25,0) entries: the horizontal
	// brace is declared before the hbracket and must win.
	d, ok := Find(25, 0)
	if !ok {
		t.Fatal("expected (25,0) match")
	}
	if d.Description != "horizontal brace: lower" {
		t.Errorf("expected first declared entry, got %q", d.Description)
	}
}

func TestParseTemplateArgumentsFraction(t *testing.T) {
	d, _ := Find(11, 0)
	node := ParseTemplateArguments(d.Template, [][]ast.MathNode{textArg("a"), textArg("b")})
	if node.Kind != ast.KindFrac {
		t.Fatalf("expected Frac, got kind=%d", node.Kind)
	}
	if len(node.Numerator) != 1 || node.Numerator[0].Text != "a" {
		t.Errorf("wrong numerator: %+v", node.Numerator)
	}
	if len(node.Denominator) != 1 || node.Denominator[0].Text != "b" {
		t.Errorf("wrong denominator: %+v", node.Denominator)
	}
}

func TestParseTemplateArgumentsSqrt(t *testing.T) {
	d, _ := Find(10, 0)
	node := ParseTemplateArguments(d.Template, [][]ast.MathNode{textArg("x")})
	if node.Kind != ast.KindRoot || node.Degree != nil {
		t.Fatalf("expected plain Root, got %+v", node)
	}

	d, _ = Find(10, 1)
	node = ParseTemplateArguments(d.Template, [][]ast.MathNode{textArg("x"), textArg("3")})
	if node.Kind != ast.KindRoot || len(node.Degree) == 0 {
		t.Fatalf("expected nth Root with degree, got %+v", node)
	}
}

func TestParseTemplateArgumentsSumWithLimits(t *testing.T) {
	d, _ := Find(16, 0)
	node := ParseTemplateArguments(d.Template, [][]ast.MathNode{textArg("k"), textArg("1"), textArg("n")})
	if node.Kind != ast.KindLargeOp || node.Operator != ast.OpSum {
		t.Fatalf("expected Sum LargeOp, got %+v", node)
	}
	if len(node.Lower) == 0 || len(node.Upper) == 0 {
		t.Errorf("expected both limits, got %d/%d", len(node.Lower), len(node.Upper))
	}
	if len(node.Operand) != 1 || node.Operand[0].Text != "k" {
		t.Errorf("wrong operand: %+v", node.Operand)
	}
}

func TestParseLatexToASTFence(t *testing.T) {
	d, _ := Find(1, 3)
	node := ParseTemplateArguments(d.Template, [][]ast.MathNode{textArg("x")})
	if node.Kind != ast.KindFenced {
		t.Fatalf("expected Fenced, got %+v", node)
	}
	if node.Open != ast.FenceParen || node.Close != ast.FenceParen {
		t.Errorf("expected paren fence pair, got %d/%d", node.Open, node.Close)
	}
}

func TestParseLatexToASTScripts(t *testing.T) {
	d, _ := Find(27, 0)
	node := ParseTemplateArguments(d.Template, [][]ast.MathNode{textArg("i")})
	if node.Kind != ast.KindSub {
		t.Fatalf("expected Sub, got kind=%d", node.Kind)
	}

	d, _ = Find(29, 0)
	node = ParseTemplateArguments(d.Template, [][]ast.MathNode{textArg("i"), textArg("2"), textArg("3")})
	if node.Kind != ast.KindSubSup {
		t.Fatalf("expected SubSup, got kind=%d", node.Kind)
	}
}

func TestSelectorMappingTables(t *testing.T) {
	if op, ok := LargeOpFromSelector(16); !ok || op != ast.OpSum {
		t.Errorf("selector 16 should map to Sum")
	}
	if _, ok := LargeOpFromSelector(3); ok {
		t.Errorf("selector 3 is a fence, not a large operator")
	}
	if f, ok := FenceFromSelector(2); !ok || f != ast.FenceBrace {
		t.Errorf("selector 2 should map to Brace")
	}
}
