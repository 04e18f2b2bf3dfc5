package mtef

import (
	"github.com/TalentFormula/msdoc/formula/ast"
	"github.com/TalentFormula/msdoc/formula/mtef/templates"
)

// ToAST walks a parsed MTEF object stream into the shared math AST. The
// object stream itself has no single root node -- a top-level parse
// typically yields a SIZE record followed by one LINE or PILE -- so
// ToAST flattens the list's constituent parts into a slice, matching
// how an OMML <m:oMath> element's children are consumed by callers.
func ToAST(list *ObjectList, arena *ast.Arena) []ast.MathNode {
	var out []ast.MathNode
	for n := list; n != nil; n = n.Next {
		if node, ok := objectToNode(n.Kind, n.Obj, arena); ok {
			out = append(out, node)
		}
	}
	return out
}

func objectToNode(kind Kind, obj Object, arena *ast.Arena) (ast.MathNode, bool) {
	switch kind {
	case KindChar:
		return charNode(obj, arena), true
	case KindLine:
		children := ToAST(obj.Objects, arena)
		if len(children) == 1 {
			return children[0], true
		}
		return ast.MathNode{Kind: ast.KindRun, Children: children}, true
	case KindPile:
		return pileNode(obj, arena), true
	case KindMatrix:
		return matrixNode(obj, arena), true
	case KindTmpl:
		return templateNode(obj, arena), true
	case KindEmbell, KindRuler, KindFont, KindSize:
		// Carries layout/typeface information this engine's AST has no
		// slot for; the character or template it decorates still
		// appears via its own object-list entry.
		return ast.MathNode{}, false
	default:
		return ast.MathNode{}, false
	}
}

func charNode(obj Object, arena *ast.Arena) ast.MathNode {
	r := rune(obj.Character)
	if obj.Bits16 != 0 {
		r = rune(obj.Bits16)
	}
	text := arena.Intern(string(r))
	node := ast.Text(text)
	for e := obj.Embells; e != nil; e = e.Next {
		node = applyEmbellishment(node, e.Kind)
	}
	return node
}

// applyEmbellishment wraps a character node in the accent or bar
// implied by an embellishment tag. Tags not recognized here pass the
// base node through unchanged rather than erroring, since embellished
// characters remain legible as plain text otherwise.
func applyEmbellishment(base ast.MathNode, kind uint8) ast.MathNode {
	var accent ast.AccentKind
	switch kind {
	case 1:
		accent = ast.AccentHat
	case 2:
		accent = ast.AccentTilde
	case 3:
		accent = ast.AccentBar
	case 4:
		accent = ast.AccentDot
	case 5:
		accent = ast.AccentDDot
	case 6:
		accent = ast.AccentCheck
	case 7:
		accent = ast.AccentBreve
	case 8:
		accent = ast.AccentVec
	case 9:
		accent = ast.AccentArrowRight
	case 10:
		accent = ast.AccentArrowLeft
	case 11:
		accent = ast.AccentGrave
	case 12:
		accent = ast.AccentAcute
	default:
		return base
	}
	return ast.MathNode{Kind: ast.KindAccent, Accent: accent, Base: []ast.MathNode{base}}
}

func pileNode(obj Object, arena *ast.Arena) ast.MathNode {
	var rows [][]ast.MathNode
	for l := obj.Lines; l != nil; l = l.Next {
		rows = append(rows, ToAST(&ObjectList{Kind: l.Kind, Obj: l.Obj}, arena))
	}
	return ast.MathNode{Kind: ast.KindMatrix, Rows: rows}
}

func matrixNode(obj Object, arena *ast.Arena) ast.MathNode {
	cols := int(obj.Cols)
	if cols == 0 {
		cols = 1
	}
	flat := ToAST(obj.Elements, arena)

	var rows [][]ast.MathNode
	for i := 0; i < len(flat); i += cols {
		end := i + cols
		if end > len(flat) {
			end = len(flat)
		}
		rows = append(rows, flat[i:end])
	}
	return ast.MathNode{Kind: ast.KindMatrix, Rows: rows}
}

// templateNode resolves a TMPL record against the template catalog and
// substitutes its sub-object groups as that template's arguments. A
// template's sub-list is a flat chain of already-parsed objects; each
// top-level entry becomes one argument group so a two-argument
// template (say, a fraction) sees exactly two [M]-mode slots filled.
func templateNode(obj Object, arena *ast.Arena) ast.MathNode {
	var args [][]ast.MathNode
	for n := obj.Sub; n != nil; n = n.Next {
		args = append(args, ToAST(&ObjectList{Kind: n.Kind, Obj: n.Obj}, arena))
	}

	def, ok := templates.Find(obj.Selector, obj.Variation)
	if !ok {
		// Unknown template shape: still surface its arguments so the
		// equation isn't silently dropped, flattened into a run.
		var flat []ast.MathNode
		for _, a := range args {
			flat = append(flat, a...)
		}
		return ast.MathNode{Kind: ast.KindRun, Children: flat}
	}
	return templates.ParseTemplateArguments(def.Template, args)
}
