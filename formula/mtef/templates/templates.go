// Package templates holds the fixed catalog of MTEF template definitions
// (selector, variation) -> LaTeX-shaped template string, and the
// substitution/pattern-matching logic that turns a resolved template
// plus its already-converted sub-object arguments into a MathNode.
package templates

import (
	"strconv"
	"strings"

	"github.com/TalentFormula/msdoc/formula/ast"
)

// Def is one catalog entry. Description documents the template for
// maintainers; it plays no role in matching.
type Def struct {
	Selector    uint8
	Variation   uint16
	Description string
	Template    string
}

// catalog is the fixed (selector, variation) -> template table. Order
// matters: selector 25 carries duplicate (selector, variation) pairs
// for horizontal-brace and hbracket templates, and Find must return the
// first match, per the format's documented ambiguity.
var catalog = []Def{
	{0, 1, "fence: angle-left only", `\left\langle #1[M]\right.  `},
	{0, 2, "fence: angle-right only", `\left. #1[M]\right\rangle  `},
	{0, 3, "fence: angle-both", `\left\langle #1[M]\right\rangle  `},
	{1, 1, "fence: paren-left only", `\left( #1[M]\right.  `},
	{1, 2, "fence: paren-right only", `\left. #1[M]\right)  `},
	{1, 3, "fence: paren-both", `\left( #1[M]\right)  `},
	{2, 1, "fence: brace-left only", `\left\{ #1[M]\right.  `},
	{2, 2, "fence: brace-right only", `\left. #1[M]\right\}  `},
	{2, 3, "fence: brace-both", `\left\{ #1[M]\right\}  `},
	{3, 1, "fence: brack-left only", `\left[ #1[M]\right.  `},
	{3, 2, "fence: brack-right only", `\left. #1[M]\right]  `},
	{3, 3, "fence: brack-both", `\left[ #1[M]\right]  `},
	{4, 1, "fence: bar-left only", `\left| #1[M]\right.  `},
	{4, 2, "fence: bar-right only", `\left. #1[M]\right|  `},
	{4, 3, "fence: bar-both", `\left| #1[M]\right|  `},
	{5, 1, "fence: dbar-left only", `\left\| #1[M]\right.  `},
	{5, 2, "fence: dbar-right only", `\left. #1[M]\right\|  `},
	{5, 3, "fence: dbar-both", `\left\| #1[M]\right\|  `},
	{6, 1, "fence: floor", `\left\lfloor #1[M]\right.  `},
	{6, 2, "fence: floor", `\left. #1[M]\right\rfloor  `},
	{6, 3, "fence: floor", `\left\lfloor #1[M]\right\rfloor  `},
	{7, 1, "fence: ceiling", `\left\lceil #1[M]\right.  `},
	{7, 2, "fence: ceiling", `\left. #1[M]\right\rceil  `},
	{7, 3, "fence: ceiling", `\left\lceil #1[M]\right\rceil  `},
	{8, 0, "fence: LBLB", `\left[ #1[M]\right[  `},
	{9, 0, "fence: LPLP", `\left( #1[M]\right(  `},
	{9, 1, "fence: RPLP", `\left) #1[M]\right(  `},
	{9, 2, "fence: LBLP", `\left[ #1[M]\right(  `},
	{9, 3, "fence: RBLP", `\left] #1[M]\right(  `},
	{9, 16, "fence: LPRP", `\left( #1[M]\right)  `},
	{9, 17, "fence: RPRP", `\left) #1[M]\right)  `},
	{9, 18, "fence: LBRP", `\left[ #1[M]\right)  `},
	{9, 19, "fence: RBRP", `\left] #1[M]\right)  `},
	{9, 32, "fence: LPLB", `\left( #1[M]\right[  `},
	{9, 33, "fence: RPLB", `\left) #1[M]\right[  `},
	{9, 34, "fence: LBLB", `\left[ #1[M]\right[  `},
	{9, 35, "fence: RBLB", `\left] #1[M]\right[  `},
	{9, 48, "fence: LPRB", `\left( #1[M]\right]  `},
	{9, 49, "fence: RPRB", `\left) #1[M]\right]  `},
	{9, 50, "fence: LBRB", `\left[ #1[M]\right]  `},
	{9, 51, "fence: RBRB", `\left] #1[M]\right]  `},
	{10, 0, "root: sqroot", `\sqrt{#1[M]}  `},
	{10, 1, "root: nthroot", `\sqrt[#2[M]]{#1[M]}  `},
	{11, 0, "fract: tmfract", `\frac{#1[M]}{#2[M]}  `},
	{11, 1, "fract: smfract", `\frac{#1[M]}{#2[M]}  `},
	{11, 2, "fract: slfract", `{#1[M]}/{#2[M]}  `},
	{11, 3, "fract: slfract", `{#1[M]}/{#2[M]}  `},
	{11, 4, "fract: slfract", `{#1[M]}/{#2[M]}  `},
	{11, 5, "fract: smfract", `\frac{#1[M]}{#2[M]}  `},
	{11, 6, "fract: slfract", `{#1[M]}/{#2[M]}  `},
	{11, 7, "fract: slfract", `{#1[M]}/{#2[M]}  `},
	{12, 0, "ubar: subar", `\underline{#1[M]}  `},
	{12, 1, "ubar: dubar", `\underline{\underline{#1[M]}}  `},
	{13, 0, "obar: sobar", `\overline{#1[M]}  `},
	{13, 1, "obar: dobar", `\overline{\overline{#1[M]}}  `},
	{14, 0, "arrow: box on top", `\stackrel{#1[M]}{\longrightarrow}  `},
	{14, 1, "arrow: box below", `\stackunder{#1[M]}{\longrightarrow}  `},
	{15, 0, "integrals: single - no limits", `\int #1[M]  `},
	{15, 1, "integrals: single - both", `\int\nolimits#2[L][STARTSUB][ENDSUB]#3[L][STARTSUP][ENDSUP]#1[M]  `},
	{15, 2, "integrals: double - both", `\iint\nolimits#2[L][STARTSUB][ENDSUB]#3[L][STARTSUP][ENDSUP]#1[M]  `},
	{15, 3, "integrals: triple - both", `\iiint\nolimits#2[L][STARTSUB][ENDSUB]#3[L][STARTSUP][ENDSUP]#1[M]  `},
	{15, 4, "integrals: contour - no limits", `\oint #1[M]  `},
	{15, 8, "integrals: contour - no limits", `\oint #1[M]  `},
	{15, 12, "integrals: contour - no limits", `\oint #1[M]  `},
	{16, 0, "sum: limits top/bottom - both", `\sum\limits#2[L][STARTSUB][ENDSUB]#3[L][STARTSUP][ENDSUP]#1[M]  `},
	{17, 0, "product: limits top/bottom - both", `\prod\limits#2[L][STARTSUB][ENDSUB]#3[L][STARTSUP][ENDSUP]#1[M]  `},
	{18, 0, "coproduct: limits top/bottom - both", `\dcoprod\limits#2[L][STARTSUB][ENDSUB]#3[L][STARTSUP][ENDSUP]#1[M]  `},
	{19, 0, "union: limits top/bottom - both", `\dbigcup\limits#2[L][STARTSUB][ENDSUB]#3[L][STARTSUP][ENDSUP]#1[M]  `},
	{20, 0, "intersection: limits top/bottom - both", `\dbigcap\limits#2[L][STARTSUB][ENDSUB]#3[L][STARTSUP][ENDSUP]#1[M]  `},
	{21, 0, "integrals: single - both", `\int#2[L][STARTSUB][ENDSUB]#3[L][STARTSUP][ENDSUP]#1[M]  `},
	{22, 0, "sum: single - both", `\sum#2[L][STARTSUB][ENDSUB]#3[L][STARTSUP][ENDSUP]#1[M]  `},
	{23, 0, "limit: both", `#1 #2[L][STARTSUB][ENDSUB]#3[L][STARTSUP][ENDSUP]  `},
	{24, 0, "horizontal brace: lower", `\stackunder{#2[M]}{\underbrace{#1[M]}}  `},
	{24, 1, "horizontal brace: upper", `\stackrel{#2[M]}{\overbrace{#1[M]}}  `},
	{25, 0, "horizontal brace: lower", `\stackunder{#2[M]}{\underbrace{#1[M]}}  `},
	{25, 1, "horizontal brace: upper", `\stackrel{#2[M]}{\overbrace{#1[M]}}  `},
	{25, 0, "hbracket", ` `},
	{27, 0, "script: sub", `#1[L][STARTSUB][ENDSUB]  `},
	{27, 1, "script: sub", `#1[L][STARTSUB][ENDSUB]  `},
	{28, 0, "script: super", `#2[L][STARTSUP][ENDSUP]  `},
	{28, 1, "script: super", `#2[L][STARTSUP][ENDSUP]  `},
	{29, 0, "script: subsup", `#1[L][STARTSUB][ENDSUB]#2[L][STARTSUP][ENDSUP]  `},
}

// Find returns the catalog entry for (selector, variation), preferring
// the first declared match when the catalog carries duplicates (see
// selector 25 above).
func Find(selector uint8, variation uint16) (Def, bool) {
	for _, d := range catalog {
		if d.Selector == selector && d.Variation == variation {
			return d, true
		}
	}
	return Def{}, false
}

// flatten renders an argument's node list down to plain text for
// simple placeholder substitution, mirroring the source template
// engine's "complex nodes become a placeholder" fallback.
func flatten(nodes []ast.MathNode) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Kind {
		case ast.KindText:
			b.WriteString(n.Text)
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

// ParseTemplateArguments substitutes #n[mode] placeholders and
// [STARTSUB]/[ENDSUB]/[STARTSUP]/[ENDSUP] markers in template into a
// plain string, then hands the result to ParseLatexToAST to recover a
// typed node instead of flat text.
func ParseTemplateArguments(template string, args [][]ast.MathNode) ast.MathNode {
	var result strings.Builder
	runes := []rune(template)
	i := 0
	for i < len(runes) {
		ch := runes[i]
		switch {
		case ch == '#' && i+1 < len(runes) && runes[i+1] >= '1' && runes[i+1] <= '9':
			argIndex := int(runes[i+1]-'0') - 1
			i += 2
			if i < len(runes) && runes[i] == '[' {
				i++
				for i < len(runes) && runes[i] != ']' {
					i++
				}
				if i < len(runes) {
					i++ // consume ']'
				}
			}
			if argIndex >= 0 && argIndex < len(args) {
				result.WriteString(flatten(args[argIndex]))
			}
		case ch == '[':
			j := i + 1
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			marker := string(runes[i+1 : min(j, len(runes))])
			switch marker {
			case "STARTSUB":
				result.WriteString("_{")
			case "ENDSUB":
				result.WriteString("}")
			case "STARTSUP":
				result.WriteString("^{")
			case "ENDSUP":
				result.WriteString("}")
			default:
				result.WriteByte('[')
				result.WriteString(marker)
				result.WriteByte(']')
			}
			i = j + 1
		default:
			result.WriteRune(ch)
			i++
		}
	}

	return ParseLatexToAST(result.String(), args)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ParseLatexToAST pattern-matches the substituted template string
// against the handful of LaTeX shapes the catalog produces (fraction,
// root, large operator with limits, sub/superscript, fence) and emits
// the corresponding typed node. Anything unrecognized falls back to a
// plain text node, matching the source engine's behavior.
func ParseLatexToAST(latex string, args [][]ast.MathNode) ast.MathNode {
	latex = strings.TrimSpace(latex)

	arg := func(i int) []ast.MathNode {
		if i >= 0 && i < len(args) {
			return args[i]
		}
		return nil
	}

	if strings.HasPrefix(latex, `\frac{`) && strings.Contains(latex, "}{") {
		return ast.MathNode{Kind: ast.KindFrac, Numerator: arg(0), Denominator: arg(1)}
	}

	if strings.HasPrefix(latex, `\sqrt`) {
		if strings.HasPrefix(latex, `\sqrt[`) {
			return ast.MathNode{Kind: ast.KindRoot, Radicand: arg(0), Degree: arg(1)}
		}
		if strings.HasPrefix(latex, `\sqrt{`) {
			return ast.MathNode{Kind: ast.KindRoot, Radicand: arg(0)}
		}
	}

	if strings.Contains(latex, `\sum`) || strings.Contains(latex, `\prod`) || strings.Contains(latex, `\int`) {
		op := ast.OpIntegral
		switch {
		case strings.Contains(latex, `\sum`):
			op = ast.OpSum
		case strings.Contains(latex, `\prod`):
			op = ast.OpProduct
		}
		node := ast.MathNode{Kind: ast.KindLargeOp, Operator: op}
		if strings.Contains(latex, "_{") && len(args) >= 2 {
			node.Lower = arg(1)
		}
		if strings.Contains(latex, "^{") && len(args) >= 3 {
			node.Upper = arg(2)
		}
		if len(args) >= 1 {
			node.Operand = arg(0)
		}
		return node
	}

	hasSub := strings.Contains(latex, "_{")
	hasSup := strings.Contains(latex, "^{")
	switch {
	case hasSub && hasSup:
		return ast.MathNode{Kind: ast.KindSubSup, Base: arg(0), Sub: arg(1), Sup: arg(2)}
	case hasSub:
		return ast.MathNode{Kind: ast.KindSub, Base: arg(0), Sub: arg(1)}
	case hasSup:
		return ast.MathNode{Kind: ast.KindPower, Base: arg(0), Sup: arg(1)}
	}

	if strings.Contains(latex, `\left`) && strings.Contains(latex, `\right`) {
		open := fenceFromOpen(latex)
		closeF := fenceFromClose(latex)
		return ast.MathNode{Kind: ast.KindFenced, Open: open, Close: closeF, Content: arg(0)}
	}

	return ast.Text(latex)
}

func fenceFromOpen(latex string) ast.FenceKind {
	switch {
	case strings.Contains(latex, `\left(`):
		return ast.FenceParen
	case strings.Contains(latex, `\left[`):
		return ast.FenceBracket
	case strings.Contains(latex, `\left\{`):
		return ast.FenceBrace
	case strings.Contains(latex, `\left|`):
		return ast.FencePipe
	default:
		return ast.FenceParen
	}
}

func fenceFromClose(latex string) ast.FenceKind {
	switch {
	case strings.Contains(latex, `\right)`):
		return ast.FenceParen
	case strings.Contains(latex, `\right]`):
		return ast.FenceBracket
	case strings.Contains(latex, `\right\}`):
		return ast.FenceBrace
	case strings.Contains(latex, `\right|`):
		return ast.FencePipe
	default:
		return ast.FenceParen
	}
}

// LargeOpFromSelector maps a TMPL selector directly to a large-operator
// kind, used when a template's own string doesn't carry a recognizable
// \sum/\prod/\int token (selectors 15-23 cover every n-ary form).
func LargeOpFromSelector(selector uint8) (ast.Operator, bool) {
	switch selector {
	case 15, 21:
		return ast.OpIntegral, true
	case 16, 22:
		return ast.OpSum, true
	case 17:
		return ast.OpProduct, true
	case 18:
		return ast.OpCoproduct, true
	case 19:
		return ast.OpUnion, true
	case 20:
		return ast.OpIntersection, true
	case 23:
		return ast.OpIntegral, true
	default:
		return ast.OpUnknown, false
	}
}

// FenceFromSelector maps a TMPL selector to the fence kind it encloses,
// for selectors 0-7 (angle/paren/brace/bracket/bar/dbar/floor/ceiling).
func FenceFromSelector(selector uint8) (ast.FenceKind, bool) {
	switch selector {
	case 0:
		return ast.FenceAngle, true
	case 1:
		return ast.FenceParen, true
	case 2:
		return ast.FenceBrace, true
	case 3:
		return ast.FenceBracket, true
	case 4:
		return ast.FencePipe, true
	case 5:
		return ast.FenceDoublePipe, true
	case 6:
		return ast.FenceFloor, true
	case 7:
		return ast.FenceCeiling, true
	default:
		return ast.FenceNone, false
	}
}

// VariationDescribesBoth reports whether a fence variation is 3, the
// "both sides" form of the two-sided fence selectors. It looks at the
// variation alone; the selector is not consulted. Exposed for
// callers that want to short-circuit template substitution for the
// common case instead of round-tripping through LaTeX text.
func VariationDescribesBoth(variation uint16) bool {
	return variation == 3
}

// DescribeVariation renders a variation code for diagnostics; unused in
// the hot path but handy when dumping unrecognized templates.
func DescribeVariation(v uint16) string {
	return strconv.Itoa(int(v))
}
