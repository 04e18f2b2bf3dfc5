package omml

// ElementType enumerates every OMML element this parser understands,
// resolved from an element's local name (the `m:` namespace prefix is
// ignored). Unknown elements map to ElemUnknown and are tolerated: the
// parser still walks their children, it just never builds a typed node
// for the wrapper itself.
type ElementType int

const (
	ElemUnknown ElementType = iota
	ElemOMath
	ElemOMathPara
	ElemRun
	ElemText
	ElemFraction
	ElemFractionPr
	ElemNumerator
	ElemDenominator
	ElemDelimiter
	ElemDelimiterPr
	ElemBeginChar
	ElemEndChar
	ElemSepChar
	ElemBase // <e>, reclassified by parent context
	ElemNary
	ElemNaryPr
	ElemChar
	ElemSub
	ElemSup
	ElemSubArg
	ElemSupArg
	ElemRadical
	ElemRadicalPr
	ElemDegree
	ElemDegreeHide
	ElemAccent
	ElemAccentPr
	ElemSuperscript
	ElemSubscript
	ElemSubSup
	ElemBar
	ElemBarPr
	ElemPosition
	ElemBox
	ElemBoxPr
	ElemPhantom
	ElemPhantomPr
	ElemMatrix
	ElemMatrixRow
	ElemMatrixCell
	ElemGroupChar
	ElemGroupCharPr
	ElemEquationArray
	ElemEquationArrayPr
	ElemRunProperties
	ElemControlProperties
	ElemStyle
	ElemNormalText
	ElemLiteral
	ElemLimLow
	ElemLimLowPr
	ElemLimUpp
	ElemLimUppPr
	ElemLimit
	ElemFunction
	ElemFunctionPr
	ElemFunctionName
	ElemIntegrand
	ElemBorderBox
	ElemBorderBoxPr
	ElemMatrixPr
	ElemMatrixColumn
	ElemMatrixColumnPr
	ElemVertAlign
	ElemScript
	ElemPreScript
	ElemPreScriptPr
)

// elementLookup maps an OMML local element name to its ElementType.
// The names are few enough (~60) that a plain map beats hand-rolling a
// perfect hash: Go's map already gives O(1) average lookup and the
// table reads far more plainly than a generated switch.
var elementLookup = map[string]ElementType{
	"oMath":     ElemOMath,
	"oMathPara": ElemOMathPara,
	"r":         ElemRun,
	"t":         ElemText,
	"f":         ElemFraction,
	"fPr":       ElemFractionPr,
	"num":       ElemNumerator,
	"den":       ElemDenominator,
	"d":         ElemDelimiter,
	"dPr":       ElemDelimiterPr,
	"begChr":    ElemBeginChar,
	"endChr":    ElemEndChar,
	"sepChr":    ElemSepChar,
	"e":         ElemBase,
	"nary":      ElemNary,
	"naryPr":    ElemNaryPr,
	"chr":       ElemChar,
	"sub":       ElemSub,
	"sup":       ElemSup,
	"rad":       ElemRadical,
	"radPr":     ElemRadicalPr,
	"deg":       ElemDegree,
	"degHide":   ElemDegreeHide,
	"acc":       ElemAccent,
	"accPr":     ElemAccentPr,
	"sSup":      ElemSuperscript,
	"sSub":      ElemSubscript,
	"sSubSup":   ElemSubSup,
	"bar":       ElemBar,
	"barPr":     ElemBarPr,
	"pos":       ElemPosition,
	"box":       ElemBox,
	"boxPr":     ElemBoxPr,
	"phant":     ElemPhantom,
	"phantPr":   ElemPhantomPr,
	"m":         ElemMatrix,
	"mr":        ElemMatrixRow,
	"groupChr":  ElemGroupChar,
	"groupChrPr": ElemGroupCharPr,
	"eqArr":     ElemEquationArray,
	"eqArrPr":   ElemEquationArrayPr,
	"rPr":       ElemRunProperties,
	"ctrlPr":    ElemControlProperties,
	"sty":       ElemStyle,
	"nor":       ElemNormalText,
	"lit":       ElemLiteral,
	"limLow":    ElemLimLow,
	"limLowPr":  ElemLimLowPr,
	"limUpp":    ElemLimUpp,
	"limUppPr":  ElemLimUppPr,
	"lim":       ElemLimit,
	"func":       ElemFunction,
	"funcPr":     ElemFunctionPr,
	"fName":      ElemFunctionName,
	"borderBox":  ElemBorderBox,
	"borderBoxPr": ElemBorderBoxPr,
	"mPr":        ElemMatrixPr,
	"mc":         ElemMatrixColumn,
	"mcPr":       ElemMatrixColumnPr,
	"vertJc":     ElemVertAlign,
	"scr":        ElemScript,
	"sPre":       ElemPreScript,
	"sPrePr":     ElemPreScriptPr,
}

// resolveElement resolves a local element name (namespace prefix
// already stripped by the caller) to its ElementType.
func resolveElement(local string) ElementType {
	if t, ok := elementLookup[local]; ok {
		return t
	}
	return ElemUnknown
}

// reclassifyBase applies the context-dependent rule for a bare `<e>`
// element: its role depends entirely on its immediate parent.
func reclassifyBase(parent ElementType) ElementType {
	switch parent {
	case ElemNary:
		return ElemIntegrand
	case ElemRadical, ElemSub, ElemSup, ElemSubSup, ElemSuperscript, ElemSubscript:
		return ElemBase
	case ElemFraction:
		return ElemDenominator
	case ElemMatrixRow:
		return ElemMatrixCell
	case ElemEquationArray:
		return ElemMatrixRow
	case ElemFunction:
		return ElemBase
	case ElemBox, ElemBorderBox, ElemPhantom, ElemBar, ElemGroupChar:
		return ElemBase
	default:
		return ElemBase
	}
}

// allowedChildren is the closed nesting table: parent -> set of child
// element types it may directly contain. Types not listed as keys
// (OMath, runs, and every *Pr properties element) place no nesting
// restriction on their children.
var allowedChildren = map[ElementType]map[ElementType]bool{
	ElemFraction: {ElemFractionPr: true, ElemNumerator: true, ElemDenominator: true},
	ElemDelimiter: {
		ElemDelimiterPr: true, ElemBase: true,
	},
	ElemNary: {
		ElemNaryPr: true, ElemSub: true, ElemSup: true, ElemIntegrand: true,
	},
	ElemRadical: {ElemRadicalPr: true, ElemDegree: true, ElemBase: true},
	ElemAccent:  {ElemAccentPr: true, ElemBase: true},
	ElemSuperscript: {ElemBase: true, ElemSup: true},
	ElemSubscript:   {ElemBase: true, ElemSub: true},
	ElemSubSup:      {ElemBase: true, ElemSub: true, ElemSup: true},
	ElemBar:         {ElemBarPr: true, ElemBase: true},
	ElemBox:         {ElemBoxPr: true, ElemBase: true},
	ElemBorderBox:   {ElemBorderBoxPr: true, ElemBase: true},
	ElemPhantom:     {ElemPhantomPr: true, ElemBase: true},
	ElemMatrix:      {ElemMatrixPr: true, ElemMatrixRow: true},
	ElemMatrixRow:   {ElemMatrixCell: true},
	ElemGroupChar:   {ElemGroupCharPr: true, ElemBase: true},
	ElemEquationArray: {ElemEquationArrayPr: true, ElemMatrixRow: true},
	ElemLimLow:      {ElemLimLowPr: true, ElemBase: true, ElemLimit: true},
	ElemLimUpp:      {ElemLimUppPr: true, ElemBase: true, ElemLimit: true},
	ElemFunction:    {ElemFunctionPr: true, ElemFunctionName: true, ElemBase: true},
	ElemPreScript:   {ElemPreScriptPr: true, ElemBase: true, ElemSub: true, ElemSup: true},
}

// validateNesting enforces the closed table above. Parents not present
// in the table (plain containers, properties elements, leaf text)
// accept any child; this mirrors the format's own permissiveness
// outside the handful of structurally meaningful constructs.
func validateNesting(parent, child ElementType) bool {
	allowed, tracked := allowedChildren[parent]
	if !tracked {
		return true
	}
	return allowed[child]
}
