// Package formula reconstructs infix spreadsheet formula text from the
// reverse-Polish AST node arrays Numbers stores in TSCE.FormulaArchive
// protobuf messages, and coerces TST.Cell protobuf values into typed
// CellValue results. Ported from table_extractor.rs's
// extract_formula_string/column_index_to_letter/get_function_name and
// parse_cell.
package formula

// NodeKind discriminates one reverse-Polish AST node. Numbers stores
// formulas postfix; Reconstruct walks them left to right over an
// explicit string stack.
type NodeKind int

const (
	NodeAddition NodeKind = iota
	NodeSubtraction
	NodeMultiplication
	NodeDivision
	NodePower
	NodeNegation
	NodeConcatenation
	NodeNumber
	NodeString
	NodeBoolean
	NodeCellRef
	NodeCrossTableCellRef
	NodeFunction
	NodeList
)

// CellRef addresses one cell by zero-based column/row handle, each with
// an independent "sticky" ($) flag.
type CellRef struct {
	ColumnHandle uint32
	RowHandle    uint32
	ColumnSticky bool
	RowSticky    bool
}

// Node is one reverse-Polish AST node. Only the fields relevant to Kind
// are populated; the rest are zero.
type Node struct {
	Kind NodeKind

	Number  float64
	String  string
	Boolean bool

	CellRef           *CellRef
	CrossTableCellRef *CellRef

	// FunctionIndex/NumArgs apply to NodeFunction; NumArgs alone to NodeList.
	FunctionIndex uint32
	NumArgs       int
}
