package formula

import "github.com/TalentFormula/msdoc/ooxerr"

// CellValueType mirrors TST.CellValueType's discriminant, stored as the
// first byte of a cell's raw TST.Cell encoding in the callers this
// engine expects (the document-object-index lookup that resolves
// cell_storage_buffer offsets into full Cell messages lives outside
// this engine's scope; ParseCellValue consumes the already-dispatched
// type and value bytes).
type CellValueType int

const (
	CellValueTypeEmpty CellValueType = iota
	CellValueTypeNumber
	CellValueTypeString
	CellValueTypeBool
	CellValueTypeDate
	CellValueTypeDuration
	CellValueTypeError
	CellValueTypeProvided
	CellValueTypeRichText
)

// CellValueKind discriminates the CellValue union.
type CellValueKind int

const (
	ValueEmpty CellValueKind = iota
	ValueNumber
	ValueString
	ValueBool
	ValueDate
	ValueDuration
	ValueError
	ValueFormula
)

// CellValue is the coerced, typed result of parsing one TST.Cell.
// Date/Duration carry the raw stored number with no timezone
// conversion: resolving Apple's epoch offset into a calendar date is a
// presentation concern left to callers, and RichText's storage-id ->
// string-table lookup needs a document-wide string table this engine
// does not own (see SPEC_FULL.md §4.13).
type CellValue struct {
	Kind CellValueKind

	Number  float64
	String  string
	Bool    bool
	Error   string
	Formula string
}

// ParseCellValue coerces a TST.CellValueType discriminant plus its
// already-extracted payload into a CellValue. Callers provide `number`
// for Number/Date/Duration cells (float64 fields decode identically
// regardless of semantic meaning) and `text` for String/Error cells;
// `formulaNodes`, when non-nil, is the reverse-Polish AST for a
// Provided (formula) cell and is reconstructed via Reconstruct.
func ParseCellValue(cellType CellValueType, number float64, text string, formulaNodes []Node) (CellValue, error) {
	switch cellType {
	case CellValueTypeEmpty:
		return CellValue{Kind: ValueEmpty}, nil
	case CellValueTypeNumber:
		return CellValue{Kind: ValueNumber, Number: number}, nil
	case CellValueTypeString:
		if text == "" {
			// No direct string value; resolving a string-table reference
			// needs a document-wide lookup this engine does not own.
			return CellValue{Kind: ValueEmpty}, nil
		}
		return CellValue{Kind: ValueString, String: text}, nil
	case CellValueTypeBool:
		return CellValue{Kind: ValueBool, Bool: number != 0}, nil
	case CellValueTypeDate:
		return CellValue{Kind: ValueDate, Number: number}, nil
	case CellValueTypeDuration:
		return CellValue{Kind: ValueDuration, Number: number}, nil
	case CellValueTypeError:
		return CellValue{Kind: ValueError, Error: "ERROR"}, nil
	case CellValueTypeProvided:
		if formulaNodes == nil {
			return CellValue{Kind: ValueEmpty}, nil
		}
		return CellValue{Kind: ValueFormula, Formula: Reconstruct(formulaNodes)}, nil
	case CellValueTypeRichText:
		if text == "" {
			return CellValue{Kind: ValueEmpty}, nil
		}
		return CellValue{Kind: ValueString, String: text}, nil
	default:
		return CellValue{}, ooxerr.New(ooxerr.KindInvalidFormat, "unknown cell value type %d", cellType)
	}
}
