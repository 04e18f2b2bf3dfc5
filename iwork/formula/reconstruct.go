package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// functionNames maps a Numbers built-in function index to its name.
// Indices beyond this fixed catalog render as FUNC<n>, matching the
// original's fallback.
var functionNames = [...]string{
	"SUM", "AVERAGE", "COUNT", "MAX", "MIN", "PRODUCT", "IF", "AND", "OR",
	"NOT", "ROUND", "SQRT", "ABS", "CONCATENATE", "LEFT", "RIGHT", "MID",
	"LEN", "UPPER", "LOWER", "PROPER", "TRIM", "SUBSTITUTE", "FIND",
	"SEARCH", "NOW", "TODAY", "DATE", "TIME", "YEAR", "MONTH", "DAY",
	"HOUR", "MINUTE", "SECOND", "WEEKDAY", "VLOOKUP", "HLOOKUP", "INDEX",
	"MATCH", "CHOOSE",
}

func functionName(index uint32) string {
	if int(index) < len(functionNames) {
		return functionNames[index]
	}
	return fmt.Sprintf("FUNC%d", index)
}

// columnLetter converts a zero-based column handle to Excel-style
// letters (0->A, 25->Z, 26->AA), with the "AA after Z" base-26
// adjustment the original applies via idx/26-1 on the second pass.
func columnLetter(index uint32) string {
	var letters []byte
	idx := index
	for {
		remainder := idx % 26
		letters = append([]byte{byte('A' + remainder)}, letters...)
		if idx < 26 {
			break
		}
		idx = idx/26 - 1
	}
	return string(letters)
}

func cellRefText(ref *CellRef, tablePrefix string) string {
	col := columnLetter(ref.ColumnHandle)
	row := ref.RowHandle + 1 // 0-based to 1-based

	colSticky, rowSticky := "", ""
	if ref.ColumnSticky {
		colSticky = "$"
	}
	if ref.RowSticky {
		rowSticky = "$"
	}
	text := fmt.Sprintf("%s%s%s%d", colSticky, col, rowSticky, row)
	if tablePrefix != "" {
		return tablePrefix + "::" + text
	}
	return text
}

// crossTablePlaceholder is the literal table-name stand-in the original
// emits because the source table is not resolved at this layer; see
// SPEC_FULL.md section 10, decision #3.
const crossTablePlaceholder = "Table"

// Reconstruct converts a reverse-Polish AST node array into an infix
// spreadsheet formula string prefixed with "=". An empty node list
// yields "=". A malformed stack (too few operands for an operator)
// silently no-ops the operator rather than panicking, matching the
// original's tolerant `if expr_stack.len() >= 2` guards.
func Reconstruct(nodes []Node) string {
	if len(nodes) == 0 {
		return "="
	}

	stack := make([]string, 0, len(nodes))
	pop := func() (string, bool) {
		if len(stack) == 0 {
			return "", false
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, true
	}
	popN := func(n int) []string {
		args := make([]string, 0, n)
		for i := 0; i < n; i++ {
			v, ok := pop()
			if !ok {
				break
			}
			args = append(args, v)
		}
		reverseStrings(args)
		return args
	}

	for _, node := range nodes {
		switch node.Kind {
		case NodeAddition, NodeSubtraction, NodeMultiplication, NodeDivision, NodePower, NodeConcatenation:
			if len(stack) < 2 {
				continue
			}
			right, _ := pop()
			left, _ := pop()
			stack = append(stack, fmt.Sprintf("(%s%s%s)", left, binaryOp(node.Kind), right))

		case NodeNegation:
			if operand, ok := pop(); ok {
				stack = append(stack, fmt.Sprintf("-(%s)", operand))
			}

		case NodeNumber:
			stack = append(stack, strconv.FormatFloat(node.Number, 'g', -1, 64))

		case NodeString:
			stack = append(stack, strconv.Quote(node.String))

		case NodeBoolean:
			if node.Boolean {
				stack = append(stack, "TRUE")
			} else {
				stack = append(stack, "FALSE")
			}

		case NodeCellRef:
			if node.CellRef != nil {
				stack = append(stack, cellRefText(node.CellRef, ""))
			} else if node.CrossTableCellRef != nil {
				stack = append(stack, cellRefText(node.CrossTableCellRef, crossTablePlaceholder))
			}

		case NodeCrossTableCellRef:
			if node.CrossTableCellRef != nil {
				stack = append(stack, cellRefText(node.CrossTableCellRef, crossTablePlaceholder))
			}

		case NodeFunction:
			args := popN(node.NumArgs)
			stack = append(stack, fmt.Sprintf("%s(%s)", functionName(node.FunctionIndex), strings.Join(args, ",")))

		case NodeList:
			args := popN(node.NumArgs)
			stack = append(stack, strings.Join(args, ","))

		default:
			// Unknown node types are skipped; this mirrors the original's
			// catch-all `_ => {}` arm for whitespace/thunk nodes.
		}
	}

	if len(stack) == 0 {
		return "=FORMULA()"
	}
	return "=" + stack[len(stack)-1]
}

func binaryOp(kind NodeKind) string {
	switch kind {
	case NodeAddition:
		return "+"
	case NodeSubtraction:
		return "-"
	case NodeMultiplication:
		return "*"
	case NodeDivision:
		return "/"
	case NodePower:
		return "^"
	case NodeConcatenation:
		return "&"
	default:
		return "?"
	}
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
