package formula

import "testing"

func TestReconstructAddition(t *testing.T) {
	nodes := []Node{
		{Kind: NodeNumber, Number: 1},
		{Kind: NodeNumber, Number: 2},
		{Kind: NodeAddition},
	}
	got := Reconstruct(nodes)
	if got != "=(1+2)" {
		t.Fatalf("Reconstruct = %q, want %q", got, "=(1+2)")
	}
}

func TestReconstructCellRefMultiplication(t *testing.T) {
	nodes := []Node{
		{Kind: NodeCellRef, CellRef: &CellRef{ColumnHandle: 0, RowHandle: 0}},
		{Kind: NodeCellRef, CellRef: &CellRef{ColumnHandle: 1, RowHandle: 2}},
		{Kind: NodeMultiplication},
	}
	got := Reconstruct(nodes)
	if got != "=(A1*B3)" {
		t.Fatalf("Reconstruct = %q, want %q", got, "=(A1*B3)")
	}
}

func TestReconstructNegation(t *testing.T) {
	nodes := []Node{
		{Kind: NodeNumber, Number: 5},
		{Kind: NodeNegation},
	}
	got := Reconstruct(nodes)
	if got != "=-(5)" {
		t.Fatalf("Reconstruct = %q, want %q", got, "=-(5)")
	}
}

func TestReconstructFunctionSum(t *testing.T) {
	nodes := []Node{
		{Kind: NodeString, String: "a"},
		{Kind: NodeString, String: "b"},
		{Kind: NodeString, String: "c"},
		{Kind: NodeFunction, FunctionIndex: 0, NumArgs: 3},
	}
	got := Reconstruct(nodes)
	want := `=SUM("a","b","c")`
	if got != want {
		t.Fatalf("Reconstruct = %q, want %q", got, want)
	}
}

func TestReconstructEmptyYieldsBareEquals(t *testing.T) {
	if got := Reconstruct(nil); got != "=" {
		t.Fatalf("Reconstruct(nil) = %q, want %q", got, "=")
	}
}

func TestReconstructStickyCellRef(t *testing.T) {
	nodes := []Node{
		{Kind: NodeCellRef, CellRef: &CellRef{ColumnHandle: 26, RowHandle: 0, ColumnSticky: true, RowSticky: true}},
	}
	got := Reconstruct(nodes)
	if got != "=$AA$1" {
		t.Fatalf("Reconstruct = %q, want %q", got, "=$AA$1")
	}
}

func TestReconstructCrossTableRef(t *testing.T) {
	nodes := []Node{
		{Kind: NodeCellRef, CrossTableCellRef: &CellRef{ColumnHandle: 0, RowHandle: 0}},
	}
	got := Reconstruct(nodes)
	if got != "=Table::A1" {
		t.Fatalf("Reconstruct = %q, want %q", got, "=Table::A1")
	}
}

func TestReconstructBinaryUnderflowNoOp(t *testing.T) {
	nodes := []Node{
		{Kind: NodeAddition}, // no operands on the stack at all
	}
	got := Reconstruct(nodes)
	if got != "=FORMULA()" {
		t.Fatalf("Reconstruct = %q, want %q", got, "=FORMULA()")
	}
}

func TestColumnLetterWrapsAfterZ(t *testing.T) {
	cases := map[uint32]string{0: "A", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA"}
	for idx, want := range cases {
		if got := columnLetter(idx); got != want {
			t.Fatalf("columnLetter(%d) = %q, want %q", idx, got, want)
		}
	}
}
