package formula

import (
	"reflect"
	"testing"
)

func TestCellOffsetsCumulative(t *testing.T) {
	// Three cells of widths 10, 20, 5 bytes, encoded as single-byte
	// varint deltas.
	buf := []byte{10, 20, 5}
	got, err := CellOffsets(buf)
	if err != nil {
		t.Fatalf("CellOffsets: %v", err)
	}
	want := []int{0, 10, 30, 35}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CellOffsets = %v, want %v", got, want)
	}
}

func TestCellOffsetsEmptyBuffer(t *testing.T) {
	got, err := CellOffsets(nil)
	if err != nil {
		t.Fatalf("CellOffsets: %v", err)
	}
	if !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("CellOffsets = %v, want [0]", got)
	}
}
