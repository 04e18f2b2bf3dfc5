package plcf

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildPlcf(positions []uint32, elemSize int, props [][]byte) []byte {
	var buf bytes.Buffer
	for _, p := range positions {
		binary.Write(&buf, binary.LittleEndian, p)
	}
	for _, p := range props {
		buf.Write(p)
	}
	return buf.Bytes()
}

func TestParseBasic(t *testing.T) {
	positions := []uint32{0, 5, 10}
	props := [][]byte{{0xAA, 0xBB}, {0xCC, 0xDD}}
	data := buildPlcf(positions, 2, props)

	p, err := Parse(data, 2)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Count() != 2 {
		t.Fatalf("Count = %d, want 2", p.Count())
	}
	for i := 0; i < p.Count(); i++ {
		start, end, ok := p.Range(i)
		if !ok {
			t.Fatalf("Range(%d) not ok", i)
		}
		if start != positions[i] || end != positions[i+1] {
			t.Fatalf("Range(%d) = (%d,%d), want (%d,%d)", i, start, end, positions[i], positions[i+1])
		}
		prop, ok := p.Property(i)
		if !ok || !bytes.Equal(prop, props[i]) {
			t.Fatalf("Property(%d) = %v, want %v", i, prop, props[i])
		}
	}
}

func TestParseEmptyButValid(t *testing.T) {
	data := []byte{0, 0, 0, 0} // n=0
	p, err := Parse(data, 4)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Count() != 0 {
		t.Fatalf("Count = %d, want 0", p.Count())
	}
}

func TestParseRejectsShortBuffer(t *testing.T) {
	if _, err := Parse([]byte{1, 2, 3}, 4); err == nil {
		t.Fatal("expected error for len<4")
	}
}

func TestParseRejectsZeroElementSize(t *testing.T) {
	if _, err := Parse([]byte{1, 2, 3, 4}, 0); err == nil {
		t.Fatal("expected error for elemSize==0")
	}
}

func TestPositionsNotResorted(t *testing.T) {
	// Non-monotone positions are stored verbatim; PLCF parsing itself
	// does not enforce ordering (higher layers like the piece table do).
	positions := []uint32{10, 0, 5}
	data := buildPlcf(positions, 1, [][]byte{{1}, {2}})
	p, err := Parse(data, 1)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i, want := range positions {
		got, ok := p.Position(i)
		if !ok || got != want {
			t.Fatalf("Position(%d) = %d, want %d", i, got, want)
		}
	}
}
