package fields

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildFieldsPLCF(positions []uint32, descs [][2]byte) []byte {
	var buf bytes.Buffer
	for _, p := range positions {
		binary.Write(&buf, binary.LittleEndian, p)
	}
	for _, d := range descs {
		buf.Write(d[:])
	}
	return buf.Bytes()
}

func TestParseDescriptor(t *testing.T) {
	d := ParseDescriptor([]byte{0x13, 58})
	if !d.IsBegin() {
		t.Fatal("expected begin marker")
	}
	if d.Type != TypeEmbeddedObject {
		t.Fatalf("Type = %d, want %d", d.Type, TypeEmbeddedObject)
	}
}

func TestParseCompleteField(t *testing.T) {
	positions := []uint32{0, 1, 5, 10}
	descs := [][2]byte{
		{0x13, 58}, // begin, embedded object
		{0x14, 0},  // separator
		{0x15, 0},  // end
	}
	data := buildFieldsPLCF(positions, descs)

	tbl, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tbl.Fields) != 1 {
		t.Fatalf("len(Fields) = %d, want 1", len(tbl.Fields))
	}
	f := tbl.Fields[0]
	if f.StartCP != 0 || f.EndCP != 5 {
		t.Fatalf("Field = %+v", f)
	}
	if !f.HasSeparator || f.SeparatorCP == nil || *f.SeparatorCP != 1 {
		t.Fatalf("expected separator at CP 1, got %+v", f)
	}
	if !f.IsEmbeddedObject() {
		t.Fatal("expected embedded object field")
	}
	objs := tbl.EmbeddedObjectFields()
	if len(objs) != 1 {
		t.Fatalf("len(EmbeddedObjectFields) = %d, want 1", len(objs))
	}
}

func TestParseToleratesUnmatchedMarkers(t *testing.T) {
	// a lone begin marker with no end: dropped, not an error.
	positions := []uint32{0, 1}
	descs := [][2]byte{{0x13, 88}}
	data := buildFieldsPLCF(positions, descs)

	tbl, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tbl.Fields) != 0 {
		t.Fatalf("len(Fields) = %d, want 0 for unmatched begin", len(tbl.Fields))
	}
}
