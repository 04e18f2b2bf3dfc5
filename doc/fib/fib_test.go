package fib

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildFIB(clxFC, clxLcb uint32) []byte {
	var buf bytes.Buffer
	base := FibBase{WIdent: wordIdent, NFib: 0x00C1}
	binary.Write(&buf, binary.LittleEndian, base)
	binary.Write(&buf, binary.LittleEndian, uint16(0))   // csw
	binary.Write(&buf, binary.LittleEndian, FibRgW97{})  // fibRgW
	binary.Write(&buf, binary.LittleEndian, uint16(0))   // cslw
	binary.Write(&buf, binary.LittleEndian, FibRgLw97{}) // fibRgLw

	n := TableClx + 2 // uint32 slots: room for the Clx fc and its lcb
	// cbRgFcLcb counts 8-byte fc/lcb pairs, not uint32 slots.
	binary.Write(&buf, binary.LittleEndian, uint16(n/2))
	blob := make([]byte, n*4)
	binary.LittleEndian.PutUint32(blob[TableClx*4:], clxFC)
	binary.LittleEndian.PutUint32(blob[TableClx*4+4:], clxLcb)
	buf.Write(blob)
	return buf.Bytes()
}

func TestParseRejectsBadIdent(t *testing.T) {
	data := make([]byte, 32)
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for bad wIdent")
	}
}

func TestParseAndClxPointer(t *testing.T) {
	data := buildFIB(1000, 200)
	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fc, lcb, ok := f.ClxPointer()
	if !ok {
		t.Fatal("expected ClxPointer ok")
	}
	if fc != 1000 || lcb != 200 {
		t.Fatalf("ClxPointer = (%d,%d), want (1000,200)", fc, lcb)
	}
}

func TestSlice(t *testing.T) {
	stream := make([]byte, 2000)
	for i := range stream {
		stream[i] = byte(i)
	}
	got, err := Slice(stream, 1000, 10)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	want := 1000
	if len(got) != 10 || got[0] != byte(want) {
		t.Fatalf("Slice mismatch: %v", got)
	}
	if _, err := Slice(stream, 1995, 100); err == nil {
		t.Fatal("expected out-of-range error")
	}
}
