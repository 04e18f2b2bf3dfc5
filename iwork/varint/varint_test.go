package varint

import "testing"

func TestDecodeSingleByteZero(t *testing.T) {
	value, n, err := Decode([]byte{0x00})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if value != 0 || n != 1 {
		t.Fatalf("Decode = (%d,%d), want (0,1)", value, n)
	}
}

func TestDecodeSingleByteMax(t *testing.T) {
	value, n, err := Decode([]byte{0x7F})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if value != 127 || n != 1 {
		t.Fatalf("Decode = (%d,%d), want (127,1)", value, n)
	}
}

func TestDecodeTwoByte300(t *testing.T) {
	value, n, err := Decode([]byte{0xAC, 0x02})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if value != 300 || n != 2 {
		t.Fatalf("Decode = (%d,%d), want (300,2)", value, n)
	}
}

func TestDecodeTrailingBytesIgnored(t *testing.T) {
	// Decode should only consume the varint's own bytes, leaving the rest
	// of the buffer for the caller to continue from.
	value, n, err := Decode([]byte{0x7F, 0xFF, 0xFF})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if value != 127 || n != 1 {
		t.Fatalf("Decode = (%d,%d), want (127,1)", value, n)
	}
}

func TestDecodeUnterminatedErrors(t *testing.T) {
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = 0x80
	}
	if _, _, err := Decode(buf); err == nil {
		t.Fatal("expected error for varint exceeding 10 bytes without a terminator")
	}
}
