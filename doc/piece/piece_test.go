package piece

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildCLX assembles a minimal CLX: no RgPrc blocks, one Pcdt block
// wrapping a PlcPcd with the given pieces.
func buildCLX(t *testing.T, cps []uint32, pcds [][8]byte) []byte {
	t.Helper()
	var plc bytes.Buffer
	for _, cp := range cps {
		binary.Write(&plc, binary.LittleEndian, cp)
	}
	for _, pcd := range pcds {
		plc.Write(pcd[:])
	}

	var clx bytes.Buffer
	clx.WriteByte(0x02)
	binary.Write(&clx, binary.LittleEndian, uint32(plc.Len()))
	clx.Write(plc.Bytes())
	return clx.Bytes()
}

func makePCD(fc uint32, unicode bool) [8]byte {
	var pcd [8]byte
	raw := fc
	if !unicode {
		// compressed (single-byte) pieces store twice the byte offset
		raw = fc*2 | unicodeFlagMask
	}
	binary.LittleEndian.PutUint32(pcd[2:], raw)
	return pcd
}

func TestParseUnicodeBitPolarity(t *testing.T) {
	// bit clear -> unicode (per spec/original, not the inverted teacher
	// convention)
	clx := buildCLX(t, []uint32{0, 5}, [][8]byte{makePCD(100, true)})
	tbl, err := Parse(clx)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tbl.Pieces) != 1 || !tbl.Pieces[0].IsUnicode {
		t.Fatalf("expected one unicode piece, got %+v", tbl.Pieces)
	}
	if tbl.Pieces[0].FC != 100 {
		t.Fatalf("FC = %d, want 100", tbl.Pieces[0].FC)
	}
}

func TestParseAnsiBitSet(t *testing.T) {
	clx := buildCLX(t, []uint32{0, 5}, [][8]byte{makePCD(50, false)})
	tbl, err := Parse(clx)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tbl.Pieces[0].IsUnicode {
		t.Fatal("expected ANSI piece")
	}
	if tbl.Pieces[0].FC != 50 {
		t.Fatalf("FC = %d, want 50", tbl.Pieces[0].FC)
	}
}

func TestBijection(t *testing.T) {
	clx := buildCLX(t, []uint32{0, 10}, [][8]byte{makePCD(200, true)})
	tbl, err := Parse(clx)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for cp := uint32(0); cp < 10; cp++ {
		fc, ok := tbl.CPToFC(cp)
		if !ok {
			t.Fatalf("CPToFC(%d) not ok", cp)
		}
		back, ok := tbl.FCToCP(fc)
		if !ok || back != cp {
			t.Fatalf("FCToCP(CPToFC(%d)) = %d, want %d", cp, back, cp)
		}
	}
	if _, ok := tbl.CPToFC(10); ok {
		t.Fatal("CP 10 is out of range and should not resolve")
	}
}

func TestParseRejectsMissingMarker(t *testing.T) {
	if _, err := Parse([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Fatal("expected error for missing Pcdt marker")
	}
}

func TestParseRejectsNonMonotoneCPs(t *testing.T) {
	// CPs running backward: 0, 10, 5.
	clx := buildCLX(t, []uint32{0, 10, 5}, [][8]byte{makePCD(0, true), makePCD(20, true)})
	if _, err := Parse(clx); err == nil {
		t.Fatal("expected error for non-monotone CP sequence")
	}

	// A repeated boundary (zero-length piece) is rejected too.
	clx = buildCLX(t, []uint32{0, 10, 10}, [][8]byte{makePCD(0, true), makePCD(20, true)})
	if _, err := Parse(clx); err == nil {
		t.Fatal("expected error for repeated CP boundary")
	}
}
