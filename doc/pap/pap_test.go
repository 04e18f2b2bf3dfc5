package pap

import (
	"encoding/binary"
	"testing"

	"github.com/TalentFormula/msdoc/doc/piece"
)

func identityPieceTable(size uint32) *piece.Table {
	return &piece.Table{Pieces: []piece.Piece{{CPStart: 0, CPEnd: size, FC: 0, IsUnicode: false}}}
}

// buildPAPXPage lays out one 512-byte PAPX page: FCs up front, 13-byte
// descriptors after them, property blobs packed at the back.
func buildPAPXPage(fcs []uint32, grpprls [][]byte) []byte {
	page := make([]byte, pageSize)
	count := len(grpprls)

	writeOffset := pageSize - 1
	offsets := make([]int, count)
	for i := count - 1; i >= 0; i-- {
		g := grpprls[i]
		// PapxInFkp with cb != 0: the grpprl region is cb*2-1 bytes, so
		// pad it to an odd length and prepend the cb byte.
		region := len(g)
		if region%2 == 0 {
			region++
		}
		writeOffset -= region + 1
		if writeOffset%2 != 0 {
			writeOffset--
		}
		page[writeOffset] = byte((region + 1) / 2)
		copy(page[writeOffset+1:], g)
		offsets[i] = writeOffset
	}

	for i, fc := range fcs {
		binary.LittleEndian.PutUint32(page[i*4:], fc)
	}
	for i := 0; i < count; i++ {
		bx := (count+1)*4 + i*13
		page[bx] = byte(offsets[i] / 2)
	}
	page[pageSize-1] = byte(count)
	return page
}

func buildPlcfBtePapx(pns []uint32) []byte {
	n := len(pns)
	buf := make([]byte, (n+1)*4+n*4)
	for i := 0; i <= n; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(i*100))
	}
	for i, pn := range pns {
		binary.LittleEndian.PutUint32(buf[(n+1)*4+i*4:], pn)
	}
	return buf
}

func TestParsePAPXProperties(t *testing.T) {
	grpprl := []byte{
		0x07, 0x00, // istd 7
		0x03, 0x24, 0x01, // justification center
		0x16, 0x24, 0x01, // in table
	}
	props := parsePAPX(grpprl)
	if props.Istd != 7 {
		t.Errorf("Istd = %d, want 7", props.Istd)
	}
	if props.Justification == nil || *props.Justification != JustifyCenter {
		t.Errorf("Justification = %v, want center", props.Justification)
	}
	if !props.InTable {
		t.Error("expected InTable")
	}
}

func TestParsePAPXIndents(t *testing.T) {
	grpprl := []byte{
		0x00, 0x00, // istd 0
		0x0F, 0x84, 0x40, 0x01, // left indent 320
		0x11, 0x84, 0xE0, 0xFE, // first-line indent -288
	}
	props := parsePAPX(grpprl)
	if props.LeftIndent == nil || *props.LeftIndent != 320 {
		t.Errorf("LeftIndent = %v, want 320", props.LeftIndent)
	}
	if props.FirstLineIndent == nil || *props.FirstLineIndent != -288 {
		t.Errorf("FirstLineIndent = %v, want -288", props.FirstLineIndent)
	}
}

func TestParseProducesOrderedParagraphs(t *testing.T) {
	centered := []byte{0x00, 0x00, 0x03, 0x24, 0x01}

	page := buildPAPXPage(
		[]uint32{10, 30, 60},
		[][]byte{centered, nil},
	)

	wordDoc := make([]byte, pageSize*2)
	copy(wordDoc[pageSize:], page)

	tbl, err := Parse(buildPlcfBtePapx([]uint32{1}), wordDoc, identityPieceTable(1000))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tbl.Paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(tbl.Paragraphs))
	}
	first := tbl.Paragraphs[0]
	if first.StartCP != 10 || first.EndCP != 30 {
		t.Errorf("first paragraph range = [%d,%d), want [10,30)", first.StartCP, first.EndCP)
	}
	if first.Properties.Justification == nil || *first.Properties.Justification != JustifyCenter {
		t.Errorf("first paragraph justification = %v", first.Properties.Justification)
	}
	for i := 1; i < len(tbl.Paragraphs); i++ {
		if tbl.Paragraphs[i-1].EndCP > tbl.Paragraphs[i].StartCP {
			t.Fatalf("paragraphs overlap: %+v / %+v", tbl.Paragraphs[i-1], tbl.Paragraphs[i])
		}
	}
}

func TestParagraphsInRange(t *testing.T) {
	tbl := &Table{Paragraphs: []Paragraph{
		{StartCP: 0, EndCP: 10},
		{StartCP: 10, EndCP: 20},
		{StartCP: 20, EndCP: 30},
	}}
	got := tbl.ParagraphsInRange(5, 15)
	if len(got) != 2 {
		t.Fatalf("expected 2 overlapping paragraphs, got %d", len(got))
	}
}
