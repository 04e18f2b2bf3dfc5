// Package piece decodes the CLX ("Complex File Information") structure
// in a Word binary document's table stream into a piece table: the
// authoritative map between logical character positions (CP) and byte
// offsets in the text stream (FC).
package piece

import (
	"github.com/TalentFormula/msdoc/binutil"
	"github.com/TalentFormula/msdoc/doc/plcf"
	"github.com/TalentFormula/msdoc/ooxerr"
)

// unicodeFlagMask is bit 30 of a PCD's fc field. Per the original wire
// format: clear means the text run is UTF-16LE, set means single-byte.
const unicodeFlagMask = 0x40000000
const fcValueMask = 0x3FFFFFFF

// Piece is one contiguous text run: a CP range backed by bytes starting
// at FC in the document's text stream.
type Piece struct {
	CPStart   uint32
	CPEnd     uint32
	FC        uint32
	IsUnicode bool
}

func (p Piece) Length() uint32 { return p.CPEnd - p.CPStart }

// cpToFC converts a CP within this piece to its byte offset.
func (p Piece) cpToFC(cp uint32) (uint32, bool) {
	if cp < p.CPStart || cp >= p.CPEnd {
		return 0, false
	}
	delta := cp - p.CPStart
	if p.IsUnicode {
		return p.FC + delta*2, true
	}
	return p.FC + delta, true
}

func (p Piece) fcToCP(fc uint32) (uint32, bool) {
	var fcEnd uint32
	if p.IsUnicode {
		fcEnd = p.FC + p.Length()*2
	} else {
		fcEnd = p.FC + p.Length()
	}
	if fc < p.FC || fc >= fcEnd {
		return 0, false
	}
	delta := fc - p.FC
	if p.IsUnicode {
		return p.CPStart + delta/2, true
	}
	return p.CPStart + delta, true
}

// Table is the full piece table for a document: an ordered, non-
// overlapping sequence of pieces in stored (strictly monotone CP)
// order.
type Table struct {
	Pieces []Piece
}

// Parse reads the CLX structure: a run of RgPrc property-modifier blocks
// (marker byte 0x01) followed by the Pcdt block (marker byte 0x02)
// containing the piece-descriptor PLCF.
func Parse(clx []byte) (*Table, error) {
	offset := 0
	for offset < len(clx) && clx[offset] == 0x01 {
		if offset+3 > len(clx) {
			return nil, ooxerr.InsufficientData(3, len(clx)-offset)
		}
		size, err := binutil.ReadU16LE(clx, offset+1)
		if err != nil {
			return nil, err
		}
		offset += 3 + int(size)
	}

	if offset >= len(clx) || clx[offset] != 0x02 {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "CLX missing Pcdt marker (0x02)")
	}
	offset++

	lcb, err := binutil.ReadU32LE(clx, offset)
	if err != nil {
		return nil, err
	}
	offset += 4

	if offset+int(lcb) > len(clx) {
		return nil, ooxerr.InsufficientData(int(lcb), len(clx)-offset)
	}
	plcPcd := clx[offset : offset+int(lcb)]

	plex, err := plcf.Parse(plcPcd, 8)
	if err != nil {
		return nil, ooxerr.Wrap(ooxerr.KindInvalidFormat, err, "parsing PlcPcd")
	}

	pieces := make([]Piece, 0, plex.Count())
	for i := 0; i < plex.Count(); i++ {
		cpStart, cpEnd, ok := plex.Range(i)
		if !ok {
			continue
		}
		// CPs must be strictly monotone; a table that runs backward or
		// repeats a boundary is corrupt, not merely unsorted.
		if cpEnd <= cpStart {
			return nil, ooxerr.New(ooxerr.KindCorruptedFile, "piece table CPs not strictly monotone at piece %d (%d..%d)", i, cpStart, cpEnd)
		}
		pcd, ok := plex.Property(i)
		if !ok || len(pcd) < 8 {
			continue
		}
		fcRaw, err := binutil.ReadU32LE(pcd, 2)
		if err != nil {
			continue
		}
		isUnicode := fcRaw&unicodeFlagMask == 0
		fc := fcRaw & fcValueMask
		if !isUnicode {
			fc /= 2
		}
		pieces = append(pieces, Piece{CPStart: cpStart, CPEnd: cpEnd, FC: fc, IsUnicode: isUnicode})
	}

	return &Table{Pieces: pieces}, nil
}

// PieceForCP returns the piece covering cp, if any.
func (t *Table) PieceForCP(cp uint32) (Piece, bool) {
	for _, p := range t.Pieces {
		if cp >= p.CPStart && cp < p.CPEnd {
			return p, true
		}
	}
	return Piece{}, false
}

// CPToFC converts a logical character position to a byte offset.
func (t *Table) CPToFC(cp uint32) (uint32, bool) {
	p, ok := t.PieceForCP(cp)
	if !ok {
		return 0, false
	}
	return p.cpToFC(cp)
}

// FCToCP converts a byte offset back to a logical character position.
func (t *Table) FCToCP(fc uint32) (uint32, bool) {
	for _, p := range t.Pieces {
		if cp, ok := p.fcToCP(fc); ok {
			return cp, true
		}
	}
	return 0, false
}

// TotalCPs returns the document's total character count.
func (t *Table) TotalCPs() uint32 {
	if len(t.Pieces) == 0 {
		return 0
	}
	return t.Pieces[len(t.Pieces)-1].CPEnd
}
