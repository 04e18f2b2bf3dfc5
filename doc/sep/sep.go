// Package sep decodes the section table: a PLCF of 12-byte section
// descriptors (Sed) in the table stream, each pointing at a SEPX blob
// in the main document stream whose SPRM list carries page geometry
// and column layout for one section.
package sep

import (
	"github.com/TalentFormula/msdoc/binutil"
	"github.com/TalentFormula/msdoc/doc/plcf"
	"github.com/TalentFormula/msdoc/doc/sprm"
	"github.com/TalentFormula/msdoc/ooxerr"
)

const sedSize = 12

// noSepx marks a Sed whose section uses default properties.
const noSepx = 0xFFFFFFFF

// SectionProperties is the subset of SEPX-derived formatting this
// engine exposes. Nil pointer fields mean the section inherits the
// default.
type SectionProperties struct {
	Landscape     bool
	PageWidth     *uint16 // twips
	PageHeight    *uint16
	LeftMargin    *uint16
	RightMargin   *uint16
	TopMargin     *uint16
	BottomMargin  *uint16
	Columns       uint16 // column count, 1 when unspecified
	ColumnSpacing *uint16
	TitlePage     bool
	PageNumStart  *uint16
}

// Section is one section's CP range plus its decoded properties.
type Section struct {
	StartCP    uint32
	EndCP      uint32
	Properties SectionProperties
}

// Table holds a document's sections in CP order.
type Table struct {
	Sections []Section
}

// Parse decodes the PlcfSed against the WordDocument stream (where the
// SEPX blobs live). A descriptor without a SEPX yields a section with
// default properties rather than an error.
func Parse(plcfSedData, wordDocument []byte) (*Table, error) {
	p, err := plcf.Parse(plcfSedData, sedSize)
	if err != nil {
		return nil, ooxerr.Wrap(ooxerr.KindParseError, err, "sep: bad section plex")
	}

	t := &Table{Sections: make([]Section, 0, p.Count())}
	for i := 0; i < p.Count(); i++ {
		start, end, ok := p.Range(i)
		if !ok {
			continue
		}
		sed, ok := p.Property(i)
		if !ok {
			continue
		}

		section := Section{StartCP: start, EndCP: end}
		section.Properties.Columns = 1

		// Sed: fn(2), fcSepx(4), fnMpr(2), fcMpr(4). Only fcSepx is
		// meaningful here.
		fcSepx, err := binutil.ReadU32LE(sed, 2)
		if err == nil && fcSepx != noSepx {
			if grpprl, ok := sepxAt(wordDocument, fcSepx); ok {
				applySEPX(&section.Properties, grpprl)
			}
		}
		t.Sections = append(t.Sections, section)
	}
	return t, nil
}

// sepxAt reads the SEPX at fc: a 2-byte byte count followed by that
// many grpprl bytes.
func sepxAt(wordDocument []byte, fc uint32) ([]byte, bool) {
	cb, err := binutil.ReadU16LE(wordDocument, int(fc))
	if err != nil {
		return nil, false
	}
	start := int(fc) + 2
	end := start + int(cb)
	if cb == 0 || end > len(wordDocument) {
		return nil, false
	}
	return wordDocument[start:end], true
}

// applySEPX folds the recognized section SPRMs into props. Unknown
// opcodes are ignored.
func applySEPX(props *SectionProperties, grpprl []byte) {
	for _, s := range sprm.Parse(grpprl) {
		switch s.Opcode {
		case 0x3001: // page orientation
			b, _ := s.OperandByte()
			props.Landscape = b == 2
		case 0xB01F: // page width
			if w, ok := s.OperandWord(); ok {
				props.PageWidth = &w
			}
		case 0xB020: // page height
			if w, ok := s.OperandWord(); ok {
				props.PageHeight = &w
			}
		case 0xB021: // left margin
			if w, ok := s.OperandWord(); ok {
				props.LeftMargin = &w
			}
		case 0xB022: // right margin
			if w, ok := s.OperandWord(); ok {
				props.RightMargin = &w
			}
		case 0x9023: // top margin
			if w, ok := s.OperandWord(); ok {
				props.TopMargin = &w
			}
		case 0x9024: // bottom margin
			if w, ok := s.OperandWord(); ok {
				props.BottomMargin = &w
			}
		case 0x500B: // column count minus one
			if w, ok := s.OperandWord(); ok {
				props.Columns = w + 1
			}
		case 0x900C: // column spacing
			if w, ok := s.OperandWord(); ok {
				props.ColumnSpacing = &w
			}
		case 0x3004: // different first page
			b, _ := s.OperandByte()
			props.TitlePage = b != 0
		case 0x501C: // starting page number
			if w, ok := s.OperandWord(); ok {
				props.PageNumStart = &w
			}
		}
	}
}

// SectionAt returns the section containing cp.
func (t *Table) SectionAt(cp uint32) (Section, bool) {
	for _, s := range t.Sections {
		if cp >= s.StartCP && cp < s.EndCP {
			return s, true
		}
	}
	return Section{}, false
}
