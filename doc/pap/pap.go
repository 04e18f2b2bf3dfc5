// Package pap decodes the two-level PAP bin table: a PLCF of page
// numbers (the "BTE" entries) pointing at 512-byte Formatted Disk Pages
// (FKPs) in the main document stream, each holding a run of
// paragraph-property records (PAPX).
//
// PAPX pages differ from their CHPX siblings in two ways: each run's
// descriptor is 13 bytes (a word offset plus paragraph-height data
// this decoder skips), and the property blob starts with a 2-byte
// style index before the SPRM list.
package pap

import (
	"sort"

	"github.com/TalentFormula/msdoc/binutil"
	"github.com/TalentFormula/msdoc/doc/piece"
	"github.com/TalentFormula/msdoc/doc/sprm"
	"github.com/TalentFormula/msdoc/ooxerr"
)

const pageSize = 512

const pnMask = 0x3FFFFF

// Justification values carried by the alignment SPRM.
const (
	JustifyLeft = iota
	JustifyCenter
	JustifyRight
	JustifyBoth
)

// ParagraphProperties is the subset of PAPX-derived formatting this
// engine exposes. Unknown SPRM opcodes are ignored.
type ParagraphProperties struct {
	Istd            uint16 // paragraph style index
	Justification   *uint8
	LeftIndent      *int16 // twips
	RightIndent     *int16
	FirstLineIndent *int16
	SpaceBefore     *uint16
	SpaceAfter      *uint16
	OutlineLevel    *uint8
	InTable         bool
	TableRowEnd     bool
}

// Paragraph is a contiguous CP range covered by one PAPX record.
type Paragraph struct {
	StartCP    uint32
	EndCP      uint32
	Properties ParagraphProperties
}

type fkpEntry struct {
	FC     uint32
	Grpprl []byte // includes the leading 2-byte istd
}

// parsePAPXPage decodes one 512-byte PAPX Formatted Disk Page.
func parsePAPXPage(page []byte) ([]fkpEntry, error) {
	if len(page) != pageSize {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "fkp page must be %d bytes, got %d", pageSize, len(page))
	}
	count := int(page[pageSize-1])
	// cpara FCs of 4 bytes each plus one terminator FC, plus 13 bytes
	// of descriptor per run, must fit ahead of the count byte.
	if (count+1)*4+count*13 > pageSize-1 {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "fkp page has too many entries (%d)", count)
	}

	entries := make([]fkpEntry, count)
	for i := 0; i < count; i++ {
		fc, err := binutil.ReadU32LE(page, i*4)
		if err != nil {
			return nil, err
		}
		// rgbx starts after the cpara+1 FCs; the first byte of each
		// 13-byte entry is the PAPX word offset within the page.
		bxOffset := (count+1)*4 + i*13
		papxOffset := int(page[bxOffset]) * 2

		var grpprl []byte
		if papxOffset > 0 && papxOffset < pageSize {
			// PapxInFkp: cb byte; zero means an expanded cb' follows
			// counting words, otherwise the blob is cb*2-1 bytes.
			cb := int(page[papxOffset])
			start := papxOffset + 1
			length := cb*2 - 1
			if cb == 0 && start < pageSize {
				length = int(page[start]) * 2
				start++
			}
			if length > 0 && start+length <= pageSize {
				grpprl = page[start : start+length]
			}
		}
		entries[i] = fkpEntry{FC: fc, Grpprl: grpprl}
	}
	return entries, nil
}

// Table holds every merged, non-overlapping paragraph in a document.
type Table struct {
	Paragraphs []Paragraph
}

// Parse decodes the PlcfBtePapx against the WordDocument stream bytes
// and the piece table, producing paragraphs in CP order.
func Parse(plcfBtePapxData, wordDocument []byte, pieces *piece.Table) (*Table, error) {
	if len(plcfBtePapxData) < 8 {
		return nil, ooxerr.InsufficientData(8, len(plcfBtePapxData))
	}

	n := (len(plcfBtePapxData) - 4) / 8
	var all []Paragraph

	for i := 0; i < n; i++ {
		pnOffset := (n+1)*4 + i*4
		pnRaw, err := binutil.ReadU32LE(plcfBtePapxData, pnOffset)
		if err != nil {
			continue
		}
		pn := pnRaw & pnMask
		if pn == 0 || pn == pnMask {
			continue
		}

		pageOffset := int(pn) * pageSize
		if pageOffset+pageSize > len(wordDocument) {
			continue
		}
		entries, err := parsePAPXPage(wordDocument[pageOffset : pageOffset+pageSize])
		if err != nil {
			continue
		}

		for j, entry := range entries {
			var endFC uint32
			if j+1 < len(entries) {
				endFC = entries[j+1].FC
			} else if next, ok := nextPageFirstFC(plcfBtePapxData, wordDocument, i); ok {
				endFC = next
			} else {
				endFC = uint32(len(wordDocument))
			}

			startCP, ok := pieces.FCToCP(entry.FC)
			if !ok {
				startCP = entry.FC
			}
			endCP, ok := pieces.FCToCP(endFC)
			if !ok {
				endCP = endFC
			}

			all = append(all, Paragraph{
				StartCP:    startCP,
				EndCP:      endCP,
				Properties: parsePAPX(entry.Grpprl),
			})
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].StartCP != all[j].StartCP {
			return all[i].StartCP < all[j].StartCP
		}
		return all[i].EndCP < all[j].EndCP
	})

	merged := make([]Paragraph, 0, len(all))
	var lastEnd uint32
	for _, p := range all {
		if p.StartCP < lastEnd {
			if p.EndCP <= lastEnd {
				continue
			}
			p.StartCP = lastEnd
		}
		if p.StartCP >= p.EndCP {
			continue
		}
		lastEnd = p.EndCP
		merged = append(merged, p)
	}

	return &Table{Paragraphs: merged}, nil
}

func nextPageFirstFC(plcfBtePapxData, wordDocument []byte, bteIndex int) (uint32, bool) {
	n := (len(plcfBtePapxData) - 4) / 8
	if bteIndex+1 >= n {
		return 0, false
	}
	pnRaw, err := binutil.ReadU32LE(plcfBtePapxData, (n+1)*4+(bteIndex+1)*4)
	if err != nil {
		return 0, false
	}
	pn := pnRaw & pnMask
	if pn == 0 || pn == pnMask {
		return 0, false
	}
	pageOffset := int(pn) * pageSize
	if pageOffset+pageSize > len(wordDocument) {
		return 0, false
	}
	entries, err := parsePAPXPage(wordDocument[pageOffset : pageOffset+pageSize])
	if err != nil || len(entries) == 0 {
		return 0, false
	}
	return entries[0].FC, true
}

// parsePAPX maps a subset of paragraph SPRM opcodes onto
// ParagraphProperties. The blob's first two bytes are the style index;
// the SPRM list follows.
func parsePAPX(grpprl []byte) ParagraphProperties {
	var props ParagraphProperties
	if len(grpprl) < 2 {
		return props
	}
	istd, err := binutil.ReadU16LE(grpprl, 0)
	if err != nil {
		return props
	}
	props.Istd = istd

	for _, s := range sprm.Parse(grpprl[2:]) {
		switch s.Opcode {
		case 0x2403, 0x2461: // justification (legacy and current)
			if b, ok := s.OperandByte(); ok {
				props.Justification = &b
			}
		case 0x840F, 0x845E: // left indent
			if v, ok := s.OperandI16(); ok {
				props.LeftIndent = &v
			}
		case 0x840E, 0x845D: // right indent
			if v, ok := s.OperandI16(); ok {
				props.RightIndent = &v
			}
		case 0x8411, 0x8460: // first-line indent
			if v, ok := s.OperandI16(); ok {
				props.FirstLineIndent = &v
			}
		case 0xA413: // space before
			if w, ok := s.OperandWord(); ok {
				props.SpaceBefore = &w
			}
		case 0xA414: // space after
			if w, ok := s.OperandWord(); ok {
				props.SpaceAfter = &w
			}
		case 0x2640: // outline level
			if b, ok := s.OperandByte(); ok {
				props.OutlineLevel = &b
			}
		case 0x2416: // inside a table cell
			b, _ := s.OperandByte()
			props.InTable = b != 0
		case 0x2417: // table row terminator paragraph
			b, _ := s.OperandByte()
			props.TableRowEnd = b != 0
		}
	}
	return props
}

// ParagraphsInRange returns paragraphs overlapping [start, end).
func (t *Table) ParagraphsInRange(start, end uint32) []Paragraph {
	var out []Paragraph
	for _, p := range t.Paragraphs {
		if p.EndCP > start && p.StartCP < end {
			out = append(out, p)
		}
	}
	return out
}
