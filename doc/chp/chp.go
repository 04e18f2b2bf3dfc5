// Package chp decodes the two-level CHP bin table: a PLCF of page
// numbers (the "BTE" entries) pointing at 512-byte Formatted Disk Pages
// (FKPs) stored in the main document stream, each holding a run of
// character-property records.
package chp

import (
	"sort"

	"github.com/TalentFormula/msdoc/binutil"
	"github.com/TalentFormula/msdoc/doc/piece"
	"github.com/TalentFormula/msdoc/doc/sprm"
	"github.com/TalentFormula/msdoc/ooxerr"
)

const pageSize = 512

// pnMask keeps only the low 22 bits of a PnFkpChpx dword; the high 10
// bits are unused and must be ignored.
const pnMask = 0x3FFFFF

// CharacterProperties is the subset of CHPX-derived formatting this
// engine exposes. Unknown SPRM opcodes are ignored.
type CharacterProperties struct {
	Bold      *bool
	Italic    *bool
	FontSize  *uint16
	IsOLE2    bool
	PicOffset *uint32
}

// CharacterRun is a contiguous CP range sharing one CharacterProperties
// value.
type CharacterRun struct {
	StartCP    uint32
	EndCP      uint32
	Properties CharacterProperties
}

// fkpEntry is one CHPX record inside a single FKP page.
type fkpEntry struct {
	FC     uint32
	Grpprl []byte
}

// parseCHPXPage decodes one 512-byte CHPX Formatted Disk Page:
// count+1 contiguous 4-byte FC boundaries, then one word offset byte
// per run pointing at its CHPX blob, then the count byte at the end of
// the page.
func parseCHPXPage(page []byte) ([]fkpEntry, error) {
	if len(page) != pageSize {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "fkp page must be %d bytes, got %d", pageSize, len(page))
	}
	count := int(page[pageSize-1])
	if (count+1)*4+count > pageSize-1 {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "fkp page has too many entries (%d)", count)
	}

	entries := make([]fkpEntry, count)
	for i := 0; i < count; i++ {
		fc, err := binutil.ReadU32LE(page, i*4)
		if err != nil {
			return nil, err
		}
		// rgb: one word offset per run after the FC array. Zero means
		// the run has no CHPX and keeps default properties.
		chpxOffset := int(page[(count+1)*4+i]) * 2

		var grpprl []byte
		if chpxOffset > 0 && chpxOffset < pageSize {
			length := int(page[chpxOffset])
			end := chpxOffset + 1 + length
			if length > 0 && end <= pageSize {
				grpprl = page[chpxOffset+1 : end]
			}
		}
		entries[i] = fkpEntry{FC: fc, Grpprl: grpprl}
	}
	return entries, nil
}

// Table holds every merged, non-overlapping character run in a document.
type Table struct {
	Runs []CharacterRun
}

// Parse decodes the PlcfBteChpx (plcfBteChpxData) against the
// WordDocument stream bytes (where FKP pages physically live) and the
// already-parsed piece table (for FC->CP translation).
func Parse(plcfBteChpxData, wordDocument []byte, pieces *piece.Table) (*Table, error) {
	if len(plcfBteChpxData) < 8 {
		return nil, ooxerr.InsufficientData(8, len(plcfBteChpxData))
	}

	n := (len(plcfBteChpxData) - 4) / 8
	var allRuns []CharacterRun

	for i := 0; i < n; i++ {
		pnOffset := (n+1)*4 + i*4
		if pnOffset+4 > len(plcfBteChpxData) {
			continue
		}
		pnRaw, err := binutil.ReadU32LE(plcfBteChpxData, pnOffset)
		if err != nil {
			continue
		}
		pn := pnRaw & pnMask
		if pn == 0 || pn == pnMask {
			continue // sentinel / invalid page number
		}

		pageOffset := int(pn) * pageSize
		if pageOffset+pageSize > len(wordDocument) {
			continue
		}
		page := wordDocument[pageOffset : pageOffset+pageSize]

		entries, err := parseCHPXPage(page)
		if err != nil {
			continue
		}

		for j, entry := range entries {
			var endFC uint32
			if j+1 < len(entries) {
				endFC = entries[j+1].FC
			} else {
				// Open Question #1: no placeholder guess. The true end
				// is the next FKP page's first FC if this isn't the
				// last BTE entry, else the end of the document stream.
				if next, ok := nextPageFirstFC(plcfBteChpxData, wordDocument, i); ok {
					endFC = next
				} else {
					endFC = uint32(len(wordDocument))
				}
			}

			startCP, ok1 := pieces.FCToCP(entry.FC)
			if !ok1 {
				startCP = entry.FC
			}
			endCP, ok2 := pieces.FCToCP(endFC)
			if !ok2 {
				endCP = endFC
			}

			props := parseCHPX(entry.Grpprl)
			allRuns = append(allRuns, CharacterRun{StartCP: startCP, EndCP: endCP, Properties: props})
		}
	}

	sort.Slice(allRuns, func(i, j int) bool {
		if allRuns[i].StartCP != allRuns[j].StartCP {
			return allRuns[i].StartCP < allRuns[j].StartCP
		}
		return allRuns[i].EndCP < allRuns[j].EndCP
	})

	merged := make([]CharacterRun, 0, len(allRuns))
	var lastEnd uint32
	for _, run := range allRuns {
		if run.StartCP < lastEnd {
			if run.EndCP <= lastEnd {
				continue // fully contained in previous run
			}
			run.StartCP = lastEnd
		}
		if run.StartCP >= run.EndCP {
			continue
		}
		lastEnd = run.EndCP
		merged = append(merged, run)
	}

	return &Table{Runs: merged}, nil
}

// nextPageFirstFC looks up the first FC of the next BTE entry's FKP
// page, used to resolve the end of the last run in the current page.
func nextPageFirstFC(plcfBteChpxData, wordDocument []byte, bteIndex int) (uint32, bool) {
	n := (len(plcfBteChpxData) - 4) / 8
	if bteIndex+1 >= n {
		return 0, false
	}
	pnOffset := (n+1)*4 + (bteIndex+1)*4
	if pnOffset+4 > len(plcfBteChpxData) {
		return 0, false
	}
	pnRaw, err := binutil.ReadU32LE(plcfBteChpxData, pnOffset)
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
	page := wordDocument[pageOffset : pageOffset+pageSize]
	entries, err := parseCHPXPage(page)
	if err != nil || len(entries) == 0 {
		return 0, false
	}
	return entries[0].FC, true
}

// parseCHPX maps a subset of SPRM opcodes onto CharacterProperties.
// Opcode set per the format's own CHPX property table: bold
// (0x0835/0x0085), italic (0x0836/0x0086), font size (0x4A43/0x0043),
// OLE2 object flag (0x080A), picture/object location (0x6A03/0x680E).
func parseCHPX(grpprl []byte) CharacterProperties {
	var props CharacterProperties
	if len(grpprl) == 0 {
		return props
	}

	for _, s := range sprm.Parse(grpprl) {
		switch s.Opcode {
		case 0x0835, 0x0085:
			b, ok := s.OperandByte()
			if ok {
				v := b != 0
				props.Bold = &v
			}
		case 0x0836, 0x0086:
			b, ok := s.OperandByte()
			if ok {
				v := b != 0
				props.Italic = &v
			}
		case 0x4A43, 0x0043:
			if w, ok := s.OperandWord(); ok {
				props.FontSize = &w
			}
		case 0x080A:
			b, _ := s.OperandByte()
			props.IsOLE2 = b != 0
		case 0x6A03, 0x680E:
			if d, ok := s.OperandDWord(); ok {
				props.PicOffset = &d
			}
		}
	}
	return props
}

// RunsInRange returns runs overlapping [start,end).
func (t *Table) RunsInRange(start, end uint32) []CharacterRun {
	var out []CharacterRun
	for _, r := range t.Runs {
		if r.EndCP > start && r.StartCP < end {
			out = append(out, r)
		}
	}
	return out
}
