package msdoc

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"

	"github.com/TalentFormula/msdoc/doc/chp"
	"github.com/TalentFormula/msdoc/doc/fib"
	"github.com/TalentFormula/msdoc/doc/fields"
	"github.com/TalentFormula/msdoc/doc/pap"
	"github.com/TalentFormula/msdoc/doc/piece"
	"github.com/TalentFormula/msdoc/doc/sep"
)

// tableStream reads the table stream the FIB points at, falling back to
// the sibling name if the primary one is missing (some producers get
// fWhichTblStm wrong).
func (d *Document) tableStream() ([]byte, error) {
	name := d.fib.TableStreamName()
	data, err := d.reader.ReadStream(name)
	if err == nil {
		return data, nil
	}

	alt := "0Table"
	if name == "0Table" {
		alt = "1Table"
	}
	return d.reader.ReadStream(alt)
}

// clx locates and decrypts (if necessary) the CLX blob the FIB's Clx
// table pointer describes.
func (d *Document) clx() ([]byte, error) {
	tableStream, err := d.tableStream()
	if err != nil {
		return nil, fmt.Errorf("failed to read table stream: %w", err)
	}

	fc, lcb, ok := d.fib.ClxPointer()
	if !ok || lcb == 0 {
		return nil, nil
	}

	clx, err := fib.Slice(tableStream, fc, lcb)
	if err != nil {
		return nil, err
	}

	if d.fib.IsEncrypted() {
		if d.decryptor == nil {
			return nil, fmt.Errorf("document is encrypted but no decryption cipher available")
		}
		clx = d.decryptor.Decrypt(clx)
	}

	return clx, nil
}

// pieceTable lazily parses and caches the document's piece table.
func (d *Document) pieceTable() (*piece.Table, error) {
	if d.pieces != nil {
		return d.pieces, nil
	}

	clx, err := d.clx()
	if err != nil {
		return nil, err
	}
	if clx == nil {
		d.pieces = &piece.Table{}
		return d.pieces, nil
	}

	table, err := piece.Parse(clx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse piece table: %w", err)
	}
	d.pieces = table
	return d.pieces, nil
}

// characterTable lazily parses and caches the document's character
// run table (bold/italic/size/... per CP range).
func (d *Document) characterTable(wordDocument []byte) (*chp.Table, error) {
	if d.chars != nil {
		return d.chars, nil
	}

	pieces, err := d.pieceTable()
	if err != nil {
		return nil, err
	}

	tableStream, err := d.tableStream()
	if err != nil {
		return nil, err
	}

	fc, lcb, ok := d.fib.PlcfbteChpxPointer()
	if !ok || lcb == 0 {
		d.chars = &chp.Table{}
		return d.chars, nil
	}
	plcfbteChpx, err := fib.Slice(tableStream, fc, lcb)
	if err != nil {
		return nil, err
	}

	table, err := chp.Parse(plcfbteChpx, wordDocument, pieces)
	if err != nil {
		return nil, fmt.Errorf("failed to parse character-property table: %w", err)
	}
	d.chars = table
	return d.chars, nil
}

// paragraphTable lazily parses and caches the document's paragraph
// bin table.
func (d *Document) paragraphTable(wordDocument []byte) (*pap.Table, error) {
	if d.paras != nil {
		return d.paras, nil
	}

	pieces, err := d.pieceTable()
	if err != nil {
		return nil, err
	}
	tableStream, err := d.tableStream()
	if err != nil {
		return nil, err
	}

	fc, lcb, ok := d.fib.PlcfbtePapxPointer()
	if !ok || lcb == 0 {
		d.paras = &pap.Table{}
		return d.paras, nil
	}
	plcfbtePapx, err := fib.Slice(tableStream, fc, lcb)
	if err != nil {
		return nil, err
	}

	table, err := pap.Parse(plcfbtePapx, wordDocument, pieces)
	if err != nil {
		return nil, fmt.Errorf("failed to parse paragraph-property table: %w", err)
	}
	d.paras = table
	return d.paras, nil
}

// sectionTable lazily parses and caches the document's section table.
func (d *Document) sectionTable(wordDocument []byte) (*sep.Table, error) {
	if d.sections != nil {
		return d.sections, nil
	}

	tableStream, err := d.tableStream()
	if err != nil {
		return nil, err
	}

	fc, lcb, ok := d.fib.PlcfsedPointer()
	if !ok || lcb == 0 {
		d.sections = &sep.Table{}
		return d.sections, nil
	}
	plcfSed, err := fib.Slice(tableStream, fc, lcb)
	if err != nil {
		return nil, err
	}

	table, err := sep.Parse(plcfSed, wordDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to parse section table: %w", err)
	}
	d.sections = table
	return d.sections, nil
}

// fieldTable lazily parses and caches the document's field table
// (used to locate embedded objects such as equations inline in text).
func (d *Document) fieldTable() (*fields.Table, error) {
	if d.fields != nil {
		return d.fields, nil
	}

	tableStream, err := d.tableStream()
	if err != nil {
		return nil, err
	}

	fc, lcb, ok := d.fib.PlcffldMomPointer()
	if !ok || lcb == 0 {
		d.fields = &fields.Table{}
		return d.fields, nil
	}
	plcffldMom, err := fib.Slice(tableStream, fc, lcb)
	if err != nil {
		return nil, err
	}

	table, err := fields.Parse(plcffldMom)
	if err != nil {
		return nil, fmt.Errorf("failed to parse field table: %w", err)
	}
	d.fields = table
	return d.fields, nil
}

// Text extracts the plain text content from the document by walking the
// piece table and decoding each piece's bytes out of the WordDocument
// stream (UTF-16LE for Unicode pieces, Windows-1252 otherwise).
//
// For documents with no text content, returns an empty string with no
// error.
func (d *Document) Text() (string, error) {
	wordDocument, err := d.reader.ReadStream("WordDocument")
	if err != nil {
		return "", fmt.Errorf("failed to read WordDocument stream: %w", err)
	}

	pieces, err := d.pieceTable()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, p := range pieces.Pieces {
		text, err := d.decodePiece(p, wordDocument)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func (d *Document) decodePiece(p piece.Piece, wordDocument []byte) (string, error) {
	length := p.Length()
	if length == 0 {
		return "", nil
	}

	if p.IsUnicode {
		byteCount := length * 2
		if uint32(len(wordDocument)) < p.FC+byteCount {
			return "", fmt.Errorf("WordDocument stream too small for piece at FC %d", p.FC)
		}
		raw := wordDocument[p.FC : p.FC+byteCount]
		if d.fib.IsEncrypted() && d.decryptor != nil {
			raw = d.decryptor.Decrypt(raw)
		}
		u16s := make([]uint16, length)
		for i := uint32(0); i < length; i++ {
			u16s[i] = uint16(raw[i*2]) | uint16(raw[i*2+1])<<8
		}
		return string(utf16.Decode(u16s)), nil
	}

	if uint32(len(wordDocument)) < p.FC+length {
		return "", fmt.Errorf("WordDocument stream too small for piece at FC %d", p.FC)
	}
	raw := wordDocument[p.FC : p.FC+length]
	if d.fib.IsEncrypted() && d.decryptor != nil {
		raw = d.decryptor.Decrypt(raw)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode Windows-1252 text: %w", err)
	}
	return string(decoded), nil
}

// GetFormattedText extracts text runs annotated with the character
// properties (bold, italic, font size, ...) in force over each run,
// by intersecting the piece table against the FKP-derived character
// run table.
func (d *Document) GetFormattedText() ([]*TextRun, error) {
	if d.fib.IsEncrypted() && d.decryptor == nil {
		return nil, fmt.Errorf("document is encrypted but decryption is not available")
	}

	wordDocument, err := d.reader.ReadStream("WordDocument")
	if err != nil {
		return nil, fmt.Errorf("failed to read WordDocument stream: %w", err)
	}

	pieces, err := d.pieceTable()
	if err != nil {
		return nil, err
	}
	chars, err := d.characterTable(wordDocument)
	if err != nil {
		return nil, err
	}

	runs := chars.RunsInRange(0, pieces.TotalCPs())
	result := make([]*TextRun, 0, len(runs))
	for _, run := range runs {
		text, err := d.textForCPRange(run.StartCP, run.EndCP, pieces, wordDocument)
		if err != nil {
			return nil, err
		}
		result = append(result, &TextRun{
			Text:      text,
			StartCP:   run.StartCP,
			EndCP:     run.EndCP,
			CharProps: run.Properties,
		})
	}
	return result, nil
}

// textForCPRange decodes the text backing [start, end) CPs, which may
// span multiple pieces.
func (d *Document) textForCPRange(start, end uint32, pieces *piece.Table, wordDocument []byte) (string, error) {
	var sb strings.Builder
	for cp := start; cp < end; {
		p, ok := pieces.PieceForCP(cp)
		if !ok {
			cp++
			continue
		}
		runEnd := end
		if p.CPEnd < runEnd {
			runEnd = p.CPEnd
		}
		sub := piece.Piece{CPStart: cp, CPEnd: runEnd, IsUnicode: p.IsUnicode}
		if p.IsUnicode {
			sub.FC = p.FC + (cp-p.CPStart)*2
		} else {
			sub.FC = p.FC + (cp - p.CPStart)
		}
		text, err := d.decodePiece(sub, wordDocument)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		cp = runEnd
	}
	return sb.String(), nil
}
