// Package mtef decodes MathType's MTEF binary equation format: an OLE
// object header, a version-dependent signature, and a tagged stream of
// math objects (characters, templates, piles, matrices, rulers, fonts,
// sizes) built as a singly-linked object list. Ported from the
// rtf2latex2e-derived binary parser this corpus's original
// implementation carries, translating its Option/Box linked-list
// idioms into Go pointer chains.
package mtef

import (
	"github.com/TalentFormula/msdoc/formula/ast"
	"github.com/TalentFormula/msdoc/ooxerr"
)

// Parse decodes an MTEF byte stream (header, signature, version
// prelude, then the top-level object list -- conventionally a SIZE
// record followed by one LINE or PILE) directly into the shared math
// AST, interning character and identifier text in arena.
func Parse(data []byte, arena *ast.Arena) ([]ast.MathNode, error) {
	p, err := New(data)
	if err != nil {
		return nil, err
	}
	list, err := p.ParseObjectList(2)
	if err != nil {
		return nil, err
	}
	return ToAST(list, arena), nil
}

// Record tags. Values 0-19 follow the fixed nibble-sized tag space the
// format allots for MTEF<5 (tag is the low nibble of a byte) and the
// single-byte tag space of MTEF>=5.
const (
	tagEnd = iota
	tagLine
	tagChar
	tagTmpl
	tagPile
	tagMatrix
	tagEmbell
	tagRuler
	tagFont
	tagSize
	tagFull
	tagSub
	tagSub2
	tagSym
	tagSubSym
	tagColor
	tagColorDef
	tagFontDef
	tagEqnPrefs
	tagEncodingDef
)

// Attribute bits. XF_* apply to TMPL/LINE/PILE/MATRIX/EMBELL and must
// fit in a 4-bit nibble since MTEF<5 attributes are a nibble; CHAR_*
// encoding bits are only read for MTEF>=5, where the attribute byte is
// unconstrained.
const (
	xfLMove  = 0x01
	xfLSpace = 0x02
	xfRuler  = 0x04
	xfNull   = 0x08

	charNudge  = 0x01
	charEmbell = 0x02 // MTEF<5
	xfEmbell   = 0x02 // same bit, MTEF>=5 branch uses charEmbellV5 instead

	charEmbellV5      = 0x02
	charEncNoMTCode   = 0x08
	charEncChar8      = 0x10
	charEncChar16     = 0x20

	platformWin = 1
)

// Kind discriminates an Object (analogous to ast.Kind: one struct,
// fields populated per Kind).
type Kind int

const (
	KindChar Kind = iota
	KindLine
	KindTmpl
	KindPile
	KindMatrix
	KindEmbell
	KindRuler
	KindFont
	KindSize
)

// Tabstop is one ruler stop.
type Tabstop struct {
	Type   int16
	Offset int16
	Next   *Tabstop
}

// Embell is one embellishment in a char's embellishment chain.
type Embell struct {
	NudgeX, NudgeY int16
	Kind           uint8
	Next           *Embell
}

// ObjectList is one linked node of a parsed object sequence; Next forms
// the chain, mirroring the source's boxed linked list.
type ObjectList struct {
	Kind Kind
	Obj  Object
	Next *ObjectList
}

// Object is the union of every MTEF record this parser understands. It
// carries only the fields relevant to Kind, exactly like
// formula/ast.MathNode.
type Object struct {
	NudgeX, NudgeY int16

	// Char
	Attrs     uint8
	Typeface  uint8
	Character uint16
	Bits16    uint16
	Embells   *Embell

	// Template
	Selector  uint8
	Variation uint16
	Options   uint8
	Sub       *ObjectList

	// Line
	LineSpacing uint8
	Ruler       *Ruler
	Objects     *ObjectList

	// Pile
	HAlign, VAlign uint8
	Lines          *ObjectList

	// Matrix
	MVAlign, HJust, VJust, Rows, Cols uint8
	RowParts, ColParts                [16]byte
	Elements                          *ObjectList

	// Font
	Tface, Style int32
	Name         string

	// Size
	SizeType, LSize, DSize int32
}

// Ruler is a tab-stop list attached to a LINE or PILE record.
type Ruler struct {
	NStops   int16
	Tabstops *Tabstop
}

// Parser walks an MTEF byte stream.
type Parser struct {
	data []byte
	pos  int

	MtefVersion uint8
	Platform    uint8
	Product     uint8
	Version     uint8
	VersionSub  uint8
	Inline      uint8
}

// maxIterations bounds a single object-list parse to defend against
// malformed or adversarial input, per the format's own tolerance rules.
const maxIterations = 10000

// New parses the OLE object header and MTEF signature/version prelude,
// leaving the parser positioned at the start of the object stream.
func New(data []byte) (*Parser, error) {
	if len(data) < 28 {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "mtef: data too short for OLE header")
	}

	cbHdr := le16(data, 0)
	version := le32(data, 2)
	if cbHdr != 28 {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "mtef: invalid OLE header length %d", cbHdr)
	}
	if version != 0x00020000 && version != 0x00000200 {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "mtef: invalid OLE version 0x%08X", version)
	}

	p := &Parser{data: data, pos: 28}
	if err := p.readHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func le16(data []byte, off int) uint16 { return uint16(data[off]) | uint16(data[off+1])<<8 }
func le32(data []byte, off int) uint32 {
	return uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
}

func (p *Parser) readHeader() error {
	if len(p.data) < p.pos+1 {
		return ooxerr.UnexpectedEOF()
	}

	hasSignature := p.pos+4 <= len(p.data) &&
		p.data[p.pos] == 0x28 && p.data[p.pos+1] == 0x04 &&
		p.data[p.pos+2] == 0x6D && p.data[p.pos+3] == 0x74

	if hasSignature {
		p.pos += 4
	}
	v, err := p.readU8()
	if err != nil {
		return err
	}
	p.MtefVersion = v

	switch {
	case p.MtefVersion == 0:
		p.MtefVersion = 5
	case p.MtefVersion == 1 || p.MtefVersion == 101:
		if p.MtefVersion == 101 {
			p.Platform = 1
		}
		p.Version = 1
	case p.MtefVersion >= 2 && p.MtefVersion <= 4:
		if err := p.readVersionFields(); err != nil {
			return err
		}
	case p.MtefVersion == 5:
		if err := p.readVersionFields(); err != nil {
			return err
		}
		start := p.pos
		for p.pos < len(p.data) && p.data[p.pos] != 0 {
			p.pos++
		}
		if p.pos >= len(p.data) {
			return ooxerr.UnexpectedEOF()
		}
		_ = p.data[start:p.pos]
		p.pos++ // skip null terminator
		inline, err := p.readU8()
		if err != nil {
			return err
		}
		p.Inline = inline
	default:
		return ooxerr.New(ooxerr.KindInvalidFormat, "mtef: unsupported MTEF version %d", p.MtefVersion)
	}
	return nil
}

func (p *Parser) readVersionFields() error {
	var err error
	if p.Platform, err = p.readU8(); err != nil {
		return err
	}
	if p.Product, err = p.readU8(); err != nil {
		return err
	}
	if p.Version, err = p.readU8(); err != nil {
		return err
	}
	if p.VersionSub, err = p.readU8(); err != nil {
		return err
	}
	return nil
}

func (p *Parser) readU8() (uint8, error) {
	if p.pos >= len(p.data) {
		return 0, ooxerr.UnexpectedEOF()
	}
	v := p.data[p.pos]
	p.pos++
	return v, nil
}

func (p *Parser) readI16() (int16, error) {
	v, err := p.readU16()
	return int16(v), err
}

func (p *Parser) readU16() (uint16, error) {
	if p.pos+2 > len(p.data) {
		return 0, ooxerr.UnexpectedEOF()
	}
	v := le16(p.data, p.pos)
	p.pos += 2
	return v, nil
}

// getAttribute reads the version-dependent attribute: the high nibble
// of the current byte for MTEF<5, the next whole byte for MTEF>=5.
func (p *Parser) getAttribute() (uint8, error) {
	if p.MtefVersion < 5 {
		b, err := p.readU8()
		if err != nil {
			return 0, err
		}
		return (b & 0xF0) >> 4, nil
	}
	// MTEF>=5: the tag byte stands alone; skip it and read the
	// attribute byte that follows.
	if _, err := p.readU8(); err != nil {
		return 0, err
	}
	return p.readU8()
}

// getNudge reads a two-byte nudge, or an extended 4-byte (i16,i16)
// nudge when both bytes read 128.
func (p *Parser) getNudge() (int16, int16, error) {
	b1, err := p.readU8()
	if err != nil {
		return 0, 0, err
	}
	b2, err := p.readU8()
	if err != nil {
		return 0, 0, err
	}
	if b1 == 128 && b2 == 128 {
		x, err := p.readI16()
		if err != nil {
			return 0, 0, err
		}
		y, err := p.readI16()
		if err != nil {
			return 0, 0, err
		}
		return x, y, nil
	}
	return int16(b1), int16(b2), nil
}

func (p *Parser) currentTag() uint8 {
	if p.pos >= len(p.data) {
		return tagEnd
	}
	if p.MtefVersion == 5 {
		return p.data[p.pos]
	}
	return p.data[p.pos] & 0x0F
}

// ParseObjectList reads tagged records until an END tag, EOF, or (when
// numObjs > 0) until numObjs objects have been collected -- the
// top-level Parse call asks for 2 (a SIZE record followed by a
// LINE/PILE record), matching the format's documented entry shape.
func (p *Parser) ParseObjectList(numObjs int) (*ObjectList, error) {
	var head, tail *ObjectList
	tally := 0

	for iterations := 0; ; iterations++ {
		if p.pos >= len(p.data) {
			break
		}
		if iterations > maxIterations {
			return nil, ooxerr.New(ooxerr.KindParseError, "mtef: too many objects parsed (possible infinite loop)")
		}

		tag := p.currentTag()
		if tag == tagEnd {
			p.pos++
			break
		}

		var kind Kind
		var obj Object
		var have bool
		var err error

		// The tag byte is only peeked above, never consumed here: each
		// record parser's own first read consumes it (getAttribute skips
		// it for v>=5 and reads it as the tag+attribute nibble pair for
		// v<5; records like FONT that carry no attribute byte read it as
		// their first data field).
		switch tag {
		case tagChar:
			obj, err = p.parseChar()
			kind, have = KindChar, err == nil
		case tagTmpl:
			obj, err = p.parseTemplate()
			kind, have = KindTmpl, err == nil
		case tagLine:
			obj, err = p.parseLine()
			kind, have = KindLine, err == nil
		case tagPile:
			obj, err = p.parsePile()
			kind, have = KindPile, err == nil
		case tagMatrix:
			obj, err = p.parseMatrix()
			kind, have = KindMatrix, err == nil
		case tagEmbell:
			e, eerr := p.parseEmbellRecord()
			err = eerr
			if err == nil {
				obj = Object{NudgeX: e.NudgeX, NudgeY: e.NudgeY, Attrs: e.Kind}
				kind, have = KindEmbell, true
			}
		case tagRuler:
			r, rerr := p.parseRuler()
			err = rerr
			if err == nil {
				obj = Object{Ruler: r}
				kind, have = KindRuler, true
			}
		case tagFont:
			obj, err = p.parseFont()
			kind, have = KindFont, err == nil
		case tagSize, tagFull, tagSub, tagSub2, tagSym, tagSubSym:
			obj, err = p.parseSize()
			kind, have = KindSize, err == nil
		case tagColorDef:
			p.pos++
		case tagFontDef:
			err = p.skipFontDef()
		case tagEqnPrefs:
			err = p.skipEqnPrefs()
		case tagEncodingDef:
			err = p.skipEncodingDef()
		default:
			err = p.skipFutureRecord()
		}

		if err != nil {
			return nil, err
		}

		if have {
			node := &ObjectList{Kind: kind, Obj: obj}
			if tail == nil {
				head = node
			} else {
				tail.Next = node
			}
			tail = node
			tally++
			if numObjs > 0 && tally == numObjs {
				break
			}
		}
	}

	return head, nil
}

func (p *Parser) parseChar() (Object, error) {
	attrs, err := p.getAttribute()
	if err != nil {
		return Object{}, err
	}

	var nudgeX, nudgeY int16
	if attrs&charNudge != 0 {
		nudgeX, nudgeY, err = p.getNudge()
		if err != nil {
			return Object{}, err
		}
	}

	typeface, err := p.readU8()
	if err != nil {
		return Object{}, err
	}

	var character, bits16 uint16
	if p.MtefVersion < 5 {
		b, err := p.readU8()
		if err != nil {
			return Object{}, err
		}
		character = uint16(b)
		if p.Platform == platformWin {
			b2, err := p.readU8()
			if err != nil {
				return Object{}, err
			}
			character |= uint16(b2) << 8
		}
	} else {
		if attrs&charEncNoMTCode == 0 {
			if character, err = p.readU16(); err != nil {
				return Object{}, err
			}
		}
		if attrs&charEncChar8 != 0 {
			b, err := p.readU8()
			if err != nil {
				return Object{}, err
			}
			character = uint16(b)
		}
		if attrs&charEncChar16 != 0 {
			if bits16, err = p.readU16(); err != nil {
				return Object{}, err
			}
		}
	}

	var embells *Embell
	if p.MtefVersion == 5 {
		if attrs&charEmbellV5 != 0 {
			embells, err = p.parseEmbellChain()
			if err != nil {
				return Object{}, err
			}
		}
	} else if attrs&xfEmbell != 0 {
		embells, err = p.parseEmbellChain()
		if err != nil {
			return Object{}, err
		}
	}

	return Object{
		NudgeX: nudgeX, NudgeY: nudgeY, Attrs: attrs,
		Typeface: typeface, Character: character, Bits16: bits16,
		Embells: embells,
	}, nil
}

func (p *Parser) parseEmbellChain() (*Embell, error) {
	e, err := p.parseEmbellRecord()
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (p *Parser) parseEmbellRecord() (*Embell, error) {
	attrs, err := p.getAttribute()
	if err != nil {
		return nil, err
	}
	var nudgeX, nudgeY int16
	if attrs&xfLMove != 0 {
		nudgeX, nudgeY, err = p.getNudge()
		if err != nil {
			return nil, err
		}
	}
	kind, err := p.readU8()
	if err != nil {
		return nil, err
	}
	return &Embell{NudgeX: nudgeX, NudgeY: nudgeY, Kind: kind}, nil
}

func (p *Parser) parseTemplate() (Object, error) {
	attrs, err := p.getAttribute()
	if err != nil {
		return Object{}, err
	}
	var nudgeX, nudgeY int16
	if attrs&xfLMove != 0 {
		nudgeX, nudgeY, err = p.getNudge()
		if err != nil {
			return Object{}, err
		}
	}

	selector, err := p.readU8()
	if err != nil {
		return Object{}, err
	}
	vb, err := p.readU8()
	if err != nil {
		return Object{}, err
	}
	variation := uint16(vb)
	if p.MtefVersion == 5 && variation&0x80 != 0 {
		variation &= 0x7F
		hi, err := p.readU8()
		if err != nil {
			return Object{}, err
		}
		variation |= uint16(hi) << 7
	}

	options, err := p.readU8()
	if err != nil {
		return Object{}, err
	}

	var sub *ObjectList
	if attrs&xfNull == 0 {
		sub, err = p.ParseObjectList(0)
		if err != nil {
			return Object{}, err
		}
	}

	return Object{
		NudgeX: nudgeX, NudgeY: nudgeY, Selector: selector,
		Variation: variation, Options: options, Sub: sub,
	}, nil
}

func (p *Parser) parseLine() (Object, error) {
	attrs, err := p.getAttribute()
	if err != nil {
		return Object{}, err
	}
	var nudgeX, nudgeY int16
	if attrs&xfLMove != 0 {
		nudgeX, nudgeY, err = p.getNudge()
		if err != nil {
			return Object{}, err
		}
	}

	var lineSpacing uint8
	if attrs&xfLSpace != 0 {
		if lineSpacing, err = p.readU8(); err != nil {
			return Object{}, err
		}
	}

	var ruler *Ruler
	if attrs&xfRuler != 0 {
		if ruler, err = p.parseRuler(); err != nil {
			return Object{}, err
		}
	}

	objects, err := p.ParseObjectList(0)
	if err != nil {
		return Object{}, err
	}

	return Object{NudgeX: nudgeX, NudgeY: nudgeY, LineSpacing: lineSpacing, Ruler: ruler, Objects: objects}, nil
}

func (p *Parser) parsePile() (Object, error) {
	attrs, err := p.getAttribute()
	if err != nil {
		return Object{}, err
	}
	var nudgeX, nudgeY int16
	if attrs&xfLMove != 0 {
		nudgeX, nudgeY, err = p.getNudge()
		if err != nil {
			return Object{}, err
		}
	}

	halign, err := p.readU8()
	if err != nil {
		return Object{}, err
	}
	valign, err := p.readU8()
	if err != nil {
		return Object{}, err
	}

	var ruler *Ruler
	if attrs&xfRuler != 0 {
		if ruler, err = p.parseRuler(); err != nil {
			return Object{}, err
		}
	}

	lines, err := p.ParseObjectList(0)
	if err != nil {
		return Object{}, err
	}

	return Object{NudgeX: nudgeX, NudgeY: nudgeY, HAlign: halign, VAlign: valign, Ruler: ruler, Lines: lines}, nil
}

func (p *Parser) parseMatrix() (Object, error) {
	attrs, err := p.getAttribute()
	if err != nil {
		return Object{}, err
	}
	var nudgeX, nudgeY int16
	if attrs&xfLMove != 0 {
		nudgeX, nudgeY, err = p.getNudge()
		if err != nil {
			return Object{}, err
		}
	}

	valign, err := p.readU8()
	if err != nil {
		return Object{}, err
	}
	hJust, err := p.readU8()
	if err != nil {
		return Object{}, err
	}
	vJust, err := p.readU8()
	if err != nil {
		return Object{}, err
	}
	rows, err := p.readU8()
	if err != nil {
		return Object{}, err
	}
	cols, err := p.readU8()
	if err != nil {
		return Object{}, err
	}

	var rowParts, colParts [16]byte
	rowBytes := (2*(int(rows)+1) + 7) / 8
	for i := 0; i < rowBytes && i < len(rowParts); i++ {
		if rowParts[i], err = p.readU8(); err != nil {
			return Object{}, err
		}
	}
	colBytes := (2*(int(cols)+1) + 7) / 8
	for i := 0; i < colBytes && i < len(colParts); i++ {
		if colParts[i], err = p.readU8(); err != nil {
			return Object{}, err
		}
	}

	elements, err := p.ParseObjectList(0)
	if err != nil {
		return Object{}, err
	}

	return Object{
		NudgeX: nudgeX, NudgeY: nudgeY, MVAlign: valign, HJust: hJust, VJust: vJust,
		Rows: rows, Cols: cols, RowParts: rowParts, ColParts: colParts, Elements: elements,
	}, nil
}

func (p *Parser) parseRuler() (*Ruler, error) {
	if p.pos < len(p.data) {
		tag := p.currentTag()
		if tag == tagRuler {
			p.pos++
		}
	}

	nStopsByte, err := p.readU8()
	if err != nil {
		return nil, err
	}
	nStops := int16(nStopsByte)

	var head, tail *Tabstop
	for i := int16(0); i < nStops; i++ {
		typ, err := p.readU8()
		if err != nil {
			return nil, err
		}
		offset, err := p.readI16()
		if err != nil {
			return nil, err
		}
		node := &Tabstop{Type: int16(typ), Offset: offset}
		if tail == nil {
			head = node
		} else {
			tail.Next = node
		}
		tail = node
	}

	return &Ruler{NStops: nStops, Tabstops: head}, nil
}

func (p *Parser) parseFont() (Object, error) {
	tface, err := p.readU8()
	if err != nil {
		return Object{}, err
	}
	style, err := p.readU8()
	if err != nil {
		return Object{}, err
	}

	start := p.pos
	for p.pos < len(p.data) && p.data[p.pos] != 0 {
		p.pos++
	}
	if p.pos >= len(p.data) {
		return Object{}, ooxerr.UnexpectedEOF()
	}
	name := string(p.data[start:p.pos])
	p.pos++

	return Object{Tface: int32(tface), Style: int32(style), Name: name}, nil
}

func (p *Parser) parseSize() (Object, error) {
	tagByte, err := p.readU8()
	if err != nil {
		return Object{}, err
	}
	tag := tagByte & 0x0F

	if tag >= tagFull && tag <= tagSubSym {
		return Object{SizeType: int32(tag), LSize: int32(tag - tagFull)}, nil
	}

	option, err := p.readU8()
	if err != nil {
		return Object{}, err
	}

	switch option {
	case 100:
		lsize, err := p.readU8()
		if err != nil {
			return Object{}, err
		}
		dlo, err := p.readU8()
		if err != nil {
			return Object{}, err
		}
		dhi, err := p.readU8()
		if err != nil {
			return Object{}, err
		}
		dsize := int32(dlo) + int32(dhi)<<8
		return Object{SizeType: int32(option), LSize: int32(lsize), DSize: dsize}, nil
	case 101:
		lo, err := p.readU8()
		if err != nil {
			return Object{}, err
		}
		hi, err := p.readU8()
		if err != nil {
			return Object{}, err
		}
		lsize := int32(lo) + int32(hi)<<8
		return Object{SizeType: int32(option), LSize: lsize}, nil
	default:
		d, err := p.readU8()
		if err != nil {
			return Object{}, err
		}
		return Object{SizeType: 0, LSize: int32(option), DSize: int32(d) - 128}, nil
	}
}

func (p *Parser) skipFontDef() error {
	p.pos++
	if _, err := p.readU8(); err != nil {
		return err
	}
	for p.pos < len(p.data) && p.data[p.pos] != 0 {
		p.pos++
	}
	p.pos++
	return nil
}

func (p *Parser) skipEqnPrefs() error {
	p.pos++
	if _, err := p.readU8(); err != nil {
		return err
	}
	sizeCount, err := p.readU8()
	if err != nil {
		return err
	}
	if err := p.skipNibbles(int(sizeCount)); err != nil {
		return err
	}
	spaceCount, err := p.readU8()
	if err != nil {
		return err
	}
	if err := p.skipNibbles(int(spaceCount)); err != nil {
		return err
	}
	styleCount, err := p.readU8()
	if err != nil {
		return err
	}
	for i := 0; i < int(styleCount); i++ {
		c, err := p.readU8()
		if err != nil {
			return err
		}
		if c != 0 {
			p.pos++
		}
	}
	return nil
}

func (p *Parser) skipEncodingDef() error {
	p.pos++
	for p.pos < len(p.data) && p.data[p.pos] != 0 {
		p.pos++
	}
	p.pos++
	return nil
}

func (p *Parser) skipFutureRecord() error {
	p.pos++
	n, err := p.readU16()
	if err != nil {
		return err
	}
	p.pos += int(n)
	return nil
}

func (p *Parser) skipNibbles(count int) error {
	bytes := (count + 1) / 2
	for i := 0; i < bytes; i++ {
		if _, err := p.readU8(); err != nil {
			return err
		}
	}
	return nil
}
