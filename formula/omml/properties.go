package omml

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// ElementProperties is the typed result of batch-parsing one element's
// attribute list plus its child *Pr element, spanning every property
// this engine's downstream AST construction reads. Most fields apply
// to only one or two element kinds; the rest stay at their zero value.
type ElementProperties struct {
	MathVariant string
	Style       string
	DisplayStyle bool
	RunMathStyle string
	Font        string
	NormalText  bool
	Literal     bool

	FractionType string

	DelimiterOpenChar    string
	DelimiterCloseChar   string
	DelimiterSeparator   string
	DelimiterGrow        bool
	DelimiterShape       string

	Chr              string
	NaryOperatorGrow bool
	NaryHideSub      bool
	NaryHideSup      bool

	AccentChar string

	Position string // bar/group-char position: "top" or "bot"

	HideTop    bool
	HideBottom bool
	HideLeft   bool
	HideRight  bool
	Strike     string

	Transparent bool
	ZeroWidth   bool

	DegreeHide bool

	RowSpacing string
	ColSpacing string
	VertAlign  string
	Script     string

	Bold   bool
	Italic bool
}

// attrCache is the linear attribute cache: OMML elements carry at most
// a handful of attributes, so a scanned slice beats a map for both
// speed and allocation count.
type attrCache struct {
	attrs []xml.Attr
}

func newAttrCache(attrs []xml.Attr) attrCache {
	return attrCache{attrs: attrs}
}

// get matches a bare or "m:"-prefixed attribute name.
func (c attrCache) get(name string) (string, bool) {
	for _, a := range c.attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (c attrCache) getBool(name string) bool {
	v, ok := c.get(name)
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "on":
		return true
	default:
		return false
	}
}

func (c attrCache) getInt(name string) (int, bool) {
	v, ok := c.get(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// parseRunProperties reads the sty, nor and lit attributes an <m:rPr>
// element itself carries. The <m:sty>, <m:nor> and <m:lit> child
// elements are applied separately: when each child closes,
// resolveFrame sets the matching field on the rPr frame's Props.
func parseRunProperties(attrs []xml.Attr) ElementProperties {
	c := newAttrCache(attrs)
	var p ElementProperties
	if v, ok := c.get("sty"); ok {
		p.Style = v
	}
	p.NormalText = c.getBool("nor")
	p.Literal = c.getBool("lit")
	return p
}

func parseFractionProperties(attrs []xml.Attr) ElementProperties {
	c := newAttrCache(attrs)
	var p ElementProperties
	if v, ok := c.get("type"); ok {
		p.FractionType = v
	} else {
		p.FractionType = "bar"
	}
	return p
}

func parseDelimiterProperties(attrs []xml.Attr) ElementProperties {
	c := newAttrCache(attrs)
	var p ElementProperties
	if v, ok := c.get("begChr"); ok {
		p.DelimiterOpenChar = v
	}
	if v, ok := c.get("endChr"); ok {
		p.DelimiterCloseChar = v
	}
	if v, ok := c.get("sepChr"); ok {
		p.DelimiterSeparator = v
	}
	p.DelimiterGrow = c.getBool("grow")
	if v, ok := c.get("shp"); ok {
		p.DelimiterShape = v
	}
	return p
}

func parseNaryProperties(attrs []xml.Attr) ElementProperties {
	c := newAttrCache(attrs)
	var p ElementProperties
	if v, ok := c.get("chr"); ok {
		p.Chr = v
	}
	p.NaryOperatorGrow = c.getBool("grow")
	p.NaryHideSub = c.getBool("subHide")
	p.NaryHideSup = c.getBool("supHide")
	return p
}

func parseAccentProperties(attrs []xml.Attr) ElementProperties {
	c := newAttrCache(attrs)
	var p ElementProperties
	if v, ok := c.get("chr"); ok {
		p.AccentChar = v
	}
	return p
}

func parseBarProperties(attrs []xml.Attr) ElementProperties {
	c := newAttrCache(attrs)
	var p ElementProperties
	if v, ok := c.get("pos"); ok {
		p.Position = v
	}
	return p
}

func parseGroupCharProperties(attrs []xml.Attr) ElementProperties {
	c := newAttrCache(attrs)
	var p ElementProperties
	if v, ok := c.get("chr"); ok {
		p.Chr = v
	}
	if v, ok := c.get("pos"); ok {
		p.Position = v
	}
	return p
}

func parseBoxProperties(attrs []xml.Attr) ElementProperties {
	c := newAttrCache(attrs)
	var p ElementProperties
	p.HideTop = c.getBool("hideTop")
	p.HideBottom = c.getBool("hideBot")
	p.HideLeft = c.getBool("hideLeft")
	p.HideRight = c.getBool("hideRight")
	if v, ok := c.get("strikeH"); ok {
		p.Strike = v
	}
	return p
}

func parsePhantomProperties(attrs []xml.Attr) ElementProperties {
	c := newAttrCache(attrs)
	var p ElementProperties
	p.Transparent = c.getBool("transp")
	p.ZeroWidth = c.getBool("zeroWid")
	return p
}

func parseRadicalProperties(attrs []xml.Attr) ElementProperties {
	c := newAttrCache(attrs)
	var p ElementProperties
	p.DegreeHide = c.getBool("degHide")
	return p
}

// parseProperties dispatches to the right typed attribute parser for
// the owning *Pr element's type. For every other element type only the
// mathVariant attribute is read; no other attribute is folded in.
func parseProperties(elemType ElementType, attrs []xml.Attr) ElementProperties {
	switch elemType {
	case ElemRunProperties:
		return parseRunProperties(attrs)
	case ElemFractionPr:
		return parseFractionProperties(attrs)
	case ElemDelimiterPr:
		return parseDelimiterProperties(attrs)
	case ElemNaryPr:
		return parseNaryProperties(attrs)
	case ElemAccentPr:
		return parseAccentProperties(attrs)
	case ElemBarPr, ElemGroupCharPr:
		if elemType == ElemGroupCharPr {
			return parseGroupCharProperties(attrs)
		}
		return parseBarProperties(attrs)
	case ElemBoxPr:
		return parseBoxProperties(attrs)
	case ElemPhantomPr:
		return parsePhantomProperties(attrs)
	case ElemRadicalPr:
		return parseRadicalProperties(attrs)
	default:
		c := newAttrCache(attrs)
		var p ElementProperties
		if v, ok := c.get("mathVariant"); ok {
			p.MathVariant = v
		}
		return p
	}
}
