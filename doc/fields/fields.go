// Package fields decodes the Word fields table: a PLCF of FLD markers
// that bracket embedded field content (hyperlinks, embedded objects,
// page references, etc.) within the document's text.
package fields

import "github.com/TalentFormula/msdoc/doc/plcf"

// Boundary is the structural role of one FLD marker, encoded in the
// low 5 bits of the marker's first byte.
type Boundary uint8

const (
	BoundaryBegin     Boundary = 0x13
	BoundarySeparator Boundary = 0x14
	BoundaryEnd       Boundary = 0x15
)

// Type is the field's semantic kind, carried in the marker's second
// byte. Kept distinct from Boundary (unlike the teacher's conflated
// byte interpretation) per the format's own separation of concerns.
type Type uint8

const (
	TypeEmbeddedObject Type = 58
	TypeHyperlink      Type = 88
	TypePageRef        Type = 37
)

// Descriptor is one decoded FLD marker.
type Descriptor struct {
	Boundary Boundary
	Type     Type
	Flags    uint8
}

// ParseDescriptor decodes the 2-byte FLD property blob.
func ParseDescriptor(b []byte) Descriptor {
	if len(b) < 2 {
		return Descriptor{}
	}
	return Descriptor{
		Boundary: Boundary(b[0] & 0x1F),
		Flags:    (b[0] >> 5) & 0x07,
		Type:     Type(b[1]),
	}
}

func (d Descriptor) IsBegin() bool     { return d.Boundary == BoundaryBegin }
func (d Descriptor) IsSeparator() bool { return d.Boundary == BoundarySeparator }
func (d Descriptor) IsEnd() bool       { return d.Boundary == BoundaryEnd }

// Field is a fully- or partially-matched field span.
type Field struct {
	StartCP      uint32
	SeparatorCP  *uint32
	EndCP        uint32
	Type         Type
	HasSeparator bool
}

// CodeRange returns the CP span of the field's code (between begin and
// separator, or begin and end if there's no separator).
func (f Field) CodeRange() (uint32, uint32) {
	end := f.EndCP
	if f.SeparatorCP != nil {
		end = *f.SeparatorCP
	}
	return f.StartCP + 1, end
}

// ResultRange returns the CP span of the field's result, if a
// separator was present.
func (f Field) ResultRange() (uint32, uint32, bool) {
	if f.SeparatorCP == nil {
		return 0, 0, false
	}
	return *f.SeparatorCP + 1, f.EndCP, true
}

func (f Field) IsEmbeddedObject() bool { return f.Type == TypeEmbeddedObject }

// Table holds every field recognized in a fields PLCF.
type Table struct {
	Fields []Field
}

// Parse decodes a fields PLCF (2-byte FLD property elements). Unmatched
// markers are tolerated: an unterminated begin is simply dropped rather
// than surfaced as an error.
func Parse(data []byte) (*Table, error) {
	plex, err := plcf.Parse(data, 2)
	if err != nil {
		return nil, err
	}

	var fields []Field
	var open *Field
	var openType Type

	for i := 0; i < plex.Count(); i++ {
		cp, _, ok := plex.Range(i)
		if !ok {
			continue
		}
		propBytes, ok := plex.Property(i)
		if !ok {
			continue
		}
		desc := ParseDescriptor(propBytes)

		switch {
		case desc.IsBegin():
			open = &Field{StartCP: cp}
			openType = desc.Type
		case desc.IsSeparator() && open != nil:
			sep := cp
			open.SeparatorCP = &sep
			open.HasSeparator = true
		case desc.IsEnd() && open != nil:
			open.EndCP = cp
			open.Type = openType
			fields = append(fields, *open)
			open = nil
		}
	}

	return &Table{Fields: fields}, nil
}

// EmbeddedObjectFields returns only fields that bracket embedded
// objects (e.g. equation OLE containers), used to locate MTEF streams.
func (t *Table) EmbeddedObjectFields() []Field {
	var out []Field
	for _, f := range t.Fields {
		if f.IsEmbeddedObject() {
			out = append(out, f)
		}
	}
	return out
}

// FieldAt returns the field containing cp, if any.
func (t *Table) FieldAt(cp uint32) (Field, bool) {
	for _, f := range t.Fields {
		if cp >= f.StartCP && cp <= f.EndCP {
			return f, true
		}
	}
	return Field{}, false
}
