// Package objects extracts embedded objects (OLE objects, images,
// charts, equations) from a .doc file's ObjectPool stream.
package objects

import (
	"fmt"
	"strings"

	"github.com/TalentFormula/msdoc/binutil"
	"github.com/TalentFormula/msdoc/ole2"
)

// ObjectType classifies an embedded object.
type ObjectType int

const (
	ObjectTypeUnknown ObjectType = iota
	ObjectTypeOLE
	ObjectTypeImage
	ObjectTypeChart
	ObjectTypeEquation
	ObjectTypeDrawing
)

func (t ObjectType) String() string {
	switch t {
	case ObjectTypeOLE:
		return "OLE Object"
	case ObjectTypeImage:
		return "Image"
	case ObjectTypeChart:
		return "Chart"
	case ObjectTypeEquation:
		return "Equation"
	case ObjectTypeDrawing:
		return "Drawing"
	default:
		return "Unknown"
	}
}

// EmbeddedObject is one object from the pool.
type EmbeddedObject struct {
	Type      ObjectType
	Name      string
	ClassName string // OLE class name, when the record carries one
	Data      []byte // Object payload (OLE header stripped for OLE records)
	Size      int64
	Position  uint32 // Record offset within the pool stream
	IsLinked  bool
}

// Info renders a one-line human-readable description.
func (obj *EmbeddedObject) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s", obj.Type)
	if obj.Name != "" {
		fmt.Fprintf(&b, ", Name: %s", obj.Name)
	}
	if obj.ClassName != "" {
		fmt.Fprintf(&b, ", Class: %s", obj.ClassName)
	}
	fmt.Fprintf(&b, ", Size: %d bytes", obj.Size)
	if obj.IsLinked {
		b.WriteString(", linked")
	}
	return b.String()
}

const objectRecordSignature = 0x00000501

// ObjectPool indexes the embedded objects of one document.
type ObjectPool struct {
	reader  *ole2.Reader
	objects map[uint32]*EmbeddedObject
	loaded  bool
}

// NewObjectPool creates an ObjectPool over the given OLE2 reader.
func NewObjectPool(reader *ole2.Reader) *ObjectPool {
	return &ObjectPool{
		reader:  reader,
		objects: make(map[uint32]*EmbeddedObject),
	}
}

// LoadObjects parses the ObjectPool stream. A document without embedded
// objects has no such stream; that is not an error. Repeated calls are
// no-ops.
func (op *ObjectPool) LoadObjects() error {
	if op.loaded {
		return nil
	}
	op.loaded = true

	poolData, err := op.reader.ReadStream("ObjectPool")
	if err != nil {
		return nil
	}
	return op.parsePool(poolData)
}

// parsePool walks the pool's concatenated object records. A malformed
// record terminates the walk; records already parsed stay available.
func (op *ObjectPool) parsePool(data []byte) error {
	c := binutil.NewCursor(data)

	for c.Remaining() > 0 {
		position := uint32(c.Pos())

		sig, err := c.U32()
		if err != nil {
			break
		}
		if sig != objectRecordSignature {
			// Trailing padding or an unknown record layout; stop rather
			// than misinterpret the rest of the stream.
			break
		}

		size, err := c.U32()
		if err != nil {
			return fmt.Errorf("objects: truncated record header at %d: %w", position, err)
		}
		objType, err := c.U16()
		if err != nil {
			return fmt.Errorf("objects: truncated record header at %d: %w", position, err)
		}
		flags, err := c.U16()
		if err != nil {
			return fmt.Errorf("objects: truncated record header at %d: %w", position, err)
		}

		obj := &EmbeddedObject{
			Type:     classify(objType),
			Size:     int64(size),
			Position: position,
			IsLinked: flags&0x0001 != 0,
		}

		if size > 0 {
			payload, err := c.Bytes(int(size))
			if err != nil {
				return fmt.Errorf("objects: record at %d claims %d payload bytes: %w", position, size, err)
			}
			obj.Data = payload
			if obj.Type == ObjectTypeOLE {
				op.parseOLEPayload(obj)
			}
		}

		op.objects[obj.Position] = obj
	}
	return nil
}

func classify(objType uint16) ObjectType {
	switch objType {
	case 0x0002:
		return ObjectTypeOLE
	case 0x0003:
		return ObjectTypeImage
	case 0x0005:
		return ObjectTypeChart
	case 0x0007:
		return ObjectTypeEquation
	case 0x0008:
		return ObjectTypeDrawing
	default:
		return ObjectTypeUnknown
	}
}

// parseOLEPayload strips the OLE sub-header from an OLE record and
// reclassifies MathType/Equation objects by their class name, which is
// how equations actually appear in the pool (type 0x0002, class
// "Equation.3" or similar).
func (op *ObjectPool) parseOLEPayload(obj *EmbeddedObject) {
	c := binutil.NewCursor(obj.Data)

	if _, err := c.U32(); err != nil { // version
		return
	}
	if _, err := c.U32(); err != nil { // flags
		return
	}
	nameLen, err := c.U32()
	if err != nil {
		return
	}
	if nameLen > 0 && int(nameLen) <= c.Remaining() {
		name, err := c.Bytes(int(nameLen))
		if err != nil {
			return
		}
		obj.ClassName = strings.TrimRight(string(name), "\x00")
	}

	rest, err := c.Bytes(c.Remaining())
	if err != nil {
		return
	}
	obj.Data = rest

	if strings.Contains(strings.ToLower(obj.ClassName), "equation") ||
		strings.Contains(strings.ToLower(obj.ClassName), "mathtype") {
		obj.Type = ObjectTypeEquation
	}
}

// GetObject returns the object whose record starts at position, or nil.
func (op *ObjectPool) GetObject(position uint32) *EmbeddedObject {
	return op.objects[position]
}

// GetAllObjects returns every parsed object keyed by record position.
func (op *ObjectPool) GetAllObjects() map[uint32]*EmbeddedObject {
	return op.objects
}

// ExtractObject returns the object at position, erroring when none
// exists.
func (op *ObjectPool) ExtractObject(position uint32) (*EmbeddedObject, error) {
	obj := op.objects[position]
	if obj == nil {
		return nil, fmt.Errorf("objects: no object at position %d", position)
	}
	return obj, nil
}
