// Package plcf decodes PLCF ("Plex of Character Positions") structures:
// an array of n+1 sorted character positions followed by n fixed-size
// property blobs, the workhorse indexing structure of the legacy Word
// binary format.
package plcf

import (
	"encoding/binary"

	"github.com/TalentFormula/msdoc/ooxerr"
)

// Plcf is a parsed plex: Positions has Count()+1 entries; Props holds
// Count() contiguous fixed-size property blobs.
type Plcf struct {
	positions []uint32
	props     []byte
	elemSize  int
}

// Parse decodes data as a PLCF whose properties are elemSize bytes each.
// A nil, non-error result never happens: data of at least 4 bytes that
// holds no complete entry (n==0) yields an empty-but-valid Plcf with
// Count()==0, while data shorter than 4 bytes is an error.
func Parse(data []byte, elemSize int) (*Plcf, error) {
	if elemSize <= 0 {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "plcf element size must be positive, got %d", elemSize)
	}
	if len(data) < 4 {
		return nil, ooxerr.InsufficientData(4, len(data))
	}

	n := (len(data) - 4) / (4 + elemSize)
	if n == 0 {
		return &Plcf{elemSize: elemSize}, nil
	}

	positions := make([]uint32, n+1)
	for i := 0; i <= n; i++ {
		positions[i] = binary.LittleEndian.Uint32(data[i*4:])
	}

	propsStart := (n + 1) * 4
	propsLen := n * elemSize
	if propsStart+propsLen > len(data) {
		return nil, ooxerr.InsufficientData(propsStart+propsLen, len(data))
	}
	props := make([]byte, propsLen)
	copy(props, data[propsStart:propsStart+propsLen])

	return &Plcf{positions: positions, props: props, elemSize: elemSize}, nil
}

// Count returns the number of property entries (n), one fewer than the
// number of positions.
func (p *Plcf) Count() int {
	if p.elemSize == 0 {
		return 0
	}
	return len(p.props) / p.elemSize
}

// Position returns the i-th character position, 0 <= i <= Count().
func (p *Plcf) Position(i int) (uint32, bool) {
	if i < 0 || i >= len(p.positions) {
		return 0, false
	}
	return p.positions[i], true
}

// Property returns the i-th fixed-size property blob, 0 <= i < Count().
func (p *Plcf) Property(i int) ([]byte, bool) {
	n := p.Count()
	if i < 0 || i >= n {
		return nil, false
	}
	return p.props[i*p.elemSize : (i+1)*p.elemSize], true
}

// Range returns (positions[i], positions[i+1]) for 0 <= i < Count().
func (p *Plcf) Range(i int) (start, end uint32, ok bool) {
	n := p.Count()
	if i < 0 || i >= n {
		return 0, 0, false
	}
	return p.positions[i], p.positions[i+1], true
}
