// Package fib decodes the File Information Block, the fixed-plus-variable
// header at the start of the WordDocument stream. Everything else in the
// document (piece table, bin tables, fields) is reached through a pointer
// read out of the FIB's RgFcLcb array, so FIB parsing is the root of the
// whole binary-format graph.
package fib

import (
	"bytes"
	"encoding/binary"

	"github.com/TalentFormula/msdoc/ooxerr"
)

const wordIdent = 0xA5EC

// FibBase is the fixed-size (32 byte) header of the FIB.
type FibBase struct {
	WIdent   uint16
	NFib     uint16
	_        uint16
	Lid      uint16
	PnNext   uint16
	Flags1   uint16
	NFibBack uint16
	LKey     uint32
	Envr     byte
	Flags2   byte
	_        [2]uint16
	_        [2]uint32
}

// FibRgW97 is the 16-bit value section of the FIB.
type FibRgW97 struct {
	_ [28]byte
}

// FibRgLw97 is the 32-bit value section of the FIB.
type FibRgLw97 struct {
	CbMac      uint32
	_          uint32
	CcpText    uint32
	CcpFtn     uint32
	CcpHdd     uint32
	_          uint32
	CcpAtn     uint32
	CcpEdn     uint32
	CcpTxbx    uint32
	CcpHdrTxbx uint32
	_          [44]byte
}

// Table indices into RgFcLcb, named per [MS-DOC] 2.5.1. Only the
// pointers this engine actually dereferences are named; anything else
// is still reachable via GetTablePointer.
const (
	TableStshfOrig = 0
	TableStshf     = 2
	TablePlcffndRef = 4
	TablePlcffndTxt = 6
	TablePlcfandRef = 8
	TablePlcfandTxt = 10
	TablePlcfsed    = 12
	TablePlcfbteChpx = 18
	TablePlcfbtePapx = 20
	TableSttbfffn    = 24
	TablePlcffldMom  = 26
	TablePlcffldHdr  = 28
	TablePlcffldFtn  = 30
	TablePlcffldAtn  = 32
	TableSttbfbkmk   = 36
	TablePlcfbkf     = 38
	TablePlcfbkl     = 40
	TableClx         = 66
)

// FileInformationBlock is the parsed FIB.
type FileInformationBlock struct {
	Base    FibBase
	Csw     uint16
	FibRgW  FibRgW97
	Cslw    uint16
	FibRgLw FibRgLw97

	cbRgFcLcb   uint16
	rgFcLcbBlob []byte
}

// Parse reads a FIB from the start of a WordDocument stream.
func Parse(data []byte) (*FileInformationBlock, error) {
	if len(data) < 32 {
		return nil, ooxerr.InsufficientData(32, len(data))
	}

	r := bytes.NewReader(data)
	fib := &FileInformationBlock{}

	if err := binary.Read(r, binary.LittleEndian, &fib.Base); err != nil {
		return nil, ooxerr.Wrap(ooxerr.KindParseError, err, "fib: reading FibBase")
	}
	if fib.Base.WIdent != wordIdent {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "fib: wIdent = 0x%04X, not a Word document", fib.Base.WIdent)
	}

	if err := binary.Read(r, binary.LittleEndian, &fib.Csw); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &fib.FibRgW); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &fib.Cslw); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &fib.FibRgLw); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &fib.cbRgFcLcb); err != nil {
		return nil, err
	}

	blobSize := int(fib.cbRgFcLcb) * 8
	if r.Len() < blobSize {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "fib: RgFcLcbBlob expects %d bytes, have %d", blobSize, r.Len())
	}
	fib.rgFcLcbBlob = make([]byte, blobSize)
	if _, err := r.Read(fib.rgFcLcbBlob); err != nil {
		return nil, ooxerr.Wrap(ooxerr.KindParseError, err, "fib: reading RgFcLcbBlob")
	}

	return fib, nil
}

// GetTablePointer returns the (fc, lcb) pair at the given RgFcLcb
// index, generalizing the single hardcoded fcClx offset the teacher
// used: every table pointer in the FIB is a pair of uint32s at
// index*4 bytes into the blob, and this is the only accessor that
// needs to know that layout.
func (f *FileInformationBlock) GetTablePointer(index int) (fc, lcb uint32, ok bool) {
	offset := index * 4
	if offset+8 > len(f.rgFcLcbBlob) {
		return 0, 0, false
	}
	fc = binary.LittleEndian.Uint32(f.rgFcLcbBlob[offset:])
	lcb = binary.LittleEndian.Uint32(f.rgFcLcbBlob[offset+4:])
	return fc, lcb, true
}

func (f *FileInformationBlock) ClxPointer() (fc, lcb uint32, ok bool) {
	return f.GetTablePointer(TableClx)
}

func (f *FileInformationBlock) PlcfbteChpxPointer() (fc, lcb uint32, ok bool) {
	return f.GetTablePointer(TablePlcfbteChpx)
}

func (f *FileInformationBlock) PlcfbtePapxPointer() (fc, lcb uint32, ok bool) {
	return f.GetTablePointer(TablePlcfbtePapx)
}

func (f *FileInformationBlock) PlcffldMomPointer() (fc, lcb uint32, ok bool) {
	return f.GetTablePointer(TablePlcffldMom)
}

func (f *FileInformationBlock) PlcfsedPointer() (fc, lcb uint32, ok bool) {
	return f.GetTablePointer(TablePlcfsed)
}

// Flags1 bits, per the FibBase layout.
const (
	flagEncrypted    = 0x0100
	flagWhichTblStm  = 0x0200
)

// IsEncrypted reports whether fEncrypted is set in FibBase.Flags1.
func (f *FileInformationBlock) IsEncrypted() bool {
	return f.Base.Flags1&flagEncrypted != 0
}

// TableStreamName returns "1Table" or "0Table" depending on fWhichTblStm.
func (f *FileInformationBlock) TableStreamName() string {
	if f.Base.Flags1&flagWhichTblStm != 0 {
		return "1Table"
	}
	return "0Table"
}

// Slice extracts the table's bytes from the raw table stream given a
// pointer previously returned by GetTablePointer.
func Slice(tableStream []byte, fc, lcb uint32) ([]byte, error) {
	start := int(fc)
	end := start + int(lcb)
	if start < 0 || end < start || end > len(tableStream) {
		return nil, ooxerr.New(ooxerr.KindInvalidFormat, "fib: table pointer [%d,%d) out of range for %d-byte stream", start, end, len(tableStream))
	}
	return tableStream[start:end], nil
}
