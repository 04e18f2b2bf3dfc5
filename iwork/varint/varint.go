// Package varint decodes the base-128 variable-length integers iWork
// documents use to address cells within a tile's storage buffer. Ported
// from table_extractor.rs's decode_varint.
package varint

import "github.com/TalentFormula/msdoc/ooxerr"

// maxBytes bounds decoding to the widest group a uint64 can need, per
// spec.md §6's "up to 10-byte groups".
const maxBytes = 10

// Decode reads one little-endian base-128 varint from the front of data.
// It returns the decoded value and the number of bytes consumed.
func Decode(data []byte) (value uint64, n int, err error) {
	var shift uint
	for i := 0; i < len(data) && i < maxBytes; i++ {
		b := data[i]
		value |= uint64(b&0x7f) << shift
		n++
		if b&0x80 == 0 {
			return value, n, nil
		}
		shift += 7
	}
	return 0, 0, ooxerr.New(ooxerr.KindParseError, "invalid varint encoding")
}
