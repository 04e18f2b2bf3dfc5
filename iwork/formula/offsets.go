package formula

import "github.com/TalentFormula/msdoc/iwork/varint"

// CellOffsets decodes a tile row's cell_offsets buffer into cumulative
// byte offsets into the row's cell_storage_buffer. The first cell
// always starts at offset 0; each subsequent varint is a delta added to
// the running total. Ported from parse_cell_offsets.
func CellOffsets(offsetsBuffer []byte) ([]int, error) {
	offsets := []int{0}
	pos := 0
	for pos < len(offsetsBuffer) {
		delta, n, err := varint.Decode(offsetsBuffer[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		offsets = append(offsets, offsets[len(offsets)-1]+int(delta))
	}
	return offsets, nil
}
