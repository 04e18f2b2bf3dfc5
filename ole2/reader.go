// Package ole2 reads streams out of an OLE2 compound file (the
// container format of Word 97-2003 .doc files and other legacy Office
// binaries). The reader indexes the FAT, mini-FAT and directory up
// front; stream bytes are fetched on demand by ReadStream.
//
// Real-world files are frequently sloppy about chain bookkeeping, so
// the reader is deliberately tolerant: unreadable FAT sectors are
// skipped, and a stream of at most ten sectors whose chain runs past
// the indexed FAT falls back to sequential sector reads rather than
// failing outright; a longer stream is returned as far as its chain
// reaches.
package ole2

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/TalentFormula/msdoc/binutil"
)

const (
	headerSignature = 0xE11AB1A1E011CFD0
	headerSize      = 512
	dirEntrySize    = 128

	// FAT sentinel values.
	maxRegSector = 0xFFFFFFFA
	fatSect      = 0xFFFFFFFD
	endOfChain   = 0xFFFFFFFE
	freeSect     = 0xFFFFFFFF
)

// Reader provides access to streams within an OLE2 compound file.
type Reader struct {
	r io.ReaderAt

	sectorSize     int
	miniSectorSize int
	miniCutoff     uint64

	fat     []uint32
	miniFat []uint32
	entries []dirEntry

	// miniStream holds the root entry's stream, which backs every
	// stream smaller than miniCutoff. Loaded lazily on first use.
	miniStream       []byte
	miniStreamLoaded bool
}

type dirEntry struct {
	name        string
	objectType  byte
	startSector uint32
	size        uint64
}

const (
	objectTypeStorage = 1
	objectTypeStream  = 2
	objectTypeRoot    = 5
)

// NewReader indexes an OLE2 compound file from an io.ReaderAt.
func NewReader(r io.ReaderAt) (*Reader, error) {
	hdr := make([]byte, headerSize)
	if _, err := r.ReadAt(hdr, 0); err != nil {
		return nil, fmt.Errorf("ole2: failed to read header: %w", err)
	}

	c := binutil.NewCursor(hdr)
	sig, err := c.U64()
	if err != nil || sig != headerSignature {
		return nil, fmt.Errorf("ole2: invalid signature")
	}

	sectorShift, _ := binutil.ReadU16LE(hdr, 30)
	miniShift, _ := binutil.ReadU16LE(hdr, 32)
	fatSectorCount, _ := binutil.ReadU32LE(hdr, 44)
	dirStart, _ := binutil.ReadU32LE(hdr, 48)
	miniCutoff, _ := binutil.ReadU32LE(hdr, 56)
	miniFatStart, _ := binutil.ReadU32LE(hdr, 60)
	miniFatCount, _ := binutil.ReadU32LE(hdr, 64)
	difatStart, _ := binutil.ReadU32LE(hdr, 68)
	difatCount, _ := binutil.ReadU32LE(hdr, 72)

	if sectorShift != 9 && sectorShift != 12 {
		return nil, fmt.Errorf("ole2: unsupported sector shift %d", sectorShift)
	}
	if miniShift == 0 {
		miniShift = 6
	}

	rd := &Reader{
		r:              r,
		sectorSize:     1 << sectorShift,
		miniSectorSize: 1 << miniShift,
		miniCutoff:     uint64(miniCutoff),
	}
	if rd.miniCutoff == 0 {
		rd.miniCutoff = 4096
	}

	fatSectorNumbers := rd.collectFatSectorNumbers(hdr, fatSectorCount, difatStart, difatCount)
	rd.fat = rd.loadSectorTable(fatSectorNumbers)

	dirStream, err := rd.readDirectoryStream(dirStart)
	if err != nil {
		return nil, err
	}
	rd.entries = parseDirEntries(dirStream)

	rd.miniFat = rd.loadSectorTable(rd.chainSectors(miniFatStart, int(miniFatCount)))

	return rd, nil
}

// collectFatSectorNumbers gathers the FAT's own sector numbers from the
// 109 header DIFAT slots plus any chained DIFAT sectors.
func (r *Reader) collectFatSectorNumbers(hdr []byte, fatCount, difatStart, difatCount uint32) []uint32 {
	var nums []uint32
	for i := 0; i < 109 && len(nums) < int(fatCount); i++ {
		n, err := binutil.ReadU32LE(hdr, 76+i*4)
		if err != nil {
			break
		}
		if n <= maxRegSector {
			nums = append(nums, n)
		}
	}

	perSector := r.sectorSize/4 - 1
	sector := difatStart
	for i := uint32(0); i < difatCount && sector <= maxRegSector && len(nums) < int(fatCount); i++ {
		buf, err := r.readSector(sector)
		if err != nil {
			break
		}
		for j := 0; j < perSector && len(nums) < int(fatCount); j++ {
			n, _ := binutil.ReadU32LE(buf, j*4)
			if n <= maxRegSector {
				nums = append(nums, n)
			}
		}
		sector, _ = binutil.ReadU32LE(buf, perSector*4)
	}
	return nums
}

// loadSectorTable reads the given sectors and reinterprets their bytes
// as a flat table of 32-bit sector numbers. Unreadable sectors are
// skipped rather than failing the whole load.
func (r *Reader) loadSectorTable(sectorNumbers []uint32) []uint32 {
	var table []uint32
	for _, n := range sectorNumbers {
		buf, err := r.readSector(n)
		if err != nil {
			continue
		}
		for off := 0; off+4 <= len(buf); off += 4 {
			v, _ := binutil.ReadU32LE(buf, off)
			table = append(table, v)
		}
	}
	return table
}

// chainSectors walks a FAT chain from start, returning the sector
// numbers visited, capped at max entries (and at the FAT size, which
// bounds any cycle).
func (r *Reader) chainSectors(start uint32, max int) []uint32 {
	if max <= 0 || max > len(r.fat)+1 {
		max = len(r.fat) + 1
	}
	var sectors []uint32
	for n := start; n <= maxRegSector && len(sectors) < max; {
		sectors = append(sectors, n)
		if int(n) >= len(r.fat) {
			break
		}
		n = r.fat[n]
	}
	return sectors
}

func (r *Reader) readSector(n uint32) ([]byte, error) {
	buf := make([]byte, r.sectorSize)
	if _, err := r.r.ReadAt(buf, (int64(n)+1)*int64(r.sectorSize)); err != nil {
		return nil, err
	}
	return buf, nil
}

// readDirectoryStream collects the directory's sectors. When the FAT
// chain covers the directory it is followed; otherwise the reader falls
// back to sequential sectors for as long as they still look like
// directory entries, which recovers files whose FAT was truncated by a
// sloppy writer.
func (r *Reader) readDirectoryStream(start uint32) ([]byte, error) {
	if start > maxRegSector {
		return nil, fmt.Errorf("ole2: no directory start sector")
	}

	var stream []byte
	chained := r.chainSectors(start, 0)
	for _, n := range chained {
		buf, err := r.readSector(n)
		if err != nil {
			if len(stream) == 0 {
				return nil, fmt.Errorf("ole2: failed to read directory sector %d: %w", n, err)
			}
			break
		}
		stream = append(stream, buf...)
	}

	// FAT chain ended after a single sector without an end-of-chain
	// marker: probe sequentially for more directory sectors.
	if len(chained) == 1 && int(start) >= len(r.fat) {
		for next := start + 1; ; next++ {
			buf, err := r.readSector(next)
			if err != nil {
				break
			}
			if !looksLikeDirSector(buf) {
				break
			}
			stream = append(stream, buf...)
		}
	}

	return stream, nil
}

// looksLikeDirSector applies a cheap validity check to a candidate
// directory sector: the first entry must carry a known object type and
// a plausible name length.
func looksLikeDirSector(buf []byte) bool {
	if len(buf) < dirEntrySize {
		return false
	}
	nameLen, _ := binutil.ReadU16LE(buf, 64)
	objectType := buf[66]
	return objectType <= objectTypeRoot && nameLen > 0 && nameLen <= 64
}

func parseDirEntries(stream []byte) []dirEntry {
	n := len(stream) / dirEntrySize
	entries := make([]dirEntry, 0, n)
	for i := 0; i < n; i++ {
		raw := stream[i*dirEntrySize : (i+1)*dirEntrySize]
		nameLen, _ := binutil.ReadU16LE(raw, 64)
		start, _ := binutil.ReadU32LE(raw, 116)
		sizeLo, _ := binutil.ReadU32LE(raw, 120)
		entries = append(entries, dirEntry{
			name:        decodeEntryName(raw[:64], nameLen),
			objectType:  raw[66],
			startSector: start,
			// The size field is 8 bytes but only the low 32 bits are
			// meaningful in version 3 files; some writers leave garbage
			// in the high half.
			size: uint64(sizeLo),
		})
	}
	return entries
}

func decodeEntryName(raw []byte, nameLen uint16) string {
	if nameLen < 2 {
		return ""
	}
	maxChars := int(nameLen/2) - 1 // exclude the null terminator
	if maxChars > 32 {
		maxChars = 32
	}
	u16s := make([]uint16, 0, maxChars)
	for i := 0; i < maxChars; i++ {
		v, err := binutil.ReadU16LE(raw, i*2)
		if err != nil || v == 0 {
			break
		}
		u16s = append(u16s, v)
	}
	return string(utf16.Decode(u16s))
}

// ListStreams returns the names of all streams in the compound file.
func (r *Reader) ListStreams() []string {
	var names []string
	for _, e := range r.entries {
		if e.objectType == objectTypeStream && e.name != "" {
			names = append(names, e.name)
		}
	}
	return names
}

// ReadStream finds a stream by name and returns its content. Streams
// smaller than the mini-stream cutoff are resolved through the
// mini-FAT; everything else through the regular FAT.
func (r *Reader) ReadStream(name string) ([]byte, error) {
	want := strings.TrimSpace(name)
	for _, e := range r.entries {
		if e.objectType != objectTypeStream || strings.TrimSpace(e.name) != want {
			continue
		}
		if e.size < r.miniCutoff {
			if data, err := r.readMiniStream(e); err == nil {
				return data, nil
			}
			// Mini-stream bookkeeping is broken or absent; fall through
			// to the regular FAT, which some writers use regardless of
			// the cutoff.
		}
		return r.readRegularStream(e)
	}
	return nil, fmt.Errorf("ole2: stream %q not found", name)
}

func (r *Reader) readRegularStream(e dirEntry) ([]byte, error) {
	data := make([]byte, 0, e.size)
	remaining := e.size
	sector := e.startSector
	steps := 0
	maxSteps := len(r.fat) + int(e.size)/r.sectorSize + 2

	for sector <= maxRegSector && remaining > 0 && steps < maxSteps {
		steps++
		buf, err := r.readSector(sector)
		if err != nil {
			return nil, err
		}
		take := uint64(r.sectorSize)
		if take > remaining {
			take = remaining
		}
		data = append(data, buf[:take]...)
		remaining -= take

		if int(sector) < len(r.fat) {
			sector = r.fat[sector]
		} else if remaining > 0 && e.size <= uint64(r.sectorSize*10) {
			// FAT chain incomplete; small streams are usually laid out
			// contiguously, so probe the next sector.
			sector++
		} else {
			break
		}
	}
	return data, nil
}

func (r *Reader) readMiniStream(e dirEntry) ([]byte, error) {
	if err := r.loadMiniStream(); err != nil {
		return nil, err
	}
	if len(r.miniFat) == 0 || len(r.miniStream) == 0 {
		return nil, fmt.Errorf("ole2: no mini stream available")
	}

	data := make([]byte, 0, e.size)
	remaining := e.size
	sector := e.startSector
	steps := 0

	for sector <= maxRegSector && remaining > 0 && steps <= len(r.miniFat) {
		steps++
		off := int(sector) * r.miniSectorSize
		if off >= len(r.miniStream) {
			return nil, fmt.Errorf("ole2: mini sector %d out of range", sector)
		}
		end := off + r.miniSectorSize
		if end > len(r.miniStream) {
			end = len(r.miniStream)
		}
		chunk := r.miniStream[off:end]
		take := uint64(len(chunk))
		if take > remaining {
			take = remaining
		}
		data = append(data, chunk[:take]...)
		remaining -= take

		if int(sector) >= len(r.miniFat) {
			break
		}
		sector = r.miniFat[sector]
	}

	if remaining > 0 {
		return nil, fmt.Errorf("ole2: mini-FAT chain ended %d bytes short", remaining)
	}
	return data, nil
}

// loadMiniStream reads the root entry's stream, which is the backing
// store for all mini-FAT allocated streams.
func (r *Reader) loadMiniStream() error {
	if r.miniStreamLoaded {
		return nil
	}
	r.miniStreamLoaded = true
	for _, e := range r.entries {
		if e.objectType == objectTypeRoot {
			data, err := r.readRegularStream(e)
			if err != nil {
				return err
			}
			r.miniStream = data
			return nil
		}
	}
	return fmt.Errorf("ole2: root entry not found")
}
