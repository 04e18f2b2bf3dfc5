// Package opc implements the ZIP-based Open Packaging Convention reader
// used by OOXML (.docx/.xlsx/.pptx) and, incidentally, any other
// Deflate/Store-only ZIP container (ODF, iWork bundles). It indexes the
// central directory once and decompresses parts on demand.
//
// Ported from this corpus's soapberry-zip ArchiveReader/LazyArchiveReader:
// the Rust original builds a HashMap index over a zero-copy ZipSliceArchive
// and decompresses with flate2; Go's archive/zip already indexes the
// central directory and decompresses through a bufio-backed Reader, so the
// index here stores *zip.File pointers rather than re-deriving wayfinders.
package opc

import (
	"archive/zip"
	"bytes"
	"hash/crc32"
	"io"
	"strings"

	"github.com/TalentFormula/msdoc/ooxerr"
)

// entryInfo is the pre-built index record for one archive member.
type entryInfo struct {
	file              *zip.File
	compressionMethod uint16
	uncompressedSize  uint64
}

// Reader is a read-only view over a ZIP archive's parts, indexed by
// normalized name. It holds no mutable state after construction and is
// safe for concurrent Read calls from multiple goroutines.
type Reader struct {
	index map[string]entryInfo
	names []string
}

// NewReader parses the ZIP central directory in data and builds a
// name index. File contents are not decompressed until Read is called.
func NewReader(data []byte) (*Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, ooxerr.Wrap(ooxerr.KindZipError, err, "parse zip central directory")
	}

	index := make(map[string]entryInfo, len(zr.File))
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue // directory entry
		}
		name := normalizeName(f.Name)
		index[name] = entryInfo{
			file:              f,
			compressionMethod: f.Method,
			uncompressedSize:  f.UncompressedSize64,
		}
		names = append(names, name)
	}

	return &Reader{index: index, names: names}, nil
}

func normalizeName(name string) string {
	return strings.TrimPrefix(name, "/")
}

// Len reports the number of non-directory entries.
func (r *Reader) Len() int { return len(r.index) }

// Contains reports whether name exists, trying both the exact name and
// the name with a leading slash stripped.
func (r *Reader) Contains(name string) bool {
	if _, ok := r.index[name]; ok {
		return true
	}
	_, ok := r.index[normalizeName(name)]
	return ok
}

// Names returns all part names in no particular order.
func (r *Reader) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Read decompresses and returns the full contents of the named part.
// Only Store (method 0) and Deflate (method 8) are supported; any other
// compression method yields ooxerr.KindUnsupported.
func (r *Reader) Read(name string) ([]byte, error) {
	info, ok := r.index[normalizeName(name)]
	if !ok {
		return nil, ooxerr.New(ooxerr.KindComponentNotFound, "part %q not found in archive", name)
	}
	return readEntry(info)
}

func readEntry(info entryInfo) ([]byte, error) {
	switch info.compressionMethod {
	case zip.Store, zip.Deflate:
		rc, err := info.file.Open()
		if err != nil {
			return nil, ooxerr.Wrap(ooxerr.KindZipError, err, "open zip entry %q", info.file.Name)
		}
		defer rc.Close()

		buf := make([]byte, 0, info.uncompressedSize)
		out := bytes.NewBuffer(buf)
		if _, err := io.Copy(out, rc); err != nil {
			return nil, ooxerr.Wrap(ooxerr.KindZipError, err, "decompress zip entry %q", info.file.Name)
		}
		data := out.Bytes()

		if info.compressionMethod == zip.Store {
			if crc32.ChecksumIEEE(data) != info.file.CRC32 {
				return nil, ooxerr.New(ooxerr.KindCorruptedFile, "crc32 mismatch for stored entry %q", info.file.Name)
			}
		}
		return data, nil
	default:
		return nil, ooxerr.New(ooxerr.KindUnsupported, "unsupported zip compression method %d for %q", info.compressionMethod, info.file.Name)
	}
}

// ReadString reads a part and returns it as a UTF-8 string.
func (r *Reader) ReadString(name string) (string, error) {
	b, err := r.Read(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
