package macros

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// literalContainer builds a compressed container whose single chunk
// encodes content entirely as literal tokens.
func literalContainer(content []byte) []byte {
	var body []byte
	for i := 0; i < len(content); i += 8 {
		end := i + 8
		if end > len(content) {
			end = len(content)
		}
		body = append(body, 0x00) // all-literal flag byte
		body = append(body, content[i:end]...)
	}
	hdr := uint16(0xB000) | uint16(len(body)+2-3)
	out := []byte{0x01, byte(hdr), byte(hdr >> 8)}
	return append(out, body...)
}

func TestDecompressContainerLiterals(t *testing.T) {
	content := []byte("Sub Test()\r\nEnd Sub\r\n")
	got, err := DecompressContainer(literalContainer(content))
	if err != nil {
		t.Fatalf("DecompressContainer failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("decompressed = %q, want %q", got, content)
	}
}

func TestDecompressContainerCopyToken(t *testing.T) {
	// Literals a,b,c then a copy token (offset 3, length 6) expanding
	// to "abcabcabc".
	body := []byte{
		0x08,          // token 3 is a copy
		'a', 'b', 'c', // literals
		0x03, 0x20, // copy token: offset 3, length 6 (4-bit offset split)
	}
	hdr := uint16(0xB000) | uint16(len(body)+2-3)
	data := append([]byte{0x01, byte(hdr), byte(hdr >> 8)}, body...)

	got, err := DecompressContainer(data)
	if err != nil {
		t.Fatalf("DecompressContainer failed: %v", err)
	}
	if string(got) != "abcabcabc" {
		t.Errorf("decompressed = %q, want abcabcabc", got)
	}
}

func TestDecompressContainerRejectsBadSignature(t *testing.T) {
	if _, err := DecompressContainer([]byte{0x02, 0x00, 0x00}); err == nil {
		t.Error("expected error for bad container signature")
	}
	if _, err := DecompressContainer(nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestDecompressContainerRejectsBadCopyOffset(t *testing.T) {
	// A copy token at position 0 references data before the chunk start.
	body := []byte{0x01, 0x00, 0x20}
	hdr := uint16(0xB000) | uint16(len(body)+2-3)
	data := append([]byte{0x01, byte(hdr), byte(hdr >> 8)}, body...)
	if _, err := DecompressContainer(data); err == nil {
		t.Error("expected error for out-of-range copy offset")
	}
}

func record(id uint16, payload []byte) []byte {
	rec := make([]byte, 6+len(payload))
	binary.LittleEndian.PutUint16(rec[0:], id)
	binary.LittleEndian.PutUint32(rec[2:], uint32(len(payload)))
	copy(rec[6:], payload)
	return rec
}

func TestParseDirStream(t *testing.T) {
	var dir []byte
	dir = append(dir, record(recProjectName, []byte("MyProject"))...)
	dir = append(dir, record(recModuleName, []byte("Module1"))...)
	dir = append(dir, record(recModuleStream, []byte("Module1"))...)
	offset := make([]byte, 4)
	binary.LittleEndian.PutUint32(offset, 0x40)
	dir = append(dir, record(recModuleOffset, offset)...)
	dir = append(dir, record(recModuleName, []byte("ThisDocument"))...)
	dir = append(dir, record(recModuleDocModule, nil)...)

	project := &VBAProject{Modules: make(map[string]*Module)}
	if err := parseDirStream(project, dir); err != nil {
		t.Fatalf("parseDirStream failed: %v", err)
	}

	if project.Name != "MyProject" {
		t.Errorf("project name = %q", project.Name)
	}
	if len(project.Modules) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(project.Modules))
	}
	m1 := project.Modules["Module1"]
	if m1 == nil || m1.Offset != 0x40 || m1.StreamName != "Module1" {
		t.Errorf("Module1 = %+v", m1)
	}
	if td := project.Modules["ThisDocument"]; td == nil || td.Type != ModuleDocument {
		t.Errorf("ThisDocument = %+v", td)
	}
}
