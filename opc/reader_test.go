package opc

import (
	"archive/zip"
	"bytes"
	"sort"
	"testing"
)

func buildZip(t *testing.T, files map[string][]byte, deflate map[string]bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		method := zip.Store
		if deflate[name] {
			method = zip.Deflate
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			t.Fatalf("CreateHeader: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func TestRoundTripStored(t *testing.T) {
	data := buildZip(t, map[string][]byte{"test.txt": []byte("Hello, World!")}, nil)

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if !r.Contains("test.txt") {
		t.Fatal("expected test.txt to be present")
	}
	got, err := r.Read("test.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "Hello, World!" {
		t.Fatalf("Read = %q", got)
	}
}

func TestRoundTripDeflated(t *testing.T) {
	data := buildZip(t,
		map[string][]byte{"content.xml": []byte("<root>Hello</root>")},
		map[string]bool{"content.xml": true},
	)

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := r.Read("content.xml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "<root>Hello</root>" {
		t.Fatalf("Read = %q", got)
	}
}

func TestMultipleFiles(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"mimetype":    []byte("application/test"),
		"content.xml": []byte("<content/>"),
		"styles.xml":  []byte("<styles/>"),
	}, map[string]bool{"content.xml": true, "styles.xml": true})

	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}
	for name, want := range map[string]string{
		"mimetype":    "application/test",
		"content.xml": "<content/>",
		"styles.xml":  "<styles/>",
	} {
		got, err := r.Read(name)
		if err != nil {
			t.Fatalf("Read(%q): %v", name, err)
		}
		if string(got) != want {
			t.Fatalf("Read(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestLeadingSlashNormalized(t *testing.T) {
	data := buildZip(t, map[string][]byte{"word/document.xml": []byte("<document/>")}, nil)
	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if !r.Contains("/word/document.xml") {
		t.Fatal("expected leading-slash lookup to normalize")
	}
}

func TestReadMissingPart(t *testing.T) {
	data := buildZip(t, map[string][]byte{"a": []byte("a")}, nil)
	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.Read("missing"); err == nil {
		t.Fatal("expected error for missing part")
	}
}

func TestReadManyPreservesOrder(t *testing.T) {
	files := map[string][]byte{
		"a.xml": []byte("AAAA"),
		"b.xml": []byte("BBBB"),
		"c.xml": []byte("CCCC"),
	}
	data := buildZip(t, files, map[string]bool{"a.xml": true, "b.xml": true, "c.xml": true})
	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	names := []string{"c.xml", "a.xml", "b.xml"}
	results := r.ReadMany(names)
	if len(results) != len(names) {
		t.Fatalf("ReadMany returned %d results, want %d", len(results), len(names))
	}
	for i, res := range results {
		if res.Name != names[i] {
			t.Fatalf("results[%d].Name = %q, want %q (order not preserved)", i, res.Name, names[i])
		}
		if res.Err != nil {
			t.Fatalf("results[%d].Err = %v", i, res.Err)
		}
		if string(res.Data) != string(files[names[i]]) {
			t.Fatalf("results[%d].Data = %q, want %q", i, res.Data, files[names[i]])
		}
	}
}

func TestReadAllUnorderedButComplete(t *testing.T) {
	files := map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
		"c": []byte("3"),
	}
	data := buildZip(t, files, nil)
	r, err := NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	all := r.ReadAll()
	var names []string
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) != 3 {
		t.Fatalf("ReadAll returned %d entries, want 3", len(names))
	}
	for name, want := range files {
		if string(all[name]) != string(want) {
			t.Fatalf("ReadAll[%q] = %q, want %q", name, all[name], want)
		}
	}
}

func TestLazyReaderCacheIdempotence(t *testing.T) {
	data := buildZip(t, map[string][]byte{"x.xml": []byte("payload")}, map[string]bool{"x.xml": true})
	lr, err := NewLazyReaderFromBytes(data)
	if err != nil {
		t.Fatalf("NewLazyReaderFromBytes: %v", err)
	}

	first, err := lr.Read("x.xml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	second, err := lr.Read("x.xml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("cached reads diverge: %q vs %q", first, second)
	}
	if lr.CacheSize() != 1 {
		t.Fatalf("CacheSize = %d, want 1", lr.CacheSize())
	}
}

func TestLazyReaderConcurrentReadsAgree(t *testing.T) {
	data := buildZip(t, map[string][]byte{"x.xml": []byte("payload")}, map[string]bool{"x.xml": true})
	lr, err := NewLazyReaderFromBytes(data)
	if err != nil {
		t.Fatalf("NewLazyReaderFromBytes: %v", err)
	}

	const n = 16
	results := make([][]byte, n)
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			data, err := lr.Read("x.xml")
			if err != nil {
				t.Errorf("Read: %v", err)
			}
			results[i] = data
			done <- i
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
	for i, r := range results {
		if string(r) != "payload" {
			t.Fatalf("results[%d] = %q, want %q", i, r, "payload")
		}
	}
}
