package metadata

import (
	"testing"
	"time"
)

func newMD() *DocumentMetadata {
	return &DocumentMetadata{CustomProperties: make(map[string]string)}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Last Author":  "lastauthor",
		"last_author":  "lastauthor",
		"LastAuthor":   "lastauthor",
		"Rev-Number":   "revnumber",
		"AppName":      "appname",
		"Content/Type": "contenttype",
	}
	for in, want := range cases {
		if got := normalizeName(in); got != want {
			t.Errorf("normalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAssignStringProperties(t *testing.T) {
	md := newMD()
	assign(md, "Title", "Quarterly Report")
	assign(md, "Author", "J. Smith")
	assign(md, "Company", "Acme")
	assign(md, "Last Author", "K. Jones")

	if md.Title != "Quarterly Report" {
		t.Errorf("Title = %q", md.Title)
	}
	if md.Author != "J. Smith" {
		t.Errorf("Author = %q", md.Author)
	}
	if md.Company != "Acme" {
		t.Errorf("Company = %q", md.Company)
	}
	if md.LastAuthor != "K. Jones" {
		t.Errorf("LastAuthor = %q", md.LastAuthor)
	}
}

func TestAssignNumericProperties(t *testing.T) {
	md := newMD()
	assign(md, "PageCount", "12")
	assign(md, "WordCount", "3456")
	assign(md, "Security", "1")

	if md.PageCount != 12 || md.WordCount != 3456 {
		t.Errorf("counts = %d/%d", md.PageCount, md.WordCount)
	}
	if !md.IsProtected() {
		t.Error("security bit 0 should report protected")
	}
}

func TestAssignTime(t *testing.T) {
	md := newMD()
	ref := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assignTime(md, "CreateTime", ref, 0)
	if !md.Created.Equal(ref) {
		t.Errorf("Created = %v, want %v", md.Created, ref)
	}

	// Edit time is a duration in 100ns ticks, not a date: 90 minutes.
	assignTime(md, "EditTime", time.Time{}, 90*60*10_000_000)
	if md.TotalEditTime != 90 {
		t.Errorf("TotalEditTime = %d, want 90", md.TotalEditTime)
	}
}

func TestAssignUnknownGoesToCustom(t *testing.T) {
	md := newMD()
	assign(md, "ProjectCode", "X-17")
	if md.CustomProperties["ProjectCode"] != "X-17" {
		t.Errorf("custom properties = %v", md.CustomProperties)
	}
}

func TestMalformedNumberIsZero(t *testing.T) {
	md := newMD()
	assign(md, "PageCount", "not-a-number")
	if md.PageCount != 0 {
		t.Errorf("PageCount = %d, want 0", md.PageCount)
	}
}
