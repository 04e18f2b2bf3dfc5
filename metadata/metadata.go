// Package metadata extracts document properties from the OLE2 property
// set streams ("\x05SummaryInformation" and
// "\x05DocumentSummaryInformation") of a .doc file.
//
// The property set wire format itself is parsed by
// github.com/richardlehane/msoleps; this package maps the decoded
// properties onto a typed DocumentMetadata and collects everything it
// does not recognize into CustomProperties.
package metadata

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/richardlehane/msoleps"
	"github.com/richardlehane/msoleps/types"

	"github.com/TalentFormula/msdoc/ole2"
)

// Stream names carry a \x05 control-character prefix marking them as
// property set streams.
const (
	summaryInformationStream    = "\x05SummaryInformation"
	docSummaryInformationStream = "\x05DocumentSummaryInformation"
)

// DocumentMetadata holds the document properties read from both
// property set streams.
type DocumentMetadata struct {
	// SummaryInformation
	Title           string
	Subject         string
	Author          string
	Keywords        string
	Comments        string
	Template        string
	LastAuthor      string
	RevisionNumber  string
	ApplicationName string
	Created         time.Time
	LastSaved       time.Time
	LastPrinted     time.Time
	TotalEditTime   int64 // minutes
	PageCount       int32
	WordCount       int32
	CharCount       int32
	Security        int32

	// DocumentSummaryInformation
	Company        string
	Manager        string
	Category       string
	ContentType    string
	ContentStatus  string
	HyperLinkBase  string
	Language       int32
	LineCount      int32
	ParagraphCount int32

	// Properties with no dedicated field above, keyed by the name the
	// property set declares.
	CustomProperties map[string]string
}

// IsProtected reports whether the security property marks the document
// password protected or read-only enforced.
func (md *DocumentMetadata) IsProtected() bool {
	return md.Security&0x01 != 0 || md.Security&0x04 != 0
}

// MetadataExtractor reads property set streams through an OLE2 reader.
type MetadataExtractor struct {
	reader *ole2.Reader
}

// NewMetadataExtractor creates a metadata extractor backed by the given
// OLE2 reader.
func NewMetadataExtractor(reader *ole2.Reader) *MetadataExtractor {
	return &MetadataExtractor{reader: reader}
}

// ExtractMetadata parses both property set streams. A missing stream is
// not an error; only a present-but-unparseable stream is.
func (me *MetadataExtractor) ExtractMetadata() (*DocumentMetadata, error) {
	md := &DocumentMetadata{CustomProperties: make(map[string]string)}

	for _, name := range []string{summaryInformationStream, docSummaryInformationStream} {
		data, err := me.reader.ReadStream(name)
		if err != nil {
			continue
		}
		if err := applyPropertySet(md, data); err != nil {
			return nil, fmt.Errorf("metadata: failed to parse %q: %w", strings.TrimPrefix(name, "\x05"), err)
		}
	}
	return md, nil
}

// applyPropertySet decodes one property set stream and folds each
// property into md. Times arrive as FILETIME values; everything else is
// folded through its string rendering.
func applyPropertySet(md *DocumentMetadata, data []byte) error {
	doc := msoleps.New()
	if err := doc.Reset(bytes.NewReader(data)); err != nil {
		return err
	}
	for _, prop := range doc.Property {
		if prop == nil || prop.T == nil {
			continue
		}
		if ft, ok := prop.T.(types.FileTime); ok {
			ticks := int64(ft.High)<<32 | int64(ft.Low)
			assignTime(md, prop.Name, ft.Time(), ticks)
			continue
		}
		assign(md, prop.Name, prop.T.String())
	}
	return nil
}

// normalizeName lowercases a property name and strips the separators
// different producers disagree on, so "Last Author", "last_author" and
// "LastAuthor" all land on the same key.
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case ' ', '_', '-', '/':
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}

// assignTime routes FILETIME-typed properties. The edit-time property
// abuses FILETIME as a duration in 100ns ticks rather than a date.
func assignTime(md *DocumentMetadata, name string, t time.Time, ticks int64) {
	switch normalizeName(name) {
	case "createdtm", "createtime", "created", "creationdate":
		md.Created = t
	case "lastsavedtm", "lastsavetime", "lastsaved", "modified":
		md.LastSaved = t
	case "lastprinted", "lastprinteddtm":
		md.LastPrinted = t
	case "edittime", "totaledittime":
		md.TotalEditTime = ticks / (60 * 10_000_000)
	default:
		if name != "" {
			md.CustomProperties[name] = t.Format(time.RFC3339)
		}
	}
}

// assign maps one decoded property onto its DocumentMetadata field.
// Properties without a dedicated field are kept as custom properties
// rather than dropped.
func assign(md *DocumentMetadata, name, value string) {
	switch normalizeName(name) {
	case "title":
		md.Title = value
	case "subject":
		md.Subject = value
	case "author", "creator":
		md.Author = value
	case "keywords":
		md.Keywords = value
	case "comments", "description":
		md.Comments = value
	case "template":
		md.Template = value
	case "lastauthor", "lastsavedby", "lastmodifiedby":
		md.LastAuthor = value
	case "revnumber", "revisionnumber", "revision":
		md.RevisionNumber = value
	case "appname", "applicationname", "application":
		md.ApplicationName = value
	case "pagecount", "pages":
		md.PageCount = int32Of(value)
	case "wordcount", "words":
		md.WordCount = int32Of(value)
	case "charcount", "characters":
		md.CharCount = int32Of(value)
	case "linecount", "lines":
		md.LineCount = int32Of(value)
	case "paracount", "paragraphcount", "paragraphs":
		md.ParagraphCount = int32Of(value)
	case "security":
		md.Security = int32Of(value)
	case "company":
		md.Company = value
	case "manager":
		md.Manager = value
	case "category":
		md.Category = value
	case "contenttype":
		md.ContentType = value
	case "contentstatus":
		md.ContentStatus = value
	case "hyperlinkbase", "linkbase":
		md.HyperLinkBase = value
	case "language", "langid":
		md.Language = int32Of(value)
	default:
		if name != "" {
			md.CustomProperties[name] = value
		}
	}
}

func int32Of(value string) int32 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}
