// Package msdoc provides a high-level facade for reading Microsoft Word
// .doc files (Word 97-2003 binary format).
//
// This package is the public collaborator that the binary-format core
// (ole2, doc/fib, doc/piece, doc/chp, doc/fields, formula/mtef, ...) was
// built for: it wires OLE2 stream access, FIB parsing, the piece table,
// and the character-run decoder into a single Document value, and adds
// the non-core conveniences (embedded objects, VBA macros, metadata,
// decryption) the core leaves to its callers.
//
// Basic usage:
//
//	doc, err := msdoc.Open("document.doc")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer doc.Close()
//
//	text, err := doc.Text()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(text)
//
// Reading encrypted documents:
//
//	doc, err := msdoc.OpenWithPassword("encrypted.doc", "password123")
package msdoc

import (
	"fmt"
	"os"

	"github.com/TalentFormula/msdoc/crypto"
	"github.com/TalentFormula/msdoc/doc/chp"
	"github.com/TalentFormula/msdoc/doc/fib"
	"github.com/TalentFormula/msdoc/doc/fields"
	"github.com/TalentFormula/msdoc/doc/pap"
	"github.com/TalentFormula/msdoc/doc/piece"
	"github.com/TalentFormula/msdoc/doc/sep"
	"github.com/TalentFormula/msdoc/formula/ast"
	"github.com/TalentFormula/msdoc/formula/mtef"
	"github.com/TalentFormula/msdoc/macros"
	"github.com/TalentFormula/msdoc/metadata"
	"github.com/TalentFormula/msdoc/objects"
	"github.com/TalentFormula/msdoc/ole2"
)

// Document represents a loaded Microsoft Word .doc file.
type Document struct {
	file      *os.File
	reader    *ole2.Reader
	fib       *fib.FileInformationBlock
	password  string
	decryptor *crypto.RC4

	objectPool        *objects.ObjectPool
	macroExtractor    *macros.MacroExtractor
	metadataExtractor *metadata.MetadataExtractor

	pieces   *piece.Table
	chars    *chp.Table
	fields   *fields.Table
	paras    *pap.Table
	sections *sep.Table
}

// Metadata holds comprehensive document metadata. Alias for
// metadata.DocumentMetadata for convenience.
type Metadata = metadata.DocumentMetadata

// EmbeddedObject represents an object embedded in the document. Alias
// for objects.EmbeddedObject.
type EmbeddedObject = objects.EmbeddedObject

// VBAProject represents a VBA project contained in the document. Alias
// for macros.VBAProject.
type VBAProject = macros.VBAProject

// TextRun is a run of text sharing one set of character properties.
type TextRun struct {
	Text      string
	StartCP   uint32
	EndCP     uint32
	CharProps chp.CharacterProperties
}

// Open reads and parses the given .doc file.
func Open(filename string) (*Document, error) {
	return openWithPassword(filename, "")
}

// OpenWithPassword opens an encrypted .doc file with the provided password.
func OpenWithPassword(filename, password string) (*Document, error) {
	return openWithPassword(filename, password)
}

func openWithPassword(filename, password string) (*Document, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filename, err)
	}

	oleReader, err := ole2.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create OLE2 reader: %w", err)
	}

	wordDocumentStream, err := oleReader.ReadStream("WordDocument")
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("could not find WordDocument stream: %w", err)
	}

	fibValue, err := fib.Parse(wordDocumentStream)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to parse FIB: %w", err)
	}

	doc := &Document{
		file:     file,
		reader:   oleReader,
		fib:      fibValue,
		password: password,
	}

	doc.objectPool = objects.NewObjectPool(oleReader)
	doc.macroExtractor = macros.NewMacroExtractor(oleReader)
	doc.metadataExtractor = metadata.NewMetadataExtractor(oleReader)

	if fibValue.IsEncrypted() {
		if password == "" {
			return nil, fmt.Errorf("document is encrypted but no password provided")
		}
		if err := doc.setupDecryption(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to setup decryption: %w", err)
		}
	}

	return doc, nil
}

func (d *Document) setupDecryption() error {
	tableStreamName := d.fib.TableStreamName()
	tableStream, err := d.reader.ReadStream(tableStreamName)
	if err != nil {
		return fmt.Errorf("failed to read table stream %s: %w", tableStreamName, err)
	}

	encHeader, err := crypto.ParseEncryptionHeader(tableStream)
	if err != nil {
		return fmt.Errorf("failed to parse encryption header: %w", err)
	}

	decryptor, err := encHeader.CreateDecryptionCipher(d.password)
	if err != nil {
		return fmt.Errorf("failed to create decryption cipher: %w", err)
	}

	d.decryptor = decryptor
	return nil
}

// Close closes the underlying .doc file. Safe to call multiple times.
func (d *Document) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// IsEncrypted returns true if the document is encrypted.
func (d *Document) IsEncrypted() bool {
	return d.fib.IsEncrypted()
}

// HasMacros returns true if the document contains VBA macros.
func (d *Document) HasMacros() bool {
	return d.macroExtractor.HasMacros()
}

// HasEmbeddedObjects returns true if the document contains embedded objects.
func (d *Document) HasEmbeddedObjects() bool {
	if err := d.objectPool.LoadObjects(); err != nil {
		return false
	}
	return len(d.objectPool.GetAllObjects()) > 0
}

// GetEmbeddedObjects returns all embedded objects in the document.
func (d *Document) GetEmbeddedObjects() (map[uint32]*EmbeddedObject, error) {
	if err := d.objectPool.LoadObjects(); err != nil {
		return nil, fmt.Errorf("failed to load embedded objects: %w", err)
	}
	return d.objectPool.GetAllObjects(), nil
}

// GetEmbeddedObject returns a specific embedded object by position.
func (d *Document) GetEmbeddedObject(position uint32) (*EmbeddedObject, error) {
	if err := d.objectPool.LoadObjects(); err != nil {
		return nil, fmt.Errorf("failed to load embedded objects: %w", err)
	}
	return d.objectPool.ExtractObject(position)
}

// GetEquations parses every embedded MathType equation object into a
// math AST, interning strings in a fresh arena that it returns. Objects
// the object pool classified as equations whose data isn't a
// recognizable MTEF blob are skipped rather than erroring
// the whole document, matching the best-effort-per-unit extraction
// model.
func (d *Document) GetEquations() (*ast.Arena, map[uint32][]ast.MathNode, error) {
	if err := d.objectPool.LoadObjects(); err != nil {
		return nil, nil, fmt.Errorf("failed to load embedded objects: %w", err)
	}

	arena := ast.NewArena()
	equations := make(map[uint32][]ast.MathNode)
	for pos, obj := range d.objectPool.GetAllObjects() {
		if obj.Type != objects.ObjectTypeEquation {
			continue
		}
		nodes, err := mtef.Parse(obj.Data, arena)
		if err != nil {
			continue
		}
		equations[pos] = nodes
	}
	return arena, equations, nil
}

// GetParagraphs returns the document's paragraphs in CP order with
// their decoded properties (style index, justification, indents, table
// membership).
func (d *Document) GetParagraphs() ([]pap.Paragraph, error) {
	wordDocument, err := d.reader.ReadStream("WordDocument")
	if err != nil {
		return nil, fmt.Errorf("failed to read WordDocument stream: %w", err)
	}
	table, err := d.paragraphTable(wordDocument)
	if err != nil {
		return nil, err
	}
	return table.Paragraphs, nil
}

// GetSections returns the document's sections in CP order with their
// page geometry and column layout.
func (d *Document) GetSections() ([]sep.Section, error) {
	wordDocument, err := d.reader.ReadStream("WordDocument")
	if err != nil {
		return nil, fmt.Errorf("failed to read WordDocument stream: %w", err)
	}
	table, err := d.sectionTable(wordDocument)
	if err != nil {
		return nil, err
	}
	return table.Sections, nil
}

// GetVBAProject extracts the VBA project from the document.
func (d *Document) GetVBAProject() (*VBAProject, error) {
	return d.macroExtractor.ExtractProject()
}

// GetVBACode returns the VBA code for a specific module.
func (d *Document) GetVBACode(moduleName string) (string, error) {
	project, err := d.GetVBAProject()
	if err != nil {
		return "", err
	}

	code, exists := project.GetModuleCode(moduleName)
	if !exists {
		return "", fmt.Errorf("module %s not found", moduleName)
	}

	return code, nil
}

// GetAllVBAModules returns the names of all VBA modules in the document.
func (d *Document) GetAllVBAModules() ([]string, error) {
	project, err := d.GetVBAProject()
	if err != nil {
		return nil, err
	}

	return project.GetAllModuleNames(), nil
}

// Metadata extracts document metadata (title, author, timestamps, ...).
// Never returns an error: a failed extraction yields a zero-value
// Metadata rather than surfacing partial state.
func (d *Document) Metadata() *Metadata {
	md, err := d.metadataExtractor.ExtractMetadata()
	if err != nil {
		return &Metadata{}
	}
	return md
}
