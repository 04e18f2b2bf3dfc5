// Package macros extracts VBA projects from a .doc file's Macros
// storage: the dir stream's record list, module metadata, and the
// MS-OVBA compressed-container encoding of module source code.
package macros

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TalentFormula/msdoc/binutil"
	"github.com/TalentFormula/msdoc/ole2"
)

// VBAProject represents a VBA project contained in the document.
type VBAProject struct {
	Name        string
	Description string
	HelpFile    string
	Modules     map[string]*Module
	References  []*Reference
	Protected   bool
}

// Module is one VBA module (code, class, or form module).
type Module struct {
	Name       string
	Type       ModuleType
	Code       string
	Compressed bool
	StreamName string
	Offset     uint32 // start of the compressed source within the stream
}

// Reference is an external library reference declared by the project.
type Reference struct {
	Name string
	Path string
}

// ModuleType classifies a VBA module.
type ModuleType int

const (
	ModuleStandard ModuleType = iota
	ModuleClass
	ModuleForm
	ModuleDocument
)

func (mt ModuleType) String() string {
	switch mt {
	case ModuleStandard:
		return "Standard"
	case ModuleClass:
		return "Class"
	case ModuleForm:
		return "Form"
	case ModuleDocument:
		return "Document"
	default:
		return "Unknown"
	}
}

// dir stream record ids (MS-OVBA).
const (
	recProjectName     = 0x0004
	recProjectDocStr   = 0x0005
	recProjectHelpFile = 0x0006
	recProjectProtect  = 0x0011
	recReferenceName   = 0x0016
	recModuleName      = 0x0019
	recModuleStream    = 0x001A
	recModuleDocModule = 0x0021
	recModuleClass     = 0x0022
	recModuleOffset    = 0x0031
	recReferencePath   = 0x000D
	recTerminator      = 0x0010
)

// MacroExtractor reads the VBA project out of one document.
type MacroExtractor struct {
	reader *ole2.Reader
}

// NewMacroExtractor creates a macro extractor over the given OLE2
// reader.
func NewMacroExtractor(reader *ole2.Reader) *MacroExtractor {
	return &MacroExtractor{reader: reader}
}

// HasMacros reports whether the document carries a VBA project.
func (me *MacroExtractor) HasMacros() bool {
	for _, name := range []string{"dir", "Macros", "_VBA_PROJECT"} {
		if _, err := me.reader.ReadStream(name); err == nil {
			return true
		}
	}
	return false
}

// ExtractProject extracts the complete VBA project.
func (me *MacroExtractor) ExtractProject() (*VBAProject, error) {
	dirData, err := me.readDirStream()
	if err != nil {
		return nil, err
	}

	project := &VBAProject{
		Modules:    make(map[string]*Module),
		References: make([]*Reference, 0),
	}
	if err := parseDirStream(project, dirData); err != nil {
		return nil, fmt.Errorf("macros: failed to parse dir stream: %w", err)
	}

	for _, module := range project.Modules {
		if err := me.extractModuleCode(module); err != nil {
			return nil, fmt.Errorf("macros: failed to extract module %s: %w", module.Name, err)
		}
	}
	return project, nil
}

// readDirStream loads and, when necessary, decompresses the project
// dir stream.
func (me *MacroExtractor) readDirStream() ([]byte, error) {
	data, err := me.reader.ReadStream("dir")
	if err != nil {
		data, err = me.reader.ReadStream("_VBA_PROJECT")
		if err != nil {
			return nil, errors.New("macros: document does not contain a VBA project")
		}
	}
	if len(data) > 0 && data[0] == 0x01 {
		if dec, err := DecompressContainer(data); err == nil {
			return dec, nil
		}
		// A leading 0x01 that is not a valid container: fall through and
		// parse the raw bytes.
	}
	return data, nil
}

// parseDirStream walks the dir stream's id/size/data records, building
// modules as their name records appear.
func parseDirStream(project *VBAProject, data []byte) error {
	c := binutil.NewCursor(data)
	var current *Module

	for c.Remaining() >= 6 {
		id, err := c.U16()
		if err != nil {
			break
		}
		size, err := c.U32()
		if err != nil {
			return err
		}
		if int(size) > c.Remaining() {
			// Truncated trailing record; keep what was parsed so far.
			break
		}
		payload, err := c.Bytes(int(size))
		if err != nil {
			return err
		}

		switch id {
		case recProjectName:
			project.Name = string(payload)
		case recProjectDocStr:
			project.Description = string(payload)
		case recProjectHelpFile:
			project.HelpFile = string(payload)
		case recProjectProtect:
			project.Protected = len(payload) >= 4 && payload[0] != 0
		case recReferenceName:
			project.References = append(project.References, &Reference{Name: string(payload)})
		case recReferencePath:
			if n := len(project.References); n > 0 {
				project.References[n-1].Path = string(payload)
			}
		case recModuleName:
			current = &Module{Name: string(payload), Type: ModuleStandard}
			project.Modules[current.Name] = current
		case recModuleStream:
			if current != nil {
				current.StreamName = string(payload)
			}
		case recModuleDocModule:
			if current != nil {
				current.Type = ModuleDocument
			}
		case recModuleClass:
			if current != nil {
				current.Type = ModuleClass
			}
		case recModuleOffset:
			if current != nil && len(payload) >= 4 {
				v, _ := binutil.ReadU32LE(payload, 0)
				current.Offset = v
			}
		case recTerminator:
			return nil
		}
	}
	return nil
}

// extractModuleCode reads a module's stream and decompresses the source
// starting at the recorded offset.
func (me *MacroExtractor) extractModuleCode(module *Module) error {
	streamName := module.StreamName
	if streamName == "" {
		streamName = module.Name
	}

	streamData, err := me.reader.ReadStream(streamName)
	if err != nil {
		return fmt.Errorf("failed to read module stream %q: %w", streamName, err)
	}
	if uint32(len(streamData)) <= module.Offset {
		return fmt.Errorf("stream %q too short for module offset %d", streamName, module.Offset)
	}

	codeData := streamData[module.Offset:]
	if len(codeData) > 0 && codeData[0] == 0x01 {
		module.Compressed = true
		decompressed, err := DecompressContainer(codeData)
		if err != nil {
			return fmt.Errorf("failed to decompress module source: %w", err)
		}
		module.Code = string(decompressed)
		return nil
	}

	module.Compressed = false
	module.Code = string(codeData)
	return nil
}

const chunkSize = 4096

// DecompressContainer decodes an MS-OVBA CompressedContainer: a 0x01
// signature byte followed by a sequence of chunks, each a 2-byte header
// (size, 0b011 signature, compressed flag) and either 4096 literal
// bytes or token sequences of literals and back-copy references.
func DecompressContainer(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] != 0x01 {
		return nil, errors.New("macros: not a compressed container")
	}

	var out []byte
	pos := 1
	for pos+2 <= len(data) {
		hdr := uint16(data[pos]) | uint16(data[pos+1])<<8
		if hdr&0x7000 != 0x3000 {
			return nil, fmt.Errorf("macros: bad chunk signature at offset %d", pos)
		}
		total := int(hdr&0x0FFF) + 3 // chunk bytes including the header
		compressed := hdr&0x8000 != 0
		chunkEnd := pos + total
		if chunkEnd > len(data) {
			chunkEnd = len(data)
		}
		body := data[pos+2 : chunkEnd]

		if !compressed {
			out = append(out, body...)
			pos = chunkEnd
			continue
		}

		chunkStart := len(out)
		i := 0
		for i < len(body) && len(out)-chunkStart < chunkSize {
			flags := body[i]
			i++
			for bit := 0; bit < 8 && i < len(body); bit++ {
				if flags&(1<<bit) == 0 {
					out = append(out, body[i])
					i++
					continue
				}
				if i+2 > len(body) {
					return nil, errors.New("macros: truncated copy token")
				}
				token := uint16(body[i]) | uint16(body[i+1])<<8
				i += 2

				// The offset/length split widens as the chunk fills.
				written := len(out) - chunkStart
				bitCount := 4
				for (1 << bitCount) < written {
					bitCount++
				}
				lengthBits := 16 - bitCount
				offset := int(token>>lengthBits) + 1
				length := int(token&(1<<lengthBits-1)) + 3

				if offset > len(out)-chunkStart {
					return nil, fmt.Errorf("macros: copy offset %d exceeds chunk output", offset)
				}
				for j := 0; j < length; j++ {
					out = append(out, out[len(out)-offset])
				}
			}
		}
		pos = chunkEnd
	}
	return out, nil
}

// GetModuleCode returns the source for a named module.
func (project *VBAProject) GetModuleCode(moduleName string) (string, bool) {
	module, ok := project.Modules[moduleName]
	if !ok {
		return "", false
	}
	return module.Code, true
}

// GetAllModuleNames returns the names of every module in the project.
func (project *VBAProject) GetAllModuleNames() []string {
	names := make([]string, 0, len(project.Modules))
	for name := range project.Modules {
		names = append(names, name)
	}
	return names
}

// HasMacroFunctions reports whether any module declares a Sub or
// Function.
func (project *VBAProject) HasMacroFunctions() bool {
	for _, module := range project.Modules {
		if strings.Contains(module.Code, "Sub ") ||
			strings.Contains(module.Code, "Function ") {
			return true
		}
	}
	return false
}

// GetModulesByType returns every module of the given type.
func (project *VBAProject) GetModulesByType(moduleType ModuleType) []*Module {
	var modules []*Module
	for _, module := range project.Modules {
		if module.Type == moduleType {
			modules = append(modules, module)
		}
	}
	return modules
}
