// Package sprm decodes SPRM ("Single Property Modifier") opcode streams:
// variable-length records whose operand width is determined by a 3-bit
// size code packed into the high bits of the opcode.
package sprm

import "github.com/TalentFormula/msdoc/binutil"

// Operation classifies an SPRM by its size code.
type Operation int

const (
	OpToggle Operation = iota // size code 0 - no operand beyond 1 byte
	OpByte                    // size code 1 - 1 byte operand
	OpWord                    // size code 2 - 2 byte operand
	OpDWord                   // size code 3 - 4 byte operand
	OpWord2                   // size code 4 - 2 byte operand
	OpWord3                   // size code 5 - 2 byte operand
	OpVariable                // size code 6 - length-prefixed operand
	OpThreeByte               // size code 7 - 3 byte operand
)

// operandWidth maps size code -> fixed operand width in bytes; -1 means
// "variable, determined at parse time" (size code 6 only). Encoded as a
// table rather than a chain of conditionals per the format's own
// specification of the rule.
var operandWidth = [8]int{
	0: 1, // Toggle
	1: 1, // Byte
	2: 2, // Word
	3: 4, // DWord
	4: 2, // Word2
	5: 2, // Word3
	6: -1,
	7: 3, // ThreeByte
}

func operationFromSizeCode(code uint8) Operation {
	return Operation(code)
}

// longSprmOpcodes carries a 2-byte length instead of the usual 1-byte
// length for size-code-6 (variable) SPRMs: the long paragraph and long
// table property modifiers.
var longSprmOpcodes = map[uint16]bool{
	0xc615: true,
	0xd608: true,
}

// Sprm is one decoded property-modifier record.
type Sprm struct {
	Opcode    uint16
	Operation Operation
	Operand   []byte
}

func (s Sprm) OperandByte() (uint8, bool) {
	if len(s.Operand) < 1 {
		return 0, false
	}
	return s.Operand[0], true
}

func (s Sprm) OperandWord() (uint16, bool) {
	v, err := binutil.ReadU16LE(s.Operand, 0)
	return v, err == nil
}

func (s Sprm) OperandI16() (int16, bool) {
	v, err := binutil.ReadI16LE(s.Operand, 0)
	return v, err == nil
}

func (s Sprm) OperandDWord() (uint32, bool) {
	v, err := binutil.ReadU32LE(s.Operand, 0)
	return v, err == nil
}

// Parse decodes a buffer of concatenated 2-byte-opcode SPRMs. It stops,
// without error, on a short trailing record: malformed tails are
// tolerated rather than rejected, matching the source format's own
// forgiving behavior.
func Parse(grpprl []byte) []Sprm {
	var out []Sprm
	offset := 0

	for offset+2 <= len(grpprl) {
		opcode, err := binutil.ReadU16LE(grpprl, offset)
		if err != nil {
			break
		}
		offset += 2

		sizeCode := uint8((opcode & 0xe000) >> 13)
		operation := operationFromSizeCode(sizeCode)

		var operandSize int
		switch sizeCode {
		case 6:
			if offset >= len(grpprl) {
				return out
			}
			if longSprmOpcodes[opcode] {
				if offset+2 > len(grpprl) {
					return out
				}
				n, err := binutil.ReadU16LE(grpprl, offset)
				if err != nil {
					return out
				}
				operandSize = int(n)
				offset += 2
			} else {
				operandSize = int(grpprl[offset])
				offset++
			}
		default:
			operandSize = operandWidth[sizeCode]
		}

		if offset+operandSize > len(grpprl) {
			break
		}
		operand := make([]byte, operandSize)
		copy(operand, grpprl[offset:offset+operandSize])
		offset += operandSize

		out = append(out, Sprm{Opcode: opcode, Operation: operation, Operand: operand})
	}

	return out
}

// Find returns the first SPRM with the given opcode.
func Find(sprms []Sprm, opcode uint16) (Sprm, bool) {
	for _, s := range sprms {
		if s.Opcode == opcode {
			return s, true
		}
	}
	return Sprm{}, false
}

// Bool coerces an SPRM's operand to a boolean (non-zero first byte).
func Bool(s Sprm) bool {
	b, _ := s.OperandByte()
	return b != 0
}

// Int coerces an SPRM's operand to an int according to its operation
// type, mirroring the source format's per-size-code coercion rules.
func Int(s Sprm) (int32, bool) {
	switch s.Operation {
	case OpByte, OpToggle:
		b, ok := s.OperandByte()
		return int32(b), ok
	case OpWord, OpWord2, OpWord3:
		v, ok := s.OperandI16()
		return int32(v), ok
	case OpDWord:
		v, ok := s.OperandDWord()
		return int32(v), ok
	default:
		return 0, false
	}
}
