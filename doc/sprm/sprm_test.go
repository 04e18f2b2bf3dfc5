package sprm

import "testing"

func TestParseTwoSprms(t *testing.T) {
	grpprl := []byte{
		0x35, 0x08, // opcode 0x0835, size code 1 (byte)
		0x01,
		0x43, 0x4A, // opcode 0x4A43, size code 2 (word)
		0x18, 0x00,
	}

	sprms := Parse(grpprl)
	if len(sprms) != 2 {
		t.Fatalf("len(sprms) = %d, want 2", len(sprms))
	}
	if sprms[0].Opcode != 0x0835 {
		t.Fatalf("sprms[0].Opcode = %#x, want 0x0835", sprms[0].Opcode)
	}
	if sprms[1].Opcode != 0x4A43 {
		t.Fatalf("sprms[1].Opcode = %#x, want 0x4A43", sprms[1].Opcode)
	}
	w, ok := sprms[1].OperandWord()
	if !ok || w != 24 {
		t.Fatalf("sprms[1].OperandWord() = %d, %v, want 24", w, ok)
	}
}

func TestParseSizeDiscipline(t *testing.T) {
	// one SPRM of every size code, each with a well-formed operand.
	grpprl := []byte{
		0x00, 0x00, 0x00, // size code 0 (toggle), 1-byte operand
		0x00, 0x20, 0x00, // size code 1 (byte), 1-byte operand
		0x00, 0x40, 0x00, 0x00, // size code 2 (word), 2-byte operand
		0x00, 0x60, 0x00, 0x00, 0x00, 0x00, // size code 3 (dword), 4-byte operand
		0x00, 0x80, 0x00, 0x00, // size code 4 (word2), 2-byte operand
		0x00, 0xA0, 0x00, 0x00, // size code 5 (word3), 2-byte operand
		0x00, 0xC0, 0x02, 0xAA, 0xBB, // size code 6 (variable), 1-byte length=2
		0x00, 0xE0, 0x00, 0x00, 0x00, // size code 7 (threebyte), 3-byte operand
	}
	sprms := Parse(grpprl)
	if len(sprms) != 8 {
		t.Fatalf("len(sprms) = %d, want 8", len(sprms))
	}
}

func TestParseLongSprm(t *testing.T) {
	grpprl := []byte{
		0x15, 0xc6, // opcode 0xc615, size code 6
		0x02, 0x00, // 2-byte length = 2
		0xAA, 0xBB,
	}
	sprms := Parse(grpprl)
	if len(sprms) != 1 {
		t.Fatalf("len(sprms) = %d, want 1", len(sprms))
	}
	if len(sprms[0].Operand) != 2 {
		t.Fatalf("len(Operand) = %d, want 2", len(sprms[0].Operand))
	}
}

func TestParseStopsOnShortTrailer(t *testing.T) {
	grpprl := []byte{0x35, 0x08} // opcode only, missing 1-byte operand
	sprms := Parse(grpprl)
	if len(sprms) != 0 {
		t.Fatalf("len(sprms) = %d, want 0", len(sprms))
	}
}

func TestFindAndCoerce(t *testing.T) {
	sprms := []Sprm{
		{Opcode: 0x0835, Operation: OpByte, Operand: []byte{1}},
		{Opcode: 0x4A43, Operation: OpWord, Operand: []byte{24, 0}},
	}
	bold, ok := Find(sprms, 0x0835)
	if !ok || !Bool(bold) {
		t.Fatal("expected bold SPRM found and true")
	}
	if _, ok := Find(sprms, 0xFFFF); ok {
		t.Fatal("expected no match for 0xFFFF")
	}
	size, ok := Find(sprms, 0x4A43)
	if !ok {
		t.Fatal("expected font size SPRM found")
	}
	v, ok := Int(size)
	if !ok || v != 24 {
		t.Fatalf("Int(size) = %d, %v, want 24", v, ok)
	}
}
