package elfx

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"objgraph/internal/rebase"
)

type testSym struct {
	name  string
	value uint32
	size  uint32
	info  byte
	other byte
	shndx uint16
}

// buildELF32 assembles a little-endian ELF32 image with .text, .symtab,
// .strtab and .shstrtab sections.
func buildELF32(t *testing.T, textVA uint32, syms []testSym) []byte {
	t.Helper()
	le := binary.LittleEndian

	text := make([]byte, 16)

	strtab := []byte{0}
	var symtab bytes.Buffer
	symtab.Write(make([]byte, 16)) // null symbol
	for _, s := range syms {
		nameOff := uint32(len(strtab))
		strtab = append(strtab, s.name...)
		strtab = append(strtab, 0)
		binary.Write(&symtab, le, struct {
			Name, Value, Size uint32
			Info, Other       byte
			Shndx             uint16
		}{nameOff, s.value, s.size, s.info, s.other, s.shndx})
	}

	shstrtab := []byte("\x00.text\x00.symtab\x00.strtab\x00.shstrtab\x00")
	nameText, nameSymtab, nameStrtab, nameShstrtab := uint32(1), uint32(7), uint32(15), uint32(23)

	const ehsize = 52
	offText := uint32(ehsize)
	offSymtab := offText + uint32(len(text))
	offStrtab := offSymtab + uint32(symtab.Len())
	offShstrtab := offStrtab + uint32(len(strtab))
	offSh := (offShstrtab + uint32(len(shstrtab)) + 3) &^ 3

	var out bytes.Buffer
	ident := [16]byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS32), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)}
	out.Write(ident[:])
	binary.Write(&out, le, struct {
		Type, Machine                           uint16
		Version, Entry, Phoff, Shoff, Flags     uint32
		Ehsize, Phentsize, Phnum                uint16
		Shentsize, Shnum, Shstrndx              uint16
	}{uint16(elf.ET_EXEC), uint16(elf.EM_OPENRISC), 1, textVA, 0, offSh, 0, ehsize, 32, 0, 40, 5, 4})

	out.Write(text)
	out.Write(symtab.Bytes())
	out.Write(strtab)
	out.Write(shstrtab)
	for uint32(out.Len()) < offSh {
		out.WriteByte(0)
	}

	type shdr struct {
		Name, Type, Flags, Addr, Off, Size, Link, Info, Addralign, Entsize uint32
	}
	headers := []shdr{
		{},
		{nameText, uint32(elf.SHT_PROGBITS), uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR), textVA, offText, uint32(len(text)), 0, 0, 4, 0},
		{nameSymtab, uint32(elf.SHT_SYMTAB), 0, 0, offSymtab, uint32(symtab.Len()), 3, 1, 4, 16},
		{nameStrtab, uint32(elf.SHT_STRTAB), 0, 0, offStrtab, uint32(len(strtab)), 0, 0, 1, 0},
		{nameShstrtab, uint32(elf.SHT_STRTAB), 0, 0, offShstrtab, uint32(len(shstrtab)), 0, 0, 1, 0},
	}
	for _, h := range headers {
		binary.Write(&out, le, h)
	}
	return out.Bytes()
}

func info(bind elf.SymBind, typ elf.SymType) byte {
	return byte(bind)<<4 | byte(typ)
}

func TestFuncSymbols(t *testing.T) {
	img := buildELF32(t, 0x40007154, []testSym{
		{name: "helper", value: 0x40007300, size: 64, info: info(elf.STB_LOCAL, elf.STT_FUNC), shndx: 1},
		{name: "encrypt", value: 0x40007154, size: 184, info: info(elf.STB_GLOBAL, elf.STT_FUNC), shndx: 1},
		{name: "hidden_fn", value: 0x40007400, size: 32, info: info(elf.STB_GLOBAL, elf.STT_FUNC), other: byte(elf.STV_HIDDEN), shndx: 1},
		{name: "memcpy", info: info(elf.STB_GLOBAL, elf.STT_FUNC), shndx: uint16(elf.SHN_UNDEF)},
		{name: "key_table", value: 0x40008000, size: 4, info: info(elf.STB_GLOBAL, elf.STT_OBJECT), shndx: 1},
		{name: "decrypt", value: 0x40007240, size: 96, info: info(elf.STB_GLOBAL, elf.STT_FUNC), shndx: 1},
	})

	path := filepath.Join(t.TempDir(), "firmware.elf")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		t.Fatal(err)
	}

	im, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer im.Close()

	if im.Text.VA != 0x40007154 || !im.InText(0x40007158) || im.InText(0x40008000) {
		t.Errorf("Text = %+v", im.Text)
	}

	syms, err := im.FuncSymbols()
	if err != nil {
		t.Fatalf("FuncSymbols() error = %v", err)
	}
	if len(syms) != 2 {
		t.Fatalf("FuncSymbols() = %+v, want encrypt and decrypt", syms)
	}
	if syms[0].Name != "encrypt" || syms[0].VA != rebase.Down(0x40007154) || syms[0].Size != 184 {
		t.Errorf("syms[0] = %+v", syms[0])
	}
	if syms[1].Name != "decrypt" || syms[1].DumpVA != 0x40007240 {
		t.Errorf("syms[1] = %+v", syms[1])
	}
}

func TestOpenNotELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firmware.diss")
	if err := os.WriteFile(path, []byte("40007154:\t01 02 03 04\tret\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("Open() succeeded on a text file")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Open() succeeded on a missing file")
	}
}
