// Package elfx opens firmware ELF images and extracts the function symbols a
// readelf listing would show, as an alternative to parsing readelf output.
package elfx

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"

	"objgraph/internal/disasm"
	"objgraph/internal/rebase"
)

type Image struct {
	Path  string
	File  *elf.File
	Loads []Seg
	Text  Section
	f     *os.File
}

type Seg struct {
	Vaddr, Off, Filesz uint64
	Flags              elf.ProgFlag
}

type Section struct {
	Name          string
	VA, Off, Size uint64
}

// Open opens the ELF image at path.
func Open(path string) (*Image, error) {
	of, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	im, err := NewImage(of)
	if err != nil {
		of.Close()
		return nil, err
	}
	im.Path = path
	im.f = of
	return im, nil
}

// NewImage reads an ELF image from r. The caller keeps ownership of r.
func NewImage(r io.ReaderAt) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}

	im := &Image{File: f}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  p.Vaddr,
			Off:    p.Off,
			Filesz: p.Filesz,
			Flags:  p.Flags,
		})
	}

	if s := f.Section(".text"); s != nil {
		im.Text = Section{s.Name, s.Addr, s.Offset, s.Size}
	} else {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
				im.Text = Section{"LOAD(exec)", l.Vaddr, l.Off, l.Filesz}
				break
			}
		}
	}
	return im, nil
}

// Close closes the underlying files.
func (im *Image) Close() error {
	var err error
	if im.File != nil {
		err = im.File.Close()
		im.File = nil
	}
	if im.f != nil {
		if err2 := im.f.Close(); err == nil {
			err = err2
		}
		im.f = nil
	}
	return err
}

// InText reports whether a dump-space address lies in the code section.
func (im *Image) InText(va uint64) bool {
	return im.Text.Size != 0 && va >= im.Text.VA && va < im.Text.VA+im.Text.Size
}

// FuncSymbols returns the global, default-visibility, defined functions of
// the static symbol table, falling back to the dynamic one for stripped
// images. Addresses are rebased into analysis space.
func (im *Image) FuncSymbols() ([]disasm.Symbol, error) {
	syms, err := im.File.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		syms, err = im.File.DynamicSymbols()
	}
	if err != nil {
		return nil, fmt.Errorf("read symbols: %w", err)
	}

	var out []disasm.Symbol
	index := make(map[uint32]int)
	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC ||
			elf.ST_BIND(sym.Info) != elf.STB_GLOBAL ||
			elf.ST_VISIBILITY(sym.Other) != elf.STV_DEFAULT ||
			sym.Section == elf.SHN_UNDEF || sym.Name == "" {
			continue
		}

		va, err := rebase.Checked(sym.Value, false)
		if err != nil {
			continue
		}
		s := disasm.Symbol{VA: va, DumpVA: uint32(sym.Value), Name: sym.Name, Size: sym.Size}
		if i, ok := index[va]; ok {
			out[i] = s
			continue
		}
		index[va] = len(out)
		out = append(out, s)
	}
	return out, nil
}
