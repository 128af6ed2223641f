package analysis

import (
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"

	"objgraph/internal/disasm"
	"objgraph/internal/objdump"
	"objgraph/internal/rebase"
)

// LoadStats describes a completed Store.Load.
type LoadStats struct {
	objdump.Stats
	Duplicates int // records that replaced an earlier record at the same address
}

// Store maps dump-space addresses to the instruction text of one dump. It is
// replaced wholesale by Load and never partially mutated.
type Store struct {
	insts map[uint32]disasm.Inst
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{insts: make(map[uint32]disasm.Inst)}
}

// Load parses a dump and swaps it in. On error the store keeps its previous
// contents.
func (s *Store) Load(r io.Reader) (LoadStats, error) {
	stream, stats, err := objdump.Parse(r)
	ls := LoadStats{Stats: stats}
	if err != nil {
		return ls, err
	}
	if len(stream) == 0 {
		return ls, fmt.Errorf("%w (%d lines read)", ErrEmptyDump, stats.Lines)
	}

	insts := make(map[uint32]disasm.Inst, len(stream))
	for _, inst := range stream {
		if _, ok := insts[inst.VA]; ok {
			ls.Duplicates++
		}
		insts[inst.VA] = inst
	}

	s.insts = insts
	return ls, nil
}

// Lookup returns the instruction at an analysis-space address.
func (s *Store) Lookup(addr uint32) (disasm.Inst, bool) {
	inst, ok := s.insts[rebase.Up(addr)]
	return inst, ok
}

// Len returns the number of instructions held.
func (s *Store) Len() int {
	return len(s.insts)
}

// All yields every instruction in dump order, keyed by its analysis-space
// address.
func (s *Store) All() iter.Seq2[uint32, disasm.Inst] {
	return func(yield func(uint32, disasm.Inst) bool) {
		for _, va := range slices.Sorted(maps.Keys(s.insts)) {
			if !yield(rebase.Down(va), s.insts[va]) {
				return
			}
		}
	}
}
