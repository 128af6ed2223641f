package analysis

import (
	"fmt"
	"io"
	"iter"

	"objgraph/internal/disasm"
	"objgraph/internal/readelf"
)

// Session holds the loaded dump and symbol table for one analysis, along with
// the decoder built over them. A Session is not safe for concurrent use;
// reloads must not overlap Decode or Tokens calls.
type Session struct {
	store   *Store
	decoder *Decoder
	rules   *RuleSet
	names   *Demangler

	symbols []disasm.Symbol
	byAddr  map[uint32]int
}

// NewSession creates a session that classifies control flow with rules.
func NewSession(rules *RuleSet) *Session {
	if rules == nil {
		rules = NewRuleSet()
	}
	store := NewStore()
	return &Session{
		store:   store,
		decoder: NewDecoder(store, rules),
		rules:   rules,
		names:   NewDemangler(),
		byAddr:  make(map[uint32]int),
	}
}

// Store returns the session's instruction store.
func (s *Session) Store() *Store { return s.store }

// Rules returns the session's control-flow rules.
func (s *Session) Rules() *RuleSet { return s.rules }

// LoadDump replaces the session's instructions with those parsed from r.
func (s *Session) LoadDump(r io.Reader) (LoadStats, error) {
	stats, err := s.store.Load(r)
	if err != nil {
		return stats, fmt.Errorf("load dump: %w", err)
	}
	return stats, nil
}

// LoadSymbols replaces the session's symbols with the functions parsed from a
// readelf listing.
func (s *Session) LoadSymbols(r io.Reader) (readelf.Stats, error) {
	syms, stats, err := readelf.Parse(r)
	if err != nil {
		return stats, fmt.Errorf("load symbols: %w", err)
	}
	if err := s.SetSymbols(syms); err != nil {
		return stats, fmt.Errorf("load symbols (%d lines read): %w", stats.Lines, err)
	}
	return stats, nil
}

// SetSymbols replaces the session's symbols. An empty table is rejected and
// the previous symbols are kept.
func (s *Session) SetSymbols(syms []disasm.Symbol) error {
	if len(syms) == 0 {
		return ErrEmptySymbols
	}
	byAddr := make(map[uint32]int, len(syms))
	for i, sym := range syms {
		byAddr[sym.VA] = i
	}
	s.symbols = syms
	s.byAddr = byAddr
	return nil
}

// Symbols returns the loaded function symbols in table order.
func (s *Session) Symbols() []disasm.Symbol {
	return s.symbols
}

// SymbolAt returns the function symbol starting at an analysis address.
func (s *Session) SymbolAt(addr uint32) (disasm.Symbol, bool) {
	i, ok := s.byAddr[addr]
	if !ok {
		return disasm.Symbol{}, false
	}
	return s.symbols[i], true
}

// DisplayName returns the demangled name of sym.
func (s *Session) DisplayName(sym disasm.Symbol) string {
	return s.names.Demangle(sym.Name)
}

// Demangler returns the session's name cache.
func (s *Session) Demangler() *Demangler { return s.names }

// Demangle returns the display form of a raw symbol name.
func (s *Session) Demangle(name string) string { return s.names.Demangle(name) }

// Decode decodes the instruction at an analysis-space address.
func (s *Session) Decode(addr uint32) (disasm.Info, error) {
	return s.decoder.Decode(addr)
}

// Tokens returns the display tokens of the instruction at an analysis-space
// address.
func (s *Session) Tokens(addr uint32) (iter.Seq[disasm.Token], error) {
	inst, ok := s.store.Lookup(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %#x", ErrDecodeNotFound, addr)
	}
	return Tokenize(inst.Text), nil
}

// Recover declares and names a function for every loaded symbol.
func (s *Session) Recover(declare DeclareFunc) (int, error) {
	return Recover(s.symbols, declare)
}

// DeclareEntry declares the function at the firmware entry point. When a
// symbol already covers addr its name is used, otherwise name.
func (s *Session) DeclareEntry(addr uint32, name string, declare DeclareFunc) error {
	if sym, ok := s.SymbolAt(addr); ok {
		name = sym.Name
	}
	_, err := Recover([]disasm.Symbol{{VA: addr, Name: name}}, declare)
	return err
}
