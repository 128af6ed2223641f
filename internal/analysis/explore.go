package analysis

import (
	"errors"
	"maps"
	"slices"

	"objgraph/internal/disasm"
)

// MaxExploreInstructions bounds a single Explore walk.
const MaxExploreInstructions = 4096

// InstDecoder decodes single instructions.
type InstDecoder interface {
	Decode(addr uint32) (disasm.Info, error)
}

// Line is one instruction reached by Explore.
type Line struct {
	Addr uint32
	Info disasm.Info
	Err  error // malformed operand, if any
}

// Walk is the result of exploring one function from its entry.
type Walk struct {
	Entry  uint32
	Lines  []Line          // address ordered
	Labels map[uint32]bool // entry and branch destinations
	Ends   []uint32        // addresses where the walk ran out of instructions
}

// Leader reports whether a basic block starts at addr.
func (w *Walk) Leader(addr uint32) bool {
	return w.Labels[addr]
}

// Errors returns the per-instruction decode errors met during the walk.
func (w *Walk) Errors() []error {
	var errs []error
	for _, l := range w.Lines {
		if l.Err != nil {
			errs = append(errs, l.Err)
		}
	}
	return errs
}

// Explore follows decoded control flow from entry: both sides of a
// conditional branch, plain fallthrough, and a stop at returns or at
// addresses without an instruction. A malformed branch is recorded and
// treated as fallthrough.
func Explore(d InstDecoder, entry uint32, limit int) *Walk {
	if limit <= 0 {
		limit = MaxExploreInstructions
	}

	w := &Walk{Entry: entry, Labels: map[uint32]bool{entry: true}}
	seen := make(map[uint32]Line)
	ends := make(map[uint32]bool)
	work := []uint32{entry}

	for len(work) > 0 && len(seen) < limit {
		addr := work[len(work)-1]
		work = work[:len(work)-1]

		for len(seen) < limit {
			if _, ok := seen[addr]; ok {
				break
			}

			info, err := d.Decode(addr)
			if errors.Is(err, ErrDecodeNotFound) {
				ends[addr] = true
				break
			}
			seen[addr] = Line{Addr: addr, Info: info, Err: err}

			if info.IsReturn() {
				break
			}

			next := addr + uint32(info.Length)
			for _, b := range info.Branches {
				switch b.Kind {
				case disasm.TrueBranch:
					w.Labels[b.Target] = true
					work = append(work, b.Target)
				case disasm.FalseBranch:
					w.Labels[b.Target] = true
					next = b.Target
				}
			}
			addr = next
		}
	}

	for _, addr := range slices.Sorted(maps.Keys(seen)) {
		w.Lines = append(w.Lines, seen[addr])
	}
	w.Ends = slices.Sorted(maps.Keys(ends))
	return w
}
