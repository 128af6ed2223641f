package analysis

import (
	"fmt"

	"objgraph/internal/disasm"
)

// Decoder answers per-instruction decode queries against a Store.
type Decoder struct {
	store *Store
	rules *RuleSet
}

// NewDecoder creates a decoder over store using rules for control flow.
func NewDecoder(store *Store, rules *RuleSet) *Decoder {
	return &Decoder{store: store, rules: rules}
}

// Decode returns the length and branches of the instruction at an
// analysis-space address. A missing instruction yields ErrDecodeNotFound. A
// recognized branch with an unusable target yields ErrMalformedBranchOperand
// together with an Info that still carries the instruction length.
func (d *Decoder) Decode(addr uint32) (disasm.Info, error) {
	inst, ok := d.store.Lookup(addr)
	if !ok {
		return disasm.Info{}, fmt.Errorf("%w: %#x", ErrDecodeNotFound, addr)
	}

	info := disasm.Info{Length: disasm.InstLen}
	branches, err := d.rules.Classify(addr, inst)
	if err != nil {
		return info, fmt.Errorf("decode %#x %q: %w", addr, inst.Text, err)
	}
	info.Branches = branches
	return info, nil
}
