// Package detectors provides the control-flow rules that classify
// instructions of the target by their disassembly text.
package detectors

import (
	"fmt"
	"strconv"
	"strings"

	"objgraph/internal/analysis"
	"objgraph/internal/disasm"
	"objgraph/internal/rebase"
)

// targetOperand is the index of the branch destination among the
// comma-separated operands, as in "bgeu r11,r1,40007194".
const targetOperand = 2

// mnemonic returns the lowercase mnemonic of inst.
func mnemonic(inst disasm.Inst) string {
	if inst.Op != "" {
		return inst.Op
	}
	if f := strings.Fields(inst.Text); len(f) > 0 {
		return strings.ToLower(f[0])
	}
	return ""
}

// operands returns the operand column of inst with any trailing
// "<symbol+off>" annotation removed.
func operands(inst disasm.Inst) []string {
	text := strings.TrimSpace(inst.Text)
	i := strings.IndexAny(text, " \t")
	if i < 0 {
		return nil
	}
	ops := strings.TrimSpace(text[i:])
	if j := strings.Index(ops, "<"); j >= 0 {
		ops = strings.TrimSpace(ops[:j])
	}
	if ops == "" {
		return nil
	}
	parts := strings.Split(ops, ",")
	for k := range parts {
		parts[k] = strings.TrimSpace(parts[k])
	}
	return parts
}

// CondBranch recognizes two-way conditional branches whose destination is
// the third operand. It emits a taken edge to the destination and a
// not-taken edge to the next instruction.
type CondBranch struct {
	mnemonics map[string]bool
	prefix    string
}

// NewCondBranch matches the given mnemonics exactly.
func NewCondBranch(mnemonics ...string) *CondBranch {
	set := make(map[string]bool, len(mnemonics))
	for _, m := range mnemonics {
		set[strings.ToLower(m)] = true
	}
	return &CondBranch{mnemonics: set}
}

// NewBranchPrefix matches every mnemonic starting with prefix.
func NewBranchPrefix(prefix string) *CondBranch {
	return &CondBranch{prefix: strings.ToLower(prefix)}
}

func (b *CondBranch) Name() string {
	if b.prefix != "" {
		return "branch-prefix:" + b.prefix
	}
	return "cond-branch"
}

func (b *CondBranch) Match(inst disasm.Inst) bool {
	op := mnemonic(inst)
	if op == "" {
		return false
	}
	if b.prefix != "" {
		return strings.HasPrefix(op, b.prefix)
	}
	return b.mnemonics[op]
}

func (b *CondBranch) Edges(addr uint32, inst disasm.Inst) ([]disasm.Branch, error) {
	ops := operands(inst)
	if len(ops) <= targetOperand {
		return nil, fmt.Errorf("%w: want %d operands, got %d", analysis.ErrMalformedBranchOperand, targetOperand+1, len(ops))
	}

	field := ops[targetOperand]
	digits := strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")
	dest, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: target %q is not hexadecimal", analysis.ErrMalformedBranchOperand, field)
	}
	target, err := rebase.Checked(dest, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", analysis.ErrMalformedBranchOperand, err)
	}

	return []disasm.Branch{
		{Kind: disasm.TrueBranch, Target: target},
		{Kind: disasm.FalseBranch, Target: addr + disasm.InstLen},
	}, nil
}

// Return recognizes function returns.
type Return struct {
	mnemonics map[string]bool
}

// NewReturn matches the given mnemonics exactly.
func NewReturn(mnemonics ...string) *Return {
	set := make(map[string]bool, len(mnemonics))
	for _, m := range mnemonics {
		set[strings.ToLower(m)] = true
	}
	return &Return{mnemonics: set}
}

func (r *Return) Name() string { return "return" }

func (r *Return) Match(inst disasm.Inst) bool {
	return r.mnemonics[mnemonic(inst)]
}

func (r *Return) Edges(uint32, disasm.Inst) ([]disasm.Branch, error) {
	return []disasm.Branch{{Kind: disasm.FunctionReturn}}, nil
}
