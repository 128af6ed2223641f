package detectors

import (
	"fmt"

	"objgraph/internal/analysis"
)

// Rule set names accepted by Preset.
const (
	PresetObjgraph = "objgraph"
	PresetGeneric  = "generic"
)

// DefaultBranches and DefaultReturns are the mnemonics of the firmware the
// objgraph preset was written for.
var (
	DefaultBranches = []string{"bgeu"}
	DefaultReturns  = []string{"ret"}
)

// Objgraph recognizes the listed conditional branches (bgeu when none are
// given) and ret.
func Objgraph(branches ...string) *analysis.RuleSet {
	if len(branches) == 0 {
		branches = DefaultBranches
	}
	return analysis.NewRuleSet(NewCondBranch(branches...), NewReturn(DefaultReturns...))
}

// Generic treats every mnemonic starting with "b" as a conditional branch.
func Generic() *analysis.RuleSet {
	return analysis.NewRuleSet(NewBranchPrefix("b"), NewReturn(DefaultReturns...))
}

// Preset builds a named rule set. Extra branch and return mnemonics are
// appended as additional rules.
func Preset(name string, branches, returns []string) (*analysis.RuleSet, error) {
	var rs *analysis.RuleSet
	switch name {
	case "", PresetObjgraph:
		rs = Objgraph()
	case PresetGeneric:
		rs = Generic()
	default:
		return nil, fmt.Errorf("unknown rule preset %q (want %q or %q)", name, PresetObjgraph, PresetGeneric)
	}
	if len(branches) > 0 {
		rs.Add(NewCondBranch(branches...))
	}
	if len(returns) > 0 {
		rs.Add(NewReturn(returns...))
	}
	return rs, nil
}
