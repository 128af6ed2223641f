package analysis

import "objgraph/internal/disasm"

// Rule recognizes one family of control-flow instructions by their text and
// builds the edges leaving them.
type Rule interface {
	// Name identifies the rule in diagnostics.
	Name() string
	// Match reports whether the rule applies to inst.
	Match(inst disasm.Inst) bool
	// Edges builds the branches for an instruction at analysis address addr.
	Edges(addr uint32, inst disasm.Inst) ([]disasm.Branch, error)
}

// RuleSet evaluates rules in order; the first match decides.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet creates a rule set.
func NewRuleSet(rules ...Rule) *RuleSet {
	return &RuleSet{rules: rules}
}

// Add appends rules after the existing ones.
func (rs *RuleSet) Add(rules ...Rule) {
	rs.rules = append(rs.rules, rules...)
}

// Rules returns the rules in evaluation order.
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	return rs.rules
}

// Classify returns the edges for inst. Instructions that no rule matches have
// no explicit edges.
func (rs *RuleSet) Classify(addr uint32, inst disasm.Inst) ([]disasm.Branch, error) {
	for _, r := range rs.Rules() {
		if r.Match(inst) {
			return r.Edges(addr, inst)
		}
	}
	return nil, nil
}
