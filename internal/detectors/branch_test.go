package detectors

import (
	"errors"
	"testing"

	"objgraph/internal/analysis"
	"objgraph/internal/disasm"
	"objgraph/internal/rebase"
)

func inst(text string) disasm.Inst {
	return disasm.Inst{Text: text}
}

func TestCondBranchMatch(t *testing.T) {
	exact := NewCondBranch("bgeu", "BLTU")
	prefix := NewBranchPrefix("b")

	tests := []struct {
		text       string
		wantExact  bool
		wantPrefix bool
	}{
		{"bgeu r11,r1,40007194", true, true},
		{"bltu r1,r2,40007000", true, true},
		{"BGEU r11,r1,40007194", true, true},
		{"beq r1,r2,40007000", false, true},
		{"l.addi r1,r1,-16", false, false},
		{"ret", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := exact.Match(inst(tt.text)); got != tt.wantExact {
				t.Errorf("exact Match() = %v, want %v", got, tt.wantExact)
			}
			if got := prefix.Match(inst(tt.text)); got != tt.wantPrefix {
				t.Errorf("prefix Match() = %v, want %v", got, tt.wantPrefix)
			}
		})
	}
}

func TestCondBranchEdges(t *testing.T) {
	rule := NewCondBranch("bgeu")
	const addr = 0x7154

	tests := []struct {
		name       string
		text       string
		wantTarget uint32
		wantErr    bool
	}{
		{name: "plain", text: "bgeu r11,r1,40007194", wantTarget: rebase.Down(0x40007194)},
		{name: "annotated", text: "bgeu r11,r1,40007194 <encrypt+0xb8>", wantTarget: rebase.Down(0x40007194)},
		{name: "spaced operands", text: "bgeu\tr11, r1, 0x40007194", wantTarget: rebase.Down(0x40007194)},
		{name: "missing target", text: "bgeu r11,r1", wantErr: true},
		{name: "no operands", text: "bgeu", wantErr: true},
		{name: "non hex target", text: "bgeu r11,r1,label", wantErr: true},
		{name: "wider than 32 bits", text: "bgeu r11,r1,140007194", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edges, err := rule.Edges(addr, inst(tt.text))
			if tt.wantErr {
				if !errors.Is(err, analysis.ErrMalformedBranchOperand) {
					t.Fatalf("Edges() error = %v, want ErrMalformedBranchOperand", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Edges() error = %v", err)
			}
			want := []disasm.Branch{
				{Kind: disasm.TrueBranch, Target: tt.wantTarget},
				{Kind: disasm.FalseBranch, Target: addr + 4},
			}
			if len(edges) != len(want) {
				t.Fatalf("Edges() = %+v, want %+v", edges, want)
			}
			for i := range want {
				if edges[i] != want[i] {
					t.Errorf("edge %d = %+v, want %+v", i, edges[i], want[i])
				}
			}
		})
	}
}

func TestReturn(t *testing.T) {
	rule := NewReturn("ret")

	if !rule.Match(inst("ret")) {
		t.Error("Match(ret) = false")
	}
	if rule.Match(inst("bret r1")) {
		t.Error("Match(bret) = true")
	}

	edges, err := rule.Edges(0x10, inst("ret"))
	if err != nil {
		t.Fatalf("Edges() error = %v", err)
	}
	if len(edges) != 1 || edges[0].Kind != disasm.FunctionReturn {
		t.Errorf("Edges() = %+v, want one return edge", edges)
	}
}

func TestPreset(t *testing.T) {
	tests := []struct {
		name      string
		preset    string
		branches  []string
		returns   []string
		wantRules int
		wantErr   bool
	}{
		{name: "default", preset: "", wantRules: 2},
		{name: "objgraph", preset: PresetObjgraph, wantRules: 2},
		{name: "generic", preset: PresetGeneric, wantRules: 2},
		{name: "extras", preset: PresetObjgraph, branches: []string{"bltu"}, returns: []string{"rfe"}, wantRules: 4},
		{name: "unknown", preset: "x86", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Preset(tt.preset, tt.branches, tt.returns)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Preset() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := len(rs.Rules()); got != tt.wantRules {
				t.Errorf("len(Rules()) = %d, want %d", got, tt.wantRules)
			}
		})
	}
}

func TestGenericClassifiesAnyBranch(t *testing.T) {
	rs := Generic()
	edges, err := rs.Classify(0x100, inst("beq r1,r2,40000178"))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(edges) != 2 || edges[0].Target != rebase.Down(0x40000178) {
		t.Errorf("Classify() = %+v", edges)
	}
}
