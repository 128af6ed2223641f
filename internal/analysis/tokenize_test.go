package analysis

import (
	"fmt"
	"slices"
	"testing"

	"objgraph/internal/disasm"
	"objgraph/internal/rebase"
)

func TestTokenize(t *testing.T) {
	type tok = disasm.Token
	xref := func(dump uint32) tok {
		va := rebase.Down(dump)
		return tok{Kind: disasm.CrossRefToken, Text: fmt.Sprintf("%#x", va), Value: uint64(va)}
	}

	tests := []struct {
		name string
		text string
		want []tok
	}{
		{
			name: "conditional branch",
			text: "bgeu r11,r1,40007194",
			want: []tok{
				{Kind: disasm.MnemonicToken, Text: "bgeu"},
				{Kind: disasm.TextToken, Text: "r11"},
				{Kind: disasm.SeparatorToken, Text: ","},
				{Kind: disasm.TextToken, Text: "r1"},
				{Kind: disasm.SeparatorToken, Text: ","},
				xref(0x40007194),
			},
		},
		{
			name: "annotation",
			text: "bgeu r11,r1,40007194 <encrypt+0xb8>",
			want: []tok{
				{Kind: disasm.MnemonicToken, Text: "bgeu"},
				{Kind: disasm.TextToken, Text: "r11"},
				{Kind: disasm.SeparatorToken, Text: ","},
				{Kind: disasm.TextToken, Text: "r1"},
				{Kind: disasm.SeparatorToken, Text: ","},
				xref(0x40007194),
				{Kind: disasm.TextToken, Text: " <encrypt"},
				{Kind: disasm.OperatorToken, Text: "+"},
				{Kind: disasm.TextToken, Text: "0xb8>"},
			},
		},
		{
			name: "memory operand",
			text: "l.sw 8(r1),r9",
			want: []tok{
				{Kind: disasm.MnemonicToken, Text: "l.sw"},
				{Kind: disasm.IntegerToken, Text: "8", Value: 8},
				{Kind: disasm.BeginMemoryToken, Text: "("},
				{Kind: disasm.TextToken, Text: "r1"},
				{Kind: disasm.EndMemoryToken, Text: ")"},
				{Kind: disasm.SeparatorToken, Text: ","},
				{Kind: disasm.TextToken, Text: "r9"},
			},
		},
		{
			name: "negative immediate",
			text: "l.addi\tr1,r1,-16",
			want: []tok{
				{Kind: disasm.MnemonicToken, Text: "l.addi"},
				{Kind: disasm.TextToken, Text: "r1"},
				{Kind: disasm.SeparatorToken, Text: ","},
				{Kind: disasm.TextToken, Text: "r1"},
				{Kind: disasm.SeparatorToken, Text: ","},
				{Kind: disasm.OperatorToken, Text: "-"},
				{Kind: disasm.IntegerToken, Text: "16", Value: 16},
			},
		},
		{
			name: "prefixed hex address",
			text: "l.movhi r3,0x40007194",
			want: []tok{
				{Kind: disasm.MnemonicToken, Text: "l.movhi"},
				{Kind: disasm.TextToken, Text: "r3"},
				{Kind: disasm.SeparatorToken, Text: ","},
				xref(0x40007194),
			},
		},
		{
			name: "hex run wider than 32 bits",
			text: "dw 0000000140007194",
			want: []tok{
				{Kind: disasm.MnemonicToken, Text: "dw"},
				{Kind: disasm.TextToken, Text: "0000000140007194"},
			},
		},
		{
			name: "decimal overflow",
			text: "li 99999999999999999999999",
			want: []tok{
				{Kind: disasm.MnemonicToken, Text: "li"},
				{Kind: disasm.TextToken, Text: "99999999999999999999999"},
			},
		},
		{
			name: "leading whitespace",
			text: "  ret",
			want: []tok{{Kind: disasm.MnemonicToken, Text: "ret"}},
		},
		{
			name: "empty",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slices.Collect(Tokenize(tt.text))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Tokenize(%q)\n got  %+v\n want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenizeRestartable(t *testing.T) {
	seq := Tokenize("bgeu r11,r1,40007194")
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Errorf("second pass differs: %+v vs %+v", first, second)
	}

	// Stopping early must not panic.
	for range seq {
		break
	}
}

func TestRender(t *testing.T) {
	got := disasm.Render(slices.Collect(Tokenize("bgeu r11,r1,40007194 <encrypt+0xb8>")))
	want := "bgeu r11,r1,0x720c <encrypt+0xb8>"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}
