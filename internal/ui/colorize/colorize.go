// Package colorize renders instruction token streams for the terminal.
package colorize

import (
	"iter"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"

	"objgraph/internal/disasm"
)

// Enabled reports whether output should carry ANSI colors.
func Enabled() bool {
	return os.Getenv("OBJGRAPH_NO_COLOR") == "" && os.Getenv("NO_COLOR") == ""
}

// getDisasmStyle returns the disassembly style with fallbacks
func getDisasmStyle() *chroma.Style {
	for _, name := range []string{"disasm-dark", "dracula", "monokai"} {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

func chromaType(tok disasm.Token) chroma.TokenType {
	switch tok.Kind {
	case disasm.MnemonicToken:
		return chroma.Keyword
	case disasm.IntegerToken:
		return chroma.LiteralNumberInteger
	case disasm.CrossRefToken:
		return chroma.LiteralNumberHex
	case disasm.OperatorToken:
		return chroma.Operator
	case disasm.SeparatorToken, disasm.BeginMemoryToken, disasm.EndMemoryToken:
		return chroma.Punctuation
	case disasm.TextToken:
		if strings.HasPrefix(strings.TrimSpace(tok.Text), "<") {
			return chroma.NameFunction
		}
		return chroma.NameVariable
	}
	return chroma.Text
}

// Chroma converts a token stream into chroma tokens, inserting the space
// that separates the mnemonic from its operands.
func Chroma(tokens iter.Seq[disasm.Token]) []chroma.Token {
	var out []chroma.Token
	for tok := range tokens {
		if len(out) == 1 && out[0].Type == chroma.Keyword {
			out = append(out, chroma.Token{Type: chroma.Text, Value: " "})
		}
		out = append(out, chroma.Token{Type: chromaType(tok), Value: tok.Text})
	}
	return out
}

func format(toks []chroma.Token) string {
	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getDisasmStyle(), chroma.Literator(toks...)); err != nil {
		var plain strings.Builder
		for _, t := range toks {
			plain.WriteString(t.Value)
		}
		return plain.String()
	}
	return buf.String()
}

// Tokens renders an instruction's tokens, colored when Enabled.
func Tokens(tokens iter.Seq[disasm.Token]) string {
	toks := Chroma(tokens)
	if !Enabled() {
		var sb strings.Builder
		for _, t := range toks {
			sb.WriteString(t.Value)
		}
		return sb.String()
	}
	return format(toks)
}

// Line renders one listing row: the dump address in gray followed by the
// colored instruction and an optional comment.
func Line(addr string, tokens iter.Seq[disasm.Token], comment string) string {
	body := Tokens(tokens)
	if comment != "" {
		body = Pad(body, 40) + " ; " + comment
	}
	if !Enabled() {
		return addr + "  " + body
	}
	return format([]chroma.Token{{Type: chroma.Comment, Value: addr}}) + "  " + body
}

// Label renders a basic block label line.
func Label(name string) string {
	if !Enabled() {
		return name + ":"
	}
	return format([]chroma.Token{{Type: chroma.NameLabel, Value: name}, {Type: chroma.Punctuation, Value: ":"}})
}

// Pad right-pads s to width visible columns, ignoring ANSI sequences.
func Pad(s string, width int) string {
	if n := VisibleLen(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// Strip removes ANSI codes and returns the plain string
func Strip(s string) string {
	var result strings.Builder
	inEscape := false

	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
		} else if inEscape {
			if r == 'm' {
				inEscape = false
			}
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// VisibleLen counts the characters of s outside ANSI escape sequences.
func VisibleLen(s string) int {
	visible := 0
	inEscape := false

	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
		} else if inEscape {
			if r == 'm' {
				inEscape = false
			}
		} else {
			visible++
		}
	}

	return visible
}
