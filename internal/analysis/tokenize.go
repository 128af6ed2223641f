package analysis

import (
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"objgraph/internal/disasm"
	"objgraph/internal/rebase"
)

var xrefRe = regexp.MustCompile(`^(?:0[xX])?([0-9a-fA-F]{8,16})$`)

func isDelim(r rune) bool {
	switch r {
	case ',', '(', ')', '+', '-':
		return true
	}
	return false
}

// atoms splits text on the operand delimiters, yielding each delimiter as its
// own atom and dropping whitespace.
func atoms(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i, r := range text {
			if !unicode.IsSpace(r) && !isDelim(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !yield(text[start:i]) {
					return
				}
				start = -1
			}
			if isDelim(r) {
				if !yield(text[i : i+1]) {
					return
				}
			}
		}
		if start >= 0 {
			yield(text[start:])
		}
	}
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func classify(atom string) disasm.Token {
	if m := xrefRe.FindStringSubmatch(atom); m != nil {
		if v, err := strconv.ParseUint(m[1], 16, 64); err == nil {
			if va, err := rebase.Checked(v, false); err == nil {
				return disasm.Token{Kind: disasm.CrossRefToken, Text: fmt.Sprintf("%#x", va), Value: uint64(va)}
			}
		}
		return disasm.Token{Kind: disasm.TextToken, Text: atom}
	}

	switch {
	case isDecimal(atom):
		if v, err := strconv.ParseUint(atom, 10, 64); err == nil {
			return disasm.Token{Kind: disasm.IntegerToken, Text: atom, Value: v}
		}
	case atom == "(":
		return disasm.Token{Kind: disasm.BeginMemoryToken, Text: atom}
	case atom == ")":
		return disasm.Token{Kind: disasm.EndMemoryToken, Text: atom}
	case atom == "+" || atom == "-":
		return disasm.Token{Kind: disasm.OperatorToken, Text: atom}
	case atom == ",":
		return disasm.Token{Kind: disasm.SeparatorToken, Text: atom}
	case strings.HasPrefix(atom, "<"):
		return disasm.Token{Kind: disasm.TextToken, Text: " " + atom}
	}
	return disasm.Token{Kind: disasm.TextToken, Text: atom}
}

// Tokenize classifies the atoms of one instruction's text. The first atom is
// the mnemonic. Hex runs of 8 to 16 digits become cross references resolved
// into analysis space. The sequence is lazy and may be ranged over any
// number of times.
func Tokenize(text string) iter.Seq[disasm.Token] {
	return func(yield func(disasm.Token) bool) {
		first := true
		for atom := range atoms(text) {
			tok := disasm.Token{Kind: disasm.MnemonicToken, Text: atom}
			if !first {
				tok = classify(atom)
			}
			first = false
			if !yield(tok) {
				return
			}
		}
	}
}
