// Package disasm defines the common instruction, symbol, decode and token
// representations shared by the dump parsers, the analysis session and the
// renderers.
package disasm

import (
	"fmt"
	"strings"
)

// InstLen is the encoded size of every instruction of the target.
const InstLen = 4

// Inst is one instruction line taken from a disassembly dump.
type Inst struct {
	VA   uint32 // dump-space address of instruction
	Text string // mnemonic and operands as printed by the disassembler
	Op   string // mnemonic in lowercase
	Raw  []byte // encoding bytes from the dump's byte column
}

// Stream is a linear sequence of instructions.
type Stream []Inst

// Symbol is a function symbol recovered from a symbol table.
type Symbol struct {
	VA     uint32 // analysis-space address
	DumpVA uint32 // address as printed in the symbol table
	Name   string
	Size   uint64
}

// BranchKind classifies a control-flow edge leaving an instruction.
type BranchKind int

const (
	TrueBranch BranchKind = iota
	FalseBranch
	FunctionReturn
)

func (k BranchKind) String() string {
	switch k {
	case TrueBranch:
		return "true"
	case FalseBranch:
		return "false"
	case FunctionReturn:
		return "return"
	default:
		return fmt.Sprintf("BranchKind(%d)", int(k))
	}
}

// Branch is an edge out of a decoded instruction. Target is an
// analysis-space address and is unused for FunctionReturn.
type Branch struct {
	Kind   BranchKind
	Target uint32
}

// Info is the result of decoding one instruction.
type Info struct {
	Length   int
	Branches []Branch
}

// IsReturn reports whether the instruction ends its function.
func (i Info) IsReturn() bool {
	for _, b := range i.Branches {
		if b.Kind == FunctionReturn {
			return true
		}
	}
	return false
}

// TokenKind tags a Token.
type TokenKind int

const (
	MnemonicToken TokenKind = iota
	TextToken
	SeparatorToken
	IntegerToken
	BeginMemoryToken
	EndMemoryToken
	OperatorToken
	CrossRefToken
)

var tokenKindNames = [...]string{
	MnemonicToken:    "mnemonic",
	TextToken:        "text",
	SeparatorToken:   "separator",
	IntegerToken:     "integer",
	BeginMemoryToken: "begin-memory",
	EndMemoryToken:   "end-memory",
	OperatorToken:    "operator",
	CrossRefToken:    "xref",
}

func (k TokenKind) String() string {
	if int(k) >= 0 && int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is one classified unit of an instruction's display text. Value holds
// the parsed integer for IntegerToken and the analysis-space address for
// CrossRefToken.
type Token struct {
	Kind  TokenKind
	Text  string
	Value uint64
}

// Render joins tokens back into a display line, separating the mnemonic from
// its operands with a single space.
func Render(tokens []Token) string {
	var sb strings.Builder
	for i, tok := range tokens {
		sb.WriteString(tok.Text)
		if i == 0 && tok.Kind == MnemonicToken && len(tokens) > 1 {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
