package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// DisasmDark is the listing style. Token kinds map onto the chroma types
// used here, see chromaType.
var DisasmDark = styles.Register(chroma.MustNewStyle("disasm-dark", chroma.StyleEntries{
	chroma.Text:       "#FFFFFF",
	chroma.Background: "bg:#1e1e1e",
	chroma.Comment:    "#4F4F4F", // addresses and raw bytes

	chroma.Keyword:      "#FFFFFF", // mnemonics
	chroma.NameVariable: "#7C9C9D", // registers and other operand text

	chroma.LiteralNumberInteger: "#FF5F87",
	chroma.LiteralNumberHex:     "#FFD700", // cross-references

	chroma.NameLabel:    "#FFD700",
	chroma.NameFunction: "#EBC2ED", // <symbol> annotations

	chroma.Operator:    "#FFFFFF",
	chroma.Punctuation: "#FFFFFF",
}))
