package analysis

import "errors"

var (
	// ErrEmptyDump is returned when a disassembly dump yields no instruction
	// records. The previously loaded instructions are kept.
	ErrEmptyDump = errors.New("dump contains no instructions")

	// ErrEmptySymbols is returned when a symbol table yields no usable
	// function symbols. The previously loaded symbols are kept.
	ErrEmptySymbols = errors.New("symbol table contains no functions")

	// ErrDecodeNotFound means there is no instruction at the address;
	// disassembly should stop there.
	ErrDecodeNotFound = errors.New("no instruction at address")

	// ErrMalformedBranchOperand is returned for a recognized branch whose
	// target cannot be parsed.
	ErrMalformedBranchOperand = errors.New("malformed branch operand")

	// ErrFunctionDeclarationFailed wraps a failure of the host to create a
	// function for a recovered symbol.
	ErrFunctionDeclarationFailed = errors.New("function declaration failed")
)
