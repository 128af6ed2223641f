package analysis

import (
	"errors"
	"fmt"

	"objgraph/internal/disasm"
)

// Function is the host's handle for a function it created.
type Function interface {
	SetName(name string)
}

// DeclareFunc asks the host to create a function at an analysis-space
// address.
type DeclareFunc func(addr uint32) (Function, error)

// Recover declares one function per symbol and names it. A failed
// declaration is reported for that symbol only; the rest are still
// recovered. It returns how many functions were created and named.
func Recover(symbols []disasm.Symbol, declare DeclareFunc) (int, error) {
	var (
		n    int
		errs []error
	)
	for _, sym := range symbols {
		fn, err := declare(sym.VA)
		if err == nil && fn == nil {
			err = errors.New("host returned no function")
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s at %#x: %w", ErrFunctionDeclarationFailed, sym.Name, sym.VA, err))
			continue
		}
		fn.SetName(sym.Name)
		n++
	}
	return n, errors.Join(errs...)
}
