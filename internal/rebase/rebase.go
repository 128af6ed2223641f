// Package rebase converts addresses between dump space (the numbering used by
// objdump/readelf output for the firmware) and analysis space (the numbering
// the analysis session uses). The two spaces differ by a fixed offset.
package rebase

import (
	"errors"
	"fmt"
	"math"
)

const (
	// LoadBase is where the firmware is mapped in dump space.
	LoadBase = 0x40000000
	// Skew is the size of the image header that precedes the code in
	// analysis space.
	Skew = 120
	// Delta is added to an analysis address to obtain its dump address.
	Delta uint32 = LoadBase - Skew
)

// ErrOutOfRange is returned by Checked for inputs that do not fit the
// 32-bit address space.
var ErrOutOfRange = errors.New("rebase out of range")

// Rebase maps addr from analysis space to dump space when up is true, and
// from dump space to analysis space otherwise. Arithmetic wraps, so the
// transform is a bijection over all 32-bit values.
func Rebase(addr uint32, up bool) uint32 {
	if up {
		return addr + Delta
	}
	return addr - Delta
}

// Up maps an analysis address to dump space.
func Up(addr uint32) uint32 { return Rebase(addr, true) }

// Down maps a dump address to analysis space.
func Down(addr uint32) uint32 { return Rebase(addr, false) }

// Checked rebases an address parsed from text, which may be wider than 32
// bits.
func Checked(addr uint64, up bool) (uint32, error) {
	if addr > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %#x", ErrOutOfRange, addr)
	}
	return Rebase(uint32(addr), up), nil
}
