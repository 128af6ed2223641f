// Package readelf extracts function symbols from `readelf -s` listings.
//
// A typical row looks like
//
//	   12: 40007154   184 FUNC    GLOBAL DEFAULT    1 encrypt
//
// Only global, default-visibility, defined functions are kept. Addresses are
// rebased into analysis space as they are parsed.
package readelf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"objgraph/internal/disasm"
	"objgraph/internal/rebase"
)

// Stats summarizes a parse.
type Stats struct {
	Lines      int // input lines read
	Symbols    int // symbols kept
	Duplicates int // rows whose address was already taken
	Rejected   int // function rows dropped for range or definition
}

func (s Stats) String() string {
	return fmt.Sprintf("%d symbols from %d lines (%d duplicate addresses, %d rejected)",
		s.Symbols, s.Lines, s.Duplicates, s.Rejected)
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// ParseLine parses one row. It reports false for rows that are not global,
// default-visibility, defined functions.
func ParseLine(line string) (disasm.Symbol, bool) {
	sym, ok, _ := parseLine(line)
	return sym, ok
}

// parseLine also reports whether the row was a global function that had to
// be rejected, so Parse can count it.
func parseLine(line string) (disasm.Symbol, bool, bool) {
	fields := strings.Fields(line)

	// Value column: the first 8 or 16 digit hex field, skipping the "Num:"
	// index.
	ai := -1
	for i, f := range fields {
		if strings.HasSuffix(f, ":") {
			continue
		}
		if (len(f) == 8 || len(f) == 16) && isHex(f) {
			ai = i
		}
		break
	}
	if ai < 0 {
		return disasm.Symbol{}, false, false
	}

	ti := -1
	for i := ai + 1; i+2 < len(fields); i++ {
		if fields[i] == "FUNC" && fields[i+1] == "GLOBAL" && fields[i+2] == "DEFAULT" {
			ti = i
			break
		}
	}
	if ti < 0 {
		return disasm.Symbol{}, false, false
	}

	// Whatever follows the visibility is "Ndx Name", or just the name when
	// the section column is absent.
	rest := fields[ti+3:]
	var name string
	switch len(rest) {
	case 0:
		return disasm.Symbol{}, false, true
	case 1:
		name = rest[0]
	default:
		if rest[0] == "UND" {
			return disasm.Symbol{}, false, true
		}
		name = strings.Join(rest[1:], " ")
	}

	dumpVA, err := strconv.ParseUint(fields[ai], 16, 64)
	if err != nil {
		return disasm.Symbol{}, false, true
	}
	va, err := rebase.Checked(dumpVA, false)
	if err != nil {
		return disasm.Symbol{}, false, true
	}

	var size uint64
	if ai+1 < ti {
		size, _ = strconv.ParseUint(fields[ai+1], 0, 64)
	}

	return disasm.Symbol{
		VA:     va,
		DumpVA: uint32(dumpVA),
		Name:   name,
		Size:   size,
	}, true, false
}

// Parse reads a whole listing. Symbols come back in table order; when two
// rows share an address the later name replaces the earlier one in place.
func Parse(r io.Reader) ([]disasm.Symbol, Stats, error) {
	var (
		syms  []disasm.Symbol
		stats Stats
		index = make(map[uint32]int)
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		stats.Lines++

		sym, ok, rejected := parseLine(sc.Text())
		if rejected {
			stats.Rejected++
		}
		if !ok {
			continue
		}

		if i, seen := index[sym.VA]; seen {
			syms[i] = sym
			stats.Duplicates++
			continue
		}
		index[sym.VA] = len(syms)
		syms = append(syms, sym)
	}
	stats.Symbols = len(syms)
	if err := sc.Err(); err != nil {
		return syms, stats, fmt.Errorf("read symbol table: %w", err)
	}
	return syms, stats, nil
}
