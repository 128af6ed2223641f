// Package objdump parses objdump-style disassembly listings of the form
//
//	<addr>:\t<byte groups>\t<mnemonic operands>
//
// into instruction records keyed by dump-space address.
package objdump

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"objgraph/internal/disasm"
)

// SampleLines is how many leading records are used to detect the width of
// the byte column.
const SampleLines = 20

var lineRe = regexp.MustCompile(`^\s*([0-9a-fA-F]{1,8}):\t([0-9a-fA-F ]+)\t(.*)$`)

// Stats summarizes a parse.
type Stats struct {
	Lines   int // input lines read
	Records int // instruction records produced
	Skipped int // non-empty lines that did not look like an instruction

	// Width is the number of byte groups per record. When WidthFixed is
	// false the sampled records disagreed and Width is the largest seen.
	Width      int
	WidthFixed bool
}

func (s Stats) String() string {
	mode := "max"
	if s.WidthFixed {
		mode = "fixed"
	}
	return fmt.Sprintf("%d records from %d lines (%d skipped), width %d (%s)",
		s.Records, s.Lines, s.Skipped, s.Width, mode)
}

// ParseLine parses a single dump line. It reports false for headers, labels,
// blank lines and anything else that is not an instruction record.
func ParseLine(line string) (disasm.Inst, bool) {
	inst, _, ok := parseLine(line)
	return inst, ok
}

func parseLine(line string) (disasm.Inst, int, bool) {
	m := lineRe.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return disasm.Inst{}, 0, false
	}

	va, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return disasm.Inst{}, 0, false
	}

	groups := strings.Fields(m[2])
	var raw []byte
	for _, group := range groups {
		b, err := hex.DecodeString(group)
		if err != nil {
			return disasm.Inst{}, 0, false
		}
		raw = append(raw, b...)
	}
	if len(raw) == 0 {
		return disasm.Inst{}, 0, false
	}

	text := strings.TrimSpace(m[3])
	if text == "" {
		return disasm.Inst{}, 0, false
	}

	op := text
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		op = text[:i]
	}

	return disasm.Inst{
		VA:   uint32(va),
		Text: text,
		Op:   strings.ToLower(op),
		Raw:  raw,
	}, len(groups), true
}

// Parse reads a whole listing. Lines that do not parse are skipped; the only
// error returned is a read failure.
func Parse(r io.Reader) (disasm.Stream, Stats, error) {
	var (
		stream disasm.Stream
		stats  Stats
		widths []int
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		stats.Lines++

		inst, n, ok := parseLine(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				stats.Skipped++
			}
			continue
		}

		stream = append(stream, inst)
		stats.Records++

		if n > stats.Width {
			stats.Width = n
		}
		if len(widths) < SampleLines {
			widths = append(widths, n)
		}
	}
	if err := sc.Err(); err != nil {
		return stream, stats, fmt.Errorf("read dump: %w", err)
	}

	stats.WidthFixed = len(widths) > 0
	for _, w := range widths {
		if w != widths[0] {
			stats.WidthFixed = false
			break
		}
	}
	if stats.WidthFixed {
		stats.Width = widths[0]
	}

	return stream, stats, nil
}
