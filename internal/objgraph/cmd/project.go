package cmd

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"objgraph/internal/analysis"
	"objgraph/internal/detectors"
	"objgraph/internal/disasm"
	"objgraph/internal/elfx"
	"objgraph/internal/readelf"
)

// function is a declared function of the project.
type function struct {
	addr  uint32
	name  string
	entry bool
}

func (f *function) SetName(name string) { f.name = name }

// project owns the session and the functions declared on it.
type project struct {
	cfg   Config
	sess  *analysis.Session
	funcs map[uint32]*function
}

func newProject(cfg Config, sess *analysis.Session) *project {
	return &project{cfg: cfg, sess: sess, funcs: make(map[uint32]*function)}
}

// declare creates the function starting at addr. It fails when the dump has
// no instruction there.
func (p *project) declare(addr uint32) (analysis.Function, error) {
	if _, ok := p.sess.Store().Lookup(addr); !ok {
		return nil, fmt.Errorf("no instruction at %#x", addr)
	}
	if f, ok := p.funcs[addr]; ok {
		return f, nil
	}
	f := &function{addr: addr}
	p.funcs[addr] = f
	return f, nil
}

// Functions returns the declared functions in address order.
func (p *project) Functions() []*function {
	out := make([]*function, 0, len(p.funcs))
	for _, addr := range slices.Sorted(maps.Keys(p.funcs)) {
		out = append(out, p.funcs[addr])
	}
	return out
}

// Name returns the display name of the function at addr.
func (p *project) Name(addr uint32) string {
	if f, ok := p.funcs[addr]; ok && f.name != "" {
		return p.sess.Demangle(f.name)
	}
	return fmt.Sprintf("sub_%x", addr)
}

// openProject loads the dump and symbols named by cfg, then recovers
// functions and declares the entry point. Failures to declare single
// functions are logged, not returned.
func openProject(cfg Config) (*project, error) {
	if cfg.Dump == "" {
		return nil, errNoDump
	}
	rules, err := detectors.Preset(cfg.Rules, cfg.Branches, cfg.Returns)
	if err != nil {
		return nil, err
	}
	var entry uint32
	if cfg.Entry != "" {
		if entry, err = parseAddr(cfg.Entry, false); err != nil {
			return nil, fmt.Errorf("entry: %w", err)
		}
	}

	sess := analysis.NewSession(rules)
	var syms []disasm.Symbol

	var g errgroup.Group
	g.Go(func() error {
		f, err := os.Open(cfg.Dump)
		if err != nil {
			return err
		}
		defer f.Close()

		stats, err := sess.LoadDump(f)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.Dump, err)
		}
		if stats.Duplicates > 0 {
			slog.Warn("Duplicate dump addresses, last one kept", "count", stats.Duplicates)
		}
		if !stats.WidthFixed {
			slog.Warn("Instruction width varies across the dump", "max", stats.Width)
		}
		slog.Info("Loaded dump", "path", cfg.Dump, "records", humanize.Comma(int64(stats.Records)))
		slog.Debug("Parsed dump", "stats", stats.Stats.String())
		return nil
	})
	g.Go(func() error {
		var err error
		syms, err = readSymbols(cfg)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := newProject(cfg, sess)
	if len(syms) > 0 {
		if err := sess.SetSymbols(syms); err != nil {
			return nil, err
		}
		n, err := sess.Recover(p.declare)
		if err != nil {
			slog.Warn("Some functions were not recovered", "error", err)
		}
		slog.Info("Recovered functions", "count", n, "symbols", len(syms))
	}

	if cfg.Entry != "" {
		if err := sess.DeclareEntry(entry, "_start", p.declare); err != nil {
			slog.Warn("Entry point not declared", "entry", fmt.Sprintf("%#x", entry), "error", err)
		} else {
			p.funcs[entry].entry = true
		}
	}
	return p, nil
}

// readSymbols reads the function symbols from the readelf listing or, when
// none is configured, from the ELF image. Neither is not an error.
func readSymbols(cfg Config) ([]disasm.Symbol, error) {
	switch {
	case cfg.Symbols != "":
		f, err := os.Open(cfg.Symbols)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		syms, stats, err := readelf.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Symbols, err)
		}
		if len(syms) == 0 {
			return nil, fmt.Errorf("%s: %w", cfg.Symbols, analysis.ErrEmptySymbols)
		}
		if stats.Duplicates > 0 {
			slog.Warn("Duplicate symbol addresses, last one kept", "count", stats.Duplicates)
		}
		slog.Debug("Read symbol listing", "path", cfg.Symbols, "stats", stats.String())
		return syms, nil

	case cfg.ELF != "":
		im, err := elfx.Open(cfg.ELF)
		if err != nil {
			return nil, err
		}
		defer im.Close()

		syms, err := im.FuncSymbols()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.ELF, err)
		}
		if len(syms) == 0 {
			return nil, fmt.Errorf("%s: %w", cfg.ELF, analysis.ErrEmptySymbols)
		}
		var outside int
		for _, sym := range syms {
			if !im.InText(uint64(sym.DumpVA)) {
				outside++
			}
		}
		if outside > 0 && im.Text.Size != 0 {
			slog.Warn("Function symbols outside the code section", "count", outside, "section", im.Text.Name)
		}
		slog.Debug("Read ELF symbols", "path", cfg.ELF, "text", fmt.Sprintf("%#x", im.Text.VA), "functions", len(syms))
		return syms, nil
	}

	slog.Warn("No symbol table given, only the entry point is declared")
	return nil, nil
}
