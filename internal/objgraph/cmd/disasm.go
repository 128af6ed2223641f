package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/spf13/cobra"

	"objgraph/internal/analysis"
	"objgraph/internal/disasm"
	"objgraph/internal/ui/colorize"
)

var disasmCmd = &cobra.Command{
	Use:     "disasm [addr]",
	Aliases: []string{"dis"},
	Short:   "List recovered functions",
	Long: heredoc.Doc(`
		Explore each declared function from its entry, following branch edges
		the way an analysis engine would, and print the listing. With an
		address only the function starting there is listed.
	`),
	Example: heredoc.Doc(`
		objgraph disasm --dump firmware.diss --symbols firmware.syms 0x720c
		objgraph disasm --dump firmware.diss --dump-addr 40007194 --dot | dot -Tsvg > cfg.svg
	`),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dumpAddr, _ := cmd.Flags().GetBool("dump-addr")
		dot, _ := cmd.Flags().GetBool("dot")
		limit, _ := cmd.Flags().GetInt("limit")
		linear, _ := cmd.Flags().GetBool("linear")

		p, err := openProject(configFromViper())
		if err != nil {
			return err
		}
		if linear {
			writeLinear(cmd.OutOrStdout(), p)
			return nil
		}

		var entries []uint32
		if len(args) == 1 {
			addr, err := parseAddr(args[0], dumpAddr)
			if err != nil {
				return err
			}
			entries = append(entries, addr)
		} else {
			for _, f := range p.Functions() {
				entries = append(entries, f.addr)
			}
		}
		if len(entries) == 0 {
			return fmt.Errorf("no functions declared")
		}

		out := cmd.OutOrStdout()
		for _, addr := range entries {
			w := analysis.Explore(p.sess, addr, limit)
			if dot {
				if err := writeDOT(out, p, w); err != nil {
					return err
				}
				continue
			}
			writeListing(out, p, w)
		}
		return nil
	},
}

func init() {
	disasmCmd.Flags().Bool("dump-addr", false, "address argument is in dump space")
	disasmCmd.Flags().Bool("dot", false, "print the basic block graph in Graphviz format")
	disasmCmd.Flags().Bool("linear", false, "list the whole dump in address order instead of exploring functions")
	disasmCmd.Flags().Int("limit", analysis.MaxExploreInstructions, "maximum instructions per function")
	rootCmd.AddCommand(disasmCmd)
}

func label(p *project, w *analysis.Walk, addr uint32) string {
	if addr == w.Entry {
		return p.Name(addr)
	}
	return fmt.Sprintf("loc_%x", addr)
}

// edgeComment describes the decoded control flow of one line.
func edgeComment(p *project, w *analysis.Walk, l analysis.Line) string {
	if l.Err != nil {
		return l.Err.Error()
	}
	var parts []string
	for _, b := range l.Info.Branches {
		switch b.Kind {
		case disasm.FunctionReturn:
			parts = append(parts, "return")
		default:
			parts = append(parts, fmt.Sprintf("%s %s", b.Kind, label(p, w, b.Target)))
		}
	}
	return strings.Join(parts, ", ")
}

func writeListing(out io.Writer, p *project, w *analysis.Walk) {
	fmt.Fprintf(out, "; function %s at %#x, %d instructions\n", p.Name(w.Entry), w.Entry, len(w.Lines))
	for i, l := range w.Lines {
		if i == 0 || w.Leader(l.Addr) {
			fmt.Fprintln(out, colorize.Label(label(p, w, l.Addr)))
		}
		toks, err := p.sess.Tokens(l.Addr)
		if err != nil {
			continue
		}
		fmt.Fprintln(out, colorize.Line(fmt.Sprintf("%08x", l.Addr), toks, edgeComment(p, w, l)))
	}
	for _, end := range w.Ends {
		fmt.Fprintf(out, "; no instruction at %#x\n", end)
	}
	fmt.Fprintln(out)
}

// writeLinear lists every instruction of the dump in address order with
// its decoded edges, labelling declared functions.
func writeLinear(out io.Writer, p *project) {
	for addr, inst := range p.sess.Store().All() {
		if _, ok := p.funcs[addr]; ok {
			fmt.Fprintln(out)
			fmt.Fprintln(out, colorize.Label(p.Name(addr)))
		}
		var comment string
		info, err := p.sess.Decode(addr)
		switch {
		case err != nil:
			comment = err.Error()
		case len(info.Branches) > 0:
			comment = describeBranches(info.Branches)
		}
		fmt.Fprintln(out, colorize.Line(fmt.Sprintf("%08x", addr), analysis.Tokenize(inst.Text), comment))
	}
}

type blockEdge struct {
	from, to uint32
	kind     string
}

// blockGraph groups the walk into basic blocks keyed by their leader.
func blockGraph(p *project, w *analysis.Walk) (graph.Graph[uint32, uint32], error) {
	g := graph.New(func(a uint32) uint32 { return a }, graph.Directed())

	var (
		edges  []blockEdge
		text   = make(map[uint32]*strings.Builder)
		leader uint32
		ended  = true
		prev   analysis.Line
	)
	for i, l := range w.Lines {
		contiguous := i > 0 && prev.Addr+uint32(prev.Info.Length) == l.Addr
		if ended || !contiguous || w.Leader(l.Addr) {
			if !ended && contiguous {
				edges = append(edges, blockEdge{leader, l.Addr, ""})
			}
			leader = l.Addr
			text[leader] = &strings.Builder{}
			fmt.Fprintf(text[leader], `%s:\l`, label(p, w, leader))
		}

		if toks, err := p.sess.Tokens(l.Addr); err == nil {
			var all []disasm.Token
			for t := range toks {
				all = append(all, t)
			}
			fmt.Fprintf(text[leader], `  %s\l`, strings.ReplaceAll(disasm.Render(all), `"`, `'`))
		}

		ended = l.Info.IsReturn() || len(l.Info.Branches) > 0
		for _, b := range l.Info.Branches {
			if b.Kind != disasm.FunctionReturn {
				edges = append(edges, blockEdge{leader, b.Target, b.Kind.String()})
			}
		}
		prev = l
	}

	for addr, sb := range text {
		if err := g.AddVertex(addr,
			graph.VertexAttribute("shape", "box"),
			graph.VertexAttribute("fontname", "monospace"),
			graph.VertexAttribute("label", sb.String()),
		); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if _, ok := text[e.to]; !ok {
			continue
		}
		err := g.AddEdge(e.from, e.to, graph.EdgeAttribute("label", e.kind))
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil, err
		}
	}
	return g, nil
}

func writeDOT(out io.Writer, p *project, w *analysis.Walk) error {
	g, err := blockGraph(p, w)
	if err != nil {
		return err
	}
	return draw.DOT(g, out)
}
