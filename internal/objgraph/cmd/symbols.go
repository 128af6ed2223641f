package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"objgraph/internal/objgraph/styles"
	"objgraph/internal/rebase"
)

var symbolsCmd = &cobra.Command{
	Use:     "symbols",
	Aliases: []string{"syms"},
	Short:   "Show the recovered function table",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, _ := cmd.Flags().GetBool("summary")

		p, err := openProject(configFromViper())
		if err != nil {
			return err
		}
		if summary {
			fmt.Fprint(cmd.OutOrStdout(), styles.Markdown(summaryMarkdown(p), 80))
			return nil
		}
		return writeSymbols(cmd.OutOrStdout(), p)
	},
}

func init() {
	symbolsCmd.Flags().BoolP("summary", "s", false, "render a load summary instead of the table")
	rootCmd.AddCommand(symbolsCmd)
}

func writeSymbols(out io.Writer, p *project) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDR\tDUMP\tSIZE\tNAME")
	for _, f := range p.Functions() {
		size := "-"
		if sym, ok := p.sess.SymbolAt(f.addr); ok && sym.Size > 0 {
			size = humanize.IBytes(sym.Size)
		}
		name := p.Name(f.addr)
		if f.entry {
			name += " (entry)"
		}
		fmt.Fprintf(tw, "%08x\t%08x\t%s\t%s\n", f.addr, rebase.Up(f.addr), size, name)
	}
	return tw.Flush()
}

func summaryMarkdown(p *project) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# objgraph\n\n")
	fmt.Fprintf(&sb, "* dump: `%s`, **%s** instructions\n", p.cfg.Dump, humanize.Comma(int64(p.sess.Store().Len())))
	switch {
	case p.cfg.Symbols != "":
		fmt.Fprintf(&sb, "* symbols: `%s`\n", p.cfg.Symbols)
	case p.cfg.ELF != "":
		fmt.Fprintf(&sb, "* symbols: `%s` (ELF)\n", p.cfg.ELF)
	}
	fmt.Fprintf(&sb, "* functions: **%d** of %d symbols\n", len(p.funcs), len(p.sess.Symbols()))

	var rules []string
	for _, r := range p.sess.Rules().Rules() {
		rules = append(rules, "`"+r.Name()+"`")
	}
	fmt.Fprintf(&sb, "* rules: %s\n", strings.Join(rules, ", "))

	entries, hits, top := p.sess.Demangler().Stats()
	if entries > 0 {
		fmt.Fprintf(&sb, "\n## Names\n\n%d demangled, %d cache hits\n\n", entries, hits)
		for _, name := range top {
			fmt.Fprintf(&sb, "* `%s`\n", name)
		}
	}
	return sb.String()
}
