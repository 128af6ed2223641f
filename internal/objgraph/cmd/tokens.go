package cmd

import (
	"fmt"
	"io"
	"iter"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"objgraph/internal/disasm"
	"objgraph/internal/ui/colorize"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens <addr>",
	Short: "Show the operand tokens of one instruction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dumpAddr, _ := cmd.Flags().GetBool("dump-addr")
		addr, err := parseAddr(args[0], dumpAddr)
		if err != nil {
			return err
		}

		p, err := openProject(configFromViper())
		if err != nil {
			return err
		}
		toks, err := p.sess.Tokens(addr)
		if err != nil {
			return err
		}
		return writeTokens(cmd.OutOrStdout(), addr, toks)
	},
}

func init() {
	tokensCmd.Flags().Bool("dump-addr", false, "address argument is in dump space")
	rootCmd.AddCommand(tokensCmd)
}

func writeTokens(out io.Writer, addr uint32, toks iter.Seq[disasm.Token]) error {
	fmt.Fprintln(out, colorize.Line(fmt.Sprintf("%08x", addr), toks, ""))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for tok := range toks {
		switch tok.Kind {
		case disasm.IntegerToken, disasm.CrossRefToken:
			fmt.Fprintf(tw, "%s\t%q\t%#x\n", tok.Kind, tok.Text, tok.Value)
		default:
			fmt.Fprintf(tw, "%s\t%q\t\n", tok.Kind, tok.Text)
		}
	}
	return tw.Flush()
}
