package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"objgraph/internal/analysis"
	"objgraph/internal/detectors"
	"objgraph/internal/disasm"
	"objgraph/internal/objdump"
	"objgraph/internal/rebase"
	"objgraph/internal/ui/colorize"
)

var followCmd = &cobra.Command{
	Use:   "follow [dump]",
	Short: "Decode a dump listing as it is written",
	Long: `Tail an objdump listing and print every instruction record with its
decoded control flow. Non-record lines are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromViper()
		path := cfg.Dump
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return errNoDump
		}
		rules, err := detectors.Preset(cfg.Rules, cfg.Branches, cfg.Returns)
		if err != nil {
			return err
		}
		follow, _ := cmd.Flags().GetBool("follow")

		t, err := tail.TailFile(path, tail.Config{
			Follow:    follow,
			ReOpen:    follow,
			MustExist: true,
			Logger:    tail.DiscardingLogger,
		})
		if err != nil {
			return fmt.Errorf("tail %s: %w", path, err)
		}
		defer t.Cleanup()

		out := cmd.OutOrStdout()
		for {
			select {
			case <-cmd.Context().Done():
				return t.Stop()
			case line, ok := <-t.Lines:
				if !ok {
					return t.Wait()
				}
				if line.Err != nil {
					slog.Warn("Tail error", "error", line.Err)
					continue
				}
				followLine(out, rules, line.Text)
			}
		}
	},
}

func init() {
	followCmd.Flags().BoolP("follow", "f", true, "keep waiting for new lines")
	rootCmd.AddCommand(followCmd)
}

// followLine prints one dump line if it is an instruction record.
func followLine(out io.Writer, rules *analysis.RuleSet, text string) {
	inst, ok := objdump.ParseLine(text)
	if !ok {
		return
	}
	addr := rebase.Down(inst.VA)

	var comment string
	branches, err := rules.Classify(addr, inst)
	switch {
	case err != nil:
		comment = err.Error()
	case len(branches) > 0:
		comment = describeBranches(branches)
	}
	fmt.Fprintln(out, colorize.Line(fmt.Sprintf("%08x", addr), analysis.Tokenize(inst.Text), comment))
}

func describeBranches(branches []disasm.Branch) string {
	parts := make([]string, 0, len(branches))
	for _, b := range branches {
		if b.Kind == disasm.FunctionReturn {
			parts = append(parts, b.Kind.String())
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %#x", b.Kind, b.Target))
	}
	return strings.Join(parts, ", ")
}
