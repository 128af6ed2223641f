package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"objgraph/internal/objgraph/log"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "objgraph",
	Short: "Disassembly-dump architecture for firmware without a decoder",
	Long: heredoc.Doc(`
		objgraph turns the text listing of "objdump -d" and the symbol table of
		"readelf -s" into a decode service: instruction lengths, branch edges,
		operand tokens and recovered functions for an instruction set nothing
		else can disassemble.
	`),
	Example: heredoc.Doc(`
		# List every recovered function
		objgraph disasm --dump firmware.diss --symbols firmware.syms

		# Browse functions interactively, symbols read from the ELF image
		objgraph browse --dump firmware.diss --elf firmware.elf
	`),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.Setup(viper.GetBool("debug"))
		if viper.GetBool("no-color") || !term.IsTerminal(os.Stdout.Fd()) {
			os.Setenv("OBJGRAPH_NO_COLOR", "1")
		}
		if f := viper.ConfigFileUsed(); f != "" {
			slog.Debug("Using config file", "path", f)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Close()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/objgraph/config.yaml)")
	pf.String("dump", "", "objdump -d listing of the firmware")
	pf.String("symbols", "", "readelf -s listing of the firmware")
	pf.String("elf", "", "firmware ELF image, read for symbols when --symbols is not given")
	pf.String("entry", defaultEntry, "entry point declared as a function (empty to disable)")
	pf.String("rules", "objgraph", "control-flow rule preset (objgraph, generic)")
	pf.StringSlice("branch", nil, "extra conditional branch mnemonics")
	pf.StringSlice("return", nil, "extra return mnemonics")
	pf.BoolP("debug", "d", false, "Debug")
	pf.Bool("no-color", false, "disable colored output")

	for _, name := range []string{"dump", "symbols", "elf", "entry", "rules", "branch", "return", "debug", "no-color"} {
		viper.BindPFlag(name, pf.Lookup(name))
	}

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "objgraph"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("objgraph")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Error reading config file:", err)
	}
}

// Execute runs the root command. fang is used on a terminal; piped output
// goes through plain cobra so nothing is restyled.
func Execute() {
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
