package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"objgraph/internal/rebase"
)

const defaultEntry = "0x7154"

// Config is the configuration of one objgraph run, read from flags, the
// config file and OBJGRAPH_* environment variables.
type Config struct {
	Dump     string   `json:"dump" jsonschema:"title=Dump,description=Path to the objdump -d listing"`
	Symbols  string   `json:"symbols,omitempty" jsonschema:"title=Symbols,description=Path to the readelf -s listing"`
	ELF      string   `json:"elf,omitempty" jsonschema:"title=ELF,description=Firmware image read for symbols when no listing is given"`
	Entry    string   `json:"entry,omitempty" jsonschema:"title=Entry,description=Analysis address declared as the entry function,default=0x7154"`
	Rules    string   `json:"rules,omitempty" jsonschema:"title=Rules,description=Control-flow rule preset,enum=objgraph,enum=generic,default=objgraph"`
	Branches []string `json:"branch,omitempty" jsonschema:"title=Branch Mnemonics,description=Extra conditional branch mnemonics"`
	Returns  []string `json:"return,omitempty" jsonschema:"title=Return Mnemonics,description=Extra return mnemonics"`
	NoColor  bool     `json:"no-color,omitempty" jsonschema:"title=No Color,description=Disable colored output"`
	Debug    bool     `json:"debug,omitempty" jsonschema:"title=Debug,description=Enable debug logging"`
}

func configFromViper() Config {
	return Config{
		Dump:     viper.GetString("dump"),
		Symbols:  viper.GetString("symbols"),
		ELF:      viper.GetString("elf"),
		Entry:    viper.GetString("entry"),
		Rules:    viper.GetString("rules"),
		Branches: viper.GetStringSlice("branch"),
		Returns:  viper.GetStringSlice("return"),
		NoColor:  viper.GetBool("no-color"),
		Debug:    viper.GetBool("debug"),
	}
}

var errNoDump = errors.New("no dump given (--dump, dump: in the config file or OBJGRAPH_DUMP)")

// parseAddr reads a hex address with or without 0x. dump marks an address
// given in dump space, which is rebased into analysis space.
func parseAddr(s string, dump bool) (uint32, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	v, err := strconv.ParseUint(t, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if dump {
		return rebase.Checked(v, false)
	}
	if v > 0xffffffff {
		return 0, fmt.Errorf("address %q: %w", s, rebase.ErrOutOfRange)
	}
	return uint32(v), nil
}
