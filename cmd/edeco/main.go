package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"edeco/internal/config"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

// common flags, bound per subcommand and applied over the config file.
type inputFlags struct {
	arch   string
	format string
	mode   string
	steps  int
}

func (f *inputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.arch, "arch", "", "instruction set: arm64, x86-64, fuc, xtensa (default: from ELF header)")
	cmd.Flags().StringVar(&f.format, "format", "", "input format: elf, objdump, envydis")
	cmd.Flags().StringVar(&f.mode, "mode", "", "strict or best-effort")
	cmd.Flags().IntVar(&f.steps, "max-steps", 0, "path-enumeration budget per function (negative: unlimited)")
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, log: zerolog.Nop()}
	var (
		cfgPath  string
		logLevel string
	)

	root := &cobra.Command{
		Use:   "edeco",
		Short: "Control-flow structuring for disassembled functions",
		Long: `edeco rebuilds the nesting of a function's control flow (chains,
loops, meshes and bulges) from an ELF executable or a text listing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.log = zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).
				Level(cfg.Level()).
				With().Timestamp().Logger()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newStructureCmd(a),
		newBoundsCmd(a),
		newEntriesCmd(a),
		newGraphCmd(a),
		newDisasmCmd(a),
	)
	return root
}

// apply overlays explicitly set flags on the loaded config.
func (a *app) apply(f *inputFlags) error {
	if f.arch != "" {
		a.cfg.Arch = f.arch
	}
	if f.format != "" {
		a.cfg.Format = f.format
	}
	if f.mode != "" {
		a.cfg.Mode = config.Mode(f.mode)
	}
	if f.steps != 0 {
		a.cfg.MaxSteps = f.steps
	}
	return a.cfg.Validate()
}
