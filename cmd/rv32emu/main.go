// rv32emu runs flat RV32 images on the block-caching interpreter.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/colorfulnotion/rv32emu/config"
	"github.com/colorfulnotion/rv32emu/isa"
	log "github.com/colorfulnotion/rv32emu/log"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
)

type cliFlags struct {
	configPath string
	logLevel   string
	modules    string
	isa        string
	loadAddr   uint32
	entry      uint32
	maxCycles  uint64
	dumpCache  bool
}

// loadConfig applies explicitly set flags over the config file, or over the
// defaults when there is none. A positional image argument replaces [run] image.
func loadConfig(cmd *cobra.Command, args []string, f *cliFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}
	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return nil, err
		}
		cfg.Run.Image = abs
	}
	flags := cmd.Flags()
	if flags.Changed("isa") {
		cfg.Hart.Extensions = f.isa
	}
	if flags.Changed("load-addr") {
		cfg.Run.LoadAddr = f.loadAddr
		if !flags.Changed("entry") {
			cfg.Hart.Entry = f.loadAddr
		}
	}
	if flags.Changed("entry") {
		cfg.Hart.Entry = f.entry
	}
	if flags.Changed("max-cycles") {
		cfg.Run.MaxCycles = f.maxCycles
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if flags.Changed("debug") {
		cfg.Log.Modules = f.modules
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runImage runs the configured image to completion and returns the process
// exit code: the guest's exit status, 1 after an unhandled trap, 2 when the
// cycle budget runs out.
func runImage(cfg *config.Config, dumpCache bool, stdout, stderr io.Writer) (int, error) {
	if cfg.Run.Image == "" {
		return 0, fmt.Errorf("no image given")
	}
	m, err := newMachine(cfg, stdout, stderr)
	if err != nil {
		return 0, err
	}
	defer m.close()

	used := m.run(cfg.Run.MaxCycles)
	s := m.hart.CacheStats()
	log.Info(log.RvHost, "run finished", "used", used, "cycle", m.hart.Cycle(), "pc", fmt.Sprintf("0x%08x", m.hart.PC()),
		"blocks", s.Len, "hits", s.Hits, "misses", s.Misses, "evictions", s.Evictions)
	if dumpCache {
		fmt.Fprint(stderr, cacheTree(m.hart).String())
	}

	switch {
	case m.exited:
		return int(m.exitCode), nil
	case m.hart.HasHalted():
		if m.lastTrap != nil {
			fmt.Fprintf(stderr, "halted: %s\n", m.lastTrap)
		}
		return 1, nil
	default:
		fmt.Fprintf(stderr, "cycle budget %d exhausted at pc 0x%08x\n", cfg.Run.MaxCycles, m.hart.PC())
		return 2, nil
	}
}

// disasmImage prints a listing of the configured image at its load address.
func disasmImage(cfg *config.Config, w io.Writer) error {
	ext, err := isa.ParseExtensions(cfg.Hart.Extensions)
	if err != nil {
		return err
	}
	code, err := os.ReadFile(cfg.ImagePath())
	if err != nil {
		return err
	}
	disassemble(w, code, cfg.Run.LoadAddr, ext)
	return nil
}

func main() {
	var f cliFlags

	var rootCmd = &cobra.Command{
		Use:     "rv32emu",
		Short:   "RV32 emulator with a decoded-block cache",
		Version: fmt.Sprintf("%s (%s)", Version, Commit),
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var runCmd = &cobra.Command{
		Use:   "run [image]",
		Short: "Run a flat binary image until it exits",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig(cmd, args, &f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "❌ %v\n", err)
				os.Exit(1)
			}
			if err := cfg.ApplyLogging(); err != nil {
				fmt.Fprintf(os.Stderr, "❌ %v\n", err)
				os.Exit(1)
			}
			code, err := runImage(cfg, f.dumpCache, os.Stdout, os.Stderr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "❌ %v\n", err)
				os.Exit(1)
			}
			os.Exit(code)
		},
	}
	runCmd.Flags().BoolVar(&f.dumpCache, "dump-cache", false, "Print the block cache when the run ends")

	var debugCmd = &cobra.Command{
		Use:   "debug [image]",
		Short: "Interactive console: step, inspect registers and the block cache",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig(cmd, args, &f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "❌ %v\n", err)
				os.Exit(1)
			}
			if err := cfg.ApplyLogging(); err != nil {
				fmt.Fprintf(os.Stderr, "❌ %v\n", err)
				os.Exit(1)
			}
			m, err := newMachine(cfg, os.Stdout, os.Stderr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "❌ %v\n", err)
				os.Exit(1)
			}
			defer m.close()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:      "rv32> ",
				HistoryFile: filepath.Join(os.TempDir(), "rv32emu_history.txt"),
			})
			if err != nil {
				fmt.Println("❌ Failed to start readline:", err)
				return
			}
			defer rl.Close()

			fmt.Printf("%s at 0x%08x, type help for commands\n", m.hart.Extensions(), m.hart.PC())
			c := &console{m: m, out: rl.Stdout()}
			if err := c.loop(rl); err != nil {
				fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			}
		},
	}

	var disasmCmd = &cobra.Command{
		Use:   "disasm <image>",
		Short: "Disassemble a flat binary image",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig(cmd, args, &f)
			if err != nil {
				fmt.Fprintf(os.Stderr, "❌ %v\n", err)
				os.Exit(1)
			}
			if err := disasmImage(cfg, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "❌ %v\n", err)
				os.Exit(1)
			}
		},
	}

	for _, cmd := range []*cobra.Command{runCmd, debugCmd, disasmCmd} {
		cmd.Flags().StringVar(&f.isa, "isa", "rv32gc", "ISA string, e.g. rv32imac_zicsr")
		cmd.Flags().Uint32Var(&f.loadAddr, "load-addr", config.DefaultLoadAddr, "Address the image is loaded at")
	}
	for _, cmd := range []*cobra.Command{runCmd, debugCmd} {
		cmd.Flags().Uint32Var(&f.entry, "entry", config.DefaultLoadAddr, "Initial pc (defaults to the load address)")
		cmd.Flags().Uint64Var(&f.maxCycles, "max-cycles", 0, "Stop after this many budget units (0 = no limit)")
	}

	rootCmd.PersistentFlags().StringVar(&f.configPath, "config", "", "Machine description (TOML)")
	rootCmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&f.modules, "debug", "", "Debug modules to enable (rv_exec,rv_cache,rv_decode,rv_host or all)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(disasmCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
