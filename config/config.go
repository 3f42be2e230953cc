// Package config handles the TOML machine description read by the rv32emu
// tools.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/log"
	"github.com/colorfulnotion/rv32emu/rv32"
	"github.com/colorfulnotion/rv32emu/rverrors"
)

const (
	DefaultLoadAddr = 0x80000000
	DefaultSlice    = 1 << 20
)

// Config is a machine description.
//
//	[hart]
//	extensions = "rv32gc"
//	stack = 0xFFFFF000
//	entry = 0x80000000
//
//	[cache]
//	bits = 10
//	block_capacity = 1024
//
//	[log]
//	level = "info"
//	modules = "rv_exec,rv_host"
//
//	[run]
//	image = "prog.bin"
//	load_addr = 0x80000000
//	max_cycles = 0
//	slice = 1048576
type Config struct {
	Hart  Hart  `toml:"hart"`
	Cache Cache `toml:"cache"`
	Log   Log   `toml:"log"`
	Run   Run   `toml:"run"`

	// Dir is the directory of the loaded file; relative image paths resolve
	// against it.
	Dir string `toml:"-"`
}

type Hart struct {
	Extensions string `toml:"extensions"`
	Stack      uint32 `toml:"stack"`
	Entry      uint32 `toml:"entry"`
}

type Cache struct {
	Bits          uint `toml:"bits"`
	BlockCapacity int  `toml:"block_capacity"`
}

type Log struct {
	Level   string `toml:"level"`
	Modules string `toml:"modules"`
}

// Run controls the host loop. MaxCycles of zero runs until the guest exits
// or halts; Slice is the budget handed to each Hart.Run call.
type Run struct {
	Image     string `toml:"image"`
	LoadAddr  uint32 `toml:"load_addr"`
	MaxCycles uint64 `toml:"max_cycles"`
	Slice     uint64 `toml:"slice"`
}

func Default() *Config {
	return &Config{
		Hart: Hart{
			Extensions: "rv32gc",
			Stack:      rv32.DefaultStackAddr,
			Entry:      DefaultLoadAddr,
		},
		Cache: Cache{
			Bits:          rv32.DefaultCacheBits,
			BlockCapacity: rv32.DefaultBlockCapacity,
		},
		Log: Log{Level: "info"},
		Run: Run{
			LoadAddr: DefaultLoadAddr,
			Slice:    DefaultSlice,
		},
		Dir: ".",
	}
}

// Load reads path over the defaults. Syntax errors and unknown keys wrap
// rverrors.ErrInvalidConfig; bad values wrap rverrors.ErrConfiguration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w: %w", path, rverrors.ErrInvalidConfig, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s: %w", path, strings.Join(keys, ", "), rverrors.ErrInvalidConfig)
	}
	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	hc, err := c.HartConfig()
	if err != nil {
		return err
	}
	if align := hc.Extensions.InstructionAlign(); c.Hart.Entry%align != 0 {
		return fmt.Errorf("entry 0x%08x not %d-byte aligned: %w", c.Hart.Entry, align, rverrors.ErrConfiguration)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Run.Slice == 0 {
		return fmt.Errorf("run slice must be positive: %w", rverrors.ErrConfiguration)
	}
	return nil
}

// HartConfig converts the hart and cache sections for rv32.NewWithConfig.
func (c *Config) HartConfig() (rv32.Config, error) {
	ext, err := isa.ParseExtensions(c.Hart.Extensions)
	if err != nil {
		return rv32.Config{}, err
	}
	hc := rv32.Config{
		Extensions:    ext,
		StackAddr:     c.Hart.Stack,
		CacheBits:     c.Cache.Bits,
		BlockCapacity: c.Cache.BlockCapacity,
	}
	if err := hc.Validate(); err != nil {
		return rv32.Config{}, err
	}
	return hc, nil
}

func (c *Config) LogLevel() (slog.Level, error) {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", err, rverrors.ErrConfiguration)
	}
	return lvl, nil
}

// ApplyLogging installs a terminal logger at the configured level and enables
// the configured modules.
func (c *Config) ApplyLogging() error {
	lvl, err := c.LogLevel()
	if err != nil {
		return err
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, false)))
	log.EnableModules(c.Log.Modules)
	return nil
}

// ImagePath resolves the run image against Dir.
func (c *Config) ImagePath() string {
	if c.Run.Image == "" || filepath.IsAbs(c.Run.Image) {
		return c.Run.Image
	}
	return filepath.Join(c.Dir, c.Run.Image)
}
