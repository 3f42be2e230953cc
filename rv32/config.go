package rv32

import (
	"fmt"

	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/rverrors"
)

const (
	DefaultStackAddr     = 0xFFFFF000
	DefaultCacheBits     = 10
	DefaultBlockCapacity = 1024

	maxCacheBits     = 20
	maxBlockCapacity = 1 << 16
)

// Config fixes the properties of a hart for its lifetime.
type Config struct {
	Extensions    isa.Extensions
	StackAddr     uint32 // initial sp after construction and Reset
	CacheBits     uint   // the block cache has 1<<CacheBits slots
	BlockCapacity int    // maximum instructions per block
}

func DefaultConfig() Config {
	return Config{
		Extensions:    isa.RV32GC,
		StackAddr:     DefaultStackAddr,
		CacheBits:     DefaultCacheBits,
		BlockCapacity: DefaultBlockCapacity,
	}
}

// Validate reports a sizing problem as an error wrapping rverrors.ErrConfiguration.
func (c Config) Validate() error {
	if c.CacheBits > maxCacheBits {
		return fmt.Errorf("cache bits %d exceeds %d: %w", c.CacheBits, maxCacheBits, rverrors.ErrConfiguration)
	}
	if c.BlockCapacity < 1 || c.BlockCapacity > maxBlockCapacity {
		return fmt.Errorf("block capacity %d outside [1, %d]: %w", c.BlockCapacity, maxBlockCapacity, rverrors.ErrConfiguration)
	}
	return nil
}
