package rv32

import (
	"testing"

	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collidingPC(c *BlockCache, pc uint32) uint32 {
	for other := pc + 2; ; other += 2 {
		if c.slot(other) == c.slot(pc) {
			return other
		}
	}
}

func TestCacheEviction(t *testing.T) {
	c := NewBlockCache(4)
	a := &Block{PC: 0x1000, End: 0x1004}
	b := &Block{PC: collidingPC(c, a.PC)}
	b.End = b.PC + 4

	assert.Nil(t, c.Insert(a))
	assert.Same(t, a, c.Lookup(a.PC))

	assert.Same(t, a, c.Insert(b))
	assert.Nil(t, c.Lookup(a.PC), "evicted block is gone")
	assert.Same(t, b, c.Lookup(b.PC))

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Evictions)
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, 1, s.Len)
	assert.Equal(t, 16, s.Capacity)
}

func TestCacheTagCheck(t *testing.T) {
	c := NewBlockCache(0)
	c.Insert(&Block{PC: 0x40})
	assert.Nil(t, c.Lookup(0x44), "single slot still checks the start address")
	assert.NotNil(t, c.Lookup(0x40))
}

func TestCacheClearAndBlocks(t *testing.T) {
	c := NewBlockCache(6)
	for _, pc := range []uint32{0x3000, 0x1000, 0x2000} {
		c.Insert(&Block{PC: pc})
	}
	blocks := c.Blocks()
	require.Len(t, blocks, c.Len())
	for i := 1; i < len(blocks); i++ {
		assert.Less(t, blocks[i-1].PC, blocks[i].PC)
	}

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Blocks())
	assert.Nil(t, c.Lookup(0x1000))
	assert.Equal(t, uint64(1), c.Stats().Clears)
}

// A program whose two blocks share a slot keeps running correctly while the
// blocks evict each other.
func TestHartEvictionThrashing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheBits = 0
	h, _ := newMachine(t, isa.RV32GC,
		addi(1, 1, 1),
		jal(0, 4),
		addi(3, 3, 1),
		jal(0, -12),
	)
	// rebuild with a one-slot cache over the same IO
	h2, err := NewWithConfig(h.io, nil, cfg)
	require.NoError(t, err)
	defer h2.Close()
	require.True(t, h2.SetPC(progBase))

	h2.Run(40)
	assert.Equal(t, uint32(10), h2.Register(1))
	assert.Equal(t, uint32(10), h2.Register(3))
	s := h2.CacheStats()
	assert.Equal(t, 1, s.Len)
	assert.Equal(t, uint64(19), s.Evictions)
	assert.Equal(t, uint64(20), s.Misses)
}
