package rv32

import (
	"fmt"

	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/log"
	"golang.org/x/exp/slices"
)

// Block is a run of decoded instructions starting at PC. It ends with its
// single control-transfer instruction when Terminal is set, otherwise it
// falls through to End.
type Block struct {
	PC       uint32
	End      uint32 // address after the last instruction
	Insns    []isa.Instruction
	Terminal bool
}

func (b *Block) String() string {
	return fmt.Sprintf("block 0x%08x-0x%08x (%d insns)", b.PC, b.End, len(b.Insns))
}

// CacheStats counts block cache activity since construction.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Clears    uint64
	Len       int
	Capacity  int
}

// BlockCache is a direct-mapped cache of blocks keyed by start address. A
// colliding insert overwrites the slot.
type BlockCache struct {
	slots []*Block
	mask  uint32
	used  int
	stats CacheStats
}

// NewBlockCache returns an empty cache with 1<<bits slots.
func NewBlockCache(bits uint) *BlockCache {
	n := 1 << bits
	return &BlockCache{
		slots: make([]*Block, n),
		mask:  uint32(n - 1),
	}
}

// slot hashes pc with two xor-shifts before masking so nearby block
// addresses spread across the table.
func (c *BlockCache) slot(pc uint32) uint32 {
	k := pc
	k ^= k << 21
	k ^= k >> 17
	return k & c.mask
}

// Lookup returns the block starting at pc, or nil.
func (c *BlockCache) Lookup(pc uint32) *Block {
	b := c.slots[c.slot(pc)]
	if b != nil && b.PC == pc {
		c.stats.Hits++
		return b
	}
	c.stats.Misses++
	return nil
}

// Insert stores b in its slot and returns the block it displaced, if any.
func (c *BlockCache) Insert(b *Block) *Block {
	i := c.slot(b.PC)
	old := c.slots[i]
	c.slots[i] = b
	if old == nil {
		c.used++
		return nil
	}
	c.stats.Evictions++
	log.Trace(log.RvBlockCache, "evict", "slot", i, "old", old.PC, "new", b.PC)
	return old
}

// Clear empties every slot.
func (c *BlockCache) Clear() {
	if c.used > 0 {
		log.Debug(log.RvBlockCache, "clear", "blocks", c.used)
	}
	clear(c.slots)
	c.used = 0
	c.stats.Clears++
}

func (c *BlockCache) Len() int { return c.used }

func (c *BlockCache) Capacity() int { return len(c.slots) }

func (c *BlockCache) Stats() CacheStats {
	s := c.stats
	s.Len = c.used
	s.Capacity = len(c.slots)
	return s
}

// Blocks returns the occupied slots ordered by start address.
func (c *BlockCache) Blocks() []*Block {
	out := make([]*Block, 0, c.used)
	for _, b := range c.slots {
		if b != nil {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b *Block) int {
		switch {
		case a.PC < b.PC:
			return -1
		case a.PC > b.PC:
			return 1
		}
		return 0
	})
	return out
}
