package rv32

import (
	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/log"
)

// buildBlock decodes instructions from pc until a control transfer, the
// block capacity, or an undecodable word. An undecodable word is left out of
// the block so it is decoded again, and trapped on, when execution reaches
// it. When the very first word fails the error is returned with no block.
func (h *Hart) buildBlock(pc uint32) (*Block, error) {
	ext := h.cfg.Extensions
	b := &Block{PC: pc, Insns: make([]isa.Instruction, 0, 8)}
	addr := pc
	for len(b.Insns) < h.cfg.BlockCapacity {
		in, err := isa.Decode(addr, h.io.Fetch(h, addr), ext)
		if err != nil {
			if len(b.Insns) == 0 {
				return nil, err
			}
			break
		}
		b.Insns = append(b.Insns, in)
		addr += uint32(in.Len)
		if in.IsControlTransfer() {
			b.Terminal = true
			break
		}
	}
	b.End = addr
	b.Insns = b.Insns[:len(b.Insns):len(b.Insns)]
	log.Trace(log.RvDecode, "block built", "pc", pc, "insns", len(b.Insns), "terminal", b.Terminal)
	return b, nil
}

// blockAt returns the cached block at pc, building and inserting it on a miss.
func (h *Hart) blockAt(pc uint32) (*Block, error) {
	if b := h.cache.Lookup(pc); b != nil {
		return b, nil
	}
	b, err := h.buildBlock(pc)
	if err != nil {
		return nil, err
	}
	h.cache.Insert(b)
	return b, nil
}
