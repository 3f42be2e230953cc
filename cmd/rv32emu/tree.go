package main

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/rv32"
	"github.com/xlab/treeprint"
)

// cacheTree renders the block cache with one branch per block.
func cacheTree(h *rv32.Hart) treeprint.Tree {
	s := h.CacheStats()
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("\033[1;34mblock cache\033[0m %d/%d slots, \033[1;32mhits %d\033[0m, \033[1;33mmisses %d\033[0m, evictions %d, clears %d",
		s.Len, s.Capacity, s.Hits, s.Misses, s.Evictions, s.Clears))
	ext := h.Extensions()
	for _, b := range h.CachedBlocks() {
		var branch treeprint.Tree
		if b.Terminal {
			branch = tree.AddMetaBranch("terminal", b.String())
		} else {
			branch = tree.AddBranch(b.String())
		}
		for i := range b.Insns {
			in := &b.Insns[i]
			text, _ := isa.Disassemble(in.PC, in.Raw, ext)
			branch.AddNode(fmt.Sprintf("%08x: %s", in.PC, text))
		}
	}
	return tree
}

// disassemble prints a linear listing of code starting at pc.
func disassemble(w io.Writer, code []byte, pc uint32, ext isa.Extensions) {
	for off := 0; off < len(code); {
		var buf [4]byte
		copy(buf[:], code[off:])
		word := binary.LittleEndian.Uint32(buf[:])
		text, n := isa.Disassemble(pc, word, ext)
		if n == 2 {
			fmt.Fprintf(w, "%08x:     %04x  %s\n", pc, word&0xffff, text)
		} else {
			fmt.Fprintf(w, "%08x: %08x  %s\n", pc, word, text)
		}
		off += int(n)
		pc += uint32(n)
	}
}
