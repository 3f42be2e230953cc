package isa

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/arch/riscv64/riscv64asm"
)

// Disassemble renders the instruction at pc in GNU assembler syntax. Words our
// decoder accepts are printed through riscv64asm, whose RV64 tables agree
// with RV32 for every 32-bit encoding we accept. Compressed forms use the
// expanded instruction since RV64C reuses some RV32C encodings. The returned
// length is the number of bytes consumed (2 or 4).
func Disassemble(pc uint32, word uint32, ext Extensions) (string, uint8) {
	in, err := Decode(pc, word, ext)
	if err != nil {
		if word&3 != 3 && ext.Has(ExtC) {
			return fmt.Sprintf(".2byte 0x%04x", word&0xffff), 2
		}
		return fmt.Sprintf(".4byte 0x%08x", word), 4
	}
	if in.Len == 2 {
		return in.String(), 2
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], word)
	inst, err := riscv64asm.Decode(buf[:])
	if err != nil {
		return in.String(), 4
	}
	return riscv64asm.GNUSyntax(inst), 4
}
