package isa

// Instruction word builders. Register fields are masked to five bits and
// immediates are truncated to their field width.

func EncodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return funct7<<25 | (rs2&0x1f)<<20 | (rs1&0x1f)<<15 | (funct3&7)<<12 | (rd&0x1f)<<7 | opcode&0x7f
}

func EncodeR4(opcode, rd, rm, rs1, rs2, rs3 uint32) uint32 {
	return (rs3&0x1f)<<27 | EncodeR(opcode, rd, rm, rs1, rs2, 0)
}

func EncodeI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return uint32(imm)<<20 | (rs1&0x1f)<<15 | (funct3&7)<<12 | (rd&0x1f)<<7 | opcode&0x7f
}

func EncodeS(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7f)<<25 | (rs2&0x1f)<<20 | (rs1&0x1f)<<15 | (funct3&7)<<12 | (u&0x1f)<<7 | opcode&0x7f
}

func EncodeB(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return (u>>12&1)<<31 | (u>>5&0x3f)<<25 | (rs2&0x1f)<<20 | (rs1&0x1f)<<15 |
		(funct3&7)<<12 | (u>>1&0xf)<<8 | (u>>11&1)<<7 | OpcodeBranch
}

// EncodeU takes the full 32-bit value whose upper 20 bits form the immediate.
func EncodeU(opcode, rd uint32, imm int32) uint32 {
	return uint32(imm)&0xfffff000 | (rd&0x1f)<<7 | opcode&0x7f
}

func EncodeJ(rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return (u>>20&1)<<31 | (u>>1&0x3ff)<<21 | (u>>11&1)<<20 | (u>>12&0xff)<<12 | (rd&0x1f)<<7 | OpcodeJal
}
