package isa

import "github.com/colorfulnotion/rv32emu/rverrors"

// extD marks double-precision encodings. No hart ever enables it, so these
// decode as UnsupportedExtension rather than IllegalInstruction.
const extD Extensions = 1 << 31

// Decode decodes the instruction at pc whose first bytes are word (little
// endian, as returned by a 32-bit fetch). With C enabled, a word whose low two
// bits are not 11 is a 16-bit compressed instruction and only its low half is
// consumed. Without C every fetch is a full 32-bit word, so such a word is
// reported whole with length 4.
func Decode(pc uint32, word uint32, ext Extensions) (Instruction, error) {
	if word&3 != 3 {
		if !ext.Has(ExtC) {
			return Instruction{}, unsupported(pc, word, 4, ExtC)
		}
		return decodeCompressed(pc, word&0xffff, ext)
	}
	return decode32(pc, word, ext)
}

func illegal(pc, raw uint32, n uint8) error {
	return &DecodeError{Err: rverrors.ErrIllegalInstruction, PC: pc, Raw: raw, Len: n}
}

func unsupported(pc, raw uint32, n uint8, req Extensions) error {
	return &DecodeError{Err: rverrors.ErrUnsupportedExtension, PC: pc, Raw: raw, Len: n, Required: req}
}

// field extraction
func rd(w uint32) uint8      { return uint8(w>>7) & 0x1f }
func rs1(w uint32) uint8     { return uint8(w>>15) & 0x1f }
func rs2(w uint32) uint8     { return uint8(w>>20) & 0x1f }
func rs3(w uint32) uint8     { return uint8(w>>27) & 0x1f }
func funct3(w uint32) uint32 { return (w >> 12) & 7 }
func funct7(w uint32) uint32 { return w >> 25 }

func immI(w uint32) int32 { return int32(w) >> 20 }
func immS(w uint32) int32 { return (int32(w)>>25)<<5 | int32((w>>7)&0x1f) }
func immU(w uint32) int32 { return int32(w & 0xfffff000) }

func immB(w uint32) int32 {
	v := (w>>31)&1<<12 | (w>>7)&1<<11 | (w>>25)&0x3f<<5 | (w>>8)&0xf<<1
	return signExtend(v, 13)
}

func immJ(w uint32) int32 {
	v := (w>>31)&1<<20 | (w>>12)&0xff<<12 | (w>>20)&1<<11 | (w>>21)&0x3ff<<1
	return signExtend(v, 21)
}

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

func decode32(pc, w uint32, ext Extensions) (Instruction, error) {
	in := Instruction{PC: pc, Raw: w, Len: 4, Rd: rd(w), Rs1: rs1(w), Rs2: rs2(w)}
	f3 := funct3(w)
	f7 := funct7(w)

	switch w & 0x7f {
	case OpcodeLui:
		in.Op, in.Imm = LUI, immU(w)
	case OpcodeAuipc:
		in.Op, in.Imm = AUIPC, immU(w)
	case OpcodeJal:
		in.Op, in.Imm = JAL, immJ(w)
	case OpcodeJalr:
		if f3 != 0 {
			return Instruction{}, illegal(pc, w, 4)
		}
		in.Op, in.Imm = JALR, immI(w)
	case OpcodeBranch:
		ops := [8]Op{BEQ, BNE, ILLEGAL, ILLEGAL, BLT, BGE, BLTU, BGEU}
		in.Op, in.Imm = ops[f3], immB(w)
	case OpcodeLoad:
		ops := [8]Op{LB, LH, LW, ILLEGAL, LBU, LHU, ILLEGAL, ILLEGAL}
		in.Op, in.Imm = ops[f3], immI(w)
	case OpcodeStore:
		ops := [8]Op{SB, SH, SW}
		in.Op, in.Imm = ops[f3], immS(w)
	case OpcodeOpImm:
		in.Imm = immI(w)
		switch f3 {
		case 0:
			in.Op = ADDI
		case 2:
			in.Op = SLTI
		case 3:
			in.Op = SLTIU
		case 4:
			in.Op = XORI
		case 6:
			in.Op = ORI
		case 7:
			in.Op = ANDI
		case 1:
			if f7 == 0 {
				in.Op, in.Imm = SLLI, int32(in.Rs2)
			}
		case 5:
			switch f7 {
			case 0x00:
				in.Op, in.Imm = SRLI, int32(in.Rs2)
			case 0x20:
				in.Op, in.Imm = SRAI, int32(in.Rs2)
			}
		}
	case OpcodeOp:
		switch f7 {
		case 0x00:
			in.Op = [8]Op{ADD, SLL, SLT, SLTU, XOR, SRL, OR, AND}[f3]
		case 0x20:
			switch f3 {
			case 0:
				in.Op = SUB
			case 5:
				in.Op = SRA
			}
		case 0x01:
			if !ext.Has(ExtM) {
				return Instruction{}, unsupported(pc, w, 4, ExtM)
			}
			in.Op = [8]Op{MUL, MULH, MULHSU, MULHU, DIV, DIVU, REM, REMU}[f3]
		}
	case OpcodeMiscMem:
		switch f3 {
		case 0:
			in.Op, in.Rm = FENCE, uint8(w>>20)
		case 1:
			if !ext.Has(ExtZifencei) {
				return Instruction{}, unsupported(pc, w, 4, ExtZifencei)
			}
			in.Op = FENCE_I
		}
	case OpcodeSystem:
		return decodeSystem(in, w, ext)
	case OpcodeAmo:
		return decodeAtomic(in, w, ext)
	case OpcodeLoadFP, OpcodeStoreFP, OpcodeMadd, OpcodeMsub, OpcodeNmsub, OpcodeNmadd, OpcodeOpFP:
		return decodeFloat(in, w, ext)
	}

	if in.Op == ILLEGAL {
		return Instruction{}, illegal(pc, w, 4)
	}
	in.Flow = in.Op.Flow()
	in.clearUnused()
	return in, nil
}

// clearUnused zeroes register fields whose bits belong to an immediate or
// a function code in op's encoding, so equal instructions compare equal.
func (in *Instruction) clearUnused() {
	switch opTable[in.Op].format {
	case fmtU, fmtJ:
		in.Rs1, in.Rs2 = 0, 0
	case fmtJalr, fmtLoad, fmtI, fmtFLoad, fmtFF, fmtXF, fmtFX:
		in.Rs2 = 0
	case fmtB, fmtStore, fmtFStore:
		in.Rd = 0
	case fmtNone:
		in.Rd, in.Rs1, in.Rs2 = 0, 0, 0
	}
}

func decodeSystem(in Instruction, w uint32, ext Extensions) (Instruction, error) {
	f3 := funct3(w)
	if f3 == 0 {
		switch w {
		case 0x00000073:
			in.Op = ECALL
		case 0x00100073:
			in.Op = EBREAK
		case 0x30200073:
			in.Op = MRET
		case 0x10500073:
			in.Op = WFI
		default:
			return Instruction{}, illegal(in.PC, w, 4)
		}
		in.Rd, in.Rs1, in.Rs2 = 0, 0, 0
		in.Flow = in.Op.Flow()
		return in, nil
	}
	if f3 == 4 {
		return Instruction{}, illegal(in.PC, w, 4)
	}
	if !ext.Has(ExtZicsr) {
		return Instruction{}, unsupported(in.PC, w, 4, ExtZicsr)
	}
	in.Op = [8]Op{ILLEGAL, CSRRW, CSRRS, CSRRC, ILLEGAL, CSRRWI, CSRRSI, CSRRCI}[f3]
	in.Imm = int32(w >> 20)
	in.Rs2 = 0
	in.Flow = SEQUENTIAL
	return in, nil
}

func decodeAtomic(in Instruction, w uint32, ext Extensions) (Instruction, error) {
	if !ext.Has(ExtA) {
		return Instruction{}, unsupported(in.PC, w, 4, ExtA)
	}
	if funct3(w) != 2 {
		// .D forms belong to RV64A
		return Instruction{}, illegal(in.PC, w, 4)
	}
	in.Rm = uint8(w>>25) & 3
	switch w >> 27 {
	case 0x02:
		if in.Rs2 != 0 {
			return Instruction{}, illegal(in.PC, w, 4)
		}
		in.Op = LR_W
	case 0x03:
		in.Op = SC_W
	case 0x01:
		in.Op = AMOSWAP_W
	case 0x00:
		in.Op = AMOADD_W
	case 0x04:
		in.Op = AMOXOR_W
	case 0x0c:
		in.Op = AMOAND_W
	case 0x08:
		in.Op = AMOOR_W
	case 0x10:
		in.Op = AMOMIN_W
	case 0x14:
		in.Op = AMOMAX_W
	case 0x18:
		in.Op = AMOMINU_W
	case 0x1c:
		in.Op = AMOMAXU_W
	default:
		return Instruction{}, illegal(in.PC, w, 4)
	}
	in.Flow = SEQUENTIAL
	return in, nil
}

func decodeFloat(in Instruction, w uint32, ext Extensions) (Instruction, error) {
	if !ext.Has(ExtF) {
		return Instruction{}, unsupported(in.PC, w, 4, ExtF)
	}
	f3 := funct3(w)
	f7 := funct7(w)
	in.Rm = uint8(f3)

	switch w & 0x7f {
	case OpcodeLoadFP:
		switch f3 {
		case 2:
			in.Op, in.Imm = FLW, immI(w)
		case 3:
			return Instruction{}, unsupported(in.PC, w, 4, extD)
		}
	case OpcodeStoreFP:
		switch f3 {
		case 2:
			in.Op, in.Imm = FSW, immS(w)
		case 3:
			return Instruction{}, unsupported(in.PC, w, 4, extD)
		}
	case OpcodeMadd, OpcodeMsub, OpcodeNmsub, OpcodeNmadd:
		switch (w >> 25) & 3 {
		case 0:
			in.Rs3 = rs3(w)
			in.Op = [4]Op{FMADD_S, FMSUB_S, FNMSUB_S, FNMADD_S}[(w>>2)&3]
		case 1:
			return Instruction{}, unsupported(in.PC, w, 4, extD)
		}
	case OpcodeOpFP:
		if f7&3 == 1 {
			return Instruction{}, unsupported(in.PC, w, 4, extD)
		}
		in.Op = decodeOpFP(f7, f3, in.Rs2)
	}

	if in.Op == ILLEGAL {
		return Instruction{}, illegal(in.PC, w, 4)
	}
	if in.Op.UsesRoundingMode() && (in.Rm == 5 || in.Rm == 6) {
		return Instruction{}, illegal(in.PC, w, 4)
	}
	if !in.Op.UsesRoundingMode() {
		in.Rm = 0
	}
	in.Flow = SEQUENTIAL
	in.clearUnused()
	return in, nil
}

func decodeOpFP(f7, f3 uint32, r2 uint8) Op {
	switch f7 {
	case 0x00:
		return FADD_S
	case 0x04:
		return FSUB_S
	case 0x08:
		return FMUL_S
	case 0x0c:
		return FDIV_S
	case 0x2c:
		if r2 == 0 {
			return FSQRT_S
		}
	case 0x10:
		switch f3 {
		case 0:
			return FSGNJ_S
		case 1:
			return FSGNJN_S
		case 2:
			return FSGNJX_S
		}
	case 0x14:
		switch f3 {
		case 0:
			return FMIN_S
		case 1:
			return FMAX_S
		}
	case 0x60:
		switch r2 {
		case 0:
			return FCVT_W_S
		case 1:
			return FCVT_WU_S
		}
	case 0x70:
		if r2 != 0 {
			break
		}
		switch f3 {
		case 0:
			return FMV_X_W
		case 1:
			return FCLASS_S
		}
	case 0x50:
		switch f3 {
		case 0:
			return FLE_S
		case 1:
			return FLT_S
		case 2:
			return FEQ_S
		}
	case 0x68:
		switch r2 {
		case 0:
			return FCVT_S_W
		case 1:
			return FCVT_S_WU
		}
	case 0x78:
		if r2 == 0 && f3 == 0 {
			return FMV_W_X
		}
	}
	return ILLEGAL
}
