package isa

import (
	"errors"

	"github.com/colorfulnotion/rv32emu/rverrors"
)

// 16-bit field extraction. Primed registers (rd', rs1', rs2') map x8-x15.
func cFunct3(h uint32) uint32 { return (h >> 13) & 7 }
func cRdP(h uint32) uint32    { return (h>>2)&7 + 8 }
func cRs1P(h uint32) uint32   { return (h>>7)&7 + 8 }
func cRd(h uint32) uint32     { return (h >> 7) & 0x1f }
func cRs2(h uint32) uint32    { return (h >> 2) & 0x1f }

// six-bit signed immediate imm[5|4:0] = h[12|6:2]
func cImm6(h uint32) int32 {
	return signExtend((h>>12&1)<<5|(h>>2)&0x1f, 6)
}

// decodeCompressed expands a 16-bit encoding into its 32-bit equivalent and
// decodes that. The result keeps the compressed PC, raw bits and length.
func decodeCompressed(pc, h uint32, ext Extensions) (Instruction, error) {
	w, err := expandCompressed(h)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.PC = pc
		}
		return Instruction{}, err
	}
	in, err := decode32(pc, w, ext)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Raw, de.Len = h, 2
		}
		return Instruction{}, err
	}
	in.Raw = h
	in.Len = 2
	return in, nil
}

func cIllegal(h uint32) (uint32, error) {
	return 0, &DecodeError{Err: rverrors.ErrIllegalInstruction, Raw: h, Len: 2}
}

func cNeedsD(h uint32) (uint32, error) {
	return 0, &DecodeError{Err: rverrors.ErrUnsupportedExtension, Raw: h, Len: 2, Required: extD}
}

// expandCompressed maps an RV32C instruction onto the RV32 word it abbreviates.
func expandCompressed(h uint32) (uint32, error) {
	switch h & 3 {
	case 0:
		return expandQ0(h)
	case 1:
		return expandQ1(h)
	case 2:
		return expandQ2(h)
	}
	return cIllegal(h)
}

func expandQ0(h uint32) (uint32, error) {
	// uimm[5:3|2|6] = h[12:10|6|5] for the word-sized forms
	wordOff := int32((h>>6&1)<<2 | (h>>10&7)<<3 | (h>>5&1)<<6)

	switch cFunct3(h) {
	case 0: // C.ADDI4SPN
		imm := (h>>6&1)<<2 | (h>>5&1)<<3 | (h>>11&3)<<4 | (h>>7&0xf)<<6
		if imm == 0 {
			return cIllegal(h)
		}
		return EncodeI(OpcodeOpImm, cRdP(h), 0, 2, int32(imm)), nil
	case 1, 5: // C.FLD, C.FSD
		return cNeedsD(h)
	case 2: // C.LW
		return EncodeI(OpcodeLoad, cRdP(h), 2, cRs1P(h), wordOff), nil
	case 3: // C.FLW
		return EncodeI(OpcodeLoadFP, cRdP(h), 2, cRs1P(h), wordOff), nil
	case 6: // C.SW
		return EncodeS(OpcodeStore, 2, cRs1P(h), cRdP(h), wordOff), nil
	case 7: // C.FSW
		return EncodeS(OpcodeStoreFP, 2, cRs1P(h), cRdP(h), wordOff), nil
	}
	return cIllegal(h)
}

func expandQ1(h uint32) (uint32, error) {
	rd := cRd(h)
	switch cFunct3(h) {
	case 0: // C.NOP, C.ADDI
		return EncodeI(OpcodeOpImm, rd, 0, rd, cImm6(h)), nil
	case 1: // C.JAL
		return EncodeJ(1, cJumpOffset(h)), nil
	case 2: // C.LI
		return EncodeI(OpcodeOpImm, rd, 0, 0, cImm6(h)), nil
	case 3:
		if rd == 2 { // C.ADDI16SP
			// nzimm[9|4|6|8:7|5] = h[12|6|5|4:3|2]
			v := (h>>12&1)<<9 | (h>>6&1)<<4 | (h>>5&1)<<6 | (h>>3&3)<<7 | (h>>2&1)<<5
			if v == 0 {
				return cIllegal(h)
			}
			return EncodeI(OpcodeOpImm, 2, 0, 2, signExtend(v, 10)), nil
		}
		// C.LUI
		imm := cImm6(h)
		if imm == 0 {
			return cIllegal(h)
		}
		return EncodeU(OpcodeLui, rd, imm<<12), nil
	case 4:
		return expandQ1Arith(h)
	case 5: // C.J
		return EncodeJ(0, cJumpOffset(h)), nil
	case 6, 7: // C.BEQZ, C.BNEZ
		// offset[8|4:3|7:6|2:1|5] = h[12|11:10|6:5|4:3|2]
		v := (h>>12&1)<<8 | (h>>10&3)<<3 | (h>>5&3)<<6 | (h>>3&3)<<1 | (h>>2&1)<<5
		return EncodeB(cFunct3(h)-6, cRs1P(h), 0, signExtend(v, 9)), nil
	}
	return cIllegal(h)
}

// offset[11|4|9:8|10|6|7|3:1|5] = h[12|11|10:9|8|7|6|5:3|2]
func cJumpOffset(h uint32) int32 {
	v := (h>>12&1)<<11 | (h>>11&1)<<4 | (h>>9&3)<<8 | (h>>8&1)<<10 |
		(h>>7&1)<<6 | (h>>6&1)<<7 | (h>>3&7)<<1 | (h>>2&1)<<5
	return signExtend(v, 12)
}

func expandQ1Arith(h uint32) (uint32, error) {
	rd := cRs1P(h)
	switch h >> 10 & 3 {
	case 0, 1: // C.SRLI, C.SRAI
		if h>>12&1 != 0 {
			return cIllegal(h)
		}
		f7 := (h >> 10 & 1) << 5
		return EncodeR(OpcodeOpImm, rd, 5, rd, cRs2(h), f7), nil
	case 2: // C.ANDI
		return EncodeI(OpcodeOpImm, rd, 7, rd, cImm6(h)), nil
	}
	if h>>12&1 != 0 {
		// C.SUBW, C.ADDW and reserved
		return cIllegal(h)
	}
	rs2 := cRdP(h)
	switch h >> 5 & 3 {
	case 0: // C.SUB
		return EncodeR(OpcodeOp, rd, 0, rd, rs2, 0x20), nil
	case 1: // C.XOR
		return EncodeR(OpcodeOp, rd, 4, rd, rs2, 0), nil
	case 2: // C.OR
		return EncodeR(OpcodeOp, rd, 6, rd, rs2, 0), nil
	default: // C.AND
		return EncodeR(OpcodeOp, rd, 7, rd, rs2, 0), nil
	}
}

func expandQ2(h uint32) (uint32, error) {
	rd := cRd(h)
	rs2 := cRs2(h)
	// uimm[5|4:2|7:6] = h[12|6:4|3:2]
	lwsp := int32((h>>12&1)<<5 | (h>>4&7)<<2 | (h>>2&3)<<6)
	// uimm[5:2|7:6] = h[12:9|8:7]
	swsp := int32((h>>9&0xf)<<2 | (h>>7&3)<<6)

	switch cFunct3(h) {
	case 0: // C.SLLI
		if h>>12&1 != 0 {
			return cIllegal(h)
		}
		return EncodeR(OpcodeOpImm, rd, 1, rd, rs2, 0), nil
	case 1, 5: // C.FLDSP, C.FSDSP
		return cNeedsD(h)
	case 2: // C.LWSP
		if rd == 0 {
			return cIllegal(h)
		}
		return EncodeI(OpcodeLoad, rd, 2, 2, lwsp), nil
	case 3: // C.FLWSP
		return EncodeI(OpcodeLoadFP, rd, 2, 2, lwsp), nil
	case 4:
		if h>>12&1 == 0 {
			if rs2 == 0 { // C.JR
				if rd == 0 {
					return cIllegal(h)
				}
				return EncodeI(OpcodeJalr, 0, 0, rd, 0), nil
			}
			// C.MV
			return EncodeR(OpcodeOp, rd, 0, 0, rs2, 0), nil
		}
		switch {
		case rd == 0 && rs2 == 0: // C.EBREAK
			return 0x00100073, nil
		case rs2 == 0: // C.JALR
			return EncodeI(OpcodeJalr, 1, 0, rd, 0), nil
		default: // C.ADD
			return EncodeR(OpcodeOp, rd, 0, rd, rs2, 0), nil
		}
	case 6: // C.SWSP
		return EncodeS(OpcodeStore, 2, 2, rs2, swsp), nil
	case 7: // C.FSWSP
		return EncodeS(OpcodeStoreFP, 2, 2, rs2, swsp), nil
	}
	return cIllegal(h)
}
