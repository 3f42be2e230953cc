package isa

import (
	"fmt"

	"github.com/colorfulnotion/rv32emu/rverrors"
)

// Instruction is one decoded instruction. It is a value type and is never
// modified after Decode returns it.
type Instruction struct {
	Op   Op
	Rd   uint8
	Rs1  uint8
	Rs2  uint8
	Rs3  uint8
	Imm  int32 // sign-extended immediate; CSR number for CSR ops
	Rm   uint8 // rounding mode (F), aq/rl (A), pred/succ (FENCE)
	Len  uint8 // 2 or 4
	Flow Flow
	PC   uint32
	Raw  uint32 // raw encoding, low 16 bits only for compressed forms
}

// IsControlTransfer reports whether the instruction ends a block.
func (i *Instruction) IsControlTransfer() bool {
	return i.Flow != SEQUENTIAL
}

// Next is the address of the sequentially following instruction.
func (i *Instruction) Next() uint32 {
	return i.PC + uint32(i.Len)
}

// Target returns the static jump/branch target for JAL and conditional branches.
func (i *Instruction) Target() (uint32, bool) {
	if i.Op == JAL || i.Op.IsBranch() {
		return i.PC + uint32(i.Imm), true
	}
	return 0, false
}

// CSR returns the CSR address of a CSR instruction.
func (i *Instruction) CSR() uint16 {
	return uint16(i.Imm) & 0xfff
}

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var fabiNames = [32]string{
	"ft0", "ft1", "ft2", "ft3", "ft4", "ft5", "ft6", "ft7",
	"fs0", "fs1", "fa0", "fa1", "fa2", "fa3", "fa4", "fa5",
	"fa6", "fa7", "fs2", "fs3", "fs4", "fs5", "fs6", "fs7",
	"fs8", "fs9", "fs10", "fs11", "ft8", "ft9", "ft10", "ft11",
}

// RegName returns the ABI name of integer register r.
func RegName(r uint8) string {
	if r >= 32 {
		return fmt.Sprintf("x%d", r)
	}
	return abiNames[r]
}

// FRegName returns the ABI name of float register r.
func FRegName(r uint8) string {
	if r >= 32 {
		return fmt.Sprintf("f%d", r)
	}
	return fabiNames[r]
}

func (i Instruction) String() string {
	name := i.Op.String()
	x, f := RegName, FRegName
	switch opTable[i.Op%NumOps].format {
	case fmtU:
		return fmt.Sprintf("%s %s, 0x%x", name, x(i.Rd), uint32(i.Imm)>>12)
	case fmtJ:
		return fmt.Sprintf("%s %s, %d", name, x(i.Rd), i.Imm)
	case fmtJalr, fmtLoad:
		return fmt.Sprintf("%s %s, %d(%s)", name, x(i.Rd), i.Imm, x(i.Rs1))
	case fmtB:
		return fmt.Sprintf("%s %s, %s, %d", name, x(i.Rs1), x(i.Rs2), i.Imm)
	case fmtStore:
		return fmt.Sprintf("%s %s, %d(%s)", name, x(i.Rs2), i.Imm, x(i.Rs1))
	case fmtI:
		return fmt.Sprintf("%s %s, %s, %d", name, x(i.Rd), x(i.Rs1), i.Imm)
	case fmtR:
		return fmt.Sprintf("%s %s, %s, %s", name, x(i.Rd), x(i.Rs1), x(i.Rs2))
	case fmtCSR:
		return fmt.Sprintf("%s %s, 0x%03x, %s", name, x(i.Rd), i.CSR(), x(i.Rs1))
	case fmtCSRI:
		return fmt.Sprintf("%s %s, 0x%03x, %d", name, x(i.Rd), i.CSR(), i.Rs1)
	case fmtLR:
		return fmt.Sprintf("%s %s, (%s)", name, x(i.Rd), x(i.Rs1))
	case fmtAMO:
		return fmt.Sprintf("%s %s, %s, (%s)", name, x(i.Rd), x(i.Rs2), x(i.Rs1))
	case fmtFLoad:
		return fmt.Sprintf("%s %s, %d(%s)", name, f(i.Rd), i.Imm, x(i.Rs1))
	case fmtFStore:
		return fmt.Sprintf("%s %s, %d(%s)", name, f(i.Rs2), i.Imm, x(i.Rs1))
	case fmtR4:
		return fmt.Sprintf("%s %s, %s, %s, %s", name, f(i.Rd), f(i.Rs1), f(i.Rs2), f(i.Rs3))
	case fmtFFF:
		return fmt.Sprintf("%s %s, %s, %s", name, f(i.Rd), f(i.Rs1), f(i.Rs2))
	case fmtFF:
		return fmt.Sprintf("%s %s, %s", name, f(i.Rd), f(i.Rs1))
	case fmtXF:
		return fmt.Sprintf("%s %s, %s", name, x(i.Rd), f(i.Rs1))
	case fmtXFF:
		return fmt.Sprintf("%s %s, %s, %s", name, x(i.Rd), f(i.Rs1), f(i.Rs2))
	case fmtFX:
		return fmt.Sprintf("%s %s, %s", name, f(i.Rd), x(i.Rs1))
	default:
		return name
	}
}

// DecodeError reports an instruction word the decoder refused. Err is
// rverrors.ErrIllegalInstruction or rverrors.ErrUnsupportedExtension.
type DecodeError struct {
	Err      error
	PC       uint32
	Raw      uint32
	Len      uint8
	Required Extensions // set for ErrUnsupportedExtension
}

func (e *DecodeError) Error() string {
	if e.Err == rverrors.ErrUnsupportedExtension {
		return fmt.Sprintf("instruction 0x%0*x at pc 0x%08x needs %s: %v", int(e.Len)*2, e.Raw, e.PC, requiredName(e.Required), e.Err)
	}
	return fmt.Sprintf("instruction 0x%0*x at pc 0x%08x: %v", int(e.Len)*2, e.Raw, e.PC, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func requiredName(x Extensions) string {
	switch x {
	case ExtM:
		return "M"
	case ExtA:
		return "A"
	case ExtF:
		return "F"
	case ExtC:
		return "C"
	case ExtZicsr:
		return "Zicsr"
	case ExtZifencei:
		return "Zifencei"
	case extD:
		return "D"
	default:
		return x.String()
	}
}
