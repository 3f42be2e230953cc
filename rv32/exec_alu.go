package rv32

import (
	"math"

	"github.com/colorfulnotion/rv32emu/isa"
)

func aluImm(op isa.Op, a uint32, imm int32) uint32 {
	b := uint32(imm)
	switch op {
	case isa.ADDI:
		return a + b
	case isa.SLTI:
		return boolToU32(int32(a) < imm)
	case isa.SLTIU:
		return boolToU32(a < b)
	case isa.XORI:
		return a ^ b
	case isa.ORI:
		return a | b
	case isa.ANDI:
		return a & b
	case isa.SLLI:
		return a << (b & 31)
	case isa.SRLI:
		return a >> (b & 31)
	default: // SRAI
		return uint32(int32(a) >> (b & 31))
	}
}

func alu(op isa.Op, a, b uint32) uint32 {
	switch op {
	case isa.ADD:
		return a + b
	case isa.SUB:
		return a - b
	case isa.SLL:
		return a << (b & 31)
	case isa.SLT:
		return boolToU32(int32(a) < int32(b))
	case isa.SLTU:
		return boolToU32(a < b)
	case isa.XOR:
		return a ^ b
	case isa.SRL:
		return a >> (b & 31)
	case isa.SRA:
		return uint32(int32(a) >> (b & 31))
	case isa.OR:
		return a | b
	default: // AND
		return a & b
	}
}

// mulDiv follows the RISC-V results for division by zero (all ones quotient,
// dividend remainder) and signed overflow (dividend quotient, zero remainder).
func mulDiv(op isa.Op, a, b uint32) uint32 {
	switch op {
	case isa.MUL:
		return a * b
	case isa.MULH:
		return uint32(uint64(int64(int32(a))*int64(int32(b))) >> 32)
	case isa.MULHSU:
		return uint32(uint64(int64(int32(a))*int64(b)) >> 32)
	case isa.MULHU:
		return uint32(uint64(a) * uint64(b) >> 32)
	case isa.DIV:
		x, y := int32(a), int32(b)
		switch {
		case y == 0:
			return math.MaxUint32
		case x == math.MinInt32 && y == -1:
			return a
		}
		return uint32(x / y)
	case isa.DIVU:
		if b == 0 {
			return math.MaxUint32
		}
		return a / b
	case isa.REM:
		x, y := int32(a), int32(b)
		switch {
		case y == 0:
			return a
		case x == math.MinInt32 && y == -1:
			return 0
		}
		return uint32(x % y)
	default: // REMU
		if b == 0 {
			return a
		}
		return a % b
	}
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
