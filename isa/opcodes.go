package isa

import "fmt"

// Major opcodes (bits 6:0 of a 32-bit encoding).
const (
	OpcodeLoad    = 0x03
	OpcodeLoadFP  = 0x07
	OpcodeMiscMem = 0x0f
	OpcodeOpImm   = 0x13
	OpcodeAuipc   = 0x17
	OpcodeStore   = 0x23
	OpcodeStoreFP = 0x27
	OpcodeAmo     = 0x2f
	OpcodeOp      = 0x33
	OpcodeLui     = 0x37
	OpcodeMadd    = 0x43
	OpcodeMsub    = 0x47
	OpcodeNmsub   = 0x4b
	OpcodeNmadd   = 0x4f
	OpcodeOpFP    = 0x53
	OpcodeBranch  = 0x63
	OpcodeJalr    = 0x67
	OpcodeJal     = 0x6f
	OpcodeSystem  = 0x73
)

// Op identifies a decoded operation. Values are grouped by extension so a
// range check recovers the class.
type Op uint8

const (
	ILLEGAL Op = iota

	// RV32I
	LUI
	AUIPC
	JAL
	JALR
	BEQ
	BNE
	BLT
	BGE
	BLTU
	BGEU
	LB
	LH
	LW
	LBU
	LHU
	SB
	SH
	SW
	ADDI
	SLTI
	SLTIU
	XORI
	ORI
	ANDI
	SLLI
	SRLI
	SRAI
	ADD
	SUB
	SLL
	SLT
	SLTU
	XOR
	SRL
	SRA
	OR
	AND
	FENCE
	ECALL
	EBREAK
	MRET
	WFI

	// Zifencei
	FENCE_I

	// Zicsr
	CSRRW
	CSRRS
	CSRRC
	CSRRWI
	CSRRSI
	CSRRCI

	// M
	MUL
	MULH
	MULHSU
	MULHU
	DIV
	DIVU
	REM
	REMU

	// A
	LR_W
	SC_W
	AMOSWAP_W
	AMOADD_W
	AMOXOR_W
	AMOAND_W
	AMOOR_W
	AMOMIN_W
	AMOMAX_W
	AMOMINU_W
	AMOMAXU_W

	// F
	FLW
	FSW
	FMADD_S
	FMSUB_S
	FNMSUB_S
	FNMADD_S
	FADD_S
	FSUB_S
	FMUL_S
	FDIV_S
	FSQRT_S
	FSGNJ_S
	FSGNJN_S
	FSGNJX_S
	FMIN_S
	FMAX_S
	FCVT_W_S
	FCVT_WU_S
	FMV_X_W
	FEQ_S
	FLT_S
	FLE_S
	FCLASS_S
	FCVT_S_W
	FCVT_S_WU
	FMV_W_X

	NumOps
)

// Flow classifies how an instruction affects the program counter.
type Flow uint8

const (
	SEQUENTIAL    Flow = iota // falls through to pc+len
	CONDITIONAL               // conditional branch
	UNCONDITIONAL             // JAL / JALR
	SYSTEM                    // ECALL, EBREAK, MRET, FENCE.I
)

func (f Flow) String() string {
	switch f {
	case SEQUENTIAL:
		return "sequential"
	case CONDITIONAL:
		return "conditional"
	case UNCONDITIONAL:
		return "unconditional"
	case SYSTEM:
		return "system"
	default:
		return fmt.Sprintf("flow(%d)", uint8(f))
	}
}

// operand layout used for formatting
type format uint8

const (
	fmtNone format = iota
	fmtU
	fmtJ
	fmtJalr
	fmtB
	fmtLoad
	fmtStore
	fmtI
	fmtR
	fmtCSR
	fmtCSRI
	fmtLR
	fmtAMO
	fmtFLoad
	fmtFStore
	fmtR4
	fmtFFF
	fmtFF
	fmtXF
	fmtXFF
	fmtFX
)

type opInfo struct {
	name   string
	ext    Extensions
	flow   Flow
	format format
}

var opTable = [NumOps]opInfo{
	ILLEGAL: {"illegal", 0, SEQUENTIAL, fmtNone},

	LUI:    {"lui", 0, SEQUENTIAL, fmtU},
	AUIPC:  {"auipc", 0, SEQUENTIAL, fmtU},
	JAL:    {"jal", 0, UNCONDITIONAL, fmtJ},
	JALR:   {"jalr", 0, UNCONDITIONAL, fmtJalr},
	BEQ:    {"beq", 0, CONDITIONAL, fmtB},
	BNE:    {"bne", 0, CONDITIONAL, fmtB},
	BLT:    {"blt", 0, CONDITIONAL, fmtB},
	BGE:    {"bge", 0, CONDITIONAL, fmtB},
	BLTU:   {"bltu", 0, CONDITIONAL, fmtB},
	BGEU:   {"bgeu", 0, CONDITIONAL, fmtB},
	LB:     {"lb", 0, SEQUENTIAL, fmtLoad},
	LH:     {"lh", 0, SEQUENTIAL, fmtLoad},
	LW:     {"lw", 0, SEQUENTIAL, fmtLoad},
	LBU:    {"lbu", 0, SEQUENTIAL, fmtLoad},
	LHU:    {"lhu", 0, SEQUENTIAL, fmtLoad},
	SB:     {"sb", 0, SEQUENTIAL, fmtStore},
	SH:     {"sh", 0, SEQUENTIAL, fmtStore},
	SW:     {"sw", 0, SEQUENTIAL, fmtStore},
	ADDI:   {"addi", 0, SEQUENTIAL, fmtI},
	SLTI:   {"slti", 0, SEQUENTIAL, fmtI},
	SLTIU:  {"sltiu", 0, SEQUENTIAL, fmtI},
	XORI:   {"xori", 0, SEQUENTIAL, fmtI},
	ORI:    {"ori", 0, SEQUENTIAL, fmtI},
	ANDI:   {"andi", 0, SEQUENTIAL, fmtI},
	SLLI:   {"slli", 0, SEQUENTIAL, fmtI},
	SRLI:   {"srli", 0, SEQUENTIAL, fmtI},
	SRAI:   {"srai", 0, SEQUENTIAL, fmtI},
	ADD:    {"add", 0, SEQUENTIAL, fmtR},
	SUB:    {"sub", 0, SEQUENTIAL, fmtR},
	SLL:    {"sll", 0, SEQUENTIAL, fmtR},
	SLT:    {"slt", 0, SEQUENTIAL, fmtR},
	SLTU:   {"sltu", 0, SEQUENTIAL, fmtR},
	XOR:    {"xor", 0, SEQUENTIAL, fmtR},
	SRL:    {"srl", 0, SEQUENTIAL, fmtR},
	SRA:    {"sra", 0, SEQUENTIAL, fmtR},
	OR:     {"or", 0, SEQUENTIAL, fmtR},
	AND:    {"and", 0, SEQUENTIAL, fmtR},
	FENCE:  {"fence", 0, SEQUENTIAL, fmtNone},
	ECALL:  {"ecall", 0, SYSTEM, fmtNone},
	EBREAK: {"ebreak", 0, SYSTEM, fmtNone},
	MRET:   {"mret", 0, SYSTEM, fmtNone},
	WFI:    {"wfi", 0, SEQUENTIAL, fmtNone},

	FENCE_I: {"fence.i", ExtZifencei, SYSTEM, fmtNone},

	CSRRW:  {"csrrw", ExtZicsr, SEQUENTIAL, fmtCSR},
	CSRRS:  {"csrrs", ExtZicsr, SEQUENTIAL, fmtCSR},
	CSRRC:  {"csrrc", ExtZicsr, SEQUENTIAL, fmtCSR},
	CSRRWI: {"csrrwi", ExtZicsr, SEQUENTIAL, fmtCSRI},
	CSRRSI: {"csrrsi", ExtZicsr, SEQUENTIAL, fmtCSRI},
	CSRRCI: {"csrrci", ExtZicsr, SEQUENTIAL, fmtCSRI},

	MUL:    {"mul", ExtM, SEQUENTIAL, fmtR},
	MULH:   {"mulh", ExtM, SEQUENTIAL, fmtR},
	MULHSU: {"mulhsu", ExtM, SEQUENTIAL, fmtR},
	MULHU:  {"mulhu", ExtM, SEQUENTIAL, fmtR},
	DIV:    {"div", ExtM, SEQUENTIAL, fmtR},
	DIVU:   {"divu", ExtM, SEQUENTIAL, fmtR},
	REM:    {"rem", ExtM, SEQUENTIAL, fmtR},
	REMU:   {"remu", ExtM, SEQUENTIAL, fmtR},

	LR_W:      {"lr.w", ExtA, SEQUENTIAL, fmtLR},
	SC_W:      {"sc.w", ExtA, SEQUENTIAL, fmtAMO},
	AMOSWAP_W: {"amoswap.w", ExtA, SEQUENTIAL, fmtAMO},
	AMOADD_W:  {"amoadd.w", ExtA, SEQUENTIAL, fmtAMO},
	AMOXOR_W:  {"amoxor.w", ExtA, SEQUENTIAL, fmtAMO},
	AMOAND_W:  {"amoand.w", ExtA, SEQUENTIAL, fmtAMO},
	AMOOR_W:   {"amoor.w", ExtA, SEQUENTIAL, fmtAMO},
	AMOMIN_W:  {"amomin.w", ExtA, SEQUENTIAL, fmtAMO},
	AMOMAX_W:  {"amomax.w", ExtA, SEQUENTIAL, fmtAMO},
	AMOMINU_W: {"amominu.w", ExtA, SEQUENTIAL, fmtAMO},
	AMOMAXU_W: {"amomaxu.w", ExtA, SEQUENTIAL, fmtAMO},

	FLW:       {"flw", ExtF, SEQUENTIAL, fmtFLoad},
	FSW:       {"fsw", ExtF, SEQUENTIAL, fmtFStore},
	FMADD_S:   {"fmadd.s", ExtF, SEQUENTIAL, fmtR4},
	FMSUB_S:   {"fmsub.s", ExtF, SEQUENTIAL, fmtR4},
	FNMSUB_S:  {"fnmsub.s", ExtF, SEQUENTIAL, fmtR4},
	FNMADD_S:  {"fnmadd.s", ExtF, SEQUENTIAL, fmtR4},
	FADD_S:    {"fadd.s", ExtF, SEQUENTIAL, fmtFFF},
	FSUB_S:    {"fsub.s", ExtF, SEQUENTIAL, fmtFFF},
	FMUL_S:    {"fmul.s", ExtF, SEQUENTIAL, fmtFFF},
	FDIV_S:    {"fdiv.s", ExtF, SEQUENTIAL, fmtFFF},
	FSQRT_S:   {"fsqrt.s", ExtF, SEQUENTIAL, fmtFF},
	FSGNJ_S:   {"fsgnj.s", ExtF, SEQUENTIAL, fmtFFF},
	FSGNJN_S:  {"fsgnjn.s", ExtF, SEQUENTIAL, fmtFFF},
	FSGNJX_S:  {"fsgnjx.s", ExtF, SEQUENTIAL, fmtFFF},
	FMIN_S:    {"fmin.s", ExtF, SEQUENTIAL, fmtFFF},
	FMAX_S:    {"fmax.s", ExtF, SEQUENTIAL, fmtFFF},
	FCVT_W_S:  {"fcvt.w.s", ExtF, SEQUENTIAL, fmtXF},
	FCVT_WU_S: {"fcvt.wu.s", ExtF, SEQUENTIAL, fmtXF},
	FMV_X_W:   {"fmv.x.w", ExtF, SEQUENTIAL, fmtXF},
	FEQ_S:     {"feq.s", ExtF, SEQUENTIAL, fmtXFF},
	FLT_S:     {"flt.s", ExtF, SEQUENTIAL, fmtXFF},
	FLE_S:     {"fle.s", ExtF, SEQUENTIAL, fmtXFF},
	FCLASS_S:  {"fclass.s", ExtF, SEQUENTIAL, fmtXF},
	FCVT_S_W:  {"fcvt.s.w", ExtF, SEQUENTIAL, fmtFX},
	FCVT_S_WU: {"fcvt.s.wu", ExtF, SEQUENTIAL, fmtFX},
	FMV_W_X:   {"fmv.w.x", ExtF, SEQUENTIAL, fmtFX},
}

func (op Op) String() string {
	if op >= NumOps {
		return fmt.Sprintf("OP %d", uint8(op))
	}
	return opTable[op].name
}

// Extension returns the extension an operation belongs to (0 for the base ISA).
func (op Op) Extension() Extensions {
	if op >= NumOps {
		return 0
	}
	return opTable[op].ext
}

// Flow returns the control-flow class of op.
func (op Op) Flow() Flow {
	if op >= NumOps {
		return SEQUENTIAL
	}
	return opTable[op].flow
}

func (op Op) IsBranch() bool { return op >= BEQ && op <= BGEU }
func (op Op) IsLoad() bool   { return op >= LB && op <= LHU }
func (op Op) IsStore() bool  { return op >= SB && op <= SW }
func (op Op) IsCSR() bool    { return op >= CSRRW && op <= CSRRCI }
func (op Op) IsMulDiv() bool { return op >= MUL && op <= REMU }
func (op Op) IsAtomic() bool { return op >= LR_W && op <= AMOMAXU_W }
func (op Op) IsFloat() bool  { return op >= FLW && op <= FMV_W_X }

// UsesRoundingMode reports whether the rm field of op selects a rounding mode.
func (op Op) UsesRoundingMode() bool {
	switch op {
	case FMADD_S, FMSUB_S, FNMSUB_S, FNMADD_S, FADD_S, FSUB_S, FMUL_S, FDIV_S,
		FSQRT_S, FCVT_W_S, FCVT_WU_S, FCVT_S_W, FCVT_S_WU:
		return true
	}
	return false
}
