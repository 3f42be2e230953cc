package isa

import (
	"errors"
	"testing"

	"github.com/colorfulnotion/rv32emu/rverrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func mustDecode(t *testing.T, word uint32, ext Extensions) Instruction {
	t.Helper()
	in, err := Decode(0x1000, word, ext)
	require.NoError(t, err, "word 0x%08x", word)
	return in
}

func decodeErr(t *testing.T, word uint32, ext Extensions) *DecodeError {
	t.Helper()
	_, err := Decode(0x1000, word, ext)
	require.Error(t, err, "word 0x%08x", word)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	return de
}

func TestDecodeBase(t *testing.T) {
	in := mustDecode(t, 0x00500093, RV32I) // addi ra, zero, 5
	assert.Equal(t, ADDI, in.Op)
	assert.Equal(t, uint8(1), in.Rd)
	assert.Equal(t, uint8(0), in.Rs1)
	assert.Equal(t, int32(5), in.Imm)
	assert.Equal(t, uint8(4), in.Len)
	assert.Equal(t, SEQUENTIAL, in.Flow)
	assert.Equal(t, uint32(0x1000), in.PC)
	assert.Equal(t, uint32(0x1004), in.Next())

	tests := []struct {
		name string
		word uint32
		op   Op
		flow Flow
		imm  int32
	}{
		{"lui", EncodeU(OpcodeLui, 5, 0x12345000), LUI, SEQUENTIAL, 0x12345000},
		{"auipc", EncodeU(OpcodeAuipc, 5, -4096), AUIPC, SEQUENTIAL, -4096},
		{"jal", EncodeJ(1, -8), JAL, UNCONDITIONAL, -8},
		{"jalr", EncodeI(OpcodeJalr, 0, 0, 1, 12), JALR, UNCONDITIONAL, 12},
		{"beq", EncodeB(0, 1, 2, 16), BEQ, CONDITIONAL, 16},
		{"bgeu", EncodeB(7, 1, 2, -4096), BGEU, CONDITIONAL, -4096},
		{"lhu", EncodeI(OpcodeLoad, 3, 5, 2, -1), LHU, SEQUENTIAL, -1},
		{"sw", EncodeS(OpcodeStore, 2, 2, 3, -2048), SW, SEQUENTIAL, -2048},
		{"srai", EncodeR(OpcodeOpImm, 3, 5, 3, 31, 0x20), SRAI, SEQUENTIAL, 31},
		{"sub", EncodeR(OpcodeOp, 3, 0, 4, 5, 0x20), SUB, SEQUENTIAL, 0},
		{"fence", 0x0ff0000f, FENCE, SEQUENTIAL, 0},
		{"ecall", 0x00000073, ECALL, SYSTEM, 0},
		{"ebreak", 0x00100073, EBREAK, SYSTEM, 0},
		{"mret", 0x30200073, MRET, SYSTEM, 0},
		{"wfi", 0x10500073, WFI, SEQUENTIAL, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := mustDecode(t, tc.word, RV32I)
			assert.Equal(t, tc.op, in.Op)
			assert.Equal(t, tc.flow, in.Flow)
			if tc.imm != 0 {
				assert.Equal(t, tc.imm, in.Imm)
			}
		})
	}
}

func TestDecodeTarget(t *testing.T) {
	in := mustDecode(t, EncodeB(1, 5, 6, -8), RV32I)
	target, ok := in.Target()
	require.True(t, ok)
	assert.Equal(t, uint32(0x0ff8), target)

	in = mustDecode(t, EncodeI(OpcodeJalr, 1, 0, 5, 0), RV32I)
	_, ok = in.Target()
	assert.False(t, ok, "jalr has no static target")
}

func TestDecodeIllegal(t *testing.T) {
	words := map[string]uint32{
		"all ones":        0xffffffff,
		"jalr funct3":     EncodeI(OpcodeJalr, 1, 1, 1, 0),
		"branch funct3 2": EncodeB(2, 1, 2, 8),
		"load funct3 3":   EncodeI(OpcodeLoad, 1, 3, 1, 0),
		"store funct3 3":  EncodeS(OpcodeStore, 3, 1, 2, 0),
		"slli funct7":     EncodeR(OpcodeOpImm, 1, 1, 1, 3, 0x01),
		"op funct7":       EncodeR(OpcodeOp, 1, 0, 1, 2, 0x02),
		"system imm":      0x00200073,
		"csr funct3 4":    EncodeI(OpcodeSystem, 1, 4, 1, 0x300),
	}
	for name, w := range words {
		t.Run(name, func(t *testing.T) {
			de := decodeErr(t, w, RV32GC)
			assert.ErrorIs(t, de, rverrors.ErrIllegalInstruction)
			assert.Equal(t, uint32(0x1000), de.PC)
			assert.Equal(t, w, de.Raw)
			assert.Equal(t, uint8(4), de.Len)
		})
	}
}

func TestDecodeExtensionGating(t *testing.T) {
	mul := EncodeR(OpcodeOp, 1, 0, 2, 3, 0x01)
	amoadd := EncodeR(OpcodeAmo, 1, 2, 2, 3, 0)
	fadd := EncodeR(OpcodeOpFP, 1, 7, 2, 3, 0x00)
	flw := EncodeI(OpcodeLoadFP, 1, 2, 2, 8)
	csrrs := EncodeI(OpcodeSystem, 1, 2, 0, 0xc00)
	fencei := EncodeI(OpcodeMiscMem, 0, 1, 0, 0)

	tests := []struct {
		word uint32
		ext  Extensions
		op   Op
	}{
		{mul, ExtM, MUL},
		{amoadd, ExtA, AMOADD_W},
		{fadd, ExtF, FADD_S},
		{flw, ExtF, FLW},
		{csrrs, ExtZicsr, CSRRS},
		{fencei, ExtZifencei, FENCE_I},
	}
	for _, tc := range tests {
		t.Run(tc.op.String(), func(t *testing.T) {
			de := decodeErr(t, tc.word, RV32GC&^tc.ext)
			assert.ErrorIs(t, de, rverrors.ErrUnsupportedExtension)
			assert.Equal(t, tc.ext, de.Required)

			in := mustDecode(t, tc.word, tc.ext)
			assert.Equal(t, tc.op, in.Op)
			assert.Equal(t, tc.ext, in.Op.Extension())
		})
	}
}

func TestDecodeDoublePrecisionUnsupported(t *testing.T) {
	fld := EncodeI(OpcodeLoadFP, 1, 3, 2, 0)
	fsd := EncodeS(OpcodeStoreFP, 3, 2, 1, 0)
	faddD := EncodeR(OpcodeOpFP, 1, 0, 2, 3, 0x01)
	fmaddD := EncodeR4(OpcodeMadd, 1, 0, 2, 3, 4) | 1<<25
	for _, w := range []uint32{fld, fsd, faddD, fmaddD} {
		de := decodeErr(t, w, RV32GC)
		assert.ErrorIs(t, de, rverrors.ErrUnsupportedExtension)
		assert.Contains(t, de.Error(), "needs D")
	}
}

func TestDecodeFloat(t *testing.T) {
	in := mustDecode(t, EncodeR4(OpcodeNmadd, 1, 0, 2, 3, 4), ExtF)
	assert.Equal(t, FNMADD_S, in.Op)
	assert.Equal(t, uint8(4), in.Rs3)

	in = mustDecode(t, EncodeR(OpcodeOpFP, 5, 1, 6, 1, 0x60), ExtF)
	assert.Equal(t, FCVT_WU_S, in.Op)
	assert.Equal(t, uint8(1), in.Rm)

	in = mustDecode(t, EncodeR(OpcodeOpFP, 5, 1, 6, 0, 0x70), ExtF)
	assert.Equal(t, FCLASS_S, in.Op)

	in = mustDecode(t, EncodeR(OpcodeOpFP, 5, 2, 6, 7, 0x50), ExtF)
	assert.Equal(t, FEQ_S, in.Op)

	// reserved rounding modes
	for _, rm := range []uint32{5, 6} {
		de := decodeErr(t, EncodeR(OpcodeOpFP, 1, rm, 2, 3, 0x00), ExtF)
		assert.ErrorIs(t, de, rverrors.ErrIllegalInstruction)
	}
	// rm is not a rounding mode for sign injection
	in = mustDecode(t, EncodeR(OpcodeOpFP, 1, 2, 2, 3, 0x10), ExtF)
	assert.Equal(t, FSGNJX_S, in.Op)
}

func TestDecodeAtomic(t *testing.T) {
	lr := EncodeR(OpcodeAmo, 1, 2, 2, 0, 0x02<<2)
	in := mustDecode(t, lr, ExtA)
	assert.Equal(t, LR_W, in.Op)

	de := decodeErr(t, EncodeR(OpcodeAmo, 1, 2, 2, 3, 0x02<<2), ExtA)
	assert.ErrorIs(t, de, rverrors.ErrIllegalInstruction, "lr.w with rs2")

	de = decodeErr(t, EncodeR(OpcodeAmo, 1, 3, 2, 3, 0), ExtA)
	assert.ErrorIs(t, de, rverrors.ErrIllegalInstruction, "amoadd.d")

	in = mustDecode(t, EncodeR(OpcodeAmo, 1, 2, 2, 3, 0x1c<<2|3), ExtA)
	assert.Equal(t, AMOMAXU_W, in.Op)
	assert.Equal(t, uint8(3), in.Rm, "aq and rl")
}

func TestDecodeCSR(t *testing.T) {
	in := mustDecode(t, EncodeI(OpcodeSystem, 3, 5, 7, 0x340), ExtZicsr)
	assert.Equal(t, CSRRWI, in.Op)
	assert.Equal(t, uint16(0x340), in.CSR())
	assert.Equal(t, uint8(7), in.Rs1, "zimm")
	assert.Equal(t, "csrrwi gp, 0x340, 7", in.String())

	in = mustDecode(t, EncodeI(OpcodeSystem, 3, 2, 0, -1024), ExtZicsr) // 0xc00
	assert.Equal(t, uint16(0xc00), in.CSR())
}

// Branch and jump immediates survive an encode/decode round trip.
func TestDecodeImmediateRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		b := (r.Int31n(4096) - 2048) * 2
		in := mustDecode(t, EncodeB(5, 1, 2, b), RV32I)
		require.Equal(t, b, in.Imm)

		j := (r.Int31n(1<<20) - 1<<19) * 2
		in = mustDecode(t, EncodeJ(1, j), RV32I)
		require.Equal(t, j, in.Imm)

		s := r.Int31n(4096) - 2048
		in = mustDecode(t, EncodeS(OpcodeStore, 1, 3, 4, s), RV32I)
		require.Equal(t, s, in.Imm)
		in = mustDecode(t, EncodeI(OpcodeLoad, 3, 2, 4, s), RV32I)
		require.Equal(t, s, in.Imm)
	}
}

// Decode is total: every word yields an instruction of the enabled
// extensions or a DecodeError, never a panic.
func TestDecodeTotal(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	sets := []Extensions{RV32I, ExtM | ExtC, RV32G, RV32GC}
	for i := 0; i < 20000; i++ {
		w := r.Uint32()
		for _, ext := range sets {
			in, err := Decode(0x80, w, ext)
			if err != nil {
				var de *DecodeError
				require.True(t, errors.As(err, &de))
				require.Contains(t, []uint8{2, 4}, de.Len)
				if !ext.Has(ExtC) {
					require.Equal(t, uint8(4), de.Len)
					require.Equal(t, w, de.Raw)
				}
				continue
			}
			require.NotEqual(t, ILLEGAL, in.Op)
			require.True(t, ext.Has(in.Op.Extension()), "%s decoded under %s", in.Op, ext)
			if in.Len == 2 {
				require.True(t, ext.Has(ExtC))
				require.Equal(t, w&0xffff, in.Raw)
			}
			require.Equal(t, in.Op.Flow(), in.Flow)
		}
	}
}
