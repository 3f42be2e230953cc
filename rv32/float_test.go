package rv32

import (
	"math"
	"testing"

	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/rverrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opFP(funct7, rd, rm, rs1, rs2 uint32) uint32 {
	return isa.EncodeR(isa.OpcodeOpFP, rd, rm, rs1, rs2, funct7)
}

func f32(v float32) uint32 { return math.Float32bits(v) }

func TestFloatProgram(t *testing.T) {
	h, m := newMachine(t, isa.RV32GC,
		lui(5, dataBase),
		isa.EncodeI(isa.OpcodeLoadFP, 1, 2, 5, 0),  // flw f1
		isa.EncodeI(isa.OpcodeLoadFP, 2, 2, 5, 4),  // flw f2
		opFP(0x00, 3, rmDYN, 1, 2),                 // fadd.s f3
		isa.EncodeS(isa.OpcodeStoreFP, 2, 5, 3, 8), // fsw f3
		opFP(0x60, 6, rmRTZ, 3, 0),                 // fcvt.w.s
		opFP(0x60, 7, rmRNE, 3, 0),
		opFP(0x60, 8, rmRDN, 3, 0),
		opFP(0x08, 4, rmDYN, 1, 2), // fmul.s f4
		opFP(0x50, 9, 0, 1, 2),     // fle.s
		opFP(0x70, 10, 1, 1, 0),    // fclass.s
		opFP(0x70, 11, 0, 4, 0),    // fmv.x.w
		isa.EncodeR4(isa.OpcodeMadd, 12, rmDYN, 1, 2, 3),
		isa.EncodeR4(isa.OpcodeNmsub, 13, rmDYN, 1, 2, 3),
		ebreak,
	)
	m.ram.Write32(dataBase, f32(1.5))
	m.ram.Write32(dataBase+4, f32(2.25))
	h.Run(100)
	require.Len(t, m.traps, 1)
	assert.Equal(t, CauseBreakpoint, m.traps[0].Cause)

	assert.Equal(t, f32(3.75), h.FRegister(3))
	assert.Equal(t, f32(3.75), m.ram.Read32(dataBase+8))
	assert.Equal(t, uint32(3), h.Register(6))
	assert.Equal(t, uint32(4), h.Register(7))
	assert.Equal(t, uint32(3), h.Register(8))
	assert.Equal(t, uint32(1), h.Register(9))
	assert.Equal(t, uint32(1<<6), h.Register(10))
	assert.Equal(t, f32(3.375), h.Register(11))
	assert.Equal(t, f32(7.125), h.FRegister(12))
	assert.Equal(t, f32(0.375), h.FRegister(13))

	flags, _ := h.CSR(CSR_FFLAGS)
	assert.Equal(t, uint32(FFLAG_NX), flags)
}

func TestFloatDivideByZero(t *testing.T) {
	h, _ := newMachine(t, isa.RV32GC,
		opFP(0x0c, 3, rmDYN, 1, 0), // fdiv.s f3, f1, f0
		opFP(0x0c, 4, rmDYN, 0, 0), // 0/0
		ebreak,
	)
	h.SetFRegister(1, f32(-2))
	h.Run(10)
	assert.Equal(t, f32(float32(math.Inf(-1))), h.FRegister(3))
	assert.Equal(t, uint32(canonicalNaN), h.FRegister(4))
	flags, _ := h.CSR(CSR_FFLAGS)
	assert.Equal(t, uint32(FFLAG_DZ|FFLAG_NV), flags)
}

func TestFloatReservedDynamicRounding(t *testing.T) {
	h, m := newMachine(t, isa.RV32GC,
		csrr(5, 0, 5, CSR_FRM), // csrrwi frm, 5
		opFP(0x00, 3, rmDYN, 1, 2),
	)
	h.Run(10)
	require.Len(t, m.traps, 1)
	assert.Equal(t, CauseIllegalInstruction, m.traps[0].Cause)
	assert.Equal(t, uint32(progBase+4), m.traps[0].PC)
	assert.ErrorIs(t, m.traps[0].Err, rverrors.ErrIllegalInstruction)
	assert.Equal(t, uint64(1), h.Cycle())
}

func TestFloatDisabledTraps(t *testing.T) {
	h, m := newMachine(t, isa.ExtM|isa.ExtZicsr, opFP(0x00, 3, rmDYN, 1, 2))
	h.Run(10)
	require.Len(t, m.traps, 1)
	assert.ErrorIs(t, m.traps[0].Err, rverrors.ErrUnsupportedExtension)
}

func TestMinMax(t *testing.T) {
	h, _ := newMachine(t, isa.RV32GC)
	negZero := uint32(signBit)
	qnan := uint32(0x7fc00001)
	snan := uint32(0x7f800001)

	assert.Equal(t, negZero, h.minMax(0, negZero, false))
	assert.Equal(t, uint32(0), h.minMax(negZero, 0, true))
	assert.Equal(t, f32(1), h.minMax(qnan, f32(1), false))
	assert.Equal(t, f32(1), h.minMax(f32(1), qnan, true))
	assert.Equal(t, uint32(canonicalNaN), h.minMax(qnan, qnan, true))
	assert.Equal(t, f32(-3), h.minMax(f32(-3), f32(2), false))
	assert.Equal(t, f32(2), h.minMax(f32(-3), f32(2), true))
	assert.Zero(t, h.csr.fflags)

	assert.Equal(t, f32(1), h.minMax(snan, f32(1), false))
	assert.Equal(t, uint32(FFLAG_NV), h.csr.fflags)
}

func TestToInt(t *testing.T) {
	cases := []struct {
		in       uint32
		rm       uint32
		unsigned bool
		want     uint32
		flags    uint32
	}{
		{f32(2.5), rmRNE, false, 2, FFLAG_NX},
		{f32(2.5), rmRMM, false, 3, FFLAG_NX},
		{f32(-2.5), rmRTZ, false, 0xfffffffe, FFLAG_NX},
		{f32(-2.5), rmRDN, false, 0xfffffffd, FFLAG_NX},
		{f32(2.1), rmRUP, false, 3, FFLAG_NX},
		{f32(7), rmRNE, false, 7, 0},
		{f32(3e9), rmRTZ, false, math.MaxInt32, FFLAG_NV},
		{f32(3e9), rmRTZ, true, 3000000000, 0},
		{f32(-3e9), rmRTZ, false, 1 << 31, FFLAG_NV},
		{f32(-1.5), rmRNE, true, 0, FFLAG_NV},
		{f32(-0.25), rmRNE, true, 0, FFLAG_NX},
		{canonicalNaN, rmRNE, false, math.MaxInt32, FFLAG_NV},
		{canonicalNaN, rmRNE, true, math.MaxUint32, FFLAG_NV},
		{f32(float32(math.Inf(-1))), rmRNE, false, 1 << 31, FFLAG_NV},
	}
	h, _ := newMachine(t, isa.RV32GC)
	for _, tc := range cases {
		h.csr.fflags = 0
		got := h.toInt(tc.in, tc.rm, tc.unsigned)
		assert.Equal(t, tc.want, got, "0x%08x rm=%d unsigned=%v", tc.in, tc.rm, tc.unsigned)
		assert.Equal(t, tc.flags, h.csr.fflags, "flags for 0x%08x rm=%d", tc.in, tc.rm)
	}
}

func TestFClass(t *testing.T) {
	cases := map[uint32]uint32{
		0xff800000:   1 << 0, // -inf
		f32(-1):      1 << 1,
		0x80000001:   1 << 2, // negative subnormal
		signBit:      1 << 3,
		0:            1 << 4,
		0x00000001:   1 << 5,
		f32(1):       1 << 6,
		0x7f800000:   1 << 7,
		0x7f800001:   1 << 8, // signalling
		canonicalNaN: 1 << 9,
	}
	for in, want := range cases {
		assert.Equal(t, want, fclass(in), "0x%08x", in)
	}
}

func TestArithCanonicalizesNaN(t *testing.T) {
	h, _ := newMachine(t, isa.RV32GC)
	inf := f32(float32(math.Inf(1)))
	zero := uint32(0)
	r := h.arith(float32(math.Inf(1))*0, inf, zero, 0)
	assert.Equal(t, uint32(canonicalNaN), r)
	assert.Equal(t, uint32(FFLAG_NV), h.csr.fflags)

	// a quiet NaN operand propagates without NV
	h.csr.fflags = 0
	qnan := uint32(0x7fc12345)
	r = h.arith(math.Float32frombits(qnan)+1, qnan, f32(1), 0)
	assert.Equal(t, uint32(canonicalNaN), r)
	assert.Zero(t, h.csr.fflags)

	// overflow
	big := float32(math.MaxFloat32)
	r = h.arith(big*2, f32(big), f32(2), 0)
	assert.Equal(t, inf, r)
	assert.Equal(t, uint32(FFLAG_OF|FFLAG_NX), h.csr.fflags)
}

func TestFloatSignInjection(t *testing.T) {
	h, _ := newMachine(t, isa.RV32GC,
		opFP(0x10, 3, 0, 1, 2),     // fsgnj.s
		opFP(0x10, 4, 1, 1, 2),     // fsgnjn.s
		opFP(0x10, 5, 2, 1, 2),     // fsgnjx.s
		opFP(0x68, 6, rmDYN, 7, 0), // fcvt.s.w f6, x7
		opFP(0x78, 8, 0, 7, 0),     // fmv.w.x f8, x7
		ebreak,
	)
	h.SetFRegister(1, f32(1.5))
	h.SetFRegister(2, f32(-4))
	h.SetRegister(7, 0xfffffffd)
	h.Run(10)
	assert.Equal(t, f32(-1.5), h.FRegister(3))
	assert.Equal(t, f32(1.5), h.FRegister(4))
	assert.Equal(t, f32(-1.5), h.FRegister(5))
	assert.Equal(t, f32(-3), h.FRegister(6))
	assert.Equal(t, uint32(0xfffffffd), h.FRegister(8))
}
