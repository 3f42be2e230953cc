package rv32

import (
	"math"

	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/rverrors"
)

const (
	canonicalNaN = 0x7fc00000
	signBit      = 0x80000000
)

// rounding modes
const (
	rmRNE = 0
	rmRTZ = 1
	rmRDN = 2
	rmRUP = 3
	rmRMM = 4
	rmDYN = 7
)

func isNaN32(b uint32) bool  { return b&0x7f800000 == 0x7f800000 && b&0x7fffff != 0 }
func isSNaN32(b uint32) bool { return isNaN32(b) && b&0x400000 == 0 }
func isInf32(b uint32) bool  { return b&0x7fffffff == 0x7f800000 }

// execFloat runs an F instruction. Arithmetic rounds to nearest even;
// the rounding mode is honoured by float-to-integer conversions. It returns
// false after trapping on a reserved dynamic rounding mode.
func (h *Hart) execFloat(in *isa.Instruction) bool {
	rm := uint32(in.Rm)
	if in.Op.UsesRoundingMode() {
		if rm == rmDYN {
			rm = h.csr.frm
		}
		if rm > rmRMM {
			h.raiseIllegal(in, rverrors.ErrIllegalInstruction)
			return false
		}
	}

	a, b, c := h.f[in.Rs1], h.f[in.Rs2], h.f[in.Rs3]
	fa, fb := math.Float32frombits(a), math.Float32frombits(b)

	switch in.Op {
	case isa.FLW:
		h.f[in.Rd] = h.io.Read32(h, h.x[in.Rs1]+uint32(in.Imm))
	case isa.FSW:
		addr := h.x[in.Rs1] + uint32(in.Imm)
		h.io.Write32(h, addr, b)
		h.breakReservation(addr)
	case isa.FMADD_S, isa.FMSUB_S, isa.FNMSUB_S, isa.FNMADD_S:
		x, y, z := float64(fa), float64(fb), float64(math.Float32frombits(c))
		if in.Op == isa.FNMSUB_S || in.Op == isa.FNMADD_S {
			x = -x
		}
		if in.Op == isa.FMSUB_S || in.Op == isa.FNMADD_S {
			z = -z
		}
		h.f[in.Rd] = h.arith(float32(math.FMA(x, y, z)), a, b, c)
	case isa.FADD_S:
		h.f[in.Rd] = h.arith(fa+fb, a, b, 0)
	case isa.FSUB_S:
		h.f[in.Rd] = h.arith(fa-fb, a, b, 0)
	case isa.FMUL_S:
		h.f[in.Rd] = h.arith(fa*fb, a, b, 0)
	case isa.FDIV_S:
		if b&^signBit == 0 && a&^signBit != 0 && !isNaN32(a) && !isInf32(a) {
			h.csr.fflags |= FFLAG_DZ
			h.f[in.Rd] = math.Float32bits(fa / fb)
		} else {
			h.f[in.Rd] = h.arith(fa/fb, a, b, 0)
		}
	case isa.FSQRT_S:
		h.f[in.Rd] = h.arith(float32(math.Sqrt(float64(fa))), a, 0, 0)
	case isa.FSGNJ_S:
		h.f[in.Rd] = a&^signBit | b&signBit
	case isa.FSGNJN_S:
		h.f[in.Rd] = a&^signBit | ^b&signBit
	case isa.FSGNJX_S:
		h.f[in.Rd] = a ^ b&signBit
	case isa.FMIN_S, isa.FMAX_S:
		h.f[in.Rd] = h.minMax(a, b, in.Op == isa.FMAX_S)
	case isa.FCVT_W_S, isa.FCVT_WU_S:
		h.writeReg(in.Rd, h.toInt(a, rm, in.Op == isa.FCVT_WU_S))
	case isa.FMV_X_W:
		h.writeReg(in.Rd, a)
	case isa.FEQ_S:
		if isSNaN32(a) || isSNaN32(b) {
			h.csr.fflags |= FFLAG_NV
		}
		h.writeReg(in.Rd, boolToU32(fa == fb))
	case isa.FLT_S, isa.FLE_S:
		if isNaN32(a) || isNaN32(b) {
			h.csr.fflags |= FFLAG_NV
		}
		if in.Op == isa.FLT_S {
			h.writeReg(in.Rd, boolToU32(fa < fb))
		} else {
			h.writeReg(in.Rd, boolToU32(fa <= fb))
		}
	case isa.FCLASS_S:
		h.writeReg(in.Rd, fclass(a))
	case isa.FCVT_S_W:
		v := int32(h.x[in.Rs1])
		r := float32(v)
		if int64(r) != int64(v) {
			h.csr.fflags |= FFLAG_NX
		}
		h.f[in.Rd] = math.Float32bits(r)
	case isa.FCVT_S_WU:
		v := h.x[in.Rs1]
		r := float32(v)
		if uint64(r) != uint64(v) {
			h.csr.fflags |= FFLAG_NX
		}
		h.f[in.Rd] = math.Float32bits(r)
	case isa.FMV_W_X:
		h.f[in.Rd] = h.x[in.Rs1]
	}
	h.pc = in.Next()
	return true
}

// arith canonicalizes a NaN result and accumulates NV and OF. Unused operand
// slots are passed as zero.
func (h *Hart) arith(r float32, a, b, c uint32) uint32 {
	if math.IsNaN(float64(r)) {
		if isSNaN32(a) || isSNaN32(b) || isSNaN32(c) || !(isNaN32(a) || isNaN32(b) || isNaN32(c)) {
			h.csr.fflags |= FFLAG_NV
		}
		return canonicalNaN
	}
	bits := math.Float32bits(r)
	if isInf32(bits) && !isInf32(a) && !isInf32(b) && !isInf32(c) {
		h.csr.fflags |= FFLAG_OF | FFLAG_NX
	}
	return bits
}

// minMax orders -0 below +0 and returns the non-NaN operand when only one
// is NaN.
func (h *Hart) minMax(a, b uint32, isMax bool) uint32 {
	if isSNaN32(a) || isSNaN32(b) {
		h.csr.fflags |= FFLAG_NV
	}
	an, bn := isNaN32(a), isNaN32(b)
	switch {
	case an && bn:
		return canonicalNaN
	case an:
		return b
	case bn:
		return a
	}
	fa, fb := math.Float32frombits(a), math.Float32frombits(b)
	if fa == fb {
		if isMax {
			return a & b
		}
		return a | b
	}
	if (fa < fb) != isMax {
		return a
	}
	return b
}

func roundTo(f float64, rm uint32) float64 {
	switch rm {
	case rmRTZ:
		return math.Trunc(f)
	case rmRDN:
		return math.Floor(f)
	case rmRUP:
		return math.Ceil(f)
	case rmRMM:
		return math.Round(f)
	default:
		return math.RoundToEven(f)
	}
}

// toInt converts with saturation: NaN and overflow set NV and return the
// largest value of the target type, negative overflow the smallest.
func (h *Hart) toInt(a uint32, rm uint32, unsigned bool) uint32 {
	if isNaN32(a) {
		h.csr.fflags |= FFLAG_NV
		if unsigned {
			return math.MaxUint32
		}
		return math.MaxInt32
	}
	f := float64(math.Float32frombits(a))
	r := roundTo(f, rm)
	if unsigned {
		switch {
		case r < 0:
			h.csr.fflags |= FFLAG_NV
			return 0
		case r > math.MaxUint32:
			h.csr.fflags |= FFLAG_NV
			return math.MaxUint32
		}
	} else {
		switch {
		case r < math.MinInt32:
			h.csr.fflags |= FFLAG_NV
			return 1 << 31
		case r > math.MaxInt32:
			h.csr.fflags |= FFLAG_NV
			return math.MaxInt32
		}
	}
	if r != f {
		h.csr.fflags |= FFLAG_NX
	}
	if unsigned {
		return uint32(r)
	}
	return uint32(int32(r))
}

func fclass(b uint32) uint32 {
	neg := b&signBit != 0
	exp := (b >> 23) & 0xff
	frac := b & 0x7fffff
	pick := func(negBit, posBit uint) uint32 {
		if neg {
			return 1 << negBit
		}
		return 1 << posBit
	}
	switch {
	case exp == 0xff && frac == 0:
		return pick(0, 7)
	case exp == 0xff && frac&0x400000 != 0:
		return 1 << 9
	case exp == 0xff:
		return 1 << 8
	case exp == 0 && frac == 0:
		return pick(3, 4)
	case exp == 0:
		return pick(2, 5)
	default:
		return pick(1, 6)
	}
}
