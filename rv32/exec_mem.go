package rv32

import "github.com/colorfulnotion/rv32emu/isa"

func (h *Hart) execLoad(in *isa.Instruction) {
	addr := h.x[in.Rs1] + uint32(in.Imm)
	var v uint32
	switch in.Op {
	case isa.LB:
		v = uint32(int8(h.io.Read8(h, addr)))
	case isa.LH:
		v = uint32(int16(h.io.Read16(h, addr)))
	case isa.LW:
		v = h.io.Read32(h, addr)
	case isa.LBU:
		v = uint32(h.io.Read8(h, addr))
	default: // LHU
		v = uint32(h.io.Read16(h, addr))
	}
	h.writeReg(in.Rd, v)
}

func (h *Hart) execStore(in *isa.Instruction) {
	addr := h.x[in.Rs1] + uint32(in.Imm)
	v := h.x[in.Rs2]
	switch in.Op {
	case isa.SB:
		h.io.Write8(h, addr, uint8(v))
	case isa.SH:
		h.io.Write16(h, addr, uint16(v))
	default: // SW
		h.io.Write32(h, addr, v)
	}
	h.breakReservation(addr)
}

// breakReservation drops an LR reservation on the word a store touches.
func (h *Hart) breakReservation(addr uint32) {
	if h.reservation && h.reservationAddr&^3 == addr&^3 {
		h.reservation = false
	}
}

// execAtomic runs LR.W, SC.W and the AMOs. There is one hart per IO, so
// read-modify-write through the IO is atomic.
func (h *Hart) execAtomic(in *isa.Instruction) {
	addr := h.x[in.Rs1]
	src := h.x[in.Rs2]

	switch in.Op {
	case isa.LR_W:
		h.reservation = true
		h.reservationAddr = addr
		h.writeReg(in.Rd, h.io.Read32(h, addr))
		return
	case isa.SC_W:
		if h.reservation && h.reservationAddr == addr {
			h.io.Write32(h, addr, src)
			h.writeReg(in.Rd, 0)
		} else {
			h.writeReg(in.Rd, 1)
		}
		h.reservation = false
		return
	}

	old := h.io.Read32(h, addr)
	var v uint32
	switch in.Op {
	case isa.AMOSWAP_W:
		v = src
	case isa.AMOADD_W:
		v = old + src
	case isa.AMOXOR_W:
		v = old ^ src
	case isa.AMOAND_W:
		v = old & src
	case isa.AMOOR_W:
		v = old | src
	case isa.AMOMIN_W:
		v = old
		if int32(src) < int32(old) {
			v = src
		}
	case isa.AMOMAX_W:
		v = old
		if int32(src) > int32(old) {
			v = src
		}
	case isa.AMOMINU_W:
		v = min(old, src)
	default: // AMOMAXU_W
		v = max(old, src)
	}
	h.io.Write32(h, addr, v)
	h.breakReservation(addr)
	h.writeReg(in.Rd, old)
}
