package rv32

import (
	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/rverrors"
)

// CSR addresses.
const (
	CSR_FFLAGS = 0x001
	CSR_FRM    = 0x002
	CSR_FCSR   = 0x003

	CSR_MSTATUS  = 0x300
	CSR_MISA     = 0x301
	CSR_MTVEC    = 0x305
	CSR_MSCRATCH = 0x340
	CSR_MEPC     = 0x341
	CSR_MCAUSE   = 0x342
	CSR_MTVAL    = 0x343

	CSR_MCYCLE    = 0xB00
	CSR_MINSTRET  = 0xB02
	CSR_MCYCLEH   = 0xB80
	CSR_MINSTRETH = 0xB82

	CSR_CYCLE    = 0xC00
	CSR_INSTRET  = 0xC02
	CSR_CYCLEH   = 0xC80
	CSR_INSTRETH = 0xC82

	CSR_MVENDORID = 0xF11
	CSR_MARCHID   = 0xF12
	CSR_MIMPID    = 0xF13
	CSR_MHARTID   = 0xF14
)

// mstatus fields
const (
	MSTATUS_MIE  = 1 << 3
	MSTATUS_MPIE = 1 << 7
	MSTATUS_MPP  = 3 << 11

	mstatusMask = MSTATUS_MIE | MSTATUS_MPIE | MSTATUS_MPP
)

// fflags bits
const (
	FFLAG_NX = 1 << 0
	FFLAG_UF = 1 << 1
	FFLAG_OF = 1 << 2
	FFLAG_DZ = 1 << 3
	FFLAG_NV = 1 << 4
)

type csrFile struct {
	mstatus  uint32
	mtvec    uint32
	mscratch uint32
	mepc     uint32
	mcause   uint32
	mtval    uint32
	fflags   uint32
	frm      uint32
	cycle    uint64
}

// trapEnter saves MIE into MPIE and disables interrupts.
func (c *csrFile) trapEnter() {
	mie := c.mstatus & MSTATUS_MIE
	c.mstatus &^= MSTATUS_MIE | MSTATUS_MPIE
	if mie != 0 {
		c.mstatus |= MSTATUS_MPIE
	}
	c.mstatus |= MSTATUS_MPP
}

// trapReturn restores MIE from MPIE as MRET does.
func (c *csrFile) trapReturn() {
	mpie := c.mstatus & MSTATUS_MPIE
	c.mstatus &^= MSTATUS_MIE
	if mpie != 0 {
		c.mstatus |= MSTATUS_MIE
	}
	c.mstatus |= MSTATUS_MPIE
}

func csrReadOnly(addr uint16) bool {
	return addr>>10 == 3
}

func isFloatCSR(addr uint16) bool {
	return addr >= CSR_FFLAGS && addr <= CSR_FCSR
}

// readCSR returns the value of a CSR the hart implements itself.
func (h *Hart) readCSR(addr uint16) (uint32, bool) {
	c := &h.csr
	if isFloatCSR(addr) && !h.cfg.Extensions.Has(isa.ExtF) {
		return 0, false
	}
	switch addr {
	case CSR_FFLAGS:
		return c.fflags, true
	case CSR_FRM:
		return c.frm, true
	case CSR_FCSR:
		return c.frm<<5 | c.fflags, true
	case CSR_MSTATUS:
		return c.mstatus, true
	case CSR_MISA:
		return h.cfg.Extensions.Misa(), true
	case CSR_MTVEC:
		return c.mtvec, true
	case CSR_MSCRATCH:
		return c.mscratch, true
	case CSR_MEPC:
		return c.mepc, true
	case CSR_MCAUSE:
		return c.mcause, true
	case CSR_MTVAL:
		return c.mtval, true
	case CSR_MCYCLE, CSR_MINSTRET, CSR_CYCLE, CSR_INSTRET:
		return uint32(c.cycle), true
	case CSR_MCYCLEH, CSR_MINSTRETH, CSR_CYCLEH, CSR_INSTRETH:
		return uint32(c.cycle >> 32), true
	case CSR_MVENDORID, CSR_MARCHID, CSR_MIMPID, CSR_MHARTID:
		return 0, true
	}
	return 0, false
}

// writeCSR stores v into a CSR the hart implements itself. Callers have
// already rejected read-only addresses.
func (h *Hart) writeCSR(addr uint16, v uint32) bool {
	c := &h.csr
	if isFloatCSR(addr) && !h.cfg.Extensions.Has(isa.ExtF) {
		return false
	}
	switch addr {
	case CSR_FFLAGS:
		c.fflags = v & 0x1f
	case CSR_FRM:
		c.frm = v & 7
	case CSR_FCSR:
		c.fflags = v & 0x1f
		c.frm = (v >> 5) & 7
	case CSR_MSTATUS:
		c.mstatus = v & mstatusMask
	case CSR_MISA:
		// WARL: the extension set is fixed
	case CSR_MTVEC:
		c.mtvec = v &^ 2
	case CSR_MSCRATCH:
		c.mscratch = v
	case CSR_MEPC:
		c.mepc = v &^ 1
	case CSR_MCAUSE:
		c.mcause = v
	case CSR_MTVAL:
		c.mtval = v
	case CSR_MCYCLE, CSR_MINSTRET:
		c.cycle = c.cycle&^0xffffffff | uint64(v)
	case CSR_MCYCLEH, CSR_MINSTRETH:
		c.cycle = c.cycle&0xffffffff | uint64(v)<<32
	default:
		return false
	}
	return true
}

// execCSR runs a Zicsr instruction. It returns false after raising an
// illegal-instruction trap.
func (h *Hart) execCSR(in *isa.Instruction) bool {
	addr := in.CSR()
	var src uint32
	if in.Op >= isa.CSRRWI {
		src = uint32(in.Rs1)
	} else {
		src = h.x[in.Rs1]
	}
	// CSRRS/C with x0 or a zero immediate only read
	write := in.Op == isa.CSRRW || in.Op == isa.CSRRWI || in.Rs1 != 0
	read := !(in.Op == isa.CSRRW || in.Op == isa.CSRRWI) || in.Rd != RegZero

	if write && csrReadOnly(addr) {
		h.raiseIllegal(in, rverrors.ErrIllegalInstruction)
		return false
	}

	_, own := h.readCSR(addr)
	if !own && h.io.CSR == nil {
		h.raiseIllegal(in, rverrors.ErrIllegalInstruction)
		return false
	}

	var old uint32
	if read {
		v, ok := h.csrAccess(addr, false, 0, own)
		if !ok {
			h.raiseIllegal(in, rverrors.ErrIllegalInstruction)
			return false
		}
		old = v
	}

	if write {
		var next uint32
		switch in.Op {
		case isa.CSRRW, isa.CSRRWI:
			next = src
		case isa.CSRRS, isa.CSRRSI:
			next = old | src
		default:
			next = old &^ src
		}
		if _, ok := h.csrAccess(addr, true, next, own); !ok {
			h.raiseIllegal(in, rverrors.ErrIllegalInstruction)
			return false
		}
	}
	h.writeReg(in.Rd, old)
	h.pc = in.Next()
	return true
}

func (h *Hart) csrAccess(addr uint16, write bool, v uint32, own bool) (uint32, bool) {
	if own {
		if write {
			return 0, h.writeCSR(addr, v)
		}
		return h.readCSR(addr)
	}
	return h.io.CSR(h, addr, write, v)
}
