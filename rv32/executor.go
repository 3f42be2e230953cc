package rv32

import (
	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/log"
	"github.com/colorfulnotion/rv32emu/rverrors"
)

// Run executes until the hart halts or maxCycles budget units are used, and
// returns the units used. Each retired instruction uses one unit, as does a
// trap that retires nothing. The halt flag is checked between blocks only, so
// a Halt from inside a callback takes effect once the current block ends.
// Running a halted or closed hart does nothing and returns 0. A Close from
// inside a callback ends the run at the same point a Halt would.
func (h *Hart) Run(maxCycles uint64) uint64 {
	if h.closed || h.halt {
		return 0
	}
	var used uint64
	for used < maxCycles && !h.halt && !h.closed {
		b, err := h.blockAt(h.pc)
		if err != nil {
			h.raiseDecode(h.pc, err)
			used++
			continue
		}
		used += h.execBlock(b, maxCycles-used)
		if h.flushPending && !h.closed {
			h.flushPending = false
			h.cache.Clear()
		}
	}
	log.Trace(log.RvExecution, "run returned", "used", used, "pc", h.pc, "cycle", h.csr.cycle, "halted", h.halt)
	return used
}

// execBlock runs b from its first instruction until it ends, a trap is
// raised or budget runs out. The PC is left at the next instruction to run.
func (h *Hart) execBlock(b *Block, budget uint64) uint64 {
	var used uint64
	for i := range b.Insns {
		if used == budget {
			break
		}
		in := &b.Insns[i]
		used++
		if !h.execute(in) {
			break
		}
		h.csr.cycle++
	}
	return used
}

// execute performs one instruction and advances the PC. It returns false if
// the instruction raised a trap, in which case the PC is whatever the trap
// handler chose and the rest of the block is abandoned.
func (h *Hart) execute(in *isa.Instruction) bool {
	op := in.Op
	switch {
	case op == isa.LUI:
		h.writeReg(in.Rd, uint32(in.Imm))
	case op == isa.AUIPC:
		h.writeReg(in.Rd, in.PC+uint32(in.Imm))
	case op == isa.JAL:
		return h.jump(in, in.PC+uint32(in.Imm))
	case op == isa.JALR:
		return h.jump(in, (h.x[in.Rs1]+uint32(in.Imm))&^1)
	case op.IsBranch():
		if h.branchTaken(in) {
			return h.jump(in, in.PC+uint32(in.Imm))
		}
	case op.IsLoad():
		h.execLoad(in)
	case op.IsStore():
		h.execStore(in)
	case op >= isa.ADDI && op <= isa.SRAI:
		h.writeReg(in.Rd, aluImm(op, h.x[in.Rs1], in.Imm))
	case op >= isa.ADD && op <= isa.AND:
		h.writeReg(in.Rd, alu(op, h.x[in.Rs1], h.x[in.Rs2]))
	case op.IsMulDiv():
		h.writeReg(in.Rd, mulDiv(op, h.x[in.Rs1], h.x[in.Rs2]))
	case op >= isa.FENCE && op <= isa.FENCE_I:
		return h.execSystem(in)
	case op.IsCSR():
		return h.execCSR(in)
	case op.IsAtomic():
		h.execAtomic(in)
	case op.IsFloat():
		return h.execFloat(in)
	default:
		// only reachable with a hand-built block
		h.raiseIllegal(in, rverrors.ErrIllegalInstruction)
		return false
	}
	h.pc = in.Next()
	return true
}

// jump links rd and moves to target, trapping on a misaligned target
// without writing rd.
func (h *Hart) jump(in *isa.Instruction, target uint32) bool {
	if target%h.cfg.Extensions.InstructionAlign() != 0 {
		h.raiseMisaligned(in, target)
		return false
	}
	if in.Op == isa.JAL || in.Op == isa.JALR {
		h.writeReg(in.Rd, in.Next())
	}
	h.pc = target
	return true
}

func (h *Hart) branchTaken(in *isa.Instruction) bool {
	a, b := h.x[in.Rs1], h.x[in.Rs2]
	switch in.Op {
	case isa.BEQ:
		return a == b
	case isa.BNE:
		return a != b
	case isa.BLT:
		return int32(a) < int32(b)
	case isa.BGE:
		return int32(a) >= int32(b)
	case isa.BLTU:
		return a < b
	default: // BGEU
		return a >= b
	}
}

// execSystem handles FENCE, ECALL, EBREAK, MRET, WFI and FENCE.I.
func (h *Hart) execSystem(in *isa.Instruction) bool {
	switch in.Op {
	case isa.ECALL, isa.EBREAK:
		// these retire before the trap is taken
		h.csr.cycle++
		cause := CauseEcallM
		if in.Op == isa.EBREAK {
			cause = CauseBreakpoint
		}
		h.raise(Trap{Cause: cause, PC: in.PC, Raw: in.Raw, Len: in.Len})
		return false
	case isa.MRET:
		target := h.csr.mepc
		if target%h.cfg.Extensions.InstructionAlign() != 0 {
			h.raiseMisaligned(in, target)
			return false
		}
		h.csr.trapReturn()
		h.pc = target
		return true
	case isa.FENCE_I:
		h.flushPending = true
	}
	// FENCE and WFI are no-ops on a single in-order hart
	h.pc = in.Next()
	return true
}
