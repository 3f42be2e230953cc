package rv32

import (
	"errors"
	"fmt"

	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/log"
)

// TrapCause is the mcause exception code.
type TrapCause uint32

const (
	CauseMisalignedFetch    TrapCause = 0
	CauseIllegalInstruction TrapCause = 2
	CauseBreakpoint         TrapCause = 3
	CauseEcallM             TrapCause = 11
)

func (c TrapCause) String() string {
	switch c {
	case CauseMisalignedFetch:
		return "instruction address misaligned"
	case CauseIllegalInstruction:
		return "illegal instruction"
	case CauseBreakpoint:
		return "breakpoint"
	case CauseEcallM:
		return "environment call"
	default:
		return fmt.Sprintf("cause %d", uint32(c))
	}
}

// Trap describes an exception raised by the instruction at PC.
type Trap struct {
	Cause TrapCause
	PC    uint32
	Raw   uint32 // raw encoding of the faulting instruction
	Len   uint8  // its length in bytes
	Value uint32 // mtval: misaligned target or raw encoding
	Err   error  // decode error for illegal instructions, else nil
}

// NextPC is the address following the faulting instruction.
func (t Trap) NextPC() uint32 {
	return t.PC + uint32(t.Len)
}

func (t Trap) String() string {
	return fmt.Sprintf("%s at 0x%08x (raw 0x%x)", t.Cause, t.PC, t.Raw)
}

// TrapAction is returned by IO.OnTrap.
type TrapAction struct {
	Halt   bool
	Vector uint32
}

// Resume continues execution at pc.
func Resume(pc uint32) TrapAction {
	return TrapAction{Vector: pc}
}

func HaltAction() TrapAction {
	return TrapAction{Halt: true}
}

// raise records the trap in the machine CSRs and hands it to OnTrap.
func (h *Hart) raise(t Trap) {
	h.csr.mepc = t.PC
	h.csr.mcause = uint32(t.Cause)
	h.csr.mtval = t.Value
	h.csr.trapEnter()
	h.reservation = false

	log.Debug(log.RvExecution, "trap", "cause", t.Cause, "pc", fmt.Sprintf("0x%08x", t.PC), "raw", fmt.Sprintf("0x%x", t.Raw))

	act := h.io.OnTrap(h, t)
	if act.Halt {
		h.halt = true
		return
	}
	if !h.SetPC(act.Vector) {
		log.Warn(log.RvExecution, "trap handler returned misaligned vector, halting", "vector", fmt.Sprintf("0x%08x", act.Vector))
		h.halt = true
	}
}

// raiseDecode turns a decoder failure into an illegal-instruction trap.
func (h *Hart) raiseDecode(pc uint32, err error) {
	t := Trap{Cause: CauseIllegalInstruction, PC: pc, Err: err, Len: 4}
	var de *isa.DecodeError
	if errors.As(err, &de) {
		t.Raw, t.Len, t.Value = de.Raw, de.Len, de.Raw
	}
	h.raise(t)
}

func (h *Hart) raiseIllegal(in *isa.Instruction, err error) {
	h.raise(Trap{Cause: CauseIllegalInstruction, PC: in.PC, Raw: in.Raw, Len: in.Len, Value: in.Raw, Err: err})
}

func (h *Hart) raiseMisaligned(in *isa.Instruction, target uint32) {
	h.raise(Trap{Cause: CauseMisalignedFetch, PC: in.PC, Raw: in.Raw, Len: in.Len, Value: target})
}
