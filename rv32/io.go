package rv32

import (
	"fmt"

	"github.com/colorfulnotion/rv32emu/rverrors"
)

// IO is the embedder's side of a hart. It is copied into the hart at
// construction. Callbacks run synchronously on the goroutine calling Run and
// are never invoked concurrently for the same hart.
//
// Data accesses are passed through unchanged; alignment and access faults are
// the embedder's business.
type IO struct {
	Fetch func(h *Hart, addr uint32) uint32

	Read8  func(h *Hart, addr uint32) uint8
	Read16 func(h *Hart, addr uint32) uint16
	Read32 func(h *Hart, addr uint32) uint32

	Write8  func(h *Hart, addr uint32, v uint8)
	Write16 func(h *Hart, addr uint32, v uint16)
	Write32 func(h *Hart, addr uint32, v uint32)

	// OnTrap decides how execution continues after a trap. mepc, mcause and
	// mtval already hold the trap state when it runs.
	OnTrap func(h *Hart, t Trap) TrapAction

	// CSR optionally implements CSRs the hart does not know. It returns false
	// to decline, which raises an illegal-instruction trap.
	CSR func(h *Hart, csr uint16, write bool, value uint32) (uint32, bool)
}

func (io *IO) validate() error {
	missing := ""
	switch {
	case io.Fetch == nil:
		missing = "Fetch"
	case io.Read8 == nil:
		missing = "Read8"
	case io.Read16 == nil:
		missing = "Read16"
	case io.Read32 == nil:
		missing = "Read32"
	case io.Write8 == nil:
		missing = "Write8"
	case io.Write16 == nil:
		missing = "Write16"
	case io.Write32 == nil:
		missing = "Write32"
	case io.OnTrap == nil:
		missing = "OnTrap"
	}
	if missing != "" {
		return fmt.Errorf("io callback %s is nil: %w", missing, rverrors.ErrConfiguration)
	}
	return nil
}

// Bus is plain little-endian memory. memory.RAM implements it.
type Bus interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16
	Read32(addr uint32) uint32
	Write8(addr uint32, v uint8)
	Write16(addr uint32, v uint16)
	Write32(addr uint32, v uint32)
}

// NewBusIO builds an IO whose fetches and data accesses go to bus. A nil
// onTrap halts on every trap.
func NewBusIO(bus Bus, onTrap func(h *Hart, t Trap) TrapAction) IO {
	if onTrap == nil {
		onTrap = HaltOnTrap
	}
	return IO{
		Fetch:   func(_ *Hart, addr uint32) uint32 { return bus.Read32(addr) },
		Read8:   func(_ *Hart, addr uint32) uint8 { return bus.Read8(addr) },
		Read16:  func(_ *Hart, addr uint32) uint16 { return bus.Read16(addr) },
		Read32:  func(_ *Hart, addr uint32) uint32 { return bus.Read32(addr) },
		Write8:  func(_ *Hart, addr uint32, v uint8) { bus.Write8(addr, v) },
		Write16: func(_ *Hart, addr uint32, v uint16) { bus.Write16(addr, v) },
		Write32: func(_ *Hart, addr uint32, v uint32) { bus.Write32(addr, v) },
		OnTrap:  onTrap,
	}
}

// HaltOnTrap is an OnTrap handler that stops the hart.
func HaltOnTrap(_ *Hart, _ Trap) TrapAction {
	return HaltAction()
}
