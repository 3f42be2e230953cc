package main

import (
	"fmt"

	"github.com/colorfulnotion/rv32emu/log"
	"github.com/colorfulnotion/rv32emu/rv32"
)

// Linux RISC-V syscall numbers understood by the host.
const (
	SYS_WRITE = 64
	SYS_EXIT  = 93

	maxWrite = 1 << 20

	errEBADF  = -9
	errENOSYS = -38

	regA1 = 11
	regA2 = 12
)

// syscall runs the ECALL in a7 and reports whether the guest continues.
func (m *machine) syscall(h *rv32.Hart) bool {
	a0 := h.Register(rv32.RegA0)
	switch nr := h.Register(rv32.RegA7); nr {
	case SYS_WRITE:
		w := m.stdout
		switch a0 {
		case 1:
		case 2:
			w = m.stderr
		default:
			h.SetRegister(rv32.RegA0, errno(errEBADF))
			return true
		}
		n := min(h.Register(regA2), maxWrite)
		written, err := w.Write(m.ram.ReadBytes(h.Register(regA1), n))
		if err != nil {
			log.Warn(log.RvHost, "write failed", "fd", a0, "err", err)
		}
		h.SetRegister(rv32.RegA0, uint32(written))
	case SYS_EXIT:
		m.exited = true
		m.exitCode = int32(a0)
		log.Info(log.RvHost, "guest exit", "code", m.exitCode, "cycle", h.Cycle())
		return false
	default:
		log.Warn(log.RvHost, "unknown syscall", "nr", nr, "pc", fmt.Sprintf("0x%08x", h.PC()))
		h.SetRegister(rv32.RegA0, errno(errENOSYS))
	}
	return true
}

// errno encodes a negative error return in a0.
func errno(e int32) uint32 {
	return uint32(e)
}
