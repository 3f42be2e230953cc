package main

import (
	"fmt"
	"io"
	"os"

	"github.com/colorfulnotion/rv32emu/config"
	"github.com/colorfulnotion/rv32emu/log"
	"github.com/colorfulnotion/rv32emu/memory"
	"github.com/colorfulnotion/rv32emu/rv32"
)

// machine is one hart on sparse RAM with the host syscall ABI behind ECALL.
type machine struct {
	cfg  *config.Config
	ram  *memory.RAM
	hart *rv32.Hart

	stdout io.Writer
	stderr io.Writer

	exited   bool
	exitCode int32
	lastTrap *rv32.Trap
}

func newMachine(cfg *config.Config, stdout, stderr io.Writer) (*machine, error) {
	hc, err := cfg.HartConfig()
	if err != nil {
		return nil, err
	}
	m := &machine{
		cfg:    cfg,
		ram:    memory.NewRAM(),
		stdout: stdout,
		stderr: stderr,
	}
	m.hart, err = rv32.NewWithConfig(rv32.NewBusIO(m.ram, m.onTrap), m, hc)
	if err != nil {
		return nil, err
	}
	if path := cfg.ImagePath(); path != "" {
		image, err := os.ReadFile(path)
		if err != nil {
			m.hart.Close()
			return nil, fmt.Errorf("cannot read image: %w", err)
		}
		if err := m.ram.LoadImage(cfg.Run.LoadAddr, image); err != nil {
			m.hart.Close()
			return nil, err
		}
	}
	m.reset(cfg.Hart.Entry)
	return m, nil
}

func (m *machine) reset(pc uint32) {
	m.hart.Reset(pc)
	m.exited = false
	m.exitCode = 0
	m.lastTrap = nil
}

// onTrap services ECALLs and hands everything else to a guest handler in
// mtvec, halting when there is none.
func (m *machine) onTrap(h *rv32.Hart, t rv32.Trap) rv32.TrapAction {
	m.lastTrap = &t
	if t.Cause == rv32.CauseEcallM {
		if m.syscall(h) {
			return rv32.Resume(t.NextPC())
		}
		return rv32.HaltAction()
	}
	if vec := h.TrapVector() &^ 3; vec != 0 {
		log.Debug(log.RvHost, "guest trap handler", "trap", t.String(), "vector", fmt.Sprintf("0x%08x", vec))
		return rv32.Resume(vec)
	}
	log.Warn(log.RvHost, "unhandled trap", "trap", t.String(), "err", t.Err)
	return rv32.HaltAction()
}

// run drives the hart in slices until it halts or maxCycles (0 for no
// limit) units are used.
func (m *machine) run(maxCycles uint64) uint64 {
	var total uint64
	for !m.hart.HasHalted() {
		slice := m.cfg.Run.Slice
		if maxCycles > 0 {
			if total >= maxCycles {
				break
			}
			slice = min(slice, maxCycles-total)
		}
		total += m.hart.Run(slice)
	}
	return total
}

func (m *machine) close() {
	m.hart.Close()
}
