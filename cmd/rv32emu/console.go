package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/rv32"
)

var csrNames = map[string]uint16{
	"fflags":   rv32.CSR_FFLAGS,
	"frm":      rv32.CSR_FRM,
	"fcsr":     rv32.CSR_FCSR,
	"mstatus":  rv32.CSR_MSTATUS,
	"misa":     rv32.CSR_MISA,
	"mtvec":    rv32.CSR_MTVEC,
	"mscratch": rv32.CSR_MSCRATCH,
	"mepc":     rv32.CSR_MEPC,
	"mcause":   rv32.CSR_MCAUSE,
	"mtval":    rv32.CSR_MTVAL,
	"cycle":    rv32.CSR_CYCLE,
	"cycleh":   rv32.CSR_CYCLEH,
	"instret":  rv32.CSR_INSTRET,
}

const consoleHelp = `commands:
  step [n]            run n instructions (default 1)
  run [n]             run until halt or n budget units (default max_cycles)
  regs | fregs        integer / float registers
  csr <name|addr>     read a CSR
  pc [addr]           show or set the pc
  reset [addr]        reset to addr (default entry)
  invalidate          drop every cached block
  blocks              dump the block cache
  disasm [addr] [n]   disassemble n instructions (default pc, 8)
  mem <addr> [n]      dump n words (default 4)
  status              halt state, cycle counter and last trap
  quit`

// console is the debug command interpreter. exec is separate from the
// readline loop so it can be driven directly.
type console struct {
	m   *machine
	out io.Writer
}

var errQuit = errors.New("quit")

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return uint32(v), nil
}

func argOr(args []string, i int, def uint32) (uint32, error) {
	if len(args) <= i {
		return def, nil
	}
	return parseUint32(args[i])
}

func (c *console) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	h := c.m.hart
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
	case "quit", "exit", "q":
		return errQuit
	case "step", "s":
		n, err := argOr(args, 0, 1)
		if err != nil {
			return err
		}
		h.ClearHalt()
		used := h.Run(uint64(n))
		fmt.Fprintf(c.out, "used %d\n", used)
		c.showNext()
	case "run", "r":
		limit := c.m.cfg.Run.MaxCycles
		if len(args) > 0 {
			n, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			limit = uint64(n)
		}
		h.ClearHalt()
		used := c.m.run(limit)
		fmt.Fprintf(c.out, "used %d\n", used)
		c.status()
	case "regs":
		for i := 0; i < 32; i++ {
			fmt.Fprintf(c.out, "%-4s %08x", isa.RegName(uint8(i)), h.Register(i))
			if i%4 == 3 {
				fmt.Fprintln(c.out)
			} else {
				fmt.Fprint(c.out, "  ")
			}
		}
		fmt.Fprintf(c.out, "pc   %08x\n", h.PC())
	case "fregs":
		if !h.Extensions().Has(isa.ExtF) {
			return fmt.Errorf("no F extension")
		}
		for i := 0; i < 32; i++ {
			bits := h.FRegister(i)
			fmt.Fprintf(c.out, "%-4s %08x %g\n", isa.FRegName(uint8(i)), bits, math.Float32frombits(bits))
		}
	case "csr":
		if len(args) != 1 {
			return fmt.Errorf("usage: csr <name|addr>")
		}
		addr, ok := csrNames[args[0]]
		if !ok {
			v, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			addr = uint16(v)
		}
		v, ok := h.CSR(addr)
		if !ok {
			return fmt.Errorf("csr 0x%03x not implemented", addr)
		}
		fmt.Fprintf(c.out, "%s = 0x%08x\n", args[0], v)
	case "pc":
		if len(args) == 0 {
			fmt.Fprintf(c.out, "pc = 0x%08x\n", h.PC())
			return nil
		}
		addr, err := parseUint32(args[0])
		if err != nil {
			return err
		}
		return h.SetPCChecked(addr)
	case "reset":
		addr, err := argOr(args, 0, c.m.cfg.Hart.Entry)
		if err != nil {
			return err
		}
		c.m.reset(addr)
		fmt.Fprintf(c.out, "pc = 0x%08x\n", h.PC())
	case "invalidate":
		h.InvalidateCache()
	case "blocks":
		fmt.Fprint(c.out, cacheTree(h).String())
	case "disasm", "d":
		addr, err := argOr(args, 0, h.PC())
		if err != nil {
			return err
		}
		n, err := argOr(args, 1, 8)
		if err != nil {
			return err
		}
		for i := uint32(0); i < n; i++ {
			text, size := isa.Disassemble(addr, c.m.ram.Read32(addr), h.Extensions())
			fmt.Fprintf(c.out, "%08x: %s\n", addr, text)
			addr += uint32(size)
		}
	case "mem", "x":
		if len(args) == 0 {
			return fmt.Errorf("usage: mem <addr> [n]")
		}
		addr, err := parseUint32(args[0])
		if err != nil {
			return err
		}
		n, err := argOr(args, 1, 4)
		if err != nil {
			return err
		}
		for i := uint32(0); i < n; i++ {
			fmt.Fprintf(c.out, "%08x: %08x\n", addr+4*i, c.m.ram.Read32(addr+4*i))
		}
	case "status":
		c.status()
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func (c *console) showNext() {
	h := c.m.hart
	text, _ := isa.Disassemble(h.PC(), c.m.ram.Read32(h.PC()), h.Extensions())
	fmt.Fprintf(c.out, "%08x: %s\n", h.PC(), text)
}

func (c *console) status() {
	h := c.m.hart
	fmt.Fprintf(c.out, "pc 0x%08x cycle %d halted %v\n", h.PC(), h.Cycle(), h.HasHalted())
	if c.m.exited {
		fmt.Fprintf(c.out, "guest exited with %d\n", c.m.exitCode)
	}
	if t := c.m.lastTrap; t != nil {
		fmt.Fprintf(c.out, "last trap: %s\n", t)
	}
}

// loop reads commands until quit or EOF.
func (c *console) loop(rl *readline.Instance) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := c.exec(line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(c.out, "❌ %v\n", err)
		}
	}
}
