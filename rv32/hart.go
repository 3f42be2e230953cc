package rv32

import (
	"fmt"

	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/log"
	"github.com/colorfulnotion/rv32emu/rverrors"
)

const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegA0   = 10
	RegA7   = 17

	numRegs = 32

	// InvalidRegister is returned by Register for an out-of-range index.
	InvalidRegister = 0xFFFFFFFF
)

// Hart is one RV32 hardware thread: its architectural state, its IO and the
// block cache its executor fills. A Hart must only be driven from one
// goroutine at a time; separate harts share nothing.
type Hart struct {
	io   IO
	user any
	cfg  Config

	x   [numRegs]uint32
	f   [numRegs]uint32 // raw single-precision bits
	pc  uint32
	csr csrFile

	reservation     bool
	reservationAddr uint32

	halt         bool
	closed       bool
	flushPending bool

	cache *BlockCache
}

// New creates a hart with DefaultConfig.
func New(io IO, user any) (*Hart, error) {
	return NewWithConfig(io, user, DefaultConfig())
}

// NewWithConfig creates a hart. Errors wrap rverrors.ErrConfiguration.
func NewWithConfig(io IO, user any, cfg Config) (*Hart, error) {
	if err := io.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Hart{
		io:    io,
		user:  user,
		cfg:   cfg,
		cache: NewBlockCache(cfg.CacheBits),
	}
	h.x[RegSP] = cfg.StackAddr
	log.Debug(log.RvExecution, "hart created", "isa", cfg.Extensions, "slots", h.cache.Capacity(), "blockCapacity", cfg.BlockCapacity)
	return h, nil
}

// Close releases the block cache. Further Close calls are no-ops and a
// closed hart runs zero cycles.
func (h *Hart) Close() {
	if h.closed {
		return
	}
	h.cache.Clear()
	h.cache = nil
	h.closed = true
}

// Reset zeroes registers, CSRs and the halt flag, sets sp to the configured
// stack address and the PC to pc. The block cache is kept. A misaligned pc
// is aligned down.
func (h *Hart) Reset(pc uint32) {
	h.x = [numRegs]uint32{}
	h.f = [numRegs]uint32{}
	h.csr = csrFile{}
	h.x[RegSP] = h.cfg.StackAddr
	h.reservation = false
	h.halt = false
	h.flushPending = false

	align := h.cfg.Extensions.InstructionAlign()
	if pc%align != 0 {
		log.Warn(log.RvExecution, "reset pc misaligned, aligning down", "pc", fmt.Sprintf("0x%08x", pc))
		pc &^= align - 1
	}
	h.pc = pc
}

func (h *Hart) Halt() { h.halt = true }

func (h *Hart) HasHalted() bool { return h.halt }

// ClearHalt clears the halt flag so the next Run executes again.
func (h *Hart) ClearHalt() { h.halt = false }

func (h *Hart) PC() uint32 { return h.pc }

// SetPC sets the program counter if addr satisfies the instruction alignment
// of the active extensions. It reports whether the write happened.
func (h *Hart) SetPC(addr uint32) bool {
	if addr%h.cfg.Extensions.InstructionAlign() != 0 {
		return false
	}
	h.pc = addr
	return true
}

// SetPCChecked is SetPC returning an error wrapping rverrors.ErrMisalignedPC.
func (h *Hart) SetPCChecked(addr uint32) error {
	if !h.SetPC(addr) {
		return fmt.Errorf("pc 0x%08x not %d-byte aligned: %w", addr, h.cfg.Extensions.InstructionAlign(), rverrors.ErrMisalignedPC)
	}
	return nil
}

// Register returns x[i], or InvalidRegister when i is out of range.
func (h *Hart) Register(i int) uint32 {
	v, _ := h.RegisterChecked(i)
	return v
}

// RegisterChecked returns x[i] and whether i was a valid index. The value for
// an invalid index is still InvalidRegister.
func (h *Hart) RegisterChecked(i int) (uint32, bool) {
	if i < 0 || i >= numRegs {
		return InvalidRegister, false
	}
	return h.x[i], true
}

// SetRegister writes x[i]. Writes to x0 and out-of-range indices are ignored.
func (h *Hart) SetRegister(i int, v uint32) {
	if i <= RegZero || i >= numRegs {
		return
	}
	h.x[i] = v
}

// FRegister returns the raw bits of f[i], or InvalidRegister when i is out of
// range or the hart has no F extension.
func (h *Hart) FRegister(i int) uint32 {
	if i < 0 || i >= numRegs || !h.cfg.Extensions.Has(isa.ExtF) {
		return InvalidRegister
	}
	return h.f[i]
}

func (h *Hart) SetFRegister(i int, v uint32) {
	if i < 0 || i >= numRegs || !h.cfg.Extensions.Has(isa.ExtF) {
		return
	}
	h.f[i] = v
}

func (h *Hart) UserData() any { return h.user }

func (h *Hart) Extensions() isa.Extensions { return h.cfg.Extensions }

func (h *Hart) Config() Config { return h.cfg }

// Cycle is the number of retired instructions since construction or Reset.
func (h *Hart) Cycle() uint64 { return h.csr.cycle }

// TrapVector is the mtvec CSR.
func (h *Hart) TrapVector() uint32 { return h.csr.mtvec }

// Status is the mstatus CSR.
func (h *Hart) Status() uint32 { return h.csr.mstatus }

// TrapState returns the CSRs written by the most recent trap.
func (h *Hart) TrapState() (mepc, mcause, mtval uint32) {
	return h.csr.mepc, h.csr.mcause, h.csr.mtval
}

// CSR reads a CSR without side effects. Unknown CSRs report false.
func (h *Hart) CSR(addr uint16) (uint32, bool) {
	return h.readCSR(addr)
}

// InvalidateCache drops every cached block. Call it after rewriting code
// memory; stores never invalidate on their own.
func (h *Hart) InvalidateCache() {
	if h.closed {
		return
	}
	h.cache.Clear()
}

func (h *Hart) CacheStats() CacheStats {
	if h.closed {
		return CacheStats{}
	}
	return h.cache.Stats()
}

// CachedBlocks returns the cached blocks ordered by start address. The blocks
// are shared with the cache and must not be modified.
func (h *Hart) CachedBlocks() []*Block {
	if h.closed {
		return nil
	}
	return h.cache.Blocks()
}

// writeReg writes x[rd] from an executing instruction.
func (h *Hart) writeReg(rd uint8, v uint32) {
	if rd != RegZero {
		h.x[rd] = v
	}
}
