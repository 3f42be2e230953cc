package rv32

import (
	"testing"

	"github.com/colorfulnotion/rv32emu/isa"
	"github.com/colorfulnotion/rv32emu/rverrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRReadWrite(t *testing.T) {
	h, m := newMachine(t, isa.RV32GC,
		addi(5, 0, 0x55),
		csrr(1, 0, 5, CSR_MSCRATCH), // csrrw
		csrr(2, 6, 0, CSR_MSCRATCH), // csrrs
		csrr(6, 0, 2, CSR_MSCRATCH), // csrrsi
		csrr(3, 7, 0, CSR_MSCRATCH), // csrrc
		csrr(2, 8, 0, CSR_MISA),
		csrr(2, 9, 0, CSR_CYCLE),
		csrr(3, 0, 5, CSR_MSCRATCH),
		ebreak,
	)
	h.Run(100)
	require.Len(t, m.traps, 1)
	assert.Equal(t, CauseBreakpoint, m.traps[0].Cause)
	assert.Equal(t, uint32(0x55), h.Register(6))
	assert.Equal(t, uint32(0x57), h.Register(7))
	assert.Equal(t, isa.RV32GC.Misa(), h.Register(8))
	assert.Equal(t, uint32(6), h.Register(9))

	v, ok := h.CSR(CSR_MSCRATCH)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x02), v)
	_, ok = h.CSR(0x7c0)
	assert.False(t, ok)
}

func TestCSRReadOnlyWriteTraps(t *testing.T) {
	h, m := newMachine(t, isa.RV32GC,
		csrr(2, 6, 0, CSR_CYCLE), // read is fine
		csrr(1, 0, 5, CSR_CYCLE),
	)
	h.Run(10)
	require.Len(t, m.traps, 1)
	assert.Equal(t, CauseIllegalInstruction, m.traps[0].Cause)
	assert.Equal(t, uint32(progBase+4), m.traps[0].PC)
	assert.ErrorIs(t, m.traps[0].Err, rverrors.ErrIllegalInstruction)
	assert.Equal(t, uint64(1), h.Cycle())
}

func TestCSRFloatAbsentWithoutF(t *testing.T) {
	h, m := newMachine(t, isa.ExtZicsr,
		csrr(2, 6, 0, CSR_FFLAGS),
	)
	h.Run(10)
	require.Len(t, m.traps, 1)
	assert.Equal(t, CauseIllegalInstruction, m.traps[0].Cause)
	_, ok := h.CSR(CSR_FCSR)
	assert.False(t, ok)
}

func TestCSRFloatControl(t *testing.T) {
	h, _ := newMachine(t, isa.RV32GC,
		csrr(5, 0, 3, CSR_FRM),     // csrrwi frm, 3
		csrr(2, 6, 0, CSR_FCSR),    // csrrs x6, fcsr
		csrr(5, 0, 31, CSR_FFLAGS), // csrrwi fflags, 31
		csrr(2, 7, 0, CSR_FCSR),
		csrr(1, 8, 0, CSR_FCSR), // csrrw x8, fcsr, x0
		ebreak,
	)
	h.Run(10)
	assert.Equal(t, uint32(0x60), h.Register(6))
	assert.Equal(t, uint32(0x7f), h.Register(7))
	assert.Equal(t, uint32(0x7f), h.Register(8))
	v, _ := h.CSR(CSR_FCSR)
	assert.Equal(t, uint32(0), v)
}

func TestCSRCycleWrite(t *testing.T) {
	h, _ := newMachine(t, isa.RV32GC,
		addi(5, 0, 100),
		csrr(1, 0, 5, CSR_MCYCLE),
		csrr(2, 6, 0, CSR_CYCLE),
		csrr(2, 7, 0, CSR_CYCLEH),
		ebreak,
	)
	h.Run(10)
	assert.Equal(t, uint32(101), h.Register(6))
	assert.Equal(t, uint32(0), h.Register(7))
}

func TestCSRHook(t *testing.T) {
	const custom = 0x7c0
	var stored uint32
	var calls int
	h, m := newMachineIO(t, isa.RV32GC, func(io *IO, _ *machine) {
		io.CSR = func(_ *Hart, csr uint16, write bool, value uint32) (uint32, bool) {
			calls++
			if csr != custom {
				return 0, false
			}
			if write {
				stored = value
				return 0, true
			}
			return stored, true
		}
	},
		addi(5, 0, 7),
		csrr(1, 6, 5, custom),
		csrr(2, 7, 0, custom),
		csrr(2, 8, 0, custom+1),
	)
	h.Run(10)
	assert.Equal(t, uint32(0), h.Register(6))
	assert.Equal(t, uint32(7), h.Register(7))
	assert.Equal(t, uint32(7), stored)
	assert.Equal(t, 4, calls)
	require.Len(t, m.traps, 1)
	assert.Equal(t, CauseIllegalInstruction, m.traps[0].Cause)
	assert.Equal(t, uint32(progBase+12), m.traps[0].PC)

	// own CSRs never reach the hook
	calls = 0
	h.Reset(progBase)
	m.ram.Write32(progBase, csrr(2, 6, 0, CSR_MSCRATCH))
	m.ram.Write32(progBase+4, ebreak)
	h.InvalidateCache()
	h.Run(10)
	assert.Equal(t, 0, calls)
}

func TestCSRUnknownWithoutHookTraps(t *testing.T) {
	h, m := newMachine(t, isa.RV32GC, csrr(2, 6, 0, 0x7c0))
	h.Run(10)
	require.Len(t, m.traps, 1)
	assert.Equal(t, CauseIllegalInstruction, m.traps[0].Cause)
	assert.Equal(t, uint64(0), h.Cycle())
}

func TestTrapUpdatesStatus(t *testing.T) {
	h, _ := newMachine(t, isa.RV32GC,
		csrr(6, 0, MSTATUS_MIE, CSR_MSTATUS), // csrrsi mstatus, MIE
		ecall,
	)
	h.Run(10)
	assert.Equal(t, uint32(MSTATUS_MPIE|MSTATUS_MPP), h.Status())

	h.csr.trapReturn()
	assert.Equal(t, uint32(MSTATUS_MIE|MSTATUS_MPIE|MSTATUS_MPP), h.Status())
}

func TestCSRMtvecAndMepcMasking(t *testing.T) {
	h, _ := newMachine(t, isa.RV32GC,
		addi(5, 0, 0x103),
		csrr(1, 0, 5, CSR_MTVEC),
		csrr(1, 0, 5, CSR_MEPC),
		ebreak,
	)
	h.Run(10)
	assert.Equal(t, uint32(0x101), h.TrapVector())
	h.Reset(progBase)
	assert.Equal(t, uint32(0), h.TrapVector())
}
