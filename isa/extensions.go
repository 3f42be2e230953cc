package isa

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/rv32emu/rverrors"
)

// Extensions is the immutable capability set of a hart. The base integer ISA
// is always present and has no bit.
type Extensions uint32

const (
	ExtM        Extensions = 1 << iota // integer multiply/divide
	ExtA                               // atomics
	ExtF                               // single-precision floating point
	ExtC                               // compressed 16-bit encodings
	ExtZicsr                           // CSR instructions
	ExtZifencei                        // FENCE.I
)

const (
	RV32I  Extensions = 0
	RV32G             = ExtM | ExtA | ExtF | ExtZicsr | ExtZifencei
	RV32GC            = RV32G | ExtC
)

var extLetters = []struct {
	ext    Extensions
	letter byte
}{
	{ExtM, 'm'},
	{ExtA, 'a'},
	{ExtF, 'f'},
	{ExtC, 'c'},
}

var extNames = []struct {
	ext  Extensions
	name string
}{
	{ExtZicsr, "zicsr"},
	{ExtZifencei, "zifencei"},
}

// Has reports whether every extension in x is enabled.
func (e Extensions) Has(x Extensions) bool {
	return e&x == x
}

// InstructionAlign is the required PC alignment in bytes.
func (e Extensions) InstructionAlign() uint32 {
	if e.Has(ExtC) {
		return 2
	}
	return 4
}

// Misa returns the misa CSR value: MXL=1 plus one bit per single-letter extension.
func (e Extensions) Misa() uint32 {
	v := uint32(1)<<30 | 1<<('i'-'a')
	for _, l := range extLetters {
		if e.Has(l.ext) {
			v |= 1 << (l.letter - 'a')
		}
	}
	return v
}

func (e Extensions) String() string {
	var sb strings.Builder
	sb.WriteString("rv32i")
	for _, l := range extLetters {
		if e.Has(l.ext) {
			sb.WriteByte(l.letter)
		}
	}
	for _, n := range extNames {
		if e.Has(n.ext) {
			sb.WriteByte('_')
			sb.WriteString(n.name)
		}
	}
	return sb.String()
}

// ParseExtensions accepts ISA strings such as "rv32imac_zicsr", "imafc" or "gc".
// "g" expands to imaf_zicsr_zifencei (there is no D on this core).
func ParseExtensions(s string) (Extensions, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "rv32")
	parts := strings.Split(s, "_")

	var ext Extensions
	for i, l := range parts[0] {
		switch l {
		case 'i':
		case 'e':
			return 0, fmt.Errorf("rv32e register file is not supported: %w", rverrors.ErrConfiguration)
		case 'g':
			ext |= RV32G
		case 'm':
			ext |= ExtM
		case 'a':
			ext |= ExtA
		case 'f':
			ext |= ExtF
		case 'c':
			ext |= ExtC
		default:
			return 0, fmt.Errorf("unknown extension %q at offset %d in %q: %w", l, i, s, rverrors.ErrConfiguration)
		}
	}
	for _, p := range parts[1:] {
		found := false
		for _, n := range extNames {
			if p == n.name {
				ext |= n.ext
				found = true
			}
		}
		if !found && p != "" {
			return 0, fmt.Errorf("unknown extension %q: %w", p, rverrors.ErrConfiguration)
		}
	}
	return ext, nil
}
