package memory

import (
	"encoding/binary"
	"fmt"

	"github.com/colorfulnotion/rv32emu/log"
	"github.com/colorfulnotion/rv32emu/rverrors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/slices"
)

const (
	AddressSpace = 1 << 32
	PageSize     = 4096
	TotalPages   = AddressSpace / PageSize
)

type page struct {
	data  [PageSize]byte
	dirty bool
}

// RAM is a sparse little-endian 32-bit address space. Pages are allocated on
// first write; unwritten memory reads as zero. Accesses wrap at 4 GiB and may
// be unaligned or cross pages.
type RAM struct {
	pages map[uint32]*page
}

func NewRAM() *RAM {
	return &RAM{pages: make(map[uint32]*page)}
}

func (ram *RAM) getPage(idx uint32) *page {
	return ram.pages[idx]
}

func (ram *RAM) getOrAllocatePage(idx uint32) *page {
	p := ram.pages[idx]
	if p == nil {
		p = &page{}
		ram.pages[idx] = p
	}
	return p
}

// WriteBytes copies data to address, wrapping past the top of memory.
func (ram *RAM) WriteBytes(address uint32, data []byte) {
	for len(data) > 0 {
		p := ram.getOrAllocatePage(address / PageSize)
		off := address % PageSize
		n := copy(p.data[off:], data)
		p.dirty = true
		address += uint32(n)
		data = data[n:]
	}
}

// ReadBytes returns length bytes starting at address.
func (ram *RAM) ReadBytes(address uint32, length uint32) []byte {
	result := make([]byte, length)
	out := result
	for len(out) > 0 {
		off := address % PageSize
		n := min(uint32(len(out)), PageSize-off)
		if p := ram.getPage(address / PageSize); p != nil {
			copy(out[:n], p.data[off:off+n])
		}
		address += n
		out = out[n:]
	}
	return result
}

func (ram *RAM) Read8(addr uint32) uint8 {
	if p := ram.getPage(addr / PageSize); p != nil {
		return p.data[addr%PageSize]
	}
	return 0
}

func (ram *RAM) Read16(addr uint32) uint16 {
	if off := addr % PageSize; off <= PageSize-2 {
		if p := ram.getPage(addr / PageSize); p != nil {
			return binary.LittleEndian.Uint16(p.data[off:])
		}
		return 0
	}
	return binary.LittleEndian.Uint16(ram.ReadBytes(addr, 2))
}

func (ram *RAM) Read32(addr uint32) uint32 {
	if off := addr % PageSize; off <= PageSize-4 {
		if p := ram.getPage(addr / PageSize); p != nil {
			return binary.LittleEndian.Uint32(p.data[off:])
		}
		return 0
	}
	return binary.LittleEndian.Uint32(ram.ReadBytes(addr, 4))
}

func (ram *RAM) Write8(addr uint32, v uint8) {
	p := ram.getOrAllocatePage(addr / PageSize)
	p.data[addr%PageSize] = v
	p.dirty = true
}

func (ram *RAM) Write16(addr uint32, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	ram.WriteBytes(addr, b[:])
}

func (ram *RAM) Write32(addr uint32, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	ram.WriteBytes(addr, b[:])
}

// LoadImage copies a flat binary image to addr. The image must be non-empty
// and must not run past the top of the address space.
func (ram *RAM) LoadImage(addr uint32, image []byte) error {
	if len(image) == 0 {
		return rverrors.ErrEmptyImage
	}
	if uint64(addr)+uint64(len(image)) > AddressSpace {
		return fmt.Errorf("%d bytes at 0x%08x: %w", len(image), addr, rverrors.ErrImageTooLarge)
	}
	ram.WriteBytes(addr, image)
	digest := Digest(image)
	log.Info(log.RvHost, "image loaded", "addr", fmt.Sprintf("0x%08x", addr), "bytes", len(image), "blake2b", fmt.Sprintf("%x", digest[:8]))
	return nil
}

// Digest is the BLAKE2b-256 hash used to identify loaded images.
func Digest(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// RegionDigest hashes length bytes of memory starting at addr.
func (ram *RAM) RegionDigest(addr, length uint32) [32]byte {
	return Digest(ram.ReadBytes(addr, length))
}

// DirtyPages returns the indices of written pages in ascending order.
func (ram *RAM) DirtyPages() []uint32 {
	pages := make([]uint32, 0, len(ram.pages))
	for idx, p := range ram.pages {
		if p.dirty {
			pages = append(pages, idx)
		}
	}
	slices.Sort(pages)
	return pages
}

// ClearDirty marks every page clean.
func (ram *RAM) ClearDirty() {
	for _, p := range ram.pages {
		p.dirty = false
	}
}
