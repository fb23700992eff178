//go:build !tinygo

package dma

import "sync"

const (
	// SRAMBase is the first address handed out on hosted builds.
	SRAMBase uint32 = 0x2000_0000

	windowShift = 16
	windowCount = 256
)

// pinnedBase is the first address of windows that are never recycled.
const pinnedBase = SRAMBase + windowCount<<windowShift

var (
	mutex   sync.Mutex
	next    int
	windows [windowCount][]byte
	pinned  [][]byte
)

// Addr returns the bus address of b[0]. It returns 0 for an empty slice.
func Addr(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	mutex.Lock()
	defer mutex.Unlock()
	slot := next
	next = (next + 1) % windowCount
	windows[slot] = b
	return SRAMBase + uint32(slot)<<windowShift
}

// Pin returns the bus address of b[0] like Addr, but the address stays
// valid for the life of the process. Use it for buffers a peripheral is
// programmed with once, such as a control endpoint buffer.
func Pin(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	mutex.Lock()
	defer mutex.Unlock()
	pinned = append(pinned, b)
	return pinnedBase + uint32(len(pinned)-1)<<windowShift
}

// Bytes returns n bytes of memory at addr. The result is shorter than n
// when the region registered at addr ends first, and nil when addr was
// never handed out.
func Bytes(addr uint32, n int) []byte {
	if addr < SRAMBase || n <= 0 {
		return nil
	}
	off := addr - SRAMBase
	slot := int(off >> windowShift)
	start := int(off & (1<<windowShift - 1))

	mutex.Lock()
	var w []byte
	switch {
	case slot < windowCount:
		w = windows[slot]
	case slot-windowCount < len(pinned):
		w = pinned[slot-windowCount]
	}
	mutex.Unlock()

	if start >= len(w) {
		return nil
	}
	end := start + n
	if end > len(w) {
		end = len(w)
	}
	return w[start:end]
}
