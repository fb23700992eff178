//go:build tinygo

package dma

import "unsafe"

// Addr returns the bus address of b[0]. It returns 0 for an empty slice.
func Addr(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	return uint32(uintptr(unsafe.Pointer(&b[0])))
}

// Bytes returns n bytes of memory at addr.
func Bytes(addr uint32, n int) []byte {
	if addr == 0 || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), n)
}

// Pin returns the bus address of b[0]; on hardware it is identical to Addr.
func Pin(b []byte) uint32 {
	return Addr(b)
}
