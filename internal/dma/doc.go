// Package dma translates between Go byte slices and the 32-bit bus
// addresses a DMA-capable peripheral is programmed with.
//
// On TinyGo targets the address is the slice's physical location. On hosted
// Go there is no shared address space, so Addr hands out addresses from a
// ring of 64 KiB windows starting at SRAMBase and Bytes resolves them back
// to the registered slice. The ring is large enough that every endpoint
// direction of a controller can hold a live window at once. Buffers that
// are programmed once and used forever go through Pin instead.
//
// The caller keeps the slice reachable for as long as the peripheral may
// access it.
package dma
