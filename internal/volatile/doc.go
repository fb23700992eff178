// Package volatile provides memory-mapped register types.
//
// On TinyGo targets the types are aliases of runtime/volatile, so a register
// block struct overlays the peripheral's address space exactly. On hosted Go
// the same methods are backed by sync/atomic, which lets a simulated bus
// engine and the driver share one register block from different goroutines.
//
// Every register is read and written as a whole. SetBits and ClearBits are
// read-modify-write sequences, exactly as they are on hardware.
package volatile
