//go:build !tinygo

package volatile

import "sync/atomic"

// Register8 is an 8-bit register.
type Register8 struct {
	reg atomic.Uint32
}

// Get returns the register value.
func (r *Register8) Get() uint8 { return uint8(r.reg.Load()) }

// Set writes the register value.
func (r *Register8) Set(value uint8) { r.reg.Store(uint32(value)) }

// SetBits sets the bits in value.
func (r *Register8) SetBits(value uint8) { r.Set(r.Get() | value) }

// ClearBits clears the bits in value.
func (r *Register8) ClearBits(value uint8) { r.Set(r.Get() &^ value) }

// HasBits reports whether any bit in value is set.
func (r *Register8) HasBits(value uint8) bool { return r.Get()&value != 0 }

// ReplaceBits replaces the field selected by mask at position pos with value.
func (r *Register8) ReplaceBits(value, mask uint8, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | value<<pos)
}

// Register16 is a 16-bit register.
type Register16 struct {
	reg atomic.Uint32
}

// Get returns the register value.
func (r *Register16) Get() uint16 { return uint16(r.reg.Load()) }

// Set writes the register value.
func (r *Register16) Set(value uint16) { r.reg.Store(uint32(value)) }

// SetBits sets the bits in value.
func (r *Register16) SetBits(value uint16) { r.Set(r.Get() | value) }

// ClearBits clears the bits in value.
func (r *Register16) ClearBits(value uint16) { r.Set(r.Get() &^ value) }

// HasBits reports whether any bit in value is set.
func (r *Register16) HasBits(value uint16) bool { return r.Get()&value != 0 }

// ReplaceBits replaces the field selected by mask at position pos with value.
func (r *Register16) ReplaceBits(value, mask uint16, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | value<<pos)
}

// Register32 is a 32-bit register.
type Register32 struct {
	reg atomic.Uint32
}

// Get returns the register value.
func (r *Register32) Get() uint32 { return r.reg.Load() }

// Set writes the register value.
func (r *Register32) Set(value uint32) { r.reg.Store(value) }

// SetBits sets the bits in value.
func (r *Register32) SetBits(value uint32) { r.Set(r.Get() | value) }

// ClearBits clears the bits in value.
func (r *Register32) ClearBits(value uint32) { r.Set(r.Get() &^ value) }

// HasBits reports whether any bit in value is set.
func (r *Register32) HasBits(value uint32) bool { return r.Get()&value != 0 }

// ReplaceBits replaces the field selected by mask at position pos with value.
func (r *Register32) ReplaceBits(value, mask uint32, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | value<<pos)
}

// FlagRegister8 is an 8-bit interrupt flag register with write-one-to-clear
// semantics: Set clears every bit written as 1 and leaves the rest.
type FlagRegister8 struct {
	reg atomic.Uint32
}

// Get returns the pending flags.
func (r *FlagRegister8) Get() uint8 { return uint8(r.reg.Load()) }

// Set acknowledges the flags in value.
func (r *FlagRegister8) Set(value uint8) {
	for {
		old := r.reg.Load()
		if r.reg.CompareAndSwap(old, old&^uint32(value)) {
			return
		}
	}
}

// HasBits reports whether any flag in value is pending.
func (r *FlagRegister8) HasBits(value uint8) bool { return r.Get()&value != 0 }

// Raise latches the flags in value, as the peripheral does when an event
// occurs. Only a bus model calls it.
func (r *FlagRegister8) Raise(value uint8) {
	for {
		old := r.reg.Load()
		if r.reg.CompareAndSwap(old, old|uint32(value)) {
			return
		}
	}
}
