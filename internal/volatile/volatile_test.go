//go:build !tinygo

package volatile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegister8(t *testing.T) {
	var r Register8
	r.Set(0x20)
	r.SetBits(0x03)
	assert.Equal(t, uint8(0x23), r.Get())
	assert.True(t, r.HasBits(0x01))

	r.ClearBits(0x01)
	assert.Equal(t, uint8(0x22), r.Get())
	assert.False(t, r.HasBits(0x01))

	r.ReplaceBits(0x1, 0x3, 2)
	assert.Equal(t, uint8(0x26), r.Get())
}

func TestRegister16(t *testing.T) {
	var r Register16
	r.Set(0x1234)
	r.ClearBits(0x0004)
	assert.Equal(t, uint16(0x1230), r.Get())
	r.ReplaceBits(0xF, 0xF, 12)
	assert.Equal(t, uint16(0xF230), r.Get())
}

func TestRegister32(t *testing.T) {
	var r Register32
	r.SetBits(1 << 16)
	r.SetBits(1 << 0)
	assert.Equal(t, uint32(0x00010001), r.Get())
	r.ClearBits(1 << 16)
	assert.True(t, r.HasBits(1))
	assert.False(t, r.HasBits(1<<16))
}

func TestFlagRegister8WriteOneToClear(t *testing.T) {
	var r FlagRegister8
	r.Raise(0x01 | 0x02 | 0x20)
	assert.Equal(t, uint8(0x23), r.Get())

	r.Set(0x02)
	assert.Equal(t, uint8(0x21), r.Get())

	r.Set(0x00)
	assert.Equal(t, uint8(0x21), r.Get())

	r.Set(0xFF)
	assert.Zero(t, r.Get())
}
