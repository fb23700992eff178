package usbhs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbhs/device/dcd"
	"github.com/ardnew/usbhs/device/hal"
	"github.com/ardnew/usbhs/internal/dma"
	"github.com/ardnew/usbhs/pkg"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		speed   hal.Speed
		wantErr bool
	}{
		{"default", nil, hal.SpeedHigh, false},
		{"high", []Option{WithSpeed(hal.SpeedHigh)}, hal.SpeedHigh, false},
		{"full", []Option{WithSpeed(hal.SpeedFull)}, hal.SpeedFull, false},
		{"low", []Option{WithSpeed(hal.SpeedLow)}, 0, true},
		{"unknown", []Option{WithSpeed(hal.SpeedUnknown)}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(new(Registers), tt.opts...)
			if tt.wantErr {
				assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.speed, d.Speed())
		})
	}

	_, err := New(nil)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

func TestInit(t *testing.T) {
	h := newHarness(t)
	r := h.regs

	assert.Equal(t, uint8(HostCtrlPhySuspendM), r.HostCtrl.Get())
	assert.Equal(t, uint8(ControlDMAEn|ControlIntBusyEn|ControlHighSpeed|ControlDevPuEn), r.Control.Get())
	assert.Equal(t, uint8(IntSetupAct|IntTransfer|IntDetect|IntSuspend), r.IntEn.Get())
	assert.Equal(t, uint32(EP0TxEn|EP0RxEn), r.EndpConfig.Get())
	assert.Zero(t, r.EndpType.Get())
	assert.Zero(t, r.BufMode.Get())
	assert.Zero(t, r.DevAddr.Get())

	assert.NotZero(t, r.EP0DMA.Get())
	assert.Len(t, dma.Bytes(r.EP0DMA.Get(), EP0MaxSize), EP0MaxSize)
	assert.Equal(t, uint16(EP0MaxSize), r.rxMaxLen(0).Get())

	for num := uint8(0); num < EPMax; num++ {
		assert.Equal(t, uint8(EPAutoTog|EPResNAK), r.txCtrl(num).Get(), "ep %d", num)
		assert.Equal(t, uint8(EPAutoTog|EPResNAK), r.rxCtrl(num).Get(), "ep %d", num)
		assert.Zero(t, r.txLen(num).Get(), "ep %d", num)
		if num > 0 {
			assert.Zero(t, r.rxMaxLen(num).Get(), "ep %d", num)
		}
	}
}

func TestInitFullSpeed(t *testing.T) {
	h := newHarness(t, WithSpeed(hal.SpeedFull))
	assert.Equal(t, uint8(ControlFullSpeed), h.regs.Control.Get()&ControlSpeedMask)
}

func TestConnectDisconnect(t *testing.T) {
	h := newHarness(t)

	h.d.Disconnect()
	assert.False(t, h.regs.Control.HasBits(ControlDevPuEn))
	assert.True(t, h.regs.Control.HasBits(ControlDMAEn))

	h.d.Connect()
	assert.True(t, h.regs.Control.HasBits(ControlDevPuEn))
}

func TestStatusComplete(t *testing.T) {
	tests := []struct {
		name string
		req  hal.SetupPacket
		addr uint8
	}{
		{"set address", hal.SetupPacket{RequestType: 0x00, Request: hal.RequestSetAddress, Value: 7}, 7},
		{"class request", hal.SetupPacket{RequestType: 0x21, Request: hal.RequestSetAddress, Value: 7}, 0},
		{"get descriptor", hal.SetupPacket{RequestType: 0x80, Request: hal.RequestGetDescriptor, Value: 0x0100}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.regs.txCtrl(0).Set(EPResAck | EPTog1)
			h.regs.rxCtrl(0).Set(EPResAck | EPTog1)

			h.d.StatusComplete(&tt.req)

			assert.Equal(t, tt.addr, h.regs.DevAddr.Get())
			assert.Equal(t, uint8(EPResNAK|EPTog0), h.regs.txCtrl(0).Get())
			assert.Equal(t, uint8(EPResNAK|EPTog0), h.regs.rxCtrl(0).Get())
		})
	}
}

func TestSetAddressSendsStatusZLP(t *testing.T) {
	h := newHarness(t)
	h.d.StatusComplete(&hal.SetupPacket{})

	h.d.SetAddress(9)

	assert.Zero(t, h.regs.DevAddr.Get(), "address is latched after the status stage")
	assert.Zero(t, h.regs.txLen(0).Get())
	assert.Equal(t, uint8(EPResAck|EPTog1), h.regs.txCtrl(0).Get())

	h.in(0)
	ev := h.last()
	assert.Equal(t, dcd.EventXferComplete, ev.ID)
	assert.Equal(t, uint8(0x80), ev.Addr)
	assert.Zero(t, ev.Length)

	h.d.StatusComplete(&hal.SetupPacket{Request: hal.RequestSetAddress, Value: 9})
	assert.Equal(t, uint8(9), h.regs.DevAddr.Get())
}

func TestRemoteWakeupIsHarmless(t *testing.T) {
	h := newHarness(t)
	before := h.regs.Control.Get()
	h.d.RemoteWakeup()
	assert.Equal(t, before, h.regs.Control.Get())
	assert.Empty(t, h.events)
}

func TestEnsure(t *testing.T) {
	assert.NotPanics(t, func() { ensure(true, "unreachable") })
	assert.PanicsWithValue(t, "usbhs: boom", func() { ensure(false, "boom", "key", 1) })
}
