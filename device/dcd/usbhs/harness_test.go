package usbhs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbhs/device/dcd"
	"github.com/ardnew/usbhs/device/hal"
	"github.com/ardnew/usbhs/internal/dma"
)

// harness drives a Driver by writing its register block the way the
// peripheral would and collecting the events it emits.
type harness struct {
	t      *testing.T
	regs   *Registers
	d      *Driver
	events []dcd.Event
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{t: t, regs: new(Registers)}
	opts = append(opts, WithEventHandler(func(ev dcd.Event) {
		h.events = append(h.events, ev)
	}))
	d, err := New(h.regs, opts...)
	require.NoError(t, err)
	d.Init()
	d.IntEnable()
	h.d = d
	return h
}

// fire latches flags with status in INT_ST and runs the handler once.
func (h *harness) fire(flags, status uint8) {
	h.regs.IntStatus.Set(status)
	h.regs.IntFlag.Raise(flags)
	h.d.InterruptHandler()
}

// in completes one IN transaction on endpoint num.
func (h *harness) in(num uint8) {
	h.fire(IntTransfer, TokenIn|num)
}

// out delivers one OUT data packet to endpoint num.
func (h *harness) out(num uint8, data []byte) {
	addr := h.regs.EP0DMA.Get()
	if num > 0 {
		addr = h.regs.rxDMA(num).Get()
	}
	copy(dma.Bytes(addr, len(data)), data)
	h.regs.RxLen.Set(uint16(len(data)))
	h.fire(IntTransfer, TokenOut|num)
}

// setup delivers a SETUP packet to EP0.
func (h *harness) setup(req hal.SetupPacket) {
	b := req.Bytes()
	copy(dma.Bytes(h.regs.EP0DMA.Get(), len(b)), b[:])
	h.fire(IntSetupAct, TokenSetup)
}

// drainIn completes IN transactions on num until the transfer finishes and
// returns the programmed chunk lengths.
func (h *harness) drainIn(num uint8) []uint16 {
	h.t.Helper()
	var chunks []uint16
	for i := 0; i < 1024; i++ {
		chunks = append(chunks, h.regs.txLen(num).Get())
		before := len(h.events)
		h.in(num)
		if len(h.events) > before {
			return chunks
		}
	}
	h.t.Fatal("transfer did not complete")
	return nil
}

// last returns the most recent event.
func (h *harness) last() dcd.Event {
	h.t.Helper()
	require.NotEmpty(h.t, h.events)
	return h.events[len(h.events)-1]
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func bulk(addr uint8, size uint16) hal.EndpointConfig {
	return hal.EndpointConfig{Address: addr, Attributes: hal.TransferTypeBulk, MaxPacketSize: size}
}
