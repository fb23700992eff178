//go:build !tinygo

package sie

import (
	"sync"

	"github.com/ardnew/usbhs/device/dcd"
	"github.com/ardnew/usbhs/device/dcd/usbhs"
	"github.com/ardnew/usbhs/device/hal"
	"github.com/ardnew/usbhs/internal/dma"
	"github.com/ardnew/usbhs/pkg"
)

// Handshake is the device's answer to a token.
type Handshake uint8

// Handshakes. HandshakeNone means the device did not answer: it is
// detached, addressed differently, the endpoint is disabled, or the packet
// was too long.
const (
	HandshakeNone Handshake = iota
	HandshakeACK
	HandshakeNAK
	HandshakeStall
)

// String returns the handshake name.
func (h Handshake) String() string {
	switch h {
	case HandshakeACK:
		return "ACK"
	case HandshakeNAK:
		return "NAK"
	case HandshakeStall:
		return "STALL"
	default:
		return "none"
	}
}

// Packet is a data packet sent by the device.
type Packet struct {
	Data  []byte
	Data1 bool // PID was DATA1
}

// Bus is the host end of a simulated USB link to one device.
type Bus struct {
	regs *usbhs.Registers
	irq  func()

	// mutex serializes transactions; the wire carries one at a time.
	mutex   sync.Mutex
	address uint8

	// toggle holds the host's next DATA1 state per endpoint and direction.
	toggle [usbhs.EPMax][2]bool
}

// New returns a bus attached to regs. irq is called after every
// interrupt flag is raised; pass the driver's InterruptHandler. A nil irq
// leaves the flags pending for the caller to service.
func New(regs *usbhs.Registers, irq func()) *Bus {
	return &Bus{regs: regs, irq: irq}
}

// Address returns the device address used for tokens.
func (b *Bus) Address() uint8 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.address
}

// SetAddress changes the device address used for tokens.
func (b *Bus) SetAddress(addr uint8) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.address = addr
}

// Reset drives a bus reset. The host falls back to address 0.
func (b *Bus) Reset() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.address = 0
	b.toggle = [usbhs.EPMax][2]bool{}
	pkg.LogDebug(pkg.ComponentSIE, "bus reset")
	b.interrupt(usbhs.IntDetect, 0)
}

// Suspend idles the bus long enough for the device to suspend.
func (b *Bus) Suspend() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	pkg.LogDebug(pkg.ComponentSIE, "suspend")
	b.interrupt(usbhs.IntSuspend, 0)
}

// Setup sends a SETUP transaction to EP0.
func (b *Bus) Setup(req [hal.SetupPacketSize]byte) Handshake {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if hs, ok := b.ready(usbhs.EP0RxEn); !ok {
		return hs
	}

	copy(dma.Bytes(b.regs.EP0DMA.Get(), len(req)), req[:])
	b.regs.RxLen.Set(hal.SetupPacketSize)
	b.toggle[0][dcd.DirIn] = true
	b.toggle[0][dcd.DirOut] = true

	pkg.LogDebug(pkg.ComponentSIE, "SETUP", "address", b.address)
	b.interrupt(usbhs.IntSetupAct, usbhs.TokenSetup)
	return HandshakeACK
}

// In sends an IN token to endpoint num.
func (b *Bus) In(num uint8) (Packet, Handshake) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if num >= usbhs.EPMax {
		return Packet{}, HandshakeNone
	}
	if hs, ok := b.ready(usbhs.EP0TxEn << num); !ok {
		return Packet{}, hs
	}

	ep := &b.regs.EP[num]
	ctrl := ep.TxCtrl.Get()
	if hs := response(ctrl); hs != HandshakeACK {
		return Packet{}, hs
	}

	n := int(ep.TxLen.Get())
	src := b.regs.EP0DMA.Get()
	if num > 0 {
		src = b.regs.TxDMA[num-1].Get()
	}
	pkt := Packet{
		Data:  append([]byte(nil), dma.Bytes(src, n)...),
		Data1: ctrl&usbhs.EPTogMask == usbhs.EPTog1,
	}
	if ctrl&usbhs.EPAutoTog != 0 {
		ep.TxCtrl.Set(ctrl ^ usbhs.EPTog1)
	}
	b.toggle[num][dcd.DirIn] = !pkt.Data1

	pkg.LogDebug(pkg.ComponentSIE, "IN", "ep", num, "len", len(pkt.Data), "data1", pkt.Data1)
	b.interrupt(usbhs.IntTransfer, usbhs.TokenIn|num)
	return pkt, HandshakeACK
}

// Out sends an OUT transaction carrying data to endpoint num. The data
// PID is reported to the device as given and is not checked against the
// endpoint's expected toggle.
func (b *Bus) Out(num uint8, data []byte, data1 bool) Handshake {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if num >= usbhs.EPMax {
		return HandshakeNone
	}
	if hs, ok := b.ready(usbhs.EP0RxEn << num); !ok {
		return hs
	}

	ep := &b.regs.EP[num]
	ctrl := ep.RxCtrl.Get()
	if hs := response(ctrl); hs != HandshakeACK {
		return hs
	}

	if len(data) > int(b.regs.MaxLen[num].Len.Get()) {
		pkg.LogDebug(pkg.ComponentSIE, "OUT babble", "ep", num, "len", len(data))
		return HandshakeNone
	}

	dst := b.regs.EP0DMA.Get()
	if num > 0 {
		dst = b.regs.RxDMA[num-1].Get()
	}
	copy(dma.Bytes(dst, len(data)), data)
	b.regs.RxLen.Set(uint16(len(data)))
	if ctrl&usbhs.EPAutoTog != 0 {
		ep.RxCtrl.Set(ctrl ^ usbhs.EPTog1)
	}
	b.toggle[num][dcd.DirOut] = !data1

	pkg.LogDebug(pkg.ComponentSIE, "OUT", "ep", num, "len", len(data), "data1", data1)
	b.interrupt(usbhs.IntTransfer, usbhs.TokenOut|num)
	return HandshakeACK
}

// ready reports whether the device answers a token on an endpoint whose
// ENDP_CONFIG enable bit is enable. When it does not, hs is the answer.
func (b *Bus) ready(enable uint32) (hs Handshake, ok bool) {
	r := b.regs
	switch {
	case !r.Control.HasBits(usbhs.ControlDevPuEn):
		return HandshakeNone, false
	case r.DevAddr.Get() != b.address:
		return HandshakeNone, false
	case !r.EndpConfig.HasBits(enable):
		return HandshakeNone, false
	case r.Control.HasBits(usbhs.ControlIntBusyEn) && r.IntFlag.Get() != 0:
		return HandshakeNAK, false
	}
	return HandshakeACK, true
}

// response maps the RES field of an endpoint control register.
func response(ctrl uint8) Handshake {
	switch ctrl & usbhs.EPResMask {
	case usbhs.EPResAck:
		return HandshakeACK
	case usbhs.EPResStall:
		return HandshakeStall
	default:
		return HandshakeNAK
	}
}

// interrupt latches status and flag and calls the interrupt line.
func (b *Bus) interrupt(flag, status uint8) {
	b.regs.IntStatus.Set(status)
	b.regs.IntFlag.Raise(flag)
	if b.irq != nil {
		b.irq()
	}
}
