package usbhs

import (
	"fmt"
	"unsafe"

	"github.com/ardnew/usbhs/device/dcd"
	"github.com/ardnew/usbhs/device/hal"
	"github.com/ardnew/usbhs/internal/dma"
	"github.com/ardnew/usbhs/pkg"
)

// Driver is a CH32 USBHS device controller driver.
type Driver struct {
	regs    *Registers
	speed   hal.Speed
	handler dcd.Handler

	xfers [EPMax][2]xferCtl

	// EP0 setup and data buffer, word aligned for the DMA engine.
	ep0     [EP0MaxSize / 4]uint32
	ep0Buf  []byte
	ep0Addr uint32

	irq irqLine
}

// New returns a driver for the register block regs. The interrupt starts
// masked; call Init and then IntEnable.
func New(regs *Registers, opts ...Option) (*Driver, error) {
	if regs == nil {
		return nil, fmt.Errorf("registers: %w", pkg.ErrInvalidParameter)
	}
	d := &Driver{
		regs:  regs,
		speed: hal.SpeedHigh,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	d.ep0Buf = unsafe.Slice((*byte)(unsafe.Pointer(&d.ep0[0])), EP0MaxSize)
	d.ep0Addr = dma.Pin(d.ep0Buf)
	d.resetAll()

	d.irq.attach(d)
	return d, nil
}

// resetAll returns every transfer context to idle.
func (d *Driver) resetAll() {
	for num := range d.xfers {
		d.xfers[num][dcd.DirOut].reset(uint8(num))
		d.xfers[num][dcd.DirIn].reset(uint8(num))
	}
	d.xfers[0][dcd.DirOut].maxSize = EP0MaxSize
	d.xfers[0][dcd.DirIn].maxSize = EP0MaxSize
}

// Init brings up the controller: PHY out of suspend, DMA with busy-NAK,
// speed select, interrupt sources, every endpoint NAKing, EP0 on the
// shared buffer, address 0, and finally the D+ pull-up.
func (d *Driver) Init() {
	r := d.regs
	d.resetAll()

	r.HostCtrl.Set(0)
	r.HostCtrl.Set(HostCtrlPhySuspendM)

	r.Control.Set(0)
	r.Control.Set(ControlDMAEn | ControlIntBusyEn | controlSpeed(d.speed))

	r.IntEn.Set(0)
	r.IntEn.Set(IntSetupAct | IntTransfer | IntDetect | IntSuspend)

	r.EndpConfig.Set(EP0TxEn | EP0RxEn)
	r.EndpType.Set(0)
	r.BufMode.Set(0)

	for num := uint8(0); num < EPMax; num++ {
		r.txLen(num).Set(0)
		r.txCtrl(num).Set(EPAutoTog | EPResNAK)
		r.rxCtrl(num).Set(EPAutoTog | EPResNAK)
		r.rxMaxLen(num).Set(0)
	}

	r.EP0DMA.Set(d.ep0Addr)
	r.rxMaxLen(0).Set(EP0MaxSize)

	r.DevAddr.Set(0)
	r.Control.SetBits(ControlDevPuEn)

	pkg.LogDebug(pkg.ComponentDCD, "controller initialized", "speed", d.speed)
}

// IntEnable unmasks the controller interrupt. It has no effect when the
// interrupt is not masked.
func (d *Driver) IntEnable() { d.irq.enable() }

// IntDisable masks the controller interrupt, waiting for a running
// handler to return. Calls do not nest.
func (d *Driver) IntDisable() { d.irq.disable() }

// Connect enables the D+ pull-up.
func (d *Driver) Connect() {
	d.regs.Control.SetBits(ControlDevPuEn)
	pkg.LogDebug(pkg.ComponentDCD, "connected")
}

// Disconnect disables the D+ pull-up.
func (d *Driver) Disconnect() {
	d.regs.Control.ClearBits(ControlDevPuEn)
	pkg.LogDebug(pkg.ComponentDCD, "disconnected")
}

// SetAddress answers SET_ADDRESS with a status ZLP on EP0 IN. The hardware
// must keep answering on address 0 until the status stage is done, so the
// address register is written in StatusComplete.
func (d *Driver) SetAddress(addr uint8) {
	pkg.LogDebug(pkg.ComponentDCD, "set address", "address", addr)
	d.Transfer(dcd.EndpointAddress(0, dcd.DirIn), nil, 0)
}

// RemoteWakeup is accepted but does nothing; the controller is not
// driven into resume signalling.
func (d *Driver) RemoteWakeup() {
	pkg.LogInfo(pkg.ComponentDCD, "remote wakeup not supported")
}

// StatusComplete latches the device address after a SET_ADDRESS status
// stage and parks EP0 on NAK with DATA0 in both directions.
func (d *Driver) StatusComplete(req *hal.SetupPacket) {
	if dcd.IsSetAddress(req) {
		d.regs.DevAddr.Set(uint8(req.Value))
		pkg.LogDebug(pkg.ComponentDCD, "address latched", "address", uint8(req.Value))
	}
	d.regs.txCtrl(0).Set(EPResNAK | EPTog0)
	d.regs.rxCtrl(0).Set(EPResNAK | EPTog0)
}

// Transfer starts moving n bytes of buf on addr. The driver keeps buf
// until the XferComplete event for addr. For IN, n == 0 sends one ZLP.
// A data endpoint must be open. It always returns true.
func (d *Driver) Transfer(addr uint8, buf []byte, n uint16) bool {
	x, num, dir := d.xfer(addr)
	ensure(x.maxSize > 0, "endpoint not open", "addr", addr)
	ensure(!x.active, "transfer already in flight", "addr", addr)
	ensure(int(n) <= len(buf), "transfer longer than buffer", "addr", addr, "n", n, "len", len(buf))

	x.buffer = buf[:n:n]
	x.totalLen = n
	x.queuedLen = 0
	x.isLastPacket = false
	x.active = true

	pkg.LogDebug(pkg.ComponentEndpoint, "transfer started", "ep", num, "dir", dir, "len", n)
	d.xferDataPacket(addr, x)
	return true
}

// Busy reports whether a transfer is in flight on addr. Call it with the
// interrupt masked.
func (d *Driver) Busy(addr uint8) bool {
	x, _, _ := d.xfer(addr)
	return x.active
}

// Speed returns the bus speed programmed at Init.
func (d *Driver) Speed() hal.Speed { return d.speed }

// emit delivers ev to the event handler, if any.
func (d *Driver) emit(ev dcd.Event) {
	if d.handler != nil {
		d.handler(ev)
	}
}

// ensure panics with msg when cond is false. Failures are programming
// errors in the caller and are logged before the panic.
func ensure(cond bool, msg string, args ...any) {
	if cond {
		return
	}
	pkg.LogError(pkg.ComponentDCD, msg, args...)
	panic("usbhs: " + msg)
}

// Compile-time interface check
var _ dcd.Controller = (*Driver)(nil)
