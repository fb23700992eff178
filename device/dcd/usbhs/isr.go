package usbhs

import (
	"log/slog"

	"github.com/ardnew/usbhs/device/dcd"
	"github.com/ardnew/usbhs/device/hal"
	"github.com/ardnew/usbhs/pkg"
)

// InterruptHandler services the highest-priority pending interrupt and
// acknowledges it. Lower-priority sources stay pending for the next call.
// On hosted builds it blocks while the interrupt is masked.
func (d *Driver) InterruptHandler() {
	d.irq.enter()
	defer d.irq.exit()

	flags := d.regs.IntFlag.Get()
	status := d.regs.IntStatus.Get()

	switch {
	case flags&IntTransfer != 0:
		d.handleTransfer(status)
		d.regs.IntFlag.Set(IntTransfer)

	case flags&IntSetupAct != 0:
		d.handleSetup()
		d.regs.IntFlag.Set(IntSetupAct)

	case flags&IntDetect != 0:
		d.handleBusReset()
		d.regs.IntFlag.Set(IntDetect)

	case flags&IntSuspend != 0:
		pkg.LogInfo(pkg.ComponentISR, "suspend")
		d.emit(dcd.Suspend())
		d.regs.IntFlag.Set(IntSuspend)
	}
}

// handleTransfer advances the transfer named by INT_ST.
func (d *Driver) handleTransfer(status uint8) {
	num := status & IntStEndpMask
	token := status & IntStTokenMask

	var addr uint8
	switch token {
	case TokenOut:
		addr = dcd.EndpointAddress(num, dcd.DirOut)
	case TokenIn:
		addr = dcd.EndpointAddress(num, dcd.DirIn)
	default:
		if pkg.LogEnabled(slog.LevelDebug) {
			pkg.LogDebug(pkg.ComponentISR, "token ignored", "ep", num, "token", token)
		}
		return
	}

	x := &d.xfers[num][dcd.EndpointDirection(addr)]
	if !x.active {
		pkg.LogWarn(pkg.ComponentISR, "transfer event on idle endpoint", "addr", addr)
		return
	}

	if token == TokenOut {
		rxLen := d.regs.RxLen.Get()
		n := min(rxLen, x.remaining())
		if num == 0 {
			n = uint16(copy(x.buffer[x.queuedLen:x.queuedLen+n], d.ep0Buf))
		}
		x.queuedLen += n
		if rxLen < x.maxSize {
			x.isLastPacket = true
		}
	}

	if x.isLastPacket {
		d.setResponse(addr, responseNAK)
		x.active = false
		if pkg.LogEnabled(slog.LevelDebug) {
			pkg.LogDebug(pkg.ComponentISR, "transfer complete", "addr", addr, "len", x.queuedLen)
		}
		d.emit(dcd.XferComplete(addr, uint32(x.queuedLen), pkg.TransferStatusSuccess, true))
		return
	}

	d.xferDataPacket(addr, x)
}

// handleSetup NAKs both EP0 directions and reports the request.
func (d *Driver) handleSetup() {
	d.setResponse(dcd.EndpointAddress(0, dcd.DirIn), responseNAK)
	d.setResponse(dcd.EndpointAddress(0, dcd.DirOut), responseNAK)
	d.xfers[0][dcd.DirIn].active = false
	d.xfers[0][dcd.DirOut].active = false

	var setup [hal.SetupPacketSize]byte
	copy(setup[:], d.ep0Buf)
	d.emit(dcd.SetupReceived(setup))
}

// handleBusReset reports the reset and returns EP0 to its default state.
func (d *Driver) handleBusReset() {
	for num := range d.xfers {
		d.xfers[num][dcd.DirOut].active = false
		d.xfers[num][dcd.DirIn].active = false
	}

	pkg.LogInfo(pkg.ComponentISR, "bus reset", "speed", d.speed)
	d.emit(dcd.BusReset(d.speed))

	d.regs.DevAddr.Set(0)
	d.regs.rxCtrl(0).Set(EPResAck | EPTog0)
	d.regs.txCtrl(0).Set(EPResNAK | EPTog0)
}
