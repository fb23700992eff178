package usbhs

import (
	"github.com/ardnew/usbhs/device/dcd"
	"github.com/ardnew/usbhs/internal/dma"
)

// xferDataPacket programs the next chunk of x and arms addr with ACK.
//
// IN chunks are min(remaining, maxSize); EP0 data is staged in the shared
// buffer and other endpoints transmit straight from the caller buffer. OUT
// only sets the receive window; received data is picked up by the
// interrupt handler.
func (d *Driver) xferDataPacket(addr uint8, x *xferCtl) {
	num := dcd.EndpointNumber(addr)

	if dcd.EndpointDirection(addr) == dcd.DirIn {
		chunk := min(x.remaining(), x.maxSize)
		data := x.buffer[x.queuedLen : x.queuedLen+chunk]

		if num == 0 {
			copy(d.ep0Buf, data)
		} else {
			d.regs.txDMA(num).Set(dma.Addr(data))
		}

		d.regs.txLen(num).Set(chunk)
		x.queuedLen += chunk
		if x.queuedLen == x.totalLen {
			x.isLastPacket = true
		}
	} else {
		left := x.remaining()
		allowed := min(x.maxSize, left)
		if allowed == left {
			x.isLastPacket = true
		}

		if num > 0 {
			d.regs.rxDMA(num).Set(dma.Addr(x.buffer[x.queuedLen:]))
			d.regs.rxMaxLen(num).Set(allowed)
		}
	}

	d.setResponse(addr, responseACK)
}

// setResponse arms addr with r, adjusting the toggle per the endpoint's
// policy in the same register store.
func (d *Driver) setResponse(addr uint8, r response) {
	x, num, dir := d.xfer(addr)
	if dir == dcd.DirIn {
		reg := d.regs.txCtrl(num)
		reg.Set(x.policy.tx(reg.Get(), d.regs.txLen(num).Get(), r))
	} else {
		reg := d.regs.rxCtrl(num)
		reg.Set(x.policy.rx(reg.Get(), x.queuedLen, r))
	}
}
