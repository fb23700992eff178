package usbhs

import (
	"github.com/ardnew/usbhs/device/dcd"
	"github.com/ardnew/usbhs/device/hal"
	"github.com/ardnew/usbhs/pkg"
)

// maxPacketSizeMask selects the packet size from wMaxPacketSize.
const maxPacketSizeMask = 0x07FF

// OpenEndpoint enables one endpoint direction. EP0 is always open and is
// left untouched.
func (d *Driver) OpenEndpoint(ep hal.EndpointConfig) {
	x, num, dir := d.xfer(ep.Address)
	if num == 0 {
		return
	}

	maxSize := ep.MaxPacketSize & maxPacketSizeMask
	ensure(maxSize > 0, "zero max packet size", "addr", ep.Address)

	x.reset(num)
	x.maxSize = maxSize

	r := d.regs
	iso := ep.IsIsochronous()
	if dir == dcd.DirOut {
		r.EndpConfig.SetBits(EP0RxEn << num)
		r.rxCtrl(num).Set(EPAutoTog | EPResNAK)
		if iso {
			r.EndpType.SetBits(EP0RxTyp << num)
		}
		r.rxMaxLen(num).Set(x.maxSize)
	} else {
		r.EndpConfig.SetBits(EP0TxEn << num)
		if iso {
			r.EndpType.SetBits(EP0TxTyp << num)
		}
		r.txLen(num).Set(0)
		r.txCtrl(num).Set(EPAutoTog | EPResNAK | EPTog0)
	}

	pkg.LogDebug(pkg.ComponentEndpoint, "endpoint opened",
		"ep", num, "dir", dir, "maxSize", x.maxSize, "iso", iso)
}

// CloseEndpoint disables one endpoint direction and drops any transfer
// in flight on it. A data endpoint must be opened again before its next
// Transfer.
func (d *Driver) CloseEndpoint(addr uint8) {
	x, num, dir := d.xfer(addr)
	x.active = false
	if num > 0 {
		x.maxSize = 0
	}

	r := d.regs
	if dir == dcd.DirOut {
		r.rxCtrl(num).Set(EPAutoTog | EPResNAK)
		r.rxMaxLen(num).Set(0)
		r.EndpType.ClearBits(EP0RxTyp << num)
		r.EndpConfig.ClearBits(EP0RxEn << num)
	} else {
		r.txCtrl(num).Set(EPAutoTog | EPResNAK | EPTog0)
		r.txLen(num).Set(0)
		r.EndpType.ClearBits(EP0TxTyp << num)
		r.EndpConfig.ClearBits(EP0TxEn << num)
	}

	pkg.LogDebug(pkg.ComponentEndpoint, "endpoint closed", "ep", num, "dir", dir)
}

// CloseAllEndpoints returns EP1-15 to NAK with no receive window and
// leaves only EP0 enabled.
func (d *Driver) CloseAllEndpoints() {
	r := d.regs
	for num := uint8(1); num < EPMax; num++ {
		r.txLen(num).Set(0)
		r.txCtrl(num).Set(EPAutoTog | EPResNAK)
		r.rxCtrl(num).Set(EPAutoTog | EPResNAK)
		r.rxMaxLen(num).Set(0)

		d.xfers[num][dcd.DirOut].reset(num)
		d.xfers[num][dcd.DirIn].reset(num)
	}
	r.EndpConfig.Set(EP0TxEn | EP0RxEn)
	r.EndpType.Set(0)

	pkg.LogDebug(pkg.ComponentEndpoint, "all endpoints closed")
}

// Stall answers every token on addr with STALL. A stalled IN endpoint
// also drops its pending transmit length.
func (d *Driver) Stall(addr uint8) {
	x, num, dir := d.xfer(addr)
	x.active = false

	if dir == dcd.DirOut {
		d.regs.rxCtrl(num).Set(EPResStall)
	} else {
		// The vendor driver clears EP0's TX_LEN here whatever num is; this clears num's own.
		d.regs.txLen(num).Set(0)
		d.regs.txCtrl(num).Set(EPResStall)
	}

	pkg.LogDebug(pkg.ComponentEndpoint, "endpoint stalled", "ep", num, "dir", dir)
}

// ClearStall returns addr to NAK with hardware toggling. The transmit
// toggle is not forced to DATA0.
func (d *Driver) ClearStall(addr uint8) {
	_, num, dir := d.xfer(addr)

	if dir == dcd.DirOut {
		d.regs.rxCtrl(num).Set(EPAutoTog | EPResNAK)
	} else {
		d.regs.txCtrl(num).Set(EPAutoTog | EPResNAK)
	}

	pkg.LogDebug(pkg.ComponentEndpoint, "endpoint stall cleared", "ep", num, "dir", dir)
}
