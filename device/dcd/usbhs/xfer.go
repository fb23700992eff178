package usbhs

import "github.com/ardnew/usbhs/device/dcd"

// xferCtl tracks one endpoint direction while a caller buffer is moved in
// max-packet chunks.
type xferCtl struct {
	buffer       []byte // caller-owned, len == totalLen
	totalLen     uint16
	queuedLen    uint16 // bytes programmed (IN) or received (OUT); <= totalLen
	maxSize      uint16
	isLastPacket bool

	active bool // a transfer is in flight
	policy togglePolicy
}

// reset returns x to its idle state for endpoint num.
func (x *xferCtl) reset(num uint8) {
	*x = xferCtl{policy: policyFor(num)}
}

// remaining returns the bytes not yet programmed or received.
func (x *xferCtl) remaining() uint16 {
	return x.totalLen - x.queuedLen
}

// xfer returns the transfer context of addr. It panics when the endpoint
// number is out of range.
func (d *Driver) xfer(addr uint8) (*xferCtl, uint8, dcd.Direction) {
	num, dir := endpoint(addr)
	return &d.xfers[num][dir], num, dir
}

// endpoint splits addr into number and direction. It panics when the
// endpoint number is out of range.
func endpoint(addr uint8) (uint8, dcd.Direction) {
	num := dcd.EndpointNumber(addr)
	ensure(num < EPMax, "endpoint number out of range", "addr", addr)
	return num, dcd.EndpointDirection(addr)
}
