// Package dcd defines the contract between a USB device controller driver
// (DCD) and the layer that serves a device stack on top of it.
//
// A controller driver owns the peripheral registers and its interrupt. It
// reports bus activity as [Event] values through a [Handler], which runs in
// interrupt context and must not block. [Queue] is the usual handler: it
// hands events to a single consumer goroutine and counts what it had to
// drop.
//
// Endpoint addresses follow USB convention. Bit 7 is the direction (set for
// IN) and the remaining bits are the endpoint number:
//
//	dcd.EndpointNumber(0x81)    // 1
//	dcd.EndpointDirection(0x81) // dcd.DirIn
//	dcd.EndpointAddress(2, dcd.DirOut) // 0x02
package dcd
