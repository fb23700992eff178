package dcd

import "github.com/ardnew/usbhs/device/hal"

// Direction is the data direction of an endpoint, seen from the host.
type Direction uint8

// Endpoint directions.
const (
	DirOut Direction = 0
	DirIn  Direction = 1
)

// String returns "OUT" or "IN".
func (d Direction) String() string {
	if d == DirIn {
		return "IN"
	}
	return "OUT"
}

// dirInMask is the direction bit of an endpoint address.
const dirInMask = 0x80

// EndpointNumber returns the endpoint number of addr. Every bit except the
// direction bit is kept, so a malformed address yields a number a driver
// can reject.
func EndpointNumber(addr uint8) uint8 { return addr &^ dirInMask }

// EndpointDirection returns the direction of addr.
func EndpointDirection(addr uint8) Direction {
	if addr&dirInMask != 0 {
		return DirIn
	}
	return DirOut
}

// EndpointAddress builds an endpoint address from a number and direction.
func EndpointAddress(num uint8, dir Direction) uint8 {
	if dir == DirIn {
		return num | dirInMask
	}
	return num
}

// IsSetAddress reports whether req is a standard SET_ADDRESS request aimed
// at the device.
func IsSetAddress(req *hal.SetupPacket) bool {
	return req != nil &&
		req.IsStandard() &&
		req.IsDeviceRecipient() &&
		req.Request == hal.RequestSetAddress
}

// Controller is an interrupt-driven USB device controller.
//
// Transfer and the endpoint operations are called from mainline code with
// interrupts masked by IntDisable. InterruptHandler is the interrupt entry
// point and reports progress through the controller's event handler.
type Controller interface {
	// Init brings up the controller and attaches the pull-up.
	Init()

	// IntEnable unmasks the controller interrupt.
	IntEnable()
	// IntDisable masks the controller interrupt. It waits for a running
	// handler to return.
	IntDisable()

	// Connect attaches to the bus.
	Connect()
	// Disconnect detaches from the bus.
	Disconnect()

	// SetAddress answers SET_ADDRESS. The new address takes effect in
	// StatusComplete once the status stage finishes.
	SetAddress(addr uint8)
	// RemoteWakeup signals resume to the host.
	RemoteWakeup()

	// OpenEndpoint configures an endpoint from its descriptor fields.
	OpenEndpoint(ep hal.EndpointConfig)
	// CloseEndpoint disables one endpoint direction.
	CloseEndpoint(addr uint8)
	// CloseAllEndpoints disables every endpoint except EP0.
	CloseAllEndpoints()

	// Transfer queues buf on addr. Completion is reported by an
	// XferComplete event. A zero-length IN transfer sends one ZLP.
	Transfer(addr uint8, buf []byte, n uint16) bool
	// Busy reports whether a transfer is in flight on addr. Once it
	// returns false no further XferComplete is raised for that transfer.
	Busy(addr uint8) bool
	// Stall answers every token on addr with STALL.
	Stall(addr uint8)
	// ClearStall returns addr to NAK with the toggle left to hardware.
	ClearStall(addr uint8)

	// StatusComplete finishes a control transfer after its status stage.
	StatusComplete(req *hal.SetupPacket)

	// InterruptHandler services one pending interrupt.
	InterruptHandler()

	// Speed returns the configured bus speed.
	Speed() hal.Speed
}
