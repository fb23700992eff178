package dcd

import (
	"fmt"

	"github.com/ardnew/usbhs/device/hal"
	"github.com/ardnew/usbhs/pkg"
)

// EventID identifies the kind of an Event.
type EventID uint8

// Controller events.
const (
	EventInvalid EventID = iota
	EventBusReset
	EventSuspend
	EventSetupReceived
	EventXferComplete
)

// String returns the event name.
func (id EventID) String() string {
	switch id {
	case EventBusReset:
		return "BusReset"
	case EventSuspend:
		return "Suspend"
	case EventSetupReceived:
		return "SetupReceived"
	case EventXferComplete:
		return "XferComplete"
	default:
		return "Invalid"
	}
}

// Event is a notification from a controller's interrupt handler.
// Only the fields that belong to ID are meaningful.
type Event struct {
	ID EventID

	// BusReset
	Speed hal.Speed

	// SetupReceived
	Setup [hal.SetupPacketSize]byte

	// XferComplete
	Addr    uint8
	Length  uint32
	Status  pkg.TransferStatus
	ShortOK bool
}

// Handler receives controller events. It runs in interrupt context.
type Handler func(Event)

// BusReset returns a bus reset event.
func BusReset(speed hal.Speed) Event {
	return Event{ID: EventBusReset, Speed: speed}
}

// Suspend returns a suspend event.
func Suspend() Event {
	return Event{ID: EventSuspend}
}

// SetupReceived returns a setup event carrying the raw request.
func SetupReceived(setup [hal.SetupPacketSize]byte) Event {
	return Event{ID: EventSetupReceived, Setup: setup}
}

// XferComplete returns a transfer completion event.
func XferComplete(addr uint8, length uint32, status pkg.TransferStatus, shortOK bool) Event {
	return Event{ID: EventXferComplete, Addr: addr, Length: length, Status: status, ShortOK: shortOK}
}

// SetupPacket parses the request carried by a SetupReceived event.
func (e Event) SetupPacket() (req hal.SetupPacket) {
	hal.ParseSetupPacket(e.Setup[:], &req)
	return req
}

// String returns a compact representation of the event.
func (e Event) String() string {
	switch e.ID {
	case EventBusReset:
		return fmt.Sprintf("%s(%s)", e.ID, e.Speed)
	case EventSetupReceived:
		req := e.SetupPacket()
		return fmt.Sprintf("%s(%s)", e.ID, req.String())
	case EventXferComplete:
		return fmt.Sprintf("%s(0x%02X, %d, %s)", e.ID, e.Addr, e.Length, e.Status)
	default:
		return e.ID.String()
	}
}
