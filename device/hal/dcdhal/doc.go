// Package dcdhal implements [hal.DeviceHAL] on top of an interrupt-driven
// device controller driver.
//
// The controller reports bus activity as [dcd.Event] values into a
// [dcd.Queue]. Start launches a goroutine that drains the queue and wakes
// the blocked HAL calls: ReadSetup waits for SetupReceived or BusReset,
// and every data call waits for the XferComplete of the transfer it
// started.
//
// Control transfers map onto EP0 transfers as follows:
//
//	WriteEP0(data)   IN data stage, ZLP-terminated when shorter than wLength
//	ReadEP0(buf)     OUT data stage; an empty buf is the OUT status stage
//	AckEP0()         IN status ZLP (SET_ADDRESS goes through the controller)
//
// Both status stages finish with the controller's StatusComplete, which is
// where a new device address takes effect.
//
// Cancelling the context of a blocked call aborts the transfer: EP0 is
// stalled until the next SETUP and a data endpoint is closed and reopened.
package dcdhal
