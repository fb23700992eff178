// Package sie models the serial interface engine of the USBHS peripheral
// for hosted builds.
//
// A [Bus] plays the host side of the wire. Each transaction reads and
// writes the same [usbhs.Registers] block the driver programs: it checks
// the endpoint enable and response bits, moves data through the DMA
// addresses, latches RX_LEN and INT_ST, raises the interrupt flag, and
// calls the interrupt line synchronously. The call returns once the driver
// has serviced the interrupt, so a transaction is complete when it
// returns.
//
// The retrying helpers follow the three stages of a control transfer and
// poll NAKed tokens until the device is ready or the context is done:
//
//	bus := sie.New(regs, drv.InterruptHandler)
//	bus.Reset()
//	desc, err := bus.ControlIn(ctx, getDeviceDescriptor)
package sie
