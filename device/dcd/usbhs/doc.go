// Package usbhs implements a device controller driver for the WCH CH32
// USBHS peripheral (CH32V307, CH32F20x).
//
// The driver multiplexes the peripheral across [EPMax] bidirectional
// endpoints. Each endpoint direction has a transfer context that tracks a
// caller buffer while it is split into max-packet transactions. Bulk,
// interrupt and isochronous endpoints let the hardware toggle DATA0/DATA1;
// EP0 toggles are driven in software because SETUP resets the sequence.
//
// # Interrupts
//
// [Driver.InterruptHandler] services one interrupt source per call, in the
// order transfer, setup, bus reset, suspend, and acknowledges only that
// source. Results leave the handler as [dcd.Event] values through the
// handler installed with [WithEventHandler], usually a [dcd.Queue]:
//
//	q := dcd.NewQueue(dcd.DefaultQueueDepth)
//	d, err := usbhs.New(usbhs.USBHSD, usbhs.WithEventHandler(q.Handler()))
//	if err != nil {
//	    return err
//	}
//	d.Init()
//	d.IntEnable()
//
// Mainline code brackets endpoint operations with [Driver.IntDisable] and
// [Driver.IntEnable]. Starting a transfer on an endpoint that already has
// one in flight, or naming an endpoint number of 16 or more, is a
// programming error and panics.
//
// # Hosted builds
//
// Outside TinyGo the register block is ordinary memory. Allocate one with
// new(usbhs.Registers) and drive it with the bus model in the
// [github.com/ardnew/usbhs/device/dcd/usbhs/sie] package.
package usbhs
