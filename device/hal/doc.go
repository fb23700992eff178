// Package hal defines the Hardware Abstraction Layer contract between a USB
// device stack and a controller driver.
//
// A device stack calls the blocking [DeviceHAL] methods. The
// [github.com/ardnew/usbhs/device/hal/dcdhal] package implements them on top
// of any interrupt-driven controller in [github.com/ardnew/usbhs/device/dcd].
//
// # Zero-Allocation Design
//
// [SetupPacket] and [EndpointConfig] are plain value types, so a stack can
// keep them in fixed-size arrays and parse into caller-owned storage:
//
//	var setup hal.SetupPacket
//	if !hal.ParseSetupPacket(raw[:], &setup) {
//	    return pkg.ErrSetupPacketTooShort
//	}
package hal
