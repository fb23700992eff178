package usbhs

import (
	"fmt"

	"github.com/ardnew/usbhs/device/dcd"
	"github.com/ardnew/usbhs/device/hal"
	"github.com/ardnew/usbhs/pkg"
)

// Option configures a Driver.
type Option func(*Driver) error

// WithSpeed selects the bus speed programmed at Init.
// Only hal.SpeedHigh (the default) and hal.SpeedFull are supported.
func WithSpeed(speed hal.Speed) Option {
	return func(d *Driver) error {
		switch speed {
		case hal.SpeedHigh, hal.SpeedFull:
			d.speed = speed
			return nil
		default:
			return fmt.Errorf("speed %s: %w", speed, pkg.ErrInvalidParameter)
		}
	}
}

// WithEventHandler installs the receiver of controller events.
func WithEventHandler(h dcd.Handler) Option {
	return func(d *Driver) error {
		d.handler = h
		return nil
	}
}

// controlSpeed returns the CONTROL speed field for speed.
func controlSpeed(speed hal.Speed) uint8 {
	if speed == hal.SpeedFull {
		return ControlFullSpeed
	}
	return ControlHighSpeed
}
