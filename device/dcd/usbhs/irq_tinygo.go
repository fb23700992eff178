//go:build tinygo && (ch32v307 || ch32f20x)

package usbhs

import "runtime/interrupt"

// irqUSBHS is USBHS_IRQn.
const irqUSBHS = 85

// irqDriver receives the USBHS vector. The chip has one USBHS block.
var irqDriver *Driver

// irqLine is the USBHS interrupt line. The handler runs in interrupt
// context and takes no lock; masking the line is the critical section.
type irqLine struct {
	intr interrupt.Interrupt
}

// attach routes the vector to d and leaves the line masked.
func (l *irqLine) attach(d *Driver) {
	irqDriver = d
	l.intr = interrupt.New(irqUSBHS, func(interrupt.Interrupt) {
		if irqDriver != nil {
			irqDriver.InterruptHandler()
		}
	})
	l.intr.Disable()
}

func (l *irqLine) enable()  { l.intr.Enable() }
func (l *irqLine) disable() { l.intr.Disable() }

func (l *irqLine) enter() {}
func (l *irqLine) exit()  {}
