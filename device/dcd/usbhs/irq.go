//go:build !tinygo

package usbhs

import (
	"sync"
	"sync/atomic"
)

// irqLine stands in for the USBHS interrupt line on hosted builds. The
// mutex is held while the line is masked, so a handler call blocks like
// a pending IRQ until the line is unmasked.
type irqLine struct {
	mutex  sync.Mutex
	masked atomic.Bool
}

// attach leaves the line masked.
func (l *irqLine) attach(*Driver) {
	l.mutex.Lock()
	l.masked.Store(true)
}

func (l *irqLine) enable() {
	if l.masked.CompareAndSwap(true, false) {
		l.mutex.Unlock()
	}
}

// disable waits for a running handler to return. Calls do not nest.
func (l *irqLine) disable() {
	l.mutex.Lock()
	l.masked.Store(true)
}

func (l *irqLine) enter() { l.mutex.Lock() }
func (l *irqLine) exit()  { l.mutex.Unlock() }
