//go:build !tinygo

package usbhs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStartsMasked(t *testing.T) {
	d, err := New(new(Registers))
	require.NoError(t, err)
	require.True(t, d.irq.masked.Load())

	done := make(chan struct{})
	go func() {
		d.InterruptHandler()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("handler ran before IntEnable")
	case <-time.After(20 * time.Millisecond):
	}

	d.IntEnable()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler still blocked after IntEnable")
	}
	assert.False(t, d.irq.masked.Load())
}

func TestIRQLineDisableWaitsForHandler(t *testing.T) {
	var l irqLine
	l.attach(nil)
	l.enable()

	l.enter()
	disabled := make(chan struct{})
	go func() {
		l.disable()
		close(disabled)
	}()

	select {
	case <-disabled:
		t.Fatal("disable returned while the handler ran")
	case <-time.After(20 * time.Millisecond):
	}

	l.exit()
	<-disabled
	assert.True(t, l.masked.Load())
	l.enable()
}
