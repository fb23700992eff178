//go:build !tinygo

package sie

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ardnew/usbhs/device/dcd"
	"github.com/ardnew/usbhs/device/dcd/usbhs"
	"github.com/ardnew/usbhs/device/hal"
	"github.com/ardnew/usbhs/pkg"
)

type fixture struct {
	regs *usbhs.Registers
	drv  *usbhs.Driver
	q    *dcd.Queue
	bus  *Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{regs: new(usbhs.Registers), q: dcd.NewQueue(64)}
	drv, err := usbhs.New(f.regs, usbhs.WithEventHandler(f.q.Handler()))
	require.NoError(t, err)
	f.drv = drv
	f.bus = New(f.regs, drv.InterruptHandler)
	drv.Init()
	drv.IntEnable()
	return f
}

func (f *fixture) next(t *testing.T) dcd.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := f.q.Next(ctx)
	require.NoError(t, err)
	return ev
}

func getDescriptor(length uint16) hal.SetupPacket {
	return hal.SetupPacket{RequestType: 0x80, Request: hal.RequestGetDescriptor, Value: 0x0100, Length: length}
}

// setupBytes serializes p; Bytes has a pointer receiver, so it cannot be
// called directly on a function's return value.
func setupBytes(p hal.SetupPacket) [hal.SetupPacketSize]byte {
	return p.Bytes()
}

func TestHandshakeString(t *testing.T) {
	assert.Equal(t, "ACK", HandshakeACK.String())
	assert.Equal(t, "NAK", HandshakeNAK.String())
	assert.Equal(t, "STALL", HandshakeStall.String())
	assert.Equal(t, "none", HandshakeNone.String())
}

func TestDetachedDeviceIgnoresTokens(t *testing.T) {
	f := newFixture(t)
	f.drv.Disconnect()

	assert.Equal(t, HandshakeNone, f.bus.Setup(setupBytes(getDescriptor(18))))
	_, hs := f.bus.In(0)
	assert.Equal(t, HandshakeNone, hs)
	assert.Zero(t, f.q.Len())
}

func TestResetAndSetup(t *testing.T) {
	f := newFixture(t)

	f.bus.Reset()
	ev := f.next(t)
	assert.Equal(t, dcd.EventBusReset, ev.ID)

	req := getDescriptor(18)
	assert.Equal(t, HandshakeACK, f.bus.Setup(req.Bytes()))
	ev = f.next(t)
	assert.Equal(t, dcd.EventSetupReceived, ev.ID)
	assert.Equal(t, req, ev.SetupPacket())
}

func TestAddressMismatch(t *testing.T) {
	f := newFixture(t)
	f.bus.SetAddress(5)
	assert.Equal(t, uint8(5), f.bus.Address())
	assert.Equal(t, HandshakeNone, f.bus.Setup(setupBytes(getDescriptor(18))))

	f.bus.Reset()
	assert.Zero(t, f.bus.Address())
	assert.Equal(t, HandshakeACK, f.bus.Setup(setupBytes(getDescriptor(18))))
}

func TestInAutoToggle(t *testing.T) {
	f := newFixture(t)

	_, hs := f.bus.In(1)
	assert.Equal(t, HandshakeNone, hs, "endpoint disabled")

	f.drv.OpenEndpoint(hal.EndpointConfig{Address: 0x81, Attributes: hal.TransferTypeBulk, MaxPacketSize: 4})
	_, hs = f.bus.In(1)
	assert.Equal(t, HandshakeNAK, hs, "nothing armed")

	data := []byte("abcdefghij")
	f.drv.IntDisable()
	f.drv.Transfer(0x81, data, uint16(len(data)))
	f.drv.IntEnable()

	var got []byte
	var toggles []bool
	for i := 0; i < 3; i++ {
		pkt, hs := f.bus.In(1)
		require.Equal(t, HandshakeACK, hs)
		got = append(got, pkt.Data...)
		toggles = append(toggles, pkt.Data1)
	}
	assert.Equal(t, data, got)
	assert.Equal(t, []bool{false, true, false}, toggles)

	ev := f.next(t)
	assert.Equal(t, dcd.EventXferComplete, ev.ID)
	assert.Equal(t, uint32(len(data)), ev.Length)

	_, hs = f.bus.In(1)
	assert.Equal(t, HandshakeNAK, hs, "NAK after completion")
}

func TestOutBabbleAndStall(t *testing.T) {
	f := newFixture(t)
	f.drv.OpenEndpoint(hal.EndpointConfig{Address: 0x02, Attributes: hal.TransferTypeBulk, MaxPacketSize: 8})

	buf := make([]byte, 8)
	f.drv.IntDisable()
	f.drv.Transfer(0x02, buf, 8)
	f.drv.IntEnable()

	assert.Equal(t, HandshakeNone, f.bus.Out(2, make([]byte, 9), false))
	assert.Equal(t, HandshakeACK, f.bus.Out(2, []byte("12345678"), false))
	assert.Equal(t, []byte("12345678"), buf)

	f.drv.IntDisable()
	f.drv.Stall(0x02)
	f.drv.IntEnable()
	assert.Equal(t, HandshakeStall, f.bus.Out(2, nil, true))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.ErrorIs(t, f.bus.BulkOut(ctx, 2, []byte("x"), 8), pkg.ErrStall)
}

func TestBusyNAK(t *testing.T) {
	regs := new(usbhs.Registers)
	drv, err := usbhs.New(regs)
	require.NoError(t, err)
	drv.Init()
	drv.IntEnable()
	bus := New(regs, nil)

	require.Equal(t, HandshakeACK, bus.Setup(setupBytes(getDescriptor(18))))
	assert.Equal(t, HandshakeNAK, bus.Setup(setupBytes(getDescriptor(18))), "flag still pending")

	drv.InterruptHandler()
	assert.Equal(t, HandshakeACK, bus.Setup(setupBytes(getDescriptor(18))))
}

func TestPollTimesOut(t *testing.T) {
	f := newFixture(t)
	f.drv.OpenEndpoint(hal.EndpointConfig{Address: 0x81, Attributes: hal.TransferTypeBulk, MaxPacketSize: 64})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := f.bus.BulkIn(ctx, 1, 64, 64)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// respond serves control requests on EP0 straight from the driver until
// ctx is done: IN requests are answered with reply, OUT requests with a
// status ZLP.
func respond(ctx context.Context, f *fixture, reply []byte) error {
	var req hal.SetupPacket
	rx := make([]byte, usbhs.EP0MaxSize)
	for {
		ev, err := f.q.Next(ctx)
		if err != nil {
			return nil
		}
		f.drv.IntDisable()
		switch ev.ID {
		case dcd.EventSetupReceived:
			req = ev.SetupPacket()
			switch {
			case dcd.IsSetAddress(&req):
				f.drv.SetAddress(uint8(req.Value))
			case req.IsDeviceToHost():
				n := min(int(req.Length), len(reply))
				f.drv.Transfer(0x80, reply, uint16(n))
			default:
				f.drv.Transfer(0x00, rx, req.Length)
			}
		case dcd.EventXferComplete:
			switch {
			case ev.Addr == 0x80 && req.IsDeviceToHost():
				f.drv.Transfer(0x00, nil, 0)
			case ev.Addr == 0x00 && !req.IsDeviceToHost() && req.Length > 0:
				f.drv.Transfer(0x80, nil, 0)
			default:
				f.drv.StatusComplete(&req)
			}
		}
		f.drv.IntEnable()
	}
}

func TestControlTransfers(t *testing.T) {
	f := newFixture(t)
	reply := make([]byte, 100)
	for i := range reply {
		reply[i] = byte(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	devCtx, stop := context.WithCancel(ctx)

	var g errgroup.Group
	g.Go(func() error { return respond(devCtx, f, reply) })
	g.Go(func() error {
		defer stop()

		got, err := f.bus.ControlIn(ctx, getDescriptor(18))
		if !assert.NoError(t, err) {
			return err
		}
		assert.Equal(t, reply[:18], got)

		got, err = f.bus.ControlIn(ctx, getDescriptor(255))
		if !assert.NoError(t, err) {
			return err
		}
		assert.Equal(t, reply, got)

		setAddress := hal.SetupPacket{Request: hal.RequestSetAddress, Value: 23}
		if err := f.bus.ControlOut(ctx, setAddress, nil); !assert.NoError(t, err) {
			return err
		}
		assert.Equal(t, uint8(23), f.bus.Address())

		got, err = f.bus.ControlIn(ctx, getDescriptor(8))
		if !assert.NoError(t, err) {
			return err
		}
		assert.Equal(t, reply[:8], got)
		assert.Equal(t, uint8(23), f.regs.DevAddr.Get())

		vendor := hal.SetupPacket{RequestType: 0x40, Request: 0x01, Length: 3}
		return f.bus.ControlOut(ctx, vendor, []byte{1, 2, 3})
	})
	require.NoError(t, g.Wait())
}

func TestControlOutLengthMismatch(t *testing.T) {
	f := newFixture(t)
	err := f.bus.ControlOut(context.Background(), hal.SetupPacket{Length: 2}, []byte{1})
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}
