//go:build !tinygo

package sie

import (
	"context"
	"fmt"
	"time"

	"github.com/ardnew/usbhs/device/dcd"
	"github.com/ardnew/usbhs/device/dcd/usbhs"
	"github.com/ardnew/usbhs/device/hal"
	"github.com/ardnew/usbhs/pkg"
)

// PollInterval is how long the retrying helpers wait after a NAK or a
// missing handshake before sending the token again.
var PollInterval = 50 * time.Microsecond

// ControlIn runs a control read: SETUP, IN data until req.Length bytes or
// a short packet, then the OUT status ZLP.
func (b *Bus) ControlIn(ctx context.Context, req hal.SetupPacket) ([]byte, error) {
	if err := b.setup(ctx, req); err != nil {
		return nil, err
	}

	data, err := b.read(ctx, 0, int(req.Length), usbhs.EP0MaxSize)
	if err != nil {
		return data, fmt.Errorf("control in data: %w", err)
	}

	if err := b.write(ctx, 0, nil, usbhs.EP0MaxSize, true); err != nil {
		return data, fmt.Errorf("control in status: %w", err)
	}
	return data, nil
}

// ControlOut runs a control write: SETUP, OUT data in EP0-sized packets,
// then the IN status ZLP. After a SET_ADDRESS status stage the bus
// addresses the device at its new address.
func (b *Bus) ControlOut(ctx context.Context, req hal.SetupPacket, data []byte) error {
	if int(req.Length) != len(data) {
		return fmt.Errorf("control out: length %d, data %d: %w", req.Length, len(data), pkg.ErrInvalidParameter)
	}
	if err := b.setup(ctx, req); err != nil {
		return err
	}

	if len(data) > 0 {
		if err := b.write(ctx, 0, data, usbhs.EP0MaxSize, false); err != nil {
			return fmt.Errorf("control out data: %w", err)
		}
	}

	status, err := b.read(ctx, 0, 0, usbhs.EP0MaxSize)
	if err != nil {
		return fmt.Errorf("control out status: %w", err)
	}
	if len(status) != 0 {
		return fmt.Errorf("control out status: %d bytes: %w", len(status), pkg.ErrProtocol)
	}

	if dcd.IsSetAddress(&req) {
		b.SetAddress(uint8(req.Value))
	}
	return nil
}

// BulkIn reads from IN endpoint num until n bytes arrive or the device
// sends a packet shorter than maxPacket.
func (b *Bus) BulkIn(ctx context.Context, num uint8, n, maxPacket int) ([]byte, error) {
	data, err := b.read(ctx, num, n, maxPacket)
	if err != nil {
		return data, fmt.Errorf("bulk in ep%d: %w", num, err)
	}
	return data, nil
}

// BulkOut writes data to OUT endpoint num in maxPacket-sized packets. An
// empty data sends one ZLP.
func (b *Bus) BulkOut(ctx context.Context, num uint8, data []byte, maxPacket int) error {
	if err := b.write(ctx, num, data, maxPacket, true); err != nil {
		return fmt.Errorf("bulk out ep%d: %w", num, err)
	}
	return nil
}

// setup sends req until the device acknowledges it.
func (b *Bus) setup(ctx context.Context, req hal.SetupPacket) error {
	raw := req.Bytes()
	err := poll(ctx, func() Handshake { return b.Setup(raw) })
	if err != nil {
		return fmt.Errorf("setup %s: %w", req.String(), err)
	}
	return nil
}

// read collects IN packets from num.
func (b *Bus) read(ctx context.Context, num uint8, n, maxPacket int) ([]byte, error) {
	var data []byte
	for {
		var pkt Packet
		err := poll(ctx, func() (hs Handshake) {
			pkt, hs = b.In(num)
			return hs
		})
		if err != nil {
			return data, err
		}
		data = append(data, pkt.Data...)
		if len(data) >= n || len(pkt.Data) < maxPacket {
			return data, nil
		}
	}
}

// write sends data to num in maxPacket chunks. A zero-length data sends
// one ZLP when zlp is set.
func (b *Bus) write(ctx context.Context, num uint8, data []byte, maxPacket int, zlp bool) error {
	if len(data) == 0 && !zlp {
		return nil
	}
	for off := 0; ; {
		end := min(off+maxPacket, len(data))
		chunk := data[off:end]
		err := poll(ctx, func() Handshake {
			return b.Out(num, chunk, b.nextOut(num))
		})
		if err != nil {
			return err
		}
		off = end
		if off >= len(data) {
			return nil
		}
	}
}

// nextOut returns the host's next OUT toggle for num.
func (b *Bus) nextOut(num uint8) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.toggle[num][dcd.DirOut]
}

// poll repeats tx until it is acknowledged, stalled, or ctx is done.
func poll(ctx context.Context, tx func() Handshake) error {
	for {
		switch tx() {
		case HandshakeACK:
			return nil
		case HandshakeStall:
			return pkg.ErrStall
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(PollInterval):
		}
	}
}
