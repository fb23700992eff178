package dcdhal

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/usbhs/device/dcd"
	"github.com/ardnew/usbhs/device/hal"
	"github.com/ardnew/usbhs/pkg"
)

// MaxEndpoints is the number of endpoint numbers, including EP0.
const MaxEndpoints = 16

// ep0MaxPacket is the control endpoint packet size.
const ep0MaxPacket = 64

// completion is the result of one transfer.
type completion struct {
	n   int
	err error
}

// HAL implements hal.DeviceHAL over a dcd.Controller.
type HAL struct {
	ctrl  dcd.Controller
	queue *dcd.Queue

	// Lifecycle
	mutex    sync.Mutex
	initDone bool
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	group    *errgroup.Group

	// State
	connected atomic.Bool
	speed     hal.Speed
	address   uint8

	// Control endpoint
	setup      hal.SetupPacket // request being served
	pending    hal.SetupPacket // next request for ReadSetup
	hasPending bool
	reset      bool
	setupCh    chan struct{}

	// Transfers, indexed by endpoint number*2 + direction
	waiters   [MaxEndpoints * 2]chan completion
	discard   [MaxEndpoints * 2]int
	endpoints [MaxEndpoints * 2]hal.EndpointConfig
	open      [MaxEndpoints * 2]bool

	connectCh chan struct{}
	disconnCh chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
}

// New returns a HAL serving ctrl, whose event handler posts to queue.
// ctrl must have its interrupt masked, as a newly created controller does.
func New(ctrl dcd.Controller, queue *dcd.Queue) *HAL {
	return &HAL{
		ctrl:      ctrl,
		queue:     queue,
		setupCh:   make(chan struct{}, 1),
		connectCh: make(chan struct{}, 1),
		disconnCh: make(chan struct{}, 1),
		closeCh:   make(chan struct{}),
	}
}

// index returns the waiter slot of addr.
func index(addr uint8) int {
	return int(dcd.EndpointNumber(addr))*2 + int(dcd.EndpointDirection(addr))
}

// validAddress reports whether addr names an endpoint the controller has.
func validAddress(addr uint8) bool {
	return dcd.EndpointNumber(addr) < MaxEndpoints
}

// signal performs a non-blocking send on ch.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Init initializes the controller, leaving it detached from the bus.
func (h *HAL) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.initDone {
		return pkg.ErrAlreadyRunning
	}
	select {
	case <-h.closeCh:
		return pkg.ErrInvalidState
	default:
	}

	h.ctrl.Init()
	h.ctrl.Disconnect()

	h.speed = h.ctrl.Speed()
	h.discard = [MaxEndpoints * 2]int{}
	h.open = [MaxEndpoints * 2]bool{}
	h.initDone = true

	pkg.LogInfo(pkg.ComponentHAL, "device HAL initialized", "speed", h.speed)
	return nil
}

// Start launches the event pump, unmasks the interrupt, and attaches to
// the bus.
func (h *HAL) Start() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.initDone {
		return pkg.ErrNotConfigured
	}
	if h.running {
		return pkg.ErrAlreadyRunning
	}

	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.group, h.ctx = errgroup.WithContext(h.ctx)
	ctx := h.ctx
	h.group.Go(func() error { return h.pump(ctx) })

	h.ctrl.Connect()
	h.ctrl.IntEnable()
	h.running = true

	pkg.LogInfo(pkg.ComponentHAL, "device HAL started")
	return nil
}

// Stop detaches from the bus, closes every data endpoint, and fails the
// blocked calls with pkg.ErrCancelled. A stopped HAL cannot be restarted.
func (h *HAL) Stop() error {
	h.mutex.Lock()
	if !h.running {
		h.mutex.Unlock()
		return pkg.ErrNotRunning
	}

	h.ctrl.IntDisable()
	h.ctrl.Disconnect()
	h.ctrl.CloseAllEndpoints()
	h.ctrl.IntEnable()

	for idx := range h.waiters {
		h.failLocked(idx, pkg.ErrCancelled)
	}
	h.running = false
	h.initDone = false
	h.cancel()
	group := h.group
	h.mutex.Unlock()

	err := group.Wait()

	h.connected.Store(false)
	signal(h.disconnCh)
	h.closeOnce.Do(func() { close(h.closeCh) })

	pkg.LogInfo(pkg.ComponentHAL, "device HAL stopped")
	return err
}

// pump delivers controller events until ctx is done.
func (h *HAL) pump(ctx context.Context) error {
	for {
		ev, err := h.queue.Next(ctx)
		if err != nil {
			return nil
		}
		h.dispatch(ev)
	}
}

// dispatch applies one controller event.
func (h *HAL) dispatch(ev dcd.Event) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	switch ev.ID {
	case dcd.EventBusReset:
		h.speed = ev.Speed
		h.address = 0
		for idx := range h.waiters {
			h.failLocked(idx, pkg.ErrReset)
		}
		h.discard = [MaxEndpoints * 2]int{}
		h.hasPending = false
		h.reset = true
		signal(h.setupCh)
		if !h.connected.Swap(true) {
			signal(h.connectCh)
		}
		pkg.LogInfo(pkg.ComponentHAL, "bus reset", "speed", ev.Speed)

	case dcd.EventSetupReceived:
		for _, idx := range []int{index(0x00), index(0x80)} {
			h.failLocked(idx, pkg.ErrCancelled)
			h.discard[idx] = 0
		}
		h.pending = ev.SetupPacket()
		h.hasPending = true
		signal(h.setupCh)

	case dcd.EventXferComplete:
		idx := index(ev.Addr)
		if h.discard[idx] > 0 {
			h.discard[idx]--
			pkg.LogDebug(pkg.ComponentHAL, "stale completion discarded", "addr", ev.Addr)
			return
		}
		w := h.waiters[idx]
		if w == nil {
			pkg.LogDebug(pkg.ComponentHAL, "completion without waiter", "addr", ev.Addr)
			return
		}
		h.waiters[idx] = nil
		w <- completion{n: int(ev.Length)}

	case dcd.EventSuspend:
		pkg.LogInfo(pkg.ComponentHAL, "suspend")
	}
}

// failLocked fails the waiter at idx with err unless its completion
// already arrived.
func (h *HAL) failLocked(idx int, err error) {
	w := h.waiters[idx]
	if w == nil {
		return
	}
	h.waiters[idx] = nil
	if len(w) == 0 {
		w <- completion{err: err}
	}
}

// cancelLocked fails the waiter on addr like failLocked. When the
// controller already finished the transfer its completion is still
// queued and is discarded on arrival. Callers hold h.mutex with the
// interrupt masked.
func (h *HAL) cancelLocked(addr uint8, err error) {
	idx := index(addr)
	w := h.waiters[idx]
	if w == nil || len(w) > 0 {
		h.failLocked(idx, err)
		return
	}
	if !h.ctrl.Busy(addr) {
		h.discard[idx]++
	}
	h.failLocked(idx, err)
}

// abortLocked stops a transfer in flight on addr. Callers hold h.mutex
// with the interrupt masked.
func (h *HAL) abortLocked(addr uint8) {
	if dcd.EndpointNumber(addr) == 0 {
		h.ctrl.Stall(addr)
		return
	}
	h.ctrl.CloseEndpoint(addr)
	if idx := index(addr); h.open[idx] {
		h.ctrl.OpenEndpoint(h.endpoints[idx])
	}
}

// transfer moves buf on addr and waits for the completion.
func (h *HAL) transfer(ctx context.Context, addr uint8, buf []byte) (int, error) {
	if len(buf) > 0xFFFF {
		return 0, fmt.Errorf("transfer of %d bytes: %w", len(buf), pkg.ErrInvalidParameter)
	}
	return h.start(ctx, addr, func() {
		h.ctrl.Transfer(addr, buf, uint16(len(buf)))
	})
}

// start registers a waiter on addr, runs arm with the interrupt masked,
// and waits for the completion.
func (h *HAL) start(ctx context.Context, addr uint8, arm func()) (int, error) {
	idx := index(addr)
	w := make(chan completion, 1)

	h.mutex.Lock()
	if !h.running {
		h.mutex.Unlock()
		return 0, pkg.ErrNotRunning
	}
	if dcd.EndpointNumber(addr) > 0 && !h.open[idx] {
		h.mutex.Unlock()
		return 0, fmt.Errorf("endpoint 0x%02X: %w", addr, pkg.ErrNotConfigured)
	}
	h.ctrl.IntDisable()
	if h.waiters[idx] != nil || h.ctrl.Busy(addr) {
		h.ctrl.IntEnable()
		h.mutex.Unlock()
		return 0, fmt.Errorf("endpoint 0x%02X busy: %w", addr, pkg.ErrInvalidState)
	}
	h.waiters[idx] = w
	arm()
	h.ctrl.IntEnable()
	h.mutex.Unlock()

	var err error
	select {
	case c := <-w:
		return c.n, c.err
	case <-ctx.Done():
		err = ctx.Err()
	case <-h.closeCh:
		err = pkg.ErrCancelled
	}

	h.mutex.Lock()
	h.ctrl.IntDisable()
	if h.waiters[idx] == w {
		busy := len(w) == 0 && h.ctrl.Busy(addr)
		h.cancelLocked(addr, err)
		if busy {
			h.abortLocked(addr)
		}
	}
	h.ctrl.IntEnable()
	h.mutex.Unlock()

	c := <-w
	return c.n, c.err
}

// current returns the request being served on EP0.
func (h *HAL) current() hal.SetupPacket {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.setup
}

// statusComplete finishes the control transfer for req.
func (h *HAL) statusComplete(req hal.SetupPacket) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.ctrl.IntDisable()
	h.ctrl.StatusComplete(&req)
	h.ctrl.IntEnable()

	if dcd.IsSetAddress(&req) {
		h.address = uint8(req.Value)
		pkg.LogDebug(pkg.ComponentHAL, "address set", "address", h.address)
	}
}

// critical runs fn holding h.mutex with the controller interrupt masked.
// The controller stays masked until Start, so it fails with
// pkg.ErrNotRunning outside Start and Stop.
func (h *HAL) critical(fn func()) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.running {
		return pkg.ErrNotRunning
	}

	h.ctrl.IntDisable()
	defer h.ctrl.IntEnable()
	fn()
	return nil
}

// runContext returns the context of the running pump.
func (h *HAL) runContext() (context.Context, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.running {
		return nil, pkg.ErrNotRunning
	}
	return h.ctx, nil
}

// SetAddress records the address assigned by the host. The controller
// starts answering on it when the SET_ADDRESS status stage completes in
// AckEP0.
func (h *HAL) SetAddress(address uint8) error {
	if address > 127 {
		return fmt.Errorf("address %d: %w", address, pkg.ErrInvalidParameter)
	}
	h.mutex.Lock()
	h.address = address
	h.mutex.Unlock()
	return nil
}

// Address returns the device address.
func (h *HAL) Address() uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.address
}

// ConfigureEndpoints closes every data endpoint and opens endpoints.
// Blocked Read and Write calls fail with pkg.ErrCancelled. EP0 entries
// are ignored. Like the stall calls it needs a started HAL.
func (h *HAL) ConfigureEndpoints(endpoints []hal.EndpointConfig) error {
	for _, ep := range endpoints {
		if !validAddress(ep.Address) {
			return fmt.Errorf("endpoint 0x%02X: %w", ep.Address, pkg.ErrInvalidEndpoint)
		}
	}

	count := 0
	err := h.critical(func() {
		for num := uint8(1); num < MaxEndpoints; num++ {
			h.cancelLocked(dcd.EndpointAddress(num, dcd.DirOut), pkg.ErrCancelled)
			h.cancelLocked(dcd.EndpointAddress(num, dcd.DirIn), pkg.ErrCancelled)
		}
		h.ctrl.CloseAllEndpoints()
		h.open = [MaxEndpoints * 2]bool{}

		for _, ep := range endpoints {
			if ep.Number() == 0 {
				continue
			}
			idx := index(ep.Address)
			h.endpoints[idx] = ep
			h.open[idx] = true
			h.ctrl.OpenEndpoint(ep)
			count++
		}
	})
	if err != nil {
		return err
	}

	pkg.LogDebug(pkg.ComponentHAL, "endpoints configured", "count", count)
	return nil
}

// ReadSetup waits for the next SETUP packet. It returns pkg.ErrReset once
// for each bus reset.
func (h *HAL) ReadSetup(ctx context.Context, out *hal.SetupPacket) error {
	for {
		h.mutex.Lock()
		if h.reset {
			h.reset = false
			h.mutex.Unlock()
			return pkg.ErrReset
		}
		if h.hasPending {
			*out = h.pending
			h.setup = h.pending
			h.hasPending = false
			h.mutex.Unlock()

			pkg.LogDebug(pkg.ComponentHAL, "setup received", "request", out.String())
			return nil
		}
		h.mutex.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.closeCh:
			return pkg.ErrCancelled
		case <-h.setupCh:
		}
	}
}

// WriteEP0 sends the IN data stage, truncated to wLength. A ZLP follows
// when the data ends on a packet boundary short of wLength.
func (h *HAL) WriteEP0(ctx context.Context, data []byte) error {
	req := h.current()
	if len(data) > int(req.Length) {
		data = data[:req.Length]
	}

	if _, err := h.transfer(ctx, dcd.EndpointAddress(0, dcd.DirIn), data); err != nil {
		return fmt.Errorf("ep0 in: %w", err)
	}

	if len(data) > 0 && len(data) < int(req.Length) && len(data)%ep0MaxPacket == 0 {
		if _, err := h.transfer(ctx, dcd.EndpointAddress(0, dcd.DirIn), nil); err != nil {
			return fmt.Errorf("ep0 in zlp: %w", err)
		}
	}
	return nil
}

// ReadEP0 receives the OUT data stage into buf. With an empty buf it
// receives the status ZLP that ends a control read.
func (h *HAL) ReadEP0(ctx context.Context, buf []byte) (int, error) {
	req := h.current()

	n, err := h.transfer(ctx, dcd.EndpointAddress(0, dcd.DirOut), buf)
	if err != nil {
		return n, fmt.Errorf("ep0 out: %w", err)
	}

	if len(buf) == 0 {
		h.statusComplete(req)
	}
	return n, nil
}

// StallEP0 stalls both directions of EP0 until the next SETUP.
func (h *HAL) StallEP0() error {
	err := h.critical(func() {
		for _, addr := range []uint8{0x80, 0x00} {
			h.cancelLocked(addr, pkg.ErrStall)
			h.ctrl.Stall(addr)
		}
	})
	if err != nil {
		return err
	}
	pkg.LogDebug(pkg.ComponentHAL, "EP0 stalled")
	return nil
}

// AckEP0 sends the IN status ZLP that ends a control write.
func (h *HAL) AckEP0() error {
	ctx, err := h.runContext()
	if err != nil {
		return err
	}

	req := h.current()
	addr := dcd.EndpointAddress(0, dcd.DirIn)
	arm := func() { h.ctrl.Transfer(addr, nil, 0) }
	if dcd.IsSetAddress(&req) {
		arm = func() { h.ctrl.SetAddress(uint8(req.Value)) }
	}

	if _, err := h.start(ctx, addr, arm); err != nil {
		return fmt.Errorf("ep0 status: %w", err)
	}
	h.statusComplete(req)
	return nil
}

// dataAddress validates a data endpoint address and forces its direction.
func (h *HAL) dataAddress(address uint8, dir dcd.Direction) (uint8, error) {
	num := dcd.EndpointNumber(address)
	if num == 0 || num >= MaxEndpoints {
		return 0, fmt.Errorf("endpoint 0x%02X: %w", address, pkg.ErrInvalidEndpoint)
	}
	addr := dcd.EndpointAddress(num, dir)

	h.mutex.Lock()
	open := h.open[index(addr)]
	h.mutex.Unlock()
	if !open {
		return 0, fmt.Errorf("endpoint 0x%02X: %w", addr, pkg.ErrNotConfigured)
	}
	return addr, nil
}

// Read receives up to len(buf) bytes from an OUT endpoint. It returns
// early on a short packet.
func (h *HAL) Read(ctx context.Context, address uint8, buf []byte) (int, error) {
	addr, err := h.dataAddress(address, dcd.DirOut)
	if err != nil {
		return 0, err
	}
	return h.transfer(ctx, addr, buf)
}

// Write sends data on an IN endpoint.
func (h *HAL) Write(ctx context.Context, address uint8, data []byte) (int, error) {
	addr, err := h.dataAddress(address, dcd.DirIn)
	if err != nil {
		return 0, err
	}
	return h.transfer(ctx, addr, data)
}

// Stall stalls the specified endpoint. A blocked call on it fails with
// pkg.ErrStall.
func (h *HAL) Stall(address uint8) error {
	if !validAddress(address) {
		return fmt.Errorf("endpoint 0x%02X: %w", address, pkg.ErrInvalidEndpoint)
	}

	return h.critical(func() {
		h.cancelLocked(address, pkg.ErrStall)
		h.ctrl.Stall(address)
	})
}

// ClearStall clears a stall condition on the specified endpoint.
func (h *HAL) ClearStall(address uint8) error {
	if !validAddress(address) {
		return fmt.Errorf("endpoint 0x%02X: %w", address, pkg.ErrInvalidEndpoint)
	}

	return h.critical(func() { h.ctrl.ClearStall(address) })
}

// IsConnected returns true after the first bus reset.
func (h *HAL) IsConnected() bool {
	return h.connected.Load()
}

// GetSpeed returns the bus speed reported by the last reset.
func (h *HAL) GetSpeed() hal.Speed {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.speed
}

// WaitConnect blocks until the host resets the bus or the context is
// cancelled.
func (h *HAL) WaitConnect(ctx context.Context) error {
	if h.IsConnected() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.connectCh:
		return nil
	case <-h.closeCh:
		return pkg.ErrCancelled
	}
}

// WaitDisconnect blocks until the HAL stops or the context is cancelled.
func (h *HAL) WaitDisconnect(ctx context.Context) error {
	if !h.IsConnected() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.disconnCh:
		return nil
	case <-h.closeCh:
		return nil
	}
}

// Compile-time interface check
var _ hal.DeviceHAL = (*HAL)(nil)
