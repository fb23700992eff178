package hal

import "context"

// Speed represents the USB connection speed.
type Speed uint8

// USB speed constants (USB 2.0 Specification).
const (
	SpeedUnknown Speed = iota // Not connected or unknown
	SpeedLow                  // Low Speed (1.5 Mbit/s)
	SpeedFull                 // Full Speed (12 Mbit/s)
	SpeedHigh                 // High Speed (480 Mbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed"
	case SpeedFull:
		return "Full Speed"
	case SpeedHigh:
		return "High Speed"
	default:
		return "Unknown"
	}
}

// Endpoint transfer types (USB 2.0 Spec Table 9-13).
const (
	TransferTypeControl     = 0x00
	TransferTypeIsochronous = 0x01
	TransferTypeBulk        = 0x02
	TransferTypeInterrupt   = 0x03
)

// EndpointConfig describes an endpoint configuration for the HAL.
// This is a minimal, platform-agnostic representation used to configure
// hardware endpoints when a configuration is activated.
type EndpointConfig struct {
	Address       uint8  // Endpoint address including direction bit
	Attributes    uint8  // Transfer type and sync/usage flags
	MaxPacketSize uint16 // Maximum packet size
	Interval      uint8  // Polling interval for interrupt/isochronous
}

// Number returns the endpoint number (0-15).
func (e *EndpointConfig) Number() uint8 {
	return e.Address & 0x0F
}

// IsIn returns true if this is an IN endpoint (device to host).
func (e *EndpointConfig) IsIn() bool {
	return e.Address&0x80 != 0
}

// TransferType returns the transfer type (control, bulk, interrupt, isochronous).
func (e *EndpointConfig) TransferType() uint8 {
	return e.Attributes & 0x03
}

// IsIsochronous reports whether the endpoint uses isochronous transfers.
func (e *EndpointConfig) IsIsochronous() bool {
	return e.TransferType() == TransferTypeIsochronous
}

// DeviceHAL defines the Hardware Abstraction Layer interface for USB device stacks.
//
// A device stack drives enumeration and class traffic through these blocking
// calls. Implementations translate them to controller operations.
type DeviceHAL interface {
	// Init initializes the USB controller hardware.
	// The context can be used to cancel initialization.
	Init(ctx context.Context) error

	// Start enables the USB controller and attaches to the bus.
	// After Start returns, the device should be visible to the host.
	Start() error

	// Stop detaches from the bus and disables the USB controller.
	Stop() error

	// SetAddress records the address assigned by the host.
	SetAddress(address uint8) error

	// ConfigureEndpoints configures hardware endpoints for the active configuration.
	// Pass nil or empty slice to unconfigure all endpoints.
	ConfigureEndpoints(endpoints []EndpointConfig) error

	// Control Endpoint (EP0) Operations

	// ReadSetup reads a SETUP packet from EP0.
	// Blocks until a SETUP packet is available or the context is cancelled.
	ReadSetup(ctx context.Context, out *SetupPacket) error

	// WriteEP0 writes data to EP0 (control IN phase).
	WriteEP0(ctx context.Context, data []byte) error

	// ReadEP0 reads data from EP0 (control OUT phase).
	// A zero-length buf completes the status stage of a control IN transfer.
	ReadEP0(ctx context.Context, buf []byte) (int, error)

	// StallEP0 stalls the control endpoint to indicate an error.
	StallEP0() error

	// AckEP0 sends a zero-length packet to acknowledge a successful control transfer.
	AckEP0() error

	// Data Endpoint Operations

	// Read reads data from an OUT endpoint into buf.
	Read(ctx context.Context, address uint8, buf []byte) (int, error)

	// Write writes data to an IN endpoint.
	Write(ctx context.Context, address uint8, data []byte) (int, error)

	// Stall stalls the specified endpoint.
	Stall(address uint8) error

	// ClearStall clears a stall condition on the specified endpoint.
	ClearStall(address uint8) error

	// Connection State

	// IsConnected returns true if the device is connected to a host.
	IsConnected() bool

	// GetSpeed returns the negotiated USB connection speed.
	GetSpeed() Speed

	// WaitConnect blocks until the device connects to a host or the context is cancelled.
	WaitConnect(ctx context.Context) error

	// WaitDisconnect blocks until the device disconnects or the context is cancelled.
	WaitDisconnect(ctx context.Context) error
}
