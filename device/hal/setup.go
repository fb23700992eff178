package hal

import (
	"encoding/binary"
	"fmt"
)

// Standard request codes used below the device stack (USB 2.0 Spec Table 9-4).
const (
	RequestGetDescriptor    = 0x06
	RequestSetAddress       = 0x05
	RequestSetConfiguration = 0x09
)

// Request type fields (USB 2.0 Spec Table 9-2).
const (
	RequestTypeDirectionMask = 0x80
	RequestTypeTypeMask      = 0x60
	RequestTypeRecipientMask = 0x1F

	RequestDirectionDeviceToHost = 0x80
	RequestTypeStandard          = 0x00
	RequestRecipientDevice       = 0x00
)

// SetupPacket represents a USB SETUP packet in the HAL layer.
// This is a fixed-size, zero-allocation structure for SETUP transactions.
type SetupPacket struct {
	RequestType uint8  // Request characteristics
	Request     uint8  // Specific request
	Value       uint16 // Request-specific value
	Index       uint16 // Request-specific index
	Length      uint16 // Number of bytes to transfer
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// ParseSetupPacket parses raw bytes into a SetupPacket.
// Returns false if data is too short.
func ParseSetupPacket(data []byte, out *SetupPacket) bool {
	if len(data) < SetupPacketSize {
		return false
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = binary.LittleEndian.Uint16(data[2:4])
	out.Index = binary.LittleEndian.Uint16(data[4:6])
	out.Length = binary.LittleEndian.Uint16(data[6:8])
	return true
}

// MarshalTo writes the setup packet to buf.
// Returns the number of bytes written (8), or 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return SetupPacketSize
}

// Bytes returns the wire form of the packet.
func (s *SetupPacket) Bytes() (b [SetupPacketSize]byte) {
	s.MarshalTo(b[:])
	return b
}

// IsDeviceToHost reports whether the data stage, if any, is IN.
func (s *SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&RequestTypeDirectionMask == RequestDirectionDeviceToHost
}

// IsStandard reports whether this is a standard request.
func (s *SetupPacket) IsStandard() bool {
	return s.RequestType&RequestTypeTypeMask == RequestTypeStandard
}

// IsDeviceRecipient reports whether the request targets the device.
func (s *SetupPacket) IsDeviceRecipient() bool {
	return s.RequestType&RequestTypeRecipientMask == RequestRecipientDevice
}

// String returns a compact representation of the setup packet.
func (s *SetupPacket) String() string {
	return fmt.Sprintf("SETUP[%02X %02X] Value=0x%04X Index=0x%04X Length=%d",
		s.RequestType, s.Request, s.Value, s.Index, s.Length)
}
