package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedString(t *testing.T) {
	assert.Equal(t, "High Speed", SpeedHigh.String())
	assert.Equal(t, "Full Speed", SpeedFull.String())
	assert.Equal(t, "Low Speed", SpeedLow.String())
	assert.Equal(t, "Unknown", Speed(42).String())
}

func TestEndpointConfig(t *testing.T) {
	ep := EndpointConfig{Address: 0x83, Attributes: TransferTypeIsochronous | 0x04, MaxPacketSize: 1024}
	assert.Equal(t, uint8(3), ep.Number())
	assert.True(t, ep.IsIn())
	assert.True(t, ep.IsIsochronous())

	ep = EndpointConfig{Address: 0x02, Attributes: TransferTypeBulk}
	assert.False(t, ep.IsIn())
	assert.False(t, ep.IsIsochronous())
}

func TestSetupPacketRoundTrip(t *testing.T) {
	raw := []byte{0x80, RequestGetDescriptor, 0x00, 0x01, 0x00, 0x00, 0x12, 0x00}

	var s SetupPacket
	require.True(t, ParseSetupPacket(raw, &s))
	assert.Equal(t, uint16(0x0100), s.Value)
	assert.Equal(t, uint16(18), s.Length)
	assert.True(t, s.IsDeviceToHost())
	assert.True(t, s.IsStandard())
	assert.True(t, s.IsDeviceRecipient())

	b := s.Bytes()
	assert.Equal(t, raw, b[:])

	assert.False(t, ParseSetupPacket(raw[:7], &s))
	assert.Zero(t, s.MarshalTo(make([]byte, 4)))
}

func TestSetupPacketString(t *testing.T) {
	s := SetupPacket{RequestType: 0x00, Request: RequestSetAddress, Value: 7}
	assert.Equal(t, "SETUP[00 05] Value=0x0007 Index=0x0000 Length=0", s.String())
}
