package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbhs/pkg"
)

func TestDeviceDescriptor(t *testing.T) {
	want := DeviceDescriptor{
		USBVersion:        0x0200,
		DeviceClass:       ClassVendor,
		MaxPacketSize0:    64,
		VendorID:          0x1A86,
		ProductID:         0x55E0,
		DeviceVersion:     0x0100,
		ProductIndex:      2,
		NumConfigurations: 1,
	}
	raw := want.AppendTo(nil)
	require.Len(t, raw, DeviceDescriptorSize)
	assert.Equal(t, []byte{18, 0x01, 0x00, 0x02, 0xFF, 0, 0, 64, 0x86, 0x1A, 0xE0, 0x55}, raw[:12])

	var got DeviceDescriptor
	require.NoError(t, ParseDeviceDescriptor(raw, &got))
	assert.Equal(t, want, got)
}

func TestConfigurationDescriptorSet(t *testing.T) {
	config := ConfigurationDescriptor{
		TotalLength:        ConfigurationDescriptorSize + InterfaceDescriptorSize + EndpointDescriptorSize,
		NumInterfaces:      1,
		ConfigurationValue: 1,
		Attributes:         ConfigAttrBusPowered,
		MaxPower:           50,
	}
	intf := InterfaceDescriptor{NumEndpoints: 1, InterfaceClass: ClassVendor}
	ep := EndpointDescriptor{EndpointAddress: 0x81, Attributes: TransferTypeBulk, MaxPacketSize: 512}

	raw := config.AppendTo(nil)
	raw = intf.AppendTo(raw)
	raw = ep.AppendTo(raw)
	require.Len(t, raw, int(config.TotalLength))

	var gotConfig ConfigurationDescriptor
	require.NoError(t, ParseConfigurationDescriptor(raw, &gotConfig))
	assert.Equal(t, config, gotConfig)

	assert.Equal(t, []byte{9, DescriptorTypeInterface, 0, 0, 1, 0xFF, 0, 0, 0}, raw[9:18])

	var gotEP EndpointDescriptor
	require.NoError(t, ParseEndpointDescriptor(raw[18:], &gotEP))
	assert.Equal(t, ep, gotEP)
	assert.Equal(t, EndpointConfig{Address: 0x81, Attributes: TransferTypeBulk, MaxPacketSize: 512}, gotEP.Config())
}

func TestParseDescriptorErrors(t *testing.T) {
	var dev DeviceDescriptor
	assert.ErrorIs(t, ParseDeviceDescriptor(make([]byte, 8), &dev), pkg.ErrDescriptorTooShort)

	var config ConfigurationDescriptor
	intf := (&InterfaceDescriptor{}).AppendTo(nil)
	assert.ErrorIs(t, ParseConfigurationDescriptor(intf, &config), pkg.ErrDescriptorTypeMismatch)

	raw := (&EndpointDescriptor{EndpointAddress: 0x01}).AppendTo(nil)

	raw[0] = 4
	var ep EndpointDescriptor
	assert.ErrorIs(t, ParseEndpointDescriptor(raw, &ep), pkg.ErrDescriptorTooShort)
}
