package hal

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/usbhs/pkg"
)

// Standard descriptor types (USB 2.0 Spec Table 9-5).
const (
	DescriptorTypeDevice        = 0x01
	DescriptorTypeConfiguration = 0x02
	DescriptorTypeString        = 0x03
	DescriptorTypeInterface     = 0x04
	DescriptorTypeEndpoint      = 0x05
)

// Descriptor sizes in bytes.
const (
	DeviceDescriptorSize        = 18
	ConfigurationDescriptorSize = 9
	InterfaceDescriptorSize     = 9
	EndpointDescriptorSize      = 7
)

// ClassVendor marks a vendor-specific device or interface.
const ClassVendor = 0xFF

// ConfigAttrBusPowered is the bmAttributes bit every configuration sets.
const ConfigAttrBusPowered = 0x80

// DeviceDescriptor is the standard device descriptor.
type DeviceDescriptor struct {
	USBVersion        uint16 // BCD
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize0    uint8
	VendorID          uint16
	ProductID         uint16
	DeviceVersion     uint16 // BCD
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialNumberIndex uint8
	NumConfigurations uint8
}

// AppendTo appends the wire form of d to buf.
func (d *DeviceDescriptor) AppendTo(buf []byte) []byte {
	buf = append(buf, DeviceDescriptorSize, DescriptorTypeDevice)
	buf = binary.LittleEndian.AppendUint16(buf, d.USBVersion)
	buf = append(buf, d.DeviceClass, d.DeviceSubClass, d.DeviceProtocol, d.MaxPacketSize0)
	buf = binary.LittleEndian.AppendUint16(buf, d.VendorID)
	buf = binary.LittleEndian.AppendUint16(buf, d.ProductID)
	buf = binary.LittleEndian.AppendUint16(buf, d.DeviceVersion)
	return append(buf, d.ManufacturerIndex, d.ProductIndex, d.SerialNumberIndex, d.NumConfigurations)
}

// ParseDeviceDescriptor decodes a device descriptor from data.
func ParseDeviceDescriptor(data []byte, out *DeviceDescriptor) error {
	if err := checkDescriptor(data, DescriptorTypeDevice, DeviceDescriptorSize); err != nil {
		return err
	}
	*out = DeviceDescriptor{
		USBVersion:        binary.LittleEndian.Uint16(data[2:]),
		DeviceClass:       data[4],
		DeviceSubClass:    data[5],
		DeviceProtocol:    data[6],
		MaxPacketSize0:    data[7],
		VendorID:          binary.LittleEndian.Uint16(data[8:]),
		ProductID:         binary.LittleEndian.Uint16(data[10:]),
		DeviceVersion:     binary.LittleEndian.Uint16(data[12:]),
		ManufacturerIndex: data[14],
		ProductIndex:      data[15],
		SerialNumberIndex: data[16],
		NumConfigurations: data[17],
	}
	return nil
}

// ConfigurationDescriptor is the header of a configuration descriptor set.
type ConfigurationDescriptor struct {
	TotalLength        uint16 // header and every descriptor that follows it
	NumInterfaces      uint8
	ConfigurationValue uint8
	ConfigurationIndex uint8
	Attributes         uint8
	MaxPower           uint8 // 2 mA units
}

// AppendTo appends the wire form of c to buf.
func (c *ConfigurationDescriptor) AppendTo(buf []byte) []byte {
	buf = append(buf, ConfigurationDescriptorSize, DescriptorTypeConfiguration)
	buf = binary.LittleEndian.AppendUint16(buf, c.TotalLength)
	return append(buf, c.NumInterfaces, c.ConfigurationValue, c.ConfigurationIndex, c.Attributes, c.MaxPower)
}

// ParseConfigurationDescriptor decodes a configuration header from data.
func ParseConfigurationDescriptor(data []byte, out *ConfigurationDescriptor) error {
	if err := checkDescriptor(data, DescriptorTypeConfiguration, ConfigurationDescriptorSize); err != nil {
		return err
	}
	*out = ConfigurationDescriptor{
		TotalLength:        binary.LittleEndian.Uint16(data[2:]),
		NumInterfaces:      data[4],
		ConfigurationValue: data[5],
		ConfigurationIndex: data[6],
		Attributes:         data[7],
		MaxPower:           data[8],
	}
	return nil
}

// InterfaceDescriptor is the standard interface descriptor.
type InterfaceDescriptor struct {
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	InterfaceIndex    uint8
}

// AppendTo appends the wire form of i to buf.
func (i *InterfaceDescriptor) AppendTo(buf []byte) []byte {
	return append(buf, InterfaceDescriptorSize, DescriptorTypeInterface,
		i.InterfaceNumber, i.AlternateSetting, i.NumEndpoints,
		i.InterfaceClass, i.InterfaceSubClass, i.InterfaceProtocol, i.InterfaceIndex)
}

// EndpointDescriptor is the standard endpoint descriptor.
type EndpointDescriptor struct {
	EndpointAddress uint8
	Attributes      uint8
	MaxPacketSize   uint16
	Interval        uint8
}

// AppendTo appends the wire form of e to buf.
func (e *EndpointDescriptor) AppendTo(buf []byte) []byte {
	buf = append(buf, EndpointDescriptorSize, DescriptorTypeEndpoint, e.EndpointAddress, e.Attributes)
	buf = binary.LittleEndian.AppendUint16(buf, e.MaxPacketSize)
	return append(buf, e.Interval)
}

// Config returns the HAL configuration that opens e.
func (e *EndpointDescriptor) Config() EndpointConfig {
	return EndpointConfig{
		Address:       e.EndpointAddress,
		Attributes:    e.Attributes,
		MaxPacketSize: e.MaxPacketSize,
		Interval:      e.Interval,
	}
}

// ParseEndpointDescriptor decodes an endpoint descriptor from data.
func ParseEndpointDescriptor(data []byte, out *EndpointDescriptor) error {
	if err := checkDescriptor(data, DescriptorTypeEndpoint, EndpointDescriptorSize); err != nil {
		return err
	}
	*out = EndpointDescriptor{
		EndpointAddress: data[2],
		Attributes:      data[3],
		MaxPacketSize:   binary.LittleEndian.Uint16(data[4:]),
		Interval:        data[6],
	}
	return nil
}

// checkDescriptor verifies the length and type header of data.
func checkDescriptor(data []byte, typ uint8, size int) error {
	if len(data) < size || int(data[0]) < size {
		return fmt.Errorf("descriptor type 0x%02X: %d bytes: %w", typ, len(data), pkg.ErrDescriptorTooShort)
	}
	if data[1] != typ {
		return fmt.Errorf("descriptor type 0x%02X, want 0x%02X: %w", data[1], typ, pkg.ErrDescriptorTypeMismatch)
	}
	return nil
}
