package usbhs

import "github.com/ardnew/usbhs/internal/volatile"

// EPMax is the number of bidirectional endpoints including EP0.
const EPMax = 16

// EP0MaxSize is the control endpoint packet size.
const EP0MaxSize = 64

// Registers is the USBHS device register block. On target the struct
// overlays the peripheral at its base address, so field order and padding
// follow the hardware map.
type Registers struct {
	Control    volatile.Register8     // 0x00 USBHS_CONTROL
	HostCtrl   volatile.Register8     // 0x01 USBHS_HOST_CTRL
	IntEn      volatile.Register8     // 0x02 USBHS_INT_EN
	DevAddr    volatile.Register8     // 0x03 USBHS_DEV_AD
	FrameNo    volatile.Register16    // 0x04 USBHS_FRAME_NO
	Suspend    volatile.Register8     // 0x06 USBHS_SUSPEND
	_          [1]byte                // 0x07
	SpeedType  volatile.Register8     // 0x08 USBHS_SPEED_TYPE
	MiscStatus volatile.Register8     // 0x09 USBHS_MIS_ST
	IntFlag    volatile.FlagRegister8 // 0x0A USBHS_INT_FG (write 1 to clear)
	IntStatus  volatile.Register8     // 0x0B USBHS_INT_ST
	RxLen      volatile.Register16    // 0x0C USBHS_RX_LEN
	_          [2]byte                // 0x0E
	EndpConfig volatile.Register32    // 0x10 USBHS_ENDP_CONFIG
	EndpType   volatile.Register32    // 0x14 USBHS_ENDP_TYPE
	BufMode    volatile.Register32    // 0x18 USBHS_BUF_MODE
	EP0DMA     volatile.Register32    // 0x1C USBHS_UEP0_DMA

	// RxDMA[n-1] and TxDMA[n-1] hold the buffer address of endpoint n.
	RxDMA [EPMax - 1]volatile.Register32 // 0x20 USBHS_UEPn_RX_DMA
	TxDMA [EPMax - 1]volatile.Register32 // 0x5C USBHS_UEPn_TX_DMA

	MaxLen [EPMax]MaxLenRegister   // 0x98 USBHS_UEPn_MAX_LEN
	EP     [EPMax]EndpointRegister // 0xD8 USBHS_UEPn_TX_LEN/TX_CTRL/RX_CTRL
}

// MaxLenRegister is the receive length limit of one endpoint.
type MaxLenRegister struct {
	Len volatile.Register16
	_   [2]byte
}

// EndpointRegister holds the transmit length and both control bytes of one
// endpoint.
type EndpointRegister struct {
	TxLen  volatile.Register16
	TxCtrl volatile.Register8
	RxCtrl volatile.Register8
}

// CONTROL register bits
const (
	ControlDMAEn     = 1 << 0 // DMA enable
	ControlClrAll    = 1 << 1 // Clear FIFOs and interrupt flags
	ControlResetSIE  = 1 << 2 // Reset the serial interface engine
	ControlIntBusyEn = 1 << 3 // NAK automatically while an interrupt flag is pending
	ControlDevPuEn   = 1 << 4 // D+ pull-up enable
	ControlSpeedMask = 3 << 5 // Speed select
	ControlFullSpeed = 0 << 5 // Full speed
	ControlHighSpeed = 1 << 5 // High speed
	ControlLowSpeed  = 2 << 5 // Low speed
)

// HOST_CTRL register bits
const (
	HostCtrlPhySuspendM = 1 << 4 // Release the PHY from suspend
)

// INT_EN and INT_FG register bits
const (
	IntDetect   = 1 << 0 // Bus reset detected
	IntTransfer = 1 << 1 // Transfer finished
	IntSuspend  = 1 << 2 // Bus suspend or resume
	IntHstSOF   = 1 << 3 // Host SOF timer
	IntFIFOOV   = 1 << 4 // FIFO overflow
	IntSetupAct = 1 << 5 // SETUP transaction finished
	IntIsoAct   = 1 << 6 // Isochronous token received
)

// INT_ST register fields
const (
	IntStEndpMask  = 0x0F // Endpoint number of the last transfer
	IntStTokenMask = 0x30 // Token PID of the last transfer

	TokenOut   = 0x00 << 4
	TokenSOF   = 0x01 << 4
	TokenIn    = 0x02 << 4
	TokenSetup = 0x03 << 4
)

// ENDP_CONFIG and ENDP_TYPE register bits for EP0. Shift left by the
// endpoint number for other endpoints.
const (
	EP0TxEn  = 1 << 0  // TX enable
	EP0RxEn  = 1 << 16 // RX enable
	EP0TxTyp = 1 << 0  // TX isochronous
	EP0RxTyp = 1 << 16 // RX isochronous
)

// TX_CTRL and RX_CTRL register fields
const (
	EPResMask  = 0x03 // Handshake response
	EPResAck   = 0x00 // ACK (or data ready for IN)
	EPResNYET  = 0x01 // NYET
	EPResNAK   = 0x02 // NAK
	EPResStall = 0x03 // STALL

	EPTogMask = 0x0C // Expected or next data PID
	EPTog0    = 0x00 // DATA0
	EPTog1    = 0x04 // DATA1
	EPTog2    = 0x08 // DATA2
	EPTogM    = 0x0C // MDATA

	EPAutoTog = 1 << 5 // Toggle automatically after a successful transaction
)

// txLen returns the transmit length register of endpoint n.
func (r *Registers) txLen(n uint8) *volatile.Register16 { return &r.EP[n].TxLen }

// txCtrl returns the transmit control register of endpoint n.
func (r *Registers) txCtrl(n uint8) *volatile.Register8 { return &r.EP[n].TxCtrl }

// rxCtrl returns the receive control register of endpoint n.
func (r *Registers) rxCtrl(n uint8) *volatile.Register8 { return &r.EP[n].RxCtrl }

// rxMaxLen returns the receive length limit of endpoint n.
func (r *Registers) rxMaxLen(n uint8) *volatile.Register16 { return &r.MaxLen[n].Len }

// txDMA returns the transmit buffer address of endpoint n (n >= 1).
func (r *Registers) txDMA(n uint8) *volatile.Register32 { return &r.TxDMA[n-1] }

// rxDMA returns the receive buffer address of endpoint n (n >= 1).
func (r *Registers) rxDMA(n uint8) *volatile.Register32 { return &r.RxDMA[n-1] }
