package usbhs

// response is the handshake an endpoint is armed with.
type response uint8

const (
	responseACK response = iota
	responseNAK
)

// bits returns the RES field value of r.
func (r response) bits() uint8 {
	if r == responseACK {
		return EPResAck
	}
	return EPResNAK
}

// togglePolicy computes the next control register value when an endpoint
// is armed. The result carries both the response and the toggle, so a
// single store updates them together.
type togglePolicy interface {
	// tx returns the new TX_CTRL value. txLen is the length of the packet
	// being armed.
	tx(ctrl uint8, txLen uint16, r response) uint8
	// rx returns the new RX_CTRL value. queued is the number of bytes
	// already received in the current transfer.
	rx(ctrl uint8, queued uint16, r response) uint8
}

// manualToggle drives DATA0/DATA1 in software. Used on EP0, where the
// sequence restarts after each SETUP.
type manualToggle struct{}

func (manualToggle) tx(ctrl uint8, txLen uint16, r response) uint8 {
	if r == responseACK {
		if txLen == 0 {
			// Status ZLP is always DATA1.
			ctrl |= EPTog1
		} else {
			ctrl ^= EPTog1
		}
	}
	return ctrl&^EPResMask | r.bits()
}

func (manualToggle) rx(ctrl uint8, queued uint16, r response) uint8 {
	if r == responseACK {
		if queued == 0 {
			ctrl |= EPTog1
		}
	} else {
		ctrl ^= EPTog1
	}
	return ctrl&^EPResMask | r.bits()
}

// autoToggle leaves the toggle to hardware (EPAutoTog).
type autoToggle struct{}

func (autoToggle) tx(ctrl uint8, _ uint16, r response) uint8 {
	return ctrl&^EPResMask | r.bits()
}

func (autoToggle) rx(ctrl uint8, _ uint16, r response) uint8 {
	return ctrl&^EPResMask | r.bits()
}

// policyFor returns the toggle policy of endpoint number num.
func policyFor(num uint8) togglePolicy {
	if num == 0 {
		return manualToggle{}
	}
	return autoToggle{}
}
