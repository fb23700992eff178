//go:build tinygo

package volatile

import "runtime/volatile"

type (
	Register8  = volatile.Register8
	Register16 = volatile.Register16
	Register32 = volatile.Register32

	// FlagRegister8 is written with 1s to acknowledge pending flags; the
	// hardware performs the clear.
	FlagRegister8 = volatile.Register8
)
