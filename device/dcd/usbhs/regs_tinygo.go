//go:build tinygo && (ch32v307 || ch32f20x)

package usbhs

import "unsafe"

// usbhsBase is the USBHS device register base address.
const usbhsBase uintptr = 0x40023400

// USBHSD is the on-chip USBHS device register block.
var USBHSD = (*Registers)(unsafe.Pointer(usbhsBase))
