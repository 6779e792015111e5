package stm32f10x

import (
	"unsafe"

	"clocktree-go/x/bitfield"
)

// RCCRegs is the STM32F10x reset and clock control register block image.
type RCCRegs struct {
	CR       uint32
	CFGR     uint32
	CIR      uint32
	APB2RSTR uint32
	APB1RSTR uint32
	AHBENR   uint32
	APB2ENR  uint32
	APB1ENR  uint32
	BDCR     uint32
	CSR      uint32
}

// FlashRegs is the flash interface register block image; only ACR is used
// here (wait-state control).
type FlashRegs struct {
	ACR uint32
}

// Block addresses on the STM32F10x.
const (
	RCCBase   uintptr = 0x4002_1000
	FlashBase uintptr = 0x4002_2000
)

// RCCAt maps the RCC block at base; tests point it at an in-memory struct.
func RCCAt(base uintptr) *RCCRegs {
	return (*RCCRegs)(unsafe.Pointer(base))
}

// FlashAt maps the flash interface block at base.
func FlashAt(base uintptr) *FlashRegs {
	return (*FlashRegs)(unsafe.Pointer(base))
}

// Clock configuration register (CFGR) fields.
var (
	cfgrUSBPrescaler      = bitfield.Bit(22)
	cfgrPLLMultiplier     = bitfield.MaskFromRange(18, 21)
	cfgrHSEPreDivider     = bitfield.Bit(17)
	cfgrPLLSource         = bitfield.Bit(16)
	cfgrADCDivider        = bitfield.MaskFromRange(14, 15)
	cfgrAPB2Divider       = bitfield.MaskFromRange(11, 13)
	cfgrAPB1Divider       = bitfield.MaskFromRange(8, 10)
	cfgrAHBDivider        = bitfield.MaskFromRange(4, 7)
	cfgrSystemClockStatus = bitfield.MaskFromRange(2, 3)
	cfgrSystemClockSelect = bitfield.MaskFromRange(0, 1)
)

// Clock control register (CR) fields.
var (
	crPLLReady  = bitfield.Bit(25)
	crPLLEnable = bitfield.Bit(24)
	crHSEReady  = bitfield.Bit(17)
	crHSEEnable = bitfield.Bit(16)
)

// Backup domain control register (BDCR) fields.
var (
	bdcrBackupDomainReset = bitfield.Bit(16)
	bdcrRTCEnable         = bitfield.Bit(15)
	bdcrRTCSourceSelect   = bitfield.MaskFromRange(8, 9)
	bdcrLSEReady          = bitfield.Bit(1)
	bdcrLSEEnable         = bitfield.Bit(0)
)

// Flash access control register (ACR) latency field.
var acrLatency = bitfield.MaskFromRange(0, 2)
