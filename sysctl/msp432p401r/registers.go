package msp432p401r

import (
	"unsafe"

	"clocktree-go/x/bitfield"
)

// CSRegs is the MSP432P401R clock system (CS) register block image.
// Field order matches the hardware layout at CSBase; on target the block is
// obtained with RegistersAt, in tests a zero value stands in for silicon.
type CSRegs struct {
	KEY   uint32
	CTL0  uint32
	CTL1  uint32
	CTL2  uint32
	CTL3  uint32
	_     [7]uint32
	CLKEN uint32
	STAT  uint32
}

// CSBase is the CS block address on the MSP432P401R.
const CSBase uintptr = 0x4001_0400

// RegistersAt maps a CS register block at base. Pass CSBase on hardware;
// tests point it at an ordinary in-memory struct instead.
func RegistersAt(base uintptr) *CSRegs {
	return (*CSRegs)(unsafe.Pointer(base))
}

// Key register (CSKEY). Writing the unlock key opens every other CS
// register for writes; writing zero locks them again.
var keyMask = bitfield.MaskFromRange(0, 15)

const (
	unlockKey uint32 = 0x695A
	lockKey   uint32 = 0x0000
)

// Control 0 register (CSCTL0): DCO tuning and range selection.
var (
	ctl0TuningSelect    = bitfield.MaskFromRange(0, 9)
	ctl0FrequencySelect = bitfield.MaskFromRange(16, 18)
	ctl0Enable          = bitfield.Bit(23)
)

// Control 1 register (CSCTL1): source select and divider per primary clock.
var (
	ctl1MasterSourceSelect     = bitfield.MaskFromRange(0, 2)
	ctl1SubsystemSourceSelect  = bitfield.MaskFromRange(4, 6)
	ctl1AuxiliarySourceSelect  = bitfield.MaskFromRange(8, 10)
	ctl1BackupSourceSelect     = bitfield.Bit(12)
	ctl1MasterDividerSelect    = bitfield.MaskFromRange(16, 18)
	ctl1SubsystemDividerSelect = bitfield.MaskFromRange(20, 22)
	ctl1AuxiliaryDividerSelect = bitfield.MaskFromRange(24, 26)
	ctl1LowSpeedDividerSelect  = bitfield.MaskFromRange(28, 30)
)

// Clock enable register (CSCLKEN).
var clkenReferenceFrequencySelect = bitfield.Bit(15)

// Status register (CSSTAT): one ready bit per primary clock, starting at
// bit 24 in primary-clock order (ACLK, MCLK, HSMCLK, SMCLK, BCLK).
const statReadyBitBase uint8 = 24

// Calibration is the slice of the device descriptor (TLV) block the DCO
// needs: the proportionality constant and frequency calibration value for
// the low ranges (RSEL 0-4) and for the top range (RSEL 5). The block is
// factory-programmed and read-only.
type Calibration struct {
	DCOConstantLow     float32
	DCOCalibrationLow  uint32
	DCOConstantHigh    float32
	DCOCalibrationHigh uint32
}

// TLVBase is the device descriptor address on the MSP432P401R.
const TLVBase uintptr = 0x0020_1000

// tlvRegs mirrors the part of the TLV layout holding the DCO constants.
type tlvRegs struct {
	_               [14]uint32
	dcoConstKRsel04 float32
	dcoFCalRsel04   uint32
	_               [2]uint32
	dcoConstKRsel5  float32
	dcoFCalRsel5    uint32
}

// CalibrationAt reads the factory DCO constants from the TLV block at base.
func CalibrationAt(base uintptr) Calibration {
	tlv := (*tlvRegs)(unsafe.Pointer(base))
	return Calibration{
		DCOConstantLow:     tlv.dcoConstKRsel04,
		DCOCalibrationLow:  tlv.dcoFCalRsel04,
		DCOConstantHigh:    tlv.dcoConstKRsel5,
		DCOCalibrationHigh: tlv.dcoFCalRsel5,
	}
}
