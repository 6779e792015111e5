// Package msp432p401r drives the MSP432P401R clock system (CS): DCO
// calibration and tuning, primary clock source selection and division, and
// the frozen per-clock rate table.
package msp432p401r

import (
	"math"

	"clocktree-go/errcode"
	"clocktree-go/sysctl"
	"clocktree-go/x/bitfield"
	"clocktree-go/x/mathx"
)

// Clock system module IDs for rate lookups.
const (
	AuxiliaryClock sysctl.PeripheralID = iota
	MasterClock
	SubsystemMasterClock
	LowSpeedSubsystemMasterClock
	BackupClock
	LowFrequencyClock
	VeryLowFrequencyClock
	ReferenceClock
	ModuleClock
	SystemClock
)

// clockPeripheralCount is the number of rate-table entries.
const clockPeripheralCount = 10

// Oscillator selects one of the clock system's sources. The constant
// values are the hardware source-select codes.
type Oscillator uint8

const (
	// LowFrequency is the LFXT crystal oscillator, 32.768 kHz.
	LowFrequency Oscillator = 0b000
	// VeryLowFrequency is the ultra low power VLO, typically 9.4 kHz.
	VeryLowFrequency Oscillator = 0b001
	// Reference is the REFO, configurable to 32.768 kHz or 128 kHz.
	Reference Oscillator = 0b010
	// DigitallyControlled is the DCO, tunable between 1 MHz and 48 MHz.
	DigitallyControlled Oscillator = 0b011
	// Module is the low power MODOSC, typically 25 MHz.
	Module Oscillator = 0b100
	// HighFrequency is the HFXT crystal oscillator, here the on-board
	// 48 MHz crystal.
	HighFrequency Oscillator = 0b101
)

// Clock names one of the clock system's rails. The first five are the
// primary clocks with source-select and ready-status hardware.
type Clock uint8

const (
	ClockAuxiliary Clock = iota
	ClockMaster
	ClockSubsystemMaster
	ClockLowSpeedSubsystemMaster
	ClockBackup
	ClockLowFrequency
	ClockVeryLowFrequency
	ClockReference
	ClockModule
	ClockSystem
)

// ClockDivider is a primary clock divider select code; the divisor is
// 2^code, giving the {1,2,4,...,128} set.
type ClockDivider uint8

const (
	DivideBy1 ClockDivider = iota
	DivideBy2
	DivideBy4
	DivideBy8
	DivideBy16
	DivideBy32
	DivideBy64
	DivideBy128
)

// Divisor returns the integer division factor the code encodes.
func (d ClockDivider) Divisor() uint32 { return 1 << d }

// Fixed internal oscillator rates.
const (
	veryLowFrequencyRate sysctl.Hertz = 9_400
	moduleRate           sysctl.Hertz = 25 * sysctl.MHz
	systemRate           sysctl.Hertz = 5 * sysctl.MHz
)

// On-board external oscillator rates.
const (
	lowFrequencyRate  sysctl.Hertz = 32_768
	highFrequencyRate sysctl.Hertz = 48 * sysctl.MHz
)

// referenceRates is indexed by the REFO frequency-select code.
var referenceRates = [2]sysctl.Hertz{32_768, 128 * sysctl.KHz}

// DCO tuning limits and range centers.
const (
	minDCOFrequency sysctl.Hertz = 1 * sysctl.MHz
	maxDCOFrequency sysctl.Hertz = 48 * sysctl.MHz
)

// dcoCenterFrequencies is indexed by the DCORSEL range-select code. The
// centers form a doubling series; range n covers [center/1.5, center*1.33].
var dcoCenterFrequencies = [6]sysctl.Hertz{
	1_500 * sysctl.KHz,
	3 * sysctl.MHz,
	6 * sysctl.MHz,
	12 * sysctl.MHz,
	24 * sysctl.MHz,
	48 * sysctl.MHz,
}

// ClockConfiguration is the desired target state for the whole clock
// system, supplied once and not mutated during Initialize.
type ClockConfiguration struct {
	// Auxiliary clock (ACLK). Only LowFrequency, VeryLowFrequency, or
	// Reference may drive it.
	Auxiliary struct {
		Source  Oscillator
		Divider ClockDivider
	}

	// Master clock (MCLK), the CPU clock.
	Master struct {
		Source  Oscillator
		Divider ClockDivider
	}

	// Subsystem master clocks. The source drives both HSMCLK and SMCLK;
	// each has its own divider.
	SubsystemMaster struct {
		Source          Oscillator
		Divider         ClockDivider
		LowSpeedDivider ClockDivider
	}

	// Backup clock (BCLK). Only LowFrequency or Reference may drive it.
	Backup struct {
		Source Oscillator
	}

	// Reference oscillator output select: 0 for 32.768 kHz, 1 for 128 kHz.
	Reference struct {
		FrequencySelect uint8
	}

	// Digitally controlled oscillator target. Enabled should stay true
	// unless every rail above is moved off the DCO.
	DCO struct {
		Enabled   bool
		Frequency sysctl.Hertz
	}
}

// DefaultClockConfiguration mirrors the reset state of the clock system:
// everything on the DCO at 3 MHz, auxiliary and backup on the REFO.
func DefaultClockConfiguration() ClockConfiguration {
	var cfg ClockConfiguration
	cfg.Auxiliary.Source = Reference
	cfg.Master.Source = DigitallyControlled
	cfg.SubsystemMaster.Source = DigitallyControlled
	cfg.Backup.Source = Reference
	cfg.DCO.Enabled = true
	cfg.DCO.Frequency = 3 * sysctl.MHz
	return cfg
}

// SystemController implements sysctl.Controller for the MSP432P401R.
type SystemController struct {
	regs   *CSRegs
	cal    Calibration
	config ClockConfiguration
	rates  [clockPeripheralCount]sysctl.Hertz
}

var _ sysctl.Controller = (*SystemController)(nil)

// NewSystemController builds a controller over the given CS register block
// and factory calibration constants. On hardware pass
// RegistersAt(CSBase) and CalibrationAt(TLVBase).
func NewSystemController(regs *CSRegs, cal Calibration, config ClockConfiguration) *SystemController {
	return &SystemController{regs: regs, cal: cal, config: config}
}

// Initialize configures the DCO and reference clocks, selects the source
// and divider for every primary clock, and freezes the rate table. It is a
// one-shot boot-time pipeline; the first error aborts it with no rollback.
func (c *SystemController) Initialize() error {
	// Reject a contradictory configuration before the first register write.
	if err := c.validate(); err != nil {
		return err
	}

	// Step 1: bring up the tunable and reference oscillators.
	dco, err := c.configureDCO()
	if err != nil {
		return err
	}
	refo := c.configureReference()

	// Step 2: source select for each primary clock, in rail order.
	c.setClockSource(ClockAuxiliary, c.config.Auxiliary.Source)
	c.setClockSource(ClockMaster, c.config.Master.Source)
	c.setClockSource(ClockSubsystemMaster, c.config.SubsystemMaster.Source)
	c.setClockSource(ClockBackup, c.config.Backup.Source)

	// Step 3: dividers, each followed by the hardware ready wait.
	c.setClockDivider(ClockAuxiliary, c.config.Auxiliary.Divider)
	c.setClockDivider(ClockMaster, c.config.Master.Divider)
	c.setClockDivider(ClockSubsystemMaster, c.config.SubsystemMaster.Divider)
	c.setClockDivider(ClockLowSpeedSubsystemMaster, c.config.SubsystemMaster.LowSpeedDivider)

	// Step 4: freeze the rate table from the dependency chain.
	aclk := c.oscillatorRate(c.config.Auxiliary.Source, refo, dco)
	mclk := c.oscillatorRate(c.config.Master.Source, refo, dco)
	smclk := c.oscillatorRate(c.config.SubsystemMaster.Source, refo, dco)
	bclk := c.oscillatorRate(c.config.Backup.Source, refo, dco)

	c.rates[AuxiliaryClock] = aclk / sysctl.Hertz(c.config.Auxiliary.Divider.Divisor())
	c.rates[MasterClock] = mclk / sysctl.Hertz(c.config.Master.Divider.Divisor())
	c.rates[SubsystemMasterClock] = smclk / sysctl.Hertz(c.config.SubsystemMaster.Divider.Divisor())
	c.rates[LowSpeedSubsystemMasterClock] = smclk / sysctl.Hertz(c.config.SubsystemMaster.LowSpeedDivider.Divisor())
	c.rates[BackupClock] = bclk
	c.rates[LowFrequencyClock] = lowFrequencyRate
	c.rates[VeryLowFrequencyClock] = veryLowFrequencyRate
	c.rates[ReferenceClock] = refo
	c.rates[ModuleClock] = moduleRate
	c.rates[SystemClock] = systemRate

	return nil
}

// ClockRate returns the frozen rate of a clock system module, or 0 for an
// ID outside the module space.
func (c *SystemController) ClockRate(id sysctl.PeripheralID) sysctl.Hertz {
	if id >= clockPeripheralCount {
		return 0
	}
	return c.rates[id]
}

// The MSP432 clock system has no per-peripheral enable-bit bank; power
// control is not implemented on this platform.

func (c *SystemController) PowerUpPeripheral(sysctl.PeripheralID) error {
	return &errcode.E{C: errcode.Unsupported, Op: "PowerUpPeripheral"}
}

func (c *SystemController) PowerDownPeripheral(sysctl.PeripheralID) error {
	return &errcode.E{C: errcode.Unsupported, Op: "PowerDownPeripheral"}
}

func (c *SystemController) IsPeripheralPoweredUp(sysctl.PeripheralID) (bool, error) {
	return false, &errcode.E{C: errcode.Unsupported, Op: "IsPeripheralPoweredUp"}
}

// validate rejects any configuration the pipeline would otherwise commit
// partial writes for.
func (c *SystemController) validate() error {
	if c.config.DCO.Enabled &&
		!mathx.Between(c.config.DCO.Frequency, minDCOFrequency, maxDCOFrequency) {
		return &errcode.E{
			C: errcode.OutOfRange, Op: "Initialize",
			Msg: "dco target must be between 1 MHz and 48 MHz",
		}
	}
	if c.config.Auxiliary.Source > Reference {
		return &errcode.E{
			C: errcode.InvalidClockSource, Op: "Initialize",
			Msg: "auxiliary clock accepts only LowFrequency, VeryLowFrequency, or Reference",
		}
	}
	if s := c.config.Backup.Source; s != LowFrequency && s != Reference {
		return &errcode.E{
			C: errcode.InvalidClockSource, Op: "Initialize",
			Msg: "backup clock accepts only LowFrequency or Reference",
		}
	}
	if c.config.Master.Source > HighFrequency {
		return &errcode.E{
			C: errcode.InvalidClockSource, Op: "Initialize",
			Msg: "unknown master clock source",
		}
	}
	if c.config.SubsystemMaster.Source > HighFrequency {
		return &errcode.E{
			C: errcode.InvalidClockSource, Op: "Initialize",
			Msg: "unknown subsystem master clock source",
		}
	}
	if c.config.Reference.FrequencySelect > 0b1 {
		return &errcode.E{
			C: errcode.InvalidConfig, Op: "Initialize",
			Msg: "reference frequency select must be 0 or 1",
		}
	}
	return nil
}

// withUnlockedRegisters runs f with the CS registers unlocked and re-locks
// them on every exit path, so a failure mid-configuration can never leave
// the protected registers open.
func (c *SystemController) withUnlockedRegisters(f func()) {
	c.regs.KEY = bitfield.Insert(c.regs.KEY, unlockKey, keyMask)
	defer func() {
		c.regs.KEY = bitfield.Insert(c.regs.KEY, lockKey, keyMask)
	}()
	f()
}

// configureDCO tunes the DCO to the configured target frequency.
//
// The range select partitions 1-48 MHz into six octave buckets; the signed
// tuning code is the linearised inverse of the DCO transfer curve
// (SLAU356 equation 6) evaluated against the factory CONSTK/FCAL pair for
// the selected range.
func (c *SystemController) configureDCO() (sysctl.Hertz, error) {
	target := c.config.DCO.Frequency
	if !c.config.DCO.Enabled {
		return target, nil
	}

	rangeSelect, constant, calibration := c.dcoRange(target)
	tuning := dcoTuningCode(target, dcoCenterFrequencies[rangeSelect], constant, calibration)

	c.withUnlockedRegisters(func() {
		ctl0 := c.regs.CTL0
		ctl0 = bitfield.Insert(ctl0, uint32(int32(tuning)), ctl0TuningSelect)
		ctl0 = bitfield.Insert(ctl0, uint32(rangeSelect), ctl0FrequencySelect)
		ctl0 = bitfield.Set(ctl0, ctl0Enable)
		c.regs.CTL0 = ctl0
	})

	// Open loop: the achieved frequency is reported as the target.
	return target, nil
}

// dcoTuningCode evaluates the linearised inverse of the DCO transfer
// curve. The frequency units cancel, so Hz-scaled inputs match the
// reference manual's kHz-scaled equation exactly.
func dcoTuningCode(target, center sysctl.Hertz, constant float32, calibration uint32) int16 {
	difference := float32(int64(target) - int64(center))
	scale := 1.0 + constant*float32(768-int32(calibration))
	return int16(math.Round(float64((difference * scale) / (float32(target) * constant))))
}

// dcoRange picks the frequency-range bucket and its calibration pair. Only
// the top range (32-48 MHz) has its own factory constants; ranges 0-4
// share one pair.
func (c *SystemController) dcoRange(target sysctl.Hertz) (uint8, float32, uint32) {
	var rangeSelect uint8
	switch {
	case target >= 32*sysctl.MHz:
		rangeSelect = 0b101
	case target >= 16*sysctl.MHz:
		rangeSelect = 0b100
	case target >= 8*sysctl.MHz:
		rangeSelect = 0b011
	case target >= 4*sysctl.MHz:
		rangeSelect = 0b010
	case target >= 2*sysctl.MHz:
		rangeSelect = 0b001
	default:
		// 1-2 MHz, centered on 1.5 MHz.
		rangeSelect = 0b000
	}
	if rangeSelect == 0b101 {
		return rangeSelect, c.cal.DCOConstantHigh, c.cal.DCOCalibrationHigh
	}
	return rangeSelect, c.cal.DCOConstantLow, c.cal.DCOCalibrationLow
}

// configureReference programs the REFO output select and returns the
// resulting reference rate.
func (c *SystemController) configureReference() sysctl.Hertz {
	sel := c.config.Reference.FrequencySelect
	c.regs.CLKEN = bitfield.Insert(c.regs.CLKEN, uint32(sel), clkenReferenceFrequencySelect)
	return referenceRates[sel]
}

// primarySourceMasks is indexed by primary Clock. HSMCLK and SMCLK share
// one source-select field.
var primarySourceMasks = [5]bitfield.Mask{
	ctl1AuxiliarySourceSelect,
	ctl1MasterSourceSelect,
	ctl1SubsystemSourceSelect,
	ctl1SubsystemSourceSelect,
	ctl1BackupSourceSelect,
}

// setClockSource writes a primary clock's source-select field. Pairings
// were validated before the pipeline started; the backup field is a single
// bit, so its REFO code collapses to 1.
func (c *SystemController) setClockSource(clock Clock, source Oscillator) {
	value := uint32(source)
	if clock == ClockBackup && source == Reference {
		value = 0b1
	}
	c.withUnlockedRegisters(func() {
		c.regs.CTL1 = bitfield.Insert(c.regs.CTL1, value, primarySourceMasks[clock])
	})
}

// primaryDividerMasks is indexed by primary Clock (backup has no divider).
var primaryDividerMasks = [4]bitfield.Mask{
	ctl1AuxiliaryDividerSelect,
	ctl1MasterDividerSelect,
	ctl1SubsystemDividerSelect,
	ctl1LowSpeedDividerSelect,
}

// setClockDivider writes a primary clock's divider field and waits for the
// rail to report stable.
func (c *SystemController) setClockDivider(clock Clock, divider ClockDivider) {
	c.withUnlockedRegisters(func() {
		c.regs.CTL1 = bitfield.Insert(c.regs.CTL1, uint32(divider), primaryDividerMasks[clock])
	})
	c.waitForClockReady(clock)
}

// waitForClockReady spins on the rail's STAT ready bit. Elided on host
// builds through sysctl.SpinUntil.
func (c *SystemController) waitForClockReady(clock Clock) {
	ready := bitfield.Bit(statReadyBitBase + uint8(clock))
	sysctl.SpinUntil(func() bool {
		return bitfield.Read(c.regs.STAT, ready)
	})
}

// oscillatorRate resolves a source select to its rate. Sources a rail
// cannot legally select resolve to 0 by policy, mirroring the hardware's
// "no clock" behavior rather than guessing.
func (c *SystemController) oscillatorRate(source Oscillator, refo, dco sysctl.Hertz) sysctl.Hertz {
	switch source {
	case LowFrequency:
		return lowFrequencyRate
	case VeryLowFrequency:
		return veryLowFrequencyRate
	case Reference:
		return refo
	case DigitallyControlled:
		return dco
	case Module:
		return moduleRate
	case HighFrequency:
		return highFrequencyRate
	default:
		return 0
	}
}
