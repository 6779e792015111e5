// Package stm32f10x drives the STM32F10x reset and clock control block
// (RCC): oscillator bring-up, PLL configuration, bus dividers, flash
// wait-state programming, the system clock mux, and the per-peripheral
// enable-bit banks.
package stm32f10x

import (
	"clocktree-go/errcode"
	"clocktree-go/sysctl"
	"clocktree-go/x/bitfield"
)

// Fixed internal oscillator rates.
const (
	highSpeedInternalRate sysctl.Hertz = 8 * sysctl.MHz
	lowSpeedInternalRate  sysctl.Hertz = 20 * sysctl.KHz
)

// maxSystemClockRate is the top of the flash wait-state table. A target
// above it needs an explicit extra wait-state bucket and is rejected
// rather than silently clamped.
const maxSystemClockRate sysctl.Hertz = 72 * sysctl.MHz

// SystemClockSelect chooses the system clock mux input.
type SystemClockSelect uint8

const (
	SystemClockHighSpeedInternal SystemClockSelect = 0b00
	SystemClockHighSpeedExternal SystemClockSelect = 0b01
	SystemClockPLL               SystemClockSelect = 0b10
)

// PLLSource chooses the PLL reference. Bit 0 is the PLLSRC field value;
// bit 1 requests the HSE /2 pre-divider.
type PLLSource uint8

const (
	PLLSourceHighSpeedInternal           PLLSource = 0b0
	PLLSourceHighSpeedExternal           PLLSource = 0b1
	PLLSourceHighSpeedExternalDividedBy2 PLLSource = 0b11
)

// PLLMultiplier is the PLLMUL field code; the multiplication factor is
// code + 2, covering x2 through x16.
type PLLMultiplier uint8

const (
	MultiplyBy2 PLLMultiplier = iota
	MultiplyBy3
	MultiplyBy4
	MultiplyBy5
	MultiplyBy6
	MultiplyBy7
	MultiplyBy8
	MultiplyBy9
	MultiplyBy10
	MultiplyBy11
	MultiplyBy12
	MultiplyBy13
	MultiplyBy14
	MultiplyBy15
	MultiplyBy16
)

// Factor returns the multiplication factor the code encodes.
func (m PLLMultiplier) Factor() uint32 { return uint32(m) + 2 }

// RTCSource chooses the RTC clock.
type RTCSource uint8

const (
	RTCSourceNone                          RTCSource = 0b00
	RTCSourceLowSpeedInternal              RTCSource = 0b01
	RTCSourceLowSpeedExternal              RTCSource = 0b10
	RTCSourceHighSpeedExternalDividedBy128 RTCSource = 0b11
)

// USBDivider scales the PLL output down to the 48 MHz USB clock.
type USBDivider uint8

const (
	// USBDivideBy1Point5 yields PLL x 2/3.
	USBDivideBy1Point5 USBDivider = 0
	USBDivideBy1       USBDivider = 1
)

// AHBDivider is the HPRE field code.
type AHBDivider uint8

const (
	AHBDivideBy1   AHBDivider = 0
	AHBDivideBy2   AHBDivider = 0b1000
	AHBDivideBy4   AHBDivider = 0b1001
	AHBDivideBy8   AHBDivider = 0b1010
	AHBDivideBy16  AHBDivider = 0b1011
	AHBDivideBy64  AHBDivider = 0b1100
	AHBDivideBy128 AHBDivider = 0b1101
	AHBDivideBy256 AHBDivider = 0b1110
	AHBDivideBy512 AHBDivider = 0b1111
)

// Divisor returns the division factor the code encodes.
func (d AHBDivider) Divisor() uint32 {
	switch d {
	case AHBDivideBy2:
		return 2
	case AHBDivideBy4:
		return 4
	case AHBDivideBy8:
		return 8
	case AHBDivideBy16:
		return 16
	case AHBDivideBy64:
		return 64
	case AHBDivideBy128:
		return 128
	case AHBDivideBy256:
		return 256
	case AHBDivideBy512:
		return 512
	default:
		return 1
	}
}

// APBDivider is the PPRE1/PPRE2 field code.
type APBDivider uint8

const (
	APBDivideBy1  APBDivider = 0
	APBDivideBy2  APBDivider = 0b100
	APBDivideBy4  APBDivider = 0b101
	APBDivideBy8  APBDivider = 0b110
	APBDivideBy16 APBDivider = 0b111
)

// Divisor returns the division factor the code encodes.
func (d APBDivider) Divisor() uint32 {
	switch d {
	case APBDivideBy2:
		return 2
	case APBDivideBy4:
		return 4
	case APBDivideBy8:
		return 8
	case APBDivideBy16:
		return 16
	default:
		return 1
	}
}

// ADCDivider is the ADCPRE field code.
type ADCDivider uint8

const (
	ADCDivideBy2 ADCDivider = 0b00
	ADCDivideBy4 ADCDivider = 0b01
	ADCDivideBy6 ADCDivider = 0b10
	ADCDivideBy8 ADCDivider = 0b11
)

// Divisor returns the division factor the code encodes.
func (d ADCDivider) Divisor() uint32 { return uint32(d)*2 + 2 }

// ClockConfiguration is the desired target state of the RCC clock tree,
// shaped after the reference manual's tree: oscillators feed the PLL and
// the system mux, which feeds the AHB/APB divider cascade.
type ClockConfiguration struct {
	// Rate of the external crystal/signal on OSC_IN; 0 leaves HSE off.
	HighSpeedExternal sysctl.Hertz

	// Rate of the external 32 kHz-class crystal; 0 leaves LSE off.
	LowSpeedExternal sysctl.Hertz

	PLL struct {
		Enable   bool
		Source   PLLSource
		Multiply PLLMultiplier
		USB      struct {
			Divider USBDivider
		}
	}

	// SystemClock selects the mux input the CPU tree runs from. The
	// selected source must be enabled and, through the wait-state table,
	// no faster than 72 MHz.
	SystemClock SystemClockSelect

	RTC struct {
		Enable bool
		Source RTCSource
	}

	AHB struct {
		Divider AHBDivider
		APB1    struct {
			// APB1 is limited to 36 MHz.
			Divider APBDivider
		}
		APB2 struct {
			Divider APBDivider
			ADC     struct {
				// ADC clock is limited to 14 MHz.
				Divider ADCDivider
			}
		}
	}
}

// DefaultClockConfiguration mirrors the reset state: HSI system clock,
// everything divide-by-1, RTC parked on the LSI.
func DefaultClockConfiguration() ClockConfiguration {
	var cfg ClockConfiguration
	cfg.RTC.Source = RTCSourceLowSpeedInternal
	return cfg
}

// SystemController implements sysctl.Controller for the STM32F10x.
type SystemController struct {
	rcc    *RCCRegs
	flash  *FlashRegs
	config ClockConfiguration

	rtcRate       sysctl.Hertz
	usbRate       sysctl.Hertz
	pllRate       sysctl.Hertz
	ahbRate       sysctl.Hertz
	apb1Rate      sysctl.Hertz
	apb2Rate      sysctl.Hertz
	timerAPB1Rate sysctl.Hertz
	timerAPB2Rate sysctl.Hertz
	adcRate       sysctl.Hertz
}

var _ sysctl.Controller = (*SystemController)(nil)

// NewSystemController builds a controller over the given RCC and flash
// interface blocks. On hardware pass RCCAt(RCCBase) and FlashAt(FlashBase).
func NewSystemController(rcc *RCCRegs, flash *FlashRegs, config ClockConfiguration) *SystemController {
	return &SystemController{rcc: rcc, flash: flash, config: config}
}

// Initialize walks the RCC bring-up pipeline once: park on HSI, bring up
// external oscillators, configure and lock the PLL, program the divider
// cascade and flash wait states, switch the system mux, then freeze every
// derived rate. The first error aborts with no rollback.
func (c *SystemController) Initialize() error {
	// Reject a contradictory configuration before the first register write.
	if err := c.validate(); err != nil {
		return err
	}

	// Step 1: run from the internal oscillator while reconfiguring, and
	// reset the backup domain so the RTC source can be rewritten.
	c.rcc.CFGR = bitfield.Insert(c.rcc.CFGR,
		uint32(SystemClockHighSpeedInternal), cfgrSystemClockSelect)
	c.rcc.BDCR = bitfield.Set(c.rcc.BDCR, bdcrBackupDomainReset)
	c.rcc.BDCR = bitfield.Clear(c.rcc.BDCR, bdcrBackupDomainReset)

	// Step 2: PLL and HSE off before touching their inputs.
	c.rcc.CR = bitfield.Clear(c.rcc.CR, crPLLEnable)
	c.rcc.CR = bitfield.Clear(c.rcc.CR, crHSEEnable)

	// Step 3: bring up the requested external oscillators.
	if c.config.HighSpeedExternal != 0 {
		c.rcc.CR = bitfield.Set(c.rcc.CR, crHSEEnable)
		sysctl.SpinUntil(func() bool {
			return bitfield.Read(c.rcc.CR, crHSEReady)
		})
	}
	if c.config.LowSpeedExternal != 0 {
		c.rcc.BDCR = bitfield.Set(c.rcc.BDCR, bdcrLSEEnable)
		sysctl.SpinUntil(func() bool {
			return bitfield.Read(c.rcc.BDCR, bdcrLSEReady)
		})
	}

	// Step 4: PLL input path.
	if c.config.PLL.Source == PLLSourceHighSpeedExternalDividedBy2 {
		c.rcc.CFGR = bitfield.Set(c.rcc.CFGR, cfgrHSEPreDivider)
	} else {
		c.rcc.CFGR = bitfield.Clear(c.rcc.CFGR, cfgrHSEPreDivider)
	}
	c.rcc.CFGR = bitfield.Insert(c.rcc.CFGR,
		uint32(c.config.PLL.Source)&0b1, cfgrPLLSource)

	// Step 5: multiply and lock the PLL.
	if c.config.PLL.Enable {
		c.rcc.CFGR = bitfield.Insert(c.rcc.CFGR,
			uint32(c.config.PLL.Multiply), cfgrPLLMultiplier)
		c.rcc.CR = bitfield.Set(c.rcc.CR, crPLLEnable)
		sysctl.SpinUntil(func() bool {
			return bitfield.Read(c.rcc.CR, crPLLReady)
		})
		c.pllRate = c.pllInputRate() * sysctl.Hertz(c.config.PLL.Multiply.Factor())
	}

	// Step 6: divider cascade.
	c.rcc.CFGR = bitfield.Insert(c.rcc.CFGR,
		uint32(c.config.PLL.USB.Divider), cfgrUSBPrescaler)
	c.rcc.CFGR = bitfield.Insert(c.rcc.CFGR,
		uint32(c.config.AHB.Divider), cfgrAHBDivider)
	c.rcc.CFGR = bitfield.Insert(c.rcc.CFGR,
		uint32(c.config.AHB.APB1.Divider), cfgrAPB1Divider)
	c.rcc.CFGR = bitfield.Insert(c.rcc.CFGR,
		uint32(c.config.AHB.APB2.Divider), cfgrAPB2Divider)
	c.rcc.CFGR = bitfield.Insert(c.rcc.CFGR,
		uint32(c.config.AHB.APB2.ADC.Divider), cfgrADCDivider)

	// Step 7: wait states for the target rate, then the mux switch.
	// Switching up without enough wait states corrupts instruction fetch,
	// so ACR is programmed before CFGR.SW.
	systemClock := c.systemClockTarget()
	c.flash.ACR = bitfield.Insert(c.flash.ACR, flashWaitStates(systemClock), acrLatency)

	c.rcc.CFGR = bitfield.Insert(c.rcc.CFGR,
		uint32(c.config.SystemClock), cfgrSystemClockSelect)
	sysctl.SpinUntil(func() bool {
		return bitfield.Extract(c.rcc.CFGR, cfgrSystemClockStatus) ==
			uint32(c.config.SystemClock)
	})

	// RTC source and enable live in the backup domain.
	c.rcc.BDCR = bitfield.Insert(c.rcc.BDCR,
		uint32(c.config.RTC.Source), bdcrRTCSourceSelect)
	if c.config.RTC.Enable {
		c.rcc.BDCR = bitfield.Set(c.rcc.BDCR, bdcrRTCEnable)
	} else {
		c.rcc.BDCR = bitfield.Clear(c.rcc.BDCR, bdcrRTCEnable)
	}

	// Step 8: freeze the derived rates.
	c.ahbRate = systemClock / sysctl.Hertz(c.config.AHB.Divider.Divisor())
	c.apb1Rate = c.ahbRate / sysctl.Hertz(c.config.AHB.APB1.Divider.Divisor())
	c.apb2Rate = c.ahbRate / sysctl.Hertz(c.config.AHB.APB2.Divider.Divisor())
	c.adcRate = c.apb2Rate / sysctl.Hertz(c.config.AHB.APB2.ADC.Divider.Divisor())

	switch c.config.RTC.Source {
	case RTCSourceLowSpeedInternal:
		c.rtcRate = lowSpeedInternalRate
	case RTCSourceLowSpeedExternal:
		c.rtcRate = c.config.LowSpeedExternal
	case RTCSourceHighSpeedExternalDividedBy128:
		c.rtcRate = c.config.HighSpeedExternal / 128
	default:
		c.rtcRate = 0
	}

	switch c.config.PLL.USB.Divider {
	case USBDivideBy1:
		c.usbRate = c.pllRate
	default:
		c.usbRate = (c.pllRate * 2) / 3
	}

	// APB timer banks run at twice their bus whenever that bus is divided
	// down; a hardware quirk of the timer clock trees, preserved exactly.
	c.timerAPB1Rate = c.apb1Rate
	if c.config.AHB.APB1.Divider != APBDivideBy1 {
		c.timerAPB1Rate = c.apb1Rate * 2
	}
	c.timerAPB2Rate = c.apb2Rate
	if c.config.AHB.APB2.Divider != APBDivideBy1 {
		c.timerAPB2Rate = c.apb2Rate * 2
	}

	return nil
}

// ClockRate resolves a peripheral's frozen rate: individually clocked
// peripherals first, then the bus-group ranges, then the zero sentinel.
func (c *SystemController) ClockRate(id sysctl.PeripheralID) sysctl.Hertz {
	switch id {
	case I2S:
		return c.pllRate
	case USB:
		return c.usbRate
	case FLITF:
		// The flash interface always runs from the HSI.
		return highSpeedInternalRate

	// The system timer here runs undivided, so it matches the CPU rate.
	case CPU, SystemTimer:
		return c.ahbRate

	case Timer2, Timer3, Timer4, Timer5, Timer6, Timer7,
		Timer12, Timer13, Timer14:
		return c.timerAPB1Rate

	case Timer1, Timer8, Timer9, Timer10, Timer11:
		return c.timerAPB2Rate

	case ADC1, ADC2, ADC3:
		return c.adcRate

	case RTC:
		return c.rtcRate
	}

	switch {
	case id < GroupAPB1:
		return c.ahbRate
	case id < GroupAPB2:
		return c.apb1Rate
	case id < GroupBeyond:
		return c.apb2Rate
	default:
		return 0
	}
}

// enableRegister returns the enable bank covering id, or nil for IDs
// beyond any bus.
func (c *SystemController) enableRegister(id sysctl.PeripheralID) *uint32 {
	switch id / registerWidth {
	case 0:
		return &c.rcc.AHBENR
	case 1:
		return &c.rcc.APB1ENR
	case 2:
		return &c.rcc.APB2ENR
	default:
		return nil
	}
}

func enableBit(id sysctl.PeripheralID) bitfield.Mask {
	return bitfield.Bit(uint8(id % registerWidth))
}

// PowerUpPeripheral sets the peripheral's clock enable bit.
func (c *SystemController) PowerUpPeripheral(id sysctl.PeripheralID) error {
	reg := c.enableRegister(id)
	if reg == nil {
		return &errcode.E{C: errcode.Unsupported, Op: "PowerUpPeripheral",
			Msg: "no enable register for this peripheral"}
	}
	*reg = bitfield.Set(*reg, enableBit(id))
	return nil
}

// PowerDownPeripheral clears the peripheral's clock enable bit.
func (c *SystemController) PowerDownPeripheral(id sysctl.PeripheralID) error {
	reg := c.enableRegister(id)
	if reg == nil {
		return &errcode.E{C: errcode.Unsupported, Op: "PowerDownPeripheral",
			Msg: "no enable register for this peripheral"}
	}
	*reg = bitfield.Clear(*reg, enableBit(id))
	return nil
}

// IsPeripheralPoweredUp reads the peripheral's clock enable bit.
func (c *SystemController) IsPeripheralPoweredUp(id sysctl.PeripheralID) (bool, error) {
	reg := c.enableRegister(id)
	if reg == nil {
		return false, &errcode.E{C: errcode.Unsupported, Op: "IsPeripheralPoweredUp",
			Msg: "no enable register for this peripheral"}
	}
	return bitfield.Read(*reg, enableBit(id)), nil
}

// validate rejects any configuration the pipeline would otherwise commit
// partial writes for: disabled sources selected downstream, and targets
// past the wait-state table.
func (c *SystemController) validate() error {
	cfg := &c.config

	if cfg.SystemClock > SystemClockPLL {
		return &errcode.E{C: errcode.InvalidConfig, Op: "Initialize",
			Msg: "unknown system clock select"}
	}
	if cfg.SystemClock == SystemClockPLL && !cfg.PLL.Enable {
		return &errcode.E{C: errcode.InvalidConfig, Op: "Initialize",
			Msg: "system clock selects the pll but the pll is not enabled"}
	}
	if cfg.SystemClock == SystemClockHighSpeedExternal && cfg.HighSpeedExternal == 0 {
		return &errcode.E{C: errcode.InvalidClockSource, Op: "Initialize",
			Msg: "system clock selects hse but no hse rate is configured"}
	}
	if cfg.PLL.Enable && cfg.PLL.Source != PLLSourceHighSpeedInternal &&
		cfg.HighSpeedExternal == 0 {
		return &errcode.E{C: errcode.InvalidClockSource, Op: "Initialize",
			Msg: "pll selects hse but no hse rate is configured"}
	}
	switch cfg.RTC.Source {
	case RTCSourceLowSpeedExternal:
		if cfg.LowSpeedExternal == 0 {
			return &errcode.E{C: errcode.InvalidClockSource, Op: "Initialize",
				Msg: "rtc selects lse but no lse rate is configured"}
		}
	case RTCSourceHighSpeedExternalDividedBy128:
		if cfg.HighSpeedExternal == 0 {
			return &errcode.E{C: errcode.InvalidClockSource, Op: "Initialize",
				Msg: "rtc selects hse/128 but no hse rate is configured"}
		}
	}
	if target := c.systemClockTarget(); target > maxSystemClockRate {
		return &errcode.E{C: errcode.OutOfRange, Op: "Initialize",
			Msg: "system clock target exceeds the 72 MHz wait-state table"}
	}
	return nil
}

// pllInputRate is the PLL reference after the input mux and optional /2.
func (c *SystemController) pllInputRate() sysctl.Hertz {
	switch c.config.PLL.Source {
	case PLLSourceHighSpeedExternal:
		return c.config.HighSpeedExternal
	case PLLSourceHighSpeedExternalDividedBy2:
		return c.config.HighSpeedExternal / 2
	default:
		// The HSI path is hard-wired through a /2.
		return highSpeedInternalRate / 2
	}
}

// systemClockTarget is the rate the mux will land on, computable before
// any register is touched.
func (c *SystemController) systemClockTarget() sysctl.Hertz {
	switch c.config.SystemClock {
	case SystemClockHighSpeedExternal:
		return c.config.HighSpeedExternal
	case SystemClockPLL:
		return c.pllInputRate() * sysctl.Hertz(c.config.PLL.Multiply.Factor())
	default:
		return highSpeedInternalRate
	}
}

// flashWaitStates maps a system rate to the ACR latency bucket. Rates
// above 72 MHz have no bucket and are screened out during validation.
func flashWaitStates(f sysctl.Hertz) uint32 {
	switch {
	case f <= 24*sysctl.MHz:
		return 0b000
	case f <= 48*sysctl.MHz:
		return 0b001
	default:
		return 0b010
	}
}
