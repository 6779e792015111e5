// cmd/clockdemo/main.go
//
// Host-side walkthrough of both clock engines against in-memory register
// blocks, plus a scripted ZS-040 exchange over the host serial fake. Run
// with plain `go run ./cmd/clockdemo`.
package main

import (
	"strings"

	"clocktree-go/devices/zs040"
	"clocktree-go/internal/platform"
	"clocktree-go/sysctl"
	"clocktree-go/sysctl/msp432p401r"
	"clocktree-go/sysctl/stm32f10x"
	"clocktree-go/x/conv"
	"clocktree-go/x/fmtx"
	"clocktree-go/x/timex"
)

func main() {
	demoSTM32()
	demoMSP432()
	demoZS040()
}

// ---------- STM32F10x: 8 MHz crystal to 72 MHz over the PLL ----------

func demoSTM32() {
	fmtx.Printf("[stm32] bring-up: HSE 8 MHz, PLL x9, APB1 /2\n")

	var (
		rcc   stm32f10x.RCCRegs
		flash stm32f10x.FlashRegs
	)
	cfg := stm32f10x.DefaultClockConfiguration()
	cfg.HighSpeedExternal = 8 * sysctl.MHz
	cfg.PLL.Enable = true
	cfg.PLL.Source = stm32f10x.PLLSourceHighSpeedExternal
	cfg.PLL.Multiply = stm32f10x.MultiplyBy9
	cfg.PLL.USB.Divider = stm32f10x.USBDivideBy1Point5
	cfg.SystemClock = stm32f10x.SystemClockPLL
	cfg.AHB.APB1.Divider = stm32f10x.APBDivideBy2

	sc := stm32f10x.NewSystemController(&rcc, &flash, cfg)
	if err := sc.Initialize(); err != nil {
		fmtx.Printf("[stm32] FAIL: %v\n", err)
		return
	}

	for _, p := range []struct {
		name string
		id   sysctl.PeripheralID
	}{
		{"cpu", stm32f10x.CPU},
		{"systick", stm32f10x.SystemTimer},
		{"usart1", stm32f10x.USART1},
		{"spi2", stm32f10x.SPI2},
		{"timer2", stm32f10x.Timer2},
		{"adc1", stm32f10x.ADC1},
		{"usb", stm32f10x.USB},
		{"rtc", stm32f10x.RTC},
	} {
		printRate(p.name, sc.ClockRate(p.id))
	}

	var cfgrHex, acrHex [8]byte
	fmtx.Printf("[stm32] CFGR=%s ACR=%s\n",
		string(conv.U32Hex(cfgrHex[:], rcc.CFGR)),
		string(conv.U32Hex(acrHex[:], flash.ACR)))

	if err := sc.PowerUpPeripheral(stm32f10x.USART1); err != nil {
		fmtx.Printf("[stm32] power up usart1: %v\n", err)
		return
	}
	on, _ := sc.IsPeripheralPoweredUp(stm32f10x.USART1)
	fmtx.Printf("[stm32] usart1 gated on: %t\n", on)
}

// ---------- MSP432P401R: DCO at 48 MHz ----------

// Nominal calibration constants, stand-ins for the device TLV block.
var hostCalibration = msp432p401r.Calibration{
	DCOConstantLow:     0.02,
	DCOCalibrationLow:  600,
	DCOConstantHigh:    0.018,
	DCOCalibrationHigh: 580,
}

func demoMSP432() {
	fmtx.Printf("[msp432] bring-up: DCO 48 MHz, SMCLK /2\n")

	var regs msp432p401r.CSRegs
	cfg := msp432p401r.DefaultClockConfiguration()
	cfg.DCO.Frequency = 48 * sysctl.MHz
	cfg.SubsystemMaster.LowSpeedDivider = msp432p401r.DivideBy2

	sc := msp432p401r.NewSystemController(&regs, hostCalibration, cfg)
	if err := sc.Initialize(); err != nil {
		fmtx.Printf("[msp432] FAIL: %v\n", err)
		return
	}

	for _, p := range []struct {
		name string
		id   sysctl.PeripheralID
	}{
		{"mclk", msp432p401r.MasterClock},
		{"smclk", msp432p401r.LowSpeedSubsystemMasterClock},
		{"aclk", msp432p401r.AuxiliaryClock},
		{"bclk", msp432p401r.BackupClock},
	} {
		printRate(p.name, sc.ClockRate(p.id))
	}

	tick := sc.ClockRate(msp432p401r.MasterClock)
	fmtx.Printf("[msp432] systick period at mclk: %d ns\n",
		timex.PeriodFromHz(uint32(tick)))
}

// ---------- ZS-040 over the host serial fake ----------

func demoZS040() {
	port := &platform.HostUART{
		OnWrite: func(w []byte) []byte {
			cmd := strings.TrimSuffix(string(w), "\r\n")
			switch cmd {
			case "AT":
				return []byte("OK\r\n")
			case "AT+VERSION":
				return []byte("+VERSION=JDY-31-V1.2\r\nOK\r\n")
			case "AT+BAUD":
				return []byte("+BAUD=4\r\nOK\r\n")
			default:
				return []byte("ERROR\r\n")
			}
		},
	}

	d := zs040.New(port)
	if err := d.Initialize(); err != nil {
		fmtx.Printf("[zs040] FAIL: %v\n", err)
		return
	}
	version, err := d.Version()
	if err != nil {
		fmtx.Printf("[zs040] version: %v\n", err)
		return
	}
	baud, err := d.SerialRate()
	if err != nil {
		fmtx.Printf("[zs040] baud: %v\n", err)
		return
	}
	fmtx.Printf("[zs040] firmware %s at %d baud\n", version, baud)
}

func printRate(name string, rate sysctl.Hertz) {
	fmtx.Printf("[rate] %-8s %d Hz\n", name, uint32(rate))
}
