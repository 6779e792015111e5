package msp432p401r

import (
	"testing"

	"clocktree-go/errcode"
	"clocktree-go/sysctl"
	"clocktree-go/x/bitfield"
)

// testCalibration is a plausible factory TLV image: the exact values do
// not matter to the properties under test, only that K > 0.
var testCalibration = Calibration{
	DCOConstantLow:     0.02,
	DCOCalibrationLow:  600,
	DCOConstantHigh:    0.018,
	DCOCalibrationHigh: 580,
}

func newTestController(cfg ClockConfiguration) (*SystemController, *CSRegs) {
	regs := &CSRegs{}
	return NewSystemController(regs, testCalibration, cfg), regs
}

func TestDCORangeSelectionMonotonic(t *testing.T) {
	c, _ := newTestController(DefaultClockConfiguration())

	var prev uint8
	for target := minDCOFrequency; target <= maxDCOFrequency; target += 250 * sysctl.KHz {
		sel, _, _ := c.dcoRange(target)
		if sel < prev {
			t.Fatalf("range select decreased at %d Hz: %d -> %d", target, prev, sel)
		}
		prev = sel
	}
	if prev != 0b101 {
		t.Fatalf("sweep never reached the top range, ended at %#b", prev)
	}
}

func TestDCORangeBoundaries(t *testing.T) {
	c, _ := newTestController(DefaultClockConfiguration())

	cases := []struct {
		target sysctl.Hertz
		want   uint8
	}{
		{1 * sysctl.MHz, 0b000},
		{1_999 * sysctl.KHz, 0b000},
		{2 * sysctl.MHz, 0b001},
		{4 * sysctl.MHz, 0b010},
		{8 * sysctl.MHz, 0b011},
		{16 * sysctl.MHz, 0b100},
		{31_999 * sysctl.KHz, 0b100},
		{32 * sysctl.MHz, 0b101},
		{48 * sysctl.MHz, 0b101},
	}
	for _, tc := range cases {
		if sel, _, _ := c.dcoRange(tc.target); sel != tc.want {
			t.Fatalf("dcoRange(%d) = %#b, want %#b", tc.target, sel, tc.want)
		}
	}

	// Only the top range uses the RSEL5 calibration pair.
	if _, k, cal := c.dcoRange(24 * sysctl.MHz); k != testCalibration.DCOConstantLow || cal != testCalibration.DCOCalibrationLow {
		t.Fatalf("24 MHz picked the RSEL5 constants")
	}
	if _, k, cal := c.dcoRange(48 * sysctl.MHz); k != testCalibration.DCOConstantHigh || cal != testCalibration.DCOCalibrationHigh {
		t.Fatalf("48 MHz did not pick the RSEL5 constants")
	}
}

func TestDCOTuningZeroAtCenters(t *testing.T) {
	c, _ := newTestController(DefaultClockConfiguration())

	for _, center := range dcoCenterFrequencies {
		sel, k, cal := c.dcoRange(center)
		if dcoCenterFrequencies[sel] != center {
			t.Fatalf("center %d Hz mapped to range %d (center %d Hz)",
				center, sel, dcoCenterFrequencies[sel])
		}
		if code := dcoTuningCode(center, center, k, cal); code != 0 {
			t.Fatalf("tuning at center %d Hz = %d, want 0", center, code)
		}
	}
}

func TestDCOTuningCode(t *testing.T) {
	// Hand-evaluated against the characterisation equation with
	// K = 0.02, FCAL = 600: scale = 1 + 0.02*(768-600) = 4.36.
	k, cal := testCalibration.DCOConstantLow, testCalibration.DCOCalibrationLow

	// (3.5e6-3e6)*4.36 / (3.5e6*0.02) = 31.14... -> 31
	if got := dcoTuningCode(3_500*sysctl.KHz, 3*sysctl.MHz, k, cal); got != 31 {
		t.Fatalf("tuning(3.5 MHz) = %d, want 31", got)
	}
	// (2.5e6-3e6)*4.36 / (2.5e6*0.02) = -43.6 -> -44
	if got := dcoTuningCode(2_500*sysctl.KHz, 3*sysctl.MHz, k, cal); got != -44 {
		t.Fatalf("tuning(2.5 MHz) = %d, want -44", got)
	}
}

func TestInitializeProgramsDCO(t *testing.T) {
	cfg := DefaultClockConfiguration()
	cfg.DCO.Frequency = 12 * sysctl.MHz
	c, regs := newTestController(cfg)

	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if got := bitfield.Extract(regs.CTL0, ctl0FrequencySelect); got != 0b011 {
		t.Fatalf("DCORSEL = %#b, want 0b011", got)
	}
	if got := bitfield.Extract(regs.CTL0, ctl0TuningSelect); got != 0 {
		t.Fatalf("DCOTUNE at a center frequency = %#x, want 0", got)
	}
	if !bitfield.Read(regs.CTL0, ctl0Enable) {
		t.Fatalf("DCO enable bit clear after Initialize")
	}
	// Protected registers must be re-locked on exit.
	if regs.KEY != lockKey {
		t.Fatalf("KEY = %#x, registers left unlocked", regs.KEY)
	}
}

func TestInitializeNegativeTuningImage(t *testing.T) {
	cfg := DefaultClockConfiguration()
	cfg.DCO.Frequency = 2_500 * sysctl.KHz
	c, regs := newTestController(cfg)

	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	// -44 through the 10-bit field is its two's-complement image, 0x3d4.
	if got := bitfield.Extract(regs.CTL0, ctl0TuningSelect); got != 0x3D4 {
		t.Fatalf("DCOTUNE = %#x, want 0x3d4", got)
	}
}

func TestInitializeSourceAndDividerFields(t *testing.T) {
	cfg := DefaultClockConfiguration()
	cfg.Auxiliary.Source = VeryLowFrequency
	cfg.Auxiliary.Divider = DivideBy4
	cfg.Master.Source = DigitallyControlled
	cfg.Master.Divider = DivideBy2
	cfg.SubsystemMaster.Source = Module
	cfg.SubsystemMaster.Divider = DivideBy1
	cfg.SubsystemMaster.LowSpeedDivider = DivideBy8
	cfg.Backup.Source = Reference
	c, regs := newTestController(cfg)

	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	ctl1 := regs.CTL1
	if got := bitfield.Extract(ctl1, ctl1AuxiliarySourceSelect); got != uint32(VeryLowFrequency) {
		t.Fatalf("SELA = %#b", got)
	}
	if got := bitfield.Extract(ctl1, ctl1MasterSourceSelect); got != uint32(DigitallyControlled) {
		t.Fatalf("SELM = %#b", got)
	}
	if got := bitfield.Extract(ctl1, ctl1SubsystemSourceSelect); got != uint32(Module) {
		t.Fatalf("SELS = %#b", got)
	}
	// The backup field is one bit: REFO collapses to 1.
	if got := bitfield.Extract(ctl1, ctl1BackupSourceSelect); got != 0b1 {
		t.Fatalf("SELB = %#b, want 1", got)
	}
	if got := bitfield.Extract(ctl1, ctl1AuxiliaryDividerSelect); got != uint32(DivideBy4) {
		t.Fatalf("DIVA = %#b", got)
	}
	if got := bitfield.Extract(ctl1, ctl1MasterDividerSelect); got != uint32(DivideBy2) {
		t.Fatalf("DIVM = %#b", got)
	}
	if got := bitfield.Extract(ctl1, ctl1LowSpeedDividerSelect); got != uint32(DivideBy8) {
		t.Fatalf("DIVS low speed = %#b", got)
	}
}

func TestInitializeRateTable(t *testing.T) {
	cfg := DefaultClockConfiguration()
	cfg.DCO.Frequency = 48 * sysctl.MHz
	cfg.Master.Divider = DivideBy2
	cfg.SubsystemMaster.Divider = DivideBy4
	cfg.SubsystemMaster.LowSpeedDivider = DivideBy16
	cfg.Auxiliary.Source = LowFrequency
	cfg.Auxiliary.Divider = DivideBy1
	cfg.Backup.Source = LowFrequency
	cfg.Reference.FrequencySelect = 1
	c, _ := newTestController(cfg)

	if err := c.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	want := map[sysctl.PeripheralID]sysctl.Hertz{
		AuxiliaryClock:               32_768,
		MasterClock:                  24 * sysctl.MHz,
		SubsystemMasterClock:         12 * sysctl.MHz,
		LowSpeedSubsystemMasterClock: 3 * sysctl.MHz,
		BackupClock:                  32_768,
		LowFrequencyClock:            32_768,
		VeryLowFrequencyClock:        9_400,
		ReferenceClock:               128 * sysctl.KHz,
		ModuleClock:                  25 * sysctl.MHz,
		SystemClock:                  5 * sysctl.MHz,
	}
	for id, rate := range want {
		if got := c.ClockRate(id); got != rate {
			t.Fatalf("ClockRate(%d) = %d, want %d", id, got, rate)
		}
	}
	// Outside the module space: zero sentinel, not an error.
	if got := c.ClockRate(clockPeripheralCount); got != 0 {
		t.Fatalf("ClockRate(out of space) = %d, want 0", got)
	}
}

func TestEveryDividerExact(t *testing.T) {
	dividers := []ClockDivider{
		DivideBy1, DivideBy2, DivideBy4, DivideBy8,
		DivideBy16, DivideBy32, DivideBy64, DivideBy128,
	}
	for _, d := range dividers {
		cfg := DefaultClockConfiguration()
		cfg.DCO.Frequency = 48 * sysctl.MHz
		cfg.Master.Divider = d
		c, _ := newTestController(cfg)
		if err := c.Initialize(); err != nil {
			t.Fatalf("Initialize(divider %d): %v", d.Divisor(), err)
		}
		want := 48 * sysctl.MHz / sysctl.Hertz(d.Divisor())
		if got := c.ClockRate(MasterClock); got != want {
			t.Fatalf("divider %d: MCLK = %d, want %d", d.Divisor(), got, want)
		}
	}
}

func TestRejectionsWriteNothing(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*ClockConfiguration)
		code errcode.Code
	}{
		{
			"dco target below range",
			func(c *ClockConfiguration) { c.DCO.Frequency = 900 * sysctl.KHz },
			errcode.OutOfRange,
		},
		{
			"dco target above range",
			func(c *ClockConfiguration) { c.DCO.Frequency = 49 * sysctl.MHz },
			errcode.OutOfRange,
		},
		{
			"high speed source on auxiliary",
			func(c *ClockConfiguration) { c.Auxiliary.Source = DigitallyControlled },
			errcode.InvalidClockSource,
		},
		{
			"module oscillator on backup",
			func(c *ClockConfiguration) { c.Backup.Source = Module },
			errcode.InvalidClockSource,
		},
		{
			"reference select out of range",
			func(c *ClockConfiguration) { c.Reference.FrequencySelect = 2 },
			errcode.InvalidConfig,
		},
	}
	for _, tc := range cases {
		cfg := DefaultClockConfiguration()
		tc.mut(&cfg)
		c, regs := newTestController(cfg)

		err := c.Initialize()
		if errcode.Of(err) != tc.code {
			t.Fatalf("%s: err = %v, want code %v", tc.name, err, tc.code)
		}
		if *regs != (CSRegs{}) {
			t.Fatalf("%s: registers written despite rejection: %+v", tc.name, *regs)
		}
	}
}

func TestPowerControlUnsupported(t *testing.T) {
	c, _ := newTestController(DefaultClockConfiguration())

	if err := c.PowerUpPeripheral(MasterClock); errcode.Of(err) != errcode.Unsupported {
		t.Fatalf("PowerUpPeripheral: %v", err)
	}
	if err := c.PowerDownPeripheral(MasterClock); errcode.Of(err) != errcode.Unsupported {
		t.Fatalf("PowerDownPeripheral: %v", err)
	}
	if on, err := c.IsPeripheralPoweredUp(MasterClock); on || errcode.Of(err) != errcode.Unsupported {
		t.Fatalf("IsPeripheralPoweredUp: %v, %v", on, err)
	}
}
