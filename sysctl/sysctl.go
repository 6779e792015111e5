// Package sysctl defines the platform-neutral system-controller surface:
// the peripheral identity space, frequency units, and the Controller
// contract every platform clock engine implements.
package sysctl

// PeripheralID is a stable numeric identifier within one platform's
// identity space. IDs are only meaningful as lookup keys on the platform
// that defined them; they are never compared across platforms.
type PeripheralID uint32

// Hertz is a clock rate. uint32 covers every rate these parts can produce.
type Hertz uint32

// Frequency unit multipliers.
const (
	KHz Hertz = 1_000
	MHz Hertz = 1_000_000
)

// Controller configures a platform's clock tree once at boot and then
// answers rate and power queries for the rest of program life.
//
// Initialize runs the platform's fixed pipeline exactly once. The first
// configuration error stops further register writes for the current stage;
// writes already committed are not rolled back, so callers must treat any
// error as "hardware clock state is unspecified" and halt.
type Controller interface {
	Initialize() error

	// ClockRate returns the frozen rate for a peripheral. An ID that maps
	// to no clocked group returns 0, meaning "unclocked/unknown" rather
	// than an error.
	ClockRate(id PeripheralID) Hertz

	// Power control over the platform's enable-bit banks. Platforms
	// without such a register bank return errcode.Unsupported.
	PowerUpPeripheral(id PeripheralID) error
	PowerDownPeripheral(id PeripheralID) error
	IsPeripheralPoweredUp(id PeripheralID) (bool, error)
}
