// Package timex holds small time and frequency helpers.
package timex

// PeriodFromHz returns the nanosecond period of a clock rate. A zero rate
// is coerced to 1 Hz rather than dividing by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}
