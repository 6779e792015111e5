//go:build !baremetal

package sysctl

// SpinUntil is elided on host builds so the configuration pipeline is
// exercisable against in-memory register images that never flip their
// ready bits.
func SpinUntil(func() bool) {}
