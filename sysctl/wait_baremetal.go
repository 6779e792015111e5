//go:build baremetal

package sysctl

// SpinUntil polls ready until it reports true. There is deliberately no
// timeout: an oscillator or PLL that never comes up halts boot rather than
// letting the system run at an unknown frequency.
func SpinUntil(ready func() bool) {
	for !ready() {
	}
}
