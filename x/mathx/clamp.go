// Package mathx holds small generic numeric helpers.
package mathx

import "golang.org/x/exp/constraints"

// Between reports lo <= v && v <= hi. Reversed bounds are swapped first.
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// Clamp limits v to [lo, hi]. Reversed bounds are swapped first.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
