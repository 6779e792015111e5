package bitfield

import "golang.org/x/exp/constraints"

// Mask names a contiguous bit field inside a register image.
type Mask struct {
	Pos   uint8
	Width uint8
}

// MaskFromRange builds a Mask covering bits [low..high] inclusive.
// If low > high, the bounds are swapped.
func MaskFromRange(low, high uint8) Mask {
	if low > high {
		low, high = high, low
	}
	return Mask{Pos: low, Width: high - low + 1}
}

// Bit builds a single-bit Mask.
func Bit(pos uint8) Mask {
	return Mask{Pos: pos, Width: 1}
}

// bits returns the mask aligned to bit 0 (Width ones).
func bits[T constraints.Unsigned](m Mask) T {
	if m.Width == 0 {
		return 0
	}
	var one T = 1
	return (one << m.Width) - 1
}

// Value returns the mask positioned at Pos, e.g. 0x0000_0FF0 for {4,8}.
func Value[T constraints.Unsigned](m Mask) T {
	return bits[T](m) << m.Pos
}

// Insert clears the masked field in reg and writes value into it.
// value is truncated to the mask width.
func Insert[T constraints.Unsigned](reg, value T, m Mask) T {
	reg &^= Value[T](m)
	reg |= (value & bits[T](m)) << m.Pos
	return reg
}

// Extract returns the masked field of reg, right-aligned.
func Extract[T constraints.Unsigned](reg T, m Mask) T {
	return (reg >> m.Pos) & bits[T](m)
}

// Set returns reg with every bit of the field set.
func Set[T constraints.Unsigned](reg T, m Mask) T {
	return reg | Value[T](m)
}

// Clear returns reg with every bit of the field cleared.
func Clear[T constraints.Unsigned](reg T, m Mask) T {
	return reg &^ Value[T](m)
}

// Read reports whether every bit of the field is set.
func Read[T constraints.Unsigned](reg T, m Mask) bool {
	return reg&Value[T](m) == Value[T](m)
}
