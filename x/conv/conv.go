// Package conv holds allocation-free formatting helpers for register
// images and similar fixed-width values.
package conv

// U32Hex writes the 8-digit uppercase hex form of n into buf, zero-padded,
// without a 0x prefix. buf must be at least 8 bytes; shorter buffers return
// an empty slice. The returned slice aliases buf, so values that must
// coexist need their own buffers.
func U32Hex(buf []byte, n uint32) []byte {
	if len(buf) < 8 {
		return buf[:0]
	}
	const hexd = "0123456789ABCDEF"
	i := len(buf)
	for j := 0; j < 8; j++ {
		i--
		buf[i] = hexd[n&0xF]
		n >>= 4
	}
	return buf[i:]
}
