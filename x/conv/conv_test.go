package conv

import "testing"

func TestU32Hex(t *testing.T) {
	var buf [8]byte
	if got := string(U32Hex(buf[:], 0x001D0402)); got != "001D0402" {
		t.Fatalf("U32Hex = %q", got)
	}
	if got := string(U32Hex(buf[:], 0)); got != "00000000" {
		t.Fatalf("U32Hex(0) = %q", got)
	}
	if got := string(U32Hex(buf[:], 0xFFFFFFFF)); got != "FFFFFFFF" {
		t.Fatalf("U32Hex(max) = %q", got)
	}
	var short [4]byte
	if got := U32Hex(short[:], 1); len(got) != 0 {
		t.Fatalf("short buffer returned %q", got)
	}
}

func TestU32HexDistinctBuffers(t *testing.T) {
	// The returned slice aliases its buffer: conversions whose results
	// must coexist take separate buffers.
	var a, b [8]byte
	first := U32Hex(a[:], 0x001D0402)
	second := U32Hex(b[:], 0x00000002)
	if string(first) != "001D0402" || string(second) != "00000002" {
		t.Fatalf("got %q and %q", first, second)
	}
}
