//go:build !rp2040

package platform

import (
	"sync"

	"tinygo.org/x/drivers"
)

// HostUART implements drivers.UART for host-side tests and demos. Writes
// are recorded; a script callback can enqueue the bytes a device on the
// far end would answer with.
type HostUART struct {
	mu     sync.Mutex
	rx     []byte
	Writes [][]byte

	// OnWrite, when set, is called with each written frame and its return
	// value is appended to the receive buffer.
	OnWrite func(w []byte) []byte
}

func (h *HostUART) Write(p []byte) (int, error) {
	h.mu.Lock()
	frame := append([]byte(nil), p...)
	h.Writes = append(h.Writes, frame)
	script := h.OnWrite
	h.mu.Unlock()

	if script != nil {
		h.Feed(script(frame))
	}
	return len(p), nil
}

func (h *HostUART) WriteByte(b byte) error {
	_, err := h.Write([]byte{b})
	return err
}

// Feed appends bytes to the receive buffer, as if the far end sent them.
func (h *HostUART) Feed(p []byte) {
	h.mu.Lock()
	h.rx = append(h.rx, p...)
	h.mu.Unlock()
}

func (h *HostUART) Buffered() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rx)
}

func (h *HostUART) ReadByte() (byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.rx) == 0 {
		return 0, errNoData
	}
	b := h.rx[0]
	h.rx = h.rx[1:]
	return b, nil
}

func (h *HostUART) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := copy(p, h.rx)
	h.rx = h.rx[n:]
	return n, nil
}

type uartError string

func (e uartError) Error() string { return string(e) }

const errNoData = uartError("no data")

type hostUARTFactory struct {
	ports map[string]*HostUART
}

func (f *hostUARTFactory) ByID(id string) (drivers.UART, bool) {
	p, ok := f.ports[id]
	return p, ok
}

// Get exposes the underlying *HostUART for tests (to script replies).
func (f *hostUARTFactory) Get(id string) (*HostUART, bool) {
	p, ok := f.ports[id]
	return p, ok
}

// DefaultUARTFactory creates inert host ports "uart0" and "uart1".
func DefaultUARTFactory() UARTFactory {
	return &hostUARTFactory{
		ports: map[string]*HostUART{
			"uart0": {},
			"uart1": {},
		},
	}
}
