//go:build rp2040

package platform

import (
	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers"
)

// rp2UARTFactory hands out uartx-backed hardware ports. uartx mirrors the
// machine.UART surface, which satisfies drivers.UART.
type rp2UARTFactory struct {
	ports map[string]*uartx.UART
}

func (f *rp2UARTFactory) ByID(id string) (drivers.UART, bool) {
	p, ok := f.ports[id]
	return p, ok
}

// DefaultUARTFactory configures both hardware UARTs at 9600 baud on their
// default pins (zero pin values let uartx apply its defaults).
func DefaultUARTFactory() UARTFactory {
	for _, hw := range []*uartx.UART{uartx.UART0, uartx.UART1} {
		_ = hw.Configure(uartx.UARTConfig{BaudRate: 9600})
	}
	return &rp2UARTFactory{
		ports: map[string]*uartx.UART{
			"uart0": uartx.UART0,
			"uart1": uartx.UART1,
		},
	}
}
