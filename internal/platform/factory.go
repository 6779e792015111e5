package platform

import "tinygo.org/x/drivers"

// UARTFactory injects configured serial ports by id ("uart0", "uart1").
// Ports satisfy the TinyGo drivers.UART interface so device drivers stay
// identical across MCU and host builds.
type UARTFactory interface {
	ByID(id string) (drivers.UART, bool)
}
