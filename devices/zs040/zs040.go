// Package zs040 is a driver for the ZS-040 (HM-10 class) Bluetooth LE
// serial module, controlled over its AT command channel. It is a
// downstream consumer of the clock engine: the UART it talks through is
// clocked at whatever rate the system controller froze for it.
package zs040

import (
	"time"

	"tinygo.org/x/drivers"

	"clocktree-go/errcode"
	"clocktree-go/x/strconvx"
)

// Role is the module's link role.
type Role byte

const (
	RoleSlave  Role = '0'
	RoleMaster Role = '1'
	RoleSensor Role = '2'
	RoleBeacon Role = '3'
	RoleWeChat Role = '4'
)

// BaudRate is the module's enumerated serial-rate code.
type BaudRate byte

const (
	Baud115200 BaudRate = '0'
	Baud57600  BaudRate = '1'
	Baud38400  BaudRate = '2'
	Baud19200  BaudRate = '3'
	Baud9600   BaudRate = '4'
)

// Rate returns the code's serial rate in baud, or 0 for an unknown code.
func (b BaudRate) Rate() uint32 {
	switch b {
	case Baud115200:
		return 115_200
	case Baud57600:
		return 57_600
	case Baud38400:
		return 38_400
	case Baud19200:
		return 19_200
	case Baud9600:
		return 9_600
	default:
		return 0
	}
}

// responseTimeout bounds one AT exchange. The module answers within a few
// character times; one second is generous at 9600 baud.
const responseTimeout = time.Second

// Port is the serial port a ZS-040 hangs off: the drivers UART surface
// plus single-byte reads for line framing. Hardware UARTs and the host
// fake both provide ReadByte.
type Port interface {
	drivers.UART
	ReadByte() (byte, error)
}

// Device is a ZS-040 attached to a serial port.
type Device struct {
	uart Port
}

// New returns a device over an already-configured serial port.
func New(uart Port) *Device {
	return &Device{uart: uart}
}

// Initialize probes the module with a bare AT and expects an OK back,
// confirming it is in command mode at the configured rate.
func (d *Device) Initialize() error {
	reply, err := d.Command("")
	if err != nil {
		return err
	}
	if reply != "OK" {
		return &errcode.E{C: errcode.NotReady, Op: "Initialize",
			Msg: "unexpected probe reply: " + reply}
	}
	return nil
}

// Version returns the module's firmware version string.
func (d *Device) Version() (string, error) {
	return d.Query("+VERSION")
}

// MACAddress returns the module's Bluetooth address string.
func (d *Device) MACAddress() (string, error) {
	return d.Query("+LADDR")
}

// DeviceName returns the advertised device name.
func (d *Device) DeviceName() (string, error) {
	return d.Query("+NAME")
}

// SetDeviceName sets the advertised device name.
func (d *Device) SetDeviceName(name string) error {
	_, err := d.Command("+NAME" + name)
	return err
}

// Role returns the module's link role.
func (d *Device) Role() (Role, error) {
	reply, err := d.Query("+ROLE")
	if err != nil {
		return 0, err
	}
	if len(reply) != 1 {
		return 0, &errcode.E{C: errcode.Error, Op: "Role",
			Msg: "malformed role reply: " + reply}
	}
	return Role(reply[0]), nil
}

// SetRole sets the module's link role. The change applies after reset.
func (d *Device) SetRole(r Role) error {
	_, err := d.Command("+ROLE" + string(r))
	return err
}

// SerialRate returns the module's configured serial rate in baud.
func (d *Device) SerialRate() (uint32, error) {
	reply, err := d.Query("+BAUD")
	if err != nil {
		return 0, err
	}
	// Some firmware replies with the code, some with the literal rate.
	if len(reply) == 1 {
		return BaudRate(reply[0]).Rate(), nil
	}
	rate, err := strconvx.ParseUint(reply, 10, 32)
	if err != nil {
		return 0, &errcode.E{C: errcode.Error, Op: "SerialRate",
			Msg: "malformed baud reply: " + reply, Err: err}
	}
	return uint32(rate), nil
}

// SetSerialRate selects one of the module's enumerated serial rates.
func (d *Device) SetSerialRate(b BaudRate) error {
	_, err := d.Command("+BAUD" + string(b))
	return err
}

// Query runs a "+CMD" query and strips the echoed "+CMD=" prefix from the
// reply line.
func (d *Device) Query(cmd string) (string, error) {
	reply, err := d.Command(cmd)
	if err != nil {
		return "", err
	}
	if prefix := cmd + "="; len(reply) >= len(prefix) && reply[:len(prefix)] == prefix {
		reply = reply[len(prefix):]
	}
	return reply, nil
}

// Command sends one AT command and returns the reply payload. Set commands
// answer with a bare status line; queries answer with a payload line and a
// trailing status, both of which are consumed so the next exchange starts
// on an empty line buffer.
func (d *Device) Command(cmd string) (string, error) {
	if _, err := d.uart.Write([]byte("AT" + cmd + "\r\n")); err != nil {
		return "", &errcode.E{C: errcode.Error, Op: "Command", Err: err}
	}
	deadline := time.Now().Add(responseTimeout)
	line, err := d.readLine(deadline)
	if err != nil {
		return "", err
	}
	if line == "ERROR" {
		return "", &errcode.E{C: errcode.Error, Op: "Command",
			Msg: "command rejected: AT" + cmd}
	}
	if line == "OK" {
		return line, nil
	}
	status, err := d.readLine(deadline)
	if err != nil {
		return "", err
	}
	if status != "OK" {
		return "", &errcode.E{C: errcode.Error, Op: "Command",
			Msg: "unexpected status: " + status}
	}
	return line, nil
}

// readLine collects bytes up to a LF, dropping CRs and any leading blank
// line some firmware emits before the payload.
func (d *Device) readLine(deadline time.Time) (string, error) {
	var line []byte
	for {
		if d.uart.Buffered() == 0 {
			if time.Now().After(deadline) {
				return "", &errcode.E{C: errcode.Timeout, Op: "Command",
					Msg: "no reply before deadline"}
			}
			time.Sleep(time.Millisecond)
			continue
		}
		b, err := d.uart.ReadByte()
		if err != nil {
			return "", &errcode.E{C: errcode.Error, Op: "Command", Err: err}
		}
		switch b {
		case '\r':
			// dropped
		case '\n':
			if len(line) == 0 {
				continue
			}
			return string(line), nil
		default:
			line = append(line, b)
		}
	}
}
