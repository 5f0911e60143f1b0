// Package i2c provides raw access to i2c devices via the Linux i2c-dev
// interface.
package i2c

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// I2C_SLAVE ioctl from linux/i2c-dev.h
const i2cSlave = 0x0703

// Conn is a byte-level connection to a single i2c device address.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ReadByte() (byte, error)
	WriteByte(b byte) error
	Close() error
}

// Device is an open i2c-dev file bound to one slave address.
type Device struct {
	f    *os.File
	bus  int
	addr int
}

// Open /dev/i2c-<bus> and select the slave address.
func Open(bus int, addr int) (*Device, error) {
	f, err := os.OpenFile(fmt.Sprintf("/dev/i2c-%d", bus), os.O_RDWR, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "opening i2c bus")
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, addr); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "selecting i2c slave 0x%02x", addr)
	}
	return &Device{f: f, bus: bus, addr: addr}, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("i2c-%d:0x%02x", d.bus, d.addr)
}

func (d *Device) Read(p []byte) (int, error) {
	return d.f.Read(p)
}

func (d *Device) Write(p []byte) (int, error) {
	return d.f.Write(p)
}

func (d *Device) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := d.f.Read(buf[:])
	return buf[0], err
}

func (d *Device) WriteByte(b byte) error {
	_, err := d.f.Write([]byte{b})
	return err
}

func (d *Device) Close() error {
	return d.f.Close()
}
