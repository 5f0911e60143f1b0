package i2c

import "github.com/pkg/errors"

// Channels on a PCF8574 expander.
const PCF8574Channels = 8

// PCF8574 drives an 8-channel quasi-bidirectional I/O expander. The
// chip has a single port register, so changing one channel means
// rewriting all eight - channel 1 is the most significant bit.
type PCF8574 struct {
	conn Conn
}

func NewPCF8574(conn Conn) *PCF8574 {
	return &PCF8574{conn: conn}
}

// ReadPort returns the current state of all 8 channels.
func (p *PCF8574) ReadPort() ([PCF8574Channels]bool, error) {
	var states [PCF8574Channels]bool
	b, err := p.conn.ReadByte()
	if err != nil {
		return states, errors.Wrap(err, "pcf8574 read")
	}
	for i := 0; i < PCF8574Channels; i++ {
		states[i] = b&(1<<(7-i)) != 0
	}
	return states, nil
}

// WritePort sets all 8 channels in a single bus write.
func (p *PCF8574) WritePort(states [PCF8574Channels]bool) error {
	var b byte
	for i, on := range states {
		if on {
			b |= 1 << (7 - i)
		}
	}
	if err := p.conn.WriteByte(b); err != nil {
		return errors.Wrap(err, "pcf8574 write")
	}
	return nil
}

// SetOutput sets a single channel (0-7) leaving the others untouched.
func (p *PCF8574) SetOutput(channel int, value bool) error {
	if channel < 0 || channel >= PCF8574Channels {
		return errors.Errorf("pcf8574 channel out of range: %d", channel)
	}
	states, err := p.ReadPort()
	if err != nil {
		return err
	}
	states[channel] = value
	return p.WritePort(states)
}
