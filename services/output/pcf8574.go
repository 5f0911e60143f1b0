package output

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/lib/i2c"
	"github.com/j13tw/Mycodo/util"
)

var statePath = "~/.mycodo/state"

// pcf8574 output - an 8-channel i2c expander, commonly behind a relay
// board. Relay boards are usually active low, configured with
// on_state: low. The chip has a single port register so every change is
// a whole-port write, preserving the other channels.
type pcf8574 struct {
	key      string
	conn     i2c.Conn
	chip     *i2c.PCF8574
	invert   bool
	shutdown string

	mu     sync.Mutex
	states [i2c.PCF8574Channels]bool // logical on/off, 0-based
}

func openPCF8574(key string, conf config.OutputConf) (Switcher, error) {
	addr, err := strconv.ParseUint(conf.Address, 0, 8)
	if err != nil {
		return nil, errors.Wrapf(err, "bad i2c address %q", conf.Address)
	}
	conn, err := i2c.Open(conf.Bus, int(addr))
	if err != nil {
		return nil, err
	}
	return newPCF8574(key, conf, conn)
}

func newPCF8574(key string, conf config.OutputConf, conn i2c.Conn) (Switcher, error) {
	p := &pcf8574{
		key:      key,
		conn:     conn,
		chip:     i2c.NewPCF8574(conn),
		invert:   conf.OnState == "low",
		shutdown: conf.Shutdown,
	}

	switch conf.Startup {
	case "on":
		for i := range p.states {
			p.states[i] = true
		}
	case "off":
		// all off - the zero value
	case "saved":
		p.states = p.loadState()
	default:
		// leave the hardware as found
		port, err := p.chip.ReadPort()
		if err != nil {
			conn.Close()
			return nil, err
		}
		for i, high := range port {
			p.states[i] = high != p.invert
		}
		return p, nil
	}
	if err := p.writePort(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *pcf8574) channel(channel string) (int, error) {
	ch, err := strconv.Atoi(channel)
	if err != nil || ch < 1 || ch > i2c.PCF8574Channels {
		return 0, errors.Errorf("bad pcf8574 channel %q", channel)
	}
	return ch - 1, nil
}

func (p *pcf8574) Switch(channel string, on bool) error {
	ch, err := p.channel(channel)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[ch] = on
	return p.writePort()
}

func (p *pcf8574) State(channel string) (bool, error) {
	ch, err := p.channel(channel)
	if err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[ch], nil
}

// writePort pushes the logical states to the chip and persists them,
// so "saved" startup can restore after a power cycle. Held under mu.
func (p *pcf8574) writePort() error {
	var port [i2c.PCF8574Channels]bool
	for i, on := range p.states {
		port[i] = on != p.invert
	}
	if err := p.chip.WritePort(port); err != nil {
		return err
	}
	p.saveState()
	return nil
}

func (p *pcf8574) stateFile() string {
	return filepath.Join(util.ExpandUser(statePath), "pcf8574-"+p.key)
}

func (p *pcf8574) saveState() {
	buf := make([]byte, i2c.PCF8574Channels)
	for i, on := range p.states {
		buf[i] = '0'
		if on {
			buf[i] = '1'
		}
	}
	os.MkdirAll(util.ExpandUser(statePath), 0755)
	if err := os.WriteFile(p.stateFile(), buf, 0644); err != nil {
		// state saving is best effort
		return
	}
}

func (p *pcf8574) loadState() (states [i2c.PCF8574Channels]bool) {
	buf, err := os.ReadFile(p.stateFile())
	if err != nil || len(buf) < i2c.PCF8574Channels {
		return
	}
	for i := range states {
		states[i] = buf[i] == '1'
	}
	return
}

func (p *pcf8574) Close() error {
	switch p.shutdown {
	case "on", "off":
		p.mu.Lock()
		for i := range p.states {
			p.states[i] = p.shutdown == "on"
		}
		p.writePort()
		p.mu.Unlock()
	}
	return p.conn.Close()
}
