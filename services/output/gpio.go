package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/j13tw/Mycodo/config"
)

var gpioPath = "/sys/class/gpio"

// gpio output via the sysfs interface.
type gpio struct {
	pin      int
	invert   bool
	shutdown string
}

func openGPIO(key string, conf config.OutputConf) (Switcher, error) {
	g := &gpio{
		pin:      conf.Pin,
		invert:   conf.OnState == "low",
		shutdown: conf.Shutdown,
	}
	if err := g.export(); err != nil {
		return nil, err
	}
	switch conf.Startup {
	case "on", "off":
		if err := g.Switch("", conf.Startup == "on"); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *gpio) dir() string {
	return filepath.Join(gpioPath, fmt.Sprintf("gpio%d", g.pin))
}

func (g *gpio) export() error {
	if _, err := os.Stat(g.dir()); err != nil {
		err := os.WriteFile(filepath.Join(gpioPath, "export"),
			[]byte(strconv.Itoa(g.pin)), 0644)
		if err != nil {
			return errors.Wrapf(err, "exporting gpio %d", g.pin)
		}
		// the kernel needs a moment to create the pin directory
		time.Sleep(100 * time.Millisecond)
	}
	err := os.WriteFile(filepath.Join(g.dir(), "direction"), []byte("out"), 0644)
	if err != nil {
		return errors.Wrapf(err, "setting gpio %d direction", g.pin)
	}
	return nil
}

func (g *gpio) Switch(channel string, on bool) error {
	value := "0"
	if on != g.invert {
		value = "1"
	}
	err := os.WriteFile(filepath.Join(g.dir(), "value"), []byte(value), 0644)
	if err != nil {
		return errors.Wrapf(err, "setting gpio %d", g.pin)
	}
	return nil
}

func (g *gpio) State(channel string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(g.dir(), "value"))
	if err != nil {
		return false, errors.Wrapf(err, "reading gpio %d", g.pin)
	}
	high := strings.TrimSpace(string(data)) == "1"
	return high != g.invert, nil
}

func (g *gpio) Close() error {
	switch g.shutdown {
	case "on", "off":
		return g.Switch("", g.shutdown == "on")
	}
	return nil
}
