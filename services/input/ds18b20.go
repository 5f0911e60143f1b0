package input

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
)

var w1Path = "/sys/bus/w1/devices"

// DS18B20 1-wire temperature probe via the kernel w1 driver.
type DS18B20 struct {
	device string
	path   string
}

func newDS18B20(id string, conf config.InputConf) (Driver, error) {
	device := conf.Device
	if device == "" {
		device = id
	}
	path := filepath.Join(w1Path, device, "w1_slave")
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "w1 device %s", device)
	}
	return &DS18B20{device: device, path: path}, nil
}

func (d *DS18B20) Source() string {
	return "ds18b20." + d.device
}

func (d *DS18B20) Read() (*pubsub.Event, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, err
	}
	temp, err := parseW1Slave(string(data))
	if err != nil {
		return nil, err
	}
	return pubsub.NewEvent("temp", pubsub.Fields{"temp": temp}), nil
}

func (d *DS18B20) Close() error {
	return nil
}

func parseW1Slave(s string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) < 2 {
		return 0, errors.New("w1_slave truncated")
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, errors.New("w1 crc failed")
	}
	i := strings.LastIndex(lines[1], "t=")
	if i < 0 {
		return 0, errors.New("w1 temperature missing")
	}
	milli, err := strconv.Atoi(strings.TrimSpace(lines[1][i+2:]))
	if err != nil {
		return 0, err
	}
	temp := float64(milli) / 1000
	if temp == 85 {
		// power-on reset value, not a real reading
		return 0, errors.New("w1 power-on reset value")
	}
	return temp, nil
}
