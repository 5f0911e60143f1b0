package input

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
)

// Atlas Scientific EZO circuit in UART mode (pH, EC, DO probes).
type Atlas struct {
	id          string
	measurement string
	port        io.ReadWriteCloser
}

func newAtlas(id string, conf config.InputConf) (Driver, error) {
	c := &serial.Config{
		Name:        conf.Device,
		Baud:        9600,
		ReadTimeout: 2 * time.Second,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", conf.Device)
	}
	return &Atlas{id: id, measurement: atlasMeasurement(id), port: port}, nil
}

// atlasMeasurement derives the measurement name from the input id, eg
// "ph0" -> "ph", "ec1" -> "ec".
func atlasMeasurement(id string) string {
	m := strings.TrimRight(id, "0123456789")
	if m == "" {
		return "value"
	}
	return m
}

func (a *Atlas) Source() string {
	return "atlas." + a.id
}

func (a *Atlas) Read() (*pubsub.Event, error) {
	if _, err := a.port.Write([]byte("R\r")); err != nil {
		return nil, errors.Wrap(err, "atlas request")
	}
	// the circuit acks with *OK/*ER lines before the reading
	for i := 0; i < 4; i++ {
		line, err := a.readLine()
		if err != nil {
			return nil, err
		}
		if line == "" || strings.HasPrefix(line, "*OK") {
			continue
		}
		if strings.HasPrefix(line, "*") {
			return nil, errors.Errorf("atlas error response %q", line)
		}
		value, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "atlas reading %q", line)
		}
		return pubsub.NewEvent(a.measurement,
			pubsub.Fields{a.measurement: value}), nil
	}
	return nil, errors.New("atlas no reading")
}

func (a *Atlas) readLine() (string, error) {
	var buf []byte
	b := make([]byte, 1)
	for {
		n, err := a.port.Read(b)
		if err != nil {
			return "", errors.Wrap(err, "atlas read")
		}
		if n == 0 {
			return "", errors.New("atlas read timeout")
		}
		if b[0] == '\r' {
			break
		}
		buf = append(buf, b[0])
	}
	return strings.TrimSpace(string(buf)), nil
}

func (a *Atlas) Close() error {
	return a.port.Close()
}
