package input

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
	"github.com/pkg/errors"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
)

// Modbus tcp meter (power meters, VFDs). Each configured register maps
// to one measurement field.
type Modbus struct {
	id      string
	conf    config.InputConf
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

func newModbus(id string, conf config.InputConf) (Driver, error) {
	if len(conf.Registers) == 0 {
		return nil, errors.New("no registers configured")
	}
	handler := modbus.NewTCPClientHandler(conf.Host)
	handler.Timeout = 5 * time.Second
	handler.SlaveId = conf.Slave
	client := modbus.NewClient(handler)
	return &Modbus{id: id, conf: conf, handler: handler, client: client}, nil
}

func (m *Modbus) Source() string {
	return fmt.Sprintf("%s.%d", m.id, m.conf.Slave)
}

func (m *Modbus) Read() (*pubsub.Event, error) {
	fields := pubsub.Fields{}
	for _, reg := range m.conf.Registers {
		results, err := m.client.ReadInputRegisters(reg.Register, 1)
		if err != nil {
			return nil, errors.Wrapf(err, "register %d", reg.Register)
		}
		raw := binary.BigEndian.Uint16(results)
		scale := reg.Scale
		if scale == 0 {
			scale = 1
		}
		fields[reg.Measurement] = float64(raw) * scale
	}
	topic := m.conf.Registers[0].Measurement
	return pubsub.NewEvent(topic, fields), nil
}

func (m *Modbus) Close() error {
	return m.handler.Close()
}
