package input

import (
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/lib/i2c"
	"github.com/j13tw/Mycodo/pubsub"
)

// SHT3x temperature/humidity sensor on i2c.
type SHT3x struct {
	id   string
	conn i2c.Conn
}

// single shot measurement, high repeatability, no clock stretching
var sht3xMeasure = []byte{0x24, 0x00}

func newSHT3x(id string, conf config.InputConf) (Driver, error) {
	addr, err := strconv.ParseUint(conf.Address, 0, 8)
	if err != nil {
		return nil, errors.Wrapf(err, "bad i2c address %q", conf.Address)
	}
	conn, err := i2c.Open(conf.Bus, int(addr))
	if err != nil {
		return nil, err
	}
	return &SHT3x{id: id, conn: conn}, nil
}

func (s *SHT3x) Source() string {
	return "sht3x." + s.id
}

func (s *SHT3x) Read() (*pubsub.Event, error) {
	if _, err := s.conn.Write(sht3xMeasure); err != nil {
		return nil, errors.Wrap(err, "sht3x measure")
	}
	// high repeatability measurement takes up to 15ms
	time.Sleep(16 * time.Millisecond)
	var buf [6]byte
	n, err := s.conn.Read(buf[:])
	if err != nil {
		return nil, errors.Wrap(err, "sht3x read")
	}
	if n != len(buf) {
		return nil, errors.Errorf("sht3x short read: %d bytes", n)
	}
	temp, humidity, err := sht3xDecode(buf[:])
	if err != nil {
		return nil, err
	}
	return pubsub.NewEvent("temp",
		pubsub.Fields{"temp": temp, "humidity": humidity}), nil
}

func (s *SHT3x) Close() error {
	return s.conn.Close()
}

func sht3xDecode(buf []byte) (temp float64, humidity float64, err error) {
	if crc8(buf[0:2]) != buf[2] || crc8(buf[3:5]) != buf[5] {
		return 0, 0, errors.New("sht3x crc mismatch")
	}
	st := uint16(buf[0])<<8 | uint16(buf[1])
	srh := uint16(buf[3])<<8 | uint16(buf[4])
	temp = round2(-45 + 175*float64(st)/65535)
	humidity = round2(100 * float64(srh) / 65535)
	return temp, humidity, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// crc8 polynomial 0x31, initial 0xff (sht3x datasheet)
func crc8(data []byte) byte {
	crc := byte(0xff)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
