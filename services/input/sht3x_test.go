package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	writes [][]byte
	reads  [][]byte
}

func (f *fakeConn) Write(p []byte) (int, error) {
	f.writes = append(f.writes, append([]byte{}, p...))
	return len(p), nil
}

func (f *fakeConn) Read(p []byte) (int, error) {
	next := f.reads[0]
	f.reads = f.reads[1:]
	copy(p, next)
	return len(next), nil
}

func (f *fakeConn) ReadByte() (byte, error) {
	var b [1]byte
	_, err := f.Read(b[:])
	return b[0], err
}

func (f *fakeConn) WriteByte(b byte) error {
	_, err := f.Write([]byte{b})
	return err
}

func (f *fakeConn) Close() error {
	return nil
}

func TestCRC8(t *testing.T) {
	// known value from the sht3x datasheet
	assert.Equal(t, byte(0x92), crc8([]byte{0xbe, 0xef}))
}

func TestSHT3xRead(t *testing.T) {
	conn := &fakeConn{
		reads: [][]byte{{0xbe, 0xef, 0x92, 0xbe, 0xef, 0x92}},
	}
	s := &SHT3x{id: "1", conn: conn}
	ev, err := s.Read()
	assert.NoError(t, err)
	assert.Equal(t, "temp", ev.Topic)
	assert.Equal(t, 85.52, ev.Fields["temp"])
	assert.Equal(t, 74.58, ev.Fields["humidity"])
	assert.Equal(t, [][]byte{{0x24, 0x00}}, conn.writes)
}

func TestSHT3xBadCRC(t *testing.T) {
	conn := &fakeConn{
		reads: [][]byte{{0xbe, 0xef, 0x00, 0xbe, 0xef, 0x92}},
	}
	s := &SHT3x{id: "1", conn: conn}
	_, err := s.Read()
	assert.Error(t, err)
}
