package input

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePort struct {
	in  *bytes.Buffer
	out bytes.Buffer
}

func (f *fakePort) Read(p []byte) (int, error) {
	return f.in.Read(p)
}

func (f *fakePort) Write(p []byte) (int, error) {
	return f.out.Write(p)
}

func (f *fakePort) Close() error {
	return nil
}

func TestAtlasRead(t *testing.T) {
	port := &fakePort{in: bytes.NewBufferString("*OK\r6.84\r")}
	a := &Atlas{id: "ph0", measurement: "ph", port: port}
	ev, err := a.Read()
	assert.NoError(t, err)
	assert.Equal(t, "ph", ev.Topic)
	assert.Equal(t, 6.84, ev.Fields["ph"])
	assert.Equal(t, "R\r", port.out.String())
}

func TestAtlasError(t *testing.T) {
	port := &fakePort{in: bytes.NewBufferString("*ER\r")}
	a := &Atlas{id: "ph0", measurement: "ph", port: port}
	_, err := a.Read()
	assert.Error(t, err)
}

func TestAtlasMeasurement(t *testing.T) {
	assert.Equal(t, "ph", atlasMeasurement("ph0"))
	assert.Equal(t, "ec", atlasMeasurement("ec1"))
	assert.Equal(t, "value", atlasMeasurement("123"))
}
