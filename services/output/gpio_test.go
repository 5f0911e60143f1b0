package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/j13tw/Mycodo/config"
)

func TestGPIO(t *testing.T) {
	gpioPath = t.TempDir()
	os.MkdirAll(filepath.Join(gpioPath, "gpio17"), 0755)

	sw, err := openGPIO("17", config.OutputConf{Pin: 17})
	assert.NoError(t, err)

	direction, _ := os.ReadFile(filepath.Join(gpioPath, "gpio17", "direction"))
	assert.Equal(t, "out", string(direction))

	assert.NoError(t, sw.Switch("", true))
	value, _ := os.ReadFile(filepath.Join(gpioPath, "gpio17", "value"))
	assert.Equal(t, "1", string(value))

	on, err := sw.State("")
	assert.NoError(t, err)
	assert.True(t, on)

	assert.NoError(t, sw.Switch("", false))
	on, err = sw.State("")
	assert.NoError(t, err)
	assert.False(t, on)
}

func TestGPIOActiveLow(t *testing.T) {
	gpioPath = t.TempDir()
	os.MkdirAll(filepath.Join(gpioPath, "gpio17"), 0755)

	sw, err := openGPIO("17", config.OutputConf{Pin: 17, OnState: "low", Startup: "off"})
	assert.NoError(t, err)

	// logical off means pin high
	value, _ := os.ReadFile(filepath.Join(gpioPath, "gpio17", "value"))
	assert.Equal(t, "1", string(value))

	assert.NoError(t, sw.Switch("", true))
	value, _ = os.ReadFile(filepath.Join(gpioPath, "gpio17", "value"))
	assert.Equal(t, "0", string(value))
}
