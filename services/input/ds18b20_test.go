package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const w1Good = `72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
72 01 4b 46 7f ff 0e 10 57 t=23125`

const w1BadCRC = `72 01 4b 46 7f ff 0e 10 57 : crc=57 NO
72 01 4b 46 7f ff 0e 10 57 t=23125`

const w1Reset = `50 05 4b 46 7f ff 0c 10 1c : crc=1c YES
50 05 4b 46 7f ff 0c 10 1c t=85000`

func TestParseW1Slave(t *testing.T) {
	temp, err := parseW1Slave(w1Good)
	assert.NoError(t, err)
	assert.Equal(t, 23.125, temp)
}

func TestParseW1SlaveBadCRC(t *testing.T) {
	_, err := parseW1Slave(w1BadCRC)
	assert.Error(t, err)
}

func TestParseW1SlaveReset(t *testing.T) {
	// 85C is the power-on default, not a reading
	_, err := parseW1Slave(w1Reset)
	assert.Error(t, err)
}

func TestParseW1SlaveTruncated(t *testing.T) {
	_, err := parseW1Slave("")
	assert.Error(t, err)
}
