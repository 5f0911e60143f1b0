package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseArgs(t *testing.T) {
	command, params := ParseArgs([]string{"on", "duration=30", "channel=2"})
	assert.Equal(t, command, "on")
	assert.Equal(t, params, map[string]interface{}{"duration": float64(30), "channel": float64(2)})
}
