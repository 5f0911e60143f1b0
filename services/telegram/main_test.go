package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
)

func Example_interfaces() {
	var _ services.Service = (*Service)(nil)
	// Output:
}

func TestRewriteTelegramCommands(t *testing.T) {
	assert.Equal(t, "pid/status", rewriteTelegramCommands("/pid_status"))
	assert.Equal(t, "pid/set tent 22 1h", rewriteTelegramCommands("/pid_set tent 22 1h"))
	assert.Equal(t, "status", rewriteTelegramCommands("status"))
}

func TestFormatReading(t *testing.T) {
	now := time.Now()
	ev := pubsub.NewEvent("temp", pubsub.Fields{
		"source": "sht3x.1", "temp": 21.5, "humidity": 55.0,
	})
	ev.Timestamp = now.Add(-2 * time.Minute)
	assert.Equal(t, "temp.tent: humidity 55 temp 21.5 (2m ago)",
		formatReading("temp.tent", ev, now))

	ev = pubsub.NewEvent("output", pubsub.Fields{
		"device": "relay.heater", "command": "on",
	})
	ev.Timestamp = now.Add(-30 * time.Second)
	assert.Equal(t, "relay.heater: on (30s ago)",
		formatReading("relay.heater", ev, now))

	// nothing worth showing
	ev = pubsub.NewEvent("output", pubsub.Fields{"device": "relay.heater"})
	assert.Equal(t, "", formatReading("relay.heater", ev, now))
}

func TestSnapshot(t *testing.T) {
	store := services.NewMockStore()
	services.Stor = store
	// timestamps round trip the wire format in UTC
	now := time.Now().UTC()

	ev := pubsub.NewEvent("temp", pubsub.Fields{"source": "sht3x.1", "temp": 21.5})
	ev.Timestamp = now.Add(-time.Minute)
	store.Set("mycodo/state/devices/temp.tent", ev.String())
	ev = pubsub.NewEvent("ph", pubsub.Fields{"source": "atlas.ph0", "ph": 6.1})
	ev.Timestamp = now.Add(-time.Minute)
	store.Set("mycodo/state/devices/ph.reservoir", ev.String())

	assert.Equal(t, "temp.tent: temp 21.5 (1m ago)", snapshot("tent", now))
	assert.Equal(t, "ph.reservoir: ph 6.1 (1m ago)", snapshot("reservoir", now))
	assert.Equal(t, "", snapshot("nonsense", now))
}
