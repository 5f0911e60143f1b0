package graphite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/lib/graphite"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
)

func Example_interfaces() {
	var _ services.Service = (*Service)(nil)
	var _ services.Queryable = (*Service)(nil)
	// Output:
}

func TestQueryDuty(t *testing.T) {
	services.Config = config.ExampleConfig
	mock := &graphite.MockGraphite{
		Response: `[{"target": "sensor.relay.heater.command.avg",
			"datapoints": [[1, 1700000000], [0, 1700000060], [1, 1700000120], [1, 1700000180]]}]`,
	}
	gr = mock

	s := &Service{}
	out := s.queryDuty(services.Question{Verb: "duty", Args: "relay.heater"})
	assert.Equal(t, "relay.heater: on 75% of the last 1d (18h)", out)

	out = s.queryDuty(services.Question{Verb: "duty", Args: ""})
	assert.Equal(t, "usage: duty <device> [period]", out)

	mock.Response = `[]`
	out = s.queryDuty(services.Question{Verb: "duty", Args: "relay.heater 1h"})
	assert.Equal(t, "duty failed: no data for relay.heater", out)
}

func TestSendToGraphite(t *testing.T) {
	services.Config = config.ExampleConfig
	mock := &graphite.MockGraphite{}
	gr = mock

	ev := pubsub.NewEvent("temp", pubsub.Fields{
		"source":   "sht3x.1",
		"temp":     21.5,
		"humidity": 55.0,
	})
	sendToGraphite(ev)

	assert.Len(t, mock.Lines, 6)
	assert.Contains(t, mock.Lines, "sensor.temp.tent.temp.avg")
	assert.Contains(t, mock.Lines, "sensor.temp.tent.humidity.max")
}

func TestUnknownDeviceSkipped(t *testing.T) {
	services.Config = config.ExampleConfig
	mock := &graphite.MockGraphite{}
	gr = mock

	ev := pubsub.NewEvent("temp", pubsub.Fields{"source": "unknown.99", "temp": 1.0})
	sendToGraphite(ev)
	assert.Empty(t, mock.Lines)
}

func TestOnOffValues(t *testing.T) {
	services.Config = config.ExampleConfig
	mock := &graphite.MockGraphite{}
	gr = mock

	ev := pubsub.NewEvent("output", pubsub.Fields{"device": "relay.heater", "command": "on"})
	sendToGraphite(ev)
	assert.Contains(t, mock.Lines, "sensor.relay.heater.command.avg")
}
