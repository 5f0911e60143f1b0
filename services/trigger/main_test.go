package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/pubsub/dummy"
	"github.com/j13tw/Mycodo/services"
)

func Example_interfaces() {
	var _ services.Service = (*Service)(nil)
	var _ services.Queryable = (*Service)(nil)
	// Output:
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(pubsub.NewCommand("relay.light", "on", 0)))
	assert.True(t, relevant(pubsub.NewEvent("sun", pubsub.Fields{"command": "light"})))
	assert.True(t, relevant(pubsub.NewEvent("time", pubsub.Fields{"hhmm": "0600"})))
	assert.False(t, relevant(pubsub.NewEvent("temp", pubsub.Fields{"temp": 21.5})))
	assert.False(t, relevant(pubsub.NewEvent("heartbeat", pubsub.Fields{"command": "on"})))
	assert.False(t, relevant(pubsub.NewEvent("_rpc/1", pubsub.Fields{"command": "on"})))
}

func TestQuerySwitch(t *testing.T) {
	services.Config = config.ExampleConfig
	em := &dummy.Publisher{}
	services.Publisher = em
	s := &Service{}

	resp := s.querySwitch(services.Question{Verb: "switch", Args: "relay.light off"})
	assert.Equal(t, "Switched relay.light off", resp)
	if assert.Len(t, em.Events, 1) {
		assert.Equal(t, "off", em.Events[0].Command())
	}

	resp = s.querySwitch(services.Question{Verb: "switch", Args: "relay.heater on duration=30"})
	assert.Equal(t, "Switched relay.heater on", resp)
	if assert.Len(t, em.Events, 2) {
		assert.Equal(t, 30.0, em.Events[1].FloatField("duration"))
	}

	resp = s.querySwitch(services.Question{Verb: "switch", Args: "nonsense on"})
	assert.Equal(t, "device nonsense not found", resp)
}
