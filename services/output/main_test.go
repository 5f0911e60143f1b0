package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/pubsub/dummy"
	"github.com/j13tw/Mycodo/services"
)

func Example_interfaces() {
	var _ services.Service = (*Service)(nil)
	var _ services.ConfigSubscriber = (*Service)(nil)
	var _ services.Queryable = (*Service)(nil)
	// Output:
}

type fakeSwitcher struct {
	switches []string
	on       bool
}

func (f *fakeSwitcher) Switch(channel string, on bool) error {
	s := channel + ":off"
	if on {
		s = channel + ":on"
	}
	f.switches = append(f.switches, s)
	f.on = on
	return nil
}

func (f *fakeSwitcher) State(channel string) (bool, error) {
	return f.on, nil
}

func (f *fakeSwitcher) Close() error {
	return nil
}

func setup() (*Service, *fakeSwitcher, *dummy.Publisher) {
	services.Config = config.ExampleConfig
	em := &dummy.Publisher{}
	services.Publisher = em
	fake := &fakeSwitcher{}
	service := &Service{
		switchers: map[string]Switcher{"0x20": fake},
		timers:    map[string]*time.Timer{},
	}
	return service, fake, em
}

func TestHandleCommand(t *testing.T) {
	service, fake, em := setup()

	ev := pubsub.NewCommand("relay.heater", "on", 0)
	service.handleCommand(ev)
	assert.Equal(t, []string{"1:on"}, fake.switches)
	// acked on the bus
	if assert.Len(t, em.Events, 1) {
		assert.Equal(t, "output", em.Events[0].Topic)
		assert.Equal(t, "relay.heater", em.Events[0].Device())
		assert.Equal(t, "on", em.Events[0].Command())
	}

	ev = pubsub.NewCommand("relay.heater", "toggle", 0)
	service.handleCommand(ev)
	assert.Equal(t, []string{"1:on", "1:off"}, fake.switches)
}

func TestHandleCommandOtherDevice(t *testing.T) {
	service, fake, em := setup()

	// gpio device, no switcher registered for it
	ev := pubsub.NewCommand("relay.light", "on", 0)
	service.handleCommand(ev)
	assert.Empty(t, fake.switches)
	assert.Empty(t, em.Events)

	// not an output at all
	ev = pubsub.NewCommand("temp.tent", "on", 0)
	service.handleCommand(ev)
	assert.Empty(t, fake.switches)
}

func TestConfiguredChannel(t *testing.T) {
	yml := `
devices:
  relay.pump:
    source: pcf8574.0x21
outputs:
  '0x21':
    interface: pcf8574
    channel: 3
`
	conf, err := config.OpenRaw([]byte(yml))
	assert.NoError(t, err)
	services.Config = conf
	services.Publisher = &dummy.Publisher{}
	fake := &fakeSwitcher{}
	service := &Service{
		switchers: map[string]Switcher{"0x21": fake},
		timers:    map[string]*time.Timer{},
	}

	// source carries no channel suffix, the output's channel applies
	service.handleCommand(pubsub.NewCommand("relay.pump", "on", 0))
	assert.Equal(t, []string{"3:on"}, fake.switches)
}

func TestTimedCommand(t *testing.T) {
	service, fake, _ := setup()

	ev := pubsub.NewCommand("relay.exhaust", "on", 0)
	ev.SetField("duration", 0.01)
	service.handleCommand(ev)
	assert.Equal(t, []string{"2:on"}, fake.switches)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"2:on", "2:off"}, fake.switches)
}
