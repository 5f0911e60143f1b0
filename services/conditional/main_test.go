package conditional

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

func TestMangleExpression(t *testing.T) {
	assert.Equal(t, "humidity_tent < 40 && temp_tent > 26",
		mangleExpression("humidity.tent < 40 && temp.tent > 26"))
	assert.Equal(t, "ph_reservoir > 6.5", mangleExpression("ph.reservoir > 6.5"))
}

func setup() (*Service, *dummy.Publisher) {
	services.Config = config.ExampleConfig
	em := &dummy.Publisher{}
	services.Publisher = em
	service := &Service{
		conditionals: map[string]*Conditional{},
		values:       map[string]measurement{},
		Publisher:    em,
	}
	service.ConfigUpdated("config")
	return service, em
}

func tentReading(service *Service, humidity, temp float64, at time.Time) {
	ev := pubsub.NewEvent("temp", pubsub.Fields{
		"source":   "sht3x.1",
		"humidity": humidity,
		"temp":     temp,
	})
	ev.Timestamp = at
	service.Event(ev)
}

func TestConditionFires(t *testing.T) {
	service, em := setup()
	now := time.Now()

	// condition not met
	tentReading(service, 50, 27, now)
	assert.Empty(t, em.Events)

	// met - both actions fire
	tentReading(service, 35, 27, now)
	if assert.Len(t, em.Events, 2) {
		assert.Equal(t, "command/relay.exhaust", em.Events[0].Topic)
		assert.Equal(t, "on", em.Events[0].Command())
		assert.Equal(t, 120.0, em.Events[0].FloatField("duration"))
		assert.Equal(t, "alert", em.Events[1].Topic)
		assert.Equal(t, "Tent dry: 35%", em.Events[1].StringField("message"))
		assert.Equal(t, "telegram", em.Events[1].StringField("target"))
	}

	// still met - no refire while active
	tentReading(service, 34, 27, now)
	assert.Len(t, em.Events, 2)
}

func TestRefractory(t *testing.T) {
	service, em := setup()
	now := time.Now()

	tentReading(service, 35, 27, now)
	assert.Len(t, em.Events, 2)

	// clears, then recurs inside the 30m refractory
	tentReading(service, 50, 27, now.Add(time.Minute))
	tentReading(service, 35, 27, now.Add(2*time.Minute))
	assert.Len(t, em.Events, 2)

	// recurs after the refractory
	tentReading(service, 50, 27, now.Add(31*time.Minute))
	tentReading(service, 35, 27, now.Add(32*time.Minute))
	assert.Len(t, em.Events, 4)
}

func TestUndecidable(t *testing.T) {
	service, em := setup()
	now := time.Now()

	// humidity alone can't decide the condition
	ev := pubsub.NewEvent("temp", pubsub.Fields{"source": "sht3x.1", "humidity": 30.0})
	ev.Timestamp = now
	service.Event(ev)
	assert.Empty(t, em.Events)
}
