package watchdog

import (
	"net/smtp"
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
	var _ services.Queryable = (*Service)(nil)
	// Output:
}

type email struct {
	to  []string
	msg string
}

func setup() (*dummy.Publisher, *[]email) {
	services.Config = config.ExampleConfig
	em := &dummy.Publisher{}
	services.Publisher = em
	var emails []email
	sendEmail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		emails = append(emails, email{to, string(msg)})
		return nil
	}
	devices = map[string]*WatchdogDevice{
		"temp.tent": {
			Name:      "Tent temperature",
			Timeout:   5 * time.Minute,
			LastEvent: time.Now(),
		},
	}
	return em, &emails
}

func TestTimeoutAlerts(t *testing.T) {
	em, emails := setup()
	devices["temp.tent"].LastEvent = time.Now().Add(-10 * time.Minute)

	checkTimeouts()
	assert.True(t, devices["temp.tent"].Alerted)
	assert.Len(t, *emails, 1)
	assert.Contains(t, (*emails)[0].msg, "PROBLEM: Tent temperature")
	if assert.Len(t, em.Events, 1) {
		assert.Equal(t, "alert", em.Events[0].Topic)
		assert.Equal(t, "telegram", em.Events[0].Target())
	}

	// no repeat inside the interval
	checkTimeouts()
	assert.Len(t, *emails, 1)
}

func TestRecovery(t *testing.T) {
	_, emails := setup()
	devices["temp.tent"].Alerted = true
	devices["temp.tent"].LastEvent = time.Now().Add(-10 * time.Minute)

	ev := pubsub.NewEvent("temp", pubsub.Fields{"source": "sht3x.1", "temp": 20.0})
	checkEvent(ev)
	assert.False(t, devices["temp.tent"].Alerted)
	assert.Len(t, *emails, 1)
	assert.Contains(t, (*emails)[0].msg, "RECOVERED")
}

func TestHeartbeatTouch(t *testing.T) {
	setup()
	devices["heartbeat.input"] = &WatchdogDevice{
		Name:      "Process input",
		Timeout:   121 * time.Second,
		LastEvent: time.Now().Add(-5 * time.Minute),
	}
	ev := pubsub.NewEvent("heartbeat", pubsub.Fields{"device": "heartbeat.input", "pid": 1.0})
	checkEvent(ev)
	assert.WithinDuration(t, ev.Timestamp, devices["heartbeat.input"].LastEvent, time.Second)
}

func TestQueryStatus(t *testing.T) {
	setup()
	s := &Service{}
	out := s.queryStatus(services.Question{})
	assert.Contains(t, out, "Tent temperature")
}

func TestBadTimeout(t *testing.T) {
	yml := `
watchdog:
  devices:
    temp.tent: 5m
`
	c, err := config.OpenRaw([]byte(yml))
	assert.NoError(t, err)
	assert.Equal(t, "5m", c.Watchdog.Devices["temp.tent"])
}
