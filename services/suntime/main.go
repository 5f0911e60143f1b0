// Service emitting astronomical and clock events for the configured
// location: sunrise, light, dark and sunset phase changes, plus a
// minutely time event. Triggers match on them to run photoperiod
// lighting without hardcoded times.
package suntime

import (
	"time"

	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
	"github.com/j13tw/Mycodo/util"
)

// Service suntime
type Service struct{}

// ID of the service
func (self *Service) ID() string {
	return "suntime"
}

func (self *Service) emitPhase(name string) {
	fields := pubsub.Fields{
		"source":  "sun",
		"device":  "sun",
		"command": name,
	}
	ev := pubsub.NewEvent("sun", fields)
	ev.SetRetained(true)
	services.Publisher.Emit(ev)
}

// Run the service
func (self *Service) Run() error {
	// announce the current phase so restarts don't miss it
	_, phase := previousEvent(location(), time.Now())
	self.emitPhase(phase)

	sun := sunChannel()
	minutely := util.NewScheduler(0, time.Minute)
	for {
		select {
		case te := <-sun:
			self.emitPhase(te.Event)
		case tick := <-minutely.C:
			fields := pubsub.Fields{
				"source": "time",
				"device": "time",
				"hhmm":   tick.Local().Format("1504"),
			}
			services.Publisher.Emit(pubsub.NewEvent("time", fields))
		}
	}
}
