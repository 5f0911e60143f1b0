package dummy

import "github.com/j13tw/Mycodo/pubsub"

// Publisher records emitted events, for testing.
type Publisher struct {
	Events []*pubsub.Event
}

func (pub *Publisher) ID() string {
	return "dummy"
}

func (pub *Publisher) Emit(ev *pubsub.Event) {
	pub.Events = append(pub.Events, ev)
	ev.Published.Set()
}

func (pub *Publisher) Close() {
}
