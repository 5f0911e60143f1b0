package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/j13tw/Mycodo/pubsub"
)

// collectingPublisher is safe for the concurrent answer goroutines.
type collectingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
}

func (pub *collectingPublisher) ID() string {
	return "test"
}

func (pub *collectingPublisher) Emit(ev *pubsub.Event) {
	pub.mu.Lock()
	pub.events = append(pub.events, ev)
	pub.mu.Unlock()
	ev.Published.Set()
}

func (pub *collectingPublisher) Close() {}

func (pub *collectingPublisher) sources() map[string]int {
	pub.mu.Lock()
	defer pub.mu.Unlock()
	ret := map[string]int{}
	for _, ev := range pub.events {
		ret[ev.Source()]++
	}
	return ret
}

type fakeQueryable struct {
	id string
}

func (f *fakeQueryable) ID() string {
	return f.id
}

func (f *fakeQueryable) QueryHandlers() QueryHandlers {
	return QueryHandlers{
		"status": StaticHandler(f.id + " ok"),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for answers")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHandleQueryFanout(t *testing.T) {
	pub := &collectingPublisher{}
	Publisher = pub
	queryables := []Queryable{
		&fakeQueryable{"a"}, &fakeQueryable{"b"}, &fakeQueryable{"c"},
	}

	ev := pubsub.NewEvent("query", pubsub.Fields{"query": "status", "source": "cli"})
	handleQuery(ev, queryables)

	waitFor(t, func() bool { return len(pub.sources()) == 3 })
	// each answer attributed to the service that produced it
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, pub.sources())
}

func TestHandleQueryLimited(t *testing.T) {
	pub := &collectingPublisher{}
	Publisher = pub
	queryables := []Queryable{
		&fakeQueryable{"a"}, &fakeQueryable{"b"},
	}

	ev := pubsub.NewEvent("query", pubsub.Fields{"query": "b/status", "source": "cli"})
	handleQuery(ev, queryables)

	waitFor(t, func() bool { return len(pub.sources()) == 1 })
	assert.Equal(t, map[string]int{"b": 1}, pub.sources())
}
