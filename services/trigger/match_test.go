package trigger

import (
	"testing"

	"github.com/barnybug/gofsm"
	"github.com/stretchr/testify/assert"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
)

// Declared as a var (not init) so it runs before the NewEventWrapper
// vars below, which need services.Config set.
var _ = func() bool {
	services.Config = config.ExampleConfig
	return true
}()

var (
	evOn      = NewEventWrapper(pubsub.NewEvent("output", pubsub.Fields{"device": "relay.light", "command": "on"}))
	evState   = NewEventWrapper(pubsub.NewEvent("float", pubsub.Fields{"device": "float.reservoir", "state": "Low"}))
	evTime    = NewEventWrapper(pubsub.NewEvent("time", pubsub.Fields{"device": "time", "hhmm": "2230"}))
	evMissing = NewEventWrapper(pubsub.NewEvent("output", pubsub.Fields{}))
)

func TestMatchSimple(t *testing.T) {
	assert.True(t, evOn.Match("device=='relay.light' && command=='on'"))
	assert.False(t, evOn.Match("device=='relay.light' && command=='off'"))
}

func TestMatchType(t *testing.T) {
	assert.True(t, evOn.Match("type=='relay' && command=='on'"))
	assert.True(t, evOn.Match("type=='relay'"))
}

func TestMatchOr(t *testing.T) {
	assert.True(t, evOn.Match("device=='relay.exhaust' && command=='off' || device=='relay.light' && command=='on'"))
	assert.True(t, evOn.Match("device=='relay.light' && command=='on' || device=='relay.exhaust' && command=='off'"))
}

func TestMatchState(t *testing.T) {
	assert.True(t, evState.Match("state=='Low'"))
	assert.False(t, evState.Match("state=='High'"))
}

func TestMatchNotABoolean(t *testing.T) {
	assert.False(t, evOn.Match("'abc'"))
}

func TestMatchBadExpression(t *testing.T) {
	assert.False(t, evOn.Match("blah("))
}

func TestMatchMissing(t *testing.T) {
	assert.False(t, evMissing.Match("device=='relay.light' && command=='on'"))
}

func TestMatchTime(t *testing.T) {
	assert.False(t, evTime.Match("device=='time' && hhmm=='2229'"))
	assert.True(t, evTime.Match("device=='time' && hhmm=='2230'"))
}

var simpleTriggers = `
simple:
  start: Start
  states:
    Start: {}
  transitions:
    Start: []
`

func TestStateFunction(t *testing.T) {
	assert.False(t, evOn.Match("State()"))
	automata, _ = gofsm.Load([]byte(simpleTriggers))
	assert.True(t, evOn.Match("State('simple')=='Start'"))
	assert.False(t, evOn.Match("State('simple')=='Cobblers'"))
	assert.False(t, evOn.Match("State('blah')=='Cobblers'"))
}

func TestWrapperString(t *testing.T) {
	assert.Equal(t, "relay.light command=on", evOn.String())
	assert.Equal(t, "float.reservoir state=Low", evState.String())
}
