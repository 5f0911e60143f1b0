package trigger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Knetic/govaluate"

	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
)

// EventWrapper adapts a bus event to the gofsm Event interface. Match
// conditions are expressions over the event fields:
//
//	device=='relay.light' && command=='on'
//	type=='float' && state=='Low'
//	device=='time' && hhmm=='2230'
//
// State('name') looks up the current state of another machine.
type EventWrapper struct {
	event  *pubsub.Event
	params map[string]interface{}
}

func NewEventWrapper(ev *pubsub.Event) EventWrapper {
	device := services.Config.LookupDeviceName(ev)
	params := map[string]interface{}{
		"topic":   ev.Topic,
		"device":  device,
		"type":    strings.Split(device, ".")[0],
		"command": ev.Command(),
		"state":   ev.State(),
	}
	for key, value := range ev.Fields {
		switch v := value.(type) {
		case string, float64, bool:
			params[key] = v
		}
	}
	return EventWrapper{event: ev, params: params}
}

func (self EventWrapper) String() string {
	device := services.Config.LookupDeviceName(self.event)
	s := device
	if self.event.Command() != "" {
		s += fmt.Sprintf(" command=%s", self.event.Command())
	} else if self.event.State() != "" {
		s += fmt.Sprintf(" state=%s", self.event.State())
	}
	return s
}

var matchFunctions = map[string]govaluate.ExpressionFunction{
	"State": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("State takes one argument")
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("State takes a string")
		}
		if automata == nil {
			return "", nil
		}
		aut, ok := automata.Automaton[name]
		if !ok {
			return "", nil
		}
		return aut.State.Name, nil
	},
}

var exprCache = struct {
	sync.Mutex
	m map[string]*govaluate.EvaluableExpression
}{m: map[string]*govaluate.EvaluableExpression{}}

func compileMatch(when string) (*govaluate.EvaluableExpression, error) {
	exprCache.Lock()
	defer exprCache.Unlock()
	if expr, ok := exprCache.m[when]; ok {
		return expr, nil
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(when, matchFunctions)
	if err != nil {
		return nil, err
	}
	exprCache.m[when] = expr
	return expr, nil
}

// Match evaluates a transition condition against the event. Bad
// expressions and missing fields simply don't match.
func (self EventWrapper) Match(when string) bool {
	expr, err := compileMatch(when)
	if err != nil {
		return false
	}
	result, err := expr.Evaluate(self.params)
	if err != nil {
		return false
	}
	truth, ok := result.(bool)
	return ok && truth
}
