// Service to fire actions when a condition over live measurements
// becomes true. Conditions are expressions like:
//
//	humidity.tent < 40 && temp.tent > 26
//
// referencing measurements as measurement.device-suffix. Actions send
// device commands (optionally timed) or alerts, with a refractory
// interval to stop a persisting condition refiring.
package conditional

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/Knetic/govaluate"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
)

var Clock = func() time.Time {
	return time.Now()
}

// measurements expire after this if not refreshed
const maxAge = 15 * time.Minute

var reIdent = regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z0-9_-]+)+`)

// mangle rewrites dotted measurement names to underscores, the only
// identifier form govaluate accepts.
func mangle(s string) string {
	return strings.Replace(s, ".", "_", -1)
}

func mangleExpression(condition string) string {
	return reIdent.ReplaceAllStringFunc(condition, mangle)
}

type Conditional struct {
	name       string
	conf       config.ConditionalConf
	expression *govaluate.EvaluableExpression
	lastFired  time.Time
	active     bool
}

func newConditional(name string, conf config.ConditionalConf) (*Conditional, error) {
	expression, err := govaluate.NewEvaluableExpression(mangleExpression(conf.Condition))
	if err != nil {
		return nil, fmt.Errorf("condition %q: %s", conf.Condition, err)
	}
	return &Conditional{name: name, conf: conf, expression: expression}, nil
}

type measurement struct {
	value float64
	at    time.Time
}

// Service conditional
type Service struct {
	conditionals map[string]*Conditional
	values       map[string]measurement
	Publisher    pubsub.Publisher
}

// ID of the service
func (self *Service) ID() string {
	return "conditional"
}

func (self *Service) ConfigUpdated(path string) {
	if path != "config" {
		return
	}
	conditionals := map[string]*Conditional{}
	for name, conf := range services.Config.Conditionals {
		c, err := newConditional(name, conf)
		if err != nil {
			log.Printf("Failed to load conditional %s: %s\n", name, err)
			continue
		}
		if old, ok := self.conditionals[name]; ok {
			c.lastFired = old.lastFired
			c.active = old.active
		}
		conditionals[name] = c
	}
	self.conditionals = conditionals
}

// deviceSuffix returns the part of the device name after the type, eg
// "temp.tent" -> "tent".
func deviceSuffix(device string) string {
	if i := strings.Index(device, "."); i >= 0 {
		return device[i+1:]
	}
	return device
}

func (self *Service) Event(ev *pubsub.Event) {
	device := services.Config.LookupDeviceName(ev)
	suffix := deviceSuffix(device)
	now := ev.Timestamp.Local()
	updated := false
	for field, value := range ev.Fields {
		v, ok := value.(float64)
		if !ok {
			continue
		}
		switch field {
		case "duration", "repeat", "interval":
			continue
		}
		self.values[field+"."+suffix] = measurement{v, now}
		updated = true
	}
	if updated {
		self.checkAll(now)
	}
}

func (self *Service) parameters(now time.Time) map[string]interface{} {
	params := map[string]interface{}{}
	for key, m := range self.values {
		if now.Sub(m.at) > maxAge {
			continue
		}
		params[mangle(key)] = m.value
	}
	return params
}

func (self *Service) checkAll(now time.Time) {
	params := self.parameters(now)
	for _, c := range self.conditionals {
		self.check(c, params, now)
	}
}

func (self *Service) check(c *Conditional, params map[string]interface{}, now time.Time) {
	result, err := c.expression.Evaluate(params)
	if err != nil {
		// measurements not yet seen leave the condition undecidable
		return
	}
	truth, ok := result.(bool)
	if !ok {
		log.Printf("%s: condition is not boolean\n", c.name)
		return
	}
	if !truth {
		c.active = false
		return
	}
	if c.active {
		return // fires on the transition only
	}
	c.active = true
	if c.conf.Refractory != nil && now.Sub(c.lastFired) < c.conf.Refractory.Duration {
		return
	}
	c.lastFired = now
	log.Printf("%s: condition met\n", c.name)
	for _, action := range c.conf.Actions {
		self.fire(c, action)
	}
}

func (self *Service) fire(c *Conditional, action config.ActionConf) {
	switch {
	case action.Device != "":
		ev := pubsub.NewCommand(action.Device, action.Command, 0)
		if action.Duration > 0 {
			ev.SetField("duration", action.Duration)
		}
		self.Publisher.Emit(ev)
	case action.Alert != "":
		message := self.substitute(action.Alert)
		services.SendAlert(message, action.Target, "", 0)
	}
}

// substitute replaces $measurement.device references in alert text
// with their current values.
func (self *Service) substitute(message string) string {
	return regexp.MustCompile(`\$[a-zA-Z0-9_.-]+`).ReplaceAllStringFunc(message,
		func(ref string) string {
			if m, ok := self.values[ref[1:]]; ok {
				return fmt.Sprint(m.value)
			}
			return ref
		})
}

func (self *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"status": services.TextHandler(self.queryStatus),
		"help":   services.StaticHandler("status: show conditional state"),
	}
}

func (self *Service) queryStatus(q services.Question) string {
	var out []string
	for name, c := range self.conditionals {
		state := "idle"
		if c.active {
			state = "active"
		}
		if !c.lastFired.IsZero() {
			state += ", last fired " + c.lastFired.Format(time.Stamp)
		}
		out = append(out, fmt.Sprintf("%s: %s", name, state))
	}
	if len(out) == 0 {
		return "no conditionals"
	}
	return strings.Join(out, "\n")
}

// Run the service
func (self *Service) Run() error {
	self.conditionals = map[string]*Conditional{}
	self.values = map[string]measurement{}
	self.Publisher = services.Publisher
	self.ConfigUpdated("config")

	// all measurement events carry a source
	for ev := range services.Subscriber.Subscribe(pubsub.All()) {
		if ev.Source() == "" || strings.HasPrefix(ev.Topic, "command/") {
			continue
		}
		self.Event(ev)
	}
	return nil
}
