// Service to regulate measurements towards a setpoint by driving
// outputs. Each controller couples a sensor measurement to raise/lower
// outputs, either as a PID loop with time-proportioned activations or
// as a simple hysteresis thermostat. Setpoints come from a static
// value, a weekly method schedule (optionally ramped), or a temporary
// hold.
package pid

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
	"github.com/j13tw/Mycodo/util"
)

var Clock = func() time.Time {
	return time.Now()
}

const defaultMaxAge = 5 * time.Minute
const defaultPeriod = time.Minute

// minimum activation worth commanding
const minActivation = time.Second

type Controller struct {
	name     string
	conf     config.ControllerConf
	schedule *Schedule
	pid      *PID

	value float64
	at    time.Time

	raiseOn bool
	lowerOn bool
	stale   bool
	lastRun time.Time

	holdValue float64
	holdUntil time.Time
}

func newController(name string, conf config.ControllerConf) (*Controller, error) {
	c := &Controller{name: name, conf: conf}
	if conf.Method != "" {
		method, ok := services.Config.Methods[conf.Method]
		if !ok {
			return nil, fmt.Errorf("method %q not found", conf.Method)
		}
		schedule, err := NewSchedule(method.Schedule, method.Ramp)
		if err != nil {
			return nil, err
		}
		c.schedule = schedule
	}
	if conf.Mode == "" || conf.Mode == "pid" {
		c.pid = &PID{
			Kp:   conf.Kp,
			Ki:   conf.Ki,
			Kd:   conf.Kd,
			MaxI: c.maxOn().Seconds(),
		}
	}
	return c, nil
}

func (c *Controller) period() time.Duration {
	if c.conf.Period != nil {
		return c.conf.Period.Duration
	}
	return defaultPeriod
}

func (c *Controller) maxOn() time.Duration {
	if c.conf.MaxOn != nil {
		return c.conf.MaxOn.Duration
	}
	return c.period()
}

func (c *Controller) maxAge() time.Duration {
	if c.conf.MinAge != nil {
		return c.conf.MinAge.Duration
	}
	return defaultMaxAge
}

func (c *Controller) update(value float64, at time.Time) {
	c.value = value
	c.at = at
}

func (c *Controller) target(now time.Time) float64 {
	if now.Before(c.holdUntil) {
		return c.holdValue
	}
	if c.schedule != nil {
		return c.schedule.Target(now)
	}
	return c.conf.Setpoint
}

func (c *Controller) setHold(value float64, duration time.Duration, at time.Time) {
	c.holdValue = value
	c.holdUntil = at.Add(duration)
}

// Service pid
type Service struct {
	controllers map[string]*Controller
	sensors     map[string][]*Controller
	events      chan *pubsub.Event
	subscribed  map[string]bool
	Publisher   pubsub.Publisher
}

// ID of the service
func (self *Service) ID() string {
	return "pid"
}

func (self *Service) ConfigUpdated(path string) {
	if path != "config" {
		return
	}
	controllers := map[string]*Controller{}
	sensors := map[string][]*Controller{}
	for name, conf := range services.Config.Controllers {
		c, err := newController(name, conf)
		if err != nil {
			log.Printf("Failed to load controller %s: %s\n", name, err)
			continue
		}
		// carry over the last reading across reloads
		if old, ok := self.controllers[name]; ok {
			c.value, c.at = old.value, old.at
			c.holdValue, c.holdUntil = old.holdValue, old.holdUntil
		}
		controllers[name] = c
		sensors[conf.Sensor] = append(sensors[conf.Sensor], c)
	}
	self.controllers = controllers
	self.sensors = sensors
	self.subscribeMeasurements()
}

// subscribeMeasurements listens on each distinct measurement topic the
// controllers use. Subscriptions accumulate across config reloads.
func (self *Service) subscribeMeasurements() {
	for _, conf := range services.Config.Controllers {
		topic := conf.Measurement
		if self.subscribed[topic] {
			continue
		}
		self.subscribed[topic] = true
		ch := services.Subscriber.Subscribe(pubsub.Exact(topic))
		go func() {
			for ev := range ch {
				self.events <- ev
			}
		}()
	}
}

func (self *Service) Event(ev *pubsub.Event) {
	device := services.Config.LookupDeviceName(ev)
	now := ev.Timestamp.Local() // schedules are in local time
	for _, c := range self.sensors[device] {
		value, ok := ev.Fields[c.conf.Measurement].(float64)
		if !ok {
			continue
		}
		c.update(value, now)
	}
}

func (self *Service) Heartbeat(now time.Time) {
	for _, name := range self.sorted() {
		c := self.controllers[name]
		if now.Sub(c.lastRun) < c.period() {
			continue
		}
		c.lastRun = now
		self.Check(c, now)
	}
}

func (self *Service) Check(c *Controller, now time.Time) {
	target := c.target(now)

	if c.at.IsZero() || now.Sub(c.at) > c.maxAge() {
		// measurement stale - outputs forced off
		if !c.stale {
			log.Printf("%s: measurement stale, outputs off\n", c.name)
			c.stale = true
			if c.pid != nil {
				c.pid.Reset()
			}
			self.switchOutput(c, c.conf.Raise, &c.raiseOn, false)
			self.switchOutput(c, c.conf.Lower, &c.lowerOn, false)
		}
		self.emitStatus(c, now, target, 0)
		return
	}
	if c.stale {
		log.Printf("%s: measurement recovered\n", c.name)
		c.stale = false
	}

	var control float64
	if c.pid != nil {
		control = c.pid.Update(target, c.value, now)
		self.applyPID(c, control)
	} else {
		self.applyHysteresis(c, target)
	}
	self.emitStatus(c, now, target, control)
}

// applyPID translates the control value to a timed activation of the
// raise or lower output, capped by the period and max_on.
func (self *Service) applyPID(c *Controller, control float64) {
	duration := time.Duration(control * float64(time.Second))
	if duration < 0 {
		duration = -duration
	}
	if duration > c.period() {
		duration = c.period()
	}
	if duration > c.maxOn() {
		duration = c.maxOn()
	}
	if duration < minActivation {
		return
	}

	device := c.conf.Raise
	if control < 0 {
		device = c.conf.Lower
	}
	if device == "" {
		return
	}
	log.Printf("%s: %s on for %s\n", c.name, device, util.FriendlyDuration(duration))
	ev := pubsub.NewCommand(device, "on", 0)
	ev.SetField("duration", duration.Seconds())
	self.Publisher.Emit(ev)
}

func (self *Service) applyHysteresis(c *Controller, target float64) {
	band := c.conf.Band
	if c.conf.Raise != "" {
		switch {
		case c.value < target-band:
			self.switchOutput(c, c.conf.Raise, &c.raiseOn, true)
		case c.value > target+band:
			self.switchOutput(c, c.conf.Raise, &c.raiseOn, false)
		}
	}
	if c.conf.Lower != "" {
		switch {
		case c.value > target+band:
			self.switchOutput(c, c.conf.Lower, &c.lowerOn, true)
		case c.value < target-band:
			self.switchOutput(c, c.conf.Lower, &c.lowerOn, false)
		}
	}
}

func (self *Service) switchOutput(c *Controller, device string, state *bool, on bool) {
	if device == "" || *state == on {
		return
	}
	*state = on
	command := "off"
	if on {
		command = "on"
	}
	log.Printf("%s: turning %s %s\n", c.name, device, command)
	self.Publisher.Emit(pubsub.NewCommand(device, command, 0))
}

// emitStatus publishes a controller event for datalogging.
func (self *Service) emitStatus(c *Controller, now time.Time, target, control float64) {
	fields := pubsub.Fields{
		"source":  "pid." + c.name,
		"device":  "controller." + c.name,
		"target":  target,
		"control": control,
		"stale":   c.stale,
	}
	if !c.at.IsZero() {
		fields["value"] = c.value
	}
	ev := pubsub.NewEvent("controller", fields)
	self.Publisher.Emit(ev)
}

func (self *Service) sorted() []string {
	var names []string
	for name := range self.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (self *Service) Status(now time.Time) string {
	var out []string
	for _, name := range self.sorted() {
		c := self.controllers[name]
		target := c.target(now)
		if c.at.IsZero() {
			out = append(out, fmt.Sprintf("%s: unknown [%v]", name, target))
			continue
		}
		star := ""
		if c.stale {
			star = " STALE"
		}
		out = append(out, fmt.Sprintf("%s: %v at %s [%v]%s",
			name, c.value, c.at.Format(time.Stamp), target, star))
	}
	if len(out) == 0 {
		return "no controllers"
	}
	return strings.Join(out, "\n")
}

func (self *Service) Json(now time.Time) interface{} {
	data := map[string]interface{}{}
	for name, c := range self.controllers {
		entry := map[string]interface{}{
			"target": c.target(now),
			"stale":  c.stale,
		}
		if !c.at.IsZero() {
			entry["value"] = c.value
			entry["at"] = c.at.Format(time.RFC3339)
		}
		data[name] = entry
	}
	return data
}

func (self *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"status": self.queryStatus,
		"set":    services.TextHandler(self.querySet),
		"help": services.StaticHandler("" +
			"status: get status\n" +
			"set controller value [dur (1h)]: hold setpoint for duration\n"),
	}
}

func (self *Service) queryStatus(q services.Question) services.Answer {
	now := Clock()
	return services.Answer{
		Text: self.Status(now),
		Json: self.Json(now),
	}
}

func parseSet(args string, now time.Time) (name string, value float64, duration time.Duration, err error) {
	vs := strings.Fields(args)
	if len(vs) < 2 {
		err = fmt.Errorf("controller and value required")
		return
	}
	name = vs[0]
	value, err = strconv.ParseFloat(vs[1], 64)
	if err != nil {
		return
	}
	duration = time.Hour
	if len(vs) > 2 {
		// a duration ("30m") or relative time ("sun 7pm")
		var until time.Time
		until, err = util.ParseRelative(now, strings.Join(vs[2:], " "))
		if err != nil {
			return
		}
		duration = until.Sub(now)
	}
	return
}

func (self *Service) querySet(q services.Question) string {
	name, value, duration, err := parseSet(q.Args, Clock())
	if err != nil {
		return "usage: set <controller> <value> <duration>"
	}
	c, ok := self.controllers[name]
	if !ok {
		return fmt.Sprintf("controller %q not found", name)
	}
	now := Clock()
	c.setHold(value, duration, now)
	self.Check(c, now)
	return fmt.Sprintf("Holding %s at %v for %s", name, value,
		util.FriendlyDuration(duration))
}

// tick is the shortest configured controller period, so sub-minute
// periods are honored. Clamped to a second.
func (self *Service) tick() time.Duration {
	d := time.Minute
	for _, c := range self.controllers {
		if p := c.period(); p < d {
			d = p
		}
	}
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Run the service
func (self *Service) Run() error {
	self.controllers = map[string]*Controller{}
	self.sensors = map[string][]*Controller{}
	self.subscribed = map[string]bool{}
	self.events = make(chan *pubsub.Event)
	self.Publisher = services.Publisher
	self.ConfigUpdated("config")

	ticker := util.NewScheduler(0, self.tick())
	for {
		select {
		case ev := <-self.events:
			self.Event(ev)
		case tick := <-ticker.C:
			self.Heartbeat(tick)
		}
	}
}
