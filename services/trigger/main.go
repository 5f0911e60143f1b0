// Service for state machine based automation. Triggers link bus events
// to actions through finite state machines, covering behaviour the
// regulation controllers don't:
//
// - debouncing a float switch before topping up the reservoir
//
// - alerting when a door is left open with the lights on
//
// - switching ventilation on at sunrise and off at sunset
//
// The machines are yaml configured, templated over the device list, and
// live under the config/triggers bus event:
//
//	mycodo config triggers ~/.config/mycodo/triggers.yml
//
// For the configuration format, see:
//
// http://godoc.org/github.com/barnybug/gofsm
package trigger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/barnybug/gofsm"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
	"github.com/j13tw/Mycodo/util"
)

const configKey = "mycodo/config/triggers"
const stateKey = "mycodo/state/triggers/"

var eventsLogPath = config.LogPath("events.log")

// current machines, also read by the State() match function
var automata *gofsm.Automata

func openLogFile() *os.File {
	logfile, err := os.OpenFile(eventsLogPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		log.Println("Couldn't open events.log:", err)
		logfile, _ = os.Open(os.DevNull)
	}
	return logfile
}

// Service trigger
type Service struct {
	timers map[string]*time.Timer
	log    *os.File
}

// ID of the service
func (self *Service) ID() string {
	return "trigger"
}

func loadTriggers(data string) (*gofsm.Automata, error) {
	tmpl, err := template.New("triggers").Parse(data)
	if err != nil {
		return nil, err
	}
	context := map[string]interface{}{
		"devices": services.Config.Devices,
	}
	wr := new(bytes.Buffer)
	if err := tmpl.Execute(wr, context); err != nil {
		return nil, err
	}
	return gofsm.Load(wr.Bytes())
}

func (self *Service) persistStore(name string) {
	state := automata.Persist()
	value, _ := json.Marshal(state[name])
	if err := services.Stor.Set(stateKey+name, string(value)); err != nil {
		log.Println("Persisting trigger state failed:", err)
	}
}

func (self *Service) restoreStore(aut *gofsm.Automata) {
	p := gofsm.AutomataState{}
	for name := range aut.Automaton {
		value, err := services.Stor.Get(stateKey + name)
		if err != nil {
			continue // not yet persisted
		}
		var ps gofsm.AutomatonState
		if err := json.Unmarshal([]byte(value), &ps); err != nil {
			log.Println("Restoring trigger state failed:", err)
			continue
		}
		p[name] = ps
	}
	aut.Restore(p)
}

// relevant filters the events worth feeding to the machines.
func relevant(ev *pubsub.Event) bool {
	switch ev.Topic {
	case "alert", "heartbeat", "controller", "log":
		return false
	}
	if strings.HasPrefix(ev.Topic, "_") {
		return false
	}
	return ev.Command() != "" || ev.State() != "" || ev.Topic == "time"
}

// Run the service
func (self *Service) Run() error {
	self.log = openLogFile()
	self.timers = map[string]*time.Timer{}

	automata, _ = gofsm.Load(nil) // empty until configured
	if data, err := services.Stor.Get(configKey); err == nil {
		if loaded, err := loadTriggers(data); err == nil {
			self.restoreStore(loaded)
			automata = loaded
			log.Printf("Initial states: %s", automata)
		} else {
			log.Println("Failed to load triggers:", err)
		}
	} else {
		log.Println("No triggers configured yet")
	}

	// reload on the retained config event
	waiter := services.NewConfigWaiter(pubsub.Exact("config/triggers"))
	go func() {
		for {
			waiter.Wait()
		}
	}()

	// persisting is slow, run in the background
	chanPersist := make(chan string, 32)
	go func() {
		for name := range chanPersist {
			self.persistStore(name)
		}
	}()

	events := services.Subscriber.Subscribe(pubsub.All())
	for {
		select {
		case ev := <-events:
			if !relevant(ev) {
				continue
			}
			automata.Process(NewEventWrapper(ev))

		case change := <-automata.Changes:
			trigger := change.Trigger.(EventWrapper)
			s := fmt.Sprintf("%-17s %s->%s", "["+change.Automaton+"]", change.Old, change.New)
			log.Printf("%-40s (event: %s)", s, trigger)
			chanPersist <- change.Automaton
			if !strings.Contains(change.Automaton, ".") {
				continue
			}
			// emit the change as a state event
			ps := strings.SplitN(change.Automaton, ".", 2)
			fields := pubsub.Fields{
				"source":  ps[1],
				"state":   change.New,
				"trigger": trigger.String(),
			}
			services.Publisher.Emit(pubsub.NewEvent(ps[0], fields))

		case action := <-automata.Actions:
			wrapper := action.Trigger.(EventWrapper)
			ea := EventAction{self, wrapper.event, action.Change}
			if err := DynamicCall(ea, action.Name); err != nil {
				log.Println("Error:", err)
			}

		case <-waiter.Updated:
			log.Println("Triggers updated, reloading")
			updated, err := loadTriggers(string(waiter.Value))
			if err != nil {
				log.Println("Failed to reload triggers:", err)
				continue
			}
			self.restoreStore(updated)
			automata = updated
			log.Println("Triggers reloaded")
		}
	}
}

func (self *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"status": services.TextHandler(self.queryStatus),
		"switch": services.TextHandler(self.querySwitch),
		"logs":   services.TextHandler(self.queryLogs),
		"help": services.StaticHandler("" +
			"status: get trigger states\n" +
			"switch device on|off: switch device\n" +
			"logs: get recent event logs\n"),
	}
}

func (self *Service) queryStatus(q services.Question) string {
	var keys []string
	for k := range automata.Automaton {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out string
	now := time.Now()
	for _, k := range keys {
		name := k
		if dev, ok := services.Config.Devices[k]; ok {
			name = dev.Name
		}
		aut := automata.Automaton[k]
		du := util.ShortDuration(now.Sub(aut.Since))
		out += fmt.Sprintf("%s: %s for %s\n", name, aut.State.Name, du)
	}
	if out == "" {
		return "no triggers"
	}
	return out
}

func (self *Service) querySwitch(q services.Question) string {
	args := strings.Fields(q.Args)
	if len(args) == 0 {
		return "usage: switch <device> on|off [duration=secs]"
	}
	command, fields := util.ParseArgs(args[1:])
	if command == "" {
		command = "on"
	}
	matches := services.MatchDevices(args[0])
	if len(matches) == 0 {
		return fmt.Sprintf("device %s not found", args[0])
	}
	if len(matches) > 1 {
		return fmt.Sprintf("device %s is ambiguous", strings.Join(matches, ", "))
	}
	ev := pubsub.NewCommand(matches[0], command, 0)
	ev.SetFields(fields)
	services.Publisher.Emit(ev)
	return fmt.Sprintf("Switched %s %s", matches[0], command)
}

func tail(filename string, lines int64) ([]byte, error) {
	n := fmt.Sprintf("-n%d", lines)
	return exec.Command("tail", n, filename).Output()
}

func (self *Service) queryLogs(q services.Question) string {
	data, err := tail(eventsLogPath, 25)
	if err != nil {
		return fmt.Sprintf("Couldn't retrieve logs: %s", err)
	}
	return string(data)
}

func (self *Service) appendLog(msg string) {
	fmt.Fprintln(self.log, msg)
}

// EventAction is the receiver for trigger actions, dispatched to by
// name from the machine configuration.
type EventAction struct {
	service *Service
	event   *pubsub.Event
	change  gofsm.Change
}

func (self EventAction) substitute(msg string) string {
	device := services.Config.LookupDeviceName(self.event)
	name := device
	if dev, ok := services.Config.Devices[device]; ok && dev.Name != "" {
		name = dev.Name
	}
	now := time.Now()
	vals := map[string]string{
		"name":      name,
		"duration":  util.FriendlyDuration(self.change.Duration),
		"timestamp": now.Format(time.Kitchen),
		"datetime":  now.Format(time.StampMilli),
	}
	return Substitute(msg, vals)
}

func (self EventAction) Log(msg string) {
	msg = self.substitute("$datetime: " + msg)
	self.service.appendLog(msg)
}

func (self EventAction) Alert(message string, target string) {
	message = self.substitute(message)
	log.Printf("Alert (%s): %s", target, message)
	services.SendAlert(message, target, "", 0)
}

func (self EventAction) Switch(device string, state bool) {
	command := "off"
	if state {
		command = "on"
	}
	log.Printf("Switching %s %s", device, command)
	services.Publisher.Emit(pubsub.NewCommand(device, command, 0))
}

// SwitchFor switches a device on or off for a number of seconds.
func (self EventAction) SwitchFor(device string, state bool, seconds int64) {
	command := "off"
	if state {
		command = "on"
	}
	log.Printf("Switching %s %s for %ds", device, command, seconds)
	ev := pubsub.NewCommand(device, command, 0)
	ev.SetField("duration", float64(seconds))
	services.Publisher.Emit(ev)
}

func (self EventAction) Script(cmd string) {
	log.Println("Script:", cmd)
	// run non-blocking
	go func() {
		cmd = util.ExpandUser(cmd)
		if _, err := exec.Command(cmd).Output(); err != nil {
			log.Printf("Exec %s: %s", cmd, err)
		}
	}()
}

func (self EventAction) StartTimer(name string, d int64) {
	duration := time.Duration(d) * time.Second
	if timer, ok := self.service.timers[name]; ok {
		timer.Stop()
	}
	self.service.timers[name] = time.AfterFunc(duration, func() {
		fields := pubsub.Fields{
			"source":  name,
			"command": "on",
		}
		services.Publisher.Emit(pubsub.NewEvent("timer", fields))
	})
}
