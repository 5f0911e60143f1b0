// Service to drive actuator outputs - pcf8574 i2c expanders, gpio pins
// and external commands. Listens for command events on the bus, applies
// them to the hardware and acks with an output event. Supports timed
// activations ("on for 120 seconds") and configured startup/shutdown
// states.
package output

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
)

// Switcher drives the channels of one configured output.
type Switcher interface {
	Switch(channel string, on bool) error
	State(channel string) (bool, error)
	Close() error
}

type switcherFactory func(key string, conf config.OutputConf) (Switcher, error)

var factories = map[string]switcherFactory{
	"pcf8574": openPCF8574,
	"gpio":    openGPIO,
	"exec":    openExec,
}

// Service output
type Service struct {
	mu        sync.Mutex
	switchers map[string]Switcher
	timers    map[string]*time.Timer
}

// ID of the service
func (self *Service) ID() string {
	return "output"
}

func (self *Service) ConfigUpdated(path string) {
	if path == "config" {
		self.reload()
	}
}

func (self *Service) reload() {
	self.mu.Lock()
	defer self.mu.Unlock()
	// drop outputs removed from config
	for key, sw := range self.switchers {
		if _, ok := services.Config.Outputs[key]; !ok {
			sw.Close()
			delete(self.switchers, key)
		}
	}
	for key, conf := range services.Config.Outputs {
		if _, ok := self.switchers[key]; ok {
			continue
		}
		factory, ok := factories[conf.Interface]
		if !ok {
			log.Printf("%s: unknown interface %q", key, conf.Interface)
			continue
		}
		sw, err := factory(key, conf)
		if err != nil {
			log.Printf("%s: %s", key, err)
			continue
		}
		self.switchers[key] = sw
	}
	log.Printf("%d outputs", len(self.switchers))
}

// lookup resolves a device to its switcher and channel, eg
// "relay.heater" (source pcf8574.0x20.1) -> switcher "0x20", channel "1".
// A source without a channel suffix falls back to the output's
// configured channel.
func (self *Service) lookup(device string) (Switcher, string, bool) {
	for protocol := range factories {
		ident, ok := services.Config.LookupDeviceProtocol(device, protocol)
		if !ok {
			continue
		}
		key, channel := ident, ""
		if conf, ok := services.Config.Outputs[key]; ok {
			if conf.Channel != 0 {
				channel = strconv.Itoa(conf.Channel)
			}
		} else if i := strings.LastIndex(ident, "."); i > 0 {
			key, channel = ident[:i], ident[i+1:]
		}
		self.mu.Lock()
		sw, ok := self.switchers[key]
		self.mu.Unlock()
		if !ok {
			return nil, "", false
		}
		return sw, channel, true
	}
	return nil, "", false
}

func (self *Service) handleCommand(ev *pubsub.Event) {
	device := ev.Device()
	command := ev.Command()
	sw, channel, ok := self.lookup(device)
	if !ok {
		return // command not for us
	}

	var on bool
	switch command {
	case "on":
		on = true
	case "off":
		on = false
	case "toggle":
		state, err := sw.State(channel)
		if err != nil {
			log.Printf("%s: reading state: %s", device, err)
			return
		}
		on = !state
	default:
		log.Println("Command not recognised:", command)
		return
	}

	log.Printf("Setting device %s to %s\n", device, command)
	if err := sw.Switch(channel, on); err != nil {
		log.Printf("%s: switching: %s", device, err)
		return
	}
	self.ack(device, on)

	// timed activation reverts after the duration
	self.mu.Lock()
	if timer, ok := self.timers[device]; ok {
		timer.Stop()
		delete(self.timers, device)
	}
	if duration := ev.FloatField("duration"); duration > 0 {
		self.timers[device] = time.AfterFunc(
			time.Duration(duration*float64(time.Second)),
			func() { self.revert(device, !on) })
	}
	self.mu.Unlock()
}

func (self *Service) revert(device string, on bool) {
	self.mu.Lock()
	delete(self.timers, device)
	self.mu.Unlock()
	sw, channel, ok := self.lookup(device)
	if !ok {
		return
	}
	log.Printf("Timer expired, reverting %s\n", device)
	if err := sw.Switch(channel, on); err != nil {
		log.Printf("%s: reverting: %s", device, err)
		return
	}
	self.ack(device, on)
}

func (self *Service) ack(device string, on bool) {
	command := "off"
	if on {
		command = "on"
	}
	fields := pubsub.Fields{
		"device":  device,
		"command": command,
	}
	ev := pubsub.NewEvent("output", fields)
	services.Publisher.Emit(ev)
}

func (self *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"status": services.TextHandler(self.queryStatus),
		"help":   services.StaticHandler("status: show output states"),
	}
}

func (self *Service) queryStatus(q services.Question) string {
	var devices []string
	for name, dev := range services.Config.Devices {
		if dev.IsSwitchable() {
			devices = append(devices, name)
		}
	}
	sort.Strings(devices)
	var out []string
	for _, device := range devices {
		sw, channel, ok := self.lookup(device)
		if !ok {
			continue
		}
		state, err := sw.State(channel)
		if err != nil {
			out = append(out, fmt.Sprintf("%s: ERROR %s", device, err))
			continue
		}
		s := "off"
		if state {
			s = "on"
		}
		out = append(out, fmt.Sprintf("%s: %s", device, s))
	}
	if len(out) == 0 {
		return "no outputs"
	}
	return strings.Join(out, "\n")
}

func (self *Service) shutdown() {
	self.mu.Lock()
	defer self.mu.Unlock()
	for _, sw := range self.switchers {
		sw.Close()
	}
	self.switchers = map[string]Switcher{}
}

// Run the service
func (self *Service) Run() error {
	self.switchers = map[string]Switcher{}
	self.timers = map[string]*time.Timer{}
	self.reload()

	// apply shutdown states before exiting
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	commandChannel := services.Subscriber.Subscribe(pubsub.Prefix("command"))
	for {
		select {
		case command := <-commandChannel:
			self.handleCommand(command)
		case <-sigc:
			self.shutdown()
			os.Exit(0)
		}
	}
}
