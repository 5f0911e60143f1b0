// Service to poll the configured sensor inputs and emit their
// measurements on the bus. Supported interfaces: i2c (sht3x), 1-wire
// (ds18b20), serial (atlas ezo), modbus meters, system stats and
// external commands.
package input

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
	"github.com/j13tw/Mycodo/util"
)

// Driver reads one sensor input.
type Driver interface {
	Source() string
	Read() (*pubsub.Event, error)
	Close() error
}

type driverFactory func(id string, conf config.InputConf) (Driver, error)

var drivers = map[string]driverFactory{
	"i2c":    newSHT3x,
	"w1":     newDS18B20,
	"serial": newAtlas,
	"modbus": newModbus,
	"system": newSystem,
	"exec":   newCommand,
}

type reading struct {
	event *pubsub.Event
	err   error
	at    time.Time
}

type poller struct {
	id     string
	driver Driver
	period time.Duration
	stop   chan bool
}

// Service input
type Service struct {
	mu       sync.Mutex
	pollers  map[string]*poller
	readings map[string]reading
}

// ID of the service
func (self *Service) ID() string {
	return "input"
}

func (self *Service) ConfigUpdated(path string) {
	if path == "config" {
		self.reload()
	}
}

func (self *Service) reload() {
	self.mu.Lock()
	defer self.mu.Unlock()
	for id, p := range self.pollers {
		close(p.stop)
		delete(self.pollers, id)
	}

	i := 0
	for id, conf := range services.Config.Inputs {
		factory, ok := drivers[conf.Interface]
		if !ok {
			log.Printf("%s: unknown interface %q", id, conf.Interface)
			continue
		}
		driver, err := factory(id, conf)
		if err != nil {
			log.Printf("%s: %s", id, err)
			continue
		}
		period := time.Minute
		if conf.Period != nil {
			period = conf.Period.Duration
		}
		p := &poller{id: id, driver: driver, period: period, stop: make(chan bool)}
		self.pollers[id] = p
		// stagger the pollers so readings don't all land together
		go p.loop(self, time.Duration(i)*2*time.Second)
		i++
	}
	log.Printf("%d inputs polling", len(self.pollers))
}

func (p *poller) loop(service *Service, offset time.Duration) {
	p.read(service) // initial reading
	scheduler := util.NewScheduler(offset, p.period)
	for {
		select {
		case <-p.stop:
			p.driver.Close()
			return
		case <-scheduler.C:
			p.read(service)
		}
	}
}

func (p *poller) read(service *Service) {
	ev, err := p.driver.Read()
	if err != nil {
		log.Printf("%s: read failed: %s", p.driver.Source(), err)
		service.note(p.id, reading{err: err, at: time.Now()})
		return
	}
	ev.SetField("source", p.driver.Source())
	services.Config.AddDeviceToEvent(ev)
	services.Publisher.Emit(ev)
	service.note(p.id, reading{event: ev, at: time.Now()})
}

func (self *Service) note(id string, r reading) {
	self.mu.Lock()
	self.readings[id] = r
	self.mu.Unlock()
}

func (self *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"status": services.TextHandler(self.queryStatus),
		"help":   services.StaticHandler("status: show input readings"),
	}
}

func (self *Service) queryStatus(q services.Question) string {
	self.mu.Lock()
	defer self.mu.Unlock()
	var ids []string
	for id := range self.readings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []string
	now := time.Now()
	for _, id := range ids {
		r := self.readings[id]
		ago := util.ShortDuration(now.Sub(r.at))
		if r.err != nil {
			out = append(out, fmt.Sprintf("%s: ERROR %s (%s ago)", id, r.err, ago))
		} else {
			out = append(out, fmt.Sprintf("%s: %s (%s ago)", id, r.event, ago))
		}
	}
	if len(out) == 0 {
		return "no readings yet"
	}
	return strings.Join(out, "\n")
}

// Run the service
func (self *Service) Run() error {
	self.pollers = map[string]*poller{}
	self.readings = map[string]reading{}
	self.reload()
	select {}
}
