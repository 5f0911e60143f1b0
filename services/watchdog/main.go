// Service for monitoring devices to ensure they're still alive and emitting
// events. Watches a given list of device ids, and alerts if an event has not
// been seen from a device in a configurable time period. Also pings a list
// of hosts and monitors service heartbeats.
package watchdog

import (
	"fmt"
	"log"
	"net"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/tatsushid/go-fastping"

	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
	"github.com/j13tw/Mycodo/util"
)

type WatchdogDevice struct {
	Name        string
	Timeout     time.Duration
	Alerted     bool
	LastAlerted time.Time
	LastEvent   time.Time
}

type WatchdogDevices []*WatchdogDevice

func (self WatchdogDevices) Less(i, j int) bool {
	return self[i].LastEvent.Before(self[j].LastEvent)
}

func (self WatchdogDevices) Len() int {
	return len(self)
}

func (self WatchdogDevices) Swap(i, j int) {
	self[i], self[j] = self[j], self[i]
}

var devices map[string]*WatchdogDevice
var repeatInterval, _ = time.ParseDuration("12h")

var sendEmail = smtp.SendMail

func sendAlert(name, state string, since time.Time) {
	log.Printf("Sending %s watchdog alert for: %s\n", state, name)
	duration := time.Now().Sub(since)
	message := fmt.Sprintf("%s: %s since %s (%s ago)", state, name,
		since.Local().Format(time.Stamp), util.ShortDuration(duration))

	if target := services.Config.Watchdog.Alert; target != "" {
		services.SendAlert(message, target, "", 0)
	}

	email := services.Config.General.Email
	if email.Server == "" || email.Admin == "" {
		return
	}
	to := []string{email.Admin}
	msg := fmt.Sprintf("Subject: %s: %s\n\n%s\n", state, name, message)
	err := sendEmail(email.Server, nil, email.From, to, []byte(msg))
	if err != nil {
		log.Println("Error sending email:", err)
	}
}

func touch(device string, timestamp time.Time) {
	w := devices[device]
	if w == nil {
		return
	}

	// recovered?
	if w.Alerted {
		w.Alerted = false
		sendAlert(w.Name, "RECOVERED", w.LastEvent)
	}
	w.LastEvent = timestamp
}

func checkEvent(ev *pubsub.Event) {
	if ev.Topic == "heartbeat" {
		touch(ev.Device(), ev.Timestamp)
		return
	}
	device := services.Config.LookupDeviceName(ev)
	if device == "" {
		return
	}
	touch(device, ev.Timestamp)
}

func checkTimeouts() {
	timeouts := []string{}
	var lastEvent time.Time
	for _, w := range devices {
		if w.Alerted {
			// check if should repeat
			if time.Since(w.LastAlerted) > repeatInterval {
				timeouts = append(timeouts, w.Name)
				lastEvent = w.LastEvent
				w.LastAlerted = time.Now()
			}
		} else if time.Since(w.LastEvent) > w.Timeout {
			// first alert
			timeouts = append(timeouts, w.Name)
			lastEvent = w.LastEvent
			w.Alerted = true
			w.LastAlerted = time.Now()
		}
	}

	// send a single alert for multiple devices
	if len(timeouts) > 0 {
		sendAlert(strings.Join(timeouts, ", "), "PROBLEM", lastEvent)
	}
}

// pinger answers are fed back as touches on ping.<host> pseudo-devices.
func pinger(hosts []string, touched chan string) {
	p := fastping.NewPinger()
	addrs := map[string]string{}
	for _, host := range hosts {
		addr, err := net.ResolveIPAddr("ip4:icmp", host)
		if err != nil {
			log.Println("Failed to resolve:", host)
			continue
		}
		p.AddIPAddr(addr)
		addrs[addr.String()] = host
	}
	p.OnRecv = func(addr *net.IPAddr, rtt time.Duration) {
		if host, ok := addrs[addr.String()]; ok {
			touched <- host
		}
	}
	for {
		if err := p.Run(); err != nil {
			log.Println("Ping failed:", err)
		}
		time.Sleep(time.Minute)
	}
}

// Service watchdog
type Service struct{}

func (self *Service) ID() string {
	return "watchdog"
}

func (self *Service) Run() error {
	devices = map[string]*WatchdogDevice{}
	now := time.Now()
	for device, timeout := range services.Config.Watchdog.Devices {
		duration, err := util.ParseDuration(timeout)
		if err != nil {
			log.Println("Failed to parse timeout:", timeout)
			continue
		}
		// give devices grace period for first event
		devices[device] = &WatchdogDevice{
			Name:      services.Config.Devices[device].Name,
			Timeout:   duration,
			LastEvent: now,
		}
	}

	// monitor mycodo process heartbeats
	for process, conf := range services.Config.Processes {
		if strings.HasPrefix(conf.Cmd, "mycodo run") {
			device := fmt.Sprintf("heartbeat.%s", process)
			// if a process misses 2 heartbeats, mark as problem
			devices[device] = &WatchdogDevice{
				Name:      fmt.Sprintf("Process %s", process),
				Timeout:   time.Second * 121,
				LastEvent: now,
			}
		}
	}

	touched := make(chan string, 16)
	if pings := services.Config.Watchdog.Pings; len(pings) > 0 {
		for _, host := range pings {
			devices["ping."+host] = &WatchdogDevice{
				Name:      fmt.Sprintf("Host %s", host),
				Timeout:   5 * time.Minute,
				LastEvent: now,
			}
		}
		go pinger(pings, touched)
	}

	ticker := time.NewTicker(time.Minute)
	events := services.Subscriber.Subscribe(pubsub.All())
	for {
		select {
		case ev := <-events:
			checkEvent(ev)
		case host := <-touched:
			touch("ping."+host, time.Now())
		case <-ticker.C:
			checkTimeouts()
		}
	}
}

func (self *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"status": services.TextHandler(self.queryStatus),
		"help":   services.StaticHandler("status: get status\n"),
	}
}

func (self *Service) queryStatus(q services.Question) string {
	var out string
	var list WatchdogDevices
	for _, device := range devices {
		list = append(list, device)
	}
	// return oldest last
	sort.Sort(sort.Reverse(list))

	now := time.Now()
	for _, w := range list {
		problem := ""
		if w.Alerted {
			problem = " PROBLEM"
		}
		ago := util.ShortDuration(now.Sub(w.LastEvent))
		out += fmt.Sprintf("- %-6s %s%s\n", ago, w.Name, problem)
	}
	return out
}
