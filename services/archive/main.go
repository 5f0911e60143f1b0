// Service archiving events to a sqlite database, queryable as history.
// Old events are pruned daily past the configured retention.
package archive

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
	"github.com/j13tw/Mycodo/util"
)

const defaultKeep = 90 * 24 * time.Hour

// Service archive
type Service struct {
	archive *Archive
}

// ID of the service
func (self *Service) ID() string {
	return "archive"
}

func archivable(ev *pubsub.Event) bool {
	if strings.HasPrefix(ev.Topic, "_") || strings.HasPrefix(ev.Topic, "command/") {
		return false
	}
	switch ev.Topic {
	case "heartbeat", "log", "query", "alert":
		return false
	}
	return true
}

func (self *Service) event(ev *pubsub.Event) {
	if !archivable(ev) {
		return
	}
	device := services.Config.LookupDeviceName(ev)
	if err := self.archive.Insert(ev, device); err != nil {
		log.Println("Insert failed:", err)
	}
}

func (self *Service) keep() time.Duration {
	if services.Config.Archive.Keep != nil {
		return services.Config.Archive.Keep.Duration
	}
	return defaultKeep
}

func (self *Service) prune() {
	cutoff := time.Now().Add(-self.keep())
	n, err := self.archive.Prune(cutoff)
	if err != nil {
		log.Println("Prune failed:", err)
		return
	}
	if n > 0 {
		log.Printf("Pruned %d archived events", n)
	}
}

func (self *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"history": services.TextHandler(self.queryHistory),
		"help":    services.StaticHandler("history device [period (24h)]: archived events"),
	}
}

func (self *Service) queryHistory(q services.Question) string {
	args := strings.Fields(q.Args)
	if len(args) == 0 {
		return "usage: history <device> [period]"
	}
	period := 24 * time.Hour
	if len(args) > 1 {
		var err error
		period, err = util.ParseDuration(args[1])
		if err != nil {
			return "usage: history <device> [period]"
		}
	}
	events, err := self.archive.History(args[0], time.Now().Add(-period), 25)
	if err != nil {
		return fmt.Sprintf("history failed: %s", err)
	}
	if len(events) == 0 {
		return "no events"
	}
	var out []string
	for _, ev := range events {
		out = append(out, ev.String())
	}
	return strings.Join(out, "\n")
}

// Run the service
func (self *Service) Run() error {
	path := util.ExpandUser(services.Config.Archive.Path)
	archive, err := OpenArchive(path)
	if err != nil {
		return err
	}
	self.archive = archive
	defer archive.Close()

	daily := util.NewScheduler(4*time.Hour, 24*time.Hour)
	events := services.Subscriber.Subscribe(pubsub.All())
	for {
		select {
		case ev := <-events:
			self.event(ev)
		case <-daily.C:
			self.prune()
		}
	}
}
