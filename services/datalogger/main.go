// Service for logging events to log files on disk.
//
// Events are appended as json lines to a file named 'data.log' under a
// directory named by the event topic.
package datalogger

import (
	"log"
	"os"
	"path"
	"strings"

	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
	"github.com/j13tw/Mycodo/util"
)

var logDir string

func ensureDirectory(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		os.MkdirAll(path, 0755)
	}
}

func writeToLogFile(ev *pubsub.Event) {
	device := services.Config.LookupDeviceName(ev)
	if device != "" {
		ev.Fields["device"] = device
	}
	p := path.Join(logDir, ev.Topic)
	ensureDirectory(p)
	p = path.Join(p, "data.log")
	// reopen the log file each time, so that log rotation can happen in
	// the background
	fio, err := os.OpenFile(p, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0660)
	if err != nil {
		log.Println("Couldn't write file:", err)
		return
	}
	defer fio.Close()

	fio.Write(ev.Bytes())
	fio.WriteString("\n")
}

func event(ev *pubsub.Event) {
	if strings.HasPrefix(ev.Topic, "_") || strings.HasPrefix(ev.Topic, "command/") {
		return
	}
	writeToLogFile(ev)
}

// Service datalogger
type Service struct{}

// ID of the service
func (self *Service) ID() string {
	return "datalogger"
}

func (self *Service) ConfigUpdated(path string) {
	logDir = util.ExpandUser(services.Config.Datalogger.Path)
}

// Run the service
func (self *Service) Run() error {
	self.ConfigUpdated("config")
	for ev := range services.Subscriber.Subscribe(pubsub.All()) {
		event(ev)
	}
	return nil
}
