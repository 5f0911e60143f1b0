// Service for launching and restarting the other services. Like
// upstart/systemd, but simpler. Also watches the configuration file on
// disk and republishes it to the bus when it changes.
//
// See the mycodo command line utility for controlling this.
package daemon

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/processes"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
)

// Service daemon
type Service struct{}

// ID of the service
func (self *Service) ID() string {
	return "daemon"
}

func publishConfig(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Println("Couldn't read config:", err)
		return
	}
	if _, err := config.OpenRaw(data); err != nil {
		log.Println("Not publishing invalid config:", err)
		return
	}
	services.Stor.Set("mycodo/config", string(data))
	ev := pubsub.NewEvent("config", pubsub.Fields{"yaml": string(data)})
	ev.SetRetained(true)
	services.Publisher.Emit(ev)
	log.Println("Published updated config")
}

// watchConfig republishes the config event when mycodo.yml changes on
// disk. Editors replace files rather than write in place, so watch the
// directory and debounce.
func watchConfig() {
	path := config.ConfigPath("mycodo.yml")
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Println("Couldn't create watcher:", err)
		return
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.Println("Couldn't watch config:", err)
		return
	}

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				publishConfig(path)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Println("Watcher error:", err)
		}
	}
}

func (self *Service) Run() error {
	go watchConfig()
	processes.Daemon()
	return nil
}

func (self *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"status":  services.TextHandler(self.queryStatus),
		"start":   services.TextHandler(self.queryStart),
		"stop":    services.TextHandler(self.queryStop),
		"restart": services.TextHandler(self.queryRestart),
		"help": services.StaticHandler("" +
			"status: get status\n" +
			"start process: start a process\n" +
			"stop process: stop a process\n" +
			"restart process: restart a process\n"),
	}
}

func writeTable(table [][]string) string {
	var out string
	lengths := map[int]int{}
	for _, row := range table {
		for i, value := range row {
			if len(value) > lengths[i] {
				lengths[i] = len(value)
			}
		}
	}

	for _, row := range table {
		for i, value := range row {
			format := fmt.Sprintf("%%-%ds", lengths[i]+1)
			out += fmt.Sprintf(format, value)
		}
		out += "\n"
	}
	return out
}

func allProcesses() []string {
	var ret []string
	for key := range services.Config.Processes {
		ret = append(ret, key)
	}
	return ret
}

func named(q services.Question) ([]string, error) {
	args := strings.Fields(q.Args)
	if len(args) == 0 {
		return nil, fmt.Errorf("process name required")
	}
	for _, name := range args {
		if _, ok := services.Config.Processes[name]; !ok {
			return nil, fmt.Errorf("unknown process: %s", name)
		}
	}
	return args, nil
}

func (self *Service) queryStart(q services.Question) string {
	ps, err := named(q)
	if err != nil {
		return err.Error()
	}
	processes.Start(ps)
	return fmt.Sprintf("Started %s", strings.Join(ps, ", "))
}

func (self *Service) queryStop(q services.Question) string {
	ps, err := named(q)
	if err != nil {
		return err.Error()
	}
	processes.Stop(ps)
	return fmt.Sprintf("Stopped %s", strings.Join(ps, ", "))
}

func (self *Service) queryRestart(q services.Question) string {
	ps, err := named(q)
	if err != nil {
		return err.Error()
	}
	processes.Restart(ps)
	return fmt.Sprintf("Restarted %s", strings.Join(ps, ", "))
}

func (self *Service) queryStatus(q services.Question) string {
	ps := allProcesses()
	sort.Strings(ps)

	running := processes.GetRunning()
	table := [][]string{
		{"Process", "Status", "PID", "Started"},
	}
	for _, name := range ps {
		pinfo := running[name]
		if pinfo.Pid == 0 {
			table = append(table, []string{name, "stopped", "", ""})
		} else {
			table = append(table, []string{name, "running", fmt.Sprint(pinfo.Pid), pinfo.Started})
		}
	}
	return writeTable(table)
}
