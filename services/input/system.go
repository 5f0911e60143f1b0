package input

import (
	"os"

	linuxproc "github.com/c9s/goprocinfo/linux"
	"github.com/pkg/errors"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
)

// System stats of the host running the daemon.
type System struct {
	hostname string
}

func newSystem(id string, conf config.InputConf) (Driver, error) {
	hostname, _ := os.Hostname()
	return &System{hostname: hostname}, nil
}

func (s *System) Source() string {
	return "system." + s.hostname
}

func (s *System) Read() (*pubsub.Event, error) {
	fields := pubsub.Fields{}
	if load, err := linuxproc.ReadLoadAvg("/proc/loadavg"); err == nil {
		fields["load"] = load.Last1Min
	}
	if mem, err := linuxproc.ReadMemInfo("/proc/meminfo"); err == nil && mem.MemTotal > 0 {
		used := float64(mem.MemTotal-mem.MemAvailable) / float64(mem.MemTotal) * 100
		fields["mem_used"] = round2(used)
	}
	if disk, err := linuxproc.ReadDisk("/"); err == nil && disk.All > 0 {
		fields["disk_used"] = round2(float64(disk.Used) / float64(disk.All) * 100)
	}
	if uptime, err := linuxproc.ReadUptime("/proc/uptime"); err == nil {
		fields["uptime"] = int(uptime.Total)
	}
	if len(fields) == 0 {
		return nil, errors.New("no system stats readable")
	}
	return pubsub.NewEvent("system", fields), nil
}

func (s *System) Close() error {
	return nil
}
