package output

import (
	"os/exec"
	"sync"

	"github.com/pkg/errors"

	"github.com/j13tw/Mycodo/config"
)

// command output - shells out to configured on/off commands. Useful for
// actuators with their own vendor CLI.
type command struct {
	onCommand  string
	offCommand string
	shutdown   string

	mu sync.Mutex
	on bool
}

func openExec(key string, conf config.OutputConf) (Switcher, error) {
	if conf.OnCommand == "" || conf.OffCommand == "" {
		return nil, errors.New("on_command and off_command required")
	}
	c := &command{
		onCommand:  conf.OnCommand,
		offCommand: conf.OffCommand,
		shutdown:   conf.Shutdown,
	}
	switch conf.Startup {
	case "on", "off":
		if err := c.Switch("", conf.Startup == "on"); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *command) Switch(channel string, on bool) error {
	line := c.offCommand
	if on {
		line = c.onCommand
	}
	if err := exec.Command("sh", "-c", line).Run(); err != nil {
		return errors.Wrapf(err, "running %q", line)
	}
	c.mu.Lock()
	c.on = on
	c.mu.Unlock()
	return nil
}

func (c *command) State(channel string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on, nil
}

func (c *command) Close() error {
	switch c.shutdown {
	case "on", "off":
		return c.Switch("", c.shutdown == "on")
	}
	return nil
}
