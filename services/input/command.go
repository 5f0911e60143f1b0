package input

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
)

// Command runs an external command each poll. The command prints either
// a bare number or a json event to stdout. This allows integrating
// sensors driven from any other language.
type Command struct {
	id  string
	cmd string
}

func newCommand(id string, conf config.InputConf) (Driver, error) {
	if conf.Device == "" {
		return nil, errors.New("no command configured")
	}
	return &Command{id: id, cmd: conf.Device}, nil
}

func (c *Command) Source() string {
	return "exec." + c.id
}

func (c *Command) Read() (*pubsub.Event, error) {
	out, err := exec.Command("sh", "-c", c.cmd).Output()
	if err != nil {
		return nil, errors.Wrap(err, "running command")
	}
	line := strings.TrimSpace(string(out))
	if value, err := strconv.ParseFloat(line, 64); err == nil {
		return pubsub.NewEvent("input", pubsub.Fields{"value": value}), nil
	}
	ev := pubsub.Parse(line, "input")
	if ev == nil {
		return nil, errors.Errorf("unparseable output %q", line)
	}
	return ev, nil
}

func (c *Command) Close() error {
	return nil
}
