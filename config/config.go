// Package config handles the mycodo.yml configuration - devices, sensor
// inputs, actuator outputs, regulation controllers and service settings.
// Configuration is distributed to running services as a retained bus
// event, so every service reloads live on change.
package config

import (
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/util"
)

type DeviceConf struct {
	Id       string   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Group    string   `json:"group"`
	Location string   `json:"location"`
	Source   string   `json:"source"`
	Caps     []string `json:"caps"`
	Cap      map[string]bool
}

func (device *DeviceConf) IsSwitchable() bool {
	return device.Cap["switch"] || device.Cap["relay"] || device.Cap["light"]
}

// Duration with friendly yaml parsing ("30s", "10m", "1h").
type Duration struct {
	Duration time.Duration
}

func (self *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var value string
	if err := unmarshal(&value); err != nil {
		return err
	}
	val, err := time.ParseDuration(value)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", value)
	}
	self.Duration = val
	return nil
}

// RegisterConf maps one modbus input register to a measurement.
type RegisterConf struct {
	Register    uint16
	Measurement string
	Scale       float64
}

type InputConf struct {
	Interface string // i2c, w1, serial, modbus, exec, system
	Bus       int
	Address   string // i2c hex address eg 0x44
	Device    string // serial device / w1 id / command line
	Host      string // modbus tcp address
	Slave     byte
	Period    *Duration
	Registers []RegisterConf
}

type OutputConf struct {
	Interface  string // pcf8574, gpio, exec
	Bus        int
	Address    string // i2c hex address eg 0x20
	Channel    int    // pcf8574 channel 1-8
	Pin        int    // gpio pin number
	OnState    string `yaml:"on_state"` // high (default) or low
	Startup    string // state applied at service start: on, off or empty
	Shutdown   string // state applied at service stop
	OnCommand  string `yaml:"on_command"`  // exec interface
	OffCommand string `yaml:"off_command"` // exec interface
}

// ScheduleConf is a daily setpoint schedule:
//
//	Monday,Tuesday:
//	  - '06:00': 22.0
//	  - '22:00': 16.0
type ScheduleConf map[string][]map[string]float64

// MethodConf is a named setpoint method - a schedule plus optional
// ramping between points.
type MethodConf struct {
	Schedule ScheduleConf
	Ramp     bool
}

type ControllerConf struct {
	Sensor      string // device supplying the measurement
	Measurement string // field name: temp, humidity, co2, ph...
	Mode        string // pid (default) or hysteresis
	Raise       string // output device driving the measurement up
	Lower       string // output device driving the measurement down
	Setpoint    float64
	Method      string // named method overriding the static setpoint
	Kp          float64
	Ki          float64
	Kd          float64
	Band        float64 // hysteresis half-band
	Period      *Duration
	MaxOn       *Duration `yaml:"max_on"`
	MinAge      *Duration `yaml:"min_age"`
}

type ActionConf struct {
	Device   string
	Command  string
	Duration float64 // seconds, for timed activations
	Alert    string
	Target   string
}

type ConditionalConf struct {
	Condition  string
	Refractory *Duration
	Actions    []ActionConf
}

type SuntimeConf struct {
	Latitude  float64
	Longitude float64
}

type EndpointsConf struct {
	Mqtt struct {
		Broker string
	}
	Api struct {
		Address string
		Cert    string
		Key     string
	}
}

type DataloggerConf struct {
	Path string
}

type ArchiveConf struct {
	Path string
	Keep *Duration
}

type GraphiteConf struct {
	Url string
	Tcp string
}

type WatchdogConf struct {
	Devices map[string]string
	Pings   []string
	Alert   string
}

type TelegramConf struct {
	Token   string
	Chat_id int64
}

type GeneralEmailConf struct {
	Admin  string
	From   string
	Server string
}

type GeneralConf struct {
	Email GeneralEmailConf
}

type ProcessConf struct {
	Cmd  string
	Path string
}

// Configuration structure
type Config struct {
	Devices      map[string]DeviceConf
	Inputs       map[string]InputConf
	Outputs      map[string]OutputConf
	Controllers  map[string]ControllerConf
	Methods      map[string]MethodConf
	Conditionals map[string]ConditionalConf
	Suntime      SuntimeConf
	Endpoints    EndpointsConf
	Datalogger   DataloggerConf
	Archive      ArchiveConf
	Graphite     GraphiteConf
	Watchdog     WatchdogConf
	Telegram     TelegramConf
	General      GeneralConf
	Processes    map[string]ProcessConf

	sources map[string]string
}

// Open configuration from disk.
func Open() (*Config, error) {
	file, err := os.Open(ConfigPath("mycodo.yml"))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return OpenReader(file)
}

// Open configuration from a reader.
func OpenReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return OpenRaw(data)
}

// Open configuration from []byte.
func OpenRaw(data []byte) (*Config, error) {
	self := &Config{}
	err := yaml.Unmarshal(data, self)
	if err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}

	self.sources = map[string]string{}
	for id, device := range self.Devices {
		device.Id = id
		if len(device.Caps) == 0 {
			major := strings.Split(id, ".")[0]
			device.Caps = []string{major}
		}
		device.Type = device.Caps[0]
		device.Cap = map[string]bool{}
		for _, c := range device.Caps {
			device.Cap[c] = true
		}
		self.Devices[id] = device
		if device.Source != "" {
			self.sources[device.Source] = id
		}
	}

	return self, nil
}

// LookupDeviceName finds the device name for an event by its source
// (protocol.id). Unrecognised sources map to themselves, so new hardware
// shows up in logs before it is configured.
func (self *Config) LookupDeviceName(ev *pubsub.Event) string {
	if device := ev.Device(); device != "" {
		return device
	}
	source := ev.Source()
	if device, ok := self.sources[source]; ok {
		return device
	}
	return source
}

// AddDeviceToEvent resolves and sets the device field from source.
func (self *Config) AddDeviceToEvent(ev *pubsub.Event) {
	if device, ok := self.sources[ev.Source()]; ok {
		ev.SetField("device", device)
	}
}

// LookupDeviceProtocol returns the protocol-local id for a device, eg
// ("relay.heater", "pcf8574") -> "0x20.1".
func (self *Config) LookupDeviceProtocol(device string, protocol string) (string, bool) {
	conf, ok := self.Devices[device]
	if !ok || conf.Source == "" {
		return "", false
	}
	ps := strings.SplitN(conf.Source, ".", 2)
	if len(ps) != 2 || ps[0] != protocol {
		return "", false
	}
	return ps[1], true
}

// helpers

// Resolve a configuration file under .config/mycodo
func ConfigPath(p string) string {
	config := os.Getenv("XDG_CONFIG_HOME")
	if config == "" {
		config = path.Join(os.Getenv("HOME"), ".config")
	}
	return path.Join(config, "mycodo", p)
}

// Get path to a log file
func LogPath(p string) string {
	return path.Join(util.ExpandUser("~/.mycodo/log"), p)
}
