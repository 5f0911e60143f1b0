package config

var ExampleYaml = `
devices:
  temp.tent:
    name: Tent temperature
    group: tent
    caps: [temp, humidity]
    source: sht3x.1
    location: Grow tent
  temp.reservoir:
    name: Reservoir temperature
    source: ds18b20.28-03168b618bff
    location: Reservoir
  ph.reservoir:
    name: Reservoir pH
    source: atlas.ph0
    location: Reservoir
  relay.heater:
    name: Tent heater
    group: tent
    caps: [relay, switch]
    source: pcf8574.0x20.1
  relay.exhaust:
    name: Exhaust fan
    group: tent
    caps: [relay, switch]
    source: pcf8574.0x20.2
  relay.light:
    name: Grow light
    group: tent
    caps: [relay, switch]
    source: gpio.17
  power.tent:
    name: Tent power meter
    source: sdm.1
inputs:
  '1':
    interface: i2c
    bus: 1
    address: '0x44'
    period: 30s
  '28-03168b618bff':
    interface: w1
    device: 28-03168b618bff
    period: 1m
  ph0:
    interface: serial
    device: /dev/ttyUSB0
    period: 1m
  sdm:
    interface: modbus
    host: 192.168.1.60:502
    slave: 1
    period: 30s
    registers:
      - register: 40069
        measurement: power
        scale: 0.1
  system:
    interface: system
    period: 1m
outputs:
  '0x20':
    interface: pcf8574
    bus: 1
    address: '0x20'
    on_state: low
    startup: 'off'
    shutdown: 'off'
  '17':
    interface: gpio
    pin: 17
controllers:
  tent:
    sensor: temp.tent
    measurement: temp
    mode: pid
    raise: relay.heater
    lower: relay.exhaust
    method: tent
    kp: 120
    ki: 0.5
    kd: 60
    period: 1m
    max_on: 50s
    min_age: 6m
  reservoir:
    sensor: temp.reservoir
    measurement: temp
    mode: hysteresis
    raise: relay.heater
    setpoint: 19
    band: 0.5
    period: 1m
    min_age: 6m
methods:
  tent:
    ramp: true
    schedule:
      Monday,Tuesday,Wednesday,Thursday,Friday,Saturday,Sunday:
        - '06:00': 24.0
        - '22:00': 18.0
conditionals:
  dry_tent:
    condition: humidity.tent < 40 && temp.tent > 26
    refractory: 30m
    actions:
      - device: relay.exhaust
        command: 'on'
        duration: 120
      - alert: 'Tent dry: $humidity.tent%'
        target: telegram
suntime:
  latitude: 51.5072
  longitude: -0.1275
endpoints:
  mqtt:
    broker: tcp://127.0.0.1:1883
  api:
    address: ':8723'
datalogger:
  path: ~/.mycodo/data
archive:
  path: ~/.mycodo/archive.db
  keep: 2160h
graphite:
  url: http://localhost:8080
  tcp: localhost
watchdog:
  alert: telegram
  devices:
    temp.tent: 5m
    temp.reservoir: 10m
  pings:
    - 192.168.1.60
processes:
  input:
    cmd: mycodo run input
  output:
    cmd: mycodo run output
  pid:
    cmd: mycodo run pid
general:
  email:
    admin: admin@example.com
    from: mycodo@example.com
    server: localhost:25
telegram:
  token: ''
  chat_id: 0
`

var ExampleConfig *Config

func init() {
	var err error
	ExampleConfig, err = OpenRaw([]byte(ExampleYaml))
	if err != nil {
		panic(err)
	}
}
