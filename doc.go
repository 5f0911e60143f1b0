// The mycodo environmental monitoring and regulation system
//
// Features
//
// - Sensor inputs polled on configurable intervals (I2C, 1-Wire, UART,
// modbus, external scripts)
//
// - Actuator outputs: relays and multi-channel I/O expanders, GPIO,
// shell commands
//
// - PID and hysteresis regulation of temperature, humidity, CO2, pH
//
// - Setpoint methods: daily schedules with ramping between points
//
// - Expression-based conditionals and state machine triggers
//
// - Sunrise/sunset photoperiod events for grow lighting
//
// - Distributed message system (MQTT - run inputs and outputs over a
// network)
//
// - Measurement logging to graphite and sqlite
//
// - REST API (HTTPS) and Telegram alerting
//
// - Lightweight, small memory footprint (runs on the Raspberry Pi)
//
// Services
//
// Each piece of functionality runs as a service - one or many to a
// process, connected by the MQTT message bus. See the services
// subpackages, and cmd/mycodo for the command line entry point.
package mycodo
