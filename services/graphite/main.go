// Service to bridge measurement events to graphite for time series
// graphing.
package graphite

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/j13tw/Mycodo/lib/graphite"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
	"github.com/j13tw/Mycodo/util"
)

var gr graphite.IGraphite

var graphiteAggs = []string{"avg", "max", "min"}

var ignoredFields = map[string]bool{
	"topic":     true,
	"timestamp": true,
	"source":    true,
	"device":    true,
	"repeat":    true,
	"trigger":   true,
	"status":    true,
}

func sendToGraphite(ev *pubsub.Event) {
	device := services.Config.LookupDeviceName(ev)
	if _, ok := services.Config.Devices[device]; !ok {
		return
	}

	timestamp := ev.Timestamp.UTC().Unix()
	if timestamp == 0 {
		timestamp = time.Now().UTC().Unix()
	}
	for metric, value := range ev.Fields {
		if ignoredFields[metric] {
			continue
		}

		var floatValue float64
		switch v := value.(type) {
		case bool:
			if v {
				floatValue = 1
			}
		case float64:
			floatValue = v
		case string:
			switch v {
			case "on":
				floatValue = 1
			case "off":
				floatValue = 0
			default:
				continue
			}
		default:
			// ignore non-numeric values
			continue
		}

		for _, agg := range graphiteAggs {
			path := fmt.Sprintf("sensor.%s.%s.%s", device, metric, agg)
			gr.Add(path, timestamp, floatValue)
		}
	}

	if err := gr.Flush(); err != nil {
		log.Println("Flush failed:", err)
	}
}

// Service graphite
type Service struct{}

// ID of the service
func (self *Service) ID() string {
	return "graphite"
}

// duty returns the fraction of the period a switched device was on,
// from its recorded command history.
func duty(device string, period time.Duration) (float64, error) {
	target := fmt.Sprintf("sensor.%s.command.avg", device)
	from := fmt.Sprintf("-%ds", int(period.Seconds()))
	series, err := gr.Query(from, "now", target)
	if err != nil {
		return 0, err
	}
	var total, on int
	for _, s := range series {
		for _, dp := range s.Datapoints {
			total++
			if dp.Value > 0 {
				on++
			}
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("no data for %s", device)
	}
	return float64(on) / float64(total), nil
}

func (self *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"duty": services.TextHandler(self.queryDuty),
		"help": services.StaticHandler("duty device [period (24h)]: on duty cycle"),
	}
}

func (self *Service) queryDuty(q services.Question) string {
	args := strings.Fields(q.Args)
	if len(args) == 0 {
		return "usage: duty <device> [period]"
	}
	period := 24 * time.Hour
	if len(args) > 1 {
		var err error
		period, err = util.ParseDuration(args[1])
		if err != nil {
			return "usage: duty <device> [period]"
		}
	}
	d, err := duty(args[0], period)
	if err != nil {
		return fmt.Sprintf("duty failed: %s", err)
	}
	onFor := time.Duration(d * float64(period)).Round(time.Minute)
	return fmt.Sprintf("%s: on %.0f%% of the last %s (%s)",
		args[0], d*100, util.ShortDuration(period), util.ShortDuration(onFor))
}

// Run the service
func (self *Service) Run() error {
	gr = graphite.New(services.Config.Graphite.Url, services.Config.Graphite.Tcp)
	for ev := range services.Subscriber.Subscribe(pubsub.All()) {
		sendToGraphite(ev)
	}
	return nil
}
