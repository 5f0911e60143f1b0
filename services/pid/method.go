package pid

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/util"
)

const weekMinutes = 7 * 24 * 60

// Point is a setpoint at a minute of the week.
type Point struct {
	Minute int
	Value  float64
}

// Schedule holds a weekly setpoint schedule. With ramp enabled the
// setpoint is interpolated between points rather than stepped.
type Schedule struct {
	points []Point
	ramp   bool
}

func parseHourMinute(at string) (int, error) {
	hm := strings.Split(at, ":")
	if len(hm) != 2 {
		return 0, errors.Errorf("invalid time %q", at)
	}
	hour, err := strconv.Atoi(hm[0])
	if err != nil {
		return 0, errors.Errorf("invalid time %q", at)
	}
	min, err := strconv.Atoi(hm[1])
	if err != nil {
		return 0, errors.Errorf("invalid time %q", at)
	}
	return hour*60 + min, nil
}

func NewSchedule(conf config.ScheduleConf, ramp bool) (*Schedule, error) {
	var points []Point
	for weekdays, entries := range conf {
		for _, weekday := range strings.Split(weekdays, ",") {
			dow, ok := util.DOW[strings.TrimSpace(weekday)]
			if !ok {
				return nil, errors.Errorf("invalid weekday %q", weekday)
			}
			for _, entry := range entries {
				for at, value := range entry {
					min, err := parseHourMinute(at)
					if err != nil {
						return nil, err
					}
					points = append(points, Point{int(dow)*24*60 + min, value})
				}
			}
		}
	}
	if len(points) == 0 {
		return nil, errors.New("empty schedule")
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Minute < points[j].Minute
	})
	return &Schedule{points: points, ramp: ramp}, nil
}

// Target returns the setpoint at the given time. The schedule wraps
// around the week, so days without points fall back to the last point,
// up to a week earlier.
func (s *Schedule) Target(at time.Time) float64 {
	minute := int(at.Weekday())*24*60 + at.Hour()*60 + at.Minute()

	// index of the first point after minute
	i := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Minute > minute
	})
	next := s.points[i%len(s.points)]
	prev := s.points[(i+len(s.points)-1)%len(s.points)]
	if !s.ramp {
		return prev.Value
	}

	span := (next.Minute - prev.Minute + weekMinutes) % weekMinutes
	if span == 0 {
		return prev.Value
	}
	elapsed := (minute - prev.Minute + weekMinutes) % weekMinutes
	return prev.Value + (next.Value-prev.Value)*float64(elapsed)/float64(span)
}
