package pid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/j13tw/Mycodo/config"
)

var scheduleConf = config.ScheduleConf{
	"Monday": []map[string]float64{
		{"06:00": 24.0},
		{"22:00": 18.0},
	},
}

func mondayAt(hour, min int) time.Time {
	return time.Date(2026, 8, 24, hour, min, 0, 0, time.UTC)
}

func TestScheduleTarget(t *testing.T) {
	s, err := NewSchedule(scheduleConf, false)
	assert.NoError(t, err)

	assert.Equal(t, 24.0, s.Target(mondayAt(7, 0)))
	assert.Equal(t, 24.0, s.Target(mondayAt(21, 59)))
	assert.Equal(t, 18.0, s.Target(mondayAt(23, 0)))
	// before the first point falls back to the last point
	assert.Equal(t, 18.0, s.Target(mondayAt(5, 0)))
}

func TestScheduleFallbackDays(t *testing.T) {
	s, err := NewSchedule(scheduleConf, false)
	assert.NoError(t, err)

	// no points Tuesday-Sunday - the Monday 22:00 point holds all week
	tuesday := mondayAt(10, 0).Add(24 * time.Hour)
	assert.Equal(t, 18.0, s.Target(tuesday))
	sunday := mondayAt(10, 0).Add(6 * 24 * time.Hour)
	assert.Equal(t, 18.0, s.Target(sunday))
}

func TestScheduleRamp(t *testing.T) {
	s, err := NewSchedule(scheduleConf, true)
	assert.NoError(t, err)

	assert.Equal(t, 24.0, s.Target(mondayAt(6, 0)))
	// halfway between 06:00 and 22:00
	assert.Equal(t, 21.0, s.Target(mondayAt(14, 0)))
	assert.Equal(t, 18.0, s.Target(mondayAt(22, 0)))
	// ramps back up towards the next Monday 06:00
	assert.InDelta(t, 23.84, s.Target(mondayAt(2, 0)), 0.01)
}

func TestScheduleInvalid(t *testing.T) {
	_, err := NewSchedule(config.ScheduleConf{}, false)
	assert.Error(t, err)

	_, err = NewSchedule(config.ScheduleConf{
		"Noday": []map[string]float64{{"06:00": 1}},
	}, false)
	assert.Error(t, err)
}
