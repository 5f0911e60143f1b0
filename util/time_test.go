package util

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ExampleFriendlyDuration() {
	fmt.Println(FriendlyDuration(26 * time.Hour))
	fmt.Println(FriendlyDuration(90 * time.Minute))
	fmt.Println(FriendlyDuration(61 * time.Second))
	fmt.Println(FriendlyDuration(time.Second))
	fmt.Println(FriendlyDuration(50 * time.Millisecond))
	// Output:
	// 1 day 2 hours
	// 1 hour 30 minutes
	// 1 minute 1 second
	// 1 second
	// 50 milliseconds
}

func ExampleShortDuration() {
	fmt.Println(ShortDuration(26 * time.Hour))
	fmt.Println(ShortDuration(90 * time.Minute))
	fmt.Println(ShortDuration(61 * time.Second))
	fmt.Println(ShortDuration(time.Second))
	// Output:
	// 1d 2h
	// 1h 30m
	// 1m 1s
	// 1s
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("90m")
	assert.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	d, err = ParseDuration("1h 30m")
	assert.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	d, err = ParseDuration("2d")
	assert.NoError(t, err)
	assert.Equal(t, 48*time.Hour, d)

	_, err = ParseDuration("xyz")
	assert.Error(t, err)
}

func TestParseRelative(t *testing.T) {
	now := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC) // a Wednesday
	at, err := ParseRelative(now, "30m")
	assert.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), at)

	at, err = ParseRelative(now, "Sunday")
	assert.NoError(t, err)
	assert.Equal(t, time.Sunday, at.Weekday())

	_, err = ParseRelative(now, "whenever")
	assert.Error(t, err)
}

func TestNextSchedule(t *testing.T) {
	now := time.Date(2020, 1, 1, 12, 10, 0, 0, time.UTC)
	next := NextSchedule(now, 0, time.Hour)
	assert.Equal(t, time.Date(2020, 1, 1, 13, 0, 0, 0, time.UTC), next)

	next = NextSchedule(now, 20*time.Minute, time.Hour)
	assert.Equal(t, time.Date(2020, 1, 1, 12, 20, 0, 0, time.UTC), next)
}
