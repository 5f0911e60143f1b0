package suntime

import (
	"log"
	"math"
	"time"

	"github.com/j13tw/Mycodo/services"
)

type Location struct {
	Latitude  float64
	Longitude float64
}

const (
	DegToRad = math.Pi / 180
	RadToDeg = 180 / math.Pi
	// zenith angles for the phases of the day
	ZenithLight        = 88
	ZenithOfficial     = 90 + 50.0/60
	ZenithCivil        = 96
	ZenithNautical     = 102
	ZenithAstronomical = 108
)

func (pos Location) Sunrise(day time.Time, zenith float64) time.Time {
	return pos.calculate(day, zenith, true)
}

func (pos Location) Sunset(day time.Time, zenith float64) time.Time {
	return pos.calculate(day, zenith, false)
}

func (pos Location) calculate(now time.Time, zenith float64, sunrise bool) time.Time {
	// Sunrise/Sunset Algorithm taken from:
	// http://williams.best.vwh.net/sunrise_sunset_algorithm.htm
	day := now.YearDay()

	// convert the longitude to hour value and calculate an approximate time
	lnHour := pos.Longitude / 15
	var t float64
	if sunrise {
		t = float64(day) + ((6 - lnHour) / 24)
	} else {
		t = float64(day) + ((18 - lnHour) / 24)
	}

	// the Sun's mean anomaly
	M := (0.9856 * t) - 3.289

	// the Sun's true longitude
	L := M + (1.916 * math.Sin(M*DegToRad)) + (0.020 * math.Sin(2*M*DegToRad)) + 282.634
	if L > 360 {
		L = L - 360
	} else if L < 0 {
		L = L + 360
	}

	// the Sun's right ascension
	RA := RadToDeg * math.Atan(0.91764*math.Tan(L*DegToRad))
	if RA > 360 {
		RA = RA - 360
	} else if RA < 0 {
		RA = RA + 360
	}

	// right ascension needs to be in the same quadrant as L
	Lquadrant := (math.Floor(L / 90)) * 90
	RAquadrant := (math.Floor(RA / 90)) * 90
	RA = RA + (Lquadrant - RAquadrant)

	// right ascension in hours
	RA /= 15

	// the Sun's declination
	sinDec := 0.39782 * math.Sin(L*DegToRad)
	cosDec := math.Cos(math.Asin(sinDec))

	// the Sun's local hour angle
	cosH := (math.Cos(zenith*DegToRad) - (sinDec * math.Sin(pos.Latitude*DegToRad))) / (cosDec * math.Cos(pos.Latitude*DegToRad))
	var H float64
	if sunrise {
		H = 360 - RadToDeg*math.Acos(cosH)
	} else {
		H = RadToDeg * math.Acos(cosH)
	}
	H /= 15

	// local mean time of rising/setting
	T := H + RA - (0.06571 * t) - 6.622

	// adjust back to UTC
	UT := T - lnHour
	if UT > 24 {
		UT -= 24
	} else if UT < 0 {
		UT += 24
	}

	hour := int(UT) % 24
	minute := int(UT*60) % 60
	second := int(UT*3600) % 60
	return time.Date(now.Year(), now.Month(), now.Day(),
		hour, minute, second, 0, time.UTC)
}

// nextEvent returns the next phase change after now. The day runs
// sunrise, light, dark, sunset.
func nextEvent(loc Location, now time.Time) (at time.Time, name string) {
	if sunrise := loc.Sunrise(now, ZenithOfficial); now.Before(sunrise) {
		return sunrise, "sunrise"
	}
	if light := loc.Sunrise(now, ZenithLight); now.Before(light) {
		return light, "light"
	}
	if dark := loc.Sunset(now, ZenithLight); now.Before(dark) {
		return dark, "dark"
	}
	if sunset := loc.Sunset(now, ZenithOfficial); now.Before(sunset) {
		return sunset, "sunset"
	}
	if sunrise := loc.Sunrise(now.Add(time.Hour*24), ZenithOfficial); now.Before(sunrise) {
		return sunrise, "sunrise"
	}
	log.Println("This shouldn't happen")
	return
}

// previousEvent returns the most recent phase change before now, used
// to announce the current phase at startup.
func previousEvent(loc Location, now time.Time) (at time.Time, name string) {
	if sunset := loc.Sunset(now, ZenithOfficial); now.After(sunset) {
		return sunset, "sunset"
	}
	if dark := loc.Sunset(now, ZenithLight); now.After(dark) {
		return dark, "dark"
	}
	if light := loc.Sunrise(now, ZenithLight); now.After(light) {
		return light, "light"
	}
	if sunrise := loc.Sunrise(now, ZenithOfficial); now.After(sunrise) {
		return sunrise, "sunrise"
	}
	return loc.Sunset(now.Add(-time.Hour*24), ZenithOfficial), "sunset"
}

type TimeEvent struct {
	At    time.Time
	Event string
}

func location() Location {
	return Location{
		Latitude:  services.Config.Suntime.Latitude,
		Longitude: services.Config.Suntime.Longitude,
	}
}

func sunChannel() chan TimeEvent {
	ch := make(chan TimeEvent)
	go func() {
		for {
			at, event := nextEvent(location(), time.Now())
			delay := time.Until(at)
			log.Printf("Next: %s at %v (in %s)\n", event, at.Local(), delay)
			time.Sleep(delay)
			ch <- TimeEvent{at, event}
		}
	}()
	return ch
}
