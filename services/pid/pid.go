package pid

import "time"

// PID is a proportional-integral-derivative regulator. The control
// value is in seconds of actuation per check, positive meaning raise
// and negative meaning lower.
type PID struct {
	Kp   float64
	Ki   float64
	Kd   float64
	MaxI float64 // clamp on the integral term, in seconds

	integral float64
	lastErr  float64
	lastAt   time.Time
}

// Update advances the regulator with a new reading.
func (p *PID) Update(setpoint, value float64, now time.Time) float64 {
	err := setpoint - value
	var dt float64
	if !p.lastAt.IsZero() {
		dt = now.Sub(p.lastAt).Seconds()
	}

	p.integral += p.Ki * err * dt
	if p.MaxI > 0 {
		if p.integral > p.MaxI {
			p.integral = p.MaxI
		} else if p.integral < -p.MaxI {
			p.integral = -p.MaxI
		}
	}

	var derivative float64
	if dt > 0 {
		derivative = (err - p.lastErr) / dt
	}
	p.lastErr = err
	p.lastAt = now

	return p.Kp*err + p.integral + p.Kd*derivative
}

// Reset clears accumulated state, used when measurements go stale.
func (p *PID) Reset() {
	p.integral = 0
	p.lastErr = 0
	p.lastAt = time.Time{}
}
