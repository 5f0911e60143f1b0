package pid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPIDProportional(t *testing.T) {
	p := &PID{Kp: 10}
	now := time.Now()
	assert.Equal(t, 10.0, p.Update(20, 19, now))
	assert.Equal(t, 20.0, p.Update(20, 18, now.Add(time.Minute)))
	assert.Equal(t, -10.0, p.Update(20, 21, now.Add(2*time.Minute)))
}

func TestPIDIntegral(t *testing.T) {
	p := &PID{Kp: 10, Ki: 0.1, MaxI: 50}
	now := time.Now()
	// first update has no elapsed time, no integral contribution
	assert.Equal(t, 10.0, p.Update(20, 19, now))
	now = now.Add(time.Minute)
	assert.Equal(t, 16.0, p.Update(20, 19, now))
	// integral winds up no further than MaxI
	for i := 0; i < 20; i++ {
		now = now.Add(time.Minute)
		p.Update(20, 19, now)
	}
	assert.Equal(t, 60.0, p.Update(20, 19, now.Add(time.Minute)))
}

func TestPIDDerivative(t *testing.T) {
	p := &PID{Kd: 60}
	now := time.Now()
	assert.Equal(t, 0.0, p.Update(20, 19, now))
	// error grew by 1 over a minute
	assert.Equal(t, 1.0, p.Update(20, 18, now.Add(time.Minute)))
}

func TestPIDReset(t *testing.T) {
	p := &PID{Kp: 10, Ki: 0.1, MaxI: 50}
	now := time.Now()
	p.Update(20, 19, now)
	p.Update(20, 19, now.Add(time.Minute))
	p.Reset()
	assert.Equal(t, 10.0, p.Update(20, 19, now.Add(2*time.Minute)))
}
