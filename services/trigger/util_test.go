package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	calls []interface{}
}

func (r *recorder) Switch(device string, state bool) {
	r.calls = append(r.calls, []interface{}{device, state})
}

func (r *recorder) StartTimer(name string, d int64) {
	r.calls = append(r.calls, []interface{}{name, d})
}

func TestDynamicCall(t *testing.T) {
	r := &recorder{}
	err := DynamicCall(r, `Switch("relay.light", true)`)
	assert.NoError(t, err)
	err = DynamicCall(r, `Switch('relay.exhaust', false)`)
	assert.NoError(t, err)
	err = DynamicCall(r, `StartTimer("topup", 30)`)
	assert.NoError(t, err)
	assert.Equal(t, []interface{}{
		[]interface{}{"relay.light", true},
		[]interface{}{"relay.exhaust", false},
		[]interface{}{"topup", int64(30)},
	}, r.calls)
}

func TestDynamicCallErrors(t *testing.T) {
	r := &recorder{}
	assert.Error(t, DynamicCall(r, `Missing("x")`))
	assert.Error(t, DynamicCall(r, `notacall`))
	// wrong argument type
	assert.Error(t, DynamicCall(r, `Switch(1, true)`))
}

func TestSubstitute(t *testing.T) {
	vals := map[string]string{"name": "Grow light", "duration": "2 hours"}
	assert.Equal(t, "Grow light on for 2 hours",
		Substitute("$name on for $duration", vals))
	assert.Equal(t, "$unknown stays", Substitute("$unknown stays", vals))
}
