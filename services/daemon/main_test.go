package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/services"
)

func Example_interfaces() {
	var _ services.Service = (*Service)(nil)
	var _ services.Queryable = (*Service)(nil)
	// Output:
}

func TestWriteTable(t *testing.T) {
	out := writeTable([][]string{
		{"Process", "Status"},
		{"input", "running"},
	})
	assert.Equal(t, "Process Status  \ninput   running \n", out)
}

func TestNamed(t *testing.T) {
	services.Config = config.ExampleConfig
	_, err := named(services.Question{Args: ""})
	assert.Error(t, err)
	_, err = named(services.Question{Args: "nonsense"})
	assert.Error(t, err)
	ps, err := named(services.Question{Args: "input output"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"input", "output"}, ps)
}
