package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub/dummy"
	"github.com/j13tw/Mycodo/services"
)

func Example_interfaces() {
	var _ services.Service = (*Service)(nil)
	// Output:
}

func ExampleIndex() {
	rec := httptest.NewRecorder()
	r := http.Request{}
	apiIndex(rec, &r)
	fmt.Println(rec.Body)
	// Output:
	// <html>Mycodo is listening</html>
}

func TestDevices(t *testing.T) {
	services.Stor = services.NewMockStore()
	services.Config = config.ExampleConfig
	rec := httptest.NewRecorder()
	r := http.Request{}
	apiDevices(rec, &r)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"relay.heater"`)
	assert.Contains(t, rec.Body.String(), `"temp.tent"`)
}

func TestDevicesControl(t *testing.T) {
	services.Config = config.ExampleConfig
	em := dummy.Publisher{}
	services.Publisher = &em
	rec := httptest.NewRecorder()
	uri, _ := url.Parse("http://example.com/devices/control?id=relay.heater&command=on")
	r := http.Request{URL: uri}
	apiDevicesControl(rec, &r)
	assert.Equal(t, 200, rec.Code)
	if assert.Len(t, em.Events, 1) {
		assert.Equal(t, "command/relay.heater", em.Events[0].Topic)
		assert.Equal(t, "on", em.Events[0].Command())
	}
}

func TestDevicesControlDuration(t *testing.T) {
	services.Config = config.ExampleConfig
	em := dummy.Publisher{}
	services.Publisher = &em
	rec := httptest.NewRecorder()
	uri, _ := url.Parse("http://example.com/devices/control?id=relay.exhaust&command=on&duration=120")
	r := http.Request{URL: uri}
	apiDevicesControl(rec, &r)
	assert.Equal(t, 200, rec.Code)
	if assert.Len(t, em.Events, 1) {
		assert.Equal(t, 120.0, em.Events[0].FloatField("duration"))
	}

	// bad durations are rejected, not dropped
	rec = httptest.NewRecorder()
	uri, _ = url.Parse("http://example.com/devices/control?id=relay.exhaust&command=on&duration=soon")
	r = http.Request{URL: uri}
	apiDevicesControl(rec, &r)
	assert.Equal(t, 500, rec.Code)
	assert.Len(t, em.Events, 1)
}

func TestDevicesControlUnknown(t *testing.T) {
	services.Config = config.ExampleConfig
	em := dummy.Publisher{}
	services.Publisher = &em
	rec := httptest.NewRecorder()
	uri, _ := url.Parse("http://example.com/devices/control?id=nonsense")
	r := http.Request{URL: uri}
	apiDevicesControl(rec, &r)
	assert.Equal(t, 500, rec.Code)
	assert.Empty(t, em.Events)
}

func TestInputsOutputs(t *testing.T) {
	services.Config = config.ExampleConfig
	rec := httptest.NewRecorder()
	r := http.Request{}
	apiInputs(rec, &r)
	assert.Contains(t, rec.Body.String(), `"28-03168b618bff"`)

	rec = httptest.NewRecorder()
	apiOutputs(rec, &r)
	assert.Contains(t, rec.Body.String(), `"0x20"`)
}

func TestConfigRoundtrip(t *testing.T) {
	services.Stor = services.NewMockStore()
	services.Config = config.ExampleConfig
	services.Stor.Set("mycodo/config", "devices:\n")

	rec := httptest.NewRecorder()
	uri, _ := url.Parse("http://example.com/config?path=mycodo/config")
	r := http.Request{URL: uri, Method: "GET"}
	apiConfig(rec, &r)
	assert.Equal(t, "devices:\n", rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	handler := CORSHandler{Handler: http.NotFoundHandler(), SupportsCredentials: true}
	rec := httptest.NewRecorder()
	r := httptest.NewRequest("OPTIONS", "http://example.com/devices", nil)
	r.Header.Set("Origin", "http://other.example.com")
	handler.ServeHTTP(rec, r)
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "http://other.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
