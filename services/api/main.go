// Package api is a service providing an HTTP REST API to query mycodo and
// control devices.
//
// The endpoints supported are:
//
// https://localhost:8723/query/{query} - query a service, e.g. https://localhost:8723/query/pid/status
//
// https://localhost:8723/devices - list of devices with last state
//
// https://localhost:8723/devices/control?id=device&command=on - switch a device
//
// https://localhost:8723/inputs - configured inputs
//
// https://localhost:8723/outputs - configured outputs
//
// https://localhost:8723/controllers/status - regulation controller status
//
// https://localhost:8723/controllers/set?id=tent&setpoint=22&until=1h - override a setpoint
//
// https://localhost:8723/events/feed - continuous live stream of events (line delimited)
//
// https://localhost:8723/config?path=mycodo/config - GET configuration or POST to update configuration
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
)

// Service api
type Service struct {
}

// ID of the service
func (service *Service) ID() string {
	return "api"
}

func errorResponse(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), 500)
}

func apiIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "text/html")
	fmt.Fprintf(w, "<html>Mycodo is listening</html>")
}

func jsonResponse(w http.ResponseWriter, obj interface{}) {
	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	err := enc.Encode(obj)
	if err != nil {
		errorResponse(w, err)
	}
}

func query(endpoint string, q string, w http.ResponseWriter) {
	w.Header().Add("Content-Type", "application/json; charset=utf-8")

	ch := services.QueryChannel(strings.TrimSpace(endpoint+" "+q), 500*time.Millisecond)

	for ev := range ch {
		fmt.Fprintf(w, ev.String()+"\r\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func apiQuery(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Path[len("/query/"):]
	q := r.URL.Query().Get("q")
	query(endpoint, q, w)
}

type deviceAndState struct {
	config.DeviceConf
	State interface{} `json:"state"`
}

func getDevicesState() map[string]interface{} {
	ret := make(map[string]interface{})
	nodes, _ := services.Stor.GetRecursive("mycodo/state/devices")
	for _, node := range nodes {
		ev := pubsub.Parse(node.Value, "")
		if ev == nil {
			continue
		}
		name := node.Key[strings.LastIndex(node.Key, "/")+1:]
		ret[name] = ev.Map()
	}
	return ret
}

func apiDevices(w http.ResponseWriter, r *http.Request) {
	ret := make(map[string]deviceAndState)
	state := getDevicesState()

	for name, dev := range services.Config.Devices {
		ret[name] = deviceAndState{dev, state[name]}
	}

	jsonResponse(w, ret)
}

func apiDevicesControl(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	device := q.Get("id")
	if _, ok := services.Config.Devices[device]; !ok {
		errorResponse(w, fmt.Errorf("device not found: %s", device))
		return
	}
	command := q.Get("command")
	if command == "" {
		command = "off"
	}
	ev := pubsub.NewCommand(device, command, 0)
	if s := q.Get("duration"); s != "" {
		duration, err := strconv.ParseFloat(s, 64)
		if err != nil {
			errorResponse(w, fmt.Errorf("bad duration: %s", s))
			return
		}
		// outputs expect a numeric duration in seconds
		ev.SetField("duration", duration)
	}
	services.Publisher.Emit(ev)
	jsonResponse(w, true)
}

func apiInputs(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, services.Config.Inputs)
}

func apiOutputs(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, services.Config.Outputs)
}

func apiControllersStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	ch := services.QueryChannel("pid/status", 500*time.Millisecond)
	for ev := range ch {
		jsonResponse(w, ev.Fields["json"])
		return
	}
	errorResponse(w, errors.New("pid service not responding"))
}

func apiControllersSet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	args := fmt.Sprintf("%s %s", q.Get("id"), q.Get("setpoint"))
	if until := q.Get("until"); until != "" {
		args += " " + until
	}
	query("pid/set", args, w)
}

func apiEventsFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topics := q.Get("topics")
	w.Header().Add("Content-Type", "application/json; boundary=NL")

	var matchers []pubsub.Topic
	if topics != "" {
		for _, topic := range strings.Split(topics, ",") {
			matchers = append(matchers, pubsub.Exact(topic))
		}
	} else {
		matchers = append(matchers, pubsub.All())
	}
	ch := services.Subscriber.Subscribe(matchers...)
	defer services.Subscriber.Close(ch)

	for ev := range ch {
		data := ev.Map()
		device := services.Config.LookupDeviceName(ev)
		if device != "" {
			data["device"] = device
		}
		encoder := json.NewEncoder(w)
		err := encoder.Encode(data)
		if err != nil {
			break
		}
		w.Write([]byte("\r\n")) // separator
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func apiConfig(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		errorResponse(w, errors.New("path parameter required"))
		return
	}

	value, err := services.Stor.Get(path)
	if err != nil {
		errorResponse(w, err)
		return
	}

	if r.Method == "GET" {
		w.Header().Add("Content-Type", "application/yaml; charset=utf-8")
		w.Write([]byte(value))
	} else if r.Method == "POST" {
		data, err := ioutil.ReadAll(r.Body)
		if err != nil {
			errorResponse(w, err)
			return
		}

		sout := string(data)
		if sout != value {
			services.Stor.Set(path, sout)
			topic := strings.TrimPrefix(path, "mycodo/")
			ev := pubsub.NewEvent(topic, pubsub.Fields{"yaml": sout})
			ev.SetRetained(true)
			services.Publisher.Emit(ev)
			log.Printf("%s changed, emitted %s event", path, topic)
		}
	}
}

func apiLogs(w http.ResponseWriter, r *http.Request) {
	logs := []string{}
	infos, err := ioutil.ReadDir(config.LogPath(""))
	if err != nil {
		errorResponse(w, err)
		return
	}

	for _, info := range infos {
		logs = append(logs, info.Name())
	}
	jsonResponse(w, logs)
}

func apiLogsLog(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)
	filename := config.LogPath(params["file"])
	file, err := os.Open(filename)
	if err != nil {
		errorResponse(w, err)
		return
	}
	defer file.Close()

	w.Header().Add("Content-Type", "text/plain; charset=utf-8")
	io.Copy(w, file)
}

func router() *mux.Router {
	router := mux.NewRouter()
	router.Path("/").HandlerFunc(apiIndex)
	router.PathPrefix("/query/").HandlerFunc(apiQuery)
	router.Path("/devices").HandlerFunc(apiDevices)
	router.Path("/devices/control").HandlerFunc(apiDevicesControl)
	router.Path("/inputs").HandlerFunc(apiInputs)
	router.Path("/outputs").HandlerFunc(apiOutputs)
	router.Path("/controllers/status").HandlerFunc(apiControllersStatus)
	router.Path("/controllers/set").HandlerFunc(apiControllersSet)
	router.Path("/events/feed").HandlerFunc(apiEventsFeed)
	router.Path("/config").HandlerFunc(apiConfig)
	router.Path("/logs").HandlerFunc(apiLogs)
	router.Path("/logs/{file}").HandlerFunc(apiLogsLog)
	return router
}

type loggingHandler struct {
	Handler http.Handler
}

func (h loggingHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Printf("%s %s\n", req.Method, req.RequestURI)
	h.Handler.ServeHTTP(w, req)
}

func httpEndpoint() error {
	// gorilla/handlers LoggingHandler wraps the ResponseWriter and hides
	// Flush, so roll a plain logger
	var handler http.Handler = router()
	handler = loggingHandler{Handler: handler}
	// Allow CORS+http auth (so the api can be placed behind http auth)
	corsHandler := CORSHandler{Handler: handler}
	corsHandler.SupportsCredentials = true
	corsHandler.AllowHeaders = func(headers []string) bool {
		for _, header := range headers {
			if header != "accept" && header != "authorization" {
				return false
			}
		}
		return true
	}

	conf := services.Config.Endpoints.Api
	addr := conf.Address
	if addr == "" {
		addr = ":8723"
	}
	log.Println("Listening on " + addr)
	if conf.Cert != "" && conf.Key != "" {
		return http.ListenAndServeTLS(addr, conf.Cert, conf.Key, corsHandler)
	}
	return http.ListenAndServe(addr, corsHandler)
}

func recordEvents() {
	for ev := range services.Subscriber.Subscribe(pubsub.All()) {
		if strings.HasPrefix(ev.Topic, "_") {
			continue
		}
		device := services.Config.LookupDeviceName(ev)
		if device != "" {
			key := "mycodo/state/devices/" + device
			services.Stor.Set(key, ev.String())
		}
	}
}

// Run the service
func (service *Service) Run() error {
	go recordEvents()
	return httpEndpoint()
}
