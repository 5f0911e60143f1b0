// Package graphite talks to a graphite server - plaintext protocol for
// writes, the render API for queries.
package graphite

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const BatchSize = 4096

type IGraphite interface {
	Add(path string, timestamp int64, value float64) error
	Flush() error
	Query(from, until, target string) ([]Dataseries, error)
}

type Graphite struct {
	url    string
	tcp    string
	buffer string
}

var dialer = func(network, address string) (io.ReadWriteCloser, error) {
	return net.Dial(network, address)
}

// New graphite client. url is the render endpoint, tcp the host for the
// plaintext listener (port 2003).
func New(url string, tcp string) *Graphite {
	return &Graphite{url: url, tcp: tcp}
}

func (graphite *Graphite) Add(path string, timestamp int64, value float64) error {
	line := fmt.Sprintf("%s %v %d\n", path, value, timestamp)
	graphite.buffer += line
	if len(graphite.buffer) > BatchSize {
		return graphite.Flush()
	}
	return nil
}

func (graphite *Graphite) Flush() error {
	if graphite.buffer == "" {
		return nil
	}
	conn, err := dialer("tcp", graphite.tcp+":2003")
	if err != nil {
		return err
	}
	conn.Write([]byte(graphite.buffer))
	conn.Close()
	graphite.buffer = ""
	return nil
}

type Datapoint struct {
	At    time.Time
	Value float64
}

func (dp *Datapoint) UnmarshalJSON(data []byte) error {
	var v []*float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 2 {
		return errors.New("Datapoint incorrect length")
	}
	if v[0] != nil {
		dp.Value = *v[0]
	}
	if v[1] != nil {
		dp.At = time.Unix(int64(*v[1]), 0)
	}
	return nil
}

type Dataseries struct {
	Target     string
	Datapoints []Datapoint
}

func (graphite *Graphite) Query(from, until, target string) ([]Dataseries, error) {
	vs := url.Values{
		"from":   []string{from},
		"until":  []string{until},
		"target": []string{target},
		"format": []string{"json"}}
	uri := fmt.Sprintf("%s/render?%s", graphite.url, vs.Encode())
	resp, err := http.Get(uri)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	d := json.NewDecoder(resp.Body)
	var v []Dataseries
	if err := d.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
