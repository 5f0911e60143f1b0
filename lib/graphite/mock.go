package graphite

import "encoding/json"

// MockGraphite for testing - records adds, replays a canned query
// response.
type MockGraphite struct {
	Response string
	Lines    []string
}

func (self *MockGraphite) Add(path string, timestamp int64, value float64) error {
	self.Lines = append(self.Lines, path)
	return nil
}

func (self *MockGraphite) Flush() error {
	return nil
}

func (self *MockGraphite) Query(from, until, target string) ([]Dataseries, error) {
	var v []Dataseries
	err := json.Unmarshal([]byte(self.Response), &v)
	if err != nil {
		panic(err)
	}
	return v, nil
}
