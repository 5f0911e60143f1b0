package services

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/j13tw/Mycodo/pubsub"
)

// Query with `query`, waiting for `timeout` for results.
func Query(query string, timeout time.Duration) []*pubsub.Event {
	ch := QueryChannel(query, timeout)
	events := []*pubsub.Event{}
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

// QueryChannel issues `query`, returning a channel of answers closed
// after `timeout`.
func QueryChannel(query string, timeout time.Duration) <-chan *pubsub.Event {
	replyTo := fmt.Sprintf("_rpc/%d", rand.Int())
	ch := Subscriber.Subscribe(pubsub.Exact(replyTo))

	SendQuery(query, "rpc", "", replyTo)

	// close the listener after timeout
	go func() {
		time.Sleep(timeout)
		Subscriber.Close(ch)
	}()

	return ch
}

// RPC makes a query, returning the first answer.
func RPC(query string) (string, error) {
	ch := QueryChannel(query, time.Second)
	for ev := range ch {
		return ev.StringField("message"), nil
	}
	return "", errors.New("timeout")
}
