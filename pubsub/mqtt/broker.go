// Package mqtt adapts the pubsub interfaces to an mqtt broker. All
// topics live under the "mycodo/" prefix, so a whole installation can be
// watched with a single wildcard subscription.
package mqtt

import (
	"fmt"
	"log"
	"math/rand"
	"os"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/j13tw/Mycodo/pubsub"
)

// Client is the shared mqtt connection, exposed for services that need
// to talk raw mqtt to third-party devices on the same broker.
var Client MQTT.Client

type Broker struct {
	broker     string
	client     MQTT.Client
	subscriber *Subscriber
}

func NewBroker(url string, name string) *Broker {
	hostname, _ := os.Hostname()
	clientID := fmt.Sprintf("%s/%s-%d-%d", name, hostname, os.Getpid(), rand.Int31())

	self := &Broker{broker: url}
	self.subscriber = NewSubscriber(self)

	opts := MQTT.NewClientOptions()
	opts.AddBroker(url)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetDefaultPublishHandler(self.subscriber.publishHandler)
	opts.SetOnConnectHandler(self.subscriber.connectHandler)

	self.client = MQTT.NewClient(opts)
	if token := self.client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln("Couldn't connect to mqtt:", token.Error())
	}
	Client = self.client
	return self
}

func (self *Broker) Id() string {
	return "mqtt: " + self.broker
}

func (self *Broker) Subscriber() pubsub.Subscriber {
	return self.subscriber
}

func (self *Broker) Publisher() pubsub.Publisher {
	return &Publisher{broker: self.broker, client: self.client}
}
