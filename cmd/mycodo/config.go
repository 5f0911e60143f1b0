package main

import (
	"fmt"
	"os"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/pubsub"
	"github.com/j13tw/Mycodo/services"
)

// uploadConfig pushes a yaml file to the store and publishes it as a
// retained config event, so running services pick it up immediately.
func uploadConfig(topic string, ps []string) {
	filename := config.ConfigPath("mycodo.yml")
	if len(ps) > 0 {
		filename = ps[0]
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error reading %s: %s\n", filename, err)
		return
	}

	if topic == "config" {
		// validate before publishing
		if _, err := config.OpenRaw(data); err != nil {
			fmt.Println("Invalid config:", err)
			return
		}
	}

	services.Setup("cli")
	defer services.Shutdown()
	services.Stor.Set("mycodo/"+topic, string(data))

	ev := pubsub.NewEvent(topic, pubsub.Fields{"yaml": string(data)})
	ev.SetRetained(true)
	services.Publisher.Emit(ev)
	ev.Published.Wait()
	fmt.Printf("Updated %s (%d bytes)\n", topic, len(data))
}
