package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/j13tw/Mycodo/services"
)

// query sends a query over the bus and prints the answers.
func query(first string, rest []string) {
	services.Setup("cli")
	defer services.Shutdown()

	q := strings.TrimSpace(first + " " + strings.Join(rest, " "))
	ch := services.QueryChannel(q, 5*time.Second)

	n := 0
	for ev := range ch {
		source := ev.Source()
		message := ev.StringField("message")
		if strings.Contains(message, "\n") {
			fmt.Printf("\x1b[32;1m%s\x1b[0m\n%s\n", source, message)
		} else {
			fmt.Printf("\x1b[32;1m%s\x1b[0m %s\n", source, message)
		}
		n += 1
	}
	if n == 0 {
		fmt.Println("No response")
	}
}
