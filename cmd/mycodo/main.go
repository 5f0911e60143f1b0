package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/j13tw/Mycodo/config"
	"github.com/j13tw/Mycodo/processes"
	"github.com/j13tw/Mycodo/services"
	"github.com/j13tw/Mycodo/services/api"
	"github.com/j13tw/Mycodo/services/archive"
	"github.com/j13tw/Mycodo/services/conditional"
	"github.com/j13tw/Mycodo/services/daemon"
	"github.com/j13tw/Mycodo/services/datalogger"
	"github.com/j13tw/Mycodo/services/graphite"
	"github.com/j13tw/Mycodo/services/input"
	"github.com/j13tw/Mycodo/services/output"
	"github.com/j13tw/Mycodo/services/pid"
	"github.com/j13tw/Mycodo/services/suntime"
	"github.com/j13tw/Mycodo/services/telegram"
	"github.com/j13tw/Mycodo/services/trigger"
	"github.com/j13tw/Mycodo/services/watchdog"
)

func registerServices() {
	// register available services
	services.Register(&api.Service{})
	services.Register(&archive.Service{})
	services.Register(&conditional.Service{})
	services.Register(&daemon.Service{})
	services.Register(&datalogger.Service{})
	services.Register(&graphite.Service{})
	services.Register(&input.Service{})
	services.Register(&output.Service{})
	services.Register(&pid.Service{})
	services.Register(&suntime.Service{})
	services.Register(&telegram.Service{})
	services.Register(&trigger.Service{})
	services.Register(&watchdog.Service{})
}

func usage() {
	fmt.Println("Usage: mycodo COMMAND [PROCESS/SERVICE]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("   config  [file]      Upload configuration")
	fmt.Println("   triggers [file]     Upload trigger configuration")
	fmt.Println("   logs    [process]   Tail logs")
	fmt.Println("   ps                  List process status")
	fmt.Println("   restart [process]   Restart a process")
	fmt.Println("   rotate  [process]   Rotate logs")
	fmt.Println("   run     service...  Run services in the foreground")
	fmt.Println("   start   [process]   Start a process")
	fmt.Println("   status              Get service status")
	fmt.Println("   stop    [process]   Stop a process")
	fmt.Println("   query   q...        Query services")
	fmt.Println()
}

// loadLocalConfig reads the on-disk configuration, for the process
// management commands that run without the bus.
func loadLocalConfig() {
	conf, err := config.Open()
	if err != nil {
		log.Fatalln("Couldn't open config:", err)
	}
	services.Config = conf
}

func main() {
	log.SetOutput(os.Stdout)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	ps := []string{}
	if flag.NArg() > 1 {
		ps = flag.Args()[1:]
	}
	// ignore anything after '--'
	for i := range ps {
		if ps[i] == "--" {
			ps = ps[0:i]
			break
		}
	}

	services.SetupLogging()

	command := flag.Args()[0]
	switch command {
	default:
		usage()
	case "config":
		uploadConfig("config", ps)
	case "triggers":
		uploadConfig("config/triggers", ps)
	case "start":
		loadLocalConfig()
		processes.Start(ps)
	case "stop":
		loadLocalConfig()
		processes.Stop(ps)
	case "restart":
		loadLocalConfig()
		processes.Restart(ps)
	case "ps":
		loadLocalConfig()
		processes.Status(ps)
	case "rotate":
		loadLocalConfig()
		processes.Rotate(ps)
	case "status":
		query("status", ps)
	case "run":
		service(ps)
	case "query":
		if len(ps) == 0 {
			usage()
			return
		}
		query(ps[0], ps[1:])
	case "logs":
		loadLocalConfig()
		processes.Logs(ps)
	}
}

// Start builtin services
func service(ss []string) {
	if len(ss) == 0 {
		usage()
		return
	}
	services.Setup(ss[0])
	registerServices()
	services.Launch(ss)
}
