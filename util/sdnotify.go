package util

import (
	"net"
	"os"
)

const (
	SdNotifyReady    = "READY=1"
	SdNotifyStopping = "STOPPING=1"
	SdNotifyWatchdog = "WATCHDOG=1"
)

// SdNotify sends a state notification to the systemd notify socket, if
// there is one. Outside systemd this is a no-op.
func SdNotify(unsetEnv bool, state string) error {
	socket := os.Getenv("NOTIFY_SOCKET")
	if socketAddr := socket; socketAddr == "" {
		return nil
	}
	if unsetEnv {
		defer os.Unsetenv("NOTIFY_SOCKET")
	}

	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: socket, Net: "unixgram"})
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Write([]byte(state))
	return err
}
