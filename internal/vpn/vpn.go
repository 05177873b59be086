// Package vpn controls the OpenVPN client process the daemon manages as
// part of stage transitions.
//
// Grounded on original_source/openvpn.c: start spawns openvpn with
// --management <socket> unix against a fixed config file; stop/status talk
// to that management socket. The original shells out to a hand-rolled
// line reader over the management protocol; here Controller exposes the
// same three operations (Start/Stop/Status) behind an interface so the
// stage reconciler doesn't care whether it's driving the real process or a
// fake in tests.
package vpn

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"
)

// State is the observed state of the managed OpenVPN client.
type State int

const (
	StateStopped State = iota
	StateConnecting
	StateConnected
)

// Controller starts, stops, and queries an OpenVPN client process.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (State, error)
}

// ProcessController manages a real openvpn(8) process via its management
// socket.
type ProcessController struct {
	configFile  string
	mgmtSocket  string
	binary      string

	cmd *exec.Cmd
}

// NewProcessController creates a controller for the given config file and
// management socket path.
func NewProcessController(configFile, mgmtSocket string) *ProcessController {
	return &ProcessController{
		configFile: configFile,
		mgmtSocket: mgmtSocket,
		binary:     "/usr/sbin/openvpn",
	}
}

// Start launches openvpn in the background with a management socket, unless
// it's already running.
func (c *ProcessController) Start(ctx context.Context) error {
	if c.isRunning() {
		return nil
	}
	if _, err := os.Stat(c.configFile); err != nil {
		return fmt.Errorf("vpn: config file not accessible: %w", err)
	}

	os.Remove(c.mgmtSocket)
	cmd := exec.CommandContext(context.Background(), c.binary,
		"--daemon",
		"--management", c.mgmtSocket, "unix",
		"--config", c.configFile,
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("vpn: start openvpn: %w", err)
	}
	c.cmd = cmd
	return nil
}

// Stop signals the management socket to terminate the daemon.
func (c *ProcessController) Stop(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		if !c.isRunning() {
			return nil
		}
		return err
	}
	defer conn.Close()

	_, err = conn.Write([]byte("signal SIGTERM\n"))
	return err
}

// Status queries the management interface's "state" command.
func (c *ProcessController) Status(ctx context.Context) (State, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return StateStopped, nil
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("state\n")); err != nil {
		return StateStopped, err
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return StateStopped, err
	}

	switch {
	case strings.Contains(line, "CONNECTED"):
		return StateConnected, nil
	case strings.Contains(line, "CONNECTING"), strings.Contains(line, "WAIT"), strings.Contains(line, "RECONNECTING"):
		return StateConnecting, nil
	default:
		return StateStopped, nil
	}
}

func (c *ProcessController) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: 2 * time.Second}
	return d.DialContext(ctx, "unix", c.mgmtSocket)
}

func (c *ProcessController) isRunning() bool {
	_, err := os.Stat(c.mgmtSocket)
	return err == nil
}
