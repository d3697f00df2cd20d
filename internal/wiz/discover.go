package wiz

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/monitoring"
)

// DiscoverConfig tunes network discovery.
type DiscoverConfig struct {
	BroadcastAddr string        // default 255.255.255.255
	Port          int           // default 38899
	Timeout       time.Duration // how long to collect responses, default 2s
}

// Discovered is one bulb that answered the discovery broadcast.
type Discovered struct {
	Addr  string
	Pilot Pilot
}

// Discover broadcasts a getPilot query and collects distinct responding
// addresses until the timeout elapses. Duplicate responses from the same
// address are suppressed. An empty result is not an error; callers that
// need at least one bulb should use FirstLightAddr.
func Discover(ctx context.Context, cfg DiscoverConfig) ([]Discovered, error) {
	if cfg.BroadcastAddr == "" {
		cfg.BroadcastAddr = "255.255.255.255"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("wiz: open discovery socket: %w", err)
	}
	defer conn.Close()

	if err := enableBroadcast(conn); err != nil {
		return nil, fmt.Errorf("wiz: enable broadcast: %w", err)
	}

	payload, err := json.Marshal(command{ID: 1, Method: "getPilot", Params: map[string]interface{}{}})
	if err != nil {
		return nil, fmt.Errorf("wiz: encode discovery query: %w", err)
	}

	dest := &net.UDPAddr{IP: net.ParseIP(cfg.BroadcastAddr), Port: cfg.Port}
	if dest.IP == nil {
		return nil, fmt.Errorf("wiz: invalid broadcast address %q", cfg.BroadcastAddr)
	}
	if _, err := conn.WriteToUDP(payload, dest); err != nil {
		return nil, fmt.Errorf("wiz: send discovery broadcast: %w", err)
	}

	deadline := time.Now().Add(cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	seen := make(map[string]bool)
	var found []Discovered
	buf := make([]byte, 1024)
	for {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return found, fmt.Errorf("wiz: set read deadline: %w", err)
		}
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return found, nil
			}
			return found, fmt.Errorf("wiz: discovery read: %w", err)
		}

		addr := raddr.IP.String()
		if seen[addr] {
			continue
		}
		seen[addr] = true

		var resp Response
		if err := json.Unmarshal(buf[:n], &resp); err != nil {
			monitoring.Logf("wiz: ignoring malformed discovery response from %s: %v", addr, err)
			continue
		}
		pilot, err := resp.Pilot()
		if err != nil {
			monitoring.Logf("wiz: ignoring discovery response without pilot from %s: %v", addr, err)
			continue
		}
		found = append(found, Discovered{Addr: addr, Pilot: pilot})
	}
}

// FirstLightAddr discovers bulbs and returns the address of the first one
// found, or ErrNoLights.
func FirstLightAddr(ctx context.Context, cfg DiscoverConfig) (string, error) {
	lights, err := Discover(ctx, cfg)
	if err != nil {
		return "", err
	}
	if len(lights) == 0 {
		return "", ErrNoLights
	}
	return lights[0].Addr, nil
}

// enableBroadcast sets SO_BROADCAST so the discovery query may be sent to
// the subnet broadcast address.
func enableBroadcast(conn *net.UDPConn) error {
	rc, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := rc.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}
