// Package wiz implements the UDP JSON control protocol spoken by WiZ smart
// bulbs: a request/response envelope on port 38899 with getPilot, setState,
// and setPilot methods, plus subnet broadcast discovery.
//
// The client exposes two explicit send modes. Discovery and explicit
// control/status commands await a response with a short timeout; real-time
// color updates are fire-and-forget to minimize latency on constrained
// wireless links.
package wiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// DefaultPort is the UDP control port used by the bulbs.
const DefaultPort = 38899

// DefaultTimeout bounds how long an awaited command waits for a reply.
const DefaultTimeout = time.Second

var (
	// ErrNoResponse reports that a bulb did not answer an awaited command
	// before the timeout.
	ErrNoResponse = errors.New("wiz: no response from light")

	// ErrNoLights reports that discovery found no bulbs on the network.
	ErrNoLights = errors.New("wiz: no lights found on network")
)

// command is the request envelope. The id is fixed; the protocol does not
// correlate concurrent requests and the client never pipelines them.
type command struct {
	ID     int         `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// Response is the reply envelope.
type Response struct {
	ID     int             `json:"id"`
	Method string          `json:"method"`
	Env    string          `json:"env,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

// RPCError is a protocol-level error returned by a bulb.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("wiz: rpc error %d: %s", e.Code, e.Message)
}

// Pilot is the decoded result of a getPilot query.
type Pilot struct {
	Mac     string `json:"mac,omitempty"`
	State   bool   `json:"state"`
	R       int    `json:"r,omitempty"`
	G       int    `json:"g,omitempty"`
	B       int    `json:"b,omitempty"`
	Dimming int    `json:"dimming,omitempty"`
	SceneID int    `json:"sceneId,omitempty"`
	RSSI    int    `json:"rssi,omitempty"`
}

// Pilot decodes the response result as a getPilot payload.
func (r *Response) Pilot() (Pilot, error) {
	var p Pilot
	if r.Error != nil {
		return p, r.Error
	}
	if len(r.Result) == 0 {
		return p, fmt.Errorf("wiz: response has no result")
	}
	if err := json.Unmarshal(r.Result, &p); err != nil {
		return p, fmt.Errorf("wiz: malformed pilot result: %w", err)
	}
	return p, nil
}

// pilotParams is the setPilot payload.
type pilotParams struct {
	R       int `json:"r"`
	G       int `json:"g"`
	B       int `json:"b"`
	Dimming int `json:"dimming"`
}

// stateParams is the setState payload.
type stateParams struct {
	State bool `json:"state"`
}

// Config holds per-light settings.
type Config struct {
	Addr    string        // IP address of the bulb, required
	Port    int           // control port, default 38899
	Timeout time.Duration // awaited-command timeout, default 1s
}

// Light is a client for a single bulb. Identity is the address. Safe for
// concurrent use; the fire-and-forget connection is guarded.
type Light struct {
	addr    string
	port    int
	timeout time.Duration

	mu   sync.Mutex
	conn *net.UDPConn // lazily dialed, reused for fire-and-forget sends
}

// NewLight creates a client for the bulb at cfg.Addr.
func NewLight(cfg Config) *Light {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Light{addr: cfg.Addr, port: cfg.Port, timeout: cfg.Timeout}
}

// Addr returns the bulb's IP address.
func (l *Light) Addr() string { return l.addr }

// GetPilot queries the bulb's current state.
func (l *Light) GetPilot(ctx context.Context) (Pilot, error) {
	resp, err := l.sendAwait(ctx, "getPilot", map[string]interface{}{})
	if err != nil {
		return Pilot{}, err
	}
	return resp.Pilot()
}

// SetState turns the bulb on or off and awaits confirmation.
func (l *Light) SetState(ctx context.Context, on bool) error {
	_, err := l.sendAwait(ctx, "setState", stateParams{State: on})
	return err
}

// SetPilot sets color and brightness and awaits confirmation. Used for
// explicit control commands; the real-time path uses SetColorNoWait.
func (l *Light) SetPilot(ctx context.Context, r, g, b, brightness int) error {
	_, err := l.sendAwait(ctx, "setPilot", pilotParams{
		R:       clampChannel(r),
		G:       clampChannel(g),
		B:       clampChannel(b),
		Dimming: ScaleDimming(brightness),
	})
	return err
}

// SetColorNoWait sends a setPilot command without awaiting a response.
// Delivery is best effort; the continuous update stream makes individual
// losses invisible.
func (l *Light) SetColorNoWait(r, g, b, brightness int) error {
	payload, err := json.Marshal(command{ID: 1, Method: "setPilot", Params: pilotParams{
		R:       clampChannel(r),
		G:       clampChannel(g),
		B:       clampChannel(b),
		Dimming: ScaleDimming(brightness),
	}})
	if err != nil {
		return fmt.Errorf("wiz: encode command: %w", err)
	}

	conn, err := l.fireConn()
	if err != nil {
		return err
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("wiz: send to %s: %w", l.addr, err)
	}
	return nil
}

// Close releases the fire-and-forget connection if one was dialed.
func (l *Light) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}

// fireConn returns the persistent fire-and-forget connection, dialing it on
// first use.
func (l *Light) fireConn() (*net.UDPConn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return l.conn, nil
	}
	raddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", l.addr, l.port))
	if err != nil {
		return nil, fmt.Errorf("wiz: resolve %s: %w", l.addr, err)
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("wiz: dial %s: %w", l.addr, err)
	}
	l.conn = conn
	return conn, nil
}

// sendAwait sends a command on a fresh socket and waits for one reply.
// A read timeout yields ErrNoResponse; a malformed reply is reported as a
// transport error.
func (l *Light) sendAwait(ctx context.Context, method string, params interface{}) (*Response, error) {
	payload, err := json.Marshal(command{ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("wiz: encode command: %w", err)
	}

	raddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", l.addr, l.port))
	if err != nil {
		return nil, fmt.Errorf("wiz: resolve %s: %w", l.addr, err)
	}
	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("wiz: dial %s: %w", l.addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("wiz: send %s to %s: %w", method, l.addr, err)
	}

	deadline := time.Now().Add(l.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("wiz: set read deadline: %w", err)
	}

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %s %s", ErrNoResponse, method, l.addr)
		}
		return nil, fmt.Errorf("wiz: read from %s: %w", l.addr, err)
	}

	var resp Response
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		return nil, fmt.Errorf("wiz: malformed response from %s: %w", l.addr, err)
	}
	if resp.Error != nil {
		return &resp, resp.Error
	}
	return &resp, nil
}

// ScaleDimming maps a brightness input onto the bulb's accepted dimming
// range. Values above 100 are treated as 8-bit and rescaled proportionally;
// anything below 10 is floored to 10, which is the minimum the hardware
// accepts safely.
func ScaleDimming(brightness int) int {
	if brightness > 100 {
		brightness = brightness * 100 / 255
	}
	if brightness < 10 {
		return 10
	}
	if brightness > 100 {
		return 100
	}
	return brightness
}

func clampChannel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
