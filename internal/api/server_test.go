package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/visualizer"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/wiz"
)

type fakeLight struct {
	addr string

	pilot    wiz.Pilot
	pilotErr error
	stateErr error

	states []bool
	colors [][4]int
	closed bool
}

func (f *fakeLight) Addr() string { return f.addr }

func (f *fakeLight) GetPilot(context.Context) (wiz.Pilot, error) {
	return f.pilot, f.pilotErr
}

func (f *fakeLight) SetState(_ context.Context, on bool) error {
	f.states = append(f.states, on)
	return f.stateErr
}

func (f *fakeLight) SetPilot(_ context.Context, r, g, b, brightness int) error {
	f.colors = append(f.colors, [4]int{r, g, b, brightness})
	return nil
}

func (f *fakeLight) Close() error {
	f.closed = true
	return nil
}

type testEnv struct {
	server *Server
	lights map[string]*fakeLight
	found  []wiz.Discovered
	dErr   error
}

func newTestEnv(session StateReporter) *testEnv {
	env := &testEnv{lights: make(map[string]*fakeLight)}
	env.found = []wiz.Discovered{{Addr: "192.168.1.50", Pilot: wiz.Pilot{State: true}}}
	env.server = NewServer(Config{
		Discover: wiz.DiscoverConfig{Timeout: 50 * time.Millisecond},
		Timeout:  100 * time.Millisecond,
		Session:  session,
		NewLight: func(addr string) LightController {
			if l, ok := env.lights[addr]; ok {
				return l
			}
			l := &fakeLight{addr: addr}
			env.lights[addr] = l
			return l
		},
		DiscoverFunc: func(context.Context, wiz.DiscoverConfig) ([]wiz.Discovered, error) {
			return env.found, env.dErr
		},
	})
	return env
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestDiscoverEndpoint(t *testing.T) {
	env := newTestEnv(nil)

	rec, resp := doRequest(t, env.server, http.MethodGet, "/discover", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "1 lights")
}

func TestDiscoverEndpointFailure(t *testing.T) {
	env := newTestEnv(nil)
	env.dErr = errors.New("network down")

	rec, resp := doRequest(t, env.server, http.MethodGet, "/discover", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
}

func TestDiscoverMethodNotAllowed(t *testing.T) {
	env := newTestEnv(nil)
	rec, _ := doRequest(t, env.server, http.MethodPost, "/discover", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPowerOnFirstLight(t *testing.T) {
	env := newTestEnv(nil)

	rec, resp := doRequest(t, env.server, http.MethodPost, "/on", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	light := env.lights["192.168.1.50"]
	require.NotNil(t, light, "the first discovered light must be targeted")
	assert.Equal(t, []bool{true}, light.states)
	assert.True(t, light.closed)
}

func TestPowerOffExplicitAddr(t *testing.T) {
	env := newTestEnv(nil)

	rec, resp := doRequest(t, env.server, http.MethodPost, "/off?addr=10.0.0.9", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, []bool{false}, env.lights["10.0.0.9"].states)
}

func TestPowerInvalidAddr(t *testing.T) {
	env := newTestEnv(nil)
	rec, _ := doRequest(t, env.server, http.MethodPost, "/on?addr=not-an-ip", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPowerNoLights(t *testing.T) {
	env := newTestEnv(nil)
	env.found = nil

	rec, resp := doRequest(t, env.server, http.MethodPost, "/on", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, resp.Success)
}

func TestColorEndpoint(t *testing.T) {
	env := newTestEnv(nil)
	body, _ := json.Marshal(colorRequest{R: 255, G: 100, B: 0, Brightness: 200})

	rec, resp := doRequest(t, env.server, http.MethodPost, "/color", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	light := env.lights["192.168.1.50"]
	require.Len(t, light.colors, 1)
	assert.Equal(t, [4]int{255, 100, 0, wiz.ScaleDimming(200)}, light.colors[0])
}

func TestColorEndpointRejectsBadBody(t *testing.T) {
	env := newTestEnv(nil)

	rec, _ := doRequest(t, env.server, http.MethodPost, "/color", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, _ := json.Marshal(colorRequest{Brightness: 300})
	rec, _ = doRequest(t, env.server, http.MethodPost, "/color", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type staticState visualizer.State

func (s staticState) State() visualizer.State { return visualizer.State(s) }

func TestStatusWithSession(t *testing.T) {
	env := newTestEnv(staticState{Style: "pulse", Bass: 0.7, Frames: 42})

	rec, resp := doRequest(t, env.server, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	raw, _ := json.Marshal(resp.Data)
	var state visualizer.State
	require.NoError(t, json.Unmarshal(raw, &state))
	assert.Equal(t, "pulse", state.Style)
	assert.Equal(t, uint64(42), state.Frames)
}

func TestStatusWithoutSession(t *testing.T) {
	env := newTestEnv(nil)
	rec, resp := doRequest(t, env.server, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "No visualizer session")
}

func TestLightRoutes(t *testing.T) {
	env := newTestEnv(nil)
	env.lights["10.1.2.3"] = &fakeLight{addr: "10.1.2.3", pilot: wiz.Pilot{State: true, Dimming: 60}}

	rec, resp := doRequest(t, env.server, http.MethodPost, "/light/10.1.2.3/on", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, []bool{true}, env.lights["10.1.2.3"].states)

	rec, resp = doRequest(t, env.server, http.MethodGet, "/light/10.1.2.3/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)
	raw, _ := json.Marshal(resp.Data)
	var pilot wiz.Pilot
	require.NoError(t, json.Unmarshal(raw, &pilot))
	assert.Equal(t, 60, pilot.Dimming)

	body, _ := json.Marshal(colorRequest{R: 1, G: 2, B: 3, Brightness: 50})
	rec, _ = doRequest(t, env.server, http.MethodPost, "/light/10.1.2.3/color", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLightRouteValidation(t *testing.T) {
	env := newTestEnv(nil)

	rec, _ := doRequest(t, env.server, http.MethodPost, "/light/bogus/on", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, env.server, http.MethodPost, "/light/10.1.2.3/explode", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doRequest(t, env.server, http.MethodGet, "/light/10.1.2.3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Wrong verb on a valid action.
	rec, _ = doRequest(t, env.server, http.MethodGet, "/light/10.1.2.3/on", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPowerFailurePropagates(t *testing.T) {
	env := newTestEnv(nil)
	env.lights["10.9.9.9"] = &fakeLight{addr: "10.9.9.9", stateErr: wiz.ErrNoResponse}

	rec, resp := doRequest(t, env.server, http.MethodPost, "/light/10.9.9.9/on", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, resp.Success)
}
