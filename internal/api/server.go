// Package api exposes light control over HTTP: discovery, on/off,
// manual color, and visualizer status.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/visualizer"
	"github.com/Nightwing-Bludhaven/wiz-hack-2.0/internal/wiz"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// LightController is the bulb surface the server drives. *wiz.Light
// satisfies it.
type LightController interface {
	Addr() string
	GetPilot(ctx context.Context) (wiz.Pilot, error)
	SetState(ctx context.Context, on bool) error
	SetPilot(ctx context.Context, r, g, b, brightness int) error
	Close() error
}

// StateReporter supplies the visualizer state for /status. Optional.
type StateReporter interface {
	State() visualizer.State
}

// Config configures the API server.
type Config struct {
	Discover wiz.DiscoverConfig
	// Timeout bounds each bulb round trip.
	Timeout time.Duration
	// Session, when set, is included in /status responses.
	Session StateReporter
	// NewLight builds a controller for an address. Defaults to wiz.NewLight.
	NewLight func(addr string) LightController
	// DiscoverFunc overrides bulb discovery. Defaults to wiz.Discover.
	DiscoverFunc func(ctx context.Context, cfg wiz.DiscoverConfig) ([]wiz.Discovered, error)
}

type Server struct {
	cfg Config
}

func NewServer(cfg Config) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.NewLight == nil {
		cfg.NewLight = func(addr string) LightController {
			return wiz.NewLight(wiz.Config{Addr: addr})
		}
	}
	if cfg.DiscoverFunc == nil {
		cfg.DiscoverFunc = wiz.Discover
	}
	return &Server{cfg: cfg}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/discover", s.discoverHandler)
	mux.HandleFunc("/on", s.powerHandler(true))
	mux.HandleFunc("/off", s.powerHandler(false))
	mux.HandleFunc("/color", s.colorHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/light/", s.lightHandler)
	return mux
}

// apiResponse is the envelope every endpoint returns.
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiResponse{Success: false, Message: msg})
}

func (s *Server) discoverHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Discover.Timeout+time.Second)
	defer cancel()

	found, err := s.cfg.DiscoverFunc(ctx, s.cfg.Discover)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Discovery failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: fmt.Sprintf("Found %d lights", len(found)),
		Data:    found,
	})
}

// firstLight resolves the bare routes to the first discovered bulb.
func (s *Server) firstLight(ctx context.Context) (LightController, error) {
	found, err := s.cfg.DiscoverFunc(ctx, s.cfg.Discover)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, wiz.ErrNoLights
	}
	return s.cfg.NewLight(found[0].Addr), nil
}

// resolveLight picks the target bulb: the addr query param when given,
// otherwise the first discovered light.
func (s *Server) resolveLight(ctx context.Context, r *http.Request) (LightController, error) {
	if addr := r.URL.Query().Get("addr"); addr != "" {
		if _, err := netip.ParseAddr(addr); err != nil {
			return nil, fmt.Errorf("invalid addr %q: %w", addr, err)
		}
		return s.cfg.NewLight(addr), nil
	}
	return s.firstLight(ctx)
}

func (s *Server) powerHandler(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout+s.cfg.Discover.Timeout)
		defer cancel()

		light, err := s.resolveLight(ctx, r)
		if err != nil {
			writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("No light available: %v", err))
			return
		}
		defer light.Close()

		s.setPower(ctx, w, light, on)
	}
}

func (s *Server) setPower(ctx context.Context, w http.ResponseWriter, light LightController, on bool) {
	if err := light.SetState(ctx, on); err != nil {
		writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("Failed to set state: %v", err))
		return
	}
	verb := "off"
	if on {
		verb = "on"
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: fmt.Sprintf("Light %s turned %s", light.Addr(), verb),
	})
}

// colorRequest is the POST /color body.
type colorRequest struct {
	R          int `json:"r"`
	G          int `json:"g"`
	B          int `json:"b"`
	Brightness int `json:"brightness"`
}

func (s *Server) colorHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout+s.cfg.Discover.Timeout)
	defer cancel()

	light, err := s.resolveLight(ctx, r)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("No light available: %v", err))
		return
	}
	defer light.Close()

	s.setColor(ctx, w, r, light)
}

func (s *Server) setColor(ctx context.Context, w http.ResponseWriter, r *http.Request, light LightController) {
	var req colorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid color body: %v", err))
		return
	}
	if req.Brightness < 0 || req.Brightness > 255 {
		writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("brightness must be between 0 and 255, got %d", req.Brightness))
		return
	}

	if err := light.SetPilot(ctx, req.R, req.G, req.B, wiz.ScaleDimming(req.Brightness)); err != nil {
		writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("Failed to set color: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: fmt.Sprintf("Color applied to %s", light.Addr()),
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.cfg.Session == nil {
		writeJSON(w, http.StatusOK, apiResponse{
			Success: true,
			Message: "No visualizer session running",
		})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: s.cfg.Session.State()})
}

// lightHandler serves the per-address routes:
// /light/{ip}/on, /light/{ip}/off, /light/{ip}/color, /light/{ip}/status.
func (s *Server) lightHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/light/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeJSONError(w, http.StatusNotFound, "Expected /light/{ip}/{action}")
		return
	}
	addr, action := parts[0], parts[1]
	if _, err := netip.ParseAddr(addr); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid light address %q", addr))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	light := s.cfg.NewLight(addr)
	defer light.Close()

	switch action {
	case "on", "off":
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.setPower(ctx, w, light, action == "on")
	case "color":
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.setColor(ctx, w, r, light)
	case "status":
		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		pilot, err := light.GetPilot(ctx)
		if err != nil {
			writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("Failed to query light: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: pilot})
	default:
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Unknown action %q", action))
	}
}
