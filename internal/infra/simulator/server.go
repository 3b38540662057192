package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Device is an in-process stand-in for the irrigation controller. It
// speaks the same HTTP protocol and keeps its state in memory.
type Device struct {
	addr     string
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
	mux      *http.ServeMux

	mu          sync.Mutex
	running     bool
	waterLevel  *float64
	soil        *float64
	pumpOn      bool
	cycleActive bool
	onMin       int
	offMin      int
	ipAddress   string
	failNext    int
	requests    map[string]int
}

func New(addr, ipAddress string, logger *slog.Logger) *Device {
	d := &Device{
		addr:      addr,
		logger:    logger,
		mux:       http.NewServeMux(),
		ipAddress: ipAddress,
		requests:  make(map[string]int),
	}
	d.mux.HandleFunc("GET /data", d.guard(d.handleData))
	d.mux.HandleFunc("POST /set_cycle", d.guard(d.handleSetCycle))
	d.mux.HandleFunc("POST /pump_on", d.guard(d.handlePump(true)))
	d.mux.HandleFunc("POST /pump_off", d.guard(d.handlePump(false)))
	// Health checks bypass failure injection
	d.mux.HandleFunc("GET /health", d.handleHealth)
	return d
}

func (d *Device) Handler() http.Handler {
	return d.mux
}

// Addr returns the bound listen address once started.
func (d *Device) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener != nil {
		return d.listener.Addr().String()
	}
	return d.addr
}

func (d *Device) Start(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}

	ln, err := net.Listen("tcp", d.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", d.addr, err)
	}

	d.listener = ln
	d.server = &http.Server{
		Handler:      d.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		d.logger.Info("device simulator listening", "addr", ln.Addr().String())
		if err := d.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			d.logger.Error("simulator server error", "error", err)
		}
	}()

	d.running = true
	return nil
}

func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	if d.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.server.Shutdown(ctx); err != nil {
			d.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := d.server.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}
	}

	d.running = false
	return nil
}

// Run serves until ctx is cancelled.
func (d *Device) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return d.Stop()
}

func (d *Device) SetReadings(waterLevel, soilMoisture float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waterLevel = &waterLevel
	d.soil = &soilMoisture
}

func (d *Device) SetIPAddress(ip string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ipAddress = ip
}

// FailNext makes the next n protocol requests answer 503.
func (d *Device) FailNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext = n
}

// Requests counts protocol requests received on path, failed ones included.
func (d *Device) Requests(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests[path]
}

type Status struct {
	PumpOn      bool
	CycleActive bool
	OnMin       int
	OffMin      int
}

func (d *Device) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		PumpOn:      d.pumpOn,
		CycleActive: d.cycleActive,
		OnMin:       d.onMin,
		OffMin:      d.offMin,
	}
}

func (d *Device) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.requests[r.URL.Path]++
		fail := d.failNext > 0
		if fail {
			d.failNext--
		}
		d.mu.Unlock()

		if fail {
			http.Error(w, "device busy", http.StatusServiceUnavailable)
			return
		}
		next(w, r)
	}
}

func (d *Device) handleData(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	payload := map[string]any{
		"water_level":   d.waterLevel,
		"soil_moisture": d.soil,
		"pump_status":   d.pumpOn,
		"cycle_active":  d.cycleActive,
		"pump_on_min":   d.onMin,
		"pump_off_min":  d.offMin,
		"ip_address":    d.ipAddress,
	}
	d.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		d.logger.Error("encoding data", "error", err)
	}
}

func (d *Device) handleSetCycle(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req struct {
		OnMin  int `json:"on_min"`
		OffMin int `json:"off_min"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.OnMin <= 0 || req.OffMin <= 0 {
		http.Error(w, "invalid cycle", http.StatusBadRequest)
		return
	}

	d.mu.Lock()
	d.onMin = req.OnMin
	d.offMin = req.OffMin
	d.cycleActive = true
	d.mu.Unlock()

	d.logger.Info("cycle set", "on_min", req.OnMin, "off_min", req.OffMin)
	fmt.Fprintf(w, "Cycle set: %d min ON / %d min OFF", req.OnMin, req.OffMin)
}

func (d *Device) handlePump(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		d.mu.Lock()
		d.pumpOn = on
		d.mu.Unlock()

		state := "OFF"
		if on {
			state = "ON"
		}
		d.logger.Info("pump switched", "state", state)
		fmt.Fprintf(w, "Pump %s", state)
	}
}

func (d *Device) handleHealth(w http.ResponseWriter, _ *http.Request) {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","running":%t}`, running)
}
