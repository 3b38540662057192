package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"hydroponics/internal/domain"
)

// Session owns the device address and the last polled DeviceState.
//
// Device calls are serialized by callMu so that a poll tick and a user
// command never reach the device at the same time.
type Session struct {
	client DeviceClient
	logger *slog.Logger
	now    func() time.Time

	callMu sync.Mutex

	mu      sync.RWMutex
	address string
	state   domain.DeviceState

	readyOnce sync.Once
	ready     chan struct{}
}

func NewSession(client DeviceClient, logger *slog.Logger) *Session {
	return &Session{
		client: client,
		logger: logger.With("component", "session"),
		now:    time.Now,
		state:  domain.UnconfiguredState(),
		ready:  make(chan struct{}),
	}
}

// Configure sets the device address. The first successful call releases
// the poller from Idle; later calls only re-address.
func (s *Session) Configure(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return &domain.ValidationError{
			Field:  "address",
			Reason: "without an IP, communication with the device is not possible",
		}
	}

	s.mu.Lock()
	changed := s.address != address
	if changed {
		s.setAddressLocked(address)
		s.state = domain.WaitingState()
	}
	s.mu.Unlock()

	if changed {
		s.logger.Info("device address configured", "address", address)
	}

	s.readyOnce.Do(func() { close(s.ready) })
	return nil
}

// Ready is closed once an address has been configured.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

func (s *Session) Configured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address != ""
}

func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// Label is the human readable connection status.
func (s *Session) Label() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.address == "":
		return "IP not set"
	case s.state.Kind == domain.StateReady:
		return "Connected to " + s.address
	default:
		return "Attempting connection to " + s.address
	}
}

func (s *Session) State() domain.DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnPollResult records st and follows the device if it reports a new
// address of its own, e.g. after a DHCP renewal. It reports whether the
// session was re-addressed.
func (s *Session) OnPollResult(st domain.DeviceState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(st)
}

// applyPoll stores st only if the session still points at addr. It
// reports whether the result was kept.
func (s *Session) applyPoll(addr string, st domain.DeviceState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.address != addr {
		return false
	}
	s.applyLocked(st)
	return true
}

func (s *Session) applyLocked(st domain.DeviceState) bool {
	s.state = st
	if !st.Ready() || st.ReportedAddress == "" || st.ReportedAddress == s.address {
		return false
	}

	prev := s.address
	s.setAddressLocked(st.ReportedAddress)
	s.logger.Info("device reported new address", "from", prev, "to", st.ReportedAddress)
	return true
}

// Poll runs one fetch against the device and returns the resulting state.
func (s *Session) Poll(ctx context.Context) domain.DeviceState {
	addr := s.Address()
	if addr == "" {
		st := domain.UnconfiguredState()
		s.mu.Lock()
		s.state = st
		s.mu.Unlock()
		return st
	}

	s.callMu.Lock()
	snap, err := s.client.FetchData(ctx)
	s.callMu.Unlock()

	var st domain.DeviceState
	if err != nil {
		st = domain.ErrorState(err, s.now())
	} else {
		st = domain.StateFromSnapshot(snap, s.now())
	}

	// The user pointed the session elsewhere while the request was in flight.
	if !s.applyPoll(addr, st) {
		return s.State()
	}

	if err != nil {
		s.logger.Warn("data request failed", "error", err)
	}
	return st
}

func (s *Session) SetCycle(ctx context.Context, onMin, offMin int) (string, error) {
	if onMin <= 0 || offMin <= 0 {
		return "", &domain.ValidationError{
			Field:  "cycle",
			Reason: fmt.Sprintf("cycle minutes must be positive (got %d on / %d off)", onMin, offMin),
		}
	}

	s.callMu.Lock()
	defer s.callMu.Unlock()

	ack, err := s.client.SendCycle(ctx, onMin, offMin)
	if err != nil {
		return "", fmt.Errorf("setting cycle: %w", err)
	}

	s.logger.Info("cycle sent", "on_min", onMin, "off_min", offMin, "ack", ack)
	return ack, nil
}

func (s *Session) SetPump(ctx context.Context, action domain.PumpAction) error {
	if !action.Valid() {
		return &domain.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown pump action %q", action)}
	}

	s.callMu.Lock()
	defer s.callMu.Unlock()

	if err := s.client.SendPump(ctx, action); err != nil {
		return fmt.Errorf("pump %s: %w", action, err)
	}

	s.logger.Info("pump command sent", "action", action)
	return nil
}

func (s *Session) setAddressLocked(address string) {
	s.address = address
	s.client.SetAddress(address)
}
