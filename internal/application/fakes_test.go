package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"hydroponics/internal/domain"
)

type fetchResult struct {
	snap domain.Snapshot
	err  error
}

type mockClient struct {
	mu        sync.Mutex
	address   string
	addresses []string
	fetches   []fetchResult
	fetchN    int
	cycles    [][2]int
	pumps     []domain.PumpAction
	cycleErr  error
	pumpErr   error
}

func (m *mockClient) SetAddress(address string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.address = address
	m.addresses = append(m.addresses, address)
	return "http://" + address
}

func (m *mockClient) FetchData(_ context.Context) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.address == "" {
		return domain.Snapshot{}, domain.ErrNotConfigured
	}
	m.fetchN++
	if len(m.fetches) == 0 {
		return domain.Snapshot{}, nil
	}
	r := m.fetches[0]
	if len(m.fetches) > 1 {
		m.fetches = m.fetches[1:]
	}
	return r.snap, r.err
}

func (m *mockClient) SendCycle(_ context.Context, onMin, offMin int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, [2]int{onMin, offMin})
	if m.cycleErr != nil {
		return "", m.cycleErr
	}
	return "OK", nil
}

func (m *mockClient) SendPump(_ context.Context, action domain.PumpAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pumps = append(m.pumps, action)
	return m.pumpErr
}

func (m *mockClient) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchN
}

func (m *mockClient) cycleCalls() [][2]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]int(nil), m.cycles...)
}

func (m *mockClient) addressHistory() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.addresses...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func transportErr() error {
	return &domain.TransportError{Op: "GET", URL: "http://10.0.0.9/data", Err: errors.New("connection refused")}
}

func ptr[T any](v T) *T { return &v }

// instantTimer fires immediately so the poller runs tick after tick.
func instantTimer(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}
