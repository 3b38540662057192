package tui_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydroponics/internal/application"
	"hydroponics/internal/domain"
	"hydroponics/internal/infra/device"
	"hydroponics/internal/infra/records"
	"hydroponics/internal/infra/simulator"
	"hydroponics/internal/tui"
)

type panel struct {
	model   *tui.Model
	session *application.Session
	store   *records.Store
	sim     *simulator.Device
	addr    string
	csvPath string
}

func newPanel(t *testing.T) *panel {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim := simulator.New("127.0.0.1:0", "", logger)
	server := httptest.NewServer(sim.Handler())
	t.Cleanup(server.Close)

	session := application.NewSession(device.NewClient(2*time.Second), logger)
	store := records.NewStore()
	now := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	csvPath := filepath.Join(t.TempDir(), "plants.csv")
	model := tui.New(context.Background(), tui.Options{
		Session: session,
		Store:   store,
		CSVPath: csvPath,
		Now:     now,
	})

	return &panel{
		model:   model,
		session: session,
		store:   store,
		sim:     sim,
		addr:    strings.TrimPrefix(server.URL, "http://"),
		csvPath: csvPath,
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds keys without running the returned commands.
func (p *panel) press(keys ...string) {
	for _, k := range keys {
		p.model.Update(key(k))
	}
}

// do feeds a key and runs the command it returns, delivering the result
// back to the model.
func (p *panel) do(t *testing.T, k string) {
	t.Helper()
	_, cmd := p.model.Update(key(k))
	require.NotNil(t, cmd, "key %q returned no command", k)
	if msg := cmd(); msg != nil {
		p.model.Update(msg)
	}
}

func (p *panel) configure(t *testing.T) {
	t.Helper()
	p.press(p.addr, "enter")
	require.True(t, p.session.Configured())
}

func TestModel_AsksForAddressAtStartup(t *testing.T) {
	p := newPanel(t)

	assert.Contains(t, p.model.View(), "IP not set")

	p.press(p.addr, "enter")

	assert.Equal(t, p.addr, p.session.Address())
	assert.Contains(t, p.model.Status(), "Device IP set to")
	assert.Contains(t, p.model.View(), "Attempting connection to "+p.addr)
}

func TestModel_CancelAddressWarns(t *testing.T) {
	p := newPanel(t)

	p.press("esc")

	assert.False(t, p.session.Configured())
	assert.Contains(t, p.model.Status(), "Without an IP")
}

func TestModel_StateMsgRendersReadings(t *testing.T) {
	p := newPanel(t)
	p.configure(t)

	st := domain.DeviceState{
		Kind:         domain.StateReady,
		WaterLevel:   intp(55),
		SoilMoisture: intp(10),
		PumpOn:       true,
	}
	p.model.Update(tui.StateMsg{State: st})

	view := p.model.View()
	assert.Contains(t, view, "55%")
	assert.Contains(t, view, "10%")
	assert.Contains(t, view, domain.DropletIndicator(intp(55)))
	assert.Contains(t, view, "ON")
}

func TestModel_PumpCommands(t *testing.T) {
	p := newPanel(t)
	p.configure(t)

	p.do(t, "p")
	assert.True(t, p.sim.Status().PumpOn)
	assert.Equal(t, "Pump ON", p.model.Status())

	p.do(t, "o")
	assert.False(t, p.sim.Status().PumpOn)
	assert.Equal(t, "Pump OFF", p.model.Status())
}

func TestModel_PumpWithoutAddress(t *testing.T) {
	p := newPanel(t)
	p.press("esc")

	p.do(t, "p")
	assert.Contains(t, p.model.Status(), "Device IP not set")
	assert.Zero(t, p.sim.Requests("/pump_on"))
}

func fillForm(p *panel, name, fert, on, off string) {
	p.press("tab", name, "tab", "tab", fert, "tab", on, "tab", off, "enter")
}

func TestModel_AddRecordAndRemove(t *testing.T) {
	p := newPanel(t)
	p.configure(t)

	fillForm(p, "Basil", "NPK", "3", "4")

	require.Equal(t, 1, p.store.Len())
	rec, _ := p.store.Get(0)
	assert.Equal(t, domain.PlantRecord{PlantName: "Basil", InsertDate: "2024-05-01", Fertilizer: "NPK", CycleOnMin: 3, CycleOffMin: 4}, rec)
	assert.Contains(t, p.model.View(), "1. Plant: Basil, Date: 2024-05-01, Fert: NPK, Cycle: 3on/4off")

	p.press("d", "n")
	assert.Equal(t, 1, p.store.Len())

	p.press("d", "y")
	assert.Equal(t, 0, p.store.Len())
	assert.Equal(t, "Record removed.", p.model.Status())
}

func TestModel_AddRecordRejectsBadMinutes(t *testing.T) {
	p := newPanel(t)
	p.configure(t)

	fillForm(p, "Basil", "", "three", "4")

	assert.Equal(t, 0, p.store.Len())
	assert.Contains(t, p.model.Status(), "Invalid input")
}

func TestModel_LoadAndApplyCycle(t *testing.T) {
	p := newPanel(t)
	p.configure(t)
	require.NoError(t, p.store.Add(domain.PlantRecord{PlantName: "Basil", InsertDate: "2024-05-01", CycleOnMin: 3, CycleOffMin: 4}))

	p.press("enter")
	assert.Contains(t, p.model.View(), "Apply cycle 3 min ON / 4 min OFF")

	p.do(t, "y")

	status := p.sim.Status()
	assert.True(t, status.CycleActive)
	assert.Equal(t, 3, status.OnMin)
	assert.Equal(t, 4, status.OffMin)
	assert.Contains(t, p.model.Status(), "Cycle set: 3 min ON / 4 min OFF")
}

func TestModel_LoadIncompleteCycleIsNotSent(t *testing.T) {
	p := newPanel(t)
	p.configure(t)
	require.NoError(t, p.store.Add(domain.PlantRecord{PlantName: "Mint", InsertDate: "2024-05-01", CycleOnMin: 3}))

	p.press("enter")

	assert.Contains(t, p.model.Status(), "invalid cycle")
	assert.Zero(t, p.sim.Requests("/set_cycle"))
}

func TestModel_SetCycleFromFields(t *testing.T) {
	p := newPanel(t)
	p.configure(t)

	p.press("tab", "tab", "tab", "tab", "5", "tab", "10", "esc")
	p.do(t, "c")

	assert.Equal(t, 5, p.sim.Status().OnMin)
	assert.Equal(t, 10, p.sim.Status().OffMin)
}

func TestModel_SetCycleZeroIsRejected(t *testing.T) {
	p := newPanel(t)
	p.configure(t)

	p.do(t, "c")

	assert.Contains(t, p.model.Status(), "Invalid input")
	assert.Zero(t, p.sim.Requests("/set_cycle"))
}

func TestModel_ExportEmptyStore(t *testing.T) {
	p := newPanel(t)
	p.configure(t)

	p.press("e")

	assert.Contains(t, p.model.Status(), "Nothing to export")
}

func TestModel_ExportThenImport(t *testing.T) {
	p := newPanel(t)
	p.configure(t)
	require.NoError(t, p.store.Add(domain.PlantRecord{PlantName: "Basil", InsertDate: "2024-05-01", CycleOnMin: 3, CycleOffMin: 4}))

	p.press("e")
	p.do(t, "enter")
	assert.Contains(t, p.model.Status(), "Exported 1 records")
	_, err := os.Stat(p.csvPath)
	require.NoError(t, err)

	p.store.ReplaceAll(nil)

	p.press("m")
	p.do(t, "enter")
	assert.Contains(t, p.model.View(), "Replace the 0 current records with 1")

	p.press("y")
	require.Equal(t, 1, p.store.Len())
	rec, _ := p.store.Get(0)
	assert.Equal(t, "Basil", rec.PlantName)
}

func TestModel_ImportErrorKeepsStore(t *testing.T) {
	p := newPanel(t)
	p.configure(t)
	require.NoError(t, p.store.Add(domain.PlantRecord{PlantName: "Basil", InsertDate: "2024-05-01"}))

	content := "plant_name,insert_date,fertilizer,cycle_on_min,cycle_off_min\nMint,2024-05-02,,abc,4\n"
	require.NoError(t, os.WriteFile(p.csvPath, []byte(content), 0o644))

	p.press("m")
	p.do(t, "enter")

	assert.Contains(t, p.model.Status(), "Import error")
	assert.Equal(t, 1, p.store.Len())
}

func TestModel_NoticeMsg(t *testing.T) {
	p := newPanel(t)
	p.model.Update(tui.NoticeMsg{Text: "Device reachable again"})
	assert.Equal(t, "Device reachable again", p.model.Status())
}

func TestModel_ImportDoesNotReplacePendingPrompt(t *testing.T) {
	p := newPanel(t)
	p.configure(t)
	require.NoError(t, p.store.Add(domain.PlantRecord{PlantName: "Basil", InsertDate: "2024-05-01"}))

	content := "plant_name,insert_date,fertilizer,cycle_on_min,cycle_off_min\nMint,2024-05-02,,1,2\n"
	require.NoError(t, os.WriteFile(p.csvPath, []byte(content), 0o644))

	p.press("m")
	_, cmd := p.model.Update(key("enter"))
	require.NotNil(t, cmd)

	p.press("d")
	p.model.Update(cmd())

	assert.Contains(t, p.model.View(), "Remove Basil")
	assert.Contains(t, p.model.Status(), "discarded")

	p.press("y")
	assert.Equal(t, 0, p.store.Len())
}
