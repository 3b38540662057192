package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hydroponics/internal/domain"
	"hydroponics/internal/infra/simulator"
)

func newTestDevice(t *testing.T) (*simulator.Device, string) {
	t.Helper()
	sim := simulator.New("127.0.0.1:0", "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	server := httptest.NewServer(sim.Handler())
	t.Cleanup(server.Close)
	return sim, server.URL
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeWithLogs(t, stdin, args...)
	return out, err
}

// executeWithLogs also returns what the command logged to stderr.
func executeWithLogs(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plants.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const plantsCSV = "plant_name,insert_date,fertilizer,cycle_on_min,cycle_off_min\n" +
	"Basil,2024-05-01,NPK,3,4\n" +
	"Mint,2024-05-02,,,\n"

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, Commit+"\n", out)
}

func TestStatus(t *testing.T) {
	sim, url := newTestDevice(t)
	sim.SetReadings(55, 12)

	out, err := execute(t, "", "--address", url, "status")
	require.NoError(t, err)

	assert.Contains(t, out, "Connected to "+url)
	assert.Contains(t, out, "55%")
	assert.Contains(t, out, "12%")
	assert.Contains(t, out, "Pump:          OFF")
	assert.Contains(t, out, "INACTIVE")
}

func TestStatus_NotConfigured(t *testing.T) {
	_, err := execute(t, "", "status")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestStatus_Unreachable(t *testing.T) {
	sim, url := newTestDevice(t)
	sim.FailNext(1)

	_, err := execute(t, "", "--address", url, "status")
	assert.Equal(t, domain.KindTransport, domain.KindOf(err))
}

func TestPump(t *testing.T) {
	sim, url := newTestDevice(t)

	out, err := execute(t, "", "--address", url, "pump", "on")
	require.NoError(t, err)
	assert.Equal(t, "Pump ON\n", out)
	assert.True(t, sim.Status().PumpOn)

	_, err = execute(t, "", "--address", url, "pump", "sideways")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestPump_LogsOnce(t *testing.T) {
	_, url := newTestDevice(t)

	_, logs, err := executeWithLogs(t, "", "--address", url, "pump", "off")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(logs, "pump command sent"))
	assert.NotContains(t, logs, "pump switched")
}

func TestCycle(t *testing.T) {
	sim, url := newTestDevice(t)

	out, err := execute(t, "", "--address", url, "cycle", "5", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Cycle set: 5 min ON / 10 min OFF")
	assert.Equal(t, 5, sim.Status().OnMin)

	_, err = execute(t, "", "--address", url, "cycle", "0", "10")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, 1, sim.Requests("/set_cycle"))
}

func TestRecordsShow(t *testing.T) {
	path := writeCSV(t, plantsCSV)

	out, err := execute(t, "", "records", "show", path)
	require.NoError(t, err)
	assert.Equal(t,
		"1. Plant: Basil, Date: 2024-05-01, Fert: NPK, Cycle: 3on/4off\n"+
			"2. Plant: Mint, Date: 2024-05-02, Fert: -, Cycle: 0on/0off\n",
		out)
}

func TestRecordsShow_BadFile(t *testing.T) {
	path := writeCSV(t, "plant_name,insert_date,fertilizer,cycle_on_min,cycle_off_min\nBasil,2024-05-01,,abc,4\n")

	_, err := execute(t, "", "records", "show", path)
	assert.Equal(t, domain.KindImport, domain.KindOf(err))
}

func TestRecordsApply(t *testing.T) {
	sim, url := newTestDevice(t)
	path := writeCSV(t, plantsCSV)

	out, err := execute(t, "y\n", "--address", url, "records", "apply", path, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Apply cycle 3 min ON / 4 min OFF for Basil?")
	assert.Contains(t, out, "Cycle set: 3 min ON / 4 min OFF")
	assert.True(t, sim.Status().CycleActive)
}

func TestRecordsApply_Declined(t *testing.T) {
	sim, url := newTestDevice(t)
	path := writeCSV(t, plantsCSV)

	out, err := execute(t, "n\n", "--address", url, "records", "apply", path, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Cycle not applied.")
	assert.Zero(t, sim.Requests("/set_cycle"))
}

func TestRecordsApply_YesFlagAndNoCycle(t *testing.T) {
	sim, url := newTestDevice(t)
	path := writeCSV(t, plantsCSV)

	out, err := execute(t, "", "--address", url, "records", "apply", "--yes", path, "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Mint has no cycle to apply.")
	assert.Zero(t, sim.Requests("/set_cycle"))
}

func TestRecordsApply_OutOfRange(t *testing.T) {
	_, url := newTestDevice(t)
	path := writeCSV(t, plantsCSV)

	_, err := execute(t, "", "--address", url, "records", "apply", path, "3")
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}
