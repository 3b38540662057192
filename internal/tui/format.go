package tui

import (
	"fmt"
	"strconv"
	"strings"

	"hydroponics/internal/domain"
)

// Reading renders a percentage field of the current state.
func Reading(st domain.DeviceState, v *int) string {
	switch st.Kind {
	case domain.StateUnconfigured:
		return "Waiting for IP..."
	case domain.StateError:
		return "Error"
	case domain.StateWaiting:
		return "..."
	}
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d%%", *v)
}

func Droplets(st domain.DeviceState, v *int) string {
	if !st.Ready() {
		return ""
	}
	return domain.DropletIndicator(v)
}

func PumpLabel(st domain.DeviceState) string {
	switch st.Kind {
	case domain.StateError:
		return "Error"
	case domain.StateReady:
		if st.PumpOn {
			return "ON"
		}
		return "OFF"
	}
	return "N/A"
}

func CycleLabel(st domain.DeviceState) string {
	switch st.Kind {
	case domain.StateError:
		return "Error"
	case domain.StateReady:
		if st.CycleActive {
			return fmt.Sprintf("ACTIVE (%dmin ON / %dmin OFF)", st.CycleOnMin, st.CycleOffMin)
		}
		return "INACTIVE"
	}
	return "N/A"
}

// RecordLine is the list entry for the record at position i.
func RecordLine(i int, r domain.PlantRecord) string {
	fert := r.Fertilizer
	if fert == "" {
		fert = "-"
	}
	return fmt.Sprintf("%d. Plant: %s, Date: %s, Fert: %s, Cycle: %don/%doff",
		i+1, r.PlantName, r.InsertDate, fert, r.CycleOnMin, r.CycleOffMin)
}

// ErrorMessage turns an operation error into the line shown to the user.
func ErrorMessage(err error) string {
	switch domain.KindOf(err) {
	case domain.KindNotConfigured:
		return "Device IP not set. Press i to configure it."
	case domain.KindTransport:
		return "Device error: " + err.Error()
	case domain.KindValidation:
		return "Invalid input: " + err.Error()
	case domain.KindImport:
		return "Import error (e.g. non-numeric minutes): " + err.Error()
	case domain.KindIO:
		return "File error: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

// parseMinutes reads an optional minute field; empty means 0.
func parseMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &domain.ValidationError{Field: "minutes", Reason: "ON/OFF minutes must be valid numbers or left empty"}
	}
	return n, nil
}
