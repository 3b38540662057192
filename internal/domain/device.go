package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// UnknownAddress is the placeholder the device reports before it has an IP.
const UnknownAddress = "N/A"

type PumpAction string

const (
	PumpOn  PumpAction = "on"
	PumpOff PumpAction = "off"
)

func (a PumpAction) Valid() bool {
	return a == PumpOn || a == PumpOff
}

func ParsePumpAction(s string) (PumpAction, error) {
	a := PumpAction(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown pump action %q (want on or off)", s)}
	}
	return a, nil
}

// maxCycleMinutes caps reported cycle lengths at one week.
const maxCycleMinutes = 7 * 24 * 60

// Snapshot is the /data payload as the device sends it. Every field is
// optional; numbers are decoded as float64 so integer and decimal readings
// are both accepted.
type Snapshot struct {
	WaterLevel   *float64 `json:"water_level"`
	SoilMoisture *float64 `json:"soil_moisture"`
	PumpStatus   *bool    `json:"pump_status"`
	CycleActive  *bool    `json:"cycle_active"`
	PumpOnMin    *float64 `json:"pump_on_min"`
	PumpOffMin   *float64 `json:"pump_off_min"`
	IPAddress    *string  `json:"ip_address"`
}

// UnmarshalJSON decodes each field on its own. Firmware sends flags as
// 0/1 and numbers as strings often enough that a field of the wrong type
// only drops that field; a body that is not a JSON object is still an
// error.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Snapshot{
		WaterLevel:   looseNumber(raw["water_level"]),
		SoilMoisture: looseNumber(raw["soil_moisture"]),
		PumpStatus:   looseBool(raw["pump_status"]),
		CycleActive:  looseBool(raw["cycle_active"]),
		PumpOnMin:    looseNumber(raw["pump_on_min"]),
		PumpOffMin:   looseNumber(raw["pump_off_min"]),
		IPAddress:    looseString(raw["ip_address"]),
	}
	return nil
}

func looseValue(msg json.RawMessage) any {
	if len(msg) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return nil
	}
	return v
}

func looseNumber(msg json.RawMessage) *float64 {
	var f float64
	switch v := looseValue(msg).(type) {
	case float64:
		f = v
	case bool:
		if v {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func looseBool(msg json.RawMessage) *bool {
	var b bool
	switch v := looseValue(msg).(type) {
	case bool:
		b = v
	case float64:
		b = v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "on", "yes":
			b = true
		case "false", "0", "off", "no", "":
		default:
			return nil
		}
	default:
		return nil
	}
	return &b
}

func looseString(msg json.RawMessage) *string {
	var s string
	switch v := looseValue(msg).(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return nil
	}
	return &s
}

type StateKind string

const (
	StateUnconfigured StateKind = "unconfigured"
	StateWaiting      StateKind = "waiting"
	StateReady        StateKind = "ready"
	StateError        StateKind = "error"
)

type DeviceState struct {
	Kind StateKind

	WaterLevel      *int
	SoilMoisture    *int
	PumpOn          bool
	CycleActive     bool
	CycleOnMin      int
	CycleOffMin     int
	ReportedAddress string

	Err       error
	UpdatedAt time.Time
}

func UnconfiguredState() DeviceState {
	return DeviceState{Kind: StateUnconfigured}
}

func WaitingState() DeviceState {
	return DeviceState{Kind: StateWaiting}
}

func ErrorState(err error, at time.Time) DeviceState {
	return DeviceState{Kind: StateError, Err: err, UpdatedAt: at}
}

// StateFromSnapshot applies the defaulting rules at the parse boundary:
// absent percentages stay nil, everything else falls back to its zero value.
func StateFromSnapshot(s Snapshot, at time.Time) DeviceState {
	st := DeviceState{
		Kind:         StateReady,
		WaterLevel:   percent(s.WaterLevel),
		SoilMoisture: percent(s.SoilMoisture),
		PumpOn:       s.PumpStatus != nil && *s.PumpStatus,
		CycleActive:  s.CycleActive != nil && *s.CycleActive,
		CycleOnMin:   minutes(s.PumpOnMin),
		CycleOffMin:  minutes(s.PumpOffMin),
		UpdatedAt:    at,
	}
	if s.IPAddress != nil {
		addr := strings.TrimSpace(*s.IPAddress)
		if addr != UnknownAddress {
			st.ReportedAddress = addr
		}
	}
	return st
}

func (s DeviceState) Ready() bool {
	return s.Kind == StateReady
}

// percent clamps in float64 before converting, so huge readings cannot
// overflow into negative ints.
func percent(v *float64) *int {
	if v == nil || math.IsNaN(*v) {
		return nil
	}
	var p int
	switch {
	case *v <= 0:
		p = 0
	case *v >= 100:
		p = 100
	default:
		p = int(*v)
	}
	return &p
}

func minutes(v *float64) int {
	switch {
	case v == nil || math.IsNaN(*v) || *v <= 0:
		return 0
	case *v >= maxCycleMinutes:
		return maxCycleMinutes
	}
	return int(*v)
}

func ClampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
