package domain

import (
	"strings"
	"time"
)

// InsertDateLayout is the default format for a record's insertion date.
const InsertDateLayout = "2006-01-02"

type PlantRecord struct {
	PlantName   string
	InsertDate  string
	Fertilizer  string
	CycleOnMin  int
	CycleOffMin int
}

type CycleStatus string

const (
	CycleNone       CycleStatus = "none"
	CycleComplete   CycleStatus = "complete"
	CycleIncomplete CycleStatus = "incomplete"
)

func Today(now time.Time) string {
	return now.Format(InsertDateLayout)
}

func (r PlantRecord) Validate() error {
	if strings.TrimSpace(r.PlantName) == "" {
		return &ValidationError{Field: "plant_name", Reason: "plant name is mandatory"}
	}
	if strings.TrimSpace(r.InsertDate) == "" {
		return &ValidationError{Field: "insert_date", Reason: "insertion date is mandatory"}
	}
	if r.CycleOnMin < 0 {
		return &ValidationError{Field: "cycle_on_min", Reason: "minutes must not be negative"}
	}
	if r.CycleOffMin < 0 {
		return &ValidationError{Field: "cycle_off_min", Reason: "minutes must not be negative"}
	}
	return nil
}

// Cycle reports whether the record carries a cycle that may be sent to the
// device. Records with only one positive side are kept in the store but
// never applied.
func (r PlantRecord) Cycle() CycleStatus {
	switch {
	case r.CycleOnMin > 0 && r.CycleOffMin > 0:
		return CycleComplete
	case r.CycleOnMin > 0 || r.CycleOffMin > 0:
		return CycleIncomplete
	default:
		return CycleNone
	}
}
