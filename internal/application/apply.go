package application

import (
	"context"

	"hydroponics/internal/domain"
)

type ApplyAction string

const (
	ApplySkipped  ApplyAction = "skipped"
	ApplyDeclined ApplyAction = "declined"
	ApplySent     ApplyAction = "sent"
)

type ApplyResult struct {
	Action ApplyAction
	Ack    string
}

// Confirmer asks the user whether a record's cycle should be sent.
type Confirmer func(rec domain.PlantRecord) bool

// ApplyRecordCycle runs the load-and-apply workflow for a stored record.
// Only complete cycles reach the device, and only after confirmation. A
// record with one positive side is reported as invalid without any call;
// a record without a cycle is skipped silently.
func ApplyRecordCycle(ctx context.Context, setter CycleSetter, rec domain.PlantRecord, confirm Confirmer) (ApplyResult, error) {
	switch rec.Cycle() {
	case domain.CycleNone:
		return ApplyResult{Action: ApplySkipped}, nil
	case domain.CycleIncomplete:
		return ApplyResult{Action: ApplySkipped}, &domain.ValidationError{
			Field:  "cycle",
			Reason: domain.ErrCycleIncomplete.Error(),
			Err:    domain.ErrCycleIncomplete,
		}
	}

	if confirm != nil && !confirm(rec) {
		return ApplyResult{Action: ApplyDeclined}, nil
	}

	ack, err := setter.SetCycle(ctx, rec.CycleOnMin, rec.CycleOffMin)
	if err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{Action: ApplySent, Ack: ack}, nil
}
