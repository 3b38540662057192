package application

import (
	"context"

	"hydroponics/internal/domain"
)

// DeviceClient is the transport to the irrigation controller. All calls
// return domain.ErrNotConfigured without touching the network while no
// address is set.
type DeviceClient interface {
	SetAddress(address string) string
	FetchData(ctx context.Context) (domain.Snapshot, error)
	SendCycle(ctx context.Context, onMin, offMin int) (string, error)
	SendPump(ctx context.Context, action domain.PumpAction) error
}

// CycleSetter is the part of the session the cycle-apply workflow needs.
type CycleSetter interface {
	SetCycle(ctx context.Context, onMin, offMin int) (string, error)
}
