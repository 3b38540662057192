package application

import "context"

// Notifier surfaces user-facing messages, such as the device dropping off
// the network or coming back.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}
