package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"hydroponics/internal/application"
	"hydroponics/internal/domain"
)

// programNotifier forwards poller notices into the running program.
type programNotifier struct {
	program *tea.Program
}

func (n programNotifier) Notify(_ context.Context, message string) error {
	n.program.Send(NoticeMsg{Text: message})
	return nil
}

// Run starts the panel and its poller and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, opts Options, interval time.Duration, logger *slog.Logger) error {
	model := New(ctx, opts)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	poller := application.NewPoller(opts.Session, interval, logger,
		application.WithRefresh(func(st domain.DeviceState) {
			program.Send(StateMsg{State: st})
		}),
		application.WithNotifier(programNotifier{program: program}),
	)

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := poller.Run(pollCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("poller stopped", "error", err)
		}
	}()

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
