package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hydroponics/config"
	"hydroponics/internal/application"
	"hydroponics/internal/domain"
	"hydroponics/internal/infra/device"
	"hydroponics/internal/infra/records"
	"hydroponics/internal/tui"
)

var Commit = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	address    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "hydroctl",
		Short:         "Control panel for a hydroponics irrigation device",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to config file")
	cmd.PersistentFlags().StringVarP(&opts.address, "address", "a", "", "device address, overrides device.address")

	cmd.AddCommand(
		newTUICmd(opts),
		newStatusCmd(opts),
		newPumpCmd(opts),
		newCycleCmd(opts),
		newRecordsCmd(opts),
		newSimulateCmd(opts),
		versionCmd,
	)

	return cmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Commit)
	},
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the interactive control panel (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
}

// app bundles what every subcommand needs once config is loaded.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *application.Session
	closer  io.Closer
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// tuiLogFile receives console logging while the panel owns the terminal.
const tuiLogFile = "hydroctl.log"

// newApp loads config and wires the session.
func newApp(opts *rootOptions, stderr io.Writer, forTUI bool) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.address != "" {
		cfg.Device.Address = opts.address
	}
	if out := cfg.Log.Output; forTUI && (out == "stdout" || out == "stderr") {
		cfg.Log.Output = tuiLogFile
	}

	logger, closer, err := setupLogger(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}

	timeout, err := cfg.Device.RequestTimeoutOr(device.DefaultTimeout)
	if err != nil {
		logger.Warn("invalid request timeout, using default", "error", err, "value", cfg.Device.RequestTimeout)
	}

	session := application.NewSession(device.NewClient(timeout), logger)
	if cfg.Device.Address != "" {
		if err := session.Configure(cfg.Device.Address); err != nil {
			closer.Close()
			return nil, err
		}
	}

	return &app{cfg: cfg, logger: logger, session: session, closer: closer}, nil
}

// requireAddress fails fast for one-shot commands that need a device.
func (a *app) requireAddress() error {
	if !a.session.Configured() {
		return fmt.Errorf("%w: pass --address or set device.address", domain.ErrNotConfigured)
	}
	return nil
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	a, err := newApp(opts, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	interval, err := a.cfg.Device.PollIntervalOr(application.DefaultPollInterval)
	if err != nil {
		a.logger.Warn("invalid poll interval, using default", "error", err, "value", a.cfg.Device.PollInterval)
	}

	ctx, cancel := signalContext(cmd.Context(), a.logger)
	defer cancel()

	a.logger.Info("starting control panel", "address", a.session.Address(), "poll_interval", interval)

	return tui.Run(ctx, tui.Options{
		Session: a.session,
		Store:   records.NewStore(),
		CSVPath: a.cfg.Records.CSVPath,
		Now:     time.Now,
	}, interval, a.logger)
}

func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
			logger.Info("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
