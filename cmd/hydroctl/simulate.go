package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"hydroponics/internal/infra/simulator"
)

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Serve a simulated irrigation device over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			if listen == "" {
				listen = a.cfg.Simulator.Listen
			}

			ctx, cancel := signalContext(cmd.Context(), a.logger)
			defer cancel()

			device := simulator.New(listen, a.cfg.Simulator.IPAddress, a.logger.With("component", "simulator"))
			if err := device.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address, overrides simulator.listen")
	return cmd
}
