package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hydroponics/internal/domain"
	"hydroponics/internal/tui"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Poll the device once and print its state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireAddress(); err != nil {
				return err
			}

			st := a.session.Poll(cmd.Context())
			if st.Kind == domain.StateError {
				return st.Err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, a.session.Label())
			fmt.Fprintf(out, "Water level:   %s %s\n", tui.Reading(st, st.WaterLevel), tui.Droplets(st, st.WaterLevel))
			fmt.Fprintf(out, "Soil moisture: %s %s\n", tui.Reading(st, st.SoilMoisture), tui.Droplets(st, st.SoilMoisture))
			fmt.Fprintf(out, "Pump:          %s\n", tui.PumpLabel(st))
			fmt.Fprintf(out, "Cycle:         %s\n", tui.CycleLabel(st))
			return nil
		},
	}
}

func newPumpCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "pump on|off",
		Short:     "Switch the pump on or off",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.PumpOn), string(domain.PumpOff)},
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := domain.ParsePumpAction(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireAddress(); err != nil {
				return err
			}

			if err := a.session.SetPump(cmd.Context(), action); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pump %s\n", strings.ToUpper(string(action)))
			return nil
		},
	}
}

func newCycleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle ON_MIN OFF_MIN",
		Short: "Start an automatic ON/OFF irrigation cycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := strconv.Atoi(args[0])
			if err != nil {
				return &domain.ValidationError{Field: "on_min", Reason: "must be a whole number of minutes"}
			}
			off, err := strconv.Atoi(args[1])
			if err != nil {
				return &domain.ValidationError{Field: "off_min", Reason: "must be a whole number of minutes"}
			}

			a, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireAddress(); err != nil {
				return err
			}

			ack, err := a.session.SetCycle(cmd.Context(), on, off)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ack)
			return nil
		},
	}
}
