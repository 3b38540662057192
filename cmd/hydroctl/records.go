package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hydroponics/internal/application"
	"hydroponics/internal/domain"
	"hydroponics/internal/infra/records"
	"hydroponics/internal/tui"
)

func newRecordsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Work with plant record CSV files",
	}
	cmd.AddCommand(newRecordsShowCmd(), newRecordsApplyCmd(opts))
	return cmd
}

func newRecordsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "List the records of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := records.ImportCSV(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No records.")
				return nil
			}
			for i, r := range recs {
				fmt.Fprintln(out, tui.RecordLine(i, r))
			}
			return nil
		},
	}
}

func newRecordsApplyCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "apply FILE N",
		Short: "Send the cycle of record N (1-based) to the device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := records.ImportCSV(args[0])
			if err != nil {
				return err
			}

			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 || n > len(recs) {
				return &domain.ValidationError{
					Field:  "N",
					Reason: fmt.Sprintf("must be between 1 and %d", len(recs)),
					Err:    domain.ErrIndexOutOfRange,
				}
			}
			rec := recs[n-1]

			a, err := newApp(opts, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireAddress(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())
			confirm := func(r domain.PlantRecord) bool {
				if yes {
					return true
				}
				fmt.Fprintf(out, "Apply cycle %d min ON / %d min OFF for %s? [y/N] ", r.CycleOnMin, r.CycleOffMin, r.PlantName)
				line, _ := in.ReadString('\n')
				answer := strings.ToLower(strings.TrimSpace(line))
				return answer == "y" || answer == "yes"
			}

			res, err := application.ApplyRecordCycle(cmd.Context(), a.session, rec, confirm)
			if err != nil {
				return err
			}

			switch res.Action {
			case application.ApplySent:
				fmt.Fprintln(out, res.Ack)
			case application.ApplyDeclined:
				fmt.Fprintln(out, "Cycle not applied.")
			default:
				fmt.Fprintf(out, "%s has no cycle to apply.\n", rec.PlantName)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply without asking")
	return cmd
}
