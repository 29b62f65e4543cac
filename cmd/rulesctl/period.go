package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	payperioddomain "github.com/tastelanc/backoffice/internal/payperiod/domain"
)

type periodResult struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	PayDate string `json:"pay_date"`
}

func newPeriodCmd(now func() time.Time) *cobra.Command {
	var (
		at     string
		tz     string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "period",
		Short: "Show the Sunday to Saturday pay period containing a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("load timezone: %w", err)
			}
			t := now()
			if at != "" {
				if t, err = parseInstant(at, loc); err != nil {
					return err
				}
			}

			period := payperioddomain.NewResolver(loc).Resolve(t)
			result := periodResult{
				Start:   period.Start.Format("2006-01-02"),
				End:     period.End.Format("2006-01-02"),
				PayDate: period.PayDate.Format("2006-01-02"),
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "period %s to %s, paid %s\n", result.Start, result.End, result.PayDate)
			return err
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Date or RFC3339 time (default: now)")
	cmd.Flags().StringVar(&tz, "tz", "UTC", "Payroll calendar timezone")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
