package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	leaddomain "github.com/tastelanc/backoffice/internal/lead/domain"
)

func newLeadAgeCmd(now func() time.Time) *cobra.Command {
	var (
		created string
		updated string
		at      string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "lead-age",
		Short: "Classify a lead as fresh, due a nudge, or stale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			createdAt, err := parseInstant(created, time.UTC)
			if err != nil {
				return err
			}
			aging := leaddomain.Aging{CreatedAt: createdAt}
			if updated != "" {
				updatedAt, err := parseInstant(updated, time.UTC)
				if err != nil {
					return err
				}
				aging.UpdatedAt = &updatedAt
			}
			t := now()
			if at != "" {
				if t, err = parseInstant(at, time.UTC); err != nil {
					return err
				}
			}

			c := leaddomain.Classify(aging, t)
			if asJSON {
				return writeJSON(cmd, c)
			}
			state := "fresh"
			switch {
			case c.IsStale:
				state = "stale"
			case c.IsNudge:
				state = "nudge"
			}
			out := fmt.Sprintf("%d days since update: %s", c.DaysSinceUpdate, state)
			if c.ClockSkew {
				out += " (reference time is in the future)"
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().StringVar(&created, "created", "", "Lead creation time")
	cmd.Flags().StringVar(&updated, "updated", "", "Last update time, if any")
	cmd.Flags().StringVar(&at, "now", "", "Evaluate at this time instead of now")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("created")

	return cmd
}
