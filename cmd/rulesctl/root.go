package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// rulesctl evaluates the commission, pay period, lead aging and tier rules
// without a database, for support questions and config checks.
func newRootCmd(now func() time.Time) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rulesctl",
		Short:         "Evaluate TasteLanc business rules from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newPayoutCmd(),
		newPeriodCmd(now),
		newLeadAgeCmd(now),
		newFeaturesCmd(),
		newAccessCmd(),
	)

	return rootCmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseInstant accepts RFC3339 or a plain date, read in loc.
func parseInstant(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339 or YYYY-MM-DD", raw)
}
