package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	commissiondomain "github.com/tastelanc/backoffice/internal/commission/domain"
	"github.com/tastelanc/backoffice/internal/config"
)

type payoutResult struct {
	PlanName        string `json:"plan_name"`
	LengthMonths    int    `json:"length_months"`
	IsRenewal       bool   `json:"is_renewal"`
	SignupsInPeriod int    `json:"signups_in_period"`
	Tier            string `json:"tier"`
	Matched         bool   `json:"matched"`
	Amount          int64  `json:"amount"`
}

func newPayoutCmd() *cobra.Command {
	var (
		plan      string
		months    int
		renewal   bool
		signups   int
		configDir string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "payout",
		Short: "Compute the commission for one sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := commissiondomain.DefaultPlanTable()
			if configDir != "" {
				holder, err := config.LoadCommissionConfig(zap.NewNop(), configDir)
				if err != nil {
					return fmt.Errorf("load commission config: %w", err)
				}
				table = holder.Get()
			}

			_, matched := table.Lookup(plan, months)
			result := payoutResult{
				PlanName:        plan,
				LengthMonths:    months,
				IsRenewal:       renewal,
				SignupsInPeriod: signups,
				Tier:            commissiondomain.TierFor(signups).Label,
				Matched:         matched,
				Amount:          table.Payout(plan, months, renewal, signups),
			}
			if asJSON {
				return writeJSON(cmd, result)
			}
			if !matched {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "no pricing option for %q at %d months; payout $0\n", plan, months)
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "$%d (%s tier)\n", result.Amount, result.Tier)
			return err
		},
	}

	cmd.Flags().StringVar(&plan, "plan", "", "Plan name, e.g. Premium")
	cmd.Flags().IntVar(&months, "months", 0, "Contract length in months")
	cmd.Flags().BoolVar(&renewal, "renewal", false, "Price as a renewal")
	cmd.Flags().IntVar(&signups, "signups", 0, "New signups in the rep's current 30 day window")
	cmd.Flags().StringVar(&configDir, "config-dir", "", "Directory holding commission.yml (default: built-in table)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("months")

	return cmd
}
