package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	tierdomain "github.com/tastelanc/backoffice/internal/tier/domain"
)

func newFeaturesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "features <tier>",
		Short: "List the features a tier unlocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, ok := tierdomain.ParseTier(args[0])
			if !ok {
				return fmt.Errorf("unknown tier %q", args[0])
			}
			features := tierdomain.FeaturesFor(tier).Strings()
			if asJSON {
				return writeJSON(cmd, features)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(features, "\n"))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newAccessCmd() *cobra.Command {
	var (
		current  string
		required string
		feature  string
	)

	cmd := &cobra.Command{
		Use:   "access",
		Short: "Check whether a tier may use a feature or a higher tier's content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			have := tierdomain.Tier(strings.ToLower(strings.TrimSpace(current)))
			var allowed bool
			switch {
			case feature != "":
				f, ok := tierdomain.ParseFeature(feature)
				if !ok {
					return fmt.Errorf("unknown feature %q", feature)
				}
				// unknown tiers get the basic set
				allowed = tierdomain.FeaturesFor(have).Has(f)
			case required != "":
				need, ok := tierdomain.ParseTier(required)
				if !ok {
					return fmt.Errorf("unknown tier %q", required)
				}
				allowed = tierdomain.HasAccess(have, need)
			default:
				return fmt.Errorf("one of --feature or --required is needed")
			}

			verdict := "denied"
			if allowed {
				verdict = "allowed"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), verdict)
			return err
		},
	}

	cmd.Flags().StringVar(&current, "tier", "", "The restaurant's current tier")
	cmd.Flags().StringVar(&required, "required", "", "Tier required by the content")
	cmd.Flags().StringVar(&feature, "feature", "", "Feature to check")

	return cmd
}
