package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PricingOption is one purchasable duration of a plan together with the
// commission paid for selling it. All amounts are whole currency units.
type PricingOption struct {
	Cost                  int64 `json:"cost" mapstructure:"cost" yaml:"cost"`
	LengthMonths          int   `json:"length_months" mapstructure:"lengthMonths" yaml:"lengthMonths"`
	PayoutStandard        int64 `json:"payout_standard" mapstructure:"payoutStandard" yaml:"payoutStandard"`
	PayoutBonus           int64 `json:"payout_bonus" mapstructure:"payoutBonus" yaml:"payoutBonus"`
	RenewalPayoutStandard int64 `json:"renewal_payout_standard" mapstructure:"renewalPayoutStandard" yaml:"renewalPayoutStandard"`
	RenewalPayoutBonus    int64 `json:"renewal_payout_bonus" mapstructure:"renewalPayoutBonus" yaml:"renewalPayoutBonus"`
}

// Plan is a named restaurant subscription plan sold by the sales team.
type Plan struct {
	Name    string          `json:"name" mapstructure:"name" yaml:"name"`
	Options []PricingOption `json:"options" mapstructure:"options" yaml:"options"`
}

// PlanTable is the configured set of commissionable plans.
type PlanTable struct {
	Plans []Plan `json:"plans" mapstructure:"plans" yaml:"plans"`
}

var (
	ErrEmptyPlanTable     = errors.New("commission plan table is empty")
	ErrDuplicatePlan      = errors.New("duplicate commission plan")
	ErrDuplicateLength    = errors.New("duplicate pricing option length")
	ErrInvalidPricing     = errors.New("invalid pricing option")
	ErrInconsistentPayout = errors.New("renewal payout is not half of new-sale payout")
)

// Lookup finds the pricing option for a plan name (case-insensitive) and
// length in months.
func (t PlanTable) Lookup(planName string, lengthMonths int) (PricingOption, bool) {
	name := normalizePlanName(planName)
	if name == "" {
		return PricingOption{}, false
	}
	for _, plan := range t.Plans {
		if normalizePlanName(plan.Name) != name {
			continue
		}
		for _, opt := range plan.Options {
			if opt.LengthMonths == lengthMonths {
				return opt, true
			}
		}
		return PricingOption{}, false
	}
	return PricingOption{}, false
}

// Payout returns the commission for a sale. Unknown plans or lengths pay
// zero; callers that need to tell a miss apart from a real zero use Lookup.
func (t PlanTable) Payout(planName string, lengthMonths int, isRenewal bool, signupsInPeriod int) int64 {
	opt, ok := t.Lookup(planName, lengthMonths)
	if !ok {
		return 0
	}
	return opt.PayoutFor(TierFor(signupsInPeriod), isRenewal)
}

// PayoutFor selects one of the four configured payout fields.
func (o PricingOption) PayoutFor(tier CommissionTier, isRenewal bool) int64 {
	bonus := tier.Label == BonusTier.Label
	switch {
	case isRenewal && bonus:
		return o.RenewalPayoutBonus
	case isRenewal:
		return o.RenewalPayoutStandard
	case bonus:
		return o.PayoutBonus
	default:
		return o.PayoutStandard
	}
}

// PlanNames returns the configured plan names sorted alphabetically.
func (t PlanTable) PlanNames() []string {
	names := make([]string, 0, len(t.Plans))
	for _, plan := range t.Plans {
		names = append(names, plan.Name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the table invariants: unique plan names, exactly one option
// per length, and renewal payouts configured at half the new-sale payout.
func (t PlanTable) Validate() error {
	if len(t.Plans) == 0 {
		return ErrEmptyPlanTable
	}
	seenPlans := make(map[string]struct{}, len(t.Plans))
	for _, plan := range t.Plans {
		name := normalizePlanName(plan.Name)
		if name == "" {
			return fmt.Errorf("%w: empty plan name", ErrInvalidPricing)
		}
		if _, ok := seenPlans[name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicatePlan, plan.Name)
		}
		seenPlans[name] = struct{}{}

		if len(plan.Options) == 0 {
			return fmt.Errorf("%w: plan %s has no options", ErrInvalidPricing, plan.Name)
		}
		seenLengths := make(map[int]struct{}, len(plan.Options))
		for _, opt := range plan.Options {
			if opt.LengthMonths <= 0 || opt.Cost <= 0 {
				return fmt.Errorf("%w: plan %s length %d", ErrInvalidPricing, plan.Name, opt.LengthMonths)
			}
			if _, ok := seenLengths[opt.LengthMonths]; ok {
				return fmt.Errorf("%w: plan %s length %d", ErrDuplicateLength, plan.Name, opt.LengthMonths)
			}
			seenLengths[opt.LengthMonths] = struct{}{}

			if opt.RenewalPayoutStandard != halfRoundedUp(opt.PayoutStandard) ||
				opt.RenewalPayoutBonus != halfRoundedUp(opt.PayoutBonus) {
				return fmt.Errorf("%w: plan %s length %d", ErrInconsistentPayout, plan.Name, opt.LengthMonths)
			}
		}
	}
	return nil
}

func halfRoundedUp(v int64) int64 {
	return (v + 1) / 2
}

func normalizePlanName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DefaultPlanTable is the authoritative commission table shipped with the
// service. config/commission.yml overrides it at runtime.
func DefaultPlanTable() PlanTable {
	return PlanTable{
		Plans: []Plan{
			{
				Name: "Premium",
				Options: []PricingOption{
					{Cost: 250, LengthMonths: 3, PayoutStandard: 38, PayoutBonus: 50, RenewalPayoutStandard: 19, RenewalPayoutBonus: 25},
					{Cost: 450, LengthMonths: 6, PayoutStandard: 68, PayoutBonus: 90, RenewalPayoutStandard: 34, RenewalPayoutBonus: 45},
					{Cost: 800, LengthMonths: 12, PayoutStandard: 120, PayoutBonus: 160, RenewalPayoutStandard: 60, RenewalPayoutBonus: 80},
				},
			},
			{
				Name: "Elite",
				Options: []PricingOption{
					{Cost: 350, LengthMonths: 3, PayoutStandard: 53, PayoutBonus: 70, RenewalPayoutStandard: 27, RenewalPayoutBonus: 35},
					{Cost: 600, LengthMonths: 6, PayoutStandard: 90, PayoutBonus: 120, RenewalPayoutStandard: 45, RenewalPayoutBonus: 60},
					{Cost: 1100, LengthMonths: 12, PayoutStandard: 165, PayoutBonus: 220, RenewalPayoutStandard: 83, RenewalPayoutBonus: 110},
				},
			},
		},
	}
}
