package service

import (
	"github.com/shopspring/decimal"
)

// Plan is a fixed staking product. The catalog is configuration, not runtime
// state; stake validation and settlement share this single definition.
type Plan struct {
	ID           string
	Name         string
	DurationDays int
	MinPrincipal decimal.Decimal
	// TotalReturnPercent includes the principal: 200 means the staker ends
	// up with 2x the principal (principal back + an equal reward).
	TotalReturnPercent decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// TotalReward returns the reward accrued over the full term for the given
// principal: principal * (pct/100) - principal.
func (p Plan) TotalReward(principal decimal.Decimal) decimal.Decimal {
	return principal.Mul(p.TotalReturnPercent).Div(hundred).Sub(principal)
}

// DailyReward amortizes the total reward over the term. Fixed at stake
// creation; settlement never recomputes it.
func (p Plan) DailyReward(totalReward decimal.Decimal) decimal.Decimal {
	return totalReward.DivRound(decimal.NewFromInt(int64(p.DurationDays)), 18)
}

// StakingPlans is the static catalog.
var StakingPlans = []Plan{
	{ID: "quick", Name: "Quick Stake", DurationDays: 7, MinPrincipal: decimal.NewFromInt(50), TotalReturnPercent: decimal.NewFromInt(200)},
	{ID: "standard", Name: "Standard Stake", DurationDays: 30, MinPrincipal: decimal.NewFromInt(100), TotalReturnPercent: decimal.NewFromInt(350)},
	{ID: "premium", Name: "Premium Stake", DurationDays: 90, MinPrincipal: decimal.NewFromInt(500), TotalReturnPercent: decimal.NewFromInt(600)},
	{ID: "elite", Name: "Elite Stake", DurationDays: 180, MinPrincipal: decimal.NewFromInt(1000), TotalReturnPercent: decimal.NewFromInt(1100)},
}

// FindPlan looks up a plan by id.
func FindPlan(id string) (Plan, bool) {
	for _, p := range StakingPlans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}
