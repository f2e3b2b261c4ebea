package usage

import "github.com/kapu/trendformats-go/internal/domain"

// Policy holds monthly format search limits per plan. A limit <= 0 is unlimited.
type Policy struct {
	Free    int
	Creator int
	Pro     int
}

func (p Policy) Limit(plan domain.Plan) int {
	switch plan {
	case domain.PlanCreator:
		return p.Creator
	case domain.PlanPro:
		return p.Pro
	default:
		return p.Free
	}
}

// Summarize reports usage for plan given the number of searches this month.
func (p Policy) Summarize(plan domain.Plan, used int) domain.UsageSummary {
	if !plan.IsValid() {
		plan = domain.PlanFree
	}
	limit := p.Limit(plan)
	summary := domain.UsageSummary{Plan: plan, Used: used, Limit: limit}
	if limit <= 0 {
		summary.Unlimited = true
		summary.Limit = 0
		return summary
	}
	if remaining := limit - used; remaining > 0 {
		summary.Remaining = remaining
	}
	return summary
}

// Allows reports whether one more search fits in the summary's window.
func Allows(s domain.UsageSummary) bool {
	return s.Unlimited || s.Used < s.Limit
}
