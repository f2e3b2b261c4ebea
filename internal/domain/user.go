package domain

type Plan string

const (
	PlanFree    Plan = "free"
	PlanCreator Plan = "creator"
	PlanPro     Plan = "pro"
)

func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanCreator, PlanPro:
		return true
	default:
		return false
	}
}

// Session is what a session cookie resolves to.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Plan   Plan   `json:"plan"`
}

// UsageSummary reports monthly format search usage. Limit <= 0 means unlimited.
type UsageSummary struct {
	Plan      Plan `json:"plan"`
	Used      int  `json:"used"`
	Limit     int  `json:"limit"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}
