package domain

import "time"

// QuotaWindow is the trailing period used to rate limit identified actors.
const QuotaWindow = 7 * 24 * time.Hour

// ScanRecord marks one completed analysis by an identified actor.
type ScanRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Confidence int       `json:"confidence"`
	Verdict    string    `json:"verdict"`
	CreatedAt  time.Time `json:"created_at"`
}

// Allowance is the quota state of an actor at a point in time.
type Allowance struct {
	Remaining    int    `json:"remaining"`
	Limit        int    `json:"limit"`
	LimitReached bool   `json:"limit_reached"`
	Notice       string `json:"notice,omitempty"`
}

// NewAllowance clamps remaining at zero and derives the reached flag.
func NewAllowance(limit, used int, anonymous bool) Allowance {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	a := Allowance{
		Remaining:    remaining,
		Limit:        limit,
		LimitReached: remaining <= 0,
	}
	if a.LimitReached {
		if anonymous {
			a.Notice = "Weekly limit reached. Sign in for more scans."
		} else {
			a.Notice = "Weekly limit reached. Upgrade or wait for reset."
		}
	}
	return a
}
