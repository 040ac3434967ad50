package insurance

import "strings"

// PlanSHA is the plan variant with quarterly usage caps. Every other
// plan type is treated as standard coverage with no cap.
const PlanSHA = "sha"

// Insurance is the patient's coverage record.
type Insurance struct {
	Provider     string `json:"provider"`
	PolicyNumber string `json:"policyNumber"`
	GroupNumber  string `json:"groupNumber"`
	HolderName   string `json:"holderName"`

	PlanType       string  `json:"planType"`
	QuarterlyLimit float64 `json:"quarterlyLimit"`
	QuarterlyUsed  float64 `json:"quarterlyUsed"`
}

// IsShaPlan reports whether the quarterly fields are meaningful.
func (i Insurance) IsShaPlan() bool {
	return strings.EqualFold(i.PlanType, PlanSHA)
}

// Usage summarizes quarterly consumption. used > limit is allowed
// (display-flagged via OverLimit) but Remaining never goes negative.
type Usage struct {
	Used       float64
	Limit      float64
	Remaining  float64
	Percentage float64
	OverLimit  bool
}

func (i Insurance) Usage() Usage {
	u := Usage{Used: i.QuarterlyUsed, Limit: i.QuarterlyLimit}
	u.Remaining = u.Limit - u.Used
	if u.Remaining < 0 {
		u.Remaining = 0
	}
	if u.Limit > 0 {
		u.Percentage = (u.Used / u.Limit) * 100
	}
	u.OverLimit = u.Used > u.Limit
	return u
}

// CheckCoverage reports whether an expense of amount fits the remaining
// quarterly allowance. Non-SHA plans have no cap, so everything is
// covered.
func (i Insurance) CheckCoverage(amount float64) bool {
	if !i.IsShaPlan() {
		return true
	}
	return amount <= i.Usage().Remaining
}

// Patch is a sparse update. Provider through HolderName are the base
// fields every server contract accepts; the plan and quarterly fields
// are SHA-specific and may be rejected by older contracts.
type Patch struct {
	Provider     *string
	PolicyNumber *string
	GroupNumber  *string
	HolderName   *string

	PlanType       *string
	QuarterlyLimit *float64
	QuarterlyUsed  *float64
}

func (p Patch) hasShaFields() bool {
	return p.PlanType != nil || p.QuarterlyLimit != nil || p.QuarterlyUsed != nil
}

// baseOnly strips the SHA-specific fields for the degraded retry.
func (p Patch) baseOnly() Patch {
	return Patch{
		Provider:     p.Provider,
		PolicyNumber: p.PolicyNumber,
		GroupNumber:  p.GroupNumber,
		HolderName:   p.HolderName,
	}
}
