package insurance

import (
	"encoding/json"
	"strconv"
)

// flexFloat tolerates the backend's stringly-typed numbers: 1500,
// "1500", and "1500.50" all decode.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type wireInsurance struct {
	Provider       *string    `json:"provider"`
	PolicyNumber   *string    `json:"policy_number"`
	GroupNumber    *string    `json:"group_number"`
	HolderName     *string    `json:"holder_name"`
	PlanType       *string    `json:"plan_type"`
	QuarterlyLimit *flexFloat `json:"quarterly_limit"`
	QuarterlyUsed  *flexFloat `json:"quarterly_used"`
}

type Codec struct{}

func (Codec) Defaults() Insurance {
	return Insurance{PlanType: "standard"}
}

func (c Codec) Decode(raw json.RawMessage) (Insurance, error) {
	ins := c.Defaults()
	if len(raw) == 0 {
		return ins, nil
	}
	var w wireInsurance
	if err := json.Unmarshal(raw, &w); err != nil {
		return Insurance{}, err
	}
	if w.Provider != nil {
		ins.Provider = *w.Provider
	}
	if w.PolicyNumber != nil {
		ins.PolicyNumber = *w.PolicyNumber
	}
	if w.GroupNumber != nil {
		ins.GroupNumber = *w.GroupNumber
	}
	if w.HolderName != nil {
		ins.HolderName = *w.HolderName
	}
	if w.PlanType != nil && *w.PlanType != "" {
		ins.PlanType = *w.PlanType
	}
	if w.QuarterlyLimit != nil {
		ins.QuarterlyLimit = float64(*w.QuarterlyLimit)
	}
	if w.QuarterlyUsed != nil {
		ins.QuarterlyUsed = float64(*w.QuarterlyUsed)
	}
	return ins, nil
}

func (Codec) EncodePatch(p Patch) map[string]any {
	out := map[string]any{}
	if p.Provider != nil {
		out["provider"] = *p.Provider
	}
	if p.PolicyNumber != nil {
		out["policy_number"] = *p.PolicyNumber
	}
	if p.GroupNumber != nil {
		out["group_number"] = *p.GroupNumber
	}
	if p.HolderName != nil {
		out["holder_name"] = *p.HolderName
	}
	if p.PlanType != nil {
		out["plan_type"] = *p.PlanType
	}
	if p.QuarterlyLimit != nil {
		out["quarterly_limit"] = *p.QuarterlyLimit
	}
	if p.QuarterlyUsed != nil {
		out["quarterly_used"] = *p.QuarterlyUsed
	}
	return out
}

func (Codec) Merge(cur Insurance, p Patch) Insurance {
	if p.Provider != nil {
		cur.Provider = *p.Provider
	}
	if p.PolicyNumber != nil {
		cur.PolicyNumber = *p.PolicyNumber
	}
	if p.GroupNumber != nil {
		cur.GroupNumber = *p.GroupNumber
	}
	if p.HolderName != nil {
		cur.HolderName = *p.HolderName
	}
	if p.PlanType != nil {
		cur.PlanType = *p.PlanType
	}
	if p.QuarterlyLimit != nil {
		cur.QuarterlyLimit = *p.QuarterlyLimit
	}
	if p.QuarterlyUsed != nil {
		cur.QuarterlyUsed = *p.QuarterlyUsed
	}
	return cur
}
