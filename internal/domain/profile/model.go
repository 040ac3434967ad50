package profile

import "time"

// Profile is the patient's merged account, medical, and emergency
// contact record as the client consumes it. Every field is always
// populated: absent upstream values decode to the documented defaults.
type Profile struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"dateOfBirth"` // YYYY-MM-DD, empty when unknown
	Address     string `json:"address"`
	AvatarURL   string `json:"avatarUrl"`

	BloodType   string   `json:"bloodType"`
	Height      string   `json:"height"`
	Weight      string   `json:"weight"`
	Allergies   []string `json:"allergies"`
	Conditions  []string `json:"conditions"`
	Medications []string `json:"medications"`

	EmergencyName     string `json:"emergencyName"`
	EmergencyPhone    string `json:"emergencyPhone"`
	EmergencyRelation string `json:"emergencyRelation"`
}

// Age returns the patient's age in whole years at time now, or 0 when
// the date of birth is unknown or unparsable.
func (p Profile) Age(now time.Time) int {
	if p.DateOfBirth == "" {
		return 0
	}
	dob, err := time.Parse("2006-01-02", p.DateOfBirth)
	if err != nil {
		return 0
	}
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Patch is a sparse update: only non-nil fields are sent to the backend
// and applied on merge.
type Patch struct {
	FullName    *string
	Phone       *string
	Gender      *string
	DateOfBirth *string
	Address     *string
	AvatarURL   *string

	BloodType   *string
	Height      *string
	Weight      *string
	Allergies   *[]string
	Conditions  *[]string
	Medications *[]string

	EmergencyName     *string
	EmergencyPhone    *string
	EmergencyRelation *string
}
