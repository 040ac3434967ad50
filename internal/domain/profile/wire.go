package profile

import "encoding/json"

// wireProfile is the backend's record shape: snake_case keys, optional
// fields, emergency contact as a nested object.
type wireProfile struct {
	FullName       *string   `json:"full_name"`
	Email          *string   `json:"email"`
	Phone          *string   `json:"phone"`
	Gender         *string   `json:"gender"`
	DateOfBirth    *string   `json:"date_of_birth"`
	Address        *string   `json:"address"`
	ProfilePicture *string   `json:"profile_picture"`
	BloodType      *string   `json:"blood_type"`
	Height         *string   `json:"height"`
	Weight         *string   `json:"weight"`
	Allergies      []string  `json:"allergies"`
	Conditions     []string  `json:"conditions"`
	Medications    []string  `json:"medications"`
	Emergency      *struct {
		Name     *string `json:"name"`
		Phone    *string `json:"phone"`
		Relation *string `json:"relation"`
	} `json:"emergency_contact"`
}

// Codec converts between the wire record and Profile. It is pure: no
// store or network dependency.
type Codec struct{}

func (Codec) Defaults() Profile {
	return Profile{
		Allergies:   []string{},
		Conditions:  []string{},
		Medications: []string{},
	}
}

func (c Codec) Decode(raw json.RawMessage) (Profile, error) {
	p := c.Defaults()
	if len(raw) == 0 {
		return p, nil
	}
	var w wireProfile
	if err := json.Unmarshal(raw, &w); err != nil {
		return Profile{}, err
	}
	setStr(&p.FullName, w.FullName)
	setStr(&p.Email, w.Email)
	setStr(&p.Phone, w.Phone)
	setStr(&p.Gender, w.Gender)
	setStr(&p.DateOfBirth, w.DateOfBirth)
	setStr(&p.Address, w.Address)
	setStr(&p.AvatarURL, w.ProfilePicture)
	setStr(&p.BloodType, w.BloodType)
	setStr(&p.Height, w.Height)
	setStr(&p.Weight, w.Weight)
	if w.Allergies != nil {
		p.Allergies = w.Allergies
	}
	if w.Conditions != nil {
		p.Conditions = w.Conditions
	}
	if w.Medications != nil {
		p.Medications = w.Medications
	}
	if w.Emergency != nil {
		setStr(&p.EmergencyName, w.Emergency.Name)
		setStr(&p.EmergencyPhone, w.Emergency.Phone)
		setStr(&p.EmergencyRelation, w.Emergency.Relation)
	}
	return p, nil
}

// EncodePatch emits only the keys present in the patch, in the casing
// the backend expects.
func (Codec) EncodePatch(p Patch) map[string]any {
	out := map[string]any{}
	putStr(out, "full_name", p.FullName)
	putStr(out, "phone", p.Phone)
	putStr(out, "gender", p.Gender)
	putStr(out, "date_of_birth", p.DateOfBirth)
	putStr(out, "address", p.Address)
	putStr(out, "profile_picture", p.AvatarURL)
	putStr(out, "blood_type", p.BloodType)
	putStr(out, "height", p.Height)
	putStr(out, "weight", p.Weight)
	if p.Allergies != nil {
		out["allergies"] = *p.Allergies
	}
	if p.Conditions != nil {
		out["conditions"] = *p.Conditions
	}
	if p.Medications != nil {
		out["medications"] = *p.Medications
	}
	ec := map[string]any{}
	putStr(ec, "name", p.EmergencyName)
	putStr(ec, "phone", p.EmergencyPhone)
	putStr(ec, "relation", p.EmergencyRelation)
	if len(ec) > 0 {
		out["emergency_contact"] = ec
	}
	return out
}

func (Codec) Merge(cur Profile, p Patch) Profile {
	setStr(&cur.FullName, p.FullName)
	setStr(&cur.Phone, p.Phone)
	setStr(&cur.Gender, p.Gender)
	setStr(&cur.DateOfBirth, p.DateOfBirth)
	setStr(&cur.Address, p.Address)
	setStr(&cur.AvatarURL, p.AvatarURL)
	setStr(&cur.BloodType, p.BloodType)
	setStr(&cur.Height, p.Height)
	setStr(&cur.Weight, p.Weight)
	if p.Allergies != nil {
		cur.Allergies = *p.Allergies
	}
	if p.Conditions != nil {
		cur.Conditions = *p.Conditions
	}
	if p.Medications != nil {
		cur.Medications = *p.Medications
	}
	setStr(&cur.EmergencyName, p.EmergencyName)
	setStr(&cur.EmergencyPhone, p.EmergencyPhone)
	setStr(&cur.EmergencyRelation, p.EmergencyRelation)
	return cur
}

func setStr(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func putStr(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}
