// Package notifications manages the patient's notification preferences.
// Every toggle defaults to on; the backend only stores deviations.
package notifications

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/kiangombe/patientcenter/internal/platform/cache"
	"github.com/kiangombe/patientcenter/internal/store"
)

// Path is the notification-settings resource endpoint.
const Path = "/api/patient/notification-settings"

type Settings struct {
	Email                bool `json:"email"`
	SMS                  bool `json:"sms"`
	AppointmentReminders bool `json:"appointmentReminders"`
	LabResults           bool `json:"labResults"`
}

type Patch struct {
	Email                *bool
	SMS                  *bool
	AppointmentReminders *bool
	LabResults           *bool
}

type wireSettings struct {
	Email                *bool `json:"email_notifications"`
	SMS                  *bool `json:"sms_notifications"`
	AppointmentReminders *bool `json:"appointment_reminders"`
	LabResults           *bool `json:"lab_results_notifications"`
}

type Codec struct{}

func (Codec) Defaults() Settings {
	return Settings{Email: true, SMS: true, AppointmentReminders: true, LabResults: true}
}

func (c Codec) Decode(raw json.RawMessage) (Settings, error) {
	s := c.Defaults()
	if len(raw) == 0 {
		return s, nil
	}
	var w wireSettings
	if err := json.Unmarshal(raw, &w); err != nil {
		return Settings{}, err
	}
	if w.Email != nil {
		s.Email = *w.Email
	}
	if w.SMS != nil {
		s.SMS = *w.SMS
	}
	if w.AppointmentReminders != nil {
		s.AppointmentReminders = *w.AppointmentReminders
	}
	if w.LabResults != nil {
		s.LabResults = *w.LabResults
	}
	return s, nil
}

func (Codec) EncodePatch(p Patch) map[string]any {
	out := map[string]any{}
	if p.Email != nil {
		out["email_notifications"] = *p.Email
	}
	if p.SMS != nil {
		out["sms_notifications"] = *p.SMS
	}
	if p.AppointmentReminders != nil {
		out["appointment_reminders"] = *p.AppointmentReminders
	}
	if p.LabResults != nil {
		out["lab_results_notifications"] = *p.LabResults
	}
	return out
}

func (Codec) Merge(cur Settings, p Patch) Settings {
	if p.Email != nil {
		cur.Email = *p.Email
	}
	if p.SMS != nil {
		cur.SMS = *p.SMS
	}
	if p.AppointmentReminders != nil {
		cur.AppointmentReminders = *p.AppointmentReminders
	}
	if p.LabResults != nil {
		cur.LabResults = *p.LabResults
	}
	return cur
}

type Store struct {
	*store.Store[Settings, Patch]
}

func NewStore(gw store.Gateway, c *cache.Cache, sess store.SessionSource, log zerolog.Logger) *Store {
	return &Store{store.New(store.Resource[Settings, Patch]{
		Key:           "notification_settings",
		Path:          Path,
		Codec:         Codec{},
		Fallback:      true,
		OfflineWrites: true,
	}, gw, c, sess, log)}
}
