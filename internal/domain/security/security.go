// Package security manages the account security settings and the
// read-only activity log shown on the security page.
package security

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/kiangombe/patientcenter/internal/platform/cache"
	"github.com/kiangombe/patientcenter/internal/store"
)

const (
	SettingsPath    = "/api/patient/security-settings"
	ActivityLogPath = "/api/patient/activity-log"
)

type Settings struct {
	TwoFactorEnabled bool `json:"twoFactorEnabled"`
	LoginAlerts      bool `json:"loginAlerts"`
}

type Patch struct {
	TwoFactorEnabled *bool
	LoginAlerts      *bool
}

type wireSettings struct {
	TwoFactorEnabled *bool `json:"two_factor_enabled"`
	LoginAlerts      *bool `json:"login_alerts"`
}

type Codec struct{}

func (Codec) Defaults() Settings {
	return Settings{TwoFactorEnabled: false, LoginAlerts: true}
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
	if w.TwoFactorEnabled != nil {
		s.TwoFactorEnabled = *w.TwoFactorEnabled
	}
	if w.LoginAlerts != nil {
		s.LoginAlerts = *w.LoginAlerts
	}
	return s, nil
}

func (Codec) EncodePatch(p Patch) map[string]any {
	out := map[string]any{}
	if p.TwoFactorEnabled != nil {
		out["two_factor_enabled"] = *p.TwoFactorEnabled
	}
	if p.LoginAlerts != nil {
		out["login_alerts"] = *p.LoginAlerts
	}
	return out
}

func (Codec) Merge(cur Settings, p Patch) Settings {
	if p.TwoFactorEnabled != nil {
		cur.TwoFactorEnabled = *p.TwoFactorEnabled
	}
	if p.LoginAlerts != nil {
		cur.LoginAlerts = *p.LoginAlerts
	}
	return cur
}

type Store struct {
	*store.Store[Settings, Patch]
}

func NewStore(gw store.Gateway, c *cache.Cache, sess store.SessionSource, log zerolog.Logger) *Store {
	return &Store{store.New(store.Resource[Settings, Patch]{
		Key:           "security_settings",
		Path:          SettingsPath,
		Codec:         Codec{},
		Fallback:      true,
		OfflineWrites: true,
	}, gw, c, sess, log)}
}

// -- Activity log --

// ActivityEntry is one row of the account activity log.
type ActivityEntry struct {
	Action    string    `json:"action"`
	Device    string    `json:"device"`
	Location  string    `json:"location"`
	IPAddress string    `json:"ipAddress"`
	Timestamp time.Time `json:"timestamp"`
}

type wireActivityEntry struct {
	Action    string     `json:"action"`
	Device    string     `json:"device"`
	Location  string     `json:"location"`
	IPAddress string     `json:"ip_address"`
	Timestamp *time.Time `json:"timestamp"`
}

// ActivityCodec decodes the activity list. The log is read-only, so the
// patch side is empty.
type ActivityCodec struct{}

func (ActivityCodec) Defaults() []ActivityEntry { return []ActivityEntry{} }

func (c ActivityCodec) Decode(raw json.RawMessage) ([]ActivityEntry, error) {
	if len(raw) == 0 {
		return c.Defaults(), nil
	}
	var wires []wireActivityEntry
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, err
	}
	entries := make([]ActivityEntry, 0, len(wires))
	for _, w := range wires {
		e := ActivityEntry{
			Action:    w.Action,
			Device:    w.Device,
			Location:  w.Location,
			IPAddress: w.IPAddress,
		}
		if w.Timestamp != nil {
			e.Timestamp = *w.Timestamp
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (ActivityCodec) EncodePatch(struct{}) map[string]any { return nil }

func (ActivityCodec) Merge(cur []ActivityEntry, _ struct{}) []ActivityEntry { return cur }

type ActivityStore struct {
	*store.Store[[]ActivityEntry, struct{}]
}

func NewActivityStore(gw store.Gateway, c *cache.Cache, sess store.SessionSource, log zerolog.Logger) *ActivityStore {
	return &ActivityStore{store.New(store.Resource[[]ActivityEntry, struct{}]{
		Key:      "activity_log",
		Path:     ActivityLogPath,
		Codec:    ActivityCodec{},
		Fallback: true,
	}, gw, c, sess, log)}
}
