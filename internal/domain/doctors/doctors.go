// Package doctors exposes the doctor directory. Reads go through the
// store engine with a cache fallback; the admin mutations talk to the
// gateway directly and refresh the list on success.
package doctors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kiangombe/patientcenter/internal/platform/cache"
	"github.com/kiangombe/patientcenter/internal/store"
)

// Path is the doctor directory endpoint.
const Path = "/doctors"

// Doctor is one directory entry.
type Doctor struct {
	ID              int     `json:"id"`
	UserID          int     `json:"userId"`
	FullName        string  `json:"fullName"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	Specialization  string  `json:"specialization"`
	Bio             string  `json:"bio"`
	IsAvailable     bool    `json:"isAvailable"`
	Rating          float64 `json:"rating"`
	ConsultationFee float64 `json:"consultationFee"`
	PatientsCount   int     `json:"patientsCount"`
	Avatar          string  `json:"avatar"`
}

// wireDoctor matches the backend response. The directory payload mixes
// conventions: user_id is snake_case while fullName, isAvailable and
// consultationFee are camelCase. Kept as the server sends it.
type wireDoctor struct {
	ID              int      `json:"id"`
	UserID          int      `json:"user_id"`
	FullName        string   `json:"fullName"`
	Email           string   `json:"email"`
	Phone           *string  `json:"phone"`
	Specialization  *string  `json:"specialization"`
	Bio             *string  `json:"bio"`
	IsAvailable     bool     `json:"isAvailable"`
	Rating          float64  `json:"rating"`
	ConsultationFee *float64 `json:"consultationFee"`
	PatientsCount   int      `json:"patientsCount"`
	Avatar          *string  `json:"avatar"`
}

func (w wireDoctor) toDoctor() Doctor {
	d := Doctor{
		ID:            w.ID,
		UserID:        w.UserID,
		FullName:      w.FullName,
		Email:         w.Email,
		IsAvailable:   w.IsAvailable,
		Rating:        w.Rating,
		PatientsCount: w.PatientsCount,
	}
	if w.Phone != nil {
		d.Phone = *w.Phone
	}
	if w.Specialization != nil {
		d.Specialization = *w.Specialization
	}
	if w.Bio != nil {
		d.Bio = *w.Bio
	}
	if w.ConsultationFee != nil {
		d.ConsultationFee = *w.ConsultationFee
	}
	if w.Avatar != nil {
		d.Avatar = *w.Avatar
	}
	return d
}

// CreateRequest is the admin payload for a new doctor profile.
type CreateRequest struct {
	UserID          int
	Specialization  string
	Bio             string
	LicenseNumber   string
	ConsultationFee float64
	IsAvailable     bool
}

// UpdateRequest is a sparse admin update.
type UpdateRequest struct {
	Specialization  *string
	Bio             *string
	LicenseNumber   *string
	ConsultationFee *float64
	IsAvailable     *bool
	Rating          *float64
}

// Codec decodes the directory list. The directory is read-only through
// the store engine, so the patch side is empty.
type Codec struct{}

func (Codec) Defaults() []Doctor { return []Doctor{} }

func (c Codec) Decode(raw json.RawMessage) ([]Doctor, error) {
	if len(raw) == 0 {
		return c.Defaults(), nil
	}
	var wires []wireDoctor
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, err
	}
	out := make([]Doctor, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.toDoctor())
	}
	return out, nil
}

func (Codec) EncodePatch(struct{}) map[string]any { return nil }

func (Codec) Merge(cur []Doctor, _ struct{}) []Doctor { return cur }

type Store struct {
	*store.Store[[]Doctor, struct{}]
	gw  store.Gateway
	log zerolog.Logger
}

func NewStore(gw store.Gateway, c *cache.Cache, sess store.SessionSource, log zerolog.Logger) *Store {
	return &Store{
		Store: store.New(store.Resource[[]Doctor, struct{}]{
			Key:      "doctors",
			Path:     Path,
			Codec:    Codec{},
			Fallback: true,
		}, gw, c, sess, log),
		gw:  gw,
		log: log.With().Str("resource", "doctors").Logger(),
	}
}

// BySpecialization filters the fetched directory in memory.
func (s *Store) BySpecialization(specialization string) []Doctor {
	all, ok := s.Data()
	if !ok {
		return []Doctor{}
	}
	out := []Doctor{}
	for _, d := range all {
		if d.Specialization == specialization {
			out = append(out, d)
		}
	}
	return out
}

// Get fetches a single doctor by id, bypassing the list slot.
func (s *Store) Get(ctx context.Context, id int) (Doctor, error) {
	var w wireDoctor
	if err := s.gw.Get(ctx, fmt.Sprintf("%s/%d", Path, id), &w); err != nil {
		return Doctor{}, err
	}
	return w.toDoctor(), nil
}

// Create registers a new doctor profile and refreshes the directory.
func (s *Store) Create(ctx context.Context, req CreateRequest) (Doctor, error) {
	body := map[string]any{
		"user_id":      req.UserID,
		"is_available": req.IsAvailable,
	}
	if req.Specialization != "" {
		body["specialization"] = req.Specialization
	}
	if req.Bio != "" {
		body["bio"] = req.Bio
	}
	if req.LicenseNumber != "" {
		body["license_number"] = req.LicenseNumber
	}
	if req.ConsultationFee > 0 {
		body["consultation_fee"] = req.ConsultationFee
	}

	var w wireDoctor
	if err := s.gw.Post(ctx, Path, body, &w); err != nil {
		s.log.Warn().Err(err).Msg("creating doctor")
		return Doctor{}, err
	}
	s.Fetch(ctx)
	return w.toDoctor(), nil
}

// Update applies a sparse admin update and refreshes the directory.
func (s *Store) Update(ctx context.Context, id int, req UpdateRequest) (Doctor, error) {
	body := map[string]any{}
	if req.Specialization != nil {
		body["specialization"] = *req.Specialization
	}
	if req.Bio != nil {
		body["bio"] = *req.Bio
	}
	if req.LicenseNumber != nil {
		body["license_number"] = *req.LicenseNumber
	}
	if req.ConsultationFee != nil {
		body["consultation_fee"] = *req.ConsultationFee
	}
	if req.IsAvailable != nil {
		body["is_available"] = *req.IsAvailable
	}
	if req.Rating != nil {
		body["rating"] = *req.Rating
	}

	var w wireDoctor
	if err := s.gw.Put(ctx, fmt.Sprintf("%s/%d", Path, id), body, &w); err != nil {
		s.log.Warn().Err(err).Msg("updating doctor")
		return Doctor{}, err
	}
	s.Fetch(ctx)
	return w.toDoctor(), nil
}

// Delete removes a doctor profile and refreshes the directory.
func (s *Store) Delete(ctx context.Context, id int) error {
	if err := s.gw.Delete(ctx, fmt.Sprintf("%s/%d", Path, id), nil); err != nil {
		s.log.Warn().Err(err).Msg("deleting doctor")
		return err
	}
	s.Fetch(ctx)
	return nil
}
