package mockapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kiangombe/patientcenter/internal/domain/wellness"
	"github.com/kiangombe/patientcenter/pkg/pagination"
)

// -- Single-record patient resources --

// getRecord serves a stored resource, answering 404 until the first
// write. The client's fallback policy turns that into defaults.
func (s *Server) getRecord(key string) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := currentUser(c)
		s.mu.Lock()
		rec, ok := u.records[key]
		s.mu.Unlock()
		if !ok {
			return c.JSON(http.StatusNotFound, detail(key+" record not found"))
		}
		return c.JSON(http.StatusOK, rec)
	}
}

// putRecord merges a sparse wire patch into the stored record and
// returns the full merged record.
func (s *Server) putRecord(key string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var patch map[string]any
		if err := c.Bind(&patch); err != nil {
			return c.JSON(http.StatusBadRequest, detail("invalid request body"))
		}
		u := currentUser(c)
		s.mu.Lock()
		rec := u.records[key]
		if rec == nil {
			rec = map[string]any{}
			u.records[key] = rec
		}
		for k, v := range patch {
			rec[k] = v
		}
		s.mu.Unlock()
		return c.JSON(http.StatusOK, rec)
	}
}

// shaFields are the insurance fields the older server contract rejects.
var shaFields = []string{"plan_type", "quarterly_limit", "quarterly_used"}

// putInsurance behaves like putRecord, except in legacy-wire mode where
// SHA plan fields are rejected with the FastAPI-style 422 body.
func (s *Server) putInsurance(c echo.Context) error {
	if s.cfg.LegacyWire {
		var patch map[string]any
		if err := c.Bind(&patch); err != nil {
			return c.JSON(http.StatusBadRequest, detail("invalid request body"))
		}
		for _, f := range shaFields {
			if _, ok := patch[f]; ok {
				return c.JSON(http.StatusUnprocessableEntity, detail([]map[string]any{{
					"loc":  []string{"body", f},
					"msg":  "extra fields not permitted",
					"type": "value_error.extra",
				}}))
			}
		}
		u := currentUser(c)
		s.mu.Lock()
		rec := u.records["insurance"]
		if rec == nil {
			rec = map[string]any{}
			u.records["insurance"] = rec
		}
		for k, v := range patch {
			rec[k] = v
		}
		s.mu.Unlock()
		return c.JSON(http.StatusOK, rec)
	}
	return s.putRecord("insurance")(c)
}

// activityLog returns the account activity, newest first.
func (s *Server) activityLog(c echo.Context) error {
	p := pagination.FromContext(c, 50)
	u := currentUser(c)
	s.mu.Lock()
	out := make([]activityRec, len(u.activity))
	for i, a := range u.activity {
		out[len(u.activity)-1-i] = a
	}
	s.mu.Unlock()
	lo, hi := p.Window(len(out))
	return c.JSON(http.StatusOK, out[lo:hi])
}

// -- Wishlist --

func (s *Server) getWishlist(c echo.Context) error {
	u := currentUser(c)
	s.mu.Lock()
	out := append([]wishRec(nil), u.wishlist...)
	s.mu.Unlock()
	if out == nil {
		out = []wishRec{}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) addToWishlist(c echo.Context) error {
	var req struct {
		MedicationID string `json:"medication_id"`
	}
	if err := c.Bind(&req); err != nil || req.MedicationID == "" {
		return c.JSON(http.StatusBadRequest, detail("medication_id is required"))
	}

	u := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range u.wishlist {
		if item.MedicationID == req.MedicationID {
			return c.JSON(http.StatusBadRequest, detail("Item already in wishlist"))
		}
	}

	med := lookupMed(req.MedicationID)
	u.nextWishID++
	item := wishRec{
		ID:                   u.nextWishID,
		MedicationID:         req.MedicationID,
		MedicationName:       med.Name,
		Dosage:               med.Dosage,
		Price:                med.Price,
		Category:             med.Category,
		InStock:              med.StockCount > 0,
		RequiresPrescription: med.RequiresPrescription,
		Rating:               med.Rating,
		Reviews:              med.Reviews,
		AddedDate:            time.Now().UTC().Format(time.RFC3339),
		Availability:         "in_stock",
		StockCount:           med.StockCount,
	}
	u.wishlist = append(u.wishlist, item)
	return c.JSON(http.StatusCreated, item)
}

func (s *Server) removeFromWishlist(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, detail("invalid wishlist item id"))
	}
	u := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range u.wishlist {
		if item.ID == id {
			u.wishlist = append(u.wishlist[:i], u.wishlist[i+1:]...)
			return c.JSON(http.StatusOK, map[string]string{"message": "Item removed from wishlist"})
		}
	}
	return c.JSON(http.StatusNotFound, detail("Wishlist item not found"))
}

func (s *Server) clearWishlist(c echo.Context) error {
	u := currentUser(c)
	s.mu.Lock()
	u.wishlist = nil
	s.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]string{"message": "Wishlist cleared"})
}

// -- Mental health --

func (s *Server) createMoodEntry(c echo.Context) error {
	var req struct {
		Mood    int    `json:"mood"`
		Energy  int    `json:"energy"`
		Anxiety int    `json:"anxiety"`
		Notes   string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, detail("invalid request body"))
	}
	for _, v := range []int{req.Mood, req.Energy, req.Anxiety} {
		if v < 1 || v > 10 {
			return c.JSON(http.StatusUnprocessableEntity, detail("ratings must be between 1 and 10"))
		}
	}

	u := currentUser(c)
	now := time.Now().UTC()
	s.mu.Lock()
	u.nextMoodID++
	rec := moodRec{
		ID:        u.nextMoodID,
		UserID:    u.id,
		Date:      now.Format("2006-01-02"),
		Mood:      req.Mood,
		Energy:    req.Energy,
		Anxiety:   req.Anxiety,
		Notes:     req.Notes,
		CreatedAt: now,
	}
	u.moods = append([]moodRec{rec}, u.moods...)
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, rec)
}

func (s *Server) getMoodEntries(c echo.Context) error {
	p := pagination.FromContext(c, 30)
	u := currentUser(c)
	s.mu.Lock()
	out := append([]moodRec{}, u.moods...)
	s.mu.Unlock()
	lo, hi := p.Window(len(out))
	return c.JSON(http.StatusOK, out[lo:hi])
}

func (s *Server) createGameResult(c echo.Context) error {
	var req struct {
		Game    string         `json:"game"`
		Score   int            `json:"score"`
		Level   int            `json:"level"`
		Metrics map[string]any `json:"metrics"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, detail("invalid request body"))
	}
	switch req.Game {
	case wellness.GameMemory, wellness.GameReaction, wellness.GameColor, wellness.GameFocus:
	default:
		return c.JSON(http.StatusUnprocessableEntity, detail("unknown game type"))
	}
	if req.Score < 0 || req.Level < 1 {
		return c.JSON(http.StatusUnprocessableEntity, detail("invalid score or level"))
	}
	if req.Metrics == nil {
		req.Metrics = map[string]any{}
	}

	u := currentUser(c)
	s.mu.Lock()
	u.nextGameID++
	rec := gameRec{
		ID:        u.nextGameID,
		UserID:    u.id,
		Game:      req.Game,
		Score:     req.Score,
		Level:     req.Level,
		Metrics:   req.Metrics,
		Timestamp: time.Now().UTC(),
	}
	u.games = append([]gameRec{rec}, u.games...)
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, rec)
}

func (s *Server) getGameResults(c echo.Context) error {
	p := pagination.FromContext(c, 50)
	gameType := c.QueryParam("game_type")
	u := currentUser(c)
	s.mu.Lock()
	out := []gameRec{}
	for _, g := range u.games {
		if gameType != "" && g.Game != gameType {
			continue
		}
		out = append(out, g)
	}
	s.mu.Unlock()
	lo, hi := p.Window(len(out))
	return c.JSON(http.StatusOK, out[lo:hi])
}

// mentalHealthScore derives the summary with the shared wellness
// formula, so the server and the client's offline path always agree.
func (s *Server) mentalHealthScore(c echo.Context) error {
	u := currentUser(c)
	s.mu.Lock()
	moods := make([]wellness.MoodEntry, 0, len(u.moods))
	for _, m := range u.moods {
		moods = append(moods, wellness.MoodEntry{Mood: m.Mood, Energy: m.Energy, Anxiety: m.Anxiety})
	}
	games := make([]wellness.GameResult, 0, len(u.games))
	for _, g := range u.games {
		games = append(games, wellness.GameResult{Game: g.Game, Score: g.Score})
	}
	s.mu.Unlock()

	sc := wellness.ComputeScore(moods, games, time.Now().UTC())
	return c.JSON(http.StatusOK, map[string]any{
		"overall":         sc.Overall,
		"stress":          sc.Stress,
		"anxiety":         sc.Anxiety,
		"focus":           sc.Focus,
		"mood":            sc.Mood,
		"recommendations": sc.Recommendations,
		"last_updated":    sc.LastUpdated,
	})
}

// -- Doctors --

func (s *Server) listDoctors(c echo.Context) error {
	specialization := c.QueryParam("specialization")
	s.mu.Lock()
	out := []doctorRec{}
	for _, d := range s.doctors {
		if specialization != "" && d.Specialization != specialization {
			continue
		}
		out = append(out, d)
	}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getDoctor(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, detail("invalid doctor id"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.doctors {
		if d.ID == id {
			return c.JSON(http.StatusOK, d)
		}
	}
	return c.JSON(http.StatusNotFound, detail("Doctor not found"))
}

func (s *Server) createDoctor(c echo.Context) error {
	var req struct {
		UserID          int     `json:"user_id"`
		Specialization  string  `json:"specialization"`
		Bio             string  `json:"bio"`
		ConsultationFee float64 `json:"consultation_fee"`
		IsAvailable     bool    `json:"is_available"`
	}
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, detail("user_id is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.doctors {
		if d.UserID == req.UserID {
			return c.JSON(http.StatusBadRequest, detail("Doctor profile already exists for this user."))
		}
	}
	d := doctorRec{
		ID:              s.nextDoctorID,
		UserID:          req.UserID,
		FullName:        "Dr. User " + strconv.Itoa(req.UserID),
		Specialization:  req.Specialization,
		Bio:             req.Bio,
		ConsultationFee: req.ConsultationFee,
		IsAvailable:     req.IsAvailable,
	}
	s.nextDoctorID++
	s.doctors = append(s.doctors, d)
	return c.JSON(http.StatusCreated, d)
}

func (s *Server) updateDoctor(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, detail("invalid doctor id"))
	}
	var req struct {
		Specialization  *string  `json:"specialization"`
		Bio             *string  `json:"bio"`
		ConsultationFee *float64 `json:"consultation_fee"`
		IsAvailable     *bool    `json:"is_available"`
		Rating          *float64 `json:"rating"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, detail("invalid request body"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doctors {
		if s.doctors[i].ID != id {
			continue
		}
		d := &s.doctors[i]
		if req.Specialization != nil {
			d.Specialization = *req.Specialization
		}
		if req.Bio != nil {
			d.Bio = *req.Bio
		}
		if req.ConsultationFee != nil {
			d.ConsultationFee = *req.ConsultationFee
		}
		if req.IsAvailable != nil {
			d.IsAvailable = *req.IsAvailable
		}
		if req.Rating != nil {
			d.Rating = *req.Rating
		}
		return c.JSON(http.StatusOK, *d)
	}
	return c.JSON(http.StatusNotFound, detail("Doctor not found"))
}

func (s *Server) deleteDoctor(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, detail("invalid doctor id"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.doctors {
		if d.ID == id {
			s.doctors = append(s.doctors[:i], s.doctors[i+1:]...)
			return c.JSON(http.StatusOK, map[string]string{"message": "Doctor removed"})
		}
	}
	return c.JSON(http.StatusNotFound, detail("Doctor not found"))
}
