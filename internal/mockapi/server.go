// Package mockapi is a development stand-in for the patient-center
// backend. It speaks the same wire contract the resource stores consume,
// holds all state in memory keyed by authenticated user, and can emulate
// the older server contract that rejects SHA insurance fields.
package mockapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/kiangombe/patientcenter/internal/config"
	"github.com/kiangombe/patientcenter/internal/platform/middleware"
)

// Server holds the in-memory backend state.
type Server struct {
	cfg *config.Config
	log zerolog.Logger

	mu         sync.Mutex
	users      map[string]*user // keyed by email
	usersByID  map[int]*user
	nextUserID int

	doctors      []doctorRec
	nextDoctorID int
}

// New builds a server with a seeded doctor directory.
func New(cfg *config.Config, log zerolog.Logger) *Server {
	return &Server{
		cfg:        cfg,
		log:        log.With().Str("component", "mockapi").Logger(),
		users:      map[string]*user{},
		usersByID:  map[int]*user{},
		nextUserID: 1,
		doctors:    seedDoctors(),
		// Seeds occupy ids 1 and 2.
		nextDoctorID: 3,
	}
}

// Echo builds the HTTP surface: the shared middleware stack, auth, and
// every resource route the client stores talk to.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(s.log))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(s.log))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(s.cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateCfg := middleware.RateLimitConfig{
		RequestsPerSecond: s.cfg.RateLimitRPS,
		BurstSize:         s.cfg.RateLimitBurst,
	}
	if rateCfg.RequestsPerSecond <= 0 {
		rateCfg = middleware.DefaultRateLimitConfig()
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": "0.1.0"})
	})

	e.POST("/auth/login", s.login)

	// Doctor directory reads are public, matching the original backend.
	e.GET("/doctors", s.listDoctors)
	e.GET("/doctors/:id", s.getDoctor)
	e.POST("/doctors", s.createDoctor, s.requireAuth)
	e.PUT("/doctors/:id", s.updateDoctor, s.requireAuth)
	e.DELETE("/doctors/:id", s.deleteDoctor, s.requireAuth)

	api := e.Group("/api", middleware.RateLimit(rateCfg), s.requireAuth)

	patient := api.Group("/patient")
	patient.GET("/profile", s.getRecord("profile"))
	patient.PUT("/profile", s.putRecord("profile"))
	patient.GET("/insurance", s.getRecord("insurance"))
	patient.PUT("/insurance", s.putInsurance)
	patient.GET("/notification-settings", s.getRecord("notifications"))
	patient.PUT("/notification-settings", s.putRecord("notifications"))
	patient.GET("/security-settings", s.getRecord("security"))
	patient.PUT("/security-settings", s.putRecord("security"))
	patient.GET("/activity-log", s.activityLog)
	patient.GET("/wishlist", s.getWishlist)
	patient.POST("/wishlist", s.addToWishlist)
	patient.DELETE("/wishlist", s.clearWishlist)
	patient.DELETE("/wishlist/:id", s.removeFromWishlist)

	mental := api.Group("/mental-health")
	mental.GET("/mood", s.getMoodEntries)
	mental.POST("/mood", s.createMoodEntry)
	mental.GET("/games", s.getGameResults)
	mental.POST("/games", s.createGameResult)
	mental.GET("/score", s.mentalHealthScore)

	return e
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login authenticates (any non-empty credentials are accepted by the
// dev server, registering unknown emails on the fly), records the login
// in the activity log, and issues an HS256 token carrying the display
// name in sub plus the numeric id and role claims.
func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, detail("email and password are required"))
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(req.Email)]
	if !ok {
		u = s.registerLocked(req.Email)
	}
	u.activity = append(u.activity, activityRec{
		Action:    "Login",
		Device:    c.Request().UserAgent(),
		IPAddress: c.RealIP(),
		Timestamp: time.Now().UTC(),
	})
	s.mu.Unlock()

	expiry := time.Duration(s.cfg.TokenExpiry) * time.Minute
	if expiry <= 0 {
		expiry = time.Hour
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.name,
		"id":    u.id,
		"role":  u.role,
		"email": u.email,
		"exp":   time.Now().Add(expiry).Unix(),
	})
	signed, err := token.SignedString([]byte(s.cfg.AuthSecret))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, detail("failed to sign token"))
	}

	s.log.Info().Str("email", u.email).Msg("user logged in")
	return c.JSON(http.StatusOK, map[string]any{
		"access_token": signed,
		"token_type":   "bearer",
		"expires_in":   int(expiry.Seconds()),
	})
}

// requireAuth validates the bearer token and resolves the user it names.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return c.JSON(http.StatusUnauthorized, detail("Not authenticated"))
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.cfg.AuthSecret), nil
		})
		if err != nil || !token.Valid {
			return c.JSON(http.StatusUnauthorized, detail("Could not validate user"))
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.JSON(http.StatusUnauthorized, detail("Could not validate user"))
		}
		id, ok := claims["id"].(float64)
		if !ok {
			return c.JSON(http.StatusUnauthorized, detail("Could not validate user"))
		}

		s.mu.Lock()
		u, ok := s.usersByID[int(id)]
		s.mu.Unlock()
		if !ok {
			return c.JSON(http.StatusUnauthorized, detail("Could not validate user"))
		}

		c.Set("user", u)
		return next(c)
	}
}

func currentUser(c echo.Context) *user {
	return c.Get("user").(*user)
}

func detail(msg any) map[string]any {
	return map[string]any{"detail": msg}
}

// registerLocked creates a user; callers hold s.mu. The display name is
// derived from the email local part.
func (s *Server) registerLocked(email string) *user {
	email = strings.ToLower(email)
	u := &user{
		id:      s.nextUserID,
		email:   email,
		name:    displayName(email),
		role:    "patient",
		records: map[string]map[string]any{},
	}
	s.nextUserID++
	s.users[email] = u
	s.usersByID[u.id] = u
	return u
}

func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	if len(parts) == 0 {
		return local
	}
	return strings.Join(parts, " ")
}
