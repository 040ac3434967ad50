// patientctl is the terminal client for the patient-center API. Every
// command goes through the same resource stores the web client uses, so
// the offline fallback, local cache, and session behavior are identical.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kiangombe/patientcenter/internal/config"
	"github.com/kiangombe/patientcenter/internal/domain/doctors"
	"github.com/kiangombe/patientcenter/internal/domain/insurance"
	"github.com/kiangombe/patientcenter/internal/domain/notifications"
	"github.com/kiangombe/patientcenter/internal/domain/profile"
	"github.com/kiangombe/patientcenter/internal/domain/security"
	"github.com/kiangombe/patientcenter/internal/domain/wellness"
	"github.com/kiangombe/patientcenter/internal/domain/wishlist"
	"github.com/kiangombe/patientcenter/internal/platform/cache"
	"github.com/kiangombe/patientcenter/internal/platform/gateway"
	"github.com/kiangombe/patientcenter/internal/platform/session"
	"golang.org/x/time/rate"
)

// app wires config, cache, session and gateway once; commands build the
// stores they need on top.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	cache *cache.Cache
	sess  *session.Manager
	gw    *gateway.Client
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

	c := cache.NewOS(cfg.CacheDir)
	mgr := session.NewManager(session.Decoder{
		Secret:          []byte(cfg.AuthSecret),
		AllowUnverified: cfg.AllowUnverifiedTokens,
	}, c, log)
	mgr.Restore()

	gw := gateway.New(gateway.Options{
		BaseURL:        cfg.APIBaseURL,
		Tokens:         mgr.Token,
		OnUnauthorized: mgr.Logout,
		Logger:         log,
		RateLimit:      rate.Limit(cfg.RateLimitRPS),
		RateBurst:      cfg.RateLimitBurst,
	})

	return &app{cfg: cfg, log: log, cache: c, sess: mgr, gw: gw}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "patientctl",
		Short:         "Kiangombe Patient Center terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		whoamiCmd(),
		profileCmd(),
		insuranceCmd(),
		notificationsCmd(),
		securityCmd(),
		wishlistCmd(),
		doctorsCmd(),
		moodCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// -- auth --

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and persist the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			var resp struct {
				AccessToken string `json:"access_token"`
			}
			body := map[string]string{"email": email, "password": password}
			if err := a.gw.Post(cmd.Context(), "/auth/login", body, &resp); err != nil {
				return err
			}
			s, err := a.sess.SetToken(resp.AccessToken)
			if err != nil {
				return fmt.Errorf("server returned an unusable token: %w", err)
			}
			fmt.Printf("Logged in as %s (%s)\n", s.DisplayName, s.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the session and cached user data",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			userID := a.sess.UserID()
			a.sess.Logout()
			if userID != "" {
				// Drop everything cached under this user's namespace.
				for _, res := range []string{"profile", "insurance", "notification_settings",
					"security_settings", "activity_log", wishlist.CacheKey,
					wellness.MoodsCacheKey, wellness.GamesCacheKey, "doctors"} {
					_ = a.cache.DeleteMatching(cache.Key(res, userID))
				}
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			s, ok := a.sess.Current()
			if !ok {
				fmt.Println("Not logged in")
				return nil
			}
			fmt.Printf("%s (id %s, role %s)\n", s.DisplayName, s.UserID, s.Role)
			if s.Email != "" {
				fmt.Println("Email:", s.Email)
			}
			fmt.Println("Session expires:", s.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

// -- profile --

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the patient profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st := profile.NewStore(a.gw, a.cache, a.sess, a.log)
			st.Fetch(cmd.Context())
			state := st.State()
			if state.Err != "" {
				return fmt.Errorf("loading profile: %s", state.Err)
			}
			p := *state.Data
			fmt.Println("Name:      ", orDash(p.FullName))
			fmt.Println("Email:     ", orDash(p.Email))
			fmt.Println("Phone:     ", orDash(p.Phone))
			fmt.Println("Birth date:", orDash(p.DateOfBirth))
			fmt.Println("Blood type:", orDash(p.BloodType))
			if len(p.Allergies) > 0 {
				fmt.Println("Allergies: ", p.Allergies)
			}
			if p.EmergencyName != "" {
				fmt.Printf("Emergency:  %s (%s) %s\n", p.EmergencyName, p.EmergencyRelation, p.EmergencyPhone)
			}
			return nil
		},
	}
	cmd.AddCommand(profileSetCmd())
	return cmd
}

func profileSetCmd() *cobra.Command {
	var name, phone, dob, blood string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			patch := profile.Patch{}
			if cmd.Flags().Changed("name") {
				patch.FullName = &name
			}
			if cmd.Flags().Changed("phone") {
				patch.Phone = &phone
			}
			if cmd.Flags().Changed("birth-date") {
				patch.DateOfBirth = &dob
			}
			if cmd.Flags().Changed("blood-type") {
				patch.BloodType = &blood
			}

			st := profile.NewStore(a.gw, a.cache, a.sess, a.log)
			st.Fetch(cmd.Context())
			res := st.CommitIfDirty(cmd.Context(), patch)
			if !res.OK {
				return fmt.Errorf("updating profile: %s", res.Err)
			}
			if res.Fallback {
				fmt.Println("Saved locally; will not reach the server until it is back")
			} else {
				fmt.Println("Profile updated")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&dob, "birth-date", "", "date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&blood, "blood-type", "", "blood type")
	return cmd
}

// -- insurance --

func insuranceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insurance",
		Short: "Show the insurance record and quarterly usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st := insurance.NewStore(a.gw, a.cache, a.sess, a.log)
			st.Fetch(cmd.Context())
			state := st.State()
			if state.Err != "" {
				return fmt.Errorf("loading insurance: %s", state.Err)
			}
			ins := *state.Data
			fmt.Println("Provider:  ", orDash(ins.Provider))
			fmt.Println("Policy:    ", orDash(ins.PolicyNumber))
			fmt.Println("Holder:    ", orDash(ins.HolderName))
			fmt.Println("Plan type: ", ins.PlanType)
			if ins.IsShaPlan() {
				u := ins.Usage()
				fmt.Printf("Quarterly:  %.0f / %.0f used (%.1f%%), %.0f remaining\n",
					u.Used, u.Limit, u.Percentage, u.Remaining)
				if u.OverLimit {
					fmt.Println("WARNING: quarterly limit exceeded")
				}
			}
			return nil
		},
	}
	cmd.AddCommand(insuranceCoverageCmd())
	return cmd
}

func insuranceCoverageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coverage <amount>",
		Short: "Check whether an expense fits the remaining allowance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			st := insurance.NewStore(a.gw, a.cache, a.sess, a.log)
			st.Fetch(cmd.Context())
			ins, ok := st.Data()
			if !ok {
				return fmt.Errorf("insurance record unavailable")
			}
			if ins.CheckCoverage(amount) {
				fmt.Printf("Covered: %.0f fits the plan\n", amount)
			} else {
				fmt.Printf("NOT covered: %.0f exceeds the remaining allowance (%.0f)\n",
					amount, ins.Usage().Remaining)
			}
			return nil
		},
	}
}

// -- notification and security settings --

func notificationsCmd() *cobra.Command {
	var email, sms, reminders, labs string
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show or change notification settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st := notifications.NewStore(a.gw, a.cache, a.sess, a.log)
			st.Fetch(cmd.Context())

			patch := notifications.Patch{}
			patch.Email = boolFlag(cmd, "email", email)
			patch.SMS = boolFlag(cmd, "sms", sms)
			patch.AppointmentReminders = boolFlag(cmd, "reminders", reminders)
			patch.LabResults = boolFlag(cmd, "lab-results", labs)
			if patch != (notifications.Patch{}) {
				if res := st.CommitIfDirty(cmd.Context(), patch); !res.OK {
					return fmt.Errorf("updating settings: %s", res.Err)
				}
			}

			s, _ := st.Data()
			fmt.Println("Email:               ", onOff(s.Email))
			fmt.Println("SMS:                 ", onOff(s.SMS))
			fmt.Println("Appointment reminders:", onOff(s.AppointmentReminders))
			fmt.Println("Lab results:         ", onOff(s.LabResults))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "on|off")
	cmd.Flags().StringVar(&sms, "sms", "", "on|off")
	cmd.Flags().StringVar(&reminders, "reminders", "", "on|off")
	cmd.Flags().StringVar(&labs, "lab-results", "", "on|off")
	return cmd
}

func securityCmd() *cobra.Command {
	var twoFactor, alerts string
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Show or change security settings and the activity log",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st := security.NewStore(a.gw, a.cache, a.sess, a.log)
			st.Fetch(cmd.Context())

			patch := security.Patch{}
			patch.TwoFactorEnabled = boolFlag(cmd, "two-factor", twoFactor)
			patch.LoginAlerts = boolFlag(cmd, "login-alerts", alerts)
			if patch != (security.Patch{}) {
				if res := st.CommitIfDirty(cmd.Context(), patch); !res.OK {
					return fmt.Errorf("updating settings: %s", res.Err)
				}
			}

			s, _ := st.Data()
			fmt.Println("Two-factor auth:", onOff(s.TwoFactorEnabled))
			fmt.Println("Login alerts:   ", onOff(s.LoginAlerts))

			log := security.NewActivityStore(a.gw, a.cache, a.sess, a.log)
			log.Fetch(cmd.Context())
			if entries, ok := log.Data(); ok && len(entries) > 0 {
				fmt.Println("\nRecent activity:")
				for i, e := range entries {
					if i == 10 {
						break
					}
					fmt.Printf("  %s  %-16s %s\n",
						e.Timestamp.Local().Format("2006-01-02 15:04"), e.Action, e.Device)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&twoFactor, "two-factor", "", "on|off")
	cmd.Flags().StringVar(&alerts, "login-alerts", "", "on|off")
	return cmd
}

// -- wishlist --

func wishlistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Show the medication wishlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st := wishlist.NewStore(a.gw, a.cache, a.sess, a.log)
			st.Fetch(cmd.Context())
			items := st.Items()
			if len(items) == 0 {
				fmt.Println("Wishlist is empty")
				return nil
			}
			for _, it := range items {
				fmt.Printf("%-6s %-24s %-8s KES %.0f\n", it.ID, it.Name, it.Dosage, it.Price)
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <medication-id>",
		Short: "Add a medication to the wishlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st := wishlist.NewStore(a.gw, a.cache, a.sess, a.log)
			st.Fetch(cmd.Context())
			res := st.Add(cmd.Context(), wishlist.Medication{ID: args[0]})
			if !res.OK {
				return fmt.Errorf("adding to wishlist: %s", res.Err)
			}
			fmt.Printf("Added %s (entry %s)\n", orDash(res.Data.Name), res.Data.ID)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <entry-id>",
		Short: "Remove a wishlist entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st := wishlist.NewStore(a.gw, a.cache, a.sess, a.log)
			st.Fetch(cmd.Context())
			if res := st.Remove(cmd.Context(), args[0]); !res.OK {
				return fmt.Errorf("removing from wishlist: %s", res.Err)
			}
			fmt.Println("Removed")
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Empty the wishlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st := wishlist.NewStore(a.gw, a.cache, a.sess, a.log)
			if res := st.Clear(cmd.Context()); !res.OK {
				return fmt.Errorf("clearing wishlist: %s", res.Err)
			}
			fmt.Println("Wishlist cleared")
			return nil
		},
	}

	cmd.AddCommand(add, remove, clear)
	return cmd
}

// -- doctors --

func doctorsCmd() *cobra.Command {
	var specialization string
	cmd := &cobra.Command{
		Use:   "doctors",
		Short: "Browse the doctor directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st := doctors.NewStore(a.gw, a.cache, a.sess, a.log)
			st.Fetch(cmd.Context())
			list, _ := st.Data()
			if specialization != "" {
				list = st.BySpecialization(specialization)
			}
			if len(list) == 0 {
				fmt.Println("No doctors found")
				return nil
			}
			for _, d := range list {
				avail := "available"
				if !d.IsAvailable {
					avail = "unavailable"
				}
				fmt.Printf("%-4d %-26s %-16s %-12s KES %.0f\n",
					d.ID, d.FullName, d.Specialization, avail, d.ConsultationFee)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&specialization, "specialization", "", "filter by specialization")
	return cmd
}

// -- wellness --

func moodCmd() *cobra.Command {
	var mood, energy, anxiety int
	var notes string
	cmd := &cobra.Command{
		Use:   "mood",
		Short: "Show the wellness score and recent mood entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st := wellness.NewStore(a.gw, a.cache, a.sess, a.log)
			st.FetchMoods(cmd.Context())
			st.FetchGames(cmd.Context())

			sc, err := st.Score(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading score: %w", err)
			}
			fmt.Printf("Overall %d  (focus %d, stress %d, mood %d, anxiety %d)\n",
				sc.Overall, sc.Focus, sc.Stress, sc.Mood, sc.Anxiety)
			for _, r := range sc.Recommendations {
				fmt.Println("  -", r)
			}

			if moods := st.Moods(); len(moods) > 0 {
				fmt.Println("\nRecent check-ins:")
				for i, m := range moods {
					if i == 7 {
						break
					}
					fmt.Printf("  %s  mood %d, energy %d, anxiety %d  %s\n",
						m.Date, m.Mood, m.Energy, m.Anxiety, m.Notes)
				}
			}
			return nil
		},
	}

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Record a daily mood check-in",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			st := wellness.NewStore(a.gw, a.cache, a.sess, a.log)
			res := st.LogMood(cmd.Context(), mood, energy, anxiety, notes)
			if !res.OK {
				return fmt.Errorf("logging mood: %s", res.Err)
			}
			if res.Fallback {
				fmt.Println("Recorded locally; will not reach the server until it is back")
			} else {
				fmt.Println("Recorded")
			}
			return nil
		},
	}
	logCmd.Flags().IntVar(&mood, "mood", 5, "mood rating 1-10")
	logCmd.Flags().IntVar(&energy, "energy", 5, "energy rating 1-10")
	logCmd.Flags().IntVar(&anxiety, "anxiety", 5, "anxiety rating 1-10")
	logCmd.Flags().StringVar(&notes, "notes", "", "free-form note")

	gameCmd := &cobra.Command{
		Use:   "game <type> <score> <level>",
		Short: "Record a brain-training game result (memory, reaction, color, focus)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid score %q", args[1])
			}
			level, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid level %q", args[2])
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			st := wellness.NewStore(a.gw, a.cache, a.sess, a.log)
			res := st.LogGame(cmd.Context(), args[0], score, level, nil)
			if !res.OK {
				return fmt.Errorf("logging game result: %s", res.Err)
			}
			if res.Fallback {
				fmt.Println("Recorded locally; will not reach the server until it is back")
			} else {
				fmt.Printf("Recorded %s result: score %d, level %d\n", res.Data.Game, res.Data.Score, res.Data.Level)
			}
			return nil
		},
	}

	cmd.AddCommand(logCmd, gameCmd)
	return cmd
}

// -- helpers --

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// boolFlag turns an explicit on|off flag value into an optional bool.
func boolFlag(cmd *cobra.Command, name, value string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v := value == "on" || value == "true"
	return &v
}
