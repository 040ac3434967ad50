package mockapi

import "time"

// user is one registered account and everything it owns. All access is
// guarded by Server.mu.
type user struct {
	id    int
	email string
	name  string
	role  string

	// records holds the single-record resources (profile, insurance,
	// notifications, security) as raw wire maps. A resource is absent
	// until its first PUT, which the client handles via its fallback.
	records map[string]map[string]any

	activity []activityRec

	wishlist   []wishRec
	nextWishID int

	moods      []moodRec
	nextMoodID int

	games      []gameRec
	nextGameID int
}

type activityRec struct {
	Action    string    `json:"action"`
	Device    string    `json:"device"`
	Location  string    `json:"location"`
	IPAddress string    `json:"ip_address"`
	Timestamp time.Time `json:"timestamp"`
}

type wishRec struct {
	ID                   int     `json:"id"`
	MedicationID         string  `json:"medication_id"`
	MedicationName       string  `json:"medication_name"`
	Dosage               string  `json:"dosage"`
	Price                float64 `json:"price"`
	Category             string  `json:"category"`
	ImageURL             string  `json:"image_url"`
	InStock              bool    `json:"in_stock"`
	RequiresPrescription bool    `json:"requires_prescription"`
	Rating               float64 `json:"rating"`
	Reviews              int     `json:"reviews"`
	AddedDate            string  `json:"added_date"`
	Availability         string  `json:"availability"`
	StockCount           int     `json:"stock_count"`
}

type moodRec struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Date      string    `json:"date"`
	Mood      int       `json:"mood"`
	Energy    int       `json:"energy"`
	Anxiety   int       `json:"anxiety"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

type gameRec struct {
	ID        int            `json:"id"`
	UserID    int            `json:"user_id"`
	Game      string         `json:"game"`
	Score     int            `json:"score"`
	Level     int            `json:"level"`
	Metrics   map[string]any `json:"metrics"`
	Timestamp time.Time      `json:"timestamp"`
}

// doctorRec mirrors the original directory response, mixed casing
// included.
type doctorRec struct {
	ID              int     `json:"id"`
	UserID          int     `json:"user_id"`
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

func seedDoctors() []doctorRec {
	return []doctorRec{
		{
			ID: 1, UserID: 101,
			FullName:        "Dr. Achieng Odhiambo",
			Email:           "achieng.odhiambo@kiangombe.example",
			Phone:           "+254 700 123456",
			Specialization:  "Cardiology",
			Bio:             "Consultant cardiologist with 12 years of practice.",
			IsAvailable:     true,
			Rating:          4.8,
			ConsultationFee: 2500,
			PatientsCount:   120,
		},
		{
			ID: 2, UserID: 102,
			FullName:        "Dr. Brian Mwangi",
			Email:           "brian.mwangi@kiangombe.example",
			Phone:           "+254 700 654321",
			Specialization:  "Dermatology",
			IsAvailable:     true,
			Rating:          4.4,
			ConsultationFee: 1800,
			PatientsCount:   85,
		},
	}
}

// medInfo is the storefront catalog used to flesh out wishlist entries.
type medInfo struct {
	Name                 string
	Dosage               string
	Price                float64
	Category             string
	RequiresPrescription bool
	Rating               float64
	Reviews              int
	StockCount           int
}

var catalog = map[string]medInfo{
	"med-1": {Name: "Amoxicillin", Dosage: "500mg", Price: 450, Category: "Antibiotics", RequiresPrescription: true, Rating: 4.5, Reviews: 132, StockCount: 40},
	"med-2": {Name: "Cetirizine", Dosage: "10mg", Price: 120, Category: "Allergy", Rating: 4.2, Reviews: 88, StockCount: 200},
	"med-3": {Name: "Paracetamol", Dosage: "500mg", Price: 80, Category: "Pain Relief", Rating: 4.7, Reviews: 410, StockCount: 500},
	"med-4": {Name: "Metformin", Dosage: "850mg", Price: 350, Category: "Diabetes", RequiresPrescription: true, Rating: 4.6, Reviews: 210, StockCount: 75},
}

func lookupMed(id string) medInfo {
	if m, ok := catalog[id]; ok {
		return m
	}
	return medInfo{Name: "Medication " + id, Price: 100, Category: "General", StockCount: 10}
}
