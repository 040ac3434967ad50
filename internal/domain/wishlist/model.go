package wishlist

import (
	"encoding/json"
	"strconv"
)

// Item is one wishlisted medication. Identity is MedicationID: the
// collection never holds two items for the same medication, whatever
// their entry ids are.
type Item struct {
	ID                   string  `json:"id"`
	MedicationID         string  `json:"medicationId"`
	Name                 string  `json:"name"`
	Dosage               string  `json:"dosage"`
	Price                float64 `json:"price"`
	Category             string  `json:"category"`
	ImageURL             string  `json:"imageUrl"`
	InStock              bool    `json:"inStock"`
	RequiresPrescription bool    `json:"requiresPrescription"`
	Rating               float64 `json:"rating"`
	Reviews              int     `json:"reviews"`
	AddedDate            string  `json:"addedDate"`
	Availability         string  `json:"availability"`
	StockCount           int     `json:"stockCount"`
}

// Medication is the storefront card a wishlist add starts from. It
// carries enough to synthesize an Item locally when the backend cannot
// confirm the write.
type Medication struct {
	ID                   string
	Name                 string
	Dosage               string
	Price                float64
	Category             string
	ImageURL             string
	InStock              bool
	RequiresPrescription bool
	Rating               float64
	Reviews              int
	Availability         string
	StockCount           int
}

// flexID tolerates the backend's habit of sending ids as either
// numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(strconv.FormatInt(int64(n), 10))
	return nil
}

type wireItem struct {
	ID                   flexID  `json:"id"`
	MedicationID         flexID  `json:"medication_id"`
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

func (w wireItem) toItem() Item {
	return Item{
		ID:                   string(w.ID),
		MedicationID:         string(w.MedicationID),
		Name:                 w.MedicationName,
		Dosage:               w.Dosage,
		Price:                w.Price,
		Category:             w.Category,
		ImageURL:             w.ImageURL,
		InStock:              w.InStock,
		RequiresPrescription: w.RequiresPrescription,
		Rating:               w.Rating,
		Reviews:              w.Reviews,
		AddedDate:            w.AddedDate,
		Availability:         w.Availability,
		StockCount:           w.StockCount,
	}
}

func decodeItems(raw json.RawMessage) ([]Item, error) {
	if len(raw) == 0 {
		return []Item{}, nil
	}
	var wires []wireItem
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(wires))
	for _, w := range wires {
		items = append(items, w.toItem())
	}
	return items, nil
}

func decodeItem(raw json.RawMessage) (Item, error) {
	var w wireItem
	if err := json.Unmarshal(raw, &w); err != nil {
		return Item{}, err
	}
	return w.toItem(), nil
}
