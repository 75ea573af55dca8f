package types

import (
	"fmt"
	"time"

	"foodmatch/fingerprint"
)

// Origins of a logged item
const (
	OriginUpload = "upload"
	OriginImport = "import"
)

// FoodItem is one logged food photo of a user
type FoodItem struct {
	ID         int64               `json:"id"`
	UserID     int64               `json:"user_id"`
	Path       string              `json:"path"`
	Origin     string              `json:"origin"`
	SourcePath string              `json:"source_path,omitempty"`
	Calories   *int                `json:"calories,omitempty"`
	Features   fingerprint.Encoded `json:"features"`
	Created    time.Time           `json:"created_at"`
}

// ItemID identifies the item as a match source
func (f FoodItem) ItemID() int64 {
	return f.ID
}

// HasCalories reports whether the item can act as a match source
func (f FoodItem) HasCalories() bool {
	return f.Calories != nil
}

// Fingerprint decodes the stored features
func (f FoodItem) Fingerprint() (fingerprint.Fingerprint, error) {
	fp, err := f.Features.Decode()
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("item %d: %w", f.ID, err)
	}
	return fp, nil
}

// PredictResult is what a caller renders after a photo was submitted
type PredictResult struct {
	Matched           bool    `json:"matched"`
	PredictedCalories *int    `json:"predicted_calories,omitempty"`
	Confidence        float64 `json:"confidence"`
	MatchItemID       int64   `json:"match_item_id,omitempty"`
	SavedItemID       int64   `json:"saved_item_id,omitempty"`
	Hint              string  `json:"hint"`
}

// DailySummary holds the calorie total of one local day
type DailySummary struct {
	Date          string `json:"date"`
	TotalCalories int    `json:"total_calories"`
	ItemsCount    int    `json:"items_count"`
}

// WeeklySummary holds seven consecutive daily summaries
type WeeklySummary struct {
	Start         string         `json:"start"`
	End           string         `json:"end"`
	TotalCalories int            `json:"total_calories"`
	AvgPerDay     float64        `json:"avg_per_day"`
	Days          []DailySummary `json:"days"`
}
