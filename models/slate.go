package models

import "github.com/lib/pq"

// OutfitSlate is a presented slate, persisted so feedback submitted later
// can still resolve outfit ids against what the user actually saw.
type OutfitSlate struct {
	JsonModel
	UserID      string         `gorm:"index:idx_slate_session" json:"user_id"`
	SessionID   string         `gorm:"index:idx_slate_session" json:"session_id"`
	SessionTurn int            `json:"session_turn"`
	Mode        string         `json:"mode"`
	Occasion    string         `json:"occasion"`
	Location    string         `json:"location"`
	TempBucket  TempBucket     `json:"temp_bucket"`
	TraceLines  pq.StringArray `gorm:"type:text[]" json:"trace_lines"`

	Outfits []SlateOutfit `gorm:"foreignKey:OutfitSlateID;constraint:OnDelete:CASCADE" json:"outfits"`
}

type SlateOutfit struct {
	JsonModel
	OutfitSlateID uint          `gorm:"index" json:"-"`
	OutfitID      string        `json:"outfit_id"`
	Rank          int           `json:"rank"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Rationale     string        `json:"rationale"`
	ItemIDs       pq.Int64Array `gorm:"type:bigint[]" json:"item_ids"`
	IsExploration bool          `json:"is_exploration"`
	Score         float64       `json:"score"`
}

type RecommendIn struct {
	Occasion            string   `json:"occasion" validate:"required"`
	Location            string   `json:"location" validate:"required"`
	Date                string   `json:"date"`
	Mode                string   `json:"mode" validate:"required,oneof=daily travel"`
	TravelDays          int      `json:"travel_days"`
	SessionID           string   `json:"session_id"`
	BannedItems         []uint   `json:"banned_items"`
	RequiredCategories  []string `json:"required_categories"`
	LovedComboRequired  *bool    `json:"loved_combo_required"`
	ExplorationRequired *bool    `json:"exploration_required"`
}

type RecommendOutfitOut struct {
	OutfitID      string            `json:"outfit_id"`
	Rank          int               `json:"rank"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Rationale     string            `json:"rationale"`
	Items         []WardrobeItemOut `json:"items"`
	IsExploration bool              `json:"is_exploration"`
	Score         float64           `json:"score"`
}

type RecommendOut struct {
	SessionID       string               `json:"session_id"`
	SessionTurn     int                  `json:"session_turn"`
	Mode            string               `json:"mode"`
	TempBucket      string               `json:"temp_bucket"`
	WeatherSummary  string               `json:"weather_summary"`
	Outfits         []RecommendOutfitOut `json:"outfits"`
	Trace           []string             `json:"trace"`
	SelectionPrompt string               `json:"selection_prompt"`
	Warnings        []string             `json:"warnings"`
}
