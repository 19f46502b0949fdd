package models

import (
	"time"

	"github.com/lib/pq"
)

// OutfitFeedback is one persisted decision about a presented outfit.
// (user_id, outfit_id, session_turn) is unique so resubmitting the same
// session turn never duplicates rows.
type OutfitFeedback struct {
	EventID           uint           `gorm:"column:event_id;primarykey" json:"event_id"`
	UserID            string         `gorm:"column:user_id;uniqueIndex:uq_outfit_feedback_turn" json:"user_id"`
	OutfitID          string         `gorm:"column:outfit_id;uniqueIndex:uq_outfit_feedback_turn" json:"outfit_id"`
	SessionTurn       int            `gorm:"column:session_turn;uniqueIndex:uq_outfit_feedback_turn" json:"session_turn"`
	OutfitName        string         `json:"outfit_name"`
	OutfitDescription string         `json:"outfit_description"`
	Decision          Decision       `json:"decision"`
	WasSelected       bool           `json:"was_selected"`
	Rating            *int           `json:"rating"`
	FutureIntent      FutureIntent   `json:"future_intent"`
	Notes             string         `json:"notes"`
	Tags              pq.StringArray `gorm:"type:text[]" json:"tags"`
	CreatedAt         time.Time      `json:"created_at"`

	Items []ItemFeedback `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"items"`
}

func (OutfitFeedback) TableName() string {
	return "outfit_feedback"
}

// ItemFeedback inherits the enclosing outfit decision per item.
type ItemFeedback struct {
	ID            uint         `gorm:"primarykey" json:"id"`
	EventID       uint         `gorm:"column:event_id;index" json:"event_id"`
	UserID        string       `gorm:"column:user_id;index" json:"user_id"`
	OutfitID      string       `gorm:"column:outfit_id" json:"outfit_id"`
	ItemID        uint         `gorm:"column:item_id" json:"item_id"`
	ItemShortName string       `gorm:"column:item_short_name" json:"item_short_name"`
	Decision      Decision     `json:"decision"`
	Rating        *int         `json:"rating"`
	FutureIntent  FutureIntent `json:"future_intent"`
	Notes         string       `json:"notes"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (ItemFeedback) TableName() string {
	return "item_feedback"
}

// MetricsSnapshot is a worker rollup over a feedback window.
type MetricsSnapshot struct {
	JsonModel
	UserID           string    `gorm:"index" json:"user_id"`
	AcceptanceRate   float64   `json:"acceptance_rate"`
	AverageRating    float64   `json:"average_rating"`
	RatedCount       int64     `json:"rated_count"`
	BannedComboCount int64     `json:"banned_combo_count"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
}

type FeedbackEventIn struct {
	OutfitID     string   `json:"outfit_id" validate:"required"`
	Decision     string   `json:"decision"`
	Rating       string   `json:"rating"`
	FutureIntent string   `json:"future_intent"`
	Tags         []string `json:"tags"`
	Notes        string   `json:"notes"`
}

type FeedbackSubmitIn struct {
	SessionID        string            `json:"session_id" validate:"required"`
	SessionTurn      int               `json:"session_turn"`
	SelectedOutfitID string            `json:"selected_outfit_id" validate:"required"`
	Events           []FeedbackEventIn `json:"events"`
}

type FeedbackSubmitOut struct {
	OutfitRecords int      `json:"outfit_records"`
	ItemRecords   int      `json:"item_records"`
	Warnings      []string `json:"warnings"`
}
