package pipeline

import (
	"context"
	"time"

	"freshfitapi/models"
)

const (
	ModeDaily  = "daily"
	ModeTravel = "travel"

	// daily slate bounds
	MinDistinctCandidates = 3
	MinDailySlate         = 5
	MaxDailySlate         = 10
)

// Request is the validated entry payload for one pipeline run.
type Request struct {
	UserID              string
	Occasion            string
	Location            string
	Date                time.Time
	Mode                string
	TravelDays          int
	BannedItems         []uint
	RequiredCategories  []models.Category
	LovedComboRequired  bool
	ExplorationRequired bool
}

func (r *Request) Validate() error {
	if r.Occasion == "" {
		return &SchemaViolationError{Stage: "request", Field: "occasion", Reason: "must not be empty"}
	}
	if r.Location == "" {
		return &SchemaViolationError{Stage: "request", Field: "location", Reason: "must not be empty"}
	}
	if r.Mode != ModeDaily && r.Mode != ModeTravel {
		return &SchemaViolationError{Stage: "request", Field: "mode", Reason: "must be daily or travel"}
	}
	if r.Mode == ModeTravel && r.TravelDays < 1 {
		return &SchemaViolationError{Stage: "request", Field: "travel_days", Reason: "must be >= 1 for travel mode"}
	}
	if r.Date.IsZero() {
		return &SchemaViolationError{Stage: "request", Field: "date", Reason: "must be set"}
	}
	return nil
}

// WeatherContext is the weather stage output.
type WeatherContext struct {
	Location            string
	Date                string
	TempHighC           float64
	TempLowC            float64
	AvgTempC            float64
	Bucket              models.TempBucket
	PrecipitationChance float64
	Summary             string
}

func (w *WeatherContext) Validate() error {
	if w.Location == "" {
		return &SchemaViolationError{Stage: "weather", Field: "location", Reason: "must not be empty"}
	}
	if w.PrecipitationChance < 0 || w.PrecipitationChance > 1 {
		return &SchemaViolationError{Stage: "weather", Field: "precipitation_chance", Reason: "must be within [0, 1]"}
	}
	if w.TempLowC > w.TempHighC {
		return &SchemaViolationError{Stage: "weather", Field: "temp_low_c", Reason: "low exceeds high"}
	}
	switch w.Bucket {
	case models.TempCold, models.TempCool, models.TempMild, models.TempWarm, models.TempHot:
	default:
		return &SchemaViolationError{Stage: "weather", Field: "bucket", Reason: "unknown bucket"}
	}
	return nil
}

// WardrobeSnapshot is the wardrobe stage output. Notes record freshness
// fallbacks, MissingCategories the required categories it could not cover.
type WardrobeSnapshot struct {
	Items             []models.WardrobeItem
	MissingCategories []models.Category
	Notes             []string
}

func (s *WardrobeSnapshot) Validate() error {
	for _, item := range s.Items {
		if item.ItemID == 0 {
			return &SchemaViolationError{Stage: "wardrobe", Field: "item_id", Reason: "must be set"}
		}
		switch item.Category {
		case models.CategoryTop, models.CategoryBottom, models.CategoryDress,
			models.CategoryOuterwear, models.CategoryShoes, models.CategoryAccessory:
		default:
			return &SchemaViolationError{Stage: "wardrobe", Field: "category", Reason: "unknown category " + string(item.Category)}
		}
	}
	return nil
}

// CandidateScore carries the scoring signals a candidate accumulated.
type CandidateScore struct {
	ContextFit      float64
	PreferenceScore float64
	RecencyPenalty  float64
	Holistic        float64
}

// OutfitCandidate is one proposed outfit built strictly from snapshot items.
type OutfitCandidate struct {
	OutfitID      string
	Rank          int
	Name          string
	Description   string
	Rationale     string
	Items         []models.WardrobeItem
	IsExploration bool
	Score         CandidateScore
}

func (c *OutfitCandidate) Validate() error {
	if c.OutfitID == "" {
		return &SchemaViolationError{Stage: "candidates", Field: "outfit_id", Reason: "must not be empty"}
	}
	if c.Rank < 1 {
		return &SchemaViolationError{Stage: "candidates", Field: "rank", Reason: "ranks are 1-indexed"}
	}
	if len(c.Items) == 0 {
		return &SchemaViolationError{Stage: "candidates", Field: "items", Reason: "must not be empty"}
	}
	return nil
}

// Slate is the ranked pipeline result.
type Slate struct {
	Candidates      []OutfitCandidate
	Trace           []string
	Weather         WeatherContext
	SelectionPrompt string
	Warnings        []string
}

func (s *Slate) Find(outfitID string) *OutfitCandidate {
	for i := range s.Candidates {
		if s.Candidates[i].OutfitID == outfitID {
			return &s.Candidates[i]
		}
	}
	return nil
}

// HistoryQuery bounds what the feedback-history collaborator returns.
type HistoryQuery struct {
	LikedRatingMin    int
	DislikedRatingMax int
	Limit             int
}

func (q *HistoryQuery) Validate() error {
	if q.LikedRatingMin < 1 || q.LikedRatingMin > 5 {
		return &SchemaViolationError{Stage: "history", Field: "liked_rating_min", Reason: "must be within [1, 5]"}
	}
	if q.DislikedRatingMax < 1 || q.DislikedRatingMax > q.LikedRatingMin {
		return &SchemaViolationError{Stage: "history", Field: "disliked_rating_max", Reason: "must be within [1, liked_rating_min]"}
	}
	return nil
}

func DefaultHistoryQuery() HistoryQuery {
	return HistoryQuery{LikedRatingMin: 4, DislikedRatingMax: 1, Limit: 50}
}

// OutfitHistory is one past decision, newest first in the slices below.
type OutfitHistory struct {
	OutfitID     string
	Name         string
	Rating       int
	Decision     models.Decision
	FutureIntent models.FutureIntent
	ItemIDs      []uint
}

type PreferenceHistory struct {
	Liked    []OutfitHistory
	Disliked []OutfitHistory
}

// Collaborator interfaces. Implementations live in services; stages only
// ever see these.

type WeatherProvider interface {
	Forecast(ctx context.Context, location string, date time.Time) (*WeatherContext, error)
}

type WardrobeProvider interface {
	Snapshot(ctx context.Context, userID string, req *Request) (*WardrobeSnapshot, error)
}

type HistoryProvider interface {
	FetchHistory(ctx context.Context, userID string, q HistoryQuery) (*PreferenceHistory, error)
}

// Explainer produces the per-outfit rationales and the selection prompt.
// Failures here degrade the slate, they never fail the run.
type Explainer interface {
	Explain(ctx context.Context, req *Request, slate *Slate) (map[string]string, string, error)
}
