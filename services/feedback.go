package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"freshfitapi/models"
	"freshfitapi/pipeline"
)

// FeedbackStoreProvider persists normalized feedback. One transaction
// per outfit decision, resubmission never duplicates rows.
type FeedbackStoreProvider interface {
	SaveNormalized(ctx context.Context, normalized *pipeline.NormalizedFeedback) (int, int, error)
}

type GormFeedbackStore struct {
	DB *gorm.DB
}

func NewGormFeedbackStore(db *gorm.DB) *GormFeedbackStore {
	return &GormFeedbackStore{DB: db}
}

var feedbackConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "user_id"}, {Name: "outfit_id"}, {Name: "session_turn"}},
	DoNothing: true,
}

// SaveNormalized writes each outfit record with its item records in one
// transaction. A conflict on (user_id, outfit_id, session_turn) skips
// the whole decision, item rows included.
func (s *GormFeedbackStore) SaveNormalized(ctx context.Context, normalized *pipeline.NormalizedFeedback) (int, int, error) {
	outfitCount := 0
	itemCount := 0
	for i := range normalized.Outfits {
		record := normalized.Outfits[i]
		items := record.Items
		record.Items = nil
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			result := tx.Clauses(feedbackConflict).Create(&record)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				fmt.Printf("[Feedback: %s turn %d] already stored, skipping\n", record.OutfitID, record.SessionTurn)
				return nil
			}
			outfitCount++
			for j := range items {
				items[j].EventID = record.EventID
			}
			if len(items) > 0 {
				if result := tx.Create(&items); result.Error != nil {
					return result.Error
				}
				itemCount += len(items)
			}
			return nil
		})
		if err != nil {
			return outfitCount, itemCount, err
		}
	}
	return outfitCount, itemCount, nil
}

// SlateStoreProvider persists presented slates and rebuilds them for
// late feedback resolution.
type SlateStoreProvider interface {
	SaveSlate(ctx context.Context, userID, sessionID string, turn int, req *pipeline.Request, slate *pipeline.Slate) error
	LoadSlate(ctx context.Context, userID, sessionID string, turn int) (*pipeline.Slate, error)
}

type GormSlateStore struct {
	DB *gorm.DB
}

func NewGormSlateStore(db *gorm.DB) *GormSlateStore {
	return &GormSlateStore{DB: db}
}

func (s *GormSlateStore) SaveSlate(ctx context.Context, userID, sessionID string, turn int, req *pipeline.Request, slate *pipeline.Slate) error {
	record := models.OutfitSlate{
		UserID:      userID,
		SessionID:   sessionID,
		SessionTurn: turn,
		Mode:        req.Mode,
		Occasion:    req.Occasion,
		Location:    req.Location,
		TempBucket:  slate.Weather.Bucket,
		TraceLines:  slate.Trace,
	}
	for _, candidate := range slate.Candidates {
		outfit := models.SlateOutfit{
			OutfitID:      candidate.OutfitID,
			Rank:          candidate.Rank,
			Name:          candidate.Name,
			Description:   candidate.Description,
			Rationale:     candidate.Rationale,
			IsExploration: candidate.IsExploration,
			Score:         candidate.Score.Holistic,
		}
		for _, item := range candidate.Items {
			outfit.ItemIDs = append(outfit.ItemIDs, int64(item.ItemID))
		}
		record.Outfits = append(record.Outfits, outfit)
	}
	return s.DB.WithContext(ctx).Create(&record).Error
}

// LoadSlate rebuilds the presented slate including full item rows, so
// the normalizer can emit item records.
func (s *GormSlateStore) LoadSlate(ctx context.Context, userID, sessionID string, turn int) (*pipeline.Slate, error) {
	var record models.OutfitSlate
	result := s.DB.WithContext(ctx).Preload("Outfits").
		Where("user_id = ? AND session_id = ? AND session_turn = ?", userID, sessionID, turn).
		Order("id desc").First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	itemIDs := []int64{}
	for _, outfit := range record.Outfits {
		itemIDs = append(itemIDs, outfit.ItemIDs...)
	}
	var items []models.WardrobeItem
	if len(itemIDs) > 0 {
		if result := s.DB.WithContext(ctx).Where("item_id IN ?", itemIDs).Find(&items); result.Error != nil {
			return nil, result.Error
		}
	}
	byID := map[int64]models.WardrobeItem{}
	for _, item := range items {
		byID[int64(item.ItemID)] = item
	}

	slate := &pipeline.Slate{Trace: record.TraceLines}
	slate.Weather.Bucket = record.TempBucket
	slate.Weather.Location = record.Location
	for _, outfit := range record.Outfits {
		candidate := pipeline.OutfitCandidate{
			OutfitID:      outfit.OutfitID,
			Rank:          outfit.Rank,
			Name:          outfit.Name,
			Description:   outfit.Description,
			Rationale:     outfit.Rationale,
			IsExploration: outfit.IsExploration,
		}
		candidate.Score.Holistic = outfit.Score
		for _, id := range outfit.ItemIDs {
			if item, ok := byID[id]; ok {
				candidate.Items = append(candidate.Items, item)
			}
		}
		slate.Candidates = append(slate.Candidates, candidate)
	}
	return slate, nil
}
