package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"freshfitapi/models"
)

// MetricsService rolls feedback into per-user KPI snapshots.
type MetricsService struct {
	DB *gorm.DB
}

func NewMetricsService(db *gorm.DB) *MetricsService {
	return &MetricsService{DB: db}
}

// Rollup computes one window snapshot for a user and stores it.
func (m *MetricsService) Rollup(ctx context.Context, userID string, window time.Duration) (*models.MetricsSnapshot, error) {
	end := time.Now()
	start := end.Add(-window)
	base := m.DB.WithContext(ctx).Model(&models.OutfitFeedback{}).
		Where("user_id = ? AND created_at BETWEEN ? AND ?", userID, start, end)

	var total int64
	if result := base.Session(&gorm.Session{}).Count(&total); result.Error != nil {
		return nil, result.Error
	}
	var accepted int64
	if result := base.Session(&gorm.Session{}).Where("decision = ?", models.DecisionAccepted).Count(&accepted); result.Error != nil {
		return nil, result.Error
	}
	var rated int64
	var ratingSum float64
	row := base.Session(&gorm.Session{}).Where("rating IS NOT NULL").
		Select("count(*), coalesce(sum(rating), 0)").Row()
	if err := row.Scan(&rated, &ratingSum); err != nil {
		return nil, err
	}
	var banned int64
	if result := base.Session(&gorm.Session{}).Where("future_intent = ?", models.IntentDoNotRecommend).Count(&banned); result.Error != nil {
		return nil, result.Error
	}

	snapshot := &models.MetricsSnapshot{
		UserID:           userID,
		RatedCount:       rated,
		BannedComboCount: banned,
		WindowStart:      start,
		WindowEnd:        end,
	}
	if total > 0 {
		snapshot.AcceptanceRate = float64(accepted) / float64(total)
	}
	if rated > 0 {
		snapshot.AverageRating = ratingSum / float64(rated)
	}
	if result := m.DB.WithContext(ctx).Create(snapshot); result.Error != nil {
		return nil, result.Error
	}
	fmt.Printf("[Metrics: %s] acceptance %.2f avg rating %.2f over %d rated\n",
		userID, snapshot.AcceptanceRate, snapshot.AverageRating, rated)
	return snapshot, nil
}

// RollupAll snapshots every user that left feedback in the window.
func (m *MetricsService) RollupAll(ctx context.Context, window time.Duration) error {
	var userIDs []string
	result := m.DB.WithContext(ctx).Model(&models.OutfitFeedback{}).
		Where("created_at > ?", time.Now().Add(-window)).
		Distinct("user_id").Pluck("user_id", &userIDs)
	if result.Error != nil {
		return result.Error
	}
	for _, userID := range userIDs {
		if _, err := m.Rollup(ctx, userID, window); err != nil {
			fmt.Printf("[Metrics: %s] rollup failed: %v\n", userID, err)
		}
	}
	return nil
}
