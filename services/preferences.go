package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"gorm.io/gorm"

	"freshfitapi/models"
	"freshfitapi/pipeline"
)

// GormHistoryProvider is the feedback-history collaborator over the
// outfit_feedback and item_feedback tables. Newest decisions first.
type GormHistoryProvider struct {
	DB *gorm.DB
}

func NewGormHistoryProvider(db *gorm.DB) *GormHistoryProvider {
	return &GormHistoryProvider{DB: db}
}

func toHistory(records []models.OutfitFeedback) []pipeline.OutfitHistory {
	out := make([]pipeline.OutfitHistory, 0, len(records))
	for _, record := range records {
		entry := pipeline.OutfitHistory{
			OutfitID:     record.OutfitID,
			Name:         record.OutfitName,
			Decision:     record.Decision,
			FutureIntent: record.FutureIntent,
		}
		if record.Rating != nil {
			entry.Rating = *record.Rating
		}
		for _, item := range record.Items {
			entry.ItemIDs = append(entry.ItemIDs, item.ItemID)
		}
		out = append(out, entry)
	}
	return out
}

func (p *GormHistoryProvider) FetchHistory(ctx context.Context, userID string, q pipeline.HistoryQuery) (*pipeline.PreferenceHistory, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var liked []models.OutfitFeedback
	result := p.DB.WithContext(ctx).Preload("Items").
		Where("user_id = ? AND rating >= ?", userID, q.LikedRatingMin).
		Order("created_at desc").Limit(q.Limit).Find(&liked)
	if result.Error != nil {
		return nil, result.Error
	}

	var disliked []models.OutfitFeedback
	result = p.DB.WithContext(ctx).Preload("Items").
		Where("user_id = ? AND rating <= ?", userID, q.DislikedRatingMax).
		Order("created_at desc").Limit(q.Limit).Find(&disliked)
	if result.Error != nil {
		return nil, result.Error
	}

	return &pipeline.PreferenceHistory{
		Liked:    toHistory(liked),
		Disliked: toHistory(disliked),
	}, nil
}

// history stays cached a short while, the ranker refetches after that
const historyCacheTTL = 5 * time.Minute

// CachedHistoryProvider puts a loadable ristretto cache in front of the
// history collaborator so repeated turns in one session skip the store.
type CachedHistoryProvider struct {
	inner pipeline.HistoryProvider
	cache *cache.LoadableCache[*pipeline.PreferenceHistory]
}

func NewCachedHistoryProvider(inner pipeline.HistoryProvider) (*CachedHistoryProvider, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)

	loadFunction := func(ctx context.Context, key any) (*pipeline.PreferenceHistory, []store.Option, error) {
		userID, ok := key.(string)
		if !ok {
			return nil, nil, fmt.Errorf("invalid key type for history cache: %T", key)
		}
		log.Printf("history cache miss for user %s", userID)
		history, err := inner.FetchHistory(ctx, userID, pipeline.DefaultHistoryQuery())
		return history, []store.Option{store.WithExpiration(historyCacheTTL)}, err
	}

	return &CachedHistoryProvider{
		inner: inner,
		cache: cache.NewLoadable[*pipeline.PreferenceHistory](
			loadFunction,
			cache.New[*pipeline.PreferenceHistory](ristrettoStore),
		),
	}, nil
}

// FetchHistory serves the default query from cache, custom bounds hit
// the store directly.
func (p *CachedHistoryProvider) FetchHistory(ctx context.Context, userID string, q pipeline.HistoryQuery) (*pipeline.PreferenceHistory, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q != pipeline.DefaultHistoryQuery() {
		return p.inner.FetchHistory(ctx, userID, q)
	}
	return p.cache.Get(ctx, userID)
}

// Invalidate drops the cached history after new feedback lands.
func (p *CachedHistoryProvider) Invalidate(ctx context.Context, userID string) {
	if err := p.cache.Delete(ctx, userID); err != nil {
		fmt.Println("failed to drop history cache for", userID, err)
	}
}
