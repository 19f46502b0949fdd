package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"freshfitapi/models"
	"freshfitapi/pipeline"
)

// WardrobeStoreProvider is the wardrobe collaborator: fetch, add, delete.
type WardrobeStoreProvider interface {
	Fetch(ctx context.Context, userID string, categories []models.Category, limit int) ([]models.WardrobeItem, error)
	Add(ctx context.Context, item *models.WardrobeItem) (uint, error)
	Delete(ctx context.Context, userID string, itemID uint) (bool, error)
	FindByName(ctx context.Context, userID string, name string) (*models.WardrobeItem, error)
}

type GormWardrobeStore struct {
	DB *gorm.DB
}

func NewGormWardrobeStore(db *gorm.DB) *GormWardrobeStore {
	return &GormWardrobeStore{DB: db}
}

func (s *GormWardrobeStore) Fetch(ctx context.Context, userID string, categories []models.Category, limit int) ([]models.WardrobeItem, error) {
	query := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if len(categories) > 0 {
		query = query.Where("category IN ?", categories)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var items []models.WardrobeItem
	if result := query.Order("item_id asc").Find(&items); result.Error != nil {
		return nil, result.Error
	}
	return items, nil
}

func (s *GormWardrobeStore) Add(ctx context.Context, item *models.WardrobeItem) (uint, error) {
	if result := s.DB.WithContext(ctx).Create(item); result.Error != nil {
		return 0, result.Error
	}
	return item.ItemID, nil
}

func (s *GormWardrobeStore) Delete(ctx context.Context, userID string, itemID uint) (bool, error) {
	result := s.DB.WithContext(ctx).Where("user_id = ? AND item_id = ?", userID, itemID).Delete(&models.WardrobeItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormWardrobeStore) FindByName(ctx context.Context, userID string, name string) (*models.WardrobeItem, error) {
	var item models.WardrobeItem
	result := s.DB.WithContext(ctx).Where("user_id = ? AND lower(name) = lower(?)", userID, name).First(&item)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &item, nil
}

// WardrobeSnapshotProvider adapts the store to the wardrobe stage.
// Freshly rested items lead; recently worn ones only fill gaps in
// caller-required categories, with a note. Required categories with
// nothing at all land in MissingCategories.
type WardrobeSnapshotProvider struct {
	Store WardrobeStoreProvider
}

func NewWardrobeSnapshotProvider(store WardrobeStoreProvider) *WardrobeSnapshotProvider {
	return &WardrobeSnapshotProvider{Store: store}
}

const restWindow = 2 * 24 * time.Hour

func (p *WardrobeSnapshotProvider) Snapshot(ctx context.Context, userID string, req *pipeline.Request) (*pipeline.WardrobeSnapshot, error) {
	items, err := p.Store.Fetch(ctx, userID, nil, 0)
	if err != nil {
		return nil, err
	}

	snapshot := &pipeline.WardrobeSnapshot{}
	staleByCategory := map[models.Category][]models.WardrobeItem{}
	present := map[models.Category]bool{}
	for _, item := range items {
		present[item.Category] = true
		if item.LastWornDate != nil && req.Date.Sub(*item.LastWornDate) < restWindow {
			staleByCategory[item.Category] = append(staleByCategory[item.Category], item)
			continue
		}
		snapshot.Items = append(snapshot.Items, item)
	}

	// stale items only join when a caller-required category would
	// otherwise go unfulfilled
	covered := map[models.Category]bool{}
	for _, item := range snapshot.Items {
		covered[item.Category] = true
	}
	for _, required := range req.RequiredCategories {
		stale, ok := staleByCategory[required]
		if !ok || covered[required] {
			continue
		}
		snapshot.Items = append(snapshot.Items, stale...)
		snapshot.Notes = append(snapshot.Notes,
			fmt.Sprintf("wardrobe: using recently worn %s pieces, nothing rested is available", required))
	}

	for _, required := range req.RequiredCategories {
		if !present[required] {
			snapshot.MissingCategories = append(snapshot.MissingCategories, required)
		}
	}
	return snapshot, nil
}
