package services

import (
	"context"
	"testing"

	"freshfitapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryWardrobeStore struct {
	items  map[uint]models.WardrobeItem
	nextID uint
}

func newMemoryWardrobeStore() *memoryWardrobeStore {
	return &memoryWardrobeStore{items: map[uint]models.WardrobeItem{}, nextID: 1}
}

func (s *memoryWardrobeStore) Fetch(ctx context.Context, userID string, categories []models.Category, limit int) ([]models.WardrobeItem, error) {
	var out []models.WardrobeItem
	for _, item := range s.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *memoryWardrobeStore) Add(ctx context.Context, item *models.WardrobeItem) (uint, error) {
	item.ItemID = s.nextID
	s.nextID++
	s.items[item.ItemID] = *item
	return item.ItemID, nil
}

func (s *memoryWardrobeStore) Delete(ctx context.Context, userID string, itemID uint) (bool, error) {
	item, ok := s.items[itemID]
	if !ok || item.UserID != userID {
		return false, nil
	}
	delete(s.items, itemID)
	return true, nil
}

func (s *memoryWardrobeStore) FindByName(ctx context.Context, userID string, name string) (*models.WardrobeItem, error) {
	for _, item := range s.items {
		if item.UserID == userID && item.Name == name {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func TestRegistrarAddsItemWithDefaults(t *testing.T) {
	runner := &fakeRunner{response: `{"intent": "add", "name": "denim jacket", "category": "outerwear", "color": "blue"}`}
	store := newMemoryWardrobeStore()
	registrar := NewWardrobeRegistrar(runner, store, nil)

	reply, err := registrar.Handle(context.Background(), "123", "I bought a blue denim jacket")
	require.NoError(t, err)
	assert.Contains(t, reply, "Added blue denim jacket")

	items, _ := store.Fetch(context.Background(), "123", nil, 0)
	require.Len(t, items, 1)
	assert.Equal(t, models.CategoryOuterwear, items[0].Category)
	assert.Equal(t, models.WarmthMedium, items[0].WarmthLevel)
	assert.Equal(t, models.FormalityCasual, items[0].Formality)
	assert.Equal(t, models.BodyZoneUpper, items[0].BodyZone)
}

func TestRegistrarAddNeedsNameAndCategory(t *testing.T) {
	runner := &fakeRunner{response: `{"intent": "add", "color": "blue"}`}
	registrar := NewWardrobeRegistrar(runner, newMemoryWardrobeStore(), nil)

	reply, err := registrar.Handle(context.Background(), "123", "add something blue")
	require.NoError(t, err)
	assert.Contains(t, reply, "name and a category")
}

func TestRegistrarDeletesByName(t *testing.T) {
	store := newMemoryWardrobeStore()
	store.Add(context.Background(), &models.WardrobeItem{UserID: "123", Name: "old sneakers", Category: models.CategoryShoes})
	runner := &fakeRunner{response: `{"intent": "delete", "name": "old sneakers"}`}
	registrar := NewWardrobeRegistrar(runner, store, nil)

	reply, err := registrar.Handle(context.Background(), "123", "throw away my old sneakers")
	require.NoError(t, err)
	assert.Contains(t, reply, "Removed old sneakers")

	items, _ := store.Fetch(context.Background(), "123", nil, 0)
	assert.Empty(t, items)
}

func TestRegistrarDeleteUnknownItem(t *testing.T) {
	runner := &fakeRunner{response: `{"intent": "delete", "name": "tuxedo"}`}
	registrar := NewWardrobeRegistrar(runner, newMemoryWardrobeStore(), nil)

	reply, err := registrar.Handle(context.Background(), "123", "remove the tuxedo")
	require.NoError(t, err)
	assert.Contains(t, reply, "couldn't find")
}

func TestRegistrarUnclearAsksBack(t *testing.T) {
	runner := &fakeRunner{response: `{"intent": "unclear", "question": "Did you mean a scarf or a shawl?"}`}
	registrar := NewWardrobeRegistrar(runner, newMemoryWardrobeStore(), nil)

	reply, err := registrar.Handle(context.Background(), "123", "scarf thing maybe")
	require.NoError(t, err)
	assert.Equal(t, "Did you mean a scarf or a shawl?", reply)
}
