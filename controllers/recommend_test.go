package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"freshfitapi/dbhelper"
	"freshfitapi/models"
	"freshfitapi/services"
	"freshfitapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func happyPathRunner() *test.MockStageRunner {
	return &test.MockStageRunner{Responses: map[services.LLMModelName]string{
		services.Flash25:     test.FakeWeatherJSON,
		services.FlashLite25: test.FakeExplainerJSON,
	}}
}

func TestRecommendOk(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)
	user := test.FakeUser(db)
	test.FakeWardrobe(db, user.PipelineUserID())

	reqBody := models.RecommendIn{
		Occasion: "casual brunch",
		Location: "Baku",
		Mode:     "daily",
	}
	req := test.NewJSONAuthRequest("POST", "/me/recommend", strconv.FormatUint(uint64(user.ID), 10), reqBody)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "Expected status code 200 OK, got %d: %s", rec.Code, rec.Body.String())

	var response models.RecommendOut
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.NotEmpty(t, response.SessionID)
	assert.Equal(t, 1, response.SessionTurn)
	assert.Equal(t, "cool", response.TempBucket)
	assert.GreaterOrEqual(t, len(response.Outfits), 5)
	assert.LessOrEqual(t, len(response.Outfits), 10)
	assert.NotEmpty(t, response.SelectionPrompt)

	for i, outfit := range response.Outfits {
		assert.Equal(t, i+1, outfit.Rank)
		assert.Equal(t, user.PipelineUserID()+"-"+padRank(i+1), outfit.OutfitID)
		assert.NotEmpty(t, outfit.Items)
		assert.NotEmpty(t, outfit.Rationale)
	}

	var slateCount int64
	db.Model(&models.OutfitSlate{}).Where("user_id = ?", user.PipelineUserID()).Count(&slateCount)
	assert.Equal(t, int64(1), slateCount)
}

func padRank(rank int) string {
	if rank < 10 {
		return "0" + strconv.Itoa(rank)
	}
	return strconv.Itoa(rank)
}

func TestRecommendResumesSession(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)
	user := test.FakeUser(db)
	test.FakeWardrobe(db, user.PipelineUserID())
	userPk := strconv.FormatUint(uint64(user.ID), 10)

	first := httptest.NewRecorder()
	e.ServeHTTP(first, test.NewJSONAuthRequest("POST", "/me/recommend", userPk, models.RecommendIn{
		Occasion: "office day", Location: "Baku", Mode: "daily",
	}))
	require.Equal(t, http.StatusOK, first.Code)
	var firstOut models.RecommendOut
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstOut))

	second := httptest.NewRecorder()
	e.ServeHTTP(second, test.NewJSONAuthRequest("POST", "/me/recommend", userPk, models.RecommendIn{
		Occasion: "office day", Location: "Baku", Mode: "daily", SessionID: firstOut.SessionID,
	}))
	require.Equal(t, http.StatusOK, second.Code)
	var secondOut models.RecommendOut
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondOut))

	assert.Equal(t, firstOut.SessionID, secondOut.SessionID)
	assert.Equal(t, 2, secondOut.SessionTurn)
}

func TestRecommendTravelCapsule(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)
	user := test.FakeUser(db)
	test.FakeWardrobe(db, user.PipelineUserID())

	req := test.NewJSONAuthRequest("POST", "/me/recommend", strconv.FormatUint(uint64(user.ID), 10), models.RecommendIn{
		Occasion: "city break", Location: "Tbilisi", Mode: "travel", TravelDays: 4,
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.RecommendOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Len(t, response.Outfits, 4)
}

func TestRecommendInsufficientWardrobe(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)
	user := test.FakeUser(db)
	db.Create(&models.WardrobeItem{
		UserID: user.PipelineUserID(), Name: "Lone tee", Category: models.CategoryTop,
		Color: "white", WarmthLevel: models.WarmthLight, Formality: models.FormalityCasual, BodyZone: models.BodyZoneUpper,
	})

	req := test.NewJSONAuthRequest("POST", "/me/recommend", strconv.FormatUint(uint64(user.ID), 10), models.RecommendIn{
		Occasion: "casual brunch", Location: "Baku", Mode: "daily",
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, float64(3), response["required"])
}

func TestRecommendInvalidMode(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)
	user := test.FakeUser(db)

	req := test.NewJSONAuthRequest("POST", "/me/recommend", strconv.FormatUint(uint64(user.ID), 10), models.RecommendIn{
		Occasion: "casual brunch", Location: "Baku", Mode: "weekly",
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendWeatherOutage(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	runner := &test.MockStageRunner{
		Responses: map[services.LLMModelName]string{services.FlashLite25: test.FakeExplainerJSON},
		Errors:    map[services.LLMModelName]error{services.Flash25: assert.AnError},
	}
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, runner, nil, nil)
	user := test.FakeUser(db)
	test.FakeWardrobe(db, user.PipelineUserID())

	req := test.NewJSONAuthRequest("POST", "/me/recommend", strconv.FormatUint(uint64(user.ID), 10), models.RecommendIn{
		Occasion: "casual brunch", Location: "Baku", Mode: "daily",
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var slateCount int64
	db.Model(&models.OutfitSlate{}).Count(&slateCount)
	assert.Equal(t, int64(0), slateCount, "a failed run must not persist a partial slate")
}

func TestRecommendUnauthorized(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)

	req := test.NewJSONRequest("POST", "/me/recommend", models.RecommendIn{
		Occasion: "casual brunch", Location: "Baku", Mode: "daily",
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
