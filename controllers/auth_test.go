package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"freshfitapi/dbhelper"
	"freshfitapi/models"
	"freshfitapi/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleSignInCreatesUser(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)

	req := test.NewJSONRequest("POST", "/auth/google", models.GoogleAuthSignIn{
		IdToken:  "faketoken",
		Platform: "ios",
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, true, response["new"])
	assert.Equal(t, "fake@example.com", response["email"])
	assert.NotEmpty(t, response["access_token"])
	assert.NotEmpty(t, response["refresh_token"])

	var user models.UserAccount
	require.NoError(t, db.Where("google_id = ?", "123googleid").First(&user).Error)
	assert.True(t, user.ReceiveNotifications)
	assert.Equal(t, models.PlatformIOS, user.Platform)
}

func TestGoogleSignInExistingUser(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)

	existing := models.UserAccount{
		Name:     "Existing",
		Email:    "fake@example.com",
		GoogleID: "123googleid",
		Platform: models.PlatformAndroid,
	}
	require.NoError(t, db.Create(&existing).Error)

	req := test.NewJSONRequest("POST", "/auth/google", models.GoogleAuthSignIn{
		IdToken:  "faketoken",
		Platform: "web",
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, false, response["new"])

	var count int64
	db.Model(&models.UserAccount{}).Where("email = ?", "fake@example.com").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGoogleSignInMissingPlatform(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)

	req := test.NewJSONRequest("POST", "/auth/google", models.GoogleAuthSignIn{IdToken: "faketoken"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeInfo(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)
	user := test.FakeUser(db)
	test.FakeWardrobe(db, user.PipelineUserID())

	req := test.NewJSONAuthRequest("GET", "/me/info", strconv.FormatUint(uint64(user.ID), 10), nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response models.UserMeInfoOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, user.Email, response.Email)
	assert.Equal(t, int64(10), response.WardrobeItemCount)
}

func TestRegisterPushTokenUpsert(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)
	user := test.FakeUser(db)
	userPk := strconv.FormatUint(uint64(user.ID), 10)

	body := models.UserPushIn{Token: "push-token-abc", Platform: "android"}
	first := httptest.NewRecorder()
	e.ServeHTTP(first, test.NewJSONAuthRequest("POST", "/me/push-token", userPk, body))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	e.ServeHTTP(second, test.NewJSONAuthRequest("POST", "/me/push-token", userPk, body))
	require.Equal(t, http.StatusOK, second.Code)

	var count int64
	db.Model(&models.UserPushToken{}).Where("user_account_id = ? and token = ?", user.ID, "push-token-abc").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUpdateSettings(t *testing.T) {
	db := dbhelper.SetupTestDB()
	cleaner := dbhelper.SetupCleaner(db)
	defer cleaner()
	e := SetupServer(db, test.GoogleServiceMock{}, test.AWSProviderMock{}, nil, happyPathRunner(), nil, nil)
	user := test.FakeUser(db)

	req := test.NewJSONAuthRequest("POST", "/me/settings", strconv.FormatUint(uint64(user.ID), 10), models.UserSettingsIn{
		ReceiveNotifications: false,
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.UserAccount
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.False(t, updated.ReceiveNotifications)
}
