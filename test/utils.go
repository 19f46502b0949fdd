package test

import (
	"context"
	"encoding/json"
	"fmt"
	"freshfitapi/models"
	"freshfitapi/pipeline"
	"freshfitapi/services"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"google.golang.org/api/idtoken"
	"google.golang.org/genai"
	"gorm.io/gorm"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	log.Println(JsonString(param))
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func NewJSONAuthRequestRaw(method string, target string, userPk string, json string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(json))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func Contains(items []string, lookFor string) bool {
	for i := 0; i < len(items); i++ {
		if items[i] == lookFor {
			return true
		}
	}
	return false
}

func NewRefString(data string) *string {
	return &data
}

func FakeUser(db *gorm.DB) *models.UserAccount {
	user := &models.UserAccount{
		Name:                 "OurName",
		Email:                "email@example.com",
		GoogleID:             "12232",
		Platform:             models.PlatformIOS,
		LastIp:               "123.122.122.122",
		AvatarURL:            "pictureurl",
		ReceiveNotifications: true,
	}
	db.Create(&user)
	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      "android",
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU",
		Active:        true,
	}
	db.Save(&tokenDb)
	return user
}

// FakeWardrobe seeds a closet wide enough for a full daily slate.
func FakeWardrobe(db *gorm.DB, userID string) []models.WardrobeItem {
	items := []models.WardrobeItem{
		{UserID: userID, Name: "White tee", Category: models.CategoryTop, Color: "white", WarmthLevel: models.WarmthLight, Formality: models.FormalityCasual, BodyZone: models.BodyZoneUpper},
		{UserID: userID, Name: "Oxford shirt", Category: models.CategoryTop, Color: "blue", WarmthLevel: models.WarmthMedium, Formality: models.FormalitySmartCasual, BodyZone: models.BodyZoneUpper},
		{UserID: userID, Name: "Wool sweater", Category: models.CategoryTop, Color: "grey", WarmthLevel: models.WarmthHeavy, Formality: models.FormalityCasual, BodyZone: models.BodyZoneUpper},
		{UserID: userID, Name: "Dark jeans", Category: models.CategoryBottom, Color: "navy", WarmthLevel: models.WarmthMedium, Formality: models.FormalityCasual, BodyZone: models.BodyZoneLower},
		{UserID: userID, Name: "Chinos", Category: models.CategoryBottom, Color: "beige", WarmthLevel: models.WarmthMedium, Formality: models.FormalitySmartCasual, BodyZone: models.BodyZoneLower},
		{UserID: userID, Name: "Rain jacket", Category: models.CategoryOuterwear, Color: "green", WarmthLevel: models.WarmthMedium, Formality: models.FormalityCasual, BodyZone: models.BodyZoneUpper},
		{UserID: userID, Name: "White sneakers", Category: models.CategoryShoes, Color: "white", WarmthLevel: models.WarmthLight, Formality: models.FormalityCasual, BodyZone: models.BodyZoneShoe},
		{UserID: userID, Name: "Leather boots", Category: models.CategoryShoes, Color: "brown", WarmthLevel: models.WarmthMedium, Formality: models.FormalitySmartCasual, BodyZone: models.BodyZoneShoe},
		{UserID: userID, Name: "Canvas belt", Category: models.CategoryAccessory, Color: "tan", WarmthLevel: models.WarmthLight, Formality: models.FormalityCasual, BodyZone: models.BodyZoneAccessory},
		{UserID: userID, Name: "Silver watch", Category: models.CategoryAccessory, Color: "silver", WarmthLevel: models.WarmthLight, Formality: models.FormalitySmartCasual, BodyZone: models.BodyZoneAccessory},
	}
	for i := range items {
		db.Create(&items[i])
	}
	return items
}

type GoogleServiceMock struct{}

func (gsm GoogleServiceMock) ValidateIdToken(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error) {
	return &idtoken.Payload{Issuer: "Issue", Audience: "AAA", Expires: 119919191919, IssuedAt: 12312321321, Subject: "fake@example.com", Claims: map[string]interface{}{
		"email":   "fake@example.com",
		"picture": "pictureurl",
		"sub":     "123googleid",
	}}, nil
}

type AWSProviderMock struct {
	MockUrl string
}

func (awsService AWSProviderMock) InitPresignClient(ctx context.Context) error {
	return nil
}

func (awsService AWSProviderMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s", fileName), nil
}

func (awsService AWSProviderMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	return awsService.MockUrl, nil
}

// MockStageRunner answers per model name, so weather and explainer calls
// in one request can be faked independently.
type MockStageRunner struct {
	Responses map[services.LLMModelName]string
	Errors    map[services.LLMModelName]error
	Calls     []string
}

func (m *MockStageRunner) RunStage(ctx context.Context, model services.LLMModelName, system string, prompt string, schema *genai.Schema, tools []*genai.Tool) (*services.LLMResponse, error) {
	m.Calls = append(m.Calls, model.String())
	if err, ok := m.Errors[model]; ok && err != nil {
		return nil, err
	}
	response, ok := m.Responses[model]
	if !ok {
		return nil, fmt.Errorf("no canned response for model %s", model.String())
	}
	return &services.LLMResponse{
		Response:         response,
		InputTokenCount:  10,
		OutputTokenCount: 13,
		TotalTokenCount:  23,
		IsTest:           true,
	}, nil
}

const FakeWeatherJSON = `{
	"temp_high_c": 21,
	"temp_low_c": 14,
	"precipitation_chance": 0.1,
	"summary": "Partly cloudy, mild afternoon"
}`

const FakeColdWetWeatherJSON = `{
	"temp_high_c": 13,
	"temp_low_c": 9,
	"precipitation_chance": 0.6,
	"summary": "Cold with steady rain"
}`

const FakeExplainerJSON = `{
	"rationales": [],
	"selection_prompt": "Which look fits your day best?"
}`

// StaticWeatherProvider skips the search-grounded lookup in pipeline tests.
type StaticWeatherProvider struct {
	Weather *pipeline.WeatherContext
	Err     error
}

func (p *StaticWeatherProvider) Forecast(ctx context.Context, location string, date time.Time) (*pipeline.WeatherContext, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Weather, nil
}

type StaticHistoryProvider struct {
	History *pipeline.PreferenceHistory
	Err     error
	Queries []pipeline.HistoryQuery
}

func (p *StaticHistoryProvider) FetchHistory(ctx context.Context, userID string, q pipeline.HistoryQuery) (*pipeline.PreferenceHistory, error) {
	p.Queries = append(p.Queries, q)
	if p.Err != nil {
		return nil, p.Err
	}
	if p.History == nil {
		return &pipeline.PreferenceHistory{}, nil
	}
	return p.History, nil
}
