package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/genai"

	"freshfitapi/models"
	"freshfitapi/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeRunner) RunStage(ctx context.Context, model LLMModelName, system string, prompt string, schema *genai.Schema, tools []*genai.Tool) (*LLMResponse, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return &LLMResponse{Response: f.response, IsTest: true}, nil
}

func TestForecastParsesPayload(t *testing.T) {
	runner := &fakeRunner{response: `{"temp_high_c": 21, "temp_low_c": 14, "precipitation_chance": 0.1, "summary": "Partly cloudy"}`}
	provider := NewGoogleWeatherProvider(runner)

	weather, err := provider.Forecast(context.Background(), "Baku", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Baku", weather.Location)
	assert.Equal(t, "2026-08-31", weather.Date)
	assert.Equal(t, 21.0, weather.TempHighC)
	assert.Equal(t, 14.0, weather.TempLowC)
	assert.Equal(t, 17.5, weather.AvgTempC)
	assert.Equal(t, models.TempCool, weather.Bucket)
	assert.Equal(t, 0.1, weather.PrecipitationChance)
	assert.NoError(t, weather.Validate())
	assert.Contains(t, runner.prompts[0], "Baku")
}

func TestForecastHandlesFencedJSON(t *testing.T) {
	runner := &fakeRunner{response: "```json\n{\"temp_high_c\": 30, \"temp_low_c\": 22, \"precipitation_chance\": 0, \"summary\": \"Hot and dry\"}\n```"}
	provider := NewGoogleWeatherProvider(runner)

	weather, err := provider.Forecast(context.Background(), "Dubai", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.TempWarm, weather.Bucket)
}

func TestForecastRejectsMalformedPayload(t *testing.T) {
	runner := &fakeRunner{response: "sunny with a chance of meatballs"}
	provider := NewGoogleWeatherProvider(runner)

	_, err := provider.Forecast(context.Background(), "Baku", time.Now())
	var violation *pipeline.SchemaViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, "weather", violation.Stage)
}

func TestForecastPropagatesRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("quota exceeded")}
	provider := NewGoogleWeatherProvider(runner)

	_, err := provider.Forecast(context.Background(), "Baku", time.Now())
	assert.Error(t, err)
}
