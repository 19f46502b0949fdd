package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"

	"freshfitapi/models"
	"freshfitapi/pipeline"
)

const weatherSystemPrompt = `You are a weather lookup assistant. Use web search to find the
forecast for the requested location and date. Reply with ONLY a JSON object:
{"temp_high_c": number, "temp_low_c": number, "precipitation_chance": number between 0 and 1, "summary": short string}`

type weatherPayload struct {
	TempHighC           float64 `json:"temp_high_c"`
	TempLowC            float64 `json:"temp_low_c"`
	PrecipitationChance float64 `json:"precipitation_chance"`
	Summary             string  `json:"summary"`
}

// GoogleWeatherProvider grounds the forecast through Gemini with the
// search tool. The pipeline only ever sees the validated context.
type GoogleWeatherProvider struct {
	Runner LLMStageRunner
	Model  LLMModelName
}

func NewGoogleWeatherProvider(runner LLMStageRunner) *GoogleWeatherProvider {
	return &GoogleWeatherProvider{Runner: runner, Model: Flash25}
}

func (p *GoogleWeatherProvider) Forecast(ctx context.Context, location string, date time.Time) (*pipeline.WeatherContext, error) {
	prompt := fmt.Sprintf("Forecast for %s on %s.", location, date.Format("2006-01-02"))
	tools := []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	response, err := p.Runner.RunStage(ctx, p.Model, weatherSystemPrompt, prompt, nil, tools)
	if err != nil {
		return nil, err
	}

	var payload weatherPayload
	if err := json.Unmarshal([]byte(ExtractJSON(response.Response)), &payload); err != nil {
		return nil, &pipeline.SchemaViolationError{Stage: "weather", Field: "response", Reason: err.Error()}
	}

	avg := (payload.TempHighC + payload.TempLowC) / 2
	return &pipeline.WeatherContext{
		Location:            location,
		Date:                date.Format("2006-01-02"),
		TempHighC:           payload.TempHighC,
		TempLowC:            payload.TempLowC,
		AvgTempC:            avg,
		Bucket:              models.BucketForTemp(avg),
		PrecipitationChance: payload.PrecipitationChance,
		Summary:             payload.Summary,
	}, nil
}
