package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"freshfitapi/models"

	"github.com/stretchr/testify/assert"
)

type stubWeather struct {
	weather *WeatherContext
	err     error
	delay   time.Duration
	calls   int32
}

func (s *stubWeather) Forecast(ctx context.Context, location string, date time.Time) (*WeatherContext, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.weather, nil
}

type stubWardrobe struct {
	snapshot *WardrobeSnapshot
	err      error
	calls    int32
}

func (s *stubWardrobe) Snapshot(ctx context.Context, userID string, req *Request) (*WardrobeSnapshot, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

type stubExplainer struct {
	rationales map[string]string
	prompt     string
	err        error
}

func (s *stubExplainer) Explain(ctx context.Context, req *Request, slate *Slate) (map[string]string, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	return s.rationales, s.prompt, nil
}

func fastExecutor() *RetryingExecutor {
	executor := NewRetryingExecutor(DefaultRetryPolicy())
	executor.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return executor
}

func testPipeline(weather WeatherProvider, wardrobe WardrobeProvider, history HistoryProvider, explainer Explainer) *Pipeline {
	return NewPipeline(weather, wardrobe, history, explainer, fastExecutor())
}

func TestRunProducesRankedSlate(t *testing.T) {
	weather := &stubWeather{weather: mildWeather()}
	wardrobe := &stubWardrobe{snapshot: &WardrobeSnapshot{Items: testWardrobe()}}
	history := &stubHistory{history: &PreferenceHistory{}}
	explainer := &stubExplainer{
		rationales: map[string]string{"123-01": "Light layers fit the mild afternoon."},
		prompt:     "Pick a look.",
	}
	p := testPipeline(weather, wardrobe, history, explainer)

	var stages []string
	p.OnProgress = func(event Progress) { stages = append(stages, event.Stage) }

	sess := NewSession("123")
	slate, err := p.Run(context.Background(), sess, dailyRequest("123"))
	assert.NoError(t, err)
	assert.NotNil(t, slate)

	assert.Equal(t, []string{"context", "candidates", "ranking", "explanation", "done"}, stages)
	assert.Equal(t, 1, sess.Turn)
	assert.Equal(t, slate, sess.LastSlate)

	assert.GreaterOrEqual(t, len(slate.Candidates), MinDailySlate)
	assert.Equal(t, "Light layers fit the mild afternoon.", slate.Candidates[0].Rationale)
	assert.Equal(t, "Pick a look.", slate.SelectionPrompt)
	for _, candidate := range slate.Candidates {
		assert.NotEmpty(t, candidate.Rationale)
	}
	assert.NotEmpty(t, slate.Trace)
	assert.Equal(t, int32(1), weather.calls)
	assert.Equal(t, int32(1), wardrobe.calls)
}

func TestRunFailsWholeTurnWhenWeatherFails(t *testing.T) {
	weather := &stubWeather{err: &StatusError{Code: 401, Message: "bad key"}}
	wardrobe := &stubWardrobe{snapshot: &WardrobeSnapshot{Items: testWardrobe()}}
	p := testPipeline(weather, wardrobe, &stubHistory{history: &PreferenceHistory{}}, nil)

	slate, err := p.Run(context.Background(), NewSession("123"), dailyRequest("123"))
	assert.Nil(t, slate)
	var status *StatusError
	assert.True(t, errors.As(err, &status))
	assert.Equal(t, 401, status.Code)
}

func TestRunFirstFailureCancelsSibling(t *testing.T) {
	weather := &stubWeather{weather: mildWeather(), delay: 5 * time.Second}
	wardrobe := &stubWardrobe{err: &StatusError{Code: 403, Message: "forbidden"}}
	p := testPipeline(weather, wardrobe, &stubHistory{history: &PreferenceHistory{}}, nil)

	start := time.Now()
	slate, err := p.Run(context.Background(), NewSession("123"), dailyRequest("123"))
	assert.Nil(t, slate)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "wardrobe failure should cancel the pending weather call")
}

func TestRunRetriesExhaustedWeather(t *testing.T) {
	weather := &stubWeather{err: &StatusError{Code: 503, Message: "upstream down"}}
	wardrobe := &stubWardrobe{snapshot: &WardrobeSnapshot{Items: testWardrobe()}}
	p := testPipeline(weather, wardrobe, &stubHistory{history: &PreferenceHistory{}}, nil)

	slate, err := p.Run(context.Background(), NewSession("123"), dailyRequest("123"))
	assert.Nil(t, slate)
	var exhausted *StageExhaustedError
	assert.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "weather", exhausted.Stage)
	assert.Equal(t, int32(5), weather.calls)
}

func TestRunSurfacesInsufficientSlate(t *testing.T) {
	weather := &stubWeather{weather: mildWeather()}
	wardrobe := &stubWardrobe{snapshot: &WardrobeSnapshot{Items: testWardrobe()[:2]}}
	p := testPipeline(weather, wardrobe, &stubHistory{history: &PreferenceHistory{}}, nil)

	_, err := p.Run(context.Background(), NewSession("123"), dailyRequest("123"))
	var insufficient *InsufficientSlateError
	assert.True(t, errors.As(err, &insufficient))
}

func TestRunExplainerFailureDegradesSlate(t *testing.T) {
	weather := &stubWeather{weather: mildWeather()}
	wardrobe := &stubWardrobe{snapshot: &WardrobeSnapshot{Items: testWardrobe()}}
	explainer := &stubExplainer{err: &StatusError{Code: 400, Message: "prompt rejected"}}
	p := testPipeline(weather, wardrobe, &stubHistory{history: &PreferenceHistory{}}, explainer)

	slate, err := p.Run(context.Background(), NewSession("123"), dailyRequest("123"))
	assert.NoError(t, err)
	assert.Contains(t, slate.Warnings, "rationales are approximate, the explanation stage was unavailable")
	for _, candidate := range slate.Candidates {
		assert.Equal(t, candidate.Description, candidate.Rationale)
	}
	assert.Equal(t, defaultSelectionPrompt, slate.SelectionPrompt)
}

func TestRunCarriesMissingCategoryWarnings(t *testing.T) {
	weather := &stubWeather{weather: mildWeather()}
	wardrobe := &stubWardrobe{snapshot: &WardrobeSnapshot{
		Items:             testWardrobe(),
		MissingCategories: []models.Category{models.CategoryDress},
	}}
	p := testPipeline(weather, wardrobe, &stubHistory{history: &PreferenceHistory{}}, nil)

	slate, err := p.Run(context.Background(), NewSession("123"), dailyRequest("123"))
	assert.NoError(t, err)
	assert.Contains(t, slate.Warnings, "no dress available in the wardrobe")
}

func TestRunValidatesRequest(t *testing.T) {
	p := testPipeline(&stubWeather{weather: mildWeather()}, &stubWardrobe{snapshot: &WardrobeSnapshot{}}, nil, nil)

	req := dailyRequest("123")
	req.Occasion = ""
	_, err := p.Run(context.Background(), NewSession("123"), req)
	var violation *SchemaViolationError
	assert.True(t, errors.As(err, &violation))
	assert.Equal(t, "occasion", violation.Field)
}

func TestRunAppliesSessionBans(t *testing.T) {
	weather := &stubWeather{weather: mildWeather()}
	wardrobe := &stubWardrobe{snapshot: &WardrobeSnapshot{Items: testWardrobe()}}
	p := testPipeline(weather, wardrobe, &stubHistory{history: &PreferenceHistory{}}, nil)

	sess := NewSession("123")
	sess.Ban(7)
	slate, err := p.Run(context.Background(), sess, dailyRequest("123"))
	assert.NoError(t, err)
	for _, candidate := range slate.Candidates {
		for _, item := range candidate.Items {
			assert.NotEqual(t, uint(7), item.ItemID)
		}
	}
}
