package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func recordingExecutor() (*RetryingExecutor, *[]time.Duration) {
	delays := &[]time.Duration{}
	executor := NewRetryingExecutor(DefaultRetryPolicy())
	executor.Sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return executor, delays
}

func TestRetrySucceedsOnFinalAttempt(t *testing.T) {
	executor, delays := recordingExecutor()

	calls := 0
	err := executor.Execute(context.Background(), "weather", func(ctx context.Context) error {
		calls++
		if calls < 5 {
			return &StatusError{Code: 429, Message: "throttled"}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		7 * time.Second,
		49 * time.Second,
		343 * time.Second,
	}, *delays)
}

func TestRetryExhaustionKeepsLastError(t *testing.T) {
	executor, delays := recordingExecutor()

	calls := 0
	err := executor.Execute(context.Background(), "weather", func(ctx context.Context) error {
		calls++
		return &StatusError{Code: 503, Message: "unavailable"}
	})

	assert.Equal(t, 5, calls)
	assert.Len(t, *delays, 4)

	var exhausted *StageExhaustedError
	assert.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "weather", exhausted.Stage)
	assert.Equal(t, 5, exhausted.Attempts)
	var status *StatusError
	assert.True(t, errors.As(exhausted.Last, &status))
	assert.Equal(t, 503, status.Code)
}

func TestNonRetryableFailsImmediately(t *testing.T) {
	executor, delays := recordingExecutor()

	calls := 0
	err := executor.Execute(context.Background(), "weather", func(ctx context.Context) error {
		calls++
		return &StatusError{Code: 400, Message: "bad request"}
	})

	assert.Equal(t, 1, calls)
	assert.Empty(t, *delays)
	var exhausted *StageExhaustedError
	assert.False(t, errors.As(err, &exhausted))
	var status *StatusError
	assert.True(t, errors.As(err, &status))
	assert.Equal(t, 400, status.Code)
}

func TestTimeoutIsRetryable(t *testing.T) {
	executor, _ := recordingExecutor()

	calls := 0
	err := executor.Execute(context.Background(), "wardrobe", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return context.DeadlineExceeded
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteAbortsWhenCallerCancels(t *testing.T) {
	executor, _ := recordingExecutor()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := executor.Execute(ctx, "weather", func(callCtx context.Context) error {
		calls++
		cancel()
		return &StatusError{Code: 429, Message: "throttled"}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExecuteStageValidatesResult(t *testing.T) {
	executor, _ := recordingExecutor()

	result, err := ExecuteStage(context.Background(), executor, "weather", func(ctx context.Context) (*WeatherContext, error) {
		return &WeatherContext{Location: "Baku", Bucket: "mild", PrecipitationChance: 3}, nil
	})

	assert.Nil(t, result)
	var violation *SchemaViolationError
	assert.True(t, errors.As(err, &violation))
	assert.Equal(t, "precipitation_chance", violation.Field)
}
