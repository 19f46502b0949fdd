package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"
)

// RetryPolicy drives the executor. Delay before retry n (0-indexed) is
// InitialDelay * Base^n.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Base         float64
	Timeout      time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		Base:         7,
		Timeout:      60 * time.Second,
	}
}

// RetryingExecutor is the single place transient-failure policy lives.
// Stages never retry on their own.
type RetryingExecutor struct {
	Policy RetryPolicy

	// Sleep is swapped in tests. Nil means a context-aware time.Sleep.
	Sleep   func(ctx context.Context, d time.Duration) error
	OnRetry func(stage string, attempt int, delay time.Duration, err error)
}

func NewRetryingExecutor(policy RetryPolicy) *RetryingExecutor {
	return &RetryingExecutor{Policy: policy}
}

func (e *RetryingExecutor) delay(attempt int) time.Duration {
	return time.Duration(float64(e.Policy.InitialDelay) * math.Pow(e.Policy.Base, float64(attempt)))
}

func (e *RetryingExecutor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs call until success, a non-retryable error, or exhaustion.
func (e *RetryingExecutor) Execute(ctx context.Context, stage string, call func(ctx context.Context) error) error {
	attempts := e.Policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		callCtx := ctx
		cancel := func() {}
		if e.Policy.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.Policy.Timeout)
		}
		err := call(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("stage %s aborted: %w", stage, ctx.Err())
		}
		if !IsRetryable(err) {
			return err
		}
		last = err
		if attempt == attempts-1 {
			break
		}
		delay := e.delay(attempt)
		if e.OnRetry != nil {
			e.OnRetry(stage, attempt+1, delay, err)
		}
		if sleepErr := e.sleep(ctx, delay); sleepErr != nil {
			return fmt.Errorf("stage %s aborted: %w", stage, sleepErr)
		}
	}
	return &StageExhaustedError{Stage: stage, Attempts: attempts, Last: last}
}

// ExecuteStage wraps Execute for calls returning a payload and validates
// the payload at the stage boundary when it carries a contract.
func ExecuteStage[T any](ctx context.Context, e *RetryingExecutor, stage string, call func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Execute(ctx, stage, func(ctx context.Context) error {
		out, err := call(ctx)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if contract, ok := any(result).(interface{ Validate() error }); ok {
		if err := contract.Validate(); err != nil {
			var zero T
			return zero, err
		}
	}
	return result, nil
}
