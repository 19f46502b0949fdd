package pipeline

import "context"

type contextBundle struct {
	Weather  *WeatherContext
	Snapshot *WardrobeSnapshot
}

// gatherContext runs the weather and wardrobe stages concurrently and
// joins on both. The first failure wins and cancels the sibling; a
// failed gather never returns partial context.
func (p *Pipeline) gatherContext(ctx context.Context, req *Request) (*contextBundle, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bundle := &contextBundle{}
	results := make(chan error, 2)

	go func() {
		weather, err := ExecuteStage(ctx, p.Executor, "weather", func(ctx context.Context) (*WeatherContext, error) {
			return p.Weather.Forecast(ctx, req.Location, req.Date)
		})
		bundle.Weather = weather
		results <- err
	}()
	go func() {
		snapshot, err := ExecuteStage(ctx, p.Executor, "wardrobe", func(ctx context.Context) (*WardrobeSnapshot, error) {
			return p.Wardrobe.Snapshot(ctx, req.UserID, req)
		})
		bundle.Snapshot = snapshot
		results <- err
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return bundle, nil
}
