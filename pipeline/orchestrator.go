package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

const defaultSelectionPrompt = "Which look works for you? Reply with the outfit id, or ask to regenerate."

// Progress is one stage notification. The sequence per run is finite and
// a failed run can only be restarted by calling Run again.
type Progress struct {
	Stage   string
	Message string
	At      time.Time
}

// Pipeline wires the stages together. Collaborator failures surface as a
// single explanatory error, partial slates are never returned.
type Pipeline struct {
	Weather   WeatherProvider
	Wardrobe  WardrobeProvider
	Generator *CandidateGenerator
	Ranker    *PreferenceRanker
	Explainer Explainer
	Executor  *RetryingExecutor

	OnProgress func(Progress)
}

func NewPipeline(weather WeatherProvider, wardrobe WardrobeProvider, history HistoryProvider, explainer Explainer, executor *RetryingExecutor) *Pipeline {
	if executor == nil {
		executor = NewRetryingExecutor(DefaultRetryPolicy())
	}
	return &Pipeline{
		Weather:   weather,
		Wardrobe:  wardrobe,
		Generator: NewCandidateGenerator(),
		Ranker:    NewPreferenceRanker(history, DefaultRankWeights()),
		Explainer: explainer,
		Executor:  executor,
	}
}

func (p *Pipeline) progress(stage, format string, args ...interface{}) {
	if p.OnProgress == nil {
		return
	}
	p.OnProgress(Progress{Stage: stage, Message: fmt.Sprintf(format, args...), At: time.Now()})
}

// Run executes one full turn: gather context, generate, rank, explain.
func (p *Pipeline) Run(ctx context.Context, sess *Session, req *Request) (*Slate, error) {
	if req.UserID == "" {
		req.UserID = sess.UserID
	}
	for _, banned := range sess.BannedItems {
		req.BannedItems = append(req.BannedItems, banned)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sess.NextTurn()

	p.progress("context", "gathering weather for %s and the wardrobe snapshot", req.Location)
	bundle, err := p.gatherContext(ctx, req)
	if err != nil {
		return nil, err
	}

	p.progress("candidates", "building %s candidates", req.Mode)
	candidates, trace, err := p.Generator.Generate(req, bundle.Weather, bundle.Snapshot)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if err := candidates[i].Validate(); err != nil {
			return nil, err
		}
	}

	p.progress("ranking", "ranking %d candidates", len(candidates))
	ranked, rankTrace, err := p.Ranker.Rank(ctx, req, candidates)
	if err != nil {
		return nil, err
	}

	slate := &Slate{
		Candidates:      ranked,
		Weather:         *bundle.Weather,
		Trace:           append(trace, rankTrace...),
		SelectionPrompt: defaultSelectionPrompt,
	}
	slate.Trace = append(slate.Trace, bundle.Snapshot.Notes...)
	for _, missing := range bundle.Snapshot.MissingCategories {
		slate.Warnings = append(slate.Warnings, fmt.Sprintf("no %s available in the wardrobe", missing))
	}

	p.progress("explanation", "writing rationales")
	p.explain(ctx, req, slate)

	sess.RememberSlate(slate)
	p.progress("done", "slate of %d outfits ready", len(slate.Candidates))
	return slate, nil
}

// explain asks the reasoning collaborator for rationales. Failures only
// degrade the slate to description-based rationales.
func (p *Pipeline) explain(ctx context.Context, req *Request, slate *Slate) {
	if p.Explainer != nil {
		var rationales map[string]string
		var prompt string
		err := p.Executor.Execute(ctx, "explanation", func(ctx context.Context) error {
			var err error
			rationales, prompt, err = p.Explainer.Explain(ctx, req, slate)
			return err
		})
		if err == nil {
			for i := range slate.Candidates {
				if text, ok := rationales[slate.Candidates[i].OutfitID]; ok {
					slate.Candidates[i].Rationale = text
				}
			}
			if prompt != "" {
				slate.SelectionPrompt = prompt
			}
		} else {
			fmt.Printf("explanation stage degraded: %v\n", err)
			sentry.CaptureException(err)
			slate.Warnings = append(slate.Warnings, "rationales are approximate, the explanation stage was unavailable")
		}
	}
	for i := range slate.Candidates {
		if slate.Candidates[i].Rationale == "" {
			slate.Candidates[i].Rationale = slate.Candidates[i].Description
		}
	}
}
