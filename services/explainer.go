package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"freshfitapi/pipeline"
)

const explainerSystemPrompt = `You are a friendly personal stylist. For each outfit write a
rationale of one or two sentences tying the pieces to the weather and the occasion. Then
write one short prompt inviting the user to pick an outfit. Never invent items that are
not listed.`

var explainerSchema = &genai.Schema{
	Type: "object",
	Properties: map[string]*genai.Schema{
		"rationales": {
			Type: "array",
			Items: &genai.Schema{
				Type: "object",
				Properties: map[string]*genai.Schema{
					"outfit_id": {Type: "string"},
					"rationale": {Type: "string"},
				},
				Required: []string{"outfit_id", "rationale"},
			},
		},
		"selection_prompt": {Type: "string"},
	},
	Required: []string{"rationales", "selection_prompt"},
}

type explainerPayload struct {
	Rationales []struct {
		OutfitID  string `json:"outfit_id"`
		Rationale string `json:"rationale"`
	} `json:"rationales"`
	SelectionPrompt string `json:"selection_prompt"`
}

// GeminiExplainer is the explanation stage adapter.
type GeminiExplainer struct {
	Runner LLMStageRunner
	Model  LLMModelName
}

func NewGeminiExplainer(runner LLMStageRunner) *GeminiExplainer {
	return &GeminiExplainer{Runner: runner, Model: FlashLite25}
}

func (e *GeminiExplainer) Explain(ctx context.Context, req *pipeline.Request, slate *pipeline.Slate) (map[string]string, string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Occasion: %s. Weather: %s, %s.\n", req.Occasion, slate.Weather.Summary, slate.Weather.Bucket)
	for _, candidate := range slate.Candidates {
		names := make([]string, 0, len(candidate.Items))
		for _, item := range candidate.Items {
			names = append(names, item.Color+" "+item.Name)
		}
		fmt.Fprintf(&b, "%s: %s\n", candidate.OutfitID, strings.Join(names, ", "))
	}

	response, err := e.Runner.RunStage(ctx, e.Model, explainerSystemPrompt, b.String(), explainerSchema, nil)
	if err != nil {
		return nil, "", err
	}
	var payload explainerPayload
	if err := json.Unmarshal([]byte(ExtractJSON(response.Response)), &payload); err != nil {
		return nil, "", &pipeline.SchemaViolationError{Stage: "explanation", Field: "response", Reason: err.Error()}
	}

	rationales := map[string]string{}
	for _, entry := range payload.Rationales {
		rationales[entry.OutfitID] = entry.Rationale
	}
	return rationales, payload.SelectionPrompt, nil
}
