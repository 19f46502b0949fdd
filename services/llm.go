package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"freshfitapi/pipeline"
)

// LLMModelName is the GenAI model the stage runs on.
type LLMModelName int32

const (
	Pro25 LLMModelName = iota
	Flash25
	FlashLite25
	Flash20
)

func (t LLMModelName) String() string {
	switch t {
	case Pro25:
		return "gemini-2.5-pro"
	case Flash25:
		return "gemini-2.5-flash"
	case FlashLite25:
		return "gemini-2.5-flash-lite-preview-06-17"
	default:
		return "gemini-2.0-flash"
	}
}

func floatPointer(f float32) *float32 {
	return &f
}

type LLMResponse struct {
	Response           string `json:"response"`
	Thoughts           string `json:"thoughts"`
	InputTokenCount    int32  `json:"input_token_count"`
	ThoughtsTokenCount int32  `json:"thoughts_token_count"`
	OutputTokenCount   int32  `json:"output_token_count"`
	TotalTokenCount    int32  `json:"total_token_count"`
	IsTest             bool   `json:"is_test"`
}

// LLMStageRunner is the reasoning collaborator surface every pipeline
// stage adapter talks through. One call, one prompt, structured output.
type LLMStageRunner interface {
	RunStage(ctx context.Context, model LLMModelName, system string, prompt string, schema *genai.Schema, tools []*genai.Tool) (*LLMResponse, error)
}

type GoogleLLMStageRunner struct{}

// RunStage sends one prompt to Gemini. With a schema the response is
// forced to JSON; tools (grounding search) exclude the JSON response
// mode, callers parse the text themselves then.
func (GoogleLLMStageRunner) RunStage(ctx context.Context, model LLMModelName, system string, prompt string, schema *genai.Schema, tools []*genai.Tool) (*LLMResponse, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GOOGLE_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		CandidateCount:  1,
		MaxOutputTokens: 20000,
		Temperature:     floatPointer(0.4),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}
	if schema != nil && len(tools) == 0 {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = schema
	}
	if len(tools) > 0 {
		config.Tools = tools
	}

	result, err := client.Models.GenerateContent(ctx, model.String(),
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}}, config)
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return nil, mapGenaiError(err)
	}

	if result.PromptFeedback != nil {
		fmt.Println(result.PromptFeedback.BlockReason, result.PromptFeedback.BlockReasonMessage)
		return nil, fmt.Errorf("content violation: %s", result.PromptFeedback.BlockReasonMessage)
	}

	response := &LLMResponse{Response: result.Text()}
	if result.UsageMetadata != nil {
		response.InputTokenCount = result.UsageMetadata.PromptTokenCount
		response.ThoughtsTokenCount = result.UsageMetadata.ThoughtsTokenCount
		response.OutputTokenCount = result.UsageMetadata.CandidatesTokenCount
		response.TotalTokenCount = result.UsageMetadata.TotalTokenCount
		fmt.Println("Input token count:", response.InputTokenCount)
		fmt.Println("Output token count:", response.OutputTokenCount)
		fmt.Println("Total token count:", response.TotalTokenCount)
	}
	for _, c := range result.Candidates {
		for _, rating := range c.SafetyRatings {
			if rating.Blocked {
				return nil, fmt.Errorf("content violation: blocked for %s", rating.Category)
			}
		}
		for _, part := range c.Content.Parts {
			if part.Thought && part.Text != "" {
				response.Thoughts = part.Text
			}
		}
	}
	return response, nil
}

// mapGenaiError converts API failures into status errors the retrying
// executor can classify.
func mapGenaiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &pipeline.StatusError{Code: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &pipeline.StatusError{Code: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return err
}

// ExtractJSON strips markdown fences models sometimes wrap around JSON.
func ExtractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		return strings.TrimSpace(trimmed)
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}
