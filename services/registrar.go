package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"freshfitapi/models"
	"freshfitapi/pipeline"
)

// WardrobeIntent is the classified purpose of a free-text wardrobe
// message. Exactly one of the three, dispatch is a switch.
type WardrobeIntent string

const (
	IntentAdd     WardrobeIntent = "add"
	IntentDelete  WardrobeIntent = "delete"
	IntentUnclear WardrobeIntent = "unclear"
)

const registrarSystemPrompt = `You classify wardrobe messages. Decide whether the user wants
to ADD a clothing item, DELETE one, or whether the request is UNCLEAR. For add, extract the
item fields. For delete, extract the item name being removed. Categories: top, bottom,
dress, outerwear, shoes, accessory. Warmth: light, medium, heavy. Formality: casual,
smart_casual, business, formal. Body zones: upper, lower, full_body, shoe, accessory.`

var registrarSchema = &genai.Schema{
	Type: "object",
	Properties: map[string]*genai.Schema{
		"intent":       {Type: "string", Enum: []string{"add", "delete", "unclear"}},
		"name":         {Type: "string"},
		"category":     {Type: "string"},
		"color":        {Type: "string"},
		"warmth_level": {Type: "string"},
		"formality":    {Type: "string"},
		"body_zone":    {Type: "string"},
		"question":     {Type: "string"},
	},
	Required: []string{"intent"},
}

type registrarPayload struct {
	Intent      string `json:"intent"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Color       string `json:"color"`
	WarmthLevel string `json:"warmth_level"`
	Formality   string `json:"formality"`
	BodyZone    string `json:"body_zone"`
	Question    string `json:"question"`
}

// WardrobeRegistrar routes free-text wardrobe requests from the chat
// surface into store operations.
type WardrobeRegistrar struct {
	Runner   LLMStageRunner
	Model    LLMModelName
	Store    WardrobeStoreProvider
	Executor *pipeline.RetryingExecutor
}

func NewWardrobeRegistrar(runner LLMStageRunner, store WardrobeStoreProvider, executor *pipeline.RetryingExecutor) *WardrobeRegistrar {
	if executor == nil {
		executor = pipeline.NewRetryingExecutor(pipeline.DefaultRetryPolicy())
	}
	return &WardrobeRegistrar{Runner: runner, Model: FlashLite25, Store: store, Executor: executor}
}

func (r *WardrobeRegistrar) classify(ctx context.Context, text string) (*registrarPayload, error) {
	response, err := ExecuteRegistrarStage(ctx, r, text)
	if err != nil {
		return nil, err
	}
	var payload registrarPayload
	if err := json.Unmarshal([]byte(ExtractJSON(response.Response)), &payload); err != nil {
		return nil, &pipeline.SchemaViolationError{Stage: "registrar", Field: "response", Reason: err.Error()}
	}
	return &payload, nil
}

func ExecuteRegistrarStage(ctx context.Context, r *WardrobeRegistrar, text string) (*LLMResponse, error) {
	return pipeline.ExecuteStage(ctx, r.Executor, "registrar", func(ctx context.Context) (*LLMResponse, error) {
		return r.Runner.RunStage(ctx, r.Model, registrarSystemPrompt, text, registrarSchema, nil)
	})
}

// Handle classifies and dispatches one message, returning the reply for
// the chat surface.
func (r *WardrobeRegistrar) Handle(ctx context.Context, userID string, text string) (string, error) {
	payload, err := r.classify(ctx, text)
	if err != nil {
		return "", err
	}

	switch WardrobeIntent(payload.Intent) {
	case IntentAdd:
		return r.handleAdd(ctx, userID, payload)
	case IntentDelete:
		return r.handleDelete(ctx, userID, payload)
	default:
		if payload.Question != "" {
			return payload.Question, nil
		}
		return "I wasn't sure what to do. Tell me what to add or which item to remove.", nil
	}
}

func (r *WardrobeRegistrar) handleAdd(ctx context.Context, userID string, payload *registrarPayload) (string, error) {
	if payload.Name == "" || payload.Category == "" {
		return "I need at least a name and a category to add that. What is it exactly?", nil
	}
	item := &models.WardrobeItem{
		UserID:      userID,
		Name:        payload.Name,
		Category:    models.Category(strings.ToLower(payload.Category)),
		Color:       payload.Color,
		WarmthLevel: models.WarmthLevel(defaultString(strings.ToLower(payload.WarmthLevel), string(models.WarmthMedium))),
		Formality:   models.Formality(defaultString(strings.ToLower(payload.Formality), string(models.FormalityCasual))),
		BodyZone:    models.BodyZone(defaultString(strings.ToLower(payload.BodyZone), zoneForCategory(models.Category(payload.Category)))),
	}
	itemID, err := r.Store.Add(ctx, item)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %s %s to your wardrobe (item %d).", item.Color, item.Name, itemID), nil
}

func (r *WardrobeRegistrar) handleDelete(ctx context.Context, userID string, payload *registrarPayload) (string, error) {
	if payload.Name == "" {
		return "Which item should I remove?", nil
	}
	item, err := r.Store.FindByName(ctx, userID, payload.Name)
	if err != nil {
		return "", err
	}
	if item == nil {
		return fmt.Sprintf("I couldn't find %q in your wardrobe.", payload.Name), nil
	}
	deleted, err := r.Store.Delete(ctx, userID, item.ItemID)
	if err != nil {
		return "", err
	}
	if !deleted {
		return fmt.Sprintf("I couldn't find %q in your wardrobe.", payload.Name), nil
	}
	return fmt.Sprintf("Removed %s from your wardrobe.", item.Name), nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func zoneForCategory(category models.Category) string {
	switch category {
	case models.CategoryTop, models.CategoryOuterwear:
		return string(models.BodyZoneUpper)
	case models.CategoryBottom:
		return string(models.BodyZoneLower)
	case models.CategoryDress:
		return string(models.BodyZoneFullBody)
	case models.CategoryShoes:
		return string(models.BodyZoneShoe)
	default:
		return string(models.BodyZoneAccessory)
	}
}
