package pipeline

import (
	"strconv"
	"strings"

	"github.com/lib/pq"

	"freshfitapi/models"
)

// FeedbackSubmission is the raw, surface-typed feedback for one session
// turn. Ratings and intents arrive as free strings and get normalized.
type FeedbackSubmission struct {
	UserID           string
	SessionTurn      int
	SelectedOutfitID string
	Events           []models.FeedbackEventIn
}

// NormalizedFeedback is ready for transactional persistence, one outfit
// record per referenced outfit with its item records nested.
type NormalizedFeedback struct {
	Outfits  []models.OutfitFeedback
	Warnings []string
}

type FeedbackNormalizer struct{}

func NewFeedbackNormalizer() *FeedbackNormalizer {
	return &FeedbackNormalizer{}
}

func normalizeRating(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 || value > 5 {
		return nil
	}
	return &value
}

func normalizeIntent(raw string) models.FutureIntent {
	switch models.FutureIntent(strings.TrimSpace(strings.ToLower(raw))) {
	case models.IntentTryAgain:
		return models.IntentTryAgain
	case models.IntentDoNotRecommend:
		return models.IntentDoNotRecommend
	default:
		return models.IntentMaybeLater
	}
}

func normalizeDecision(raw string) models.Decision {
	switch models.Decision(strings.TrimSpace(strings.ToLower(raw))) {
	case models.DecisionAccepted:
		return models.DecisionAccepted
	case models.DecisionRejected:
		return models.DecisionRejected
	default:
		return models.DecisionSkipped
	}
}

// Normalize resolves raw events against the presented slate. Unknown
// outfit ids become warnings and produce nothing. The selection always
// yields a record, synthesized as accepted when the user never rated it.
func (n *FeedbackNormalizer) Normalize(slate *Slate, sub *FeedbackSubmission) *NormalizedFeedback {
	out := &NormalizedFeedback{}

	// last event per outfit wins
	byOutfit := map[string]models.FeedbackEventIn{}
	order := []string{}
	for _, event := range sub.Events {
		if _, seen := byOutfit[event.OutfitID]; !seen {
			order = append(order, event.OutfitID)
		}
		byOutfit[event.OutfitID] = event
	}

	if sub.SelectedOutfitID != "" {
		if slate.Find(sub.SelectedOutfitID) == nil {
			out.Warnings = append(out.Warnings, (&UnknownReferenceError{OutfitID: sub.SelectedOutfitID}).Error())
		} else if _, rated := byOutfit[sub.SelectedOutfitID]; !rated {
			byOutfit[sub.SelectedOutfitID] = models.FeedbackEventIn{
				OutfitID:     sub.SelectedOutfitID,
				Decision:     string(models.DecisionAccepted),
				FutureIntent: string(models.IntentTryAgain),
				Notes:        "selected without explicit rating",
			}
			order = append(order, sub.SelectedOutfitID)
		}
	}

	for _, outfitID := range order {
		event := byOutfit[outfitID]
		candidate := slate.Find(outfitID)
		if candidate == nil {
			out.Warnings = append(out.Warnings, (&UnknownReferenceError{OutfitID: outfitID}).Error())
			continue
		}
		record := models.OutfitFeedback{
			UserID:            sub.UserID,
			OutfitID:          outfitID,
			SessionTurn:       sub.SessionTurn,
			OutfitName:        candidate.Name,
			OutfitDescription: candidate.Description,
			Decision:          normalizeDecision(event.Decision),
			WasSelected:       outfitID == sub.SelectedOutfitID,
			Rating:            normalizeRating(event.Rating),
			FutureIntent:      normalizeIntent(event.FutureIntent),
			Notes:             event.Notes,
			Tags:              pq.StringArray(event.Tags),
		}
		for _, item := range candidate.Items {
			record.Items = append(record.Items, models.ItemFeedback{
				UserID:        sub.UserID,
				OutfitID:      outfitID,
				ItemID:        item.ItemID,
				ItemShortName: item.Name,
				Decision:      record.Decision,
				Rating:        record.Rating,
				FutureIntent:  record.FutureIntent,
				Notes:         record.Notes,
			})
		}
		out.Outfits = append(out.Outfits, record)
	}
	return out
}
