package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"freshfitapi/models"

	"github.com/stretchr/testify/assert"
)

type stubHistory struct {
	history *PreferenceHistory
	err     error
	calls   int
}

func (s *stubHistory) FetchHistory(ctx context.Context, userID string, q HistoryQuery) (*PreferenceHistory, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.history, nil
}

func rankCandidate(id string, rank int, contextFit float64, itemIDs ...uint) OutfitCandidate {
	items := make([]models.WardrobeItem, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		items = append(items, models.WardrobeItem{ItemID: itemID, Category: models.CategoryTop})
	}
	return OutfitCandidate{
		OutfitID: id,
		Rank:     rank,
		Name:     "look " + id,
		Items:    items,
		Score:    CandidateScore{ContextFit: contextFit},
	}
}

func rankRequest() *Request {
	req := dailyRequest("123")
	return req
}

func traceContains(trace []string, fragment string) bool {
	for _, line := range trace {
		if strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}

func TestRankDropsBannedComboWhileSlateCanAfford(t *testing.T) {
	history := &stubHistory{history: &PreferenceHistory{
		Disliked: []OutfitHistory{{
			OutfitID:     "123-09",
			Rating:       1,
			Decision:     models.DecisionRejected,
			FutureIntent: models.IntentDoNotRecommend,
			ItemIDs:      []uint{1, 4},
		}},
	}}
	ranker := NewPreferenceRanker(history, DefaultRankWeights())

	candidates := []OutfitCandidate{
		rankCandidate("123-01", 1, 0.9, 1, 4, 7),
		rankCandidate("123-02", 2, 0.8, 2, 4, 7),
		rankCandidate("123-03", 3, 0.7, 3, 5, 7),
		rankCandidate("123-04", 4, 0.6, 1, 5, 8),
	}

	ranked, trace, err := ranker.Rank(context.Background(), rankRequest(), candidates)
	assert.NoError(t, err)
	assert.Len(t, ranked, 3)
	for _, candidate := range ranked {
		assert.NotEqual(t, "123-01", candidate.OutfitID)
	}
	assert.True(t, traceContains(trace, "dropped 123-01, matches a do-not-recommend combo"))
	assert.Equal(t, 1, history.calls)
}

func TestRankKeepsBannedComboWhenSlateWouldShrinkTooFar(t *testing.T) {
	history := &stubHistory{history: &PreferenceHistory{
		Disliked: []OutfitHistory{{
			FutureIntent: models.IntentDoNotRecommend,
			ItemIDs:      []uint{1, 4},
		}},
	}}
	ranker := NewPreferenceRanker(history, DefaultRankWeights())

	candidates := []OutfitCandidate{
		rankCandidate("123-01", 1, 0.9, 1, 4, 7),
		rankCandidate("123-02", 2, 0.8, 2, 5, 7),
		rankCandidate("123-03", 3, 0.7, 3, 5, 8),
	}

	ranked, trace, err := ranker.Rank(context.Background(), rankRequest(), candidates)
	assert.NoError(t, err)
	assert.Len(t, ranked, 3)
	assert.False(t, traceContains(trace, "dropped"))
}

func TestRankDislikedWithoutBanIntentIsOnlyScoredDown(t *testing.T) {
	history := &stubHistory{history: &PreferenceHistory{
		Disliked: []OutfitHistory{{
			FutureIntent: models.IntentMaybeLater,
			ItemIDs:      []uint{1, 4},
		}},
	}}
	ranker := NewPreferenceRanker(history, DefaultRankWeights())

	candidates := []OutfitCandidate{
		rankCandidate("123-01", 1, 0.8, 1, 4, 7),
		rankCandidate("123-02", 2, 0.8, 2, 5, 8),
		rankCandidate("123-03", 3, 0.7, 3, 5, 9),
		rankCandidate("123-04", 4, 0.6, 3, 6, 9),
	}

	ranked, _, err := ranker.Rank(context.Background(), rankRequest(), candidates)
	assert.NoError(t, err)
	assert.Len(t, ranked, 4)
	assert.Equal(t, "123-02", ranked[0].OutfitID, "disliked pieces should drag the combo below a clean one")
}

func TestRankTiesKeepLowerOriginRank(t *testing.T) {
	ranker := NewPreferenceRanker(&stubHistory{history: &PreferenceHistory{}}, DefaultRankWeights())

	candidates := []OutfitCandidate{
		rankCandidate("123-01", 1, 0.7, 1, 4),
		rankCandidate("123-02", 2, 0.7, 2, 5),
		rankCandidate("123-03", 3, 0.7, 3, 5),
	}

	ranked, _, err := ranker.Rank(context.Background(), rankRequest(), candidates)
	assert.NoError(t, err)
	assert.Equal(t, "123-01", ranked[0].OutfitID)
	assert.Equal(t, "123-02", ranked[1].OutfitID)
	assert.Equal(t, "123-03", ranked[2].OutfitID)
}

func TestRankRestoresLovedComboGuardrail(t *testing.T) {
	history := &stubHistory{history: &PreferenceHistory{
		Liked: []OutfitHistory{{Rating: 5, ItemIDs: []uint{1, 4}}},
		Disliked: []OutfitHistory{
			{FutureIntent: models.IntentDoNotRecommend, ItemIDs: []uint{1, 4}},
		},
	}}
	ranker := NewPreferenceRanker(history, DefaultRankWeights())

	// the only loved-combo candidate also matches the ban, the guardrail
	// has to bring it back after filtering
	candidates := []OutfitCandidate{
		rankCandidate("123-01", 1, 0.9, 1, 4, 7),
		rankCandidate("123-02", 2, 0.8, 2, 5, 7),
		rankCandidate("123-03", 3, 0.7, 3, 5, 8),
		rankCandidate("123-04", 4, 0.6, 2, 6, 8),
	}
	req := rankRequest()
	req.LovedComboRequired = true

	ranked, trace, err := ranker.Rank(context.Background(), req, candidates)
	assert.NoError(t, err)

	restored := false
	for _, candidate := range ranked {
		if candidate.OutfitID == "123-01" {
			restored = true
			// the restored copy keeps its scores
			assert.InDelta(t, 0.5, candidate.Score.PreferenceScore, 0.001)
			assert.InDelta(t, 0.625, candidate.Score.Holistic, 0.001)
		}
	}
	assert.True(t, restored)
	assert.True(t, traceContains(trace, "restored 123-01 for the loved-combo guardrail"))
}

func TestRankRestoresExplorationGuardrail(t *testing.T) {
	ranker := NewPreferenceRanker(&stubHistory{history: &PreferenceHistory{
		Disliked: []OutfitHistory{{FutureIntent: models.IntentDoNotRecommend, ItemIDs: []uint{9, 10}}},
	}}, DefaultRankWeights())

	exploration := rankCandidate("123-04", 4, 0.5, 9, 10, 11)
	exploration.IsExploration = true
	candidates := []OutfitCandidate{
		rankCandidate("123-01", 1, 0.9, 1, 4),
		rankCandidate("123-02", 2, 0.8, 2, 5),
		rankCandidate("123-03", 3, 0.7, 3, 5),
		exploration,
	}
	req := rankRequest()
	req.ExplorationRequired = true

	ranked, trace, err := ranker.Rank(context.Background(), req, candidates)
	assert.NoError(t, err)

	present := false
	for _, candidate := range ranked {
		if candidate.IsExploration {
			present = true
			assert.InDelta(t, 0.5+0.5*(-2.0/3.0), candidate.Score.PreferenceScore, 0.001)
			assert.Greater(t, candidate.Score.Holistic, 0.0)
		}
	}
	assert.True(t, present)
	assert.True(t, traceContains(trace, "restored 123-04 for the exploration guardrail"))
}

func TestRankDegradesWhenHistoryUnavailable(t *testing.T) {
	history := &stubHistory{err: errors.New("connection refused")}
	ranker := NewPreferenceRanker(history, DefaultRankWeights())

	candidates := []OutfitCandidate{
		rankCandidate("123-01", 1, 0.9, 1, 4),
		rankCandidate("123-02", 2, 0.8, 2, 5),
		rankCandidate("123-03", 3, 0.7, 3, 5),
	}

	ranked, trace, err := ranker.Rank(context.Background(), rankRequest(), candidates)
	assert.NoError(t, err)
	assert.Len(t, ranked, 3)
	assert.True(t, traceContains(trace, "history unavailable"))
	assert.True(t, traceContains(trace, "ranking on context only"))
}

func TestRankProducesDecisionTrace(t *testing.T) {
	ranker := NewPreferenceRanker(&stubHistory{history: &PreferenceHistory{}}, DefaultRankWeights())

	candidates := []OutfitCandidate{
		rankCandidate("123-01", 1, 0.9, 1, 4),
		rankCandidate("123-02", 2, 0.8, 2, 5),
	}

	_, trace, err := ranker.Rank(context.Background(), rankRequest(), candidates)
	assert.NoError(t, err)
	assert.True(t, traceContains(trace, "ranker: final order 123-01"))
}
