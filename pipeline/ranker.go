package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// RankWeights tune the holistic score. Higher context and preference
// lift a candidate, recency drags it down.
type RankWeights struct {
	ContextFit float64
	Preference float64
	Recency    float64
}

func DefaultRankWeights() RankWeights {
	return RankWeights{ContextFit: 0.5, Preference: 0.35, Recency: 0.15}
}

// PreferenceRanker reorders and filters a candidate slate against the
// user's feedback history. History is fetched lazily through the
// collaborator, candidates arriving with preference signals skip it.
type PreferenceRanker struct {
	History HistoryProvider
	Weights RankWeights
}

func NewPreferenceRanker(history HistoryProvider, weights RankWeights) *PreferenceRanker {
	return &PreferenceRanker{History: history, Weights: weights}
}

// two shared pieces with a remembered outfit count as the same combo
const comboOverlap = 2

func itemIDSet(c *OutfitCandidate) map[uint]bool {
	set := map[uint]bool{}
	for _, item := range c.Items {
		set[item.ItemID] = true
	}
	return set
}

func overlapsCombo(c *OutfitCandidate, past OutfitHistory) bool {
	set := itemIDSet(c)
	hits := 0
	for _, id := range past.ItemIDs {
		if set[id] {
			hits++
		}
	}
	if len(past.ItemIDs) == 1 {
		return hits == 1
	}
	return hits >= comboOverlap
}

func matchesLoved(c *OutfitCandidate, history *PreferenceHistory) bool {
	for _, past := range history.Liked {
		if overlapsCombo(c, past) {
			return true
		}
	}
	return false
}

func matchesBanned(c *OutfitCandidate, history *PreferenceHistory) bool {
	for _, past := range history.Disliked {
		if past.FutureIntent != "do_not_recommend" {
			continue
		}
		if overlapsCombo(c, past) {
			return true
		}
	}
	return false
}

func (r *PreferenceRanker) preferenceScore(c *OutfitCandidate, liked, disliked map[uint]bool) float64 {
	sum := 0
	for _, item := range c.Items {
		if liked[item.ItemID] {
			sum++
		}
		if disliked[item.ItemID] {
			sum--
		}
	}
	score := 0.5 + 0.5*float64(sum)/float64(len(c.Items))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Rank scores every candidate, drops do-not-recommend combos while the
// slate can afford it, sorts by holistic score with ties keeping the
// lower origin rank first, and enforces both guardrails. The returned
// trace is the human-readable account of each decision.
func (r *PreferenceRanker) Rank(ctx context.Context, req *Request, candidates []OutfitCandidate) ([]OutfitCandidate, []string, error) {
	trace := []string{}
	history := &PreferenceHistory{}
	if r.History != nil {
		fetched, err := r.History.FetchHistory(ctx, req.UserID, DefaultHistoryQuery())
		if err != nil {
			trace = append(trace, fmt.Sprintf("ranker: history unavailable (%v), ranking on context only", err))
		} else {
			history = fetched
			trace = append(trace, fmt.Sprintf("ranker: history loaded, %d liked and %d disliked outfits", len(history.Liked), len(history.Disliked)))
		}
	}

	liked := map[uint]bool{}
	for _, past := range history.Liked {
		for _, id := range past.ItemIDs {
			liked[id] = true
		}
	}
	disliked := map[uint]bool{}
	for _, past := range history.Disliked {
		for _, id := range past.ItemIDs {
			disliked[id] = true
		}
	}

	ranked := make([]OutfitCandidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		ranked[i].Score.PreferenceScore = r.preferenceScore(&ranked[i], liked, disliked)
		ranked[i].Score.Holistic = r.Weights.ContextFit*ranked[i].Score.ContextFit +
			r.Weights.Preference*ranked[i].Score.PreferenceScore -
			r.Weights.Recency*ranked[i].Score.RecencyPenalty
	}

	// drop banned combos while at least three candidates survive
	kept := make([]OutfitCandidate, 0, len(ranked))
	dropped := 0
	for i := range ranked {
		if matchesBanned(&ranked[i], history) && len(ranked)-(dropped+1) >= MinDistinctCandidates {
			dropped++
			trace = append(trace, fmt.Sprintf("ranker: dropped %s, matches a do-not-recommend combo", ranked[i].OutfitID))
			continue
		}
		kept = append(kept, ranked[i])
	}

	sortByHolistic(kept)

	kept = r.applyGuardrails(req, kept, ranked, history, &trace)

	order := make([]string, 0, len(kept))
	for i := range kept {
		order = append(order, fmt.Sprintf("%s (%.2f)", kept[i].OutfitID, kept[i].Score.Holistic))
	}
	trace = append(trace, "ranker: final order "+strings.Join(order, " > "))
	return kept, trace, nil
}

// insertion sort keeps equal scores in input order, which is origin
// rank order, so ties resolve to the lower origin rank without an
// explicit comparator on Rank.
func sortByHolistic(candidates []OutfitCandidate) {
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].Score.Holistic > candidates[j-1].Score.Holistic; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
}

// applyGuardrails restores a loved-combo candidate and an exploration
// candidate when the request demands them and filtering lost them.
func (r *PreferenceRanker) applyGuardrails(req *Request, kept, all []OutfitCandidate, history *PreferenceHistory, trace *[]string) []OutfitCandidate {
	if req.LovedComboRequired {
		present := false
		for i := range kept {
			if matchesLoved(&kept[i], history) {
				present = true
				*trace = append(*trace, fmt.Sprintf("ranker: %s satisfies the loved-combo guardrail", kept[i].OutfitID))
				break
			}
		}
		if !present {
			for i := range all {
				if matchesLoved(&all[i], history) {
					kept = append(kept, all[i])
					*trace = append(*trace, fmt.Sprintf("ranker: restored %s for the loved-combo guardrail", all[i].OutfitID))
					break
				}
			}
		}
	}
	if req.ExplorationRequired {
		present := false
		for i := range kept {
			if kept[i].IsExploration {
				present = true
				*trace = append(*trace, fmt.Sprintf("ranker: %s satisfies the exploration guardrail", kept[i].OutfitID))
				break
			}
		}
		if !present {
			for i := range all {
				if all[i].IsExploration {
					kept = append(kept, all[i])
					*trace = append(*trace, fmt.Sprintf("ranker: restored %s for the exploration guardrail", all[i].OutfitID))
					break
				}
			}
		}
	}
	return kept
}
