package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"freshfitapi/models"
)

// outer layer is attached below this average temperature or at/above
// this precipitation chance
const (
	outerLayerTempC  = 18.0
	outerLayerPrecip = 0.4

	freshnessWindowDays = 2
	neverWornDays       = 9999
)

var titleCaser = cases.Title(language.English)

// CandidateGenerator builds outfit candidates deterministically from the
// wardrobe snapshot. No reasoning collaborator is involved here, the same
// inputs always produce the same slate.
type CandidateGenerator struct{}

func NewCandidateGenerator() *CandidateGenerator {
	return &CandidateGenerator{}
}

type itemPool struct {
	tops        []models.WardrobeItem
	bottoms     []models.WardrobeItem
	dresses     []models.WardrobeItem
	outerwear   []models.WardrobeItem
	shoes       []models.WardrobeItem
	accessories []models.WardrobeItem
}

func buildPool(items []models.WardrobeItem, banned []uint) *itemPool {
	bannedSet := map[uint]bool{}
	for _, id := range banned {
		bannedSet[id] = true
	}
	pool := &itemPool{}
	sorted := make([]models.WardrobeItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })
	for _, item := range sorted {
		if bannedSet[item.ItemID] {
			continue
		}
		switch item.Category {
		case models.CategoryTop:
			pool.tops = append(pool.tops, item)
		case models.CategoryBottom:
			pool.bottoms = append(pool.bottoms, item)
		case models.CategoryDress:
			pool.dresses = append(pool.dresses, item)
		case models.CategoryOuterwear:
			pool.outerwear = append(pool.outerwear, item)
		case models.CategoryShoes:
			pool.shoes = append(pool.shoes, item)
		case models.CategoryAccessory:
			pool.accessories = append(pool.accessories, item)
		}
	}
	return pool
}

func daysSinceWorn(item models.WardrobeItem, date time.Time) int {
	if item.LastWornDate == nil {
		return neverWornDays
	}
	return int(date.Sub(*item.LastWornDate).Hours() / 24)
}

func warmthValue(w models.WarmthLevel) int {
	switch w {
	case models.WarmthLight:
		return 0
	case models.WarmthMedium:
		return 1
	default:
		return 2
	}
}

func targetWarmth(bucket models.TempBucket) int {
	switch bucket {
	case models.TempCold:
		return 2
	case models.TempCool:
		return 1
	default:
		return 0
	}
}

func targetFormality(occasion string) models.Formality {
	lower := strings.ToLower(occasion)
	switch {
	case strings.Contains(lower, "formal") || strings.Contains(lower, "wedding") || strings.Contains(lower, "gala"):
		return models.FormalityFormal
	case strings.Contains(lower, "work") || strings.Contains(lower, "office") || strings.Contains(lower, "business") || strings.Contains(lower, "interview"):
		return models.FormalityBusiness
	case strings.Contains(lower, "date") || strings.Contains(lower, "dinner") || strings.Contains(lower, "brunch"):
		return models.FormalitySmartCasual
	default:
		return models.FormalityCasual
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// needsOuterLayer is the outerwear rule shared by daily and travel modes.
func needsOuterLayer(weather *WeatherContext) bool {
	return weather.AvgTempC < outerLayerTempC || weather.PrecipitationChance >= outerLayerPrecip
}

type baseCombo struct {
	items []models.WardrobeItem
}

func (b baseCombo) signature() string {
	ids := make([]string, 0, len(b.items))
	for _, item := range b.items {
		ids = append(ids, fmt.Sprint(item.ItemID))
	}
	sort.Strings(ids)
	return strings.Join(ids, "+")
}

// baseCombos enumerates top+bottom pairs and single dresses, ordered by
// fit so the strongest bases lead. Order is total: score, then item ids.
func (g *CandidateGenerator) baseCombos(pool *itemPool, weather *WeatherContext, occasion string, date time.Time) []baseCombo {
	wantWarmth := targetWarmth(weather.Bucket)
	wantFormality := targetFormality(occasion)

	type scored struct {
		combo baseCombo
		score float64
	}
	score := func(items []models.WardrobeItem) float64 {
		fit := 1.0
		for _, item := range items {
			fit -= 0.08 * float64(abs(warmthValue(item.WarmthLevel)-wantWarmth))
			if item.Formality != wantFormality {
				fit -= 0.05
			}
			if daysSinceWorn(item, date) < freshnessWindowDays {
				fit -= 0.1
			}
		}
		return fit
	}

	var combos []scored
	for _, top := range pool.tops {
		for _, bottom := range pool.bottoms {
			items := []models.WardrobeItem{top, bottom}
			combos = append(combos, scored{baseCombo{items: items}, score(items)})
		}
	}
	for _, dress := range pool.dresses {
		items := []models.WardrobeItem{dress}
		combos = append(combos, scored{baseCombo{items: items}, score(items)})
	}
	sort.SliceStable(combos, func(i, j int) bool {
		if combos[i].score != combos[j].score {
			return combos[i].score > combos[j].score
		}
		return combos[i].combo.signature() < combos[j].combo.signature()
	})
	out := make([]baseCombo, 0, len(combos))
	for _, s := range combos {
		out = append(out, s.combo)
	}
	return out
}

// assemble completes a base with outerwear when required, exactly one pair
// of shoes and an accessory when any is available. The index rotates the
// attachment picks so consecutive candidates differ.
func (g *CandidateGenerator) assemble(base baseCombo, pool *itemPool, weather *WeatherContext, index int, trace *[]string) []models.WardrobeItem {
	items := make([]models.WardrobeItem, len(base.items))
	copy(items, base.items)
	if needsOuterLayer(weather) {
		if len(pool.outerwear) > 0 {
			items = append(items, pool.outerwear[index%len(pool.outerwear)])
		} else {
			*trace = append(*trace, "generator: outer layer required but no outerwear available")
		}
	}
	if len(pool.shoes) > 0 {
		items = append(items, pool.shoes[index%len(pool.shoes)])
	}
	if len(pool.accessories) > 0 {
		items = append(items, pool.accessories[index%len(pool.accessories)])
	}
	return items
}

func outfitName(items []models.WardrobeItem) string {
	lead := items[0]
	name := lead.Color + " " + lead.Name
	if len(items) > 1 && (items[1].Category == models.CategoryBottom) {
		name += " & " + items[1].Name
	}
	return titleCaser.String(name + " look")
}

func outfitDescription(items []models.WardrobeItem, weather *WeatherContext) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Color+" "+item.Name)
	}
	return fmt.Sprintf("%s for %s weather in %s", strings.Join(names, ", "), weather.Bucket, weather.Location)
}

func (g *CandidateGenerator) scoreItems(items []models.WardrobeItem, weather *WeatherContext, occasion string, date time.Time) CandidateScore {
	wantWarmth := targetWarmth(weather.Bucket)
	wantFormality := targetFormality(occasion)
	fit := 1.0
	recent := 0
	for _, item := range items {
		if item.Category != models.CategoryAccessory {
			fit -= 0.08 * float64(abs(warmthValue(item.WarmthLevel)-wantWarmth))
			if item.Formality != wantFormality {
				fit -= 0.05
			}
		}
		if daysSinceWorn(item, date) < freshnessWindowDays {
			recent++
		}
	}
	hasOuter := false
	for _, item := range items {
		if item.Category == models.CategoryOuterwear {
			hasOuter = true
		}
	}
	if needsOuterLayer(weather) && !hasOuter {
		fit -= 0.3
	}
	if fit < 0 {
		fit = 0
	}
	if fit > 1 {
		fit = 1
	}
	return CandidateScore{
		ContextFit:     fit,
		RecencyPenalty: float64(recent) / float64(len(items)),
	}
}

func outfitID(userID string, rank int) string {
	if userID == "" {
		userID = "anon"
	}
	return fmt.Sprintf("%s-%02d", userID, rank)
}

func stalenessOf(items []models.WardrobeItem, date time.Time) int {
	total := 0
	for _, item := range items {
		total += daysSinceWorn(item, date)
	}
	return total
}

// Generate builds the candidate slate. Daily mode returns 5 to 10
// candidates, travel mode one per itinerary day minimizing distinct
// items. Fewer than three distinct buildable candidates (capped by trip
// length for short trips) fails with InsufficientSlateError.
func (g *CandidateGenerator) Generate(req *Request, weather *WeatherContext, snapshot *WardrobeSnapshot) ([]OutfitCandidate, []string, error) {
	pool := buildPool(snapshot.Items, req.BannedItems)
	trace := []string{}
	bases := g.baseCombos(pool, weather, req.Occasion, req.Date)

	if req.Mode == ModeTravel {
		return g.generateTravel(req, weather, pool, bases, trace)
	}
	return g.generateDaily(req, weather, pool, bases, trace)
}

func (g *CandidateGenerator) generateDaily(req *Request, weather *WeatherContext, pool *itemPool, bases []baseCombo, trace []string) ([]OutfitCandidate, []string, error) {
	seen := map[string]bool{}
	var built [][]models.WardrobeItem
	for i, base := range bases {
		if len(built) == MaxDailySlate {
			break
		}
		items := g.assemble(base, pool, weather, i, &trace)
		sig := baseCombo{items: items}.signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		built = append(built, items)
	}

	distinct := len(built)
	if distinct < MinDistinctCandidates {
		return nil, trace, &InsufficientSlateError{Distinct: distinct, Required: MinDistinctCandidates}
	}
	notes := make([]string, distinct)
	for len(built) < MinDailySlate {
		repeat := built[len(built)%distinct]
		built = append(built, repeat)
		notes = append(notes, " Repeats an earlier look, distinct options are limited today.")
		trace = append(trace, "generator: repeated a look to fill the slate, distinct options are limited")
	}

	candidates := g.finalize(req, weather, built, notes, false)
	g.markExploration(candidates, req.Date)
	trace = append(trace, fmt.Sprintf("generator: %d candidates (%d distinct), outer layer required: %v",
		len(candidates), distinct, needsOuterLayer(weather)))
	return candidates, trace, nil
}

// generateTravel plans a capsule: one shoe and outer layer for the whole
// trip, bottoms re-worn on alternating days, tops rotated through the
// smallest set covering the trip.
func (g *CandidateGenerator) generateTravel(req *Request, weather *WeatherContext, pool *itemPool, bases []baseCombo, trace []string) ([]OutfitCandidate, []string, error) {
	days := req.TravelDays
	required := MinDistinctCandidates
	if days < required {
		required = days
	}
	if len(bases) == 0 {
		return nil, trace, &InsufficientSlateError{Distinct: 0, Required: required}
	}

	var built [][]models.WardrobeItem
	var reuseNotes []string
	seen := map[string]bool{}
	for day := 0; day < days; day++ {
		base := bases[day%len(bases)]
		items := make([]models.WardrobeItem, len(base.items))
		copy(items, base.items)
		if needsOuterLayer(weather) && len(pool.outerwear) > 0 {
			items = append(items, pool.outerwear[0])
		}
		if len(pool.shoes) > 0 {
			items = append(items, pool.shoes[0])
		}
		if len(pool.accessories) > 0 {
			items = append(items, pool.accessories[day%len(pool.accessories)])
		}
		note := ""
		if day >= len(bases) {
			note = " Re-wears earlier pieces to keep the packing list small."
		} else if day > 0 {
			note = " Shares shoes and layers with the rest of the trip."
		}
		reuseNotes = append(reuseNotes, fmt.Sprintf(" Day %d of the trip.%s", day+1, note))
		seen[baseCombo{items: items}.signature()] = true
		built = append(built, items)
	}

	if len(seen) < required {
		return nil, trace, &InsufficientSlateError{Distinct: len(seen), Required: required}
	}

	candidates := g.finalize(req, weather, built, reuseNotes, true)
	g.markExploration(candidates, req.Date)
	trace = append(trace, fmt.Sprintf("generator: travel capsule for %d days with %d distinct looks", days, len(seen)))
	return candidates, trace, nil
}

// finalize orders candidates by context fit unless itinerary order must
// hold, then assigns dense 1-indexed ranks and deterministic outfit ids.
func (g *CandidateGenerator) finalize(req *Request, weather *WeatherContext, built [][]models.WardrobeItem, notes []string, keepOrder bool) []OutfitCandidate {
	candidates := make([]OutfitCandidate, 0, len(built))
	for i, items := range built {
		score := g.scoreItems(items, weather, req.Occasion, req.Date)
		desc := outfitDescription(items, weather)
		if notes != nil && notes[i] != "" {
			desc += "." + notes[i]
		}
		candidates = append(candidates, OutfitCandidate{
			Name:        outfitName(items),
			Description: desc,
			Items:       items,
			Score:       score,
		})
	}
	if !keepOrder {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score.ContextFit > candidates[j].Score.ContextFit
		})
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
		candidates[i].OutfitID = outfitID(req.UserID, i+1)
	}
	return candidates
}

// markExploration flags the candidate whose pieces have sat unworn the
// longest, so the ranker always has a novelty option to protect.
func (g *CandidateGenerator) markExploration(candidates []OutfitCandidate, date time.Time) {
	if len(candidates) < 2 {
		return
	}
	best := 0
	bestStaleness := -1
	for i := range candidates {
		s := stalenessOf(candidates[i].Items, date)
		if s > bestStaleness {
			bestStaleness = s
			best = i
		}
	}
	candidates[best].IsExploration = true
}
