// Package bucket implements the semantic bucketer (spec §4.B): it tags
// every normalized market with at most one bucket and emits cross-venue
// bucket pairs ordered by comparison volume, so the orchestrator can
// process the highest-impact buckets first.
package bucket

import (
	"sort"
	"strings"
	"time"

	"github.com/crossvenue/marketfinder/internal/domain/market"
)

// MiscellaneousBucket is the sentinel assigned to markets that fail
// every bucket's raw-score threshold; it is never emitted for
// cross-venue comparison.
const MiscellaneousBucket = "miscellaneous"

// Definition is one static bucket rule, externally loadable via config
// (spec §4.B, §6).
type Definition struct {
	Name               string
	RequiredKeywords   []string
	OptionalKeywords   []string
	ExcludedKeywords   []string
	Categories         []market.Category
	Priority           int // 1 is highest
	MinEventDate       *time.Time
	PriceRangeMin      *float64
	PriceRangeMax      *float64
}

// Pair is one (bucket, venue-A markets, venue-B markets) unit of work
// for the hierarchical filter (component C).
type Pair struct {
	BucketName    string
	VenueAMarkets []*market.NormalizedMarket
	VenueBMarkets []*market.NormalizedMarket
	PairsPossible int
}

// Bucketer assigns markets to buckets and produces the cross-venue
// pair stream.
type Bucketer struct {
	definitions []Definition
}

// NewBucketer builds a Bucketer from the (externally loaded) bucket
// table. Definitions are evaluated in the order given; ties in
// priority-adjusted score are broken by definition order.
func NewBucketer(definitions []Definition) *Bucketer {
	return &Bucketer{definitions: definitions}
}

// scoreResult is the internal per-bucket scoring outcome for one market.
type scoreResult struct {
	rawScore     float64
	adjustedScore float64
}

// score implements the point scheme of spec §4.B:
//   - keyword coverage: up to 50 points, proportional to optional-keyword matches
//   - category match: 30 (exact) or 15 (substring)
//   - minimum event date satisfied: 20 points
//   - any missing required keyword or any excluded keyword present: hard 0
//   - priority-adjusted score = raw + (5 - priority) * 5
func score(m *market.NormalizedMarket, def Definition) scoreResult {
	title := strings.ToLower(m.Title)
	desc := strings.ToLower(m.Description)
	combined := title + " " + desc

	for _, req := range def.RequiredKeywords {
		if !strings.Contains(combined, strings.ToLower(req)) {
			return scoreResult{}
		}
	}
	for _, excl := range def.ExcludedKeywords {
		if strings.Contains(combined, strings.ToLower(excl)) {
			return scoreResult{}
		}
	}

	raw := 0.0
	if len(def.OptionalKeywords) > 0 {
		matches := 0
		for _, kw := range def.OptionalKeywords {
			if strings.Contains(combined, strings.ToLower(kw)) {
				matches++
			}
		}
		raw += 50.0 * float64(matches) / float64(len(def.OptionalKeywords))
	}

	for _, cat := range def.Categories {
		if m.Category == cat {
			raw += 30
			break
		}
		if strings.Contains(strings.ToLower(string(m.Category)), strings.ToLower(string(cat))) {
			raw += 15
			break
		}
	}

	if def.MinEventDate != nil && !m.CloseTime.Before(*def.MinEventDate) {
		raw += 20
	}

	if raw > 100 {
		raw = 100
	}

	adjusted := raw + float64(5-def.Priority)*5
	return scoreResult{rawScore: raw, adjustedScore: adjusted}
}

// BucketMarket assigns one market to its best-fitting bucket, writing
// SemanticBucket and BucketConfidence on it (spec §4.B). bucket()
// depends only on market content and the static table — independent of
// batch ordering or concurrency (testable property 9).
func (b *Bucketer) BucketMarket(m *market.NormalizedMarket) {
	bestBucket := MiscellaneousBucket
	bestAdjusted := -1.0
	bestRaw := 0.0

	for _, def := range b.definitions {
		s := score(m, def)
		if s.rawScore >= 40 && s.adjustedScore > bestAdjusted {
			bestAdjusted = s.adjustedScore
			bestRaw = s.rawScore
			bestBucket = def.Name
		}
	}

	m.SemanticBucket = bestBucket
	if bestBucket == MiscellaneousBucket {
		m.BucketConfidence = 0
	} else {
		m.BucketConfidence = bestRaw / 100.0
	}
}

// BucketMarkets buckets every market and returns the cross-venue bucket
// pairs, ordered by PairsPossible descending (spec §4.B emission order).
func (b *Bucketer) BucketMarkets(venueA, venueB []*market.NormalizedMarket) []Pair {
	for _, m := range venueA {
		b.BucketMarket(m)
	}
	for _, m := range venueB {
		b.BucketMarket(m)
	}

	aByBucket := map[string][]*market.NormalizedMarket{}
	bByBucket := map[string][]*market.NormalizedMarket{}
	for _, m := range venueA {
		if m.SemanticBucket == MiscellaneousBucket {
			continue
		}
		aByBucket[m.SemanticBucket] = append(aByBucket[m.SemanticBucket], m)
	}
	for _, m := range venueB {
		if m.SemanticBucket == MiscellaneousBucket {
			continue
		}
		bByBucket[m.SemanticBucket] = append(bByBucket[m.SemanticBucket], m)
	}

	var pairs []Pair
	for name, aMarkets := range aByBucket {
		bMarkets, ok := bByBucket[name]
		if !ok || len(bMarkets) == 0 {
			continue
		}
		pairs = append(pairs, Pair{
			BucketName:    name,
			VenueAMarkets: aMarkets,
			VenueBMarkets: bMarkets,
			PairsPossible: len(aMarkets) * len(bMarkets),
		})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].PairsPossible > pairs[j].PairsPossible
	})
	return pairs
}
