// Package market defines the canonical market record produced by
// normalization (stage A) and consumed by every later funnel stage.
package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Venue identifies one of the two independent catalogs being compared.
// The pipeline is venue-agnostic: callers supply whatever identifiers
// their extractors use.
type Venue string

// Status is the lifecycle state of a market at the venue.
type Status string

const (
	StatusActive    Status = "active"
	StatusClosed    Status = "closed"
	StatusSuspended Status = "suspended"
)

// Category is the closed vocabulary every venue-specific category string
// is mapped onto at normalization time.
type Category string

const (
	CategoryPolitics       Category = "Politics"
	CategoryEconomics      Category = "Economics"
	CategorySports         Category = "Sports"
	CategoryCryptocurrency Category = "Cryptocurrency"
	CategoryTechnology     Category = "Technology"
	CategoryWeather        Category = "Weather"
	CategoryEntertainment  Category = "Entertainment"
	CategoryBusiness       Category = "Business"
	CategoryScience        Category = "Science"
	CategoryOther          Category = "Other"
)

// PriceFloor and PriceCeil bound every outcome price in the system.
var (
	PriceFloor = decimal.NewFromFloat(0.0001)
	PriceCeil  = decimal.NewFromFloat(0.9999)
)

// Outcome is one resolvable result of a binary (or multi-way) market.
type Outcome struct {
	Name   string
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// NormalizedMarket is the stage-A contract: every later stage depends on
// its invariants holding (see Validate).
type NormalizedMarket struct {
	Venue       Venue
	ExternalID  string
	Title       string
	Description string
	Category    Category
	Outcomes    []Outcome
	Volume      decimal.Decimal
	Liquidity   decimal.Decimal
	CloseTime   time.Time
	Status      Status

	// Derived by stage B; zero value means "not yet bucketed".
	SemanticBucket   string
	BucketConfidence float64
}

// Key returns the (venue, external_id) identity tuple as a stable string,
// used as the registry handle referenced from MarketPair (spec §9).
func (m *NormalizedMarket) Key() string {
	return string(m.Venue) + "/" + m.ExternalID
}

// YesPrice returns the Yes-equivalent price, the index-0 outcome by
// convention (spec §3).
func (m *NormalizedMarket) YesPrice() decimal.Decimal {
	if len(m.Outcomes) == 0 {
		return decimal.Zero
	}
	return m.Outcomes[0].Price
}

// Validate enforces the stage-A exit invariants that every later stage
// assumes without re-checking.
func (m *NormalizedMarket) Validate(now time.Time) error {
	if m.Venue == "" || m.ExternalID == "" {
		return fmt.Errorf("market: venue and external_id are required")
	}
	if len(m.Outcomes) != 2 {
		return fmt.Errorf("market %s: binary market must have exactly two outcomes, got %d", m.Key(), len(m.Outcomes))
	}
	sum := decimal.Zero
	for i, o := range m.Outcomes {
		if o.Price.LessThan(PriceFloor) || o.Price.GreaterThan(PriceCeil) {
			return fmt.Errorf("market %s: outcome %d price %s out of range [%s,%s]", m.Key(), i, o.Price, PriceFloor, PriceCeil)
		}
		if o.Volume.IsNegative() {
			return fmt.Errorf("market %s: outcome %d volume negative", m.Key(), i)
		}
		sum = sum.Add(o.Price)
	}
	tolerance := decimal.NewFromFloat(0.02)
	diff := sum.Sub(decimal.NewFromInt(1)).Abs()
	if diff.GreaterThan(tolerance) {
		return fmt.Errorf("market %s: outcome prices sum to %s, want ~1 (tolerance %s)", m.Key(), sum, tolerance)
	}
	if m.Volume.IsNegative() || m.Liquidity.IsNegative() {
		return fmt.Errorf("market %s: volume/liquidity must be non-negative", m.Key())
	}
	if m.Status == StatusActive && !m.CloseTime.After(now) {
		return fmt.Errorf("market %s: active market close_time %s is not strictly future relative to %s", m.Key(), m.CloseTime, now)
	}
	return nil
}

// RawMarket is the extractor collaborator's output contract (spec §6).
// The pipeline never interprets RawPayload except through a Normalizer.
type RawMarket struct {
	Venue      Venue
	ExternalID string
	RawPayload map[string]interface{}
	FetchedAt  time.Time
}
