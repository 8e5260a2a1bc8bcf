package market

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Convention distinguishes the two venue quoting conventions the spec
// names without identifying either venue (spec §4.A.5).
type Convention string

const (
	// ConventionA venues quote a single Yes price; the No outcome is
	// synthesized as 1-price when not explicitly present.
	ConventionA Convention = "convention_a"
	// ConventionB venues enumerate an outcomes list directly, defaulting
	// to a binary Yes/No pair when the list is absent.
	ConventionB Convention = "convention_b"
)

// NormalizerConfig is the per-venue configuration the normalizer needs:
// quoting convention, category vocabulary mapping, and text-cleaning
// options. One entry per known venue.
type NormalizerConfig struct {
	Conventions      map[Venue]Convention
	CategoryMappings map[Venue]map[string]Category
	StripNonASCII    bool
	MaxTitleLen      int
	MaxDescLen       int
	// DateFormats is tried in order; the first format that parses wins.
	DateFormats []string
}

// DefaultNormalizerConfig mirrors the teacher's provider-config defaults:
// generous date-format coverage, conservative text caps.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		Conventions:      map[Venue]Convention{},
		CategoryMappings: map[Venue]map[string]Category{},
		StripNonASCII:    false,
		MaxTitleLen:      300,
		MaxDescLen:       2000,
		DateFormats: []string{
			time.RFC3339,
			"2006-01-02T15:04:05Z",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
			"01/02/2006",
		},
	}
}

// RejectionReason enumerates why normalize() refused a raw record. These
// are counted, never fatal (spec §4.A failure mode, §7).
type RejectionReason string

const (
	RejectMissingID       RejectionReason = "missing_external_id"
	RejectBadDate         RejectionReason = "unparseable_or_out_of_range_date"
	RejectBadOutcomes     RejectionReason = "invalid_outcome_shape"
	RejectInvariant       RejectionReason = "invariant_violation"
	RejectUnknownPayload  RejectionReason = "malformed_payload"
)

// RejectionError is returned by Normalize for a record that cannot be
// turned into a NormalizedMarket; it is never treated as fatal by the
// caller.
type RejectionError struct {
	Venue      Venue
	ExternalID string
	Reason     RejectionReason
	Detail     string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("normalize %s/%s: %s: %s", e.Venue, e.ExternalID, e.Reason, e.Detail)
}

var stopNonPrintable = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
var whitespaceRun = regexp.MustCompile(`\s+`)

func cleanText(s string, maxLen int, stripNonASCII bool) string {
	s = stopNonPrintable.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	if stripNonASCII {
		var b strings.Builder
		for _, r := range s {
			if r <= unicode.MaxASCII {
				b.WriteRune(r)
			}
		}
		s = b.String()
	}
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

// Normalizer implements component A: normalize(raw) -> NormalizedMarket | rejection.
type Normalizer struct {
	cfg NormalizerConfig
	// keywordCategories is the fallback keyword -> category table used
	// when a venue's category string doesn't map through CategoryMappings.
	keywordCategories []keywordCategoryRule
}

type keywordCategoryRule struct {
	keyword  string
	category Category
}

// NewNormalizer builds a Normalizer with a title-keyword fallback table
// for category inference (spec §4.A.3).
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	return &Normalizer{
		cfg: cfg,
		keywordCategories: []keywordCategoryRule{
			{"election", CategoryPolitics}, {"president", CategoryPolitics}, {"senate", CategoryPolitics},
			{"congress", CategoryPolitics}, {"vote", CategoryPolitics},
			{"fed", CategoryEconomics}, {"inflation", CategoryEconomics}, {"gdp", CategoryEconomics},
			{"recession", CategoryEconomics}, {"interest rate", CategoryEconomics},
			{"nfl", CategorySports}, {"nba", CategorySports}, {"super bowl", CategorySports},
			{"world cup", CategorySports}, {"championship", CategorySports},
			{"bitcoin", CategoryCryptocurrency}, {"btc", CategoryCryptocurrency}, {"ethereum", CategoryCryptocurrency},
			{"crypto", CategoryCryptocurrency}, {"token", CategoryCryptocurrency},
			{"ai", CategoryTechnology}, {"chatgpt", CategoryTechnology}, {"spacex", CategoryTechnology},
			{"hurricane", CategoryWeather}, {"temperature", CategoryWeather}, {"storm", CategoryWeather},
			{"oscar", CategoryEntertainment}, {"movie", CategoryEntertainment}, {"grammy", CategoryEntertainment},
			{"ipo", CategoryBusiness}, {"stock", CategoryBusiness}, {"earnings", CategoryBusiness},
			{"nasa", CategoryScience}, {"rocket", CategoryScience}, {"vaccine", CategoryScience},
		},
	}
}

// Normalize converts one raw record into a NormalizedMarket, or returns a
// RejectionError describing why the record was dropped.
func (n *Normalizer) Normalize(raw RawMarket, now time.Time) (*NormalizedMarket, *RejectionError) {
	if raw.ExternalID == "" {
		return nil, &RejectionError{raw.Venue, raw.ExternalID, RejectMissingID, "external_id absent"}
	}

	title := cleanText(stringField(raw.RawPayload, "title"), n.cfg.MaxTitleLen, n.cfg.StripNonASCII)
	desc := cleanText(stringField(raw.RawPayload, "description"), n.cfg.MaxDescLen, n.cfg.StripNonASCII)

	category := n.resolveCategory(raw.Venue, stringField(raw.RawPayload, "category"), title)

	closeTime, err := n.parseCloseTime(raw.RawPayload, now)
	if err != nil {
		return nil, &RejectionError{raw.Venue, raw.ExternalID, RejectBadDate, err.Error()}
	}

	outcomes, err := n.extractOutcomes(raw.Venue, raw.RawPayload)
	if err != nil {
		return nil, &RejectionError{raw.Venue, raw.ExternalID, RejectBadOutcomes, err.Error()}
	}

	volume := clampNonNegative(decimalField(raw.RawPayload, "volume"))
	liquidity := deriveLiquidity(outcomes, volume)

	status := parseStatus(stringField(raw.RawPayload, "status"))

	m := &NormalizedMarket{
		Venue:       raw.Venue,
		ExternalID:  raw.ExternalID,
		Title:       title,
		Description: desc,
		Category:    category,
		Outcomes:    outcomes,
		Volume:      volume,
		Liquidity:   liquidity,
		CloseTime:   closeTime,
		Status:      status,
	}

	if err := m.Validate(now); err != nil {
		return nil, &RejectionError{raw.Venue, raw.ExternalID, RejectInvariant, err.Error()}
	}
	return m, nil
}

func (n *Normalizer) resolveCategory(venue Venue, raw, title string) Category {
	if table, ok := n.cfg.CategoryMappings[venue]; ok {
		if cat, ok := table[strings.ToLower(raw)]; ok {
			return cat
		}
	}
	lowerTitle := strings.ToLower(title)
	for _, rule := range n.keywordCategories {
		if strings.Contains(lowerTitle, rule.keyword) {
			return rule.category
		}
	}
	return CategoryOther
}

func (n *Normalizer) parseCloseTime(payload map[string]interface{}, now time.Time) (time.Time, error) {
	raw := stringField(payload, "close_time")
	if raw == "" {
		return time.Time{}, fmt.Errorf("close_time missing")
	}
	var t time.Time
	var err error
	for _, layout := range n.cfg.DateFormats {
		t, err = time.Parse(layout, raw)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("close_time %q unparseable: %w", raw, err)
	}
	t = t.UTC()
	lowerBound := now.AddDate(-1, 0, 0)
	upperBound := now.AddDate(3, 0, 0)
	if t.Before(lowerBound) || t.After(upperBound) {
		return time.Time{}, fmt.Errorf("close_time %s outside [%s, %s]", t, lowerBound, upperBound)
	}
	return t, nil
}

func (n *Normalizer) extractOutcomes(venue Venue, payload map[string]interface{}) ([]Outcome, error) {
	convention := n.cfg.Conventions[venue]
	switch convention {
	case ConventionA:
		return n.extractConventionA(payload)
	default:
		return n.extractConventionB(payload)
	}
}

func (n *Normalizer) extractConventionA(payload map[string]interface{}) ([]Outcome, error) {
	yesPrice := clampPrice(decimalField(payload, "yes_price"))
	yesVolume := clampNonNegative(decimalField(payload, "yes_volume"))

	if list, ok := payload["outcomes"].([]interface{}); ok && len(list) >= 2 {
		return outcomesFromList(list)
	}

	noPrice := clampPrice(decimal.NewFromInt(1).Sub(yesPrice))
	noVolume := clampNonNegative(decimalField(payload, "no_volume"))
	return []Outcome{
		{Name: "Yes", Price: yesPrice, Volume: yesVolume},
		{Name: "No", Price: noPrice, Volume: noVolume},
	}, nil
}

func (n *Normalizer) extractConventionB(payload map[string]interface{}) ([]Outcome, error) {
	if list, ok := payload["outcomes"].([]interface{}); ok && len(list) >= 2 {
		return outcomesFromList(list)
	}
	yesPrice := clampPrice(decimalField(payload, "yes_price"))
	yesVolume := clampNonNegative(decimalField(payload, "yes_volume"))
	noPrice := clampPrice(decimal.NewFromInt(1).Sub(yesPrice))
	noVolume := clampNonNegative(decimalField(payload, "no_volume"))
	return []Outcome{
		{Name: "Yes", Price: yesPrice, Volume: yesVolume},
		{Name: "No", Price: noPrice, Volume: noVolume},
	}, nil
}

func outcomesFromList(list []interface{}) ([]Outcome, error) {
	out := make([]Outcome, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("outcome entry malformed")
		}
		out = append(out, Outcome{
			Name:   stringField(entry, "name"),
			Price:  clampPrice(decimalField(entry, "price")),
			Volume: clampNonNegative(decimalField(entry, "volume")),
		})
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("expected exactly two outcomes, got %d", len(out))
	}
	return out, nil
}

// deriveLiquidity implements spec §4.A.7:
// liquidity = mean(outcome_volume) * (1 - price_spread), bounded by total volume.
func deriveLiquidity(outcomes []Outcome, totalVolume decimal.Decimal) decimal.Decimal {
	if len(outcomes) == 0 {
		return decimal.Zero
	}
	sumVol := decimal.Zero
	for _, o := range outcomes {
		sumVol = sumVol.Add(o.Volume)
	}
	meanVol := sumVol.Div(decimal.NewFromInt(int64(len(outcomes))))

	spread := decimal.Zero
	if len(outcomes) >= 2 {
		spread = outcomes[0].Price.Sub(outcomes[1].Price).Abs()
	}
	liquidity := meanVol.Mul(decimal.NewFromInt(1).Sub(spread))
	if liquidity.IsNegative() {
		liquidity = decimal.Zero
	}
	if !totalVolume.IsZero() && liquidity.GreaterThan(totalVolume) {
		liquidity = totalVolume
	}
	return liquidity
}

func clampPrice(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(PriceFloor) {
		return PriceFloor
	}
	if d.GreaterThan(PriceCeil) {
		return PriceCeil
	}
	return d
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func parseStatus(raw string) Status {
	switch strings.ToLower(raw) {
	case "closed":
		return StatusClosed
	case "suspended", "paused", "halted":
		return StatusSuspended
	default:
		return StatusActive
	}
}

func stringField(payload map[string]interface{}, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func decimalField(payload map[string]interface{}, key string) decimal.Decimal {
	v, ok := payload[key]
	if !ok {
		return decimal.Zero
	}
	switch t := v.(type) {
	case decimal.Decimal:
		return t
	case float64:
		return decimal.NewFromFloat(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}
