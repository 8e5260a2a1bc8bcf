package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ConventionA_SynthesizesNoOutcome(t *testing.T) {
	cfg := DefaultNormalizerConfig()
	cfg.Conventions = map[Venue]Convention{"venue-a": ConventionA}
	n := NewNormalizer(cfg)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := RawMarket{
		Venue:      "venue-a",
		ExternalID: "m1",
		RawPayload: map[string]interface{}{
			"title":      "Will the Fed cut rates in March?",
			"category":   "economics",
			"close_time": "2026-03-01T00:00:00Z",
			"yes_price":  0.62,
			"yes_volume": 1000.0,
			"volume":     1500.0,
		},
	}

	m, rejErr := n.Normalize(raw, now)
	require.Nil(t, rejErr)
	require.NotNil(t, m)

	assert.Len(t, m.Outcomes, 2)
	assert.Equal(t, "Yes", m.Outcomes[0].Name)
	assert.Equal(t, "No", m.Outcomes[1].Name)
	sum := m.Outcomes[0].Price.Add(m.Outcomes[1].Price)
	assert.True(t, sum.Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.NewFromFloat(0.02)))
	assert.Equal(t, CategoryEconomics, m.Category)
}

func TestNormalize_RejectsMissingExternalID(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	_, rejErr := n.Normalize(RawMarket{Venue: "venue-a"}, time.Now())
	require.NotNil(t, rejErr)
	assert.Equal(t, RejectMissingID, rejErr.Reason)
}

func TestNormalize_RejectsUnparseableDate(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	raw := RawMarket{
		Venue:      "venue-a",
		ExternalID: "m2",
		RawPayload: map[string]interface{}{
			"title":      "Some market",
			"close_time": "not-a-date",
			"yes_price":  0.5,
		},
	}
	_, rejErr := n.Normalize(raw, time.Now())
	require.NotNil(t, rejErr)
	assert.Equal(t, RejectBadDate, rejErr.Reason)
}

func TestNormalize_CategoryFallsBackToKeyword(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := RawMarket{
		Venue:      "venue-b",
		ExternalID: "m3",
		RawPayload: map[string]interface{}{
			"title":      "Will Bitcoin hit $100k?",
			"close_time": "2026-06-01",
			"yes_price":  0.4,
		},
	}
	m, rejErr := n.Normalize(raw, now)
	require.Nil(t, rejErr)
	assert.Equal(t, CategoryCryptocurrency, m.Category)
}

func TestNormalize_OutcomesListTakesPrecedence(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := RawMarket{
		Venue:      "venue-b",
		ExternalID: "m4",
		RawPayload: map[string]interface{}{
			"title":      "Will candidate X win?",
			"close_time": "2026-11-03",
			"outcomes": []interface{}{
				map[string]interface{}{"name": "Yes", "price": 0.3, "volume": 500.0},
				map[string]interface{}{"name": "No", "price": 0.7, "volume": 600.0},
			},
		},
	}
	m, rejErr := n.Normalize(raw, now)
	require.Nil(t, rejErr)
	assert.Equal(t, "0.3", m.Outcomes[0].Price.String())
}

func TestValidate_RejectsPricesNotSummingToOne(t *testing.T) {
	m := &NormalizedMarket{
		Venue:      "venue-a",
		ExternalID: "bad",
		Outcomes: []Outcome{
			{Name: "Yes", Price: decimal.NewFromFloat(0.2)},
			{Name: "No", Price: decimal.NewFromFloat(0.2)},
		},
		Status:    StatusActive,
		CloseTime: time.Now().Add(48 * time.Hour),
	}
	err := m.Validate(time.Now())
	require.Error(t, err)
}
