package bucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossvenue/marketfinder/internal/domain/market"
)

func newMarket(venue market.Venue, id, title string, category market.Category) *market.NormalizedMarket {
	return &market.NormalizedMarket{
		Venue:      venue,
		ExternalID: id,
		Title:      title,
		Category:   category,
		CloseTime:  time.Now().Add(72 * time.Hour),
	}
}

func TestBucketMarket_AssignsBestMatchingBucket(t *testing.T) {
	b := NewBucketer(DefaultDefinitions())
	m := newMarket("venue-a", "1", "Will BTC (Bitcoin) hit $100k by March?", market.CategoryCryptocurrency)

	b.BucketMarket(m)

	assert.Equal(t, "crypto_bitcoin_price", m.SemanticBucket)
	assert.Greater(t, m.BucketConfidence, 0.0)
}

func TestBucketMarket_FallsBackToMiscellaneous(t *testing.T) {
	b := NewBucketer(DefaultDefinitions())
	m := newMarket("venue-a", "2", "Will it rain tomorrow in some unlisted town?", market.CategoryOther)

	b.BucketMarket(m)

	assert.Equal(t, MiscellaneousBucket, m.SemanticBucket)
	assert.Equal(t, 0.0, m.BucketConfidence)
}

func TestBucketMarket_RequiredKeywordGatesAssignment(t *testing.T) {
	def := Definition{
		Name:             "only_if_keyword",
		RequiredKeywords: []string{"impeachment"},
		OptionalKeywords: []string{"impeachment"},
		Categories:       []market.Category{market.CategoryPolitics},
		Priority:         1,
	}
	b := NewBucketer([]Definition{def})

	m := newMarket("venue-a", "3", "Will the president win re-election?", market.CategoryPolitics)
	b.BucketMarket(m)
	assert.Equal(t, MiscellaneousBucket, m.SemanticBucket)

	m2 := newMarket("venue-a", "4", "Will impeachment proceedings begin?", market.CategoryPolitics)
	b.BucketMarket(m2)
	assert.Equal(t, "only_if_keyword", m2.SemanticBucket)
}

func TestBucketMarkets_EmitsNoMiscellaneousPairs(t *testing.T) {
	b := NewBucketer(DefaultDefinitions())
	venueA := []*market.NormalizedMarket{
		newMarket("venue-a", "1", "Will BTC (Bitcoin) hit $100k?", market.CategoryCryptocurrency),
		newMarket("venue-a", "2", "Completely unrelated obscure topic", market.CategoryOther),
	}
	venueB := []*market.NormalizedMarket{
		newMarket("venue-b", "1", "Bitcoin BTC price above 100000 by year end", market.CategoryCryptocurrency),
	}

	pairs := b.BucketMarkets(venueA, venueB)

	require.Len(t, pairs, 1)
	assert.Equal(t, "crypto_bitcoin_price", pairs[0].BucketName)
	assert.Equal(t, 1, pairs[0].PairsPossible)
}

func TestBucketMarkets_OrderedByPairsPossibleDescending(t *testing.T) {
	b := NewBucketer(DefaultDefinitions())
	venueA := []*market.NormalizedMarket{
		newMarket("venue-a", "1", "Bitcoin BTC price target", market.CategoryCryptocurrency),
		newMarket("venue-a", "2", "NFL super bowl champion", market.CategorySports),
		newMarket("venue-a", "3", "NFL playoffs outcome", market.CategorySports),
	}
	venueB := []*market.NormalizedMarket{
		newMarket("venue-b", "1", "Bitcoin BTC price forecast", market.CategoryCryptocurrency),
		newMarket("venue-b", "2", "NFL super bowl winner", market.CategorySports),
		newMarket("venue-b", "3", "NFL playoffs bracket", market.CategorySports),
	}

	pairs := b.BucketMarkets(venueA, venueB)
	require.Len(t, pairs, 2)
	assert.GreaterOrEqual(t, pairs[0].PairsPossible, pairs[1].PairsPossible)
}
