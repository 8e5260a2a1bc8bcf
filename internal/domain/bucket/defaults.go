package bucket

import (
	"time"

	"github.com/crossvenue/marketfinder/internal/domain/market"
)

func mustDate(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

// DefaultDefinitions seeds the externally-loadable bucket table with the
// starter set carried over from the original ETL's bucketing engine
// (SPEC_FULL.md §12) — a non-empty, representative starting point rather
// than an empty config.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Name:             "politics_election",
			RequiredKeywords: []string{"election"},
			OptionalKeywords: []string{"election", "presidential", "president", "electoral", "vote", "ballot"},
			Categories:       []market.Category{market.CategoryPolitics},
			Priority:         1,
			MinEventDate:     mustDate("2024-01-01"),
		},
		{
			Name:             "politics_congress",
			OptionalKeywords: []string{"congress", "senate", "house", "representative", "senator", "midterm"},
			Categories:       []market.Category{market.CategoryPolitics},
			Priority:         2,
		},
		{
			Name:             "crypto_bitcoin_price",
			RequiredKeywords: []string{"bitcoin", "btc"},
			OptionalKeywords: []string{"bitcoin", "btc", "price"},
			Categories:       []market.Category{market.CategoryCryptocurrency},
			Priority:         1,
		},
		{
			Name:             "crypto_ethereum",
			RequiredKeywords: []string{},
			OptionalKeywords: []string{"ethereum", "eth", "ether"},
			Categories:       []market.Category{market.CategoryCryptocurrency},
			Priority:         1,
		},
		{
			Name:             "crypto_general",
			OptionalKeywords: []string{"crypto", "cryptocurrency", "coin", "token", "defi", "nft"},
			Categories:       []market.Category{market.CategoryCryptocurrency},
			Priority:         3,
		},
		{
			Name:             "sports_football",
			OptionalKeywords: []string{"nfl", "super bowl", "football", "playoffs"},
			Categories:       []market.Category{market.CategorySports},
			Priority:         1,
		},
		{
			Name:             "sports_basketball",
			OptionalKeywords: []string{"nba", "basketball", "finals", "championship"},
			Categories:       []market.Category{market.CategorySports},
			Priority:         1,
		},
		{
			Name:             "sports_soccer",
			OptionalKeywords: []string{"world cup", "fifa", "soccer", "uefa", "premier league"},
			Categories:       []market.Category{market.CategorySports},
			Priority:         2,
		},
		{
			Name:             "economics_fed_rates",
			OptionalKeywords: []string{"fed", "federal reserve", "interest rate", "rate cut", "rate hike"},
			Categories:       []market.Category{market.CategoryEconomics},
			Priority:         1,
		},
		{
			Name:             "economics_inflation",
			OptionalKeywords: []string{"inflation", "cpi", "consumer price", "deflation"},
			Categories:       []market.Category{market.CategoryEconomics},
			Priority:         2,
		},
		{
			Name:             "economics_recession",
			OptionalKeywords: []string{"recession", "gdp", "economic growth", "unemployment"},
			Categories:       []market.Category{market.CategoryEconomics},
			Priority:         2,
		},
		{
			Name:             "business_tech_stocks",
			OptionalKeywords: []string{"apple", "microsoft", "google", "amazon", "meta", "tesla", "nvidia"},
			Categories:       []market.Category{market.CategoryBusiness},
			Priority:         1,
		},
		{
			Name:             "business_ipo",
			OptionalKeywords: []string{"ipo", "public offering", "listing", "debut"},
			Categories:       []market.Category{market.CategoryBusiness},
			Priority:         2,
		},
		{
			Name:             "entertainment_awards",
			OptionalKeywords: []string{"oscar", "academy award", "emmy", "golden globe", "grammy"},
			Categories:       []market.Category{market.CategoryEntertainment},
			Priority:         2,
		},
		{
			Name:             "weather_hurricane",
			OptionalKeywords: []string{"hurricane", "storm", "landfall", "wind speed"},
			Categories:       []market.Category{market.CategoryWeather},
			Priority:         1,
		},
		{
			Name:             "weather_temperature",
			OptionalKeywords: []string{"temperature", "heat", "cold", "record", "degrees"},
			Categories:       []market.Category{market.CategoryWeather},
			Priority:         2,
		},
		{
			Name:             "science_space",
			OptionalKeywords: []string{"spacex", "nasa", "rocket", "mars", "moon", "satellite"},
			Categories:       []market.Category{market.CategoryScience, market.CategoryTechnology},
			Priority:         2,
		},
		{
			Name:             "tech_ai",
			OptionalKeywords: []string{"ai", "artificial intelligence", "gpt", "chatgpt", "machine learning"},
			Categories:       []market.Category{market.CategoryTechnology},
			Priority:         2,
		},
	}
}
