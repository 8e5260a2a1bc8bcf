package bucket

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crossvenue/marketfinder/internal/domain/market"
)

// yamlDefinition is the on-disk shape of one Definition (spec §4.B,
// §6 "bucket table externally loadable"), modeled on config.Config's
// flat yaml-tagged structs.
type yamlDefinition struct {
	Name             string             `yaml:"name"`
	RequiredKeywords []string           `yaml:"required_keywords"`
	OptionalKeywords []string           `yaml:"optional_keywords"`
	ExcludedKeywords []string           `yaml:"excluded_keywords"`
	Categories       []market.Category  `yaml:"categories"`
	Priority         int                `yaml:"priority"`
	MinEventDate     string             `yaml:"min_event_date"` // YYYY-MM-DD, optional
	PriceRangeMin    *float64           `yaml:"price_range_min"`
	PriceRangeMax    *float64           `yaml:"price_range_max"`
}

// LoadDefinitions reads the bucket table from a YAML document (a
// top-level list of definitions). An empty path returns
// DefaultDefinitions() so a fresh deployment has a non-empty starting
// table (SPEC_FULL.md §12).
func LoadDefinitions(path string) ([]Definition, error) {
	if path == "" {
		return DefaultDefinitions(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bucket: read %s: %w", path, err)
	}

	var raw []yamlDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("bucket: parse %s: %w", path, err)
	}

	defs := make([]Definition, 0, len(raw))
	for _, r := range raw {
		d := Definition{
			Name:             r.Name,
			RequiredKeywords: r.RequiredKeywords,
			OptionalKeywords: r.OptionalKeywords,
			ExcludedKeywords: r.ExcludedKeywords,
			Categories:       r.Categories,
			Priority:         r.Priority,
			PriceRangeMin:    r.PriceRangeMin,
			PriceRangeMax:    r.PriceRangeMax,
		}
		if r.MinEventDate != "" {
			t, err := time.Parse("2006-01-02", r.MinEventDate)
			if err != nil {
				return nil, fmt.Errorf("bucket: definition %s: min_event_date: %w", r.Name, err)
			}
			d.MinEventDate = &t
		}
		defs = append(defs, d)
	}
	return defs, nil
}
