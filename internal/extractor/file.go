package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/crossvenue/marketfinder/internal/domain/market"
)

// FileExtractor reads a venue's raw markets from a JSON document on
// disk: a top-level array of objects, each becoming one
// market.RawMarket.RawPayload. Spec §6 treats venue API clients as
// out of scope ("functions returning normalized market records");
// this is the reference implementation used for offline runs and
// tests, grounded on the same cached-snapshot pattern the teacher's
// offline scan mode reads from (cmd/cryptorun/scan_offline.go).
type FileExtractor struct {
	Path    string
	IDField string // RawPayload key to use as ExternalID, default "id"
}

// NewFileExtractor builds a FileExtractor over a JSON array file.
// idField names the payload key holding each record's external ID
// ("id" if empty).
func NewFileExtractor(path, idField string) *FileExtractor {
	if idField == "" {
		idField = "id"
	}
	return &FileExtractor{Path: path, IDField: idField}
}

func (e *FileExtractor) FetchMarkets(ctx context.Context, venue market.Venue, max int) ([]market.RawMarket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, fmt.Errorf("extractor: read %s: %w", e.Path, err)
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("extractor: parse %s: %w", e.Path, err)
	}

	if max > 0 && len(records) > max {
		records = records[:max]
	}

	out := make([]market.RawMarket, 0, len(records))
	for _, r := range records {
		id, _ := r[e.IDField].(string)
		if id == "" {
			continue
		}
		out = append(out, market.RawMarket{
			Venue:      venue,
			ExternalID: id,
			RawPayload: r,
		})
	}
	return out, nil
}
