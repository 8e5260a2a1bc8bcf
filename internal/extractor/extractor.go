// Package extractor defines the Extractor collaborator (spec §6): the
// pipeline does not specify transport, only this contract.
package extractor

import (
	"context"

	"github.com/crossvenue/marketfinder/internal/domain/market"
)

// Extractor fetches raw markets for one venue. Implementations own
// their own transport, auth, and pagination; the pipeline only depends
// on this interface.
type Extractor interface {
	// FetchMarkets returns up to max raw markets for venue (max <= 0
	// means no limit).
	FetchMarkets(ctx context.Context, venue market.Venue, max int) ([]market.RawMarket, error)
}
