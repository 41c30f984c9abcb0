// Package source wraps external datasets behind page-fetch semantics.
//
// The pipeline treats its relational and document backends as opaque
// sources: offset/limit in, a page of validated records plus a total
// count out. Guards in the guard package enforce how consumers walk the
// pages; sources only fetch.
package source

import (
	"context"

	"github.com/richinex/themescout/model"
)

// CompanyPager fetches one bounded slice of the companies dataset.
// has_more is derived by the caller as (offset + returned) < total.
type CompanyPager interface {
	// FetchPage returns validated company records at offset, at most limit.
	FetchPage(ctx context.Context, offset, limit int) ([]model.Company, int, error)
}

// ReleaseFetcher fetches press releases for exactly one symbol.
type ReleaseFetcher interface {
	// FetchBySymbol returns up to limit validated releases for symbol,
	// plus the total number available.
	FetchBySymbol(ctx context.Context, symbol string, limit int) ([]model.PressRelease, int, error)
}
