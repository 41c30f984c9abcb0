// Single-key press release query tool with exactly-once enforcement.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/guard"
	"github.com/richinex/themescout/model"
	"github.com/richinex/themescout/source"
)

// PressReleaseLimitCap bounds how many releases one call may request.
const PressReleaseLimitCap = 200

// PressReleaseTool fetches press releases for exactly one ticker at a
// time. A key-set guard rejects batched symbols, repeated tickers, and
// any attempt to paginate. Violations are reported in-band the same way
// CompanyBatchTool reports pagination violations.
type PressReleaseTool struct {
	BaseTool
	fetcher      source.ReleaseFetcher
	keys         *guard.KeySet
	defaultLimit int
	logger       zerolog.Logger
}

// NewPressReleaseTool creates the tool bound to one run's key-set guard.
func NewPressReleaseTool(fetcher source.ReleaseFetcher, keys *guard.KeySet, defaultLimit int, logger zerolog.Logger) *PressReleaseTool {
	return &PressReleaseTool{
		fetcher:      fetcher,
		keys:         keys,
		defaultLimit: defaultLimit,
		logger:       logger.With().Str("tool", "get_press_releases").Logger(),
	}
}

// Metadata returns tool metadata.
func (t *PressReleaseTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "get_press_releases",
		Description: "Fetch recent press releases for ONE company ticker. Each ticker may be queried " +
			"exactly once per run. Do not batch symbols and do not paginate (skip must be 0).",
		Parameters: []ToolParameter{
			{Name: "symbols", ParamType: "array", Description: "Exactly one ticker symbol", Required: true},
			{Name: "skip", ParamType: "integer", Description: "Must be 0; pagination is not allowed", Required: false},
			{Name: "limit", ParamType: "integer", Description: fmt.Sprintf("Max releases to return (default %d, max %d)", t.defaultLimit, PressReleaseLimitCap), Required: false},
		},
	}
}

type pressReleaseArgs struct {
	Symbols []string `json:"symbols"`
	Skip    int      `json:"skip"`
	Limit   int      `json:"limit"`
}

// Execute validates the query against the key-set guard and serves the
// releases, newest first.
func (t *PressReleaseTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var req pressReleaseArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return FailureResultf("invalid arguments: %v", err), nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = t.defaultLimit
	}
	if limit > PressReleaseLimitCap {
		limit = PressReleaseLimitCap
	}

	if err := t.keys.Check(req.Symbols, req.Skip); err != nil {
		t.logger.Warn().Strs("symbols", req.Symbols).Int("skip", req.Skip).Err(err).Msg("single-key violation")
		return marshalReleaseBatch(model.PressReleaseBatch{
			Error:         err.Error(),
			PressReleases: []model.PressRelease{},
			Skip:          req.Skip,
			Limit:         limit,
		})
	}

	// The key is recorded only once the fetch succeeds. A transient fetch
	// failure leaves it unrecorded so the executor's retry can query the
	// same ticker.
	symbol := req.Symbols[0]
	releases, total, err := t.fetcher.FetchBySymbol(ctx, symbol, limit)
	if err != nil {
		return FailureResultf("press release fetch failed: %v", err), nil
	}

	if err := t.keys.Admit(req.Symbols, req.Skip); err != nil {
		return FailureResultf("key admission failed: %v", err), nil
	}

	t.logger.Debug().
		Str("symbol", symbol).
		Int("returned", len(releases)).
		Int("total", total).
		Msg("served press releases")

	return marshalReleaseBatch(model.PressReleaseBatch{
		PressReleases: releases,
		TotalCount:    total,
		Skip:          0,
		Limit:         limit,
		Returned:      len(releases),
		HasMore:       len(releases) < total,
	})
}

func marshalReleaseBatch(batch model.PressReleaseBatch) (ToolResult, error) {
	if batch.PressReleases == nil {
		batch.PressReleases = []model.PressRelease{}
	}
	out, err := json.Marshal(batch)
	if err != nil {
		return FailureResultf("marshal batch: %v", err), nil
	}
	return SuccessResult(string(out)), nil
}
