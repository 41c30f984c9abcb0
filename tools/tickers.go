// Validation queue tool: lists matched tickers still awaiting validation.

package tools

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/artifact"
	"github.com/richinex/themescout/guard"
	"github.com/richinex/themescout/model"
)

// MatchedTickersTool enumerates the tickers found during the match stage
// by walking the per-batch match artifacts. Tickers the key-set guard has
// already admitted are reported separately so the validating agent knows
// what remains.
type MatchedTickersTool struct {
	BaseTool
	store  *artifact.RunStore
	keys   *guard.KeySet
	logger zerolog.Logger
}

// NewMatchedTickersTool creates the tool for a run-scoped store and the
// run's single-key guard.
func NewMatchedTickersTool(store *artifact.RunStore, keys *guard.KeySet, logger zerolog.Logger) *MatchedTickersTool {
	return &MatchedTickersTool{
		store:  store,
		keys:   keys,
		logger: logger.With().Str("tool", "list_matched_tickers").Logger(),
	}
}

// Metadata returns tool metadata.
func (t *MatchedTickersTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "list_matched_tickers",
		Description: "List tickers from the match stage batches, split into those still pending " +
			"validation and those already validated this run.",
		Parameters: []ToolParameter{},
	}
}

// Execute reads every match batch artifact and partitions the tickers.
// Malformed batch files are skipped with a warning, matching how
// consolidation treats them.
func (t *MatchedTickersTool) Execute(ctx context.Context, _ json.RawMessage) (ToolResult, error) {
	batchKeys, err := t.store.List(ctx, model.MatchBatchPrefix)
	if err != nil {
		return FailureResultf("list match batches: %v", err), nil
	}

	seen := make(map[string]struct{})
	pending := []string{}
	validated := []string{}
	for _, key := range batchKeys {
		data, err := t.store.Read(ctx, key)
		if err != nil {
			t.logger.Warn().Str("key", key).Err(err).Msg("skipping unreadable match batch")
			continue
		}
		var batch model.MatchBatchFile
		if err := json.Unmarshal(data, &batch); err != nil {
			t.logger.Warn().Str("key", key).Err(err).Msg("skipping malformed match batch")
			continue
		}
		for _, m := range batch.Matches {
			if m.Ticker == "" {
				continue
			}
			if _, dup := seen[m.Ticker]; dup {
				continue
			}
			seen[m.Ticker] = struct{}{}
			if t.keys.Seen(m.Ticker) {
				validated = append(validated, m.Ticker)
			} else {
				pending = append(pending, m.Ticker)
			}
		}
	}

	out, err := json.Marshal(map[string]interface{}{
		"pending":         pending,
		"validated":       validated,
		"total_matched":   len(seen),
		"total_pending":   len(pending),
		"total_validated": len(validated),
	})
	if err != nil {
		return FailureResultf("marshal ticker queue: %v", err), nil
	}
	return SuccessResult(string(out)), nil
}
