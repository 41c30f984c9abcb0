// Stage output consolidation: fold per-batch and per-company artifacts
// into single stage outputs.
//
// Consolidation is deterministic and order-independent: the result is the
// same whichever order the per-page artifacts are listed in. Malformed
// artifacts are skipped with a warning rather than failing the stage; the
// guards upstream already ensured no page is missing.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/artifact"
	"github.com/richinex/themescout/model"
)

// Consolidator reads the per-page artifacts of a run and produces the
// consolidated stage outputs.
type Consolidator struct {
	store  *artifact.RunStore
	logger zerolog.Logger
}

// NewConsolidator creates a consolidator over a run-scoped store.
func NewConsolidator(store *artifact.RunStore, logger zerolog.Logger) *Consolidator {
	return &Consolidator{
		store:  store,
		logger: logger.With().Str("component", "consolidator").Logger(),
	}
}

// ConsolidateMatches folds every company_matches/batch_*.json artifact
// into one matched-companies document and writes it under its logical
// key. Duplicate tickers keep the highest score. Zero batch artifacts
// yield an empty (not missing) output.
func (c *Consolidator) ConsolidateMatches(ctx context.Context) (model.MatchedCompanies, error) {
	keys, err := c.store.List(ctx, model.MatchBatchPrefix)
	if err != nil {
		return model.MatchedCompanies{}, fmt.Errorf("list match batches: %w", err)
	}

	byTicker := make(map[string]model.CompanyMatch)
	batchesRead := 0
	for _, key := range keys {
		data, err := c.store.Read(ctx, key)
		if err != nil {
			c.logger.Warn().Str("key", key).Err(err).Msg("skipping unreadable match batch")
			continue
		}
		var batch model.MatchBatchFile
		if err := json.Unmarshal(data, &batch); err != nil {
			c.logger.Warn().Str("key", key).Err(err).Msg("skipping malformed match batch")
			continue
		}
		batchesRead++
		for _, m := range batch.Matches {
			if !m.IsValidRecord() {
				c.logger.Warn().Str("key", key).Str("ticker", m.Ticker).Msg("dropping invalid match record")
				continue
			}
			if existing, dup := byTicker[m.Ticker]; !dup || m.Score > existing.Score {
				byTicker[m.Ticker] = m
			}
		}
	}

	companies := make([]model.CompanyMatch, 0, len(byTicker))
	for _, m := range byTicker {
		companies = append(companies, m)
	}
	// Deterministic order regardless of listing or map iteration order.
	sort.Slice(companies, func(i, j int) bool {
		if companies[i].Score != companies[j].Score {
			return companies[i].Score > companies[j].Score
		}
		return companies[i].Ticker < companies[j].Ticker
	})

	out := model.MatchedCompanies{
		Companies:    companies,
		TotalMatches: len(companies),
		BatchesRead:  batchesRead,
	}

	if err := c.writeJSON(ctx, model.KeyMatchedCompanies, out); err != nil {
		return model.MatchedCompanies{}, err
	}

	c.logger.Info().
		Int("batches", batchesRead).
		Int("companies", len(companies)).
		Msg("consolidated match batches")
	return out, nil
}

// ConsolidateValidations folds every validations/company_*.json artifact
// into one validated-results document and writes it under its logical
// key. Records failing validation are dropped; duplicate tickers keep
// the last artifact in key order.
func (c *Consolidator) ConsolidateValidations(ctx context.Context) (model.ValidatedResults, error) {
	keys, err := c.store.List(ctx, model.ValidationPrefix)
	if err != nil {
		return model.ValidatedResults{}, fmt.Errorf("list validations: %w", err)
	}

	byTicker := make(map[string]model.CompanyValidation)
	for _, key := range keys {
		data, err := c.store.Read(ctx, key)
		if err != nil {
			c.logger.Warn().Str("key", key).Err(err).Msg("skipping unreadable validation")
			continue
		}
		var v model.CompanyValidation
		if err := json.Unmarshal(data, &v); err != nil {
			c.logger.Warn().Str("key", key).Err(err).Msg("skipping malformed validation")
			continue
		}
		if !v.IsValidRecord() {
			c.logger.Warn().Str("key", key).Str("ticker", v.Ticker).Msg("dropping invalid validation record")
			continue
		}
		byTicker[v.Ticker] = v
	}

	validations := make([]model.CompanyValidation, 0, len(byTicker))
	for _, v := range byTicker {
		validations = append(validations, v)
	}
	sort.Slice(validations, func(i, j int) bool {
		return validations[i].Ticker < validations[j].Ticker
	})

	out := model.ValidatedResults{
		Validations: validations,
		Total:       len(validations),
	}

	if err := c.writeJSON(ctx, model.KeyValidatedResults, out); err != nil {
		return model.ValidatedResults{}, err
	}

	c.logger.Info().Int("validations", len(validations)).Msg("consolidated validations")
	return out, nil
}

func (c *Consolidator) writeJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := c.store.Write(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
