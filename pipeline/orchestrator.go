// Pipeline orchestration: four stages in strict sequence.
//
// Analyze -> Match -> Validate -> Rank. Each stage must fully complete
// before the next begins; Match reads the Analyze artifact, Validate
// reads the Match batches, Rank joins the two consolidated outputs.
// Guards and the run-scoped store are created fresh per run and owned by
// the orchestrator, never shared across runs.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/richinex/themescout/agent"
	"github.com/richinex/themescout/artifact"
	"github.com/richinex/themescout/config"
	"github.com/richinex/themescout/guard"
	"github.com/richinex/themescout/llm"
	"github.com/richinex/themescout/model"
	"github.com/richinex/themescout/source"
	"github.com/richinex/themescout/tools"
	"github.com/richinex/themescout/trim"
)

// Orchestrator drives a full theme-play run.
type Orchestrator struct {
	provider  llm.Provider
	store     artifact.Store
	companies source.CompanyPager
	releases  source.ReleaseFetcher
	cfg       config.PipelineConfig
	maxIters  int
	verbose   bool
	logger    zerolog.Logger
}

// NewOrchestrator wires the orchestrator. The store outlives individual
// runs; everything else is instantiated per run.
func NewOrchestrator(
	provider llm.Provider,
	store artifact.Store,
	companies source.CompanyPager,
	releases source.ReleaseFetcher,
	cfg config.PipelineConfig,
	maxIterations int,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		provider:  provider,
		store:     store,
		companies: companies,
		releases:  releases,
		cfg:       cfg,
		maxIters:  maxIterations,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Verbose streams agent reasoning to stdout.
func (o *Orchestrator) Verbose(enabled bool) *Orchestrator {
	o.verbose = enabled
	return o
}

// Run executes the four stages for one transcript and returns the final
// rankings. All artifacts live under the returned run's ID.
func (o *Orchestrator) Run(ctx context.Context, transcript string) (*model.FinalRankings, error) {
	runID := uuid.NewString()
	logger := o.logger.With().Str("run_id", runID).Logger()
	runStore := artifact.NewRunStore(o.store, runID)

	// Guards are scoped to this run. Concurrent runs in the same process
	// each get their own.
	cursor := guard.NewCursor(o.cfg.CompanyBatchSize)
	keys := guard.NewKeySet()

	trimmer := trim.NewTrimmer(o.cfg.ContextBudget(), trim.EstimatorFor(o.provider, logger), logger)

	logger.Info().Msg("starting theme play run")

	// Stage 1: Analyze
	themes, err := o.runAnalyze(ctx, runStore, trimmer, logger, transcript)
	if err != nil {
		return nil, fmt.Errorf("analyze stage: %w", err)
	}
	logger.Info().Int("themes", len(themes.Themes)).Msg("analyze stage complete")

	// Stage 2: Match
	consolidator := NewConsolidator(runStore, logger)
	matches, err := o.runMatch(ctx, runStore, cursor, trimmer, consolidator, logger, themes)
	if err != nil {
		return nil, fmt.Errorf("match stage: %w", err)
	}
	logger.Info().Int("matches", matches.TotalMatches).Msg("match stage complete")

	// Stage 3: Validate
	validations, err := o.runValidate(ctx, runStore, keys, trimmer, consolidator, logger)
	if err != nil {
		return nil, fmt.Errorf("validate stage: %w", err)
	}
	logger.Info().Int("validations", validations.Total).Msg("validate stage complete")

	// Stage 4: Rank
	rankings, err := o.runRank(ctx, runStore, trimmer, logger, runID, matches, validations)
	if err != nil {
		return nil, fmt.Errorf("rank stage: %w", err)
	}
	logger.Info().
		Int("ranked", len(rankings.Rankings)).
		Float64("avg_score", rankings.Statistics.AverageFinalScore).
		Msg("run complete")

	return rankings, nil
}

func (o *Orchestrator) runAnalyze(ctx context.Context, store *artifact.RunStore, trimmer *trim.Trimmer, logger zerolog.Logger, transcript string) (model.ThemesAnalysis, error) {
	a := agent.New(agent.Config{
		Name:         "theme-analyzer",
		Description:  "Extracts investment themes from a transcript",
		SystemPrompt: analyzePrompt,
		Tools: []tools.Tool{
			tools.NewWriteArtifactTool(store, logger),
		},
	}, o.provider).WithTrimmer(trimmer).WithLogger(logger).Verbose(o.verbose)

	resp := a.Execute(ctx, "Analyze this transcript and save the themes:\n\n"+transcript, o.maxIters)
	if resp.Type == agent.ResponseFailure {
		return model.ThemesAnalysis{}, fmt.Errorf("agent failed: %s", resp.Error)
	}

	data, err := store.Read(ctx, model.KeyThemesAnalysis)
	if err != nil {
		return model.ThemesAnalysis{}, fmt.Errorf("themes artifact missing: %w", err)
	}
	var themes model.ThemesAnalysis
	if err := json.Unmarshal(data, &themes); err != nil {
		return model.ThemesAnalysis{}, fmt.Errorf("themes artifact malformed: %w", err)
	}
	if len(themes.Themes) == 0 {
		return model.ThemesAnalysis{}, fmt.Errorf("no themes identified")
	}
	return themes, nil
}

func (o *Orchestrator) runMatch(ctx context.Context, store *artifact.RunStore, cursor *guard.Cursor, trimmer *trim.Trimmer, consolidator *Consolidator, logger zerolog.Logger, themes model.ThemesAnalysis) (model.MatchedCompanies, error) {
	a := agent.New(agent.Config{
		Name:         "company-matcher",
		Description:  "Scores the company universe against the themes",
		SystemPrompt: matchPrompt,
		Tools: []tools.Tool{
			tools.NewCompanyBatchTool(o.companies, cursor, o.cfg.CompanyBatchSize, logger),
			tools.NewWriteArtifactTool(store, logger),
			tools.NewReadArtifactTool(store, logger),
		},
	}, o.provider).WithTrimmer(trimmer).WithLogger(logger).Verbose(o.verbose)

	themesJSON, err := json.Marshal(themes)
	if err != nil {
		return model.MatchedCompanies{}, fmt.Errorf("marshal themes: %w", err)
	}

	resp := a.ExecuteWithContext(ctx, "Match every company batch against the themes and save the per-batch results.", themesJSON, o.maxIters)
	if resp.Type == agent.ResponseFailure {
		return model.MatchedCompanies{}, fmt.Errorf("agent failed: %s", resp.Error)
	}

	// The consolidated output is only trustworthy once the cursor has
	// walked the full universe. An incomplete walk is consolidated
	// anyway (the artifacts that exist are valid) but flagged loudly.
	if !cursor.Completed() {
		logger.Warn().
			Int("expected_offset", cursor.ExpectedOffset()).
			Msg("match stage ended before exhausting the company universe")
	}

	return consolidator.ConsolidateMatches(ctx)
}

func (o *Orchestrator) runValidate(ctx context.Context, store *artifact.RunStore, keys *guard.KeySet, trimmer *trim.Trimmer, consolidator *Consolidator, logger zerolog.Logger) (model.ValidatedResults, error) {
	a := agent.New(agent.Config{
		Name:         "match-validator",
		Description:  "Validates matches against press releases",
		SystemPrompt: validatePrompt,
		Tools: []tools.Tool{
			tools.NewMatchedTickersTool(store, keys, logger),
			tools.NewPressReleaseTool(o.releases, keys, o.cfg.PressReleaseLimit, logger),
			tools.NewWriteArtifactTool(store, logger),
			tools.NewReadArtifactTool(store, logger),
			tools.NewListArtifactsTool(store, logger),
		},
	}, o.provider).WithTrimmer(trimmer).WithLogger(logger).Verbose(o.verbose)

	resp := a.Execute(ctx, "Validate the matched companies against their press releases.", o.maxIters)
	if resp.Type == agent.ResponseFailure {
		return model.ValidatedResults{}, fmt.Errorf("agent failed: %s", resp.Error)
	}

	return consolidator.ConsolidateValidations(ctx)
}

func (o *Orchestrator) runRank(ctx context.Context, store *artifact.RunStore, trimmer *trim.Trimmer, logger zerolog.Logger, runID string, matches model.MatchedCompanies, validations model.ValidatedResults) (*model.FinalRankings, error) {
	ranker := NewRanker(o.cfg.TopK, logger)
	rankings := ranker.MergeAndRank(matches, validations, runID, time.Now())

	data, err := json.MarshalIndent(rankings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rankings: %w", err)
	}
	if err := store.Write(ctx, model.KeyFinalRankings, data); err != nil {
		return nil, fmt.Errorf("write rankings: %w", err)
	}
	if err := store.Write(ctx, model.KeyRankingSummary, []byte(RenderSummary(rankings))); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	// The written report is a nicety; a failed report agent does not fail
	// the run.
	o.writeReport(ctx, store, trimmer, logger)

	return &rankings, nil
}

func (o *Orchestrator) writeReport(ctx context.Context, store *artifact.RunStore, trimmer *trim.Trimmer, logger zerolog.Logger) {
	a := agent.New(agent.Config{
		Name:         "report-writer",
		Description:  "Writes the final narrative report",
		SystemPrompt: reportPrompt,
		Tools: []tools.Tool{
			tools.NewReadArtifactTool(store, logger),
			tools.NewWriteArtifactTool(store, logger),
		},
	}, o.provider).WithTrimmer(trimmer).WithLogger(logger).Verbose(o.verbose)

	resp := a.Execute(ctx, "Write the final report from the rankings.", o.maxIters)
	if resp.Type != agent.ResponseSuccess {
		logger.Warn().Str("result", resp.ResultText()).Msg("report agent did not complete")
	}
}
