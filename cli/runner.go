// Command execution for CLI commands.
//
// Information Hiding:
// - Provider/settings wiring hidden
// - Store and source setup hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/artifact"
	"github.com/richinex/themescout/config"
	"github.com/richinex/themescout/llm"
	"github.com/richinex/themescout/pipeline"
	"github.com/richinex/themescout/source"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	MaxIter  int
	Verbose  bool
}

// RunThemePlay executes the full theme-play pipeline for one transcript file.
func RunThemePlay(ctx context.Context, transcriptPath string, opts Options) error {
	transcript, err := os.ReadFile(transcriptPath)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	if len(strings.TrimSpace(string(transcript))) == 0 {
		return fmt.Errorf("transcript %s is empty", transcriptPath)
	}

	settings, provider, err := createProvider(opts.Provider)
	if err != nil {
		return err
	}

	db, err := source.DB(settings.Pipeline.DataSourcePath)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := artifact.OpenSqlite(settings.Pipeline.ArtifactStorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := newLogger(opts.Verbose)
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = settings.Agent.MaxIterations
	}

	orch := pipeline.NewOrchestrator(
		provider,
		store,
		source.NewCompanyDB(db),
		source.NewReleaseDB(db),
		settings.Pipeline,
		maxIter,
		logger,
	).Verbose(opts.Verbose)

	fmt.Printf("Running theme play pipeline (%s / %s)...\n\n", provider.Name(), provider.Model())

	rankings, err := orch.Run(ctx, string(transcript))
	if err != nil {
		return err
	}

	fmt.Println(pipeline.RenderSummary(*rankings))
	fmt.Printf("Artifacts stored under run %s\n", rankings.RunID)
	return nil
}

// CompareNarratives runs the marketing-versus-community comparison for a product.
func CompareNarratives(ctx context.Context, product string, opts Options) error {
	settings, provider, err := createProvider(opts.Provider)
	if err != nil {
		return err
	}

	db, err := source.DB(settings.Pipeline.DataSourcePath)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := artifact.OpenSqlite(settings.Pipeline.ArtifactStorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	comparer := pipeline.NewNarrativeComparer(
		provider,
		source.NewContentDB(db),
		store,
		settings.Pipeline.ContextBudget(),
		newLogger(opts.Verbose),
	)

	fmt.Printf("Comparing narratives for %q (%s / %s)...\n\n", product, provider.Name(), provider.Model())

	report, err := comparer.Compare(ctx, product)
	if err != nil {
		return err
	}

	fmt.Printf("MARKETING NARRATIVE (%d docs):\n%s\n\n", report.MarketingDocs, report.MarketingSummary)
	fmt.Printf("COMMUNITY NARRATIVE (%d posts):\n%s\n\n", report.SocialDocs, report.SocialSummary)
	fmt.Printf("COMPARISON:\n%s\n\n", report.Comparison)
	fmt.Printf("Artifacts stored under run %s\n", report.RunID)
	return nil
}

// ListArtifacts prints the artifact keys stored under a run, optionally
// filtered by prefix.
func ListArtifacts(ctx context.Context, runID, prefix string, opts Options) error {
	settings, err := config.New(defaultProviderName(opts.Provider))
	if err != nil {
		return err
	}

	store, err := artifact.OpenSqlite(settings.Pipeline.ArtifactStorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := artifact.NewRunStore(store, runID).List(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Printf("No artifacts found for run %s\n", runID)
		return nil
	}

	for _, key := range keys {
		fmt.Println(key)
	}
	fmt.Printf("\n%d artifacts\n", len(keys))
	return nil
}

// ShowArtifact prints one artifact's contents to stdout.
func ShowArtifact(ctx context.Context, runID, key string, opts Options) error {
	settings, err := config.New(defaultProviderName(opts.Provider))
	if err != nil {
		return err
	}

	store, err := artifact.OpenSqlite(settings.Pipeline.ArtifactStorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := artifact.NewRunStore(store, runID).Read(ctx, key)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Helper functions

func createProvider(providerName string) (config.Settings, llm.Provider, error) {
	if providerName == "" {
		return config.Settings{}, nil, fmt.Errorf(
			"--provider is required (one of: %s)", strings.Join(config.SupportedProviders(), ", "))
	}

	providerType, err := llm.ParseProviderType(providerName)
	if err != nil {
		return config.Settings{}, nil, err
	}

	settings, err := config.New(providerName)
	if err != nil {
		return config.Settings{}, nil, err
	}

	apiKey, err := config.APIKeyFor(providerName)
	if err != nil {
		return config.Settings{}, nil, err
	}

	provider, err := providerType.
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
	if err != nil {
		return config.Settings{}, nil, err
	}
	return settings, provider, nil
}

// defaultProviderName lets artifact inspection commands work without a
// provider flag; settings are only needed for the store path.
func defaultProviderName(provider string) string {
	if provider != "" {
		return provider
	}
	return "anthropic"
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
