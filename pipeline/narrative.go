// Narrative comparison pipeline: marketing copy versus community voice.
//
// A second, smaller pipeline over the same infrastructure. Two analysts
// summarize the two corpora independently, then a comparison pass lines
// the summaries up against each other. No tools are needed; the corpora
// are fetched up front and trimmed to the context budget.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/richinex/themescout/artifact"
	"github.com/richinex/themescout/llm"
	"github.com/richinex/themescout/trim"
)

// Narrative artifact keys.
const (
	KeyMarketingSummary    = "narrative/marketing_summary.txt"
	KeySocialSummary       = "narrative/social_summary.txt"
	KeyNarrativeComparison = "narrative/comparison.txt"
)

// DefaultSocialSampleSize bounds how many community posts are sampled.
const DefaultSocialSampleSize = 200

// ContentSource provides the two corpora for one product.
type ContentSource interface {
	FetchMarketing(ctx context.Context, product string) ([]string, error)
	FetchSocial(ctx context.Context, product string, limit int) ([]string, error)
}

// NarrativeReport is the result of one comparison run.
type NarrativeReport struct {
	RunID            string    `json:"run_id"`
	Product          string    `json:"product"`
	GeneratedAt      time.Time `json:"generated_at"`
	MarketingSummary string    `json:"marketing_summary"`
	SocialSummary    string    `json:"social_summary"`
	Comparison       string    `json:"comparison"`
	MarketingDocs    int       `json:"marketing_docs"`
	SocialDocs       int       `json:"social_docs"`
}

// NarrativeComparer runs the comparison pipeline.
type NarrativeComparer struct {
	client  *llm.Client
	content ContentSource
	store   artifact.Store
	trimmer *trim.Trimmer
	logger  zerolog.Logger
}

// NewNarrativeComparer wires the comparer.
func NewNarrativeComparer(provider llm.Provider, content ContentSource, store artifact.Store, budget int, logger zerolog.Logger) *NarrativeComparer {
	return &NarrativeComparer{
		client:  llm.NewClient(provider),
		content: content,
		store:   store,
		trimmer: trim.NewTrimmer(budget, trim.EstimatorFor(provider, logger), logger),
		logger:  logger.With().Str("component", "narrative").Logger(),
	}
}

// Compare summarizes both corpora for the product and contrasts them.
// The two analyst passes are independent; the comparison pass sees only
// their summaries, not the raw corpora.
func (n *NarrativeComparer) Compare(ctx context.Context, product string) (*NarrativeReport, error) {
	runID := uuid.NewString()
	logger := n.logger.With().Str("run_id", runID).Str("product", product).Logger()
	runStore := artifact.NewRunStore(n.store, runID)

	marketing, err := n.content.FetchMarketing(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("fetch marketing content: %w", err)
	}
	social, err := n.content.FetchSocial(ctx, product, DefaultSocialSampleSize)
	if err != nil {
		return nil, fmt.Errorf("fetch social content: %w", err)
	}
	if len(marketing) == 0 && len(social) == 0 {
		return nil, fmt.Errorf("no content found for product %q", product)
	}
	logger.Info().Int("marketing_docs", len(marketing)).Int("social_docs", len(social)).Msg("fetched corpora")

	marketingSummary, err := n.summarize(ctx, marketingAnalystPrompt, product, marketing)
	if err != nil {
		return nil, fmt.Errorf("marketing analyst: %w", err)
	}
	socialSummary, err := n.summarize(ctx, socialAnalystPrompt, product, social)
	if err != nil {
		return nil, fmt.Errorf("social analyst: %w", err)
	}

	comparison, err := n.compare(ctx, product, marketingSummary, socialSummary)
	if err != nil {
		return nil, fmt.Errorf("comparison: %w", err)
	}

	report := &NarrativeReport{
		RunID:            runID,
		Product:          product,
		GeneratedAt:      time.Now().UTC(),
		MarketingSummary: marketingSummary,
		SocialSummary:    socialSummary,
		Comparison:       comparison,
		MarketingDocs:    len(marketing),
		SocialDocs:       len(social),
	}

	if err := n.persist(ctx, runStore, report); err != nil {
		return nil, err
	}

	logger.Info().Msg("narrative comparison complete")
	return report, nil
}

func (n *NarrativeComparer) summarize(ctx context.Context, prompt, product string, texts []string) (string, error) {
	messages := []llm.ChatMessage{
		llm.SystemMessage(prompt),
		llm.UserMessage(fmt.Sprintf("Product: %s\n\nContent:\n%s", product, strings.Join(texts, "\n---\n"))),
	}

	trimmed, err := n.trimmer.Trim(ctx, messages)
	if err != nil {
		return "", err
	}
	return n.client.Chat(ctx, trimmed)
}

func (n *NarrativeComparer) compare(ctx context.Context, product, marketingSummary, socialSummary string) (string, error) {
	messages := []llm.ChatMessage{
		llm.SystemMessage(narrativeComparePrompt),
		llm.UserMessage(fmt.Sprintf(
			"Product: %s\n\nMARKETING NARRATIVE:\n%s\n\nCOMMUNITY NARRATIVE:\n%s",
			product, marketingSummary, socialSummary,
		)),
	}

	trimmed, err := n.trimmer.Trim(ctx, messages)
	if err != nil {
		return "", err
	}
	return n.client.Chat(ctx, trimmed)
}

func (n *NarrativeComparer) persist(ctx context.Context, store *artifact.RunStore, report *NarrativeReport) error {
	writes := map[string][]byte{
		KeyMarketingSummary:    []byte(report.MarketingSummary),
		KeySocialSummary:       []byte(report.SocialSummary),
		KeyNarrativeComparison: []byte(report.Comparison),
	}
	for key, data := range writes {
		if err := store.Write(ctx, key, data); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}

	full, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := store.Write(ctx, "narrative/report.json", full); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
