// Merge and rank: join match and validation outputs on ticker, compute
// final scores, sort, truncate to top-K, and aggregate statistics.

package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/model"
)

// Ranker merges the consolidated match and validation outputs into the
// final ranked list. Ranking is a pure function of its inputs: running it
// twice on identical documents produces identical output.
type Ranker struct {
	topK   int
	logger zerolog.Logger
}

// NewRanker creates a ranker that truncates to topK entries.
func NewRanker(topK int, logger zerolog.Logger) *Ranker {
	return &Ranker{
		topK:   topK,
		logger: logger.With().Str("component", "ranker").Logger(),
	}
}

// MergeAndRank joins matches with validations by ticker and produces the
// final rankings artifact body.
//
// final_score is the validation's adjusted score when present, else the
// original match score. A match without a validation is kept with its
// evidentiary fields empty; that is expected, not an error. Ties keep the
// input order (stable sort) so identical inputs always rank identically.
func (r *Ranker) MergeAndRank(matches model.MatchedCompanies, validations model.ValidatedResults, runID string, now time.Time) model.FinalRankings {
	byTicker := make(map[string]model.CompanyValidation, len(validations.Validations))
	for _, v := range validations.Validations {
		byTicker[v.Ticker] = v
	}

	merged := make([]model.RankedCompany, 0, len(matches.Companies))
	for _, m := range matches.Companies {
		rc := model.RankedCompany{
			Ticker:           m.Ticker,
			CompanyName:      m.CompanyName,
			FinalScore:       m.Score,
			OriginalScore:    m.Score,
			MatchedThemes:    m.MatchedThemes,
			AlignmentFactors: m.AlignmentFactors,
			Industry:         m.Industry,
		}
		if v, ok := byTicker[m.Ticker]; ok {
			rc.Validated = true
			supports := v.SupportsThemes
			rc.SupportsThemes = &supports
			rc.KeyEvidence = v.KeyEvidence
			rc.Notes = v.Notes
			if v.AdjustedScore != nil {
				rc.FinalScore = *v.AdjustedScore
			}
		}
		merged = append(merged, rc)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].FinalScore > merged[j].FinalScore
	})

	totalMerged := len(merged)
	if len(merged) > r.topK {
		merged = merged[:r.topK]
	}
	for i := range merged {
		merged[i].Rank = i + 1
	}

	rankings := model.FinalRankings{
		RunID:       runID,
		GeneratedAt: now.UTC(),
		TotalMerged: totalMerged,
		TopK:        r.topK,
		Rankings:    merged,
		Statistics:  buildStats(merged),
	}

	r.logger.Info().
		Int("merged", totalMerged).
		Int("ranked", len(merged)).
		Int("top_k", r.topK).
		Msg("merged and ranked companies")

	return rankings
}

// buildStats aggregates the top-K list. Themes are counted once per
// occurrence in a company's matched_themes.
func buildStats(ranked []model.RankedCompany) model.RankingStats {
	stats := model.RankingStats{
		ThemeDistribution:      make(map[string]int),
		ScoreHistogram:         make(map[string]int),
		IndustryRepresentation: make(map[string]int),
	}

	sum := 0.0
	for _, rc := range ranked {
		sum += rc.FinalScore
		stats.ScoreHistogram[scoreBucket(rc.FinalScore)]++
		for _, theme := range rc.MatchedThemes {
			stats.ThemeDistribution[theme]++
		}
		if rc.Industry != "" {
			stats.IndustryRepresentation[rc.Industry]++
		}
		if rc.Validated {
			stats.ValidatedCount++
		}
	}
	if len(ranked) > 0 {
		stats.AverageFinalScore = sum / float64(len(ranked))
	}
	if len(stats.IndustryRepresentation) == 0 {
		stats.IndustryRepresentation = nil
	}
	return stats
}

// scoreBucket maps a final score to a fixed histogram bucket. Scores can
// leave [0,1] after validation adjustment; the edge buckets absorb them.
func scoreBucket(score float64) string {
	switch {
	case score < 0.2:
		return "0.0-0.2"
	case score < 0.4:
		return "0.2-0.4"
	case score < 0.6:
		return "0.4-0.6"
	case score < 0.8:
		return "0.6-0.8"
	default:
		return "0.8-1.0"
	}
}

// RenderSummary formats a human-readable ranking summary for the
// ranking_summary.txt artifact.
func RenderSummary(rankings model.FinalRankings) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Theme Play Rankings - run %s\n", rankings.RunID)
	fmt.Fprintf(&b, "Generated: %s\n", rankings.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Companies merged: %d, showing top %d\n\n", rankings.TotalMerged, len(rankings.Rankings))

	for _, rc := range rankings.Rankings {
		validated := ""
		if rc.Validated {
			validated = " [validated]"
		}
		fmt.Fprintf(&b, "%3d. %-6s %-32s %.3f%s\n", rc.Rank, rc.Ticker, rc.CompanyName, rc.FinalScore, validated)
		if len(rc.MatchedThemes) > 0 {
			fmt.Fprintf(&b, "     themes: %s\n", strings.Join(rc.MatchedThemes, ", "))
		}
	}

	stats := rankings.Statistics
	fmt.Fprintf(&b, "\nAverage final score: %.3f\n", stats.AverageFinalScore)
	fmt.Fprintf(&b, "Validated: %d of %d\n", stats.ValidatedCount, len(rankings.Rankings))

	if len(stats.ScoreHistogram) > 0 {
		b.WriteString("Score distribution:\n")
		for _, bucket := range []string{"0.8-1.0", "0.6-0.8", "0.4-0.6", "0.2-0.4", "0.0-0.2"} {
			if n := stats.ScoreHistogram[bucket]; n > 0 {
				fmt.Fprintf(&b, "  %s: %d\n", bucket, n)
			}
		}
	}

	if len(stats.ThemeDistribution) > 0 {
		themes := make([]string, 0, len(stats.ThemeDistribution))
		for theme := range stats.ThemeDistribution {
			themes = append(themes, theme)
		}
		sort.Slice(themes, func(i, j int) bool {
			if stats.ThemeDistribution[themes[i]] != stats.ThemeDistribution[themes[j]] {
				return stats.ThemeDistribution[themes[i]] > stats.ThemeDistribution[themes[j]]
			}
			return themes[i] < themes[j]
		})
		b.WriteString("Theme coverage:\n")
		for _, theme := range themes {
			fmt.Fprintf(&b, "  %-40s %d\n", theme, stats.ThemeDistribution[theme])
		}
	}

	return b.String()
}
