// Stage artifact schemas: the JSON documents agents read and write
// through the artifact store, and the batch envelopes returned by the
// query tools.
package model

import "time"

// Logical artifact keys within a run. Per-batch and per-company files
// use the templated names below them.
const (
	KeyThemesAnalysis   = "themes_analysis.json"
	KeyMatchedCompanies = "matched_companies.json"
	KeyValidatedResults = "validated_results.json"
	KeyFinalRankings    = "final_rankings.json"
	KeyRankingSummary   = "ranking_summary.txt"
	KeyFinalReport      = "final_report.txt"

	// MatchBatchPrefix is the key prefix for per-batch match files,
	// completed by a zero-padded offset: company_matches/batch_0050.json.
	MatchBatchPrefix = "company_matches/batch_"

	// ValidationPrefix is the key prefix for per-company validation files,
	// completed by the ticker: validations/company_NVDA.json.
	ValidationPrefix = "validations/company_"
)

// ThemesAnalysis is the Analyze stage output.
type ThemesAnalysis struct {
	Themes     []Theme `json:"themes"`
	Summary    string  `json:"summary,omitempty"`
	SourceNote string  `json:"source_note,omitempty"`
}

// Theme is one theme extracted from the transcript.
type Theme struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// MatchBatchFile is the schema of one per-batch match artifact.
type MatchBatchFile struct {
	Matches []CompanyMatch `json:"matches"`
}

// MatchedCompanies is the consolidated Match stage output.
type MatchedCompanies struct {
	Companies    []CompanyMatch `json:"companies"`
	TotalMatches int            `json:"total_matches"`
	BatchesRead  int            `json:"batches_read"`
}

// ValidatedResults is the consolidated Validate stage output.
type ValidatedResults struct {
	Validations []CompanyValidation `json:"validations"`
	Total       int                 `json:"total"`
}

// FinalRankings is the terminal Rank stage artifact.
type FinalRankings struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	TotalMerged int             `json:"total_merged"`
	TopK        int             `json:"top_k"`
	Rankings    []RankedCompany `json:"rankings"`
	Statistics  RankingStats    `json:"statistics"`
}

// RankingStats aggregates the top-K ranked list.
type RankingStats struct {
	AverageFinalScore      float64        `json:"average_final_score"`
	ThemeDistribution      map[string]int `json:"theme_distribution"`
	ScoreHistogram         map[string]int `json:"score_histogram"`
	IndustryRepresentation map[string]int `json:"industry_representation,omitempty"`
	ValidatedCount         int            `json:"validated_count"`
}

// CompanyBatch is the envelope returned by the paginated company query.
// Guard violations reuse this shape with Error set and zeroed counts so a
// calling agent can parse the response and self-correct.
type CompanyBatch struct {
	Error      string    `json:"error,omitempty"`
	Companies  []Company `json:"companies"`
	TotalCount int       `json:"total_count"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit"`
	Returned   int       `json:"returned"`
	HasMore    bool      `json:"has_more"`
}

// PressReleaseBatch is the envelope returned by the press-release query.
type PressReleaseBatch struct {
	Error         string         `json:"error,omitempty"`
	PressReleases []PressRelease `json:"press_releases"`
	TotalCount    int            `json:"total_count"`
	Skip          int            `json:"skip"`
	Limit         int            `json:"limit"`
	Returned      int            `json:"returned"`
	HasMore       bool           `json:"has_more"`
}
