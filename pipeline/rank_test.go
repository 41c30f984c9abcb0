package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/model"
)

func ptr(f float64) *float64 { return &f }

func TestMergeAppliesAdjustedScore(t *testing.T) {
	matches := model.MatchedCompanies{Companies: []model.CompanyMatch{
		{Ticker: "NVDA", CompanyName: "NVIDIA", Score: 0.8, MatchedThemes: []string{"ai infrastructure"}},
		{Ticker: "AMD", CompanyName: "AMD", Score: 0.6, MatchedThemes: []string{"ai infrastructure"}},
	}}
	validations := model.ValidatedResults{Validations: []model.CompanyValidation{
		{Ticker: "NVDA", SupportsThemes: true, ConfidenceAdjustment: 0.15, AdjustedScore: ptr(0.95)},
	}}

	rankings := NewRanker(100, zerolog.Nop()).MergeAndRank(matches, validations, "run-1", time.Now())

	byTicker := map[string]model.RankedCompany{}
	for _, rc := range rankings.Rankings {
		byTicker[rc.Ticker] = rc
	}

	nvda := byTicker["NVDA"]
	if nvda.FinalScore != 0.95 {
		t.Errorf("NVDA final score = %v, want 0.95", nvda.FinalScore)
	}
	if nvda.OriginalScore != 0.8 {
		t.Errorf("NVDA original score = %v, want 0.8", nvda.OriginalScore)
	}
	if !nvda.Validated {
		t.Error("NVDA should be marked validated")
	}

	amd := byTicker["AMD"]
	if amd.FinalScore != 0.6 {
		t.Errorf("AMD without validation should keep match score, got %v", amd.FinalScore)
	}
	if amd.Validated || amd.SupportsThemes != nil {
		t.Error("AMD without validation must have empty evidentiary fields")
	}
}

func TestValidationWithoutAdjustedScoreKeepsMatchScore(t *testing.T) {
	matches := model.MatchedCompanies{Companies: []model.CompanyMatch{
		{Ticker: "TSM", CompanyName: "TSMC", Score: 0.7},
	}}
	validations := model.ValidatedResults{Validations: []model.CompanyValidation{
		{Ticker: "TSM", SupportsThemes: true, ConfidenceAdjustment: 0.0},
	}}

	rankings := NewRanker(100, zerolog.Nop()).MergeAndRank(matches, validations, "run-1", time.Now())
	if rankings.Rankings[0].FinalScore != 0.7 {
		t.Errorf("final score = %v, want match score 0.7", rankings.Rankings[0].FinalScore)
	}
	if !rankings.Rankings[0].Validated {
		t.Error("record should still be marked validated")
	}
}

func TestTopKTruncationAndOrder(t *testing.T) {
	matches := model.MatchedCompanies{Companies: []model.CompanyMatch{
		{Ticker: "NVDA", CompanyName: "NVIDIA", Score: 0.95},
		{Ticker: "AMD", CompanyName: "AMD", Score: 0.6},
		{Ticker: "TSM", CompanyName: "TSMC", Score: 0.99},
	}}

	rankings := NewRanker(2, zerolog.Nop()).MergeAndRank(matches, model.ValidatedResults{}, "run-1", time.Now())

	if rankings.TotalMerged != 3 {
		t.Errorf("total merged = %d, want 3", rankings.TotalMerged)
	}
	if len(rankings.Rankings) != 2 {
		t.Fatalf("expected top-2, got %d", len(rankings.Rankings))
	}
	if rankings.Rankings[0].Ticker != "TSM" || rankings.Rankings[0].Rank != 1 {
		t.Errorf("rank 1 should be TSM, got %+v", rankings.Rankings[0])
	}
	if rankings.Rankings[1].Ticker != "NVDA" || rankings.Rankings[1].Rank != 2 {
		t.Errorf("rank 2 should be NVDA, got %+v", rankings.Rankings[1])
	}
}

func TestTieBreakIsStable(t *testing.T) {
	matches := model.MatchedCompanies{Companies: []model.CompanyMatch{
		{Ticker: "AAAA", CompanyName: "First", Score: 0.5},
		{Ticker: "BBBB", CompanyName: "Second", Score: 0.5},
		{Ticker: "CCCC", CompanyName: "Third", Score: 0.5},
	}}

	rankings := NewRanker(10, zerolog.Nop()).MergeAndRank(matches, model.ValidatedResults{}, "run-1", time.Now())
	got := []string{rankings.Rankings[0].Ticker, rankings.Rankings[1].Ticker, rankings.Rankings[2].Ticker}
	want := []string{"AAAA", "BBBB", "CCCC"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tie order changed: got %v, want %v", got, want)
		}
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	matches := model.MatchedCompanies{Companies: []model.CompanyMatch{
		{Ticker: "NVDA", CompanyName: "NVIDIA", Score: 0.8, MatchedThemes: []string{"ai"}},
		{Ticker: "TSM", CompanyName: "TSMC", Score: 0.9, MatchedThemes: []string{"foundry"}},
	}}
	validations := model.ValidatedResults{Validations: []model.CompanyValidation{
		{Ticker: "NVDA", SupportsThemes: true, ConfidenceAdjustment: 0.1, AdjustedScore: ptr(0.92)},
	}}

	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	ranker := NewRanker(10, zerolog.Nop())
	first := ranker.MergeAndRank(matches, validations, "run-1", now)
	second := ranker.MergeAndRank(matches, validations, "run-1", now)

	if len(first.Rankings) != len(second.Rankings) {
		t.Fatal("rerun changed ranking length")
	}
	for i := range first.Rankings {
		if first.Rankings[i].Ticker != second.Rankings[i].Ticker ||
			first.Rankings[i].Rank != second.Rankings[i].Rank ||
			first.Rankings[i].FinalScore != second.Rankings[i].FinalScore {
			t.Errorf("rerun diverged at %d: %+v vs %+v", i, first.Rankings[i], second.Rankings[i])
		}
	}
}

func TestStatistics(t *testing.T) {
	matches := model.MatchedCompanies{Companies: []model.CompanyMatch{
		{Ticker: "NVDA", CompanyName: "NVIDIA", Score: 0.9, MatchedThemes: []string{"ai", "datacenter"}, Industry: "Semiconductors"},
		{Ticker: "AMD", CompanyName: "AMD", Score: 0.5, MatchedThemes: []string{"ai"}, Industry: "Semiconductors"},
		{Ticker: "CRM", CompanyName: "Salesforce", Score: 0.3, MatchedThemes: []string{"saas"}, Industry: "Software"},
	}}
	validations := model.ValidatedResults{Validations: []model.CompanyValidation{
		{Ticker: "NVDA", SupportsThemes: true, ConfidenceAdjustment: 0.05},
	}}

	stats := NewRanker(10, zerolog.Nop()).MergeAndRank(matches, validations, "run-1", time.Now()).Statistics

	if stats.ThemeDistribution["ai"] != 2 {
		t.Errorf("theme 'ai' count = %d, want 2", stats.ThemeDistribution["ai"])
	}
	if stats.ThemeDistribution["datacenter"] != 1 {
		t.Errorf("theme 'datacenter' count = %d, want 1", stats.ThemeDistribution["datacenter"])
	}
	wantAvg := (0.9 + 0.5 + 0.3) / 3
	if diff := stats.AverageFinalScore - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("average = %v, want %v", stats.AverageFinalScore, wantAvg)
	}
	if stats.ScoreHistogram["0.8-1.0"] != 1 || stats.ScoreHistogram["0.4-0.6"] != 1 || stats.ScoreHistogram["0.2-0.4"] != 1 {
		t.Errorf("unexpected histogram: %v", stats.ScoreHistogram)
	}
	if stats.IndustryRepresentation["Semiconductors"] != 2 {
		t.Errorf("industry counts wrong: %v", stats.IndustryRepresentation)
	}
	if stats.ValidatedCount != 1 {
		t.Errorf("validated count = %d, want 1", stats.ValidatedCount)
	}
}

func TestRenderSummary(t *testing.T) {
	matches := model.MatchedCompanies{Companies: []model.CompanyMatch{
		{Ticker: "NVDA", CompanyName: "NVIDIA", Score: 0.9, MatchedThemes: []string{"ai"}},
	}}
	rankings := NewRanker(10, zerolog.Nop()).MergeAndRank(matches, model.ValidatedResults{}, "run-xyz", time.Now())

	summary := RenderSummary(rankings)
	for _, want := range []string{"run-xyz", "NVDA", "ai", "Average final score"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}
