package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/artifact"
	"github.com/richinex/themescout/config"
	"github.com/richinex/themescout/llm"
	"github.com/richinex/themescout/model"
)

// scriptedProvider replays canned agent decisions in order across all
// stage agents.
type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-model" }

func (p *scriptedProvider) Chat(_ context.Context, _ []llm.ChatMessage) (llm.LLMResponse, error) {
	if p.calls >= len(p.responses) {
		return llm.LLMResponse{Content: `{"thought": "nothing left", "is_final": true, "final_answer": "done"}`}, nil
	}
	resp := p.responses[p.calls]
	p.calls++
	return llm.LLMResponse{Content: resp}, nil
}

func (p *scriptedProvider) StreamChat(ctx context.Context, messages []llm.ChatMessage, chunks chan<- string) (*llm.TokenUsage, error) {
	resp, err := p.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}
	chunks <- resp.Content
	return nil, nil
}

// fakePager serves a fixed company universe.
type fakePager struct {
	companies []model.Company
}

func (f *fakePager) FetchPage(_ context.Context, offset, limit int) ([]model.Company, int, error) {
	total := len(f.companies)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return f.companies[offset:end], total, nil
}

// fakeFetcher serves fixed press releases per symbol.
type fakeFetcher struct {
	releases map[string][]model.PressRelease
}

func (f *fakeFetcher) FetchBySymbol(_ context.Context, symbol string, limit int) ([]model.PressRelease, int, error) {
	all := f.releases[symbol]
	if len(all) > limit {
		return all[:limit], len(all), nil
	}
	return all, len(all), nil
}

func toolCall(t *testing.T, thought, tool string, input interface{}) string {
	t.Helper()
	inputJSON, err := json.Marshal(input)
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}
	decision := map[string]interface{}{
		"thought":  thought,
		"action":   map[string]interface{}{"tool": tool, "input": json.RawMessage(inputJSON)},
		"is_final": false,
	}
	out, err := json.Marshal(decision)
	if err != nil {
		t.Fatalf("marshal decision: %v", err)
	}
	return string(out)
}

func finish(answer string) string {
	out, _ := json.Marshal(map[string]interface{}{
		"thought":      "stage complete",
		"is_final":     true,
		"final_answer": answer,
	})
	return string(out)
}

func writeArtifactCall(t *testing.T, key string, content interface{}) string {
	t.Helper()
	body, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	return toolCall(t, "saving "+key, "write_artifact", map[string]string{
		"key":     key,
		"content": string(body),
	})
}

func TestOrchestratorFullRun(t *testing.T) {
	pager := &fakePager{companies: []model.Company{
		{Ticker: "AMD", CompanyName: "AMD", Industry: "Semiconductors"},
		{Ticker: "NVDA", CompanyName: "NVIDIA", Industry: "Semiconductors"},
		{Ticker: "ZM", CompanyName: "Zoom", Industry: "Software"},
	}}
	fetcher := &fakeFetcher{releases: map[string][]model.PressRelease{
		"NVDA": {{Symbol: "NVDA", Date: "2025-06-01", Title: "AI accelerator launch", Content: "new datacenter GPU"}},
	}}

	adjusted := 0.95
	provider := &scriptedProvider{responses: []string{
		// Analyze
		writeArtifactCall(t, model.KeyThemesAnalysis, model.ThemesAnalysis{
			Themes: []model.Theme{{Name: "ai infrastructure", Keywords: []string{"gpu", "datacenter"}}},
		}),
		finish("themes saved"),
		// Match: two batches of two over a universe of three
		toolCall(t, "first batch", "get_company_batch", map[string]int{"offset": 0}),
		writeArtifactCall(t, "company_matches/batch_0000.json", model.MatchBatchFile{Matches: []model.CompanyMatch{
			{Ticker: "NVDA", CompanyName: "NVIDIA", Score: 0.8, MatchedThemes: []string{"ai infrastructure"}, Industry: "Semiconductors"},
		}}),
		toolCall(t, "second batch", "get_company_batch", map[string]int{"offset": 2}),
		writeArtifactCall(t, "company_matches/batch_0002.json", model.MatchBatchFile{Matches: []model.CompanyMatch{}}),
		finish("universe matched"),
		// Validate
		toolCall(t, "what is pending", "list_matched_tickers", map[string]string{}),
		toolCall(t, "check NVDA", "get_press_releases", map[string]interface{}{"symbols": []string{"NVDA"}}),
		writeArtifactCall(t, "validations/company_NVDA.json", model.CompanyValidation{
			Ticker:               "NVDA",
			SupportsThemes:       true,
			ConfidenceAdjustment: 0.15,
			AdjustedScore:        &adjusted,
			KeyEvidence:          []model.Evidence{{Evidence: "datacenter GPU launch", Title: "AI accelerator launch"}},
		}),
		finish("all tickers validated"),
		// Report
		toolCall(t, "read rankings", "read_artifact", map[string]string{"key": model.KeyFinalRankings}),
		toolCall(t, "write report", "write_artifact", map[string]string{
			"key":     model.KeyFinalReport,
			"content": "NVDA leads the ai infrastructure theme.",
		}),
		finish("report written"),
	}}

	store := artifact.NewMemoryStore()
	defer store.Close()

	cfg := config.PipelineConfig{
		CompanyBatchSize:  2,
		PressReleaseLimit: 100,
		TopK:              10,
		ContextWindow:     1_000_000,
		MaxOutputTokens:   1_000,
	}

	orch := NewOrchestrator(provider, store, pager, fetcher, cfg, 10, zerolog.Nop())
	rankings, err := orch.Run(context.Background(), "panel discussion about AI datacenters")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(rankings.Rankings) != 1 {
		t.Fatalf("expected 1 ranked company, got %d", len(rankings.Rankings))
	}
	top := rankings.Rankings[0]
	if top.Ticker != "NVDA" || top.Rank != 1 {
		t.Errorf("unexpected top company: %+v", top)
	}
	if top.FinalScore != 0.95 {
		t.Errorf("validation adjustment not applied: %v", top.FinalScore)
	}
	if !top.Validated {
		t.Error("top company should be validated")
	}

	// All terminal artifacts present under the run.
	run := artifact.NewRunStore(store, rankings.RunID)
	for _, key := range []string{
		model.KeyThemesAnalysis,
		model.KeyMatchedCompanies,
		model.KeyValidatedResults,
		model.KeyFinalRankings,
		model.KeyRankingSummary,
		model.KeyFinalReport,
	} {
		if _, err := run.Read(context.Background(), key); err != nil {
			t.Errorf("artifact %s missing: %v", key, err)
		}
	}
}

func TestOrchestratorFailsWithoutThemes(t *testing.T) {
	// Agent finishes without writing the themes artifact.
	provider := &scriptedProvider{responses: []string{
		finish("forgot to save anything"),
	}}

	store := artifact.NewMemoryStore()
	defer store.Close()

	cfg := config.PipelineConfig{
		CompanyBatchSize: 50, PressReleaseLimit: 100, TopK: 10,
		ContextWindow: 1_000_000, MaxOutputTokens: 1_000,
	}
	orch := NewOrchestrator(provider, store, &fakePager{}, &fakeFetcher{}, cfg, 3, zerolog.Nop())

	if _, err := orch.Run(context.Background(), "transcript"); err == nil {
		t.Fatal("expected analyze stage to fail without themes artifact")
	}
}
