package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/richinex/themescout/artifact"
)

type stubContent struct {
	marketing []string
	social    []string
}

func (s *stubContent) FetchMarketing(_ context.Context, _ string) ([]string, error) {
	return s.marketing, nil
}

func (s *stubContent) FetchSocial(_ context.Context, _ string, limit int) ([]string, error) {
	if len(s.social) > limit {
		return s.social[:limit], nil
	}
	return s.social, nil
}

func TestNarrativeCompare(t *testing.T) {
	content := &stubContent{
		marketing: []string{"Blazing fast sync across all your devices.", "Enterprise-grade security."},
		social:    []string{"sync keeps dropping on android", "love the speed though"},
	}
	// Plain-text responses: the comparer calls the model directly, no
	// decision protocol involved.
	provider := &scriptedProvider{responses: []string{
		"Marketing positions the product around speed and security.",
		"Users praise the speed but report sync reliability problems.",
		"Both narratives agree on speed; reliability only appears in the community voice.",
	}}

	store := artifact.NewMemoryStore()
	defer store.Close()

	comparer := NewNarrativeComparer(provider, content, store, 100_000, zerolog.Nop())
	report, err := comparer.Compare(context.Background(), "syncbox")
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}

	if report.Product != "syncbox" || report.MarketingDocs != 2 || report.SocialDocs != 2 {
		t.Errorf("unexpected report metadata: %+v", report)
	}
	if !strings.Contains(report.Comparison, "reliability") {
		t.Errorf("comparison not propagated: %q", report.Comparison)
	}

	run := artifact.NewRunStore(store, report.RunID)
	for _, key := range []string{KeyMarketingSummary, KeySocialSummary, KeyNarrativeComparison, "narrative/report.json"} {
		if _, err := run.Read(context.Background(), key); err != nil {
			t.Errorf("artifact %s missing: %v", key, err)
		}
	}
}

func TestNarrativeCompareNoContent(t *testing.T) {
	provider := &scriptedProvider{}
	store := artifact.NewMemoryStore()
	defer store.Close()

	comparer := NewNarrativeComparer(provider, &stubContent{}, store, 100_000, zerolog.Nop())
	if _, err := comparer.Compare(context.Background(), "ghostware"); err == nil {
		t.Fatal("expected error when both corpora are empty")
	}
}
