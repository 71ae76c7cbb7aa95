package voicegen

import (
	"testing"

	"github.com/yungbote/postvoice-backend/internal/domain/content"
)

func history(rates ...float64) []content.PerformanceRecord {
	out := make([]content.PerformanceRecord, len(rates))
	for i, r := range rates {
		out[i] = content.PerformanceRecord{Impressions: 1000, EngagementRate: r, WeightedActions: r * 10}
	}
	return out
}

func TestScore_TopPerformerAgainstHistory(t *testing.T) {
	cfg := DefaultConfig().Performance
	in := EngagementInput{Likes: 500, Comments: 80, Reposts: 20, Impressions: 10000}

	got := cfg.Score(in, NewBaseline(history(1.5, 2.0, 2.5)))
	if got.WeightedActions != 720 {
		t.Fatalf("weighted: want=720 got=%v", got.WeightedActions)
	}
	if got.EngagementRate != 7.2 {
		t.Fatalf("rate: want=7.2 got=%v", got.EngagementRate)
	}
	if got.Tier != content.TierTopPerformer || !got.Relative {
		t.Fatalf("want relative top_performer got %s relative=%v", got.Tier, got.Relative)
	}
}

func TestScore_RelativeTiers(t *testing.T) {
	cfg := DefaultConfig().Performance
	base := NewBaseline(history(4, 4, 4))
	cases := []struct {
		actions int
		want    content.PerformanceTier
	}{
		{80, content.TierTopPerformer}, // 8% = 2.0x
		{50, content.TierGood},         // 5% = 1.25x
		{30, content.TierAverage},      // 3% = 0.75x
		{29, content.TierBelowAverage},
	}
	for _, tc := range cases {
		got := cfg.Score(EngagementInput{Likes: tc.actions, Impressions: 1000}, base)
		if got.Tier != tc.want {
			t.Fatalf("likes=%d: want=%s got=%s (rate %v)", tc.actions, tc.want, got.Tier, got.EngagementRate)
		}
	}
}

func TestScore_AbsoluteWithoutHistory(t *testing.T) {
	cfg := DefaultConfig().Performance
	base := NewBaseline(history(1, 1))

	got := cfg.Score(EngagementInput{Likes: 30, Impressions: 1000}, base)
	if got.Relative || got.Tier != content.TierGood {
		t.Fatalf("3%% with thin history: want absolute good got %s relative=%v", got.Tier, got.Relative)
	}
	got = cfg.Score(EngagementInput{Likes: 5, Impressions: 1000}, Baseline{})
	if got.Tier != content.TierBelowAverage {
		t.Fatalf("0.5%%: want below_average got %s", got.Tier)
	}
}

func TestScore_NoImpressions(t *testing.T) {
	cfg := DefaultConfig().Performance

	abs := cfg.Score(EngagementInput{Likes: 100, Comments: 25}, Baseline{})
	if abs.WeightedActions != 150 || abs.Tier != content.TierGood || abs.EngagementRate != 0 {
		t.Fatalf("absolute actions: got %+v", abs)
	}

	base := Baseline{Samples: 5, AvgActions: 100}
	rel := cfg.Score(EngagementInput{Likes: 210}, base)
	if rel.Tier != content.TierTopPerformer || rel.EngagementRate != 210 || !rel.Relative {
		t.Fatalf("relative actions: got %+v", rel)
	}
}

func TestNewBaseline_IgnoresRatesWithoutImpressions(t *testing.T) {
	recs := append(history(2, 4), content.PerformanceRecord{WeightedActions: 100})
	b := NewBaseline(recs)
	if b.Samples != 3 || b.RateSamples != 2 || b.AvgRate != 3 {
		t.Fatalf("unexpected baseline: %+v", b)
	}
}

func TestEngagementInput_RejectsNegative(t *testing.T) {
	if err := (EngagementInput{Likes: -1}).Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}
