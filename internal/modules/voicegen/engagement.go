package voicegen

import (
	"math"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
)

type EngagementInput struct {
	Likes       int
	Comments    int
	Reposts     int
	Impressions int
}

func (in EngagementInput) Validate() error {
	if in.Likes < 0 || in.Comments < 0 || in.Reposts < 0 || in.Impressions < 0 {
		return apperr.Validation("RecordPerformance", nil, "engagement counts must be non-negative")
	}
	return nil
}

// Baseline is the creator's recent history, excluding the post being scored.
type Baseline struct {
	Samples     int
	RateSamples int
	AvgRate     float64
	AvgActions  float64
}

// NewBaseline averages historical records. Rates are only averaged over
// records that had impressions.
func NewBaseline(history []content.PerformanceRecord) Baseline {
	var b Baseline
	var rateSum, actionSum float64
	for _, r := range history {
		b.Samples++
		actionSum += r.WeightedActions
		if r.Impressions > 0 {
			b.RateSamples++
			rateSum += r.EngagementRate
		}
	}
	if b.Samples > 0 {
		b.AvgActions = actionSum / float64(b.Samples)
	}
	if b.RateSamples > 0 {
		b.AvgRate = rateSum / float64(b.RateSamples)
	}
	return b
}

type EngagementScore struct {
	WeightedActions float64
	// EngagementRate is weighted actions per 100 impressions when impressions
	// are known, otherwise weighted actions as a percentage of the creator's
	// average (0 without history).
	EngagementRate float64
	Tier           content.PerformanceTier
	Relative       bool
}

func (c PerformanceConfig) Weighted(in EngagementInput) float64 {
	return float64(in.Likes)*c.LikeWeight + float64(in.Comments)*c.CommentWeight + float64(in.Reposts)*c.RepostWeight
}

// Score computes the weighted actions, the engagement rate and the tier.
// With enough history the tier is relative to the creator's own average;
// otherwise absolute thresholds apply.
func (c PerformanceConfig) Score(in EngagementInput, base Baseline) EngagementScore {
	w := c.Weighted(in)
	out := EngagementScore{WeightedActions: w}
	if in.Impressions > 0 {
		out.EngagementRate = round2(w / float64(in.Impressions) * 100)
		if base.RateSamples >= c.MinHistory && base.AvgRate > 0 {
			out.Tier = c.tierByRatio(out.EngagementRate / base.AvgRate)
			out.Relative = true
		} else {
			out.Tier = tierByThresholds(out.EngagementRate, c.AbsoluteRate)
		}
		return out
	}
	if base.Samples >= c.MinHistory && base.AvgActions > 0 {
		ratio := w / base.AvgActions
		out.EngagementRate = round2(ratio * 100)
		out.Tier = c.tierByRatio(ratio)
		out.Relative = true
		return out
	}
	out.Tier = tierByThresholds(w, c.AbsoluteActions)
	return out
}

func (c PerformanceConfig) tierByRatio(r float64) content.PerformanceTier {
	switch {
	case r >= c.TopRatio:
		return content.TierTopPerformer
	case r >= c.GoodRatio:
		return content.TierGood
	case r >= c.AverageRatio:
		return content.TierAverage
	default:
		return content.TierBelowAverage
	}
}

func tierByThresholds(v float64, t TierThresholds) content.PerformanceTier {
	switch {
	case v >= t.Top:
		return content.TierTopPerformer
	case v >= t.Good:
		return content.TierGood
	case v >= t.Average:
		return content.TierAverage
	default:
		return content.TierBelowAverage
	}
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
