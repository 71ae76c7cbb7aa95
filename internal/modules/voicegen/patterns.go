package voicegen

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/yungbote/postvoice-backend/internal/domain/content"
)

const (
	HookStyleQuestion  = "question"
	HookStyleNumber    = "number"
	HookStyleStory     = "story"
	HookStyleStatement = "statement"
)

var (
	leadingNumber = regexp.MustCompile(`^\W*\d`)
	firstPerson   = regexp.MustCompile(`(?i)^\W*(i|i'm|i've|my|we|last|yesterday|when i)\b`)
)

// HookStyleOf buckets an opening line for pattern statistics.
func HookStyleOf(hook string) string {
	h := strings.TrimSpace(hook)
	if h == "" {
		return ""
	}
	first := h
	if i := strings.IndexByte(h, '\n'); i >= 0 {
		first = h[:i]
	}
	switch {
	case strings.Contains(first, "?"):
		return HookStyleQuestion
	case leadingNumber.MatchString(first):
		return HookStyleNumber
	case firstPerson.MatchString(first):
		return HookStyleStory
	default:
		return HookStyleStatement
	}
}

// PerformedPost is a posted draft joined with its performance record.
type PerformedPost struct {
	Style          string
	Hook           string
	CharCount      int
	Tags           []string
	HookAngle      content.HookAngle
	PillarName     string
	EngagementRate float64
	Tier           content.PerformanceTier
}

// PatternSummary is what top performers have in common.
type PatternSummary struct {
	SampleSize        int                `json:"sample_size"`
	DominantHookStyle string             `json:"dominant_hook_style"`
	HookStyleShare    map[string]float64 `json:"hook_style_share"`
	DominantAngle     string             `json:"dominant_angle,omitempty"`
	TopStyle          string             `json:"top_style,omitempty"`
	AvgLength         int                `json:"avg_length"`
	MinLength         int                `json:"min_length"`
	MaxLength         int                `json:"max_length"`
	TopTags           []string           `json:"top_tags,omitempty"`
	TopPillars        []string           `json:"top_pillars,omitempty"`
	AvgEngagementRate float64            `json:"avg_engagement_rate"`
}

// DerivePatterns summarizes the best posts. Posts are ranked by tier then
// rate and only the first cfg.Window are considered.
func DerivePatterns(posts []PerformedPost, cfg PatternConfig) *PatternSummary {
	ranked := make([]PerformedPost, 0, len(posts))
	for _, p := range posts {
		if p.Tier.Rank() >= content.TierGood.Rank() {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Tier.Rank() != ranked[j].Tier.Rank() {
			return ranked[i].Tier.Rank() > ranked[j].Tier.Rank()
		}
		return ranked[i].EngagementRate > ranked[j].EngagementRate
	})
	if cfg.Window > 0 && len(ranked) > cfg.Window {
		ranked = ranked[:cfg.Window]
	}
	if len(ranked) == 0 || len(ranked) < cfg.MinSamples {
		return nil
	}

	hookStyles := map[string]int{}
	angles := map[string]int{}
	styles := map[string]int{}
	tags := map[string]int{}
	pillars := map[string]int{}
	total, rate := 0, 0.0
	minLen, maxLen := math.MaxInt, 0
	for _, p := range ranked {
		if hs := HookStyleOf(p.Hook); hs != "" {
			hookStyles[hs]++
		}
		if p.HookAngle != "" {
			angles[string(p.HookAngle)]++
		}
		if p.Style != "" {
			styles[p.Style]++
		}
		for _, t := range p.Tags {
			tags[strings.ToLower(t)]++
		}
		if p.PillarName != "" {
			pillars[p.PillarName]++
		}
		total += p.CharCount
		rate += p.EngagementRate
		if p.CharCount < minLen {
			minLen = p.CharCount
		}
		if p.CharCount > maxLen {
			maxLen = p.CharCount
		}
	}
	n := len(ranked)
	share := make(map[string]float64, len(hookStyles))
	for k, v := range hookStyles {
		share[k] = math.Round(float64(v)/float64(n)*100) / 100
	}
	return &PatternSummary{
		SampleSize:        n,
		DominantHookStyle: topKeys(hookStyles, 1).first(),
		HookStyleShare:    share,
		DominantAngle:     topKeys(angles, 1).first(),
		TopStyle:          topKeys(styles, 1).first(),
		AvgLength:         total / n,
		MinLength:         minLen,
		MaxLength:         maxLen,
		TopTags:           topKeys(tags, 5),
		TopPillars:        topKeys(pillars, 3),
		AvgEngagementRate: math.Round(rate/float64(n)*100) / 100,
	}
}

// PromptContext renders the summary for the draft prompt.
func (p *PatternSummary) PromptContext() string {
	if p == nil || p.SampleSize == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "What has worked for this creator (from %d top posts):\n", p.SampleSize)
	if p.DominantHookStyle != "" {
		fmt.Fprintf(&b, "- hooks that open with a %s performed best\n", p.DominantHookStyle)
	}
	if p.DominantAngle != "" {
		fmt.Fprintf(&b, "- the %s angle resonated most\n", p.DominantAngle)
	}
	if p.AvgLength > 0 {
		fmt.Fprintf(&b, "- typical length %d-%d characters\n", p.MinLength, p.MaxLength)
	}
	if len(p.TopTags) > 0 {
		fmt.Fprintf(&b, "- hashtags that travelled: %s\n", strings.Join(p.TopTags, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

type keyList []string

func (k keyList) first() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// topKeys orders by count desc then key asc so ties are stable.
func topKeys(m map[string]int, n int) keyList {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// PostPattern is the per-post snapshot stored on a top performer's record.
type PostPattern struct {
	HookStyle string   `json:"hook_style"`
	HookAngle string   `json:"hook_angle,omitempty"`
	Style     string   `json:"style,omitempty"`
	Length    int      `json:"length"`
	Tags      []string `json:"tags,omitempty"`
}

func ExtractPattern(p PerformedPost) PostPattern {
	return PostPattern{
		HookStyle: HookStyleOf(p.Hook),
		HookAngle: string(p.HookAngle),
		Style:     p.Style,
		Length:    p.CharCount,
		Tags:      p.Tags,
	}
}
