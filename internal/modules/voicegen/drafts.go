package voicegen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type TopicContext struct {
	ID        uuid.UUID
	Content   string
	HookAngle content.HookAngle
	Tags      []string
}

type GenerateInput struct {
	Topic         TopicContext
	Pillar        PillarContext
	VoiceExamples []string
	MasterVector  []float32
	// Styles overrides the configured defaults; Count <= 0 means one variant
	// per supplied style (or the default count).
	Styles      []StyleSpec
	Count       int
	Perspective string
	Patterns    *PatternSummary
}

type Variant struct {
	Label               string
	Style               string
	Hook                string
	Body                string
	CallToAction        string
	Tags                []string
	FullText            string
	CharCount           int
	VoiceMatchScore     float64
	EstimatedEngagement float64
	Warnings            []string
	Flagged             bool
}

type GenerationResult struct {
	Variants []Variant
	Meta     CallMeta
}

type draftReply struct {
	Hook         string   `json:"hook"`
	Body         string   `json:"body"`
	CallToAction string   `json:"call_to_action"`
	Tags         []string `json:"tags"`
}

type DraftGenerator struct {
	cfg   Config
	gen   GenerationService
	embed EmbeddingService
	log   *logger.Logger
	hooks Hooks
}

func NewDraftGenerator(cfg Config, gen GenerationService, embed EmbeddingService, log *logger.Logger, hooks Hooks) *DraftGenerator {
	if log == nil {
		log = logger.Nop()
	}
	return &DraftGenerator{cfg: cfg, gen: gen, embed: embed, log: log.With("component", "DraftGenerator"), hooks: hooksOrNoop(hooks)}
}

// ResolveStyles picks the distinct style per variant.
func (g *DraftGenerator) ResolveStyles(requested []StyleSpec, count int) ([]StyleSpec, error) {
	base := requested
	if len(base) == 0 {
		base = g.cfg.Generation.DefaultStyles
		if count <= 0 {
			count = g.cfg.Generation.DefaultCount
		}
	}
	seen := map[string]bool{}
	distinct := make([]StyleSpec, 0, len(base))
	for _, s := range base {
		s.Name = strings.TrimSpace(s.Name)
		key := strings.ToLower(s.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		distinct = append(distinct, s)
	}
	if count <= 0 {
		count = len(distinct)
	}
	if count == 0 {
		return nil, apperr.Validation("GenerateDrafts", nil, "no styles to generate")
	}
	if count > g.cfg.Generation.MaxCount {
		return nil, apperr.Validation("GenerateDrafts", nil, "at most %d variants per topic", g.cfg.Generation.MaxCount)
	}
	if len(distinct) < count {
		return nil, apperr.Validation("GenerateDrafts", nil, "need %d distinct styles, have %d", count, len(distinct))
	}
	return distinct[:count], nil
}

// Generate produces one variant per style. Variants are all-or-nothing: a
// single failed call fails the set.
func (g *DraftGenerator) Generate(ctx context.Context, in GenerateInput) (*GenerationResult, error) {
	ctx, span := tracer.Start(ctx, "voicegen.GenerateDrafts")
	defer span.End()

	if strings.TrimSpace(in.Topic.Content) == "" {
		return nil, apperr.Validation("GenerateDrafts", nil, "topic content is empty")
	}
	if len(in.MasterVector) == 0 {
		return nil, apperr.New(apperr.CodePreconditionFailed, "GenerateDrafts", "voice profile has no master vector", apperr.ErrVoiceNotTrained)
	}
	styles, err := g.ResolveStyles(in.Styles, in.Count)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("variants", len(styles)))

	start := time.Now()
	replies := make([]draftReply, len(styles))
	metas := make([]CallMeta, len(styles))
	eg, ectx := errgroup.WithContext(ctx)
	for i, style := range styles {
		i, style := i, style
		eg.Go(func() error {
			req := buildDraftPrompt(g.cfg.Generation, in, style)
			if err := req.Validate(); err != nil {
				return err
			}
			type result struct {
				reply draftReply
				resp  CompletionResponse
			}
			out, attempts, err := retryCall(ectx, g.cfg.Retry, g.log, g.hooks, "generate_draft", func(ctx context.Context) (result, error) {
				resp, err := g.gen.Complete(ctx, req)
				if err != nil {
					return result{}, err
				}
				var reply draftReply
				if err := json.Unmarshal([]byte(resp.Text), &reply); err != nil {
					return result{}, apperr.Dependency("generate_draft", true, fmt.Errorf("decode draft: %w", err))
				}
				return result{reply: reply, resp: resp}, nil
			})
			metas[i] = CallMeta{Calls: 1, Attempts: attempts}
			if err != nil {
				g.log.Warn("variant generation failed", "style", style.Name, "attempts", attempts, "error", err)
				return err
			}
			metas[i].TokensIn = out.resp.TokensIn
			metas[i].TokensOut = out.resp.TokensOut
			replies[i] = out.reply
			return nil
		})
	}
	err = eg.Wait()
	var meta CallMeta
	for _, m := range metas {
		meta.add(m)
	}
	if err != nil {
		meta.Duration = time.Since(start)
		g.hooks.ObserveCall("generate_drafts", "error", meta.Duration, meta.TokensIn, meta.TokensOut)
		span.RecordError(err)
		return nil, err
	}

	variants := make([]Variant, len(styles))
	texts := make([]string, len(styles))
	for i, r := range replies {
		variants[i] = g.assemble(variantLabel(i), styles[i].Name, r)
		texts[i] = variants[i].FullText
		if strings.TrimSpace(texts[i]) == "" {
			// still embeddable; flagged by validation below
			texts[i] = styles[i].Name
		}
	}

	vectors, embedMeta, err := embedAll(ctx, g.cfg, g.embed, g.log, g.hooks, "embed_variants", texts)
	meta.add(embedMeta)
	meta.Duration = time.Since(start)
	if err != nil {
		g.hooks.ObserveCall("generate_drafts", "error", meta.Duration, meta.TokensIn, meta.TokensOut)
		span.RecordError(err)
		return nil, err
	}
	if len(vectors[0]) != len(in.MasterVector) {
		return nil, apperr.Invariant("GenerateDrafts", nil, "variant embedding dimension %d does not match voice profile %d", len(vectors[0]), len(in.MasterVector))
	}

	for i := range variants {
		variants[i].VoiceMatchScore = clampScore(100 * Cosine(vectors[i], in.MasterVector))
	}
	g.validate(variants, vectors)
	for i := range variants {
		variants[i].EstimatedEngagement = EstimateEngagement(g.cfg.Generation, variants[i], in.Patterns)
	}

	g.hooks.ObserveCall("generate_drafts", "ok", meta.Duration, meta.TokensIn, meta.TokensOut)
	g.log.Info("drafts generated",
		"topic_id", in.Topic.ID,
		"variants", len(variants),
		"attempts", meta.Attempts,
		"tokens_in", meta.TokensIn,
		"tokens_out", meta.TokensOut,
		"duration_ms", meta.Duration.Milliseconds(),
	)
	return &GenerationResult{Variants: variants, Meta: meta}, nil
}

func (g *DraftGenerator) assemble(label, style string, r draftReply) Variant {
	v := Variant{
		Label:        label,
		Style:        style,
		Hook:         strings.TrimSpace(r.Hook),
		Body:         strings.TrimSpace(r.Body),
		CallToAction: strings.TrimSpace(r.CallToAction),
		Tags:         NormalizeTags(r.Tags, 0),
	}
	v.FullText = AssemblePost(v.Hook, v.Body, v.CallToAction, v.Tags)
	v.CharCount = content.CharCountOf(v.FullText)
	return v
}

// AssemblePost joins the post sections with blank lines and renders tags as
// hashtags on the last line.
func AssemblePost(hook, body, cta string, tags []string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{hook, body, cta} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(tags) > 0 {
		hashed := make([]string, len(tags))
		for i, t := range tags {
			hashed[i] = "#" + t
		}
		parts = append(parts, strings.Join(hashed, " "))
	}
	return strings.Join(parts, "\n\n")
}

// validate flags structural violations and records softer quality warnings.
// Nothing is dropped.
func (g *DraftGenerator) validate(vs []Variant, vectors [][]float32) {
	cfg := g.cfg.Generation
	for i := range vs {
		v := &vs[i]
		if v.Hook == "" {
			v.flag("hook is empty")
		}
		if v.Body == "" {
			v.flag("body is empty")
		}
		if v.CharCount > cfg.MaxChars {
			v.flag(fmt.Sprintf("post is %d characters, limit is %d", v.CharCount, cfg.MaxChars))
		}
		if cfg.HookFoldChars > 0 && content.CharCountOf(v.Hook) > cfg.HookFoldChars {
			v.warn(fmt.Sprintf("hook runs past the %d character fold", cfg.HookFoldChars))
		}
		if v.CallToAction == "" {
			v.warn("no call to action")
		}
		if n := len(v.Tags); n < cfg.MinTags || (cfg.MaxTags > 0 && n > cfg.MaxTags) {
			v.warn(fmt.Sprintf("%d hashtags, expected %d-%d", n, cfg.MinTags, cfg.MaxTags))
		}
		if cfg.LowVoiceMatch > 0 && v.VoiceMatchScore < cfg.LowVoiceMatch {
			v.warn(fmt.Sprintf("voice match %.0f is below %.0f", v.VoiceMatchScore, cfg.LowVoiceMatch))
		}
		for j := 0; j < i; j++ {
			if vs[j].FullText == v.FullText || (cfg.DuplicateSimilarity > 0 && Cosine(vectors[i], vectors[j]) >= cfg.DuplicateSimilarity) {
				v.warn("near-duplicate of variant " + vs[j].Label)
				break
			}
		}
	}
}

func (v *Variant) flag(msg string) {
	v.Flagged = true
	v.Warnings = append(v.Warnings, msg)
}

func (v *Variant) warn(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

func variantLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("V%d", i+1)
}

// EstimateEngagement is a 0-100 heuristic from structure, voice match and,
// when available, the creator's winning patterns.
func EstimateEngagement(cfg GenerationConfig, v Variant, patterns *PatternSummary) float64 {
	score := 40.0
	score += v.VoiceMatchScore * 0.2
	switch HookStyleOf(v.Hook) {
	case HookStyleQuestion, HookStyleNumber:
		score += 8
	case HookStyleStory:
		score += 5
	}
	switch {
	case v.CharCount >= 600 && v.CharCount <= 1800:
		score += 12
	case v.CharCount < 300:
		score -= 10
	}
	if v.CallToAction != "" {
		score += 5
	}
	if n := len(v.Tags); n >= cfg.MinTags && (cfg.MaxTags == 0 || n <= cfg.MaxTags) {
		score += 5
	}
	if patterns != nil && patterns.SampleSize > 0 {
		if patterns.TopStyle != "" && strings.EqualFold(patterns.TopStyle, v.Style) {
			score += 5
		}
		if patterns.DominantHookStyle != "" && patterns.DominantHookStyle == HookStyleOf(v.Hook) {
			score += 5
		}
		if patterns.AvgLength > 0 {
			lo, hi := float64(patterns.AvgLength)*0.75, float64(patterns.AvgLength)*1.25
			if c := float64(v.CharCount); c >= lo && c <= hi {
				score += 5
			}
		}
	}
	if v.Flagged {
		score -= 20
	}
	return clampScore(score)
}
