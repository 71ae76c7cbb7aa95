package voicegen

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// PillarContext is the slice of a pillar the model sees.
type PillarContext struct {
	ID                 uuid.UUID
	Name               string
	Description        string
	Tone               string
	Audience           string
	CustomInstructions string
}

func PillarContextOf(p *content.Pillar) PillarContext {
	return PillarContext{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Tone:               p.Tone,
		Audience:           p.Audience,
		CustomInstructions: p.CustomInstructions,
	}
}

type Classification struct {
	PillarID   uuid.UUID
	PillarName string
	Confidence float64
	Relevance  float64
	Reasoning  string
	HookAngle  content.HookAngle
	Tags       []string
	Status     content.TopicStatus
	Meta       CallMeta
}

// NeedsReview applies the review thresholds: strictly below either one
// routes the topic to a human.
func (c ClassificationConfig) NeedsReview(confidence, relevance float64) bool {
	return confidence < c.ConfidenceThreshold || relevance < c.RelevanceThreshold
}

// StatusFor maps scores and the caller's manual-approval preference to the
// initial topic status.
func (c ClassificationConfig) StatusFor(confidence, relevance float64, manualApproval bool) content.TopicStatus {
	switch {
	case c.NeedsReview(confidence, relevance):
		return content.TopicNeedsReview
	case manualApproval:
		return content.TopicPending
	default:
		return content.TopicApproved
	}
}

// floorScore truncates to two decimals so a score just under a review
// threshold is never stored or routed as if it met it.
func floorScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return math.Floor(v*100+1e-9) / 100
}

type classifyReply struct {
	PillarNumber int      `json:"pillar_number"`
	Confidence   float64  `json:"confidence"`
	Relevance    float64  `json:"relevance"`
	Reasoning    string   `json:"reasoning"`
	Tags         []string `json:"tags"`
}

type TopicClassifier struct {
	cfg   Config
	gen   GenerationService
	log   *logger.Logger
	hooks Hooks
}

func NewTopicClassifier(cfg Config, gen GenerationService, log *logger.Logger, hooks Hooks) *TopicClassifier {
	if log == nil {
		log = logger.Nop()
	}
	return &TopicClassifier{cfg: cfg, gen: gen, log: log.With("component", "TopicClassifier"), hooks: hooksOrNoop(hooks)}
}

// Classify assigns topic to exactly one of pillars.
func (c *TopicClassifier) Classify(ctx context.Context, topic string, pillars []PillarContext, manualApproval bool) (*Classification, error) {
	ctx, span := tracer.Start(ctx, "voicegen.ClassifyTopic")
	defer span.End()
	span.SetAttributes(attribute.Int("pillars", len(pillars)))

	if strings.TrimSpace(topic) == "" {
		return nil, apperr.Validation("ClassifyTopic", nil, "topic content is empty")
	}
	if len(pillars) == 0 {
		return nil, apperr.New(apperr.CodePreconditionFailed, "ClassifyTopic", "no active pillars", apperr.ErrNoPillarsAvailable)
	}
	req := buildClassifyPrompt(topic, pillars)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	type result struct {
		reply classifyReply
		resp  CompletionResponse
	}
	out, attempts, err := retryCall(ctx, c.cfg.Retry, c.log, c.hooks, "classify_topic", func(ctx context.Context) (result, error) {
		resp, err := c.gen.Complete(ctx, req)
		if err != nil {
			return result{}, err
		}
		var reply classifyReply
		if err := json.Unmarshal([]byte(resp.Text), &reply); err != nil {
			return result{}, apperr.Dependency("classify_topic", true, fmt.Errorf("decode classification: %w", err))
		}
		if reply.PillarNumber < 1 || reply.PillarNumber > len(pillars) {
			return result{}, apperr.Dependency("classify_topic", true, fmt.Errorf("pillar_number %d out of range 1..%d", reply.PillarNumber, len(pillars)))
		}
		return result{reply: reply, resp: resp}, nil
	})
	dur := time.Since(start)
	if err != nil {
		c.hooks.ObserveCall("classify_topic", "error", dur, 0, 0)
		span.RecordError(err)
		return nil, err
	}
	c.hooks.ObserveCall("classify_topic", "ok", dur, out.resp.TokensIn, out.resp.TokensOut)

	p := pillars[out.reply.PillarNumber-1]
	conf := floorScore(out.reply.Confidence)
	rel := floorScore(out.reply.Relevance)
	cl := &Classification{
		PillarID:   p.ID,
		PillarName: p.Name,
		Confidence: conf,
		Relevance:  rel,
		Reasoning:  strings.TrimSpace(out.reply.Reasoning),
		HookAngle:  DeriveHookAngle(out.reply.Reasoning),
		Tags:       NormalizeTags(out.reply.Tags, c.cfg.Generation.MaxTags),
		Status:     c.cfg.Classification.StatusFor(conf, rel, manualApproval),
		Meta: CallMeta{
			Calls:     1,
			Attempts:  attempts,
			TokensIn:  out.resp.TokensIn,
			TokensOut: out.resp.TokensOut,
			Duration:  dur,
		},
	}
	c.hooks.IncClassification(string(cl.Status))
	c.log.Debug("topic classified", "pillar", cl.PillarName, "confidence", conf, "relevance", rel, "status", cl.Status, "hook_angle", cl.HookAngle)
	return cl, nil
}

// ClassifyBatch classifies topics concurrently. The result is index-aligned
// with topics; the first failure cancels the rest and is returned.
func (c *TopicClassifier) ClassifyBatch(ctx context.Context, topics []string, pillars []PillarContext, manualApproval bool) ([]*Classification, error) {
	if len(pillars) == 0 {
		return nil, apperr.New(apperr.CodePreconditionFailed, "ClassifyBatch", "no active pillars", apperr.ErrNoPillarsAvailable)
	}
	out := make([]*Classification, len(topics))
	g, gctx := errgroup.WithContext(ctx)
	limit := c.cfg.Classification.BatchConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i := range topics {
		i := i
		g.Go(func() error {
			cl, err := c.Classify(gctx, topics[i], pillars, manualApproval)
			if err != nil {
				return err
			}
			out[i] = cl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeTags strips '#', whitespace and duplicates, keeping order.
func NormalizeTags(tags []string, max int) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#"))
		t = strings.Join(strings.Fields(t), "")
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}
