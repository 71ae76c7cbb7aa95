package voicegen

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

var tracer = otel.Tracer("postvoice/voicegen")

// VoiceProfileResult is the trained fingerprint for one set of examples.
type VoiceProfileResult struct {
	MasterVector     []float32
	Dimensions       int
	ConsistencyScore float64
	// Used holds the input indexes that passed the length filter; Embeddings
	// is aligned with Used.
	Used       []int
	Embeddings [][]float32
	Meta       CallMeta
}

type VoiceProfileBuilder struct {
	cfg   Config
	embed EmbeddingService
	log   *logger.Logger
	hooks Hooks
}

func NewVoiceProfileBuilder(cfg Config, embed EmbeddingService, log *logger.Logger, hooks Hooks) *VoiceProfileBuilder {
	if log == nil {
		log = logger.Nop()
	}
	return &VoiceProfileBuilder{cfg: cfg, embed: embed, log: log.With("component", "VoiceProfileBuilder"), hooks: hooksOrNoop(hooks)}
}

// Build embeds every usable example and derives the master vector and the
// consistency score. Examples shorter than the minimum are skipped.
func (b *VoiceProfileBuilder) Build(ctx context.Context, texts []string) (*VoiceProfileResult, error) {
	ctx, span := tracer.Start(ctx, "voicegen.BuildVoiceProfile")
	defer span.End()

	used := make([]int, 0, len(texts))
	kept := make([]string, 0, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if utf8.RuneCountInString(t) < b.cfg.Voice.MinExampleChars {
			continue
		}
		used = append(used, i)
		kept = append(kept, t)
	}
	span.SetAttributes(attribute.Int("examples.total", len(texts)), attribute.Int("examples.used", len(kept)))
	if len(kept) < b.cfg.Voice.MinExamples {
		return nil, apperr.Validation("BuildVoiceProfile", apperr.ErrInsufficientData,
			"need at least %d examples of %d+ characters, have %d", b.cfg.Voice.MinExamples, b.cfg.Voice.MinExampleChars, len(kept))
	}

	start := time.Now()
	vectors, meta, err := embedAll(ctx, b.cfg, b.embed, b.log, b.hooks, "embed_examples", kept)
	meta.Duration = time.Since(start)
	if err != nil {
		b.hooks.ObserveCall("voice_profile", "error", meta.Duration, meta.TokensIn, 0)
		span.RecordError(err)
		return nil, err
	}

	mean, stddev := PairwiseStats(vectors)
	score := clampScore(100 * (mean - b.cfg.Voice.VariancePenalty*stddev))
	res := &VoiceProfileResult{
		MasterVector:     Centroid(vectors),
		Dimensions:       len(vectors[0]),
		ConsistencyScore: score,
		Used:             used,
		Embeddings:       vectors,
		Meta:             meta,
	}
	b.hooks.ObserveCall("voice_profile", "ok", meta.Duration, meta.TokensIn, 0)
	b.log.Info("voice profile built",
		"examples", len(kept),
		"skipped", len(texts)-len(kept),
		"dimensions", res.Dimensions,
		"consistency", score,
		"mean_similarity", mean,
		"stddev_similarity", stddev,
	)
	return res, nil
}

// embedAll splits texts into batches, embeds them concurrently and
// reassembles the vectors in input order. Any failed batch fails the call.
func embedAll(ctx context.Context, cfg Config, svc EmbeddingService, log *logger.Logger, hooks Hooks, op string, texts []string) ([][]float32, CallMeta, error) {
	var meta CallMeta
	if svc == nil {
		return nil, meta, apperr.New(apperr.CodeInternal, op, "embedding service not configured", nil)
	}
	batch := cfg.Voice.EmbedBatchSize
	if batch <= 0 {
		batch = len(texts)
	}
	limit := cfg.Voice.EmbedConcurrency
	if limit <= 0 {
		limit = 1
	}

	out := make([][]float32, len(texts))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for lo := 0; lo < len(texts); lo += batch {
		lo := lo
		hi := lo + batch
		if hi > len(texts) {
			hi = len(texts)
		}
		g.Go(func() error {
			req := EmbedRequest{Texts: texts[lo:hi]}
			if err := req.Validate(); err != nil {
				return err
			}
			resp, attempts, err := retryCall(gctx, cfg.Retry, log, hooks, op, func(c context.Context) (EmbedResponse, error) {
				resp, err := svc.Embed(c, req)
				if err != nil {
					return resp, err
				}
				return resp, checkEmbedResponse(op, req, resp)
			})
			mu.Lock()
			meta.Calls++
			meta.Attempts += attempts
			if err == nil {
				meta.TokensIn += resp.Tokens
			}
			mu.Unlock()
			if err != nil {
				return err
			}
			copy(out[lo:hi], resp.Vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, meta, err
	}
	dim := len(out[0])
	for i, v := range out {
		if len(v) != dim {
			return nil, meta, apperr.Dependency(op, false, errDimension(i, len(v), dim))
		}
	}
	return out, meta, nil
}
