package voicegen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

func styleOf(req CompletionRequest) string {
	const marker = "Style for this variant: "
	i := strings.Index(req.System, marker)
	if i < 0 {
		return "unknown"
	}
	rest := req.System[i+len(marker):]
	if j := strings.IndexAny(rest, ".\n"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func draftReplyFor(req CompletionRequest) CompletionResponse {
	s := styleOf(req)
	return jsonReply(map[string]any{
		"hook":           "What shipping daily taught me about " + s + " momentum?",
		"body":           "Shipping small changes every day beats one giant release every quarter.\n\nIn the " + s + " version of this story, momentum compounds.",
		"call_to_action": "How often does your team ship?",
		"tags":           []string{"shipping", s},
	})
}

func trainedInput(t *testing.T, emb *hashEmbedder) GenerateInput {
	t.Helper()
	b := NewVoiceProfileBuilder(testConfig(), emb, logger.Nop(), nil)
	prof, err := b.Build(context.Background(), sameVoice)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return GenerateInput{
		Topic:         TopicContext{ID: uuid.New(), Content: "Why we ship every day", HookAngle: content.HookStorytelling},
		Pillar:        PillarContext{ID: uuid.New(), Name: "Engineering Culture"},
		VoiceExamples: sameVoice,
		MasterVector:  prof.MasterVector,
	}
}

func TestGenerate_ThreeDistinctVariantsWithinCeiling(t *testing.T) {
	emb := &hashEmbedder{dim: 256}
	gen := newScriptedGenerator(func(_ int, req CompletionRequest) (CompletionResponse, error) {
		return draftReplyFor(req), nil
	})
	g := NewDraftGenerator(testConfig(), gen, emb, logger.Nop(), nil)

	res, err := g.Generate(context.Background(), trainedInput(t, emb))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Variants) != 3 {
		t.Fatalf("want 3 variants got %d", len(res.Variants))
	}
	texts := map[string]bool{}
	styles := map[string]bool{}
	for i, v := range res.Variants {
		if v.Label != string(rune('A'+i)) {
			t.Fatalf("variant %d label: got %q", i, v.Label)
		}
		if v.CharCount != utf8.RuneCountInString(v.FullText) || v.CharCount > 3000 {
			t.Fatalf("variant %s char count %d for %d runes", v.Label, v.CharCount, utf8.RuneCountInString(v.FullText))
		}
		if v.Flagged {
			t.Fatalf("variant %s flagged: %v", v.Label, v.Warnings)
		}
		if v.VoiceMatchScore <= 0 || v.VoiceMatchScore > 100 {
			t.Fatalf("variant %s voice match %v", v.Label, v.VoiceMatchScore)
		}
		if v.EstimatedEngagement < 0 || v.EstimatedEngagement > 100 {
			t.Fatalf("variant %s engagement %v", v.Label, v.EstimatedEngagement)
		}
		texts[v.FullText] = true
		styles[v.Style] = true
	}
	if len(texts) != 3 || len(styles) != 3 {
		t.Fatalf("variants not distinct: texts=%d styles=%d", len(texts), len(styles))
	}
	if !styles["Professional"] || !styles["Conversational"] || !styles["Bold"] {
		t.Fatalf("unexpected default styles: %v", styles)
	}
	if res.Meta.Calls < 4 || res.Meta.TokensIn == 0 || res.Meta.TokensOut == 0 {
		t.Fatalf("metadata not populated: %+v", res.Meta)
	}
}

func TestGenerate_RetriesTransientFailureThenSucceeds(t *testing.T) {
	emb := &hashEmbedder{dim: 64}
	gen := newScriptedGenerator(func(call int, req CompletionRequest) (CompletionResponse, error) {
		if call == 1 {
			return CompletionResponse{}, errRateLimited
		}
		return draftReplyFor(req), nil
	})
	g := NewDraftGenerator(testConfig(), gen, emb, logger.Nop(), nil)
	in := trainedInput(t, emb)
	in.Count = 1

	res, err := g.Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := gen.count("linkedin_post"); got != 2 {
		t.Fatalf("want 2 generation calls got %d", got)
	}
	if len(res.Variants) != 1 {
		t.Fatalf("want 1 variant got %d", len(res.Variants))
	}
}

func TestGenerate_NonRetryableFailsImmediately(t *testing.T) {
	emb := &hashEmbedder{dim: 64}
	gen := newScriptedGenerator(func(int, CompletionRequest) (CompletionResponse, error) {
		return CompletionResponse{}, errBadRequest
	})
	g := NewDraftGenerator(testConfig(), gen, emb, logger.Nop(), nil)
	in := trainedInput(t, emb)
	in.Count = 1

	_, err := g.Generate(context.Background(), in)
	if err == nil || apperr.IsRetryable(err) {
		t.Fatalf("want non-retryable error got %v", err)
	}
	if got := gen.count("linkedin_post"); got != 1 {
		t.Fatalf("want exactly 1 call got %d", got)
	}
}

func TestGenerate_RetriesExhausted(t *testing.T) {
	emb := &hashEmbedder{dim: 64}
	gen := newScriptedGenerator(func(int, CompletionRequest) (CompletionResponse, error) {
		return CompletionResponse{}, errRateLimited
	})
	g := NewDraftGenerator(testConfig(), gen, emb, logger.Nop(), nil)
	in := trainedInput(t, emb)
	in.Count = 1

	_, err := g.Generate(context.Background(), in)
	if !apperr.IsRetryable(err) {
		t.Fatalf("want retryable error got %v", err)
	}
	if got := gen.count("linkedin_post"); got != 3 {
		t.Fatalf("want 3 attempts got %d", got)
	}
}

func TestGenerate_OneFailedVariantFailsTheSet(t *testing.T) {
	emb := &hashEmbedder{dim: 64}
	gen := newScriptedGenerator(func(_ int, req CompletionRequest) (CompletionResponse, error) {
		if styleOf(req) == "Bold" {
			return CompletionResponse{}, errBadRequest
		}
		return draftReplyFor(req), nil
	})
	g := NewDraftGenerator(testConfig(), gen, emb, logger.Nop(), nil)

	res, err := g.Generate(context.Background(), trainedInput(t, emb))
	if err == nil || res != nil {
		t.Fatalf("want failure with no partial result, got res=%v err=%v", res, err)
	}
}

func TestGenerate_FlagsButKeepsInvalidVariants(t *testing.T) {
	emb := &hashEmbedder{dim: 64}
	gen := newScriptedGenerator(func(_ int, req CompletionRequest) (CompletionResponse, error) {
		if styleOf(req) == "Professional" {
			return jsonReply(map[string]any{
				"hook":           "",
				"body":           strings.Repeat("momentum compounds ", 200),
				"call_to_action": "",
				"tags":           []string{},
			}), nil
		}
		return draftReplyFor(req), nil
	})
	g := NewDraftGenerator(testConfig(), gen, emb, logger.Nop(), nil)

	res, err := g.Generate(context.Background(), trainedInput(t, emb))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	v := res.Variants[0]
	if v.Style != "Professional" || !v.Flagged {
		t.Fatalf("want flagged Professional variant, got style=%q flagged=%v", v.Style, v.Flagged)
	}
	if v.CharCount <= 3000 {
		t.Fatalf("want oversized body, got %d", v.CharCount)
	}
	joined := strings.Join(v.Warnings, "|")
	for _, want := range []string{"hook is empty", "limit is 3000", "no call to action", "hashtags"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing warning %q in %v", want, v.Warnings)
		}
	}
	if res.Variants[1].Flagged || res.Variants[2].Flagged {
		t.Fatalf("other variants should not be flagged")
	}
}

func TestGenerate_RequiresTrainedVoice(t *testing.T) {
	g := NewDraftGenerator(testConfig(), newScriptedGenerator(nil), &hashEmbedder{dim: 8}, logger.Nop(), nil)
	_, err := g.Generate(context.Background(), GenerateInput{Topic: TopicContext{Content: "x"}})
	if !errors.Is(err, apperr.ErrVoiceNotTrained) {
		t.Fatalf("want ErrVoiceNotTrained got %v", err)
	}
}

func TestResolveStyles(t *testing.T) {
	g := NewDraftGenerator(testConfig(), nil, nil, logger.Nop(), nil)

	got, err := g.ResolveStyles(nil, 0)
	if err != nil || len(got) != 3 {
		t.Fatalf("defaults: want 3 got %d err=%v", len(got), err)
	}
	got, err = g.ResolveStyles([]StyleSpec{{Name: "Witty"}, {Name: "witty"}, {Name: "Dry"}}, 0)
	if err != nil || len(got) != 2 || got[1].Name != "Dry" {
		t.Fatalf("custom dedupe: got %v err=%v", got, err)
	}
	if _, err := g.ResolveStyles([]StyleSpec{{Name: "Witty"}}, 2); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("not enough styles: want validation got %v", err)
	}
	if _, err := g.ResolveStyles(nil, 6); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("too many variants: want validation got %v", err)
	}
}

func TestAssemblePost(t *testing.T) {
	got := AssemblePost("Hook line", " Body ", "", []string{"go", "backend"})
	want := "Hook line\n\nBody\n\n#go #backend"
	if got != want {
		t.Fatalf("want=%q got=%q", want, got)
	}
}
