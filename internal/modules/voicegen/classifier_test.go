package voicegen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

func testPillars() []PillarContext {
	return []PillarContext{
		{ID: uuid.New(), Name: "AI Innovation", Description: "Applied machine learning in products"},
		{ID: uuid.New(), Name: "Leadership", Description: "Managing engineering teams"},
	}
}

func classifyWith(conf, rel float64, pillar int) *scriptedGenerator {
	return newScriptedGenerator(func(int, CompletionRequest) (CompletionResponse, error) {
		return jsonReply(map[string]any{
			"pillar_number": pillar,
			"confidence":    conf,
			"relevance":     rel,
			"reasoning":     "A personal story about shipping the first model works well here.",
			"tags":          []string{"#AI", "ml", "ai"},
		}), nil
	})
}

func TestClassify_AssignsExistingPillar(t *testing.T) {
	pillars := testPillars()
	c := NewTopicClassifier(testConfig(), classifyWith(90, 85, 2), logger.Nop(), nil)

	cl, err := c.Classify(context.Background(), "How I grew a team from 3 to 30", pillars, false)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if cl.PillarID != pillars[1].ID || cl.PillarName != "Leadership" {
		t.Fatalf("unexpected pillar: %v %q", cl.PillarID, cl.PillarName)
	}
	if cl.Status != content.TopicApproved {
		t.Fatalf("status: want=approved got=%s", cl.Status)
	}
	if cl.HookAngle != content.HookStorytelling {
		t.Fatalf("hook angle: want=storytelling got=%s", cl.HookAngle)
	}
	if len(cl.Tags) != 2 || cl.Tags[0] != "AI" || cl.Tags[1] != "ml" {
		t.Fatalf("unexpected tags: %v", cl.Tags)
	}
}

func TestClassify_ReviewThresholdBoundaries(t *testing.T) {
	cases := []struct {
		conf, rel float64
		manual    bool
		want      content.TopicStatus
	}{
		{70, 60, false, content.TopicApproved},
		{70, 60, true, content.TopicPending},
		{69, 60, false, content.TopicNeedsReview},
		{70, 59, false, content.TopicNeedsReview},
		{69, 59, true, content.TopicNeedsReview},
		{69.996, 60, false, content.TopicNeedsReview},
		{70, 59.999, false, content.TopicNeedsReview},
	}
	for _, tc := range cases {
		c := NewTopicClassifier(testConfig(), classifyWith(tc.conf, tc.rel, 1), logger.Nop(), nil)
		cl, err := c.Classify(context.Background(), "topic", testPillars(), tc.manual)
		if err != nil {
			t.Fatalf("Classify(%v,%v): %v", tc.conf, tc.rel, err)
		}
		if cl.Status != tc.want {
			t.Fatalf("conf=%v rel=%v manual=%v: want=%s got=%s", tc.conf, tc.rel, tc.manual, tc.want, cl.Status)
		}
	}
}

func TestClassify_ScoresTruncateNotRound(t *testing.T) {
	c := NewTopicClassifier(testConfig(), classifyWith(69.996, 70.1, 1), logger.Nop(), nil)
	cl, err := c.Classify(context.Background(), "topic", testPillars(), false)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if cl.Confidence != 69.99 {
		t.Fatalf("confidence: want=69.99 got=%v", cl.Confidence)
	}
	if cl.Relevance != 70.1 {
		t.Fatalf("relevance: want=70.1 got=%v", cl.Relevance)
	}
	if cl.Status != content.TopicNeedsReview {
		t.Fatalf("status: want=%s got=%s", content.TopicNeedsReview, cl.Status)
	}
}

func TestClassify_NoPillars(t *testing.T) {
	c := NewTopicClassifier(testConfig(), classifyWith(90, 90, 1), logger.Nop(), nil)
	_, err := c.Classify(context.Background(), "topic", nil, false)
	if !errors.Is(err, apperr.ErrNoPillarsAvailable) {
		t.Fatalf("want ErrNoPillarsAvailable got %v", err)
	}
}

func TestClassify_OutOfRangePillarIsRetried(t *testing.T) {
	gen := newScriptedGenerator(func(call int, _ CompletionRequest) (CompletionResponse, error) {
		pillar := 7
		if call > 1 {
			pillar = 1
		}
		return jsonReply(map[string]any{"pillar_number": pillar, "confidence": 80, "relevance": 80, "reasoning": "", "tags": []string{}}), nil
	})
	c := NewTopicClassifier(testConfig(), gen, logger.Nop(), nil)

	cl, err := c.Classify(context.Background(), "topic", testPillars(), false)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if cl.Meta.Attempts != 2 || gen.count("topic_classification") != 2 {
		t.Fatalf("want 2 attempts got meta=%d calls=%d", cl.Meta.Attempts, gen.count("topic_classification"))
	}
	if cl.HookAngle != content.HookAnalytical {
		t.Fatalf("empty reasoning: want analytical got %s", cl.HookAngle)
	}
}

func TestClassifyBatch_IndexAligned(t *testing.T) {
	pillars := testPillars()
	gen := newScriptedGenerator(func(_ int, req CompletionRequest) (CompletionResponse, error) {
		pillar := 1
		if strings.Contains(req.User, "rituals") {
			pillar = 2
		}
		return jsonReply(map[string]any{"pillar_number": pillar, "confidence": 80, "relevance": 80, "reasoning": "survey data", "tags": []string{"x"}}), nil
	})
	c := NewTopicClassifier(testConfig(), gen, logger.Nop(), nil)

	out, err := c.ClassifyBatch(context.Background(), []string{"model evals", "team rituals", "vector search"}, pillars, false)
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}
	want := []uuid.UUID{pillars[0].ID, pillars[1].ID, pillars[0].ID}
	for i := range want {
		if out[i].PillarID != want[i] {
			t.Fatalf("topic %d: want=%v got=%v", i, want[i], out[i].PillarID)
		}
		if out[i].HookAngle != content.HookDataDriven {
			t.Fatalf("topic %d: want data-driven got %s", i, out[i].HookAngle)
		}
	}
}

func TestDeriveHookAngle_Ordering(t *testing.T) {
	cases := map[string]content.HookAngle{
		"Lead with the survey numbers":             content.HookDataDriven,
		"The story data tells is clear":            content.HookDataDriven,
		"Share the personal journey":               content.HookStorytelling,
		"This will frustrate people":               content.HookEmotional,
		"Challenge the common myth":                content.HookContrarian,
		"Break down the tradeoffs between options": content.HookAnalytical,
	}
	for in, want := range cases {
		if got := DeriveHookAngle(in); got != want {
			t.Fatalf("%q: want=%s got=%s", in, want, got)
		}
	}
}
