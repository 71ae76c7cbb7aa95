package content

import (
	"errors"
	"testing"

	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
)

func TestTopicTransitionsAreOneDirectional(t *testing.T) {
	if err := CheckTopicTransition(TopicNeedsReview, TopicApproved, false); err != nil {
		t.Fatalf("needs_review -> approved: %v", err)
	}
	if err := CheckTopicTransition(TopicApproved, TopicNeedsReview, false); !errors.Is(err, apperr.ErrIllegalTransition) {
		t.Fatalf("approved -> needs_review: expected illegal transition, got %v", err)
	}
	if err := CheckTopicTransition(TopicArchived, TopicPending, false); !errors.Is(err, apperr.ErrIllegalTransition) {
		t.Fatalf("archived -> pending: expected illegal transition, got %v", err)
	}
}

func TestTopicOverrideAllowsBackwardMoves(t *testing.T) {
	if err := CheckTopicTransition(TopicApproved, TopicNeedsReview, true); err != nil {
		t.Fatalf("override: %v", err)
	}
	if err := CheckTopicTransition(TopicApproved, TopicStatus("bogus"), true); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("unknown status: expected validation error, got %v", err)
	}
}

func TestNormalizePillarName(t *testing.T) {
	cases := map[string]string{
		"AI Innovation":     "ai-innovation",
		"  ai   innovation": "ai-innovation",
		"AI_Innovation!":    "ai-innovation",
		"Leadership":        "leadership",
	}
	for in, want := range cases {
		if got := NormalizePillarName(in); got != want {
			t.Fatalf("NormalizePillarName(%q): want=%q got=%q", in, want, got)
		}
	}
}
