package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/domain/content"
)

func SeedVoiceExamples(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, texts ...string) []*content.VoiceExample {
	tb.Helper()
	out := make([]*content.VoiceExample, 0, len(texts))
	for i, text := range texts {
		ex := &content.VoiceExample{
			OwnerUserID: ownerID,
			Text:        text,
			CharCount:   content.CharCountOf(text),
			Status:      content.ExampleStatusActive,
			Source:      content.ExampleSourceSelf,
			CreatedAt:   time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}
		if err := tx.WithContext(ctx).Create(ex).Error; err != nil {
			tb.Fatalf("seed voice example: %v", err)
		}
		out = append(out, ex)
	}
	return out
}

// SeedTrainedProfile stores a profile with the given master vector.
func SeedTrainedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, vec []float32) *content.VoiceProfile {
	tb.Helper()
	now := time.Now().UTC()
	p := &content.VoiceProfile{
		OwnerUserID:      ownerID,
		MasterEmbedding:  content.EncodeVector(vec),
		Dimensions:       len(vec),
		ConsistencyScore: 80,
		ExampleCount:     3,
		LastAnalyzedAt:   &now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed voice profile: %v", err)
	}
	return p
}

func SeedPillar(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, name, description string) *content.Pillar {
	tb.Helper()
	p := &content.Pillar{
		OwnerUserID: ownerID,
		Name:        name,
		Description: description,
		Status:      content.PillarStatusActive,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed pillar: %v", err)
	}
	return p
}

func SeedTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, pillar *content.Pillar, text string) *content.ClassifiedTopic {
	tb.Helper()
	t := &content.ClassifiedTopic{
		OwnerUserID: ownerID,
		PillarID:    pillar.ID,
		PillarName:  pillar.Name,
		Content:     text,
		Confidence:  90,
		Relevance:   85,
		HookAngle:   content.HookAnalytical,
		Tags:        content.EncodeStrings([]string{"ai"}),
		Status:      content.TopicApproved,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return t
}

// SeedDrafts stores n draft-status variants labelled A, B, C...
func SeedDrafts(tb testing.TB, ctx context.Context, tx *gorm.DB, topic *content.ClassifiedTopic, n int, prefix string) []*content.GeneratedDraft {
	tb.Helper()
	out := make([]*content.GeneratedDraft, 0, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("%s variant %d about %s", prefix, i, strings.ToLower(topic.Content))
		d := &content.GeneratedDraft{
			OwnerUserID:  topic.OwnerUserID,
			TopicID:      topic.ID,
			PillarID:     topic.PillarID,
			VariantLabel: string(rune('A' + i)),
			FullText:     text,
			CharCount:    content.CharCountOf(text),
			Tags:         content.EncodeStrings(nil),
			Status:       content.DraftStatusDraft,
		}
		if err := tx.WithContext(ctx).Create(d).Error; err != nil {
			tb.Fatalf("seed draft: %v", err)
		}
		out = append(out, d)
	}
	return out
}
