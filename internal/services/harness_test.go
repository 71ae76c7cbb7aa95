package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/aggregates"
	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/data/repos/testutil"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	jobtypes "github.com/yungbote/postvoice-backend/internal/domain/jobs"
	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/platform/ctxutil"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/redislock"
)

const longExample = "I spent ten years building support teams and the lesson that stuck is simple: customers forgive slow answers, never vague ones."

type harness struct {
	db       *gorm.DB
	repos    repos.Set
	userID   uuid.UUID
	ctx      context.Context
	cfg      voicegen.Config
	usage    UsageService
	jobs     JobService
	draftSet aggregates.DraftSetAggregate
	gen      *fakeGenerator
}

func newHarness(t *testing.T, limits UsageLimits) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	userID := uuid.New()
	h := &harness{
		db:     db,
		repos:  set,
		userID: userID,
		ctx:    ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID}),
		cfg:    voicegen.DefaultConfig(),
		usage:  NewUsageService(db, log, set.Usage, limits, nil),
		jobs:   NewJobService(db, log, set.JobRuns),
		gen:    &fakeGenerator{},
	}
	h.draftSet = aggregates.NewDraftSetAggregate(aggregates.DraftSetAggregateDeps{
		Base:   aggregates.BaseDeps{DB: db, Log: log},
		Topics: set.Topics,
		Drafts: set.Drafts,
	})
	return h
}

func (h *harness) coordinator(t *testing.T, locker redislock.Locker) RegenerationCoordinator {
	t.Helper()
	return NewRegenerationCoordinator(RegenerationDeps{
		DB:        h.db,
		Log:       testutil.Logger(t),
		Config:    h.cfg,
		Examples:  h.repos.VoiceExamples,
		Profiles:  h.repos.VoiceProfiles,
		Pillars:   h.repos.Pillars,
		Topics:    h.repos.Topics,
		Patterns:  h.repos.Patterns,
		DraftSet:  h.draftSet,
		Generator: h.gen,
		Usage:     h.usage,
		Locker:    locker,
	})
}

func (h *harness) feedback(t *testing.T, jobs JobService) EngagementFeedbackLoop {
	t.Helper()
	log := testutil.Logger(t)
	return NewEngagementFeedbackLoop(FeedbackDeps{
		DB:          h.db,
		Log:         log,
		Config:      h.cfg,
		Drafts:      h.repos.Drafts,
		Topics:      h.repos.Topics,
		Performance: h.repos.Performance,
		Aggregate: aggregates.NewPerformanceAggregate(aggregates.PerformanceAggregateDeps{
			Base:        aggregates.BaseDeps{DB: h.db, Log: log},
			Drafts:      h.repos.Drafts,
			Performance: h.repos.Performance,
		}),
		Jobs: jobs,
	})
}

// seedReadyTopic stores a trained voice, one pillar, one topic and n drafts.
func (h *harness) seedReadyTopic(t *testing.T, n int) *content.ClassifiedTopic {
	t.Helper()
	testutil.SeedVoiceExamples(t, h.ctx, h.db, h.userID, longExample, longExample+" Twice.", longExample+" Thrice.")
	testutil.SeedTrainedProfile(t, h.ctx, h.db, h.userID, []float32{1, 0, 0})
	p := testutil.SeedPillar(t, h.ctx, h.db, h.userID, "AI Innovation", "How AI changes work")
	topic := testutil.SeedTopic(t, h.ctx, h.db, h.userID, p, "AI is changing customer support")
	if n > 0 {
		testutil.SeedDrafts(t, h.ctx, h.db, topic, n, "old")
	}
	return topic
}

func (h *harness) drafts(t *testing.T, topicID uuid.UUID, status content.DraftStatus) []*content.GeneratedDraft {
	t.Helper()
	rows, err := h.repos.Drafts.ListByTopic(dbctx.Context{Ctx: h.ctx}, h.userID, topicID, status)
	if err != nil {
		t.Fatalf("list drafts: %v", err)
	}
	return rows
}

func (h *harness) usageCount(t *testing.T, action string) int {
	t.Helper()
	n, err := h.repos.Usage.Get(dbctx.Context{Ctx: h.ctx}, h.userID, action, content.UsagePeriod(time.Now()))
	if err != nil {
		t.Fatalf("usage get: %v", err)
	}
	return n
}

// fakeGenerator returns one variant per requested style, or err.
type fakeGenerator struct {
	mu       sync.Mutex
	err      error
	calls    int
	delay    time.Duration
	inflight atomic.Int32
	maxSeen  atomic.Int32
	last     voicegen.GenerateInput
}

func (g *fakeGenerator) Generate(ctx context.Context, in voicegen.GenerateInput) (*voicegen.GenerationResult, error) {
	n := g.inflight.Add(1)
	defer g.inflight.Add(-1)
	for {
		seen := g.maxSeen.Load()
		if n <= seen || g.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.last = in
	err := g.err
	g.mu.Unlock()
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if err != nil {
		return nil, err
	}
	count := in.Count
	if count <= 0 {
		count = 3
	}
	res := &voicegen.GenerationResult{Meta: voicegen.CallMeta{Calls: count, Attempts: count, TokensIn: 100, TokensOut: 80}}
	for i := 0; i < count; i++ {
		text := fmt.Sprintf("new %d variant %d for %s", call, i, strings.ToLower(in.Topic.Content))
		res.Variants = append(res.Variants, voicegen.Variant{
			Label:           string(rune('A' + i)),
			Style:           fmt.Sprintf("style-%d", i),
			Hook:            "hook",
			Body:            text,
			FullText:        text,
			CharCount:       content.CharCountOf(text),
			Tags:            []string{"ai"},
			VoiceMatchScore: 80,
		})
	}
	return res, nil
}

type failingJobs struct{ JobService }

func (failingJobs) EnqueueIfNeeded(dbctx.Context, uuid.UUID, string, string, *uuid.UUID, map[string]any) (*jobtypes.JobRun, bool, error) {
	return nil, false, errors.New("queue unavailable")
}

func wantCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	if got := apperr.CodeOf(err); got != code {
		t.Fatalf("error code: want=%s got=%s (err=%v)", code, got, err)
	}
}
