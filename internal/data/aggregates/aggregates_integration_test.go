package aggregates_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/postvoice-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/data/repos/testutil"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
)

func newDraftSet(t *testing.T, db *gorm.DB, runner aggregates.TxRunner) (aggregates.DraftSetAggregate, repos.Set) {
	t.Helper()
	set := repos.NewSet(db, testutil.Logger(t))
	agg := aggregates.NewDraftSetAggregate(aggregates.DraftSetAggregateDeps{
		Base:   aggregates.BaseDeps{DB: db, Log: testutil.Logger(t), Runner: runner},
		Topics: set.Topics,
		Drafts: set.Drafts,
	})
	return agg, set
}

func newVariants(topic *content.ClassifiedTopic, n int, tag string) []*content.GeneratedDraft {
	out := make([]*content.GeneratedDraft, 0, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("%s take %d", tag, i)
		out = append(out, &content.GeneratedDraft{
			OwnerUserID:  topic.OwnerUserID,
			TopicID:      topic.ID,
			PillarID:     topic.PillarID,
			VariantLabel: string(rune('A' + i)),
			FullText:     text,
			CharCount:    content.CharCountOf(text),
			Tags:         content.EncodeStrings([]string{"ai"}),
		})
	}
	return out
}

func countDrafts(t *testing.T, db *gorm.DB, topicID uuid.UUID, status content.DraftStatus) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&content.GeneratedDraft{}).
		Where("topic_id = ? AND status = ?", topicID, status).
		Count(&n).Error; err != nil {
		t.Fatalf("count drafts: %v", err)
	}
	return n
}

func TestDraftSetReplace_SwapsOnlyDraftRows(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	owner := uuid.New()
	pillar := testutil.SeedPillar(t, ctx, db, owner, "AI Innovation", "")
	topic := testutil.SeedTopic(t, ctx, db, owner, pillar, "AI is changing customer support")
	old := testutil.SeedDrafts(t, ctx, db, topic, 3, "old")
	db.Model(&content.GeneratedDraft{}).Where("id = ?", old[0].ID).Update("status", content.DraftStatusApproved)

	agg, _ := newDraftSet(t, db, nil)
	res, err := agg.Replace(ctx, aggregates.ReplaceDraftSetInput{OwnerUserID: owner, TopicID: topic.ID, Drafts: newVariants(topic, 2, "new")})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if res.Deleted != 2 || len(res.Inserted) != 2 {
		t.Fatalf("result: deleted=%d inserted=%d", res.Deleted, len(res.Inserted))
	}
	if n := countDrafts(t, db, topic.ID, content.DraftStatusDraft); n != 2 {
		t.Fatalf("draft rows: want=2 got=%d", n)
	}
	if n := countDrafts(t, db, topic.ID, content.DraftStatusApproved); n != 1 {
		t.Fatalf("approved rows: want=1 got=%d", n)
	}
}

func TestDraftSetReplace_CommitFailureKeepsPriorSet(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	owner := uuid.New()
	pillar := testutil.SeedPillar(t, ctx, db, owner, "AI Innovation", "")
	topic := testutil.SeedTopic(t, ctx, db, owner, pillar, "AI is changing customer support")
	old := testutil.SeedDrafts(t, ctx, db, topic, 3, "old")

	hooks := &aggtest.HooksRecorder{}
	runner := &aggtest.InjectedTxRunner{Inner: aggregates.NewGormTxRunner(db), FailCommit: errors.New("database is locked")}
	set := repos.NewSet(db, testutil.Logger(t))
	agg := aggregates.NewDraftSetAggregate(aggregates.DraftSetAggregateDeps{
		Base:   aggregates.BaseDeps{DB: db, Log: testutil.Logger(t), Runner: runner, Hooks: hooks},
		Topics: set.Topics,
		Drafts: set.Drafts,
	})

	_, err := agg.Replace(ctx, aggregates.ReplaceDraftSetInput{OwnerUserID: owner, TopicID: topic.ID, Drafts: newVariants(topic, 3, "new")})
	if !apperr.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	left, _ := set.Drafts.ListByTopic(dbcOf(ctx), owner, topic.ID, content.DraftStatusDraft)
	if len(left) != 3 {
		t.Fatalf("prior drafts: want=3 got=%d", len(left))
	}
	for i, d := range left {
		if d.ID != old[i].ID {
			t.Fatalf("draft %d replaced: want=%s got=%s", i, old[i].ID, d.ID)
		}
	}
	if hooks.Count(apperr.CodeRetryable) != 1 || runner.RollbackCalls != 1 {
		t.Fatalf("hooks/rollback: writes=%+v rollbacks=%d", hooks.Writes, runner.RollbackCalls)
	}
}

func TestDraftSetReplace_ConcurrentReaderNeverSeesEmptySet(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	owner := uuid.New()
	pillar := testutil.SeedPillar(t, ctx, db, owner, "AI Innovation", "")
	topic := testutil.SeedTopic(t, ctx, db, owner, pillar, "AI is changing customer support")
	testutil.SeedDrafts(t, ctx, db, topic, 3, "seed")
	agg, _ := newDraftSet(t, db, nil)

	var (
		stop    atomic.Bool
		empty   atomic.Int64
		reads   atomic.Int64
		wg      sync.WaitGroup
		readErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !stop.Load() {
			var n int64
			if err := db.Model(&content.GeneratedDraft{}).
				Where("topic_id = ? AND status = ?", topic.ID, content.DraftStatusDraft).
				Count(&n).Error; err != nil {
				readErr = err
				return
			}
			reads.Add(1)
			if n == 0 {
				empty.Add(1)
			}
		}
	}()

	for i := 0; i < 25; i++ {
		if _, err := agg.Replace(ctx, aggregates.ReplaceDraftSetInput{
			OwnerUserID: owner,
			TopicID:     topic.ID,
			Drafts:      newVariants(topic, 3, fmt.Sprintf("round %d", i)),
		}); err != nil {
			stop.Store(true)
			wg.Wait()
			t.Fatalf("Replace #%d: %v", i, err)
		}
	}
	stop.Store(true)
	wg.Wait()

	if readErr != nil {
		t.Fatalf("reader: %v", readErr)
	}
	if empty.Load() != 0 {
		t.Fatalf("reader observed an empty draft set %d times out of %d reads", empty.Load(), reads.Load())
	}
	if n := countDrafts(t, db, topic.ID, content.DraftStatusDraft); n != 3 {
		t.Fatalf("final draft rows: want=3 got=%d", n)
	}
}

func TestDraftSetReplace_RejectsBadInput(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	owner := uuid.New()
	pillar := testutil.SeedPillar(t, ctx, db, owner, "AI", "")
	topic := testutil.SeedTopic(t, ctx, db, owner, pillar, "x")
	agg, _ := newDraftSet(t, db, nil)

	if _, err := agg.Replace(ctx, aggregates.ReplaceDraftSetInput{OwnerUserID: owner, TopicID: topic.ID}); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("empty set: expected validation, got %v", err)
	}
	drift := newVariants(topic, 1, "drift")
	drift[0].CharCount++
	if _, err := agg.Replace(ctx, aggregates.ReplaceDraftSetInput{OwnerUserID: owner, TopicID: topic.ID, Drafts: drift}); !apperr.IsCode(err, apperr.CodeInvariantViolation) {
		t.Fatalf("char drift: expected invariant violation, got %v", err)
	}
	ghost := *topic
	ghost.ID = uuid.New()
	if _, err := agg.Replace(ctx, aggregates.ReplaceDraftSetInput{OwnerUserID: owner, TopicID: ghost.ID, Drafts: newVariants(&ghost, 1, "ghost")}); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("missing topic: expected not_found, got %v", err)
	}
}

func TestDraftSetTransitionAndDelete(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	owner := uuid.New()
	pillar := testutil.SeedPillar(t, ctx, db, owner, "AI", "")
	topic := testutil.SeedTopic(t, ctx, db, owner, pillar, "x")
	d := testutil.SeedDrafts(t, ctx, db, topic, 1, "t")[0]
	agg, set := newDraftSet(t, db, nil)
	now := time.Now().UTC()

	if _, err := agg.Transition(ctx, aggregates.TransitionDraftInput{OwnerUserID: owner, DraftID: d.ID, To: content.DraftStatusPosted}); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("direct post: expected validation, got %v", err)
	}
	got, err := agg.Transition(ctx, aggregates.TransitionDraftInput{OwnerUserID: owner, DraftID: d.ID, To: content.DraftStatusApproved, Now: now})
	if err != nil || got.Status != content.DraftStatusApproved {
		t.Fatalf("approve: got=%v err=%v", got, err)
	}
	past := now.Add(-time.Minute)
	if _, err := agg.Transition(ctx, aggregates.TransitionDraftInput{OwnerUserID: owner, DraftID: d.ID, To: content.DraftStatusScheduled, ScheduledFor: &past, Now: now}); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Fatalf("schedule in past: expected validation, got %v", err)
	}
	if _, err := agg.Transition(ctx, aggregates.TransitionDraftInput{OwnerUserID: owner, DraftID: d.ID, To: content.DraftStatusRejected}); !errors.Is(err, apperr.ErrIllegalTransition) {
		t.Fatalf("approved -> rejected: expected illegal transition, got %v", err)
	}
	stored, _ := set.Drafts.GetByID(dbcOf(ctx), owner, d.ID)
	if stored.Status != content.DraftStatusApproved || stored.ApprovedAt == nil {
		t.Fatalf("stored draft: %+v", stored)
	}

	db.Model(&content.GeneratedDraft{}).Where("id = ?", d.ID).Update("status", content.DraftStatusPosted)
	if err := agg.Delete(ctx, owner, d.ID); !errors.Is(err, apperr.ErrPostedImmutable) {
		t.Fatalf("delete posted: expected ErrPostedImmutable, got %v", err)
	}
	if err := agg.Delete(ctx, owner, uuid.New()); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("delete missing: expected not_found, got %v", err)
	}
}

func TestPerformanceRecord_UpsertsAndMarksPosted(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	owner := uuid.New()
	pillar := testutil.SeedPillar(t, ctx, db, owner, "AI", "")
	topic := testutil.SeedTopic(t, ctx, db, owner, pillar, "x")
	drafts := testutil.SeedDrafts(t, ctx, db, topic, 2, "p")
	db.Model(&content.GeneratedDraft{}).Where("id = ?", drafts[0].ID).Update("status", content.DraftStatusApproved)

	set := repos.NewSet(db, testutil.Logger(t))
	agg := aggregates.NewPerformanceAggregate(aggregates.PerformanceAggregateDeps{
		Base:        aggregates.BaseDeps{DB: db, Log: testutil.Logger(t)},
		Drafts:      set.Drafts,
		Performance: set.Performance,
	})

	first, err := agg.Record(ctx, aggregates.RecordPerformanceInput{OwnerUserID: owner, Record: &content.PerformanceRecord{
		DraftID: drafts[0].ID, Likes: 10, Impressions: 1000, Tier: content.TierAverage,
	}})
	if err != nil {
		t.Fatalf("Record #1: %v", err)
	}
	if first.Updated || first.Draft.Status != content.DraftStatusPosted {
		t.Fatalf("Record #1: updated=%v status=%s", first.Updated, first.Draft.Status)
	}
	second, err := agg.Record(ctx, aggregates.RecordPerformanceInput{OwnerUserID: owner, Record: &content.PerformanceRecord{
		DraftID: drafts[0].ID, Likes: 500, Comments: 80, Reposts: 20, Impressions: 10000, Tier: content.TierTopPerformer,
	}})
	if err != nil {
		t.Fatalf("Record #2: %v", err)
	}
	if !second.Updated || second.Record.ID != first.Record.ID {
		t.Fatalf("Record #2 should update in place: updated=%v ids=%s/%s", second.Updated, first.Record.ID, second.Record.ID)
	}

	var count int64
	db.Model(&content.PerformanceRecord{}).Where("draft_id = ?", drafts[0].ID).Count(&count)
	if count != 1 {
		t.Fatalf("records: want=1 got=%d", count)
	}
	stored, _ := set.Performance.GetByDraftID(dbcOf(ctx), owner, drafts[0].ID)
	if stored.Likes != 500 || stored.Tier != content.TierTopPerformer {
		t.Fatalf("stored record: %+v", stored)
	}

	_, err = agg.Record(ctx, aggregates.RecordPerformanceInput{OwnerUserID: owner, Record: &content.PerformanceRecord{DraftID: drafts[1].ID}})
	if !errors.Is(err, apperr.ErrIllegalTransition) {
		t.Fatalf("unapproved draft: expected illegal transition, got %v", err)
	}
	if rec, _ := set.Performance.GetByDraftID(dbcOf(ctx), owner, drafts[1].ID); rec != nil {
		t.Fatalf("record written for rejected transition")
	}
}

func TestPillarDelete_RejectsDependents(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	owner := uuid.New()
	used := testutil.SeedPillar(t, ctx, db, owner, "Leadership", "")
	free := testutil.SeedPillar(t, ctx, db, owner, "Hiring", "")
	testutil.SeedTopic(t, ctx, db, owner, used, "One-on-ones")

	set := repos.NewSet(db, testutil.Logger(t))
	agg := aggregates.NewPillarAggregate(aggregates.PillarAggregateDeps{Base: aggregates.BaseDeps{DB: db}, Pillars: set.Pillars})

	err := agg.Delete(ctx, owner, used.ID)
	if !errors.Is(err, apperr.ErrPillarInUse) || !apperr.IsCode(err, apperr.CodeConflict) {
		t.Fatalf("delete used: expected conflict ErrPillarInUse, got %v", err)
	}
	if err := agg.Delete(ctx, owner, free.ID); err != nil {
		t.Fatalf("delete free: %v", err)
	}
	if p, _ := set.Pillars.GetByID(dbcOf(ctx), owner, free.ID); p != nil {
		t.Fatalf("pillar still present")
	}
}

func TestVoiceTrainingCommit_RejectsDimensionDrift(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	owner := uuid.New()
	examples := testutil.SeedVoiceExamples(t, ctx, db, owner, "a", "b")

	set := repos.NewSet(db, testutil.Logger(t))
	agg := aggregates.NewVoiceTrainingAggregate(aggregates.VoiceTrainingAggregateDeps{
		Base:     aggregates.BaseDeps{DB: db},
		Examples: set.VoiceExamples,
		Profiles: set.VoiceProfiles,
	})
	profile := &content.VoiceProfile{MasterEmbedding: content.EncodeVector([]float32{1, 0, 0}), Dimensions: 3, ExampleCount: 2}

	err := agg.Commit(ctx, aggregates.CommitTrainingInput{
		OwnerUserID: owner,
		Embeddings:  map[uuid.UUID][]float32{examples[0].ID: {1, 0, 0}, examples[1].ID: {1, 0}},
		Profile:     profile,
	})
	if !apperr.IsCode(err, apperr.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if p, _ := set.VoiceProfiles.GetByOwner(dbcOf(ctx), owner); p != nil {
		t.Fatalf("profile persisted despite rejection")
	}

	err = agg.Commit(ctx, aggregates.CommitTrainingInput{
		OwnerUserID: owner,
		Embeddings:  map[uuid.UUID][]float32{examples[0].ID: {1, 0, 0}, examples[1].ID: {0, 1, 0}},
		Profile:     profile,
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	p, _ := set.VoiceProfiles.GetByOwner(dbcOf(ctx), owner)
	if !p.Trained() || p.Dimensions != 3 {
		t.Fatalf("profile: %+v", p)
	}
}

func dbcOf(ctx context.Context) dbctx.Context { return dbctx.Context{Ctx: ctx} }

func TestTopicRecord_RejectsAlreadyProcessedRawTopic(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	owner := uuid.New()
	pillar := testutil.SeedPillar(t, ctx, db, owner, "AI Innovation", "")
	set := repos.NewSet(db, testutil.Logger(t))
	raws, err := set.RawTopics.Create(dbctx.Context{Ctx: ctx}, []*content.RawTopic{
		{OwnerUserID: owner, Source: string(content.TopicSourceManual), Content: "first"},
		{OwnerUserID: owner, Source: string(content.TopicSourceManual), Content: "second"},
	})
	if err != nil {
		t.Fatalf("seed raw topics: %v", err)
	}
	// Another writer classified the second raw topic after this batch was read.
	if _, err := set.RawTopics.MarkProcessed(dbctx.Context{Ctx: ctx}, []uuid.UUID{raws[1].ID}, time.Now()); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	hooks := &aggtest.HooksRecorder{}
	agg := aggregates.NewTopicAggregate(aggregates.TopicAggregateDeps{
		Base:      aggregates.BaseDeps{DB: db, Log: testutil.Logger(t), Hooks: hooks},
		RawTopics: set.RawTopics,
		Topics:    set.Topics,
	})
	topics := make([]*content.ClassifiedTopic, 0, len(raws))
	for _, r := range raws {
		id := r.ID
		topics = append(topics, &content.ClassifiedTopic{
			OwnerUserID: owner,
			RawTopicID:  &id,
			PillarID:    pillar.ID,
			PillarName:  pillar.Name,
			Content:     r.Content,
			Status:      content.TopicApproved,
		})
	}
	err = agg.RecordClassifications(ctx, aggregates.RecordClassificationsInput{OwnerUserID: owner, Topics: topics})
	if !errors.Is(err, apperr.ErrTopicProcessed) || !apperr.IsCode(err, apperr.CodeConflict) {
		t.Fatalf("want conflict ErrTopicProcessed, got %v", err)
	}
	if hooks.Count(apperr.CodeConflict) != 1 {
		t.Fatalf("conflict writes observed: want=1 got=%d", hooks.Count(apperr.CodeConflict))
	}

	var n int64
	if err := db.Model(&content.ClassifiedTopic{}).Where("owner_user_id = ?", owner).Count(&n).Error; err != nil {
		t.Fatalf("count topics: %v", err)
	}
	if n != 0 {
		t.Fatalf("topics after rejected batch: want=0 got=%d", n)
	}
	left, err := set.RawTopics.ListUnprocessed(dbctx.Context{Ctx: ctx}, owner, 10)
	if err != nil {
		t.Fatalf("ListUnprocessed: %v", err)
	}
	if len(left) != 1 || left[0].ID != raws[0].ID {
		t.Fatalf("rolled back raw topic should stay unprocessed: got=%d", len(left))
	}
}

func TestGormTxRunner_RerunsAbortedTransaction(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	runner := aggregates.NewGormTxRunner(db)

	calls := 0
	err := runner.InTx(ctx, func(dbc dbctx.Context) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx after serialization failure: %v", err)
	}
	if calls != 2 {
		t.Fatalf("attempts: want=2 got=%d", calls)
	}

	calls = 0
	err = runner.InTx(ctx, func(dbc dbctx.Context) error {
		calls++
		return &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	})
	if !apperr.IsCode(aggregates.MapError("Content.Test.Deadlock", err), apperr.CodeRetryable) {
		t.Fatalf("exhausted deadlock should map retryable, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("attempts on persistent deadlock: want=3 got=%d", calls)
	}

	calls = 0
	err = runner.InTx(ctx, func(dbc dbctx.Context) error {
		calls++
		return &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	})
	if err == nil || calls != 1 {
		t.Fatalf("unique violation must not rerun: calls=%d err=%v", calls, err)
	}
}
