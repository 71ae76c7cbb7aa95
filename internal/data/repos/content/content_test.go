package content

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/data/repos/testutil"
	types "github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
)

func TestVoiceProfileRepo_UpsertKeepsOnePerOwner(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewVoiceProfileRepo(db, testutil.Logger(t))
	owner := uuid.New()

	for i, score := range []float64{40, 75} {
		now := time.Now().UTC()
		err := repo.Upsert(dbc, &types.VoiceProfile{
			OwnerUserID:      owner,
			MasterEmbedding:  types.EncodeVector([]float32{float32(i), 1, 2}),
			Dimensions:       3,
			ConsistencyScore: score,
			ExampleCount:     3 + i,
			LastAnalyzedAt:   &now,
		})
		if err != nil {
			t.Fatalf("Upsert #%d: %v", i+1, err)
		}
	}

	var count int64
	db.Model(&types.VoiceProfile{}).Where("owner_user_id = ?", owner).Count(&count)
	if count != 1 {
		t.Fatalf("profiles: want=1 got=%d", count)
	}
	got, err := repo.GetByOwner(dbc, owner)
	if err != nil || got == nil {
		t.Fatalf("GetByOwner: %v %v", got, err)
	}
	if got.ConsistencyScore != 75 || got.ExampleCount != 4 {
		t.Fatalf("profile not overwritten: score=%v examples=%d", got.ConsistencyScore, got.ExampleCount)
	}
	if v := got.Vector(); len(v) != 3 || v[0] != 1 {
		t.Fatalf("master vector: %v", v)
	}
}

func TestVoiceExampleRepo_ActiveOnlyAndEmbeddings(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewVoiceExampleRepo(db, testutil.Logger(t))
	owner := uuid.New()

	seeded := testutil.SeedVoiceExamples(t, ctx, db, owner, "one", "two", "three")
	if ok, err := repo.SetStatus(dbc, owner, seeded[1].ID, types.ExampleStatusArchived); err != nil || !ok {
		t.Fatalf("SetStatus: ok=%v err=%v", ok, err)
	}
	active, err := repo.ListActive(dbc, owner)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 2 || active[0].ID != seeded[0].ID || active[1].ID != seeded[2].ID {
		t.Fatalf("ListActive: unexpected rows %+v", active)
	}
	if n, _ := repo.CountActive(dbc, owner); n != 2 {
		t.Fatalf("CountActive: want=2 got=%d", n)
	}

	err = repo.UpdateEmbeddings(dbc, owner, map[uuid.UUID][]float32{seeded[0].ID: {0.5, 0.25}})
	if err != nil {
		t.Fatalf("UpdateEmbeddings: %v", err)
	}
	ex, err := repo.GetByID(dbc, owner, seeded[0].ID)
	if err != nil || ex == nil {
		t.Fatalf("GetByID: %v %v", ex, err)
	}
	if v := types.DecodeVector(ex.Embedding); len(v) != 2 || v[1] != 0.25 {
		t.Fatalf("embedding: %v", v)
	}

	// Another owner cannot see the row.
	if other, _ := repo.GetByID(dbc, uuid.New(), seeded[0].ID); other != nil {
		t.Fatalf("GetByID leaked across owners")
	}
}

func TestPillarRepo_NormalizedNameIsUnique(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewPillarRepo(db, testutil.Logger(t))
	owner := uuid.New()

	first := &types.Pillar{OwnerUserID: owner, Name: "AI Innovation", Status: types.PillarStatusActive}
	if err := repo.Create(dbc, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	taken, err := repo.NameTaken(dbc, owner, types.NormalizePillarName("ai-innovation"), uuid.Nil)
	if err != nil || !taken {
		t.Fatalf("NameTaken: want=true got=%v err=%v", taken, err)
	}
	if taken, _ := repo.NameTaken(dbc, owner, first.NormalizedName, first.ID); taken {
		t.Fatalf("NameTaken should ignore the excluded id")
	}
	dup := &types.Pillar{OwnerUserID: owner, Name: "ai_innovation!", Status: types.PillarStatusActive}
	if err := repo.Create(dbc, dup); err == nil {
		t.Fatalf("expected unique violation for normalized duplicate")
	}
	// Same name under another owner is fine.
	if err := repo.Create(dbc, &types.Pillar{OwnerUserID: uuid.New(), Name: "AI Innovation", Status: types.PillarStatusActive}); err != nil {
		t.Fatalf("Create other owner: %v", err)
	}
}

func TestPillarRepo_CountDependents(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewPillarRepo(db, testutil.Logger(t))
	owner := uuid.New()

	pillar := testutil.SeedPillar(t, ctx, db, owner, "Leadership", "Managing people")
	empty := testutil.SeedPillar(t, ctx, db, owner, "Hiring", "")
	topic := testutil.SeedTopic(t, ctx, db, owner, pillar, "Weekly one-on-ones")
	testutil.SeedDrafts(t, ctx, db, topic, 2, "lead")

	n, err := repo.CountDependents(dbc, owner, pillar.ID)
	if err != nil || n != 3 {
		t.Fatalf("CountDependents: want=3 got=%d err=%v", n, err)
	}
	if n, _ := repo.CountDependents(dbc, owner, empty.ID); n != 0 {
		t.Fatalf("CountDependents(empty): want=0 got=%d", n)
	}
}

func TestGeneratedDraftRepo_DeleteProtectsPosted(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewGeneratedDraftRepo(db, testutil.Logger(t))
	owner := uuid.New()

	pillar := testutil.SeedPillar(t, ctx, db, owner, "AI Innovation", "")
	topic := testutil.SeedTopic(t, ctx, db, owner, pillar, "AI is changing customer support")
	drafts := testutil.SeedDrafts(t, ctx, db, topic, 2, "seed")
	db.Model(&types.GeneratedDraft{}).Where("id = ?", drafts[0].ID).Update("status", types.DraftStatusPosted)

	ok, err := repo.DeleteUnlessStatus(dbc, owner, drafts[0].ID, types.DraftStatusPosted)
	if err != nil || ok {
		t.Fatalf("delete posted: want=false got=%v err=%v", ok, err)
	}
	ok, err = repo.DeleteUnlessStatus(dbc, owner, drafts[1].ID, types.DraftStatusPosted)
	if err != nil || !ok {
		t.Fatalf("delete draft: want=true got=%v err=%v", ok, err)
	}
	left, _ := repo.ListByTopic(dbc, owner, topic.ID)
	if len(left) != 1 || left[0].ID != drafts[0].ID {
		t.Fatalf("remaining drafts: %+v", left)
	}
}

func TestGeneratedDraftRepo_RejectsCharCountDrift(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewGeneratedDraftRepo(db, testutil.Logger(t))
	owner := uuid.New()
	pillar := testutil.SeedPillar(t, ctx, db, owner, "AI", "")
	topic := testutil.SeedTopic(t, ctx, db, owner, pillar, "x")

	bad := &types.GeneratedDraft{
		OwnerUserID:  owner,
		TopicID:      topic.ID,
		PillarID:     pillar.ID,
		VariantLabel: "A",
		FullText:     "héllo",
		CharCount:    len("héllo"),
		Status:       types.DraftStatusDraft,
	}
	if _, err := repo.Create(dbctx.Context{Ctx: ctx}, []*types.GeneratedDraft{bad}); err == nil {
		t.Fatalf("expected char count invariant to reject the row")
	}
}

func TestPerformanceRecordRepo_UpsertByDraft(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewPerformanceRecordRepo(db, testutil.Logger(t))
	owner := uuid.New()

	pillar := testutil.SeedPillar(t, ctx, db, owner, "AI Innovation", "")
	topic := testutil.SeedTopic(t, ctx, db, owner, pillar, "AI is changing customer support")
	draft := testutil.SeedDrafts(t, ctx, db, topic, 1, "perf")[0]

	for _, likes := range []int{10, 500} {
		err := repo.Upsert(dbc, &types.PerformanceRecord{
			OwnerUserID: owner,
			DraftID:     draft.ID,
			Likes:       likes,
			Impressions: 10000,
			Tier:        types.TierAverage,
			MeasuredAt:  time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("Upsert likes=%d: %v", likes, err)
		}
	}
	var count int64
	db.Model(&types.PerformanceRecord{}).Where("draft_id = ?", draft.ID).Count(&count)
	if count != 1 {
		t.Fatalf("records: want=1 got=%d", count)
	}
	rec, err := repo.GetByDraftID(dbc, owner, draft.ID)
	if err != nil || rec == nil || rec.Likes != 500 {
		t.Fatalf("GetByDraftID: rec=%+v err=%v", rec, err)
	}

	performed, err := repo.ListPerformed(dbc, owner, []types.PerformanceTier{types.TierAverage}, 10)
	if err != nil {
		t.Fatalf("ListPerformed: %v", err)
	}
	if len(performed) != 1 || performed[0].PillarName != "AI Innovation" || performed[0].DraftID != draft.ID {
		t.Fatalf("ListPerformed: %+v", performed)
	}
	if recent, _ := repo.ListRecent(dbc, owner, 10, draft.ID); len(recent) != 0 {
		t.Fatalf("ListRecent should exclude the draft, got %d", len(recent))
	}
}

func TestUsageCounterRepo_IncrementAccumulates(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewUsageCounterRepo(db, testutil.Logger(t))
	owner := uuid.New()
	period := types.UsagePeriod(time.Now())

	if n, err := repo.Get(dbc, owner, types.UsageActionRegeneration, period); err != nil || n != 0 {
		t.Fatalf("Get before use: want=0 got=%d err=%v", n, err)
	}
	for i := 0; i < 3; i++ {
		if err := repo.Increment(dbc, owner, types.UsageActionRegeneration, period, 2); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}
	if n, _ := repo.Get(dbc, owner, types.UsageActionRegeneration, period); n != 6 {
		t.Fatalf("count: want=6 got=%d", n)
	}
	if n, _ := repo.Get(dbc, owner, types.UsageActionGeneration, period); n != 0 {
		t.Fatalf("other action: want=0 got=%d", n)
	}
}

func TestRawTopicRepo_MarkProcessed(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewRawTopicRepo(db, testutil.Logger(t))
	owner := uuid.New()

	created, err := repo.Create(dbc, []*types.RawTopic{
		{OwnerUserID: owner, Source: types.TopicSourceManual, Content: "first"},
		{OwnerUserID: owner, Source: types.TopicSourceResearch, Content: "second"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	n, err := repo.MarkProcessed(dbc, []uuid.UUID{created[0].ID}, time.Now().UTC())
	if err != nil || n != 1 {
		t.Fatalf("MarkProcessed: want=1 got=%d err=%v", n, err)
	}
	left, err := repo.ListUnprocessed(dbc, owner, 0)
	if err != nil || len(left) != 1 || left[0].ID != created[1].ID {
		t.Fatalf("ListUnprocessed: rows=%+v err=%v", left, err)
	}

	// already-processed rows are not stamped again
	n, err = repo.MarkProcessed(dbc, []uuid.UUID{created[0].ID, created[1].ID}, time.Now().UTC())
	if err != nil || n != 1 {
		t.Fatalf("second MarkProcessed: want=1 got=%d err=%v", n, err)
	}
}
