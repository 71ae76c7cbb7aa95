package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
)

type VoiceTrainingAggregateDeps struct {
	Base BaseDeps

	Examples repos.VoiceExampleRepo
	Profiles repos.VoiceProfileRepo
}

type CommitTrainingInput struct {
	OwnerUserID uuid.UUID
	Embeddings  map[uuid.UUID][]float32
	Profile     *content.VoiceProfile
}

// VoiceTrainingAggregate persists a finished analysis: every example
// embedding plus the recomputed profile, or nothing.
type VoiceTrainingAggregate interface {
	Commit(ctx context.Context, in CommitTrainingInput) error
}

type voiceTrainingAggregate struct {
	deps VoiceTrainingAggregateDeps
}

func NewVoiceTrainingAggregate(deps VoiceTrainingAggregateDeps) VoiceTrainingAggregate {
	deps.Base = deps.Base.withDefaults()
	return &voiceTrainingAggregate{deps: deps}
}

func (a *voiceTrainingAggregate) Commit(ctx context.Context, in CommitTrainingInput) error {
	const op = "Voice.Training.Commit"
	if in.OwnerUserID == uuid.Nil || in.Profile == nil {
		return apperr.Validation(op, nil, "owner and profile are required")
	}
	if a.deps.Examples == nil || a.deps.Profiles == nil {
		return apperr.New(apperr.CodeInternal, op, "voice training aggregate repos not configured", nil)
	}
	dims := in.Profile.Dimensions
	if dims <= 0 || len(in.Profile.Vector()) != dims {
		return apperr.Invariant(op, nil, "profile vector does not match its %d dimensions", dims)
	}
	for id, vec := range in.Embeddings {
		if len(vec) != dims {
			return apperr.Invariant(op, nil, "example %s has %d dimensions, profile has %d", id, len(vec), dims)
		}
	}
	in.Profile.OwnerUserID = in.OwnerUserID

	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.deps.Examples.UpdateEmbeddings(dbc, in.OwnerUserID, in.Embeddings); err != nil {
			return err
		}
		return a.deps.Profiles.Upsert(dbc, in.Profile)
	})
}
