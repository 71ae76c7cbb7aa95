package aggregates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
)

type TopicAggregateDeps struct {
	Base BaseDeps

	RawTopics repos.RawTopicRepo
	Topics    repos.ClassifiedTopicRepo
}

type RecordClassificationsInput struct {
	OwnerUserID uuid.UUID
	Topics      []*content.ClassifiedTopic
	Now         time.Time
}

type TopicAggregate interface {
	// RecordClassifications inserts the classified topics and stamps their raw
	// topics processed in one transaction. A raw topic that another writer
	// already processed fails the whole write with ErrTopicProcessed.
	RecordClassifications(ctx context.Context, in RecordClassificationsInput) error
}

type topicAggregate struct {
	deps TopicAggregateDeps
}

func NewTopicAggregate(deps TopicAggregateDeps) TopicAggregate {
	deps.Base = deps.Base.withDefaults()
	return &topicAggregate{deps: deps}
}

func (a *topicAggregate) RecordClassifications(ctx context.Context, in RecordClassificationsInput) error {
	const op = "Content.Topic.RecordClassifications"
	if a.deps.RawTopics == nil || a.deps.Topics == nil {
		return apperr.New(apperr.CodeInternal, op, "topic aggregate repos not configured", nil)
	}
	if len(in.Topics) == 0 {
		return nil
	}
	now := in.Now.UTC()
	if in.Now.IsZero() {
		now = time.Now().UTC()
	}
	var rawIDs []uuid.UUID
	for _, t := range in.Topics {
		if t.OwnerUserID != in.OwnerUserID {
			return apperr.Invariant(op, nil, "topic owner mismatch")
		}
		if t.RawTopicID != nil {
			rawIDs = append(rawIDs, *t.RawTopicID)
		}
	}
	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if len(rawIDs) > 0 {
			n, err := a.deps.RawTopics.MarkProcessed(dbc, rawIDs, now)
			if err != nil {
				return err
			}
			if n != int64(len(rawIDs)) {
				return apperr.New(apperr.CodeConflict, op,
					fmt.Sprintf("%d of %d raw topics already classified", int64(len(rawIDs))-n, len(rawIDs)), apperr.ErrTopicProcessed)
			}
		}
		_, err := a.deps.Topics.Create(dbc, in.Topics)
		return err
	})
}
