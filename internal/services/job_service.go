package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	types "github.com/yungbote/postvoice-backend/internal/domain/jobs"
	"github.com/yungbote/postvoice-backend/internal/platform/ctxutil"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// JobService hands asynchronous work to the job_run queue. Workers pick rows
// up on their own; enqueueing inside a transaction is safe because nothing is
// dispatched until the row is visible.
type JobService interface {
	Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	// EnqueueIfNeeded skips the insert when an equivalent job is still queued
	// or running. The bool reports whether a new row was created.
	EnqueueIfNeeded(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, bool, error)
	ListForRequestUser(dbc dbctx.Context, jobType string, limit int) ([]*types.JobRun, error)
	GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	const op = "Jobs.Enqueue"
	if ownerUserID == uuid.Nil {
		return nil, apperr.Validation(op, nil, "missing owner_user_id")
	}
	if jobType == "" {
		return nil, apperr.Validation(op, nil, "missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Validation(op, err, "payload is not serializable")
	}
	now := time.Now().UTC()
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      types.StatusQueued,
		Stage:       types.StatusQueued,
		Payload:     datatypes.JSON(b),
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.log.Debug("Job enqueued", "job_id", job.ID, "job_type", job.JobType, "owner_user_id", ownerUserID)
	return job, nil
}

func (s *jobService) EnqueueIfNeeded(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	inner := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}
	exists, err := s.repo.ExistsRunnable(inner, ownerUserID, jobType, entityType, entityID)
	if err != nil {
		return nil, false, fmt.Errorf("check runnable %s: %w", jobType, err)
	}
	if exists {
		s.log.Debug("Job already pending; skipping enqueue", "job_type", jobType, "owner_user_id", ownerUserID)
		return nil, false, nil
	}
	job, err := s.Enqueue(inner, ownerUserID, jobType, entityType, entityID, payload)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *jobService) ListForRequestUser(dbc dbctx.Context, jobType string, limit int) ([]*types.JobRun, error) {
	userID, err := requestUserID(dbc.Ctx, "Jobs.List")
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByOwner(dbc, userID, jobType, limit)
}

func (s *jobService) GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	const op = "Jobs.Get"
	userID, err := requestUserID(dbc.Ctx, op)
	if err != nil {
		return nil, err
	}
	if jobID == uuid.Nil {
		return nil, apperr.Validation(op, nil, "missing job id")
	}
	rows, err := s.repo.GetByIDs(dbc, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil || rows[0].OwnerUserID != userID {
		return nil, apperr.NotFound(op, "job")
	}
	return rows[0], nil
}
