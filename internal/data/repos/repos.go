package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/repos/content"
	"github.com/yungbote/postvoice-backend/internal/data/repos/jobs"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

type VoiceExampleRepo = content.VoiceExampleRepo
type VoiceProfileRepo = content.VoiceProfileRepo

type PillarRepo = content.PillarRepo
type RawTopicRepo = content.RawTopicRepo
type ClassifiedTopicRepo = content.ClassifiedTopicRepo
type TopicFilter = content.TopicFilter

type GeneratedDraftRepo = content.GeneratedDraftRepo
type DraftFilter = content.DraftFilter

type PerformanceRecordRepo = content.PerformanceRecordRepo
type PerformedDraft = content.PerformedDraft
type WinningPatternRepo = content.WinningPatternRepo
type UsageCounterRepo = content.UsageCounterRepo

type JobRunRepo = jobs.JobRunRepo

// Set bundles every repo over one handle.
type Set struct {
	VoiceExamples VoiceExampleRepo
	VoiceProfiles VoiceProfileRepo
	Pillars       PillarRepo
	RawTopics     RawTopicRepo
	Topics        ClassifiedTopicRepo
	Drafts        GeneratedDraftRepo
	Performance   PerformanceRecordRepo
	Patterns      WinningPatternRepo
	Usage         UsageCounterRepo
	JobRuns       JobRunRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		VoiceExamples: content.NewVoiceExampleRepo(db, log),
		VoiceProfiles: content.NewVoiceProfileRepo(db, log),
		Pillars:       content.NewPillarRepo(db, log),
		RawTopics:     content.NewRawTopicRepo(db, log),
		Topics:        content.NewClassifiedTopicRepo(db, log),
		Drafts:        content.NewGeneratedDraftRepo(db, log),
		Performance:   content.NewPerformanceRecordRepo(db, log),
		Patterns:      content.NewWinningPatternRepo(db, log),
		Usage:         content.NewUsageCounterRepo(db, log),
		JobRuns:       jobs.NewJobRunRepo(db, log),
	}
}
