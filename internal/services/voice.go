package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/data/aggregates"
	"github.com/yungbote/postvoice-backend/internal/data/repos"
	"github.com/yungbote/postvoice-backend/internal/domain/apperr"
	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/modules/voicegen"
	"github.com/yungbote/postvoice-backend/internal/platform/dbctx"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// ProfileBuilder is the embedding-backed fingerprint step.
type ProfileBuilder interface {
	Build(ctx context.Context, texts []string) (*voicegen.VoiceProfileResult, error)
}

type AddExampleInput struct {
	Text     string
	Source   string
	PillarID *uuid.UUID
}

type ImportResult struct {
	Examples []*content.VoiceExample
	// FallbackManual tells the client to switch to manual entry; Reason is
	// the scrape failure that caused it.
	FallbackManual bool
	Reason         voicegen.ScrapeFailure
}

type VoiceStatus struct {
	ActiveExamples int64
	MinExamples    int
	Profile        *content.VoiceProfile
	Trained        bool
}

type VoiceService interface {
	AddExamples(ctx context.Context, in []AddExampleInput) ([]*content.VoiceExample, error)
	ImportFromProfile(ctx context.Context, profileURL string, limit int) (*ImportResult, error)
	ListExamples(ctx context.Context, includeArchived bool) ([]*content.VoiceExample, error)
	Archive(ctx context.Context, exampleID uuid.UUID) error
	Status(ctx context.Context) (*VoiceStatus, error)
	// Train rebuilds the profile from every active example. Embeddings and
	// the profile are committed together or not at all.
	Train(ctx context.Context) (*content.VoiceProfile, error)
}

type voiceService struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      voicegen.Config
	examples repos.VoiceExampleRepo
	profiles repos.VoiceProfileRepo
	pillars  repos.PillarRepo
	training aggregates.VoiceTrainingAggregate
	builder  ProfileBuilder
	scraper  voicegen.ProfileScrapeService
	usage    UsageService
	clock    Clock
}

type VoiceServiceDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Config   voicegen.Config
	Examples repos.VoiceExampleRepo
	Profiles repos.VoiceProfileRepo
	Pillars  repos.PillarRepo
	Training aggregates.VoiceTrainingAggregate
	Builder  ProfileBuilder
	Scraper  voicegen.ProfileScrapeService
	Usage    UsageService
	Clock    Clock
}

func NewVoiceService(deps VoiceServiceDeps) VoiceService {
	return &voiceService{
		db:       deps.DB,
		log:      deps.Log.With("service", "VoiceService"),
		cfg:      deps.Config,
		examples: deps.Examples,
		profiles: deps.Profiles,
		pillars:  deps.Pillars,
		training: deps.Training,
		builder:  deps.Builder,
		scraper:  deps.Scraper,
		usage:    deps.Usage,
		clock:    deps.Clock,
	}
}

func (s *voiceService) AddExamples(ctx context.Context, in []AddExampleInput) ([]*content.VoiceExample, error) {
	const op = "Voice.AddExamples"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return nil, apperr.Validation(op, nil, "at least one example is required")
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	now := s.clock.now()
	rows := make([]*content.VoiceExample, 0, len(in))
	for i, ex := range in {
		text := strings.TrimSpace(ex.Text)
		if text == "" {
			return nil, apperr.Validation(op, nil, "example %d is empty", i)
		}
		source := strings.TrimSpace(ex.Source)
		switch source {
		case "":
			source = content.ExampleSourcePasted
		case content.ExampleSourceSelf, content.ExampleSourcePasted:
		default:
			return nil, apperr.Validation(op, nil, "example %d has unknown source %q", i, source)
		}
		if ex.PillarID != nil && *ex.PillarID != uuid.Nil {
			p, err := s.pillars.GetByID(dbc, userID, *ex.PillarID)
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, apperr.NotFound(op, "pillar")
			}
		}
		rows = append(rows, &content.VoiceExample{
			OwnerUserID: userID,
			Text:        text,
			CharCount:   content.CharCountOf(text),
			PillarID:    ex.PillarID,
			Status:      content.ExampleStatusActive,
			Source:      source,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	created, err := s.examples.Create(dbc, rows)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return created, nil
}

func (s *voiceService) ImportFromProfile(ctx context.Context, profileURL string, limit int) (*ImportResult, error) {
	const op = "Voice.ImportFromProfile"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	profileURL = strings.TrimSpace(profileURL)
	if profileURL == "" {
		return nil, apperr.Validation(op, nil, "profile url is required")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if s.scraper == nil {
		return &ImportResult{FallbackManual: true, Reason: voicegen.ScrapeUnavailable}, nil
	}
	posts, err := s.scraper.FetchPosts(ctx, profileURL, limit)
	if err != nil {
		reason := voicegen.ScrapeUnavailable
		var se *voicegen.ScrapeError
		if errors.As(err, &se) {
			reason = se.Reason
		}
		s.log.Warn("Profile import failed; falling back to manual entry", "reason", reason, "error", err)
		return &ImportResult{FallbackManual: true, Reason: reason}, nil
	}
	now := s.clock.now()
	rows := make([]*content.VoiceExample, 0, len(posts))
	for _, p := range posts {
		text := strings.TrimSpace(p)
		if text == "" {
			continue
		}
		rows = append(rows, &content.VoiceExample{
			OwnerUserID: userID,
			Text:        text,
			CharCount:   content.CharCountOf(text),
			Status:      content.ExampleStatusActive,
			Source:      content.ExampleSourceImported,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(rows) == 0 {
		return &ImportResult{FallbackManual: true, Reason: voicegen.ScrapeNotFound}, nil
	}
	created, err := s.examples.Create(dbctx.Context{Ctx: ctx, Tx: s.db}, rows)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	s.log.Info("Imported voice examples", "owner_user_id", userID, "count", len(created))
	return &ImportResult{Examples: created}, nil
}

func (s *voiceService) ListExamples(ctx context.Context, includeArchived bool) ([]*content.VoiceExample, error) {
	userID, err := requestUserID(ctx, "Voice.ListExamples")
	if err != nil {
		return nil, err
	}
	return s.examples.ListByOwner(dbctx.Context{Ctx: ctx, Tx: s.db}, userID, includeArchived)
}

func (s *voiceService) Archive(ctx context.Context, exampleID uuid.UUID) error {
	const op = "Voice.Archive"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return err
	}
	ok, err := s.examples.SetStatus(dbctx.Context{Ctx: ctx, Tx: s.db}, userID, exampleID, content.ExampleStatusArchived)
	if err != nil {
		return aggregates.MapError(op, err)
	}
	if !ok {
		return apperr.NotFound(op, "voice example")
	}
	return nil
}

func (s *voiceService) Status(ctx context.Context) (*VoiceStatus, error) {
	userID, err := requestUserID(ctx, "Voice.Status")
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	n, err := s.examples.CountActive(dbc, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.profiles.GetByOwner(dbc, userID)
	if err != nil {
		return nil, err
	}
	return &VoiceStatus{
		ActiveExamples: n,
		MinExamples:    s.cfg.Voice.MinExamples,
		Profile:        p,
		Trained:        p.Trained() && n >= int64(s.cfg.Voice.MinExamples),
	}, nil
}

func (s *voiceService) Train(ctx context.Context) (*content.VoiceProfile, error) {
	const op = "Voice.Train"
	userID, err := requestUserID(ctx, op)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx, Tx: s.db}
	if s.usage != nil {
		if _, err := s.usage.Require(ctx, userID, content.UsageActionVoiceTrain); err != nil {
			return nil, err
		}
	}
	examples, err := s.examples.ListActive(dbc, userID)
	if err != nil {
		return nil, err
	}
	if len(examples) < s.cfg.Voice.MinExamples {
		return nil, apperr.Validation(op, apperr.ErrInsufficientData, "need at least %d active examples, have %d", s.cfg.Voice.MinExamples, len(examples))
	}
	texts := make([]string, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
	}
	res, err := s.builder.Build(ctx, texts)
	if err != nil {
		return nil, err
	}

	embeddings := make(map[uuid.UUID][]float32, len(res.Used))
	for k, idx := range res.Used {
		embeddings[examples[idx].ID] = res.Embeddings[k]
	}
	now := s.clock.now()
	profile := &content.VoiceProfile{
		OwnerUserID:      userID,
		MasterEmbedding:  content.EncodeVector(res.MasterVector),
		Dimensions:       res.Dimensions,
		ConsistencyScore: res.ConsistencyScore,
		ExampleCount:     len(res.Used),
		LastAnalyzedAt:   &now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.training.Commit(ctx, aggregates.CommitTrainingInput{
		OwnerUserID: userID,
		Embeddings:  embeddings,
		Profile:     profile,
	}); err != nil {
		return nil, err
	}
	if s.usage != nil {
		if err := s.usage.Increment(ctx, userID, content.UsageActionVoiceTrain, 1); err != nil {
			s.log.Warn("Usage increment failed after training", "owner_user_id", userID, "error", err)
		}
	}
	s.log.Info("Voice profile trained",
		"owner_user_id", userID,
		"examples", len(res.Used),
		"dimensions", res.Dimensions,
		"consistency", res.ConsistencyScore,
	)
	stored, err := s.profiles.GetByOwner(dbc, userID)
	if err != nil || stored == nil {
		return profile, nil
	}
	return stored, nil
}
