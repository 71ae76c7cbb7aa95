package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/domain/content"
	"github.com/yungbote/postvoice-backend/internal/domain/jobs"
)

// Models lists every persisted entity in migration order.
func Models() []interface{} {
	return []interface{}{
		// Voice
		&content.VoiceExample{},
		&content.VoiceProfile{},

		// Topics + pillars
		&content.Pillar{},
		&content.RawTopic{},
		&content.ClassifiedTopic{},

		// Drafts + feedback loop
		&content.GeneratedDraft{},
		&content.PerformanceRecord{},
		&content.WinningPattern{},
		&content.UsageCounter{},

		// Async work
		&jobs.JobRun{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
