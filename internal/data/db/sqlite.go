package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// SQLiteDSN enables WAL so readers are not blocked by a writer, a busy
// timeout so concurrent writers queue instead of failing with SQLITE_BUSY,
// and immediate transactions so a read-then-write tx takes the lock up front.
func SQLiteDSN(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "postvoice.db"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
}

func NewSQLiteService(logg *logger.Logger, path string) (*Service, error) {
	serviceLog := logg.With("service", "SQLiteService")
	db, err := OpenSQLite(path, newGormLogger())
	if err != nil {
		return nil, err
	}
	serviceLog.Info("connected", "path", path)
	return &Service{db: db, driver: DriverSQLite, log: serviceLog}, nil
}

// OpenSQLite is shared with test helpers. A nil gl silences gorm.
func OpenSQLite(path string, gl gormLogger.Interface) (*gorm.DB, error) {
	if gl == nil {
		gl = gormLogger.Default.LogMode(gormLogger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(SQLiteDSN(path)), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	// Explicit PRAGMAs cover drivers that ignore the DSN form.
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("sqlite %s: %w", stmt, err)
		}
	}
	return db, nil
}
