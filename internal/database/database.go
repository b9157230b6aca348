// Package database opens the relational store and keeps its schema current.
package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/models"
	"github.com/hirewire/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB is the process-wide connection, set by Initialize
var DB *gorm.DB

// Options tune Open. Zero values pick production defaults.
type Options struct {
	Verbose bool
	// Tracing registers the OpenTelemetry GORM plugin
	Tracing bool
}

// Initialize opens the database and stores it in DB
func Initialize(driver, dsn string, opts Options) (*gorm.DB, error) {
	db, err := Open(driver, dsn, opts)
	if err != nil {
		return nil, err
	}
	DB = db
	logger.Log.Info("Database connected", zap.String("driver", driver))
	return db, nil
}

// newGormLogger writes GORM output through zap. Lookups that find nothing are expected
// (like toggles, connection status) and are not logged as errors.
func newGormLogger(l *zap.Logger, verbose bool) gormlogger.Interface {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	return gormlogger.New(zap.NewStdLog(l.Named("gorm")), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Open connects with driver "postgres" or "sqlite". An in-memory sqlite DSN is pinned to
// a single connection so every query sees the same database.
func Open(driver, dsn string, opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(logger.Log, opts.Verbose),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if opts.Tracing {
		if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
			return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db, nil
}

// AllModels lists every table owned by the relational store, in migration order
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.VerificationCode{},
		&models.ProfileView{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.Connection{},
		&models.Message{},
		&models.Notification{},
		&models.Job{},
		&models.Application{},
	}
}

// Migrate creates or updates every table and the secondary indexes
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	logger.Log.Info("Database migrations completed")
	return nil
}

// Expression and sort-order indexes that struct tags cannot describe.
// Plain SQL shared by postgres and sqlite.
var indexStatements = []string{
	"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))",
	"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",

	"CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments (post_id, created_at)",

	// inbox: thread reads and unread tallies
	"CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages (sender_id, recipient_id, created_at)",
	"CREATE INDEX IF NOT EXISTS idx_messages_recipient_unread ON messages (recipient_id) WHERE is_read = false",
	"CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created ON notifications (recipient_id, created_at DESC)",

	"CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs (status, created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_profile_views_profile_viewed ON profile_views (profile_id, viewed_at DESC)",
}

func createIndexes(db *gorm.DB) error {
	for _, stmt := range indexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// Close closes the connection held in DB
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health pings db
func Health(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
