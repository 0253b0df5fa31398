package persistence

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/compario/backend/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// Migrate brings the schema up to date. Postgres runs the versioned goose
// migrations; sqlite is migrated from the models.
func Migrate(ctx context.Context, db *gorm.DB, driver string, logger zerolog.Logger) error {
	switch driver {
	case DriverPostgres:
		return migratePostgres(ctx, db, logger)
	case DriverSQLite:
		if err := db.WithContext(ctx).AutoMigrate(&domain.User{}, &domain.SearchHistoryEntry{}); err != nil {
			return fmt.Errorf("failed to auto-migrate: %w", err)
		}
		logger.Info().Str("driver", driver).Msg("schema migrated")
		return nil
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func migratePostgres(ctx context.Context, db *gorm.DB, logger zerolog.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access database handle: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: logger})
	if err := goose.SetDialect(DriverPostgres); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info().Int64("version", version).Msg("schema migrated")
	return nil
}

// gooseLogger routes goose output through zerolog
type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}
