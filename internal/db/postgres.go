package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/types"
	"github.com/tomoya0245/sa-chat/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "sachat", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(
		&types.Course{},
		&types.SAProfile{},
		&types.Message{},
		&types.Call{},
		&types.ThreadLock{},
		&types.ThreadRead{},
		&types.ThreadPin{},
		&types.StudentAlias{},
	); err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	// messages, calls, pins and aliases cascade with their course.
	// thread_locks and thread_reads intentionally carry no FK: course
	// deletion must clear them explicitly before removing the course row.
	for _, ddl := range []struct {
		table, constraint string
	}{
		{"messages", "fk_messages_course_code"},
		{"calls", "fk_calls_course_code"},
		{"thread_pins", "fk_thread_pins_course_code"},
		{"student_aliases", "fk_student_aliases_course_code"},
	} {
		stmt := fmt.Sprintf(`
			ALTER TABLE %q
			DROP CONSTRAINT IF EXISTS %q;
			ALTER TABLE %q
			ADD CONSTRAINT %q
			FOREIGN KEY ("course_code")
			REFERENCES "courses"("code")
			ON DELETE CASCADE
		`, ddl.table, ddl.constraint, ddl.table, ddl.constraint)
		if err := s.db.Exec(stmt).Error; err != nil {
			s.log.Error("Failed to configure cascade constraint", "table", ddl.table, "error", err)
			return err
		}
	}
	return nil
}
