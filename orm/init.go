package orm

import (
	"fmt"
	"strings"

	"gentoostats/config"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"

	"gorm.io/gorm/logger"

	"gorm.io/gorm"
)

// DB wraps the gorm handle. All entity resolution and submission
// persistence goes through it.
type DB struct {
	gdb *gorm.DB
}

// New wraps an already-open gorm handle. Used by tests.
func New(gdb *gorm.DB) *DB {
	return &DB{gdb: gdb}
}

func InitDB(cfg *config.AppConfig) *DB {
	dsn := fmt.Sprintf(
		"host='%s' port='%d' user='%s' password='%s' dbname='%s' sslmode='%s'",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)

	dsn_redacted := dsn
	if cfg.Database.Password != "" {
		dsn_redacted = strings.ReplaceAll(dsn, cfg.Database.Password, "*****")
	}
	log.Debug().
		Msgf("Connecting to postgres using the following information: %s", dsn_redacted)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the database")
	}

	log.Debug().Msg("Successfully connected to the database")

	// Run database migrations
	err = gdb.AutoMigrate(
		&Category{},
		&PackageName{},
		&Repository{},
		&UseFlag{},
		&Keyword{},
		&Feature{},
		&Lang{},
		&MirrorServer{},
		&SyncServer{},
		&Host{},
		&Package{},
		&Atom{},
		&Submission{},
		&Installation{},
		&AtomSet{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	return New(gdb)
}
