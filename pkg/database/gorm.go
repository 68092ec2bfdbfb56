package database

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tunes the connection pool and the SQL logger.
type Options struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
	LogLevel        string // "silent", "error", "warn" or "info"
}

func DefaultOptions() Options {
	return Options{
		MaxIdleConns:    10,
		MaxOpenConns:    50,
		ConnMaxLifetime: time.Hour,
		SlowThreshold:   200 * time.Millisecond,
		LogLevel:        "warn",
	}
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func newSQLLogger(opts Options) logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             opts.SlowThreshold,
			LogLevel:                  parseLogLevel(opts.LogLevel),
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true, // embeddings would flood the log otherwise
			Colorful:                  false,
		},
	)
}

func configureConnectionPool(db *gorm.DB, opts Options) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return nil
}

// NewGormDB opens a postgres connection with the given pool settings.
func NewGormDB(dsn string, opts Options) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database: empty connection string")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         newSQLLogger(opts),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := configureConnectionPool(db, opts); err != nil {
		return nil, err
	}
	return db, nil
}
