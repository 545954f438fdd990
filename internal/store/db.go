package store

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options control how the store opens its database. The board's debug flag
// maps to SQL statement logging; Quiet silences gorm entirely for CLI runs
// and tests.
type Options struct {
	Quiet bool
	Debug bool
}

func (o Options) logLevel() logger.LogLevel {
	switch {
	case o.Quiet:
		return logger.Silent
	case o.Debug:
		return logger.Info
	default:
		return logger.Warn
	}
}

type Store struct {
	DB *gorm.DB
}

func New(filepath string, opts Options) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(filepath), &gorm.Config{
		Logger: logger.Default.LogMode(opts.logLevel()),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// sqlite allows one writer; a small pool avoids SQLITE_BUSY churn while
	// still letting concurrent nodes read.
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, err
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
